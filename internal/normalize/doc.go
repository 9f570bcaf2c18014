// Package normalize holds the pure text and code transforms that sit in front
// of the lookup cascade.
//
// A raw scan or typed string becomes a Query (a barcode Code or a free-text
// title). Codes expand into UPC-A/EAN-13 variants, and product titles are
// cleaned of packaging noise and split into a handful of search variants.
// NormalizeTitle is the comparison key used by scoring, ranking, and the open
// database title index; it is never shown to a person.
package normalize
