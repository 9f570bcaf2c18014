// Package enrich fills in technical details for records awaiting enrichment.
//
// For each pending_enrichment record the enricher fetches provider details
// (runtime, production countries, spoken languages) and scrapes the disc
// details site for region and lossless audio. Results are written back through
// the collection's CAS update loop; a record nothing could be learned about is
// marked failed_enrichment.
package enrich
