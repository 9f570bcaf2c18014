package identification

import (
	"context"
	"strings"

	"discshelf/internal/identification/opendb"
	"discshelf/internal/logging"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
)

// LookupBarcode runs the barcode cascade. Sources are tried strictly in order
// and each only when every earlier one came back empty. Codes outside the
// UPC/EAN length range skip every source and resolve as not found with the
// code preserved for manual entry.
func (r *Resolver) LookupBarcode(ctx context.Context, code string) (*Result, error) {
	code = strings.TrimSpace(code)
	result := &Result{Input: code, Kind: normalize.QueryCode.String(), UPC: code}

	if !normalize.IsBarcode(code) {
		result.Attempts = append(result.Attempts, Attempt{Strategy: "barcode", Outcome: attemptSkipped, Error: "not a UPC/EAN length code"})
		r.decide(ctx, result)
		return result, nil
	}

	variants := normalize.BuildUPCCandidates(code)
	for _, s := range r.barcodeStrategies(variants) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates := r.runStrategy(ctx, s, result)
		if len(candidates) == 0 {
			continue
		}
		result.Candidates = withEdition(candidates, result.EditionNote)
		if result.Source == "" {
			result.Source = candidates[0].Source
		}
		break
	}

	r.decide(ctx, result)
	return result, nil
}

func (r *Resolver) barcodeStrategies(variants []string) []strategy {
	var strategies []strategy
	if r.provider.available() {
		strategies = append(strategies, strategy{
			name:    "provider-find",
			breaker: sourceProvider,
			run: func(ctx context.Context, result *Result) ([]matching.Candidate, error) {
				return r.providerFind(ctx, variants, result)
			},
		})
	}
	if r.openDB != nil {
		strategies = append(strategies, strategy{
			name:    "open-db",
			breaker: sourceOpenDB,
			run: func(ctx context.Context, result *Result) ([]matching.Candidate, error) {
				return r.openDBBarcode(ctx, variants, result)
			},
		})
	}
	if r.provider.available() && r.upc != nil {
		strategies = append(strategies, strategy{
			name:    "upc-lookup",
			breaker: sourceUPC,
			run: func(ctx context.Context, result *Result) ([]matching.Candidate, error) {
				return r.upcLookup(ctx, variants[0], result)
			},
		})
	}
	return strategies
}

// providerFind asks the provider for each code variant; the first non-empty
// answer wins. The provider's own first result serves as the preferred title.
// A failed variant is logged and the next one tried; the step fails only
// when every variant failed.
func (r *Resolver) providerFind(ctx context.Context, variants []string, result *Result) ([]matching.Candidate, error) {
	var firstErr error
	failures := 0
	for _, code := range variants {
		found, err := r.provider.find(ctx, code)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "provider find failed for code variant", "provider_find_variant_failed",
				logging.String("upc", code),
				logging.Error(err),
				logging.String(logging.FieldImpact, "trying the next code variant"),
			)
			continue
		}
		candidates := providerCandidates(found)
		if len(candidates) == 0 {
			continue
		}
		result.UPC = code
		result.PreferredTitle = candidates[0].Title
		result.PreferredYear = candidates[0].ReleaseYear()
		return matching.Rank(candidates, result.PreferredTitle, result.PreferredYear), nil
	}
	if failures == len(variants) {
		return nil, firstErr
	}
	return nil, nil
}

// openDBBarcode checks the barcode index, then the per-code record. A hit's
// title and year re-query the provider; the open-database record itself is
// offered only when the provider has nothing.
func (r *Resolver) openDBBarcode(ctx context.Context, variants []string, result *Result) ([]matching.Candidate, error) {
	logger := logging.WithContext(ctx, r.logger)

	source := matching.SourceOpenDBIndex
	var (
		record opendb.Record
		code   string
		hit    bool
	)
	if err := r.openDB.EnsureIndexes(ctx, r.indexes); err != nil {
		logging.WarnWithContext(logger, "open database index load failed", "open_db_index_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to per-code records"),
		)
	} else {
		record, code, hit = r.indexes.LookupUPC(variants)
	}
	if !hit {
		source = matching.SourceOpenDBChunk
		var err error
		record, code, hit, err = r.openDB.FetchChunk(ctx, variants)
		if err != nil && !hit {
			return nil, err
		}
	}
	if !hit {
		return nil, nil
	}

	result.UPC = code
	result.PreferredTitle = strings.TrimSpace(record.Title)
	result.PreferredYear = int(record.Year)
	result.EditionNote = editionFor(record)
	logger.Debug("open database hit",
		logging.Source(string(source)),
		logging.String("title", record.Title),
		logging.Int("year", int(record.Year)),
	)

	if r.provider.available() {
		found, err := r.provider.searchVariants(ctx, normalize.BuildTitleVariants(record.Title))
		if err != nil {
			logging.WarnWithContext(logger, "provider title search failed", "provider_search_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "using the open database record"),
			)
		}
		if ranked := matching.Rank(providerCandidates(found), result.PreferredTitle, result.PreferredYear); len(ranked) > 0 {
			return ranked, nil
		}
	}

	return matching.Rank([]matching.Candidate{{
		Title:       result.PreferredTitle,
		Year:        result.PreferredYear,
		EditionNote: result.EditionNote,
		Source:      source,
	}}, result.PreferredTitle, result.PreferredYear), nil
}

// upcLookup resolves the code to a product title and searches the provider
// with its variants.
func (r *Resolver) upcLookup(ctx context.Context, code string, result *Result) ([]matching.Candidate, error) {
	rawTitle, err := r.upc.FirstTitle(ctx, code)
	if err != nil {
		return nil, err
	}
	if rawTitle == "" {
		return nil, nil
	}
	variants := normalize.BuildTitleVariants(rawTitle)
	if len(variants) == 0 {
		return nil, nil
	}
	result.EditionNote = normalize.EditionNote(rawTitle)
	result.PreferredTitle = variants[0]
	result.PreferredYear = 0

	found, err := r.provider.searchVariants(ctx, variants)
	if err != nil {
		return nil, err
	}
	candidates := providerCandidates(found)
	for i := range candidates {
		candidates[i].Source = matching.SourceUPCLookup
	}
	return matching.Rank(candidates, result.PreferredTitle, result.PreferredYear), nil
}

func editionFor(record opendb.Record) string {
	if edition := strings.TrimSpace(record.Edition); edition != "" {
		return edition
	}
	return normalize.EditionNote(record.Title)
}
