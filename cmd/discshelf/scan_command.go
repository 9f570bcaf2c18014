package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"discshelf/internal/library"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
)

// scanFeed filters raw scanner lines. With confirm set a barcode is accepted
// only after two identical consecutive reads. A barcode marked done in this
// session is ignored; one whose lookup or add failed may be rescanned.
type scanFeed struct {
	confirm bool
	last    string
	done    map[string]bool
}

func newScanFeed(confirm bool) *scanFeed {
	return &scanFeed{confirm: confirm, done: make(map[string]bool)}
}

// Accept returns the query to run for line, if any.
func (f *scanFeed) Accept(line string) (normalize.Query, bool) {
	q := normalize.NormalizeScanOrInput(line)
	switch q.Kind {
	case normalize.QueryNone:
		return q, false
	case normalize.QueryTitle:
		f.last = ""
		return q, true
	}
	if f.done[q.Value] {
		f.last = q.Value
		return q, false
	}
	if f.confirm && f.last != q.Value {
		f.last = q.Value
		return q, false
	}
	// a further read of the same code starts a new confirmation pair
	f.last = ""
	return q, true
}

// Done records that q reached the collection, so later reads are skipped.
func (f *scanFeed) Done(q normalize.Query) {
	if q.Kind == normalize.QueryCode {
		f.done[q.Value] = true
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read scanner output from stdin and add auto-selected matches",
		Long: `Read one decoded barcode or typed title per line from stdin. Auto-selected
matches are added to the collection; ambiguous or missing matches are reported
so they can be added with "discshelf add --pick" or "--manual".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.lookupResolver()
			if err != nil {
				return err
			}
			var lib *library.Library
			if !dryRun {
				if lib, err = ctx.collection(cmd.Context()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			feed := newScanFeed(confirm)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			added, skipped := 0, 0
			for scanner.Scan() {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				query, ok := feed.Accept(scanner.Text())
				if !ok {
					continue
				}
				result, err := resolver.Lookup(cmd.Context(), query.Value)
				if err != nil {
					printStatus(out, statusError, "%s: %v", query.Value, userError(err))
					skipped++
					continue
				}
				candidate, ok := result.Selected()
				if !ok {
					skipped++
					if result.Decision.Outcome == matching.OutcomeChoices {
						printStatus(out, statusWarn, "%s: %d candidates, add with --pick", query.Value, len(result.Candidates))
					} else {
						printStatus(out, statusWarn, "%s: no match", query.Value)
					}
					continue
				}
				if dryRun {
					printStatus(out, statusInfo, "%s: %s", query.Value, candidate.Label())
					feed.Done(query)
					continue
				}
				res, err := lib.AddCandidate(cmd.Context(), library.AddRequest{Candidate: candidate, UPC: result.UPC})
				if err != nil {
					printStatus(out, statusError, "%s: %v", query.Value, userError(err))
					skipped++
					continue
				}
				feed.Done(query)
				if res.Duplicate {
					printStatus(out, statusInfo, "%s: %s already in collection", query.Value, candidate.Label())
					continue
				}
				added++
				printStatus(out, statusOK, "%s: added %s", query.Value, candidate.Label())
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read scanner input: %w", err)
			}
			fmt.Fprintf(out, "%d added, %d need attention\n", added, skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Require two identical consecutive reads before using a barcode")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Look up only; do not write to the collection")
	return cmd
}
