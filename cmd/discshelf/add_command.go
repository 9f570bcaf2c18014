package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"discshelf/internal/api"
	"discshelf/internal/identification"
	"discshelf/internal/library"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
)

var errNeedsChoice = errors.New("several matches; rerun with --pick N")

func newAddCommand(ctx *commandContext) *cobra.Command {
	var note string
	var upc string
	var pick int
	var manual bool

	cmd := &cobra.Command{
		Use:   "add <barcode|title>",
		Short: "Look up a disc and add it to the collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := joinArgs(args)
			req := library.AddRequest{UPC: upc, Note: note}

			if manual {
				req.Candidate = matching.Candidate{Title: input, Source: matching.SourceManual, Score: 1}
			} else {
				resolver, err := ctx.lookupResolver()
				if err != nil {
					return err
				}
				candidate, code, err := chooseCandidate(cmd, resolver, input, pick, !ctx.jsonOutput())
				if err != nil {
					return err
				}
				req.Candidate = candidate
				if req.UPC == "" {
					req.UPC = code
				}
			}
			return addCandidate(cmd, ctx, req)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the record (defaults to the detected edition)")
	cmd.Flags().StringVar(&upc, "upc", "", "Barcode stored with the record")
	cmd.Flags().IntVar(&pick, "pick", 0, "Choose the Nth candidate when several match")
	cmd.Flags().BoolVar(&manual, "manual", false, "Store the input as typed without a lookup")
	return cmd
}

// chooseCandidate looks input up and returns the auto-selected or picked
// candidate with the normalized barcode, if any.
func chooseCandidate(cmd *cobra.Command, resolver *identification.Resolver, input string, pick int, render bool) (matching.Candidate, string, error) {
	result, err := resolver.Lookup(cmd.Context(), input)
	if err != nil {
		return matching.Candidate{}, "", userError(err)
	}
	if pick > 0 {
		candidate, ok := result.Pick(pick)
		if !ok {
			return matching.Candidate{}, "", fmt.Errorf("--pick %d is out of range (%d candidates)", pick, len(result.Candidates))
		}
		return candidate, result.UPC, nil
	}
	if candidate, ok := result.Selected(); ok {
		return candidate, result.UPC, nil
	}
	if render {
		renderLookup(cmd.OutOrStdout(), result, false)
	}
	if result.NotFound() {
		if q := normalize.NormalizeScanOrInput(input); q.Kind == normalize.QueryCode {
			return matching.Candidate{}, "", fmt.Errorf("no match for %s; rerun with a title and --upc %s", q.Value, q.Value)
		}
		return matching.Candidate{}, "", fmt.Errorf("no match for %q; rerun with --manual to store it as typed", input)
	}
	return matching.Candidate{}, "", errNeedsChoice
}

func addCandidate(cmd *cobra.Command, ctx *commandContext, req library.AddRequest) error {
	lib, err := ctx.collection(cmd.Context())
	if err != nil {
		return err
	}
	result, err := lib.AddCandidate(cmd.Context(), req)
	if err != nil {
		return userError(err)
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.AddMovieResponse{Record: result.Record, Duplicate: result.Duplicate, Movies: result.Movies})
	}
	out := cmd.OutOrStdout()
	if result.Duplicate {
		printStatus(out, statusInfo, "%s is already in the collection", result.Record.Title)
		return nil
	}
	label := result.Record.Title
	if year := result.Record.Year(); year != "" {
		label += " (" + year + ")"
	}
	if result.Record.Note != "" {
		label += " [" + result.Record.Note + "]"
	}
	printStatus(out, statusOK, "Added %s", label)
	return nil
}
