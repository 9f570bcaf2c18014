package main

import (
	"github.com/spf13/cobra"

	"discshelf/internal/api"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var showAttempts bool

	cmd := &cobra.Command{
		Use:   "lookup <barcode|title>",
		Short: "Identify a disc by barcode or title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := ctx.lookupResolver()
			if err != nil {
				return err
			}
			result, err := resolver.Lookup(cmd.Context(), joinArgs(args))
			if err != nil {
				return userError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.FromLookupResult(result))
			}
			renderLookup(cmd.OutOrStdout(), result, showAttempts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showAttempts, "attempts", false, "Show which lookup sources ran")
	return cmd
}
