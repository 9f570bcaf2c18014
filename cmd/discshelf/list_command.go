package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"discshelf/internal/api"
	"discshelf/internal/collection"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.collection(cmd.Context())
			if err != nil {
				return err
			}
			records, err := lib.List(cmd.Context(), filter)
			if err != nil {
				return userError(err)
			}
			if records == nil {
				records = []collection.MovieRecord{}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.MoviesResponse{
					Backend:  lib.BackendName(),
					ReadOnly: lib.ReadOnly(),
					Count:    len(records),
					Movies:   records,
				})
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				if filter != "" {
					fmt.Fprintf(out, "No records match %q\n", filter)
				} else {
					fmt.Fprintln(out, "Collection is empty")
				}
				return nil
			}
			fmt.Fprintln(out, recordTable(records))
			suffix := ""
			if lib.ReadOnly() {
				suffix = ", read-only"
			}
			fmt.Fprintf(out, "%d records (%s%s)\n", len(records), lib.BackendName(), suffix)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Show records whose title or note contains this text")
	return cmd
}
