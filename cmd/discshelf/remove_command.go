package main

import (
	"errors"

	"github.com/spf13/cobra"

	"discshelf/internal/api"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var req api.DeleteMovieRequest

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove records from the collection",
		Long: `Remove every record matching the given criteria. A record matches on the
same record id, the same added time, the same UPC and title, or the same
provider id and title.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req == (api.DeleteMovieRequest{}) {
				return errors.New("give --record-id, --added-at, or --title with --upc or --id")
			}
			lib, err := ctx.collection(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := lib.Remove(cmd.Context(), api.CriteriaFromRequest(req))
			if err != nil {
				return userError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.DeleteMovieResponse{Removed: removed})
			}
			if removed {
				printStatus(cmd.OutOrStdout(), statusOK, "Removed %s", removalLabel(req))
			} else {
				printStatus(cmd.OutOrStdout(), statusInfo, "No matching record; nothing changed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RecordID, "record-id", "", "Record id")
	cmd.Flags().StringVar(&req.AddedAt, "added-at", "", "Exact added_at timestamp")
	cmd.Flags().StringVar(&req.Title, "title", "", "Title (with --upc or --id)")
	cmd.Flags().StringVar(&req.UPC, "upc", "", "Barcode")
	cmd.Flags().Int64Var(&req.ExternalID, "id", 0, "Metadata provider id")
	return cmd
}

func removalLabel(req api.DeleteMovieRequest) string {
	switch {
	case req.Title != "":
		return req.Title
	case req.RecordID != "":
		return req.RecordID
	default:
		return req.AddedAt
	}
}
