package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"discshelf/internal/collection"
	"discshelf/internal/identification"
	"discshelf/internal/matching"
)

func candidateTable(candidates []matching.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		year := ""
		if y := c.ReleaseYear(); y > 0 {
			year = strconv.Itoa(y)
		}
		id := ""
		if c.ExternalID > 0 {
			id = strconv.FormatInt(c.ExternalID, 10)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), c.Title, year, string(c.Source), strconv.Itoa(c.Score), id})
	}
	return renderTable([]column{
		{title: "#", numeric: true},
		{title: "Title"},
		{title: "Year"},
		{title: "Source"},
		{title: "Score", numeric: true},
		{title: "ID", numeric: true},
	}, rows)
}

func attemptTable(attempts []identification.Attempt) string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{a.Strategy, a.Outcome, strconv.Itoa(a.Candidates), a.Duration.Round(1e6).String(), a.Error})
	}
	return renderTable([]column{
		{title: "Strategy"},
		{title: "Outcome"},
		{title: "Candidates", numeric: true},
		{title: "Took", numeric: true},
		{title: "Error"},
	}, rows)
}

func recordTable(records []collection.MovieRecord) string {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Title, r.Year(), r.UPC, r.Note, string(r.Status)})
	}
	return renderTable([]column{
		{title: "#", numeric: true},
		{title: "Title"},
		{title: "Year"},
		{title: "UPC"},
		{title: "Note"},
		{title: "Status"},
	}, rows)
}

func renderLookup(w io.Writer, result *identification.Result, showAttempts bool) {
	switch result.Decision.Outcome {
	case matching.OutcomeAuto:
		selected := result.Decision.Selected
		printStatus(w, statusOK, "Matched %s (%s, score %d)", selected.Label(), selected.Source, selected.Score)
	case matching.OutcomeChoices:
		printStatus(w, statusWarn, "Several matches for %q. Pick one with --pick.", result.Input)
	default:
		printStatus(w, statusWarn, "No match found for %q. Type a title instead, or add with --manual.", result.Input)
	}
	if result.UPC != "" {
		fmt.Fprintf(w, "UPC: %s\n", result.UPC)
	}
	if result.EditionNote != "" {
		fmt.Fprintf(w, "Edition: %s\n", result.EditionNote)
	}
	if len(result.Candidates) > 0 {
		fmt.Fprintln(w, candidateTable(result.Candidates))
	}
	if showAttempts && len(result.Attempts) > 0 {
		fmt.Fprintln(w, attemptTable(result.Attempts))
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
