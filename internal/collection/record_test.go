package collection

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDocumentRoundTripKeepsUnknownKeys(t *testing.T) {
	input := `{
  "updated_at": "2026-01-01T00:00:00.000Z",
  "movies": [
    {"id": 27205, "title": "Inception", "upc": "883929800815", "added_at": "x", "note": "", "status": "enriched", "region": "A", "custom_rating": 5}
  ]
}`
	doc, err := DecodeDocument([]byte(input))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	record := doc.Movies[0]
	if record.ExternalID != 27205 || record.Region != "A" || record.Status != StatusEnriched {
		t.Fatalf("unexpected record %+v", record)
	}
	if _, ok := record.Extra["custom_rating"]; !ok {
		t.Fatalf("expected unknown key to be kept, got %+v", record.Extra)
	}

	out, err := EncodeDocument(doc)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	if !strings.Contains(string(out), `"custom_rating": 5`) {
		t.Fatalf("expected unknown key in output:\n%s", out)
	}
	if !strings.HasPrefix(string(out), "{\n  \"updated_at\"") {
		t.Fatalf("expected two-space indented document:\n%s", out)
	}
}

func TestDecodeDocumentEmptyAndInvalid(t *testing.T) {
	doc, err := DecodeDocument([]byte("  "))
	if err != nil || doc.Movies == nil || len(doc.Movies) != 0 {
		t.Fatalf("expected empty collection, got %+v %v", doc, err)
	}
	if _, err := DecodeDocument([]byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMarshalRecordWithoutExtras(t *testing.T) {
	data, err := json.Marshal(MovieRecord{Title: "Heat", UPC: "1", AddedAt: "a", Status: StatusNeedsMatch})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"title":"Heat","upc":"1","added_at":"a","note":"","status":"needs_match"}`
	if string(data) != want {
		t.Fatalf("unexpected json\n got: %s\nwant: %s", data, want)
	}
}

func TestFilterRecords(t *testing.T) {
	records := []MovieRecord{
		{Title: "Inception", Note: "Steelbook"},
		{Title: "Heat", Note: "Director's Definitive Edition"},
	}
	if got := FilterRecords(records, "steel"); len(got) != 1 || got[0].Title != "Inception" {
		t.Fatalf("expected note match, got %+v", got)
	}
	if got := FilterRecords(records, "HEAT"); len(got) != 1 || got[0].Title != "Heat" {
		t.Fatalf("expected title match, got %+v", got)
	}
	if got := FilterRecords(records, ""); len(got) != 2 {
		t.Fatalf("expected all records, got %d", len(got))
	}
}
