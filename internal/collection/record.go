package collection

import (
	"encoding/json"
	"strings"
)

// Status tracks where a record is in the enrichment lifecycle.
type Status string

const (
	StatusPendingEnrichment Status = "pending_enrichment"
	StatusNeedsMatch        Status = "needs_match"
	StatusEnriched          Status = "enriched"
	StatusFailedEnrichment  Status = "failed_enrichment"
)

// MovieRecord is one disc in the collection. ExternalID is the metadata
// provider's id and keeps the "id" key used by existing documents.
type MovieRecord struct {
	RecordID    string `json:"record_id,omitempty"`
	ExternalID  int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	PosterPath  string `json:"poster_path,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	UPC         string `json:"upc"`
	AddedAt     string `json:"added_at"`
	Note        string `json:"note"`
	Status      Status `json:"status"`
	MatchSource string `json:"match_source,omitempty"`
	MatchScore  int    `json:"match_score,omitempty"`

	Runtime             int      `json:"runtime,omitempty"`
	ProductionCountries []string `json:"production_countries,omitempty"`
	AudioTracks         []string `json:"audio_tracks,omitempty"`
	Region              string   `json:"region,omitempty"`
	Audio               string   `json:"audio,omitempty"`
	DetailsURL          string   `json:"bluray_url,omitempty"`
	EnrichedAt          string   `json:"enriched_at,omitempty"`

	// Extra carries keys written by other tools so a rewrite keeps them.
	Extra map[string]json.RawMessage `json:"-"`
}

type recordAlias MovieRecord

var knownKeys = map[string]struct{}{
	"record_id": {}, "id": {}, "title": {}, "poster_path": {}, "release_date": {},
	"upc": {}, "added_at": {}, "note": {}, "status": {}, "match_source": {},
	"match_score": {}, "runtime": {}, "production_countries": {}, "audio_tracks": {},
	"region": {}, "audio": {}, "bluray_url": {}, "enriched_at": {},
}

func (r *MovieRecord) UnmarshalJSON(data []byte) error {
	var alias recordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key := range knownKeys {
		delete(fields, key)
	}
	*r = MovieRecord(alias)
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

func (r MovieRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordAlias(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, known := knownKeys[key]; known {
			continue
		}
		fields[key] = value
	}
	return json.Marshal(fields)
}

// Year returns the release year, or zero when the date is missing.
func (r MovieRecord) Year() string {
	if len(r.ReleaseDate) >= 4 {
		return r.ReleaseDate[:4]
	}
	return ""
}

// SameDisc reports whether two records describe the same disc for duplicate
// suppression: identical UPC and identical title.
func SameDisc(a, b MovieRecord) bool {
	return a.UPC == b.UPC && a.Title == b.Title
}

// Matches reports whether candidate identifies stored for deletion: the same
// record id, the same creation timestamp, the same UPC and title, or the same
// external id and title.
func Matches(stored, candidate MovieRecord) bool {
	if stored.RecordID != "" && stored.RecordID == candidate.RecordID {
		return true
	}
	if stored.AddedAt != "" && stored.AddedAt == candidate.AddedAt {
		return true
	}
	if stored.UPC != "" && stored.UPC == candidate.UPC && stored.Title == candidate.Title {
		return true
	}
	if stored.ExternalID != 0 && stored.ExternalID == candidate.ExternalID && stored.Title == candidate.Title {
		return true
	}
	return false
}

// FilterRecords returns the records whose title or note contains query,
// ignoring case. An empty query returns every record.
func FilterRecords(records []MovieRecord, query string) []MovieRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}
	out := make([]MovieRecord, 0, len(records))
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Title), query) || strings.Contains(strings.ToLower(record.Note), query) {
			out = append(out, record)
		}
	}
	return out
}
