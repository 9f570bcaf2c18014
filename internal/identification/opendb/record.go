package opendb

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one open-database entry.
type Record struct {
	Title   string `json:"title"`
	Year    Year   `json:"year,omitempty"`
	Edition string `json:"edition,omitempty"`
	UPC     string `json:"upc,omitempty"`
}

// Valid reports whether the record carries a usable title.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != ""
}

// Year accepts both numeric and quoted years; anything else decodes as zero.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}
	text := strings.Trim(string(data), `"`)
	if len(text) > 4 {
		text = text[:4]
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		*y = 0
		return nil
	}
	*y = Year(value)
	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(y))
}
