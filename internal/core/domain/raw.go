package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordTypeJSON is the record type of artifact metadata documents.
const RecordTypeJSON = "json"

// RawRecord is an artifact metadata document as persisted by the scraper.
// It is the input to normalisation.
type RawRecord struct {
	// ID is the opaque corpus key, conventionally product/version/filename.
	ID string

	// Type is the document kind. Only RecordTypeJSON records describe builds.
	Type string

	// Modified is when the artifact was last modified.
	Modified time.Time

	// Length is the artifact size in bytes.
	Length int64

	// UserData holds the artifact metadata (product, fullversion, arch...).
	UserData map[string]any
}

// rawRecordWire is the Couchbase document shape of a RawRecord.
type rawRecordWire struct {
	Meta struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"meta"`
	JSON struct {
		Modified time.Time      `json:"modified"`
		Length   int64          `json:"length"`
		UserData map[string]any `json:"userdata,omitempty"`
	} `json:"json"`
}

// MarshalJSON encodes the record as {"meta": {...}, "json": {...}}.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var w rawRecordWire
	w.Meta.ID = r.ID
	w.Meta.Type = r.Type
	w.JSON.Modified = r.Modified
	w.JSON.Length = r.Length
	w.JSON.UserData = r.UserData
	return json.Marshal(w)
}

// UnmarshalJSON decodes the {"meta": {...}, "json": {...}} document shape.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var w rawRecordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Meta.ID == "" {
		return fmt.Errorf("%w: record has no meta.id", ErrInvalidInput)
	}
	r.ID = w.Meta.ID
	r.Type = w.Meta.Type
	r.Modified = w.JSON.Modified
	r.Length = w.JSON.Length
	r.UserData = w.JSON.UserData
	return nil
}

// String returns a user-data value as a string.
// Returns empty string if the key is missing or not a string.
func (r *RawRecord) String(key string) string {
	if r.UserData == nil {
		return ""
	}
	s, _ := r.UserData[key].(string)
	return s
}
