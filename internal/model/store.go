package model

import "time"

// SchemaVersion is the version of the persisted document written by this build.
const SchemaVersion = "2.0.0"

// Metadata describes the persisted document itself.
type Metadata struct {
	SchemaVersion string    `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Document is the root of the master JSON file.
type Document struct {
	Metadata   Metadata                    `json:"metadata"`
	Indicators map[string]*IndicatorRecord `json:"indicators"`
}

// NewDocument returns an empty, well-formed document.
func NewDocument(now time.Time) *Document {
	return &Document{
		Metadata: Metadata{
			SchemaVersion: SchemaVersion,
			CreatedAt:     now.UTC(),
			LastUpdatedAt: now.UTC(),
		},
		Indicators: make(map[string]*IndicatorRecord),
	}
}
