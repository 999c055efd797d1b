// Package model defines the canonical entities of the reconciliation
// pipeline and the transient record shapes that flow between ingestion,
// resolution, and persistence.
package model

import "time"

// RecordType identifies an entity type for deduplication and storage.
type RecordType string

const (
	TypeLegislator  RecordType = "legislator"
	TypeExpenditure RecordType = "expenditure"
	TypeAmendment   RecordType = "amendment"
	TypeBill        RecordType = "bill"
	TypeVote        RecordType = "vote"
)

// Provenance records where a raw record came from.
type Provenance struct {
	SourceName  string    `json:"source_name"`
	SourceURL   string    `json:"source_url"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// SourceRecord is an opaque source-native record plus provenance.
// It is transient: produced by ingestion, consumed by reconciliation,
// discarded after mapping to a canonical entity.
type SourceRecord struct {
	Fields     map[string]string
	Provenance Provenance
}

// Get returns the named field or empty string.
func (r SourceRecord) Get(key string) string {
	return r.Fields[key]
}

// CanonicalKey is the per-type field tuple whose equality defines
// "same record". Values are compared positionally against the static
// key shape registered for the record type.
type CanonicalKey struct {
	Type   RecordType
	Values []string
}
