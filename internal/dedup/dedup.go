// Package dedup derives the canonical identity key for each record type.
// Keys feed both the in-process skip check during collection and the
// unique constraints in the database schema; the constraint is the
// authority, the pre-check only avoids pointless round trips.
package dedup

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
)

// keyFields fixes, per record type, which normalized fields compose the
// identity key, in order.
var keyFields = map[model.RecordType][]string{
	model.TypeLegislator:  {"external_id"},
	model.TypeExpenditure: {"legislator_id", "year", "month", "document_number", "net_value"},
	model.TypeAmendment:   {"amendment_code"},
	model.TypeBill:        {"external_id"},
	model.TypeVote:        {"external_id"},
}

// Key composes the canonical key for a record. Missing fields are kept as
// empty components so the key shape stays stable; an unknown record type
// is an error.
func Key(recordType model.RecordType, fields map[string]string) (model.CanonicalKey, error) {
	names, ok := keyFields[recordType]
	if !ok {
		return model.CanonicalKey{}, eris.Errorf("dedup: no key definition for record type %q", recordType)
	}

	values := make([]string, len(names))
	for i, name := range names {
		values[i] = strings.TrimSpace(fields[name])
	}
	return model.CanonicalKey{Type: recordType, Values: values}, nil
}

// ExpenditureKey builds the key for a materialized expenditure without a
// field map detour.
func ExpenditureKey(e *model.Expenditure) model.CanonicalKey {
	return model.CanonicalKey{
		Type: model.TypeExpenditure,
		Values: []string{
			fmt.Sprintf("%d", e.LegislatorID),
			fmt.Sprintf("%d", e.Year),
			fmt.Sprintf("%d", e.Month),
			e.DocumentNumber,
			fmt.Sprintf("%.2f", e.NetValue),
		},
	}
}

// AmendmentKey builds the key for a materialized amendment.
func AmendmentKey(a *model.Amendment) model.CanonicalKey {
	return model.CanonicalKey{
		Type:   model.TypeAmendment,
		Values: []string{a.ExternalCode},
	}
}

// String renders a key for logging and the seen-set.
func String(k model.CanonicalKey) string {
	return string(k.Type) + "|" + strings.Join(k.Values, "|")
}

// Seen is a per-run set of keys already processed, used to drop in-batch
// duplicates before they reach the store. Not safe for concurrent use;
// each collection worker keeps its own.
type Seen struct {
	keys map[string]struct{}
}

func NewSeen() *Seen {
	return &Seen{keys: make(map[string]struct{})}
}

// Check records the key and reports whether it was already present.
func (s *Seen) Check(k model.CanonicalKey) bool {
	id := String(k)
	if _, dup := s.keys[id]; dup {
		return true
	}
	s.keys[id] = struct{}{}
	return false
}
