package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromLabel(t *testing.T) {
	assert.Equal(t, KindBloc, KindFromLabel("Emenda de Bancada"))
	assert.Equal(t, KindCommittee, KindFromLabel("EMENDA DE COMISSÃO"))
	assert.Equal(t, KindCommittee, KindFromLabel("emenda de comissao"))
	assert.Equal(t, KindRapporteur, KindFromLabel("  Emenda de Relator  "))
	assert.Equal(t, KindIndividual, KindFromLabel("Emenda Individual"))
	assert.Equal(t, KindIndividual, KindFromLabel(""))
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "RS", StateCode("Rio Grande do Sul"))
	assert.Equal(t, "SP", StateCode("SÃO PAULO"))
	assert.Equal(t, "SP", StateCode("sp"))
	assert.Equal(t, "DF", StateCode(" Distrito Federal "))
	assert.Equal(t, "", StateCode(""))
	// Unknown names keep their first two letters rather than dropping data.
	assert.Equal(t, "EX", StateCode("EXTERIOR"))
}

func TestAmendmentBestValue(t *testing.T) {
	a := Amendment{CommittedValue: 100, SettledValue: 250, PaidValue: 80}
	assert.Equal(t, 250.0, a.BestValue())

	a = Amendment{PaidValue: 50}
	assert.Equal(t, 50.0, a.BestValue())

	assert.Equal(t, 0.0, Amendment{}.BestValue())
}

func TestSourceRecordGet(t *testing.T) {
	r := SourceRecord{Fields: map[string]string{"author": "X"}}
	assert.Equal(t, "X", r.Get("author"))
	assert.Equal(t, "", r.Get("missing"))
}

func TestCollectionResultCounters(t *testing.T) {
	r := NewCollectionResult("amendments")
	r.AddFound(3)
	r.RecordSaved(true, 100.50)
	r.RecordSaved(false, 49.50)
	r.RecordSkipped()
	r.RecordError()
	r.Finalize("transparencia-bulk")

	snap := r.Snapshot()
	assert.Equal(t, "amendments", snap.Target)
	assert.Equal(t, "transparencia-bulk", snap.Source)
	assert.Equal(t, 3, snap.Found)
	assert.Equal(t, 2, snap.Saved)
	assert.Equal(t, 1, snap.WithMatch)
	assert.Equal(t, 1, snap.WithoutMatch)
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 1, snap.Errors)
	assert.Equal(t, 150.0, snap.TotalValue)
	assert.False(t, snap.FinishedAt.IsZero())
}
