package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
)

func TestExpendituresAPICollect(t *testing.T) {
	ff := &stubFetcher{pages: map[string][]map[string]any{
		"https://api.test/api/v2/deputados/204554/despesas": {
			{"ano": float64(2020), "mes": float64(3), "numDocumento": "NF-1",
				"nomeFornecedor": "POSTO X", "valorDocumento": float64(120), "valorLiquido": float64(100)},
			// Same document repeated in the listing.
			{"ano": float64(2020), "mes": float64(3), "numDocumento": "NF-1",
				"nomeFornecedor": "POSTO X", "valorDocumento": float64(120), "valorLiquido": float64(100)},
		},
	}}
	st := newMemStore(knownLegislator())
	deps := testDeps(t, st, ff)

	result := model.NewCollectionResult(TargetExpenditures)
	err := NewExpendituresAPI(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.exps, 1)
	snap := result.Snapshot()
	assert.Equal(t, 2, snap.Found)
	assert.Equal(t, 1, snap.Saved)
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 100.0, snap.TotalValue)
}

func TestExpendituresAPICollectRequiresLegislators(t *testing.T) {
	deps := testDeps(t, newMemStore(), &stubFetcher{})

	err := NewExpendituresAPI(deps).Collect(context.Background(), model.NewCollectionResult(TargetExpenditures))
	assert.Error(t, err)
}

func TestExpendituresAPICollectOneMemberFailingContinues(t *testing.T) {
	other := model.Legislator{ID: 2, ExternalID: 178901, Name: "Maria Souza"}
	ff := &stubFetcher{pages: map[string][]map[string]any{
		// Only Maria's listing exists; João's paginate call fails.
		"https://api.test/api/v2/deputados/178901/despesas": {
			{"ano": float64(2020), "mes": float64(1), "numDocumento": "NF-9", "valorLiquido": float64(50)},
		},
	}}
	st := newMemStore(knownLegislator(), other)
	deps := testDeps(t, st, ff)

	result := model.NewCollectionResult(TargetExpenditures)
	err := NewExpendituresAPI(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.exps, 1)
	snap := result.Snapshot()
	assert.Equal(t, 1, snap.Saved)
	assert.Equal(t, 1, snap.Errors)
}
