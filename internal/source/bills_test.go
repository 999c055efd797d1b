package source

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

const billsDumpJSON = `[
	{"id": 2252323, "siglaTipo": "PL", "numero": 1234, "ano": 2020, "ementa": "Dispõe sobre saúde.",
	 "dataApresentacao": "2020-03-18T14:00:00", "ultimoStatus": {"descricaoSituacao": "Em tramitação"}},
	{"id": 2252324, "siglaTipo": "REQ", "numero": 99, "ano": 2020, "ementa": "Requerimento."},
	{"id": 2252325, "siglaTipo": "PL", "numero": 1235, "ano": 2020, "ementa": "Outra matéria."}
]`

func TestBillsDumpCollectFiltersTypes(t *testing.T) {
	ff := &stubFetcher{downloads: map[string]downloadSpec{
		"https://api.test/arquivos/proposicoes/json/proposicoes-2020.json": {body: billsDumpJSON},
	}}
	st := newMemStore()
	deps := testDeps(t, st, ff) // BillTypes = [PL]

	result := model.NewCollectionResult(TargetBills)
	err := NewBillsDump(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.bills, 2, "REQ must be filtered out")
	bill := st.bills[2252323]
	assert.Equal(t, "PL", bill.Type)
	assert.Equal(t, "Em tramitação", bill.StatusText)
	require.NotNil(t, bill.PresentedAt)
	assert.Equal(t, 2020, bill.PresentedAt.Year())
}

func TestBillsDumpCollectDownloadFailureIsSourceUnavailable(t *testing.T) {
	ff := &stubFetcher{downloads: map[string]downloadSpec{}}
	deps := testDeps(t, newMemStore(), ff)

	err := NewBillsDump(deps).Collect(context.Background(), model.NewCollectionResult(TargetBills))
	require.Error(t, err)
	assert.True(t, resilience.IsSourceUnavailable(err))
}

func TestBillsDumpCollectMalformedDump(t *testing.T) {
	ff := &stubFetcher{downloads: map[string]downloadSpec{
		"https://api.test/arquivos/proposicoes/json/proposicoes-2020.json": {body: `{"not":"an array"}`},
	}}
	deps := testDeps(t, newMemStore(), ff)

	err := NewBillsDump(deps).Collect(context.Background(), model.NewCollectionResult(TargetBills))
	require.Error(t, err)
	assert.True(t, resilience.IsMalformed(err))
}

// MaxItems must stop the dump walk cleanly even when far more entries
// remain in the decoder than the reader consumes.
func TestBillsDumpCollectHonorsMaxItems(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 200; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id": %d, "siglaTipo": "PL", "numero": %d, "ano": 2020, "ementa": "Matéria."}`, 3000000+i, i+1)
	}
	b.WriteString("]")

	ff := &stubFetcher{downloads: map[string]downloadSpec{
		"https://api.test/arquivos/proposicoes/json/proposicoes-2020.json": {body: b.String()},
	}}
	st := newMemStore()
	deps := testDeps(t, st, ff)
	deps.Cfg.Collect.MaxItems = 1

	result := model.NewCollectionResult(TargetBills)
	err := NewBillsDump(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.bills, 1)
	assert.Equal(t, 1, result.Snapshot().Saved)
}

func TestBillsAPICollectResolvesAuthors(t *testing.T) {
	ff := &stubFetcher{
		pages: map[string][]map[string]any{
			"https://api.test/api/v2/proposicoes": {
				{"id": float64(2252323), "siglaTipo": "PL", "numero": float64(1234), "ano": float64(2020), "ementa": "Saúde."},
			},
		},
		raw: map[string]string{
			"https://api.test/api/v2/proposicoes/2252323/autores": `{"dados":[{"uri":"https://api.test/api/v2/deputados/204554","nome":"JOAO DA SILVA","tipo":"Deputado"}]}`,
		},
	}
	st := newMemStore(knownLegislator())
	deps := testDeps(t, st, ff)

	result := model.NewCollectionResult(TargetBills)
	err := NewBillsAPI(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.bills, 1)
	bill := st.bills[2252323]
	assert.Equal(t, int64(1), bill.LegislatorID, "author must map to the stored legislator id")
	assert.Equal(t, "JOAO DA SILVA", bill.AuthorName)
	assert.Equal(t, 1, result.Snapshot().WithMatch)
}
