package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/tabular"
)

const bulkCSV = "Código da Emenda;Tipo de Emenda;Número da Emenda;Ano;Nome do Autor;UF do Autor;Função;Valor Empenhado;Valor Pago\n" +
	"202012340001;EMENDA INDIVIDUAL;1234;2020;JOAO DA SILVA;SP;Saúde;\"1.000,00\";\"500,00\"\n" +
	"202012340001;EMENDA INDIVIDUAL;1234;2020;JOAO DA SILVA;SP;Saúde;\"1.000,00\";\"500,00\"\n" +
	"202056780002;EMENDA DE BANCADA;5678;2020;BANCADA DO RS;RIO GRANDE DO SUL;Educação;\"2.000,00\";\"0,00\"\n" +
	"201999990003;EMENDA INDIVIDUAL;9999;2019;OUTRO AUTOR;RJ;Saúde;\"9,99\";\"9,99\"\n"

func TestAmendmentsBulkCollect(t *testing.T) {
	ff := &stubFetcher{downloads: map[string]downloadSpec{
		"https://portal.test/emendas/2020": {zipEntries: map[string]string{"Emendas.csv": bulkCSV}},
	}}
	st := newMemStore(knownLegislator())
	deps := testDeps(t, st, ff)

	result := model.NewCollectionResult(TargetAmendments)
	err := NewAmendmentsBulk(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	// 2019 row filtered out, duplicate code dropped in-batch.
	require.Len(t, st.amendments, 2)

	individual := st.amendments["202012340001"]
	assert.Equal(t, model.KindIndividual, individual.Kind)
	assert.Equal(t, int64(1), individual.LegislatorID, "author must resolve to the known legislator")
	assert.Equal(t, 1000.0, individual.CommittedValue)
	assert.Equal(t, 500.0, individual.PaidValue)
	assert.Equal(t, "SP", individual.AuthorState)

	bloc := st.amendments["202056780002"]
	assert.Equal(t, model.KindBloc, bloc.Kind)
	assert.Zero(t, bloc.LegislatorID, "caucus amendments stay unattributed")
	assert.Equal(t, "RS", bloc.AuthorState, "state name must fold to its code")

	snap := result.Snapshot()
	assert.Equal(t, 3, snap.Found)
	assert.Equal(t, 2, snap.Saved)
	assert.Equal(t, 1, snap.Skipped)
}

func TestAmendmentsBulkCollectIsIdempotent(t *testing.T) {
	ff := &stubFetcher{downloads: map[string]downloadSpec{
		"https://portal.test/emendas/2020": {zipEntries: map[string]string{"Emendas.csv": bulkCSV}},
	}}
	st := newMemStore(knownLegislator())
	deps := testDeps(t, st, ff)

	require.NoError(t, NewAmendmentsBulk(deps).Collect(context.Background(), model.NewCollectionResult(TargetAmendments)))

	second := model.NewCollectionResult(TargetAmendments)
	require.NoError(t, NewAmendmentsBulk(deps).Collect(context.Background(), second))

	assert.Len(t, st.amendments, 2, "second run must not add rows")
	assert.Zero(t, second.Snapshot().Saved)
}

func TestAmendmentsAPICollectMapsAPIFields(t *testing.T) {
	ff := &stubFetcher{pages: map[string][]map[string]any{
		"https://api.portal.test/emendas": {
			{
				"codigoEmenda": "202012340001", "tipoEmenda": "EMENDA INDIVIDUAL",
				"numeroEmenda": "1234", "ano": "2020", "nomeAutor": "JOAO DA SILVA",
				"funcao": "Saúde", "valorEmpenhado": "1.000,00", "valorPago": "500,00",
			},
		},
	}}
	st := newMemStore(knownLegislator())
	deps := testDeps(t, st, ff)
	deps.Cfg.Transparencia.APIKey = "k"
	deps.Transparencia = newTransparenciaWithKey(deps, "k")

	result := model.NewCollectionResult(TargetAmendments)
	err := NewAmendmentsAPI(deps).Collect(context.Background(), result)
	require.NoError(t, err)

	require.Len(t, st.amendments, 1)
	a := st.amendments["202012340001"]
	assert.Equal(t, int64(1), a.LegislatorID)
	assert.Equal(t, 1000.0, a.CommittedValue)
	assert.Equal(t, 1, result.Snapshot().WithMatch)
}

func TestAmendmentFromRowMalformedMoneyIsZero(t *testing.T) {
	row := tabular.Row{
		tabular.FieldCode:           "202012340001",
		tabular.FieldAuthor:         "JOAO",
		tabular.FieldCommittedValue: "n/d",
	}
	a := amendmentFromRow(row, 2020)
	assert.Zero(t, a.CommittedValue)
	assert.Equal(t, 2020, a.Year)
}
