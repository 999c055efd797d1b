package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, charmap.ISO8859_1.NewEncoder())
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseDetectsLatin1Semicolon(t *testing.T) {
	data := latin1(t, "Código da Emenda;Nome do Autor;Função\n202012340001;JOÃO DA SILVA;Saúde\n")

	table, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	assert.Equal(t, "202012340001", table.Rows[0][FieldCode])
	assert.Equal(t, "JOÃO DA SILVA", table.Rows[0][FieldAuthor])
	assert.Equal(t, "Saúde", table.Rows[0][FieldFunction])
}

func TestParseDetectsUTF8Comma(t *testing.T) {
	data := []byte("Autor,Ano,Valor Pago\nMARIA SOUZA,2020,\"1.000,50\"\n")

	table, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "MARIA SOUZA", table.Rows[0][FieldAuthor])
	assert.Equal(t, "2020", table.Rows[0][FieldYear])
	assert.Equal(t, "1.000,50", table.Rows[0][FieldPaidValue])
}

func TestParseDetectsTab(t *testing.T) {
	data := []byte("Autor\tAno\nFULANO\t2021\n")

	table, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "FULANO", table.Rows[0][FieldAuthor])
}

func TestParseRejectsStructurallyBroken(t *testing.T) {
	// Single column under every delimiter.
	_, err := Parse([]byte("headeronly\nvalue\n"))
	assert.Error(t, err)
}

func TestHeaderAliasesFoldSpellingVariants(t *testing.T) {
	for header, want := range map[string]string{
		"Valor Empenhado":         FieldCommittedValue,
		"Valor_Empenhado":         FieldCommittedValue,
		"Nome do Autor da Emenda": FieldAuthor,
		"UF do Autor":             FieldState,
		"Subfunção":               FieldSubfunction,
		"Localidade do Gasto":     FieldLocality,
	} {
		assert.Equal(t, want, CanonicalField(header), "header %q", header)
	}
}

func TestCanonicalFieldPassesThroughUnknownHeaders(t *testing.T) {
	assert.Equal(t, "coluna_nova", CanonicalField("Coluna Nova"))
}

func TestFilterYearKeepsMatchingRows(t *testing.T) {
	data := []byte("Autor;Ano\nA;2019\nB;2020\nC;2020\n")

	table, err := ParseYearFiltered(data, 2020)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.False(t, table.Unfiltered)
	assert.Equal(t, "B", table.Rows[0][FieldAuthor])
}

func TestFilterYearWithoutYearColumnReturnsAllRows(t *testing.T) {
	data := []byte("Autor;Valor Pago\nA;10,00\nB;20,00\n")

	table, err := ParseYearFiltered(data, 2020)
	require.NoError(t, err)
	assert.True(t, table.Unfiltered)
	assert.Len(t, table.Rows, 2)
}

func TestParseMoney(t *testing.T) {
	assert.Equal(t, 1234.56, ParseMoney("R$ 1.234,56"))
	assert.Equal(t, 1234.56, ParseMoney("1234,56"))
	assert.Equal(t, 1234.56, ParseMoney("1234.56"))
	assert.Equal(t, 1000000.0, ParseMoney("1.000.000,00"))
	assert.Equal(t, 0.0, ParseMoney(""))
	assert.Equal(t, 0.0, ParseMoney("-"))
	assert.Equal(t, 0.0, ParseMoney("n/d"))
}
