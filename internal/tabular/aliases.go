package tabular

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical field names used by the amendment and expenditure ingestors.
const (
	FieldAuthor         = "author"
	FieldAuthorType     = "author_type"
	FieldYear           = "year"
	FieldNumber         = "amendment_number"
	FieldCode           = "amendment_code"
	FieldKind           = "amendment_kind"
	FieldState          = "state"
	FieldFunction       = "function"
	FieldSubfunction    = "subfunction"
	FieldProgram        = "program"
	FieldAction         = "action"
	FieldLocality       = "locality"
	FieldMunicipality   = "municipality"
	FieldCommittedValue = "committed_value"
	FieldSettledValue   = "settled_value"
	FieldPaidValue      = "paid_value"
)

// aliases maps normalized header spellings, as they appear across portal
// file generations, onto canonical field names. Keys are the output of
// normalizeHeader.
var aliases = map[string]string{
	"autor":                   FieldAuthor,
	"nome_do_autor":           FieldAuthor,
	"nome_do_autor_da_emenda": FieldAuthor,
	"autor_da_emenda":         FieldAuthor,

	"tipo_de_autor": FieldAuthorType,
	"tipo_autor":    FieldAuthorType,

	"ano":           FieldYear,
	"ano_da_emenda": FieldYear,
	"ano_emenda":    FieldYear,

	"numero_da_emenda": FieldNumber,
	"numero_emenda":    FieldNumber,
	"numero":           FieldNumber,

	"codigo_da_emenda": FieldCode,
	"codigo_emenda":    FieldCode,

	"tipo_de_emenda": FieldKind,
	"tipo_emenda":    FieldKind,
	"modalidade":     FieldKind,

	"uf_do_autor": FieldState,
	"uf_autor":    FieldState,
	"uf":          FieldState,

	"funcao":    FieldFunction,
	"subfuncao": FieldSubfunction,
	"programa":  FieldProgram,
	"acao":      FieldAction,

	"localidade":          FieldLocality,
	"localidade_do_gasto": FieldLocality,
	"municipio":           FieldMunicipality,
	"nome_municipio":      FieldMunicipality,

	"valor_empenhado":  FieldCommittedValue,
	"empenhado":        FieldCommittedValue,
	"valor_liquidado":  FieldSettledValue,
	"liquidado":        FieldSettledValue,
	"valor_pago":       FieldPaidValue,
	"pago":             FieldPaidValue,
	"valor_pago_total": FieldPaidValue,
}

var nonWord = regexp.MustCompile(`[^a-z0-9_]+`)

// stripDiacritics removes combining marks so "Função" and "Funcao" fold
// to the same key.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if folded, _, err := transform.String(stripDiacritics, h); err == nil {
		h = folded
	}
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, " ", "_")
	h = nonWord.ReplaceAllString(h, "")
	h = strings.Trim(h, "_")
	return h
}

// CanonicalField maps a raw CSV header to its canonical field name, or to
// its normalized spelling when no alias is known.
func CanonicalField(header string) string {
	key := normalizeHeader(header)
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}
