package model

import "strings"

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AmendmentKind is the short code for an amendment's authorship class.
type AmendmentKind string

const (
	KindIndividual AmendmentKind = "EMD"
	KindBloc       AmendmentKind = "EMB"
	KindCommittee  AmendmentKind = "EMC"
	KindRapporteur AmendmentKind = "EMR"
)

// KindFromLabel maps the free-text amendment type found in the bulk CSV
// to the short code. Unknown labels default to individual.
func KindFromLabel(label string) AmendmentKind {
	switch normalizeLabel(label) {
	case "EMENDA DE BANCADA":
		return KindBloc
	case "EMENDA DE COMISSAO", "EMENDA DE COMISSÃO":
		return KindCommittee
	case "EMENDA DE RELATOR":
		return KindRapporteur
	default:
		return KindIndividual
	}
}

// Amendment is a budget amendment attributed (when possible) to a
// legislator. LegislatorID is zero when the author could not be resolved.
type Amendment struct {
	ID             int64         `json:"id"`
	ExternalCode   string        `json:"external_code"` // amendment code from the source
	LegislatorID   int64         `json:"legislator_id,omitempty"`
	Kind           AmendmentKind `json:"kind"`
	Number         int           `json:"number"`
	Year           int           `json:"year"`
	AuthorName     string        `json:"author_name"`
	AuthorState    string        `json:"author_state,omitempty"`
	Function       string        `json:"function,omitempty"`
	Subfunction    string        `json:"subfunction,omitempty"`
	Program        string        `json:"program,omitempty"`
	Action         string        `json:"action,omitempty"`
	Locality       string        `json:"locality,omitempty"`
	Municipality   string        `json:"municipality,omitempty"`
	CommittedValue float64       `json:"committed_value"`
	SettledValue   float64       `json:"settled_value"`
	PaidValue      float64       `json:"paid_value"`
	ObjectURL      string        `json:"object_url,omitempty"`
}

// BestValue returns the largest of the three financial stages, the figure
// reported as the amendment's headline value.
func (a Amendment) BestValue() float64 {
	v := a.CommittedValue
	if a.SettledValue > v {
		v = a.SettledValue
	}
	if a.PaidValue > v {
		v = a.PaidValue
	}
	return v
}
