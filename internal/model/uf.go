package model

import "strings"

var stateCodes = map[string]string{
	"ACRE":                "AC",
	"ALAGOAS":             "AL",
	"AMAPÁ":               "AP",
	"AMAZONAS":            "AM",
	"BAHIA":               "BA",
	"CEARÁ":               "CE",
	"DISTRITO FEDERAL":    "DF",
	"ESPÍRITO SANTO":      "ES",
	"GOIÁS":               "GO",
	"MARANHÃO":            "MA",
	"MATO GROSSO":         "MT",
	"MATO GROSSO DO SUL":  "MS",
	"MINAS GERAIS":        "MG",
	"PARÁ":                "PA",
	"PARAÍBA":             "PB",
	"PARANÁ":              "PR",
	"PERNAMBUCO":          "PE",
	"PIAUÍ":               "PI",
	"RIO DE JANEIRO":      "RJ",
	"RIO GRANDE DO NORTE": "RN",
	"RIO GRANDE DO SUL":   "RS",
	"RONDÔNIA":            "RO",
	"RORAIMA":             "RR",
	"SANTA CATARINA":      "SC",
	"SÃO PAULO":           "SP",
	"SERGIPE":             "SE",
	"TOCANTINS":           "TO",
}

// StateCode converts a full state name to its two-letter code. Inputs that
// already look like a code pass through uppercased; unknown names fall back
// to their first two letters.
func StateCode(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	if len(s) == 2 {
		return s
	}
	if code, ok := stateCodes[s]; ok {
		return code
	}
	if len(s) >= 2 {
		return s[:2]
	}
	return ""
}
