package model

import "time"

// Legislator is a member of the lower house, the anchor entity that
// amendment and expenditure records are attributed to.
type Legislator struct {
	ID         int64      `json:"id"`
	ExternalID int64      `json:"external_id"` // Dados Abertos numeric id
	Name       string     `json:"name"`
	CivilName  string     `json:"civil_name,omitempty"`
	Party      string     `json:"party,omitempty"`
	State      string     `json:"state,omitempty"` // two-letter UF code
	Email      string     `json:"email,omitempty"`
	InOffice   bool       `json:"in_office"`
	PhotoURL   string     `json:"photo_url,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Expenditure is one CEAP reimbursement line for a legislator.
type Expenditure struct {
	ID             int64   `json:"id"`
	LegislatorID   int64   `json:"legislator_id"`
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	DocumentNumber string  `json:"document_number"`
	DocumentDate   string  `json:"document_date,omitempty"`
	Category       string  `json:"category,omitempty"`
	SupplierName   string  `json:"supplier_name,omitempty"`
	SupplierTaxID  string  `json:"supplier_tax_id,omitempty"`
	GrossValue     float64 `json:"gross_value"`
	NetValue       float64 `json:"net_value"`
	DocumentURL    string  `json:"document_url,omitempty"`
}
