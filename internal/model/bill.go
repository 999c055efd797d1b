package model

import "time"

// Bill is a legislative proposal (proposição).
type Bill struct {
	ID           int64      `json:"id"`
	ExternalID   int64      `json:"external_id"` // Dados Abertos numeric id
	Type         string     `json:"type"`        // PL, PEC, PLP, ...
	Number       int        `json:"number"`
	Year         int        `json:"year"`
	Summary      string     `json:"summary,omitempty"` // ementa
	LegislatorID int64      `json:"legislator_id,omitempty"`
	AuthorName   string     `json:"author_name,omitempty"`
	PresentedAt  *time.Time `json:"presented_at,omitempty"`
	StatusText   string     `json:"status_text,omitempty"`
	FullTextURL  string     `json:"full_text_url,omitempty"`
	AISummary    string     `json:"ai_summary,omitempty"`
}

// Vote is one roll-call vote event (votação).
type Vote struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"` // e.g. "2390874-43"
	BillID      int64      `json:"bill_id,omitempty"`
	Description string     `json:"description,omitempty"`
	Organ       string     `json:"organ,omitempty"`
	VotedAt     *time.Time `json:"voted_at,omitempty"`
	Approved    bool       `json:"approved"`
	YesCount    int        `json:"yes_count"`
	NoCount     int        `json:"no_count"`
}

// BallotChoice is a single legislator's recorded position on a vote.
type BallotChoice struct {
	VoteExternalID string `json:"vote_external_id"`
	LegislatorID   int64  `json:"legislator_id"`
	Choice         string `json:"choice"` // Sim, Não, Abstenção, Obstrução
}
