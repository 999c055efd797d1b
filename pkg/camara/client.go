// Package camara is a client for the lower house's open data API. It
// exposes the handful of endpoints the collection pipeline consumes and
// maps their payloads onto pipeline models.
package camara

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
)

// Config configures the open data API client.
type Config struct {
	BaseURL    string `mapstructure:"base_url"`
	ArchiveURL string `mapstructure:"archive_url"`
	// ItemsPerPage is the page size requested from listings. Zero means
	// the API maximum of 100.
	ItemsPerPage int `mapstructure:"items_per_page"`
}

// Client wraps the shared fetcher with endpoint knowledge.
type Client struct {
	fetcher fetcher.Fetcher
	cfg     Config
}

func New(f fetcher.Fetcher, cfg Config) *Client {
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = 100
	}
	return &Client{fetcher: f, cfg: cfg}
}

// PageOptions bounds a paginated listing.
type PageOptions struct {
	MaxPages int
	MaxItems int
}

// ListLegislators returns current members. The listing payload carries
// party and state; civil name and office status require the detail
// endpoint.
func (c *Client) ListLegislators(ctx context.Context, opts PageOptions) ([]model.Legislator, error) {
	items, err := c.fetcher.Paginate(ctx, c.cfg.BaseURL+"/deputados", fetcher.PaginateOptions{
		Params:       map[string]string{"ordem": "ASC", "ordenarPor": "nome"},
		ItemsPerPage: c.cfg.ItemsPerPage,
		MaxPages:     opts.MaxPages,
		MaxItems:     opts.MaxItems,
	})
	if err != nil {
		return nil, eris.Wrap(err, "camara: list legislators")
	}

	out := make([]model.Legislator, 0, len(items))
	for _, item := range items {
		out = append(out, model.Legislator{
			ExternalID: getInt64(item, "id"),
			Name:       getString(item, "nome"),
			Party:      getString(item, "siglaPartido"),
			State:      getString(item, "siglaUf"),
			Email:      getString(item, "email"),
			PhotoURL:   getString(item, "urlFoto"),
			InOffice:   true,
		})
	}
	return out, nil
}

// legislatorDetail is the relevant slice of the detail payload.
type legislatorDetail struct {
	Dados struct {
		ID           int64  `json:"id"`
		NomeCivil    string `json:"nomeCivil"`
		UltimoStatus struct {
			Nome              string `json:"nome"`
			SiglaPartido      string `json:"siglaPartido"`
			SiglaUf           string `json:"siglaUf"`
			Situacao          string `json:"situacao"`
			URLFoto           string `json:"urlFoto"`
			Email             string `json:"email"`
			CondicaoEleitoral string `json:"condicaoEleitoral"`
		} `json:"ultimoStatus"`
	} `json:"dados"`
}

// GetLegislator fetches one member's detail record.
func (c *Client) GetLegislator(ctx context.Context, externalID int64) (*model.Legislator, error) {
	var detail legislatorDetail
	url := fmt.Sprintf("%s/deputados/%d", c.cfg.BaseURL, externalID)
	if err := c.fetcher.FetchJSON(ctx, url, fetcher.FetchOptions{UseCache: true}, &detail); err != nil {
		return nil, eris.Wrapf(err, "camara: get legislator %d", externalID)
	}

	d := detail.Dados
	return &model.Legislator{
		ExternalID: d.ID,
		Name:       d.UltimoStatus.Nome,
		CivilName:  d.NomeCivil,
		Party:      d.UltimoStatus.SiglaPartido,
		State:      d.UltimoStatus.SiglaUf,
		Email:      d.UltimoStatus.Email,
		PhotoURL:   d.UltimoStatus.URLFoto,
		InOffice:   d.UltimoStatus.Situacao == "Exercício",
	}, nil
}

// ListExpenses returns one member's reimbursement lines for a year,
// optionally narrowed to specific months.
func (c *Client) ListExpenses(ctx context.Context, legislatorExternalID int64, year int, months []int, opts PageOptions) ([]model.Expenditure, error) {
	params := map[string]string{"ano": strconv.Itoa(year)}
	if len(months) == 1 {
		params["mes"] = strconv.Itoa(months[0])
	}

	url := fmt.Sprintf("%s/deputados/%d/despesas", c.cfg.BaseURL, legislatorExternalID)
	items, err := c.fetcher.Paginate(ctx, url, fetcher.PaginateOptions{
		Params:       params,
		ItemsPerPage: c.cfg.ItemsPerPage,
		MaxPages:     opts.MaxPages,
		MaxItems:     opts.MaxItems,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "camara: list expenses for %d", legislatorExternalID)
	}

	wanted := make(map[int]bool, len(months))
	for _, m := range months {
		wanted[m] = true
	}

	out := make([]model.Expenditure, 0, len(items))
	for _, item := range items {
		month := int(getInt64(item, "mes"))
		if len(wanted) > 0 && !wanted[month] {
			continue
		}
		out = append(out, model.Expenditure{
			Year:           int(getInt64(item, "ano")),
			Month:          month,
			DocumentNumber: getString(item, "numDocumento"),
			DocumentDate:   getString(item, "dataDocumento"),
			Category:       getString(item, "tipoDespesa"),
			SupplierName:   getString(item, "nomeFornecedor"),
			SupplierTaxID:  getString(item, "cnpjCpfFornecedor"),
			GrossValue:     getFloat(item, "valorDocumento"),
			NetValue:       getFloat(item, "valorLiquido"),
			DocumentURL:    getString(item, "urlDocumento"),
		})
	}
	return out, nil
}

// ListBills returns proposals of one type for a year.
func (c *Client) ListBills(ctx context.Context, billType string, year int, opts PageOptions) ([]model.Bill, error) {
	items, err := c.fetcher.Paginate(ctx, c.cfg.BaseURL+"/proposicoes", fetcher.PaginateOptions{
		Params: map[string]string{
			"siglaTipo": billType,
			"ano":       strconv.Itoa(year),
			"ordem":     "ASC",
		},
		ItemsPerPage: c.cfg.ItemsPerPage,
		MaxPages:     opts.MaxPages,
		MaxItems:     opts.MaxItems,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "camara: list bills %s/%d", billType, year)
	}

	out := make([]model.Bill, 0, len(items))
	for _, item := range items {
		out = append(out, model.Bill{
			ExternalID: getInt64(item, "id"),
			Type:       getString(item, "siglaTipo"),
			Number:     int(getInt64(item, "numero")),
			Year:       int(getInt64(item, "ano")),
			Summary:    getString(item, "ementa"),
		})
	}
	return out, nil
}

// Author is one entry of a bill's authorship list.
type Author struct {
	Name string
	// Kind distinguishes members from committees and other organs.
	Kind string
	// ExternalID is the member id when the author is a member, zero
	// otherwise.
	ExternalID int64
}

type billAuthors struct {
	Dados []struct {
		URI        string `json:"uri"`
		Nome       string `json:"nome"`
		Tipo       string `json:"tipo"`
		CodTipo    int    `json:"codTipo"`
		Ordem      int    `json:"ordemAssinatura"`
		Proponente int    `json:"proponente"`
	} `json:"dados"`
}

// GetBillAuthors lists a bill's authors in signature order.
func (c *Client) GetBillAuthors(ctx context.Context, billExternalID int64) ([]Author, error) {
	var payload billAuthors
	url := fmt.Sprintf("%s/proposicoes/%d/autores", c.cfg.BaseURL, billExternalID)
	if err := c.fetcher.FetchJSON(ctx, url, fetcher.FetchOptions{UseCache: true}, &payload); err != nil {
		return nil, eris.Wrapf(err, "camara: bill authors %d", billExternalID)
	}

	out := make([]Author, 0, len(payload.Dados))
	for _, a := range payload.Dados {
		out = append(out, Author{
			Name:       a.Nome,
			Kind:       a.Tipo,
			ExternalID: memberIDFromURI(a.URI),
		})
	}
	return out, nil
}

// ListVotes returns roll-call votes in a date range (inclusive, ISO
// dates).
func (c *Client) ListVotes(ctx context.Context, dateStart, dateEnd string, opts PageOptions) ([]model.Vote, error) {
	items, err := c.fetcher.Paginate(ctx, c.cfg.BaseURL+"/votacoes", fetcher.PaginateOptions{
		Params: map[string]string{
			"dataInicio": dateStart,
			"dataFim":    dateEnd,
			"ordem":      "ASC",
		},
		ItemsPerPage: c.cfg.ItemsPerPage,
		MaxPages:     opts.MaxPages,
		MaxItems:     opts.MaxItems,
	})
	if err != nil {
		return nil, eris.Wrap(err, "camara: list votes")
	}

	out := make([]model.Vote, 0, len(items))
	for _, item := range items {
		vote := model.Vote{
			ExternalID:  getString(item, "id"),
			Description: getString(item, "descricao"),
			Organ:       getString(item, "siglaOrgao"),
			Approved:    getInt64(item, "aprovacao") == 1,
		}
		if ts := getString(item, "dataHoraRegistro"); ts != "" {
			if t, err := time.Parse("2006-01-02T15:04:05", ts); err == nil {
				vote.VotedAt = &t
			}
		}
		out = append(out, vote)
	}
	return out, nil
}

type voteBallots struct {
	Dados []struct {
		TipoVoto string `json:"tipoVoto"`
		Deputado struct {
			ID   int64  `json:"id"`
			Nome string `json:"nome"`
		} `json:"deputado_"`
	} `json:"dados"`
}

// GetVoteBallots returns the individual positions recorded for one vote.
func (c *Client) GetVoteBallots(ctx context.Context, voteExternalID string) ([]model.BallotChoice, error) {
	var payload voteBallots
	url := fmt.Sprintf("%s/votacoes/%s/votos", c.cfg.BaseURL, voteExternalID)
	if err := c.fetcher.FetchJSON(ctx, url, fetcher.FetchOptions{UseCache: true}, &payload); err != nil {
		return nil, eris.Wrapf(err, "camara: vote ballots %s", voteExternalID)
	}

	out := make([]model.BallotChoice, 0, len(payload.Dados))
	for _, b := range payload.Dados {
		out = append(out, model.BallotChoice{
			VoteExternalID: voteExternalID,
			LegislatorID:   b.Deputado.ID,
			Choice:         b.TipoVoto,
		})
	}
	return out, nil
}

// BillsDumpURL is the yearly full-dump JSON file for proposals.
func (c *Client) BillsDumpURL(year int) string {
	return fmt.Sprintf("%s/proposicoes/json/proposicoes-%d.json", c.cfg.ArchiveURL, year)
}

// VotesDumpURL is the yearly full-dump JSON file for roll-call votes.
func (c *Client) VotesDumpURL(year int) string {
	return fmt.Sprintf("%s/votacoes/json/votacoes-%d.json", c.cfg.ArchiveURL, year)
}
