package fetcher

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

// PaginateOptions tunes a paginated pull.
type PaginateOptions struct {
	// Params are the base query parameters; the page cursor is added on top.
	Params map[string]string
	// ItemsPerPage sets the page size param. Default 100.
	ItemsPerPage int
	// MaxPages stops after this many pages when positive.
	MaxPages int
	// MaxItems stops once at least this many items accumulated, when positive.
	MaxItems int
	// Headers and APIKey pass through to each page fetch.
	Headers map[string]string
	APIKey  string
}

// apiEnvelope is the Dados Abertos response shape: a data array plus
// rel/href link pairs for page navigation.
type apiEnvelope struct {
	Dados []map[string]any `json:"dados"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

// Paginate walks endpoint page by page starting at page 1 and returns every
// item. It stops on an empty page, a missing next link, or the configured
// page/item ceilings, and never revisits a page. Page fetches bypass the
// cache. On an unrecoverable fetch error mid-run, the items accumulated so
// far are returned together with the error.
func (c *Client) Paginate(ctx context.Context, endpoint string, opt PaginateOptions) ([]map[string]any, error) {
	itemsPerPage := opt.ItemsPerPage
	if itemsPerPage <= 0 {
		itemsPerPage = 100
	}

	var all []map[string]any
	page := 1

	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		params := make(map[string]string, len(opt.Params)+2)
		for k, v := range opt.Params {
			params[k] = v
		}
		params["pagina"] = strconv.Itoa(page)
		if _, ok := params["itens"]; !ok {
			params["itens"] = strconv.Itoa(itemsPerPage)
		}

		data, err := c.Fetch(ctx, endpoint, FetchOptions{
			Params:  params,
			Headers: opt.Headers,
			APIKey:  opt.APIKey,
		})
		if err != nil {
			return all, eris.Wrapf(err, "fetcher: page %d of %s", page, endpoint)
		}

		var env apiEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return all, &resilience.MalformedDataError{
				Err: eris.Wrapf(err, "fetcher: decode page %d of %s", page, endpoint),
			}
		}

		if len(env.Dados) == 0 {
			break
		}
		all = append(all, env.Dados...)

		zap.L().Debug("fetched page",
			zap.String("endpoint", endpoint),
			zap.Int("page", page),
			zap.Int("items", len(env.Dados)),
			zap.Int("total", len(all)),
		)

		if opt.MaxPages > 0 && page >= opt.MaxPages {
			break
		}
		if opt.MaxItems > 0 && len(all) >= opt.MaxItems {
			all = all[:opt.MaxItems]
			break
		}

		hasNext := false
		for _, l := range env.Links {
			if l.Rel == "next" && l.Href != "" {
				hasNext = true
				break
			}
		}
		if !hasNext {
			break
		}
		page++
	}

	return all, nil
}
