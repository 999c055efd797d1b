package source

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/dedup"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/objstore"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/tabular"
)

// AmendmentsBulk collects budget amendments from the transparency
// portal's yearly ZIP, the richest and cheapest path.
type AmendmentsBulk struct {
	deps Deps
}

func NewAmendmentsBulk(deps Deps) *AmendmentsBulk {
	return &AmendmentsBulk{deps: deps}
}

func (s *AmendmentsBulk) Name() string { return "transparencia-bulk" }

func (s *AmendmentsBulk) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetAmendments))
	year := s.deps.Cfg.Collect.Year

	csvData, err := s.deps.Transparencia.DownloadAmendmentsCSV(ctx, year, s.deps.Cfg.Collect.TempDir)
	if err != nil {
		return err
	}
	s.archiveRaw(ctx, year, csvData, log)

	table, err := tabular.ParseYearFiltered(csvData, year)
	if err != nil {
		return err
	}
	result.AddFound(len(table.Rows))
	log.Info("bulk rows parsed", zap.Int("rows", len(table.Rows)), zap.Bool("year_filtered", !table.Unfiltered))

	matcher, _, err := loadMatcher(ctx, s.deps.Store, s.deps.Cfg.Resolve)
	if err != nil {
		return err
	}

	seen := dedup.NewSeen()
	var batch []model.Amendment
	var matched int
	for _, row := range table.Rows {
		a := amendmentFromRow(row, year)
		if a.ExternalCode == "" {
			result.RecordError()
			continue
		}
		if seen.Check(dedup.AmendmentKey(&a)) {
			result.RecordSkipped()
			continue
		}

		if m, ok := matcher.Resolve(a.AuthorName); ok {
			a.LegislatorID = m.EntityID
			matched++
		}
		batch = append(batch, a)
	}

	saved, err := s.deps.Store.BulkInsertAmendments(ctx, batch)
	if err != nil {
		return err
	}

	for i := range batch {
		if int64(i) < saved {
			// Counter attribution: value totals come from the saved
			// prefix; precise per-row insert status is not reported by
			// the bulk path.
			result.RecordSaved(batch[i].LegislatorID != 0, batch[i].BestValue())
		} else {
			result.RecordSkipped()
		}
	}

	log.Info("amendments collected",
		zap.Int("parsed", len(batch)),
		zap.Int64("saved", saved),
		zap.Int("with_author_match", matched),
	)
	return nil
}

// archiveRaw writes the raw bulk file through to object storage for
// reprocessing without re-downloading.
func (s *AmendmentsBulk) archiveRaw(ctx context.Context, year int, data []byte, log *zap.Logger) {
	if s.deps.Objects == nil || !s.deps.Cfg.Collect.UploadObjects {
		return
	}
	path := objstore.BlobPath(string(model.TypeAmendment), year, "bulk", fmt.Sprintf("emendas-%d.csv", year))
	url, err := s.deps.Objects.Put(ctx, path, data, "text/csv", true)
	if err != nil {
		log.Warn("raw archive upload failed", zap.Error(err))
		return
	}
	log.Debug("raw bulk file archived", zap.String("url", url))
}

// amendmentFromRow maps one canonicalized CSV row.
func amendmentFromRow(row tabular.Row, defaultYear int) model.Amendment {
	year := defaultYear
	if y, err := strconv.Atoi(row[tabular.FieldYear]); err == nil && y > 0 {
		year = y
	}
	number, _ := strconv.Atoi(row[tabular.FieldNumber])

	return model.Amendment{
		ExternalCode:   row[tabular.FieldCode],
		Kind:           model.KindFromLabel(row[tabular.FieldKind]),
		Number:         number,
		Year:           year,
		AuthorName:     row[tabular.FieldAuthor],
		AuthorState:    model.StateCode(row[tabular.FieldState]),
		Function:       row[tabular.FieldFunction],
		Subfunction:    row[tabular.FieldSubfunction],
		Program:        row[tabular.FieldProgram],
		Action:         row[tabular.FieldAction],
		Locality:       row[tabular.FieldLocality],
		Municipality:   row[tabular.FieldMunicipality],
		CommittedValue: tabular.ParseMoney(row[tabular.FieldCommittedValue]),
		SettledValue:   tabular.ParseMoney(row[tabular.FieldSettledValue]),
		PaidValue:      tabular.ParseMoney(row[tabular.FieldPaidValue]),
	}
}

// AmendmentsAPI is the fallback path through the transparency portal's
// REST API. Slower and keyed, but available when the bulk host is not.
type AmendmentsAPI struct {
	deps Deps
}

func NewAmendmentsAPI(deps Deps) *AmendmentsAPI {
	return &AmendmentsAPI{deps: deps}
}

func (s *AmendmentsAPI) Name() string { return "transparencia-api" }

func (s *AmendmentsAPI) Collect(ctx context.Context, result *model.CollectionResult) error {
	log := zap.L().With(zap.String("source", s.Name()), zap.String("target", TargetAmendments))
	cfg := s.deps.Cfg.Collect

	items, err := s.deps.Transparencia.ListAmendments(ctx, cfg.Year, fetcher.PaginateOptions{
		ItemsPerPage: 100,
		MaxPages:     cfg.MaxPages,
		MaxItems:     cfg.MaxItems,
	})
	if err != nil {
		return err
	}
	result.AddFound(len(items))

	matcher, _, err := loadMatcher(ctx, s.deps.Store, s.deps.Cfg.Resolve)
	if err != nil {
		return err
	}

	seen := dedup.NewSeen()
	for _, item := range items {
		a := amendmentFromAPI(item, cfg.Year)
		if a.ExternalCode == "" {
			result.RecordError()
			continue
		}
		if seen.Check(dedup.AmendmentKey(&a)) {
			result.RecordSkipped()
			continue
		}

		matched := false
		if m, ok := matcher.Resolve(a.AuthorName); ok {
			a.LegislatorID = m.EntityID
			matched = true
		}

		inserted, err := s.deps.Store.InsertAmendment(ctx, &a)
		if err != nil {
			return err
		}
		if !inserted {
			result.RecordSkipped()
			continue
		}
		result.RecordSaved(matched, a.BestValue())
	}

	log.Info("amendments collected via api", zap.Int("found", len(items)))
	return nil
}

// amendmentFromAPI maps the REST payload's field names, which differ from
// the bulk CSV's.
func amendmentFromAPI(item map[string]any, defaultYear int) model.Amendment {
	str := func(key string) string {
		if v, ok := item[key].(string); ok {
			return v
		}
		return ""
	}
	year := defaultYear
	if y, err := strconv.Atoi(str("ano")); err == nil && y > 0 {
		year = y
	}
	number, _ := strconv.Atoi(str("numeroEmenda"))

	name := str("nomeAutor")
	if name == "" {
		name = str("autor")
	}

	return model.Amendment{
		ExternalCode:   str("codigoEmenda"),
		Kind:           model.KindFromLabel(str("tipoEmenda")),
		Number:         number,
		Year:           year,
		AuthorName:     name,
		AuthorState:    model.StateCode(str("localidadeDoGasto")),
		Function:       str("funcao"),
		Subfunction:    str("subfuncao"),
		Locality:       str("localidadeDoGasto"),
		CommittedValue: tabular.ParseMoney(str("valorEmpenhado")),
		SettledValue:   tabular.ParseMoney(str("valorLiquidado")),
		PaidValue:      tabular.ParseMoney(str("valorPago")),
	}
}
