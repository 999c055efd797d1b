package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/db"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems needing
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS legislators (
	id          BIGSERIAL PRIMARY KEY,
	external_id BIGINT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	civil_name  TEXT,
	party       TEXT,
	state       TEXT,
	email       TEXT,
	in_office   BOOLEAN NOT NULL DEFAULT true,
	photo_url   TEXT,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS expenditures (
	id              BIGSERIAL PRIMARY KEY,
	legislator_id   BIGINT NOT NULL REFERENCES legislators(id),
	year            INTEGER NOT NULL,
	month           INTEGER NOT NULL,
	document_number TEXT NOT NULL DEFAULT '',
	document_date   TEXT,
	category        TEXT,
	supplier_name   TEXT,
	supplier_tax_id TEXT,
	gross_value     NUMERIC(14,2) NOT NULL DEFAULT 0,
	net_value       NUMERIC(14,2) NOT NULL DEFAULT 0,
	document_url    TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (legislator_id, year, month, document_number, net_value)
);

CREATE TABLE IF NOT EXISTS amendments (
	id              BIGSERIAL PRIMARY KEY,
	external_code   TEXT NOT NULL UNIQUE,
	legislator_id   BIGINT REFERENCES legislators(id),
	kind            TEXT NOT NULL,
	number          INTEGER,
	year            INTEGER NOT NULL,
	author_name     TEXT NOT NULL,
	author_state    TEXT,
	function        TEXT,
	subfunction     TEXT,
	program         TEXT,
	action          TEXT,
	locality        TEXT,
	municipality    TEXT,
	committed_value NUMERIC(16,2) NOT NULL DEFAULT 0,
	settled_value   NUMERIC(16,2) NOT NULL DEFAULT 0,
	paid_value      NUMERIC(16,2) NOT NULL DEFAULT 0,
	object_url      TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bills (
	id            BIGSERIAL PRIMARY KEY,
	external_id   BIGINT NOT NULL UNIQUE,
	type          TEXT NOT NULL,
	number        INTEGER NOT NULL,
	year          INTEGER NOT NULL,
	summary       TEXT,
	legislator_id BIGINT REFERENCES legislators(id),
	author_name   TEXT,
	presented_at  TIMESTAMPTZ,
	status_text   TEXT,
	full_text_url TEXT,
	ai_summary    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS votes (
	id          BIGSERIAL PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	bill_id     BIGINT REFERENCES bills(id),
	description TEXT,
	organ       TEXT,
	voted_at    TIMESTAMPTZ,
	approved    BOOLEAN NOT NULL DEFAULT false,
	yes_count   INTEGER NOT NULL DEFAULT 0,
	no_count    INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ballots (
	vote_external_id TEXT NOT NULL,
	legislator_id    BIGINT NOT NULL,
	choice           TEXT NOT NULL,
	PRIMARY KEY (vote_external_id, legislator_id)
);

CREATE TABLE IF NOT EXISTS collection_log (
	id           BIGSERIAL PRIMARY KEY,
	target       TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	found        BIGINT NOT NULL DEFAULT 0,
	saved        BIGINT NOT NULL DEFAULT 0,
	skipped      BIGINT NOT NULL DEFAULT 0,
	errors       BIGINT NOT NULL DEFAULT 0,
	total_value  NUMERIC(18,2) NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_expenditures_legislator ON expenditures(legislator_id, year, month);
CREATE INDEX IF NOT EXISTS idx_amendments_legislator ON amendments(legislator_id);
CREATE INDEX IF NOT EXISTS idx_amendments_year ON amendments(year);
CREATE INDEX IF NOT EXISTS idx_bills_type_year ON bills(type, year);
CREATE INDEX IF NOT EXISTS idx_collection_log_target ON collection_log(target, started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLegislator(ctx context.Context, l *model.Legislator) (int64, bool, error) {
	var id int64
	var created bool
	// xmax = 0 only holds for rows created by this statement, which is
	// how the upsert distinguishes inserts from conflict-path updates.
	err := s.pool.QueryRow(ctx,
		`INSERT INTO legislators (external_id, name, civil_name, party, state, email, in_office, photo_url, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		 ON CONFLICT (external_id) DO UPDATE SET
		   name = EXCLUDED.name, civil_name = EXCLUDED.civil_name, party = EXCLUDED.party,
		   state = EXCLUDED.state, email = EXCLUDED.email, in_office = EXCLUDED.in_office,
		   photo_url = EXCLUDED.photo_url, updated_at = now()
		 RETURNING id, (xmax = 0)`,
		l.ExternalID, l.Name, l.CivilName, l.Party, l.State, l.Email, l.InOffice, l.PhotoURL,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, eris.Wrapf(err, "postgres: upsert legislator %d", l.ExternalID)
	}
	return id, created, nil
}

func (s *PostgresStore) FindLegislatorByExternalID(ctx context.Context, externalID int64) (*model.Legislator, error) {
	var l model.Legislator
	err := s.pool.QueryRow(ctx,
		`SELECT id, external_id, name, civil_name, party, state, email, in_office, photo_url
		 FROM legislators WHERE external_id = $1`,
		externalID,
	).Scan(&l.ID, &l.ExternalID, &l.Name, &l.CivilName, &l.Party, &l.State, &l.Email, &l.InOffice, &l.PhotoURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find legislator %d", externalID)
	}
	return &l, nil
}

func (s *PostgresStore) ListLegislators(ctx context.Context) ([]model.Legislator, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, external_id, name, civil_name, party, state, in_office FROM legislators ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list legislators")
	}
	defer rows.Close()

	var out []model.Legislator
	for rows.Next() {
		var l model.Legislator
		if err := rows.Scan(&l.ID, &l.ExternalID, &l.Name, &l.CivilName, &l.Party, &l.State, &l.InOffice); err != nil {
			return nil, eris.Wrap(err, "postgres: scan legislator")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list legislators iterate")
}

func (s *PostgresStore) InsertExpenditure(ctx context.Context, e *model.Expenditure) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO expenditures
		 (legislator_id, year, month, document_number, document_date, category,
		  supplier_name, supplier_tax_id, gross_value, net_value, document_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (legislator_id, year, month, document_number, net_value) DO NOTHING`,
		e.LegislatorID, e.Year, e.Month, e.DocumentNumber, e.DocumentDate, e.Category,
		e.SupplierName, e.SupplierTaxID, e.GrossValue, e.NetValue, e.DocumentURL,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert expenditure")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertAmendment(ctx context.Context, a *model.Amendment) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO amendments
		 (external_code, legislator_id, kind, number, year, author_name, author_state,
		  function, subfunction, program, action, locality, municipality,
		  committed_value, settled_value, paid_value, object_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (external_code) DO NOTHING`,
		a.ExternalCode, nullableID(a.LegislatorID), string(a.Kind), a.Number, a.Year,
		a.AuthorName, a.AuthorState, a.Function, a.Subfunction, a.Program, a.Action,
		a.Locality, a.Municipality, a.CommittedValue, a.SettledValue, a.PaidValue, a.ObjectURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert amendment %s", a.ExternalCode)
	}
	return tag.RowsAffected() > 0, nil
}

var amendmentColumns = []string{
	"external_code", "legislator_id", "kind", "number", "year", "author_name",
	"author_state", "function", "subfunction", "program", "action", "locality",
	"municipality", "committed_value", "settled_value", "paid_value", "object_url",
}

// BulkInsertAmendments writes a batch in one round trip; the yearly bulk
// files run to hundreds of thousands of rows and per-row inserts do not
// keep up.
func (s *PostgresStore) BulkInsertAmendments(ctx context.Context, amendments []model.Amendment) (int64, error) {
	rows := make([][]any, 0, len(amendments))
	for _, a := range amendments {
		rows = append(rows, []any{
			a.ExternalCode, nullableID(a.LegislatorID), string(a.Kind), a.Number, a.Year,
			a.AuthorName, a.AuthorState, a.Function, a.Subfunction, a.Program, a.Action,
			a.Locality, a.Municipality, a.CommittedValue, a.SettledValue, a.PaidValue, a.ObjectURL,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "amendments",
		Columns:      amendmentColumns,
		ConflictKeys: []string{"external_code"},
		DoNothing:    true,
	}, rows)
}

func (s *PostgresStore) InsertBill(ctx context.Context, b *model.Bill) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO bills
		 (external_id, type, number, year, summary, legislator_id, author_name,
		  presented_at, status_text, full_text_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (external_id) DO NOTHING`,
		b.ExternalID, b.Type, b.Number, b.Year, b.Summary, nullableID(b.LegislatorID),
		b.AuthorName, b.PresentedAt, b.StatusText, b.FullTextURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert bill %d", b.ExternalID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertVote(ctx context.Context, v *model.Vote) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO votes
		 (external_id, bill_id, description, organ, voted_at, approved, yes_count, no_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (external_id) DO NOTHING`,
		v.ExternalID, nullableID(v.BillID), v.Description, v.Organ, v.VotedAt,
		v.Approved, v.YesCount, v.NoCount,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert vote %s", v.ExternalID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) InsertBallots(ctx context.Context, ballots []model.BallotChoice) (int64, error) {
	rows := make([][]any, 0, len(ballots))
	for _, b := range ballots {
		rows = append(rows, []any{b.VoteExternalID, b.LegislatorID, b.Choice})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "ballots",
		Columns:      []string{"vote_external_id", "legislator_id", "choice"},
		ConflictKeys: []string{"vote_external_id", "legislator_id"},
		DoNothing:    true,
	}, rows)
}

func (s *PostgresStore) ListBillsWithoutSummary(ctx context.Context, limit int) ([]model.Bill, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT external_id, type, number, year, summary, status_text
		 FROM bills
		 WHERE (ai_summary IS NULL OR ai_summary = '') AND summary IS NOT NULL AND summary <> ''
		 ORDER BY year DESC, external_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list bills without summary")
	}
	defer rows.Close()

	var out []model.Bill
	for rows.Next() {
		var b model.Bill
		if err := rows.Scan(&b.ExternalID, &b.Type, &b.Number, &b.Year, &b.Summary, &b.StatusText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bill")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list bills iterate")
}

func (s *PostgresStore) SetBillSummary(ctx context.Context, externalID int64, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bills SET ai_summary = $1 WHERE external_id = $2`,
		summary, externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set bill summary %d", externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("bill not found: %d", externalID)
	}
	return nil
}

func (s *PostgresStore) StartCollection(ctx context.Context, target string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO collection_log (target, status, started_at)
		 VALUES ($1, 'running', now()) RETURNING id`,
		target,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: start collection for %s", target)
	}
	return id, nil
}

func (s *PostgresStore) CompleteCollection(ctx context.Context, id int64, result *model.CollectionResult) error {
	snap := result.Snapshot()
	_, err := s.pool.Exec(ctx,
		`UPDATE collection_log
		 SET status = 'complete', completed_at = now(), source = $1,
		     found = $2, saved = $3, skipped = $4, errors = $5, total_value = $6
		 WHERE id = $7`,
		snap.Source, snap.Found, snap.Saved, snap.Skipped, snap.Errors, snap.TotalValue, id,
	)
	return eris.Wrapf(err, "postgres: complete collection %d", id)
}

func (s *PostgresStore) FailCollection(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE collection_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, id,
	)
	return eris.Wrapf(err, "postgres: fail collection %d", id)
}

func (s *PostgresStore) ListCollections(ctx context.Context, limit int) ([]CollectionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, target, source, status, started_at, completed_at,
		        found, saved, skipped, errors, total_value, error
		 FROM collection_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list collections")
	}
	defer rows.Close()

	var entries []CollectionEntry
	for rows.Next() {
		var e CollectionEntry
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Target, &e.Source, &e.Status, &e.StartedAt, &e.CompletedAt,
			&e.Found, &e.Saved, &e.Skipped, &e.Errors, &e.TotalValue, &errStr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan collection entry")
		}
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list collections iterate")
}

var countTables = []string{"legislators", "expenditures", "amendments", "bills", "votes", "ballots"}

func (s *PostgresStore) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(countTables))
	for _, table := range countTables {
		var n int64
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

// nullableID maps a zero entity reference to NULL so foreign keys hold.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
