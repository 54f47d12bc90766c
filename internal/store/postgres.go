package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arhivare/fondio/internal/dedupe"
	"github.com/arhivare/fondio/internal/fond"
)

const fondColumns = `id, company_name, holder_name, address, email, phone, notes,
	source_url, active, owner_id, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS fonds (
	id                 UUID PRIMARY KEY,
	company_name       TEXT NOT NULL,
	normalized_company TEXT NOT NULL,
	holder_name        TEXT NOT NULL,
	normalized_holder  TEXT NOT NULL,
	address            TEXT,
	email              TEXT,
	phone              TEXT,
	notes              TEXT,
	source_url         TEXT,
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	owner_id           UUID,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_fonds_normalized_company ON fonds (normalized_company);
CREATE INDEX IF NOT EXISTS idx_fonds_owner ON fonds (owner_id);
`

// Postgres is the pgx-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects the store to a pool and ensures the schema.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Create(ctx context.Context, rec fond.ImportRecord, ownerID uuid.UUID) (*fond.Fond, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO fonds (id, company_name, normalized_company, holder_name, normalized_holder,
			address, email, phone, notes, source_url, active, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		id,
		rec.CompanyName,
		dedupe.NormalizeName(rec.CompanyName),
		rec.HolderName,
		dedupe.NormalizeName(rec.HolderName),
		toPgText(rec.Address),
		toPgText(rec.Email),
		toPgText(rec.Phone),
		toPgText(rec.Notes),
		toPgText(rec.SourceURL),
		rec.Active,
		ownerID,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert fond: %w", err)
	}

	f := recordToFond(rec)
	f.ID = id
	f.OwnerID = ownerID
	f.CreatedAt = now
	f.UpdatedAt = now
	return f, nil
}

func (p *Postgres) Update(ctx context.Context, id uuid.UUID, rec fond.ImportRecord) (*fond.Fond, error) {
	now := time.Now().UTC()

	tag, err := p.pool.Exec(ctx, `
		UPDATE fonds SET
			company_name = $2, normalized_company = $3,
			holder_name = $4, normalized_holder = $5,
			address = $6, email = $7, phone = $8, notes = $9, source_url = $10,
			active = $11, updated_at = $12
		WHERE id = $1`,
		id,
		rec.CompanyName,
		dedupe.NormalizeName(rec.CompanyName),
		rec.HolderName,
		dedupe.NormalizeName(rec.HolderName),
		toPgText(rec.Address),
		toPgText(rec.Email),
		toPgText(rec.Phone),
		toPgText(rec.Notes),
		toPgText(rec.SourceURL),
		rec.Active,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("update fond: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return p.Get(ctx, id)
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*fond.Fond, error) {
	row := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM fonds WHERE id = $1", fondColumns), id)
	f, err := scanFond(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fond: %w", err)
	}
	return f, nil
}

func (p *Postgres) List(ctx context.Context, filters ListFilters) ([]fond.Fond, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch filters.Status {
	case StatusActive:
		conds = append(conds, "active = TRUE")
	case StatusInactive:
		conds = append(conds, "active = FALSE")
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		ph := arg("%" + q + "%")
		conds = append(conds, fmt.Sprintf("(company_name ILIKE %s OR holder_name ILIKE %s)", ph, ph))
	}
	if filters.CreatedFrom != nil {
		conds = append(conds, "created_at >= "+arg(*filters.CreatedFrom))
	}
	if filters.CreatedTo != nil {
		conds = append(conds, "created_at <= "+arg(*filters.CreatedTo))
	}
	if filters.OwnerID != nil {
		conds = append(conds, "owner_id = "+arg(*filters.OwnerID))
	}

	query := fmt.Sprintf("SELECT %s FROM fonds", fondColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY company_name, created_at"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fonds: %w", err)
	}
	defer rows.Close()

	return collectFonds(rows)
}

func (p *Postgres) FindByNormalizedName(ctx context.Context, normalized string) ([]fond.Fond, error) {
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM fonds WHERE normalized_company = $1", fondColumns),
		normalized)
	if err != nil {
		return nil, fmt.Errorf("find by normalized name: %w", err)
	}
	defer rows.Close()

	return collectFonds(rows)
}

func (p *Postgres) NameIndex(ctx context.Context) ([]NameEntry, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, normalized_company, normalized_holder FROM fonds")
	if err != nil {
		return nil, fmt.Errorf("load name index: %w", err)
	}
	defer rows.Close()

	var entries []NameEntry
	for rows.Next() {
		var e NameEntry
		if err := rows.Scan(&e.ID, &e.NormalizedCompany, &e.NormalizedHolder); err != nil {
			return nil, fmt.Errorf("scan name index: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fonds").Scan(&n); err != nil {
		return 0, fmt.Errorf("count fonds: %w", err)
	}
	return n, nil
}

func collectFonds(rows pgx.Rows) ([]fond.Fond, error) {
	var out []fond.Fond
	for rows.Next() {
		f, err := scanFond(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fond: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFond(row pgx.Row) (*fond.Fond, error) {
	var (
		f                                    fond.Fond
		address, email, phone, notes, srcURL pgtype.Text
	)
	err := row.Scan(
		&f.ID, &f.CompanyName, &f.HolderName,
		&address, &email, &phone, &notes, &srcURL,
		&f.Active, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Address = fromPgText(address)
	f.Email = fromPgText(email)
	f.Phone = fromPgText(phone)
	f.Notes = fromPgText(notes)
	f.SourceURL = fromPgText(srcURL)
	return &f, nil
}

func recordToFond(rec fond.ImportRecord) *fond.Fond {
	return &fond.Fond{
		CompanyName: rec.CompanyName,
		HolderName:  rec.HolderName,
		Address:     rec.Address,
		Email:       rec.Email,
		Phone:       rec.Phone,
		Notes:       rec.Notes,
		SourceURL:   rec.SourceURL,
		Active:      rec.Active,
	}
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
