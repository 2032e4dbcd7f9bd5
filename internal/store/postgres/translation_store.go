package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/predik/predik/internal/domain"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TranslationStore implements domain.TranslationStore using the
// market_translations table. The UNIQUE constraint on market_slug is the only
// concurrency control; Insert never updates an existing row.
type TranslationStore struct {
	db querier
}

// NewTranslationStore creates a TranslationStore backed by the given pool or
// transaction.
func NewTranslationStore(db querier) *TranslationStore {
	return &TranslationStore{db: db}
}

const translationCols = `market_id, market_slug, title_en, title_es,
	description_en, description_es, created_at`

func scanTranslation(row pgx.Row) (domain.MarketTranslation, error) {
	var t domain.MarketTranslation
	err := row.Scan(
		&t.MarketID, &t.MarketSlug,
		&t.TitleSource, &t.TitleTarget,
		&t.DescriptionSource, &t.DescriptionTarget,
		&t.CreatedAt,
	)
	return t, err
}

// GetBySlug returns the translation row for slug, or domain.ErrNotFound.
func (s *TranslationStore) GetBySlug(ctx context.Context, slug string) (domain.MarketTranslation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+translationCols+` FROM market_translations WHERE market_slug = $1`, slug)
	t, err := scanTranslation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketTranslation{}, domain.ErrNotFound
		}
		return domain.MarketTranslation{}, fmt.Errorf("postgres: get translation %s: %w", slug, err)
	}
	return t, nil
}

// ListByMarketIDs returns every stored translation whose market_id is in ids,
// in a single round-trip.
func (s *TranslationStore) ListByMarketIDs(ctx context.Context, ids []int64) ([]domain.MarketTranslation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+translationCols+` FROM market_translations WHERE market_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: list translations: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketTranslation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan translation: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list translations rows: %w", err)
	}
	return out, nil
}

// Insert stores a new translation row. A concurrent insert for the same slug
// surfaces as an error wrapping domain.ErrAlreadyExists.
func (s *TranslationStore) Insert(ctx context.Context, t domain.MarketTranslation) error {
	const query = `
		INSERT INTO market_translations (
			market_id, market_slug, title_en, title_es, description_en, description_es
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		t.MarketID, t.MarketSlug,
		t.TitleSource, t.TitleTarget,
		t.DescriptionSource, t.DescriptionTarget,
	)
	if err != nil {
		return mapInsertError(t.MarketSlug, err)
	}
	return nil
}

// mapInsertError classifies an insert failure by its SQLSTATE.
func mapInsertError(slug string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("postgres: insert translation %s: %w (%s)", slug, domain.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("postgres: insert translation %s: %w", slug, err)
}

// Compile-time interface check.
var _ domain.TranslationStore = (*TranslationStore)(nil)
