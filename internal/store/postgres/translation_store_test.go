package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predik/predik/internal/domain"
)

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// stubRows serves translation rows in the column order of translationCols.
type stubRows struct {
	rows   []domain.MarketTranslation
	pos    int
	err    error
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, errors.New("not used") }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if len(dest) != 7 {
		return fmt.Errorf("scan: want 7 destinations, got %d", len(dest))
	}
	t := r.rows[r.pos-1]
	*dest[0].(*int64) = t.MarketID
	*dest[1].(*string) = t.MarketSlug
	*dest[2].(*string) = t.TitleSource
	*dest[3].(*string) = t.TitleTarget
	*dest[4].(*string) = t.DescriptionSource
	*dest[5].(*string) = t.DescriptionTarget
	*dest[6].(*time.Time) = t.CreatedAt
	return nil
}

// stubQuerier returns canned results for the single call each test makes.
type stubQuerier struct {
	rowErr   error
	execErr  error
	execSQL  string
	querySQL string
	queries  int
	rows     *stubRows
	args     []any
}

func (q *stubQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = sql
	q.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), q.execErr
}

func (q *stubQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries++
	q.querySQL = sql
	q.args = args
	if q.rows == nil {
		return nil, errors.New("no rows configured")
	}
	return q.rows, nil
}

func (q *stubQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.args = args
	return errRow{err: q.rowErr}
}

func TestGetBySlugMapsNoRowsToNotFound(t *testing.T) {
	store := NewTranslationStore(&stubQuerier{rowErr: pgx.ErrNoRows})

	_, err := store.GetBySlug(context.Background(), "will-boca-defeat-river")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetBySlugWrapsOtherErrors(t *testing.T) {
	boom := errors.New("conn reset")
	store := NewTranslationStore(&stubQuerier{rowErr: boom})

	_, err := store.GetBySlug(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertUniqueViolationIsAlreadyExists(t *testing.T) {
	q := &stubQuerier{execErr: &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "market_translations_market_slug_key",
	}}
	store := NewTranslationStore(q)

	err := store.Insert(context.Background(), domain.MarketTranslation{
		MarketID:    42,
		MarketSlug:  "will-boca-defeat-river",
		TitleSource: "Will Boca defeat River?",
		TitleTarget: "¿Vencerá Boca a River?",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, []any{int64(42), "will-boca-defeat-river", "Will Boca defeat River?", "¿Vencerá Boca a River?", "", ""}, q.args)
}

func TestInsertOtherPgErrorIsNotAlreadyExists(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23502"} // not_null_violation
	store := NewTranslationStore(&stubQuerier{execErr: pgErr})

	err := store.Insert(context.Background(), domain.MarketTranslation{MarketSlug: "a"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAlreadyExists)

	var got *pgconn.PgError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "23502", got.Code)
}

func TestListByMarketIDsEmptySkipsQuery(t *testing.T) {
	q := &stubQuerier{}
	store := NewTranslationStore(q)
	out, err := store.ListByMarketIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, q.queries)
}

func TestListByMarketIDsScansRows(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := []domain.MarketTranslation{
		{MarketID: 1, MarketSlug: "a", TitleSource: "Will A?", TitleTarget: "¿Ganará A?", CreatedAt: created},
		{MarketID: 7, MarketSlug: "b", TitleSource: "Will B?", TitleTarget: "¿Ganará B?",
			DescriptionSource: "Final.", DescriptionTarget: "Final.", CreatedAt: created},
	}
	rows := &stubRows{rows: want}
	q := &stubQuerier{rows: rows}
	store := NewTranslationStore(q)

	got, err := store.ListByMarketIDs(context.Background(), []int64{1, 7, 9})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, q.queries)
	assert.Contains(t, q.querySQL, "market_id = ANY($1)")
	assert.Equal(t, []any{[]int64{1, 7, 9}}, q.args)
	assert.True(t, rows.closed)
}

func TestListByMarketIDsRowsError(t *testing.T) {
	boom := errors.New("conn lost mid-stream")
	store := NewTranslationStore(&stubQuerier{rows: &stubRows{err: boom}})

	_, err := store.ListByMarketIDs(context.Background(), []int64{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/predik?sslmode=disable",
		DSN(ClientConfig{Host: "db", Database: "predik", User: "u", Password: "p"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_market_translations.sql", names[0])
}
