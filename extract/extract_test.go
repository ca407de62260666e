package extract

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cinedex.dev/core/retry"
	"go.cinedex.dev/core/source"

	_ "github.com/mattn/go-sqlite3"
)

func TestAllWithNamedAndSliceParams(t *testing.T) {
	var x = newTestExtractor(t, 5)
	var ctx = context.Background()

	var rows, err = All[source.ChangedRow](ctx, x,
		`SELECT id, modified FROM genre WHERE modified > :dt ORDER BY modified`,
		Params{"dt": baseTime.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, genreID(3), rows[0].ID)
	assert.True(t, baseTime.Add(3*time.Hour).Equal(rows[0].Modified))
	assert.Equal(t, genreID(4), rows[1].ID)

	genres, err := All[source.GenreRecord](ctx, x,
		`SELECT id, name, description, created, modified FROM genre WHERE id IN (:ids) ORDER BY name`,
		Params{"ids": []string{genreID(2), genreID(3)}})
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "genre-2", genres[0].Name)
	assert.Nil(t, genres[0].Description)
	assert.Equal(t, "genre-3", genres[1].Name)
	require.NotNil(t, genres[1].Description)
	assert.Equal(t, "about 3", *genres[1].Description)

	// A filter matching nothing yields no rows.
	rows, err = All[source.ChangedRow](ctx, x,
		`SELECT id, modified FROM genre WHERE modified > :dt`, Params{"dt": baseTime.Add(time.Hour * 100)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBatchesOverOneCursor(t *testing.T) {
	var x = newTestExtractor(t, 7)

	var it = Batches[source.ChangedRow](context.Background(), x,
		`SELECT id, modified FROM genre WHERE modified > :dt ORDER BY modified`, Params{"dt": time.Time{}}, 3)
	defer it.Close()

	var sizes []int
	var ids []string
	for it.Next() {
		sizes = append(sizes, len(it.Batch()))
		for _, r := range it.Batch() {
			ids = append(ids, r.ID)
		}
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Len(t, ids, 7)
	assert.Equal(t, genreID(0), ids[0])
	assert.Equal(t, genreID(6), ids[6])

	assert.False(t, it.Next())
	assert.NoError(t, it.Close())
}

func TestBatchesExactMultiple(t *testing.T) {
	var x = newTestExtractor(t, 4)

	var count int
	var err = ForEachBatch[source.ChangedRow](context.Background(), x,
		`SELECT id, modified FROM genre WHERE modified > :dt`, Params{"dt": time.Time{}}, 2,
		func(attempt int, batch []source.ChangedRow) error {
			assert.Equal(t, 0, attempt)
			assert.Len(t, batch, 2)
			count++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInvalidRowFailsExtraction(t *testing.T) {
	var x = newTestExtractor(t, 3)
	x.db.MustExec(`INSERT INTO genre (id, name, created, modified) VALUES ('not-a-uuid', 'bad', ?, ?)`,
		baseTime, baseTime.Add(time.Hour*10))

	var _, err = All[source.GenreRecord](context.Background(), x,
		`SELECT id, name, description, created, modified FROM genre`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `gave up after 2 attempts`)
	assert.Contains(t, err.Error(), `validating row: invalid id "not-a-uuid"`)
}

func TestBatchesAreRedeliveredOnRetry(t *testing.T) {
	var x = newTestExtractor(t, 2)
	x.db.MustExec(`INSERT INTO genre (id, name, created, modified) VALUES ('not-a-uuid', 'bad', ?, ?)`,
		baseTime, baseTime.Add(time.Hour*10))

	var attempts []int
	var err = ForEachBatch[source.GenreRecord](context.Background(), x,
		`SELECT id, name, description, created, modified FROM genre ORDER BY modified`, nil, 1,
		func(attempt int, batch []source.GenreRecord) error {
			attempts = append(attempts, attempt)
			return nil
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `gave up after 2 attempts`)
	assert.Equal(t, []int{0, 0, 1, 1}, attempts)
}

func TestSyntaxErrorsAreNotRetried(t *testing.T) {
	assert.True(t, IsPermanent(&pq.Error{Code: "42601"}))
	assert.True(t, IsPermanent(errors.WithMessage(&pgconn.PgError{Code: "42P01"}, "executing query")))
	assert.False(t, IsPermanent(&pq.Error{Code: "08006"}))
	assert.False(t, IsPermanent(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsPermanent(errors.New("connection reset")))

	assert.True(t, retry.IsPermanent(classify(&pq.Error{Code: "42703"})))
	assert.Nil(t, classify(nil))
}

func TestCallbackErrorAbortsWithoutRetry(t *testing.T) {
	var x = newTestExtractor(t, 3)

	var calls int
	var err = ForEachBatch[source.ChangedRow](context.Background(), x,
		`SELECT id, modified FROM genre WHERE modified > :dt`, Params{"dt": time.Time{}}, 1,
		func(int, []source.ChangedRow) error {
			calls++
			return errors.New("index unavailable")
		})
	assert.EqualError(t, err, "extracting batches: index unavailable")
	assert.Equal(t, 1, calls)
}

func newTestExtractor(t *testing.T, genres int) *Extractor {
	var db, err = sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // Each connection of :memory: is a distinct database.
	t.Cleanup(func() { db.Close() })

	db.MustExec(`CREATE TABLE genre (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created TIMESTAMP NOT NULL,
		modified TIMESTAMP NOT NULL
	)`)
	for i := 0; i != genres; i++ {
		var desc interface{}
		if i%2 == 1 {
			desc = "about " + string(rune('0'+i))
		}
		db.MustExec(`INSERT INTO genre (id, name, description, created, modified) VALUES (?, ?, ?, ?, ?)`,
			genreID(i), "genre-"+string(rune('0'+i)), desc, baseTime, baseTime.Add(time.Duration(i)*time.Hour))
	}
	return New(db, retry.Policy{Initial: time.Microsecond, Factor: 1, Max: time.Microsecond, MaxAttempts: 2})
}

func genreID(i int) string {
	return "6f1d2a3c-0000-4000-8000-00000000000" + string(rune('0'+i))
}

var baseTime = time.Date(2021, 6, 16, 0, 0, 0, 0, time.UTC)
