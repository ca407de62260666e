// Package extract reads typed rows from the relational catalog.
//
// Queries use named parameters (eg, `:dt`), and a slice-valued parameter
// used as `IN (:ids)` expands to one placeholder per element. Scanned rows
// having a `Validate() error` method are validated, and a single invalid
// row fails the query. Every extraction is retried under the Extractor's
// policy, and a retry always re-executes its query from the start.
package extract

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.cinedex.dev/core/retry"
)

// DefaultBatchSize is the number of rows in each batch of Batches.
const DefaultBatchSize = 100

// Params are the named parameters of a query.
type Params map[string]interface{}

// Extractor runs queries against a database.
type Extractor struct {
	db     *sqlx.DB
	policy retry.Policy
}

// New returns an Extractor of |db| which retries under |policy|.
func New(db *sqlx.DB, policy retry.Policy) *Extractor {
	return &Extractor{db: db, policy: policy}
}

// All runs |query| and returns all of its rows.
func All[R any](ctx context.Context, x *Extractor, query string, params Params) ([]R, error) {
	var out []R
	var err = retry.Do(ctx, x.policy, "extracting rows", func(int) error {
		out = out[:0]

		var it = Batches[R](ctx, x, query, params, DefaultBatchSize)
		defer it.Close()

		for it.Next() {
			out = append(out, it.Batch()...)
		}
		return classify(it.Err())
	})
	return out, err
}

// ForEachBatch runs |query| and invokes |fn| with successive batches of at
// most |size| rows, and the zero-based attempt which read them. If reading
// fails part way through, the query is retried from the start and |fn| sees
// the batches of the new attempt: |fn| must tolerate re-delivery. An error
// returned by |fn| aborts without retry.
func ForEachBatch[R any](ctx context.Context, x *Extractor, query string, params Params, size int, fn func(attempt int, batch []R) error) error {
	return retry.Do(ctx, x.policy, "extracting batches", func(attempt int) error {
		var it = Batches[R](ctx, x, query, params, size)
		defer it.Close()

		for it.Next() {
			if err := fn(attempt, it.Batch()); err != nil {
				return retry.Permanent(err)
			}
		}
		return classify(it.Err())
	})
}

// Batches returns an Iterator over rows of |query| in batches of at most
// |size| rows. The query isn't executed until the first call to Next, and
// a single database cursor backs all batches. Batches doesn't retry.
func Batches[R any](ctx context.Context, x *Extractor, query string, params Params, size int) *Iterator[R] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Iterator[R]{ctx: ctx, x: x, query: query, params: params, size: size}
}

// Iterator is a lazy sequence of row batches.
//
//	var it = extract.Batches[source.GenreRecord](ctx, x, query, params, 100)
//	defer it.Close()
//
//	for it.Next() {
//		process(it.Batch())
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator[R any] struct {
	ctx    context.Context
	x      *Extractor
	query  string
	params Params
	size   int

	rows  *sqlx.Rows
	batch []R
	err   error
	done  bool
}

// Next reads the next batch, returning false when rows are exhausted or
// an error occurs.
func (it *Iterator[R]) Next() bool {
	if it.done {
		return false
	}
	if it.rows == nil {
		var query, args, err = it.x.bind(it.query, it.params)
		if err == nil {
			it.rows, err = it.x.db.QueryxContext(it.ctx, query, args...)
		}
		if err != nil {
			return it.fail(errors.WithMessage(err, "executing query"))
		}
	}

	it.batch = make([]R, 0, it.size)
	for len(it.batch) != it.size && it.rows.Next() {
		var r R
		if err := it.rows.StructScan(&r); err != nil {
			return it.fail(errors.WithMessage(err, "scanning row"))
		}
		if v, ok := any(&r).(validator); ok {
			if err := v.Validate(); err != nil {
				return it.fail(errors.WithMessage(err, "validating row"))
			}
		}
		it.batch = append(it.batch, r)
	}

	if len(it.batch) != it.size {
		if err := it.rows.Err(); err != nil {
			return it.fail(errors.WithMessage(err, "reading rows"))
		}
		_ = it.Close()
	}
	return len(it.batch) != 0
}

// Batch returns the batch read by the last call to Next.
func (it *Iterator[R]) Batch() []R { return it.batch }

// Err returns the error which stopped iteration, if any.
func (it *Iterator[R]) Err() error { return it.err }

// Close releases the Iterator's cursor. It's safe to call more than once.
func (it *Iterator[R]) Close() error {
	it.done = true
	if it.rows == nil {
		return nil
	}
	var err = it.rows.Close()
	it.rows = nil
	return err
}

func (it *Iterator[R]) fail(err error) bool {
	it.err, it.batch = err, nil
	_ = it.Close()
	return false
}

func (x *Extractor) bind(query string, params Params) (string, []interface{}, error) {
	var q, args, err = sqlx.Named(query, map[string]interface{}(params))
	if err != nil {
		return "", nil, errors.WithMessage(err, "binding named parameters")
	}
	if q, args, err = sqlx.In(q, args...); err != nil {
		return "", nil, errors.WithMessage(err, "expanding IN parameters")
	}
	return x.db.Rebind(q), args, nil
}

type validator interface {
	Validate() error
}

// IsPermanent returns whether |err| is a database error which no retry can
// fix: a syntax error or access rule violation, of SQLSTATE class 42.
func IsPermanent(err error) bool {
	var pqErr *pq.Error
	var pgErr *pgconn.PgError

	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "42"
	} else if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "42")
	}
	return false
}

func classify(err error) error {
	if err != nil && IsPermanent(err) {
		return retry.Permanent(err)
	}
	return err
}
