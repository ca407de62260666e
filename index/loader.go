package index

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/retry"
)

// Loader applies batches of Documents to an index. Documents which already
// exist are partially updated, and all others are created. A batch is
// applied in a single Bulk request, and a failed batch is retried in full.
type Loader struct {
	client Client
	index  string
	policy retry.Policy
}

// NewLoader returns a Loader of |index| via |client|.
func NewLoader(client Client, index string, policy retry.Policy) *Loader {
	return &Loader{client: client, index: index, policy: policy}
}

// Index returns the name of the Loader's index.
func (l *Loader) Index() string { return l.index }

// Load |docs|, returning the number of documents applied.
func (l *Loader) Load(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	var ids = make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocumentID()
	}

	var applied, creates, updates int
	var err = retry.Do(ctx, l.policy, "loading "+l.index, func(int) error {
		var existing, err = l.client.ExistingIDs(ctx, l.index, ids)
		if err != nil {
			return err
		}

		var ops = make([]Op, len(docs))
		creates, updates = 0, 0
		for i, d := range docs {
			if existing[d.DocumentID()] {
				ops[i] = Op{Type: Update, Doc: d}
				updates++
			} else {
				ops[i] = Op{Type: Create, Doc: d}
				creates++
			}
		}

		result, err := l.client.Bulk(ctx, l.index, ops)
		if err != nil {
			return err
		} else if err = result.Err(); err != nil {
			return err
		}
		applied = result.Applied
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.LoadedDocumentsTotal.WithLabelValues(l.index, metrics.Create).Add(float64(creates))
	metrics.LoadedDocumentsTotal.WithLabelValues(l.index, metrics.Update).Add(float64(updates))

	log.WithFields(log.Fields{
		"index":   l.index,
		"created": creates,
		"updated": updates,
	}).Debug("loaded batch")

	return applied, nil
}
