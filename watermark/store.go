// Package watermark persists the per-filter high watermarks of the ETL.
//
// All watermarks are held as a single JSON object of state key to
// ISO-8601 timestamp, stored under one well-known key of a kvstore.Store.
// Every update rewrites the complete object before the update becomes
// visible in memory.
package watermark

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/kvstore"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/retry"
)

// DefaultKey is the kvstore.Store key under which watermarks are persisted.
const DefaultKey = "etl_state"

// Store is a persistent map of state keys to watermarks. It's safe for
// concurrent use. Watermarks never move backwards.
type Store struct {
	kv     kvstore.Store
	key    string
	policy retry.Policy

	mu    sync.Mutex
	marks map[string]time.Time
}

// NewStore returns a Store persisted to |kv| under |key|. Persistence is
// retried under |policy|. The Store is empty until Load.
func NewStore(kv kvstore.Store, key string, policy retry.Policy) *Store {
	return &Store{
		kv:     kv,
		key:    key,
		policy: policy,
		marks:  make(map[string]time.Time),
	}
}

// Load the persisted watermarks. If |clean|, the persisted watermarks are
// first deleted and the Store starts empty.
func (s *Store) Load(ctx context.Context, clean bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clean {
		if err := retry.Do(ctx, s.policy, "deleting watermarks", func(int) error {
			return s.kv.Delete(ctx, s.key)
		}); err != nil {
			return err
		}
		log.WithField("key", s.key).Info("deleted persisted watermarks")
		s.marks = make(map[string]time.Time)
		return nil
	}

	var b []byte
	if err := retry.Do(ctx, s.policy, "loading watermarks", func(int) (err error) {
		if b, err = s.kv.Get(ctx, s.key); err == kvstore.ErrNotFound {
			b, err = nil, nil
		}
		return err
	}); err != nil {
		return err
	}

	var marks, err = decode(b)
	if err != nil {
		return errors.WithMessagef(err, "decoding watermarks of %q", s.key)
	}
	s.marks = marks

	for k, v := range marks {
		metrics.WatermarkTimestamp.WithLabelValues(k).Set(float64(v.Unix()))
	}
	log.WithFields(log.Fields{"key": s.key, "count": len(marks)}).Info("loaded watermarks")
	return nil
}

// Get the watermark of |stateKey|. If none has been recorded, Get returns
// the zero Time (which precedes every row timestamp) and false.
func (s *Store) Get(stateKey string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t, ok = s.marks[stateKey]
	return t, ok
}

// Set the watermark of |stateKey| to |t|, persisting all watermarks before
// returning. A |t| which doesn't follow the current watermark is ignored.
// If persistence fails the in-memory watermark is left unchanged.
func (s *Store) Set(ctx context.Context, stateKey string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prior, ok = s.marks[stateKey]
	if ok && !t.After(prior) {
		log.WithFields(log.Fields{
			"stateKey": stateKey,
			"current":  prior,
			"proposed": t,
		}).Debug("ignoring non-advancing watermark")
		return nil
	}

	s.marks[stateKey] = t
	if err := s.persist(ctx); err != nil {
		if ok {
			s.marks[stateKey] = prior
		} else {
			delete(s.marks, stateKey)
		}
		return errors.WithMessagef(err, "setting watermark %q", stateKey)
	}
	metrics.WatermarkTimestamp.WithLabelValues(stateKey).Set(float64(t.Unix()))
	return nil
}

// Reset removes the watermarks of |stateKeys|, or all watermarks if none
// are given. Affected filters will re-read their complete source on their
// next query.
func (s *Store) Reset(ctx context.Context, stateKeys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prior = s.marks
	if len(stateKeys) == 0 {
		s.marks = make(map[string]time.Time)
	} else {
		s.marks = make(map[string]time.Time, len(prior))
		for k, v := range prior {
			s.marks[k] = v
		}
		for _, k := range stateKeys {
			delete(s.marks, k)
		}
	}
	if err := s.persist(ctx); err != nil {
		s.marks = prior
		return errors.WithMessage(err, "resetting watermarks")
	}
	return nil
}

// Mark is a state key and its watermark.
type Mark struct {
	StateKey  string
	Watermark time.Time
}

// Marks returns all watermarks, ordered on state key.
func (s *Store) Marks() []Mark {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out = make([]Mark, 0, len(s.marks))
	for k, v := range s.marks {
		out = append(out, Mark{StateKey: k, Watermark: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StateKey < out[j].StateKey })
	return out
}

func (s *Store) persist(ctx context.Context) error {
	var b, err = encode(s.marks)
	if err != nil {
		return err
	}
	return retry.Do(ctx, s.policy, "persisting watermarks", func(int) error {
		return s.kv.Set(ctx, s.key, b, 0)
	})
}

func encode(marks map[string]time.Time) ([]byte, error) {
	var m = make(map[string]string, len(marks))
	for k, v := range marks {
		m[k] = v.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(m)
}

func decode(b []byte) (map[string]time.Time, error) {
	var out = make(map[string]time.Time)
	if len(b) == 0 {
		return out, nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range m {
		var t, err = parseTimestamp(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "state key %q", k)
		}
		out[k] = t
	}
	return out, nil
}

// Timestamp layouts accepted when loading persisted watermarks. The latter
// use a space separator, as produced by some SQL clients.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("invalid timestamp %q", s)
}
