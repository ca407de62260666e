// Package readcache serves documents of the search index through a
// read-through cache. Lookups are served from a kvstore.Store where
// present. Otherwise they're queried from the index and, if found, stored
// with a time-to-live.
//
// Population isn't coordinated across processes: concurrent misses of a
// key may each query the index and write the cache, and the last write
// wins. Within a process, concurrent misses of a key share one query.
package readcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/codecs"
	"go.cinedex.dev/core/index"
	"go.cinedex.dev/core/kvstore"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/search"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when a document doesn't exist, or a list query
// has no results.
var ErrNotFound = errors.New("not found")

// DefaultTTL of cached entries.
const DefaultTTL = 300 * time.Second

// DefaultFetchTimeout bounds an index read shared by concurrent misses.
const DefaultFetchTimeout = 30 * time.Second

// Config of a Reader.
type Config struct {
	TTL          time.Duration
	Codec        codecs.Codec
	FetchTimeout time.Duration
}

// Reader reads documents of type D from an index, through a cache.
type Reader[D any] struct {
	store  kvstore.Store
	client index.Client
	index  string
	cfg    Config
	group  singleflight.Group
}

// NewReader returns a Reader of |indexName| which caches in |store|.
func NewReader[D any](store kvstore.Store, client index.Client, indexName string, cfg Config) *Reader[D] {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Codec == "" {
		cfg.Codec = codecs.None
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Reader[D]{store: store, client: client, index: indexName, cfg: cfg}
}

// Index returns the name of the Reader's index.
func (r *Reader[D]) Index() string { return r.index }

// GetObject returns the document |id|, or ErrNotFound.
func (r *Reader[D]) GetObject(ctx context.Context, id string) (D, error) {
	var out D
	var b, err = r.readThrough(ctx, ObjectKey(r.index, id), func(ctx context.Context) ([]byte, error) {
		var started = time.Now()
		defer observe(r.index, "get", started)

		var doc, err = r.client.Get(ctx, r.index, id)
		if errors.Is(err, index.ErrNotFound) {
			return nil, ErrNotFound
		}
		return doc, err
	})
	if err != nil {
		return out, err
	} else if err = json.Unmarshal(b, &out); err != nil {
		return out, errors.WithMessagef(err, "decoding %s/%s", r.index, id)
	}
	return out, nil
}

// GetList returns the |page| of documents matching the request |body|, or
// ErrNotFound if the page has no documents.
func (r *Reader[D]) GetList(ctx context.Context, body search.Body, page search.Page) ([]D, error) {
	var from, size, ok = page.Window()
	if !ok {
		return nil, ErrNotFound // Beyond the result window.
	}
	var key, err = ListKey(r.index, body, page)
	if err != nil {
		return nil, err
	}

	b, err := r.readThrough(ctx, key, func(ctx context.Context) ([]byte, error) {
		var req = make(search.Body, len(body)+2)
		for k, v := range body {
			req[k] = v
		}
		req["from"], req["size"] = from, size

		var reqBytes, err = json.Marshal(req)
		if err != nil {
			return nil, err
		}

		var started = time.Now()
		result, err := r.client.Search(ctx, r.index, reqBytes)
		observe(r.index, "search", started)

		if errors.Is(err, index.ErrNotFound) || (err == nil && len(result.Hits) == 0) {
			return nil, ErrNotFound
		} else if err != nil {
			return nil, err
		}
		return json.Marshal(result.Hits)
	})
	if err != nil {
		return nil, err
	}

	var out []D
	if err = json.Unmarshal(b, &out); err != nil {
		return nil, errors.WithMessagef(err, "decoding %s list", r.index)
	}
	return out, nil
}

// readThrough returns the cached value of |key|, or else the value of
// |fetch| which is then cached. Cache errors are logged and otherwise
// treated as misses.
//
// Concurrent misses of |key| share one |fetch|, which runs under a Context
// detached from the cancellation of any single caller. A caller whose |ctx|
// is done stops waiting without affecting the others.
func (r *Reader[D]) readThrough(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := r.store.Get(ctx, key); err == nil {
		if b, err = codecs.Decode(b); err == nil {
			metrics.CacheLookupTotal.WithLabelValues(r.index, metrics.Hit).Inc()
			return b, nil
		}
		r.cacheError(key, err)
	} else if err != kvstore.ErrNotFound {
		r.cacheError(key, err)
	}
	metrics.CacheLookupTotal.WithLabelValues(r.index, metrics.Miss).Inc()

	var shared = context.WithoutCancel(ctx)
	var ch = r.group.DoChan(key, func() (interface{}, error) {
		var ctx, cancel = context.WithTimeout(shared, r.cfg.FetchTimeout)
		defer cancel()

		var b, err = fetch(ctx)
		if err != nil {
			return nil, err
		}
		enc, err := codecs.Encode(r.cfg.Codec, b)
		if err == nil {
			err = r.store.Set(ctx, key, enc, r.cfg.TTL)
		}
		if err != nil {
			r.cacheError(key, err)
		}
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reader[D]) cacheError(key string, err error) {
	metrics.CacheErrorTotal.Inc()
	log.WithFields(log.Fields{"key": key, "err": err}).Warn("read cache error (treating as miss)")
}

// ObjectKey is the cache key of document |id| of |indexName|.
func ObjectKey(indexName, id string) string {
	return indexName + ":" + id
}

// ListKey is the cache key of a |page| of request |body| over |indexName|.
// Bodies which differ only in key order have the same ListKey.
func ListKey(indexName string, body search.Body, page search.Page) (string, error) {
	var b, err = json.Marshal(body)
	if err != nil {
		return "", errors.WithMessage(err, "encoding request body")
	}
	var sum = sha256.Sum256(b)
	return fmt.Sprintf("%s:list:%s:%d:%d", indexName, hex.EncodeToString(sum[:]), page.Number, page.Size), nil
}

func observe(indexName, op string, started time.Time) {
	metrics.IndexRequestDurationSeconds.WithLabelValues(indexName, op).Observe(time.Since(started).Seconds())
}
