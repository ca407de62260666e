package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Elastic is a Client of an Elasticsearch cluster.
type Elastic struct {
	es *elasticsearch.Client
}

var _ Client = (*Elastic)(nil)

// NewElastic returns an Elastic using the cluster at |addresses|.
func NewElastic(addresses ...string) (*Elastic, error) {
	var es, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, errors.WithMessage(err, "building elasticsearch client")
	}
	return &Elastic{es: es}, nil
}

func (e *Elastic) ExistingIDs(ctx context.Context, index string, ids []string) (map[string]bool, error) {
	var out = make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	type mgetDoc struct {
		ID     string `json:"_id"`
		Source bool   `json:"_source"`
	}
	var req = struct {
		Docs []mgetDoc `json:"docs"`
	}{}
	for _, id := range ids {
		req.Docs = append(req.Docs, mgetDoc{ID: id})
	}
	var body, err = json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Docs []struct {
			ID    string `json:"_id"`
			Found bool   `json:"found"`
		} `json:"docs"`
	}
	if err = decode(e.es.Mget(bytes.NewReader(body),
		e.es.Mget.WithIndex(index),
		e.es.Mget.WithContext(ctx),
	))(&resp); err != nil {
		return nil, errors.WithMessagef(err, "mget %s", index)
	}
	for _, d := range resp.Docs {
		if d.Found {
			out[d.ID] = true
		}
	}
	return out, nil
}

func (e *Elastic) Get(ctx context.Context, index, id string) (json.RawMessage, error) {
	var resp struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := decode(e.es.Get(index, id, e.es.Get.WithContext(ctx)))(&resp); err != nil {
		return nil, errors.WithMessagef(err, "get %s/%s", index, id)
	}
	return resp.Source, nil
}

func (e *Elastic) Search(ctx context.Context, index string, body []byte) (SearchResult, error) {
	var resp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := decode(e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithTrackTotalHits(true),
	))(&resp); err != nil {
		return SearchResult{}, errors.WithMessagef(err, "search %s", index)
	}

	var out = SearchResult{Total: resp.Hits.Total.Value}
	for _, h := range resp.Hits.Hits {
		out.Hits = append(out.Hits, h.Source)
	}
	return out, nil
}

func (e *Elastic) Bulk(ctx context.Context, index string, ops []Op) (BulkResult, error) {
	var buf bytes.Buffer
	var enc = json.NewEncoder(&buf)

	for _, op := range ops {
		var meta = map[string]map[string]string{
			string(op.Type): {"_id": op.Doc.DocumentID()},
		}
		var err = enc.Encode(meta)
		if err == nil {
			switch op.Type {
			case Create:
				err = enc.Encode(op.Doc)
			case Update:
				err = enc.Encode(map[string]interface{}{"doc": op.Doc})
			default:
				err = fmt.Errorf("unknown op type %q", op.Type)
			}
		}
		if err != nil {
			return BulkResult{}, errors.WithMessagef(err, "encoding %s op", op.Doc.DocumentID())
		}
	}

	var resp struct {
		Items []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := decode(e.es.Bulk(&buf,
		e.es.Bulk.WithIndex(index),
		e.es.Bulk.WithContext(ctx),
	))(&resp); err != nil {
		return BulkResult{}, errors.WithMessagef(err, "bulk %s", index)
	}

	var out BulkResult
	for _, item := range resp.Items {
		for _, r := range item {
			if r.Error == nil && r.Status >= 200 && r.Status < 300 {
				out.Applied++
				continue
			}
			var f = ItemError{ID: r.ID, Status: r.Status}
			if r.Error != nil {
				f.Reason = r.Error.Type + ": " + r.Error.Reason
			}
			out.Failed = append(out.Failed, f)
		}
	}
	return out, nil
}

func (e *Elastic) EnsureIndex(ctx context.Context, index string, schema []byte, recreate bool) error {
	var res, err = e.es.Indices.Exists([]string{index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.WithMessagef(err, "checking index %s", index)
	}
	res.Body.Close()
	var exists = res.StatusCode == http.StatusOK

	if exists && recreate {
		if err = decode(e.es.Indices.Delete([]string{index},
			e.es.Indices.Delete.WithContext(ctx)))(nil); err != nil {
			return errors.WithMessagef(err, "deleting index %s", index)
		}
		log.WithField("index", index).Info("deleted index")
		exists = false
	}
	if exists {
		return nil
	}

	if err = decode(e.es.Indices.Create(index,
		e.es.Indices.Create.WithBody(bytes.NewReader(schema)),
		e.es.Indices.Create.WithContext(ctx),
	))(nil); err != nil {
		return errors.WithMessagef(err, "creating index %s", index)
	}
	log.WithField("index", index).Info("created index")
	return nil
}

// decode returns a closure which checks the result of an esapi call and
// decodes its response body into |out|, if non-nil. A 404 status maps to
// ErrNotFound.
func decode(res *esapi.Response, err error) func(out interface{}) error {
	return func(out interface{}) error {
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusNotFound {
			return ErrNotFound
		} else if res.IsError() {
			var b, _ = io.ReadAll(io.LimitReader(res.Body, 1024))
			return fmt.Errorf("%s: %s", res.Status(), bytes.TrimSpace(b))
		} else if out == nil {
			return nil
		}
		return errors.WithMessage(json.NewDecoder(res.Body).Decode(out), "decoding response")
	}
}
