package index

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cinedex.dev/core/retry"
)

func TestLoaderCreatesAndUpdates(t *testing.T) {
	var client = newMemoryClient()
	client.docs["movies"] = map[string]json.RawMessage{"a": json.RawMessage(`{"id":"a"}`)}
	var l = NewLoader(client, "movies", testPolicy)

	var n, err = l.Load(context.Background(), []Document{testDoc{ID: "a", V: 1}, testDoc{ID: "b", V: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1, client.bulkCalls)
	assert.Equal(t, []Op{
		{Type: Update, Doc: testDoc{ID: "a", V: 1}},
		{Type: Create, Doc: testDoc{ID: "b", V: 2}},
	}, client.lastOps)
}

func TestLoaderUpsertIsIdempotent(t *testing.T) {
	var ctx = context.Background()
	var client = newMemoryClient()
	var l = NewLoader(client, "movies", testPolicy)
	var batch = []Document{testDoc{ID: "a", V: 1}, testDoc{ID: "b", V: 2}, testDoc{ID: "c", V: 3}}

	var first, err = l.Load(ctx, batch)
	require.NoError(t, err)
	var firstOps = client.lastOps
	var snapshot = make(map[string]json.RawMessage)
	for id, d := range client.docs["movies"] {
		snapshot[id] = d
	}

	second, err := l.Load(ctx, batch)
	require.NoError(t, err)

	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, client.docs["movies"])

	for i, d := range batch {
		assert.Equal(t, Op{Type: Create, Doc: d}, firstOps[i])
		assert.Equal(t, Op{Type: Update, Doc: d}, client.lastOps[i])
	}
}

func TestLoaderEmptyBatchIsNoop(t *testing.T) {
	var client = newMemoryClient()
	var n, err = NewLoader(client, "movies", testPolicy).Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, client.bulkCalls)
}

func TestLoaderRetriesWholeBatch(t *testing.T) {
	var client = newMemoryClient()
	client.failBulk = 2
	var l = NewLoader(client, "persons", testPolicy)

	var n, err = l.Load(context.Background(), []Document{testDoc{ID: "a"}, testDoc{ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, client.bulkCalls)
	assert.Len(t, client.docs["persons"], 2)

	// A batch with failed items is also retried, and updates on retry.
	client.itemFailures = 1
	n, err = l.Load(context.Background(), []Document{testDoc{ID: "a", V: 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Op{{Type: Update, Doc: testDoc{ID: "a", V: 3}}}, client.lastOps)
}

func TestLoaderGivesUp(t *testing.T) {
	var client = newMemoryClient()
	client.failBulk = 100

	var _, err = NewLoader(client, "genres", testPolicy).Load(context.Background(), []Document{testDoc{ID: "a"}})
	assert.EqualError(t, err, "loading genres (gave up after 3 attempts): bulk unavailable")
}

func TestBulkResultErr(t *testing.T) {
	assert.NoError(t, BulkResult{Applied: 3}.Err())
	assert.EqualError(t, BulkResult{Applied: 1, Failed: []ItemError{
		{ID: "a", Status: 409, Reason: "version_conflict_engine_exception: exists"},
		{ID: "b", Status: 400, Reason: "mapper_parsing_exception: bad"},
		{ID: "c", Status: 429, Reason: "es_rejected_execution_exception: busy"},
		{ID: "d", Status: 429, Reason: "es_rejected_execution_exception: busy"},
	}}.Err(), "4 of 5 bulk items failed: a (409: version_conflict_engine_exception: exists), "+
		"b (400: mapper_parsing_exception: bad), c (429: es_rejected_execution_exception: busy), and 1 more")
}

type testDoc struct {
	ID string `json:"id"`
	V  int    `json:"v"`
}

func (d testDoc) DocumentID() string { return d.ID }

// memoryClient is a Client of in-memory indices.
type memoryClient struct {
	docs         map[string]map[string]json.RawMessage
	bulkCalls    int
	lastOps      []Op
	failBulk     int
	itemFailures int
}

func newMemoryClient() *memoryClient {
	return &memoryClient{docs: make(map[string]map[string]json.RawMessage)}
}

func (c *memoryClient) ExistingIDs(_ context.Context, index string, ids []string) (map[string]bool, error) {
	var out = make(map[string]bool)
	for _, id := range ids {
		if _, ok := c.docs[index][id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (c *memoryClient) Get(_ context.Context, index, id string) (json.RawMessage, error) {
	if d, ok := c.docs[index][id]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (c *memoryClient) Search(context.Context, string, []byte) (SearchResult, error) {
	return SearchResult{}, errors.New("not implemented")
}

func (c *memoryClient) Bulk(_ context.Context, index string, ops []Op) (BulkResult, error) {
	c.bulkCalls++
	c.lastOps = ops

	if c.failBulk != 0 {
		c.failBulk--
		return BulkResult{}, errors.New("bulk unavailable")
	}
	if c.docs[index] == nil {
		c.docs[index] = make(map[string]json.RawMessage)
	}

	var out BulkResult
	for _, op := range ops {
		if c.itemFailures != 0 {
			c.itemFailures--
			out.Failed = append(out.Failed, ItemError{ID: op.Doc.DocumentID(), Status: 429})
			continue
		}
		var b, _ = json.Marshal(op.Doc)
		c.docs[index][op.Doc.DocumentID()] = b
		out.Applied++
	}
	return out, nil
}

func (c *memoryClient) EnsureIndex(context.Context, string, []byte, bool) error { return nil }

var testPolicy = retry.Policy{Initial: time.Microsecond, Factor: 1, Max: time.Microsecond, MaxAttempts: 3}
