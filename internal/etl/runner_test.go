package etl

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/shared/telemetry"
)

type fakeFetcher struct {
	records []airtable.Record
	err     error
	calls   int
	lastReq airtable.ListRequest
}

func (f *fakeFetcher) ListAll(ctx context.Context, req airtable.ListRequest) ([]airtable.Record, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// failingStore rejects writes for the listed document ids.
type failingStore struct {
	*docstore.MemoryStore
	reject map[string]bool
}

func (s *failingStore) Set(ctx context.Context, collection docstore.Path, docID string, body map[string]any) error {
	if s.reject[docID] {
		return &docstore.UpsertError{Path: collection.DocPath(docID), Err: errors.New("permission denied")}
	}
	return s.MemoryStore.Set(ctx, collection, docID, body)
}

func itemsJob() Job {
	return Job{
		Name:  "items",
		Table: "Items",
		View:  "Published",
		Key: func(rec airtable.Record) (Key, error) {
			name := rec.Fields.Text("Name")
			if name == "" {
				return Key{}, Skip("missing Name")
			}
			return Key{ID: Slugify(name)}, nil
		},
		Body: func(rec airtable.Record, key Key) map[string]any {
			return map[string]any{"name": rec.Fields.Text("Name"), "slug": key.ID}
		},
		Target: func(rec airtable.Record, key Key) (docstore.Path, string) {
			return docstore.Collection("items"), key.ID
		},
	}
}

func quietLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(nil) })
	return &buf
}

func rec(id string, fields map[string]any) airtable.Record {
	return airtable.Record{ID: id, Fields: airtable.Fields(fields)}
}

func TestRunWritesEveryNormalizedRecord(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{
		rec("rec1", map[string]any{"Name": "First Item"}),
		rec("rec2", map[string]any{"Name": "Second"}),
	}}
	store := docstore.NewMemoryStore()
	runner := NewRunner(fetcher, store, Options{PageSize: 50})

	res := runner.Run(context.Background(), itemsJob())

	require.True(t, res.OK, res.Error)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 0, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "Items", fetcher.lastReq.Table)
	assert.Equal(t, "Published", fetcher.lastReq.View)
	assert.Equal(t, 50, fetcher.lastReq.PageSize)

	doc, ok := store.Get("items/first-item")
	require.True(t, ok)
	assert.Equal(t, "First Item", doc["name"])
	assert.Equal(t, "rec1", doc[FieldSourceID])
	assert.IsType(t, time.Time{}, doc[FieldUpdatedAt])
}

func TestRunSkipsRecordsWithoutKey(t *testing.T) {
	logs := quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{
		rec("recOK", map[string]any{"Name": "Kept"}),
		rec("recBad", map[string]any{"Other": "x"}),
	}}
	store := docstore.NewMemoryStore()

	res := NewRunner(fetcher, store, Options{}).Run(context.Background(), itemsJob())

	require.True(t, res.OK)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, logs.String(), "sync.record.skipped")
	assert.Contains(t, logs.String(), "recBad")
	assert.NotContains(t, res.Payload(), "reasons")
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{err: &airtable.FetchError{StatusCode: 403, Message: "Invalid permissions"}}
	store := docstore.NewMemoryStore()

	res := NewRunner(fetcher, store, Options{}).Run(context.Background(), itemsJob())

	assert.False(t, res.OK)
	assert.Equal(t, 0, store.Writes())
	assert.Contains(t, res.Error, "403")
	assert.Contains(t, res.Error, "Invalid permissions")

	payload := res.Payload()
	assert.Equal(t, false, payload["ok"])
	assert.Equal(t, res.Error, payload["error"])
}

func TestRunAbortsOnFirstWriteFailure(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{
		rec("rec1", map[string]any{"Name": "a"}),
		rec("rec2", map[string]any{"Name": "b"}),
		rec("rec3", map[string]any{"Name": "c"}),
	}}
	store := &failingStore{MemoryStore: docstore.NewMemoryStore(), reject: map[string]bool{"b": true}}

	res := NewRunner(fetcher, store, Options{}).Run(context.Background(), itemsJob())

	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Error, "permission denied")
	var upsert *docstore.UpsertError
	assert.ErrorAs(t, res.Err, &upsert)

	_, ok := store.Get("items/a")
	assert.True(t, ok, "earlier writes stay in place")
	_, ok = store.Get("items/c")
	assert.False(t, ok, "later records are not attempted")
}

func TestRunContinuePolicyCollectsFailures(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{
		rec("rec1", map[string]any{"Name": "a"}),
		rec("rec2", map[string]any{"Name": "b"}),
		rec("rec3", map[string]any{"Name": "c"}),
	}}
	store := &failingStore{MemoryStore: docstore.NewMemoryStore(), reject: map[string]bool{"b": true}}

	res := NewRunner(fetcher, store, Options{WritePolicy: WritePolicyContinue}).Run(context.Background(), itemsJob())

	assert.False(t, res.OK)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Error, "1 of 3 writes failed")

	payload := res.Payload()
	assert.Equal(t, 2, payload["wrote"])
	assert.Equal(t, 1, payload["failed"])
}

func TestRunSingleRecordJob(t *testing.T) {
	quietLogs(t)
	job := itemsJob()
	job.SingleRecord = true
	job.MaxRecords = 1

	t.Run("reports slug", func(t *testing.T) {
		fetcher := &fakeFetcher{records: []airtable.Record{rec("rec1", map[string]any{"Name": "Only One"})}}
		res := NewRunner(fetcher, docstore.NewMemoryStore(), Options{}).Run(context.Background(), job)

		require.True(t, res.OK)
		assert.Equal(t, 1, fetcher.lastReq.MaxRecords)
		assert.Equal(t, "only-one", res.Slug)
		assert.Equal(t, "only-one", res.Payload()["slug"])
	})

	t.Run("empty view", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		res := NewRunner(&fakeFetcher{}, store, Options{}).Run(context.Background(), job)

		require.True(t, res.OK)
		assert.Equal(t, 0, res.Written)
		assert.Equal(t, ReasonNoRecords, res.Payload()["reason"])
		assert.Equal(t, 0, store.Writes())
	})
}

func TestRunIsIdempotent(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{rec("rec1", map[string]any{"Name": "Same"})}}
	store := docstore.NewMemoryStore()
	runner := NewRunner(fetcher, store, Options{})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runner.now = func() time.Time { return fixed }

	first := runner.Run(context.Background(), itemsJob())
	before, _ := store.Get("items/same")
	second := runner.Run(context.Background(), itemsJob())
	after, _ := store.Get("items/same")

	assert.Equal(t, first.Written, second.Written)
	assert.Equal(t, before, after)
	assert.Len(t, store.Paths(), 1)
}

func TestRunRejectsInvalidJob(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{}
	res := NewRunner(fetcher, docstore.NewMemoryStore(), Options{}).Run(context.Background(), Job{Name: "broken"})

	assert.False(t, res.OK)
	assert.Equal(t, 0, fetcher.calls)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	quietLogs(t)
	fetcher := &fakeFetcher{records: []airtable.Record{rec("rec1", map[string]any{"Name": "a"})}}
	store := docstore.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewRunner(fetcher, store, Options{}).Run(ctx, itemsJob())

	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, store.Writes())
}
