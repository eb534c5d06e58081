package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonorder/internal/errors"
	"jsonorder/internal/orderedjson"
	"jsonorder/internal/slogutil"
	"jsonorder/internal/storage"
)

// fakeRepo is an in-memory Repository whose Insert can be scripted to fail.
type fakeRepo struct {
	mu   sync.Mutex
	docs map[string]storage.Document

	// insertErrs are returned by successive Insert calls; once exhausted
	// Insert succeeds.
	insertErrs []error
	// commitBeforeErr stores the document even when an error is returned.
	commitBeforeErr bool

	inserted []*storage.Document
	gets     int
}

func newFakeRepo(errs ...error) *fakeRepo {
	return &fakeRepo{docs: make(map[string]storage.Document), insertErrs: errs}
}

func (f *fakeRepo) Insert(_ context.Context, doc *storage.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserted = append(f.inserted, doc)
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if f.commitBeforeErr {
			f.docs[doc.ID] = *doc
		}
		return err
	}
	if _, ok := f.docs[doc.ID]; ok {
		return fmt.Errorf("UNIQUE constraint failed: json_documents.id")
	}
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*storage.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	doc, ok := f.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeRepo) List(context.Context, int, int) ([]storage.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []storage.DocumentSummary
	for _, d := range f.docs {
		out = append(out, storage.DocumentSummary{ID: d.ID, RawBytes: len(d.RawOriginalText), CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func fastRetry(maxRetries int) Options {
	return Options{
		Retry: RetryPolicy{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
		Logger: slogutil.NewDiscardLogger(),
	}
}

func transient(msg string) error {
	return fmt.Errorf("%w: %s", storage.ErrTransient, msg)
}

func openAdapter(t *testing.T, concurrency int) *Adapter {
	t.Helper()

	db, err := storage.Open(storage.Options{Path: filepath.Join(t.TempDir(), "docs.db")}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(storage.NewDocumentRepository(db), Options{
		Retry:       DefaultRetryPolicy(),
		Concurrency: concurrency,
		Logger:      slogutil.NewDiscardLogger(),
	})
}

func TestPrepare(t *testing.T) {
	raw := "{\n  \"b\": 1,\n  \"a\": [1, 2.50, \"<x>\"]\n}"

	forms, err := Prepare(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, forms.Raw)
	assert.Equal(t, `{"b":1,"a":[1,2.50,"<x>"]}`, forms.OrderPreserved)
	assert.Equal(t, `{"a":[1,2.50,"<x>"],"b":1}`, forms.Normalized)
}

func TestPrepare_ParseFailure(t *testing.T) {
	for _, raw := range []string{"", "{", `{"a":1,}`, `{"a":1} trailing`, "nul", "{\"s\":\"bad\xff\"}", `{"s":"\ud800"}`} {
		t.Run(raw, func(t *testing.T) {
			_, err := Prepare(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrParseFailure)
			assert.Equal(t, errors.ParseFailure, errors.CodeOf(err))

			var pe *orderedjson.ParseError
			assert.True(t, stderrors.As(err, &pe), "parse error should stay reachable")
		})
	}
}

func TestPrepare_DetailsCarryLocation(t *testing.T) {
	_, err := Prepare("{\n  \"a\": trux}")
	require.Error(t, err)

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	details, ok := e.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, details["line"])
}

func TestStore_RejectsTextThatWouldNotRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	a := New(repo, fastRetry(3))

	for _, raw := range []string{"{\"s\":\"bad\xff\"}", `["\udc00"]`} {
		_, err := a.Store(context.Background(), raw)
		require.ErrorIs(t, err, errors.ErrParseFailure)
	}
	assert.Empty(t, repo.inserted)
}

func TestStore_ParseFailureWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	a := New(repo, fastRetry(3))

	_, err := a.Store(context.Background(), `{"a":`)
	require.ErrorIs(t, err, errors.ErrParseFailure)
	assert.Empty(t, repo.inserted)
}

func TestStore_RetriesTransientWithSameForms(t *testing.T) {
	repo := newFakeRepo(transient("database is locked"), transient("database is locked"))
	a := New(repo, fastRetry(3))

	id, err := a.Store(context.Background(), `{"z":1,"a":2}`)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 3)

	first := repo.inserted[0]
	for _, doc := range repo.inserted[1:] {
		assert.Same(t, first, doc, "retries must reuse the prepared document")
	}
	assert.Equal(t, string(id), first.ID)
	assert.Equal(t, `{"z":1,"a":2}`, first.OrderPreservedText)
	assert.Equal(t, `{"a":2,"z":1}`, first.NormalizedJSON)
}

func TestStore_GivesUpAfterRetryBudget(t *testing.T) {
	repo := newFakeRepo(transient("busy"), transient("busy"), transient("busy"), transient("busy"))
	a := New(repo, fastRetry(2))

	_, err := a.Store(context.Background(), `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPersistenceFailure)
	assert.ErrorIs(t, err, storage.ErrTransient)
	assert.Len(t, repo.inserted, 3)
}

func TestStore_PermanentFailureNotRetried(t *testing.T) {
	repo := newFakeRepo(stderrors.New("disk I/O error"))
	a := New(repo, fastRetry(3))

	_, err := a.Store(context.Background(), `[1,2,3]`)
	require.ErrorIs(t, err, errors.ErrPersistenceFailure)
	assert.Len(t, repo.inserted, 1)
}

func TestStore_RetryFindsOwnCommittedRecord(t *testing.T) {
	repo := newFakeRepo(transient("connection reset"), stderrors.New("UNIQUE constraint failed: json_documents.id"))
	repo.commitBeforeErr = true
	a := New(repo, fastRetry(3))

	id, err := a.Store(context.Background(), `{"k":"v"}`)
	require.NoError(t, err)
	assert.Len(t, repo.inserted, 2)

	rec, err := a.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, rec.Raw)
}

func TestStore_CancelledDuringBackoff(t *testing.T) {
	repo := newFakeRepo(transient("busy"))
	opts := fastRetry(3)
	opts.Retry.BaseDelay = time.Hour
	opts.Retry.MaxDelay = time.Hour
	a := New(repo, opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Store(ctx, `{}`)
	require.ErrorIs(t, err, errors.ErrPersistenceFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_MalformedIDIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	a := New(repo, fastRetry(0))

	for _, id := range []RecordID{"", "not-a-uuid", "12345", "'; DROP TABLE json_documents; --"} {
		_, err := a.Fetch(context.Background(), id)
		assert.ErrorIs(t, err, errors.ErrNotFound, "id %q", id)
	}
	assert.Zero(t, repo.gets, "malformed ids should not reach storage")
}

func TestRetryBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, 10*time.Millisecond, p.backoff(1))
	assert.Equal(t, 20*time.Millisecond, p.backoff(2))
	assert.Equal(t, 40*time.Millisecond, p.backoff(3))
	assert.Equal(t, 50*time.Millisecond, p.backoff(4))
	assert.Equal(t, 50*time.Millisecond, p.backoff(40))
}

func TestStoreAndFetch_EndToEnd(t *testing.T) {
	a := openAdapter(t, 1)
	ctx := context.Background()

	input := `{"title":"Inception","genre":"Sci-Fi","locations":["A","B"]}`

	id, err := a.Store(ctx, input)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := a.Fetch(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, input, rec.Raw)

	ordered, err := orderedjson.ParseString(rec.OrderPreserved)
	require.NoError(t, err)
	obj, ok := ordered.Object()
	require.True(t, ok)
	assert.Equal(t, []string{"title", "genre", "locations"}, obj.Keys())

	original, err := orderedjson.ParseString(input)
	require.NoError(t, err)
	assert.True(t, orderedjson.Equal(original, ordered))

	// same members and values; order not asserted
	assert.JSONEq(t, input, rec.Normalized)
}

func TestFetch_UnknownAndCanonicalIDs(t *testing.T) {
	a := openAdapter(t, 1)
	ctx := context.Background()

	_, err := a.Fetch(ctx, "6f1c1f5e-1d2b-4e8a-9a4c-2f3d4e5f6a7b")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	id, err := a.Store(ctx, `{"x":true}`)
	require.NoError(t, err)

	rec, err := a.Fetch(ctx, RecordID(strings.ToUpper(string(id))))
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
}

func TestStoreAll(t *testing.T) {
	a := openAdapter(t, 4)
	ctx := context.Background()

	var inputs []Input
	for i := 0; i < 8; i++ {
		inputs = append(inputs, Input{
			Name: fmt.Sprintf("doc-%d.json", i),
			Raw:  fmt.Sprintf(`{"n":%d,"after":"n"}`, i),
		})
	}
	inputs = append(inputs, Input{Name: "broken.json", Raw: `{"n":`})

	results := a.StoreAll(ctx, inputs)
	require.Len(t, results, len(inputs))

	for i, r := range results {
		assert.Equal(t, inputs[i].Name, r.Name)
		if r.Name == "broken.json" {
			assert.ErrorIs(t, r.Err, errors.ErrParseFailure)
			assert.Empty(t, r.ID)
			continue
		}
		require.NoError(t, r.Err, r.Name)

		rec, err := a.Fetch(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, inputs[i].Raw, rec.Raw)
		assert.Equal(t, inputs[i].Raw, rec.OrderPreserved)
	}

	summaries, err := a.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, summaries, 8)
}
