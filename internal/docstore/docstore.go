// Package docstore stores JSON documents in three forms: the raw text as
// received, a normalized form in the engine's JSON type, and an
// order-preserved serialization of the parsed tree.
package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jsonorder/internal/errors"
	"jsonorder/internal/orderedjson"
	"jsonorder/internal/storage"
)

// RecordID identifies a stored document.
type RecordID string

// Forms are the three representations written for one document.
type Forms struct {
	Raw            string
	Normalized     string
	OrderPreserved string
}

// Record is a fetched document.
type Record struct {
	ID             RecordID  `json:"id"`
	Normalized     string    `json:"normalized"`
	OrderPreserved string    `json:"orderPreserved"`
	Raw            string    `json:"raw"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is a listing entry.
type Summary struct {
	ID        RecordID  `json:"id"`
	RawBytes  int       `json:"rawBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository is the persistence the adapter writes through.
// storage.DocumentRepository implements it.
type Repository interface {
	Insert(ctx context.Context, doc *storage.Document) error
	Get(ctx context.Context, id string) (*storage.Document, error)
	List(ctx context.Context, limit, offset int) ([]storage.DocumentSummary, error)
}

// RetryPolicy bounds retries of transient persistence failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// Options configures an Adapter.
type Options struct {
	Retry RetryPolicy
	// Concurrency bounds StoreAll workers. Values below one mean one.
	Concurrency int
	Logger      *slog.Logger
}

// Adapter stores and fetches documents.
type Adapter struct {
	repo        Repository
	retry       RetryPolicy
	concurrency int
	logger      *slog.Logger
	newID       func() string
}

// New creates an Adapter over repo.
func New(repo Repository, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Adapter{
		repo:        repo,
		retry:       opts.Retry,
		concurrency: concurrency,
		logger:      logger,
		newID:       uuid.NewString,
	}
}

// Prepare parses raw once and derives the normalized and order-preserved
// forms from that single tree. It touches no storage.
func Prepare(raw string) (*Forms, error) {
	v, err := orderedjson.ParseString(raw)
	if err != nil {
		return nil, parseFailure(err)
	}

	ordered, err := orderedjson.Marshal(v)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to serialize parsed document", err)
	}
	normalized, err := orderedjson.MarshalNormalized(v)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to normalize parsed document", err)
	}

	return &Forms{
		Raw:            raw,
		Normalized:     string(normalized),
		OrderPreserved: string(ordered),
	}, nil
}

func parseFailure(err error) error {
	e := errors.New(errors.ParseFailure, "input is not a valid JSON document", err)
	var pe *orderedjson.ParseError
	if stderrors.As(err, &pe) {
		e.WithDetails(map[string]interface{}{
			"offset": pe.Offset,
			"line":   pe.Line,
			"column": pe.Column,
			"reason": pe.Reason,
		})
	}
	return e
}

// Store parses raw and persists all three forms atomically, returning the
// new record's id. Nothing is written when raw is not valid JSON.
func (a *Adapter) Store(ctx context.Context, raw string) (RecordID, error) {
	forms, err := Prepare(raw)
	if err != nil {
		return "", err
	}
	return a.StoreForms(ctx, forms)
}

// StoreForms persists already prepared forms. Transient failures are retried
// with the same forms and the same id.
func (a *Adapter) StoreForms(ctx context.Context, forms *Forms) (RecordID, error) {
	doc := &storage.Document{
		ID:                 a.newID(),
		NormalizedJSON:     forms.Normalized,
		OrderPreservedText: forms.OrderPreserved,
		RawOriginalText:    forms.Raw,
		CreatedAt:          time.Now().UTC(),
	}

	err := a.withRetry(ctx, "store", doc.ID, func(attempt int) error {
		err := a.repo.Insert(ctx, doc)
		if err != nil && attempt > 0 && !storage.IsTransient(err) && a.committed(ctx, doc) {
			// an earlier attempt committed before its error was reported
			a.logger.Debug("Store already committed", "op", "store", "id", doc.ID, "attempt", attempt+1)
			return nil
		}
		return err
	})
	if err != nil {
		return "", errors.New(errors.PersistenceFailure, "failed to store document", err)
	}

	return RecordID(doc.ID), nil
}

func (a *Adapter) committed(ctx context.Context, doc *storage.Document) bool {
	got, err := a.repo.Get(ctx, doc.ID)
	return err == nil && got.RawOriginalText == doc.RawOriginalText
}

// Fetch returns the three stored forms of id. Unknown and malformed ids are
// both reported as NotFound.
func (a *Adapter) Fetch(ctx context.Context, id RecordID) (*Record, error) {
	parsed, err := uuid.Parse(string(id))
	if err != nil {
		return nil, notFound(id)
	}
	key := parsed.String()

	var doc *storage.Document
	err = a.withRetry(ctx, "fetch", key, func(int) error {
		var getErr error
		doc, getErr = a.repo.Get(ctx, key)
		return getErr
	})
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.New(errors.PersistenceFailure, "failed to fetch document", err)
	}

	return &Record{
		ID:             RecordID(doc.ID),
		Normalized:     doc.NormalizedJSON,
		OrderPreserved: doc.OrderPreservedText,
		Raw:            doc.RawOriginalText,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

func notFound(id RecordID) error {
	return errors.New(errors.NotFound, fmt.Sprintf("record %q not found", string(id)), nil)
}

// List returns record summaries, newest first. A non-positive limit lists
// everything.
func (a *Adapter) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	var rows []storage.DocumentSummary
	err := a.withRetry(ctx, "list", "", func(int) error {
		var listErr error
		rows, listErr = a.repo.List(ctx, limit, offset)
		return listErr
	})
	if err != nil {
		return nil, errors.New(errors.PersistenceFailure, "failed to list documents", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, Summary{
			ID:        RecordID(r.ID),
			RawBytes:  r.RawBytes,
			CreatedAt: r.CreatedAt,
		})
	}
	return summaries, nil
}
