package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/store"

	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	replies map[string]string
	fail    map[string]error
	prompts []string
	// called before each analysis
	before func(prompt string)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string, onPartial func(string)) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.before != nil {
		f.before(prompt)
	}

	for name, err := range f.fail {
		if containsLine(prompt, "Item: "+name) {
			return "", err
		}
	}
	for name, reply := range f.replies {
		if containsLine(prompt, "Item: "+name) {
			if onPartial != nil {
				onPartial(reply[:len(reply)/2])
				onPartial(reply)
			}
			return reply, nil
		}
	}
	return "No structured data.", nil
}

func containsLine(text, line string) bool {
	return strings.Contains(text, line+"\n")
}

type fakePricing struct {
	mu      sync.Mutex
	prices  map[string]float64
	fail    map[string]error
	queries []string
}

func (f *fakePricing) Price(_ context.Context, query string, _ models.Category) (models.PricingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	if err, ok := f.fail[query]; ok {
		return models.PricingResult{}, err
	}
	price, ok := f.prices[query]
	if !ok {
		return models.PricingResult{Confidence: models.ConfidenceNone}, nil
	}
	sale := models.SaleObservation{Title: query, Price: price, SaleDate: time.Now()}
	return models.PricingResult{
		AveragePrice: &price,
		Sales:        []models.SaleObservation{sale},
		Count:        1,
		Confidence:   models.ConfidenceLow,
	}, nil
}

func (f *fakePricing) setPrice(query string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prices == nil {
		f.prices = map[string]float64{}
	}
	f.prices[query] = price
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, note models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeNotifier) sent() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.notes...)
}

type fakeEvents struct {
	mu        sync.Mutex
	enriched  []string
	failed    []string
	completed []*models.BatchCompletedEvent
	imported  []*models.ItemsImportedEvent
	created   []string
}

func (f *fakeEvents) PublishItemEnriched(_ context.Context, e *models.ItemEnrichedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enriched = append(f.enriched, e.ItemID)
	return nil
}

func (f *fakeEvents) PublishItemEnrichmentFailed(_ context.Context, e *models.ItemEnrichmentFailedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, e.ItemID)
	return nil
}

func (f *fakeEvents) PublishBatchCompleted(_ context.Context, e *models.BatchCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, e)
	return nil
}

func (f *fakeEvents) PublishItemsImported(_ context.Context, e *models.ItemsImportedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported = append(f.imported, e)
	return nil
}

func (f *fakeEvents) PublishPriceAlertCreated(_ context.Context, e *models.PriceAlertCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, e.AlertID)
	return nil
}

// failingStore wraps a store and fails saves while broken is set
type failingStore struct {
	store.BlobStore
	broken bool
}

func (s *failingStore) Save(ctx context.Context, key string, data []byte) error {
	if s.broken {
		return errors.New("disk full")
	}
	return s.BlobStore.Save(ctx, key, data)
}

func newFileStore(t *testing.T) store.BlobStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }
