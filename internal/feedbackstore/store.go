// Package feedbackstore persists chat feedback to a Google Sheets
// spreadsheet. A Store finds (or provisions) the spreadsheet, makes sure the
// feedback tab exists and appends one row per submission.
package feedbackstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"admissions-assistant/internal/models"
	"admissions-assistant/internal/notify"
	"admissions-assistant/internal/sheets"
)

// ServiceProvider hands out an authenticated spreadsheet service, or a
// configuration error when credentials are missing.
type ServiceProvider interface {
	Service(ctx context.Context) (sheets.Service, error)
}

// Options configures a Store.
type Options struct {
	Provider ServiceProvider

	// SpreadsheetID is the explicitly configured id, tried after memory.
	SpreadsheetID string
	CacheFile     *CacheFile
	Tab           string
	Title         string

	// ShareWith, when set, is granted writer access to created spreadsheets.
	ShareWith string
	Notifier  notify.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// Store is the process-wide feedback sink. It is safe for concurrent use;
// resolution is not serialized, so concurrent cold starts may each create a
// spreadsheet.
type Store struct {
	provider     ServiceProvider
	configuredID string
	cache        *CacheFile
	tab          string
	title        string
	shareWith    string
	notifier     notify.Notifier
	logger       *slog.Logger
	now          func() time.Time

	mu         sync.RWMutex
	current    string
	tier       Tier
	resolvedAt time.Time
	headers    map[string]bool

	pending sync.WaitGroup
}

// New returns a Store. Nothing touches the network until the first call.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tab := opts.Tab
	if tab == "" {
		tab = "Feedback"
	}
	title := opts.Title
	if title == "" {
		title = "Admissions Assistant Feedback"
	}
	cache := opts.CacheFile
	if cache == nil {
		cache = NewCacheFile("")
	}

	return &Store{
		provider:     opts.Provider,
		configuredID: opts.SpreadsheetID,
		cache:        cache,
		tab:          tab,
		title:        title,
		shareWith:    opts.ShareWith,
		notifier:     opts.Notifier,
		logger:       logger,
		now:          now,
		headers:      make(map[string]bool),
	}
}

// Record appends one feedback row: connect, resolve the spreadsheet, ensure
// the tab, append. The first failing stage stops the pipeline.
func (s *Store) Record(ctx context.Context, rec *models.Feedback) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	id, err := s.ResolveStoreID(ctx, svc)
	if err != nil {
		return err
	}
	if err := s.EnsureTab(ctx, svc, id, s.tab); err != nil {
		return err
	}
	return s.AppendRecord(ctx, svc, id, s.tab, rec)
}

// Prepare resolves the spreadsheet and ensures the tab without writing a
// row, and reports where feedback will go.
func (s *Store) Prepare(ctx context.Context) (Status, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return Status{}, err
	}
	id, err := s.ResolveStoreID(ctx, svc)
	if err != nil {
		return Status{}, err
	}
	if err := s.EnsureTab(ctx, svc, id, s.tab); err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

func (s *Store) service(ctx context.Context) (sheets.Service, error) {
	svc, err := s.provider.Service(ctx)
	if err != nil {
		s.logger.Error("Feedback store unavailable", "error", err)
		return nil, &Error{Kind: KindConfiguration, Op: "connect to spreadsheet service", Err: err}
	}
	return svc, nil
}

// Status describes the memoized spreadsheet.
type Status struct {
	StoreID    string    `json:"storeId"`
	URL        string    `json:"url,omitempty"`
	Tier       Tier      `json:"tier,omitempty"`
	Tab        string    `json:"tab"`
	CacheFile  string    `json:"cacheFile,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Status reports the current memoized state without any external call.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StoreID:    s.current,
		Tier:       s.tier,
		Tab:        s.tab,
		CacheFile:  s.cache.Path(),
		ResolvedAt: s.resolvedAt,
	}
	if s.current != "" {
		st.URL = sheets.URL(s.current)
	}
	return st
}

// Flush waits for in-flight operator notifications.
func (s *Store) Flush() {
	s.pending.Wait()
}

func (s *Store) announce(id, title string) {
	if s.notifier == nil {
		return
	}
	message := "New feedback spreadsheet provisioned\n" +
		"Title: " + title + "\n" +
		"ID: " + id + "\n" +
		"URL: " + sheets.URL(id)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.notifier.Publish(context.Background(), message); err != nil {
			s.logger.Error("Failed to publish provisioning notice", "store_id", id, "error", err)
		}
	}()
}
