package feedbackstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-assistant/internal/models"
	"admissions-assistant/internal/sheets"

	"github.com/google/uuid"
)

// Tier names where a spreadsheet id came from.
type Tier string

const (
	TierMemory    Tier = "memory"
	TierConfig    Tier = "config"
	TierCacheFile Tier = "cache_file"
	TierCreated   Tier = "created"
)

type candidate struct {
	tier   Tier
	lookup func() (string, error)
}

// tiers lists the id sources in priority order. Creation is the fallback
// after all of them and is handled separately.
func (s *Store) tiers() []candidate {
	return []candidate{
		{tier: TierMemory, lookup: func() (string, error) { return s.memo(), nil }},
		{tier: TierConfig, lookup: func() (string, error) { return s.configuredID, nil }},
		{tier: TierCacheFile, lookup: s.cache.Read},
	}
}

// ResolveStoreID returns a verified spreadsheet id, creating a spreadsheet
// when no tier yields an accessible one. An id that fails verification is
// evicted from memory and the cache file before the next tier is tried.
func (s *Store) ResolveStoreID(ctx context.Context, svc sheets.Service) (string, error) {
	rejected := make(map[string]bool)

	for _, c := range s.tiers() {
		id, err := c.lookup()
		if err != nil {
			s.logger.Warn("Skipping spreadsheet id source", "tier", c.tier, "error", err)
			continue
		}
		if id == "" || rejected[id] {
			continue
		}

		err = svc.Verify(ctx, id)
		if err == nil {
			if c.tier != TierMemory {
				s.remember(id, c.tier)
				s.logger.Info("Using feedback spreadsheet", "store_id", id, "tier", c.tier)
			}
			return id, nil
		}

		// A cancelled request says nothing about the spreadsheet.
		if ctx.Err() != nil {
			return "", &Error{Kind: KindResolution, Op: "verify spreadsheet", StoreID: id, Tier: c.tier, Err: err}
		}

		s.logger.Warn("Feedback spreadsheet is not accessible",
			"store_id", id,
			"tier", c.tier,
			"not_found", sheets.IsInaccessible(err),
			"error", err,
		)
		rejected[id] = true
		s.evict(id)
	}

	return s.create(ctx, svc)
}

func (s *Store) create(ctx context.Context, svc sheets.Service) (string, error) {
	title := fmt.Sprintf("%s %s", s.title, uuid.NewString()[:8])

	id, err := svc.Create(ctx, title, s.tab, models.Header)
	if id == "" {
		if err == nil {
			err = errors.New("service returned no spreadsheet id")
		}
		s.logger.Error("Failed to create feedback spreadsheet", "tier", TierCreated, "title", title, "error", err)
		return "", &Error{Kind: KindResolution, Op: "create spreadsheet", Tier: TierCreated, Err: err}
	}
	if err != nil {
		// The next EnsureTab checks row 1 and writes the header if needed.
		s.logger.Warn("Feedback spreadsheet created with an error", "store_id", id, "error", err)
	} else {
		s.markHeader(id, s.tab)
	}

	s.remember(id, TierCreated)
	if err := s.cache.Write(id); err != nil {
		s.logger.Warn("Failed to persist spreadsheet id", "store_id", id, "path", s.cache.Path(), "error", err)
	}
	s.logger.Info("Created feedback spreadsheet", "store_id", id, "title", title, "url", sheets.URL(id))

	if s.shareWith != "" {
		if err := svc.Share(ctx, id, s.shareWith); err != nil {
			s.logger.Warn("Failed to share feedback spreadsheet", "store_id", id, "share_with", s.shareWith, "error", err)
		}
	}
	s.announce(id, title)

	return id, nil
}

func (s *Store) memo() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) remember(id string, tier Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	s.tier = tier
	s.resolvedAt = s.now()
}

// evict drops id from every cache tier that still holds it.
func (s *Store) evict(id string) {
	s.mu.Lock()
	if s.current == id {
		s.current = ""
		s.tier = ""
		s.resolvedAt = time.Time{}
	}
	s.mu.Unlock()

	if err := s.cache.Evict(id); err != nil {
		s.logger.Warn("Failed to evict spreadsheet id from cache file", "store_id", id, "path", s.cache.Path(), "error", err)
	}
}
