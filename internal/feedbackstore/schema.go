package feedbackstore

import (
	"context"
	"slices"

	"admissions-assistant/internal/models"
	"admissions-assistant/internal/sheets"
)

// EnsureTab makes sure the spreadsheet has a tab named tab with the feedback
// header. It runs before every append because tabs can be removed
// out-of-band.
func (s *Store) EnsureTab(ctx context.Context, svc sheets.Service, storeID, tab string) error {
	tabs, err := svc.ListTabs(ctx, storeID)
	if err != nil {
		s.logger.Error("Failed to list spreadsheet tabs", "store_id", storeID, "tab", tab, "error", err)
		return &Error{Kind: KindProvisioning, Op: "list tabs", StoreID: storeID, Err: err}
	}
	if slices.Contains(tabs, tab) {
		return s.ensureHeader(ctx, svc, storeID, tab)
	}

	if err := svc.AddTab(ctx, storeID, tab, models.Header); err != nil {
		// Another request may have added it first, or the add left the tab
		// behind without its header.
		if again, listErr := svc.ListTabs(ctx, storeID); listErr == nil && slices.Contains(again, tab) {
			s.forgetHeader(storeID, tab)
			return s.ensureHeader(ctx, svc, storeID, tab)
		}
		s.logger.Error("Failed to create feedback tab", "store_id", storeID, "tab", tab, "error", err)
		return &Error{Kind: KindProvisioning, Op: "create tab " + tab, StoreID: storeID, Err: err}
	}

	s.markHeader(storeID, tab)
	s.logger.Info("Created feedback tab", "store_id", storeID, "tab", tab)
	return nil
}

// ensureHeader writes the header into row 1 when it is empty. A tab is
// checked once per process; row 1 is left alone when it holds anything.
func (s *Store) ensureHeader(ctx context.Context, svc sheets.Service, storeID, tab string) error {
	if s.headerChecked(storeID, tab) {
		return nil
	}

	row, err := svc.Header(ctx, storeID, tab)
	if err != nil {
		s.logger.Error("Failed to read feedback tab header", "store_id", storeID, "tab", tab, "error", err)
		return &Error{Kind: KindProvisioning, Op: "read header of " + tab, StoreID: storeID, Err: err}
	}

	switch {
	case len(row) == 0:
		if err := svc.WriteHeader(ctx, storeID, tab, models.Header); err != nil {
			s.logger.Error("Failed to write feedback tab header", "store_id", storeID, "tab", tab, "error", err)
			return &Error{Kind: KindProvisioning, Op: "write header of " + tab, StoreID: storeID, Err: err}
		}
		s.logger.Info("Wrote missing feedback tab header", "store_id", storeID, "tab", tab)
	case !slices.Equal(row, models.Header):
		s.logger.Warn("Feedback tab header differs from the expected columns", "store_id", storeID, "tab", tab, "header", row)
	}

	s.markHeader(storeID, tab)
	return nil
}

func headerKey(storeID, tab string) string {
	return storeID + "\x00" + tab
}

func (s *Store) headerChecked(storeID, tab string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers[headerKey(storeID, tab)]
}

func (s *Store) markHeader(storeID, tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[headerKey(storeID, tab)] = true
}

func (s *Store) forgetHeader(storeID, tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.headers, headerKey(storeID, tab))
}
