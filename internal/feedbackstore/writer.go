package feedbackstore

import (
	"context"

	"admissions-assistant/internal/models"
	"admissions-assistant/internal/sheets"
)

// AppendRecord writes rec as a new row at the end of the tab. Rows are never
// read back or deduplicated; a retried submission may appear twice.
func (s *Store) AppendRecord(ctx context.Context, svc sheets.Service, storeID, tab string, rec *models.Feedback) error {
	if err := svc.AppendRow(ctx, storeID, tab, rec.Row()); err != nil {
		s.logger.Error("Failed to append feedback row",
			"store_id", storeID,
			"tab", tab,
			"session_id", rec.SessionID,
			"error", err,
		)
		return &Error{Kind: KindAppend, Op: "append row", StoreID: storeID, Err: err}
	}
	return nil
}
