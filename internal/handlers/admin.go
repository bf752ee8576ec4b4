package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"admissions-assistant/internal/feedbackstore"
	"admissions-assistant/internal/middleware"
)

// StoreInspector exposes the feedback sink's state to operators.
type StoreInspector interface {
	Status() feedbackstore.Status
	Prepare(ctx context.Context) (feedbackstore.Status, error)
}

type AdminHandler struct {
	store      StoreInspector
	configured func() bool
	logger     *slog.Logger
}

func NewAdminHandler(store StoreInspector, configured func() bool, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{store: store, configured: configured, logger: logger}
}

type storeStatusResponse struct {
	Configured bool `json:"configured"`
	feedbackstore.Status
}

// --- GET /admin/feedback-store ---

func (h *AdminHandler) GetStoreStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeStatusResponse{
		Configured: h.configured(),
		Status:     h.store.Status(),
	})
}

// --- POST /admin/feedback-store/resolve ---

func (h *AdminHandler) ResolveStore(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.Prepare(r.Context())
	if err != nil {
		h.logger.Error("Error preparing feedback store",
			"admin", middleware.GetSubject(r.Context()),
			"kind", feedbackstore.KindOf(err).String(),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, failureMessage(err))
		return
	}

	h.logger.Info("Feedback store prepared by operator",
		"admin", middleware.GetSubject(r.Context()),
		"store_id", status.StoreID,
		"tier", status.Tier,
	)
	writeJSON(w, http.StatusOK, storeStatusResponse{Configured: true, Status: status})
}
