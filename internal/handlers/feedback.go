package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"admissions-assistant/internal/credentials"
	"admissions-assistant/internal/feedbackstore"
	"admissions-assistant/internal/models"

	"github.com/go-chi/chi/v5/middleware"
)

// maxFeedbackBody bounds a submission; the transcript dominates its size.
const maxFeedbackBody = 2 << 20

// FeedbackRecorder persists one normalized record.
type FeedbackRecorder interface {
	Record(ctx context.Context, rec *models.Feedback) error
}

type FeedbackHandler struct {
	recorder FeedbackRecorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewFeedbackHandler(recorder FeedbackRecorder, logger *slog.Logger) *FeedbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandler{
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// --- POST /feedback ---

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	var req models.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	feedback, replaced, err := req.Normalize(h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if replaced {
		logger.Warn("Unparseable feedback timestamp replaced with submission time", "timestamp", string(req.Timestamp))
	}

	if err := h.recorder.Record(r.Context(), feedback); err != nil {
		logger.Error("Error recording feedback",
			"kind", feedbackstore.KindOf(err).String(),
			"session_id", feedback.SessionID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, failureMessage(err))
		return
	}

	logger.Info("Feedback recorded", "feedback_type", feedback.FeedbackType, "session_id", feedback.SessionID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func failureMessage(err error) string {
	if errors.Is(err, credentials.ErrNotConfigured) {
		return "feedback storage is not configured: " + credentials.ErrNotConfigured.Error()
	}
	switch feedbackstore.KindOf(err) {
	case feedbackstore.KindConfiguration:
		return "feedback storage is not configured"
	case feedbackstore.KindResolution:
		return "failed to locate the feedback spreadsheet"
	case feedbackstore.KindProvisioning:
		return "failed to prepare the feedback sheet"
	case feedbackstore.KindAppend:
		return "failed to save feedback"
	default:
		return "internal server error"
	}
}
