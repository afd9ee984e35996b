package api

import (
	"net/http"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/progress"
	"github.com/ashureev/commcoach/internal/scoring"
)

type feedbackResponse struct {
	domain.FeedbackReport
	ProgressUpdate *progress.Summary `json:"progress_update,omitempty"`
}

// ComputeFeedback scores a session transcript and stores the report. The
// first report for a session is applied to the caller's progress.
func (h *Handler) ComputeFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	messages, err := h.repo.ListMessages(ctx, session.ID)
	if err != nil {
		h.logger.Error("Failed to list messages", "error", err, "session_id", session.ID)
		Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	report := scoring.Analyze(messages, session.Mode, session.Config)
	created, err := h.repo.SaveFeedback(ctx, session.ID, report)
	if err != nil {
		h.logger.Error("Failed to save feedback", "error", err, "session_id", session.ID)
		Error(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	resp := feedbackResponse{FeedbackReport: report}
	if created && h.ledger != nil {
		summary, err := h.ledger.Update(ctx, session.UserID, session.Mode, report)
		if err != nil {
			// The report is stored; progress can be recomputed later.
			h.logger.Error("Failed to update progress", "error", err, "session_id", session.ID)
		} else {
			resp.ProgressUpdate = &summary
		}
	}

	h.logger.Info("Feedback computed",
		"session_id", session.ID,
		"overall", report.Overall,
		"first", created,
	)
	JSON(w, http.StatusOK, resp)
}
