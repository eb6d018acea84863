package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jlkwl/supermarket/internal/domain"
)

type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) (int64, error)
	ListAll(ctx context.Context) ([]domain.Feedback, error)
}

type FeedbackHandler struct {
	feedback FeedbackRepository
}

func NewFeedbackHandler(feedback FeedbackRepository) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type FeedbackRequestDTO struct {
	Email   string `json:"email"`
	Address string `json:"address"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type FeedbackDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// POST /api/v1/feedback
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := getPrincipal(r.Context())

	var req FeedbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "subject and message are required")
		return
	}

	entry := &domain.Feedback{
		UserID:   p.UserID,
		Username: p.Username,
		Email:    req.Email,
		Address:  req.Address,
		Subject:  req.Subject,
		Message:  req.Message,
	}
	id, err := h.feedback.Create(r.Context(), entry)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not save feedback")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GET /api/v1/admin/feedback
func (h *FeedbackHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.feedback.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list feedback")
		return
	}

	out := make([]FeedbackDTO, 0, len(entries))
	for _, f := range entries {
		out = append(out, FeedbackDTO{
			ID:        f.ID,
			Username:  f.Username,
			Email:     f.Email,
			Subject:   f.Subject,
			Message:   f.Message,
			CreatedAt: f.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
