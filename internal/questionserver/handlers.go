package questionserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/opencode-engine/internal/db"
)

// listPending handles GET /session/{sessionID}/questions
func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	pending, err := s.broker.GetPending(r.Context(), sessionID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if pending == nil {
		pending = []*db.PendingQuestion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// getFirst handles GET /session/{sessionID}/questions/first
func (s *Server) getFirst(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	q, err := s.broker.GetFirst(r.Context(), sessionID)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	if q == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no pending question")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// AnswerRequest is the body for POST .../answer
type AnswerRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// answerQuestion handles POST /session/{sessionID}/questions/{questionID}/answer
func (s *Server) answerQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := s.broker.Answer(questionID, req.Answers, nowMillis()); err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w)
}

// skipQuestion handles POST /session/{sessionID}/questions/{questionID}/skip
func (s *Server) skipQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	if err := s.broker.Skip(questionID, nowMillis()); err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w)
}

// RejectRequest is the body for POST .../reject
type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// rejectQuestion handles POST /session/{sessionID}/questions/{questionID}/reject
func (s *Server) rejectQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")

	var req RejectRequest
	// A reject with no body is valid: it falls back to question.ErrRejected.
	_ = json.NewDecoder(r.Body).Decode(&req)

	var cause error
	if req.Reason != "" {
		cause = rejectReasonError(req.Reason)
	}

	if err := s.broker.Reject(questionID, cause, nowMillis()); err != nil {
		writeAppErr(w, err)
		return
	}
	writeSuccess(w)
}
