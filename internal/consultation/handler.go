package consultation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc Service
	log zerolog.Logger
}

func NewHandler(svc Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type SearchRequest struct {
	Name string `json:"name"`
}

type ClarifyRequest struct {
	Detail string `json:"detail"`
}

type QuestionRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
	State State  `json:"state,omitempty"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": s.ID.String(),
		"state":      string(s.State),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	h.handleEvent(w, r, SearchRequested{Name: req.Name})
}

func (h *Handler) Clarify(w http.ResponseWriter, r *http.Request) {
	var req ClarifyRequest
	if !decode(w, r, &req) {
		return
	}
	h.handleEvent(w, r, ClarificationProvided{Detail: req.Detail})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !decode(w, r, &req) {
		return
	}
	h.handleEvent(w, r, QuestionAsked{Question: req.Question})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request, ev Event) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	reply, err := h.svc.Handle(r.Context(), id, ev)
	if err != nil {
		h.writeError(w, r, err, reply.State)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	pdf, err := h.svc.RenderReport(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"report_%s.pdf\"", id))
	w.Write(pdf)
}

func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SendReport(r.Context(), id); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps the error taxonomy to HTTP. Unexpected failures get a
// generic message; the detail goes to the log only.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, state State) {
	status, msg := http.StatusBadGateway, "The assistant could not complete this request. Please try again."
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, ErrEmptyInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrChatUnavailable):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, ErrLookupFailed):
		status, msg = http.StatusInternalServerError, "Error: An unexpected error occurred while searching for the patient."
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("url", r.URL.String()).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg, State: state})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/search", h.Search)
	r.Post("/sessions/{id}/clarify", h.Clarify)
	r.Post("/sessions/{id}/questions", h.Ask)
	r.Get("/sessions/{id}/report", h.Report)
	r.Post("/sessions/{id}/report/send", h.SendReport)
}
