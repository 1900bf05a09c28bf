package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/contactgain/internal/api"
	httpmw "github.com/wolfeidau/contactgain/internal/http"
	"github.com/wolfeidau/contactgain/internal/logger"
)

const maxRequestBytes = 64 << 10

// Server exposes a SessionService as a JSON HTTP API.
type Server struct {
	service *SessionService
}

// NewServer creates a new server for the given service
func NewServer(service *SessionService) *Server {
	return &Server{
		service: service,
	}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /api/durations", s.listDurations)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("POST /api/sessions/{id}/contacts", s.addContact)
	mux.HandleFunc("POST /api/sessions/{id}/download", s.download)
	mux.HandleFunc("POST /api/sessions/{id}/hide", s.hideSession)

	var handler http.Handler = mux
	handler = httpmw.CreatorIDMiddleware()(handler)
	handler = logger.Middleware(log)(handler)
	handler = httpmw.ClientIPMiddleware()(handler)

	return handler
}

// listDurations serves the create form presets. They only change with a release.
func (s *Server) listDurations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	writeJSON(w, http.StatusOK, api.NewDurationList())
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	creatorID := httpmw.CreatorIDFromContext(r.Context())

	session, err := s.service.CreateSession(r.Context(), creatorID, CreateSessionInput{
		Name:         req.Name,
		WhatsAppLink: req.WhatsAppLink,
		Duration:     req.Duration,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sessions/"+session.SessionID)
	writeJSON(w, http.StatusCreated, api.NewSession(session, s.service.Now(), creatorID))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.ListMySessions(r.Context(), httpmw.CreatorIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := s.service.Now()
	resp := api.SessionList{Sessions: make([]api.SessionSummary, 0, len(summaries))}
	for _, summary := range summaries {
		resp.Sessions = append(resp.Sessions, api.NewSessionSummary(summary, now))
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, api.NewSession(session, s.service.Now(), httpmw.CreatorIDFromContext(r.Context())))
}

func (s *Server) addContact(w http.ResponseWriter, r *http.Request) {
	var req api.AddContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	contact, err := s.service.AddContact(r.Context(), r.PathValue("id"), req.Name, req.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.NewContact(contact))
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	file, err := s.service.Download(r.Context(), r.PathValue("id"), httpmw.CreatorIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(api.DownloadCountHeader, strconv.Itoa(file.DownloadCount))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

func (s *Server) hideSession(w http.ResponseWriter, r *http.Request) {
	err := s.service.HideSession(r.Context(), r.PathValue("id"), httpmw.CreatorIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return validationError("request body too large")
		}
		return newError(CodeValidation, "request body must be a JSON object", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := CodeOf(err)

	message := "something went wrong, please try again"
	var svcErr *Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	zerolog.Ctx(r.Context()).Debug().Err(err).Str("code", string(code)).Msg("request failed")

	writeJSON(w, code.HTTPStatus(), api.ErrorResponse{
		Error:   string(code),
		Message: message,
	})
}
