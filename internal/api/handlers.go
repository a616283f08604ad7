package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/reqbot/internal/diagram"
	"github.com/rendis/reqbot/pkg/schema"
)

type messageRequest struct {
	Message string `json:"message"`
}

type contentResponse struct {
	Content string `json:"content"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Service.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Service.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply, err := s.deps.Service.Chat(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Content: reply})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.deps.Service.Extract(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requirements": reqs,
		"by_type":      schema.GroupRequirements(reqs),
	})
}

// handleReport answers 200 whenever the build ran, even if every section
// failed; section errors travel in the body.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Service.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec, err := schema.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Service.RetrySection(r.Context(), chi.URLParam(r, "id"), sec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRender renders a diagram without calling the oracle. PNG output is
// returned as raw bytes; every other format as JSON.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := diagram.ParseFormat(strings.ToLower(r.URL.Query().Get("format")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var d diagram.Diagram
	if err := decodeBody(r, &d, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := diagram.RenderFormat(r.Context(), &d, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case diagram.FormatPNG:
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Image)
	case diagram.FormatSVG:
		writeJSON(w, http.StatusOK, map[string]any{"content": string(out.Image), "diagnostics": out.Diagnostics})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"content": out.Markup, "diagnostics": out.Diagnostics})
	}
}
