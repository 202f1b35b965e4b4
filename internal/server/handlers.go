package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/solargraph-ai/solarbridge/internal/logging"
	"github.com/solargraph-ai/solarbridge/internal/rpc"
	"github.com/solargraph-ai/solarbridge/internal/supervisor"
)

// analysisRequest is the body of the cursor-position endpoints.
type analysisRequest struct {
	Text     string `json:"text"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Filename string `json:"filename,omitempty"`
}

// resolveRequest is the body of /resolve.
type resolveRequest struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
}

// fileRequest is the body of /prepare and /update.
type fileRequest struct {
	Filename string `json:"filename"`
}

// statusResponse is the body of /status.
type statusResponse struct {
	Started bool   `json:"started"`
	URL     string `json:"url,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Started: s.handle.IsStarted(),
		URL:     s.handle.URL(),
	})
}

func (s *Server) completeHandler(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	reqID := ulid.Make().String()
	logging.Debug().
		Str("request", reqID).
		Str("filename", req.Filename).
		Int("line", req.Line).
		Int("column", req.Column).
		Msg("completion requested")

	candidates := s.orch.GatherCandidates(r.Context(), req.Text, req.Line, req.Column, req.Filename)

	logging.Debug().
		Str("request", reqID).
		Int("candidates", len(candidates)).
		Msg("completion finished")

	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func (s *Server) definition(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	resp, err := s.orch.Define(r.Context(), req.Text, req.Line, req.Column, req.Filename)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) signature(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	resp, err := s.orch.Signify(r.Context(), req.Text, req.Line, req.Column, req.Filename)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path is required")
		return
	}

	resp, err := s.orch.Resolve(r.Context(), req.Path, req.Filename)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) prepare(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	resp, err := s.orch.Prepare(r.Context(), req.Filename)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "filename is required")
		return
	}

	resp, err := s.orch.Update(r.Context(), req.Filename)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) startServer(w http.ResponseWriter, r *http.Request) {
	if err := s.handle.Start(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Started: s.handle.IsStarted(),
		URL:     s.handle.URL(),
	})
}

func (s *Server) stopServer(w http.ResponseWriter, r *http.Request) {
	s.handle.Stop()
	writeSuccess(w)
}

// writeUpstreamError maps supervisor and transport failures onto API errors.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var startupErr *supervisor.StartupError
	if errors.As(err, &startupErr) {
		writeError(w, http.StatusBadGateway, ErrCodeStartupFailed, err.Error())
		return
	}

	var clientErr *rpc.ClientError
	if errors.As(err, &clientErr) {
		writeError(w, http.StatusBadGateway, ErrCodeUpstreamError, err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
}
