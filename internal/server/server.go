// Package server exposes the upload engine over HTTP: upload
// negotiation endpoints for clients and redirect endpoints that hand
// browsers presigned store URLs.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lxp135/minio-plus/internal/engine"
)

// maxImageBytes bounds single-shot image bodies accepted by the gateway.
const maxImageBytes = 32 << 20

// Server routes HTTP requests to the upload engine.
type Server struct {
	eng *engine.Engine
}

// NewServer returns a Server over the given engine.
func NewServer(eng *engine.Engine) *Server {
	return &Server{eng: eng}
}

type shardingRequest struct {
	FileSize int64 `json:"fileSize"`
}

type initRequest struct {
	FileMD5   string `json:"fileMd5"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	IsPrivate bool   `json:"isPrivate"`
}

type completeRequest struct {
	PartMD5List []string `json:"partMd5List"`
}

type removeResponse struct {
	Removed bool `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// userID identifies the caller. Authentication happens upstream; the
// gateway trusts the forwarded header.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response", "err", err)
	}
}

// writeError maps engine sentinels to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrPermission):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	default:
		slog.Error("Request failed", "method", r.Method, "url", r.URL.String(), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func (s *Server) handleSharding(w http.ResponseWriter, r *http.Request) {
	var req shardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan, err := s.eng.ComputePartitionPlan(req.FileSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.eng.Init(r.Context(), req.FileMD5, req.FileName, req.FileSize, req.IsPrivate, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.eng.Complete(r.Context(), r.PathValue("fileKey"), req.PartMD5List, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "image body too large"})
		return
	}

	if err := s.eng.UploadImage(r.Context(), r.PathValue("fileKey"), data); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	removed, err := s.eng.Remove(r.Context(), r.PathValue("fileKey"), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: removed})
}

// redirect sends the browser to a presigned store URL. The URL
// accessors fall back to the failure route instead of erroring.
func redirect(w http.ResponseWriter, r *http.Request, u string) {
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, s.eng.DownloadURL(r.Context(), r.PathValue("fileKey"), userID(r)))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, s.eng.ImageURL(r.Context(), r.PathValue("fileKey"), userID(r)))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, s.eng.PreviewURL(r.Context(), r.PathValue("fileKey"), userID(r)))
}

func (s *Server) handleFailure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "file unavailable"})
}
