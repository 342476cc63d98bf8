package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"mixlens/core/jobs"
	"mixlens/core/plot"
	"mixlens/logger"
	"mixlens/model"
)

const maxUploadMemory = 32 << 20

var plotNames = map[string]bool{
	plot.NameLoudnessUser: true,
	plot.NameLoudnessRef:  true,
	plot.NameFreqBars:     true,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze stores the two uploads and queues a job for them.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	uploadDir := filepath.Join(s.cfg.WorkDir, "uploads", uuid.New().String())
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create upload directory")
		return
	}

	userPath, err := saveFormFile(r, "user_file", uploadDir, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	refPath, err := saveFormFile(r, "ref_file", uploadDir, "ref")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.deps.Runner.Submit(r.Context(), userPath, refPath)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error(), "job_id": id})
		return
	case errors.Is(err, jobs.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		logger.Error("Failed to submit job", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to submit job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

// saveFormFile copies the form file field into dir as <side><ext>.
func saveFormFile(r *http.Request, field, dir, side string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing '%s' in form", field)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".dat"
	}
	dest := filepath.Join(dir, side+ext)
	if err := saveUploadedFile(file, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func saveUploadedFile(file multipart.File, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		return fmt.Errorf("failed to copy uploaded file to %s: %w", destPath, err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.deps.Runner.Store().Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unknown"})
		return
	}
	if err != nil {
		logger.Error("Failed to read job", logger.JobID(id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to read job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleResult returns the result document with plot paths replaced by URLs.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := s.deps.Runner.Store().Result(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) || errors.Is(err, jobs.ErrNotReady) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "not ready"})
		return
	}
	if err != nil {
		logger.Error("Failed to read result", logger.JobID(id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to read result")
		return
	}

	out := *res
	out.Plots = make(map[string]string, len(res.Plots))
	for name := range res.Plots {
		out.Plots[name] = fmt.Sprintf("/api/plots/%s/%s", id, name)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.deps.History.ListRecent(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list history", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if recs == nil {
		recs = []*model.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handlePlot serves a plot PNG from the job directory, or from the artifact
// store when the local copy is gone.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, name := vars["id"], strings.TrimSuffix(vars["name"], ".png")
	if _, err := uuid.Parse(id); err != nil || !plotNames[name] {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	file := name + ".png"

	local := filepath.Join(s.deps.Runner.Dir(id), file)
	if _, err := os.Stat(local); err == nil {
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, local)
		return
	}

	if s.deps.Artifacts == nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	obj, err := s.deps.Artifacts.Open(r.Context(), id, file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to open artifact", logger.JobID(id), logger.ErrorField(err))
		}
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("Error serving artifact", logger.JobID(id), logger.ErrorField(err))
	}
}
