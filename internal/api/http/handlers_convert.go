package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/usecase"
)

// multipartMemoryLimit bounds how much of a multipart body is held in memory
// before spilling to disk. The full upload cap is enforced by MaxBytesReader.
const multipartMemoryLimit = 32 << 20

type convertLocalRequest struct {
	InputPath string `json:"inputPath"`
	AnimeID   string `json:"animeId"`
	EpisodeID string `json:"episodeId"`
	Qualities string `json:"qualities"`
}

type jobListResponse struct {
	Jobs  []domain.ConversionJob `json:"jobs"`
	Count int                    `json:"count"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "video exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart form with a video file")
		return
	}

	file, _, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "video file is required")
		return
	}
	defer file.Close()

	qualities, err := parseQualities(r.FormValue("qualities"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "video exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read video file")
		return
	}

	outcome, err := s.convertVideo.ExecuteBuffer(r.Context(), data, r.FormValue("animeId"), r.FormValue("episodeId"), qualities)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// isBodyTooLarge detects MaxBytesReader hits. The multipart package does not
// always preserve the wrapped *http.MaxBytesError, so the message is checked
// as a fallback.
func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func (s *Server) handleConvertLocal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.convertLocal == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "local conversion is not configured")
		return
	}

	var req convertLocalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	qualities, err := parseQualities(req.Qualities)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	outcome, err := s.convertLocal.Execute(r.Context(), usecase.ConvertVideoInput{
		InputPath: req.InputPath,
		AnimeID:   req.AnimeID,
		EpisodeID: req.EpisodeID,
		Qualities: qualities,
	})
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.getStatus == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "job status is not configured")
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/video-processor/status/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "job id is required")
		return
	}

	job, err := s.getStatus.Execute(domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.listJobs == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "job listing is not configured")
		return
	}

	jobs := s.listJobs.Execute()
	writeJSON(w, http.StatusOK, jobListResponse{Jobs: jobs, Count: len(jobs)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
