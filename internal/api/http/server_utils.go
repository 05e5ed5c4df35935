package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if errors.Is(err, domain.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "already_exists", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrTranscoder) {
		writeError(w, http.StatusInternalServerError, "transcoder_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrStorage) {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrRepository) {
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// parseQualities turns a comma-separated list into qualities, deduplicated
// and validated. An empty value selects every known quality.
func parseQualities(value string) ([]domain.Quality, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return domain.Qualities(), nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]domain.Quality, 0, len(parts))
	seen := make(map[domain.Quality]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		q, err := domain.ParseQuality(item)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if len(out) == 0 {
		return domain.Qualities(), nil
	}
	return out, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
