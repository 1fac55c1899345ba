package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	yaml "gopkg.in/yaml.v3"

	"antroute/internal/opt"
	"antroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, opt.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, opt.ErrIterationLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, opt.ErrBusy):
		status = http.StatusConflict
	}
	writeProblem(w, status, title, err.Error(), r.URL.Path)
}

const maxBody = 4 << 20

// decodeBody reads a JSON or YAML body depending on Content-Type.
func decodeBody(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBody)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		if err := yaml.NewDecoder(body).Decode(v); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return nil
}
