// Package api exposes the resolution pipeline over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/deptline/internal/directory"
	"github.com/kalambet/deptline/internal/history"
	"github.com/kalambet/deptline/internal/resolver"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ResolverService is the pipeline surface the API exposes.
type ResolverService interface {
	Resolve(ctx context.Context, query string) resolver.Resolution
	Confirm(query, department, phoneNumber string, confirmed bool) error
	Add(name, phoneNumber string, aliases []string) error
	Departments() []directory.Department
}

// HistoryLister reads the resolution audit log.
type HistoryLister interface {
	ListResolutions(limit, offset int) ([]history.Resolution, error)
}

// AppDeps holds dependencies for the HTTP API.
type AppDeps struct {
	Resolver ResolverService
	History  HistoryLister // optional; if nil, GET /resolutions is unavailable
	Token    string
}

// ResolveRequest asks for a department's phone number.
type ResolveRequest struct {
	Query string `json:"query"`
}

// ResolveResponse mirrors the pipeline outcome.
type ResolveResponse struct {
	Success       bool     `json:"success"`
	Query         string   `json:"query"`
	Interpreted   string   `json:"interpreted,omitempty"`
	Department    string   `json:"department,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Source        string   `json:"source,omitempty"`
	Error         string   `json:"error,omitempty"`
	AllPhones     []string `json:"allPhones,omitempty"`
	URLs          []string `json:"urls,omitempty"`
	LowConfidence bool     `json:"lowConfidence,omitempty"`
}

// ValidateRequest confirms or rejects a web-sourced answer.
type ValidateRequest struct {
	Query      string `json:"query"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Confirmed  bool   `json:"confirmed"`
}

// AddDepartmentRequest inserts a directory record directly.
type AddDepartmentRequest struct {
	Name        string   `json:"name"`
	PhoneNumber string   `json:"phoneNumber"`
	Aliases     []string `json:"aliases"`
}

// NewAppHandler returns the HTTP API. /health is open; everything else
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/resolve", handleResolve(deps))
		r.Post("/validate", handleValidate(deps))
		r.Get("/departments", handleListDepartments(deps))
		r.Post("/departments", handleAddDepartment(deps))
		r.Get("/resolutions", handleListResolutions(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleResolve(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		res := deps.Resolver.Resolve(r.Context(), req.Query)
		writeJSON(w, http.StatusOK, ResolveResponse{
			Success:       res.Found,
			Query:         res.Query,
			Interpreted:   res.Interpreted,
			Department:    res.Department,
			Phone:         res.Phone,
			Source:        res.Source,
			Error:         res.Reason,
			AllPhones:     res.AllPhones,
			URLs:          res.URLs,
			LowConfidence: res.LowConfidence,
		})
	}
}

func handleValidate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" || req.Department == "" || req.Phone == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query, department and phone are required")
			return
		}

		if err := deps.Resolver.Confirm(req.Query, req.Department, req.Phone, req.Confirmed); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "validation failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true, "stored": req.Confirmed})
	}
}

func handleListDepartments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"departments": deps.Resolver.Departments(),
		})
	}
}

func handleAddDepartment(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AddDepartmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" || req.PhoneNumber == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name and phoneNumber are required")
			return
		}

		if err := deps.Resolver.Add(req.Name, req.PhoneNumber, req.Aliases); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "adding department failed: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
	}
}

func handleListResolutions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "resolution history is not available")
			return
		}

		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		records, err := deps.History.ListResolutions(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list resolutions: %v", err)
			return
		}
		if records == nil {
			records = []history.Resolution{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"resolutions": records})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
