package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/adwhq/adw-trigger/internal/workflow"
)

// Handler serves read-only JSON views of the run-state store for operators.
type Handler struct {
	store *state.FileStore
}

// NewHandler creates a new run inspection handler.
func NewHandler(store *state.FileStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers the run inspection routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/runs", h.handleRunList).Methods("GET")
	r.HandleFunc("/runs/{adw_id}", h.handleRunDetail).Methods("GET")
}

// handleRunList lists every readable run record, newest update first.
func (h *Handler) handleRunList(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.List()
	if err != nil {
		log.Printf("[Web] Failed to list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*state.State{}
	}
	writeJSON(w, http.StatusOK, runListResponse{Count: len(runs), Runs: runs})
}

// handleRunDetail returns one run record by identifier.
func (h *Handler) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	adwID := mux.Vars(r)["adw_id"]
	if !workflow.IsValidID(adwID) {
		writeError(w, http.StatusBadRequest, "invalid run identifier")
		return
	}

	st, err := h.store.Load(adwID)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		log.Printf("[Web] Failed to load run %s: %v", adwID, err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

type runListResponse struct {
	Count int            `json:"count"`
	Runs  []*state.State `json:"runs"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Web] Failed to encode response: %v", err)
	}
}
