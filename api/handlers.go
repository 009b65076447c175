/*
handlers.go - HTTP API handlers for the billing-cycle tracker

PURPOSE:
  Exposes the tracker via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the tracker service.

ENDPOINTS:
  Cycle views:
    GET    /api/cycle?date=            Resolved billing window for a date
    GET    /api/occurrences?date=      Projected occurrences for that cycle
    GET    /api/summary?date=          Full dashboard view (summary, target,
                                       timeline, savings)

  Obligations:
    GET    /api/obligations            List all series
    POST   /api/obligations            Create a series
    PUT    /api/obligations/{id}       Edit a whole series
    DELETE /api/obligations/{id}       Delete a series
    POST   /api/obligations/{id}/occurrences/{date}/settle  Toggle paid
    PUT    /api/obligations/{id}/occurrences/{date}         Split-edit one
    DELETE /api/obligations/{id}/occurrences/{date}         Exclude one

  Transactions:
    GET    /api/transactions           List manual entries
    POST   /api/transactions           Record an entry
    PUT    /api/transactions/{id}      Edit an entry
    DELETE /api/transactions/{id}      Delete an entry

  Cards, settings, snapshot:
    GET/POST/PUT/DELETE /api/cards...
    GET/PUT /api/settings
    POST /api/settings/days-off/{date}        Toggle a day off
    POST /api/settings/savings/{date}         Toggle a saved day
    PUT  /api/settings/savings/{date}         Record adjustment/withdrawal
    GET/POST /api/snapshot                    Export/import app data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed dates or amounts
  - 404: Record not found
  - 500: Internal errors (logged; details stay server-side)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/tracker"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *tracker.Service
	Store   tracker.Store
	Log     *logrus.Logger
}

// NewHandler creates a handler over the given store.
func NewHandler(st tracker.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Service: tracker.NewService(st),
		Store:   st,
		Log:     log,
	}
}

// =============================================================================
// CYCLE VIEWS
// =============================================================================

// GetCycle returns the billing window containing the date parameter
// (default today).
// GET /api/cycle?date=2024-06-10
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		h.serverError(w, "failed to load settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toPeriodDTO(settings.CycleConfig().Resolve(ref)))
}

// GetOccurrences returns the projected occurrences for the cycle containing
// the date parameter.
// GET /api/occurrences?date=2024-06-10
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		h.serverError(w, "failed to load settings", err)
		return
	}
	period := settings.CycleConfig().Resolve(ref)

	occurrences, err := h.Service.OccurrencesFor(r.Context(), period)
	if err != nil {
		h.serverError(w, "failed to project occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occurrences))
}

// GetSummary returns the full dashboard view for the cycle containing the
// date parameter.
// GET /api/summary?date=2024-06-10
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	view, err := h.Service.ViewFor(r.Context(), ref)
	if err != nil {
		h.serverError(w, "failed to assemble cycle view", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleViewDTO(view))
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

// ListObligations returns every stored series.
// GET /api/obligations
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	obligations, err := h.Service.Obligations(r.Context())
	if err != nil {
		h.serverError(w, "failed to list obligations", err)
		return
	}
	if obligations == nil {
		obligations = []engine.Obligation{}
	}
	writeJSON(w, http.StatusOK, obligations)
}

// CreateObligation creates a new series.
// POST /api/obligations
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	var req ObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.Service.CreateObligation(r.Context(), req.toObligation())
	if err != nil {
		h.domainError(w, "failed to create obligation", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateObligation edits a whole series; exclusion and settlement sets are
// preserved server-side.
// PUT /api/obligations/{id}
func (h *Handler) UpdateObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))

	var req ObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	o := req.toObligation()
	o.ID = id
	if err := h.Service.UpdateObligation(r.Context(), o); err != nil {
		h.domainError(w, "failed to update obligation", err)
		return
	}

	updated, err := h.Service.GetObligation(r.Context(), id)
	if err != nil {
		h.domainError(w, "failed to reload obligation", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteObligation removes a series and all its occurrences.
// DELETE /api/obligations/{id}
func (h *Handler) DeleteObligation(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteObligation(r.Context(), id); err != nil {
		h.domainError(w, "failed to delete obligation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleSettled flips the paid state of one occurrence.
// POST /api/obligations/{id}/occurrences/{date}/settle
func (h *Handler) ToggleSettled(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	date := engine.DateString(chi.URLParam(r, "date"))

	if err := h.Service.ToggleSettled(r.Context(), id, date); err != nil {
		h.domainError(w, "failed to toggle settlement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExcludeOccurrence removes one occurrence from a series.
// DELETE /api/obligations/{id}/occurrences/{date}
func (h *Handler) ExcludeOccurrence(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	date := engine.DateString(chi.URLParam(r, "date"))

	if err := h.Service.ExcludeOccurrence(r.Context(), id, date); err != nil {
		h.domainError(w, "failed to exclude occurrence", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditOccurrence split-edits one occurrence of a series and returns the
// resulting obligation (the clone, or the series itself for singles).
// PUT /api/obligations/{id}/occurrences/{date}
func (h *Handler) EditOccurrence(w http.ResponseWriter, r *http.Request) {
	id := engine.ObligationID(chi.URLParam(r, "id"))
	date := engine.DateString(chi.URLParam(r, "date"))

	var req OccurrencePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.Service.EditOccurrence(r.Context(), id, date, req.toPatch())
	if err != nil {
		h.domainError(w, "failed to edit occurrence", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// ListTransactions returns every manual entry, ordered by date.
// GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.Service.Transactions(r.Context())
	if err != nil {
		h.serverError(w, "failed to list transactions", err)
		return
	}
	if transactions == nil {
		transactions = []tracker.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// CreateTransaction records a manual entry.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.Service.AddTransaction(r.Context(), req.toTransaction())
	if err != nil {
		h.domainError(w, "failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTransaction replaces a manual entry.
// PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := engine.TransactionID(chi.URLParam(r, "id"))

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tx := req.toTransaction()
	tx.ID = id
	if err := h.Service.UpdateTransaction(r.Context(), tx); err != nil {
		h.domainError(w, "failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction removes a manual entry.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := engine.TransactionID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteTransaction(r.Context(), id); err != nil {
		h.domainError(w, "failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

// ListCards returns all cards.
// GET /api/cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.Cards(r.Context())
	if err != nil {
		h.serverError(w, "failed to list cards", err)
		return
	}
	if cards == nil {
		cards = []tracker.CreditCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// CreateCard adds a card.
// POST /api/cards
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.Service.SaveCard(r.Context(), tracker.CreditCard{
		Name:  req.Name,
		Color: req.Color,
		Limit: engine.MustParseMoney(req.Limit),
	})
	if err != nil {
		h.domainError(w, "failed to save card", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCard replaces a card.
// PUT /api/cards/{id}
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	updated, err := h.Service.SaveCard(r.Context(), tracker.CreditCard{
		ID:    id,
		Name:  req.Name,
		Color: req.Color,
		Limit: engine.MustParseMoney(req.Limit),
	})
	if err != nil {
		h.domainError(w, "failed to save card", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCard removes a card and unlinks its obligations.
// DELETE /api/cards/{id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, "failed to delete card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns the settings record.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		h.serverError(w, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the settings record. Cycle day values are
// validated here, at the boundary.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), req); err != nil {
		h.domainError(w, "failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ToggleDayOff flips a day-off marker.
// POST /api/settings/days-off/{date}
func (h *Handler) ToggleDayOff(w http.ResponseWriter, r *http.Request) {
	date := engine.DateString(chi.URLParam(r, "date"))
	if err := h.Service.ToggleDayOff(r.Context(), date); err != nil {
		h.domainError(w, "failed to toggle day off", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleSavingsDay flips a saved-day marker.
// POST /api/settings/savings/{date}
func (h *Handler) ToggleSavingsDay(w http.ResponseWriter, r *http.Request) {
	date := engine.DateString(chi.URLParam(r, "date"))
	if err := h.Service.ToggleSavingsDay(r.Context(), date); err != nil {
		h.domainError(w, "failed to toggle savings day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustSavings records extra savings or a withdrawal for a day.
// PUT /api/settings/savings/{date}
func (h *Handler) AdjustSavings(w http.ResponseWriter, r *http.Request) {
	date := engine.DateString(chi.URLParam(r, "date"))

	var req SavingsAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	err := h.Service.AdjustSavings(r.Context(), date,
		engine.MustParseMoney(req.Extra), engine.MustParseMoney(req.Withdrawal))
	if err != nil {
		h.domainError(w, "failed to adjust savings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// ExportSnapshot dumps the whole store as a JSON blob.
// GET /api/snapshot
func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := factory.Export(r.Context(), h.Store)
	if err != nil {
		h.serverError(w, "failed to export snapshot", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportSnapshot restores a JSON blob into the store.
// POST /api/snapshot
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	snap, err := factory.ParseSnapshot(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot", err)
		return
	}

	if err := factory.Restore(r.Context(), h.Store, snap); err != nil {
		h.serverError(w, "failed to restore snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"obligations":  len(snap.Obligations),
		"transactions": len(snap.Transactions),
		"cards":        len(snap.Cards),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam reads the optional ?date= query parameter, defaulting to today.
// Writes a 400 and returns false on a malformed value.
func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (engine.LocalDate, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.Service.Now(), true
	}
	d, err := engine.ParseLocalDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter (use YYYY-MM-DD)", err)
		return engine.LocalDate{}, false
	}
	return d, true
}

// domainError maps service errors onto HTTP statuses: validation failures
// are the client's fault, missing records are 404, the rest is ours.
func (h *Handler) domainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found", nil)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.serverError(w, message, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.Log.WithError(err).Error(message)
	writeError(w, http.StatusInternalServerError, message, nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
