/*
handlers_test.go - HTTP-level tests for the API

Tests drive the full router over an in-memory store with a pinned clock,
so responses are deterministic.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/tracker"
	"github.com/warp/billing-engine/tracker/store"
)

// newTestServer builds a router over a fresh in-memory store with today
// pinned to 2024-06-10.
func newTestServer(t *testing.T) (http.Handler, *tracker.Service) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(new(strings.Builder))

	h := NewHandler(store.NewMemory(), log)
	h.Service.Now = func() engine.LocalDate { return engine.NewLocalDate(2024, 6, 10) }
	return NewRouter(h), h.Service
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// =============================================================================
// CYCLE VIEWS
// =============================================================================

func TestGetCycle_DefaultsToToday(t *testing.T) {
	// GIVEN: default settings (calendar-month cycle), today pinned to June 10
	handler, _ := newTestServer(t)

	// WHEN: fetching the cycle without a date parameter
	rec := doJSON(t, handler, http.MethodGet, "/api/cycle", "")

	// THEN: the calendar month of June is returned
	require.Equal(t, http.StatusOK, rec.Code)
	period := decodeBody[PeriodDTO](t, rec)
	assert.Equal(t, "2024-06-01", period.Start)
	assert.Equal(t, "2024-06-30", period.End)
	assert.Equal(t, 30, period.Days)
}

func TestGetCycle_ExplicitDate(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/cycle?date=2024-02-15", "")

	require.Equal(t, http.StatusOK, rec.Code)
	period := decodeBody[PeriodDTO](t, rec)
	assert.Equal(t, "2024-02-01", period.Start)
	assert.Equal(t, "2024-02-29", period.End)
}

func TestGetCycle_RejectsBadDate(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/cycle?date=June+10", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "invalid date")
}

func TestGetSummary_CurrentCycle(t *testing.T) {
	// GIVEN: one monthly expense due inside the current cycle
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "rent", "amount": "1200", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: fetching the summary for today
	rec = doJSON(t, handler, http.MethodGet, "/api/summary", "")

	// THEN: the view carries the occurrence, the gap, and a timeline
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[CycleViewDTO](t, rec)
	assert.True(t, view.IsCurrent)
	assert.False(t, view.IsFuture)
	require.Len(t, view.Occurrences, 1)
	assert.Equal(t, "2024-06-05", view.Occurrences[0].Date)
	assert.Equal(t, "1200", view.Summary.BillsGap)
	assert.Equal(t, "1200", view.Summary.RemainingToEarn)
	assert.NotEmpty(t, view.Timeline)
}

func TestGetSummary_FutureCycleHasNoTimeline(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/summary?date=2024-07-15", "")

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[CycleViewDTO](t, rec)
	assert.False(t, view.IsCurrent)
	assert.True(t, view.IsFuture)
	assert.Empty(t, view.Timeline)
}

// =============================================================================
// OBLIGATIONS OVER HTTP
// =============================================================================

func TestObligationLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	// Create.
	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "motorbike loan", "amount": "215.50", "type": "expense",
		"startDate": "2024-01-15", "recurrence": "installments", "installments": 12
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[engine.Obligation](t, rec)
	require.NotEmpty(t, created.ID)

	// Update keeps the ID and bumps the amount.
	rec = doJSON(t, handler, http.MethodPut, "/api/obligations/"+string(created.ID), `{
		"title": "motorbike loan", "amount": "230", "type": "expense",
		"startDate": "2024-01-15", "recurrence": "installments", "installments": 12
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[engine.Obligation](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.Amount.Equal(engine.NewMoney(230)))

	// Delete, then the list is empty.
	rec = doJSON(t, handler, http.MethodDelete, "/api/obligations/"+string(created.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/obligations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCreateObligation_ValidationMaps400(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "broken", "amount": "-5", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateObligation_Missing404(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/obligations/nope", `{
		"title": "ghost", "amount": "10", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleSettled_ReflectedInSummary(t *testing.T) {
	// GIVEN: a monthly expense occurring on June 5
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "rent", "amount": "1200", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[engine.Obligation](t, rec)

	// WHEN: settling the June occurrence
	path := fmt.Sprintf("/api/obligations/%s/occurrences/2024-06-05/settle", created.ID)
	rec = doJSON(t, handler, http.MethodPost, path, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: the summary shows it settled and the gap closed
	rec = doJSON(t, handler, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[CycleViewDTO](t, rec)
	require.Len(t, view.Occurrences, 1)
	assert.True(t, view.Occurrences[0].IsSettled)
	assert.Equal(t, "0", view.Summary.BillsGap)
	assert.Equal(t, "1200", view.Summary.SettledExpense)
}

func TestExcludeOccurrence_RemovesFromProjection(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "rent", "amount": "1200", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[engine.Obligation](t, rec)

	path := fmt.Sprintf("/api/obligations/%s/occurrences/2024-06-05", created.ID)
	rec = doJSON(t, handler, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// June projects nothing; July still has its occurrence.
	rec = doJSON(t, handler, http.MethodGet, "/api/occurrences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = doJSON(t, handler, http.MethodGet, "/api/occurrences?date=2024-07-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	july := decodeBody[[]OccurrenceDTO](t, rec)
	require.Len(t, july, 1)
	assert.Equal(t, "2024-07-05", july[0].Date)
}

func TestEditOccurrence_SplitsSeries(t *testing.T) {
	// GIVEN: a monthly series
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "rent", "amount": "1200", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[engine.Obligation](t, rec)

	// WHEN: editing only the June occurrence down to 900
	path := fmt.Sprintf("/api/obligations/%s/occurrences/2024-06-05", created.ID)
	rec = doJSON(t, handler, http.MethodPut, path, `{
		"title": "rent (negotiated)", "amount": "900", "type": "expense"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	clone := decodeBody[engine.Obligation](t, rec)
	assert.NotEqual(t, created.ID, clone.ID)
	assert.Equal(t, engine.RecurSingle, clone.Recurrence)

	// THEN: June projects the edited single, July the original series
	rec = doJSON(t, handler, http.MethodGet, "/api/occurrences", "")
	june := decodeBody[[]OccurrenceDTO](t, rec)
	require.Len(t, june, 1)
	assert.Equal(t, "900", june[0].Amount)
	assert.Equal(t, "rent (negotiated)", june[0].Title)

	rec = doJSON(t, handler, http.MethodGet, "/api/occurrences?date=2024-07-10", "")
	july := decodeBody[[]OccurrenceDTO](t, rec)
	require.Len(t, july, 1)
	assert.Equal(t, "1200", july[0].Amount)
}

// =============================================================================
// TRANSACTIONS OVER HTTP
// =============================================================================

func TestTransactionLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/transactions", `{
		"amount": "120.50", "description": "deliveries", "date": "2024-06-08", "type": "income"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[tracker.Transaction](t, rec)
	require.NotEmpty(t, created.ID)

	// The earning shows up in the summary.
	rec = doJSON(t, handler, http.MethodGet, "/api/summary", "")
	view := decodeBody[CycleViewDTO](t, rec)
	assert.Equal(t, "120.5", view.Summary.ManualIncome)

	rec = doJSON(t, handler, http.MethodDelete, "/api/transactions/"+string(created.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/transactions/"+string(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransaction_RejectsZeroAmount(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/transactions", `{
		"amount": "0", "date": "2024-06-08", "type": "income"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CARDS AND SETTINGS
// =============================================================================

func TestCardLifecycle(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/cards", `{
		"name": "visa", "color": "#336699", "limit": "2000"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	card := decodeBody[tracker.CreditCard](t, rec)
	require.NotEmpty(t, card.ID)

	rec = doJSON(t, handler, http.MethodPut, "/api/cards/"+card.ID, `{
		"name": "visa gold", "color": "#ffcc00", "limit": "3000"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/cards", "")
	cards := decodeBody[[]tracker.CreditCard](t, rec)
	require.Len(t, cards, 1)
	assert.Equal(t, "visa gold", cards[0].Name)

	rec = doJSON(t, handler, http.MethodDelete, "/api/cards/"+card.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateSettings_ChangesCycle(t *testing.T) {
	// GIVEN: the cycle start moved to the 20th
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/settings", `{"startDayOfMonth": 20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: June 10 now falls in the May 20 window
	rec = doJSON(t, handler, http.MethodGet, "/api/cycle", "")
	period := decodeBody[PeriodDTO](t, rec)
	assert.Equal(t, "2024-05-20", period.Start)
	assert.Equal(t, "2024-06-19", period.End)
}

func TestUpdateSettings_RejectsBadCycleDay(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/settings", `{"startDayOfMonth": 32}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleDayOff_RoundTrip(t *testing.T) {
	handler, svc := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/settings/days-off/2024-06-12", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []engine.DateString{"2024-06-12"}, settings.DaysOff)

	// Toggling again clears it.
	rec = doJSON(t, handler, http.MethodPost, "/api/settings/days-off/2024-06-12", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdjustSavings_ShowsInSummary(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/settings/savings/2024-06-08", `{"extra": "75"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/summary", "")
	view := decodeBody[CycleViewDTO](t, rec)
	assert.Equal(t, "75", view.Savings.TotalSaved)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

func TestSnapshotRoundTripOverHTTP(t *testing.T) {
	// GIVEN: a store with one obligation and one card
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/obligations", `{
		"title": "rent", "amount": "1200", "type": "expense",
		"startDate": "2024-01-05", "recurrence": "monthly"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/api/cards", `{"name": "visa"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: exporting and importing into a fresh server
	rec = doJSON(t, handler, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	fresh, _ := newTestServer(t)
	rec = doJSON(t, fresh, http.MethodPost, "/api/snapshot", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decodeBody[map[string]int](t, rec)
	assert.Equal(t, 1, counts["obligations"])
	assert.Equal(t, 1, counts["cards"])

	// THEN: the fresh server serves the restored data
	rec = doJSON(t, fresh, http.MethodGet, "/api/obligations", "")
	obligations := decodeBody[[]engine.Obligation](t, rec)
	require.Len(t, obligations, 1)
	assert.Equal(t, "rent", obligations[0].Title)
}

func TestImportSnapshot_RejectsInvalid(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/snapshot", `{
		"obligations": [{"id": "x", "title": "t", "amount": "10",
			"type": "expense", "startDate": "June 5", "recurrence": "monthly"}]
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
