/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

CONVENTIONS:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - Dates cross the wire as YYYY-MM-DD strings
  - Money crosses as decimal strings ("1200", "215.50")

SEE ALSO:
  - handlers.go: Uses these types
  - engine/: The domain types these project
*/
package api

import (
	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/tracker"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PeriodDTO is one resolved billing window.
type PeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// OccurrenceDTO is one dated obligation instance inside a window.
type OccurrenceDTO struct {
	ObligationID      string `json:"obligation_id"`
	Title             string `json:"title"`
	Amount            string `json:"amount"`
	Category          string `json:"category,omitempty"`
	Kind              string `json:"type"`
	Date              string `json:"date"`
	InstallmentIndex  *int   `json:"installment_index,omitempty"`
	TotalInstallments *int   `json:"total_installments,omitempty"`
	IsSettled         bool   `json:"is_settled"`
	CardID            string `json:"card_id,omitempty"`
}

// SummaryDTO carries the period aggregates.
type SummaryDTO struct {
	UnsettledExpense string  `json:"unsettled_expense"`
	UnsettledIncome  string  `json:"unsettled_income"`
	SettledExpense   string  `json:"settled_expense"`
	SettledIncome    string  `json:"settled_income"`
	TotalBills       string  `json:"total_bills"`
	ManualIncome     string  `json:"manual_income"`
	ManualExpense    string  `json:"manual_expense"`
	BillsGap         string  `json:"bills_gap"`
	Surplus          string  `json:"surplus"`
	NetProfit        string  `json:"net_profit"`
	RemainingToEarn  string  `json:"remaining_to_earn"`
	IncomeToday      string  `json:"income_today"`
	ProgressRatio    float64 `json:"progress_ratio"`
}

// TargetDTO is the daily target allocation.
type TargetDTO struct {
	Target            string `json:"target"`
	RemainingWorkDays int    `json:"remaining_work_days"`
	FutureWorkDays    int    `json:"future_work_days"`
	TodayIsWorkDay    bool   `json:"today_is_work_day"`
	GoalMet           bool   `json:"goal_met"`
	CycleEnded        bool   `json:"cycle_ended"`
}

// TimelineBlockDTO is one weekly chunk of the remaining cycle.
type TimelineBlockDTO struct {
	Kind     string `json:"kind"`
	Start    string `json:"start"`
	End      string `json:"end"`
	WorkDays int    `json:"work_days"`
	SubGoal  string `json:"sub_goal"`
}

// SavingsDTO is the derived reserve state.
type SavingsDTO struct {
	TotalSaved       string `json:"total_saved"`
	TotalWithdrawn   string `json:"total_withdrawn"`
	ProjectedYearEnd string `json:"projected_year_end"`
}

// CycleViewDTO is the full dashboard payload for one cycle.
type CycleViewDTO struct {
	Period      PeriodDTO          `json:"period"`
	IsCurrent   bool               `json:"is_current"`
	IsFuture    bool               `json:"is_future"`
	Occurrences []OccurrenceDTO    `json:"occurrences"`
	Summary     SummaryDTO         `json:"summary"`
	Target      TargetDTO          `json:"target"`
	Timeline    []TimelineBlockDTO `json:"timeline,omitempty"`
	Savings     SavingsDTO         `json:"savings"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ObligationRequest creates or replaces an obligation series. Obligations
// reuse the persistence JSON shape, so the request embeds it directly.
type ObligationRequest struct {
	Title        string `json:"title"`
	Amount       string `json:"amount"`
	Category     string `json:"category,omitempty"`
	Kind         string `json:"type"`
	AnchorDate   string `json:"startDate"`
	Recurrence   string `json:"recurrence"`
	Installments *int   `json:"installments,omitempty"`
	CardID       string `json:"cardId,omitempty"`
}

// OccurrencePatchRequest edits one occurrence of a series.
type OccurrencePatchRequest struct {
	Title    string `json:"title"`
	Amount   string `json:"amount"`
	Category string `json:"category,omitempty"`
	Kind     string `json:"type"`
	CardID   string `json:"cardId,omitempty"`
}

// TransactionRequest creates or replaces a manual entry.
type TransactionRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Kind        string `json:"type"`
}

// CardRequest creates or replaces a credit card.
type CardRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Limit string `json:"limit,omitempty"`
}

// SettingsRequest replaces the settings record. It mirrors the persistence
// shape of tracker.Settings.
type SettingsRequest = tracker.Settings

// SavingsAdjustmentRequest records extra savings or a withdrawal for a day.
type SavingsAdjustmentRequest struct {
	Extra      string `json:"extra,omitempty"`
	Withdrawal string `json:"withdrawal,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPeriodDTO(p engine.Period) PeriodDTO {
	return PeriodDTO{Start: p.Start.String(), End: p.End.String(), Days: p.Length()}
}

func toOccurrenceDTO(occ engine.Occurrence) OccurrenceDTO {
	return OccurrenceDTO{
		ObligationID:      string(occ.ObligationID),
		Title:             occ.Title,
		Amount:            occ.Amount.String(),
		Category:          occ.Category,
		Kind:              string(occ.Kind),
		Date:              occ.Date.String(),
		InstallmentIndex:  occ.InstallmentIndex,
		TotalInstallments: occ.TotalInstallments,
		IsSettled:         occ.IsSettled,
		CardID:            occ.CardID,
	}
}

func toOccurrenceDTOs(occurrences []engine.Occurrence) []OccurrenceDTO {
	dtos := make([]OccurrenceDTO, len(occurrences))
	for i, occ := range occurrences {
		dtos[i] = toOccurrenceDTO(occ)
	}
	return dtos
}

func toSummaryDTO(s engine.PeriodSummary) SummaryDTO {
	return SummaryDTO{
		UnsettledExpense: s.UnsettledExpense.String(),
		UnsettledIncome:  s.UnsettledIncome.String(),
		SettledExpense:   s.SettledExpense.String(),
		SettledIncome:    s.SettledIncome.String(),
		TotalBills:       s.TotalBills.String(),
		ManualIncome:     s.ManualIncome.String(),
		ManualExpense:    s.ManualExpense.String(),
		BillsGap:         s.BillsGap.String(),
		Surplus:          s.Surplus.String(),
		NetProfit:        s.NetProfit.String(),
		RemainingToEarn:  s.RemainingToEarn.String(),
		IncomeToday:      s.IncomeToday.String(),
		ProgressRatio:    s.ProgressRatio(),
	}
}

func toTargetDTO(t engine.DailyTarget) TargetDTO {
	return TargetDTO{
		Target:            t.Target.String(),
		RemainingWorkDays: t.RemainingWorkDays,
		FutureWorkDays:    t.FutureWorkDays,
		TodayIsWorkDay:    t.TodayIsWorkDay,
		GoalMet:           t.GoalMet,
		CycleEnded:        t.CycleEnded,
	}
}

func toTimelineDTOs(blocks []engine.TimelineBlock) []TimelineBlockDTO {
	if len(blocks) == 0 {
		return nil
	}
	dtos := make([]TimelineBlockDTO, len(blocks))
	for i, b := range blocks {
		dtos[i] = TimelineBlockDTO{
			Kind:     string(b.Kind),
			Start:    b.Start.String(),
			End:      b.End.String(),
			WorkDays: b.WorkDays,
			SubGoal:  b.SubGoal.String(),
		}
	}
	return dtos
}

func toSavingsDTO(s engine.SavingsSummary) SavingsDTO {
	return SavingsDTO{
		TotalSaved:       s.TotalSaved.String(),
		TotalWithdrawn:   s.TotalWithdrawn.String(),
		ProjectedYearEnd: s.ProjectedYearEnd.String(),
	}
}

func toCycleViewDTO(v tracker.CycleView) CycleViewDTO {
	return CycleViewDTO{
		Period:      toPeriodDTO(v.Period),
		IsCurrent:   v.IsCurrent,
		IsFuture:    v.IsFuture,
		Occurrences: toOccurrenceDTOs(v.Occurrences),
		Summary:     toSummaryDTO(v.Summary),
		Target:      toTargetDTO(v.Target),
		Timeline:    toTimelineDTOs(v.Timeline),
		Savings:     toSavingsDTO(v.Savings),
	}
}

func (r ObligationRequest) toObligation() engine.Obligation {
	return engine.Obligation{
		Title:        r.Title,
		Amount:       engine.MustParseMoney(r.Amount),
		Category:     r.Category,
		Kind:         engine.Kind(r.Kind),
		AnchorDate:   engine.DateString(r.AnchorDate),
		Recurrence:   engine.Recurrence(r.Recurrence),
		Installments: r.Installments,
		CardID:       r.CardID,
	}
}

func (r OccurrencePatchRequest) toPatch() tracker.OccurrencePatch {
	return tracker.OccurrencePatch{
		Title:    r.Title,
		Amount:   engine.MustParseMoney(r.Amount),
		Category: r.Category,
		Kind:     engine.Kind(r.Kind),
		CardID:   r.CardID,
	}
}

func (r TransactionRequest) toTransaction() tracker.Transaction {
	return tracker.Transaction{
		Amount:      engine.MustParseMoney(r.Amount),
		Description: r.Description,
		Date:        engine.DateString(r.Date),
		Kind:        engine.Kind(r.Kind),
	}
}
