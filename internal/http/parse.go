package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"cadence/internal/allocation"
	"cadence/internal/core"
	"cadence/internal/view"
)

type expenseRequest struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	CustomDays  int    `json:"custom_days,omitempty"`
	NextDueDate string `json:"next_due_date"`
	AutoProcess bool   `json:"auto_process"`
}

type incomeRequest struct {
	Amount      string            `json:"amount"`
	Source      string            `json:"source"`
	Description string            `json:"description,omitempty"`
	Frequency   string            `json:"frequency"`
	CustomDays  int               `json:"custom_days,omitempty"`
	NextDate    string            `json:"next_date"`
	AutoProcess bool              `json:"auto_process"`
	Allocations []allocationInput `json:"allocations,omitempty"`
}

type allocationInput struct {
	GoalID     string `json:"goal_id"`
	Enabled    bool   `json:"enabled"`
	Percentage string `json:"percentage"`
}

type goalRequest struct {
	Name string `json:"name"`
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (req expenseRequest) toCore() (core.RecurringExpense, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	due, err := core.ParseDate(req.NextDueDate)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("invalid next due date: %w", err)
	}
	return core.RecurringExpense{
		Title:       req.Title,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Every:       core.Frequency(req.Frequency),
		CustomDays:  req.CustomDays,
		NextDueDate: due,
		IsActive:    true,
		AutoProcess: req.AutoProcess,
	}, nil
}

func (req incomeRequest) toCore() (core.RecurringIncome, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	next, err := core.ParseDate(req.NextDate)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("invalid next date: %w", err)
	}
	allocs, err := toAllocationInputs(req.Allocations)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	built, err := allocation.BuildAllocationList(core.Money{Cents: cents}, allocs)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	return core.RecurringIncome{
		Amount:      core.Money{Cents: cents},
		Source:      core.IncomeSource(req.Source),
		Description: req.Description,
		Every:       core.Frequency(req.Frequency),
		CustomDays:  req.CustomDays,
		NextDate:    next,
		IsActive:    true,
		AutoProcess: req.AutoProcess,
		Allocations: built,
	}, nil
}

func toAllocationInputs(inputs []allocationInput) ([]allocation.Input, error) {
	out := make([]allocation.Input, 0, len(inputs))
	for _, in := range inputs {
		goalID, err := uuid.Parse(in.GoalID)
		if err != nil {
			return nil, fmt.Errorf("invalid goal id %q: %w", in.GoalID, err)
		}
		out = append(out, allocation.Input{
			GoalID:     goalID,
			Enabled:    in.Enabled,
			Percentage: in.Percentage,
		})
	}
	return out, nil
}

// idParam extracts the numeric {id} path segment.
func idParam(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// todayParam reads the optional today query parameter. Transitions anchor on
// the caller's calendar day, not the server clock, so clients in other time
// zones can pass their own date.
func todayParam(r *http.Request) (core.Date, error) {
	raw := r.URL.Query().Get("today")
	if raw == "" {
		return core.DateOf(time.Now()), nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid today parameter: %w", err)
	}
	return d, nil
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	CustomDays  int    `json:"custom_days,omitempty"`
	NextDueDate string `json:"next_due_date"`
	IsActive    bool   `json:"is_active"`
	AutoProcess bool   `json:"auto_process"`
	LastPaid    string `json:"last_paid,omitempty"`
}

type incomeResponse struct {
	ID            int64                `json:"id"`
	AmountCents   int64                `json:"amount_cents"`
	Source        string               `json:"source"`
	Description   string               `json:"description,omitempty"`
	Frequency     string               `json:"frequency"`
	CustomDays    int                  `json:"custom_days,omitempty"`
	NextDate      string               `json:"next_date"`
	IsActive      bool                 `json:"is_active"`
	AutoProcess   bool                 `json:"auto_process"`
	LastGenerated string               `json:"last_generated,omitempty"`
	Allocations   []allocationResponse `json:"allocations"`
}

type allocationResponse struct {
	GoalID      string `json:"goal_id"`
	Percentage  string `json:"percentage"`
	AmountCents int64  `json:"amount_cents"`
}

type goalResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type unifiedItemResponse struct {
	Kind          string `json:"kind"`
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AmountCents   int64  `json:"amount_cents"`
	Frequency     string `json:"frequency"`
	NextDate      string `json:"next_date"`
	IsActive      bool   `json:"is_active"`
	DaysUntilNext int    `json:"days_until_next"`
}

type unifiedResponse struct {
	Active []unifiedItemResponse `json:"active"`
	Paused []unifiedItemResponse `json:"paused"`
}

func toExpenseResponse(e core.RecurringExpense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Frequency:   string(e.Every),
		CustomDays:  e.CustomDays,
		NextDueDate: e.NextDueDate.String(),
		IsActive:    e.IsActive,
		AutoProcess: e.AutoProcess,
	}
	if !e.LastPaid.IsZero() {
		resp.LastPaid = e.LastPaid.String()
	}
	return resp
}

func toIncomeResponse(in core.RecurringIncome) incomeResponse {
	resp := incomeResponse{
		ID:          in.ID,
		AmountCents: in.Amount.Cents,
		Source:      string(in.Source),
		Description: in.Description,
		Frequency:   string(in.Every),
		CustomDays:  in.CustomDays,
		NextDate:    in.NextDate.String(),
		IsActive:    in.IsActive,
		AutoProcess: in.AutoProcess,
		Allocations: make([]allocationResponse, 0, len(in.Allocations)),
	}
	if !in.LastGenerated.IsZero() {
		resp.LastGenerated = in.LastGenerated.String()
	}
	for _, a := range in.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			GoalID:      a.GoalID.String(),
			Percentage:  a.Percentage.String(),
			AmountCents: a.Amount.Cents,
		})
	}
	return resp
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{ID: g.ID.String(), Name: g.Name, IsActive: g.IsActive}
}

func toUnifiedItemResponses(items []view.UnifiedItem) []unifiedItemResponse {
	out := make([]unifiedItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, unifiedItemResponse{
			Kind:          string(it.Kind),
			ID:            it.ID,
			Title:         it.Title,
			AmountCents:   it.Amount.Cents,
			Frequency:     string(it.Every),
			NextDate:      it.NextDate.String(),
			IsActive:      it.IsActive,
			DaysUntilNext: it.DaysUntilNext,
		})
	}
	return out
}
