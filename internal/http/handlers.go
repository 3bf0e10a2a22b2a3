package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"cadence/internal/view"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleUnified(w http.ResponseWriter, r *http.Request) {
	today, err := todayParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	cacheKey := "unified:" + today.String()
	items, ok := s.viewCache.Get(cacheKey)
	if !ok {
		items, err = s.service.Unified(r.Context(), today)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.viewCache.Set(cacheKey, items)
	}

	filter := view.TypeFilter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = view.FilterAll
	}
	filtered := view.ApplyTypeFilter(items, filter)
	active, paused := view.PartitionActivePaused(filtered)

	respondJSON(w, http.StatusOK, unifiedResponse{
		Active: toUnifiedItemResponses(active),
		Paused: toUnifiedItemResponses(paused),
	})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	today, err := todayParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	days := s.upcomingDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 || days > 365 {
			respondBadRequest(w, fmt.Sprintf("invalid days parameter %q", raw))
			return
		}
	}

	cacheKey := fmt.Sprintf("upcoming:%s:%d", today, days)
	items, ok := s.viewCache.Get(cacheKey)
	if !ok {
		items, err = s.service.Upcoming(r.Context(), today, days)
		if err != nil {
			respondError(w, r, err)
			return
		}
		s.viewCache.Set(cacheKey, items)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": toUnifiedItemResponses(items),
		"days":  days,
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	expense, err := req.toCore()
	if err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.CreateExpense(r.Context(), expense)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	expense, err := s.service.GetExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	expense, err := req.toCore()
	if err != nil {
		respondError(w, r, err)
		return
	}
	expense.ID = id
	// Updating the template never changes its paused state.
	current, err := s.service.GetExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	expense.IsActive = current.IsActive
	expense.LastPaid = current.LastPaid

	updated, err := s.service.UpdateExpense(r.Context(), expense)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := s.service.DeleteExpense(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePauseExpense(w http.ResponseWriter, r *http.Request) {
	s.expenseTransition(w, r, func(id int64) error {
		return s.service.PauseExpense(r.Context(), id)
	})
}

func (s *Server) handleResumeExpense(w http.ResponseWriter, r *http.Request) {
	s.expenseTransition(w, r, func(id int64) error {
		return s.service.ResumeExpense(r.Context(), id)
	})
}

// expenseTransition runs a state change and replies with the refreshed expense.
func (s *Server) expenseTransition(w http.ResponseWriter, r *http.Request, fn func(id int64) error) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := fn(id); err != nil {
		respondError(w, r, err)
		return
	}
	expense, err := s.service.GetExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handlePayExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	today, err := todayParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	expense, err := s.service.PayExpense(r.Context(), id, today)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleSkipExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	expense, err := s.service.SkipExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.service.ListIncomes(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]incomeResponse, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, toIncomeResponse(in))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := req.toCore()
	if err != nil {
		respondError(w, r, err)
		return
	}
	created, err := s.service.CreateIncome(r.Context(), income)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusCreated, toIncomeResponse(created))
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := s.service.GetIncome(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := req.toCore()
	if err != nil {
		respondError(w, r, err)
		return
	}
	income.ID = id
	current, err := s.service.GetIncome(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	income.IsActive = current.IsActive
	income.LastGenerated = current.LastGenerated
	if req.Allocations == nil {
		// Absent allocations means keep the existing set.
		income.Allocations = current.Allocations
	}

	updated, err := s.service.UpdateIncome(r.Context(), income)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toIncomeResponse(updated))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := s.service.DeleteIncome(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePauseIncome(w http.ResponseWriter, r *http.Request) {
	s.incomeTransition(w, r, func(id int64) error {
		return s.service.PauseIncome(r.Context(), id)
	})
}

func (s *Server) handleResumeIncome(w http.ResponseWriter, r *http.Request) {
	s.incomeTransition(w, r, func(id int64) error {
		return s.service.ResumeIncome(r.Context(), id)
	})
}

func (s *Server) incomeTransition(w http.ResponseWriter, r *http.Request, fn func(id int64) error) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if err := fn(id); err != nil {
		respondError(w, r, err)
		return
	}
	income, err := s.service.GetIncome(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleReceiveIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	today, err := todayParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := s.service.ReceiveIncome(r.Context(), id, today)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleSkipIncome(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := s.service.SkipIncome(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handleSetAllocations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	var req []allocationInput
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	inputs, err := toAllocationInputs(req)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	income, err := s.service.SetAllocations(r.Context(), id, inputs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, toIncomeResponse(income))
}

func (s *Server) handlePreviewAllocations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	var req []allocationInput
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	inputs, err := toAllocationInputs(req)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	preview, err := s.service.PreviewAllocations(r.Context(), id, inputs)
	if err != nil {
		respondError(w, r, err)
		return
	}

	allocs := make([]allocationResponse, 0, len(preview.Allocations))
	for _, a := range preview.Allocations {
		allocs = append(allocs, allocationResponse{
			GoalID:      a.GoalID.String(),
			Percentage:  a.Percentage.String(),
			AmountCents: a.Amount.Cents,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"allocations":     allocs,
		"total":           preview.Total,
		"remaining_cents": preview.Remaining.Cents,
		"valid":           preview.Valid,
	})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.service.ListGoals(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondBadRequest(w, "goal name is required")
		return
	}
	goal, err := s.service.CreateGoal(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleActivateGoal(w http.ResponseWriter, r *http.Request) {
	s.goalActive(w, r, true)
}

func (s *Server) handleDeactivateGoal(w http.ResponseWriter, r *http.Request) {
	s.goalActive(w, r, false)
}

func (s *Server) goalActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondBadRequest(w, "invalid goal id")
		return
	}
	if err := s.service.SetGoalActive(r.Context(), id, active); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
