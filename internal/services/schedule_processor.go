package services

import (
	"context"
	"fmt"
	"log/slog"

	"cadence/internal/core"
	"cadence/internal/schedule"
)

// maxCatchUp bounds how many periods a single item can advance in one pass,
// so a template with a corrupt date cannot spin the processor forever.
const maxCatchUp = 120

// ScheduleProcessor advances auto-processing recurring items whose date has
// arrived. Items without auto_process are left for the user to pay, skip, or
// receive explicitly.
type ScheduleProcessor struct {
	service *RecurringService
}

// NewScheduleProcessor creates a new schedule processor
func NewScheduleProcessor(service *RecurringService) *ScheduleProcessor {
	return &ScheduleProcessor{service: service}
}

// ProcessDue pays every due auto-processing expense and receives every due
// auto-processing income, catching up one period at a time. Returns how many
// transitions were performed.
func (p *ScheduleProcessor) ProcessDue(ctx context.Context, today core.Date) (int, error) {
	if p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	expenses, err := p.service.ListExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring expenses: %w", err)
	}
	incomes, err := p.service.ListIncomes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring incomes: %w", err)
	}

	slog.InfoContext(ctx, "Processing due recurring items",
		"expenses", len(expenses),
		"incomes", len(incomes),
		"processing_date", today.String())

	processedCount := 0

	for _, e := range expenses {
		if !e.IsActive || !e.AutoProcess {
			continue
		}
		for i := 0; i < maxCatchUp && schedule.IsDue(e.NextDueDate, today); i++ {
			updated, err := p.service.PayExpense(ctx, e.ID, today)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to auto-pay recurring expense",
					"id", e.ID,
					"title", e.Title,
					"error", err)
				break
			}
			e = updated
			processedCount++
		}
	}

	for _, in := range incomes {
		if !in.IsActive || !in.AutoProcess {
			continue
		}
		for i := 0; i < maxCatchUp && schedule.IsDue(in.NextDate, today); i++ {
			updated, err := p.service.ReceiveIncome(ctx, in.ID, today)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to auto-receive recurring income",
					"id", in.ID,
					"source", string(in.Source),
					"error", err)
				break
			}
			in = updated
			processedCount++
		}
	}

	slog.InfoContext(ctx, "Recurring item processing complete",
		"processed", processedCount)

	return processedCount, nil
}
