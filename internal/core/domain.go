package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Custom  Frequency = "custom"
)

const (
	SourceSalary     IncomeSource = "salary"
	SourceFreelance  IncomeSource = "freelance"
	SourceInvestment IncomeSource = "investment"
	SourceRental     IncomeSource = "rental"
	SourceOther      IncomeSource = "other"
)

type (
	// Frequency describes how often a recurring item repeats.
	Frequency string

	// IncomeSource labels where a recurring income comes from.
	IncomeSource string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurringExpense is a template for a periodically repeating expense,
	// distinct from the ledger transactions it generates.
	RecurringExpense struct {
		ID          int64 // Database ID for operations
		Title       string
		Amount      Money
		Category    string
		Every       Frequency
		CustomDays  int // interval for Custom frequency, in days
		NextDueDate Date
		IsActive    bool
		AutoProcess bool
		LastPaid    Date // zero when never paid
	}

	// RecurringIncome is a template for a periodically repeating income,
	// optionally pre-committing fractions of its amount to savings goals.
	RecurringIncome struct {
		ID            int64
		Amount        Money
		Source        IncomeSource
		Description   string
		Every         Frequency
		CustomDays    int
		NextDate      Date
		IsActive      bool
		AutoProcess   bool
		LastGenerated Date // zero when never received
		Allocations   []GoalAllocation
	}

	// GoalAllocation is a percentage of a recurring income pre-committed to a
	// savings goal. Amount is derived from the parent income's amount and must
	// be recomputed before use; a persisted copy is only a cache.
	GoalAllocation struct {
		GoalID     uuid.UUID
		Percentage decimal.Decimal
		Amount     Money
	}

	// Goal is an entry in the external goal registry. Only identity and name
	// are owned here; progress tracking lives elsewhere.
	Goal struct {
		ID       uuid.UUID
		Name     string
		IsActive bool
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidCustomDays  = errors.New("custom frequency requires interval of at least 1 day")
	ErrInvalidPercentage  = errors.New("invalid percentage")
	ErrAllocationOverflow = errors.New("allocations exceed 100% of income")
	ErrDuplicateGoal      = errors.New("duplicate goal in allocation list")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidSource      = errors.New("invalid income source")
	ErrNotFound           = errors.New("not found")
)

// NewDate creates a Date from year, month, day at midnight UTC. Time-of-day is
// irrelevant for scheduling, so every Date in the system is normalized this way.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the whole-day distance from d to other. Negative when
// other is in the past.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String renders the date in ISO form, which is also the storage encoding.
func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// ParseDate parses an ISO yyyy-mm-dd date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (s IncomeSource) Validate() error {
	switch s {
	case SourceSalary, SourceFreelance, SourceInvestment, SourceRental, SourceOther:
		return nil
	default:
		return ErrInvalidSource
	}
}

func (re RecurringExpense) Validate() error {
	if len(strings.TrimSpace(re.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(re.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.Category) == "" {
		return ErrEmptyCategory
	}
	if err := re.Every.Validate(); err != nil {
		return err
	}
	if re.Every == Custom && re.CustomDays < 1 {
		return ErrInvalidCustomDays
	}
	if err := re.NextDueDate.Validate(); err != nil {
		return errors.New("invalid next due date: " + err.Error())
	}
	return nil
}

func (ri RecurringIncome) Validate() error {
	if err := ri.Amount.Validate(); err != nil {
		return err
	}
	if err := ri.Source.Validate(); err != nil {
		return err
	}
	if len(ri.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := ri.Every.Validate(); err != nil {
		return err
	}
	if ri.Every == Custom && ri.CustomDays < 1 {
		return ErrInvalidCustomDays
	}
	if err := ri.NextDate.Validate(); err != nil {
		return errors.New("invalid next date: " + err.Error())
	}
	return ValidateAllocations(ri.Allocations)
}

// ValidateAllocations enforces the two list-level invariants: goal uniqueness
// and the 100% cap. Per-entry percentages must sit in (0, 100].
func ValidateAllocations(allocs []GoalAllocation) error {
	seen := make(map[uuid.UUID]struct{}, len(allocs))
	total := decimal.Zero
	for _, a := range allocs {
		if a.GoalID == uuid.Nil {
			return errors.New("allocation missing goal id")
		}
		if _, dup := seen[a.GoalID]; dup {
			return ErrDuplicateGoal
		}
		seen[a.GoalID] = struct{}{}
		if a.Percentage.LessThanOrEqual(decimal.Zero) || a.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidPercentage
		}
		total = total.Add(a.Percentage)
	}
	if total.GreaterThan(decimal.NewFromInt(100)) {
		return ErrAllocationOverflow
	}
	return nil
}

// Title returns the display title of the income: its description when set,
// otherwise the source label.
func (ri RecurringIncome) Title() string {
	if strings.TrimSpace(ri.Description) != "" {
		return ri.Description
	}
	return string(ri.Source)
}

func (g Goal) Validate() error {
	if g.ID == uuid.Nil {
		return errors.New("goal missing id")
	}
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("empty goal name")
	}
	return nil
}
