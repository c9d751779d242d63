package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

const (
	// DefaultMaxHoursPerDay is the cutting-time budget for one working day.
	DefaultMaxHoursPerDay = 8
	// DefaultCapacityWarnRatio flags a day as near-full once utilization
	// after the new entry would cross it.
	DefaultCapacityWarnRatio = 0.90
)

// CapacityResult reports whether a day can absorb more cutting minutes.
type CapacityResult struct {
	Valid            bool           `json:"valid"`
	Severity         enums.Severity `json:"severity"`
	Message          string         `json:"message"`
	UsedMinutes      int            `json:"used_minutes"`
	RequiredMinutes  int            `json:"required_minutes"`
	AvailableMinutes int            `json:"available_minutes"`
	TotalMinutes     int            `json:"total_minutes"`
	UtilizationAfter float64        `json:"utilization_after"`
}

// CapacityValidator checks the per-day cutting-minutes budget. WithTx binds
// the check to an enclosing transaction so the minutes it sums cannot drift
// from the insert they guard.
type CapacityValidator interface {
	WithTx(tx *gorm.DB) CapacityValidator
	Validate(ctx context.Context, date time.Time, requiredMinutes int) (*CapacityResult, error)
}

type capacityValidator struct {
	repo           Repository
	maxHoursPerDay int
	warnRatio      float64
}

// NewCapacityValidator wires a capacity validator. Non-positive limits fall
// back to the defaults.
func NewCapacityValidator(repo Repository, maxHoursPerDay int, warnRatio float64) (CapacityValidator, error) {
	if repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if maxHoursPerDay <= 0 {
		maxHoursPerDay = DefaultMaxHoursPerDay
	}
	if warnRatio <= 0 || warnRatio > 1 {
		warnRatio = DefaultCapacityWarnRatio
	}
	return &capacityValidator{
		repo:           repo,
		maxHoursPerDay: maxHoursPerDay,
		warnRatio:      warnRatio,
	}, nil
}

func (v *capacityValidator) WithTx(tx *gorm.DB) CapacityValidator {
	if tx == nil {
		return v
	}
	return &capacityValidator{
		repo:           v.repo.WithTx(tx),
		maxHoursPerDay: v.maxHoursPerDay,
		warnRatio:      v.warnRatio,
	}
}

func (v *capacityValidator) Validate(ctx context.Context, date time.Time, requiredMinutes int) (*CapacityResult, error) {
	if requiredMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "required minutes cannot be negative")
	}

	used, err := v.repo.SumActiveMinutesOnDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum scheduled minutes")
	}

	total := v.maxHoursPerDay * 60
	available := total - used
	result := &CapacityResult{
		UsedMinutes:      used,
		RequiredMinutes:  requiredMinutes,
		AvailableMinutes: available,
		TotalMinutes:     total,
		UtilizationAfter: float64(used+requiredMinutes) / float64(total),
	}

	switch {
	case requiredMinutes > available:
		result.Valid = false
		result.Severity = enums.SeverityError
		result.Message = fmt.Sprintf("insufficient capacity: %d minutes required, %d available", requiredMinutes, available)
	case result.UtilizationAfter > v.warnRatio:
		result.Valid = true
		result.Severity = enums.SeverityWarning
		result.Message = fmt.Sprintf("day will be %.0f%% utilized", result.UtilizationAfter*100)
	default:
		result.Valid = true
		result.Severity = enums.SeverityInfo
		result.Message = fmt.Sprintf("%d of %d minutes free after scheduling", available-requiredMinutes, total)
	}
	return result, nil
}
