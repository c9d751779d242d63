package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

// DefaultToleranceMM is the fuzzy window applied when the caller does not
// supply one. Nominal sheet thickness routinely differs from what suppliers
// deliver by a tenth of a millimetre or two.
var DefaultToleranceMM = decimal.RequireFromString("0.3")

// MatchResult reports how a material requirement maps onto stock.
type MatchResult struct {
	MatchType        enums.MatchType       `json:"match_type"`
	Item             *models.InventoryItem `json:"item,omitempty"`
	QuantityOnHand   decimal.Decimal       `json:"quantity_on_hand"`
	RequiredQuantity decimal.Decimal       `json:"required_quantity"`
	Shortage         decimal.Decimal       `json:"shortage"`
	Available        bool                  `json:"available"`
	Message          string                `json:"message"`
}

// Matcher finds the stock item best suited to a material requirement.
type Matcher interface {
	FindMatch(ctx context.Context, materialType string, thickness, required, tolerance decimal.Decimal) (*MatchResult, error)
}

type matcher struct {
	repo Repository
}

// NewMatcher wires a matcher with the provided repository.
func NewMatcher(repo Repository) (Matcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &matcher{repo: repo}, nil
}

// FindMatch searches exact thickness first, then widens to the tolerance
// window. A tolerance of zero disables the fuzzy pass entirely.
func (m *matcher) FindMatch(ctx context.Context, materialType string, thickness, required, tolerance decimal.Decimal) (*MatchResult, error) {
	if materialType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material type required")
	}
	if tolerance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tolerance cannot be negative")
	}

	exact, err := m.repo.FindSheetMetalExact(ctx, materialType, thickness)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search exact thickness")
	}
	if len(exact) > 0 {
		item := exact[0]
		return buildResult(enums.MatchTypeExact, &item, required,
			fmt.Sprintf("exact match: %s %smm", materialType, thickness)), nil
	}

	if tolerance.IsPositive() {
		candidates, err := m.repo.FindSheetMetalWithinRange(ctx, materialType, thickness.Sub(tolerance), thickness.Add(tolerance))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search thickness window")
		}
		if best := pickClosest(candidates, thickness); best != nil {
			return buildResult(enums.MatchTypeFuzzy, best, required,
				fmt.Sprintf("fuzzy match: substituting %smm stock for nominal %smm %s",
					thicknessLabel(best), thickness, materialType)), nil
		}
	}

	return &MatchResult{
		MatchType:        enums.MatchTypeNone,
		RequiredQuantity: required,
		Shortage:         maxDecimal(required, decimal.Zero),
		Available:        false,
		Message:          fmt.Sprintf("no stock for %s %smm", materialType, thickness),
	}, nil
}

// pickClosest applies the tie-break: smallest absolute thickness difference,
// then largest quantity on hand, then item id for a stable result.
func pickClosest(candidates []models.InventoryItem, nominal decimal.Decimal) *models.InventoryItem {
	var best *models.InventoryItem
	var bestDiff decimal.Decimal
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.ThicknessMM == nil {
			continue
		}
		diff := candidate.ThicknessMM.Sub(nominal).Abs()
		if best == nil {
			best, bestDiff = candidate, diff
			continue
		}
		switch diff.Cmp(bestDiff) {
		case -1:
			best, bestDiff = candidate, diff
		case 0:
			if candidate.QuantityOnHand.GreaterThan(best.QuantityOnHand) {
				best, bestDiff = candidate, diff
			} else if candidate.QuantityOnHand.Equal(best.QuantityOnHand) &&
				candidate.ID.String() < best.ID.String() {
				best, bestDiff = candidate, diff
			}
		}
	}
	return best
}

func buildResult(matchType enums.MatchType, item *models.InventoryItem, required decimal.Decimal, message string) *MatchResult {
	shortage := required.Sub(item.QuantityOnHand)
	if shortage.IsNegative() {
		shortage = decimal.Zero
	}
	return &MatchResult{
		MatchType:        matchType,
		Item:             item,
		QuantityOnHand:   item.QuantityOnHand,
		RequiredQuantity: required,
		Shortage:         shortage,
		Available:        item.QuantityOnHand.GreaterThanOrEqual(required),
		Message:          message,
	}
}

func thicknessLabel(item *models.InventoryItem) string {
	if item.ThicknessMM == nil {
		return "?"
	}
	return item.ThicknessMM.String()
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
