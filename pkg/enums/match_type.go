package enums

// MatchType describes how an inventory lookup located stock.
type MatchType string

const (
	MatchTypeExact MatchType = "exact"
	MatchTypeFuzzy MatchType = "fuzzy"
	MatchTypeNone  MatchType = "none"
)

// String implements fmt.Stringer.
func (m MatchType) String() string {
	return string(m)
}
