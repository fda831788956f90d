package requirement

// Severity ranks an uncovered capability or quality issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// severityRanks defines the total order low < medium < high.
var severityRanks = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

// IsValid checks if the severity is a known level.
func (s Severity) IsValid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Rank returns the severity's position in the total order. Unknown values
// rank below SeverityLow.
func (s Severity) Rank() int {
	if rank, ok := severityRanks[s]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether s ranks at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// SeverityForConfidence assigns a severity to an uncovered capability from
// its confidence score: high for >= 0.8, medium for >= 0.5, low otherwise.
func SeverityForConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.8:
		return SeverityHigh
	case confidence >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
