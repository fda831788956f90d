package requirement

import (
	"sort"
	"strings"
)

// Category is one of the 14 fixed top-level taxonomy codes (A through N)
// a derived capability is classified under. Invalid codes are rejected by
// validation, never silently passed through.
type Category string

const (
	// CategoryFunctional covers core functional behavior.
	CategoryFunctional Category = "A"

	// CategoryPerformance covers throughput, latency, and capacity.
	CategoryPerformance Category = "B"

	// CategoryInterface covers external and internal interfaces.
	CategoryInterface Category = "C"

	// CategorySafety covers hazard mitigation and fail-safe behavior.
	CategorySafety Category = "D"

	// CategorySecurity covers access control and data protection.
	CategorySecurity Category = "E"

	// CategoryReliability covers availability and fault tolerance.
	CategoryReliability Category = "F"

	// CategoryMaintainability covers serviceability and diagnostics.
	CategoryMaintainability Category = "G"

	// CategoryUsability covers operator interaction.
	CategoryUsability Category = "H"

	// CategoryEnvironmental covers operating-environment constraints.
	CategoryEnvironmental Category = "I"

	// CategoryData covers data handling, retention, and integrity.
	CategoryData Category = "J"

	// CategoryTiming covers deadlines, rates, and synchronization.
	CategoryTiming Category = "K"

	// CategoryResource covers memory, power, and bandwidth budgets.
	CategoryResource Category = "L"

	// CategoryVerification covers testability and verification hooks.
	CategoryVerification Category = "M"

	// CategoryDocumentation covers required documentation artifacts.
	CategoryDocumentation Category = "N"
)

// categoryNames maps each code to a human-readable label.
var categoryNames = map[Category]string{
	CategoryFunctional:      "functional",
	CategoryPerformance:     "performance",
	CategoryInterface:       "interface",
	CategorySafety:          "safety",
	CategorySecurity:        "security",
	CategoryReliability:     "reliability",
	CategoryMaintainability: "maintainability",
	CategoryUsability:       "usability",
	CategoryEnvironmental:   "environmental",
	CategoryData:            "data",
	CategoryTiming:          "timing",
	CategoryResource:        "resource",
	CategoryVerification:    "verification",
	CategoryDocumentation:   "documentation",
}

// IsValid checks if the category is one of the 14 fixed codes.
func (c Category) IsValid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Name returns the human-readable label for the category, or "" for an
// invalid code.
func (c Category) Name() string {
	return categoryNames[c]
}

// String returns the single-letter code.
func (c Category) String() string {
	return string(c)
}

// Categories returns all valid codes in alphabetical order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryNames))
	for c := range categoryNames {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategoryCode splits a raw classification code like "C2" or "c" into a
// validated category and an optional numeric subcode. The code is
// case-normalized. Returns ok=false for anything outside the taxonomy.
func ParseCategoryCode(raw string) (Category, string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", "", false
	}

	cat := Category(code[:1])
	if !cat.IsValid() {
		return "", "", false
	}

	sub := code[1:]
	if sub != "" {
		// Subcodes are 1-2 digits.
		if len(sub) > 2 {
			return "", "", false
		}
		for _, r := range sub {
			if r < '0' || r > '9' {
				return "", "", false
			}
		}
	}

	return cat, sub, true
}
