package gap

import "strings"

// stopwords are dropped before computing token overlap. Requirement prose
// leans heavily on shall/must boilerplate that carries no matching signal.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"must": {}, "of": {}, "on": {}, "or": {}, "shall": {}, "should": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "will": {}, "with": {},
}

// tokenize lower-cases text and splits it into alphanumeric tokens,
// dropping stopwords and single characters.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})

	var b strings.Builder
	flush := func() {
		if b.Len() < 2 {
			b.Reset()
			return
		}
		tok := b.String()
		b.Reset()
		if _, stop := stopwords[tok]; !stop {
			tokens[tok] = struct{}{}
		}
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// jaccard computes set overlap: |a ∩ b| / |a ∪ b|. Two empty sets have no
// overlap signal and score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
