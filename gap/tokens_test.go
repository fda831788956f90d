package gap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := tokenize("The system SHALL report mode-change events within 100ms.")

	for _, want := range []string{"system", "report", "mode", "change", "events", "within", "100ms"} {
		_, ok := tokens[want]
		assert.True(t, ok, "missing token %q", want)
	}

	// Stopwords and single characters are dropped.
	for _, dropped := range []string{"the", "shall", "a"} {
		_, ok := tokens[dropped]
		assert.False(t, ok, "unexpected token %q", dropped)
	}
}

func TestJaccard(t *testing.T) {
	a := tokenize("report mode changes")
	b := tokenize("report mode changes")
	c := tokenize("persist audit records")

	assert.Equal(t, 1.0, jaccard(a, b))
	assert.Equal(t, 0.0, jaccard(a, c))
	assert.Equal(t, 0.0, jaccard(a, tokenize("")))
	assert.Equal(t, 0.0, jaccard(nil, nil))

	// Partial overlap: {report, mode, changes} vs {report, mode, failures}.
	d := tokenize("report mode failures")
	assert.InDelta(t, 0.5, jaccard(a, d), 1e-9)
}
