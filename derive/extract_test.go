package derive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "bare array",
			content:  `[{"a": 1}]`,
			expected: `[{"a": 1}]`,
		},
		{
			name:     "markdown fence",
			content:  "Here are the results:\n```json\n[{\"a\": 1}]\n```\nDone.",
			expected: `[{"a": 1}]`,
		},
		{
			name:     "fence without language",
			content:  "```\n[{\"a\": 1}]\n```",
			expected: `[{"a": 1}]`,
		},
		{
			name:     "trailing comma removed",
			content:  `[{"a": 1,}]`,
			expected: `[{"a": 1}]`,
		},
		{
			name:     "no array",
			content:  "I could not derive any capabilities.",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractArray(tt.content))
		})
	}
}

func TestExtractObject(t *testing.T) {
	content := "```json\n{\"quality_score\": 0.8, // model note\n\"freeform_feedback\": \"ok\"}\n```"
	extracted := extractObject(content)
	require.NotEmpty(t, extracted)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(extracted), &decoded))
	assert.Equal(t, 0.8, decoded["quality_score"])
}

func TestStripLineCommentRespectsStrings(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{`"url": "http://example.com"`, `"url": "http://example.com"`},
		{`"url": "http://example.com" // comment`, `"url": "http://example.com"`},
		{`"path//with//slashes"`, `"path//with//slashes"`},
		{`"a": 1, // note`, `"a": 1,`},
		{`plain line`, `plain line`},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripLineComment(tt.line))
		})
	}
}
