package derive

import (
	"regexp"
	"strings"
)

// Models wrap JSON in markdown fences and emit trailing commas or //
// comments often enough that strict decoding alone rejects usable output.
// Extraction strips that noise first; the decode itself stays strict.
var (
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	fencedArrayPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	bareObjectPattern   = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	bareArrayPattern    = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingComma       = regexp.MustCompile(`,\s*([}\]])`)
)

// extractObject pulls a JSON object out of raw model output. Returns ""
// when no object is present.
func extractObject(content string) string {
	if m := fencedObjectPattern.FindStringSubmatch(content); len(m) > 1 {
		return scrubJSON(m[1])
	}
	if m := bareObjectPattern.FindString(content); m != "" {
		return scrubJSON(m)
	}
	return ""
}

// extractArray pulls a JSON array out of raw model output. Returns "" when
// no array is present.
func extractArray(content string) string {
	if m := fencedArrayPattern.FindStringSubmatch(content); len(m) > 1 {
		return scrubJSON(m[1])
	}
	if m := bareArrayPattern.FindString(content); m != "" {
		return scrubJSON(m)
	}
	return ""
}

// scrubJSON removes line comments and trailing commas, both common model
// artifacts that json.Decoder rejects.
func scrubJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingComma.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a // comment from a line unless the slashes sit
// inside a string value (URLs, file paths).
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
