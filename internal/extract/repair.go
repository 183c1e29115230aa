package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

var (
	// Fix trailing commas before closing brace/bracket
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// "name.ext": "escaped content" for the extensions a generated site uses
	filePairRegex = regexp.MustCompile(`"([^"]+\.(?:html|css|js|md))"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	pairUnescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`)
)

// stripFences removes surrounding markdown code fences.
func stripFences(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")

	return strings.TrimSpace(response)
}

// repair fixes the syntax defects models commonly emit without inventing
// content: literal control characters inside strings and trailing commas.
func repair(input string) string {
	result := sanitizeControlChars(input)
	return trailingCommaRegex.ReplaceAllString(result, `$1`)
}

// sanitizeControlChars escapes literal control characters inside JSON strings.
func sanitizeControlChars(input string) string {
	var result strings.Builder
	result.Grow(len(input))

	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		c := input[i]

		if escaped {
			result.WriteByte(c)
			escaped = false
			continue
		}

		if c == '\\' && inString {
			result.WriteByte(c)
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			result.WriteByte(c)
			continue
		}

		if !inString {
			result.WriteByte(c)
			continue
		}

		switch c {
		case '\t':
			result.WriteString(`\t`)
		case '\n':
			result.WriteString(`\n`)
		case '\r':
			result.WriteString(`\r`)
		case '\b':
			result.WriteString(`\b`)
		case '\f':
			result.WriteString(`\f`)
		default:
			if c < 0x20 {
				result.WriteString(fmt.Sprintf(`\u%04x`, c))
			} else {
				result.WriteByte(c)
			}
		}
	}

	return result.String()
}

// balancedObjects returns every top-level {...} span of text in order of
// appearance. Braces inside JSON strings do not count.
func balancedObjects(text string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if depth > 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, text[start:i+1])
			}
		}
	}

	return out
}

// scanPairs extracts "path": "content" pairs lexically. Later duplicates win.
func scanPairs(text string) fileset.Set {
	files := fileset.Set{}
	for _, m := range filePairRegex.FindAllStringSubmatch(text, -1) {
		files[m[1]] = pairUnescaper.Replace(m[2])
	}
	return files
}
