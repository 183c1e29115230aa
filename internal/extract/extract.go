// Package extract recovers the path→content mapping from a language model reply.
//
// The model is asked for a flat JSON object but is not a trusted structured-output
// source, so extraction walks a list of progressively more permissive strategies.
// Every strategy returns only content that is present in the reply.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// PreviewLimit bounds the diagnostic preview carried by UnparsableError.
const PreviewLimit = 500

// ErrUnparsableGeneration is matched by every *UnparsableError.
var ErrUnparsableGeneration = errors.New("unparsable generation")

// UnparsableError reports a reply from which no file mapping could be recovered.
type UnparsableError struct {
	Preview string
}

func (e *UnparsableError) Error() string {
	return fmt.Sprintf("%s: no file mapping found in reply (preview: %q)", ErrUnparsableGeneration, e.Preview)
}

func (e *UnparsableError) Unwrap() error { return ErrUnparsableGeneration }

// Strategy names the extraction step that produced a result.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategyCandidate
	StrategyRepaired
	StrategyLexical
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyCandidate:
		return "candidate"
	case StrategyRepaired:
		return "repaired"
	case StrategyLexical:
		return "lexical"
	default:
		return "none"
	}
}

// Result is a successful extraction.
type Result struct {
	Files    fileset.Set
	Strategy Strategy
}

// Files parses raw into a file set. See Parse.
func Files(raw string) (fileset.Set, error) {
	res, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// Parse tries, in order: a direct parse of the fence-stripped text, every
// balanced object in the text (first one with an .html key wins), the span
// between the first '{' and last '}' after syntax repair, and finally a
// lexical scan for "path": "content" pairs.
func Parse(raw string) (Result, error) {
	cleaned := stripFences(raw)

	if files, ok := parseFlat(cleaned); ok {
		return Result{Files: files, Strategy: StrategyDirect}, nil
	}

	for _, candidate := range balancedObjects(cleaned) {
		files, ok := parseFlat(candidate)
		if ok && hasEntryPointKey(files) {
			return Result{Files: files, Strategy: StrategyCandidate}, nil
		}
	}

	if span, ok := outerSpan(cleaned); ok {
		if files, ok := parseFlat(repair(span)); ok {
			return Result{Files: files, Strategy: StrategyRepaired}, nil
		}
	}

	if files := scanPairs(cleaned); len(files) > 0 {
		return Result{Files: files, Strategy: StrategyLexical}, nil
	}

	return Result{}, &UnparsableError{Preview: preview(raw)}
}

// parseFlat accepts only a non-empty JSON object whose values are all strings.
func parseFlat(text string) (fileset.Set, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(text), &m); err != nil || len(m) == 0 {
		return nil, false
	}
	return fileset.Set(m), true
}

func hasEntryPointKey(files fileset.Set) bool {
	for path := range files {
		if strings.HasSuffix(path, ".html") {
			return true
		}
	}
	return false
}

// outerSpan returns the text from the first '{' to the last '}'.
func outerSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func preview(raw string) string {
	if len(raw) <= PreviewLimit {
		return raw
	}
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}
