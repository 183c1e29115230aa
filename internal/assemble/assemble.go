// Package assemble turns extracted model output into the complete file tree
// published for a round.
package assemble

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// ErrMissingEntryPoint means neither the reply nor the prior round had index.html.
var ErrMissingEntryPoint = errors.New("generated files are missing " + fileset.EntryPoint)

const (
	closingRoot     = "</html>"
	openingRoot     = "<html"
	closingSequence = "\n</body>\n</html>"
	licenseTrigger  = "mit license"
	tailPreviewSize = 200
)

// Input is everything a round contributes to the final tree.
type Input struct {
	Round     int
	Prior     fileset.Set
	Extracted fileset.Set
	// Manifest is the regenerated attachments script; empty when there are none.
	Manifest string
	Checks   []string
	Brief    string
	TaskName string
}

// Assembler merges and repairs file sets.
type Assembler struct {
	log *zap.Logger
	now func() time.Time
}

// New creates an Assembler. A nil logger disables logging.
func New(log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{log: log, now: time.Now}
}

// Assemble builds the final file set for a round.
func (a *Assembler) Assemble(in Input) (fileset.Set, error) {
	var out fileset.Set
	if in.Round > 1 {
		out = in.Prior.Without(fileset.Manifest).Overlay(in.Extracted)
		a.log.Debug("merged with prior round",
			zap.Int("prior", len(in.Prior)),
			zap.Int("extracted", len(in.Extracted)),
			zap.Int("total", len(out)))
	} else {
		out = in.Extracted.Clone()
	}

	entry, ok := out[fileset.EntryPoint]
	if !ok {
		return nil, ErrMissingEntryPoint
	}
	out[fileset.EntryPoint] = a.repairMarkup(entry)

	if a.licenseRequired(in.Checks) || !out.Has(fileset.License) {
		out[fileset.License] = MITLicense(a.now().Year())
		a.log.Debug("injected MIT license")
	}

	if !out.Has(fileset.Documentation) {
		out[fileset.Documentation] = FallbackReadme(in.TaskName, in.Brief, in.Checks)
		a.log.Info("model produced no README, using fallback")
	}

	if in.Manifest != "" {
		out[fileset.Manifest] = in.Manifest
	} else {
		delete(out, fileset.Manifest)
	}

	return out, nil
}

// repairMarkup closes a root element the model left open. Content that
// already ends with the closing tag is returned unchanged.
func (a *Assembler) repairMarkup(html string) string {
	lower := strings.ToLower(html)
	if strings.HasSuffix(strings.TrimSpace(lower), closingRoot) {
		return html
	}

	tail := html
	if len(tail) > tailPreviewSize {
		tail = tail[len(tail)-tailPreviewSize:]
	}
	a.log.Warn("entry point appears truncated", zap.String("tail", tail))

	if strings.Contains(lower, openingRoot) && !strings.Contains(lower, closingRoot) {
		a.log.Info("auto-closed entry point markup")
		return html + closingSequence
	}
	return html
}

func (a *Assembler) licenseRequired(checks []string) bool {
	fold := cases.Fold()
	for _, c := range checks {
		if strings.Contains(fold.String(c), licenseTrigger) {
			return true
		}
	}
	return false
}
