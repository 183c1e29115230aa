// Package prompt builds the instruction sent to the language model for a round.
package prompt

import (
	"fmt"
	"strings"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// Mode selects which instruction variant Build produces.
type Mode int

const (
	// Initial asks for a fresh application.
	Initial Mode = iota
	// Modification asks for additive changes over prior files.
	Modification
)

func (m Mode) String() string {
	if m == Modification {
		return "modification"
	}
	return "initial"
}

// Input carries everything the instruction depends on.
type Input struct {
	Brief           string
	Checks          []string
	AttachmentNames []string
	// Prior holds the files published by the previous round. Empty on round 1.
	Prior fileset.Set
}

// Mode reports the variant selected for in.
func (in Input) Mode() Mode {
	if len(in.Prior.Without(fileset.Manifest)) > 0 {
		return Modification
	}
	return Initial
}

// Build renders the instruction for in. It is a pure function of its input.
func Build(in Input) string {
	checks := bulletList(in.Checks)

	if in.Mode() == Modification {
		return fmt.Sprintf(modificationTemplate,
			in.Brief,
			checks,
			in.Prior.Render(fileset.Manifest),
			attachmentsNote(modificationAttachmentsTemplate, in.AttachmentNames),
		)
	}

	return fmt.Sprintf(initialTemplate,
		in.Brief,
		checks,
		attachmentsNote(initialAttachmentsTemplate, in.AttachmentNames),
	)
}

func attachmentsNote(tmpl string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf(tmpl, bulletList(names))
}

func bulletList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}
