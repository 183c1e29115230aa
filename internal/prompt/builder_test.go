package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

func TestBuild_Initial(t *testing.T) {
	in := Input{
		Brief:           "counter app",
		Checks:          []string{"must have a button", "Repo has MIT license"},
		AttachmentNames: []string{"data.csv"},
	}

	got := Build(in)

	assert.Equal(t, Initial, in.Mode())
	assert.Contains(t, got, "**Brief:** counter app")
	assert.Contains(t, got, "- must have a button\n- Repo has MIT license")
	assert.Contains(t, got, "- data.csv")
	assert.Contains(t, got, `<script src="attachments.js"></script>`)
	assert.Contains(t, got, "atob(")
	assert.Contains(t, got, "NO trailing commas")
	assert.NotContains(t, got, "Current Code")
}

func TestBuild_InitialWithoutAttachments(t *testing.T) {
	got := Build(Input{Brief: "b", Checks: []string{"c"}})

	assert.NotContains(t, got, "Available Attachments")
}

func TestBuild_Modification(t *testing.T) {
	in := Input{
		Brief:  "add a reset button",
		Checks: []string{"reset resets"},
		Prior: fileset.Set{
			"index.html":     "<html></html>",
			"style.css":      "body{}",
			"attachments.js": "window.attachments = {};",
		},
	}

	got := Build(in)

	assert.Equal(t, Modification, in.Mode())
	assert.Contains(t, got, "**New Requirements to ADD/MODIFY:** add a reset button")
	assert.Contains(t, got, "=== index.html ===\n<html></html>\n\n=== style.css ===\nbody{}")
	assert.NotContains(t, got, "=== attachments.js ===")
	assert.Contains(t, got, "NEVER include attachments.js in your output")
}

func TestBuild_ManifestOnlyPriorIsInitial(t *testing.T) {
	in := Input{Brief: "b", Prior: fileset.Set{"attachments.js": "x"}}

	assert.Equal(t, Initial, in.Mode())
}

func TestBuild_Deterministic(t *testing.T) {
	in := Input{
		Brief:  "b",
		Checks: []string{"one", "two"},
		Prior:  fileset.Set{"b.js": "2", "a.js": "1", "index.html": "<html></html>"},
	}

	first := Build(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Build(in))
	}
	assert.Less(t, strings.Index(first, "=== a.js ==="), strings.Index(first, "=== b.js ==="))
}
