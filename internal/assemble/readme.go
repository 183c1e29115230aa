package assemble

import (
	"fmt"
	"strings"
)

const fallbackReadmeTemplate = `# %s

## Overview
Auto-generated project based on: %s

## Features
- Please refer to the application for full functionality details

## Usage
1. Open ` + "`index.html`" + ` in a web browser
2. Follow any on-screen instructions

## Technical Details
- Built with vanilla HTML, CSS, and JavaScript
- No external dependencies required

## Evaluation Criteria
%s
`

// FallbackReadme is used when the model produced no README.md.
func FallbackReadme(taskName, brief string, checks []string) string {
	lines := make([]string, len(checks))
	for i, c := range checks {
		lines[i] = "- " + c
	}
	return fmt.Sprintf(fallbackReadmeTemplate, taskName, brief, strings.Join(lines, "\n"))
}
