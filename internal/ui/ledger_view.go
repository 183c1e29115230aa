package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/pipeline"
)

// EntriesTable lays out ledger entries one task per row.
func EntriesTable(entries []ledger.Entry) *Table {
	t := &Table{
		Headers:  []string{"TASK", "ROUND", "COMMIT", "UPDATED", "PAGES"},
		MaxWidth: 60,
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.Task,
			strconv.Itoa(e.LastRound),
			ShortSHA(e.CommitSHA),
			formatTime(e.UpdatedAt),
			e.PagesURL,
		})
	}
	return t
}

// RenderEntry shows a single ledger entry as labelled lines.
func RenderEntry(e ledger.Entry) string {
	var sb strings.Builder
	sb.WriteString(StyleSectionTitle.Render(e.Task) + "\n")
	field(&sb, "round", strconv.Itoa(e.LastRound))
	field(&sb, "repo", e.RepoName)
	field(&sb, "url", StyleLink.Render(e.RepoURL))
	field(&sb, "pages", StyleLink.Render(e.PagesURL))
	field(&sb, "commit", e.CommitSHA)
	field(&sb, "updated", formatTime(e.UpdatedAt))
	return sb.String()
}

// RenderResult summarizes a finished round inside a box.
func RenderResult(res pipeline.Result) string {
	var sb strings.Builder
	sb.WriteString(Icon("✔ ", StyleSuccess) + StyleTitle.Render(res.Message) + "\n")
	field(&sb, "repo", StyleLink.Render(res.RepoURL))
	field(&sb, "pages", StyleLink.Render(res.PagesURL))
	field(&sb, "commit", res.CommitSHA)
	return StyleResultBox.Render(strings.TrimRight(sb.String(), "\n"))
}

// RenderError formats a failed round.
func RenderError(kind pipeline.Kind, err error) string {
	return Icon("✘ ", StyleError) + StyleError.Render(fmt.Sprintf("round failed (%s): %v", kind, err))
}

func field(sb *strings.Builder, label, value string) {
	sb.WriteString(StyleLabel.Render(label) + value + "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
