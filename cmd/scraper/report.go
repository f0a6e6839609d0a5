package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"novelhub/internal/batch"
	"novelhub/pkg/models"
)

func printReport(out io.Writer, rep *batch.Report) {
	if rep == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "URL", "Status", "New", "Latest", "Current", "Genres +/-", "Error"})
	for _, n := range rep.Novels {
		status := "ok"
		if !n.OK {
			status = "failed"
		}
		genres := "-"
		if !n.Genres.Skipped {
			genres = fmt.Sprintf("+%d/-%d", len(n.Genres.Added), len(n.Genres.Removed))
		}
		t.AppendRow(table.Row{
			n.NovelID, n.URL, status, n.NewChapters,
			n.Chapters.LatestChapterNumber, n.Chapters.CurrentLastChapterNumber,
			genres, formatErr(n.Error),
		})
	}
	t.AppendFooter(table.Row{"", "run " + rep.Run.ID, rep.Run.Status, rep.Run.NewChapters,
		"", "", fmt.Sprintf("processed %d", rep.Run.Processed), fmt.Sprintf("failed %d", rep.Run.Failed)})
	t.Render()
}

func printRuns(out io.Writer, runs []models.ScrapeRun) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Mode", "Target", "Status", "Processed", "Failed", "New", "Checkpoint", "Started"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID, r.Mode, target(r), r.Status, r.Processed, r.Failed, r.NewChapters,
			r.LastNovelID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(runs)})
	t.Render()
}

func target(r models.ScrapeRun) string {
	switch batch.Mode(r.Mode) {
	case batch.ModeSingle:
		return r.NovelURL
	case batch.ModeRange:
		return fmt.Sprintf("%d..%d", r.StartID, r.EndID)
	default:
		return strings.ToUpper(r.Mode)
	}
}

func formatErr(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
