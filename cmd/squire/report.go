package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/rayhaanfarooq/squire"
	"github.com/rayhaanfarooq/squire/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the latest synthesized report",
	RunE:  runReport,
}

var reportRaw bool

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "print the stored report document instead of rendering it")
}

func runReport(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("prepare report store: %w", err)
	}

	saved, err := st.LatestReport(ctx)
	if errors.Is(err, store.ErrNoReport) {
		fmt.Println("no report available yet, trigger an analysis round first")
		return nil
	}
	if err != nil {
		return err
	}

	if reportRaw {
		fmt.Println(saved.Body)
		return nil
	}

	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return fmt.Errorf("prepare renderer: %w", err)
	}
	out, err := glam.Render(reportMarkdown(gjson.Parse(saved.Body)))
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	fmt.Printf("%s: %s\n", color.CyanString("Generated"), saved.CreatedAt.Local().Format(time.RFC1123))
	fmt.Print(out)
	return nil
}

func reportMarkdown(doc gjson.Result) string {
	var md strings.Builder

	md.WriteString("# Squire Analysis Report\n")
	md.WriteString(doc.Get("report.executive_summary").String())
	md.WriteString("\n")

	if prs := doc.Get("report.detailed_pr_summaries").Array(); len(prs) > 0 {
		md.WriteString("\n## Pull Requests\n")
		for _, pr := range prs {
			fmt.Fprintf(&md, "\n### PR #%d: %s\n\n", pr.Get("pr_number").Int(), pr.Get("title").String())
			fmt.Fprintf(&md, "Complexity %s, risk %s.\n\n", pr.Get("complexity").String(), pr.Get("risk_level").String())
			if summary := pr.Get("summary").String(); summary != "" {
				md.WriteString(summary)
				md.WriteString("\n")
			}
		}
	}

	if meetings := doc.Get("report.detailed_meeting_summaries").Array(); len(meetings) > 0 {
		md.WriteString("\n## Meetings\n")
		for _, meeting := range meetings {
			fmt.Fprintf(&md, "\n### %s\n\n", meeting.Get("doc_url").String())
			fmt.Fprintf(&md, "%d action items, %d decisions, %d attendees.\n",
				len(meeting.Get("action_items").Array()),
				len(meeting.Get("decisions").Array()),
				len(meeting.Get("attendees").Array()),
			)
		}
	}

	return md.String()
}
