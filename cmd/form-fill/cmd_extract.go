package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-form-filler/internal/answer"
	"github.com/a3tai/mcp-form-filler/internal/form"
)

var extractFormat string

var extractCmd = &cobra.Command{
	Use:   "extract [path]",
	Short: "List the questions of a form without answering",
	Long: `Extracts the questions of a saved form page or live form and prints them
with their type and options. Containers that could not be classified are listed
with the reason. No API key is needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	addTargetFlags(extractCmd)
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "text", "Output format: text, json")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractFormat != "text" && extractFormat != "json" {
		return fmt.Errorf("invalid format %q (must be 'text' or 'json')", extractFormat)
	}

	t, err := openTarget(cmd.Context(), args)
	if err != nil {
		return err
	}
	defer t.close()

	ext, err := form.NewClassifier(logger).Extract(cmd.Context(), t.doc)
	if err != nil {
		return fmt.Errorf("extract questions: %w", err)
	}

	out := cmd.OutOrStdout()
	if extractFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ext)
	}
	fmt.Fprint(out, renderExtraction(t.name, ext))
	return nil
}

func renderExtraction(name string, ext *form.Extraction) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📋 "+name) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d container(s), %d question(s), %d skipped",
		ext.Containers, len(ext.Questions), len(ext.Skipped))) + "\n")

	for _, q := range ext.Questions {
		fmt.Fprintf(&b, "\n%d. %s %s\n", q.Index+1, q.Text, mutedStyle.Render("("+string(q.Type)+")"))
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "   %s) %s\n", answer.Letter(i), opt)
		}
		for _, row := range q.Rows {
			fmt.Fprintf(&b, "   row %d: %s [%s]\n", row.RowIndex+1, row.Label, strings.Join(row.Options, " | "))
		}
	}

	if len(ext.Skipped) > 0 {
		b.WriteString("\n" + failureStyle.Render("Skipped containers:") + "\n")
		for _, e := range ext.Skipped {
			fmt.Fprintf(&b, "   #%d: %s\n", e.Question+1, e.Message)
		}
	}
	return b.String()
}
