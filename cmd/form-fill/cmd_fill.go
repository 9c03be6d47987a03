package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/dom"
	"github.com/a3tai/mcp-form-filler/internal/dom/htmldoc"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/settings"
	"github.com/a3tai/mcp-form-filler/internal/source"
)

var (
	formURL    string
	outputPath string
	anySite    bool
)

var errNoAPIKey = errors.New("no API key configured: run 'form-fill settings set-key' or pass --apikey")

var fillCmd = &cobra.Command{
	Use:   "fill [path]",
	Short: "Answer every question of a form",
	Long: `Answers every question of a saved form page (inside --dir) or of a live
form (--url). Saved pages are written to --output, by default <name>.filled.html.
Press Ctrl+C to stop after the current question.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	addTargetFlags(fillCmd)
	fillCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Where to write the filled page")
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&formURL, "url", "", "Live form URL to open in the browser")
	cmd.Flags().BoolVar(&anySite, "any-site", false, "Allow live URLs that are not Google Forms")
}

// target is an opened form document.
type target struct {
	name  string
	doc   dom.Document
	close func()

	// Set for saved pages only
	file  *htmldoc.Document
	path  string
	files *source.Files
}

func openTarget(ctx context.Context, args []string) (*target, error) {
	if len(args) == 0 && formURL == "" {
		return nil, errors.New("a form path or --url is required")
	}
	if len(args) > 0 && formURL != "" {
		return nil, errors.New("pass either a form path or --url, not both")
	}

	if formURL != "" {
		if err := source.CheckFormURL(formURL, anySite); err != nil {
			return nil, err
		}
		browser := source.NewBrowser(source.BrowserOptions{ControlURL: cfg.BrowserURL, Headless: cfg.Headless}, logger)
		page, err := browser.Open(ctx, formURL, anySite)
		if err != nil {
			_ = browser.Close()
			return nil, err
		}
		return &target{
			name: formURL,
			doc:  page.Doc,
			close: func() {
				_ = page.Close()
				_ = browser.Close()
			},
		}, nil
	}

	files, err := source.NewFiles(cfg.FormDirectory, cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	doc, abs, err := files.Load(args[0])
	if err != nil {
		return nil, err
	}
	return &target{name: abs, doc: doc, file: doc, path: abs, files: files, close: func() {}}, nil
}

func runFill(cmd *cobra.Command, args []string) error {
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return err
	}
	apiKey := settings.ResolveAPIKey("", cfg.APIKey, store)
	if apiKey == "" {
		return errNoAPIKey
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := openTarget(ctx, args)
	if err != nil {
		return err
	}
	defer t.close()

	progress := cmd.ErrOrStderr()
	opts := append(cfg.EngineOptions(logger), fill.WithObserver(progressPrinter(progress)))
	report := fill.NewEngine(logger, opts...).Run(ctx, t.doc, apiKey)

	saved := ""
	if t.file != nil && report.Filled > 0 {
		out := outputPath
		if out == "" {
			out = source.DefaultOutputPath(t.path)
		}
		saved, err = t.files.Save(t.file, out)
		if err != nil {
			return fmt.Errorf("save filled form: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(t.name, report, saved))
	if !report.Success {
		return errors.New(report.Message)
	}
	return nil
}

// progressPrinter renders one line per question.
func progressPrinter(w io.Writer) fill.Observer {
	return fill.ObserverFunc(func(_ context.Context, p fill.Progress) {
		fmt.Fprintf(w, "%s %s\n",
			progressStyle.Render(fmt.Sprintf("[%d/%d]", p.Current, p.Total)),
			truncate(p.Question, 70))
	})
}

func renderReport(name string, report *fill.Report, saved string) string {
	var b strings.Builder
	if report.Success {
		b.WriteString(successStyle.Render("✔ " + report.Message))
	} else {
		b.WriteString(failureStyle.Render("✘ " + report.Message))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s  run %s  %s", name, report.RunID, report.Duration.Round(time.Millisecond))))
	if saved != "" {
		b.WriteString("\n" + mutedStyle.Render("saved to "+saved))
	}

	for _, d := range report.Decisions {
		mark := successStyle.Render("✔")
		if !d.Applied() {
			mark = failureStyle.Render("–")
		}
		answer := d.ChosenText
		if len(d.RowChoices) > 0 {
			answer = fmt.Sprintf("rows %v", d.RowChoices)
		}
		fmt.Fprintf(&b, "\n%s %s", mark, truncate(d.Question, 60))
		if answer != "" {
			fmt.Fprintf(&b, " %s", mutedStyle.Render("→ "+truncate(answer, 40)+" ("+string(d.Method)+")"))
		}
	}
	if n := len(report.Errors); n > 0 {
		fmt.Fprintf(&b, "\n%s", mutedStyle.Render(fmt.Sprintf("%d issue(s); rerun with --loglevel debug for details", n)))
		for _, e := range report.Errors {
			logger.Debug("fill issue", zap.Error(e))
		}
	}
	return summaryStyle.Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
