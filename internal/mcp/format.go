package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/a3tai/mcp-form-filler/internal/descriptions"
	"github.com/a3tai/mcp-form-filler/internal/fill"
	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/settings"
	"github.com/a3tai/mcp-form-filler/internal/source"
)

const maxListed = 10

func (s *Server) formatFillResult(report *fill.Report, output string) string {
	status := "✅"
	if !report.Success {
		status = "❌"
	}
	text := fmt.Sprintf("%s %s\n", status, report.Message)
	text += fmt.Sprintf("🆔 Run: %s (%s)\n", report.RunID, report.Duration.Round(time.Millisecond))
	if output != "" {
		text += fmt.Sprintf("💾 Saved: %s\n", output)
	}

	if len(report.Decisions) > 0 {
		text += "\n📝 Answers:\n"
		for _, d := range report.Decisions {
			text += fmt.Sprintf("%d. [%s] %s\n", d.QuestionIndex+1, d.State, d.Question)
			switch {
			case len(d.RowChoices) > 0:
				text += fmt.Sprintf("   Rows: %v (%s)\n", d.RowChoices, d.Method)
			case d.ChosenText != "":
				text += fmt.Sprintf("   Answer: %s (%s)\n", d.ChosenText, d.Method)
			}
		}
	}

	if len(report.Errors) > 0 {
		text += fmt.Sprintf("\n⚠️  Issues (%d):\n", len(report.Errors))
		for _, e := range report.Errors {
			text += fmt.Sprintf("   • %s\n", e.Error())
		}
	}
	return text
}

func (s *Server) formatExtractResult(target string, ext *form.Extraction) string {
	text := fmt.Sprintf("📋 Form: %s\n", target)
	text += fmt.Sprintf("Containers: %d, questions: %d, skipped: %d\n",
		ext.Containers, len(ext.Questions), len(ext.Skipped))

	for _, q := range ext.Questions {
		text += fmt.Sprintf("\n%d. %s (%s)\n", q.Index+1, q.Text, q.Type)
		if len(q.Options) > 0 {
			text += fmt.Sprintf("   Options: %s\n", strings.Join(q.Options, " | "))
		}
		for _, row := range q.Rows {
			text += fmt.Sprintf("   Row %d: %s [%s]\n", row.RowIndex+1, row.Label, strings.Join(row.Options, " | "))
		}
	}

	if len(ext.Skipped) > 0 {
		text += "\n⏭️  Skipped containers:\n"
		for _, e := range ext.Skipped {
			text += fmt.Sprintf("   • #%d: %s\n", e.Question+1, e.Message)
		}
	}
	return text
}

func (s *Server) formatListResult(files []source.FileInfo) string {
	text := fmt.Sprintf("Found %d form page(s) in directory: %s\n", len(files), s.deps.Files.Dir())
	if len(files) == 0 {
		return text
	}
	text += "\nFiles:\n"
	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime.Format("2006-01-02 15:04:05"))
	}
	return text
}

func (s *Server) formatKeyStatus() string {
	key := settings.ResolveAPIKey("", s.config.APIKey, s.deps.Settings)
	if key == "" {
		return "🔑 API key: not configured\n"
	}
	origin := "settings file"
	if strings.TrimSpace(s.config.APIKey) != "" {
		origin = "configuration"
	}
	return fmt.Sprintf("🔑 API key: configured (%s, from %s)\n", settings.Mask(key), origin)
}

func (s *Server) formatServerInfoResult(files []source.FileInfo) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Form Directory: %s\n", s.deps.Files.Dir())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🤖 Provider: %s (grid: %s, pace: %s)\n", s.config.Provider, s.config.GridStrategy, s.config.Pace)
	text += s.formatKeyStatus()
	if s.deps.Browser != nil {
		text += "🌐 Live forms: enabled\n\n"
	} else {
		text += "🌐 Live forms: disabled\n\n"
	}

	if len(files) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d form pages found):\n", len(files))
		for i, file := range files {
			if i >= maxListed {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-maxListed)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No form pages found\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		summary, _, _ := strings.Cut(descriptions.GetToolDescription(name), "\n")
		text += fmt.Sprintf("• %s: %s\n", name, summary)
	}
	return text
}
