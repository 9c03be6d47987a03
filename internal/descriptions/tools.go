package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Form Tools
	FormFillDescription = `Answer every question of a survey form and write the answers back into the page.

**When to use:** A saved form page or a live Google Form needs to be completed with plausible answers.

**How it works:** Each question container is classified (single choice, multiple choice, dropdown, linear scale, grid, free text), the configured text-generation service is asked for an answer, the reply is mapped to a valid option and the control is clicked or typed into.

**Examples:**
• Saved page: "Fill survey.html and save the result to survey.filled.html"
• Live form: "Fill https://docs.google.com/forms/d/e/.../viewform"
• Custom key: "Fill feedback.html using api_key hf_..."

**Behavior:**
1. Questions without a usable title, type or options are skipped and listed in the report.
2. When the service fails or replies with nothing usable, choice questions take the first option and scales take the middle value.
3. Free-text questions are left empty when the service gives no reply.

**Best practices:** Run form_extract first to check what will be answered. Progress notifications are sent per question when the client supplies a progress token.`

	FormExtractDescription = `List the questions a form page contains without answering anything.

**When to use:** Preview what form_fill will answer, or debug why a question is skipped.

**Examples:**
• Preview: "Extract the questions in survey.html"
• Debug: "Why is the grid in feedback.html not detected?"

**Output:** Each question with its type and options, grid rows with their labels, and every container that was skipped with the reason.

**Best practices:** No API key is needed; the page is not modified.`

	FormListDescription = `List saved form pages (.html, .htm) in the configured directory.

**When to use:** Find which snapshots are available before extracting or filling.

**Examples:**
• Inventory: "Which forms are saved?"

**Best practices:** Paths in the result can be passed directly to form_extract and form_fill.`

	FormSettingsDescription = `Store or inspect the API key used to answer questions.

**When to use:** First-time setup, or when answers fall back to defaults because no key is configured.

**Examples:**
• Save key: "Set the API key to hf_..."
• Check: "Is an API key configured?"

**Rules:** Empty keys are rejected. Hugging Face keys must start with hf_. Stored keys are never shown in full.`

	// Utility Tools
	FormServerInfoDescription = `Get server status, configuration, available tools and saved form pages.

**When to use:** Starting a session, or checking why runs fall back to default answers.

**Examples:**
• System check: "Is the form filler ready and is a key configured?"

**Best practices:** Run at start of sessions.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form_fill":        FormFillDescription,
	"form_extract":     FormExtractDescription,
	"form_list":        FormListDescription,
	"form_settings":    FormSettingsDescription,
	"form_server_info": FormServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
