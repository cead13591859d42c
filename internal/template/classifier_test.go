package template

import (
	"strings"
	"testing"
)

func renderedDoc() string {
	return strings.Join([]string{
		DeploymentTitle,
		"<!--",
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
		"LAST_UPDATED: 2026-08-29T10:00:00Z",
		"CONTENT_HASH: abc123def456",
		"-->",
		"",
		"## Framework instructions",
	}, "\n")
}

func TestIsDeploymentTemplate_Rendered(t *testing.T) {
	if !IsDeploymentTemplate(renderedDoc()) {
		t.Error("fully rendered deployment should classify as template")
	}
}

func TestIsDeploymentTemplate_RawPlaceholders(t *testing.T) {
	raw := strings.Join([]string{
		DeploymentTitle,
		"<!--",
		"CLAUDE_MD_VERSION: {{CLAUDE_MD_VERSION}}",
		"FRAMEWORK_VERSION: {{FRAMEWORK_VERSION}}",
		"DEPLOYMENT_DATE: {{DEPLOYMENT_DATE}}",
		"LAST_UPDATED: {{LAST_UPDATED}}",
		"CONTENT_HASH: {{CONTENT_HASH}}",
		"-->",
	}, "\n")
	if !IsDeploymentTemplate(raw) {
		t.Error("raw unsubstituted template should classify as template")
	}
}

func TestIsDeploymentTemplate_ExactBoundary(t *testing.T) {
	// Exactly 3 of 5 metadata patterns -> template
	three := strings.Join([]string{
		DeploymentTitle,
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
	}, "\n")
	if !IsDeploymentTemplate(three) {
		t.Error("3 of 5 metadata patterns should classify as template")
	}

	// Only 2 -> not a template
	two := strings.Join([]string{
		DeploymentTitle,
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
	}, "\n")
	if IsDeploymentTemplate(two) {
		t.Error("2 of 5 metadata patterns should not classify as template")
	}
}

func TestIsDeploymentTemplate_TitleRequired(t *testing.T) {
	// All metadata but no title line: never a template
	noTitle := strings.Join([]string{
		"# Some project readme",
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
		"LAST_UPDATED: 2026-08-29T10:00:00Z",
		"CONTENT_HASH: abc123",
	}, "\n")
	if IsDeploymentTemplate(noTitle) {
		t.Error("document without title line must not classify as template")
	}
}

func TestIsDeploymentTemplate_TitleBeyondFirstFiveLines(t *testing.T) {
	doc := strings.Join([]string{
		"line 1", "line 2", "line 3", "line 4", "line 5",
		DeploymentTitle,
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
	}, "\n")
	if IsDeploymentTemplate(doc) {
		t.Error("title on line 6 is outside the scan window")
	}
}

func TestIsDeploymentTemplate_MetadataBeyondTwentyLines(t *testing.T) {
	lines := []string{DeploymentTitle}
	for i := 0; i < 25; i++ {
		lines = append(lines, "filler")
	}
	lines = append(lines,
		"CLAUDE_MD_VERSION: 4.5.1-007",
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
	)
	if IsDeploymentTemplate(strings.Join(lines, "\n")) {
		t.Error("metadata past line 20 must not count")
	}
}

func TestIsDeploymentTemplate_EmptyAndPlain(t *testing.T) {
	if IsDeploymentTemplate("") {
		t.Error("empty content should not classify as template")
	}
	if IsDeploymentTemplate("just some notes\nnothing special\n") {
		t.Error("plain text should not classify as template")
	}
}
