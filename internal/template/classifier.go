// Package template classifies and renders framework deployment templates.
package template

import (
	"regexp"
	"strings"
)

// DeploymentTitle is the literal first-heading marker every framework
// deployment file carries near the top.
const DeploymentTitle = "# Claude PM Framework Configuration - Deployment"

// titleScanLines and metadataScanLines bound how far into a file the
// classifier looks. Real deployments carry the title on line 1 and the
// metadata comment block immediately after.
const (
	titleScanLines    = 5
	metadataScanLines = 20
)

// Each pattern matches either a populated metadata field or its raw
// {{VAR}} placeholder, so both rendered files and unrendered templates
// classify as deployment templates.
var metadataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`CLAUDE_MD_VERSION:\s*(?:[\d.-]+|\{\{CLAUDE_MD_VERSION\}\})`),
	regexp.MustCompile(`FRAMEWORK_VERSION:\s*(?:[\d.-]+|\{\{FRAMEWORK_VERSION\}\})`),
	regexp.MustCompile(`DEPLOYMENT_DATE:\s*(?:[\dT:.\-+Z]+|\{\{DEPLOYMENT_DATE\}\})`),
	regexp.MustCompile(`LAST_UPDATED:\s*(?:[\dT:.\-+Z]+|\{\{LAST_UPDATED\}\})`),
	regexp.MustCompile(`CONTENT_HASH:\s*(?:[0-9a-fA-F]+|\{\{CONTENT_HASH\}\})`),
}

// minMetadataMatches is how many of the metadata patterns must appear
// for a file with the title line to classify as a template.
const minMetadataMatches = 3

// IsDeploymentTemplate reports whether content is a framework deployment
// file (rendered or raw template). A file without the title line in its
// first lines is never a template, no matter what metadata it carries.
// This keeps arbitrary project files safe from forced overwrites.
func IsDeploymentTemplate(content string) bool {
	lines := strings.Split(content, "\n")

	titleFound := false
	for i := 0; i < len(lines) && i < titleScanLines; i++ {
		if strings.HasPrefix(lines[i], DeploymentTitle) {
			titleFound = true
			break
		}
	}
	if !titleFound {
		return false
	}

	head := lines
	if len(head) > metadataScanLines {
		head = head[:metadataScanLines]
	}
	headText := strings.Join(head, "\n")

	matches := 0
	for _, re := range metadataPatterns {
		if re.MatchString(headText) {
			matches++
		}
	}

	return matches >= minMetadataMatches
}
