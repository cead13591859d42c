package template

import (
	"regexp"
	"sort"
	"strings"
)

// Render substitutes {{KEY}} and {{ KEY }} tokens in text with values
// from vars. Keys are replaced longest-first so keys sharing a prefix
// never collide. Missing keys pass through unresolved; no escaping,
// no recursive expansion.
func Render(text string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		v := vars[k]
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
		text = strings.ReplaceAll(text, "{{ "+k+" }}", v)
	}
	return text
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Placeholders deliberately left unrendered. DEPLOYMENT_ID is filled in
// per-deployment by the deployer, not by the generic variable map.
var allowedUnresolved = map[string]bool{
	"DEPLOYMENT_ID": true,
}

// FindUnresolved returns placeholder names still present in rendered
// content, excluding the allow-listed ones. An empty result means the
// render is complete.
func FindUnresolved(content string) []string {
	seen := make(map[string]bool)
	var leftover []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if allowedUnresolved[name] || seen[name] {
			continue
		}
		seen[name] = true
		leftover = append(leftover, name)
	}
	sort.Strings(leftover)
	return leftover
}
