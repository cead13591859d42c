// Package version parses, compares and increments the serial-numbered
// version strings embedded in deployed framework files, e.g. "4.5.1-007".
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"claudepm/internal/logging"
)

// Extraction patterns tried in order; first match wins. The HTML-comment
// and quoted-key variants cover metadata blocks and JSON-ish embeddings.
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`CLAUDE_MD_VERSION:\s*([\d.-]+)`),
	regexp.MustCompile(`<!--\s*CLAUDE_MD_VERSION:\s*([\d.-]+)\s*-->`),
	regexp.MustCompile(`"CLAUDE_MD_VERSION"\s*:\s*"([\d.-]+)"`),
}

// Extract searches content for an embedded CLAUDE_MD_VERSION marker.
// Returns the version string and true, or "" and false if none is found.
func Extract(content string) (string, bool) {
	for _, re := range extractPatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			v := strings.Trim(m[1], ".-")
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Tag is a parsed version: a framework tuple plus a deployment serial.
// "4.5.1-007" parses to ([4 5 1], 7). Old-style "4.5.1" implies serial 0.
type Tag struct {
	Framework []int
	Serial    int
}

// Parse splits a version string into its framework tuple and serial.
// Returns false when any segment is non-numeric; callers fall back to
// plain string ordering in that case.
func Parse(s string) (Tag, bool) {
	fwPart := s
	serial := 0

	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		n, err := strconv.Atoi(s[idx+1:])
		if err != nil {
			return Tag{}, false
		}
		serial = n
		fwPart = s[:idx]
	}

	segments := strings.Split(fwPart, ".")
	tuple := make([]int, 0, len(segments))
	for _, seg := range segments {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return Tag{}, false
		}
		tuple = append(tuple, n)
	}
	if len(tuple) == 0 {
		return Tag{}, false
	}

	return Tag{Framework: tuple, Serial: serial}, true
}

// FrameworkPart returns the framework portion of a version string,
// i.e. everything before the trailing "-NNN" serial if present.
func FrameworkPart(s string) string {
	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		if _, err := strconv.Atoi(s[idx+1:]); err == nil {
			return s[:idx]
		}
	}
	return s
}

// Compare orders two version strings. Returns -1, 0 or 1.
// Framework tuples compare lexicographically with zero-padding when they
// differ in length, then serials break ties. If either side fails to
// parse, both degrade to plain string comparison.
func Compare(a, b string) int {
	ta, okA := Parse(a)
	tb, okB := Parse(b)
	if !okA || !okB {
		logging.Get(logging.CategoryVersion).Debug("comparison degraded to string order: %q vs %q", a, b)
		return strings.Compare(a, b)
	}

	n := len(ta.Framework)
	if len(tb.Framework) > n {
		n = len(tb.Framework)
	}
	for i := 0; i < n; i++ {
		var va, vb int
		if i < len(ta.Framework) {
			va = ta.Framework[i]
		}
		if i < len(tb.Framework) {
			vb = tb.Framework[i]
		}
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}

	switch {
	case ta.Serial < tb.Serial:
		return -1
	case ta.Serial > tb.Serial:
		return 1
	}
	return 0
}

// Next produces the version for a fresh deployment. A new framework
// version (or no existing version at all) restarts the serial at 001;
// otherwise the existing serial is incremented.
func Next(existing, frameworkVersion string) string {
	if existing == "" {
		return fmt.Sprintf("%s-001", frameworkVersion)
	}

	tag, ok := Parse(existing)
	if !ok || FrameworkPart(existing) != frameworkVersion {
		return fmt.Sprintf("%s-001", frameworkVersion)
	}

	return fmt.Sprintf("%s-%03d", frameworkVersion, tag.Serial+1)
}
