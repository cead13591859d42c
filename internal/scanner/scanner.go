// Package scanner finds deployed framework files across directory
// hierarchies and deduplicates overlapping deployments.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"claudepm/internal/logging"
	"claudepm/internal/template"
	"claudepm/internal/version"
)

// maxParentDepth bounds the upward walk from a starting directory.
const maxParentDepth = 5

// Found describes one discovered managed file.
type Found struct {
	Path       string
	Dir        string
	IsTemplate bool
	Version    string
}

// Scanner locates managed files named TargetFilename.
type Scanner struct {
	// TargetFilename is the deployed file name, normally "CLAUDE.md".
	TargetFilename string
}

// New returns a scanner for the given deployed filename.
func New(targetFilename string) *Scanner {
	if targetFilename == "" {
		targetFilename = "CLAUDE.md"
	}
	return &Scanner{TargetFilename: targetFilename}
}

// candidateDirs returns start plus up to maxParentDepth of its parents.
func candidateDirs(start string) []string {
	dirs := []string{start}
	cur := start
	for i := 0; i < maxParentDepth; i++ {
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		dirs = append(dirs, parent)
		cur = parent
	}
	return dirs
}

// classify reads and classifies a single candidate file. Missing files
// return ok=false; read errors are logged and treated as missing.
func (s *Scanner) classify(path string) (Found, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Scanner("cannot read %s: %v", path, err)
		}
		return Found{}, false
	}

	content := string(data)
	f := Found{
		Path:       path,
		Dir:        filepath.Dir(path),
		IsTemplate: template.IsDeploymentTemplate(content),
	}
	if v, ok := version.Extract(content); ok {
		f.Version = v
	}
	return f, true
}

// Scan searches each root directory and its parent chain for managed
// files, concurrently across roots. Results are deduplicated by path
// and sorted.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]Found, error) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	var results []Found

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, root := range roots {
		root := root
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				logging.Scanner("cannot resolve root %s: %v", root, err)
				return nil
			}
			for _, dir := range candidateDirs(abs) {
				path := filepath.Join(dir, s.TargetFilename)
				mu.Lock()
				dup := seen[path]
				seen[path] = true
				mu.Unlock()
				if dup {
					continue
				}

				f, ok := s.classify(path)
				if !ok {
					continue
				}
				mu.Lock()
				results = append(results, f)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	logging.Scanner("scan over %d roots found %d managed files", len(roots), len(results))
	return results, nil
}

// DedupResult reports which deployments survive deduplication and which
// are shadowed by an ancestor deployment.
type DedupResult struct {
	Keep       []Found
	Duplicates []Found
}

// Dedup keeps the rootmost deployment along each directory chain.
// A deployment whose directory is an ancestor of another deployment's
// directory shadows the deeper one.
func Dedup(found []Found) DedupResult {
	templates := make([]Found, 0, len(found))
	for _, f := range found {
		if f.IsTemplate {
			templates = append(templates, f)
		}
	}

	// Sort shallowest-first so ancestors are considered before descendants.
	sort.Slice(templates, func(i, j int) bool {
		di := strings.Count(templates[i].Dir, string(filepath.Separator))
		dj := strings.Count(templates[j].Dir, string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return templates[i].Dir < templates[j].Dir
	})

	var res DedupResult
	for _, f := range templates {
		shadowed := false
		for _, kept := range res.Keep {
			if isAncestor(kept.Dir, f.Dir) {
				shadowed = true
				break
			}
		}
		if shadowed {
			res.Duplicates = append(res.Duplicates, f)
		} else {
			res.Keep = append(res.Keep, f)
		}
	}

	if len(res.Duplicates) > 0 {
		logging.Scanner("dedup: keeping %d deployments, %d shadowed", len(res.Keep), len(res.Duplicates))
	}
	return res
}

func isAncestor(ancestor, dir string) bool {
	if ancestor == dir {
		return false
	}
	rel, err := filepath.Rel(ancestor, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
