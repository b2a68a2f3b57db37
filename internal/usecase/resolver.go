// Package usecase contains the port discovery engine's business logic.
package usecase

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/portscope/portscope/internal/domain"
)

var quotedPathPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// WorkdirResolver infers a process's project directory from its command
// line. It holds no state beyond its configuration; filesystem probing goes
// through the injected FileSystem so resolution never throws on I/O errors.
type WorkdirResolver struct {
	fs         domain.FileSystem
	workspaces domain.WorkspaceProvider
	extraPaths []string
}

// NewWorkdirResolver creates a resolver with the given workspace roots and
// extra candidate paths from configuration.
func NewWorkdirResolver(fs domain.FileSystem, workspaces domain.WorkspaceProvider, extraPaths []string) *WorkdirResolver {
	return &WorkdirResolver{
		fs:         fs,
		workspaces: workspaces,
		extraPaths: extraPaths,
	}
}

// Resolve returns the inferred working directory for a command line.
// Rules are applied in strict priority order, first match wins:
//  1. a configured workspace root appearing in the command line
//  2. a configured extra path appearing in the command line
//  3. the first quoted substring naming an existing path
//  4. the nearest existing ancestor of any path-like token
func (r *WorkdirResolver) Resolve(commandLine string) (string, bool) {
	if commandLine == "" {
		return "", false
	}
	lower := strings.ToLower(commandLine)

	roots := r.workspaces.Roots()
	for _, root := range roots {
		if root == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(root)) {
			return root, true
		}
	}

	for _, extra := range r.extraPaths {
		if extra == "" {
			continue
		}
		candidate := extra
		if !filepath.IsAbs(candidate) && len(roots) > 0 {
			candidate = filepath.Join(roots[0], candidate)
		}
		if strings.Contains(lower, strings.ToLower(candidate)) {
			return candidate, true
		}
	}

	for _, match := range quotedPathPattern.FindAllStringSubmatch(commandLine, -1) {
		quoted := match[1]
		if quoted == "" {
			quoted = match[2]
		}
		if quoted != "" && r.fs.Exists(quoted) {
			return quoted, true
		}
	}

	return r.walkTokens(commandLine)
}

// walkTokens splits the command line on whitespace and, for every token that
// looks like a path, climbs its ancestors until an existing directory is
// found. A script argument like /home/u/app/server.js resolves to
// /home/u/app this way.
func (r *WorkdirResolver) walkTokens(commandLine string) (string, bool) {
	for _, token := range strings.Fields(commandLine) {
		if !strings.ContainsRune(token, filepath.Separator) && !strings.ContainsRune(token, '/') {
			continue
		}
		candidate := strings.Trim(token, `"'`)
		for candidate != "" {
			parent := filepath.Dir(candidate)
			if parent == candidate {
				// Reached the filesystem root; a bare root is never a
				// useful project directory.
				break
			}
			if r.fs.DirExists(candidate) {
				return candidate, true
			}
			candidate = parent
		}
	}
	return "", false
}
