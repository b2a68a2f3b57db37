package usecase

import (
	"strings"

	"github.com/portscope/portscope/internal/domain"
)

// defaultPortLabels maps well-known development ports to display labels.
// User-configured labels take precedence over these.
var defaultPortLabels = map[int]string{
	3000: "Node.js / React dev server",
	3001: "Node.js dev server",
	4200: "Angular dev server",
	5000: "Flask dev server",
	5173: "Vite dev server",
	6006: "Storybook",
	8000: "Django dev server",
	8080: "HTTP alternate",
	8888: "Jupyter",
	9229: "Node.js inspector",
}

// devProcessFragments are developer tool/runtime name fragments matched
// case-insensitively against the process name.
var devProcessFragments = []string{
	"node", "deno", "bun", "python", "ruby", "php", "java", "dotnet",
	"beam.smp", "webpack", "vite", "rails", "flask", "gradle", "cargo",
}

// devCmdFragments are dev-tool invocation fragments matched
// case-insensitively against the full command line.
var devCmdFragments = []string{
	"npm", "npx", "yarn", "pnpm", "vite", "webpack", "next", "nuxt",
	"ng serve", "react-scripts", "nodemon", "ts-node", "tsx ",
	"rails s", "manage.py", "flask", "uvicorn", "gunicorn",
	"php artisan", "dev-server", "storybook", "jupyter",
}

// Classifier decides whether a listening port belongs to a development
// server or a system service. It is a pure function of its inputs and
// configuration; favorite status is tracked separately.
type Classifier struct {
	labels     map[int]string // Built-in defaults merged with user overrides
	workspaces domain.WorkspaceProvider
	strict     bool
}

// NewClassifier merges user port labels over the built-in table. With strict
// enabled, anything outside an open workspace is forced to system.
func NewClassifier(userLabels map[int]string, workspaces domain.WorkspaceProvider, strict bool) *Classifier {
	labels := make(map[int]string, len(defaultPortLabels)+len(userLabels))
	for port, label := range defaultPortLabels {
		labels[port] = label
	}
	for port, label := range userLabels {
		labels[port] = label
	}
	return &Classifier{
		labels:     labels,
		workspaces: workspaces,
		strict:     strict,
	}
}

// Label returns the display label configured for a port, if any.
func (c *Classifier) Label(port int) (string, bool) {
	label, ok := c.labels[port]
	return label, ok
}

// Classify returns the category for one scanned socket.
//
// A labeled port is dev unconditionally. Otherwise a record is dev only when
// the process name looks like a developer runtime AND there is corroborating
// evidence (a dev-tool keyword in the command line, or the command line
// touching an open workspace). Requiring both avoids mislabeling a
// production service as a dev server merely because its binary is named
// "node".
func (c *Classifier) Classify(port int, processName, commandLine string) domain.Category {
	if _, ok := c.labels[port]; ok {
		return domain.CategoryDev
	}

	nameLower := strings.ToLower(processName)
	cmdLower := strings.ToLower(commandLine)

	isDevProcess := containsAny(nameLower, devProcessFragments)
	hasDevCmd := containsAny(cmdLower, devCmdFragments)
	inWorkspace := false
	for _, root := range c.workspaces.Roots() {
		if root != "" && strings.Contains(cmdLower, strings.ToLower(root)) {
			inWorkspace = true
			break
		}
	}

	if isDevProcess && (hasDevCmd || inWorkspace) {
		return domain.CategoryDev
	}
	if c.strict && !inWorkspace {
		return domain.CategorySystem
	}
	return domain.CategorySystem
}

func containsAny(s string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
