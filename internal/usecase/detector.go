package usecase

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
)

// packageManifest is the subset of package.json the detector cares about.
type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// nodeFrameworks is checked in order: meta-frameworks win over the base
// framework they wrap (next before react, nuxt before vue).
var nodeFrameworks = []struct {
	dep   string
	label string
}{
	{"next", "Next.js"},
	{"nuxt", "Nuxt"},
	{"gatsby", "Gatsby"},
	{"@angular/core", "Angular"},
	{"svelte", "Svelte"},
	{"vue", "Vue"},
	{"react", "React"},
	{"express", "Express"},
	{"fastify", "Fastify"},
}

// ProjectDetector labels the framework/project behind a dev server by
// inspecting manifest files at its working directory. Detection is
// best-effort: every fault surfaces as "no project detected".
type ProjectDetector struct {
	fs     domain.FileSystem
	logger *zap.Logger
}

// NewProjectDetector creates a detector probing through the given filesystem.
func NewProjectDetector(fs domain.FileSystem, logger *zap.Logger) *ProjectDetector {
	return &ProjectDetector{fs: fs, logger: logger}
}

// Detect returns project info for a working directory, or nil when the
// directory does not exist or no manifest is recognized. Manifests are
// checked in fixed priority; the first one present decides the branch.
func (d *ProjectDetector) Detect(dir string) *domain.ProjectInfo {
	if dir == "" || !d.fs.DirExists(dir) {
		return nil
	}

	name := filepath.Base(dir)

	switch {
	case d.fs.Exists(filepath.Join(dir, "package.json")):
		return d.detectNode(dir, name)
	case d.fs.Exists(filepath.Join(dir, "requirements.txt")):
		return d.detectByContent(dir, name, "requirements.txt", "Python", []marker{
			{"django", "Django"},
			{"flask", "Flask"},
			{"fastapi", "FastAPI"},
		})
	case d.fs.Exists(filepath.Join(dir, "Gemfile")):
		return d.detectByContent(dir, name, "Gemfile", "Ruby", []marker{
			{"rails", "Ruby on Rails"},
			{"sinatra", "Sinatra"},
		})
	case d.fs.Exists(filepath.Join(dir, "composer.json")):
		return d.detectByContent(dir, name, "composer.json", "PHP", []marker{
			{"laravel", "Laravel"},
			{"symfony", "Symfony"},
		})
	case d.fs.Exists(filepath.Join(dir, "pom.xml")):
		return d.detectByContent(dir, name, "pom.xml", "Java (Maven)", []marker{
			{"spring-boot", "Spring Boot"},
			{"quarkus", "Quarkus"},
		})
	}

	return nil
}

// detectNode parses package.json as a dependency map, merging regular and
// development dependencies, and matches known frameworks in priority order.
func (d *ProjectDetector) detectNode(dir, name string) *domain.ProjectInfo {
	data, err := d.fs.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		d.logger.Debug("project detection failed to read manifest",
			zap.String("dir", dir),
			zap.Error(err))
		return nil
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		d.logger.Debug("project detection failed to parse package.json",
			zap.String("dir", dir),
			zap.Error(err))
		return nil
	}

	deps := make(map[string]bool, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for dep := range manifest.Dependencies {
		deps[dep] = true
	}
	for dep := range manifest.DevDependencies {
		deps[dep] = true
	}

	framework := "Node.js"
	for _, fw := range nodeFrameworks {
		if deps[fw.dep] {
			framework = fw.label
			break
		}
	}

	return &domain.ProjectInfo{Name: name, Path: dir, Framework: framework}
}

type marker struct {
	substring string
	label     string
}

// detectByContent applies case-insensitive substring markers to a manifest,
// falling back to the ecosystem's generic label.
func (d *ProjectDetector) detectByContent(dir, name, manifest, fallback string, markers []marker) *domain.ProjectInfo {
	data, err := d.fs.ReadFile(filepath.Join(dir, manifest))
	if err != nil {
		d.logger.Debug("project detection failed to read manifest",
			zap.String("dir", dir),
			zap.String("manifest", manifest),
			zap.Error(err))
		return nil
	}

	content := strings.ToLower(string(data))
	framework := fallback
	for _, m := range markers {
		if strings.Contains(content, m.substring) {
			framework = m.label
			break
		}
	}

	return &domain.ProjectInfo{Name: name, Path: dir, Framework: framework}
}
