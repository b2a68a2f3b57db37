package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
)

// fileConfig is the on-disk schema of ~/.portscope/config.json. Port labels
// and custom groups use loosely-typed values so malformed user entries can
// be coerced or skipped instead of failing the whole load.
type fileConfig struct {
	GroupBy         string            `json:"group_by"`
	ViewMode        string            `json:"view_mode"`
	FilterMode      string            `json:"filter_mode"`
	RefreshInterval *int              `json:"refresh_interval"`
	OnlyWorkspace   bool              `json:"only_workspace"`
	StrictWorkspace bool              `json:"strict_workspace"`
	ShowSystem      *bool             `json:"show_system"`
	PortLabels      map[string]string `json:"port_labels"`
	CustomGroups    map[string][]any  `json:"custom_groups"`
	WorkspaceRoots  []string          `json:"workspace_roots"`
	ExtraPaths      []string          `json:"extra_paths"`
	HistoryCap      int               `json:"history_cap"`
}

// DefaultConfigDir returns the portscope data directory under the user's
// home.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".portscope")
}

// LoadSettings reads the config file and returns engine settings plus the
// configured workspace roots. A missing file yields defaults; malformed
// entries are skipped with a warning rather than raised.
func LoadSettings(path string, logger *zap.Logger) (domain.Settings, []string) {
	settings := defaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read config, using defaults",
				zap.String("path", path),
				zap.Error(err))
		}
		return settings, nil
	}

	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Warn("failed to parse config, using defaults",
			zap.String("path", path),
			zap.Error(err))
		return settings, nil
	}

	if cfg.GroupBy != "" {
		settings.GroupBy = domain.GroupBy(cfg.GroupBy)
	}
	if cfg.ViewMode != "" {
		settings.ViewMode = domain.ViewMode(cfg.ViewMode)
	}
	if cfg.FilterMode != "" {
		settings.FilterMode = domain.FilterMode(cfg.FilterMode)
	}
	// An explicit 0 disables auto-refresh; an absent key keeps the default.
	if cfg.RefreshInterval != nil && *cfg.RefreshInterval >= 0 {
		settings.RefreshInterval = *cfg.RefreshInterval
	}
	settings.OnlyWorkspace = cfg.OnlyWorkspace
	settings.StrictWorkspace = cfg.StrictWorkspace
	if cfg.ShowSystem != nil {
		settings.ShowSystem = *cfg.ShowSystem
	}
	settings.ExtraPaths = cfg.ExtraPaths
	if cfg.HistoryCap > 0 {
		settings.HistoryCap = cfg.HistoryCap
	}

	settings.PortLabels = parsePortLabels(cfg.PortLabels, logger)
	settings.CustomGroups = parseCustomGroups(cfg.CustomGroups, logger)

	return settings, cfg.WorkspaceRoots
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		GroupBy:         domain.GroupByCategory,
		ViewMode:        domain.ViewHierarchical,
		FilterMode:      domain.FilterNone,
		RefreshInterval: 10,
		ShowSystem:      true,
		PortLabels:      map[int]string{},
		HistoryCap:      500,
	}
}

func parsePortLabels(raw map[string]string, logger *zap.Logger) map[int]string {
	labels := make(map[int]string, len(raw))
	for key, label := range raw {
		port, err := strconv.Atoi(key)
		if err != nil || port < 1 || port > 65535 {
			logger.Warn("skipping port label with invalid port", zap.String("port", key))
			continue
		}
		labels[port] = label
	}
	return labels
}

// parseCustomGroups coerces numeric entries (JSON numbers or numeric
// strings) and skips anything else. Group order is stabilized by name since
// JSON object iteration is unordered.
func parseCustomGroups(raw map[string][]any, logger *zap.Logger) []domain.GroupDefinition {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]domain.GroupDefinition, 0, len(names))
	for _, name := range names {
		def := domain.GroupDefinition{Name: name}
		for _, entry := range raw[name] {
			switch v := entry.(type) {
			case float64:
				def.Ports = append(def.Ports, int(v))
			case string:
				port, err := strconv.Atoi(v)
				if err != nil {
					logger.Warn("skipping non-numeric group port",
						zap.String("group", name),
						zap.String("entry", v))
					continue
				}
				def.Ports = append(def.Ports, port)
			default:
				logger.Warn("skipping non-numeric group port", zap.String("group", name))
			}
		}
		groups = append(groups, def)
	}
	return groups
}

// StaticWorkspaceProvider implements domain.WorkspaceProvider over a fixed
// list of roots, typically the configured workspace roots plus the current
// working directory.
type StaticWorkspaceProvider struct {
	roots []string
}

// NewStaticWorkspaceProvider creates a provider for the given roots.
func NewStaticWorkspaceProvider(roots []string) *StaticWorkspaceProvider {
	return &StaticWorkspaceProvider{roots: roots}
}

// Roots returns the open workspace root directories.
func (p *StaticWorkspaceProvider) Roots() []string {
	return p.roots
}

var _ domain.WorkspaceProvider = (*StaticWorkspaceProvider)(nil)
