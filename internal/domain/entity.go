// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Category classifies a listening port as development or system.
type Category string

const (
	CategoryDev    Category = "dev"
	CategorySystem Category = "system"
)

// Status describes how a record relates to the previous snapshot.
type Status string

const (
	StatusNew     Status = "new"     // Port was not listening in the previous snapshot
	StatusChanged Status = "changed" // Port was listening but owned by a different PID
	StatusStable  Status = "stable"  // Same (port, pid) pair as before
)

// Socket is one raw (port, process) tuple as produced by a scanning backend,
// before classification and project detection.
type Socket struct {
	Port        int
	PID         int // 0 = unknown owner
	ProcessName string
	CommandLine string
}

// ProjectInfo describes the project a dev server appears to run from.
// Recomputed on every scan; never persisted.
type ProjectInfo struct {
	Name      string // Base name of the working directory
	Path      string // Absolute working directory
	Framework string // e.g. "Next.js", "Django", "Node.js"
}

// PortRecord is one observed listening socket with everything the engine
// derived about it. Rebuilt wholesale on every scan; only the favorites set
// and the history log survive across scans (keyed by port).
type PortRecord struct {
	Port            int
	PID             int
	ProcessName     string
	CommandLine     string
	Category        Category
	Label           string // Configured display string for the port, if any
	IsFavorite      bool
	Project         *ProjectInfo
	WorkspaceFolder string
	Status          Status
}

// HistoryAction identifies the transition a history entry records.
type HistoryAction string

const (
	ActionStarted HistoryAction = "started"
	ActionStopped HistoryAction = "stopped"
	ActionChanged HistoryAction = "changed"
)

// HistoryEntry is one append-only record of a port state transition.
type HistoryEntry struct {
	Port        int
	PID         int
	ProcessName string
	Timestamp   time.Time
	Action      HistoryAction
	Details     string
}

// GroupDefinition is a user-configured named set of ports.
// The engine treats it as read-only input when grouping by custom group.
type GroupDefinition struct {
	Name  string
	Ports []int
}

// FilterMode selects which records survive filtering, after search.
type FilterMode string

const (
	FilterNone      FilterMode = "none"
	FilterFavorites FilterMode = "favorites"
	FilterDev       FilterMode = "dev"
	FilterWorkspace FilterMode = "workspace"
)

// GroupBy selects the bucketing dimension of a hierarchical view.
type GroupBy string

const (
	GroupByCategory  GroupBy = "category"
	GroupByPort      GroupBy = "port" // Same buckets as category
	GroupByProcess   GroupBy = "process"
	GroupByGroup     GroupBy = "group"
	GroupByWorkspace GroupBy = "workspace"
)

// ViewMode selects hierarchical (grouped) or flat list output.
type ViewMode string

const (
	ViewHierarchical ViewMode = "hierarchical"
	ViewFlat         ViewMode = "flat"
)

// Bucket labels for the fixed category grouping and the synthetic buckets.
const (
	BucketFavorites        = "Favorites"
	BucketDevServers       = "Dev Servers"
	BucketSystem           = "System"
	BucketUngrouped        = "Ungrouped"
	BucketOutsideWorkspace = "Outside Workspace"
	LabelUnknownProcess    = "Unknown"
)

// Group is one bucket of a hierarchical view.
type Group struct {
	Label   string
	Records []PortRecord
}

// View is the output of the grouping/filtering engine. Either Groups is
// populated (hierarchical mode) or Flat is (flat mode). NoPorts is true when
// the underlying snapshot itself was empty, which is distinct from a search
// or filter reducing it to zero.
type View struct {
	Groups  []Group
	Flat    []PortRecord
	NoPorts bool
}

// Settings is the read-only engine configuration supplied by the caller.
type Settings struct {
	GroupBy         GroupBy           `json:"group_by"`
	ViewMode        ViewMode          `json:"view_mode"`
	FilterMode      FilterMode        `json:"filter_mode"`
	RefreshInterval int               `json:"refresh_interval"` // Seconds, 0 = disabled
	OnlyWorkspace   bool              `json:"only_workspace"`
	StrictWorkspace bool              `json:"strict_workspace"`
	ShowSystem      bool              `json:"show_system"`
	PortLabels      map[int]string    `json:"port_labels"`
	CustomGroups    []GroupDefinition `json:"custom_groups"`
	ExtraPaths      []string          `json:"extra_paths"`
	HistoryCap      int               `json:"history_cap"`
}
