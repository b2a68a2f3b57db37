package usecase

import (
	"sort"
	"strconv"
	"strings"

	"github.com/portscope/portscope/internal/domain"
)

// BuildView applies search and filter to a snapshot, then buckets the
// survivors along the requested grouping dimension. Records are never
// mutated, only projected. The function is total: any unknown mode falls
// back to its default arm.
func BuildView(
	records []domain.PortRecord,
	searchTerm string,
	filterMode domain.FilterMode,
	groupBy domain.GroupBy,
	viewMode domain.ViewMode,
	customGroups []domain.GroupDefinition,
) domain.View {
	view := domain.View{NoPorts: len(records) == 0}

	filtered := filterRecords(searchRecords(records, searchTerm), filterMode)
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Port != filtered[j].Port {
			return filtered[i].Port < filtered[j].Port
		}
		return filtered[i].PID < filtered[j].PID
	})

	if viewMode == domain.ViewFlat {
		view.Flat = filtered
		return view
	}

	switch groupBy {
	case domain.GroupByProcess:
		view.Groups = groupByProcess(filtered)
	case domain.GroupByGroup:
		view.Groups = groupByCustomGroup(filtered, customGroups)
	case domain.GroupByWorkspace:
		view.Groups = groupByWorkspace(filtered)
	default: // category and port share the fixed three-bucket layout
		view.Groups = groupByCategory(filtered)
	}
	return view
}

// searchRecords keeps records where any of port number, process name,
// project name, or command line contains the term, case-insensitively.
// An empty term passes everything.
func searchRecords(records []domain.PortRecord, term string) []domain.PortRecord {
	if term == "" {
		return append([]domain.PortRecord(nil), records...)
	}
	needle := strings.ToLower(term)

	var out []domain.PortRecord
	for _, rec := range records {
		switch {
		case strings.Contains(strconv.Itoa(rec.Port), needle),
			strings.Contains(strings.ToLower(rec.ProcessName), needle),
			rec.Project != nil && strings.Contains(strings.ToLower(rec.Project.Name), needle),
			strings.Contains(strings.ToLower(rec.CommandLine), needle):
			out = append(out, rec)
		}
	}
	return out
}

func filterRecords(records []domain.PortRecord, mode domain.FilterMode) []domain.PortRecord {
	if mode == domain.FilterNone || mode == "" {
		return records
	}

	var out []domain.PortRecord
	for _, rec := range records {
		switch mode {
		case domain.FilterFavorites:
			if rec.IsFavorite {
				out = append(out, rec)
			}
		case domain.FilterDev:
			if rec.Category == domain.CategoryDev {
				out = append(out, rec)
			}
		case domain.FilterWorkspace:
			if rec.WorkspaceFolder != "" {
				out = append(out, rec)
			}
		}
	}
	return out
}

// groupByCategory produces the fixed Favorites / Dev Servers / System
// partition. Favorites win regardless of category, so every record lands in
// exactly one bucket. Empty buckets are omitted.
func groupByCategory(records []domain.PortRecord) []domain.Group {
	var favorites, dev, system []domain.PortRecord
	for _, rec := range records {
		switch {
		case rec.IsFavorite:
			favorites = append(favorites, rec)
		case rec.Category == domain.CategoryDev:
			dev = append(dev, rec)
		default:
			system = append(system, rec)
		}
	}

	var groups []domain.Group
	if len(favorites) > 0 {
		groups = append(groups, domain.Group{Label: domain.BucketFavorites, Records: favorites})
	}
	if len(dev) > 0 {
		groups = append(groups, domain.Group{Label: domain.BucketDevServers, Records: dev})
	}
	if len(system) > 0 {
		groups = append(groups, domain.Group{Label: domain.BucketSystem, Records: system})
	}
	return groups
}

// groupByProcess creates one bucket per distinct process name, sorted by
// label for stable output.
func groupByProcess(records []domain.PortRecord) []domain.Group {
	buckets := make(map[string][]domain.PortRecord)
	for _, rec := range records {
		label := rec.ProcessName
		if label == "" {
			label = domain.LabelUnknownProcess
		}
		buckets[label] = append(buckets[label], rec)
	}
	return sortedGroups(buckets)
}

// groupByCustomGroup buckets records into the user-configured groups, in
// their configured order, with a synthetic Ungrouped bucket for ports that
// appear in no group.
func groupByCustomGroup(records []domain.PortRecord, defs []domain.GroupDefinition) []domain.Group {
	grouped := make(map[int]bool)
	var groups []domain.Group

	for _, def := range defs {
		members := make(map[int]bool, len(def.Ports))
		for _, port := range def.Ports {
			members[port] = true
		}

		var bucket []domain.PortRecord
		for _, rec := range records {
			if members[rec.Port] {
				bucket = append(bucket, rec)
				grouped[rec.Port] = true
			}
		}
		if len(bucket) > 0 {
			groups = append(groups, domain.Group{Label: def.Name, Records: bucket})
		}
	}

	var ungrouped []domain.PortRecord
	for _, rec := range records {
		if !grouped[rec.Port] {
			ungrouped = append(ungrouped, rec)
		}
	}
	if len(ungrouped) > 0 {
		groups = append(groups, domain.Group{Label: domain.BucketUngrouped, Records: ungrouped})
	}
	return groups
}

// groupByWorkspace creates one bucket per resolved working directory plus a
// synthetic bucket for records outside any workspace.
func groupByWorkspace(records []domain.PortRecord) []domain.Group {
	buckets := make(map[string][]domain.PortRecord)
	var outside []domain.PortRecord

	for _, rec := range records {
		if rec.WorkspaceFolder == "" {
			outside = append(outside, rec)
			continue
		}
		buckets[rec.WorkspaceFolder] = append(buckets[rec.WorkspaceFolder], rec)
	}

	groups := sortedGroups(buckets)
	if len(outside) > 0 {
		groups = append(groups, domain.Group{Label: domain.BucketOutsideWorkspace, Records: outside})
	}
	return groups
}

func sortedGroups(buckets map[string][]domain.PortRecord) []domain.Group {
	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	groups := make([]domain.Group, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, domain.Group{Label: label, Records: buckets[label]})
	}
	return groups
}
