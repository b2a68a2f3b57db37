package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portscope/portscope/internal/domain"
)

func sampleRecords() []domain.PortRecord {
	return []domain.PortRecord{
		{Port: 3000, PID: 10, ProcessName: "node", CommandLine: "npm run dev",
			Category: domain.CategoryDev, IsFavorite: true, WorkspaceFolder: "/home/u/app",
			Project: &domain.ProjectInfo{Name: "app", Path: "/home/u/app", Framework: "Next.js"}},
		{Port: 4321, PID: 11, ProcessName: "nginx", CommandLine: "nginx -g daemon off",
			Category: domain.CategorySystem},
		{Port: 8000, PID: 12, ProcessName: "python", CommandLine: "python manage.py runserver",
			Category: domain.CategoryDev, WorkspaceFolder: "/home/u/api"},
		{Port: 9999, PID: 13, ProcessName: "", CommandLine: "",
			Category: domain.CategorySystem},
	}
}

func viewOf(records []domain.PortRecord, term string, filter domain.FilterMode, groupBy domain.GroupBy) domain.View {
	return BuildView(records, term, filter, groupBy, domain.ViewHierarchical, nil)
}

func totalRecords(view domain.View) int {
	total := 0
	for _, group := range view.Groups {
		total += len(group.Records)
	}
	return total
}

func TestView_CategoryPartition(t *testing.T) {
	view := viewOf(sampleRecords(), "", domain.FilterNone, domain.GroupByCategory)

	require.Len(t, view.Groups, 3)
	assert.Equal(t, domain.BucketFavorites, view.Groups[0].Label)
	assert.Equal(t, domain.BucketDevServers, view.Groups[1].Label)
	assert.Equal(t, domain.BucketSystem, view.Groups[2].Label)

	// Every record appears in exactly one bucket and nothing is lost.
	assert.Equal(t, 4, totalRecords(view))
	assert.Equal(t, 3000, view.Groups[0].Records[0].Port) // Favorite wins over dev
	assert.Equal(t, 8000, view.Groups[1].Records[0].Port)
}

func TestView_EmptyBucketsOmitted(t *testing.T) {
	records := []domain.PortRecord{
		{Port: 4321, PID: 11, ProcessName: "nginx", Category: domain.CategorySystem},
	}

	view := viewOf(records, "", domain.FilterNone, domain.GroupByCategory)

	require.Len(t, view.Groups, 1)
	assert.Equal(t, domain.BucketSystem, view.Groups[0].Label)
}

func TestView_PortGroupingSharesCategoryBuckets(t *testing.T) {
	byCategory := viewOf(sampleRecords(), "", domain.FilterNone, domain.GroupByCategory)
	byPort := viewOf(sampleRecords(), "", domain.FilterNone, domain.GroupByPort)

	assert.Equal(t, byCategory, byPort)
}

func TestView_SearchMatchesAnyField(t *testing.T) {
	records := sampleRecords()

	assert.Equal(t, 1, totalRecords(viewOf(records, "3000", domain.FilterNone, domain.GroupByCategory)))
	assert.Equal(t, 1, totalRecords(viewOf(records, "NGINX", domain.FilterNone, domain.GroupByCategory)))
	assert.Equal(t, 1, totalRecords(viewOf(records, "app", domain.FilterNone, domain.GroupByCategory)))
	assert.Equal(t, 1, totalRecords(viewOf(records, "manage.py", domain.FilterNone, domain.GroupByCategory)))
	assert.Equal(t, 0, totalRecords(viewOf(records, "zzz", domain.FilterNone, domain.GroupByCategory)))
}

func TestView_SearchIsMonotonic(t *testing.T) {
	records := sampleRecords()
	baseline := totalRecords(viewOf(records, "", domain.FilterNone, domain.GroupByCategory))

	for _, term := range []string{"n", "no", "node", "80", "x", "manage"} {
		assert.LessOrEqual(t,
			totalRecords(viewOf(records, term, domain.FilterNone, domain.GroupByCategory)),
			baseline, "term=%q", term)
	}
}

func TestView_FilterModes(t *testing.T) {
	records := sampleRecords()

	favorites := viewOf(records, "", domain.FilterFavorites, domain.GroupByCategory)
	assert.Equal(t, 1, totalRecords(favorites))

	dev := viewOf(records, "", domain.FilterDev, domain.GroupByCategory)
	assert.Equal(t, 2, totalRecords(dev))

	workspace := viewOf(records, "", domain.FilterWorkspace, domain.GroupByCategory)
	assert.Equal(t, 2, totalRecords(workspace))

	none := viewOf(records, "", domain.FilterNone, domain.GroupByCategory)
	assert.Equal(t, 4, totalRecords(none))
}

func TestView_FilteredToZeroIsNotNoPorts(t *testing.T) {
	view := viewOf(sampleRecords(), "zzz", domain.FilterNone, domain.GroupByCategory)

	assert.False(t, view.NoPorts)
	assert.Empty(t, view.Groups)

	empty := viewOf(nil, "", domain.FilterNone, domain.GroupByCategory)
	assert.True(t, empty.NoPorts)
}

func TestView_GroupByProcess(t *testing.T) {
	records := []domain.PortRecord{
		{Port: 3000, PID: 10, ProcessName: "node"},
		{Port: 3001, PID: 11, ProcessName: "node"},
		{Port: 9999, PID: 13, ProcessName: ""},
	}

	view := viewOf(records, "", domain.FilterNone, domain.GroupByProcess)

	require.Len(t, view.Groups, 2)
	assert.Equal(t, domain.LabelUnknownProcess, view.Groups[0].Label)
	assert.Len(t, view.Groups[0].Records, 1)
	assert.Equal(t, "node", view.Groups[1].Label)
	assert.Len(t, view.Groups[1].Records, 2)
}

func TestView_GroupByCustomGroup(t *testing.T) {
	records := []domain.PortRecord{
		{Port: 8000, PID: 10, ProcessName: "python"},
		{Port: 4321, PID: 11, ProcessName: "nginx"},
	}
	groups := []domain.GroupDefinition{
		{Name: "Backend", Ports: []int{5000, 8000}},
	}

	view := BuildView(records, "", domain.FilterNone, domain.GroupByGroup, domain.ViewHierarchical, groups)

	require.Len(t, view.Groups, 2)
	assert.Equal(t, "Backend", view.Groups[0].Label)
	require.Len(t, view.Groups[0].Records, 1)
	assert.Equal(t, 8000, view.Groups[0].Records[0].Port)

	assert.Equal(t, domain.BucketUngrouped, view.Groups[1].Label)
	require.Len(t, view.Groups[1].Records, 1)
	assert.Equal(t, 4321, view.Groups[1].Records[0].Port)
}

func TestView_GroupByWorkspace(t *testing.T) {
	view := viewOf(sampleRecords(), "", domain.FilterNone, domain.GroupByWorkspace)

	require.Len(t, view.Groups, 3)
	assert.Equal(t, "/home/u/api", view.Groups[0].Label)
	assert.Equal(t, "/home/u/app", view.Groups[1].Label)
	assert.Equal(t, domain.BucketOutsideWorkspace, view.Groups[2].Label)
	assert.Len(t, view.Groups[2].Records, 2)
}

func TestView_FlatModeBypassesGrouping(t *testing.T) {
	view := BuildView(sampleRecords(), "", domain.FilterNone, domain.GroupByCategory, domain.ViewFlat, nil)

	assert.Empty(t, view.Groups)
	require.Len(t, view.Flat, 4)

	// Sorted by port ascending.
	assert.Equal(t, []int{3000, 4321, 8000, 9999},
		[]int{view.Flat[0].Port, view.Flat[1].Port, view.Flat[2].Port, view.Flat[3].Port})
}

func TestView_Idempotent(t *testing.T) {
	records := sampleRecords()

	first := BuildView(records, "n", domain.FilterDev, domain.GroupByWorkspace, domain.ViewHierarchical, nil)
	second := BuildView(records, "n", domain.FilterDev, domain.GroupByWorkspace, domain.ViewHierarchical, nil)

	assert.Equal(t, first, second)
}

func TestView_DoesNotMutateInput(t *testing.T) {
	records := sampleRecords()

	BuildView(records, "", domain.FilterNone, domain.GroupByCategory, domain.ViewHierarchical, nil)

	assert.Equal(t, sampleRecords(), records)
}
