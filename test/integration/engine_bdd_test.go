//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/portscope/portscope/internal/domain"
	"github.com/portscope/portscope/internal/infra"
	"github.com/portscope/portscope/internal/usecase"
)

// fakeScanner feeds canned sockets into the pipeline so the suite can run
// without real listeners on the host.
type fakeScanner struct {
	sockets []domain.Socket
}

func (f *fakeScanner) Scan(ctx context.Context) ([]domain.Socket, error) {
	return append([]domain.Socket(nil), f.sockets...), nil
}

var _ = Describe("Port Monitor Engine", func() {
	var (
		tmpDir     string
		projectDir string
		scanner    *fakeScanner
		history    *infra.SQLiteHistoryStore
		monitor    *usecase.Monitor
	)

	buildMonitor := func(settings domain.Settings) *usecase.Monitor {
		logger := zap.NewNop()
		fs := infra.NewOSFileSystem()
		workspaces := infra.NewStaticWorkspaceProvider([]string{projectDir})

		favorites := infra.NewFileFavoritesStore(tmpDir)
		snapshot := usecase.NewSnapshotStore(favorites, history, logger)
		resolver := usecase.NewWorkdirResolver(fs, workspaces, settings.ExtraPaths)
		classifier := usecase.NewClassifier(settings.PortLabels, workspaces, settings.StrictWorkspace)
		detector := usecase.NewProjectDetector(fs, logger)

		return usecase.NewMonitor(
			scanner, scanner, resolver, classifier, detector,
			snapshot, workspaces, settings, logger,
		)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "portscope-integration-*")
		Expect(err).NotTo(HaveOccurred())

		projectDir = filepath.Join(tmpDir, "webapp")
		Expect(os.MkdirAll(projectDir, 0755)).To(Succeed())
		manifest := `{"name": "webapp", "dependencies": {"next": "14.0.0", "react": "18.0.0"}}`
		Expect(os.WriteFile(filepath.Join(projectDir, "package.json"), []byte(manifest), 0644)).To(Succeed())

		history, err = infra.NewSQLiteHistoryStore(tmpDir, 100)
		Expect(err).NotTo(HaveOccurred())

		scanner = &fakeScanner{sockets: []domain.Socket{
			{Port: 3000, PID: 4321, ProcessName: "node", CommandLine: "node " + projectDir + "/server.js"},
			{Port: 5432, PID: 812, ProcessName: "postgres", CommandLine: "/usr/bin/postgres -D /var/lib/pg"},
		}}

		monitor = buildMonitor(domain.Settings{
			GroupBy:    domain.GroupByCategory,
			ViewMode:   domain.ViewHierarchical,
			FilterMode: domain.FilterNone,
			ShowSystem: true,
			HistoryCap: 100,
			PortLabels: map[int]string{},
		})
	})

	AfterEach(func() {
		history.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("Scan", func() {
		Context("with a dev server inside the workspace", func() {
			It("classifies, resolves, and detects the project end to end", func() {
				count, err := monitor.Scan(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(2))

				records := monitor.Snapshot().Records()
				byPort := make(map[int]domain.PortRecord, len(records))
				for _, rec := range records {
					byPort[rec.Port] = rec
				}

				dev := byPort[3000]
				Expect(dev.Category).To(Equal(domain.CategoryDev))
				Expect(dev.WorkspaceFolder).To(Equal(projectDir))
				Expect(dev.Project).NotTo(BeNil())
				Expect(dev.Project.Framework).To(Equal("Next.js"))
				Expect(dev.Project.Name).To(Equal("webapp"))

				Expect(byPort[5432].Category).To(Equal(domain.CategorySystem))
			})

			It("groups dev and system listeners into separate buckets", func() {
				_, err := monitor.Scan(context.Background())
				Expect(err).NotTo(HaveOccurred())

				view := monitor.View(domain.GroupByCategory, domain.ViewHierarchical)
				Expect(view.NoPorts).To(BeFalse())

				labels := make([]string, 0, len(view.Groups))
				for _, group := range view.Groups {
					labels = append(labels, group.Label)
				}
				Expect(labels).To(ConsistOf(domain.BucketDevServers, domain.BucketSystem))
			})
		})

		Context("when a listener disappears between scans", func() {
			It("records a stopped history entry", func() {
				_, err := monitor.Scan(context.Background())
				Expect(err).NotTo(HaveOccurred())

				scanner.sockets = scanner.sockets[:1]
				_, err = monitor.Scan(context.Background())
				Expect(err).NotTo(HaveOccurred())

				entries, err := history.Recent(10)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).NotTo(BeEmpty())
				Expect(entries[0].Port).To(Equal(5432))
				Expect(entries[0].Action).To(Equal(domain.ActionStopped))
			})
		})
	})

	Describe("Favorites", func() {
		It("persists toggles across engine restarts", func() {
			_, err := monitor.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())

			isFav, err := monitor.ToggleFavorite(5432)
			Expect(err).NotTo(HaveOccurred())
			Expect(isFav).To(BeTrue())

			reborn := buildMonitor(domain.Settings{
				GroupBy:    domain.GroupByCategory,
				ViewMode:   domain.ViewHierarchical,
				FilterMode: domain.FilterNone,
				ShowSystem: true,
				HistoryCap: 100,
				PortLabels: map[int]string{},
			})
			Expect(reborn.Snapshot().IsFavorite(5432)).To(BeTrue())
		})

		It("surfaces favorited system ports in the favorites bucket", func() {
			_, err := monitor.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())

			_, err = monitor.ToggleFavorite(5432)
			Expect(err).NotTo(HaveOccurred())

			view := monitor.View(domain.GroupByCategory, domain.ViewHierarchical)
			var favorites *domain.Group
			for i := range view.Groups {
				if view.Groups[i].Label == domain.BucketFavorites {
					favorites = &view.Groups[i]
				}
			}
			Expect(favorites).NotTo(BeNil())
			Expect(favorites.Records).To(HaveLen(1))
			Expect(favorites.Records[0].Port).To(Equal(5432))
		})
	})

	Describe("Filtering", func() {
		It("narrows the flat view by search term", func() {
			_, err := monitor.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())

			monitor.SetSearchTerm("postgres")
			view := monitor.View(domain.GroupByCategory, domain.ViewFlat)

			Expect(view.Flat).To(HaveLen(1))
			Expect(view.Flat[0].Port).To(Equal(5432))
			Expect(view.NoPorts).To(BeFalse())
		})
	})
})
