// Package main is the CLI entry point for portscope.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/portscope/portscope/internal/daemon"
	"github.com/portscope/portscope/internal/domain"
	"github.com/portscope/portscope/internal/infra"
	"github.com/portscope/portscope/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "portscope",
	Short: "Discover and classify local listening TCP ports",
	Long: `portscope scans the local machine for listening TCP ports, attributes
each to its owning process, infers the project a dev server runs from, and
classifies ports as dev servers or system services. Favorites and port
history persist across runs under ~/.portscope.`,
	Version: Version,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the flat port list",
	RunE:  runScan,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Run one scan and print the grouped view",
	Long: `Scans once and prints the hierarchical view. The grouping dimension,
filter mode, and search term can be overridden per invocation.`,
	RunE: runList,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-scan periodically until interrupted",
	Long: `Runs the scan loop at the configured refresh interval, recording port
start/stop/change transitions into the history log. Stop with Ctrl-C.`,
	RunE: runWatch,
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <port>",
	Short: "Toggle favorite status for a port",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorite,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded port transitions and per-port start counts",
	RunE:  runHistory,
}

var killCmd = &cobra.Command{
	Use:   "kill <port>",
	Short: "Kill the process listening on a port",
	Args:  cobra.ExactArgs(1),
	RunE:  runKill,
}

var (
	searchFlag  string
	filterFlag  string
	groupByFlag string
	flatFlag    bool
	limitFlag   int
	configFlag  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path (default ~/.portscope/config.json)")

	listCmd.Flags().StringVar(&searchFlag, "search", "", "Search term (matches port, process, project, command line)")
	listCmd.Flags().StringVar(&filterFlag, "filter", "", "Filter mode: none, favorites, dev, workspace")
	listCmd.Flags().StringVar(&groupByFlag, "group-by", "", "Grouping: category, port, process, group, workspace")
	listCmd.Flags().BoolVar(&flatFlag, "flat", false, "Flat list instead of grouped view")

	historyCmd.Flags().IntVar(&limitFlag, "limit", 25, "Maximum number of entries to show")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(favoriteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(killCmd)
}

// engine bundles everything a command needs.
type engine struct {
	monitor  *usecase.Monitor
	history  domain.HistoryStore
	control  domain.ProcessController
	settings domain.Settings
	logger   *zap.Logger
}

func (e *engine) close() {
	_ = e.history.Close()
	_ = e.logger.Sync()
}

// buildEngine wires the engine from configuration. Workspace roots default
// to the current working directory when none are configured.
func buildEngine(logger *zap.Logger) (*engine, error) {
	dataDir := infra.DefaultConfigDir()
	configPath := configFlag
	if configPath == "" {
		configPath = filepath.Join(dataDir, "config.json")
	}

	settings, roots := infra.LoadSettings(configPath, logger)
	if len(roots) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			roots = []string{cwd}
		}
	}

	historyStore, err := infra.NewSQLiteHistoryStore(dataDir, settings.HistoryCap)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	workspaces := infra.NewStaticWorkspaceProvider(roots)
	fs := infra.NewOSFileSystem()
	snapshot := usecase.NewSnapshotStore(infra.NewFileFavoritesStore(dataDir), historyStore, logger)

	monitor := usecase.NewMonitor(
		infra.NewPsutilScanner(),
		infra.NewLsofScanner(),
		usecase.NewWorkdirResolver(fs, workspaces, settings.ExtraPaths),
		usecase.NewClassifier(settings.PortLabels, workspaces, settings.StrictWorkspace),
		usecase.NewProjectDetector(fs, logger),
		snapshot,
		workspaces,
		settings,
		logger,
	)

	return &engine{
		monitor:  monitor,
		history:  historyStore,
		control:  infra.NewProcessController(),
		settings: settings,
		logger:   logger,
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(zap.NewNop())
	if err != nil {
		return err
	}
	defer eng.close()

	count, err := eng.monitor.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if count == 0 {
		fmt.Println("No listening ports found.")
		return nil
	}

	view := eng.monitor.CurrentView("", domain.FilterNone, eng.settings.GroupBy, domain.ViewFlat)
	printFlat(view.Flat)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(zap.NewNop())
	if err != nil {
		return err
	}
	defer eng.close()

	if _, err := eng.monitor.Scan(context.Background()); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	filterMode := eng.settings.FilterMode
	if filterFlag != "" {
		filterMode = domain.FilterMode(filterFlag)
	}
	groupBy := eng.settings.GroupBy
	if groupByFlag != "" {
		groupBy = domain.GroupBy(groupByFlag)
	}
	viewMode := eng.settings.ViewMode
	if flatFlag {
		viewMode = domain.ViewFlat
	}

	view := eng.monitor.CurrentView(searchFlag, filterMode, groupBy, viewMode)
	if view.NoPorts {
		fmt.Println("No listening ports found.")
		return nil
	}

	if viewMode == domain.ViewFlat {
		printFlat(view.Flat)
		return nil
	}

	if len(view.Groups) == 0 {
		fmt.Println("No ports match the current search/filter.")
		return nil
	}
	for _, group := range view.Groups {
		fmt.Printf("\n%s (%d)\n", group.Label, len(group.Records))
		for _, rec := range group.Records {
			fmt.Printf("  %s\n", formatRecord(rec))
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	eng, err := buildEngine(logger)
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	interval := time.Duration(eng.settings.RefreshInterval) * time.Second
	poller := daemon.NewPoller(daemon.PollerConfig{Interval: interval}, eng.monitor, logger)

	fmt.Printf("Watching listening ports (refresh every %s). Logs: %s\n",
		interval, filepath.Join(infra.DefaultConfigDir(), "portscope.log"))

	if err := poller.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runFavorite(cmd *cobra.Command, args []string) error {
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(zap.NewNop())
	if err != nil {
		return err
	}
	defer eng.close()

	nowFavorite, err := eng.monitor.ToggleFavorite(port)
	if err != nil {
		return err
	}

	if nowFavorite {
		fmt.Printf("Port %d added to favorites.\n", port)
	} else {
		fmt.Printf("Port %d removed from favorites.\n", port)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(zap.NewNop())
	if err != nil {
		return err
	}
	defer eng.close()

	entries, err := eng.history.Recent(limitFlag)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history recorded yet. Run 'portscope watch' to start tracking.")
		return nil
	}

	fmt.Println("\nRecent port transitions:")
	for _, entry := range entries {
		line := fmt.Sprintf("  %s  port %-5d  %-7s  %s",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Port, entry.Action, entry.ProcessName)
		if entry.Details != "" {
			line += " (" + entry.Details + ")"
		}
		fmt.Println(strings.TrimRight(line, " "))
	}

	counts, err := eng.history.StartCounts()
	if err == nil && len(counts) > 0 {
		fmt.Println("\nStart counts by port:")
		for _, entry := range entries {
			if count, ok := counts[entry.Port]; ok {
				fmt.Printf("  port %-5d  started %d time(s)\n", entry.Port, count)
				delete(counts, entry.Port)
			}
		}
	}
	return nil
}

func runKill(cmd *cobra.Command, args []string) error {
	port, err := parsePort(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(zap.NewNop())
	if err != nil {
		return err
	}
	defer eng.close()

	if _, err := eng.monitor.Scan(context.Background()); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	killer := usecase.NewPortKiller(eng.control, eng.logger)
	rec, err := killer.Kill(eng.monitor.Snapshot().Records(), port)
	if err != nil {
		return err
	}
	fmt.Printf("Killed %s (pid %d) on port %d.\n", rec.ProcessName, rec.PID, port)
	return nil
}

func parsePort(arg string) (int, error) {
	port, err := strconv.Atoi(arg)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: expected 1-65535", arg)
	}
	return port, nil
}

func printFlat(records []domain.PortRecord) {
	fmt.Printf("%-6s %-8s %-18s %-10s %-14s %s\n", "PORT", "PID", "PROCESS", "CATEGORY", "LABEL", "PROJECT")
	for _, rec := range records {
		project := "-"
		if rec.Project != nil {
			project = fmt.Sprintf("%s (%s)", rec.Project.Name, rec.Project.Framework)
		}
		label := rec.Label
		if label == "" {
			label = "-"
		}
		marker := " "
		if rec.IsFavorite {
			marker = "*"
		}
		fmt.Printf("%-6d %-8d %-18s %-10s %-14s %s%s\n",
			rec.Port, rec.PID, truncate(rec.ProcessName, 18), rec.Category, truncate(label, 14), marker, project)
	}
	fmt.Printf("Total: %d ports\n", len(records))
}

func formatRecord(rec domain.PortRecord) string {
	name := rec.ProcessName
	if name == "" {
		name = domain.LabelUnknownProcess
	}
	line := fmt.Sprintf(":%d  %s (pid %d)", rec.Port, name, rec.PID)
	if rec.Label != "" {
		line = fmt.Sprintf(":%d (%s)  %s (pid %d)", rec.Port, rec.Label, name, rec.PID)
	}
	if rec.Project != nil {
		line += fmt.Sprintf("  [%s: %s]", rec.Project.Framework, rec.Project.Name)
	}
	if rec.IsFavorite {
		line += "  *"
	}
	return line
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func createLogger() *zap.Logger {
	logPath := filepath.Join(infra.DefaultConfigDir(), "portscope.log")
	_ = os.MkdirAll(infra.DefaultConfigDir(), 0700)

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{logPath}
	config.ErrorOutputPaths = []string{logPath}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
