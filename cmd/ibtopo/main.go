package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"ibtopo/internal/codec"
	"ibtopo/internal/config"
	"ibtopo/internal/handler"
	"ibtopo/internal/hub"
	"ibtopo/internal/logger"
	"ibtopo/internal/metrics"
	"ibtopo/internal/repository"
	graph "ibtopo/internal/repository/neo4j"
	"ibtopo/internal/repository/sqlite"
	"ibtopo/internal/service"
	"ibtopo/internal/watcher"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "config file path (or set IBTOPO_CONFIG env var)")
	inputFlag := flag.String("input", "", "directory holding ib-subnet-*.txt dumps and ibroutes-* directories")
	outputFlag := flag.String("output", config.DefaultOutputDir, "directory for exported topology files")
	formatsFlag := flag.StringSlice("formats", []string{config.FormatJSON}, "export formats (json, yaml, ansible-inventory)")
	dbFlag := flag.String("db", "", "SQLite snapshot database path (empty disables snapshots)")
	dbKeepFlag := flag.Int("db-keep", 0, "snapshots kept per subnet (0 keeps all)")
	workersFlag := flag.Int("workers", 0, "concurrent path walks per subnet (0 or 1 is sequential)")
	watchFlag := flag.Bool("watch", false, "re-run whenever the input directory changes")
	debounceFlag := flag.Duration("debounce", config.DefaultDebounce, "quiet period before a watch re-run")
	listenAddrFlag := flag.String("listen-addr", "", "HTTP address for metrics, events and the snapshot API in watch mode")
	metricsTextfileFlag := flag.String("metrics-textfile", "", "write prometheus metrics to this file after each run")
	logLevelFlag := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormatFlag := flag.String("log-format", string(logger.FormatAuto), "log format (auto, tint, text, json)")

	// Neo4j configuration (optional)
	neo4jEnableFlag := flag.Bool("neo4j", false, "mirror topologies into Neo4j")
	neo4jURIFlag := flag.String("neo4j-uri", config.DefaultNeo4jURI, "Neo4j server URI (or set NEO4J_URI env var)")
	neo4jDatabaseFlag := flag.String("neo4j-database", config.DefaultNeo4jDB, "Neo4j database name (or set NEO4J_DATABASE env var)")
	neo4jUsernameFlag := flag.String("neo4j-username", config.DefaultNeo4jUser, "Neo4j username (or set NEO4J_USERNAME env var)")
	neo4jPasswordFlag := flag.String("neo4j-password", "", "Neo4j password (or set NEO4J_PASSWORD env var)")

	versionFlag := flag.Bool("version", false, "print version and exit")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("ibtopo %s (%s)\n", version, commit)
		return nil
	}

	// Load .env file. godotenv does not override existing env vars, so
	// process env and explicit exports take precedence.
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *configFlag != "" {
		cfg, _, err = config.LoadFromPath(*configFlag)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)

	// Flags given explicitly win over the file and the environment
	changed := flag.CommandLine.Changed
	if changed("input") {
		cfg.Input.Dir = *inputFlag
	}
	if changed("output") {
		cfg.Output.Dir = *outputFlag
	}
	if changed("formats") {
		cfg.Output.Formats = *formatsFlag
	}
	if changed("db") {
		cfg.Database.Path = *dbFlag
	}
	if changed("db-keep") {
		cfg.Database.Keep = *dbKeepFlag
	}
	if changed("workers") {
		cfg.Paths.Workers = *workersFlag
	}
	if changed("watch") {
		cfg.Watch.Enabled = *watchFlag
	}
	if changed("debounce") {
		d := config.Duration(*debounceFlag)
		cfg.Watch.Debounce = &d
	}
	if changed("listen-addr") {
		cfg.Server.Addr = *listenAddrFlag
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile = *metricsTextfileFlag
	}
	if changed("log-level") {
		cfg.Log.Level = *logLevelFlag
	}
	if changed("log-format") {
		cfg.Log.Format = *logFormatFlag
	}
	if changed("neo4j") {
		cfg.Neo4j.Enabled = *neo4jEnableFlag
	}
	if changed("neo4j-uri") {
		cfg.Neo4j.URI = *neo4jURIFlag
		cfg.Neo4j.Enabled = true
	}
	if changed("neo4j-database") {
		cfg.Neo4j.Database = *neo4jDatabaseFlag
	}
	if changed("neo4j-username") {
		cfg.Neo4j.Username = *neo4jUsernameFlag
	}
	if changed("neo4j-password") {
		cfg.Neo4j.Password = *neo4jPasswordFlag
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(os.Stderr, logger.Options{
		Level:  cfg.Log.Level,
		Format: logger.Format(cfg.Log.Format),
	})
	slog.SetDefault(log)

	log.Info("ibtopo starting", "version", version, "commit", commit)
	log.Debug("configuration", "summary", cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	exporters, err := codec.NewExporters(cfg.Output.Formats)
	if err != nil {
		return err
	}
	sinks := []service.Sink{codec.NewFileSink(cfg.Output.Dir, exporters...)}

	var snapshots handler.SnapshotReader
	if cfg.Database.Path != "" {
		repo, err := sqlite.New(cfg.Database.Path, sqlite.WithKeep(cfg.Database.Keep))
		if err != nil {
			return fmt.Errorf("failed to open snapshot database: %w", err)
		}
		defer repo.Close()
		log.Info("snapshot database opened", "path", cfg.Database.Path, "keep", cfg.Database.Keep)
		sinks = append(sinks, repository.NewSink("sqlite", repo))
		snapshots = repo
	}

	if cfg.Neo4j.Enabled {
		client, err := graph.NewClient(ctx, log, cfg.Neo4j.URI, cfg.Neo4j.Database, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		store, err := graph.NewStore(graph.StoreConfig{Logger: log, Neo4j: client})
		if err != nil {
			return fmt.Errorf("failed to create graph store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	sse := hub.New(log)
	go sse.Run(ctx)

	bus := service.NewEventBus()
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	go forwardEvents(log, sse, events)

	pipeline := service.NewPipeline(log, service.WithPathWorkers(cfg.Paths.Workers))
	runner := service.NewRunner(log, pipeline, cfg.Input.Dir, bus, collector, sinks...)

	runOnce := func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		if cfg.Metrics.Textfile != "" {
			if werr := collector.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
				log.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
			}
		}
		return err
	}

	if !cfg.Watch.Enabled {
		return runOnce(ctx)
	}

	if cfg.Server.Addr != "" {
		srv := handler.NewServer(cfg.Server.Addr, log, handler.Routes{
			Metrics:   collector.Handler(),
			Events:    sse,
			Snapshots: snapshots,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("http server failed", "error", err)
			}
		}()
	}

	// A failed run is reported and the watch goes on; the next change may fix
	// the input.
	if err := runOnce(ctx); err != nil {
		log.Error("run failed", "error", err)
	}

	w := watcher.New(cfg.Input.Dir, log, func(ctx context.Context) {
		if err := runOnce(ctx); err != nil {
			log.Error("run failed", "error", err)
		}
	}).WithDebounce(cfg.Watch.DebounceDuration())

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch %s: %w", cfg.Input.Dir, err)
	}
	log.Info("ibtopo stopped")
	return nil
}

// forwardEvents logs run events and streams them to SSE clients
func forwardEvents(log *slog.Logger, sse *hub.Hub, events <-chan service.Event) {
	for ev := range events {
		sse.Broadcast(ev)
		switch p := ev.Payload.(type) {
		case service.SubnetSummary:
			log.Debug("event", "type", ev.Type,
				"subnet", p.Subnet,
				"incomplete", p.Stats.PathsIncomplete,
				"dead_port", p.Stats.PathsDeadPort)
		case service.SubnetFailure:
			log.Error("subnet failed", "subnet", p.Subnet, "error", p.Error)
		case service.RunResult:
			log.Info("run completed",
				"subnets", len(p.Subnets),
				"sink_errors", p.SinkErrors,
				"anonymous_names", p.AnonymousNames,
				"duration", p.Finished.Sub(p.Started))
		default:
			log.Debug("event", "type", ev.Type)
		}
	}
}
