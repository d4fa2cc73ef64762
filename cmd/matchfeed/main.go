// Package main is the matchfeed CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/cli"
	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/discovery"
	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/evolution"
	"github.com/hyperjump/matchfeed/internal/keyword"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/profile"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/server"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
	"github.com/hyperjump/matchfeed/internal/watcher"
	"github.com/hyperjump/matchfeed/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/matchfeed/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory takes precedence if it exists, so running from a checkout uses the checkout's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "discover":
		runDiscover()
	case "swipe":
		runSwipe()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("matchfeed version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	m := metrics.NewMetrics()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, m)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.rebuildIfStale(ctx, logger); err != nil {
		logger.Fatal("Failed to rebuild indices", zap.Error(err))
	}

	dispatcher := evolution.NewDispatcher(
		components.Evolution,
		cfg.Evolution.Workers,
		cfg.Evolution.QueueSize,
		evolution.WithDispatcherLogger(utils.Component(logger, "dispatcher")),
		evolution.WithDispatcherMetrics(m),
	)
	dispatcher.Start(ctx)

	watchSvc := newWatcher(cfg, components, logger, debugMode)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(server.Deps{
		Store:      components.Storage,
		Vectors:    components.VectorIndex,
		Discovery:  components.Discovery,
		Profiles:   components.Profiles,
		Catalog:    components.Catalog,
		Scorer:     components.Scorer,
		Evolution:  components.Evolution,
		Dispatcher: dispatcher,
		Metrics:    m,
	}, cfg, utils.Component(logger, "http"))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	watchSvc.Stop()
	dispatcher.Stop()
	components.saveVectors(logger)
}

// newWatcher imports files dropped into the import directories and reloads scoring weights
// when the calibration file changes.
func newWatcher(cfg *config.Config, c *Components, logger *zap.Logger, debug bool) *watcher.Watcher {
	log := utils.Component(logger, "watcher")
	opts := []watcher.WatcherOption{}
	if debug {
		opts = append(opts, watcher.WithLogger(log))
	}
	if path := c.Weights.CalibrationPath(); path != "" {
		opts = append(opts, watcher.WithFile(path, func(string) {
			// Reload logs the outcome; a rejected file keeps the previous weights.
			_ = c.Weights.Reload()
		}))
	}
	return watcher.NewWatcher(
		cfg.Watch.ImportDirectories,
		cfg.Watch.Extensions,
		true,
		func(path string) {
			res, err := c.Catalog.ImportFile(context.Background(), path)
			if err != nil {
				log.Warn("import failed", zap.String("path", path), zap.Error(err))
				return
			}
			log.Info("file imported",
				zap.String("path", path),
				zap.Int("created", res.Created),
				zap.Int("updated", res.Updated),
				zap.Int("unchanged", res.Unchanged),
				zap.Int("failed", res.Failed))
		},
		func(path string) {
			log.Info("import file removed; its items stay in the catalog", zap.String("path", path))
		},
		opts...,
	)
}

func runDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	pageSize := fs.Int("page-size", 0, "items per page (0 = server default)")
	cursor := fs.String("cursor", "", "cursor from a previous page")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: matchfeed discover [flags] <user-id>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var resp models.DiscoverResponse
	if err := doJSON(http.MethodGet, discoverURL(*serverURL, fs.Arg(0), *pageSize, *cursor), nil, http.StatusOK, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Discover failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFeed(os.Stdout, &resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// discoverURL builds the feed URL for userID.
func discoverURL(serverURL, userID string, pageSize int, cursor string) string {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u := serverURL + "/api/v1/users/" + url.PathEscape(userID) + "/discover"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func runSwipe() {
	fs := flag.NewFlagSet("swipe", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 3 {
		fmt.Println("Usage: matchfeed swipe [flags] <user-id> <item-id> <accept|reject>")
		os.Exit(1)
	}
	decision, err := models.ParseDecision(fs.Arg(2))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	body := map[string]string{"user_id": fs.Arg(0), "item_id": fs.Arg(1), "decision": string(decision)}
	var out struct {
		AcceptedCount   int  `json:"accepted_count"`
		EvolutionQueued bool `json:"evolution_queued"`
	}
	if err := doJSON(http.MethodPost, *serverURL+"/api/v1/swipes", body, http.StatusCreated, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Swipe failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Recorded %s of %s for %s (accepted so far: %d)\n", decision, fs.Arg(1), fs.Arg(0), out.AcceptedCount)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: matchfeed import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	var res *catalog.ImportResult
	if info.IsDir() {
		res, err = components.Catalog.ImportDirectory(ctx, path, cfg.Watch.Extensions)
	} else {
		res, err = components.Catalog.ImportFile(ctx, path)
	}
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	components.saveVectors(logger)
	if err := cli.WriteImportResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status cli.StatusReport
	if *serverURL != "" {
		if err := doJSON(http.MethodGet, *serverURL+"/api/v1/status", nil, http.StatusOK, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		report, err := components.status(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *report
	}

	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// doJSON sends body as JSON and decodes the response into out. A status other than want is
// returned as an error carrying the server's error message.
func doJSON(method, target string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.ItemIndex
	Weights      *ranking.WeightStore
	Scorer       *ranking.Scorer
	Catalog      *catalog.Catalog
	Profiles     *profile.Service
	Discovery    *discovery.Service
	Evolution    *evolution.Engine
	vectorPath   string
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// saveVectors persists the memory vector index. Other index types persist on write.
func (c *Components) saveVectors(logger *zap.Logger) {
	if c.vectorPath == "" {
		return
	}
	if err := c.VectorIndex.Save(c.vectorPath); err != nil {
		logger.Warn("vector index save failed", zap.String("path", c.vectorPath), zap.Error(err))
	}
}

// rebuildIfStale re-adds every active item to the indices when either index disagrees with
// the catalog, e.g. after a first start, a lost index file, or an offline import.
func (c *Components) rebuildIfStale(ctx context.Context, logger *zap.Logger) error {
	active, err := c.Storage.CountItems(ctx, true)
	if err != nil {
		return err
	}
	docs, err := c.KeywordIndex.DocCount()
	if err != nil {
		return err
	}
	vectors := int64(c.VectorIndex.Size())
	if vectors == active && int64(docs) == active {
		return nil
	}
	logger.Info("indices out of sync with catalog, rebuilding",
		zap.Int64("active_items", active),
		zap.Int64("vectors", vectors),
		zap.Uint64("keyword_docs", docs))
	_, err = c.Catalog.Rebuild(ctx)
	return err
}

func (c *Components) status(ctx context.Context, cfg *config.Config) (*cli.StatusReport, error) {
	items, err := c.Storage.CountItems(ctx, false)
	if err != nil {
		return nil, err
	}
	active, err := c.Storage.CountItems(ctx, true)
	if err != nil {
		return nil, err
	}
	users, err := c.Storage.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	interactions, err := c.Storage.CountInteractions(ctx)
	if err != nil {
		return nil, err
	}
	report := &cli.StatusReport{
		Items:           items,
		ActiveItems:     active,
		Users:           users,
		Interactions:    interactions,
		VectorIndexSize: c.VectorIndex.Size(),
		Config: &cli.StatusConfig{
			VectorIndexType:     c.VectorIndex.Type(),
			WeightSet:           c.Weights.Active().Name,
			EmbeddingDimensions: cfg.Embedding.Dimensions,
			DatabasePath:        cfg.Storage.DatabasePath,
			BleveIndexPath:      cfg.Storage.BleveIndexPath,
			VectorIndexPath:     c.vectorPath,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, c.vectorPath); err == nil {
		report.DiskUsageBytes = &diskBytes
	}
	return report, nil
}

// initializeComponents opens storage and indices and builds the services on top of them.
// m may be nil.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	c := &Components{}
	fail := func(err error) (*Components, error) {
		c.Close()
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	c.Embedder = embedding.NewEmbedder(cfg.Embedding, utils.Component(logger, "embedding"))
	dims := c.Embedder.Dimensions()

	vectors, err := vector.NewVectorIndex(ctx, cfg.Vector, dims, utils.Component(logger, "vector"))
	if err != nil {
		return fail(fmt.Errorf("failed to initialize vector index: %w", err))
	}
	c.VectorIndex = vectors
	if c.VectorIndex.Type() == string(vector.IndexTypeMemory) {
		c.vectorPath = cfg.Vector.IndexPath
	}
	logger.Info("vector index initialized",
		zap.String("type", c.VectorIndex.Type()),
		zap.Int("size", c.VectorIndex.Size()),
		zap.Int("dimensions", dims))

	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}
	c.KeywordIndex = kw

	c.Weights, err = ranking.NewWeightStore(cfg.Scoring, ranking.WithStoreLogger(utils.Component(logger, "scoring")))
	if err != nil {
		return fail(fmt.Errorf("failed to load scoring weights: %w", err))
	}
	horizon := time.Duration(cfg.Scoring.RecencyHorizonHours * float64(time.Hour))
	c.Scorer = ranking.NewScorer(c.Weights, horizon)

	c.Catalog = catalog.New(store, c.Embedder, c.VectorIndex,
		catalog.WithKeywordIndex(c.KeywordIndex),
		catalog.WithLogger(utils.Component(logger, "catalog")))
	c.Profiles = profile.NewService(store, c.Embedder, profile.WithLogger(utils.Component(logger, "profile")))
	c.Discovery = discovery.NewService(store, c.VectorIndex, c.Scorer, discovery.ConfigFrom(cfg.Discovery),
		discovery.WithLogger(utils.Component(logger, "discovery")),
		discovery.WithMetrics(m))
	c.Evolution = evolution.NewEngine(store, evolution.ConfigFrom(cfg.Evolution),
		evolution.WithLogger(utils.Component(logger, "evolution")),
		evolution.WithMetrics(m))
	return c, nil
}

func printUsage() {
	fmt.Println(`matchfeed - Personalized discovery feed server

Usage:
  matchfeed server [flags]                            Start the HTTP server
  matchfeed discover [flags] <user-id>                Show a page of a user's feed
  matchfeed swipe [flags] <user> <item> <decision>    Record an accept or reject
  matchfeed import [flags] <file-or-directory>        Import items from .xlsx or .json files
  matchfeed status [flags]                            Show catalog/index status
  matchfeed version                                   Show version
  matchfeed help                                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/matchfeed/config.yaml)
  --debug            Enable debug logging

Discover Flags:
  --server string    Server URL (default: http://localhost:8080)
  --page-size int    Items per page (default: server default)
  --cursor string    Cursor returned by the previous page
  --output string    Output format: text, compact, or json (default: text)

Swipe Flags:
  --server string    Server URL (default: http://localhost:8080)

Import Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)
  Import opens storage directly; stop the server first, or drop files into a
  watched import directory instead.

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  matchfeed server
  matchfeed import ./jobs.xlsx
  matchfeed discover --page-size 10 user-42
  matchfeed discover --cursor eyJz... user-42
  matchfeed swipe user-42 job-7 accept
  matchfeed status --output json`)
}
