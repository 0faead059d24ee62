// Package main is the AgroVision CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/agrovision/internal/chat"
	"github.com/hyperjump/agrovision/internal/cli"
	"github.com/hyperjump/agrovision/internal/client"
	"github.com/hyperjump/agrovision/internal/config"
	"github.com/hyperjump/agrovision/internal/crop"
	"github.com/hyperjump/agrovision/internal/disease"
	"github.com/hyperjump/agrovision/internal/inference"
	"github.com/hyperjump/agrovision/internal/mappings"
	"github.com/hyperjump/agrovision/internal/models"
	"github.com/hyperjump/agrovision/internal/server"
	"github.com/hyperjump/agrovision/internal/storage"
	"github.com/hyperjump/agrovision/internal/web"
	"github.com/hyperjump/agrovision/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/agrovision/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists (for development), and a missing default file
// falls back to built-in defaults. Returns the config and the path actually loaded
// ("" when only defaults apply).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Load("")
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
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
	case "ui":
		runUI()
	case "crop":
		runCrop()
	case "disease":
		runDisease()
	case "chat":
		runChat()
	case "status":
		runStatus()
	case "history":
		runHistory()
	case "version":
		fmt.Printf("agrovision version %s\n", version)
	case "help", "-h", "--help":
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
	debug := fs.Bool("debug", false, "enable debug logging (resolved features, per-request detail)")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Crop,
		components.Disease,
		components.Chat,
		components.History,
		cfg,
		utils.Component(logger, "server"),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runUI() {
	fs := flag.NewFlagSet("ui", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	backend := fs.String("backend", "", "API server URL (default from config ui.backend_url)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	backendURL := cfg.UI.BackendURL
	if *backend != "" {
		backendURL = *backend
	}
	ui, err := web.New(
		client.New(backendURL, nil),
		web.WithLogger(utils.Component(logger, "ui")),
		web.WithUploadLimit(int64(cfg.Server.MaxUploadMB)<<20),
	)
	if err != nil {
		logger.Fatal("Failed to build UI", zap.Error(err))
	}
	addr := fmt.Sprintf("%s:%d", cfg.UI.Host, cfg.UI.Port)
	logger.Info("UI backend", zap.String("backend_url", backendURL))
	go func() {
		if err := ui.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("UI failed", zap.Error(err))
		}
	}()

	waitForSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = ui.Stop(ctx)
}

func runCrop() {
	fs := flag.NewFlagSet("crop", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	soil := fs.String("soil", "", "soil type: "+strings.Join(mappings.Soil.Keys(), ", "))
	season := fs.String("season", "", "season: "+strings.Join(mappings.Season.Keys(), ", "))
	rainfall := fs.String("rainfall", "", "rainfall level: "+strings.Join(mappings.Rainfall.Keys(), ", "))
	weather := fs.String("weather", "", "weather: "+strings.Join(mappings.WeatherTable.Keys(), ", "))
	ph := fs.String("ph", "", "soil pH: "+strings.Join(mappings.PH.Keys(), ", "))
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := mustOutputFormat(*outputFormat)
	req := models.CropRequest{
		SoilType:      *soil,
		Season:        *season,
		RainfallLevel: *rainfall,
		Weather:       *weather,
		PHRange:       *ph,
	}
	if missing := missingCropFlags(req); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "Missing required flags: %s\n\n", strings.Join(missing, ", "))
		fs.Usage()
		os.Exit(1)
	}

	resp, err := client.New(*serverURL, nil).PredictCrop(context.Background(), req)
	if errors.Is(err, client.ErrInvalidInput) {
		fmt.Fprintln(os.Stderr, crop.InvalidInputMessage)
		fs.PrintDefaults()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crop prediction failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteCropResults(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDisease() {
	fs := flag.NewFlagSet("disease", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := mustOutputFormat(*outputFormat)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: agrovision disease [flags] <image>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	resp, err := client.New(*serverURL, nil).PredictDisease(context.Background(), filepath.Base(path), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Disease detection failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDiseaseResult(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	cropResult := fs.String("crop-result", "", "crop recommendation JSON to include as context")
	diseaseResult := fs.String("disease-result", "", "disease detection JSON to include as context")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := mustOutputFormat(*outputFormat)
	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: agrovision chat [flags] <question>")
		os.Exit(1)
	}
	req := models.ChatRequest{Question: question}
	var err error
	if req.CropResult, err = contextJSON("crop-result", *cropResult); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if req.DiseaseResult, err = contextJSON("disease-result", *diseaseResult); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	answer, err := client.New(*serverURL, nil).Chat(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := mustOutputFormat(*outputFormat)
	status, err := client.New(*serverURL, nil).Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	kind := fs.String("kind", "", "filter by kind: crop or disease")
	limit := fs.Int("limit", 20, "number of records")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := mustOutputFormat(*outputFormat)
	hist, err := client.New(*serverURL, nil).History(context.Background(), *kind, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHistory(os.Stdout, hist, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds the loaded models and services for the server.
type Components struct {
	CropModel    inference.Classifier
	DiseaseModel inference.Classifier
	Crop         *crop.Service
	Disease      *disease.Service
	Chat         chat.Backend
	History      storage.PredictionLog
}

// Close releases model sessions and the prediction log.
func (c *Components) Close() {
	if c.CropModel != nil {
		_ = c.CropModel.Close()
	}
	if c.DiseaseModel != nil {
		_ = c.DiseaseModel.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
}

// initializeComponents loads both models and their label lists. Any failure is
// fatal to startup; there is no fallback model.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	labels, err := crop.LoadLabels(cfg.Crop.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load crop labels: %w", err)
	}
	cropModel, err := inference.NewONNXClassifier(inference.ONNXOptions{
		ModelPath:   cfg.Crop.ModelPath,
		LibraryPath: cfg.Inference.LibraryPath,
		InputName:   cfg.Crop.InputName,
		OutputName:  cfg.Crop.OutputName,
		InputShape:  []int64{1, int64(len(crop.FeatureColumns))},
		OutputSize:  len(labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load crop model: %w", err)
	}
	c.CropModel = cropModel
	c.Crop, err = crop.NewService(cropModel, labels,
		crop.WithLogger(utils.Component(logger, "crop")),
		crop.WithCacheSize(cfg.Crop.CacheSize),
	)
	if err != nil {
		return nil, err
	}

	classes, err := disease.LoadClassNames(cfg.Disease.ClassesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load disease classes: %w", err)
	}
	size := int64(cfg.Disease.ImageSize)
	diseaseModel, err := inference.NewONNXClassifier(inference.ONNXOptions{
		ModelPath:   cfg.Disease.ModelPath,
		LibraryPath: cfg.Inference.LibraryPath,
		InputName:   cfg.Disease.InputName,
		OutputName:  cfg.Disease.OutputName,
		InputShape:  []int64{1, size, size, 3},
		OutputSize:  len(classes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load disease model: %w", err)
	}
	c.DiseaseModel = diseaseModel
	c.Disease, err = disease.NewService(diseaseModel, classes,
		disease.WithLogger(utils.Component(logger, "disease")),
		disease.WithImageSize(cfg.Disease.ImageSize),
	)
	if err != nil {
		return nil, err
	}

	c.Chat = chat.NewBackend(cfg.ChatAPIKey, chat.Options{
		BaseURL:     cfg.Chat.BaseURL,
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
	}, utils.Component(logger, "chat"))

	if cfg.Storage.DatabasePath != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize prediction log: %w", err)
		}
		c.History = store
	}

	logger.Info("models loaded",
		zap.Int("crop_labels", len(labels)),
		zap.Int("disease_classes", len(classes)),
		zap.Bool("chat_configured", c.Chat.Configured()),
		zap.Bool("prediction_log", c.History != nil),
	)
	ok = true
	return c, nil
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func mustOutputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func missingCropFlags(req models.CropRequest) []string {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"--soil", req.SoilType},
		{"--season", req.Season},
		{"--rainfall", req.RainfallLevel},
		{"--weather", req.Weather},
		{"--ph", req.PHRange},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// contextJSON validates an optional JSON flag value.
func contextJSON(flagName, value string) (json.RawMessage, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		return nil, fmt.Errorf("--%s is not valid JSON", flagName)
	}
	return json.RawMessage(value), nil
}

func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags given after positional arguments to the front so
// "agrovision chat how much water -output json" parses.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`agrovision - Crop recommendation, plant disease detection and farming chat

Usage:
  agrovision server [flags]             Start the HTTP API
  agrovision ui [flags]                 Start the web UI
  agrovision crop [flags]               Recommend crops for field conditions
  agrovision disease [flags] <image>    Detect plant disease in a leaf image
  agrovision chat [flags] <question>    Ask the agriculture assistant
  agrovision status [flags]             Show model, chat and log status
  agrovision history [flags]            List recent predictions (needs storage.database_path)
  agrovision version                    Show version
  agrovision help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/agrovision/config.yaml)
  --debug            Enable debug logging

UI Flags:
  --config string    Config file path
  --backend string   API server URL (default from config, http://127.0.0.1:8000)

Crop Flags:
  --soil string      Sandy, Loamy, Clay, Black, Red
  --season string    Winter, Summer, Monsoon
  --rainfall string  Low, Medium, High
  --weather string   "Cool & Dry", Warm, "Hot & Humid", Sunny
  --ph string        Acidic, Neutral, Alkaline

Chat Flags:
  --crop-result string     Crop recommendation JSON to use as context
  --disease-result string  Disease detection JSON to use as context

Common Flags:
  --server string    Server URL (default: http://localhost:8000)
  --output string    Output format: text or json (default: text)

Examples:
  agrovision server
  agrovision ui
  agrovision crop --soil Loamy --season Monsoon --rainfall High --weather "Hot & Humid" --ph Neutral
  agrovision disease leaf.jpg
  agrovision chat "How often should I irrigate rice?"
  agrovision status --output json`)
}
