package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MovieBot/MovieBot/internal/api"
	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/genai"
	"github.com/MovieBot/MovieBot/internal/store"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for MovieBot state data
	DefaultStateDir = "/var/lib/moviebot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "moviebot.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	storeOpts := buildStoreOptions(flags)
	catalogOpts := buildCatalogOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping MovieBot with configured modules")
	slog.Debug("Final configuration", "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "catalog", *flags.catalogPath, "alert_number_set", *flags.alertNumber != "")
	if err := api.Run(storeOpts, catalogOpts, genaiOpts, nil, apiOpts); err != nil {
		slog.Error("MovieBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("MovieBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	OpenAIModel string
	APIAddr     string
	CatalogPath string
	AlertNumber string
}

// Flags holds command line flag values
type Flags struct {
	dbDSN       *string
	openaiKey   *string
	openaiModel *string
	apiAddr     *string
	catalogPath *string
	alertNumber *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("MOVIEBOT_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		APIAddr:     os.Getenv("API_ADDR"),
		CatalogPath: os.Getenv("CATALOG_PATH"),
		AlertNumber: os.Getenv("BOOKING_ALERT_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No MOVIEBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MOVIEBOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"CATALOG_PATH", config.CatalogPath,
		"BOOKING_ALERT_NUMBER_SET", config.AlertNumber != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the booking store (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		catalogPath: flag.String("catalog", config.CatalogPath, "path to a movie catalog JSON file (overrides $CATALOG_PATH; embedded dataset when empty)"),
		alertNumber: flag.String("alert-number", config.AlertNumber, "booking-desk phone number for SMS alerts (overrides $BOOKING_ALERT_NUMBER)"),
	}
	flag.Parse()
	return flags
}

// buildStoreOptions creates store options based on the DSN type
func buildStoreOptions(flags Flags) []store.Option {
	var opts []store.Option
	if *flags.dbDSN == "" {
		return opts
	}
	switch store.DetectDSNType(*flags.dbDSN) {
	case "postgres":
		opts = append(opts, store.WithPostgresDSN(*flags.dbDSN))
	default:
		opts = append(opts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return opts
}

// buildCatalogOptions creates catalog options
func buildCatalogOptions(flags Flags) []catalog.Option {
	var opts []catalog.Option
	if *flags.catalogPath != "" {
		opts = append(opts, catalog.WithPath(*flags.catalogPath))
	}
	return opts
}

// buildGenAIOptions creates GenAI client options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	return opts
}

// buildAPIOptions creates API server options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.alertNumber != "" {
		opts = append(opts, api.WithAlertNumber(*flags.alertNumber))
	}
	return opts
}
