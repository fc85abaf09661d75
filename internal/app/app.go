// Package app wires configuration, storage, clients, and services into a
// running application core shared by cmd/centime-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyrmee/centime/internal/clients/gemini"
	"github.com/cyrmee/centime/internal/clients/openrates"
	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
	"github.com/cyrmee/centime/internal/services/benchmark"
	"github.com/cyrmee/centime/internal/services/category"
	"github.com/cyrmee/centime/internal/services/dashboard"
	"github.com/cyrmee/centime/internal/services/exchange"
	"github.com/cyrmee/centime/internal/services/expense"
	"github.com/cyrmee/centime/internal/services/moneysource"
	"github.com/cyrmee/centime/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	RatesClient  interfaces.RateProvider
	GeminiClient *gemini.Client

	ExchangeService    interfaces.ExchangeService
	MoneySourceService interfaces.MoneySourceService
	ExpenseService     interfaces.ExpenseService
	CategoryService    interfaces.CategoryService
	DashboardService   interfaces.DashboardService
	BenchmarkService   interfaces.BenchmarkService

	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, logging, storage, clients, and services.
// configPath may be empty, in which case CENTIME_CONFIG and the binary
// directory are checked.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("CENTIME_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "centime.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/centime.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storage, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()

	ratesClient := openrates.NewClient(
		openrates.WithBaseURL(config.Clients.Rates.BaseURL),
		openrates.WithLogger(logger),
		openrates.WithRateLimit(config.Clients.Rates.RateLimit),
		openrates.WithTimeout(config.Clients.Rates.GetTimeout()),
	)

	var geminiClient *gemini.Client
	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - text expense entry and insights will be unavailable")
	} else {
		geminiClient, err = gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
			geminiClient = nil
		}
	}

	exchangeService := exchange.NewService(storage, ratesClient, logger)

	// The gemini client satisfies both parser and insight interfaces; a nil
	// client leaves both features off.
	var parser interfaces.ExpenseParser
	var insights interfaces.InsightGenerator
	if geminiClient != nil {
		parser = geminiClient
		insights = geminiClient
	}

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storage,
		RatesClient:        ratesClient,
		GeminiClient:       geminiClient,
		ExchangeService:    exchangeService,
		MoneySourceService: moneysource.NewService(storage, exchangeService, logger),
		ExpenseService:     expense.NewService(storage, exchangeService, parser, logger),
		CategoryService:    category.NewService(storage, logger),
		DashboardService:   dashboard.NewService(storage, exchangeService, logger),
		BenchmarkService:   benchmark.NewService(storage, exchangeService, insights, logger),
		StartupTime:        time.Now(),
	}

	if err := a.seedDefaultCategories(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default categories")
	}

	return a, nil
}

// defaultCategories are the system categories every user sees. Seeded once;
// existing rows are left alone.
var defaultCategories = []models.Category{
	{ID: "cat_food", Name: "Food & Dining", Icon: "utensils"},
	{ID: "cat_transport", Name: "Transport", Icon: "bus"},
	{ID: "cat_housing", Name: "Housing & Rent", Icon: "home"},
	{ID: "cat_utilities", Name: "Utilities", Icon: "bolt"},
	{ID: "cat_health", Name: "Health", Icon: "heart"},
	{ID: "cat_entertainment", Name: "Entertainment", Icon: "film"},
	{ID: "cat_shopping", Name: "Shopping", Icon: "bag"},
	{ID: "cat_education", Name: "Education", Icon: "book"},
	{ID: "cat_other", Name: "Other", Icon: "dots"},
}

func (a *App) seedDefaultCategories(ctx context.Context) error {
	for _, def := range defaultCategories {
		if _, err := a.Storage.Categories().Get(ctx, "", def.ID); err == nil {
			continue
		}
		cat := def
		cat.IsDefault = true
		cat.CreatedAt = time.Now().UTC()
		if err := a.Storage.Categories().Create(ctx, &cat); err != nil {
			return err
		}
	}
	return nil
}

// StartRateScheduler refreshes the exchange-rate table once immediately and
// then on the configured interval until Close.
func (a *App) StartRateScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel

	interval := a.Config.Clients.Rates.GetRefreshInterval()
	a.Logger.Info().
		Dur("interval", interval).
		Msg("Starting exchange rate scheduler")

	go startRateScheduler(ctx, a.ExchangeService, a.Logger, interval)
}

// Close shuts down background work and storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
