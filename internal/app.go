// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "escrowpay/internal/api"
	"escrowpay/internal/api/handler"
	"escrowpay/internal/config"
	"escrowpay/internal/provider"
	"escrowpay/internal/repository"
	"escrowpay/internal/repository/postgres"
	"escrowpay/internal/service"
	"escrowpay/internal/util"
	"escrowpay/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	WalletRepository  repository.WalletRepository
	OrderRepository   repository.OrderRepository
	PaymentRepository repository.PaymentRepository
	EntryRepository   repository.EntryRepository

	// Services
	LedgerService     service.LedgerService
	SettlementService service.SettlementService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.OrderRepository = postgres.NewOrderRepository(app.DB)
	app.PaymentRepository = postgres.NewPaymentRepository(app.DB)
	app.EntryRepository = postgres.NewEntryRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.LedgerService = service.NewLedgerService(
		app.DB, // DBTxBeginner
		app.DB, // DBExecutor
		app.WalletRepository,
		app.OrderRepository,
		app.EntryRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Config.OpeningBalance,
		app.Config.PlatformUserID,
	)

	providerClient := provider.NewStripeClient(
		app.Config.StripeAPIKey,
		app.Config.StripeSuccessURL,
		app.Config.StripeCancelURL,
	)
	publisher := service.NewLogEventPublisher(app.Logger)

	app.SettlementService = service.NewSettlementService(
		app.DB, // DBTxBeginner
		app.DB, // DBExecutor
		app.PaymentRepository,
		app.WalletRepository,
		app.LedgerService,
		providerClient,
		publisher,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Config.Currency,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.LedgerService, app.SettlementService, app.Logger)
	escrowHandler := handler.NewEscrowHandler(app.LedgerService, app.Config.FeeRate, app.Logger)
	webhookHandler := handler.NewWebhookHandler(app.SettlementService, app.Logger)
	app.HTTPHandler = router.NewRouter(walletHandler, escrowHandler, webhookHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
