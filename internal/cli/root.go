package cli

import (
	"context"
	"strings"

	"github.com/gofiber/contrib/v3/websocket"
	fiberzap "github.com/gofiber/contrib/v3/zap"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/adscopehq/adscope/internal/config"
	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/handlers"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/middleware"
	"github.com/adscopehq/adscope/internal/realtime"
)

var Version string

// DashboardTemplate is the embedded dashboard page passed from main.
var DashboardTemplate []byte

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "adscope",
	Short: "Campaign insights without the spreadsheet",
	Long: `Adscope - a campaign insights dashboard.

Adscope aggregates daily ad performance data per campaign, ad set and ad,
serves it over a small HTTP API and pushes change notifications to open
dashboards. Single binary, PostgreSQL backend.`,
	Version: Version,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return serveDashboard(DashboardTemplate)
		}
		return cmd.Help()
	},
}

// Execute is called by main
func Execute(version string, dashboardTemplate []byte) error {
	Version = version
	DashboardTemplate = dashboardTemplate
	RootCmd.Version = version

	return RootCmd.Execute()
}

// pingDatabase is swapped in tests of the /up handler.
var pingDatabase = func() error {
	return database.DB.Ping()
}

// serveDashboard runs the Adscope server
func serveDashboard(dashboardTemplate []byte) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		logging.Fatal("database_url is required (config file or DATABASE_URL)")
	}

	logging.L().Info("running database migrations")
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logging.L().Warn("migration warning", "error", err)
	}

	if err := database.ConnectURL(cfg.DatabaseURL); err != nil {
		logging.Fatal("database connection failed", "error", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logging.L().Error("error closing database", "error", err)
		}
	}()

	handlers.SetPeriodCap(cfg.PeriodCap)

	// Background maintenance: monthly partitions and the rollup refresh.
	partitions := database.NewPartitionScheduler(cfg.DatabaseURL)
	partitions.Start()
	defer partitions.Stop()

	rollups := database.NewMaterializedViewScheduler()
	rollups.Start()
	defer rollups.Stop()

	// Realtime fan-out: NOTIFY from any writer reaches every process.
	hub := realtime.NewHub()
	listenerCtx, cancelListener := context.WithCancel(context.Background())
	defer cancelListener()
	if err := realtime.StartListener(listenerCtx, cfg.DatabaseURL, hub); err != nil {
		logging.L().Warn("realtime listener unavailable", "error", err)
	}

	app := fiber.New(createFiberConfig("Adscope - Campaign insights"))

	app.Use(recoverer.New())
	app.Use(fiberzap.New(fiberzap.Config{Logger: logging.Access()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.TrustedOrigins),
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
	}))

	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Adscope-Version", Version)
		return c.Next()
	})

	// Routes
	app.Get("/", handleDashboardPage(dashboardTemplate))
	app.Get("/health", handleHealth)
	app.Get("/up", handleUp) // Docker health check
	app.Get("/api/version", handleVersion)

	// Fiber runs route handlers in registration order, so auth goes first.
	app.Get("/api/clients", middleware.APIKeyAuth("read"), handlers.HandleListClients)

	app.Get("/api/insights/:client_id", middleware.APIKeyAuth("read"), handlers.HandleInsights)
	app.Get("/api/insights/:client_id/series", middleware.APIKeyAuth("read"), handlers.HandleInsightSeries)
	app.Get("/api/insights/:client_id/summary", middleware.APIKeyAuth("read"), handlers.HandleInsightSummary)

	app.Get("/api/metric-config/:client_id", middleware.APIKeyAuth("read"), handlers.HandleGetMetricConfig)
	app.Put("/api/metric-config/:client_id", middleware.APIKeyAuth("write"), handlers.HandleSaveMetricConfig)

	app.Post("/api/ingest", middleware.APIKeyAuth("ingest"), handlers.HandleIngest)

	app.Get("/api/realtime/:client_id",
		middleware.APIKeyAuth("read"),
		handlers.RequireClientAccess(),
		requireWebSocketUpgrade,
		hub.Handler())

	logging.L().Info("adscope starting", "port", cfg.Port)
	logging.Fatal("server stopped", "error", app.Listen(":"+cfg.Port))

	return nil
}

// corsOrigins expands bare trusted domains into origins the cors
// middleware accepts.
func corsOrigins(domains []string) []string {
	if len(domains) == 0 {
		return []string{"*"}
	}
	origins := make([]string, 0, len(domains)*2)
	for _, d := range domains {
		if d == "*" {
			return []string{"*"}
		}
		origins = append(origins, "https://"+d, "http://"+d)
	}
	return origins
}

func requireWebSocketUpgrade(c fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler functions

func handleDashboardPage(dashboardTemplate []byte) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		html := strings.ReplaceAll(string(dashboardTemplate), "{{.Title}}", "Adscope Dashboard")
		html = strings.ReplaceAll(html, "{{.Version}}", Version)
		return c.SendString(html)
	}
}

func handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "adscope",
	})
}

func handleUp(c fiber.Ctx) error {
	// Returns 200 OK if server is running and can reach the database
	if err := pingDatabase(); err != nil {
		return c.Status(503).SendString("database unavailable")
	}
	return c.SendStatus(200)
}

func handleVersion(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": Version,
	})
}

func init() {
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(clientCmd)
	RootCmd.AddCommand(reportCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(healthcheckCmd)

	setupSelfUpgrade()
}
