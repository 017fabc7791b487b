package main

import (
	"os"
	"os/signal"
	"syscall"

	"go-pos-backoffice/internal/handler"
	"go-pos-backoffice/internal/location"
	"go-pos-backoffice/internal/middleware"
	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/repository"
	"go-pos-backoffice/internal/service"
	"go-pos-backoffice/internal/ws"
	appconfig "go-pos-backoffice/pkg/config"
	"go-pos-backoffice/pkg/database"
	appjwt "go-pos-backoffice/pkg/jwt"
	applogger "go-pos-backoffice/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found")
	}

	cfg := appconfig.Load()
	if err := applogger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("invalid log configuration")
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	// Auto migrate. Better handled by a dedicated migration tool in production.
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Customer{},
		&model.TransactionHeader{},
		&model.TransactionDetail{},
		&model.TransactionDiscount{},
		&model.User{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto migration failed")
	}

	seedAdmin(db)

	wsHub := ws.NewHub()
	go wsHub.Run()

	// Dependency injection
	productRepo := repository.NewProductRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)
	runner := repository.NewTxRunner(db, cfg.Database.LockTimeout)

	signer := appjwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Expiry)
	locationClient := location.NewClient(cfg.Location.BaseURL, cfg.Location.CacheTTL)

	txService := service.NewTransactionService(
		txRepo, productRepo, customerRepo, runner, wsHub,
		applogger.WithComponent("transaction"),
	)
	productService := service.NewProductService(productRepo, wsHub, applogger.WithComponent("product"))
	customerService := service.NewCustomerService(customerRepo, applogger.WithComponent("customer"))
	dashService := service.NewDashboardService(txRepo, productRepo, customerRepo)
	authService := service.NewAuthService(userRepo, signer, applogger.WithComponent("auth"))

	txHandler := handler.NewTransactionHandler(txService)
	productHandler := handler.NewProductHandler(productService)
	customerHandler := handler.NewCustomerHandler(customerService, locationClient)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api/v1")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.RequireAuth(signer, userRepo))

	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	protected.Get("/dashboard", dashHandler.Get)

	protected.Get("/products", productHandler.List)
	protected.Post("/products", productHandler.Create)
	protected.Post("/products/bulk-delete", productHandler.BulkDelete)
	protected.Get("/products/:id", productHandler.Get)
	protected.Put("/products/:id", productHandler.Update)
	protected.Delete("/products/:id", productHandler.Delete)

	protected.Get("/customers", customerHandler.List)
	protected.Get("/customers/search", customerHandler.Search)
	protected.Post("/customers", customerHandler.Create)
	protected.Post("/customers/bulk-delete", customerHandler.BulkDelete)
	protected.Get("/customers/:id", customerHandler.Get)
	protected.Put("/customers/:id", customerHandler.Update)
	protected.Delete("/customers/:id", customerHandler.Delete)

	protected.Get("/locations/provinces", customerHandler.GetProvinces)
	protected.Get("/locations/regencies", customerHandler.GetRegencies)
	protected.Get("/locations/districts", customerHandler.GetDistricts)
	protected.Get("/locations/villages", customerHandler.GetVillages)
	protected.Get("/locations/postal-codes", customerHandler.GetPostalCodes)

	protected.Get("/transactions", txHandler.ListHeaders)
	protected.Post("/transactions", txHandler.CreateHeader)
	protected.Post("/transactions/bulk-delete", txHandler.BulkDeleteHeaders)
	protected.Get("/transactions/:id", txHandler.GetHeader)
	protected.Put("/transactions/:id", txHandler.UpdateHeader)
	protected.Delete("/transactions/:id", txHandler.DeleteHeader)

	protected.Get("/transactions/:header_id/details", txHandler.ListDetails)
	protected.Post("/transactions/:header_id/details", txHandler.CreateDetail)
	protected.Post("/transactions/:header_id/details/bulk-delete", txHandler.BulkDeleteDetails)
	protected.Get("/transactions/:header_id/details/:id", txHandler.GetDetail)
	protected.Put("/transactions/:header_id/details/:id", txHandler.UpdateDetail)
	protected.Delete("/transactions/:header_id/details/:id", txHandler.DeleteDetail)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Panic().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// seedAdmin creates the default admin user if it doesn't exist.
func seedAdmin(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	if _, err := userRepo.FindByEmail("admin@example.com"); err == nil {
		return
	}

	admin := &model.User{
		Email:    "admin@example.com",
		FullName: "Administrator",
		IsActive: true,
	}
	if err := admin.SetPassword("admin123"); err != nil {
		log.Warn().Err(err).Msg("failed to hash admin password")
		return
	}
	if err := userRepo.Create(admin); err != nil {
		log.Warn().Err(err).Msg("failed to create admin user")
		return
	}
	log.Info().Msg("admin user created: admin@example.com")
}
