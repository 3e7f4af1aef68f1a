package router

import (
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/handler"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/middleware"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the shared infrastructure handles built by the composition root.
// Redis, Events and MailCB may be nil.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Events      *infra.StockEventPublisher
	MailCB      *infra.CircuitBreaker
	Dispatcher  *worker.Dispatcher
	RateLimiter *middleware.RateLimiter
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := d.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.IsProduction(), cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.API())

	// ── Infrastructure ───────────────────────────────────────────────────────
	priceCache := infra.NewPriceCache(d.Redis, time.Duration(cfg.PriceCacheTTLMinutes)*time.Minute)

	// ── Repositories ─────────────────────────────────────────────────────────
	txr := repository.NewTransactor(d.DB)
	userRepo := repository.NewUserRepository(d.DB)
	itemRepo := repository.NewInventoryRepository(d.DB)
	movementRepo := repository.NewStockMovementRepository(d.DB)
	historyRepo := repository.NewPriceHistoryRepository(d.DB)
	counterRepo := repository.NewCounterRepository(d.DB)
	saleRepo := repository.NewSaleRepository(d.DB)
	ticketRepo := repository.NewTicketRepository(d.DB)
	receiptRepo := repository.NewReceiptRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	ledgerSvc := service.NewLedgerService(itemRepo, movementRepo, txr, d.Events, d.Dispatcher)
	inventorySvc := service.NewInventoryService(itemRepo, historyRepo, ledgerSvc, txr, priceCache)
	saleSvc := service.NewSaleService(saleRepo, itemRepo, counterRepo, receiptRepo, ledgerSvc, txr, d.Dispatcher)
	ticketSvc := service.NewTicketService(ticketRepo, userRepo, counterRepo, ledgerSvc, txr)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc, ledgerSvc)
	transactionsH := handler.NewTransactionsHandler(saleSvc)
	servicesH := handler.NewServicesHandler(ticketSvc)
	priceH := handler.NewPriceCheckHandler(inventorySvc, priceCache)

	// ── Routes ───────────────────────────────────────────────────────────────
	admin, tech, cashier := model.RoleAdmin, model.RoleTechnician, model.RoleCashier
	anyStaff := middleware.RequireRole(admin, tech, cashier)

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.MailCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/v1/price/:sku", priceH.GetPrice)

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", limiter.Login(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/auth/me", authH.Me)
		v1.PATCH("/auth/change-password", authH.ChangePassword)
		v1.GET("/auth/technicians", anyStaff, authH.Technicians)

		users := v1.Group("/users", middleware.RequireRole(admin))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("", anyStaff, inventoryH.List)
			inv.GET("/alerts/low-stock", anyStaff, inventoryH.LowStock)
			inv.GET("/movements", middleware.RequireRole(admin), inventoryH.Movements)
			inv.GET("/sku/:sku", anyStaff, inventoryH.GetBySKU)
			inv.GET("/:id", anyStaff, inventoryH.GetByID)
			inv.GET("/:id/price-history", anyStaff, inventoryH.PriceHistory)

			inv.POST("", middleware.RequireRole(admin, cashier), inventoryH.Create)
			inv.PUT("/:id", middleware.RequireRole(admin, cashier), inventoryH.Update)
			inv.PATCH("/:id/stock", middleware.RequireRole(admin), inventoryH.AdjustStock)
			inv.DELETE("/:id", middleware.RequireRole(admin), inventoryH.Deactivate)
			inv.PATCH("/:id/reactivate", middleware.RequireRole(admin), inventoryH.Reactivate)
		}

		tx := v1.Group("/transactions")
		{
			tx.POST("", middleware.RequireRole(cashier, admin), transactionsH.Checkout)
			tx.GET("", middleware.RequireRole(cashier, admin), transactionsH.List)
			tx.GET("/invoice/:invoice_no", middleware.RequireRole(cashier, admin), transactionsH.GetByInvoice)
			tx.GET("/:id", middleware.RequireRole(cashier, admin), transactionsH.GetByID)
			tx.GET("/:id/receipt", middleware.RequireRole(cashier, admin), transactionsH.Receipt)
			tx.DELETE("/:id", middleware.RequireRole(admin), transactionsH.Delete)
		}

		svc := v1.Group("/services")
		{
			svc.POST("", middleware.RequireRole(tech, admin), servicesH.Create)
			svc.GET("", anyStaff, servicesH.List)
			svc.GET("/number/:ticket_number", anyStaff, servicesH.GetByNumber)
			svc.GET("/technician/:id/workload", anyStaff, servicesH.Workload)
			svc.GET("/:id", anyStaff, servicesH.GetByID)
			svc.PATCH("/:id/status", middleware.RequireRole(tech, admin), servicesH.UpdateStatus)
			svc.POST("/:id/parts", middleware.RequireRole(tech, admin), servicesH.AddPart)
			svc.DELETE("/:id/parts/:partId", middleware.RequireRole(tech, admin), servicesH.RemovePart)
			svc.PATCH("/:id/service-fee", middleware.RequireRole(tech, admin), servicesH.UpdateServiceFee)
			svc.DELETE("/:id", middleware.RequireRole(admin), servicesH.Cancel)
		}
	}

	// Swagger UI only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
