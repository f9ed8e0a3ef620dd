package gateway

import (
	"context"
	"net/http"

	_ "github.com/example/jewelshop/docs"
	"github.com/example/jewelshop/pkg/auth"
	"github.com/example/jewelshop/pkg/config"
	"github.com/example/jewelshop/pkg/models"
	"github.com/example/jewelshop/pkg/order"
	"github.com/example/jewelshop/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// OrderService is the order lifecycle as seen by the HTTP layer.
type OrderService interface {
	CreateOrder(ctx context.Context, caller models.Principal, in order.CreateOrderInput, idemKey string) (*models.Order, error)
	GetOrder(ctx context.Context, caller models.Principal, orderID string) (*models.Order, error)
	ListMyOrders(ctx context.Context, caller models.Principal, page models.Page) (*order.OrderPage, error)
	ListOrders(ctx context.Context, caller models.Principal, filter models.OrderFilter, page models.Page) (*order.OrderPage, error)
	CreatePaymentIntent(ctx context.Context, caller models.Principal, orderID string) (*order.PaymentIntent, error)
	VerifyPayment(ctx context.Context, caller models.Principal, in order.VerifyPaymentInput) (bool, error)
	MarkPaymentFailed(ctx context.Context, caller models.Principal, orderID, reason string) (*models.Order, error)
	UpdateFulfillmentStatus(ctx context.Context, caller models.Principal, orderID, status, comment string) (*models.Order, error)
	SubmitCustomerRequest(ctx context.Context, caller models.Principal, orderID, requestType, reason string) (*models.Order, error)
	ResolveCustomerRequest(ctx context.Context, caller models.Principal, orderID string, in order.ResolveInput) (*models.Order, error)
	AuditTrail(ctx context.Context, caller models.Principal, orderID string) ([]*repository.AuditLog, error)
}

type LoginService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	CurrentUser(ctx context.Context, caller models.Principal) (*models.User, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Gateway struct {
	config *config.Config
	logger *zap.Logger
	router *gin.Engine
	orders OrderService
	login  LoginService
	tokens *auth.TokenManager
	checks map[string]Pinger
}

// NewGateway builds the router. login may be nil when no user store is
// configured; checks feed /health.
func NewGateway(cfg *config.Config, logger *zap.Logger, orders OrderService, login LoginService, tokens *auth.TokenManager, checks map[string]Pinger) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(metricsMiddleware())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config: cfg,
		logger: logger,
		router: router,
		orders: orders,
		login:  login,
		tokens: tokens,
		checks: checks,
	}
	g.SetupRoutes()
	return g
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := g.router.Group("/api/v1")
	v1.Use(timeoutMiddleware(g.config.Server.RequestTimeout))

	v1.POST("/auth/login", g.loginUser)

	authed := v1.Group("", g.tokens.Require())
	{
		authed.GET("/auth/me", g.currentUser)

		orders := authed.Group("/orders")
		{
			orders.POST("", g.createOrder)
			orders.GET("", g.listMyOrders)
			orders.GET("/:id", g.getOrder)
			orders.POST("/:id/request", g.submitRequest)
		}

		payments := authed.Group("/payments")
		{
			payments.POST("/create-order", g.createPaymentIntent)
			payments.POST("/verify", g.verifyPayment)
			payments.POST("/failure", g.paymentFailure)
		}

		admin := authed.Group("/admin", auth.RequireAdmin())
		{
			admin.GET("/orders", g.listOrders)
			admin.PATCH("/orders/:id", g.updateOrderStatus)
			admin.POST("/orders/:id/request", g.resolveRequest)
			admin.GET("/orders/:id/audit", g.auditTrail)
		}
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) health(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, p := range g.checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			g.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}
