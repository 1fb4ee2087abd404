package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"market-service/internal/models"
	"market-service/internal/service"
	"market-service/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	orders        *service.OrderService
	fulfillment   *service.FulfillmentService
	subscriptions *service.SubscriptionService
	inventory     *service.InventoryService
	catalog       *service.CatalogService
	admin         *service.AdminService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	fulfillment *service.FulfillmentService,
	subscriptions *service.SubscriptionService,
	inventory *service.InventoryService,
	catalog *service.CatalogService,
	admin *service.AdminService,
) *Handler {
	return &Handler{
		orders:        orders,
		fulfillment:   fulfillment,
		subscriptions: subscriptions,
		inventory:     inventory,
		catalog:       catalog,
		admin:         admin,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/batches", h.listOpenBatches)
		v1.GET("/batches/:id", h.getBatch)
		v1.GET("/farms/:id", h.getFarm)
		v1.POST("/locations", h.createLocation)
		v1.GET("/locations/:id", h.getLocation)

		v1.GET("/me", requireRole(models.RoleCustomer), h.getProfile)
		v1.POST("/orders", requireRole(models.RoleCustomer), h.placeOrder)
		v1.GET("/orders", requireRole(models.RoleCustomer), h.listMyOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/dispatch", requireRole(models.RoleFarmer), h.dispatchOrder)

		v1.POST("/subscriptions", requireRole(models.RoleCustomer), h.requestSubscription)
		v1.GET("/subscriptions", h.listSubscriptions)
		v1.GET("/subscriptions/:id", h.getSubscription)
		v1.POST("/subscriptions/:id/quote", requireRole(models.RoleFarmer), h.quoteSubscription)
		v1.POST("/subscriptions/:id/dispatch", requireRole(models.RoleFarmer), h.dispatchSubscription)
		v1.DELETE("/subscriptions/:id", h.cancelSubscription)

		farm := v1.Group("/farm", requireRole(models.RoleFarmer))
		{
			farm.GET("/orders", h.listFarmOrders)
			farm.GET("/batches", h.listFarmBatches)
			farm.POST("/batches", h.stockBatch)
			farm.PUT("/batches/:id", h.updateBatch)
			farm.DELETE("/batches/:id", h.removeBatch)
			farm.GET("/offerings", h.listOfferings)
			farm.POST("/offerings", h.declareOffering)
			farm.PUT("/offerings/:id", h.reviseOffering)
			farm.DELETE("/offerings/:id", h.withdrawOffering)
		}

		admin := v1.Group("/admin", requireRole(models.RoleAdmin))
		{
			admin.GET("/entities", h.listEntities)
			admin.GET("/entities/:entity", h.adminList)
			admin.POST("/entities/:entity", h.adminCreate)
			admin.PUT("/entities/:entity/:id", h.adminUpdate)
			admin.DELETE("/entities/:entity/:id", h.adminDelete)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

const (
	ctxRole     = "role"
	ctxClientID = "client_id"
	ctxFarmID   = "farm_id"
)

// identityMiddleware reads the identity headers set by the gateway. The
// service trusts them; engines still re-check ownership row by row.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Role")
		switch role {
		case models.RoleCustomer, models.RoleFarmer, models.RoleAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or unknown X-Role header"})
			return
		}
		c.Set(ctxRole, role)

		if id, err := strconv.ParseInt(c.GetHeader("X-Client-ID"), 10, 64); err == nil {
			c.Set(ctxClientID, id)
		}
		if id, err := strconv.ParseInt(c.GetHeader("X-Farm-ID"), 10, 64); err == nil {
			c.Set(ctxFarmID, id)
		}
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}
		c.Next()
	}
}

func callerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// clientID returns the caller's client identity, aborting when absent
func clientID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ctxClientID)
	if id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-Client-ID header"})
		return 0, false
	}
	return id, true
}

// farmID returns the caller's farm identity, aborting when absent
func farmID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ctxFarmID)
	if id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-Farm-ID header"})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError maps engine errors to transport status codes
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrOwnershipMismatch):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrAlreadyShipped),
		errors.Is(err, models.ErrNotActive),
		errors.Is(err, models.ErrProductMismatch),
		errors.Is(err, models.ErrMissingQuote),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrInvalidDate):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
