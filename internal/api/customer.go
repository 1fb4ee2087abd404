package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"market-service/internal/models"
	"market-service/internal/service"
)

// listProducts serves the raw product catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// listOpenBatches serves every batch with stock remaining
func (h *Handler) listOpenBatches(c *gin.Context) {
	batches, err := h.catalog.ListOpenBatches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// getBatch serves one storefront batch
func (h *Handler) getBatch(c *gin.Context) {
	batchID, ok := pathID(c)
	if !ok {
		return
	}
	batch, err := h.catalog.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// getProfile serves the caller's client row with its loyalty balance
func (h *Handler) getProfile(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	client, err := h.catalog.GetClientProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// getFarm serves a farm's public profile
func (h *Handler) getFarm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	farm, err := h.catalog.GetFarm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, farm)
}

// getLocation serves a stored address
func (h *Handler) getLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loc, err := h.catalog.GetLocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// createLocation registers a new address
func (h *Handler) createLocation(c *gin.Context) {
	var req service.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	loc, err := h.catalog.CreateLocation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// placeOrder handles customer order placement
func (h *Handler) placeOrder(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}

	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orders.PlaceOrder(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// listMyOrders serves the caller's order history
func (h *Handler) listMyOrders(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	orders, err := h.catalog.ListClientOrders(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder serves one order to its customer, its farm, or an admin
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	role := callerRole(c)
	var callerID int64
	switch role {
	case models.RoleCustomer:
		id, ok := clientID(c)
		if !ok {
			return
		}
		callerID = id
	case models.RoleFarmer:
		id, ok := farmID(c)
		if !ok {
			return
		}
		callerID = id
	}

	order, err := h.catalog.GetOrder(c.Request.Context(), role, callerID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// requestSubscription opens a recurring delivery program
func (h *Handler) requestSubscription(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}

	var req service.RequestSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sub, err := h.subscriptions.RequestSubscription(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// listSubscriptions serves the caller's programs, by role
func (h *Handler) listSubscriptions(c *gin.Context) {
	switch callerRole(c) {
	case models.RoleCustomer:
		id, ok := clientID(c)
		if !ok {
			return
		}
		subs, err := h.catalog.ListClientSubscriptions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
	case models.RoleFarmer:
		id, ok := farmID(c)
		if !ok {
			return
		}
		subs, err := h.catalog.ListFarmSubscriptions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// getSubscription serves one program to its customer, its farm, or an admin
func (h *Handler) getSubscription(c *gin.Context) {
	programID, ok := pathID(c)
	if !ok {
		return
	}

	role := callerRole(c)
	var callerID int64
	switch role {
	case models.RoleCustomer:
		id, ok := clientID(c)
		if !ok {
			return
		}
		callerID = id
	case models.RoleFarmer:
		id, ok := farmID(c)
		if !ok {
			return
		}
		callerID = id
	}

	sub, err := h.catalog.GetSubscription(c.Request.Context(), role, callerID, programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// cancelSubscription retires a program on behalf of its customer or farm
func (h *Handler) cancelSubscription(c *gin.Context) {
	programID, ok := pathID(c)
	if !ok {
		return
	}

	role := callerRole(c)
	var callerID int64
	switch role {
	case models.RoleCustomer:
		id, ok := clientID(c)
		if !ok {
			return
		}
		callerID = id
	case models.RoleFarmer:
		id, ok := farmID(c)
		if !ok {
			return
		}
		callerID = id
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
		return
	}

	if err := h.subscriptions.CancelSubscription(c.Request.Context(), role, callerID, programID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program_id": programID, "status": models.SubscriptionCancelled})
}
