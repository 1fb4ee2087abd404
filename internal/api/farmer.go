package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"market-service/internal/service"
)

// listFarmOrders serves the farm's worklist, pending orders first
func (h *Handler) listFarmOrders(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	orders, err := h.catalog.ListFarmOrders(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// dispatchOrder marks a pending order shipped
func (h *Handler) dispatchOrder(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.DispatchOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	resp, err := h.fulfillment.DispatchOrder(c.Request.Context(), id, orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// quoteSubscription prices a pending program
func (h *Handler) quoteSubscription(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	programID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.QuoteSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	price, err := h.subscriptions.QuoteSubscription(c.Request.Context(), id, programID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program_id": programID, "price": price})
}

// dispatchSubscription ships one instance of a program
func (h *Handler) dispatchSubscription(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	programID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.DispatchSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.fulfillment.DispatchSubscription(c.Request.Context(), id, programID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listFarmBatches serves every batch the farm has stocked
func (h *Handler) listFarmBatches(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	batches, err := h.inventory.ListBatches(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// stockBatch adds inventory for a declared offering
func (h *Handler) stockBatch(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}

	var req service.StockBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	batch, err := h.inventory.StockBatch(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// updateBatch revises a batch the farm owns
func (h *Handler) updateBatch(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	batchID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.inventory.UpdateBatch(c.Request.Context(), id, batchID, &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": batchID})
}

// removeBatch deletes an unreferenced batch
func (h *Handler) removeBatch(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	batchID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.RemoveBatch(c.Request.Context(), id, batchID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listOfferings serves the farm's declared offerings
func (h *Handler) listOfferings(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	offerings, err := h.inventory.ListOfferings(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offerings": offerings})
}

// declareOffering registers that the farm grows a product
func (h *Handler) declareOffering(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}

	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.inventory.DeclareOffering(c.Request.Context(), id, &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product_id": req.ProductID})
}

// reviseOffering updates the population declaration of an offering
func (h *Handler) reviseOffering(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	req.ProductID = productID

	if err := h.inventory.ReviseOffering(c.Request.Context(), id, &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID})
}

// withdrawOffering removes an offering the farm no longer grows
func (h *Handler) withdrawOffering(c *gin.Context) {
	id, ok := farmID(c)
	if !ok {
		return
	}
	productID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.WithdrawOffering(c.Request.Context(), id, productID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
