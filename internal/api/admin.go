package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listEntities serves the admin entity descriptors
func (h *Handler) listEntities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": h.admin.Entities()})
}

// adminList serves the rows of one entity
func (h *Handler) adminList(c *gin.Context) {
	rows, err := h.admin.List(c.Request.Context(), c.Param("entity"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// adminCreate inserts one row from a raw payload
func (h *Handler) adminCreate(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.admin.Create(c.Request.Context(), c.Param("entity"), payload); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// adminUpdate edits the non-key columns of one row
func (h *Handler) adminUpdate(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.admin.Update(c.Request.Context(), c.Param("entity"), c.Param("id"), payload); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// adminDelete removes one row and everything depending on it
func (h *Handler) adminDelete(c *gin.Context) {
	removed, err := h.admin.Delete(c.Request.Context(), c.Param("entity"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows_removed": removed})
}
