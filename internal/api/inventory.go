package api

import (
	"bytes"
	"net/http"
	"strconv"

	"pawnshop-service/internal/importer"
	"pawnshop-service/internal/models"
	"pawnshop-service/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// listItems handles inventory listing with optional filters
func (h *Handler) listItems(c *gin.Context) {
	filter := service.ItemFilter{
		Query:           c.Query("q"),
		Category:        models.Category(c.Query("category")),
		Status:          models.ItemStatus(c.Query("status")),
		TransactionType: models.TransactionType(c.Query("type")),
	}
	if raw := c.Query("flagged"); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "Invalid flagged filter", err)
			return
		}
		filter.FlaggedOnly = flagged
	}

	items := h.inventory.List(filter)
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *Handler) getItem(c *gin.Context) {
	item, err := h.inventory.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "Item not found", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) createItem(c *gin.Context) {
	var item models.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if item.ItemName == "" {
		badRequest(c, "item_name is required", nil)
		return
	}

	created, err := h.inventory.Add(c.Request.Context(), item)
	if err != nil {
		h.respondError(c, "Failed to create item", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateItem(c *gin.Context) {
	var item models.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	item.ID = c.Param("id")

	updated, err := h.inventory.Update(c.Request.Context(), item)
	if err != nil {
		h.respondError(c, "Failed to update item", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteItem(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllItems(c *gin.Context) {
	if err := h.inventory.DeleteAll(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to delete inventory", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clearSold(c *gin.Context) {
	removed, err := h.inventory.ClearSold(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to clear sold items", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// importItems takes the raw delimited file as the request body
func (h *Handler) importItems(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Failed to read request body", err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		badRequest(c, "Empty import file", nil)
		return
	}

	result, err := h.inventory.ImportCSV(c.Request.Context(), string(body), nil)
	if err != nil {
		h.respondError(c, "Failed to import inventory", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"imported": len(result.Items),
		"skipped":  result.Skipped,
		"total":    result.Total,
	})
}

func (h *Handler) inventoryStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventory.Statistics())
}

func (h *Handler) exportCSV(c *gin.Context) {
	items := h.inventory.List(service.ItemFilter{})
	c.Header("Content-Disposition", `attachment; filename="inventory.csv"`)
	c.Data(http.StatusOK, csvContentType, []byte(importer.ExportCSV(items)))
}

func (h *Handler) exportXLSX(c *gin.Context) {
	items := h.inventory.List(service.ItemFilter{})

	var buf bytes.Buffer
	if err := importer.WriteXLSX(&buf, items); err != nil {
		h.respondError(c, "Failed to export inventory", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
