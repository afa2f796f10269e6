package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"estatecatalog/server/internal/catalog"
	"estatecatalog/server/internal/geometry"
	"estatecatalog/server/internal/models"
	"estatecatalog/server/internal/pricing"
	"estatecatalog/server/internal/projection"
	"estatecatalog/server/internal/search"
)

// Searcher is the query side of the catalog.
type Searcher interface {
	Search(ctx context.Context, tenantID uint, c search.Criteria) (*search.Result, error)
	Find(ctx context.Context, tenantID, assetID uint) (*models.ListedProperty, error)
	Scope(ctx context.Context, tenantID uint, filters ...search.Filter) ([]*models.ListedProperty, error)
}

// Refresher rebuilds a tenant's catalog on request.
type Refresher interface {
	Refresh(ctx context.Context, tenantID uint, mode catalog.Mode) error
}

type Handler struct {
	searcher   Searcher
	serializer *projection.Serializer
	refresher  Refresher
	logger     *logrus.Logger
}

// RenderQuery holds the projection parameters shared by the read endpoints.
type RenderQuery struct {
	Locale     string `form:"locale"`
	Variant    string `form:"variant"`
	Syndicated bool   `form:"syndicated"`
	Context    string `form:"context"`
}

func NewHandler(searcher Searcher, serializer *projection.Serializer, refresher Refresher, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		searcher:   searcher,
		serializer: serializer,
		refresher:  refresher,
		logger:     logger,
	}
}

// SearchProperties answers GET /api/properties.
func (h *Handler) SearchProperties(c *gin.Context) {
	criteria, render, ok := h.bindSearch(c)
	if !ok {
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), tenantID(c), criteria)
	if err != nil {
		h.respondError(c, err, "Failed to search properties")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": h.serializer.AsJSONList(c.Request.Context(), result.Properties, render),
		"total":      result.Total,
		"limit":      result.Limit,
		"offset":     result.Offset,
	})
}

// GetProperty answers GET /api/properties/:id.
func (h *Handler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	render, ok := h.bindRender(c)
	if !ok {
		return
	}

	row, err := h.searcher.Find(c.Request.Context(), tenantID(c), uint(id))
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}

	c.JSON(http.StatusOK, h.serializer.AsJSON(c.Request.Context(), row, render))
}

// PropertiesGeoJSON answers GET /api/properties.geojson with the same criteria
// as the search endpoint.
func (h *Handler) PropertiesGeoJSON(c *gin.Context) {
	criteria, render, ok := h.bindSearch(c)
	if !ok {
		return
	}
	if criteria.Limit == 0 {
		criteria.Limit = search.MaxLimit
	}

	result, err := h.searcher.Search(c.Request.Context(), tenantID(c), criteria)
	if err != nil {
		h.respondError(c, err, "Failed to search properties")
		return
	}

	c.JSON(http.StatusOK, h.serializer.FeatureCollection(c.Request.Context(), result.Properties, render))
}

// DistrictQuery selects the rows that make up the district coverage map.
type DistrictQuery struct {
	SaleOrRental string `form:"sale_or_rental"`
	PrefixLength int    `form:"prefix"`
}

// DistrictsGeoJSON answers GET /api/districts.geojson with one polygon per
// postal district holding visible properties.
func (h *Handler) DistrictsGeoJSON(c *gin.Context) {
	var q DistrictQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.PrefixLength < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	filters := []search.Filter{search.Visible()}
	switch q.SaleOrRental {
	case "":
	case search.CategorySale:
		filters = append(filters, search.ForSale())
	case search.CategoryRental:
		filters = append(filters, search.ForRent())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}

	rows, err := h.searcher.Scope(c.Request.Context(), tenantID(c), filters...)
	if err != nil {
		h.respondError(c, err, "Failed to load districts")
		return
	}

	districts := geometry.GroupDistricts(rows, q.PrefixLength)
	geometry.GenerateHulls(districts)
	c.JSON(http.StatusOK, geometry.FeatureCollection(districts))
}

// RefreshCatalog answers POST /api/catalog/refresh. A failed refresh is not
// an error for the caller; the tenant is picked up by the catch-up sweep.
func (h *Handler) RefreshCatalog(c *gin.Context) {
	mode, err := catalog.ParseMode(c.DefaultQuery("mode", "nonblocking"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant := tenantID(c)
	if err := h.refresher.Refresh(c.Request.Context(), tenant, mode); err != nil {
		h.logger.WithError(err).WithField("tenant_id", tenant).Warn("Requested catalog refresh failed")
		c.JSON(http.StatusAccepted, gin.H{
			"status": "scheduled",
			"mode":   mode.String(),
		})
		return
	}

	if mode == catalog.Blocking {
		c.JSON(http.StatusOK, gin.H{"status": "refreshed", "mode": mode.String()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "mode": mode.String()})
}

func (h *Handler) bindSearch(c *gin.Context) (search.Criteria, projection.Options, bool) {
	var criteria search.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		h.logger.WithError(err).Debug("Failed to parse search criteria")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search criteria"})
		return criteria, projection.Options{}, false
	}
	render, ok := h.bindRender(c)
	return criteria, render, ok
}

func (h *Handler) bindRender(c *gin.Context) (projection.Options, bool) {
	var q RenderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return projection.Options{}, false
	}

	opts := projection.Options{
		Locale:       q.Locale,
		ImageVariant: q.Variant,
		Syndicated:   q.Syndicated,
	}
	if q.Context != "" {
		ctx, ok := pricing.ParseContext(q.Context)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown price context"})
			return projection.Options{}, false
		}
		opts.PriceContext = ctx
	}
	return opts, true
}

// respondError maps the errors callers may see. Anything else is logged and
// reported as an internal error.
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
	case errors.Is(err, search.ErrInvalidCriteria):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("tenant_id", tenantID(c)).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
