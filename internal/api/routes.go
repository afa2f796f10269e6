package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine serving the catalog API.
func NewRouter(handler *Handler, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", TenantHeader},
		MaxAge:          12 * time.Hour,
	}))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	api.Use(TenantContext())
	{
		api.GET("/properties", handler.SearchProperties)
		api.GET("/properties.geojson", handler.PropertiesGeoJSON)
		api.GET("/properties/:id", handler.GetProperty)
		api.GET("/districts.geojson", handler.DistrictsGeoJSON)
		api.POST("/catalog/refresh", handler.RefreshCatalog)
	}
}
