package api

import (
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ppphp/portagebrowser/pkg/backend"
)

type handler struct {
	b *backend.Backend
}

// New builds the read-only browsing API over b. A non-empty webDir is
// served at the root.
func New(b *backend.Backend, webDir string) *gin.Engine {
	h := &handler{b: b}
	app := gin.New()
	app.Use(gin.Recovery())
	app.Use(cors.Default())
	if webDir != "" {
		app.Use(static.Serve("/", static.LocalFile(webDir, true)))
	}
	app.GET("/ping", getPing)
	app.GET("/category", h.getCategory)
	app.GET("/package/:category", h.getPackages)
	app.GET("/package/:category/:name", h.getPackage)
	app.GET("/updates", h.getUpdates)
	app.POST("/scan", h.postScan)
	app.GET("/scan", h.getScan)
	return app
}
