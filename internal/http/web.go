package http

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web/index.html web/app.js
var webFS embed.FS

func serveIndex(c *gin.Context) {
	serveAsset(c, "web/index.html", "text/html; charset=utf-8")
}

func serveAppJS(c *gin.Context) {
	serveAsset(c, "web/app.js", "text/javascript; charset=utf-8")
}

func serveAsset(c *gin.Context, name, contentType string) {
	data, err := webFS.ReadFile(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
