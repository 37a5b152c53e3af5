package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/web"
)

type UIHandler struct{}

func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

func (u *UIHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", u.GetIndex)
}

func (u *UIHandler) GetIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}
