package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/wallet_bot/log"
)

func NewRouter(h *WalletHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := r.Group("/users/:userID")
	{
		users.POST("/address", h.CreateAddress)
		users.GET("/balance", h.GetBalance)
		users.POST("/withdraw", h.RequestWithdrawal)
		users.POST("/withdraw/cancel", h.CancelWithdrawal)
		users.POST("/messages", h.PostMessage)
		users.POST("/export-key", h.ExportKey)
		users.GET("/withdrawals", h.ListWithdrawals)
	}
	return r
}

// RequestLogger logs one line per request. Bodies are never logged; they may
// carry exported keys.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.API.Info().
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("user_id", c.Param("userID")).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
