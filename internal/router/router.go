package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mail-expense-intake/internal/handler"
)

// quietPaths are hit by health checks and metric scrapes and kept out of the access log
var quietPaths = []string{"/healthz", "/metrics"}

// SetupRouter configures the Gin router with routes and middleware
func SetupRouter(h *handler.Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(loggerMiddleware())

	h.SetupRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.ErrorResponse{
			Error:   "not_found",
			Message: "No route for " + c.Request.Method + " " + c.Request.URL.Path,
			Code:    http.StatusNotFound,
		})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handler.ErrorResponse{
			Error:   "method_not_allowed",
			Message: c.Request.Method + " is not allowed on " + c.Request.URL.Path,
			Code:    http.StatusMethodNotAllowed,
		})
	})
	return r
}

func loggerMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: quietPaths,
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s\" %s\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.ErrorMessage,
			)
		},
	})
}
