package httpapi

import (
	"net/http"

	"contest-review/pkg/config"
	"contest-review/pkg/health"
	"contest-review/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewEngine),
	fx.Invoke(registerHealthEndpoint),
)

// Envelope is the response body of every API call; Code 0 is success.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func NewEngine(cfg *config.Config) *gin.Engine {
	if cfg != nil && cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.OperatorContext(),
		middleware.Error(),
	)
	return r
}

func registerHealthEndpoint(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// OK writes a success envelope.
func OK[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Envelope[T]{Code: 0, Data: data, Message: "success"})
}

// Fail hands err to middleware.Error for rendering.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
