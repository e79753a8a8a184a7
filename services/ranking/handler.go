package ranking

import (
	"contest-review/pkg/errutil"
	"contest-review/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type rankingQuery struct {
	WeekCount *int `form:"weekCount"`
}

type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

func registerRoutes(r *gin.Engine, h *Handler) {
	r.GET("/api/v1/ranking", h.GetRanking)
}

func (h *Handler) GetRanking(c *gin.Context) {
	var q rankingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpapi.Fail(c, errutil.BadRequest("invalid query", err))
		return
	}

	board, err := h.service.GetRanking(c.Request.Context(), q.WeekCount)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	httpapi.OK(c, board)
}
