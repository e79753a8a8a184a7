package ledger

import (
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type listLogQuery struct {
	WeekCount *int   `form:"weekCount"`
	UserID    string `form:"userId"`
	TaskID    string `form:"taskId"`
	SortBy    string `form:"sortBy"`
	Order     string `form:"order"`
	pagination.Pagination
}

type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

func registerRoutes(r *gin.Engine, h *Handler) {
	r.GET("/api/v1/points-log", h.ListPointsLog)
}

func (h *Handler) ListPointsLog(c *gin.Context) {
	var q listLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpapi.Fail(c, errutil.BadRequest("invalid query", err))
		return
	}

	if q.SortBy != "" && !LogSortFields[q.SortBy] {
		httpapi.Fail(c, errutil.BadRequest("invalid query", nil,
			errutil.WithDetails(errutil.Detail{Field: "sortBy", Message: "unsupported sort field"})))
		return
	}

	res, err := h.service.List(c.Request.Context(), LogFilter{
		UserID:     q.UserID,
		TaskID:     q.TaskID,
		WeekCount:  q.WeekCount,
		SortBy:     q.SortBy,
		Ascending:  q.Order == "asc",
		Pagination: q.Pagination.Normalize(),
	})
	if err != nil {
		httpapi.Fail(c, errutil.Internal("failed to list points log", err))
		return
	}

	httpapi.OK(c, res)
}
