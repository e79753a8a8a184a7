package review

import (
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/httpapi"
	"contest-review/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type listTasksQuery struct {
	WeekCount    *int   `form:"weekCount"`
	ReviewStatus *int   `form:"reviewStatus"`
	Reviewed     bool   `form:"reviewed"`
	TaskType     string `form:"taskType"`
	UserID       string `form:"userId"`
	pagination.Pagination
}

type reviewBody struct {
	ReviewStatus  *ReviewStatus `json:"reviewStatus"`
	ReviewMessage *string       `json:"reviewMessage"`
	Points        *int64        `json:"points"`
}

type suggestedPoints struct {
	Points int64 `json:"points"`
}

type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

func registerRoutes(r *gin.Engine, h *Handler) {
	g := r.Group("/api/v1/tasks")
	g.GET("", h.ListTasks)
	g.POST("", h.SubmitTask)
	g.GET("/:id", h.GetTask)
	g.GET("/:id/suggested-points", h.SuggestPoints)
	g.POST("/:id/review", h.reviewWith(IntentReview))
	g.PUT("/:id/review", h.reviewWith(IntentModify))
}

func (h *Handler) ListTasks(c *gin.Context) {
	var q listTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpapi.Fail(c, errutil.BadRequest("invalid query", err))
		return
	}

	f := ListFilter{
		WeekCount:  q.WeekCount,
		TaskType:   TaskType(q.TaskType),
		UserID:     q.UserID,
		Reviewed:   q.Reviewed,
		Pagination: q.Pagination.Normalize(),
	}
	if q.ReviewStatus != nil {
		st := ReviewStatus(*q.ReviewStatus)
		if !st.Valid() {
			httpapi.Fail(c, errutil.ValidationFailed("unknown review status", nil))
			return
		}
		f.ReviewStatus = &st
	}

	res, err := h.service.ListTasks(c.Request.Context(), f)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	httpapi.OK(c, res)
}

func (h *Handler) GetTask(c *gin.Context) {
	record, err := h.service.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	httpapi.OK(c, record)
}

func (h *Handler) SubmitTask(c *gin.Context) {
	var req SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	record, err := h.service.SubmitTask(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	httpapi.OK(c, record)
}

func (h *Handler) SuggestPoints(c *gin.Context) {
	points, err := h.service.SuggestPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	httpapi.OK(c, suggestedPoints{Points: points})
}

func (h *Handler) reviewWith(intent Intent) gin.HandlerFunc {
	return func(c *gin.Context) {
		op, ok := middleware.GetOperator(c.Request.Context())
		if !ok {
			httpapi.Fail(c, errutil.New(errutil.StatusUnauthorized, "operator identity required"))
			return
		}

		var body reviewBody
		if err := c.ShouldBindJSON(&body); err != nil {
			httpapi.Fail(c, errutil.BadRequest("invalid request body", err))
			return
		}

		d := Decision{Status: ReviewStatus(-1), Message: body.ReviewMessage, Points: body.Points}
		if body.ReviewStatus != nil {
			d.Status = *body.ReviewStatus
		}

		if _, err := h.service.Review(c.Request.Context(), ReviewRequest{
			TaskID:       c.Param("id"),
			Decision:     d,
			VerifierID:   op.ID,
			VerifierName: op.Name,
			Intent:       intent,
		}); err != nil {
			httpapi.Fail(c, err)
			return
		}
		httpapi.OK(c, true)
	}
}
