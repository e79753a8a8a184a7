package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contest-review/pkg/config"
	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/middleware"
	"contest-review/services/ledger"
	"contest-review/services/ranking"
	"contest-review/services/review"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 20

var Module = fx.Module("review.client",
	fx.Provide(NewReviewClient),
)

// TaskFilter is the listTasks query. Reviewed asks for every non-pending
// record when ReviewStatus is nil.
type TaskFilter struct {
	WeekCount    *int
	ReviewStatus *review.ReviewStatus
	Reviewed     bool
	pagination.Pagination
}

// PointsLogFilter is the listPointsLog query.
type PointsLogFilter struct {
	WeekCount *int
	UserID    string
	SortBy    string
	Ascending bool
	pagination.Pagination
}

// ReviewTaskRequest is the reviewTask body. Modify sends the amendment
// of an already reviewed task.
type ReviewTaskRequest struct {
	TaskID        string              `json:"-"`
	ReviewStatus  review.ReviewStatus `json:"reviewStatus"`
	ReviewMessage *string             `json:"reviewMessage,omitempty"`
	Points        *int64              `json:"points,omitempty"`
	Modify        bool                `json:"-"`
}

type envelope struct {
	Code    *int            `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// ReviewClient talks to the review backend over HTTP/JSON.
type ReviewClient struct {
	baseURL  string
	http     *http.Client
	operator middleware.Operator
}

type Params struct {
	fx.In
	Config *config.Config
}

func NewReviewClient(p Params) (*ReviewClient, error) {
	b := p.Config.Backend
	c, err := New(b.URL, &http.Client{Timeout: b.Timeout})
	if err != nil {
		return nil, err
	}
	return c.WithOperator(middleware.Operator{ID: b.OperatorID, Name: b.OperatorName}), nil
}

func New(baseURL string, httpClient *http.Client) (*ReviewClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ReviewClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}, nil
}

// WithOperator returns a copy that sends op when the context carries none.
func (c *ReviewClient) WithOperator(op middleware.Operator) *ReviewClient {
	cp := *c
	cp.operator = op
	return &cp
}

func (c *ReviewClient) ListTasks(ctx context.Context, f TaskFilter) (*pagination.Result[review.TaskRecord], error) {
	q := pageQuery(f.Pagination)
	if f.WeekCount != nil {
		q.Set("weekCount", strconv.Itoa(*f.WeekCount))
	}
	if f.ReviewStatus != nil {
		q.Set("reviewStatus", strconv.Itoa(int(*f.ReviewStatus)))
	} else if f.Reviewed {
		q.Set("reviewed", "true")
	}
	return call[*pagination.Result[review.TaskRecord]](ctx, c, http.MethodGet, "/api/v1/tasks", q, nil)
}

func (c *ReviewClient) GetTaskDetail(ctx context.Context, id string) (*review.TaskRecord, error) {
	return call[*review.TaskRecord](ctx, c, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *ReviewClient) ReviewTask(ctx context.Context, req ReviewTaskRequest) (bool, error) {
	method := http.MethodPost
	if req.Modify {
		method = http.MethodPut
	}
	return call[bool](ctx, c, method, "/api/v1/tasks/"+url.PathEscape(req.TaskID)+"/review", nil, req)
}

func (c *ReviewClient) ListPointsLog(ctx context.Context, f PointsLogFilter) (*pagination.Result[ledger.Entry], error) {
	q := pageQuery(f.Pagination)
	if f.WeekCount != nil {
		q.Set("weekCount", strconv.Itoa(*f.WeekCount))
	}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	if f.SortBy != "" {
		q.Set("sortBy", f.SortBy)
	}
	if f.Ascending {
		q.Set("order", "asc")
	}
	return call[*pagination.Result[ledger.Entry]](ctx, c, http.MethodGet, "/api/v1/points-log", q, nil)
}

func (c *ReviewClient) GetRanking(ctx context.Context, week *int) (*ranking.Board, error) {
	q := url.Values{}
	if week != nil {
		q.Set("weekCount", strconv.Itoa(*week))
	}
	return call[*ranking.Board](ctx, c, http.MethodGet, "/api/v1/ranking", q, nil)
}

func pageQuery(p pagination.Pagination) url.Values {
	p = p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("pageSize", strconv.Itoa(p.PageSize))
	return q
}

// call performs one request and unwraps the {code, data, message} envelope.
// A missing or null data payload is an error, never a zero value.
func call[T any](ctx context.Context, c *ReviewClient, method, path string, query url.Values, body any) (T, error) {
	var zero T

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return zero, errutil.BadRequest("failed to encode request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return zero, errutil.BadRequest("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op, ok := middleware.GetOperator(ctx)
	if !ok {
		op = c.operator
	}
	if op.ID != "" {
		req.Header.Set(middleware.HeaderOperatorID, op.ID)
		req.Header.Set(middleware.HeaderOperatorName, op.Name)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return zero, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, transportError(err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// the backend's own error envelope keeps its category and message
		if decodeErr == nil && env.Code != nil && *env.Code != 0 && env.Message != "" {
			return zero, errutil.FromCode(*env.Code, env.Message)
		}
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return zero, errutil.BadGateway(fmt.Sprintf("backend responded %d: %s", resp.StatusCode, msg), nil)
	}

	if decodeErr != nil || env.Code == nil {
		return zero, errutil.BadGateway("malformed backend response", decodeErr)
	}
	if *env.Code != 0 {
		return zero, errutil.FromCode(*env.Code, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return zero, errutil.BadGateway("empty backend response", nil)
	}

	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return zero, errutil.BadGateway("malformed backend response", err)
	}
	return out, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errutil.Timeout("backend request timed out", err)
	}
	return errutil.BadGateway("backend unreachable", err)
}
