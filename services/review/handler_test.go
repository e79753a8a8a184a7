package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"contest-review/pkg/db/pagination"
	"contest-review/pkg/errutil"
	"contest-review/pkg/httpapi"
	"contest-review/pkg/middleware"
)

func newTestEngine(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := httpapi.NewEngine(nil)
	registerRoutes(r, NewHandler(f.svc))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, operator string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if operator != "" {
		req.Header.Set(middleware.HeaderOperatorID, operator)
		req.Header.Set(middleware.HeaderOperatorName, "Operator "+operator)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHandlerReviewFlow(t *testing.T) {
	f := newFixture(t)
	r := newTestEngine(t, f)
	record := f.submit(t, "u1", TaskTypeOriginal, 5, browse(6000))

	w, env := do(t, r, http.MethodGet, "/api/v1/tasks/"+record.ID+"/suggested-points", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var suggested suggestedPoints
	require.NoError(t, json.Unmarshal(env["data"], &suggested))
	require.Equal(t, int64(20), suggested.Points)

	w, env = do(t, r, http.MethodPost, "/api/v1/tasks/"+record.ID+"/review", map[string]any{
		"reviewStatus": 1,
		"points":       20,
	}, "admin-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `0`, string(env["code"]))
	require.JSONEq(t, `true`, string(env["data"]))

	w, env = do(t, r, http.MethodGet, "/api/v1/tasks?weekCount=5&reviewStatus=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page pagination.Result[TaskRecord]
	require.NoError(t, json.Unmarshal(env["data"], &page))
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, "admin-1", *page.Records[0].VerifierID)
	require.Equal(t, "Operator admin-1", *page.Records[0].VerifierName)
}

func TestHandlerReviewErrors(t *testing.T) {
	f := newFixture(t)
	r := newTestEngine(t, f)
	record := f.submit(t, "u1", TaskTypeInGroup, 1, nil)

	w, env := do(t, r, http.MethodPost, "/api/v1/tasks/"+record.ID+"/review", map[string]any{"reviewStatus": 1, "points": 3}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `40100`, string(env["code"]))

	w, env = do(t, r, http.MethodPost, "/api/v1/tasks/"+record.ID+"/review", map[string]any{"reviewStatus": 0}, "admin")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var code int
	require.NoError(t, json.Unmarshal(env["code"], &code))
	require.Equal(t, errutil.StatusValidationFailed.Code(), code)

	w, _ = do(t, r, http.MethodPut, "/api/v1/tasks/"+record.ID+"/review", map[string]any{"reviewStatus": 2}, "admin")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = do(t, r, http.MethodPost, "/api/v1/tasks/nope/review", map[string]any{"reviewStatus": 2}, "admin")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `"task not found"`, string(env["message"]))
}

func TestHandlerSubmitTask(t *testing.T) {
	f := newFixture(t)
	r := newTestEngine(t, f)

	w, env := do(t, r, http.MethodPost, "/api/v1/tasks", map[string]any{
		"userId":     "u9",
		"userName":   "Nine",
		"taskType":   "out_group",
		"weekCount":  2,
		"screenshot": []string{"https://cdn/1.png", "https://cdn/2.png"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var record TaskRecord
	require.NoError(t, json.Unmarshal(env["data"], &record))
	require.Equal(t, "https://cdn/1.png,https://cdn/2.png", record.Screenshot)
	require.Equal(t, StatusPending, record.ReviewStatus)

	w, _ = do(t, r, http.MethodPost, "/api/v1/tasks", map[string]any{"userId": "u9"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
