package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/pipeline"
	"github.com/faraiwande/gdpr-deletion/pkg/warehouse"
)

type fakeRunner struct {
	result *pipeline.RunResult
	date   time.Time
	calls  int
}

func (f *fakeRunner) RunManual(_ context.Context, date time.Time) *pipeline.RunResult {
	f.calls++
	f.date = date
	return f.result
}

type fakeWarehouse struct {
	rs  *warehouse.ResultSet
	err error
}

func (f *fakeWarehouse) RunQuery(context.Context, string) (*warehouse.ResultSet, error) {
	return f.rs, f.err
}

func doneResult(date time.Time) *pipeline.RunResult {
	result := pipeline.NewRunResult(pipeline.ModeManual, date)
	result.Pending = 5
	result.Chunks = 1
	result.SubmittedChunks = 1
	result.AddNotice(pipeline.NoticeSuccess, "Successfully processed GDPR deletions for 2024-03-01.")
	return result.Complete(pipeline.StateDone)
}

func TestIndex_ReturnsPendingCounts(t *testing.T) {
	wh := &fakeWarehouse{rs: &warehouse.ResultSet{Rows: []warehouse.Row{
		{"gdprdate": "2024-02-28", "cnt": int64(3)},
		{"gdprdate": "2024-03-01", "cnt": int64(7)},
	}}}
	router := NewRouter(&fakeRunner{}, wh, "custanwo.customer_transformation", zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TotalCount  int64 `json:"total_count"`
		SpidsByDate []struct {
			GDPRDate string `json:"gdprdate"`
			Count    int64  `json:"cnt"`
		} `json:"spids_by_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, int64(10), body.TotalCount)
	require.Len(t, body.SpidsByDate, 2)
	assert.Equal(t, "2024-02-28", body.SpidsByDate[0].GDPRDate)
	assert.Equal(t, int64(3), body.SpidsByDate[0].Count)
}

func TestIndex_WarehouseUnavailable(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("warehouse down")}
	router := NewRouter(&fakeRunner{}, wh, "custanwo.customer_transformation", zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExecuteDeletions_RunsForDate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	runner := &fakeRunner{result: doneResult(date)}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions",
		strings.NewReader(`{"date":"2024-03-01"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, date, runner.date)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "done", body["state"])
	assert.Equal(t, float64(5), body["pending"])
	assert.Equal(t, float64(1), body["submitted_chunks"])
}

func TestExecuteDeletions_FormEncoded(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	runner := &fakeRunner{result: doneResult(date)}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions",
		strings.NewReader("date=2024-03-01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestExecuteDeletions_LeaseHeldAnswersConflict(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result := pipeline.NewRunResult(pipeline.ModeManual, date)
	result.Failure = pipeline.NewFailure(pipeline.CategoryLease, pipeline.ErrLeaseHeld)
	result.Complete(pipeline.StateAborted)

	runner := &fakeRunner{result: result}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions",
		strings.NewReader(`{"date":"2024-03-01"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"aborted"`)
}

func TestExecuteDeletions_AbortedRunAnswersError(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result := pipeline.NewRunResult(pipeline.ModeManual, date)
	result.Failure = pipeline.NewFailure(pipeline.CategoryQuery, errors.New("warehouse down"))
	result.Complete(pipeline.StateAborted)

	runner := &fakeRunner{result: result}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions",
		strings.NewReader(`{"date":"2024-03-01"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestExecuteDeletions_MissingDate(t *testing.T) {
	runner := &fakeRunner{}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "please select a date")
	assert.Equal(t, 0, runner.calls)
}

func TestExecuteDeletions_MalformedDate(t *testing.T) {
	runner := &fakeRunner{}
	router := NewRouter(runner, &fakeWarehouse{rs: &warehouse.ResultSet{}}, "custanwo.customer_transformation", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/execute-deletions",
		strings.NewReader(`{"date":"03/01/2024"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "YYYY-MM-DD")
	assert.Equal(t, 0, runner.calls)
}

func TestHealth(t *testing.T) {
	router := NewRouter(&fakeRunner{}, &fakeWarehouse{}, "custanwo.customer_transformation", zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAsInt(t *testing.T) {
	assert.Equal(t, int64(3), asInt(int64(3)))
	assert.Equal(t, int64(3), asInt(3))
	assert.Equal(t, int64(3), asInt(float64(3)))
	assert.Equal(t, int64(3), asInt([]byte("3")))
	assert.Equal(t, int64(3), asInt("3"))
	assert.Equal(t, int64(0), asInt(nil))
}
