package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/abhisek/diagnostica/internal/attempt"
	"github.com/abhisek/diagnostica/internal/cohort"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/content/contenttest"
	"github.com/abhisek/diagnostica/internal/evaluation"
	"github.com/abhisek/diagnostica/internal/reporting"
	"github.com/abhisek/diagnostica/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zaptest.NewLogger(t)
	attempts := attempt.NewService(st, evaluation.NewEvaluator(evaluation.DefaultConfig(), logger), logger)
	reports := reporting.NewService(st.Results(), st.Tags(), attempts, reporting.Options{
		Thresholds: cohort.DefaultThresholds(),
		Logger:     logger,
	})
	return New(attempts, reports, st, Options{Logger: logger}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(context.Background(), method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func samplePackJSON(t *testing.T) string {
	t.Helper()
	b, err := content.EncodePack(contenttest.SamplePack())
	require.NoError(t, err)
	return string(b)
}

func startAttempt(t *testing.T, h http.Handler, student string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/v1/attempts", `{"examId":"fractions-diag","studentId":"`+student+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp attemptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "IN_PROGRESS", resp.Status)
	return resp.ID
}

const compareTrap = `[
  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q-basics-1","selectedOptionId":"a","confidence":"high","timeMs":12000}},
  {"event_type":"HESITATION","timestamp":"2026-03-01T09:00:30Z","payload":{"questionId":"q-compare-1","count":2}},
  {"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:40Z","payload":{"questionId":"q-compare-1","selectedOptionId":"b","confidence":"HIGH","timeMs":9000,"isCorrect":true}}
]`

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestPutExam(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPut, "/v1/exams/fractions-diag", samplePackJSON(t))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPut, "/v1/exams/other", samplePackJSON(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPut, "/v1/exams/fractions-diag", `{"examId":"fractions-diag","version":"not-semver","competencies":[],"questions":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestAttemptFlow(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/exams/fractions-diag", samplePackJSON(t)).Code)

	id := startAttempt(t, h, "s1")

	w := do(t, h, http.MethodPost, "/v1/attempts/"+id+"/events", compareTrap)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var seqs struct {
		Sequences []int64 `json:"sequences"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seqs))
	assert.Len(t, seqs.Sequences, 3)

	w = do(t, h, http.MethodGet, "/v1/attempts/"+id+"/result", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/v1/attempts/"+id+"/finalize", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res evaluation.DiagnosticResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, id, res.AttemptID)
	assert.Equal(t, 50, res.OverallScore)
	require.NotNil(t, res.Diagnosis("frac-compare"))
	assert.Equal(t, "MISCONCEPTION", string(res.Diagnosis("frac-compare").State))

	w = do(t, h, http.MethodGet, "/v1/attempts/"+id+"/result", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/v1/attempts/"+id+"/events", compareTrap)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, "/v1/attempts/"+id+"/remediation", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INJECT_SCAFFOLDING")

	w = do(t, h, http.MethodGet, "/v1/attempts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"COMPLETED"`)
}

func TestAppendEvents_Validation(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/exams/fractions-diag", samplePackJSON(t)).Code)
	id := startAttempt(t, h, "s1")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"empty batch", `[]`},
		{"unknown type", `[{"event_type":"CLICK","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q1"}}]`},
		{"missing question", `[{"event_type":"HESITATION","timestamp":"2026-03-01T09:00:00Z","payload":{}}]`},
		{"bad confidence", `[{"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q1","confidence":"sure"}}]`},
		{"negative time", `[{"event_type":"ANSWER_UPDATE","timestamp":"2026-03-01T09:00:00Z","payload":{"questionId":"q1","timeMs":-5}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/v1/attempts/"+id+"/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := do(t, h, http.MethodPost, "/v1/attempts/missing/events", compareTrap)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartAttempt_Errors(t *testing.T) {
	h := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/attempts", `{"examId":"fractions-diag"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/attempts", `{"examId":"nope","studentId":"s1"}`).Code)
}

func TestReportWithTags(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/exams/fractions-diag", samplePackJSON(t)).Code)

	for _, student := range []string{"s1", "s2"} {
		id := startAttempt(t, h, student)
		require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/v1/attempts/"+id+"/events", compareTrap).Code)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/attempts/"+id+"/finalize", "").Code)

		w := do(t, h, http.MethodPut, "/v1/students/"+student+"/tags", `{"tags":{"region":"north"}}`)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	}
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/v1/students/s1/tags", `{"tags":{}}`).Code)

	w := do(t, h, http.MethodGet, "/v1/exams/fractions-diag/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	var r cohort.Report
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&r))
	assert.Empty(t, r.Error)
	assert.Equal(t, 2, r.Attempts)
	require.Len(t, r.ShadowNodes, 1)
	assert.Equal(t, "frac-compare", r.ShadowNodes[0].CompetencyID)
	require.Len(t, r.Fairness, 1)
	assert.Equal(t, cohort.FairnessInsufficientData, r.Fairness[0].Status)
}
