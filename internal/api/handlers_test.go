package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chorushq/chorus/internal/adapters"
	"github.com/chorushq/chorus/internal/models"
	"github.com/chorushq/chorus/internal/pipeline"
	"github.com/chorushq/chorus/internal/store"
	"github.com/chorushq/chorus/internal/summarizer"
)

type fakeGenerator struct {
	result any
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type dispatchRecorder struct {
	inputs []pipeline.RunInput
	err    error
}

func (d *dispatchRecorder) dispatch(input pipeline.RunInput) error {
	if d.err != nil {
		return d.err
	}
	d.inputs = append(d.inputs, input)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.FeedbackRecord{},
		&models.SourceSummary{},
		&models.AggregatedSummary{},
		&models.PipelineRun{},
	))
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *dispatchRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &dispatchRecorder{}

	router := NewRouter(Deps{
		DB:        db,
		Feedback:  store.NewFeedbackStore(db),
		Summaries: store.NewSummaryStore(db),
		Runs:      store.NewRunStore(db),
		Registry:  adapters.NewRegistry(),
		Aggregation: pipeline.NewAggregationPipeline(
			store.NewSummaryStore(db),
			summarizer.New(&fakeGenerator{result: "digest"}, logger),
			nil,
			logger,
		),
		Dispatch: rec.dispatch,
		Logger:   logger,
	})
	return router, db, rec
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWebhookAcceptsGitHubIssue(t *testing.T) {
	router, db, rec := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/webhook/github", `{
		"action": "opened",
		"issue": {"number": 5, "title": "Bug", "body": "Crashes", "user": {"login": "al"}}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 1, body["items"])
	require.NotEmpty(t, body["run_id"])

	require.Len(t, rec.inputs, 1)
	input := rec.inputs[0]
	require.Equal(t, "github", input.Source)
	require.Len(t, input.Items, 1)
	require.True(t, strings.HasPrefix(input.Items[0].Content, "Issue #5: Bug"))
	require.Equal(t, "al", input.Items[0].Metadata["author"])

	var run models.PipelineRun
	require.NoError(t, db.Where("run_id = ?", body["run_id"]).First(&run).Error)
	require.Equal(t, models.RunStatusPending, run.Status)
	require.Equal(t, 1, run.ItemCount)
}

func TestWebhookMalformedJSON(t *testing.T) {
	router, db, rec := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/webhook/github", `{not json`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, decodeBody(t, w)["error"], "invalid JSON")
	require.Empty(t, rec.inputs)

	var count int64
	require.NoError(t, db.Model(&models.PipelineRun{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestWebhookZeroItemsSkipsPipeline(t *testing.T) {
	router, db, rec := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/webhook/discord", `{"unrelated": true}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 0, body["items"])
	require.Empty(t, rec.inputs)

	var records, runs int64
	require.NoError(t, db.Model(&models.FeedbackRecord{}).Count(&records).Error)
	require.NoError(t, db.Model(&models.PipelineRun{}).Count(&runs).Error)
	require.Zero(t, records)
	require.Zero(t, runs)
}

func TestWebhookUnknownSourceUsesGenericAdapter(t *testing.T) {
	router, _, rec := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/webhook/intercom", `{"kind": "nps", "score": 9}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, decodeBody(t, w)["items"])

	require.Len(t, rec.inputs, 1)
	require.Len(t, rec.inputs[0].Items, 1)
	require.Equal(t, true, rec.inputs[0].Items[0].Metadata["raw"])
}

func TestWebhookDispatchFailureMarksRunFailed(t *testing.T) {
	router, db, rec := newTestRouter(t)
	rec.err = errors.New("queue down")

	w := doRequest(router, http.MethodPost, "/webhook/github", `{
		"issue": {"number": 1, "title": "t", "body": "b"}
	}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var run models.PipelineRun
	require.NoError(t, db.First(&run).Error)
	require.Equal(t, models.RunStatusFailed, run.Status)
	require.NotEmpty(t, run.ErrorMessage)
}

func TestSummarizeSourceDispatchesUnprocessedRecords(t *testing.T) {
	router, db, rec := newTestRouter(t)
	feedback := store.NewFeedbackStore(db)
	ctx := context.Background()

	id1, err := feedback.Insert(ctx, "discord", "a", nil)
	require.NoError(t, err)
	id2, err := feedback.Insert(ctx, "discord", "b", nil)
	require.NoError(t, err)
	processed, err := feedback.Insert(ctx, "discord", "done", nil)
	require.NoError(t, err)
	_, err = feedback.MarkProcessed(ctx, []uint{processed})
	require.NoError(t, err)
	_, err = feedback.Insert(ctx, "zendesk", "other source", nil)
	require.NoError(t, err)

	w := doRequest(router, http.MethodPost, "/api/summarize/discord", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decodeBody(t, w)["records"])

	require.Len(t, rec.inputs, 1)
	input := rec.inputs[0]
	require.Equal(t, "discord", input.Source)
	require.Empty(t, input.Items)
	require.ElementsMatch(t, []uint{id1, id2}, input.RecordIDs)
}

func TestSummarizeSourceNoUnprocessedRecords(t *testing.T) {
	router, db, rec := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/summarize/github", `{"days": 3}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 0, body["records"])
	require.Empty(t, rec.inputs)

	var runs int64
	require.NoError(t, db.Model(&models.PipelineRun{}).Count(&runs).Error)
	require.Zero(t, runs)
}

func TestAggregateRunsSynchronously(t *testing.T) {
	router, db, _ := newTestRouter(t)
	summaries := store.NewSummaryStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, summaries.InsertSourceSummary(ctx, &models.SourceSummary{
		Source: "github", SummaryText: "bugs", FeedbackCount: 4,
		DateRangeStart: now.Add(-48 * time.Hour), DateRangeEnd: now.Add(-24 * time.Hour),
	}))
	require.NoError(t, summaries.InsertSourceSummary(ctx, &models.SourceSummary{
		Source: "discord", SummaryText: "praise", FeedbackCount: 6,
		DateRangeStart: now.Add(-36 * time.Hour), DateRangeEnd: now.Add(-12 * time.Hour),
	}))

	w := doRequest(router, http.MethodPost, "/api/aggregate", `{"days": 7}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "digest", summary["summary_text"])
	require.EqualValues(t, 2, summary["source_count"])
	require.EqualValues(t, 10, summary["total_feedback_count"])

	var count int64
	require.NoError(t, db.Model(&models.AggregatedSummary{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAggregateInvalidBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/aggregate", `{days`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSummaries(t *testing.T) {
	router, db, _ := newTestRouter(t)
	now := time.Now().UTC().Truncate(time.Second)

	for i, source := range []string{"github", "discord", "email"} {
		require.NoError(t, db.Create(&models.SourceSummary{
			Source: source, SummaryText: "s", FeedbackCount: 1,
			DateRangeStart: now, DateRangeEnd: now,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	w := doRequest(router, http.MethodGet, "/api/summaries", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 3, decodeBody(t, w)["count"])

	w = doRequest(router, http.MethodGet, "/api/summaries?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 2, body["count"])
	list := body["summaries"].([]any)
	first := list[0].(map[string]any)
	require.Equal(t, "email", first["source"])
}

func TestListSummariesBySource(t *testing.T) {
	router, db, _ := newTestRouter(t)
	now := time.Now().UTC().Truncate(time.Second)

	for _, source := range []string{"github", "discord", "github"} {
		require.NoError(t, db.Create(&models.SourceSummary{
			Source: source, SummaryText: "s", FeedbackCount: 1,
			DateRangeStart: now, DateRangeEnd: now,
		}).Error)
	}

	w := doRequest(router, http.MethodGet, "/api/summaries/github", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 2, body["count"])
	require.Equal(t, "github", body["source"])
}

func TestStats(t *testing.T) {
	router, db, _ := newTestRouter(t)
	feedback := store.NewFeedbackStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, source := range []string{"github", "github", "discord"} {
		_, err := feedback.Insert(ctx, source, "x", nil)
		require.NoError(t, err)
	}
	require.NoError(t, db.Create(&models.AggregatedSummary{
		SummaryText: "agg", DateRangeStart: now.Add(-7 * 24 * time.Hour), DateRangeEnd: now,
		SourceCount: 2, TotalFeedbackCount: 3,
	}).Error)

	w := doRequest(router, http.MethodGet, "/api/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	counts := body["feedback_counts"].(map[string]any)
	require.EqualValues(t, 2, counts["github"])
	require.EqualValues(t, 1, counts["discord"])

	latest := body["latest_aggregated"].(map[string]any)
	require.Equal(t, "agg", latest["summary_text"])

	require.NotNil(t, body["recent_summaries"])
}

func TestGetRun(t *testing.T) {
	router, db, _ := newTestRouter(t)
	runs := store.NewRunStore(db)

	require.NoError(t, runs.CreateRun(context.Background(), &models.PipelineRun{
		RunID:  "run-42",
		Source: "github",
		Status: models.RunStatusCompleted,
	}))

	w := doRequest(router, http.MethodGet, "/api/runs/run-42", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "run-42", decodeBody(t, w)["run_id"])

	w = doRequest(router, http.MethodGet, "/api/runs/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/nope", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not found", decodeBody(t, w)["error"])
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
