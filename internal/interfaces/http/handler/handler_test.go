package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbnail-ai-api/internal/application/analysis"
	"thumbnail-ai-api/internal/application/history"
	"thumbnail-ai-api/internal/application/thumbnail"
	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/infrastructure/persistence/memory"
	"thumbnail-ai-api/internal/interfaces/http/dto"
	apperrors "thumbnail-ai-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	refs    [][]entity.GeneratedImage
	respond func(seq int) ([]entity.GeneratedImage, error)
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, refs []entity.GeneratedImage) ([]entity.GeneratedImage, error) {
	seq, _ := thumbnail.CallSeq(ctx)
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.refs = append(s.refs, refs)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(seq)
	}
	return []entity.GeneratedImage{{Data: []byte(fmt.Sprintf("img-%d", seq)), MediaType: "image/png"}}, nil
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type stubAnalyzer struct {
	calls int
	text  string
	err   error
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string, _ []entity.GeneratedImage) (string, error) {
	s.calls++
	return s.text, s.err
}

type testServer struct {
	engine   *gin.Engine
	gen      *stubGenerator
	analyzer *stubAnalyzer
	store    *memory.HistoryStore
}

func newTestServer(t *testing.T, mode thumbnail.Mode) *testServer {
	t.Helper()
	ts := &testServer{
		gen:      &stubGenerator{},
		analyzer: &stubAnalyzer{},
		store:    memory.NewHistoryStore(entity.DefaultHistoryCapacity),
	}

	historySvc := history.NewService(ts.store, "memory")
	orchestrator := thumbnail.NewOrchestrator(ts.gen, thumbnail.Options{Mode: mode})
	regenerator := thumbnail.NewRegenerator(orchestrator, historySvc)

	th := NewThumbnailHandler(orchestrator, regenerator, historySvc, 0)
	ah := NewAnalysisHandler(analysis.NewService(ts.analyzer), 0)
	hh := NewHistoryHandler(historySvc)

	e := gin.New()
	e.POST("/generate", th.Generate)
	e.POST("/regenerate", th.Regenerate)
	e.POST("/analyze", ah.Analyze)
	e.GET("/history", hh.List)
	e.DELETE("/history", hh.Clear)
	e.GET("/history/:id", hh.Get)
	e.POST("/history/:id/restore", hh.Restore)
	ts.engine = e
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) historyLen(t *testing.T) int {
	t.Helper()
	entries, err := ts.store.List(context.Background())
	require.NoError(t, err)
	return len(entries)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func datas(images []entity.GeneratedImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, string(img.Data))
	}
	return out
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestGenerate_SequentialBatchRecordsHistory(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{
		"prompt":      "red car",
		"count":       2,
		"aspectRatio": "16:9",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.GenerateResponse](t, w)
	assert.Equal(t, []string{"img-0", "img-1"}, datas(resp.Images))
	assert.NotEmpty(t, resp.HistoryID)
	assert.Equal(t, 1, ts.historyLen(t))

	require.Len(t, ts.gen.prompts, 2)
	assert.Contains(t, ts.gen.prompts[0], "red car. Create a YouTube thumbnail in 16:9 horizontal ratio")

	entry, err := ts.store.Get(context.Background(), resp.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, "red car", entry.Prompt)
	assert.Len(t, entry.Images, 2)
}

func TestGenerate_ParallelQuotaFailureLeavesHistory(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeParallel)
	ts.gen.respond = func(seq int) ([]entity.GeneratedImage, error) {
		if seq == 1 {
			return nil, &apperrors.UpstreamError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
		}
		return []entity.GeneratedImage{{Data: []byte("ok"), MediaType: "image/png"}}, nil
	}

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "red car", "count": 3})
	require.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())

	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, string(apperrors.CodeQuotaExceeded), resp.Code)
	assert.Equal(t, apperrors.ErrQuotaExceeded.Message, resp.Error)
	assert.NotContains(t, w.Body.String(), "images")
	assert.Equal(t, 0, ts.historyLen(t))
}

func TestGenerate_CountClampedAndStringAccepted(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "p", "count": "9"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, ts.gen.calls())

	ts.gen.prompts = nil
	w = ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "p", "count": -3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.gen.calls())
}

func TestGenerate_ReferenceImagesPassedThrough(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{
		"prompt": "p",
		"images": []string{
			"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
			base64.StdEncoding.EncodeToString(pngHeader),
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, ts.gen.refs, 1)
	refs := ts.gen.refs[0]
	require.Len(t, refs, 2)
	assert.Equal(t, jpeg, refs[0].Data)
	assert.Equal(t, "image/jpeg", refs[0].MediaType)
	assert.Equal(t, pngHeader, refs[1].Data)
	assert.Equal(t, "image/png", refs[1].MediaType)
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	cases := map[string]map[string]any{
		"missing prompt": {"count": 1},
		"bad image":      {"prompt": "p", "images": []string{"%%%"}},
		"too many refs":  {"prompt": "p", "images": make([]string, 9)},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/generate", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, string(apperrors.CodeInvalidParam), decode[dto.ErrorResponse](t, w).Code)
		})
	}
	assert.Zero(t, ts.gen.calls())
}

func TestGenerate_EmptyResultIsError(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	ts.gen.respond = func(int) ([]entity.GeneratedImage, error) {
		return []entity.GeneratedImage{{Data: []byte("just text"), MediaType: "text/plain"}}, nil
	}

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "p"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, string(apperrors.CodeEmptyGeneration), resp.Code)
	assert.Equal(t, "no image produced", resp.Error)
	assert.Equal(t, 0, ts.historyLen(t))
}

func TestRegenerate_SplicesAndPatchesHistory(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	w := ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "red car", "count": 2})
	require.Equal(t, http.StatusOK, w.Code)
	gen := decode[dto.GenerateResponse](t, w)

	ts.gen.respond = func(int) ([]entity.GeneratedImage, error) {
		return []entity.GeneratedImage{{Data: []byte("fresh"), MediaType: "image/png"}}, nil
	}
	w = ts.do(t, http.MethodPost, "/regenerate", map[string]any{
		"prompt":    "",
		"index":     1,
		"current":   gen.Images,
		"historyId": gen.HistoryID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.RegenerateResponse](t, w)
	assert.Equal(t, []string{"img-0", "fresh"}, datas(resp.Images))
	last := ts.gen.prompts[len(ts.gen.prompts)-1]
	assert.True(t, strings.HasPrefix(last, entity.DefaultRegeneratePrompt+". "), last)

	entry, err := ts.store.Get(context.Background(), gen.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, []string{"img-0", "fresh"}, datas(entry.Images))
}

func TestRegenerate_IndexOutOfRange(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	w := ts.do(t, http.MethodPost, "/regenerate", map[string]any{
		"index":   3,
		"current": []entity.GeneratedImage{{Data: []byte("a"), MediaType: "image/png"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, ts.gen.calls())
}

func TestAnalyze_CTRVerdict(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	ts.analyzer.text = `{"winner":2,"reasoning":"x","comparison":{"clarity":"y"}}`

	png := base64.StdEncoding.EncodeToString(pngHeader)
	w := ts.do(t, http.MethodPost, "/analyze", map[string]any{"mode": "ctr", "images": []string{png, png}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.CTRResponse](t, w)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, 2, resp.Analysis.Winner)
	assert.Equal(t, map[string]string{"clarity": "y"}, resp.Analysis.Comparison)
}

func TestAnalyze_Titles(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	ts.analyzer.text = "```json\n[\"A\",\"B\"]\n```"

	w := ts.do(t, http.MethodPost, "/analyze", map[string]any{
		"mode":   "titles",
		"images": []string{base64.StdEncoding.EncodeToString(pngHeader)},
		"prompt": "car review",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"A", "B"}, decode[dto.TitlesResponse](t, w).Titles)
}

func TestAnalyze_UnknownModeNeverCallsModel(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	bodies := []map[string]any{
		{"mode": "unknown"},
		{"mode": "unknown", "images": []string{"not base64 at all"}},
		{"mode": "", "images": []string{base64.StdEncoding.EncodeToString(pngHeader)}},
		{"mode": " titles", "images": []string{base64.StdEncoding.EncodeToString(pngHeader)}},
		{"mode": "ctr ", "images": []string{
			base64.StdEncoding.EncodeToString(pngHeader),
			base64.StdEncoding.EncodeToString(pngHeader),
		}},
	}
	for _, body := range bodies {
		w := ts.do(t, http.MethodPost, "/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(apperrors.CodeInvalidMode), decode[dto.ErrorResponse](t, w).Code)
	}
	assert.Zero(t, ts.analyzer.calls)
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	ts.analyzer.text = "not json"

	w := ts.do(t, http.MethodPost, "/analyze", map[string]any{
		"mode":   "titles",
		"images": []string{base64.StdEncoding.EncodeToString(pngHeader)},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, string(apperrors.CodeMalformedAnalysis), decode[dto.ErrorResponse](t, w).Code)
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)
	ts.analyzer.err = errors.New("API key not valid")

	w := ts.do(t, http.MethodPost, "/analyze", map[string]any{
		"mode":   "titles",
		"images": []string{base64.StdEncoding.EncodeToString(pngHeader)},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(apperrors.CodeInvalidCredential), decode[dto.ErrorResponse](t, w).Code)
}

func TestHistory_ListGetRestoreClear(t *testing.T) {
	ts := newTestServer(t, thumbnail.ModeSequential)

	w := ts.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":[]}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "first", "count": 1, "aspectRatio": "9:16"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/generate", map[string]any{"prompt": "second", "count": 3})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[dto.GenerateResponse](t, w)

	w = ts.do(t, http.MethodGet, "/history", nil)
	list := decode[dto.HistoryListResponse](t, w)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "second", list.Entries[0].Prompt)
	assert.Equal(t, "first", list.Entries[1].Prompt)
	assert.Equal(t, entity.AspectRatioPortrait, list.Entries[1].AspectRatio)

	w = ts.do(t, http.MethodGet, "/history/"+second.HistoryID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "second", decode[entity.HistoryEntry](t, w).Prompt)

	calls := ts.gen.calls()
	w = ts.do(t, http.MethodPost, "/history/"+second.HistoryID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ws := decode[thumbnail.Workspace](t, w)
	assert.Equal(t, "second", ws.Prompt)
	assert.Equal(t, 3, ws.Count)
	assert.Equal(t, entity.AspectRatioLandscape, ws.AspectRatio)
	assert.Equal(t, calls, ts.gen.calls())

	w = ts.do(t, http.MethodPost, "/history/missing/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, ts.historyLen(t))
}

func TestHealth_ReadyReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler("test", map[string]HealthChecker{
		"redis":    checkerFunc(func(context.Context) error { return nil }),
		"postgres": checkerFunc(func(context.Context) error { return errors.New("down") }),
	})
	e := gin.New()
	e.GET("/ready", h.Ready)
	e.GET("/health", h.Health)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"not_ready"`)
	assert.Contains(t, w.Body.String(), `"down"`)

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
