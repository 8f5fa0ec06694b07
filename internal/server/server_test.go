package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumebuilder/internal/ai"
	"resumebuilder/internal/assistant"
	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/export"
	"resumebuilder/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	suggestion string
	score      string
	models     []ai.ModelInfo
	err        error

	started chan struct{}
	release chan struct{}
}

func (g *stubGateway) hold(ctx context.Context) error {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.err
}

func (g *stubGateway) Suggest(ctx context.Context, _ types.ResumeFields) (string, *ai.TokenUsage, error) {
	if err := g.hold(ctx); err != nil {
		return "", nil, err
	}
	return g.suggestion, nil, nil
}

func (g *stubGateway) Score(ctx context.Context, _ types.ResumeFields) (string, *ai.TokenUsage, error) {
	if err := g.hold(ctx); err != nil {
		return "", nil, err
	}
	return g.score, nil, nil
}

func (g *stubGateway) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if err := g.hold(ctx); err != nil {
		return nil, err
	}
	return g.models, nil
}

type stubAIHealth struct {
	unavailable map[string]error
}

func (h stubAIHealth) Services() map[string]*ai.Service { return nil }
func (h stubAIHealth) Unavailable() map[string]error    { return h.unavailable }

var testLogger = errors.NewLogger(slog.LevelError)

func testExportConfig() config.ExportConfig {
	return config.ExportConfig{
		FileName:      "resume.pdf",
		PageSize:      "A4",
		Orientation:   "P",
		FontFamily:    "Helvetica",
		TitleFontSize: 18,
		BodyFontSize:  12,
		LeftMargin:    10,
		TopMargin:     20,
		BottomMargin:  15,
		ContentWidth:  180,
	}
}

func newTestServer(t *testing.T, g ai.Gateway, configure func(*ServerConfig)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := ServerConfig{
		Version:        "test",
		MaxRequestSize: 1 << 20,
		RateLimit:      &config.RateLimitConfig{},
	}
	if configure != nil {
		configure(&cfg)
	}

	a := assistant.New(g, "Gemini", export.New(testExportConfig()), testLogger)
	s := NewServer(nil, cfg, Dependencies{Assistant: a}, testLogger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.cleanup()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, ts *httptest.Server, fields map[string]string) SessionResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/sessions", CreateSessionRequest{Fields: fields})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[SessionResponse](t, resp)
}

func TestCreateAndGetSession(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)

	created := createSession(t, ts, map[string]string{"Name": "Ada Lovelace"})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ada Lovelace", created.Fields.Name)
	assert.False(t, created.Busy)

	resp := doJSON(t, http.MethodGet, ts.URL+"/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[SessionResponse](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Nil(t, got.Preview)
	assert.Nil(t, got.Score)
}

func TestCreateSessionWithoutBody(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateSessionRejectsUnknownField(t *testing.T) {
	s, ts := newTestServer(t, &stubGateway{}, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/sessions", CreateSessionRequest{Fields: map[string]string{"age": "36"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeUnknownField, decode[ErrorResponse](t, resp).Code)
	assert.Equal(t, 0, s.Sessions.Len())
}

func TestUnknownSession(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/sessions/missing"},
		{http.MethodDelete, "/sessions/missing"},
		{http.MethodPost, "/sessions/missing/preview"},
		{http.MethodGet, "/sessions/missing/export"},
		{http.MethodPost, "/sessions/missing/suggest"},
	} {
		resp := doJSON(t, tc.method, ts.URL+tc.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.method+" "+tc.path)
	}
}

func TestUpdateFields(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)
	sess := createSession(t, ts, map[string]string{"name": "Ada"})
	url := ts.URL + "/sessions/" + sess.ID + "/fields"

	resp := doJSON(t, http.MethodPatch, url, UpdateFieldsRequest{Fields: map[string]string{"skills": "Go", "email": "ada@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[SessionResponse](t, resp)
	assert.Equal(t, "Ada", updated.Fields.Name)
	assert.Equal(t, "Go", updated.Fields.Skills)
	assert.Equal(t, "ada@example.com", updated.Fields.Email)

	resp = doJSON(t, http.MethodPatch, url, UpdateFieldsRequest{Fields: map[string]string{"skills": "Rust", "hobby": "chess"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeUnknownField, decode[ErrorResponse](t, resp).Code)

	resp = doJSON(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	assert.Equal(t, "Go", decode[SessionResponse](t, resp).Fields.Skills, "a rejected update must not apply any field")

	resp = doJSON(t, http.MethodPatch, url, UpdateFieldsRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewFormats(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)
	sess := createSession(t, ts, map[string]string{"name": "Ada Lovelace"})
	url := ts.URL + "/sessions/" + sess.ID + "/preview"

	resp := doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[types.PreviewSnapshot](t, resp)
	assert.Equal(t, "Ada Lovelace", snap.Fields.Name)

	resp = doJSON(t, http.MethodPost, url+"?format=markdown", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "# Ada Lovelace"))

	resp = doJSON(t, http.MethodPost, url+"?format=html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<h1>Ada Lovelace</h1>")

	resp = doJSON(t, http.MethodPost, url+"?format=yaml", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	got := decode[SessionResponse](t, resp)
	require.NotNil(t, got.Preview, "the latest preview is kept on the session")
	assert.Equal(t, "Ada Lovelace", got.Preview.Fields.Name)
}

func TestExportAndImport(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)
	source := createSession(t, ts, map[string]string{"name": "Ada Lovelace", "skills": "Mathematics"})

	resp := doJSON(t, http.MethodGet, ts.URL+"/sessions/"+source.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume.pdf"`, resp.Header.Get("Content-Disposition"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	target := createSession(t, ts, nil)
	importResp, err := http.Post(ts.URL+"/sessions/"+target.ID+"/import", "application/pdf", bytes.NewReader(pdf))
	require.NoError(t, err)
	defer importResp.Body.Close()
	require.Equal(t, http.StatusOK, importResp.StatusCode)
	imported := decode[SessionResponse](t, importResp)
	assert.Equal(t, "Ada Lovelace", imported.Fields.Name)
	assert.Equal(t, "Mathematics", imported.Fields.Skills)

	bad, err := http.Post(ts.URL+"/sessions/"+target.ID+"/import", "application/pdf", strings.NewReader("plain text"))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Equal(t, errors.ErrCodeImportFailed, decode[ErrorResponse](t, bad).Code)
}

func TestAITriggers(t *testing.T) {
	g := &stubGateway{
		suggestion: "Quantify your results.",
		score:      `Here you go: {"score": 74, "explanation": "Solid"}`,
		models:     []ai.ModelInfo{{Name: "models/gemini-2.0-flash"}},
	}
	_, ts := newTestServer(t, g, nil)
	sess := createSession(t, ts, map[string]string{"name": "Ada"})
	base := ts.URL + "/sessions/" + sess.ID

	resp := doJSON(t, http.MethodPost, base+"/suggest", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suggestion := decode[types.SuggestionResult](t, resp)
	assert.Equal(t, "Gemini", suggestion.Provider)
	assert.Equal(t, "Quantify your results.", suggestion.Text)

	resp = doJSON(t, http.MethodPost, base+"/score", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score := decode[types.ScoreResult](t, resp)
	assert.Equal(t, "74", score.Score.String())
	assert.Equal(t, "Solid", score.Explanation)

	resp = doJSON(t, http.MethodPost, base+"/score?format=text", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ATS Score: 74\nSolid", string(body))

	resp = doJSON(t, http.MethodPost, base+"/models", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"models/gemini-2.0-flash"}, decode[types.ModelListResult](t, resp).Models)

	resp = doJSON(t, http.MethodGet, base, nil)
	got := decode[SessionResponse](t, resp)
	require.NotNil(t, got.Score)
	assert.Equal(t, "74", got.Score.Score.String())
}

func TestAIFailureIsReportedInBody(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{err: stderrors.New("deadline exceeded")}, nil)
	sess := createSession(t, ts, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/sessions/"+sess.ID+"/score", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score := decode[types.ScoreResult](t, resp)
	assert.Equal(t, "N/A", score.Score.String())
	assert.Equal(t, "Error: deadline exceeded", score.Explanation)
}

func TestBusySessionReturnsConflict(t *testing.T) {
	g := &stubGateway{suggestion: "ok", started: make(chan struct{}), release: make(chan struct{})}
	_, ts := newTestServer(t, g, nil)
	sess := createSession(t, ts, nil)
	base := ts.URL + "/sessions/" + sess.ID

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(base+"/suggest", "application/json", nil)
		if err != nil {
			done <- 0
			return
		}
		_ = resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-g.started

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/preview"},
		{http.MethodGet, "/export"},
		{http.MethodPost, "/suggest"},
		{http.MethodPost, "/score"},
		{http.MethodPost, "/models"},
	} {
		resp := doJSON(t, tc.method, base+tc.path, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, tc.path)
		assert.Equal(t, errors.ErrCodeSessionBusy, decode[ErrorResponse](t, resp).Code)
	}

	resp := doJSON(t, http.MethodGet, base, nil)
	assert.True(t, decode[SessionResponse](t, resp).Busy)

	resp = doJSON(t, http.MethodPatch, base+"/fields", UpdateFieldsRequest{Fields: map[string]string{"name": "Ada"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "edits stay possible while a request is in flight")

	close(g.release)
	select {
	case status := <-done:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(5 * time.Second):
		t.Fatal("suggest request did not finish")
	}

	resp = doJSON(t, http.MethodGet, base, nil)
	assert.False(t, decode[SessionResponse](t, resp).Busy)
}

func TestDeleteSession(t *testing.T) {
	s, ts := newTestServer(t, &stubGateway{}, nil)
	sess := createSession(t, ts, nil)

	resp := doJSON(t, http.MethodDelete, ts.URL+"/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, s.Sessions.Len())

	resp = doJSON(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthentication(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, func(cfg *ServerConfig) {
		cfg.APIKeys = []string{"secret-key-123", ""}
	})

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"invalid key", "X-API-Key", "wrong", http.StatusUnauthorized},
		{"api key header", "X-API-Key", "secret-key-123", http.StatusCreated},
		{"bearer token", "Authorization", "Bearer secret-key-123", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/sessions", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")
}

func TestRequestSizeLimit(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, func(cfg *ServerConfig) {
		cfg.MaxRequestSize = 64
	})
	sess := createSession(t, ts, nil)

	resp := doJSON(t, http.MethodPatch, ts.URL+"/sessions/"+sess.ID+"/fields",
		UpdateFieldsRequest{Fields: map[string]string{"summary": strings.Repeat("x", 200)}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Message, "too large")
}

func TestRateLimit(t *testing.T) {
	s, ts := newTestServer(t, &stubGateway{}, func(cfg *ServerConfig) {
		cfg.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/sessions", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, ts.URL+"/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	stats := s.RateLimiter.GetStats()
	assert.Equal(t, 1, stats["active_limiters"])
}

func TestStats(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)
	createSession(t, ts, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]any](t, resp)
	sessions, ok := stats["sessions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), sessions["active_sessions"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t, &stubGateway{}, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]any](t, resp)["status"])

	s.AI = stubAIHealth{unavailable: map[string]error{
		config.OperationScore: errors.NewConfigError(errors.ErrCodeMissingAPIKey, "No API key configured for Gemini", nil),
	}}
	resp = doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "degraded", body["status"])
	models := body["ai_models"].(map[string]any)
	assert.Equal(t, "No API key configured for Gemini", models[config.OperationScore].(map[string]any)["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, &stubGateway{}, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
