package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BerylCAtieno/forked/internal/config"
	"github.com/BerylCAtieno/forked/internal/models"
	"github.com/BerylCAtieno/forked/internal/provider"
	"github.com/BerylCAtieno/forked/internal/scenario"
	"github.com/BerylCAtieno/forked/internal/simulator"
)

const exampleBody = `{"age":28,"profession":"Engineer","location":"Berlin","risk":"High","decision":"Quit job to found a startup"}`

const modelAnswer = `YEAR 1:
Wins:
You ship a prototype and land two pilot customers.
Struggles:
Your savings shrink every month.

YEAR 3:
Wins:
A seed round closes.
Struggles:
You manage people for the first time.

YEAR 5:
Wins:
The company is profitable.
Struggles:
A co-founder leaves.

YEAR 10:
Wins:
You own something you built.
Struggles:
You rarely write code anymore.

ENDING:
You traded certainty for authorship.

WHAT THEY WOULD HAVE LOST FROM THEIR CURRENT LIFE:
- A stable salary
- Quiet evenings

GRASS IS GREENER SCORE:
68 - Meaningful, but expensive.`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func testServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.RateLimit.RPS = 0
	return cfg
}

func newTestRouter(t *testing.T, p provider.Provider, policy simulator.Policy, attempts int) *gin.Engine {
	t.Helper()
	opts := simulator.DefaultOptions()
	opts.OnFailure = policy
	opts.MaxAttempts = attempts
	opts.RetryWait = time.Millisecond

	return mustRouter(t, NewHandler(simulator.New(p, opts, nil), nil), testServerConfig())
}

func mustRouter(t *testing.T, h *Handler, cfg config.ServerConfig) *gin.Engine {
	t.Helper()
	router, err := NewRouter(t.Context(), h, cfg, nil)
	require.NoError(t, err)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGenerate_MissingFields(t *testing.T) {
	bodies := []string{
		`{}`,
		`null`,
		`{"age": 28}`,
		`{"decision": "Move abroad"}`,
		`{"age": 0, "decision": "Move abroad"}`,
		`{"age": "", "decision": "Move abroad"}`,
		`{"age": 30, "decision": ""}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			mock := provider.NewMockProvider(modelAnswer)
			router := newTestRouter(t, mock, simulator.PolicyFallback, 2)

			w := do(router, http.MethodPost, "/generate", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Missing required fields", decode[models.ErrorResponse](t, w).Error)
			assert.Equal(t, 0, mock.Calls())
		})
	}
}

func TestGenerate_PresenceOnly(t *testing.T) {
	for _, body := range []string{
		`{"age": "0", "decision": "Move abroad"}`,
		`{"age": 30, "decision": "   "}`,
	} {
		t.Run(body, func(t *testing.T) {
			mock := provider.NewMockProvider(modelAnswer)
			router := newTestRouter(t, mock, simulator.PolicySurfaceError, 1)

			w := do(router, http.MethodPost, "/generate", body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, 1, mock.Calls())
		})
	}
}

func TestGenerate_InvalidBody(t *testing.T) {
	for _, body := range []string{"not json", `[1, 2]`, `{"age": true, "decision": "x"}`} {
		mock := provider.NewMockProvider(modelAnswer)
		router := newTestRouter(t, mock, simulator.PolicyFallback, 1)

		w := do(router, http.MethodPost, "/generate", body)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid request body", decode[models.ErrorResponse](t, w).Error)
		assert.Equal(t, 0, mock.Calls())
	}
}

func TestGenerate_Success(t *testing.T) {
	mock := provider.NewMockProvider(modelAnswer)
	router := newTestRouter(t, mock, simulator.PolicySurfaceError, 2)

	w := do(router, http.MethodPost, "/generate", exampleBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, modelAnswer, decode[models.GenerationResponse](t, w).RawOutput)
	assert.Empty(t, w.Header().Get(HeaderFallback))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	prompt := mock.LastRequest().Prompt
	for _, v := range []string{"28", "Engineer", "Berlin", "High", "Quit job to found a startup"} {
		assert.Contains(t, prompt, v)
	}
}

func TestGenerate_ExampleScenarioShape(t *testing.T) {
	for _, policy := range []simulator.Policy{simulator.PolicySurfaceError, simulator.PolicyFallback} {
		router := newTestRouter(t, provider.NewMockProvider(modelAnswer), policy, 1)

		w := do(router, http.MethodPost, "/generate", exampleBody)
		require.Equal(t, http.StatusOK, w.Code)

		raw := decode[models.GenerationResponse](t, w).RawOutput
		assert.Contains(t, raw, "YEAR 1")

		n, err := scenario.ParseNarrative(raw)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n.Score, 1)
		assert.LessOrEqual(t, n.Score, 100)
	}
}

func TestGenerate_FallbackPolicy(t *testing.T) {
	cases := map[string]*provider.MockProvider{
		"provider error": provider.NewMockProviderWithError(errors.New("quota exceeded")),
		"short output":   provider.NewMockProvider("YEAR 1: nothing"),
	}

	for name, mock := range cases {
		t.Run(name, func(t *testing.T) {
			router := newTestRouter(t, mock, simulator.PolicyFallback, 1)

			w := do(router, http.MethodPost, "/generate", exampleBody)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, scenario.FallbackNarrative(), decode[models.GenerationResponse](t, w).RawOutput)
			assert.Equal(t, "true", w.Header().Get(HeaderFallback))
		})
	}
}

func TestGenerate_SurfaceErrorPolicy(t *testing.T) {
	t.Run("provider error after retries", func(t *testing.T) {
		mock := provider.NewMockProviderWithError(errors.New("connection reset"))
		router := newTestRouter(t, mock, simulator.PolicySurfaceError, 2)

		w := do(router, http.MethodPost, "/generate", exampleBody)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to generate simulation", decode[models.ErrorResponse](t, w).Error)
		assert.Equal(t, 2, mock.Calls())
	})

	t.Run("short output", func(t *testing.T) {
		mock := provider.NewMockProvider("Too short to be a life.")
		router := newTestRouter(t, mock, simulator.PolicySurfaceError, 2)

		w := do(router, http.MethodPost, "/generate", exampleBody)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Response too short", decode[models.ErrorResponse](t, w).Error)
		assert.NotContains(t, w.Body.String(), "Too short to be a life.")
		assert.Equal(t, 1, mock.Calls())
	})
}

func TestTestEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := provider.NewMockProvider("Hello there, friend.")
		router := newTestRouter(t, mock, simulator.PolicyFallback, 2)

		w := do(router, http.MethodGet, "/test", "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[models.TestResponse](t, w)
		assert.Equal(t, models.StatusSuccess, resp.Status)
		assert.Equal(t, "Hello there, friend.", resp.Response)
		assert.Equal(t, scenario.TestPrompt, mock.LastRequest().Prompt)
	})

	t.Run("error", func(t *testing.T) {
		mock := provider.NewMockProviderWithError(errors.New("invalid api key"))
		router := newTestRouter(t, mock, simulator.PolicyFallback, 2)

		w := do(router, http.MethodGet, "/test", "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode[models.TestResponse](t, w)
		assert.Equal(t, models.StatusError, resp.Status)
		assert.Contains(t, resp.Message, "invalid api key")
		assert.Equal(t, 1, mock.Calls())
	})
}

func TestIndexAndHealth(t *testing.T) {
	router := newTestRouter(t, provider.NewMockProvider(modelAnswer), simulator.PolicyFallback, 1)

	w := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="simulatorForm"`)

	w = do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRequestID_Propagated(t *testing.T) {
	router := newTestRouter(t, provider.NewMockProvider(modelAnswer), simulator.PolicyFallback, 1)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}
