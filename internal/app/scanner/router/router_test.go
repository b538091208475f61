package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/config"
	"neoscanner/internal/core/model"
	"neoscanner/internal/core/runner"
	scanService "neoscanner/internal/service/scan"
)

type okRunner struct{ kind model.TaskType }

func (r okRunner) Name() model.TaskType { return r.kind }

func (r okRunner) Run(_ context.Context, task *model.Task) (*model.ScanReport, error) {
	return &model.ScanReport{
		ID:              task.ID,
		Kind:            task.Type,
		Target:          task.Target,
		Ports:           task.PortRange,
		Status:          model.ReportCompleted,
		Probes:          []model.ProbeResult{},
		Services:        []model.ServiceFingerprint{},
		Vulnerabilities: []model.VulnerabilityFinding{},
		RiskLevel:       model.SeverityLow,
	}, nil
}

func newTestRouter(t *testing.T, authEnabled bool) *Router {
	t.Helper()
	cfg, err := config.NewConfigLoader("", "NEOSCAN_ROUTER_TEST").LoadDefaults()
	require.NoError(t, err)
	cfg.Server.Mode = gin.TestMode
	cfg.Middleware.RateLimit.Enabled = false
	cfg.Middleware.Logging.EnableRequestLog = false
	cfg.Middleware.Auth.Enabled = authEnabled
	cfg.Middleware.Auth.APIKeys = []string{"test-key"}

	manager := runner.NewEmptyManager(time.Second)
	manager.Register(okRunner{kind: model.TaskTypePortScan})
	manager.Register(okRunner{kind: model.TaskTypeVulnScan})
	manager.Register(okRunner{kind: model.TaskTypeSSLScan})

	r := NewRouter(cfg, scanService.NewScanService(manager, nil))
	t.Cleanup(r.Close)
	return r
}

func do(r *Router, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, req)
	return w
}

func TestHealth_StaticBody(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"status":  "healthy",
		"service": "scanner",
		"active":  "Actively reloading",
	}, body)
}

func TestRouteTable_Registered(t *testing.T) {
	r := newTestRouter(t, false)

	registered := make(map[string]bool)
	for _, info := range r.GetEngine().Routes() {
		registered[info.Method+" "+info.Path] = true
	}
	for _, rt := range r.routes {
		assert.True(t, registered[rt.method+" "+rt.path], "%s %s not registered", rt.method, rt.path)
	}
	assert.Len(t, r.routes, 9)
}

func TestAuthApplied(t *testing.T) {
	r := newTestRouter(t, true)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/scan/ports?target=127.0.0.1", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/scan/ports?target=127.0.0.1", map[string]string{"X-API-Key": "test-key"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/health/detail", nil).Code)

	// 公开路由
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/version", nil).Code)
}

func TestScanRoutes(t *testing.T) {
	r := newTestRouter(t, false)

	w := do(r, http.MethodPost, "/scan/vulnerabilities?target=127.0.0.1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var vuln map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vuln))
	assert.Equal(t, "low", vuln["risk_level"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/scan/ssl", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/scans/unknown", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/nope", nil).Code)
}

func TestSecurityAndRequestIDHeaders(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/ping", map[string]string{"Origin": "http://localhost:3000"})
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "NeoScan-Scanner", w.Header().Get("Server"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
