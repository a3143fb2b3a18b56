package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/buildcode"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/config"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/gate"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/httpapi"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/session"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func testGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.Load([]byte(`{
		"nodes": [
			{"id":1,"stat":"start","type":"small","adjacent":[2]},
			{"id":2,"stat":"+12 to maximum Life","type":"small","adjacent":[1,3]},
			{"id":3,"stat":"10% increased Damage","type":"notable","adjacent":[2,4]},
			{"id":4,"stat":"+5% to Fire Resistance","type":"small","adjacent":[3]}
		],
		"class_starts": {"Witch": 1}
	}`))
	require.NoError(t, err)
	return g
}

func testRouter(t *testing.T) (http.Handler, *treegraph.Graph) {
	t.Helper()
	g := testGraph(t)
	o := oracle.New(g)
	require.NoError(t, o.Initialize())
	gt := gate.New(time.Second)
	logger := logging.New("test", "error", "json")
	coordinator := session.New(g, o, gt, logger, time.Hour)

	cfg := config.Default()
	cfg.MaxIterations = 5
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000

	srv := httpapi.NewServer(g, o, coordinator, cfg, logger)
	return httpapi.NewRouter(srv, nil), g
}

func sampleBuildCode(t *testing.T) string {
	t.Helper()
	b := build.Build{
		Class:     build.ClassWitch,
		Level:     1,
		Allocated: map[int]bool{1: true},
	}
	code, err := buildcode.Encode(b, &buildcode.Envelope{})
	require.NoError(t, err)
	return code
}

func TestIndexReportsNodeCount(t *testing.T) {
	router, g := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(g.NodeCount()), body["tree_nodes"])
}

func TestOptimizeRejectsInvalidMetric(t *testing.T) {
	router, _ := testRouter(t)
	body := `{"build_code":"x","metric":"not-a-metric","free_budget":1,"respec_budget":1}`
	req := httptest.NewRequest(http.MethodPost, "/optimize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeAcceptsValidRequestAndResultBecomesAvailable(t *testing.T) {
	router, _ := testRouter(t)
	code := sampleBuildCode(t)
	payload := map[string]interface{}{
		"build_code":     code,
		"metric":         "dps",
		"free_budget":    5,
		"respec_budget":  5,
		"max_iterations": 5,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/optimize", strings.NewReader(string(raw)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	id, _ := accepted["session_id"].(string)
	require.NotEmpty(t, id)

	deadline := time.Now().Add(5 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		resReq := httptest.NewRequest(http.MethodGet, "/result/"+id, nil)
		resRec := httptest.NewRecorder()
		router.ServeHTTP(resRec, resReq)
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(resRec.Body.Bytes(), &result))
		status, _ = result["status"].(string)
		if status == "completed" || status == "failed" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, "completed", status)
}

func TestResultUnknownSessionReturns404(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/result/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelUnknownSessionReturns404(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/cancel/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
