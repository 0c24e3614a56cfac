package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/vrp/internal/config"
	"github.com/copyleftdev/vrp/internal/models"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ShutdownTimeout = 5 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stdout"

	cfg.Refinement = config.Refinement{
		PopulationSize:     4,
		MaxGenerations:     30,
		MaxTime:            10 * time.Second,
		Workers:            2,
		Seed:               3,
		InitialTemperature: 0.05,
		Cooling:            0.999,
		Selection:          "uniform",
	}

	cfg.Checker.Enabled = true
	cfg.Checker.Tolerance = 1

	cfg.RateLimit.RPS = 100
	cfg.RateLimit.Burst = 100

	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, chi.Router) {
	srv := NewServer(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = srv.Close() })
	r := chi.NewRouter()
	r.Use(Instrument)
	srv.RegisterRoutes(r)
	return srv, r
}

func modelsCosts() models.Costs {
	return models.Costs{Fixed: 100, PerDistance: 1, PerDrivingTime: 1}
}

// lineProblem places locations 0..size-1 on a line.
func lineProblem(size int) ProblemRequest {
	values := make([]float64, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			d := i - j
			if d < 0 {
				d = -d
			}
			values[i*size+j] = float64(d)
		}
	}
	end := 0
	return ProblemRequest{
		Matrices: []MatrixDTO{{Durations: values, Distances: values}},
		Vehicles: []VehicleDTO{
			{ID: "v1", Capacity: 3, End: &end, Costs: modelsCosts()},
			{ID: "v2", Capacity: 3, End: &end, Costs: modelsCosts()},
		},
		Jobs: []JobDTO{
			{ID: "j1", Places: []PlaceDTO{{Location: 1, Duration: 1}}, Demand: 1},
			{ID: "j2", Places: []PlaceDTO{{Location: 2, Duration: 1, Times: [][2]float64{{0, 100}}}}, Demand: 1},
			{ID: "j3", Places: []PlaceDTO{{Location: 4}}, Demand: -1},
			{ID: "j4", Places: []PlaceDTO{{Location: 5}}, Demand: 1},
			{ID: "huge", Places: []PlaceDTO{{Location: 3}}, Demand: 10},
		},
		Shipments: []ShipmentDTO{
			{ID: "s1", Pickup: PlaceDTO{Location: 2}, Delivery: PlaceDTO{Location: 5}, Size: 1},
		},
	}
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, &payload))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	return response
}

func waitForStatus(t *testing.T, r http.Handler, id string, want string) map[string]interface{} {
	var status map[string]interface{}
	require.Eventually(t, func() bool {
		status = decode(t, do(t, r, http.MethodGet, "/api/v1/status/"+id, nil))
		return status["status"] == want
	}, 20*time.Second, 5*time.Millisecond, "solve %s never reached %s", id, want)
	return status
}

func TestRegisterRoutes(t *testing.T) {
	_, r := newTestServer(t, testConfig(t))

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/solve", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/solve/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			routed := rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") == "application/json"
			assert.Equal(t, tt.shouldExist, routed)
		})
	}
}

func TestSolveLifecycle(t *testing.T) {
	_, r := newTestServer(t, testConfig(t))

	rr := do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	started := decode(t, rr)
	id, ok := started["solve_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	status := waitForStatus(t, r, id, StatusCompleted)
	assert.Equal(t, 30.0, status["generation"])
	assert.Nil(t, status["check_errors"])
	assert.Nil(t, status["error"])

	solution, ok := status["best_solution"].(map[string]interface{})
	require.True(t, ok)
	unassigned := solution["unassigned"].([]interface{})
	require.Len(t, unassigned, 1)
	assert.Equal(t, map[string]interface{}{"job_id": "huge", "reason": "capacity"}, unassigned[0])

	served := map[string]bool{}
	for _, tour := range solution["tours"].([]interface{}) {
		for _, stop := range tour.(map[string]interface{})["stops"].([]interface{}) {
			if jobID, ok := stop.(map[string]interface{})["job_id"].(string); ok {
				served[jobID] = true
			}
		}
	}
	assert.Equal(t, map[string]bool{"j1": true, "j2": true, "j3": true, "j4": true, "s1_pickup": true, "s1_delivery": true}, served)

	rr = do(t, r, http.MethodDelete, "/api/v1/solve/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "finished solves cannot be cancelled")
}

func TestSolveCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Refinement.MaxGenerations = 1 << 30
	cfg.Refinement.MaxTime = time.Minute
	_, r := newTestServer(t, cfg)

	id := decode(t, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)))["solve_id"].(string)

	rr := do(t, r, http.MethodDelete, "/api/v1/solve/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	status := waitForStatus(t, r, id, StatusCancelled)
	assert.NotNil(t, status["best_solution"])
	assert.NotEmpty(t, status["end_time"])
}

func TestSolveRejectsInvalidProblems(t *testing.T) {
	_, r := newTestServer(t, testConfig(t))

	tests := []struct {
		name   string
		modify func(p *ProblemRequest)
	}{
		{"no matrix", func(p *ProblemRequest) { p.Matrices = nil }},
		{"no vehicles", func(p *ProblemRequest) { p.Vehicles = nil }},
		{"no jobs", func(p *ProblemRequest) { p.Jobs, p.Shipments = nil, nil }},
		{"non square matrix", func(p *ProblemRequest) { p.Matrices[0].Durations = p.Matrices[0].Durations[1:] }},
		{"location outside matrix", func(p *ProblemRequest) { p.Jobs[0].Places[0].Location = 6 }},
		{"unknown profile", func(p *ProblemRequest) { p.Vehicles[0].Profile = 1 }},
		{"duplicate job", func(p *ProblemRequest) { p.Jobs[1].ID = "j1" }},
		{"job without place", func(p *ProblemRequest) { p.Jobs[0].Places = nil }},
		{"inverted time window", func(p *ProblemRequest) { p.Jobs[1].Places[0].Times = [][2]float64{{10, 1}} }},
		{"bad max time", func(p *ProblemRequest) {
			bad := "soon"
			p.Refinement = &RefinementOverrides{MaxTime: &bad}
		}},
		{"bad selection", func(p *ProblemRequest) {
			bad := "tournament"
			p.Refinement = &RefinementOverrides{Selection: &bad}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := lineProblem(6)
			tt.modify(&problem)
			rr := do(t, r, http.MethodPost, "/api/v1/solve", problem)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NotEmpty(t, decode(t, rr)["error"])
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/solve", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSolveRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	_, r := newTestServer(t, cfg)

	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)).Code)
}

func TestSolveRateLimitCountsValidRequestsOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	_, r := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/solve", map[string]interface{}{}).Code)
	}
	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)).Code)
}

func TestFinishedRunsArePruned(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runs.Retention = time.Millisecond
	srv, r := newTestServer(t, cfg)

	first := decode(t, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)))["solve_id"].(string)
	waitForStatus(t, r, first, StatusCompleted)
	time.Sleep(20 * time.Millisecond)

	rr := do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6))
	require.Equal(t, http.StatusAccepted, rr.Code)
	second := decode(t, rr)["solve_id"].(string)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/v1/status/"+first, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/status/"+second, nil).Code)

	srv.runsMu.RLock()
	defer srv.runsMu.RUnlock()
	assert.Len(t, srv.runs, 1)
}

func TestStatusNotFound(t *testing.T) {
	_, r := newTestServer(t, testConfig(t))
	rr := do(t, r, http.MethodGet, "/api/v1/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func rpc(t *testing.T, r http.Handler, method string, params ...interface{}) map[string]interface{} {
	rr := do(t, r, http.MethodPost, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	return decode(t, rr)
}

func TestJSONRPC(t *testing.T) {
	cfg := testConfig(t)
	cfg.Refinement.MaxGenerations = 1 << 30
	cfg.Refinement.MaxTime = time.Minute
	_, r := newTestServer(t, cfg)

	started := rpc(t, r, "solve.start", lineProblem(6))
	require.Nil(t, started["error"])
	id := started["result"].(map[string]interface{})["solve_id"].(string)

	status := rpc(t, r, "solve.status", map[string]string{"solve_id": id})
	require.Nil(t, status["error"])
	assert.Equal(t, id, status["result"].(map[string]interface{})["solve_id"])

	cancelled := rpc(t, r, "solve.cancel", map[string]string{"solve_id": id})
	assert.Nil(t, cancelled["error"])
	waitForStatus(t, r, id, StatusCancelled)

	t.Run("errors", func(t *testing.T) {
		missing := rpc(t, r, "solve.status", map[string]string{"solve_id": "nope"})
		assert.Equal(t, "solve not found", missing["error"].(map[string]interface{})["message"])

		noParams := rpc(t, r, "solve.cancel")
		assert.Equal(t, float64(-32000), noParams["error"].(map[string]interface{})["code"])

		unknown := rpc(t, r, "solve.pause")
		assert.Equal(t, float64(-32601), unknown["error"].(map[string]interface{})["code"])

		rr := do(t, r, http.MethodPost, "/rpc", map[string]interface{}{"jsonrpc": "1.0", "method": "solve.status"})
		assert.Equal(t, float64(-32600), decode(t, rr)["error"].(map[string]interface{})["code"])

		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString("not json")))
		assert.Equal(t, float64(-32700), decode(t, rr)["error"].(map[string]interface{})["code"])
	})
}

func TestRespondWithError(t *testing.T) {
	srv := NewServer(testConfig(t), zaptest.NewLogger(t))

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
	}{
		{
			name:       "valid error response",
			code:       -32000,
			message:    "invalid input",
			id:         "123",
			expectedID: "123",
		},
		{
			name:       "nil id",
			code:       -32603,
			message:    "server error",
			id:         nil,
			expectedID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			assert.Equal(t, http.StatusOK, rr.Code, "JSON-RPC errors are sent with status 200")

			response := decode(t, rr)
			errObj, ok := response["error"].(map[string]interface{})
			require.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"])
			assert.Equal(t, tt.message, errObj["message"])
			assert.Equal(t, tt.expectedID, response["id"])
		})
	}
}

func TestClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.Refinement.MaxGenerations = 1 << 30
	cfg.Refinement.MaxTime = time.Minute
	srv := NewServer(cfg, zaptest.NewLogger(t))
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	id := decode(t, do(t, r, http.MethodPost, "/api/v1/solve", lineProblem(6)))["solve_id"].(string)
	require.NoError(t, srv.Close())

	status, err := srv.solveStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, status["status"])
}
