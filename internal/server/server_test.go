package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notchbar/sysmonitor/internal/models"
	"notchbar/sysmonitor/internal/platform"
	"notchbar/sysmonitor/internal/sampler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type fakeStats struct {
	diskPaths []string
}

func (f *fakeStats) CPULoad() (*platform.CPULoad, error) {
	return &platform.CPULoad{User: 20, System: 5, Idle: 75}, nil
}

func (f *fakeStats) VMStats() (*platform.VMStats, error) {
	return &platform.VMStats{Active: 1, Wired: 1, PageSize: 1 << 30}, nil
}

func (f *fakeStats) PhysicalMemory() (uint64, error) {
	return 8 << 30, nil
}

func (f *fakeStats) DiskUsage(path string) (*platform.DiskUsage, error) {
	f.diskPaths = append(f.diskPaths, path)
	return &platform.DiskUsage{Path: path, Total: 100 << 30, Used: 40 << 30, Free: 60 << 30}, nil
}

func (f *fakeStats) HostInfo() (*platform.HostInfo, error) {
	return &platform.HostInfo{OSVersion: "15.1", ProcessorCount: 8, ActiveProcessorCount: 8, Uptime: time.Hour}, nil
}

type fakeHistory struct {
	snapshots []models.Snapshot
	err       error
	limit     int
}

func (f *fakeHistory) Recent(limit int) ([]models.Snapshot, error) {
	f.limit = limit
	return f.snapshots, f.err
}

func (f *fakeHistory) Count() (int, error) {
	return len(f.snapshots), f.err
}

type fakeLatest struct {
	snapshot *models.Snapshot
}

func (f *fakeLatest) Latest() *models.Snapshot { return f.snapshot }

func (f *fakeLatest) SessionID() string { return "session-1" }

func newTestDispatcher(stats *fakeStats, history HistoryReader) *Dispatcher {
	opts := Options{RetryAttempts: 3, DiskPath: "/", HomeDir: "/Users/widget"}
	if history != nil {
		opts.History = history
	}
	return newDispatcherWithOptions(stats, opts)
}

func newDispatcherWithOptions(stats *fakeStats, opts Options) *Dispatcher {
	s := sampler.NewSampler(stats, 0, zap.NewNop())
	return NewDispatcher(s, opts, zap.NewNop())
}

func TestDispatcherSystemInfo(t *testing.T) {
	d := newTestDispatcher(&fakeStats{}, nil)

	result, err := d.Call("getSystemInfo", Params{})
	require.NoError(t, err)

	info := result.(map[string]float64)
	assert.Equal(t, 25.0, info["cpu"])
	assert.Equal(t, 25.0, info["memoryUsage"])
	assert.Equal(t, 8.0, info["totalMemory"])
	assert.Equal(t, 2.0, info["usedMemory"])
}

func TestDispatcherCPUAndMemory(t *testing.T) {
	d := newTestDispatcher(&fakeStats{}, nil)

	cpu, err := d.Call("getCpuUsage", Params{})
	require.NoError(t, err)
	assert.Equal(t, 25.0, cpu)

	mem, err := d.Call("getMemoryInfo", Params{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"usage": 25, "totalGB": 8, "usedGB": 2, "freeGB": 6}, mem)
}

func TestDispatcherDiskInfoPath(t *testing.T) {
	stats := &fakeStats{}
	d := newTestDispatcher(stats, nil)

	_, err := d.Call("getDiskInfo", Params{})
	require.NoError(t, err)
	result, err := d.Call("getDiskInfo", Params{Path: "/Volumes/Data"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/Volumes/Data"}, stats.diskPaths)
	disk := result.(map[string]any)
	assert.Equal(t, 40.0, disk["usage"])
	assert.Equal(t, "/Volumes/Data", disk["path"])
}

func TestDispatcherUnknownMethod(t *testing.T) {
	d := newTestDispatcher(&fakeStats{}, nil)

	_, err := d.Call("getBatteryLevel", Params{})

	assert.ErrorIs(t, err, ErrMethodNotImplemented)
}

func TestDispatcherHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d := newTestDispatcher(&fakeStats{}, nil)
		_, err := d.Call("getHistory", Params{})
		assert.ErrorIs(t, err, ErrMethodNotImplemented)
		assert.NotContains(t, d.Methods(), "getHistory")
	})

	t.Run("limits", func(t *testing.T) {
		history := &fakeHistory{snapshots: []models.Snapshot{{ID: 1}, {ID: 2}}}
		d := newTestDispatcher(&fakeStats{}, history)

		result, err := d.Call("getHistory", Params{})
		require.NoError(t, err)
		assert.Equal(t, defaultHistoryLimit, history.limit)
		assert.Equal(t, models.HistoryResponse{Snapshots: history.snapshots, Total: 2}, result)

		_, err = d.Call("getHistory", Params{Limit: 5000})
		require.NoError(t, err)
		assert.Equal(t, maxHistoryLimit, history.limit)
	})

	t.Run("store failure", func(t *testing.T) {
		d := newTestDispatcher(&fakeStats{}, &fakeHistory{err: errors.New("disk I/O error")})
		_, err := d.Call("getHistory", Params{})
		assert.ErrorContains(t, err, "failed to read history")
	})
}

func TestDispatcherMethodsSorted(t *testing.T) {
	d := newTestDispatcher(&fakeStats{}, &fakeHistory{})

	assert.Equal(t, []string{
		"getCpuUsage", "getDiskInfo", "getDiskUsagePercentage", "getHistory",
		"getHostInfo", "getMemoryInfo", "getSystemInfo",
	}, d.Methods())
}

func TestDispatcherDiskUsagePercentage(t *testing.T) {
	stats := &fakeStats{}
	d := newTestDispatcher(stats, nil)

	result, err := d.Call("getDiskUsagePercentage", Params{Path: "/ignored"})
	require.NoError(t, err)

	assert.Equal(t, 40.0, result)
	assert.Equal(t, []string{"/Users/widget"}, stats.diskPaths)
}

func TestDispatcherDiskUsagePercentageHomeFallback(t *testing.T) {
	original := userHomeDir
	defer func() { userHomeDir = original }()

	t.Run("resolves home", func(t *testing.T) {
		userHomeDir = func() (string, error) { return "/Users/someone", nil }
		stats := &fakeStats{}
		d := newDispatcherWithOptions(stats, Options{RetryAttempts: 1, DiskPath: "/"})

		_, err := d.Call("getDiskUsagePercentage", Params{})
		require.NoError(t, err)
		assert.Equal(t, []string{"/Users/someone"}, stats.diskPaths)
	})

	t.Run("falls back to disk path", func(t *testing.T) {
		userHomeDir = func() (string, error) { return "", errors.New("$HOME is not defined") }
		stats := &fakeStats{}
		d := newDispatcherWithOptions(stats, Options{RetryAttempts: 1, DiskPath: "/System/Volumes/Data"})

		_, err := d.Call("getDiskUsagePercentage", Params{})
		require.NoError(t, err)
		assert.Equal(t, []string{"/System/Volumes/Data"}, stats.diskPaths)
	})
}

func TestDispatcherLatestSnapshot(t *testing.T) {
	t.Run("without recorder", func(t *testing.T) {
		d := newTestDispatcher(&fakeStats{}, nil)
		_, err := d.Call("getLatestSnapshot", Params{})
		assert.ErrorIs(t, err, ErrMethodNotImplemented)
	})

	t.Run("before first capture", func(t *testing.T) {
		d := newDispatcherWithOptions(&fakeStats{}, Options{HomeDir: "/", Latest: &fakeLatest{}})
		result, err := d.Call("getLatestSnapshot", Params{})
		require.NoError(t, err)
		assert.Equal(t, LatestSnapshot{SessionID: "session-1"}, result)
	})

	t.Run("after capture", func(t *testing.T) {
		snapshot := &models.Snapshot{CPUPercent: 12.5, SampledAt: 1700000000000}
		d := newDispatcherWithOptions(&fakeStats{}, Options{HomeDir: "/", Latest: &fakeLatest{snapshot: snapshot}})
		result, err := d.Call("getLatestSnapshot", Params{})
		require.NoError(t, err)
		assert.Equal(t, LatestSnapshot{SessionID: "session-1", Snapshot: snapshot}, result)
	})
}

func call(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, CallResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/call", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestServerCall(t *testing.T) {
	srv := NewServer(newTestDispatcher(&fakeStats{}, nil), nil, zap.NewNop())

	rec, resp := call(t, srv, `{"method":"getCpuUsage"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 25.0, resp.Result)
	assert.Empty(t, resp.Error)
}

func TestServerStatusMapping(t *testing.T) {
	srv := NewServer(
		newTestDispatcher(&fakeStats{}, &fakeHistory{err: errors.New("database is locked")}),
		nil,
		zap.NewNop(),
	)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown method", `{"method":"pasteClipboard"}`, http.StatusNotImplemented},
		{"malformed body", `{"method":`, http.StatusBadRequest},
		{"missing method", `{"params":{"limit":3}}`, http.StatusBadRequest},
		{"store failure", `{"method":"getHistory"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := call(t, srv, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestServerRejectsWrongVerb(t *testing.T) {
	srv := NewServer(newTestDispatcher(&fakeStats{}, nil), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/call", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerPreflight(t *testing.T) {
	srv := NewServer(newTestDispatcher(&fakeStats{}, nil), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/call", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServerHealth(t *testing.T) {
	srv := NewServer(newTestDispatcher(&fakeStats{}, nil), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status  string   `json:"status"`
		Methods []string `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, body.Methods, "getMemoryInfo")
}

func TestServerRateLimit(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 2)
	defer limiter.Stop()
	srv := NewServer(newTestDispatcher(&fakeStats{}, nil), limiter, zap.NewNop())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := call(t, srv, `{"method":"getCpuUsage"}`)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 1)
	defer limiter.Stop()

	first := httptest.NewRequest(http.MethodPost, "/api/v1/call", nil)
	first.RemoteAddr = "127.0.0.1:50000"
	second := httptest.NewRequest(http.MethodPost, "/api/v1/call", nil)
	second.RemoteAddr = "127.0.0.1:50001"
	other := httptest.NewRequest(http.MethodPost, "/api/v1/call", nil)
	other.RemoteAddr = "[::1]:50002"

	assert.True(t, limiter.Allow(first))
	assert.False(t, limiter.Allow(second))
	assert.True(t, limiter.Allow(other))
	limiter.Stop()
}

func TestRateLimiterEvictsOnlyIdleClients(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 1)
	defer limiter.Stop()

	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }

	busy := httptest.NewRequest(http.MethodPost, "/api/v1/call", nil)
	busy.RemoteAddr = "127.0.0.1:50000"
	idle := httptest.NewRequest(http.MethodPost, "/api/v1/call", nil)
	idle.RemoteAddr = "10.0.0.2:50000"

	assert.True(t, limiter.Allow(busy))
	assert.True(t, limiter.Allow(idle))

	now = now.Add(4 * time.Minute)
	assert.False(t, limiter.Allow(busy))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, limiter.evictIdle(5*time.Minute))

	// The active client keeps its drained bucket; the idle one starts fresh.
	assert.False(t, limiter.Allow(busy))
	assert.True(t, limiter.Allow(idle))
}
