package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/aretw0/cadence/internal/adapters/http"
	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/internal/scheduler"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type okRunner struct{}

func (okRunner) Run(context.Context) (fsm.Result, error) {
	return fsm.Result{Scope: "3", Status: fsm.StatusEnded, Steps: 4}, nil
}

func newServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	sched := scheduler.New(scheduler.WithClock(fsm.ClockFunc(func() time.Time { return t0 })))
	require.NoError(t, sched.Add(scheduler.MachineKey(3), okRunner{}))
	_, err := sched.RunOnce(context.Background(), scheduler.MachineKey(3))
	require.NoError(t, err)

	store := memory.NewStore()
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "cadence_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	return httpAdapter.NewHandler(&httpAdapter.Server{
		Runs:     sched,
		Flags:    store,
		Gatherer: reg,
		Version:  "1.2.3",
		Clock:    func() time.Time { return t0 },
	}), store
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newServer(t)

	rr := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])

	rr = do(h, http.MethodGet, "/info", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cadence", resp["app"])
	assert.Equal(t, "1.2.3", resp["version"])
}

func TestMetrics(t *testing.T) {
	h, _ := newServer(t)
	rr := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "cadence_test_total 1")
}

func TestMachines(t *testing.T) {
	h, _ := newServer(t)

	rr := do(h, http.MethodGet, "/machines", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []scheduler.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, scheduler.MachineKey(3), list[0].Key)
	assert.Equal(t, fsm.StatusEnded, list[0].Last.Status)
	assert.True(t, t0.Equal(list[0].UpdatedAt))

	rr = do(h, http.MethodGet, "/machines/3", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/machines/global", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/machines/abc", "").Code)
}

func TestFlags(t *testing.T) {
	h, store := newServer(t)
	key := domain.CatchUpKey(&domain.Machine{ID: 3})

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/flags/"+key, "").Code)

	rr := do(h, http.MethodPut, "/flags/"+key, "requested by operator\n")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/flags/"+key, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var flag domain.Flag
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &flag))
	assert.Equal(t, key, flag.Key)
	assert.Equal(t, "requested by operator", flag.Value)
	assert.True(t, t0.Equal(flag.UpdatedAt))

	rr = do(h, http.MethodGet, "/flags?prefix="+domain.CatchUpKeyPrefix, "")
	var flags []domain.Flag
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &flags))
	assert.Len(t, flags, 1)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/flags/"+key, "").Code)
	err := store.View(context.Background(), func(r ports.FlagReader) error {
		_, err := r.Lookup(context.Background(), key)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrFlagNotFound)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newServer(t)
	rr := do(h, http.MethodOptions, "/flags/x", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- httpAdapter.ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), logging.NewNop())
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * httpAdapter.ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}
