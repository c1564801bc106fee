package api_test

import (
	"bytes"
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

	"github.com/gyaneshwarpardhi/netsir/internal/api"
	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/engine"
	"github.com/gyaneshwarpardhi/netsir/internal/job"
	"github.com/gyaneshwarpardhi/netsir/internal/network"
	"github.com/gyaneshwarpardhi/netsir/internal/store"
)

type stubReloader struct {
	n   int
	err error
}

func (s stubReloader) Reload() (int, error) { return s.n, s.err }

func newServer(t *testing.T, rl api.Reloader) *httptest.Server {
	t.Helper()
	return newServerWith(t, rl, config.EngineConf{TrialWorkers: 2, QueueDepth: 8, TrialTimeoutMs: 5000, MaxBatches: 2})
}

func newServerWith(t *testing.T, rl api.Reloader, conf config.EngineConf) *httptest.Server {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.SimConfig{
		Version: "v1",
		Engine:  conf,
		Experiments: []config.Experiment{
			{ID: "star", Enabled: true, Beta: 2, Gamma: 1, MaxTime: 20, Seeds: []string{"hub"}, Trials: 5, RNGSeed: 1},
		},
	}
	g, _, err := network.ReadEdgeList(strings.NewReader("hub a\nhub b\nhub c\n"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := engine.Build(cfg, g, quiet)
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	eng := engine.New(ctx, m, st, cfg.Engine, quiet)
	srv := httptest.NewServer(api.New(eng, rl))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		eng.Shutdown()
		st.Close()
	})
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRunSimulation(t *testing.T) {
	srv := newServer(t, stubReloader{})

	resp := post(t, srv.URL+"/v1/simulations", `{"experiment_id":"star","trial":2}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Result struct {
			Outcome  string `json:"outcome"`
			Timeline []struct {
				T float64 `json:"t"`
				S int     `json:"s"`
				I int     `json:"i"`
				R int     `json:"r"`
			} `json:"timeline"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Result.Timeline) < 2 || body.Result.Timeline[0].I != 1 {
		t.Errorf("unexpected timeline %+v", body.Result.Timeline)
	}
	if body.Result.Outcome == "" {
		t.Error("missing outcome")
	}
}

func TestRunSimulation_BadRequests(t *testing.T) {
	srv := newServer(t, stubReloader{})
	cases := []struct {
		body string
		want int
	}{
		{`not json`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
		{`{"experiment_id":"star","trial":-1}`, http.StatusBadRequest},
		{`{"experiment_id":"missing"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := post(t, srv.URL+"/v1/simulations", tc.body)
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("body %q: status = %d, want %d", tc.body, resp.StatusCode, tc.want)
		}
	}
}

func TestBatchLifecycle(t *testing.T) {
	srv := newServer(t, stubReloader{})

	resp := post(t, srv.URL+"/v1/experiments/star/batches", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var j job.Job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/v1/jobs/" + j.ID)
		if err != nil {
			t.Fatal(err)
		}
		var got job.Job
		err = json.NewDecoder(resp.Body).Decode(&got)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == job.StatusDone {
			if len(got.Results) != 5 {
				t.Errorf("results = %d, want 5", len(got.Results))
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get(srv.URL + "/v1/jobs/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/v1/experiments/nope/batches", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown experiment status = %d", resp.StatusCode)
	}
}

func TestSubmitBatch_TooManyBatches(t *testing.T) {
	// Without workers the first batch never finishes and keeps the only slot.
	srv := newServerWith(t, stubReloader{}, config.EngineConf{TrialWorkers: 0, QueueDepth: 1, TrialTimeoutMs: 5000, MaxBatches: 1})

	resp := post(t, srv.URL+"/v1/experiments/star/batches", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first batch status = %d", resp.StatusCode)
	}
	resp = post(t, srv.URL+"/v1/experiments/star/batches", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second batch status = %d, want 429", resp.StatusCode)
	}
}

func TestListAndHealth(t *testing.T) {
	srv := newServer(t, stubReloader{})

	resp, err := http.Get(srv.URL + "/v1/experiments")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Nodes       int                 `json:"nodes"`
		Experiments []config.Experiment `json:"experiments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if body.Nodes != 4 || len(body.Experiments) != 1 || body.Experiments[0].ID != "star" {
		t.Errorf("experiments = %+v", body)
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestReload(t *testing.T) {
	srv := newServer(t, stubReloader{n: 3})
	resp := post(t, srv.URL+"/v1/experiments/reload", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	bad := newServer(t, stubReloader{err: errors.New("bad yaml")})
	resp = post(t, bad.URL+"/v1/experiments/reload", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("failed reload status = %d", resp.StatusCode)
	}
}
