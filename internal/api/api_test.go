package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
	"github.com/RoySalisbury/HVOv9-sub007/internal/roof"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *board.SimBus) {
	t.Helper()
	sim := board.NewSimBus()
	bd := board.New(sim)
	cfg := roof.Configuration{
		SafetyWatchdogTimeout:        500 * time.Millisecond,
		OpenRelayID:                  1,
		CloseRelayID:                 2,
		StopRelayID:                  3,
		ClearFaultRelayID:            4,
		EnableDigitalInputPolling:    true,
		DigitalInputPollInterval:     5 * time.Millisecond,
		PeriodicVerificationInterval: 20 * time.Millisecond,
		LimitSwitchDebounce:          10 * time.Millisecond,
	}
	ctrl, err := roof.NewController(bd, cfg, false, testLogger())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if _, err := ctrl.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	svc := NewService(ctrl)
	return httptest.NewServer(NewRouter(svc, testLogger())), sim
}

func TestGetStatusReturnsCurrentSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var snap roof.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != roof.StatusStopped {
		t.Fatalf("status = %v, want Stopped", snap.Status)
	}
}

func TestPostOpenStartsMotion(t *testing.T) {
	srv, sim := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/roof/open", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /roof/open: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if sim.RelayMask()&0b0001 == 0 {
		t.Fatal("open relay was not energized")
	}
}

func TestPostStopWhenNotMovingSucceeds(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/roof/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /roof/stop: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPutConfigRejectsInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/config", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /config: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthReportsReadyAfterInitialize(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var h roof.HealthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !h.Ready {
		t.Fatal("expected Ready=true")
	}
}
