package control

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/monitor"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *shaping.Params, *monitor.Store) {
	params, err := shaping.NewParams(model.ShapingParameters{
		BandwidthKbps:  4000,
		LatencyMs:      100,
		PacketLossRate: 0.005,
	})
	if err != nil {
		t.Fatal(err)
	}
	store := monitor.NewStore(10)
	srvr := httptest.NewServer(NewAPI(nil, params, store).Handler())
	t.Cleanup(srvr.Close)
	return srvr, params, store
}

func doRequest(t *testing.T, method, URL, body string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, URL, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decodeView(t *testing.T, data []byte) ParametersView {
	var view ParametersView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func TestGetShaping(t *testing.T) {
	srvr, _, _ := newTestServer(t)
	resp, data := doRequest(t, "GET", srvr.URL+"/api/shaping", "")
	if resp.StatusCode != 200 {
		t.Fatal("unexpected status", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
	expect := ParametersView{
		BandwidthKbps:     4000,
		LatencyMs:         100,
		PacketLossPercent: 0.5,
		ThrottleEnabled:   true,
	}
	if diff := cmp.Diff(expect, decodeView(t, data)); diff != "" {
		t.Fatal(diff)
	}
}

func TestPostShaping(t *testing.T) {
	t.Run("with a partial update", func(t *testing.T) {
		srvr, params, _ := newTestServer(t)
		resp, data := doRequest(t, "POST", srvr.URL+"/api/shaping", `{"bandwidthKbps": 1000, "packetLossPercent": 2}`)
		if resp.StatusCode != 200 {
			t.Fatal("unexpected status", resp.StatusCode, string(data))
		}
		expect := model.ShapingParameters{
			BandwidthKbps:  1000,
			LatencyMs:      100,
			PacketLossRate: 0.02,
		}
		if diff := cmp.Diff(expect, params.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
		if view := decodeView(t, data); view.PacketLossPercent != 2 {
			t.Fatal("unexpected view", view)
		}
	})

	for _, body := range []string{
		`{"bandwidthKbps": 0}`,
		`{"bandwidthKbps": 1000, "latencyMs": -5}`,
		`{"packetLossPercent": 101}`,
		`{"packetLossPercent": -1}`,
		`{"bandwidthKbps": "fast"}`,
		`{"jitterMs": 10}`,
		`{`,
		``,
	} {
		t.Run("with invalid body "+body, func(t *testing.T) {
			srvr, params, _ := newTestServer(t)
			before := params.Snapshot()
			resp, data := doRequest(t, "POST", srvr.URL+"/api/shaping", body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatal("unexpected status", resp.StatusCode)
			}
			var failure errorResponse
			if err := json.Unmarshal(data, &failure); err != nil || failure.Error == "" {
				t.Fatal("expected an error message", string(data))
			}
			if diff := cmp.Diff(before, params.Snapshot()); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestResetShaping(t *testing.T) {
	srvr, params, _ := newTestServer(t)
	before := params.Snapshot()
	if err := params.ApplyPreset("throttled"); err != nil {
		t.Fatal(err)
	}
	resp, _ := doRequest(t, "POST", srvr.URL+"/api/shaping/reset", "")
	if resp.StatusCode != 200 {
		t.Fatal("unexpected status", resp.StatusCode)
	}
	if diff := cmp.Diff(before, params.Snapshot()); diff != "" {
		t.Fatal(diff)
	}
}

func TestPresets(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		srvr, _, _ := newTestServer(t)
		resp, data := doRequest(t, "GET", srvr.URL+"/api/presets", "")
		if resp.StatusCode != 200 {
			t.Fatal("unexpected status", resp.StatusCode)
		}
		var presets []PresetView
		if err := json.Unmarshal(data, &presets); err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, p := range presets {
			names = append(names, p.Name)
		}
		if diff := cmp.Diff([]string{"3g", "4g", "perfect", "throttled", "wifi"}, names); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("apply", func(t *testing.T) {
		srvr, params, _ := newTestServer(t)
		resp, data := doRequest(t, "POST", srvr.URL+"/api/presets/3g", "")
		if resp.StatusCode != 200 {
			t.Fatal("unexpected status", resp.StatusCode)
		}
		preset, _ := shaping.LookupPreset("3g")
		if diff := cmp.Diff(preset.Parameters, params.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
		if view := decodeView(t, data); view.BandwidthKbps != 1000 || view.LatencyMs != 200 {
			t.Fatal("unexpected view", view)
		}
	})

	t.Run("apply unknown", func(t *testing.T) {
		srvr, params, _ := newTestServer(t)
		before := params.Snapshot()
		resp, _ := doRequest(t, "POST", srvr.URL+"/api/presets/5g", "")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatal("unexpected status", resp.StatusCode)
		}
		if diff := cmp.Diff(before, params.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestLogs(t *testing.T) {
	srvr, _, store := newTestServer(t)
	store.Add(monitor.Entry{ID: "b", Method: "GET", Status: 200})
	store.Add(monitor.Entry{ID: "a", Method: "GET", Outcome: "simulated_failure"})

	resp, data := doRequest(t, "GET", srvr.URL+"/api/logs", "")
	if resp.StatusCode != 200 {
		t.Fatal("unexpected status", resp.StatusCode)
	}
	var entries []monitor.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(store.Entries(), entries); diff != "" {
		t.Fatal(diff)
	}

	resp, _ = doRequest(t, "DELETE", srvr.URL+"/api/logs", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatal("unexpected status", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Fatal("the log has not been cleared")
	}
}

func TestMetrics(t *testing.T) {
	srvr, _, _ := newTestServer(t)
	resp, _ := doRequest(t, "GET", srvr.URL+"/metrics", "")
	if resp.StatusCode != 200 {
		t.Fatal("unexpected status", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srvr, _, _ := newTestServer(t)
	resp, _ := doRequest(t, "OPTIONS", srvr.URL+"/api/shaping", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatal("unexpected status", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Fatal("missing allowed methods")
	}
}

func TestEvents(t *testing.T) {
	srvr, params, _ := newTestServer(t)
	URL := "ws" + strings.TrimPrefix(srvr.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var view ParametersView
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatal(err)
	}
	if view.BandwidthKbps != 4000 {
		t.Fatal("unexpected initial view", view)
	}

	if err := params.SetBandwidth(750); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatal(err)
	}
	if view.BandwidthKbps != 750 {
		t.Fatal("unexpected updated view", view)
	}
}
