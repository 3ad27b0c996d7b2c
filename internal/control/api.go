// Package control implements the HTTP control surface used to inspect
// and change the shaping parameters while the emulator is running.
package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/monitor"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ParametersView is the JSON representation of the shaping parameters.
type ParametersView struct {
	BandwidthKbps     float64 `json:"bandwidthKbps"`
	LatencyMs         int64   `json:"latencyMs"`
	PacketLossPercent float64 `json:"packetLossPercent"`
	ThrottleEnabled   bool    `json:"throttleEnabled"`
}

// NewParametersView creates a [ParametersView] from the parameters.
func NewParametersView(sp model.ShapingParameters) ParametersView {
	return ParametersView{
		BandwidthKbps:     sp.BandwidthKbps,
		LatencyMs:         sp.LatencyMs,
		PacketLossPercent: sp.PacketLossPercent(),
		ThrottleEnabled:   sp.ThrottleEnabled(),
	}
}

// PresetView is the JSON representation of a preset.
type PresetView struct {
	Name string `json:"name"`
	ParametersView
}

// API is the control API. Construct using [NewAPI].
type API struct {
	// Logger is the MANDATORY logger.
	Logger model.Logger

	// Params is the MANDATORY handle on the shaping parameters.
	Params *shaping.Params

	// Store is the MANDATORY request log.
	Store *monitor.Store

	// Upgrader is the MANDATORY websocket upgrader.
	Upgrader websocket.Upgrader
}

// NewAPI creates a new [*API].
func NewAPI(logger model.Logger, params *shaping.Params, store *monitor.Store) *API {
	return &API{
		Logger: model.ValidLoggerOrDefault(logger),
		Params: params,
		Store:  store,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the [http.Handler] serving the API.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shaping", a.getShaping)
	mux.HandleFunc("POST /api/shaping", a.postShaping)
	mux.HandleFunc("POST /api/shaping/reset", a.resetShaping)
	mux.HandleFunc("GET /api/presets", a.listPresets)
	mux.HandleFunc("POST /api/presets/{name}", a.applyPreset)
	mux.HandleFunc("GET /api/logs", a.listLogs)
	mux.HandleFunc("DELETE /api/logs", a.clearLogs)
	mux.HandleFunc("GET /api/events", a.streamEvents)
	mux.Handle("GET /metrics", promhttp.Handler())
	return WithCORS(mux)
}

func (a *API) getShaping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewParametersView(a.Params.Snapshot()))
}

// maxBodySize is the maximum size of a request body we accept.
const maxBodySize = 1 << 14

func (a *API) postShaping(w http.ResponseWriter, r *http.Request) {
	var change shaping.Change
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&change); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.Params.Apply(change); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	current := a.Params.Snapshot()
	a.Logger.Infof("control: shaping changed: %s", current)
	writeJSON(w, http.StatusOK, NewParametersView(current))
}

func (a *API) resetShaping(w http.ResponseWriter, r *http.Request) {
	a.Params.Reset()
	current := a.Params.Snapshot()
	a.Logger.Infof("control: shaping reset: %s", current)
	writeJSON(w, http.StatusOK, NewParametersView(current))
}

func (a *API) listPresets(w http.ResponseWriter, r *http.Request) {
	out := []PresetView{}
	for _, preset := range shaping.Presets() {
		out = append(out, PresetView{
			Name:           preset.Name,
			ParametersView: NewParametersView(preset.Parameters),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) applyPreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.Params.ApplyPreset(name); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, shaping.ErrUnknownPreset) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	current := a.Params.Snapshot()
	a.Logger.Infof("control: preset %s applied: %s", name, current)
	writeJSON(w, http.StatusOK, NewParametersView(current))
}

func (a *API) listLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Entries())
}

func (a *API) clearLogs(w http.ResponseWriter, r *http.Request) {
	a.Store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
