// Package handlers provides HTTP handlers for biome actions and snapshots.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is served when a client asks for ?format=msgpack.
const MsgpackContentType = "application/msgpack"

// Handler handles biome HTTP requests
type Handler struct {
	farm *biome.Farm
	log  zerolog.Logger
}

// NewHandler creates a new biome handler
func NewHandler(farm *biome.Farm, log zerolog.Logger) *Handler {
	return &Handler{
		farm: farm,
		log:  log.With().Str("handler", "biome").Logger(),
	}
}

// ExploreRequest binds a plot position to a free qubit.
type ExploreRequest struct {
	Position int `json:"position"`
}

// TerminalRequest names a bound terminal.
type TerminalRequest struct {
	TerminalID string `json:"terminal_id"`
}

// GateRequest applies a named single-qubit gate.
type GateRequest struct {
	Qubit  int       `json:"qubit"`
	Gate   string    `json:"gate"`
	Params []float64 `json:"params,omitempty"`
}

// Gate2QRequest applies a named two-qubit gate.
type Gate2QRequest struct {
	A    int    `json:"a"`
	B    int    `json:"b"`
	Gate string `json:"gate"`
}

// PairRequest names two qubits in one biome.
type PairRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

// DriveRequest pumps population toward a label.
type DriveRequest struct {
	Label string  `json:"label"`
	Rate  float64 `json:"rate"`
	DT    float64 `json:"dt"`
}

// DecayRequest relaxes a qubit toward north.
type DecayRequest struct {
	Qubit int     `json:"qubit"`
	Rate  float64 `json:"rate"`
	DT    float64 `json:"dt"`
}

// VocabularyRequest adds an axis.
type VocabularyRequest struct {
	North string `json:"north"`
	South string `json:"south"`
}

// CrossEntangleRequest names qubits by biome.
type CrossEntangleRequest struct {
	BiomeA string `json:"biome_a"`
	QubitA int    `json:"qubit_a"`
	BiomeB string `json:"biome_b"`
	QubitB int    `json:"qubit_b"`
}

// TimeScaleRequest changes the evolution speed.
type TimeScaleRequest struct {
	Scale float64 `json:"scale"`
}

// HandleListBiomes handles GET /api/biomes
func (h *Handler) HandleListBiomes(w http.ResponseWriter, r *http.Request) {
	names := h.farm.Names()
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"biomes": names,
		"count":  len(names),
	})
}

// HandleSnapshot handles GET /api/biomes/{biome}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, b.Snapshot())
}

// HandleBloch handles GET /api/biomes/{biome}/bloch
func (h *Handler) HandleBloch(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, b.Snapshot().Bloch)
}

// HandlePurity handles GET /api/biomes/{biome}/purity
func (h *Handler) HandlePurity(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"biome":  b.Name(),
		"purity": b.Purity(),
	})
}

// HandleLookahead handles GET /api/biomes/{biome}/lookahead?steps=&dt=
// dt defaults to the scheduler's effective dt.
func (h *Handler) HandleLookahead(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	steps := 5
	if raw := r.URL.Query().Get("steps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid steps", http.StatusBadRequest)
			return
		}
		steps = n
	}
	dt := h.farm.EvolutionStats().EffectiveDT
	if raw := r.URL.Query().Get("dt"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid dt", http.StatusBadRequest)
			return
		}
		dt = v
	}

	res := b.Lookahead(steps, dt)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	h.respond(w, r, status, res)
}

// HandlePopulation handles GET /api/biomes/{biome}/population/{label}
func (h *Handler) HandlePopulation(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	label := chi.URLParam(r, "label")
	p, found := b.Population(label)
	if !found {
		http.Error(w, "Unknown label", http.StatusNotFound)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"label":      label,
		"population": p,
	})
}

// HandleExplore handles POST /api/biomes/{biome}/explore
func (h *Handler) HandleExplore(w http.ResponseWriter, r *http.Request) {
	var req ExploreRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.Explore(req.Position) })
}

// HandleMeasure handles POST /api/biomes/{biome}/measure
func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	var req TerminalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TerminalID == "" {
		http.Error(w, "terminal_id is required", http.StatusBadRequest)
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.Measure(req.TerminalID) })
}

// HandlePop handles POST /api/biomes/{biome}/pop
func (h *Handler) HandlePop(w http.ResponseWriter, r *http.Request) {
	var req TerminalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TerminalID == "" {
		http.Error(w, "terminal_id is required", http.StatusBadRequest)
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.Pop(req.TerminalID) })
}

// HandleGate handles POST /api/biomes/{biome}/gate
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	var req GateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.ApplyGate(req.Qubit, req.Gate, req.Params...) })
}

// HandleGate2Q handles POST /api/biomes/{biome}/gate2q
func (h *Handler) HandleGate2Q(w http.ResponseWriter, r *http.Request) {
	var req Gate2QRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.ApplyGate2Q(req.A, req.B, req.Gate) })
}

// HandleEntangle handles POST /api/biomes/{biome}/entangle
func (h *Handler) HandleEntangle(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.Entangle(req.A, req.B) })
}

// HandleReentangle handles POST /api/biomes/{biome}/reentangle
func (h *Handler) HandleReentangle(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(b *biome.Biome) interface{} { return b.Reentangle() })
}

// HandleInstallGate handles POST /api/biomes/{biome}/infra/gate
func (h *Handler) HandleInstallGate(w http.ResponseWriter, r *http.Request) {
	var req GateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.InstallGate(req.Qubit, req.Gate) })
}

// HandleDrive handles POST /api/biomes/{biome}/drive
func (h *Handler) HandleDrive(w http.ResponseWriter, r *http.Request) {
	var req DriveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Rate < 0 || req.DT < 0 {
		http.Error(w, "rate and dt must be non-negative", http.StatusBadRequest)
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.ApplyDrive(req.Label, req.Rate, req.DT) })
}

// HandleDecay handles POST /api/biomes/{biome}/decay
func (h *Handler) HandleDecay(w http.ResponseWriter, r *http.Request) {
	var req DecayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Rate < 0 || req.DT < 0 {
		http.Error(w, "rate and dt must be non-negative", http.StatusBadRequest)
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.ApplyDecay(req.Qubit, req.Rate, req.DT) })
}

// HandleInjectVocabulary handles POST /api/biomes/{biome}/vocabulary
func (h *Handler) HandleInjectVocabulary(w http.ResponseWriter, r *http.Request) {
	var req VocabularyRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.InjectVocabulary(req.North, req.South) })
}

// HandleRemoveVocabulary handles DELETE /api/biomes/{biome}/vocabulary/{qubit}
func (h *Handler) HandleRemoveVocabulary(w http.ResponseWriter, r *http.Request) {
	qubit, err := strconv.Atoi(chi.URLParam(r, "qubit"))
	if err != nil {
		http.Error(w, "Invalid qubit index", http.StatusBadRequest)
		return
	}
	h.act(w, r, func(b *biome.Biome) interface{} { return b.RemoveVocabulary(qubit) })
}

// HandleEntangleAcross handles POST /api/farm/entangle
func (h *Handler) HandleEntangleAcross(w http.ResponseWriter, r *http.Request) {
	var req CrossEntangleRequest
	if !h.decode(w, r, &req) {
		return
	}
	res := h.farm.EntangleAcross(req.BiomeA, req.QubitA, req.BiomeB, req.QubitB)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	h.respond(w, r, status, res)
}

// HandleGetTimeScale handles GET /api/farm/time-scale
func (h *Handler) HandleGetTimeScale(w http.ResponseWriter, r *http.Request) {
	stats := h.farm.EvolutionStats()
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"time_scale":   stats.TimeScale,
		"effective_dt": stats.EffectiveDT,
		"dt_clamped":   stats.DTClamped,
	})
}

// HandleSetTimeScale handles PUT /api/farm/time-scale
func (h *Handler) HandleSetTimeScale(w http.ResponseWriter, r *http.Request) {
	var req TimeScaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Scale <= 0 {
		http.Error(w, "scale must be positive", http.StatusBadRequest)
		return
	}
	applied := h.farm.SetTimeScale(req.Scale)
	stats := h.farm.EvolutionStats()
	h.respond(w, r, http.StatusOK, map[string]interface{}{
		"requested":    req.Scale,
		"time_scale":   applied,
		"clamped":      applied != req.Scale,
		"effective_dt": stats.EffectiveDT,
		"dt_clamped":   stats.DTClamped,
	})
}

// HandleEvolutionStats handles GET /api/farm/evolution
func (h *Handler) HandleEvolutionStats(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.farm.EvolutionStats())
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*biome.Biome, bool) {
	name := chi.URLParam(r, "biome")
	b, ok := h.farm.Biome(name)
	if !ok {
		http.Error(w, "Biome not found", http.StatusNotFound)
		return nil, false
	}
	return b, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// act runs fn between physics ticks and responds with its result. Failed
// gameplay results are 422 so clients can tell them from transport errors.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(b *biome.Biome) interface{}) {
	name := chi.URLParam(r, "biome")
	var out interface{}
	err := h.farm.Do(name, func(b *biome.Biome) { out = fn(b) })
	if errors.Is(err, biome.ErrUnknownBiome) {
		http.Error(w, "Biome not found", http.StatusNotFound)
		return
	}

	status := http.StatusOK
	if s, ok := out.(interface{ OK() bool }); ok && !s.OK() {
		status = http.StatusUnprocessableEntity
	}
	h.respond(w, r, status, out)
}

func wantsMsgpack(r *http.Request) bool {
	if r.URL.Query().Get("format") == "msgpack" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), MsgpackContentType)
}

// respond writes the data/metadata envelope as JSON or msgpack.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	if wantsMsgpack(r) {
		body, err := EncodeMsgpack(response)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
			http.Error(w, "Encoding failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", MsgpackContentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}

	h.writeJSON(w, status, response)
}

// EncodeMsgpack encodes v reusing json struct tags for field names.
func EncodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
