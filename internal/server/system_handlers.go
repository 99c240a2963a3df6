package server

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/qfarm/internal/biome"
	"github.com/aristath/qfarm/internal/database"
	"github.com/aristath/qfarm/internal/evolution"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aristath/qfarm/internal/scheduler"
)

const defaultAuditTolerance = 1e-8

// SystemHandlers serves process, physics, and maintenance status.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	farm        *biome.Farm
	jobs        *scheduler.Scheduler
	journalDB   *database.DB
	writer      *journal.Writer
}

// SystemStatusResponse is the body of GET /api/system
type SystemStatusResponse struct {
	Status        string                 `json:"status"`
	Uptime        string                 `json:"uptime"`
	StartedAt     string                 `json:"started_at"`
	CPUPercent    float64                `json:"cpu_percent"`
	MemoryPercent float64                `json:"memory_percent"`
	Goroutines    int                    `json:"goroutines"`
	HeapAllocMB   float64                `json:"heap_alloc_mb"`
	Evolution     evolution.Stats        `json:"evolution"`
	Journal       *JournalStatus         `json:"journal,omitempty"`
	Jobs          []scheduler.JobStatus  `json:"jobs,omitempty"`
	Biomes        map[string]BiomeStatus `json:"biomes"`
}

// JournalStatus reports the journal database and its writer.
type JournalStatus struct {
	Database *database.Stats `json:"database,omitempty"`
	Written  uint64          `json:"written"`
	Dropped  uint64          `json:"dropped"`
}

// BiomeStatus is the compact per-biome view in the status response.
type BiomeStatus struct {
	NumQubits int     `json:"num_qubits"`
	Occupied  int     `json:"occupied"`
	Purity    float64 `json:"purity"`
	Active    bool    `json:"active"`
}

// AuditResponse is the body of GET /api/system/audit
type AuditResponse struct {
	Tolerance     float64           `json:"tolerance"`
	BiomesChecked int               `json:"biomes_checked"`
	Failures      map[string]string `json:"failures"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	farm *biome.Farm,
	jobs *scheduler.Scheduler,
	journalDB *database.DB,
	writer *journal.Writer,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		farm:        farm,
		jobs:        jobs,
		journalDB:   journalDB,
		writer:      writer,
	}
}

// GetSystemStatusSnapshot collects the status without writing it anywhere.
func (h *SystemHandlers) GetSystemStatusSnapshot() (SystemStatusResponse, error) {
	if h == nil || h.farm == nil {
		return SystemStatusResponse{}, fmt.Errorf("system handlers not initialized")
	}

	var firstErr error
	cpuPercent, memPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatusResponse{
		Status:        "healthy",
		Uptime:        time.Since(h.startupTime).Round(time.Second).String(),
		StartedAt:     h.startupTime.Format(time.RFC3339),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		Evolution:     h.farm.EvolutionStats(),
		Biomes:        make(map[string]BiomeStatus),
	}

	for _, snap := range h.farm.Snapshots() {
		response.Biomes[snap.Name] = BiomeStatus{
			NumQubits: snap.Bloch.NumQubits,
			Occupied:  len(snap.Terminals),
			Purity:    snap.Bloch.Purity,
			Active:    snap.Active,
		}
	}

	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
	}

	if h.journalDB != nil || h.writer != nil {
		js := &JournalStatus{}
		if h.journalDB != nil {
			stats, err := h.journalDB.GetStats()
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to read journal stats")
				firstErr = err
			}
			js.Database = stats
		}
		if h.writer != nil {
			js.Written = h.writer.Written()
			js.Dropped = h.writer.Dropped()
		}
		response.Journal = js
	}

	if response.Evolution.Overruns > 0 && response.Evolution.Overruns*10 > response.Evolution.Ticks {
		response.Status = "degraded"
	}

	return response, firstErr
}

// HandleSystemStatus returns process and physics status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot()
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	writeJSON(w, http.StatusOK, envelope(response), h.log)
}

// HandleJobsStatus returns the registered maintenance jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}

	writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}), h.log)
}

// HandleRunJob triggers a maintenance job immediately
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	if h.jobs == nil {
		http.Error(w, "Job scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	known := false
	for _, status := range h.jobs.Jobs() {
		if status.Name == name {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, fmt.Sprintf("unknown job %q", name), http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manually triggering job")
	if err := h.jobs.RunNow(name); err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope(map[string]interface{}{
			"job":     name,
			"status":  "failed",
			"message": err.Error(),
		}), h.log)
		return
	}

	writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"job":    name,
		"status": "success",
	}), h.log)
}

// HandleAudit runs the register invariant checks on demand.
func (h *SystemHandlers) HandleAudit(w http.ResponseWriter, r *http.Request) {
	tol := defaultAuditTolerance
	if raw := r.URL.Query().Get("tolerance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "tolerance must be a positive number", http.StatusBadRequest)
			return
		}
		tol = parsed
	}

	failures := make(map[string]string)
	for name, err := range h.farm.Audit(tol) {
		failures[name] = err.Error()
	}

	status := http.StatusOK
	if len(failures) > 0 {
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		h.log.Warn().Strs("biomes", names).Msg("Invariant audit found violations")
		status = http.StatusConflict
	}

	writeJSON(w, status, envelope(AuditResponse{
		Tolerance:     tol,
		BiomesChecked: len(h.farm.Names()),
		Failures:      failures,
	}), h.log)
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms keeps the endpoint responsive while still giving a usable sample
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
