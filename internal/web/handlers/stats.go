package handlers

import (
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kozaktomas/face-station/internal/recognizer"
	"github.com/kozaktomas/face-station/internal/store"
)

const diskUsageTTL = time.Minute

// diskUsageCache holds the walked dataset size with expiry, so repeated
// stats requests do not re-walk the sample directory.
type diskUsageCache struct {
	mu        sync.Mutex
	size      uint64
	expiresAt time.Time
}

func (c *diskUsageCache) get() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().After(c.expiresAt) {
		return 0, false
	}
	return c.size, true
}

func (c *diskUsageCache) set(size uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
	c.expiresAt = time.Now().Add(diskUsageTTL)
}

// StatsHandler handles statistics endpoints.
type StatsHandler struct {
	store  *store.Store
	engine *recognizer.Engine
	cache  diskUsageCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(st *store.Store, engine *recognizer.Engine) *StatsHandler {
	return &StatsHandler{
		store:  st,
		engine: engine,
	}
}

// PersonStats represents per-person dataset counters.
type PersonStats struct {
	Name     string `json:"name"`
	Samples  int    `json:"samples"`
	Sessions int    `json:"sessions"`
}

// StatsResponse represents the statistics response.
type StatsResponse struct {
	People       int           `json:"people"`
	TotalSamples int           `json:"total_samples"`
	PerPerson    []PersonStats `json:"per_person"`
	DatasetSize  string        `json:"dataset_size"`
	ModelVersion int           `json:"model_version"`
	ModelPeople  int           `json:"model_people"`
	ModelSamples int           `json:"model_samples"`
}

// dirSize sums the file sizes under root. Walk errors are skipped so a
// file deleted mid-walk does not fail the whole report.
func dirSize(root string) uint64 {
	var total uint64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

// Get returns statistics about the sample dataset and the current model.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	names := h.store.People()
	perPerson := make([]PersonStats, 0, len(names))
	for _, name := range names {
		sessions := make(map[string]bool)
		samples := h.store.Samples(name)
		for _, sample := range samples {
			sessions[sample.SessionID] = true
		}
		perPerson = append(perPerson, PersonStats{
			Name:     name,
			Samples:  len(samples),
			Sessions: len(sessions),
		})
	}

	size, ok := h.cache.get()
	if !ok {
		size = dirSize(h.store.Dir())
		h.cache.set(size)
	}

	stats := StatsResponse{
		People:       len(names),
		TotalSamples: h.store.TotalSamples(),
		PerPerson:    perPerson,
		DatasetSize:  humanize.Bytes(size),
	}
	if m := h.engine.Current(); m != nil {
		stats.ModelVersion = m.Version()
		stats.ModelPeople = len(m.People())
		stats.ModelSamples = m.Size()
	}

	respondJSON(w, http.StatusOK, stats)
}
