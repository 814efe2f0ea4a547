package recognizer

import (
	"fmt"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-station/internal/constants"
	"github.com/kozaktomas/face-station/internal/lbph"
	"github.com/kozaktomas/face-station/internal/store"
)

// TrainStats captures what a training run saw. The intra-person distance
// distribution doubles as a threshold sanity check: a threshold below the
// P95 intra distance will reject samples of enrolled people.
type TrainStats struct {
	People             int           `json:"people"`
	Samples            int           `json:"samples"`
	FeatureDim         int           `json:"feature_dim"`
	Duration           time.Duration `json:"duration"`
	MeanIntraDistance  float64       `json:"mean_intra_distance"`
	P95IntraDistance   float64       `json:"p95_intra_distance"`
	SuggestedThreshold float64       `json:"suggested_threshold"`
}

// Trainer builds immutable models from the sample store. A trainer is
// cheap and stateless; every call to Train reads the store fresh.
type Trainer struct {
	grid         int
	threshold    float64
	minPerPerson int
	maxNeighbors int
	progress     func(done, total int)
}

// NewTrainer creates a trainer that stamps the given distance threshold
// into the models it builds. A zero threshold selects the default.
func NewTrainer(threshold float64) *Trainer {
	if threshold <= 0 {
		threshold = constants.DefaultRecognizeThreshold
	}
	return &Trainer{
		grid:         constants.GridCells,
		threshold:    threshold,
		minPerPerson: constants.MinSamplesPerPerson,
		maxNeighbors: constants.HNSWMaxNeighbors,
	}
}

// OnProgress registers a callback invoked after each sample is indexed,
// e.g. to drive a progress bar. It runs on the training goroutine.
func (t *Trainer) OnProgress(fn func(done, total int)) {
	t.progress = fn
}

// Train builds a model over the entire store, stamped with the given
// version. People are labeled 0..N-1 in lexicographic name order, so the
// same store contents always produce the same labeling.
//
// Training never mutates the store and has no effect on any live model;
// the caller decides what to do with the result.
func (t *Trainer) Train(st *store.Store, version int) (*Model, error) {
	start := time.Now()

	people := st.People()
	if len(people) == 0 {
		return nil, ErrEmptyDataset
	}
	for _, person := range people {
		if n := st.Count(person); n < t.minPerPerson {
			return nil, fmt.Errorf("%w: %s has %d samples, need at least %d",
				ErrInsufficientSamples, person, n, t.minPerPerson)
		}
	}

	total := st.TotalSamples()

	g := hnsw.NewGraph[int64]()
	g.M = t.maxNeighbors
	g.Ml = 1.0 / float64(t.maxNeighbors) // standard HNSW level factor
	g.Distance = hnsw.CosineDistance

	labels := make(map[int]string, len(people))
	personLabels := make(map[string]int, len(people))
	counts := make(map[string]int, len(people))
	nodeLabels := make(map[int64]int)
	var intra []float64

	var nodeID int64
	for label, person := range people {
		labels[label] = person
		personLabels[person] = label

		samples := st.Samples(person)
		counts[person] = len(samples)

		vectors := make([][]float32, 0, len(samples))
		for _, sample := range samples {
			vec := lbph.Extract(sample.Image, t.grid)
			g.Add(hnsw.MakeNode(nodeID, vec))
			nodeLabels[nodeID] = label
			nodeID++
			vectors = append(vectors, vec)
			if t.progress != nil {
				t.progress(int(nodeID), total)
			}
		}

		for i := 0; i < len(vectors); i++ {
			for j := i + 1; j < len(vectors); j++ {
				intra = append(intra, cosineDistance(vectors[i], vectors[j]))
			}
		}
	}

	trainStats := TrainStats{
		People:     len(people),
		Samples:    int(nodeID),
		FeatureDim: lbph.FeatureDim(t.grid),
		Duration:   time.Since(start),
	}
	if len(intra) > 0 {
		if mean, err := stats.Mean(intra); err == nil {
			trainStats.MeanIntraDistance = mean
		}
		if p95, err := stats.Percentile(intra, 95); err == nil {
			trainStats.P95IntraDistance = p95
			trainStats.SuggestedThreshold = min(max(p95*1.5, 0.05), 0.95)
		}
	}

	m := &Model{
		version:    version,
		buildID:    uuid.New().String(),
		trainedAt:  time.Now(),
		threshold:  t.threshold,
		grid:       t.grid,
		dim:        lbph.FeatureDim(t.grid),
		labels:     labels,
		people:     personLabels,
		counts:     counts,
		graph:      g,
		nodeLabels: nodeLabels,
		stats:      trainStats,
	}

	log.WithFields(log.Fields{
		"version":  version,
		"people":   trainStats.People,
		"samples":  trainStats.Samples,
		"duration": trainStats.Duration.Round(time.Millisecond),
	}).Info("model trained")

	return m, nil
}
