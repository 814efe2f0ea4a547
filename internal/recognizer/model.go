// Package recognizer trains and serves the face identity model: an HNSW
// nearest-neighbor graph over local binary pattern histogram features, with
// a deterministic person-to-label mapping.
package recognizer

import (
	"sort"
	"time"

	"github.com/coder/hnsw"
)

// Match is one nearest-neighbor hit in a model's feature space.
type Match struct {
	Person   string  `json:"person"`
	Label    int     `json:"label"`
	Distance float64 `json:"distance"`
}

// Model is one immutable training result. A model is built completely by the
// trainer (or loaded from artifacts) before anyone can see it and never
// mutated afterwards, so concurrent readers need no locking.
type Model struct {
	version   int
	buildID   string
	trainedAt time.Time
	threshold float64
	grid      int
	dim       int

	labels map[int]string // label -> person, bijective with people
	people map[string]int // person -> label
	counts map[string]int // person -> trained sample count

	graph      *hnsw.Graph[int64]
	savedGraph *hnsw.SavedGraph[int64] // set when loaded from disk
	nodeLabels map[int64]int           // graph node -> label

	stats TrainStats
}

// Version returns the model's monotonically increasing version number.
func (m *Model) Version() int {
	return m.version
}

// BuildID returns the unique identifier of this training run.
func (m *Model) BuildID() string {
	return m.buildID
}

// TrainedAt returns when the model was built.
func (m *Model) TrainedAt() time.Time {
	return m.trainedAt
}

// Threshold returns the distance threshold the model was trained with.
// Probes at or above it are reported unknown.
func (m *Model) Threshold() float64 {
	return m.threshold
}

// FeatureDim returns the length of the feature vectors the model indexes.
func (m *Model) FeatureDim() int {
	return m.dim
}

// People returns the trained person names, sorted so that index equals
// label.
func (m *Model) People() []string {
	names := make([]string, 0, len(m.people))
	for name := range m.people {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Labels returns a copy of the label-to-person table.
func (m *Model) Labels() map[int]string {
	out := make(map[int]string, len(m.labels))
	for label, person := range m.labels {
		out[label] = person
	}
	return out
}

// LabelFor resolves a person name to its label.
func (m *Model) LabelFor(person string) (int, bool) {
	label, ok := m.people[person]
	return label, ok
}

// PersonFor resolves a label back to a person name.
func (m *Model) PersonFor(label int) (string, bool) {
	person, ok := m.labels[label]
	return person, ok
}

// SampleCount returns how many samples of a person the model was trained on.
func (m *Model) SampleCount(person string) int {
	return m.counts[person]
}

// Size returns the total number of indexed samples.
func (m *Model) Size() int {
	return len(m.nodeLabels)
}

// Stats returns the statistics collected during training.
func (m *Model) Stats() TrainStats {
	return m.stats
}

// Search returns the k nearest indexed samples to the query vector, closest
// first. Distances are recomputed exactly from the stored vectors rather
// than trusted from the approximate index.
func (m *Model) Search(query []float32, k int) []Match {
	if k <= 0 {
		k = 1
	}

	var neighbors []hnsw.Node[int64]
	switch {
	case m.savedGraph != nil:
		neighbors = m.savedGraph.Search(query, k)
	case m.graph != nil:
		neighbors = m.graph.Search(query, k)
	}

	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		label, ok := m.nodeLabels[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Person:   m.labels[label],
			Label:    label,
			Distance: cosineDistance(query, n.Value),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}
