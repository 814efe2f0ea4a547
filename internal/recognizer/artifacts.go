package recognizer

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/hnsw"
	"github.com/google/renameio"
	"gopkg.in/yaml.v3"
)

// Model persistence uses two artifacts plus the graph export:
//
//	model.hnsw: the nearest-neighbor graph (opaque classifier state)
//	model.meta: gob-encoded metadata and the node-to-label table
//	labels.yml: the human-readable label map
//
// labels.yml is deliberately redundant: it lets an operator inspect the
// trained label assignment without Go tooling, and loading cross-checks it
// against model.meta. Any disagreement means the artifacts were torn or
// hand-edited and the load fails with ErrCorruptModel.
const (
	graphFile  = "model.hnsw"
	metaFile   = "model.meta"
	labelsFile = "labels.yml"
)

type modelMeta struct {
	Version    int
	BuildID    string
	TrainedAt  time.Time
	Threshold  float64
	Grid       int
	Dim        int
	Labels     map[int]string
	NodeLabels map[int64]int
	Counts     map[string]int
	Stats      TrainStats
}

type labelsDoc struct {
	Version int            `yaml:"version"`
	BuildID string         `yaml:"build_id"`
	Labels  map[int]string `yaml:"labels"`
}

// SaveModel persists a model into dir. Each artifact is written to a
// temporary file and renamed into place, so a crash mid-save leaves either
// the old artifact or the new one, not a torn file.
func SaveModel(m *Model, dir string) error {
	if m == nil {
		return errors.New("cannot save nil model")
	}
	if m.graph == nil && m.savedGraph == nil {
		return errors.New("cannot save model without a graph")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	pf, err := renameio.TempFile("", filepath.Join(dir, graphFile))
	if err != nil {
		return fmt.Errorf("failed to create graph temp file: %w", err)
	}
	defer pf.Cleanup()

	if m.savedGraph != nil {
		err = m.savedGraph.Export(pf)
	} else {
		err = m.graph.Export(pf)
	}
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace graph file: %w", err)
	}

	var buf bytes.Buffer
	meta := modelMeta{
		Version:    m.version,
		BuildID:    m.buildID,
		TrainedAt:  m.trainedAt,
		Threshold:  m.threshold,
		Grid:       m.grid,
		Dim:        m.dim,
		Labels:     m.labels,
		NodeLabels: m.nodeLabels,
		Counts:     m.counts,
		Stats:      m.stats,
	}
	if err := gob.NewEncoder(&buf).Encode(meta); err != nil {
		return fmt.Errorf("failed to encode model metadata: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, metaFile), buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write model metadata: %w", err)
	}

	doc := labelsDoc{Version: m.version, BuildID: m.buildID, Labels: m.labels}
	labelsData, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal label map: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, labelsFile), labelsData, 0600); err != nil {
		return fmt.Errorf("failed to write label map: %w", err)
	}

	return nil
}

// LoadModel restores a model from dir. Returns (nil, nil) when no model has
// ever been saved there. Unreadable artifacts, or artifacts that disagree
// with each other, fail with ErrCorruptModel.
func LoadModel(dir string) (*Model, error) {
	graphPath := filepath.Join(dir, graphFile)
	metaPath := filepath.Join(dir, metaFile)
	labelsPath := filepath.Join(dir, labelsFile)

	missing := 0
	for _, path := range []string{graphPath, metaPath, labelsPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing++
		}
	}
	if missing == 3 {
		return nil, nil
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w: model directory %s is missing artifacts", ErrCorruptModel, dir)
	}

	saved, err := hnsw.LoadSavedGraph[int64](graphPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load graph: %v", ErrCorruptModel, err)
	}

	metaData, err := os.ReadFile(metaPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	var meta modelMeta
	if err := gob.NewDecoder(bytes.NewReader(metaData)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: failed to decode metadata: %v", ErrCorruptModel, err)
	}

	labelsData, err := os.ReadFile(labelsPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read label map: %w", err)
	}
	var doc labelsDoc
	if err := yaml.Unmarshal(labelsData, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse label map: %v", ErrCorruptModel, err)
	}

	if err := checkArtifactAgreement(meta, doc); err != nil {
		return nil, err
	}

	people := make(map[string]int, len(meta.Labels))
	for label, person := range meta.Labels {
		if _, dup := people[person]; dup {
			return nil, fmt.Errorf("%w: person %s appears under two labels", ErrCorruptModel, person)
		}
		people[person] = label
	}
	for node, label := range meta.NodeLabels {
		if _, ok := meta.Labels[label]; !ok {
			return nil, fmt.Errorf("%w: node %d references unknown label %d", ErrCorruptModel, node, label)
		}
	}

	return &Model{
		version:    meta.Version,
		buildID:    meta.BuildID,
		trainedAt:  meta.TrainedAt,
		threshold:  meta.Threshold,
		grid:       meta.Grid,
		dim:        meta.Dim,
		labels:     meta.Labels,
		people:     people,
		counts:     meta.Counts,
		savedGraph: saved,
		nodeLabels: meta.NodeLabels,
		stats:      meta.Stats,
	}, nil
}

// checkArtifactAgreement verifies that the metadata and the label map
// describe the same training run with the same label set.
func checkArtifactAgreement(meta modelMeta, doc labelsDoc) error {
	if meta.Version != doc.Version {
		return fmt.Errorf("%w: metadata version %d but label map version %d",
			ErrCorruptModel, meta.Version, doc.Version)
	}
	if meta.BuildID != doc.BuildID {
		return fmt.Errorf("%w: metadata build %s but label map build %s",
			ErrCorruptModel, meta.BuildID, doc.BuildID)
	}
	if len(meta.Labels) != len(doc.Labels) {
		return fmt.Errorf("%w: metadata has %d labels but label map has %d",
			ErrCorruptModel, len(meta.Labels), len(doc.Labels))
	}
	for label, person := range meta.Labels {
		if doc.Labels[label] != person {
			return fmt.Errorf("%w: label %d is %q in metadata but %q in label map",
				ErrCorruptModel, label, person, doc.Labels[label])
		}
	}
	return nil
}
