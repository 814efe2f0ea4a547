package recognizer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	st := twoPersonStore(t)
	m, err := NewTrainer(0.4).Train(st, 3)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return m
}

func TestModelArtifactsRoundTrip(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()

	if err := SaveModel(m, dir); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}
	for _, name := range []string{"model.hnsw", "model.meta", "labels.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	loaded, err := LoadModel(dir)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadModel returned nil for saved model")
	}

	if loaded.Version() != m.Version() {
		t.Errorf("version = %d, want %d", loaded.Version(), m.Version())
	}
	if loaded.BuildID() != m.BuildID() {
		t.Errorf("build id = %q, want %q", loaded.BuildID(), m.BuildID())
	}
	if loaded.Threshold() != m.Threshold() {
		t.Errorf("threshold = %f, want %f", loaded.Threshold(), m.Threshold())
	}
	if loaded.Size() != m.Size() {
		t.Errorf("size = %d, want %d", loaded.Size(), m.Size())
	}
	for label, person := range m.Labels() {
		if got, _ := loaded.PersonFor(label); got != person {
			t.Errorf("label %d = %q, want %q", label, got, person)
		}
	}
}

func TestLoadedModelServesRecognition(t *testing.T) {
	st := twoPersonStore(t)
	m, err := NewTrainer(0).Train(st, 1)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	dir := t.TempDir()
	if err := SaveModel(m, dir); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}
	loaded, err := LoadModel(dir)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	e := NewEngine()
	e.Swap(loaded)

	result, err := e.RecognizeNormalized(st.Samples("bob")[0].Image)
	if err != nil {
		t.Fatalf("RecognizeNormalized failed: %v", err)
	}
	if !result.Known || result.Person != "bob" {
		t.Errorf("loaded model probe = %+v, want known bob", result)
	}
	if result.Distance > 1e-6 {
		t.Errorf("distance = %g, want ~0", result.Distance)
	}
}

func TestLoadModelEmptyDir(t *testing.T) {
	m, err := LoadModel(t.TempDir())
	if err != nil {
		t.Fatalf("LoadModel on empty dir failed: %v", err)
	}
	if m != nil {
		t.Error("LoadModel on empty dir returned a model")
	}
}

func TestLoadModelMissingArtifact(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()
	if err := SaveModel(m, dir); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "labels.yml")); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadModel(dir); !errors.Is(err, ErrCorruptModel) {
		t.Errorf("LoadModel = %v, want ErrCorruptModel", err)
	}
}

func TestLoadModelLabelMapTampered(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()
	if err := SaveModel(m, dir); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(doc *labelsDoc)
	}{
		{"renamed person", func(doc *labelsDoc) { doc.Labels[0] = "mallory" }},
		{"extra label", func(doc *labelsDoc) { doc.Labels[99] = "mallory" }},
		{"wrong version", func(doc *labelsDoc) { doc.Version++ }},
		{"wrong build", func(doc *labelsDoc) { doc.BuildID = "other" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, "labels.yml"))
			if err != nil {
				t.Fatal(err)
			}
			var doc labelsDoc
			if err := yaml.Unmarshal(data, &doc); err != nil {
				t.Fatal(err)
			}

			tt.mutate(&doc)
			tampered, err := yaml.Marshal(doc)
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "labels.yml"), tampered, 0600); err != nil {
				t.Fatal(err)
			}

			if _, err := LoadModel(dir); !errors.Is(err, ErrCorruptModel) {
				t.Errorf("LoadModel = %v, want ErrCorruptModel", err)
			}

			// Restore the good artifact for the next case.
			if err := os.WriteFile(filepath.Join(dir, "labels.yml"), data, 0600); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLoadModelGarbageGraph(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()
	if err := SaveModel(m, dir); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "model.hnsw"), []byte("not a graph"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadModel(dir); !errors.Is(err, ErrCorruptModel) {
		t.Errorf("LoadModel = %v, want ErrCorruptModel", err)
	}
}

func TestSaveModelOverwritesPrevious(t *testing.T) {
	st := twoPersonStore(t)
	trainer := NewTrainer(0)
	dir := t.TempDir()

	v1, err := trainer.Train(st, 1)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := SaveModel(v1, dir); err != nil {
		t.Fatalf("SaveModel v1 failed: %v", err)
	}

	addSamples(t, st, "carol", blocksImg(16, 0), blocksImg(16, 1))
	v2, err := trainer.Train(st, 2)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := SaveModel(v2, dir); err != nil {
		t.Fatalf("SaveModel v2 failed: %v", err)
	}

	loaded, err := LoadModel(dir)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if loaded.Version() != 2 {
		t.Errorf("loaded version = %d, want 2", loaded.Version())
	}
	if _, ok := loaded.LabelFor("carol"); !ok {
		t.Error("reloaded model is missing carol")
	}
}
