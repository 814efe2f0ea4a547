package recognizer

import (
	"image"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-station/internal/store"
)

// Test people are built from structurally distinct textures so that
// same-person variants sit close together in feature space while different
// people sit far apart. Checkerboards, gradients and coarse blocks occupy
// nearly disjoint sets of texture-pattern bins. Note that pattern bins are
// rotation invariant: a coarse checkerboard is still a checkerboard, so an
// out-of-class probe has to be noise, not just a rescaled structure.

func checkerImg(cell, phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if ((x+phase)/cell+y/cell)%2 == 0 {
				img.Pix[y*img.Stride+x] = 230
			} else {
				img.Pix[y*img.Stride+x] = 25
			}
		}
	}
	return img
}

func gradientImg(offset int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			v := x*2 + offset
			img.Pix[y*img.Stride+x] = uint8(min(v, 255))
		}
	}
	return img
}

func blocksImg(size, phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if ((x+phase)/size)%2 == ((y)/size)%2 {
				img.Pix[y*img.Stride+x] = 200
			} else {
				img.Pix[y*img.Stride+x] = 60
			}
		}
	}
	return img
}

// noiseImg fills a normalized crop with seeded random pixels. Noise spreads
// evenly over every pattern bin, far from any structured training set, so it
// probes the unknown path of recognition.
func noiseImg(seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "samples"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st
}

func addSamples(t *testing.T, st *store.Store, person string, images ...*image.Gray) {
	t.Helper()
	for i, img := range images {
		at := time.Date(2025, 6, 1, 12, 0, i, 0, time.UTC)
		if _, err := st.Add(person, "", img, at); err != nil {
			t.Fatalf("failed to add sample for %s: %v", person, err)
		}
	}
}

// twoPersonStore enrolls alice (checkerboard) and bob (gradient) with three
// samples each.
func twoPersonStore(t *testing.T) *store.Store {
	t.Helper()
	st := newTestStore(t)
	addSamples(t, st, "alice", checkerImg(2, 0), checkerImg(2, 1), checkerImg(2, 2))
	addSamples(t, st, "bob", gradientImg(0), gradientImg(5), gradientImg(10))
	return st
}
