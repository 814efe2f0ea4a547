// Package lbph extracts local binary pattern histogram features from
// normalized grayscale face images. The image is divided into a grid of
// cells; each cell contributes a histogram of rotation-invariant 8-neighbor
// binary patterns, and the concatenated histograms form the feature vector
// compared at recognition time.
package lbph

import "image"

// Bins is the number of distinct rotation-invariant 8-bit patterns
// (binary necklaces of length 8).
const Bins = 36

// neighborOffsets lists the 8 neighbors at radius 1, clockwise from the
// top-left. The bit order must stay fixed so patterns are comparable.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{1, 0},
	{1, 1}, {0, 1}, {-1, 1},
	{-1, 0},
}

// riTable maps each raw 8-bit pattern to its rotation-invariant bin index.
var riTable = buildRITable()

// buildRITable assigns a dense bin index to each rotation equivalence class.
func buildRITable() [256]uint8 {
	var table [256]uint8
	classes := make(map[uint8]uint8, Bins)
	next := uint8(0)
	for code := range 256 {
		canon := canonicalPattern(uint8(code))
		bin, ok := classes[canon]
		if !ok {
			bin = next
			classes[canon] = bin
			next++
		}
		table[code] = bin
	}
	return table
}

// canonicalPattern returns the smallest value among all 8 rotations of a
// pattern, which identifies its rotation equivalence class.
func canonicalPattern(code uint8) uint8 {
	best := code
	for range 7 {
		code = code<<1 | code>>7
		if code < best {
			best = code
		}
	}
	return best
}

// FeatureDim returns the length of a feature vector for the given grid size.
func FeatureDim(grid int) int {
	return grid * grid * Bins
}

// Extract computes the concatenated per-cell pattern histogram for a
// grayscale image. Histograms are normalized per cell so the vector is
// independent of cell pixel counts. Border pixels have no full neighborhood
// and are skipped.
func Extract(g *image.Gray, grid int) []float32 {
	bounds := g.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	feature := make([]float32, FeatureDim(grid))
	if width < 3 || height < 3 || grid <= 0 {
		return feature
	}

	cellW := max(width/grid, 1)
	cellH := max(height/grid, 1)
	cellCounts := make([]float32, grid*grid)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := g.GrayAt(x, y).Y

			var code uint8
			for bit, off := range neighborOffsets {
				if g.GrayAt(x+off[0], y+off[1]).Y >= center {
					code |= 1 << bit
				}
			}

			cell := min(y/cellH, grid-1)*grid + min(x/cellW, grid-1)
			feature[cell*Bins+int(riTable[code])]++
			cellCounts[cell]++
		}
	}

	for cell, count := range cellCounts {
		if count == 0 {
			continue
		}
		for b := range Bins {
			feature[cell*Bins+b] /= count
		}
	}

	return feature
}
