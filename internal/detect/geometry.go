package detect

import "image"

// IoU calculates Intersection over Union between two rectangles in the same
// coordinate system. Degenerate rectangles yield 0.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}

	intersection := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()) + float64(b.Dx()*b.Dy()) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
