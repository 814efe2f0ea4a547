package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-station/internal/constants"
)

// Grayscale converts an image to 8-bit grayscale using the ITU-R BT.601
// luma formula.
func Grayscale(img image.Image) *image.Gray {
	return GrayscaleRegion(img, img.Bounds())
}

// GrayscaleRegion converts a region of an image to 8-bit grayscale.
// The region is clipped to the image bounds.
func GrayscaleRegion(img image.Image, region image.Rectangle) *image.Gray {
	region = region.Intersect(img.Bounds())
	width := region.Dx()
	height := region.Dy()

	gray := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			r, g, b, _ := img.At(region.Min.X+x, region.Min.Y+y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.SetGray(x, y, color.Gray{Y: clampLuma(luma)})
		}
	}

	return gray
}

// Resize scales a grayscale image to the specified dimensions using
// bilinear interpolation.
func Resize(g *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), g, g.Bounds(), draw.Over, nil)
	return dst
}

// Equalize applies histogram equalization to a grayscale image, spreading
// intensity values over the full range to reduce illumination variance.
func Equalize(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return image.NewGray(bounds)
	}

	var hist [256]int
	for _, p := range g.Pix {
		hist[p]++
	}

	// Map each value through the cumulative distribution, anchored at the
	// first non-empty bin so the darkest value maps to zero.
	var lut [256]uint8
	cdf := 0
	cdfMin := -1
	for v := range 256 {
		cdf += hist[v]
		if cdfMin < 0 && hist[v] > 0 {
			cdfMin = cdf
		}
		if cdfMin > 0 && total > cdfMin {
			lut[v] = uint8((cdf - cdfMin) * 255 / (total - cdfMin))
		} else {
			lut[v] = uint8(v)
		}
	}

	out := image.NewGray(bounds)
	for i, p := range g.Pix {
		out.Pix[i] = lut[p]
	}
	return out
}

// LaplacianVariance estimates image sharpness as the variance of the
// Laplacian response. Blurry images produce low values.
func LaplacianVariance(g *image.Gray) float64 {
	bounds := g.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	responses := make([]float64, 0, (width-2)*(height-2))
	var sum float64
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := float64(g.GrayAt(x, y).Y)
			lap := float64(g.GrayAt(x, y-1).Y) + float64(g.GrayAt(x, y+1).Y) +
				float64(g.GrayAt(x-1, y).Y) + float64(g.GrayAt(x+1, y).Y) - 4*center
			responses = append(responses, lap)
			sum += lap
		}
	}

	mean := sum / float64(len(responses))
	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

// MeanAbsDiff computes the mean absolute pixel difference between two
// grayscale images of identical dimensions.
func MeanAbsDiff(a, b *image.Gray) (float64, error) {
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return 0, fmt.Errorf("image dimensions differ: %dx%d vs %dx%d",
			a.Bounds().Dx(), a.Bounds().Dy(), b.Bounds().Dx(), b.Bounds().Dy())
	}
	if len(a.Pix) == 0 {
		return 0, errors.New("empty image")
	}

	var sum float64
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return sum / float64(len(a.Pix)), nil
}

// NormalizeFace runs the full normalization pipeline on a face region:
// crop to the box, grayscale, resize to the normalized dimension, and
// histogram equalization. The same pipeline is applied to capture samples
// and to probe crops at recognition time.
func NormalizeFace(img image.Image, box image.Rectangle) (*image.Gray, error) {
	region := box.Intersect(img.Bounds())
	if region.Empty() {
		return nil, errors.New("face box outside frame bounds")
	}

	gray := GrayscaleRegion(img, region)
	resized := Resize(gray, constants.NormalizedSize, constants.NormalizedSize)
	return Equalize(resized), nil
}

// EncodePNG encodes a grayscale image as PNG bytes.
func EncodePNG(g *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, g); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGray decodes image bytes (PNG, JPEG or GIF) into a grayscale image.
func DecodeGray(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	return Grayscale(img), nil
}

// clampLuma clamps a luma value into the 8-bit gray range.
func clampLuma(luma float64) uint8 {
	if luma < 0 {
		return 0
	}
	if luma > 254.5 {
		return 255
	}
	return uint8(luma + 0.5)
}
