// Package tiffimg renders the image side of a prepared sample: decoding the
// full-resolution tissue TIFF, cutting per-spot crops, and drawing the spot
// overview PNG. Decoding goes through golang.org/x/image/tiff; BigTIFF files
// (the newer samples exceed the classic 4 GiB header limit) fail to decode
// and are reported so the pipeline can degrade to a spots-only prepare.
package tiffimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/st-atlas/visium-datasets/spots"
)

// DefaultOverviewLongest is the default bound on the overview's longest edge.
const DefaultOverviewLongest = 3840

// DecodeTIFF reads and decodes a tissue image.
func DecodeTIFF(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Crop extracts the spot's bounding box from the full-resolution image,
// clamped to the image bounds.
func Crop(img image.Image, spot spots.Spot, diameter float64) image.Image {
	box := spot.Bounds(diameter).Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(out, out.Bounds(), img, box.Min, draw.Src)
	return out
}

// CropSpots writes one PNG per in-tissue spot into destDir, named by barcode.
// Returns the number of crops written.
func CropSpots(img image.Image, table spots.Table, diameter float64, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, err
	}
	n := 0
	for _, spot := range table {
		if !spot.InTissue {
			continue
		}
		crop := Crop(img, spot, diameter)
		if err := SavePNG(filepath.Join(destDir, spot.Barcode+".png"), crop); err != nil {
			return n, fmt.Errorf("crop %s: %w", spot.Barcode, err)
		}
		n++
	}
	return n, nil
}

var overviewColor = color.RGBA{R: 0x1e, G: 0x50, B: 0xff, A: 0xff}

// Overview renders the spot layout on a copy of the tissue image, resized so
// the longest edge is at most longest pixels (0 disables resizing). In-tissue
// spots are drawn as boxes with a center dot.
func Overview(img image.Image, table spots.Table, diameter float64, longest int) image.Image {
	bounds := img.Bounds()
	ratio := 1.0
	if longest > 0 && max(bounds.Dx(), bounds.Dy()) > longest {
		ratio = float64(longest) / float64(max(bounds.Dx(), bounds.Dy()))
	}

	w := int(float64(bounds.Dx()) * ratio)
	h := int(float64(bounds.Dy()) * ratio)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	scaleInto(out, img)

	// Line and dot sizes match a 2px/3px weight at the default 3840 edge.
	lineWidth := max(1, (max(w, h)*2)/DefaultOverviewLongest)
	dotRadius := max(1, (max(w, h)*3)/DefaultOverviewLongest)

	for _, spot := range table {
		if !spot.InTissue {
			continue
		}
		box := scaleRect(spot.Bounds(diameter), ratio)
		drawRect(out, box, lineWidth)
		c := spot.Center()
		drawDot(out, int(float64(c.X)*ratio), int(float64(c.Y)*ratio), dotRadius)
	}
	return out
}

// scaleInto fills dst with a nearest-neighbor resampling of src.
func scaleInto(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	db := dst.Bounds()
	for y := db.Min.Y; y < db.Max.Y; y++ {
		sy := sb.Min.Y + y*sb.Dy()/db.Dy()
		for x := db.Min.X; x < db.Max.X; x++ {
			sx := sb.Min.X + x*sb.Dx()/db.Dx()
			dst.Set(x, y, src.At(sx, sy))
		}
	}
}

func scaleRect(r image.Rectangle, ratio float64) image.Rectangle {
	return image.Rect(
		int(float64(r.Min.X)*ratio),
		int(float64(r.Min.Y)*ratio),
		int(float64(r.Max.X)*ratio),
		int(float64(r.Max.Y)*ratio),
	)
}

func drawRect(img *image.RGBA, r image.Rectangle, width int) {
	r = r.Intersect(img.Bounds())
	for w := 0; w < width; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setIn(img, x, r.Min.Y+w)
			setIn(img, x, r.Max.Y-1-w)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIn(img, r.Min.X+w, y)
			setIn(img, r.Max.X-1-w, y)
		}
	}
}

func drawDot(img *image.RGBA, cx, cy, radius int) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setIn(img, cx+dx, cy+dy)
			}
		}
	}
}

func setIn(img *image.RGBA, x, y int) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, overviewColor)
	}
}
