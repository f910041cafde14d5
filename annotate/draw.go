package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Default visual parameters of the annotator.
var (
	DefaultColor     = color.NRGBA{R: 255, G: 128, B: 0, A: 255} // Orange.
	DefaultThickness = 4
)

// Style defines how a box outline is drawn.
type Style struct {
	Color     color.Color
	Thickness int // Stroke width in pixels.
}

// DefaultStyle returns the orange, 4 pixel wide outline.
func DefaultStyle() Style {
	return Style{Color: DefaultColor, Thickness: DefaultThickness}
}

// withDefaults fills in zero values.
func (s Style) withDefaults() Style {
	if s.Color == nil {
		s.Color = DefaultColor
	}
	if s.Thickness <= 0 {
		s.Thickness = DefaultThickness
	}
	return s
}

// Validate returns an *ArgumentError if the style cannot be drawn.
func (s Style) Validate() error {
	if s.Thickness < 0 {
		return &ArgumentError{Name: "thickness", Value: strconv.Itoa(s.Thickness),
			Reason: "must be positive"}
	}
	return nil
}

// ParseColor parses an "R,G,B" triplet with components in [0, 255].
func ParseColor(s string) (color.NRGBA, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, &ArgumentError{Name: "color", Value: s,
			Reason: "expected R,G,B"}
	}

	var c [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.NRGBA{}, &ArgumentError{Name: "color", Value: s, Err: err}
		}
		c[i] = uint8(v)
	}

	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
}

// FormatColor is the inverse of ParseColor.
func FormatColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("%d,%d,%d", n.R, n.G, n.B)
}

// Annotate draws the outline of box onto a copy of img and returns the copy together with the
// pixel corners used. The input image is not modified.
func Annotate(img image.Image, box NormalizedBox, style Style) (*image.NRGBA, PixelBox) {
	dst := imaging.Clone(img)
	pb := DrawBox(dst, box, style)
	return dst, pb
}

// DrawBox draws the outline of box onto dst in place and returns the pixel corners.
//
// The box is scaled by the size of dst. The corners are used as given; the outline is the same
// for swapped corners. Strokes are clipped to the bounds of dst.
func DrawBox(dst draw.Image, box NormalizedBox, style Style) PixelBox {
	bounds := dst.Bounds()
	pb := box.ToPixels(bounds.Dx(), bounds.Dy())
	DrawRect(dst, pb, style)
	return pb
}

// DrawRect draws the outline of the pixel box onto dst. Coordinates are relative to the top-left
// corner of dst.
func DrawRect(dst draw.Image, pb PixelBox, style Style) {
	style = style.withDefaults()
	bounds := dst.Bounds()
	src := image.NewUniform(style.Color)

	for _, r := range strokeRects(pb, style.Thickness) {
		r = r.Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, src, image.Point{}, draw.Src)
	}
}

// strokeRects returns the rectangles that make up an outline of thickness t around the corners of
// pb. The stroke is centered on the ideal edge, both corner pixels included.
func strokeRects(pb PixelBox, t int) []image.Rectangle {
	r := pb.Rect()
	half := t / 2

	outer := image.Rectangle{
		Min: image.Pt(r.Min.X-half, r.Min.Y-half),
		Max: image.Pt(r.Max.X-half+t, r.Max.Y-half+t),
	}
	inner := image.Rectangle{
		Min: image.Pt(r.Min.X-half+t, r.Min.Y-half+t),
		Max: image.Pt(r.Max.X-half, r.Max.Y-half),
	}

	// The strokes cover the whole box.
	if inner.Min.X >= inner.Max.X || inner.Min.Y >= inner.Max.Y {
		return []image.Rectangle{outer}
	}

	top := image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y)
	bottom := image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y)
	left := image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y)
	right := image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y)

	return []image.Rectangle{top, bottom, left, right}
}
