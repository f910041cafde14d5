package annotate

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// NumCorners is the number of values that make up a box.
const NumCorners = 4

// NormalizedBox is a bounding box given as fractions of the image width (X) and height (Y).
//
// Values are nominally in [0.0, 1.0] but are not clamped, and X0 > X1 or Y0 > Y1 is kept as given.
type NormalizedBox struct {
	X0, Y0, X1, Y1 float64
}

// PixelBox is a bounding box in absolute pixel coordinates of a specific image.
type PixelBox struct {
	X0, Y0, X1, Y1 int
}

// Width is the normalised box width. It is negative for swapped corners.
func (b NormalizedBox) Width() float64 {
	return b.X1 - b.X0
}

// Height is the normalised box height. It is negative for swapped corners.
func (b NormalizedBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Array returns the box as x0, y0, x1, y1.
func (b NormalizedBox) Array() [NumCorners]float64 {
	return [NumCorners]float64{b.X0, b.Y0, b.X1, b.Y1}
}

// MaxPixelCoord bounds the magnitude of scaled pixel coordinates. Larger values are clamped so
// that boxes far outside the image keep their sign and stroke arithmetic cannot overflow.
const MaxPixelCoord = 1 << 30

// ToPixels scales the box to an image of the given size, truncating toward zero. Coordinates are
// clamped to [-MaxPixelCoord, MaxPixelCoord].
func (b NormalizedBox) ToPixels(width, height int) PixelBox {
	w := float64(width)
	h := float64(height)
	return PixelBox{
		X0: scaleCoord(b.X0, w),
		Y0: scaleCoord(b.Y0, h),
		X1: scaleCoord(b.X1, w),
		Y1: scaleCoord(b.Y1, h),
	}
}

// scaleCoord returns v*size as a clamped pixel coordinate.
func scaleCoord(v, size float64) int {
	p := v * size
	switch {
	case p > MaxPixelCoord:
		return MaxPixelCoord
	case p < -MaxPixelCoord:
		return -MaxPixelCoord
	}
	return int(p)
}

// BoxFromArray builds a box from x0, y0, x1, y1.
func BoxFromArray(a [NumCorners]float64) NormalizedBox {
	return NormalizedBox{X0: a[0], Y0: a[1], X1: a[2], Y1: a[3]}
}

// Min is the first corner as given.
func (p PixelBox) Min() image.Point {
	return image.Pt(p.X0, p.Y0)
}

// Max is the second corner as given.
func (p PixelBox) Max() image.Point {
	return image.Pt(p.X1, p.Y1)
}

// Rect returns the well-formed rectangle spanned by the two corners. Note that the rectangle is
// half-open, so it excludes the row and column of the larger corner.
func (p PixelBox) Rect() image.Rectangle {
	return image.Rect(p.X0, p.Y0, p.X1, p.Y1)
}

func (p PixelBox) String() string {
	return fmt.Sprintf("(%d,%d)(%d,%d)", p.X0, p.Y0, p.X1, p.Y1)
}

// ParseBox parses exactly four numeric tokens x0, y0, x1, y1 into a NormalizedBox.
//
// Returns an *ArgumentError if the token count is wrong or if a token is not a finite number.
func ParseBox(tokens []string) (NormalizedBox, error) {
	if len(tokens) != NumCorners {
		return NormalizedBox{}, &ArgumentError{
			Name:   "box",
			Value:  strings.Join(tokens, " "),
			Reason: fmt.Sprintf("expected %d values, got %d", NumCorners, len(tokens)),
		}
	}

	var a [NumCorners]float64
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return NormalizedBox{}, &ArgumentError{
				Name:  fmt.Sprintf("box[%d]", i),
				Value: tok,
				Err:   err,
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NormalizedBox{}, &ArgumentError{
				Name:   fmt.Sprintf("box[%d]", i),
				Value:  tok,
				Reason: "not a finite number",
			}
		}
		a[i] = v
	}

	return BoxFromArray(a), nil
}

// SplitBox splits a single box string such as "0.1,0.2 0.6,0.8" into its tokens.
func SplitBox(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// BoxArgs returns the box tokens of a command line, given either as a single -box string or as
// positional arguments. Passing both is an *ArgumentError.
func BoxArgs(box string, args []string) ([]string, error) {
	switch {
	case box != "" && len(args) > 0:
		return nil, &ArgumentError{Name: "box", Value: box,
			Reason: "pass the box either with -box or as positional arguments"}
	case box != "":
		return SplitBox(box), nil
	}
	return args, nil
}
