package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelPadding is the space in pixels around label text.
const labelPadding = 2

// DrawLabel draws text on a filled background with its bottom-left corner at pt, e.g. the top-left
// corner of a box. The label is moved down into the image if it would start above the top edge.
// Coordinates are relative to the top-left corner of dst.
func DrawLabel(dst draw.Image, pt image.Point, text string, bg color.Color) {
	if text == "" {
		return
	}
	bounds := dst.Bounds()
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2*labelPadding
	width := font.MeasureString(face, text).Ceil() + 2*labelPadding

	pt = pt.Add(bounds.Min)
	top := pt.Y - height
	if top < bounds.Min.Y {
		top = bounds.Min.Y
	}
	box := image.Rect(pt.X, top, pt.X+width, top+height)
	draw.Draw(dst, box.Intersect(bounds), image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(contrastColor(bg)),
		Face: face,
		Dot:  fixed.P(box.Min.X+labelPadding, box.Min.Y+labelPadding+ascent),
	}
	d.DrawString(text)
}

// contrastColor picks black or white text for the background.
func contrastColor(bg color.Color) color.Color {
	g := color.GrayModel.Convert(bg).(color.Gray)
	if g.Y > 140 {
		return color.Black
	}
	return color.White
}
