// Package canvas provides the console-side drawing surfaces the joystick
// widgets render onto, the document that resolves them by id and routes
// pointer events, and snapshot encoders for serving them to a UI.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	"github.com/open-teleop/console/pkg/joystick"
)

// kappa places cubic Bézier control points for a quarter circle.
const kappa = 0.5522847498

var _ joystick.Surface = (*Raster)(nil)

// Raster is an anti-aliased RGBA drawing surface.
type Raster struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRaster creates a surface of the given size.
func NewRaster(width, height int) *Raster {
	r := &Raster{}
	r.Resize(width, height)
	return r
}

// Resize reallocates the surface, clearing it.
func (r *Raster) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	r.img = image.NewRGBA(image.Rect(0, 0, width, height))
	r.z = vector.NewRasterizer(width, height)
}

// Bounds returns the surface size.
func (r *Raster) Bounds() (width, height int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// FillRect fills an axis-aligned rectangle.
func (r *Raster) FillRect(x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r.begin()
	r.rect(x, y, w, h)
	r.paint(c)
}

// StrokeRect outlines a rectangle with a line of the given width centred on
// its edges, using round joins.
func (r *Raster) StrokeRect(x, y, w, h, lineWidth float64, c color.Color) {
	if lineWidth <= 0 {
		return
	}
	hw := lineWidth / 2
	r.begin()
	r.rect(x, y-hw, w, lineWidth)
	r.rect(x, y+h-hw, w, lineWidth)
	r.rect(x-hw, y, lineWidth, h)
	r.rect(x+w-hw, y, lineWidth, h)
	r.circle(x, y, hw)
	r.circle(x+w, y, hw)
	r.circle(x, y+h, hw)
	r.circle(x+w, y+h, hw)
	r.paint(c)
}

// FillCircle fills a disc.
func (r *Raster) FillCircle(cx, cy, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	r.begin()
	r.circle(cx, cy, radius)
	r.paint(c)
}

// At returns the colour of a pixel.
func (r *Raster) At(x, y int) color.RGBA {
	return r.img.RGBAAt(x, y)
}

// Snapshot returns a copy of the current pixels.
func (r *Raster) Snapshot() *image.RGBA {
	out := image.NewRGBA(r.img.Bounds())
	copy(out.Pix, r.img.Pix)
	return out
}

func (r *Raster) begin() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

// rect adds a closed, clockwise rectangle sub-path.
func (r *Raster) rect(x, y, w, h float64) {
	r.z.MoveTo(float32(x), float32(y))
	r.z.LineTo(float32(x+w), float32(y))
	r.z.LineTo(float32(x+w), float32(y+h))
	r.z.LineTo(float32(x), float32(y+h))
	r.z.ClosePath()
}

// circle adds a closed, clockwise circle sub-path made of four cubics.
func (r *Raster) circle(cx, cy, rad float64) {
	k := kappa * rad
	f := func(v float64) float32 { return float32(v) }
	r.z.MoveTo(f(cx+rad), f(cy))
	r.z.CubeTo(f(cx+rad), f(cy+k), f(cx+k), f(cy+rad), f(cx), f(cy+rad))
	r.z.CubeTo(f(cx-k), f(cy+rad), f(cx-rad), f(cy+k), f(cx-rad), f(cy))
	r.z.CubeTo(f(cx-rad), f(cy-k), f(cx-k), f(cy-rad), f(cx), f(cy-rad))
	r.z.CubeTo(f(cx+k), f(cy-rad), f(cx+rad), f(cy-k), f(cx+rad), f(cy))
	r.z.ClosePath()
}

func (r *Raster) paint(c color.Color) {
	if c == nil {
		c = color.Black
	}
	r.z.DrawOp = draw.Over
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{})
}
