package headless

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/1broseidon/xcomp/internal/platform"
)

// source returns the image a picture samples from. Window pictures are
// rendered from the window's current contents on every use, the way a named
// pixmap follows the window.
func (d *Display) source(p *picture) image.Image {
	switch {
	case p.solid != nil:
		return p.solid
	case p.window != 0:
		return d.windowImage(p.window)
	case p.repeat:
		return tiled{p.img}
	default:
		return p.img
	}
}

// windowImage paints the window's outer rectangle, border included, with its
// fill. Windows without an alpha channel are forced opaque.
func (d *Display) windowImage(id platform.WindowID) image.Image {
	w, ok := d.windows[id]
	if !ok {
		return image.NewUniform(color.Transparent)
	}
	outer := w.outer()
	img := image.NewRGBA(image.Rect(0, 0, outer.Width, outer.Height))
	fill := w.fill
	if !w.argb {
		fill.A = 0xff
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	return img
}

// tiled repeats an image across the whole plane.
type tiled struct {
	img *image.RGBA
}

func (t tiled) ColorModel() color.Model { return t.img.ColorModel() }

func (t tiled) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (t tiled) At(x, y int) color.Color {
	b := t.img.Bounds()
	if b.Empty() {
		return color.Transparent
	}
	x = b.Min.X + mod(x-b.Min.X, b.Dx())
	y = b.Min.Y + mod(y-b.Min.Y, b.Dy())
	return t.img.At(x, y)
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
