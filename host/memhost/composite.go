package memhost

import (
	"image"
	"math"

	"github.com/logicossoftware/go-ora/host"
)

// canvas is a premultiplied float RGBA buffer covering rect.
type canvas struct {
	rect image.Rectangle
	pix  []float64
}

func newCanvas(r image.Rectangle) *canvas {
	return &canvas{rect: r, pix: make([]float64, 4*r.Dx()*r.Dy())}
}

func (c *canvas) at(x, y int) []float64 {
	i := 4 * ((y-c.rect.Min.Y)*c.rect.Dx() + (x - c.rect.Min.X))
	return c.pix[i : i+4 : i+4]
}

// render composites items, given topmost first, onto c.
func (c *canvas) render(items []host.Item) {
	for i := len(items) - 1; i >= 0; i-- {
		if !items[i].Visible() {
			continue
		}
		switch it := items[i].(type) {
		case *Layer:
			c.drawLayer(it)
		case *Group:
			sub := newCanvas(c.rect)
			sub.render(it.children)
			c.drawCanvas(sub, it.opacity/100, it.mode)
		}
	}
}

func (c *canvas) drawLayer(l *Layer) {
	r := l.canvasBounds().Intersect(c.rect)
	op := l.opacity / 100
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := nrgba64At(l.pix, x-l.x, y-l.y)
			s := rgb{float64(p.R) / 0xffff, float64(p.G) / 0xffff, float64(p.B) / 0xffff}
			compositePixel(c.at(x, y), s, float64(p.A)/0xffff*op, l.mode)
		}
	}
}

func (c *canvas) drawCanvas(src *canvas, opacity float64, mode host.Mode) {
	for y := c.rect.Min.Y; y < c.rect.Max.Y; y++ {
		for x := c.rect.Min.X; x < c.rect.Max.X; x++ {
			p := src.at(x, y)
			if p[3] <= 0 {
				continue
			}
			s := rgb{p[0] / p[3], p[1] / p[3], p[2] / p[3]}
			compositePixel(c.at(x, y), s, p[3]*opacity, mode)
		}
	}
}

// toLayer converts the canvas to a layer of the given precision placed at
// the canvas origin.
func (c *canvas) toLayer(name string, p host.Precision) *Layer {
	r := image.Rect(0, 0, c.rect.Dx(), c.rect.Dy())
	w := 4 * r.Dx()
	l := &Layer{attrs: defaultAttrs(name), x: c.rect.Min.X, y: c.rect.Min.Y}
	if p == host.PrecisionU16Gamma {
		dst := image.NewNRGBA64(r)
		for i := 0; i < len(c.pix); i += 4 {
			px := straight(c.pix[i : i+4])
			o := (i/w)*dst.Stride + (i%w)*2
			for k, v := range px {
				q := uint16(math.Round(v * 0xffff))
				dst.Pix[o+2*k] = uint8(q >> 8)
				dst.Pix[o+2*k+1] = uint8(q)
			}
		}
		l.pix = dst
		return l
	}
	dst := image.NewNRGBA(r)
	for i := 0; i < len(c.pix); i += 4 {
		px := straight(c.pix[i : i+4])
		o := (i/w)*dst.Stride + i%w
		for k, v := range px {
			dst.Pix[o+k] = uint8(math.Round(v * 0xff))
		}
	}
	l.pix = dst
	return l
}

func straight(p []float64) [4]float64 {
	a := clamp01(p[3])
	if a == 0 {
		return [4]float64{}
	}
	return [4]float64{clamp01(p[0] / a), clamp01(p[1] / a), clamp01(p[2] / a), a}
}

// visibleBounds is the union of the visible layers reachable through
// visible groups.
func visibleBounds(items []host.Item) image.Rectangle {
	var r image.Rectangle
	for _, it := range items {
		if !it.Visible() {
			continue
		}
		switch v := it.(type) {
		case *Layer:
			r = r.Union(v.canvasBounds())
		case *Group:
			r = r.Union(visibleBounds(v.children))
		}
	}
	return r
}
