package memhost

import (
	"math"

	"github.com/logicossoftware/go-ora/host"
)

// Blend functions follow W3C Compositing and Blending Level 1. Channel
// values are straight (unpremultiplied) in [0, 1]; b is the backdrop and s
// the source.

type rgb [3]float64

func separable(f func(b, s float64) float64) func(b, s rgb) rgb {
	return func(b, s rgb) rgb {
		return rgb{f(b[0], s[0]), f(b[1], s[1]), f(b[2], s[2])}
	}
}

func multiply(b, s float64) float64 { return b * s }
func screen(b, s float64) float64   { return b + s - b*s }

func hardLight(b, s float64) float64 {
	if s <= 0.5 {
		return multiply(b, 2*s)
	}
	return screen(b, 2*s-1)
}

func softLight(b, s float64) float64 {
	if s <= 0.5 {
		return b - (1-2*s)*b*(1-b)
	}
	var d float64
	if b <= 0.25 {
		d = ((16*b-12)*b + 4) * b
	} else {
		d = math.Sqrt(b)
	}
	return b + (2*s-1)*(d-b)
}

func colorDodge(b, s float64) float64 {
	switch {
	case b == 0:
		return 0
	case s >= 1:
		return 1
	}
	return math.Min(1, b/(1-s))
}

func colorBurn(b, s float64) float64 {
	switch {
	case b >= 1:
		return 1
	case s <= 0:
		return 0
	}
	return 1 - math.Min(1, (1-b)/s)
}

func divide(b, s float64) float64 {
	if s <= 0 {
		if b <= 0 {
			return 0
		}
		return 1
	}
	return math.Min(1, b/s)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

var blendFuncs = map[host.Mode]func(b, s rgb) rgb{
	host.ModeMultiply:     separable(multiply),
	host.ModeScreen:       separable(screen),
	host.ModeOverlay:      separable(func(b, s float64) float64 { return hardLight(s, b) }),
	host.ModeDarkenOnly:   separable(math.Min),
	host.ModeLightenOnly:  separable(math.Max),
	host.ModeDodge:        separable(colorDodge),
	host.ModeBurn:         separable(colorBurn),
	host.ModeHardLight:    separable(hardLight),
	host.ModeSoftLight:    separable(softLight),
	host.ModeDifference:   separable(func(b, s float64) float64 { return math.Abs(b - s) }),
	host.ModeExclusion:    separable(func(b, s float64) float64 { return b + s - 2*b*s }),
	host.ModeSubtract:     separable(func(b, s float64) float64 { return math.Max(0, b-s) }),
	host.ModeDivide:       separable(divide),
	host.ModeGrainExtract: separable(func(b, s float64) float64 { return clamp01(b - s + 0.5) }),
	host.ModeGrainMerge:   separable(func(b, s float64) float64 { return clamp01(b + s - 0.5) }),
	host.ModeHue: func(b, s rgb) rgb {
		return setLum(setSat(s, sat(b)), lum(b))
	},
	host.ModeSaturation: func(b, s rgb) rgb {
		return setLum(setSat(b, sat(s)), lum(b))
	},
	host.ModeColor: func(b, s rgb) rgb {
		return setLum(s, lum(b))
	},
	host.ModeValue: func(b, s rgb) rgb {
		return setLum(b, lum(s))
	},
}

func lum(c rgb) float64 { return 0.3*c[0] + 0.59*c[1] + 0.11*c[2] }

func sat(c rgb) float64 {
	return math.Max(c[0], math.Max(c[1], c[2])) - math.Min(c[0], math.Min(c[1], c[2]))
}

func clipColor(c rgb) rgb {
	l := lum(c)
	n := math.Min(c[0], math.Min(c[1], c[2]))
	x := math.Max(c[0], math.Max(c[1], c[2]))
	if n < 0 {
		for i := range c {
			c[i] = l + (c[i]-l)*l/(l-n)
		}
	}
	if x > 1 {
		for i := range c {
			c[i] = l + (c[i]-l)*(1-l)/(x-l)
		}
	}
	return c
}

func setLum(c rgb, l float64) rgb {
	d := l - lum(c)
	return clipColor(rgb{c[0] + d, c[1] + d, c[2] + d})
}

func setSat(c rgb, s float64) rgb {
	imax, imin := 0, 0
	for i := 1; i < 3; i++ {
		if c[i] > c[imax] {
			imax = i
		}
		if c[i] < c[imin] {
			imin = i
		}
	}
	if imax == imin {
		return rgb{}
	}
	imid := 3 - imax - imin
	var out rgb
	out[imid] = (c[imid] - c[imin]) * s / (c[imax] - c[imin])
	out[imax] = s
	return out
}

// compositePixel blends a straight source pixel (s, sa) onto the
// premultiplied backdrop dst in place.
func compositePixel(dst []float64, s rgb, sa float64, mode host.Mode) {
	if sa <= 0 {
		return
	}
	ba := dst[3]
	if mode == host.ModeAddition {
		for i := 0; i < 3; i++ {
			dst[i] = math.Min(1, dst[i]+s[i]*sa)
		}
		dst[3] = math.Min(1, ba+sa)
		return
	}

	mix := s
	if f, ok := blendFuncs[mode]; ok && ba > 0 {
		var b rgb
		for i := 0; i < 3; i++ {
			b[i] = dst[i] / ba
		}
		mix = f(b, s)
	}
	for i := 0; i < 3; i++ {
		dst[i] = (1-ba)*sa*s[i] + (1-sa)*dst[i] + sa*ba*mix[i]
	}
	dst[3] = sa + ba*(1-sa)
}
