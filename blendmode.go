package ora

import "github.com/logicossoftware/go-ora/host"

// CompositeSrcOver is the default composite-op.
const CompositeSrcOver = "svg:src-over"

var compositeOps = []struct {
	op   string
	mode host.Mode
}{
	{CompositeSrcOver, host.ModeNormal},
	{"svg:multiply", host.ModeMultiply},
	{"svg:screen", host.ModeScreen},
	{"svg:overlay", host.ModeOverlay},
	{"svg:darken", host.ModeDarkenOnly},
	{"svg:lighten", host.ModeLightenOnly},
	{"svg:color-dodge", host.ModeDodge},
	{"svg:color-burn", host.ModeBurn},
	{"svg:hard-light", host.ModeHardLight},
	{"svg:soft-light", host.ModeSoftLight},
	{"svg:difference", host.ModeDifference},
	{"svg:color", host.ModeColor},
	{"svg:luminosity", host.ModeValue},
	{"svg:hue", host.ModeHue},
	{"svg:saturation", host.ModeSaturation},
	{"svg:plus", host.ModeAddition},
}

var (
	modeByOp = make(map[string]host.Mode, len(compositeOps))
	opByMode = make(map[host.Mode]string, len(compositeOps))
)

func init() {
	for _, e := range compositeOps {
		modeByOp[e.op] = e.mode
		opByMode[e.mode] = e.op
	}
}

// ModeFromSVG returns the host blend mode for a composite-op attribute.
// Unknown names yield host.ModeNormal.
func ModeFromSVG(op string) host.Mode {
	if m, ok := modeByOp[op]; ok {
		return m
	}
	return host.ModeNormal
}

// SVGFromMode returns the composite-op for a host blend mode. Modes without
// an SVG counterpart yield CompositeSrcOver.
func SVGFromMode(m host.Mode) string {
	if op, ok := opByMode[m]; ok {
		return op
	}
	return CompositeSrcOver
}

// IsKnownCompositeOp reports whether op is one of the recognized names.
func IsKnownCompositeOp(op string) bool {
	_, ok := modeByOp[op]
	return ok
}
