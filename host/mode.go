package host

// Mode is a layer blend mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDissolve
	ModeMultiply
	ModeScreen
	ModeOverlay
	ModeDifference
	ModeAddition
	ModeSubtract
	ModeDarkenOnly
	ModeLightenOnly
	ModeHue
	ModeSaturation
	ModeColor
	ModeValue
	ModeDivide
	ModeDodge
	ModeBurn
	ModeHardLight
	ModeSoftLight
	ModeGrainExtract
	ModeGrainMerge
	ModeExclusion
	ModePassThrough
)

var modeNames = [...]string{
	ModeNormal:       "normal",
	ModeDissolve:     "dissolve",
	ModeMultiply:     "multiply",
	ModeScreen:       "screen",
	ModeOverlay:      "overlay",
	ModeDifference:   "difference",
	ModeAddition:     "addition",
	ModeSubtract:     "subtract",
	ModeDarkenOnly:   "darken-only",
	ModeLightenOnly:  "lighten-only",
	ModeHue:          "hue",
	ModeSaturation:   "saturation",
	ModeColor:        "color",
	ModeValue:        "value",
	ModeDivide:       "divide",
	ModeDodge:        "dodge",
	ModeBurn:         "burn",
	ModeHardLight:    "hard-light",
	ModeSoftLight:    "soft-light",
	ModeGrainExtract: "grain-extract",
	ModeGrainMerge:   "grain-merge",
	ModeExclusion:    "exclusion",
	ModePassThrough:  "pass-through",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}
