package ora

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

const xmlHeader = "<?xml version='1.0' encoding='UTF-8'?>\n"

type ElementKind int

const (
	ElementStack ElementKind = iota
	ElementLayer
)

func (k ElementKind) String() string {
	if k == ElementLayer {
		return "layer"
	}
	return "stack"
}

// Element is a stack or layer node of stack.xml. Opacity is in [0, 1].
// Src, X and Y are meaningful for layers only; Children for stacks only.
type Element struct {
	Kind        ElementKind
	Src         string
	Name        string
	X, Y        int
	Opacity     float64
	Visible     bool
	CompositeOp string
	Children    []*Element

	// rawOp holds an unrecognized composite-op as read from the file.
	rawOp string
}

// Manifest is the parsed form of stack.xml. Root is the single top-level
// stack; its own attributes are read but never written.
type Manifest struct {
	Width, Height int
	Root          *Element
}

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

// ParseManifest parses stack.xml. Unknown elements and attributes are
// ignored and missing optional attributes take their defaults.
func ParseManifest(data []byte) (*Manifest, error) {
	return parseManifest(data, defaultLimits())
}

func parseManifest(data []byte, limits Limits) (*Manifest, error) {
	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if root.XMLName.Local != "image" {
		return nil, fmt.Errorf("%w: root element is %q, want image", ErrBadManifest, root.XMLName.Local)
	}
	attrs := attrMap(root.Attrs)
	w, err := requiredInt(attrs, "w")
	if err != nil {
		return nil, err
	}
	h, err := requiredInt(attrs, "h")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrBadManifest, w, h)
	}
	if w > limits.MaxDimension || h > limits.MaxDimension {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrLimitExceeded, w, h)
	}

	for i := range root.Nodes {
		if root.Nodes[i].XMLName.Local == "stack" {
			stack, err := parseElement(&root.Nodes[i], ElementStack, 1, limits)
			if err != nil {
				return nil, err
			}
			return &Manifest{Width: w, Height: h, Root: stack}, nil
		}
	}
	return nil, fmt.Errorf("%w: image has no stack", ErrBadManifest)
}

func parseElement(n *xmlNode, kind ElementKind, depth int, limits Limits) (*Element, error) {
	if depth > limits.MaxDepth {
		return nil, fmt.Errorf("%w: stack nesting deeper than %d", ErrLimitExceeded, limits.MaxDepth)
	}
	a := attrMap(n.Attrs)
	el := &Element{
		Kind:        kind,
		Name:        a["name"],
		Opacity:     1,
		Visible:     a["visibility"] != "hidden",
		CompositeOp: CompositeSrcOver,
	}
	if v, ok := a["opacity"]; ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: opacity %q", ErrBadManifest, v)
		}
		el.Opacity = math.Max(0, math.Min(1, f))
	}
	if op, ok := a["composite-op"]; ok {
		if IsKnownCompositeOp(op) {
			el.CompositeOp = op
		} else {
			el.rawOp = op
		}
	}

	if kind == ElementLayer {
		el.Src = a["src"]
		var err error
		if el.X, err = optionalInt(a, "x"); err != nil {
			return nil, err
		}
		if el.Y, err = optionalInt(a, "y"); err != nil {
			return nil, err
		}
		return el, nil
	}

	for i := range n.Nodes {
		child := &n.Nodes[i]
		var (
			c   *Element
			err error
		)
		switch child.XMLName.Local {
		case "stack":
			c, err = parseElement(child, ElementStack, depth+1, limits)
		case "layer":
			c, err = parseElement(child, ElementLayer, depth, limits)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		el.Children = append(el.Children, c)
	}
	return el, nil
}

// charsetReader lets manifests declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "" {
			m[a.Name.Local] = a.Value
		}
	}
	return m
}

func requiredInt(a map[string]string, name string) (int, error) {
	if _, ok := a[name]; !ok {
		return 0, fmt.Errorf("%w: missing attribute %s", ErrBadManifest, name)
	}
	return optionalInt(a, name)
}

func optionalInt(a map[string]string, name string) (int, error) {
	v, ok := a[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s=%q", ErrBadManifest, name, v)
	}
	return n, nil
}

// Bytes serializes the manifest as UTF-8 XML.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	fmt.Fprintf(&buf, `<image w="%d" h="%d">`, m.Width, m.Height)
	root := m.Root
	if root == nil {
		root = &Element{Kind: ElementStack}
	}
	writeElement(&buf, root, true)
	buf.WriteString("</image>")
	return buf.Bytes()
}

func writeElement(buf *bytes.Buffer, el *Element, root bool) {
	buf.WriteString("<" + el.Kind.String())
	if !root {
		if el.Kind == ElementLayer {
			writeAttr(buf, "src", el.Src)
		}
		writeAttr(buf, "name", el.Name)
		if el.Kind == ElementLayer {
			writeAttr(buf, "x", strconv.Itoa(el.X))
			writeAttr(buf, "y", strconv.Itoa(el.Y))
		}
		writeAttr(buf, "opacity", formatOpacity(el.Opacity))
		vis := "visible"
		if !el.Visible {
			vis = "hidden"
		}
		writeAttr(buf, "visibility", vis)
		op := el.CompositeOp
		if !IsKnownCompositeOp(op) {
			op = CompositeSrcOver
		}
		writeAttr(buf, "composite-op", op)
	}
	if el.Kind == ElementLayer || len(el.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	for _, c := range el.Children {
		writeElement(buf, c, false)
	}
	buf.WriteString("</" + el.Kind.String() + ">")
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteString(" " + name + `="`)
	xml.EscapeText(buf, []byte(value))
	buf.WriteString(`"`)
}

// formatOpacity writes the shortest decimal of v rounded to four places.
func formatOpacity(v float64) string {
	v = math.Round(math.Max(0, math.Min(1, v))*1e4) / 1e4
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type eventKind int

const (
	eventLayer eventKind = iota
	eventStack
	eventStackEnd
)

type event struct {
	kind eventKind
	el   *Element
}

// events walks the tree below the root stack depth first in document
// order. Each nested stack is followed, after its descendants, by an
// eventStackEnd.
func (m *Manifest) events() iter.Seq[event] {
	return func(yield func(event) bool) {
		if m.Root != nil {
			walkElements(m.Root.Children, yield)
		}
	}
}

func walkElements(els []*Element, yield func(event) bool) bool {
	for _, el := range els {
		if el.Kind == ElementLayer {
			if !yield(event{kind: eventLayer, el: el}) {
				return false
			}
			continue
		}
		if !yield(event{kind: eventStack, el: el}) {
			return false
		}
		if !walkElements(el.Children, yield) {
			return false
		}
		if !yield(event{kind: eventStackEnd, el: el}) {
			return false
		}
	}
	return true
}

// Layers returns every layer element in document order.
func (m *Manifest) Layers() []*Element {
	var out []*Element
	for ev := range m.events() {
		if ev.kind == eventLayer {
			out = append(out, ev.el)
		}
	}
	return out
}
