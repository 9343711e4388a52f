package dom

import (
	"strconv"
	"strings"
)

// Style returns the value of an inline style property.
func (e *Element) Style(prop string) string {
	for _, decl := range e.styleDecls() {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets an inline style property. An empty value removes it.
func (e *Element) SetStyle(prop, val string) *Element {
	decls := e.styleDecls()
	found := false
	out := decls[:0]
	for _, decl := range decls {
		if decl[0] == prop {
			found = true
			if val == "" {
				continue
			}
			decl[1] = val
		}
		out = append(out, decl)
	}
	if !found && val != "" {
		out = append(out, [2]string{prop, val})
	}
	if len(out) == 0 {
		return e.RemoveAttr("style")
	}
	parts := make([]string, len(out))
	for i, decl := range out {
		parts[i] = decl[0] + ": " + decl[1]
	}
	return e.SetAttr("style", strings.Join(parts, "; "))
}

// Width returns the measured width in pixels: the inline style width, then
// the width attribute, else 0.
func (e *Element) Width() float64 {
	return e.measure("width")
}

// Height returns the measured height in pixels, measured like Width.
func (e *Element) Height() float64 {
	return e.measure("height")
}

// SetWidth sets the inline width in pixels. Negative values are clamped to 0.
func (e *Element) SetWidth(px float64) *Element {
	return e.SetStyle("width", formatPx(px))
}

// SetHeight sets the inline height in pixels. Negative values are clamped to 0.
func (e *Element) SetHeight(px float64) *Element {
	return e.SetStyle("height", formatPx(px))
}

func (e *Element) measure(prop string) float64 {
	if v, ok := parsePx(e.Style(prop)); ok {
		return v
	}
	if a, ok := e.Attr(prop); ok {
		if v, ok := parsePx(a); ok {
			return v
		}
	}
	return 0
}

func (e *Element) styleDecls() [][2]string {
	raw, _ := e.Attr("style")
	var decls [][2]string
	for _, part := range strings.Split(raw, ";") {
		name, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		val = strings.TrimSpace(val)
		if name == "" {
			continue
		}
		decls = append(decls, [2]string{name, val})
	}
	return decls
}

func parsePx(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func formatPx(px float64) string {
	if px < 0 {
		px = 0
	}
	return strconv.FormatFloat(px, 'f', -1, 64) + "px"
}
