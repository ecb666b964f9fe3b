package carto

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) text() string {
	return strings.TrimSpace(n.Content)
}

// attrReader collects the first error while reading typed attributes.
type attrReader struct {
	node *xmlNode
	err  error
}

func (r *attrReader) setErr(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s attribute %q: %w", r.node.XMLName.Local, name, err)
	}
}

func (r *attrReader) color(name string, target *Color) {
	if v, ok := r.node.attr(name); ok {
		c, err := ParseColor(v)
		if err != nil {
			r.setErr(name, err)
			return
		}
		*target = c
	}
}

func (r *attrReader) float(name string, target *float64) {
	if v, ok := r.node.attr(name); ok {
		f, err := parseFloat(v)
		if err != nil {
			r.setErr(name, err)
			return
		}
		*target = f
	}
}

func (r *attrReader) int(name string, target *int) {
	if v, ok := r.node.attr(name); ok {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			r.setErr(name, err)
			return
		}
		*target = i
	}
}

func (r *attrReader) bool(name string, target *bool) {
	if v, ok := r.node.attr(name); ok {
		b, err := parseBool(v)
		if err != nil {
			r.setErr(name, err)
			return
		}
		*target = b
	}
}

// LoadMap reads a style document from path into m. Relative datasource file
// parameters resolve against the document's directory.
func LoadMap(m *Map, path string, registry *DatasourceRegistry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read style document: %w", err)
	}

	return LoadMapString(m, data, filepath.Dir(path), registry)
}

// LoadMapString parses a style document. Width and height of m are kept;
// srs, background, styles and layers are taken from the document.
func LoadMapString(m *Map, data []byte, basePath string, registry *DatasourceRegistry) error {
	var root xmlNode
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return fmt.Errorf("failed to parse style document: %w", err)
	}

	if root.XMLName.Local != "Map" {
		return fmt.Errorf("failed to parse style document: root element is %q, expected Map", root.XMLName.Local)
	}

	attrs := &attrReader{node: &root}
	if srs, ok := root.attr("srs"); ok {
		m.SRS = srs
	}
	if _, ok := root.attr("background-color"); ok {
		var bg Color
		attrs.color("background-color", &bg)
		m.SetBackground(bg)
	}
	attrs.int("buffer-size", &m.BufferSize)
	if attrs.err != nil {
		return attrs.err
	}

	params := Parameters{}
	for i := range root.Children {
		child := &root.Children[i]
		if child.XMLName.Local != "Parameters" {
			continue
		}
		for j := range child.Children {
			p := &child.Children[j]
			if name, ok := p.attr("name"); ok {
				params[name] = p.text()
			}
		}
	}
	if base, ok := params["base"]; ok && base != "" {
		basePath = resolvePath(basePath, base)
	}

	for i := range root.Children {
		child := &root.Children[i]
		switch child.XMLName.Local {
		case "Style":
			name, style, err := parseStyle(child)
			if err != nil {
				return err
			}
			m.AppendStyle(name, style)
		case "Layer":
			layer, err := parseLayer(child, basePath, registry)
			if err != nil {
				return err
			}
			m.AddLayer(layer)
		}
	}

	return nil
}

func parseStyle(node *xmlNode) (string, *Style, error) {
	name, ok := node.attr("name")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("failed to parse style: missing name")
	}

	style := NewStyle()
	mode, _ := node.attr("filter-mode")
	filterMode, err := ParseFilterMode(mode)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse style %s: %w", name, err)
	}
	style.FilterMode = filterMode

	attrs := &attrReader{node: node}
	attrs.float("opacity", &style.Opacity)
	if attrs.err != nil {
		return "", nil, fmt.Errorf("failed to parse style %s: %w", name, attrs.err)
	}

	for i := range node.Children {
		child := &node.Children[i]
		if child.XMLName.Local != "Rule" {
			continue
		}

		rule, err := parseRule(child)
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse style %s: %w", name, err)
		}
		style.AddRule(rule)
	}

	return name, style, nil
}

func parseRule(node *xmlNode) (*Rule, error) {
	rule := NewRule()
	rule.Name, _ = node.attr("name")

	for i := range node.Children {
		child := &node.Children[i]

		switch child.XMLName.Local {
		case "Filter":
			if err := rule.SetFilter(child.text()); err != nil {
				return nil, err
			}
		case "ElseFilter":
			rule.ElseFilter = true
		case "MinScaleDenominator":
			v, err := parseFloat(child.text())
			if err != nil {
				return nil, fmt.Errorf("invalid MinScaleDenominator: %w", err)
			}
			rule.MinScaleDenominator = v
		case "MaxScaleDenominator":
			v, err := parseFloat(child.text())
			if err != nil {
				return nil, fmt.Errorf("invalid MaxScaleDenominator: %w", err)
			}
			rule.MaxScaleDenominator = v
		case "PolygonSymbolizer":
			sym, err := parsePolygonSymbolizer(child)
			if err != nil {
				return nil, err
			}
			rule.Append(sym)
		case "LineSymbolizer":
			sym, err := parseLineSymbolizer(child)
			if err != nil {
				return nil, err
			}
			rule.Append(sym)
		case "TextSymbolizer":
			sym, err := parseTextSymbolizer(child)
			if err != nil {
				return nil, err
			}
			rule.Append(sym)
		case "MarkersSymbolizer", "PointSymbolizer":
			sym, err := parseMarkersSymbolizer(child)
			if err != nil {
				return nil, err
			}
			rule.Append(sym)
		}
	}

	return rule, nil
}

func parsePolygonSymbolizer(node *xmlNode) (*PolygonSymbolizer, error) {
	sym := NewPolygonSymbolizer()
	attrs := &attrReader{node: node}
	attrs.color("fill", &sym.Fill)
	attrs.float("fill-opacity", &sym.FillOpacity)
	attrs.float("smooth", &sym.Smooth)
	return sym, attrs.err
}

func parseLineSymbolizer(node *xmlNode) (*LineSymbolizer, error) {
	sym := NewLineSymbolizer()
	attrs := &attrReader{node: node}
	attrs.color("stroke", &sym.Stroke)
	attrs.float("stroke-width", &sym.StrokeWidth)
	attrs.float("stroke-opacity", &sym.StrokeOpacity)
	attrs.float("smooth", &sym.Smooth)
	if attrs.err != nil {
		return nil, attrs.err
	}

	var err error
	if v, ok := node.attr("stroke-linecap"); ok {
		if sym.LineCap, err = ParseLineCap(v); err != nil {
			return nil, err
		}
	}
	if v, ok := node.attr("stroke-linejoin"); ok {
		if sym.LineJoin, err = ParseLineJoin(v); err != nil {
			return nil, err
		}
	}
	if v, ok := node.attr("stroke-dasharray"); ok {
		if sym.DashArray, err = ParseDashArray(v); err != nil {
			return nil, err
		}
	}

	return sym, nil
}

func parseTextSymbolizer(node *xmlNode) (*TextSymbolizer, error) {
	name := node.text()
	if v, ok := node.attr("name"); ok && name == "" {
		name = v
	}
	if name == "" {
		return nil, fmt.Errorf("failed to parse TextSymbolizer: missing name expression")
	}

	sym, err := NewTextSymbolizer(name)
	if err != nil {
		return nil, err
	}

	attrs := &attrReader{node: node}
	attrs.float("size", &sym.Size)
	attrs.color("fill", &sym.Fill)
	attrs.color("halo-fill", &sym.HaloFill)
	attrs.float("halo-radius", &sym.HaloRadius)
	attrs.float("dx", &sym.Dx)
	attrs.float("dy", &sym.Dy)
	attrs.bool("allow-overlap", &sym.AllowOverlap)
	attrs.bool("avoid-edges", &sym.AvoidEdges)
	attrs.float("minimum-padding", &sym.MinimumPadding)
	attrs.float("minimum-distance", &sym.MinimumDistance)
	attrs.float("opacity", &sym.Opacity)
	return sym, attrs.err
}

func parseMarkersSymbolizer(node *xmlNode) (*MarkersSymbolizer, error) {
	sym := NewMarkersSymbolizer()
	attrs := &attrReader{node: node}
	attrs.color("fill", &sym.Fill)
	attrs.color("stroke", &sym.Stroke)
	attrs.float("stroke-width", &sym.StrokeWidth)
	attrs.float("width", &sym.Width)
	attrs.float("height", &sym.Height)
	attrs.float("opacity", &sym.Opacity)
	attrs.bool("allow-overlap", &sym.AllowOverlap)
	if _, ok := node.attr("height"); !ok {
		sym.Height = sym.Width
	}
	return sym, attrs.err
}

func parseLayer(node *xmlNode, basePath string, registry *DatasourceRegistry) (*Layer, error) {
	name, _ := node.attr("name")
	srs, _ := node.attr("srs")
	layer := NewLayer(name, srs)

	attrs := &attrReader{node: node}
	if v, ok := node.attr("status"); ok {
		active, err := parseBool(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layer %s: %w", name, err)
		}
		layer.Active = active
	}
	attrs.float("minimum-scale-denominator", &layer.MinScaleDenominator)
	attrs.float("maximum-scale-denominator", &layer.MaxScaleDenominator)
	if attrs.err != nil {
		return nil, fmt.Errorf("failed to parse layer %s: %w", name, attrs.err)
	}
	if math.IsInf(layer.MaxScaleDenominator, 1) {
		layer.MaxScaleDenominator = 0
	}

	for i := range node.Children {
		child := &node.Children[i]

		switch child.XMLName.Local {
		case "StyleName":
			layer.AddStyle(child.text())
		case "Datasource":
			params := Parameters{}
			for j := range child.Children {
				p := &child.Children[j]
				if p.XMLName.Local != "Parameter" {
					continue
				}
				if key, ok := p.attr("name"); ok {
					params[key] = p.text()
				}
			}

			if file, ok := params["file"]; ok {
				base := basePath
				if b, ok := params["base"]; ok && b != "" {
					base = resolvePath(basePath, b)
				}
				params["file"] = resolvePath(base, file)
			}

			if registry == nil {
				return nil, fmt.Errorf("failed to parse layer %s: no datasource registry", name)
			}

			ds, err := registry.Create(params)
			if err != nil {
				return nil, fmt.Errorf("failed to parse layer %s: %w", name, err)
			}
			layer.Datasource = ds
		}
	}

	return layer, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
