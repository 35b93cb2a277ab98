// Package objio round-trips part geometry through a Wavefront-OBJ
// subset: `v x y z` vertex lines and `f a b c` face lines (1-indexed).
// Non-geometric state — part name, attribute values, connection
// points, metadata — travels in annotation comment lines with a
// strict, versioned grammar:
//
//	# purlin:1 part <name>
//	# purlin:1 attr <name> <value>
//	# purlin:1 conn <x> <y> <z> <radius>
//	# purlin:1 meta <key> <value...>
//
// A standards-compliant OBJ reader that strips comments sees plain
// valid geometry; a purlin reader recovers the full structured
// document. Decode(Encode(doc)) yields an identical document.
package objio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/purlin/pkg/geometry"
)

// annotationPrefix marks a structured comment line. The version digit
// is part of the grammar: readers reject versions they do not know.
const annotationPrefix = "# purlin:1 "

// AttributeState is one attribute's value at serialization time.
type AttributeState struct {
	Name  string
	Value float64
}

// Connection is a serialized connection point.
type Connection struct {
	Position v3.Vec
	Radius   float64
}

// MetaEntry is one free-form metadata key/value pair.
type MetaEntry struct {
	Key   string
	Value string
}

// Document is the full structured content of one part file.
type Document struct {
	Name        string
	Mesh        geometry.Mesh
	Attributes  []AttributeState
	Connections []Connection
	Meta        []MetaEntry
}

// fmtFloat renders a float so that parsing it back yields the exact
// same bits, which is what makes round-tripping byte-stable.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Encode writes the document. Annotations come first, then vertices,
// then faces, in a fixed order so output is deterministic.
func Encode(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	if doc.Name != "" {
		fmt.Fprintf(bw, "%spart %s\n", annotationPrefix, doc.Name)
	}
	for _, a := range doc.Attributes {
		fmt.Fprintf(bw, "%sattr %s %s\n", annotationPrefix, a.Name, fmtFloat(a.Value))
	}
	for _, c := range doc.Connections {
		fmt.Fprintf(bw, "%sconn %s %s %s %s\n", annotationPrefix,
			fmtFloat(c.Position.X), fmtFloat(c.Position.Y), fmtFloat(c.Position.Z), fmtFloat(c.Radius))
	}
	for _, m := range doc.Meta {
		fmt.Fprintf(bw, "%smeta %s %s\n", annotationPrefix, m.Key, m.Value)
	}

	for _, v := range doc.Mesh.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", fmtFloat(v.X), fmtFloat(v.Y), fmtFloat(v.Z))
	}
	for _, f := range doc.Mesh.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return bw.Flush()
}

// Decode reads a document. Plain comments are ignored; annotation
// lines must parse exactly. Geometry lines other than v and f are
// ignored, which lets files produced by generic OBJ tools (normals,
// groups) pass through.
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, annotationPrefix):
			if err := decodeAnnotation(doc, strings.TrimPrefix(line, annotationPrefix)); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		case strings.HasPrefix(line, "# purlin:"):
			return nil, fmt.Errorf("line %d: unsupported annotation version", lineNo)
		case strings.HasPrefix(line, "#"):
			continue // plain comment
		case strings.HasPrefix(line, "v "):
			v, err := parseVec(strings.Fields(line)[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			doc.Mesh.Vertices = append(doc.Mesh.Vertices, v)
		case strings.HasPrefix(line, "f "):
			f, err := parseFace(strings.Fields(line)[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: face: %w", lineNo, err)
			}
			doc.Mesh.Faces = append(doc.Mesh.Faces, f)
		default:
			continue // other OBJ directives (vn, g, o, ...) pass through
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := doc.Mesh.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeAnnotation(doc *Document, rest string) error {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("empty annotation")
	}
	switch fields[0] {
	case "part":
		if len(fields) < 2 {
			return fmt.Errorf("part annotation needs a name")
		}
		doc.Name = strings.TrimSpace(strings.TrimPrefix(rest, "part"))
		return nil
	case "attr":
		if len(fields) != 3 {
			return fmt.Errorf("attr annotation needs a name and a value")
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("attr %s: %w", fields[1], err)
		}
		doc.Attributes = append(doc.Attributes, AttributeState{Name: fields[1], Value: v})
		return nil
	case "conn":
		if len(fields) != 5 {
			return fmt.Errorf("conn annotation needs x y z radius")
		}
		p, err := parseVec(fields[1:4])
		if err != nil {
			return err
		}
		radius, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return fmt.Errorf("conn radius: %w", err)
		}
		doc.Connections = append(doc.Connections, Connection{Position: p, Radius: radius})
		return nil
	case "meta":
		if len(fields) < 3 {
			return fmt.Errorf("meta annotation needs a key and a value")
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(rest, "meta")), fields[1]))
		doc.Meta = append(doc.Meta, MetaEntry{Key: fields[1], Value: value})
		return nil
	default:
		return fmt.Errorf("unknown annotation directive %q", fields[0])
	}
}

func parseVec(fields []string) (v3.Vec, error) {
	if len(fields) != 3 {
		return v3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v3.Vec{}, err
		}
		out[i] = v
	}
	return v3.Vec{X: out[0], Y: out[1], Z: out[2]}, nil
}

func parseFace(fields []string) (geometry.Face, error) {
	if len(fields) != 3 {
		return geometry.Face{}, fmt.Errorf("expected 3 indices, got %d", len(fields))
	}
	var out geometry.Face
	for i, f := range fields {
		// Tolerate the v/vt/vn form emitted by generic exporters.
		if slash := strings.IndexByte(f, '/'); slash >= 0 {
			f = f[:slash]
		}
		idx, err := strconv.Atoi(f)
		if err != nil {
			return geometry.Face{}, err
		}
		if idx < 1 {
			return geometry.Face{}, fmt.Errorf("face index %d is not positive", idx)
		}
		out[i] = idx - 1 // OBJ is 1-indexed
	}
	return out, nil
}
