// annotations.go defines the annotation types and parser for the Oxy WGSL pre-processor.
// Annotations are single-line WGSL comments prefixed with @oxy: that inject shared struct
// sources and select the lines compiled into a shader variant.
package shader

import (
	"fmt"
	"slices"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source registered under a struct key.
	//
	// Syntax: //@oxy:include <struct_key>
	//
	// Example: //@oxy:include draw_uniforms
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeIf opens a block kept only when the named feature is enabled.
	// A leading "!" negates the test.
	//
	// Syntax: //@oxy:if <FEATURE> | //@oxy:if !<FEATURE>
	annotationTypeIf AnnotationType = "if"

	// annotationTypeElse flips the innermost open block.
	annotationTypeElse AnnotationType = "else"

	// annotationTypeEndIf closes the innermost open block.
	annotationTypeEndIf AnnotationType = "endif"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Arg holds the include key or feature name. Empty for else and endif.
	Arg string

	// Negate is true for "if !FEATURE".
	Negate bool

	// Line is the 1-based source line number.
	Line int
}

var annotationTypes = []AnnotationType{
	annotationTypeInclude,
	annotationTypeIf,
	annotationTypeElse,
	annotationTypeEndIf,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}
	kind := AnnotationType(args[0])
	if !slices.Contains(annotationTypes, kind) {
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}

	a := &Annotation{Type: kind, Line: lineNum}
	switch kind {
	case annotationTypeInclude, annotationTypeIf:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly one argument", lineNum, kind)
		}
		a.Arg = args[1]
		if kind == annotationTypeIf {
			a.Arg, a.Negate = strings.CutPrefix(a.Arg, "!")
			if _, ok := featureNames[a.Arg]; !ok {
				return nil, fmt.Errorf("line %d: unknown feature %q in @oxy if annotation", lineNum, a.Arg)
			}
		}
	default:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation takes no arguments", lineNum, kind)
		}
	}
	return a, nil
}
