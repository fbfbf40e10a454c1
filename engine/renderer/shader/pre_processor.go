// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, injects registered struct sources, and keeps or drops conditional
// blocks according to the feature set of the variant being built.
package shader

import (
	"fmt"
	"strings"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include keys to WGSL source text.
	includes map[string]string
}

// PreProcessor turns annotated WGSL into the source of one shader variant.
type PreProcessor interface {
	// Register adds or replaces the WGSL source injected by "//@oxy:include key".
	//
	// Parameters:
	//   - key: the include key
	//   - source: the WGSL text to inject
	Register(key, source string)

	// Process resolves includes and conditional blocks for the given features.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//   - features: the enabled features
	//
	// Returns:
	//   - string: the WGSL source of the variant
	//   - error: an error if an annotation is malformed, an include is unknown, or blocks are unbalanced
	Process(source string, features Feature) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with no registered includes.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{includes: make(map[string]string)}
}

func (p *preProcessor) Register(key, source string) {
	p.includes[key] = source
}

// block tracks one open if/else. parentActive is whether the enclosing block emits lines.
type block struct {
	parentActive bool
	cond         bool
	inElse       bool
	line         int
}

func (b block) active() bool {
	if b.inElse {
		return b.parentActive && !b.cond
	}
	return b.parentActive && b.cond
}

func (p *preProcessor) Process(source string, features Feature) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []block

	emitting := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active()
	}

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			if emitting() {
				out = append(out, line)
			}
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if !emitting() {
				continue
			}
			src, ok := p.includes[a.Arg]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy include argument %q", a.Line, a.Arg)
			}
			out = append(out, src)
		case annotationTypeIf:
			cond := features.Has(featureNames[a.Arg])
			if a.Negate {
				cond = !cond
			}
			stack = append(stack, block{parentActive: emitting(), cond: cond, line: a.Line})
		case annotationTypeElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy else without matching if", a.Line)
			}
			top := &stack[len(stack)-1]
			if top.inElse {
				return "", fmt.Errorf("line %d: duplicate @oxy else for if on line %d", a.Line, top.line)
			}
			top.inElse = true
		case annotationTypeEndIf:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy endif without matching if", a.Line)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: unterminated @oxy if", stack[len(stack)-1].line)
	}
	return strings.Join(out, "\n"), nil
}
