package shader

import (
	"fmt"
	"strings"
)

// directive keywords recognized at the start of a trimmed source line.
const (
	directiveIfdef  = "#ifdef"
	directiveIfndef = "#ifndef"
	directiveElse   = "#else"
	directiveEndif  = "#endif"
)

// conditionalFrame tracks one open #ifdef/#ifndef block.
type conditionalFrame struct {
	parentActive bool
	taken        bool
	seenElse     bool
	line         int
}

// preProcess resolves #ifdef/#ifndef/#else/#endif blocks against defs. Directive lines and
// inactive lines are replaced with empty lines so reported line numbers still match the file.
//
// Parameters:
//   - source: the raw WGSL source
//   - defs: the shader defs that are set
//
// Returns:
//   - string: the processed source
//   - error: error on a malformed or unbalanced directive
func preProcess(source string, defs map[string]struct{}) (string, error) {
	var sb strings.Builder
	sb.Grow(len(source))

	var stack []conditionalFrame
	active := true

	for i, line := range strings.Split(source, "\n") {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if i > 0 {
			sb.WriteByte('\n')
		}

		if !strings.HasPrefix(trimmed, "#") {
			if active {
				sb.WriteString(line)
			}
			continue
		}

		fields := strings.Fields(trimmed)
		switch fields[0] {
		case directiveIfdef, directiveIfndef:
			if len(fields) != 2 {
				return "", fmt.Errorf("line %d: %s expects exactly one name", lineNum, fields[0])
			}
			_, set := defs[fields[1]]
			cond := set == (fields[0] == directiveIfdef)
			stack = append(stack, conditionalFrame{parentActive: active, taken: cond, line: lineNum})
			active = active && cond
		case directiveElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #ifdef", lineNum)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("line %d: duplicate #else for block opened on line %d", lineNum, top.line)
			}
			top.seenElse = true
			active = top.parentActive && !top.taken
		case directiveEndif:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #ifdef", lineNum)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		default:
			return "", fmt.Errorf("line %d: unknown directive %q", lineNum, fields[0])
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: unterminated %s block", stack[len(stack)-1].line, directiveIfdef)
	}
	return sb.String(), nil
}

// defsKey returns the canonical cache key of a sorted, de-duplicated def list.
func defsKey(defs []string) string {
	return strings.Join(defs, ",")
}
