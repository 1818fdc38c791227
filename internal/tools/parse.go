package tools

import (
	"strings"
)

// Invocation is a tool-usage block extracted from free-text model output.
// Start and End are byte offsets of the entire matched block within the
// scanned text, so the caller can substitute the block with the result.
type Invocation struct {
	Name   string
	Params map[string]string
	Start  int
	End    int
}

const toolLinePrefix = "Tool:"

// ParseUsage scans free text for a tool-usage block.
//
// A block begins at a line starting with "Tool:"; the tool name is the
// remainder of that line, trimmed. Parameters are the subsequent lines
// containing both a ':' and a '-', up to the next blank line; each is split
// on the first ':' into a name (stripped of leading '-' and whitespace) and a
// value. A bare "Parameters:" label line is part of the block but carries no
// parameter.
//
// This is deliberately lenient free-text parsing: malformed input yields
// ok=false, never an error.
func ParseUsage(text string) (Invocation, bool) {
	inv := Invocation{Params: make(map[string]string)}

	offset := 0
	lines := strings.Split(text, "\n")
	toolLine := -1
	for i, line := range lines {
		if strings.HasPrefix(line, toolLinePrefix) {
			toolLine = i
			inv.Name = strings.TrimSpace(line[len(toolLinePrefix):])
			inv.Start = offset
			inv.End = offset + len(line)
			break
		}
		offset += len(line) + 1
	}
	if toolLine < 0 {
		return Invocation{}, false
	}

	// Extend the block over the parameter lines that follow
	end := inv.End
	for i := toolLine + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		isLabel := strings.TrimSpace(line) == "Parameters:"
		isParam := strings.Contains(line, ":") && strings.Contains(line, "-")
		if !isLabel && !isParam {
			break
		}
		end += 1 + len(line) // consume the preceding newline plus the line

		if isParam {
			name, value, _ := strings.Cut(line, ":")
			name = strings.TrimSpace(strings.ReplaceAll(name, "-", ""))
			if name != "" {
				inv.Params[name] = strings.TrimSpace(value)
			}
		}
	}
	inv.End = end

	return inv, true
}
