package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// Render joins words into .hack text, one binary word per line.
func Render(words []uint16) string {
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = FormatWord(w)
	}
	return strings.Join(lines, "\n")
}

// ParseHack reads .hack text back into machine words. Blank lines are
// ignored.
func ParseHack(text string) ([]uint16, error) {
	var words []uint16
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, fmt.Errorf("expected 16 binary digits on line %d, got %q", i+1, line)
		}
		w, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid machine word on line %d: %q", i+1, line)
		}
		words = append(words, uint16(w))
	}
	return words, nil
}
