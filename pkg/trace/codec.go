package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Write encodes levels as run-length text: one "<0|1> <count>" pair
// per line.
func Write(w io.Writer, levels []bool) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < len(levels); {
		j := i
		for j < len(levels) && levels[j] == levels[i] {
			j++
		}
		lvl := 0
		if levels[i] {
			lvl = 1
		}
		if _, err := fmt.Fprintf(bw, "%d %d\n", lvl, j-i); err != nil {
			return err
		}
		i = j
	}
	return bw.Flush()
}

// Read parses run-length text back into per-sample levels. Blank
// lines and lines starting with # are skipped.
func Read(r io.Reader) ([]bool, error) {
	var levels []bool
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("trace: line %d: expect \"<0|1> <count>\"", lineNo)
		}
		var level bool
		switch fields[0] {
		case "0":
		case "1":
			level = true
		default:
			return nil, fmt.Errorf("trace: line %d: invalid level %q", lineNo, fields[0])
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil || count < 1 {
			return nil, fmt.Errorf("trace: line %d: invalid count %q", lineNo, fields[1])
		}
		for i := 0; i < count; i++ {
			levels = append(levels, level)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return levels, nil
}
