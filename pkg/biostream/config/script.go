package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadScript reads device initialization commands, one per line. Everything
// after a '#' is a comment and empty lines are skipped.
func LoadScript(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening init script: %w", err)
	}
	defer f.Close()

	var commands []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := scan.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line == "" {
			continue
		}
		commands = append(commands, line)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("reading init script: %w", err)
	}
	return commands, nil
}
