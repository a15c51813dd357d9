package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// promptChoice prints a numbered menu and reads a selection from stdin.
// min is 0 when a "none" option is offered, 1 otherwise.
func promptChoice(label string, min, max int) (int, error) {
	fmt.Printf("\n%s (%d-%d): ", label, min, max)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("read selection: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid number: %q", strings.TrimSpace(line))
	}
	if choice < min || choice > max {
		return 0, fmt.Errorf("invalid choice: select a number between %d and %d", min, max)
	}
	return choice, nil
}

// firstLine truncates s to its first line, capped at n runes.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
