package gcode

import (
	"fmt"
	"strconv"
)

// Parser handles G-code parsing
type Parser struct{}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line of G-code. Blank lines yield a nil command,
// comment-only lines a command with Type 0.
func (p *Parser) ParseLine(line string) (*Command, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	// Command letter and number
	if c := toUpper(line[i]); c == 'G' || c == 'M' || c == 'T' {
		num, next := scanNumber(line, i+1)
		n, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("invalid command number %q in %q", num, line)
		}
		cmd.Type = c
		cmd.Number = n
		i = next
	}

	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			break
		}

		if line[i] == ';' || line[i] == '(' {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, fmt.Errorf("unexpected %q at column %d in %q", line[i], i+1, line)
		}

		letter := toUpper(line[i])
		num, next := scanNumber(line, i+1)
		value, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %c in %q", num, letter, line)
		}
		cmd.Parameters[letter] = value
		i = next
	}

	return cmd, nil
}

// scanNumber returns the numeric text starting at pos and the index after it
func scanNumber(s string, pos int) (string, int) {
	start := pos
	if pos < len(s) && (s[pos] == '-' || s[pos] == '+') {
		pos++
	}
	for pos < len(s) && (isDigit(s[pos]) || s[pos] == '.') {
		pos++
	}
	return s[start:pos], pos
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\r' || s[pos] == '\n') {
		pos++
	}
	return pos
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
