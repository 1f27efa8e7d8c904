// Package util provides string helpers for command input.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArgs trims quotes and unescapes doubled quotes in place.
func CleanArgs(args []string) []string {
	for i, v := range args {
		args[i] = FixEscapeQuotes(TrimQuotes(strings.TrimSpace(v)))
	}
	return args
}

// ParseCommandLine splits a line such as `:ORIGIN:SET: 2.35 48.85` into
// the command and its arguments. The command must start and end with a
// colon. ok is false for blank lines and lines that are not commands.
func ParseCommandLine(line string) (command string, args []string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	command = strings.ToUpper(fields[0])
	if len(command) < 2 || command[0] != ':' || command[len(command)-1] != ':' {
		return "", nil, false
	}
	return command, CleanArgs(fields[1:]), true
}

// ParseFloats parses every argument as a float64.
func ParseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q) is not a number: %w", i, a, err)
		}
		out[i] = v
	}
	return out, nil
}
