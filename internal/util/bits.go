package util

import (
	"fmt"
	"strconv"
)

// BitIndices returns the positions of all '1' characters in a bitstring,
// in left-to-right order. It returns an error if the string contains
// anything but '0' and '1'.
func BitIndices(s string) ([]int, error) {
	var indices []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			indices = append(indices, i)
		case '0':
		default:
			return nil, fmt.Errorf("invalid bitstring character %q at position %d", s[i], i)
		}
	}

	return indices, nil
}

// BitValue parses a bitstring as an unsigned binary number, the leftmost
// character being the most significant bit.
func BitValue(s string) (uint64, error) {
	return strconv.ParseUint(s, 2, 64)
}
