package drawchat

import (
	"fmt"
	"strings"
)

const digitAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ConvertBase rewrites a big-endian digit string from one base to another
// by repeated long division over the whole digit array, so inputs of any
// length convert exactly. Empty or all-zero input yields "0".
func ConvertBase(digits string, from, to int) (string, error) {
	if from < 2 || from > len(digitAlphabet) || to < 2 || to > len(digitAlphabet) {
		return "", fmt.Errorf("unsupported base conversion %d -> %d", from, to)
	}

	num := make([]int, 0, len(digits))
	for i := 0; i < len(digits); i++ {
		d := strings.IndexByte(digitAlphabet, lower(digits[i]))
		if d < 0 || d >= from {
			return "", fmt.Errorf("invalid digit %q for base %d", digits[i], from)
		}
		if len(num) == 0 && d == 0 {
			continue
		}
		num = append(num, d)
	}
	if len(num) == 0 {
		return "0", nil
	}

	// remainders come out least significant first
	var out []byte
	for len(num) > 0 {
		quotient := num[:0:0]
		rem := 0
		for _, d := range num {
			acc := rem*from + d
			q := acc / to
			rem = acc % to
			if len(quotient) > 0 || q > 0 {
				quotient = append(quotient, q)
			}
		}
		out = append(out, digitAlphabet[rem])
		num = quotient
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
