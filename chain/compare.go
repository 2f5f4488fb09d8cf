package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// Compare evaluates `actual <comparator> threshold` where threshold is a
// decimal or 0x-prefixed integer.
func Compare(actual *big.Int, comparator, threshold string) (bool, error) {
	want, ok := parseInt(threshold)
	if !ok {
		return false, fmt.Errorf("invalid threshold %q", threshold)
	}

	cmp := actual.Cmp(want)
	switch comparator {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparator %q", comparator)
	}
}

func parseInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
