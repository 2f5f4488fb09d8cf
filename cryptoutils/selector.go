package cryptoutils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrorSelector returns the 4-byte selector of a custom error signature such
// as "NotCreator()". A bare name is treated as a parameterless error.
func ErrorSelector(signature string) [4]byte {
	if !strings.Contains(signature, "(") {
		signature += "()"
	}
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// ParseSelector decodes a 0x-prefixed 4-byte hex selector.
func ParseSelector(s string) ([4]byte, error) {
	var sel [4]byte
	raw, err := hexutil.Decode(s)
	if err != nil {
		return sel, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	if len(raw) < 4 {
		return sel, fmt.Errorf("invalid selector %q: need 4 bytes", s)
	}
	copy(sel[:], raw[:4])
	return sel, nil
}

// SelectorMatch is one candidate signature and its selector.
type SelectorMatch struct {
	Signature string
	Selector  string
}

// MatchSelector computes the selector of each name in order and stops at the
// first match. All computed candidates are returned for display.
func MatchSelector(selector [4]byte, names []string) (match string, candidates []SelectorMatch, found bool) {
	for _, name := range names {
		signature := name
		if !strings.Contains(signature, "(") {
			signature += "()"
		}
		sel := ErrorSelector(signature)
		candidates = append(candidates, SelectorMatch{Signature: signature, Selector: hexutil.Encode(sel[:])})
		if bytes.Equal(sel[:], selector[:]) {
			return signature, candidates, true
		}
	}
	return "", candidates, false
}

// MatchABIErrors looks selector up among the custom errors declared in a JSON ABI.
func MatchABIErrors(selector [4]byte, abiJSON io.Reader) (string, bool, error) {
	parsed, err := abi.JSON(abiJSON)
	if err != nil {
		return "", false, fmt.Errorf("could not parse ABI: %w", err)
	}
	for _, abiErr := range parsed.Errors {
		if bytes.Equal(abiErr.ID[:4], selector[:]) {
			return abiErr.Sig, true, nil
		}
	}
	return "", false, nil
}
