package action

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sp105e/led-command/pkg/protocol"
)

// Status asks the controller for a status report.
func Status() protocol.RequestStatus {
	return protocol.RequestStatus{}
}

// Hello starts the connection handshake.
func Hello() protocol.Hello {
	return protocol.Hello{}
}

// RawHex parses a hex string into a frame that is sent verbatim. Whitespace, colons and a leading
// "0x" are ignored, so "38 ff 00 80 1e" and "0x38ff00801e" are equivalent.
func RawHex(s string) (protocol.Raw, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return protocol.Raw{}, errors.New("raw frame is empty")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return protocol.Raw{}, fmt.Errorf("invalid raw frame: %w", err)
	}
	return protocol.Raw{Bytes: b}, nil
}
