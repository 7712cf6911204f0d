package content

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
)

// ErrNotText is returned when a decoded payload is not valid UTF-8.
var ErrNotText = errors.New("payload is not valid UTF-8 text")

// DecodeRepoBytes reverses the base64 transport encoding of the contents API.
// The API wraps the encoded payload at 60 columns, so whitespace is ignored.
func DecodeRepoBytes(raw []byte) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, string(raw))

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	if !utf8.Valid(decoded) {
		return "", ErrNotText
	}
	return string(decoded), nil
}

// FileText returns the UTF-8 text of a repository file, decoding the transport
// envelope when the file carries one.
func FileText(f *remotestore.RepoFile) (string, error) {
	if f == nil {
		return "", fmt.Errorf("nil repository file")
	}

	switch f.Encoding {
	case "base64":
		text, err := DecodeRepoBytes(f.Raw)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.Path, err)
		}
		return text, nil
	case "", "none", "utf-8":
		if !utf8.Valid(f.Raw) {
			return "", fmt.Errorf("%s: %w", f.Path, ErrNotText)
		}
		return string(f.Raw), nil
	default:
		return "", fmt.Errorf("%s: unsupported content encoding %q", f.Path, f.Encoding)
	}
}
