package workflow

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
	"unicode/utf8"
)

// maxPreviewSize bounds payloads echoed to the terminal.
const maxPreviewSize = 1000

// FormatPayload pretty-prints JSON payloads. Anything else is returned as-is.
func FormatPayload(contentType string, data []byte) []byte {
	if !isJSON(contentType, data) {
		return data
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return data
	}
	return buf.Bytes()
}

// Preview returns data as text when it is short valid UTF-8.
func Preview(data []byte) (string, bool) {
	if len(data) == 0 || len(data) >= maxPreviewSize || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func isJSON(contentType string, data []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
			return json.Valid(data)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}
