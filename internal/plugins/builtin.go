package plugins

import (
	"context"
	"strings"
)

// NormalizeLineEndings converts CRLF/CR to LF and trims trailing whitespace.
func NormalizeLineEndings(_ context.Context, payload SendPayload) (SendPayload, error) {
	msg := strings.ReplaceAll(payload.Data.Message, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	payload.Data.Message = strings.TrimRight(msg, " \t\n")
	return payload, nil
}
