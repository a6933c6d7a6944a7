package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	// PingFrame is the application level keep-alive sent by clients.
	PingFrame = `{"type":"ping"}`

	// PongFrame is the bare keep-alive reply sent by servers.
	PongFrame = "pong"
)

var (
	pongMarker = []byte(`"type":"pong"`)
	pingMarker = []byte(`"type":"ping"`)
)

// IsPong reports whether a text payload is a keep-alive reply,
// either the bare "pong" string or any frame carrying "type":"pong".
func IsPong(data []byte) bool {
	return string(data) == PongFrame || bytes.Contains(data, pongMarker)
}

// IsPing reports whether a text payload is a keep-alive request.
func IsPing(data []byte) bool {
	return string(data) == "ping" || bytes.Contains(data, pingMarker)
}

// Decode returns the JSON value held by data,
// or data as a string when it is not valid JSON.
func Decode(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

// Encode serializes an outbound application message.
// Strings, byte slices and raw JSON are used as they are.
func Encode(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	}

	d, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return d, nil
}

// Preview returns at most n characters of s.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
