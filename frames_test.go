package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPong(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"bare pong", "pong", true},
		{"typed pong", `{"type":"pong"}`, true},
		{"typed pong with payload", `{"type":"pong","ts":1712}`, true},
		{"ping", PingFrame, false},
		{"pong with spaces", `{"type": "pong"}`, false},
		{"quoted pong", `"pong"`, false},
		{"application message", `{"type":"notification","id":4}`, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPong([]byte(tt.data)))
		})
	}
}

func TestIsPing(t *testing.T) {
	assert.True(t, IsPing([]byte(PingFrame)))
	assert.True(t, IsPing([]byte("ping")))
	assert.False(t, IsPing([]byte(PongFrame)))
	assert.False(t, IsPing([]byte(`{"type":"deal.updated"}`)))
}

func TestDecode(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		v := Decode([]byte(`{"type":"lead.created","id":12}`))
		m, ok := v.(map[string]any)
		require.True(t, ok, "expected a map, got %T", v)
		assert.Equal(t, "lead.created", m["type"])
		assert.Equal(t, float64(12), m["id"])
	})

	t.Run("json scalar", func(t *testing.T) {
		assert.Equal(t, float64(42), Decode([]byte("42")))
	})

	t.Run("invalid json falls back to raw string", func(t *testing.T) {
		assert.Equal(t, "not-json-{{{", Decode([]byte("not-json-{{{")))
	})
}

func TestEncode(t *testing.T) {
	d, err := Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(d))

	d, err = Encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(d))

	d, err = Encode(json.RawMessage(`{"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(d))

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 100))
	assert.Equal(t, "abc", Preview("abcdef", 3))
	assert.Equal(t, "héé", Preview("héééé", 3))
}
