package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"chat","text":"hi","timestamp":1000}`))
	assert.NoError(t, err)
	assert.Equal(t, TypeChat, env.Type())
	assert.Equal(t, "", env.TargetID())
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		`"just a string"`,
		`[1,2,3]`,
		`42`,
		`null`,
		``,
	} {
		_, err := ParseEnvelope([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestEnvelopeTargetID(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"offer","sdp":"v=0...","targetId":"peer-2"}`))
	assert.NoError(t, err)
	assert.Equal(t, "peer-2", env.TargetID())

	// a non-string targetId is ignored, the message becomes a broadcast
	env, err = ParseEnvelope([]byte(`{"type":"offer","targetId":7}`))
	assert.NoError(t, err)
	assert.Equal(t, "", env.TargetID())
}

func TestStampOverwritesClientIdentity(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"chat","text":"hi","from":"evil","name":"Mallory"}`))
	assert.NoError(t, err)

	env.Stamp("peer-1", "Alice")
	assert.Equal(t, "peer-1", env["from"])
	assert.Equal(t, "Alice", env["name"])
}

func TestMarshalKeepsUnknownFields(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"reaction","emoji":"🎉","custom":{"nested":true}}`))
	assert.NoError(t, err)
	env.Stamp("peer-1", "Alice")

	b, err := env.Marshal()
	assert.NoError(t, err)

	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "🎉", out["emoji"])
	assert.Equal(t, map[string]interface{}{"nested": true}, out["custom"])
	assert.Equal(t, "peer-1", out["from"])
}
