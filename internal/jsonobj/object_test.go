package jsonobj

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_RoundTrip(t *testing.T) {
	input := `{"zeta":1,"alpha":{"nested":[1,2,{"x":null}]},"mid":"v","_ext":{"keep":true}}`
	obj, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "_ext"}, obj.Keys())

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, input, string(data))

	obj.Set("mid", json.RawMessage(`"w"`))
	obj.Set("new", json.RawMessage(`true`))
	data, err = json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"nested":[1,2,{"x":null}]},"mid":"w","_ext":{"keep":true},"new":true}`, string(data))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "_ext", "new"}, obj.Keys())
}

func TestObject_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"a":1,"a":2}`))
	dupErr := &DuplicateKeyError{}
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "a", dupErr.Key)

	_, err = Parse([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = Parse([]byte(`null`))
	assert.Error(t, err)
	_, err = Parse([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestObject_Decode(t *testing.T) {
	obj, err := Parse([]byte(`{"enabled":false,"count":"x"}`))
	require.NoError(t, err)

	var enabled bool
	found, err := obj.Decode("enabled", &enabled)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, enabled)

	var count int
	found, err = obj.Decode("count", &count)
	assert.True(t, found)
	assert.Error(t, err)

	found, err = obj.Decode("missing", &count)
	assert.NoError(t, err)
	assert.False(t, found)
}
