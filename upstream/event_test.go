package upstream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReader(t *testing.T) {
	input := ": comment\n\n" +
		"event: endpoint\ndata: /messages?session=1\n\n" +
		"data: {\"a\":\r\ndata: 1}\r\n\r\n" +
		"id: 7\ndata:{\"b\":2}\n\n" +
		"data: tail"
	reader := newEventReader(strings.NewReader(input))

	event, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "endpoint", event.Type)
	assert.Equal(t, "/messages?session=1", string(event.Data))

	event, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "", event.Type)
	assert.Equal(t, "{\"a\":\n1}", string(event.Data))

	event, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "7", event.ID)
	assert.Equal(t, `{"b":2}`, string(event.Data))

	event, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(event.Data))

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}
