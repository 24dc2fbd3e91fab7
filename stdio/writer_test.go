package stdio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_SerializesLines(t *testing.T) {
	out := &bytes.Buffer{}
	writer := NewWriter(out)
	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("{\n  \"jsonrpc\": \"2.0\",\n  \"method\": \"m\",\n  \"params\": {\"i\": %d, \"pad\": %q}\n}", i, strings.Repeat("x", 512))
			assert.NoError(t, writer.WriteLine(json.RawMessage(payload)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, writer.Close())

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
}

func TestWriter_Closed(t *testing.T) {
	out := &bytes.Buffer{}
	writer := NewWriter(out)
	require.NoError(t, writer.Close())
	assert.ErrorIs(t, writer.WriteLine(json.RawMessage(`{}`)), ErrWriterClosed)
	assert.Empty(t, out.String())
}
