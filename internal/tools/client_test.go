package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransport(t *testing.T) {
	t.Run("http url selects sse", func(t *testing.T) {
		tr, err := createTransport("http://127.0.0.1:8001/sse")
		require.NoError(t, err)
		assert.IsType(t, &transport.SSE{}, tr)
	})

	t.Run("https url selects sse", func(t *testing.T) {
		tr, err := createTransport("https://tools.example.com/sse")
		require.NoError(t, err)
		assert.IsType(t, &transport.SSE{}, tr)
	})

	t.Run("command line selects stdio", func(t *testing.T) {
		tr, err := createTransport("npx -y @modelcontextprotocol/server-filesystem /tmp")
		require.NoError(t, err)
		assert.IsType(t, &transport.Stdio{}, tr)
	})

	t.Run("empty address rejected", func(t *testing.T) {
		_, err := createTransport("   ")
		require.Error(t, err)
	})
}
