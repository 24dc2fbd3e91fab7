package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		url    string
		expect Kind
	}{
		{url: "http://example.com/sse", expect: EventStream},
		{url: "https://rustdocs-server.com/sse", expect: EventStream},
		{url: "http://localhost:3000/sse", expect: EventStream},
		{url: "https://api.example.com/v1/sse", expect: EventStream},
		{url: "http://rustdocs-mcp-rust-docs-mcp-server.mcp.svc.cluster.local:3000/sse", expect: EventStream},
		{url: "http://example.com/sse#frag", expect: EventStream},
		{url: "http://example.com/api", expect: Direct},
		{url: "https://mcp.solana.com/mcp", expect: Direct},
		{url: "http://localhost:3000/mcp", expect: Direct},
		{url: "http://toolman.mcp.svc.cluster.local:3000/mcp", expect: Direct},
		{url: "https://example.com/sse/sub", expect: Direct},
		{url: "https://example.com/sse?param=value", expect: Direct},
		{url: "https://example.com/api/sse/endpoint", expect: Direct},
		{url: "https://example.com/api/custom-sse", expect: Direct},
		{url: "https://example.com/api?param=sse", expect: Direct},
		{url: "https://example.com/SSE", expect: Direct},
		{url: "https://example.com/sse/", expect: Direct},
		{url: "https://example.com", expect: Direct},
		{url: "", expect: Direct},
		{url: "://bad\x7f", expect: Direct},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, Classify(testCase.url), testCase.url)
	}
}
