// Package bridge implements the toolman command line.
//
// The default serve command stands between a local client speaking
// newline-delimited JSON-RPC on stdin/stdout and a remote toolman server. The
// endpoint URL selects the wire behavior: a URL whose last path segment is
// "sse" is read as a server-sent event stream, anything else as one JSON
// response per POST. Every call carries the resolved working directory so the
// server can pick the per-project configuration.
//
// The config command edits servers-config.json in the working directory:
//
//	toolman config -w ./project list
//	toolman config enable -w ./project memory read_graph
package bridge
