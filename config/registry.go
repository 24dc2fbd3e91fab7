package config

import (
	"encoding/json"
	"fmt"

	"github.com/5dlabs/toolman-sub001/internal/jsonobj"
)

const (
	serversKey = "servers"
	toolsKey   = "tools"
	enabledKey = "enabled"
)

// Registry is the ordered server/tool document. Members it does not model
// are kept as raw JSON at every level.
type Registry struct {
	doc *jsonobj.Object
}

func newRegistry() *Registry {
	doc := &jsonobj.Object{}
	doc.Set(serversKey, json.RawMessage("{}"))
	return &Registry{doc: doc}
}

// parseRegistry decodes and validates a registry document.
func parseRegistry(data []byte) (*Registry, error) {
	doc, err := jsonobj.Parse(data)
	if err != nil {
		return nil, err
	}
	ret := &Registry{doc: doc}
	if _, err = ret.Servers(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Servers decodes every entry in registry order.
func (r *Registry) Servers() ([]ServerEntry, error) {
	servers, err := r.serverObjects()
	if err != nil {
		return nil, err
	}
	ret := make([]ServerEntry, 0, servers.Len())
	for _, name := range servers.Keys() {
		raw, _ := servers.Get(name)
		entry, err := decodeEntry(name, raw)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *entry)
	}
	return ret, nil
}

func (r *Registry) server(name string) (*ServerEntry, error) {
	servers, err := r.serverObjects()
	if err != nil {
		return nil, err
	}
	raw, ok := servers.Get(name)
	if !ok {
		return nil, &NotFoundError{Server: name}
	}
	return decodeEntry(name, raw)
}

// setToolEnabled rewrites only the enabled member of one tool.
func (r *Registry) setToolEnabled(server, tool string, enabled bool) error {
	return r.updateServer(server, func(entry *jsonobj.Object) error {
		toolsRaw, ok := entry.Get(toolsKey)
		if !ok || string(toolsRaw) == "null" {
			return &NotFoundError{Server: server, Tool: tool}
		}
		tools, err := jsonobj.Parse(toolsRaw)
		if err != nil {
			return err
		}
		toolRaw, ok := tools.Get(tool)
		if !ok {
			return &NotFoundError{Server: server, Tool: tool}
		}
		toolEntry, err := jsonobj.Parse(toolRaw)
		if err != nil {
			return err
		}
		if err = toolEntry.SetValue(enabledKey, enabled); err != nil {
			return err
		}
		if err = tools.SetValue(tool, toolEntry); err != nil {
			return err
		}
		return entry.SetValue(toolsKey, tools)
	})
}

// setServerEnabled rewrites only the enabled member of one server.
func (r *Registry) setServerEnabled(server string, enabled bool) error {
	return r.updateServer(server, func(entry *jsonobj.Object) error {
		return entry.SetValue(enabledKey, enabled)
	})
}

func (r *Registry) updateServer(server string, update func(entry *jsonobj.Object) error) error {
	servers, err := r.serverObjects()
	if err != nil {
		return err
	}
	raw, ok := servers.Get(server)
	if !ok {
		return &NotFoundError{Server: server}
	}
	entry, err := jsonobj.Parse(raw)
	if err != nil {
		return err
	}
	if err = update(entry); err != nil {
		return err
	}
	if err = servers.SetValue(server, entry); err != nil {
		return err
	}
	return r.doc.SetValue(serversKey, servers)
}

func (r *Registry) serverObjects() (*jsonobj.Object, error) {
	raw, ok := r.doc.Get(serversKey)
	if !ok || string(raw) == "null" {
		return &jsonobj.Object{}, nil
	}
	servers, err := jsonobj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", serversKey, err)
	}
	return servers, nil
}

// encode renders the document with two-space indentation and a trailing newline.
func (r *Registry) encode() ([]byte, error) {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeEntry(name string, raw json.RawMessage) (*ServerEntry, error) {
	entry, err := jsonobj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", name, err)
	}
	fields := &entryFields{}
	if err = json.Unmarshal(raw, fields); err != nil {
		return nil, fmt.Errorf("server %q: %w", name, err)
	}
	ret := &ServerEntry{
		Name:             name,
		DisplayName:      deref(fields.Name),
		Description:      deref(fields.Description),
		Transport:        deref(fields.Transport),
		Command:          deref(fields.Command),
		Args:             fields.Args,
		Env:              fields.Env,
		URL:              deref(fields.URL),
		WorkingDirectory: deref(fields.WorkingDirectory),
		Enabled:          flag(fields.Enabled, true),
		AlwaysActive:     flag(fields.AlwaysActive, false),
	}
	toolsRaw, ok := entry.Get(toolsKey)
	if !ok || string(toolsRaw) == "null" {
		return ret, nil
	}
	tools, err := jsonobj.Parse(toolsRaw)
	if err != nil {
		return nil, fmt.Errorf("server %q %v: %w", name, toolsKey, err)
	}
	for _, toolName := range tools.Keys() {
		toolRaw, _ := tools.Get(toolName)
		if _, err = jsonobj.Parse(toolRaw); err != nil {
			return nil, fmt.Errorf("server %q tool %q: %w", name, toolName, err)
		}
		toolFields := struct {
			Enabled *bool `json:"enabled"`
		}{}
		if err = json.Unmarshal(toolRaw, &toolFields); err != nil {
			return nil, fmt.Errorf("server %q tool %q: %w", name, toolName, err)
		}
		ret.Tools = append(ret.Tools, ToolEntry{Name: toolName, Enabled: flag(toolFields.Enabled, true)})
	}
	return ret, nil
}
