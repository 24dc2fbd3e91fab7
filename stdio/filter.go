package stdio

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/5dlabs/toolman-sub001/internal/jsonobj"
	"github.com/5dlabs/toolman-sub001/message"
)

// FilterFile is the per-project tool filter file name.
const FilterFile = ".toolman-filter.json"

// Filter narrows tools/list results to the enabled tool patterns. A pattern
// is "*", a prefix ending with "*", or an exact tool name.
type Filter struct {
	EnabledTools []string `json:"enabled_tools"`
}

// Allows reports whether name matches an enabled pattern.
func (f *Filter) Allows(name string) bool {
	for _, pattern := range f.EnabledTools {
		switch {
		case pattern == "*":
			return true
		case strings.HasSuffix(pattern, "*") && strings.HasPrefix(name, pattern[:len(pattern)-1]):
			return true
		case pattern == name:
			return true
		}
	}
	return false
}

// Apply removes disallowed tools from a tools/list response. Tools without a
// name are removed; other result members are kept in place.
func (f *Filter) Apply(response *message.Message) (*message.Message, []string, error) {
	if len(response.Result) == 0 {
		return response, nil, nil
	}
	result, err := jsonobj.Parse(response.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid tools/list result: %w", err)
	}
	var tools []json.RawMessage
	found, err := result.Decode("tools", &tools)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return response, nil, nil
	}
	kept := make([]json.RawMessage, 0, len(tools))
	var removed []string
	for _, tool := range tools {
		var named struct {
			Name *string `json:"name"`
		}
		if err = json.Unmarshal(tool, &named); err != nil || named.Name == nil {
			removed = append(removed, "")
			continue
		}
		if !f.Allows(*named.Name) {
			removed = append(removed, *named.Name)
			continue
		}
		kept = append(kept, tool)
	}
	if len(removed) == 0 {
		return response, nil, nil
	}
	if err = result.SetValue("tools", kept); err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, nil, err
	}
	filtered, err := response.WithResult(data)
	if err != nil {
		return nil, nil, err
	}
	return filtered, removed, nil
}

// LoadFilter reads the filter file from dir; it returns nil when there is none.
func LoadFilter(ctx context.Context, fs afs.Service, dir string) (*Filter, error) {
	location := filepath.Join(dir, FilterFile)
	exists, err := fs.Exists(ctx, location)
	if err != nil || !exists {
		return nil, err
	}
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", location, err)
	}
	ret := &Filter{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("invalid filter file %v: %w", location, err)
	}
	return ret, nil
}
