package stdio

import (
	"encoding/json"
	"fmt"

	"github.com/5dlabs/toolman-sub001/internal/jsonobj"
	"github.com/5dlabs/toolman-sub001/message"
)

const defaultToolDescription = "Tool description"

var defaultInputSchema = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)

// completeTools fills in a missing description and inputSchema on every tool
// of a tools/list response, for clients that reject tools without them. It
// returns the names of the tools it changed.
func completeTools(response *message.Message) (*message.Message, []string, error) {
	if len(response.Result) == 0 {
		return response, nil, nil
	}
	result, err := jsonobj.Parse(response.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid tools/list result: %w", err)
	}
	var tools []json.RawMessage
	found, err := result.Decode("tools", &tools)
	if err != nil || !found {
		return response, nil, err
	}
	var completed []string
	for i, raw := range tools {
		tool, err := jsonobj.Parse(raw)
		if err != nil {
			continue
		}
		changed := false
		if value, ok := tool.Get("description"); !ok || string(value) == "null" {
			if err = tool.SetValue("description", defaultToolDescription); err != nil {
				return nil, nil, err
			}
			changed = true
		}
		if value, ok := tool.Get("inputSchema"); !ok || string(value) == "null" {
			tool.Set("inputSchema", defaultInputSchema)
			changed = true
		}
		if !changed {
			continue
		}
		if tools[i], err = json.Marshal(tool); err != nil {
			return nil, nil, err
		}
		var name string
		_, _ = tool.Decode("name", &name)
		completed = append(completed, name)
	}
	if len(completed) == 0 {
		return response, nil, nil
	}
	if err = result.SetValue("tools", tools); err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, nil, err
	}
	ret, err := response.WithResult(data)
	if err != nil {
		return nil, nil, err
	}
	return ret, completed, nil
}
