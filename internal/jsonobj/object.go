// Package jsonobj provides a JSON object that keeps member order and raw
// member values, so documents round-trip without losing unknown fields.
package jsonobj

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DuplicateKeyError reports a member name that appears twice in one object.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q", e.Key)
}

// Object is an ordered JSON object.
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) Get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set replaces the value of key in place, or appends key when new.
func (o *Object) Set(key string, value json.RawMessage) {
	if o.values == nil {
		o.values = map[string]json.RawMessage{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// SetValue encodes value and stores it under key.
func (o *Object) SetValue(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	o.Set(key, data)
	return nil
}

// Decode unmarshals the value of key into dest; it reports false when key is absent.
func (o *Object) Decode(key string, dest any) (bool, error) {
	raw, ok := o.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

func (o *Object) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value := o.values[key]
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Object) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", token)
	}
	o.keys = nil
	o.values = map[string]json.RawMessage{}
	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", token)
		}
		var value json.RawMessage
		if err = decoder.Decode(&value); err != nil {
			return err
		}
		if _, exists := o.values[key]; exists {
			return &DuplicateKeyError{Key: key}
		}
		o.keys = append(o.keys, key)
		o.values[key] = value
	}
	if _, err = decoder.Token(); err != nil {
		return err
	}
	return nil
}

// Parse decodes data as an ordered object.
func Parse(data []byte) (*Object, error) {
	ret := &Object{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
