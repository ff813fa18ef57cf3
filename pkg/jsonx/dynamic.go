package jsonx

import (
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ToDynamicJSON converts any Go value to a dynamic JSON object represented
// as a map[string]any, by marshaling the value and unmarshaling the bytes
// into a map. If either step fails an error is returned.
func ToDynamicJSON(val any) (map[string]any, error) {
	result := make(map[string]any)
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ToResult converts any Go value to a parsed gjson document. Payload
// producers use this to turn typed report structs into the dynamic payload
// form envelopes carry.
func ToResult(val any) (gjson.Result, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(b), nil
}
