package filter

import "encoding/json"

func jsonUnmarshal(text string, v any) error {
	return json.Unmarshal([]byte(text), v)
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
