package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject locates the outermost {...} object in raw model output
// and unmarshals it into a string map. Model text around the object is dropped
func ExtractJSONObject(text string) (map[string]string, error) {
	from := strings.Index(text, "{")
	to := strings.LastIndex(text, "}")
	if from == -1 || to < from {
		return nil, fmt.Errorf("no JSON object in text")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text[from:to+1]), &raw); err != nil {
		return nil, fmt.Errorf("can't parse JSON object: %w", err)
	}
	res := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			res[k] = ""
			continue
		}
		if s, ok := v.(string); ok {
			res[k] = s
			continue
		}
		res[k] = fmt.Sprintf("%v", v)
	}
	return res, nil
}
