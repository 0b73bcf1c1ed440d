package orchestration

import "encoding/json"

// marshalJSON/unmarshalJSON are the default codec orchestrator-facing calls
// use for action/result payloads. A converter.Converter can be layered on
// top by marshaling through it before calling CallActivity et al.; the
// dispatcher itself stays codec-agnostic beyond this default.
func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
