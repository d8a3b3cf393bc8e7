package adapters

import (
	"encoding/json"
	"fmt"
)

// GenericAdapter is the registry fallback for sources without a dedicated
// adapter. It always yields exactly one item carrying the serialized payload
// so unrecognized feedback is stored rather than dropped.
type GenericAdapter struct{}

func (GenericAdapter) Source() string { return "generic" }

func (GenericAdapter) Adapt(payload any) []Item {
	content, err := json.Marshal(payload)
	if err != nil {
		return []Item{{
			Content:  fmt.Sprintf("%v", payload),
			Metadata: map[string]any{"raw": true},
		}}
	}
	return []Item{{
		Content:  string(content),
		Metadata: map[string]any{"raw": true},
	}}
}
