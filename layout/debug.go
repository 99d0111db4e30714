package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将排版快照输出为 JSON，便于调试或可视化。
func WriteDebugJSON(f *Frame, path string) error {
	if f == nil {
		return nil
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
