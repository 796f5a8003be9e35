package docpages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// dataExts lists the extensions of data files, in lookup order.
var dataExts = []string{".yaml", ".yml", ".json"}

func isDataFile(name string) bool {
	ext := path.Ext(name)
	for _, e := range dataExts {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadData reads the render context of a template from the first of base.yaml, base.yml and
// base.json found in fsys. A template without a data file renders with an empty context.
func LoadData(fsys fs.FS, base string) (map[string]any, error) {
	for _, ext := range dataExts {
		b, err := fs.ReadFile(fsys, base+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		return DecodeData(base+ext, b)
	}
	return map[string]any{}, nil
}

// DecodeData decodes a render context. Files named *.json are read as JSON, anything else as
// YAML. The top level must be a mapping.
func DecodeData(name string, b []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(b)) == 0 {
		return data, nil
	}

	if path.Ext(name) == ".json" {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return data, nil
	}

	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
