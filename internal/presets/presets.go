// Package presets ships ready-made run configurations for the library
// reservation API: a smoke check, a mixed load test and a stress test.
package presets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var files embed.FS

// Preset is a named run configuration.
type Preset struct {
	Name        string
	Description string
	// Settings holds the decoded configuration keyed the same way as a
	// configuration file.
	Settings map[string]interface{}
}

// Names returns the available preset names in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Get decodes the preset called name.
func Get(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}

	var settings map[string]interface{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Preset{}, fmt.Errorf("decode preset %q: %w", name, err)
	}

	p := Preset{Name: name, Settings: settings}
	if desc, ok := settings["description"].(string); ok {
		p.Description = desc
		delete(settings, "description")
	}
	return p, nil
}

// All returns every preset, sorted by name.
func All() ([]Preset, error) {
	var out []Preset
	for _, name := range Names() {
		p, err := Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
