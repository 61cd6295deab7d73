package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Preset defines a named scan profile that toggles the optional stages.
type Preset struct {
	Name        string
	Description string
	PortScan    bool
	HeaderCheck bool
	// TopPorts overrides the nmap top-ports count when non-zero.
	TopPorts int
}

// builtinPresets is the registry of all known presets.
var builtinPresets = map[string]Preset{
	"quick": {
		Name:        "quick",
		Description: "Subdomain enumeration and HTTP probing only",
	},
	"web": {
		Name:        "web",
		Description: "Enumeration, probing and security header analysis",
		HeaderCheck: true,
	},
	"full": {
		Name:        "full",
		Description: "Every stage, including a top-1000 port scan",
		PortScan:    true,
		HeaderCheck: true,
		TopPorts:    1000,
	},
}

// BuiltinPresets returns the available presets sorted by name.
func BuiltinPresets() []Preset {
	out := make([]Preset, 0, len(builtinPresets))
	for _, p := range builtinPresets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetPreset returns a preset by name, or an error if not found.
func GetPreset(name string) (*Preset, error) {
	p, ok := builtinPresets[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(builtinPresets))
		for _, b := range BuiltinPresets() {
			names = append(names, b.Name)
		}
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	cp := p
	return &cp, nil
}

// Apply turns on the stages the preset enables. Stages already enabled by
// flags stay on.
func (p *Preset) Apply(cfg *PipelineConfig) {
	if p == nil || cfg == nil {
		return
	}
	cfg.PortScan = cfg.PortScan || p.PortScan
	cfg.HeaderCheck = cfg.HeaderCheck || p.HeaderCheck
}
