package forecast

import (
	"github.com/lox/jmaweather/internal/errs"
)

// AreaTable is common/const/area.json.
type AreaTable struct {
	Centers  map[string]AreaNode `json:"centers"`
	Offices  map[string]AreaNode `json:"offices"`
	Class10s map[string]AreaNode `json:"class10s"`
	Class15s map[string]AreaNode `json:"class15s"`
	Class20s map[string]AreaNode `json:"class20s"`
}

type AreaNode struct {
	Name       string   `json:"name"`
	EnName     string   `json:"enName"`
	OfficeName string   `json:"officeName,omitempty"`
	Parent     string   `json:"parent,omitempty"`
	Children   []string `json:"children,omitempty"`
}

// Hierarchy is the chain of area codes from office down to class20.
// Levels below the resolved code are empty.
type Hierarchy struct {
	Office  string `json:"office"`
	Class10 string `json:"class10"`
	Class15 string `json:"class15,omitempty"`
	Class20 string `json:"class20,omitempty"`
}

// ResolveHierarchy walks parent links from code up to its office. An
// office code resolves to its first class10 child, since forecasts are
// always read per class10 area.
func ResolveHierarchy(t AreaTable, code string) (Hierarchy, error) {
	var h Hierarchy

	switch {
	case has(t.Class20s, code):
		h.Class20 = code
		h.Class15 = t.Class20s[code].Parent
		if !has(t.Class15s, h.Class15) {
			return Hierarchy{}, broken(code, h.Class15)
		}
		h.Class10 = t.Class15s[h.Class15].Parent
	case has(t.Class15s, code):
		h.Class15 = code
		h.Class10 = t.Class15s[code].Parent
	case has(t.Class10s, code):
		h.Class10 = code
	case has(t.Offices, code):
		children := t.Offices[code].Children
		if len(children) == 0 {
			return Hierarchy{}, errs.New(errs.LookupFailure, "resolve area", "office %s has no class10 areas", code)
		}
		return Hierarchy{Office: code, Class10: children[0]}, nil
	default:
		return Hierarchy{}, errs.New(errs.LookupFailure, "resolve area", "unknown area code %s", code)
	}

	if !has(t.Class10s, h.Class10) {
		return Hierarchy{}, broken(code, h.Class10)
	}
	h.Office = t.Class10s[h.Class10].Parent
	if !has(t.Offices, h.Office) {
		return Hierarchy{}, broken(code, h.Office)
	}
	return h, nil
}

func has(m map[string]AreaNode, code string) bool {
	if code == "" {
		return false
	}
	_, ok := m[code]
	return ok
}

func broken(code, missing string) error {
	return errs.New(errs.LookupFailure, "resolve area", "area %s: parent %q not found", code, missing)
}
