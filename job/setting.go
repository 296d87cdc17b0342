package job

// BackendSetting is the per-backend part of the setting file: the gate names
// the target accepts and its shot limit.
type BackendSetting struct {
	BasisGates []string `toml:"basis_gates"`
	MaxShots   int      `toml:"max_shots"`
	AllowFSP   bool     `toml:"allow_fsp"`
}

func NewDefaultBackendSetting() *BackendSetting {
	return &BackendSetting{
		BasisGates: []string{
			"x", "y", "z", "h", "rx", "ry", "rz", "s", "sdg", "t", "tdg",
			"cx", "ccx", "p", "u", "id", "swap", "cz", "delay", "barrier", "reset",
		},
		MaxShots: 4096,
		AllowFSP: true,
	}
}

// BackendSettingFromComponent restores the typed setting from the component
// registry. The toml decoder replaces registered structs with plain maps,
// so map values are read back field by field; fields missing from the map
// keep their defaults.
func BackendSettingFromComponent(v interface{}) *BackendSetting {
	if bs, ok := v.(*BackendSetting); ok {
		return bs
	}
	bs := NewDefaultBackendSetting()
	mapped, ok := v.(map[string]interface{})
	if !ok {
		return bs
	}
	if gates, ok := mapped["basis_gates"].([]interface{}); ok {
		names := make([]string, 0, len(gates))
		for _, g := range gates {
			if name, ok := g.(string); ok {
				names = append(names, name)
			}
		}
		bs.BasisGates = names
	}
	if shots, ok := mapped["max_shots"].(int64); ok {
		bs.MaxShots = int(shots)
	}
	if allow, ok := mapped["allow_fsp"].(bool); ok {
		bs.AllowFSP = allow
	}
	return bs
}
