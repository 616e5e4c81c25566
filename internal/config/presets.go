package config

// Presets are ready-to-run scenario setups, keyed by scenario then name.
var Presets = map[string]map[string]*Config{
	"snow": {
		"block-drop": presetSnowBlockDrop(),
		"async":      presetSnowAsync(),
		"sticky":     presetSnowSticky(),
	},
	"sand": {
		"column-collapse": presetSandColumn(),
	},
}

func presetSnowBlockDrop() *Config {
	c := DefaultConfig()
	c.Scenario = "snow"
	return c
}

func presetSnowAsync() *Config {
	c := DefaultConfig()
	c.Scenario = "snow"
	c.Async = true
	c.MaximumTimeStep = 1e-3
	return c
}

func presetSnowSticky() *Config {
	c := DefaultConfig()
	c.Scenario = "snow"
	c.Friction = -1
	return c
}

func presetSandColumn() *Config {
	c := DefaultConfig()
	c.Scenario = "sand"
	c.Friction = 0.6
	c.Seed.RegionMin = [3]float64{0.4, 0.1, 0.4}
	c.Seed.RegionMax = [3]float64{0.6, 0.7, 0.6}
	return c
}

func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	return names
}
