package config

import "slices"

// Difficulties is the closed set of difficulty tiers, easiest first.
var Difficulties = []string{"easy", "medium", "hard"}

// Presets maps a counted task to its difficulty-to-body-count table.
var Presets = map[string]map[string]int{
	"grid_stack": {
		"easy":   27,
		"medium": 125,
		"hard":   343,
	},
	"particle_pour": {
		"easy":   256,
		"medium": 1024,
		"hard":   4096,
	},
}

// GetPreset returns the default body count of task at difficulty.
func GetPreset(task, difficulty string) (int, bool) {
	counts, ok := Presets[task]
	if !ok {
		return 0, false
	}
	n, ok := counts[difficulty]
	return n, ok
}

// ListPresets returns the difficulties of task in tier order.
func ListPresets(task string) []string {
	counts, ok := Presets[task]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(counts))
	for _, d := range Difficulties {
		if _, ok := counts[d]; ok {
			names = append(names, d)
		}
	}
	return names
}

// ValidDifficulty reports whether d is one of Difficulties.
func ValidDifficulty(d string) bool {
	return slices.Contains(Difficulties, d)
}

// ResolveCount prefers an explicit override over the difficulty table.
func ResolveCount(task, difficulty string, override *int) (int, bool) {
	if override != nil {
		return *override, true
	}
	return GetPreset(task, difficulty)
}
