package config

import (
	"slices"
	"strings"
)

const (
	// LevelAll disables category filtering
	LevelAll = "All"

	// FilterFieldThemes compares the level against the themes column
	FilterFieldThemes = "themes"

	// FilterFieldGovernmentalLevel compares the level against the governmental level column
	FilterFieldGovernmentalLevel = "governmental_level"
)

// ThemeLevels are the accepted filter values for the themes column
var ThemeLevels = []string{
	"Agriculture",
	"Culture",
	"Economy",
	"Education",
	"Energy",
	"Environment",
	"Geospatial",
	"Government",
	"Health",
	"International",
	"Justice",
	"Population",
	"Regions",
	"Science",
	"Statistics",
	"Transport",
}

// GovernmentalLevels are the accepted filter values for the governmental level column
var GovernmentalLevels = []string{
	"International",
	"National",
	"Regional",
	"Local",
}

// LevelsFor returns the accepted filter values for a filter field
func LevelsFor(field string) []string {
	switch field {
	case FilterFieldGovernmentalLevel:
		return slices.Clone(GovernmentalLevels)
	default:
		return slices.Clone(ThemeLevels)
	}
}

// normalizeFilterField maps accepted spellings to the canonical field name
func normalizeFilterField(field string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "", FilterFieldThemes, "theme":
		return FilterFieldThemes, true
	case FilterFieldGovernmentalLevel, "governmental-level", "governmentallevel":
		return FilterFieldGovernmentalLevel, true
	default:
		return "", false
	}
}

// normalizeLevel returns the canonical spelling of level for field
func normalizeLevel(field, level string) (string, bool) {
	level = strings.TrimSpace(level)
	if level == "" || strings.EqualFold(level, LevelAll) {
		return LevelAll, true
	}
	for _, known := range LevelsFor(field) {
		if strings.EqualFold(known, level) {
			return known, true
		}
	}
	return "", false
}
