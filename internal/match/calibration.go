package match

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// CalibrationConfig represents the JSON structure of the calibration file.
// Presets listed in the file override the built-in presets field by field;
// unknown preset names define new presets.
type CalibrationConfig struct {
	Version string             `json:"version"`
	Presets map[string]Weights `json:"presets"`
}

// LoadCalibration loads weight presets from a JSON calibration file.
// Partial configurations are merged with the built-in presets so a file can
// override a single weight. On any read or parse error the built-in presets
// are returned alongside the error so callers can degrade gracefully.
func LoadCalibration(filePath string, logger *slog.Logger) (map[string]Weights, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if filePath == "" {
		return DefaultPresets(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		logger.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultPresets(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		logger.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultPresets(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultPresets(), config.Presets)
	logCalibrationOverrides(logger, DefaultPresets(), merged)
	return merged, nil
}

// MergeCalibration merges override presets into the base presets.
// Only non-zero weight values from an override are applied, allowing partial
// overrides in the calibration file. Preset names absent from base are added
// as-is.
func MergeCalibration(base map[string]Weights, overrides map[string]Weights) map[string]Weights {
	result := make(map[string]Weights, len(base))
	for name, w := range base {
		result[name] = w
	}

	for name, override := range overrides {
		merged, ok := result[name]
		if !ok {
			result[name] = override
			continue
		}
		if override.Proximity != 0 {
			merged.Proximity = override.Proximity
		}
		if override.Age != 0 {
			merged.Age = override.Age
		}
		if override.Interests != 0 {
			merged.Interests = override.Interests
		}
		if override.Activity != 0 {
			merged.Activity = override.Activity
		}
		if override.Reciprocity != 0 {
			merged.Reciprocity = override.Reciprocity
		}
		if override.Avatar != 0 {
			merged.Avatar = override.Avatar
		}
		result[name] = merged
	}

	return result
}

// logCalibrationOverrides logs which preset weights differ from the defaults.
func logCalibrationOverrides(logger *slog.Logger, defaults, loaded map[string]Weights) {
	var overrides []string

	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def, ok := defaults[name]
		if !ok {
			overrides = append(overrides, fmt.Sprintf("%s: new preset", name))
			continue
		}
		got := loaded[name]
		diff := func(field string, a, b float64) {
			if a != b {
				overrides = append(overrides, fmt.Sprintf("%s.%s: %.2f -> %.2f", name, field, a, b))
			}
		}
		diff("proximity", def.Proximity, got.Proximity)
		diff("age", def.Age, got.Age)
		diff("interests", def.Interests, got.Interests)
		diff("activity", def.Activity, got.Activity)
		diff("reciprocity", def.Reciprocity, got.Reciprocity)
		diff("avatar", def.Avatar, got.Avatar)
	}

	if len(overrides) > 0 {
		logger.Info("loaded weight calibration with overrides", "overrides", overrides)
	} else {
		logger.Info("loaded weight calibration (using all defaults)")
	}
}
