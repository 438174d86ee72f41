package config

import "time"

// Preset names the hybrid inferer recognizes. Field values for each
// preset are this implementation's own resolution (see DESIGN.md).
const (
	PresetConservative = "conservative"
	PresetBalanced     = "balanced"
	PresetAggressive   = "aggressive"
	PresetCostOptimized = "cost_optimized"
	PresetPatternOnly  = "pattern_only"
)

// DepInferPreset returns the named preset's configuration, or an error if
// the name is unrecognized.
func DepInferPreset(name string) (DepInferConfig, error) {
	switch name {
	case PresetConservative:
		return DepInferConfig{
			Preset:                     PresetConservative,
			PatternConfidenceThreshold: 0.9,
			AIConfidenceThreshold:      0.85,
			CombinedConfidenceBoost:    0.1,
			MaxAIPairsPerBatch:         10,
			MinSharedKeywords:          3,
			EnableAIInference:          true,
			CacheTTL:                   24 * time.Hour,
			WorkflowGroupMinSize:       4,
		}, nil
	case PresetBalanced:
		return DefaultConfig().DepInfer, nil
	case PresetAggressive:
		return DepInferConfig{
			Preset:                     PresetAggressive,
			PatternConfidenceThreshold: 0.7,
			AIConfidenceThreshold:      0.6,
			CombinedConfidenceBoost:    0.2,
			MaxAIPairsPerBatch:         40,
			MinSharedKeywords:          1,
			EnableAIInference:          true,
			CacheTTL:                   12 * time.Hour,
			WorkflowGroupMinSize:       3,
		}, nil
	case PresetCostOptimized:
		return DepInferConfig{
			Preset:                     PresetCostOptimized,
			PatternConfidenceThreshold: 0.8,
			AIConfidenceThreshold:      0.75,
			CombinedConfidenceBoost:    0.15,
			MaxAIPairsPerBatch:         5,
			MinSharedKeywords:          2,
			EnableAIInference:          true,
			CacheTTL:                   72 * time.Hour,
			WorkflowGroupMinSize:       5,
		}, nil
	case PresetPatternOnly:
		return DepInferConfig{
			Preset:                     PresetPatternOnly,
			PatternConfidenceThreshold: 0.8,
			AIConfidenceThreshold:      1.0,
			CombinedConfidenceBoost:    0,
			MaxAIPairsPerBatch:         0,
			MinSharedKeywords:          2,
			EnableAIInference:          false,
			CacheTTL:                   0,
			WorkflowGroupMinSize:       4,
		}, nil
	default:
		return DepInferConfig{}, &ValidationError{"dependency_inference.preset", "unknown preset " + name}
	}
}
