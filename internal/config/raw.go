package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawBackground struct {
	Properties    []string `yaml:"properties"`
	FallbackColor *string  `yaml:"fallback_color"`
}

type RawOpacity struct {
	Enabled  *bool   `yaml:"enabled"`
	Property *string `yaml:"property"`
}

type RawRestack struct {
	DropOnMissingTarget *bool `yaml:"drop_on_missing_target"`
}

// RawConfig mirrors one YAML file. Nil fields were not set by that file.
type RawConfig struct {
	Include    IncludeList    `yaml:"include"`
	Display    *string        `yaml:"display"`
	LogLevel   *string        `yaml:"log_level"`
	LogFormat  *string        `yaml:"log_format"`
	Background *RawBackground `yaml:"background"`
	Opacity    *RawOpacity    `yaml:"opacity"`
	Restack    *RawRestack    `yaml:"restack"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.LogFormat != nil {
		out.LogFormat = overlay.LogFormat
	}

	if overlay.Background != nil {
		merged := RawBackground{}
		if out.Background != nil {
			merged = *out.Background
		}
		if overlay.Background.Properties != nil {
			merged.Properties = overlay.Background.Properties
		}
		if overlay.Background.FallbackColor != nil {
			merged.FallbackColor = overlay.Background.FallbackColor
		}
		out.Background = &merged
	}

	if overlay.Opacity != nil {
		merged := RawOpacity{}
		if out.Opacity != nil {
			merged = *out.Opacity
		}
		if overlay.Opacity.Enabled != nil {
			merged.Enabled = overlay.Opacity.Enabled
		}
		if overlay.Opacity.Property != nil {
			merged.Property = overlay.Opacity.Property
		}
		out.Opacity = &merged
	}

	if overlay.Restack != nil {
		merged := RawRestack{}
		if out.Restack != nil {
			merged = *out.Restack
		}
		if overlay.Restack.DropOnMissingTarget != nil {
			merged.DropOnMissingTarget = overlay.Restack.DropOnMissingTarget
		}
		out.Restack = &merged
	}

	return out
}
