package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	display
//	log_level
//	log_format
//	background
//	background.properties
//	background.fallback_color
//	opacity
//	opacity.enabled
//	opacity.property
//	restack
//	restack.drop_on_missing_target
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func() (string, error) {
		if len(parts) != 2 {
			return "", fmt.Errorf("unknown path: %s", path)
		}
		return parts[1], nil
	}

	switch parts[0] {
	case "display":
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return cfg.Display, nil
	case "log_level":
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return cfg.LogLevel, nil
	case "log_format":
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return cfg.LogFormat, nil
	case "background":
		if len(parts) == 1 {
			return cfg.Background, nil
		}
		key, err := leaf()
		if err != nil {
			return nil, err
		}
		switch key {
		case "properties":
			return cfg.Background.Properties, nil
		case "fallback_color":
			return cfg.Background.FallbackColor, nil
		}
	case "opacity":
		if len(parts) == 1 {
			return cfg.Opacity, nil
		}
		key, err := leaf()
		if err != nil {
			return nil, err
		}
		switch key {
		case "enabled":
			return cfg.Opacity.Enabled, nil
		case "property":
			return cfg.Opacity.Property, nil
		}
	case "restack":
		if len(parts) == 1 {
			return cfg.Restack, nil
		}
		key, err := leaf()
		if err != nil {
			return nil, err
		}
		if key == "drop_on_missing_target" {
			return cfg.Restack.DropOnMissingTarget, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
