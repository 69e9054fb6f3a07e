package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.LogFormat != nil {
		cfg.LogFormat = *raw.LogFormat
	}

	if raw.Background != nil {
		if raw.Background.Properties != nil {
			cfg.Background.Properties = append([]string(nil), raw.Background.Properties...)
		}
		if raw.Background.FallbackColor != nil {
			cfg.Background.FallbackColor = *raw.Background.FallbackColor
		}
	}

	if raw.Opacity != nil {
		if raw.Opacity.Enabled != nil {
			cfg.Opacity.Enabled = *raw.Opacity.Enabled
		}
		if raw.Opacity.Property != nil {
			cfg.Opacity.Property = *raw.Opacity.Property
		}
	}

	if raw.Restack != nil && raw.Restack.DropOnMissingTarget != nil {
		cfg.Restack.DropOnMissingTarget = *raw.Restack.DropOnMissingTarget
	}

	return cfg
}

// attachSourceContext fills in the file location of every validation error
// whose path was set by a loaded file.
func attachSourceContext(err error, sources map[string]Source) error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			attachSource(e, sources)
		}
		return merr
	}
	attachSource(err, sources)
	return err
}

func attachSource(err error, sources map[string]Source) {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
}
