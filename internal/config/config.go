// Package config loads application settings with viper.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// FileName is the optional settings file looked up in the config dir.
const FileName = "geosketch.json"

// SurfaceConfig sizes one surface in screen pixels.
type SurfaceConfig struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// ToolConfig holds the initial tool settings.
type ToolConfig struct {
	Color       string `json:"color" mapstructure:"color"`
	StrokeWidth int    `json:"strokeWidth" mapstructure:"strokeWidth"`
	EraserSize  int    `json:"eraserSize" mapstructure:"eraserSize"`
	EraserShape string `json:"eraserShape" mapstructure:"eraserShape"`
}

// Settings is the decoded configuration.
type Settings struct {
	LogLevel      string        `json:"logLevel" mapstructure:"logLevel"`
	HistoryDepth  int           `json:"historyDepth" mapstructure:"historyDepth"`
	HitRadius     float64       `json:"hitRadius" mapstructure:"hitRadius"`
	Padding       float64       `json:"padding" mapstructure:"padding"`
	Projection    string        `json:"projection" mapstructure:"projection"`
	PinCategories []string      `json:"pinCategories" mapstructure:"pinCategories"`
	Freehand      SurfaceConfig `json:"freehand" mapstructure:"freehand"`
	Geo           SurfaceConfig `json:"geo" mapstructure:"geo"`
	Tool          ToolConfig    `json:"tool" mapstructure:"tool"`
}

// DefaultPinCategories are offered by the select-mode chooser.
var DefaultPinCategories = []string{"Landmark", "Hazard", "Meeting Point", "Resource", "Other"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("historyDepth", 50)
	v.SetDefault("hitRadius", 8.0)
	v.SetDefault("padding", 50.0)
	v.SetDefault("projection", "equirectangular")
	v.SetDefault("pinCategories", DefaultPinCategories)

	v.SetDefault("freehand.width", 1000)
	v.SetDefault("freehand.height", 700)
	v.SetDefault("geo.width", 800)
	v.SetDefault("geo.height", 600)

	v.SetDefault("tool.color", "#000000")
	v.SetDefault("tool.strokeWidth", 2)
	v.SetDefault("tool.eraserSize", 20)
	v.SetDefault("tool.eraserShape", "circle")
}

// Load reads FileName from configDir on top of the defaults.
// A missing file is not an error; a malformed one is.
func Load(configDir string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default returns the built-in settings.
func Default() *Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	// Defaults always decode.
	_ = v.Unmarshal(&s)
	return &s
}

// Validate rejects settings the surfaces cannot work with.
func (s *Settings) Validate() error {
	if s.HistoryDepth < 1 {
		return fmt.Errorf("historyDepth must be at least 1, got %d", s.HistoryDepth)
	}
	if s.Freehand.Width <= 0 || s.Freehand.Height <= 0 {
		return fmt.Errorf("invalid freehand size %dx%d", s.Freehand.Width, s.Freehand.Height)
	}
	if s.Geo.Width <= 0 || s.Geo.Height <= 0 {
		return fmt.Errorf("invalid geo size %dx%d", s.Geo.Width, s.Geo.Height)
	}
	if s.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %v", s.Padding)
	}
	if float64(s.Geo.Width) <= 2*s.Padding || float64(s.Geo.Height) <= 2*s.Padding {
		return fmt.Errorf("geo size %dx%d leaves no room inside padding %v", s.Geo.Width, s.Geo.Height, s.Padding)
	}
	if s.HitRadius <= 0 {
		return fmt.Errorf("hitRadius must be positive, got %v", s.HitRadius)
	}
	switch s.Projection {
	case "equirectangular", "webmercator":
	default:
		return fmt.Errorf("unknown projection %q", s.Projection)
	}
	return nil
}
