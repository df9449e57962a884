// Package config provides application configuration and calibration constants.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Calibration holds the tunable image-processing constants. The defaults
// were calibrated against the printed answer-sheet template; they are
// exposed in the config file so a recalibration does not require a rebuild.
type Calibration struct {
	// MarkerThreshold is the grayscale cutoff for the inverse-binary
	// threshold that turns the printed fiducial triangles into contour
	// foreground. Print is near-black, paper near-white.
	MarkerThreshold float64 `yaml:"marker_threshold"`
	// MarkerMinArea is the contour area floor (px²) below which a
	// triangle candidate is treated as a print speck.
	MarkerMinArea float64 `yaml:"marker_min_area"`
	// IntensityCutoff is the grayscale value below which a pixel counts
	// as ink when computing bubble fill ratios.
	IntensityCutoff float64 `yaml:"intensity_cutoff"`
	// FillThreshold is the fill ratio a bubble cell must clear to count
	// as marked. Fill ratio is the fraction of ink pixels in the cell:
	// 0 = blank, 1 = fully dark. Higher ratio means more filled.
	FillThreshold float64 `yaml:"fill_threshold"`
}

// OCR selects and locates the text-extraction backend.
type OCR struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "library" (linked tesseract) or "command" (tesseract
	// subprocess on PATH).
	Backend string `yaml:"backend"`
	// TessdataPath points at the tesseract language data directory.
	// Empty means the backend's default.
	TessdataPath string `yaml:"tessdata_path"`
}

// Output configures review-image and export destinations.
type Output struct {
	// ReviewScale downsizes overlay images written for visual review.
	ReviewScale float64 `yaml:"review_scale"`
	ReviewDir   string  `yaml:"review_dir"`
}

// Database configures the total-score store.
type Database struct {
	Path string `yaml:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Calibration Calibration `yaml:"calibration"`
	OCR         OCR         `yaml:"ocr"`
	Output      Output      `yaml:"output"`
	Database    Database    `yaml:"database"`
	// Workers bounds the sheet-processing pool; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Default returns the calibrated defaults.
func Default() Config {
	return Config{
		Calibration: Calibration{
			MarkerThreshold: 200,
			MarkerMinArea:   100,
			IntensityCutoff: 128,
			FillThreshold:   0.45,
		},
		OCR: OCR{
			Enabled: true,
			Backend: "library",
		},
		Output: Output{
			ReviewScale: 0.4,
			ReviewDir:   "review",
		},
		Database: Database{
			Path: "scores.db",
		},
	}
}

// Load reads YAML config from path, layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
