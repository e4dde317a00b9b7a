package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File holds the settings that do not belong in the binary: API
// credentials for the transcription and image-generation services and
// per-site printer preferences. Values support ${VAR} expansion so
// keys can live in the environment.
type File struct {
	Speech   SpeechConfig   `yaml:"speech"`
	ImageGen ImageGenConfig `yaml:"imagegen"`
	Printing PrintingConfig `yaml:"printing"`
}

// SpeechConfig configures the transcription client.
type SpeechConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// ImageGenConfig configures the image-generation client.
type ImageGenConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Size    string `yaml:"size"`
}

// PrintingConfig holds per-site printer preferences.
type PrintingConfig struct {
	// DefaultPrinter overrides the environment default when set.
	DefaultPrinter string `yaml:"default_printer"`
	// Media is the sticker media size passed to the spooler.
	Media string `yaml:"media"`
	// MonitorPrinters restricts the health monitor to these names.
	MonitorPrinters []string `yaml:"monitor_printers"`
}

// LoadFile reads and parses the YAML settings file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	f.setDefaults()
	return &f, nil
}

// DefaultFile returns the settings used when no config file exists.
func DefaultFile() *File {
	f := &File{}
	f.setDefaults()
	return f
}

func (f *File) setDefaults() {
	if f.Speech.BaseURL == "" {
		f.Speech.BaseURL = "https://api.openai.com/v1"
	}
	if f.Speech.Model == "" {
		f.Speech.Model = "whisper-1"
	}
	if f.Speech.Language == "" {
		f.Speech.Language = "en"
	}
	if f.ImageGen.BaseURL == "" {
		f.ImageGen.BaseURL = "https://api.openai.com/v1"
	}
	if f.ImageGen.Model == "" {
		f.ImageGen.Model = "gpt-image-1"
	}
	if f.ImageGen.Size == "" {
		f.ImageGen.Size = "1024x1024"
	}
	if f.Printing.Media == "" {
		f.Printing.Media = "4x6"
	}
}
