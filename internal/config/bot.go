package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BotSettings is the opaque `Configuracao.config` block of the bot YAML
// file. The automation core never reads it; scripts do.
type BotSettings map[string]any

type botFile struct {
	Configuracao struct {
		Config BotSettings `yaml:"config"`
	} `yaml:"Configuracao"`
}

var ErrMissingSettings = errors.New("Configuracao.config section missing")

func LoadBotSettings(path string) (BotSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bot config %s: %w", path, err)
	}

	return ParseBotSettings(raw)
}

func ParseBotSettings(raw []byte) (BotSettings, error) {
	var file botFile

	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse bot config: %w", err)
	}

	if file.Configuracao.Config == nil {
		return nil, ErrMissingSettings
	}

	return file.Configuracao.Config, nil
}

// Lookup returns the value at key as text, the way it would be typed into a
// page.
func (s BotSettings) Lookup(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}

	return fmt.Sprint(v), true
}
