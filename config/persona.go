package config

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

type (
	PersonaFile struct {
		Personas []PersonaDefinition `yaml:"personas"`
	}

	PersonaDefinition struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		// Prompt is a text/template rendered with the persona name as {{ .Name }}.
		Prompt string `yaml:"prompt"`
	}
)

func LoadPersonaFile(file string) (personas PersonaFile, err error) {
	var yamlBytes []byte
	if yamlBytes, err = os.ReadFile(file); err != nil {
		err = errors.Wrapf(err, "failed to read file %s", file)
		return
	}

	if err = yaml.Unmarshal(yamlBytes, &personas); err != nil {
		err = errors.Wrapf(err, "failed to unmarshal file %s", file)
		return
	}

	for i, p := range personas.Personas {
		if strings.TrimSpace(p.Name) == "" {
			err = errors.Errorf("persona #%d in %s has no name", i, file)
			return
		}
		if strings.TrimSpace(p.Prompt) == "" {
			err = errors.Errorf("persona %q in %s has no prompt", p.Name, file)
			return
		}
	}

	return
}
