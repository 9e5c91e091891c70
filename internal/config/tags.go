package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TagMapFile is the on-disk format for tag mapping overrides:
//
//	tags:
//	  dev: BUG_OR_DEV_TASK
//	  standup: OPERATIONS_TASK
type TagMapFile struct {
	Tags map[string]string `yaml:"tags"`
}

// LoadTagOverrides loads a tag -> kind override map from a YAML file
func LoadTagOverrides(filePath string) (map[string]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag map file: %w", err)
	}

	var file TagMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tag map YAML: %w", err)
	}

	return file.Tags, nil
}
