package cmd

import (
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatToon = "toon"
)

func validFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML, formatToon:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (must be: text, json, yaml, toon)", format)
	}
}

// printStructured writes v in a machine-readable format. It reports false
// for the text format, which every command renders itself.
func printStructured(format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	case formatYAML:
		output, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(output))
	case formatToon:
		output, err := gotoon.Encode(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
	default:
		return false, nil
	}
	return true, nil
}
