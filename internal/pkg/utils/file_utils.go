package utils

import (
	"fmt"
	"os"

	"abi_resolver/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReadTextFile reads a whole file, such as an ABI passed on the command line.
func ReadTextFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return string(data), nil
}

// LoadNetworkDefinition reads a network definition from a JSON file,
// or parses arg directly when it already is a JSON object.
func LoadNetworkDefinition(arg string) (entity.NetworkDefinition, error) {
	var def entity.NetworkDefinition
	data := []byte(arg)
	if len(arg) == 0 || arg[0] != '{' {
		raw, err := os.ReadFile(arg)
		if err != nil {
			return def, fmt.Errorf("failed to read network definition %s: %w", arg, err)
		}
		data = raw
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("%w: %v", entity.ErrInvalidNetwork, err)
	}
	return def, nil
}
