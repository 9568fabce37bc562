package abiparse

import (
	"fmt"
	"regexp"
	"strings"

	"abi_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	trailingComma = regexp.MustCompile(`,\s*([\]}])`)
	validTypes    = map[string]bool{
		"function":    true,
		"event":       true,
		"error":       true,
		"constructor": true,
		"fallback":    true,
		"receive":     true,
	}
)

// Parse turns user or source supplied text into an Abi.
//
// Accepted shapes are a JSON array of entries or an object with an "abi" field
// (array or JSON string), as emitted by compilers and some explorers. Text that
// only fails strict parsing because of single quotes or trailing commas is
// corrected once before giving up. An entry without "type" is a function.
//
// The result is structural: fields outside entity.AbiEntry and optional fields
// holding their zero value are dropped, so re-encoding is not byte-identical.
func Parse(text string) (entity.Abi, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", entity.ErrInvalidAbiFormat)
	}

	var root any
	if err := json.UnmarshalFromString(trimmed, &root); err != nil {
		corrected := trailingComma.ReplaceAllString(strings.ReplaceAll(trimmed, "'", `"`), "$1")
		if err2 := json.UnmarshalFromString(corrected, &root); err2 != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidAbiFormat, err)
		}
	}
	return fromValue(root, 0)
}

func fromValue(root any, depth int) (entity.Abi, error) {
	switch v := root.(type) {
	case []any:
		return fromEntries(v)
	case map[string]any:
		inner, ok := v["abi"]
		if !ok || depth > 0 {
			return nil, fmt.Errorf("%w: expected an array of entries or an object with an abi field", entity.ErrInvalidAbiFormat)
		}
		if s, isString := inner.(string); isString {
			var decoded any
			if err := json.UnmarshalFromString(s, &decoded); err != nil {
				return nil, fmt.Errorf("%w: abi field: %v", entity.ErrInvalidAbiFormat, err)
			}
			inner = decoded
		}
		return fromValue(inner, depth+1)
	default:
		return nil, fmt.Errorf("%w: expected an array of entries", entity.ErrInvalidAbiFormat)
	}
}

func fromEntries(raw []any) (entity.Abi, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no entries", entity.ErrInvalidAbiFormat)
	}
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", entity.ErrInvalidAbiFormat, i)
		}
		typ, _ := obj["type"].(string)
		if typ == "" {
			typ = "function"
			obj["type"] = typ
		}
		if !validTypes[typ] {
			return nil, fmt.Errorf("%w: entry %d has unknown type %q", entity.ErrInvalidAbiFormat, i, typ)
		}
		if typ == "function" || typ == "event" || typ == "error" {
			if name, _ := obj["name"].(string); name == "" {
				return nil, fmt.Errorf("%w: %s entry %d has no name", entity.ErrInvalidAbiFormat, typ, i)
			}
		}
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidAbiFormat, err)
	}
	var out entity.Abi
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidAbiFormat, err)
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that every parameter type is a well-formed Solidity type.
func Validate(a entity.Abi) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidAbiFormat, err)
	}
	if _, err := abi.JSON(strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidAbiFormat, err)
	}
	return nil
}
