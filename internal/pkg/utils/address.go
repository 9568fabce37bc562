package utils

import (
	"fmt"
	"strings"

	"abi_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates a hex address and returns it lower-cased with the 0x prefix.
func NormalizeAddress(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidAddress, raw)
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}
