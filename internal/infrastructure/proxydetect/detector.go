package proxydetect

import (
	"bytes"
	"context"
	"math/big"
	"strings"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// EIP1967ImplementationSlot is keccak256("eip1967.proxy.implementation") - 1.
	EIP1967ImplementationSlot = eip1967Slot("eip1967.proxy.implementation")
	// OZLegacyImplementationSlot is keccak256("org.zeppelinos.proxy.implementation").
	OZLegacyImplementationSlot = crypto.Keccak256Hash([]byte("org.zeppelinos.proxy.implementation"))

	minimalProxyPrefix = common.FromHex("0x363d3d373d3d3d363d73")
	minimalProxySuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

// minimalProxyLength is prefix + 20-byte address + suffix.
const minimalProxyLength = 45

func eip1967Slot(label string) common.Hash {
	h := new(big.Int).SetBytes(crypto.Keccak256([]byte(label)))
	return common.BigToHash(h.Sub(h, big.NewInt(1)))
}

// Detector resolves proxy contracts to their implementation. It implements port.ProxyDetector.
type Detector struct {
	logger port.Logger
}

func NewDetector(logger port.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect checks, in order, the EIP-1967 slot, EIP-1167 bytecode and the legacy OpenZeppelin slot.
// The first match wins. Read errors count as "no match"; when every read fails the record is Degraded.
func (d *Detector) Detect(ctx context.Context, address common.Address, reader port.ChainReader) entity.ProxyRecord {
	rec := entity.ProxyRecord{
		ProxyAddress:    lower(address),
		DetectionMethod: entity.DetectionNone,
	}
	failures := 0

	impl, err := readSlotAddress(ctx, reader, address, EIP1967ImplementationSlot)
	if err != nil {
		failures++
		d.logger.Debug("EIP-1967 slot read failed", "address", rec.ProxyAddress, "error", err)
	} else if impl != (common.Address{}) {
		return d.matched(rec, impl, entity.DetectionEIP1967Slot)
	}

	code, err := reader.CodeAt(ctx, address)
	if err != nil {
		failures++
		d.logger.Debug("Bytecode read failed", "address", rec.ProxyAddress, "error", err)
	} else if impl, ok := MinimalProxyTarget(code); ok {
		return d.matched(rec, impl, entity.DetectionEIP1167Bytecode)
	}

	impl, err = readSlotAddress(ctx, reader, address, OZLegacyImplementationSlot)
	if err != nil {
		failures++
		d.logger.Debug("Legacy OpenZeppelin slot read failed", "address", rec.ProxyAddress, "error", err)
	} else if impl != (common.Address{}) {
		return d.matched(rec, impl, entity.DetectionOZLegacySlot)
	}

	if failures == 3 {
		rec.Degraded = true
		d.logger.Warn("Proxy detection degraded: every chain read failed", "address", rec.ProxyAddress)
		metrics.ProxyDetectionsTotal.WithLabelValues("degraded").Inc()
		return rec
	}
	metrics.ProxyDetectionsTotal.WithLabelValues(string(entity.DetectionNone)).Inc()
	return rec
}

func (d *Detector) matched(rec entity.ProxyRecord, impl common.Address, method entity.DetectionMethod) entity.ProxyRecord {
	rec.ImplementationAddress = lower(impl)
	rec.DetectionMethod = method
	d.logger.Debug("Proxy detected", "address", rec.ProxyAddress, "implementation", rec.ImplementationAddress, "method", method)
	metrics.ProxyDetectionsTotal.WithLabelValues(string(method)).Inc()
	return rec
}

// MinimalProxyTarget extracts the implementation from EIP-1167 runtime bytecode.
func MinimalProxyTarget(code []byte) (common.Address, bool) {
	if len(code) != minimalProxyLength {
		return common.Address{}, false
	}
	if !bytes.HasPrefix(code, minimalProxyPrefix) || !bytes.HasSuffix(code, minimalProxySuffix) {
		return common.Address{}, false
	}
	target := common.BytesToAddress(code[len(minimalProxyPrefix) : len(minimalProxyPrefix)+common.AddressLength])
	if target == (common.Address{}) {
		return common.Address{}, false
	}
	return target, true
}

func readSlotAddress(ctx context.Context, reader port.ChainReader, address common.Address, slot common.Hash) (common.Address, error) {
	word, err := reader.StorageAt(ctx, address, slot)
	if err != nil {
		return common.Address{}, err
	}
	// the address lives in the low 20 bytes of the word
	return common.BytesToAddress(word), nil
}

func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}
