package proxydetect

import (
	"context"
	"errors"
	"testing"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	slots   map[common.Hash][]byte
	code    []byte
	slotErr error
	codeErr error
	calls   []string
}

func (f *fakeReader) StorageAt(_ context.Context, _ common.Address, slot common.Hash) ([]byte, error) {
	f.calls = append(f.calls, "storage:"+slot.Hex())
	if f.slotErr != nil {
		return nil, f.slotErr
	}
	if v, ok := f.slots[slot]; ok {
		return v, nil
	}
	return make([]byte, 32), nil
}

func (f *fakeReader) CodeAt(_ context.Context, _ common.Address) ([]byte, error) {
	f.calls = append(f.calls, "code")
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.code, nil
}

var (
	proxyAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	implA     = common.HexToAddress("0xAaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	implB     = common.HexToAddress("0xBbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func word(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func minimalProxyCode(a common.Address) []byte {
	code := append([]byte{}, minimalProxyPrefix...)
	code = append(code, a.Bytes()...)
	return append(code, minimalProxySuffix...)
}

func TestSlotConstants(t *testing.T) {
	assert.Equal(t, "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc", EIP1967ImplementationSlot.Hex())
	assert.Equal(t, "0x7050c9e0f4ca769c69bd3a8ef740bc37934f8e2c036e5a723fd8ee048ed3f8c3", OZLegacyImplementationSlot.Hex())
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		reader   *fakeReader
		method   entity.DetectionMethod
		impl     string
		degraded bool
	}{
		{
			name:   "eip1967 slot",
			reader: &fakeReader{slots: map[common.Hash][]byte{EIP1967ImplementationSlot: word(implA)}},
			method: entity.DetectionEIP1967Slot,
			impl:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		{
			name:   "eip1167 bytecode",
			reader: &fakeReader{code: minimalProxyCode(implB)},
			method: entity.DetectionEIP1167Bytecode,
			impl:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		},
		{
			name:   "oz legacy slot",
			reader: &fakeReader{slots: map[common.Hash][]byte{OZLegacyImplementationSlot: word(implB)}, code: []byte{0x60, 0x80}},
			method: entity.DetectionOZLegacySlot,
			impl:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		},
		{
			name: "eip1967 wins over legacy slot",
			reader: &fakeReader{slots: map[common.Hash][]byte{
				EIP1967ImplementationSlot:  word(implA),
				OZLegacyImplementationSlot: word(implB),
			}},
			method: entity.DetectionEIP1967Slot,
			impl:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		{
			name:   "plain contract",
			reader: &fakeReader{code: []byte{0x60, 0x80, 0x60, 0x40}},
			method: entity.DetectionNone,
		},
		{
			name:   "code read fails but slots are readable",
			reader: &fakeReader{codeErr: errors.New("boom")},
			method: entity.DetectionNone,
		},
		{
			name:     "all reads fail",
			reader:   &fakeReader{slotErr: errors.New("down"), codeErr: errors.New("down")},
			method:   entity.DetectionNone,
			degraded: true,
		},
	}

	d := NewDetector(logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := d.Detect(context.Background(), proxyAddr, tt.reader)
			assert.Equal(t, tt.method, rec.DetectionMethod)
			assert.Equal(t, tt.impl, rec.ImplementationAddress)
			assert.Equal(t, tt.degraded, rec.Degraded)
			assert.Equal(t, "0x1111111111111111111111111111111111111111", rec.ProxyAddress)
		})
	}
}

func TestDetect_StopsAtFirstMatch(t *testing.T) {
	r := &fakeReader{slots: map[common.Hash][]byte{EIP1967ImplementationSlot: word(implA)}}
	NewDetector(logger.NewNop()).Detect(context.Background(), proxyAddr, r)
	require.Len(t, r.calls, 1)
}

func TestDetect_SlotErrorFallsThroughToBytecode(t *testing.T) {
	r := &fakeReader{slotErr: errors.New("rate limited"), code: minimalProxyCode(implA)}
	rec := NewDetector(logger.NewNop()).Detect(context.Background(), proxyAddr, r)
	assert.Equal(t, entity.DetectionEIP1167Bytecode, rec.DetectionMethod)
	assert.False(t, rec.Degraded)
}

func TestMinimalProxyTarget(t *testing.T) {
	code := minimalProxyCode(implA)
	require.Len(t, code, 45)

	got, ok := MinimalProxyTarget(code)
	require.True(t, ok)
	assert.Equal(t, implA, got)

	_, ok = MinimalProxyTarget(append(code, 0x00))
	assert.False(t, ok, "trailing byte")

	broken := append([]byte{}, code...)
	broken[0] = 0x00
	_, ok = MinimalProxyTarget(broken)
	assert.False(t, ok, "wrong prefix")

	_, ok = MinimalProxyTarget(minimalProxyCode(common.Address{}))
	assert.False(t, ok, "zero target")
}
