package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMClient is the RPC handle for one chain. It implements port.BlockchainClient.
//
// Connections are dialled lazily, one per endpoint. Every call tries the endpoints
// in configured order and stops at the first one that answers.
type EVMClient struct {
	chainID        uint64
	endpoints      []string
	createdAt      time.Time
	dialTimeout    time.Duration
	rpcCallTimeout time.Duration
	logger         port.Logger

	mu    sync.Mutex
	conns []*ethclient.Client
}

// NewEVMClient creates a handle for the network definition. No connection is opened yet.
func NewEVMClient(netDef entity.NetworkDefinition, dialTimeout, rpcCallTimeout time.Duration, logger port.Logger) (*EVMClient, error) {
	if len(netDef.RPCURLs) == 0 {
		return nil, fmt.Errorf("network %s (chain %d) has no rpc urls", netDef.Name, netDef.ID)
	}
	return &EVMClient{
		chainID:        netDef.ID,
		endpoints:      append([]string(nil), netDef.RPCURLs...),
		createdAt:      time.Now(),
		dialTimeout:    dialTimeout,
		rpcCallTimeout: rpcCallTimeout,
		logger:         logger,
		conns:          make([]*ethclient.Client, len(netDef.RPCURLs)),
	}, nil
}

func (c *EVMClient) ChainID() uint64 { return c.chainID }

// Endpoint returns the primary RPC URL.
func (c *EVMClient) Endpoint() string { return c.endpoints[0] }

func (c *EVMClient) Endpoints() []string { return append([]string(nil), c.endpoints...) }

func (c *EVMClient) CreatedAt() time.Time { return c.createdAt }

// StorageAt reads one storage slot at the latest block.
func (c *EVMClient) StorageAt(ctx context.Context, address common.Address, slot common.Hash) ([]byte, error) {
	var out []byte
	err := c.withFailover(ctx, "eth_getStorageAt", func(callCtx context.Context, ec *ethclient.Client) error {
		var err error
		out, err = ec.StorageAt(callCtx, address, slot, nil)
		return err
	})
	return out, err
}

// CodeAt reads the deployed bytecode at the latest block.
func (c *EVMClient) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	var out []byte
	err := c.withFailover(ctx, "eth_getCode", func(callCtx context.Context, ec *ethclient.Client) error {
		var err error
		out, err = ec.CodeAt(callCtx, address, nil)
		return err
	})
	return out, err
}

// Close releases every dialled connection.
func (c *EVMClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, conn := range c.conns {
		if conn != nil {
			conn.Close()
			c.conns[i] = nil
		}
	}
}

func (c *EVMClient) withFailover(ctx context.Context, method string, call func(context.Context, *ethclient.Client) error) error {
	var lastErr error
	for i, rpcURL := range c.endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		ec, err := c.conn(ctx, i)
		if err != nil {
			lastErr = err
			c.logger.Warn("RPC dial failed, trying next endpoint", "chainID", c.chainID, "endpoint", rpcURL, "error", err)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
		err = call(callCtx, ec)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		lastErr = fmt.Errorf("%s via %s: %w", method, rpcURL, err)
		c.logger.Debug("RPC call failed, trying next endpoint", "chainID", c.chainID, "endpoint", rpcURL, "method", method, "error", err)
	}
	return fmt.Errorf("all %d rpc endpoints failed for chain %d: %w", len(c.endpoints), c.chainID, lastErr)
}

func (c *EVMClient) conn(ctx context.Context, i int) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[i] != nil {
		return c.conns[i], nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	ec, err := ethclient.DialContext(dialCtx, c.endpoints[i])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", c.endpoints[i], err)
	}
	c.conns[i] = ec
	return ec, nil
}
