package abisource

import (
	"context"
	"fmt"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/abiparse"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const DefaultHeimdallBaseURL = "https://heimdall-api.fly.dev"

// HeimdallClient asks a bytecode decompiler service for a best-effort ABI.
// Names in a decompiled ABI are often synthetic.
type HeimdallClient struct {
	httpSource
}

func NewHeimdallClient(opts Options, logger *zap.Logger) *HeimdallClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultHeimdallBaseURL
	}
	return &HeimdallClient{httpSource: newHTTPSource(opts, logger, "HeimdallClient")}
}

func (c *HeimdallClient) Kind() entity.AbiSourceKind { return entity.SourceDecompiler }

// FetchAbi implements port.AbiSource.
func (c *HeimdallClient) FetchAbi(ctx context.Context, address string, chainID uint64) (entity.Abi, error) {
	requestURL := fmt.Sprintf("%s/%d/%s", c.baseURL, chainID, address)
	status, body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, statusError("decompiler", status, body)
	}
	abi, err := abiparse.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: decompiler: %v", entity.ErrNotFound, err)
	}
	c.logger.Info("ABI decompiled", zap.String("address", address), zap.Uint64("chainID", chainID), zap.Int("entries", len(abi)))
	return abi, nil
}
