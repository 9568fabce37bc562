package abisource

import (
	"context"
	"fmt"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/abiparse"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const DefaultAnyAbiBaseURL = "https://anyabi.xyz"

type anyAbiResponse struct {
	Abi   jsoniter.RawMessage `json:"abi"`
	Name  string              `json:"name"`
	Error string              `json:"error"`
}

// AnyAbiClient queries the public ABI directory.
type AnyAbiClient struct {
	httpSource
}

func NewAnyAbiClient(opts Options, logger *zap.Logger) *AnyAbiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAnyAbiBaseURL
	}
	return &AnyAbiClient{httpSource: newHTTPSource(opts, logger, "AnyAbiClient")}
}

func (c *AnyAbiClient) Kind() entity.AbiSourceKind { return entity.SourceAbiDirectory }

// FetchAbi implements port.AbiSource.
func (c *AnyAbiClient) FetchAbi(ctx context.Context, address string, chainID uint64) (entity.Abi, error) {
	requestURL := fmt.Sprintf("%s/api/get-abi/%d/%s", c.baseURL, chainID, address)
	status, body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, statusError("abi directory", status, body)
	}

	var parsed anyAbiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("Failed to unmarshal ABI directory response", zap.ByteString("responseBody", body), zap.Error(err))
		return nil, fmt.Errorf("%w: abi directory: undecodable response: %v", entity.ErrNotFound, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: abi directory: %s", entity.ErrNotFound, parsed.Error)
	}
	if len(parsed.Abi) == 0 || string(parsed.Abi) == "null" {
		return nil, fmt.Errorf("%w: abi directory returned no abi", entity.ErrNotFound)
	}

	abi, err := abiparse.Parse(string(parsed.Abi))
	if err != nil {
		return nil, fmt.Errorf("%w: abi directory: %v", entity.ErrNotFound, err)
	}
	c.logger.Debug("ABI found in directory", zap.String("address", address), zap.Uint64("chainID", chainID), zap.String("name", parsed.Name), zap.Int("entries", len(abi)))
	return abi, nil
}
