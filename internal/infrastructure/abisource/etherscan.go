package abisource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/abiparse"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const DefaultEtherscanBaseURL = "https://api.etherscan.io"

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// EtherscanClient queries the Etherscan v2 multichain API.
type EtherscanClient struct {
	httpSource
	apiKey string
}

func NewEtherscanClient(opts Options, apiKey string, logger *zap.Logger) *EtherscanClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultEtherscanBaseURL
	}
	return &EtherscanClient{httpSource: newHTTPSource(opts, logger, "EtherscanClient"), apiKey: apiKey}
}

func (c *EtherscanClient) Kind() entity.AbiSourceKind { return entity.SourceBlockExplorer }

// FetchAbi implements port.AbiSource.
func (c *EtherscanClient) FetchAbi(ctx context.Context, address string, chainID uint64) (entity.Abi, error) {
	q := url.Values{}
	q.Set("chainid", strconv.FormatUint(chainID, 10))
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address)
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	requestURL := c.baseURL + "/v2/api?" + q.Encode()

	status, body, err := c.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, statusError("block explorer", status, body)
	}

	var parsed etherscanResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("Failed to unmarshal explorer response", zap.ByteString("responseBody", body), zap.Error(err))
		return nil, fmt.Errorf("%w: block explorer: undecodable response: %v", entity.ErrNetwork, err)
	}
	if parsed.Status != "1" {
		return nil, classifyExplorerFailure(parsed)
	}

	abi, err := abiparse.Parse(parsed.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: block explorer: %v", entity.ErrNotVerified, err)
	}
	return abi, nil
}

func classifyExplorerFailure(r etherscanResponse) error {
	text := strings.ToLower(r.Result + " " + r.Message)
	switch {
	case strings.Contains(text, "not verified"):
		return fmt.Errorf("%w: %s", entity.ErrNotVerified, r.Result)
	case strings.Contains(text, "rate limit"), strings.Contains(text, "max calls"), strings.Contains(text, "timeout"):
		return fmt.Errorf("%w: block explorer: %s", entity.ErrNetwork, r.Result)
	case strings.Contains(text, "invalid api key"), strings.Contains(text, "missing/invalid api key"):
		return fmt.Errorf("%w: block explorer rejected api key: %s", entity.ErrNetwork, r.Result)
	case strings.Contains(text, "chain"):
		return fmt.Errorf("%w: block explorer: %s", entity.ErrNotFound, r.Result)
	default:
		return fmt.Errorf("%w: block explorer: %s %s", entity.ErrNotVerified, r.Message, r.Result)
	}
}
