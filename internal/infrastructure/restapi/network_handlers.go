package restapi

import (
	"net/http"
	"strconv"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxNetworkBodyBytes ограничивает размер описания сети.
const maxNetworkBodyBytes = 64 << 10

// NetworksResponse определяет структуру ответа со списком сетей.
type NetworksResponse struct {
	Networks []entity.NetworkDefinition `json:"networks"`
}

// NetworkHandler обрабатывает HTTP запросы, связанные с реестром сетей.
type NetworkHandler struct {
	registry port.ChainRegistry
	clients  port.BlockchainClientProvider
	logger   port.Logger
}

// NewNetworkHandler создает новый экземпляр NetworkHandler.
func NewNetworkHandler(registry port.ChainRegistry, clients port.BlockchainClientProvider, logger port.Logger) *NetworkHandler {
	return &NetworkHandler{registry: registry, clients: clients, logger: logger}
}

// ListNetworks возвращает встроенные сети, затем пользовательские.
func (h *NetworkHandler) ListNetworks(c *gin.Context) {
	c.JSON(http.StatusOK, NetworksResponse{Networks: h.registry.ListNetworks()})
}

// AddNetwork регистрирует пользовательскую сеть из JSON тела запроса.
func (h *NetworkHandler) AddNetwork(c *gin.Context) {
	body, ok := readBody(c, maxNetworkBodyBytes)
	if !ok {
		return
	}
	var def entity.NetworkDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		badRequest(c, "invalid network definition: "+err.Error())
		return
	}
	if err := h.registry.AddCustomNetwork(c.Request.Context(), def); err != nil {
		abortWithError(c, err)
		return
	}
	added, err := h.registry.GetByID(def.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// RemoveNetwork удаляет пользовательскую сеть по chain id.
func (h *NetworkHandler) RemoveNetwork(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	if err := h.registry.RemoveCustomNetwork(c.Request.Context(), chainID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetConnectorConfig возвращает текущую конфигурацию коннектора кошелька.
func (h *NetworkHandler) GetConnectorConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.clients.ConnectorConfig())
}

func chainIDParam(c *gin.Context) (uint64, bool) {
	chainID, err := strconv.ParseUint(c.Param("chainId"), 10, 64)
	if err != nil || chainID == 0 {
		badRequest(c, "chainId must be a positive integer")
		return 0, false
	}
	return chainID, true
}
