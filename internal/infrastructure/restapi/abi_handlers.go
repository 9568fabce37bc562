package restapi

import (
	"net/http"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// SessionHeader задает область запросов одного клиента: отвечаем только на самый новый.
const SessionHeader = "X-Session-ID"

// maxAbiBodyBytes ограничивает размер ABI, переданного пользователем.
const maxAbiBodyBytes = 4 << 20

// AbiHandler обрабатывает HTTP запросы, связанные с ABI контрактов.
type AbiHandler struct {
	resolver port.AbiResolverService
	logger   port.Logger
}

// NewAbiHandler создает новый экземпляр AbiHandler.
func NewAbiHandler(resolver port.AbiResolverService, logger port.Logger) *AbiHandler {
	return &AbiHandler{resolver: resolver, logger: logger}
}

// GetAbi определяет ABI контракта.
func (h *AbiHandler) GetAbi(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	address := c.Param("address")
	ctx := c.Request.Context()

	var (
		res *entity.Resolution
		err error
	)
	if scope := c.GetHeader(SessionHeader); scope != "" {
		res, err = h.resolver.ResolveLatest(ctx, scope, address, chainID, entity.ResolveOptions{})
	} else {
		res, err = h.resolver.Resolve(ctx, address, chainID, entity.ResolveOptions{})
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PutAbi сохраняет ABI пользователя. Тело запроса содержит текст ABI как есть.
func (h *AbiHandler) PutAbi(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	body, ok := readBody(c, maxAbiBodyBytes)
	if !ok {
		return
	}
	res, err := h.resolver.ProvideAbi(c.Request.Context(), c.Param("address"), chainID, string(body))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteAbi удаляет ABI из кэша, следующий запрос снова обратится к источникам.
func (h *AbiHandler) DeleteAbi(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	if err := h.resolver.ClearAbi(c.Request.Context(), c.Param("address"), chainID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Decompile запрашивает ABI у декомпилятора.
func (h *AbiHandler) Decompile(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	res, err := h.resolver.Decompile(c.Request.Context(), c.Param("address"), chainID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetProxy возвращает адрес реализации за прокси, если он есть.
func (h *AbiHandler) GetProxy(c *gin.Context) {
	chainID, ok := chainIDParam(c)
	if !ok {
		return
	}
	rec, err := h.resolver.DetectProxyTarget(c.Request.Context(), c.Param("address"), chainID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
