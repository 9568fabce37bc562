package restapi

import (
	"errors"
	"io"
	"net/http"

	"abi_resolver/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// APIError описывает тело любого ответа с ошибкой.
type APIError struct {
	Error      string       `json:"error"`
	Attempts   []APIAttempt `json:"attempts,omitempty"`
	IsContract *bool        `json:"isContract,omitempty"`
}

// APIAttempt описывает одну неудачную попытку получить ABI из источника.
type APIAttempt struct {
	Source entity.AbiSourceKind `json:"source"`
	Reason string               `json:"reason"`
}

// statusFor сопоставляет доменные ошибки с HTTP статусами.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnknownChain), errors.Is(err, entity.ErrAllSourcesExhausted):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict), errors.Is(err, entity.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, entity.ErrBuiltinNotRemovable):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrInvalidAbiFormat),
		errors.Is(err, entity.ErrInvalidAddress),
		errors.Is(err, entity.ErrInvalidNetwork):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError пишет ошибку в ответ и прерывает цепочку обработчиков.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	body := APIError{Error: err.Error()}

	var exhausted *entity.ExhaustedError
	if errors.As(err, &exhausted) {
		isContract := exhausted.IsContract
		body.IsContract = &isContract
		for _, a := range exhausted.Attempts {
			body.Attempts = append(body.Attempts, APIAttempt{Source: a.Source, Reason: a.Reason()})
		}
	}
	c.AbortWithStatusJSON(statusFor(err), body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, APIError{Error: msg})
}

// readBody читает тело запроса не длиннее limit байт.
// Более длинное тело отклоняется со статусом 413.
func readBody(c *gin.Context, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, APIError{Error: "request body too large"})
			return nil, false
		}
		badRequest(c, "failed to read request body")
		return nil, false
	}
	return body, true
}
