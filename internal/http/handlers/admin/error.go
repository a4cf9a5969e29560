package admin

import (
	"errors"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/http/handlers/shared"
	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondBackendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		response.Unauthorized(c, "error.unauthorized")
	case errors.Is(err, backend.ErrUnavailable):
		shared.RespondError(c, response.CodeBadGateway, "error.backend_unavailable", err)
	case errors.Is(err, backend.ErrResponseInvalid):
		shared.RespondError(c, response.CodeBadGateway, "error.backend_response_invalid", err)
	default:
		if apiErr, ok := backend.AsAPIError(err); ok {
			response.BadRequest(c, apiErr.Message)
			return
		}
		shared.RespondError(c, response.CodeInternal, "error.internal", err)
	}
}
