package shop

import (
	"errors"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/cart"
	"github.com/cakery-next/internal/http/handlers/shared"
	"github.com/cakery-next/internal/http/response"
	"github.com/cakery-next/internal/identity"
	"github.com/cakery-next/internal/service"

	"github.com/gin-gonic/gin"
)

// respondBackendError 将内部错误映射为统一响应
// 库存不足携带剩余数量，便于前端直接渲染可行动的提示
func respondBackendError(c *gin.Context, err error) {
	var stockErr *cart.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		response.ErrorWithData(c, response.CodeConflict, stockErr.Error(), gin.H{
			"available":    stockErr.Available,
			"product_name": stockErr.ProductName,
			"size_name":    stockErr.SizeName,
		})
	case errors.Is(err, cart.ErrQuantityInvalid):
		response.BadRequest(c, "error.quantity_invalid")
	case errors.Is(err, cart.ErrItemNotFound):
		response.NotFound(c, "error.cart_item_not_found")
	case errors.Is(err, cart.ErrIdentityRequired), errors.Is(err, identity.ErrNoIdentity):
		shared.RespondError(c, response.CodeBadGateway, "error.identity_unavailable", err)
	case errors.Is(err, service.ErrCaptchaRequired):
		response.BadRequest(c, "error.captcha_required")
	case errors.Is(err, service.ErrCaptchaInvalid):
		response.BadRequest(c, "error.captcha_invalid")
	case errors.Is(err, service.ErrLoginRequired):
		response.Unauthorized(c, "error.unauthorized")
	case errors.Is(err, service.ErrOrderInvalid):
		response.BadRequest(c, "error.order_invalid")
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
