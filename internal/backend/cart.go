package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cakery-next/internal/models"
)

// CartIdentity 购物车归属身份（用户或游客，二者互斥）
type CartIdentity struct {
	UserID  uint
	GuestID string
}

// Active 判断身份是否有效
func (ci CartIdentity) Active() bool {
	return ci.UserID != 0 || ci.GuestID != ""
}

func (ci CartIdentity) query() url.Values {
	values := url.Values{}
	if ci.UserID != 0 {
		values.Set("userId", strconv.FormatUint(uint64(ci.UserID), 10))
	} else if ci.GuestID != "" {
		values.Set("guestId", ci.GuestID)
	}
	return values
}

// CartItem 后端购物车项
type CartItem struct {
	ID          uint         `json:"id"`
	UserID      uint         `json:"userId"`
	GuestID     string       `json:"guestId"`
	ProductID   uint         `json:"productId"`
	SizeID      uint         `json:"sizeId"`
	Quantity    int          `json:"quantity"`
	ProductName string       `json:"productName"`
	SizeName    string       `json:"sizeName"`
	ImageURL    string       `json:"imageUrl"`
	UnitPrice   models.Money `json:"unitPrice"`
}

// GuestSession 申请新的游客标识
func (c *Client) GuestSession(ctx context.Context) (string, error) {
	var result struct {
		GuestID string `json:"guestId"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart/guest-session", nil, nil, "", &result); err != nil {
		return "", err
	}
	if result.GuestID == "" {
		return "", ErrResponseInvalid
	}
	return result.GuestID, nil
}

// FindCartItems 按身份查询购物车项列表
func (c *Client) FindCartItems(ctx context.Context, ident CartIdentity) ([]CartItem, error) {
	var items []CartItem
	if err := c.do(ctx, http.MethodGet, "/cart/findMany", ident.query(), nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CartCount 查询购物车数量聚合
func (c *Client) CartCount(ctx context.Context, ident CartIdentity) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart/count", ident.query(), nil, "", &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// CartTotal 查询购物车金额聚合
func (c *Client) CartTotal(ctx context.Context, ident CartIdentity) (models.Money, error) {
	var result struct {
		Total models.Money `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart/total", ident.query(), nil, "", &result); err != nil {
		return models.Money{}, err
	}
	return result.Total, nil
}

type addCartItemRequest struct {
	UserID    uint   `json:"userId,omitempty"`
	GuestID   string `json:"guestId,omitempty"`
	ProductID uint   `json:"productId"`
	SizeID    uint   `json:"sizeId"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem 新增购物车项
func (c *Client) AddCartItem(ctx context.Context, ident CartIdentity, productID, sizeID uint, quantity int) error {
	req := addCartItemRequest{
		UserID:    ident.UserID,
		GuestID:   ident.GuestID,
		ProductID: productID,
		SizeID:    sizeID,
		Quantity:  quantity,
	}
	return c.doMutation(ctx, http.MethodPost, "/cart/add", nil, req, "")
}

// UpdateCartItem 更新购物车项数量
func (c *Client) UpdateCartItem(ctx context.Context, itemID uint, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.doMutation(ctx, http.MethodPut, "/cart/"+strconv.FormatUint(uint64(itemID), 10), nil, body, "")
}

// DeleteCartItem 删除购物车项
func (c *Client) DeleteCartItem(ctx context.Context, itemID uint) error {
	return c.doMutation(ctx, http.MethodDelete, "/cart/"+strconv.FormatUint(uint64(itemID), 10), nil, nil, "")
}

type syncCartRequest struct {
	UserID  uint   `json:"userId"`
	GuestID string `json:"guestId"`
}

// SyncCart 将游客购物车合并入用户购物车
func (c *Client) SyncCart(ctx context.Context, userID uint, guestID string) error {
	return c.doMutation(ctx, http.MethodPost, "/cart/sync", nil, syncCartRequest{UserID: userID, GuestID: guestID}, "")
}

// ClearGuestCart 清空游客购物车
func (c *Client) ClearGuestCart(ctx context.Context, guestID string) error {
	values := url.Values{}
	values.Set("guestId", guestID)
	return c.doMutation(ctx, http.MethodDelete, "/cart/clear-guest-cart", values, nil, "")
}
