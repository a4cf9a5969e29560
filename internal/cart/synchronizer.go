package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/store"
)

var (
	// ErrIdentityRequired 购物车操作要求存在生效身份
	ErrIdentityRequired = errors.New("cart identity required")
	// ErrQuantityInvalid 数量必须为正整数
	ErrQuantityInvalid = errors.New("cart quantity invalid")
	// ErrItemNotFound 本地快照中不存在该购物车项
	ErrItemNotFound = errors.New("cart item not found")
)

// cartAPI 后端购物车接口
type cartAPI interface {
	FindCartItems(ctx context.Context, ident backend.CartIdentity) ([]backend.CartItem, error)
	CartCount(ctx context.Context, ident backend.CartIdentity) (int, error)
	CartTotal(ctx context.Context, ident backend.CartIdentity) (models.Money, error)
	AddCartItem(ctx context.Context, ident backend.CartIdentity, productID, sizeID uint, quantity int) error
	UpdateCartItem(ctx context.Context, itemID uint, quantity int) error
	DeleteCartItem(ctx context.Context, itemID uint) error
	SyncCart(ctx context.Context, userID uint, guestID string) error
	ClearGuestCart(ctx context.Context, guestID string) error
}

// Synchronizer 购物车同步器
// 本地快照是后端计算结果的派生缓存：读取走节流，写入走乐观更新加权威回读
type Synchronizer struct {
	api      cartAPI
	store    *store.Store
	throttle time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastFetch map[string]time.Time // 身份键 -> 上次权威拉取时间
}

// NewSynchronizer 创建购物车同步器
func NewSynchronizer(api cartAPI, st *store.Store, throttle time.Duration) *Synchronizer {
	if throttle <= 0 {
		throttle = time.Second
	}
	return &Synchronizer{
		api:       api,
		store:     st,
		throttle:  throttle,
		now:       time.Now,
		lastFetch: make(map[string]time.Time),
	}
}

func identityKey(ident backend.CartIdentity) string {
	if ident.UserID != 0 {
		return fmt.Sprintf("user:%d", ident.UserID)
	}
	if ident.GuestID != "" {
		return "guest:" + ident.GuestID
	}
	return "none"
}

// Fetch 读取购物车快照
// 节流窗口内直接返回本地快照；窗口外向后端拉取权威数据。
// 无身份时返回空购物车；拉取失败时回退到最近一次成功的快照。
func (s *Synchronizer) Fetch(ctx context.Context, sessionID string, ident backend.CartIdentity) (*models.CartSnapshot, error) {
	if !ident.Active() {
		return models.EmptyCartSnapshot(sessionID), nil
	}

	cached, err := s.store.LoadSnapshot(sessionID)
	if err != nil {
		return nil, err
	}
	if cached != nil && s.withinThrottle(ident) {
		return cached, nil
	}
	return s.refresh(ctx, sessionID, ident, cached)
}

// Refetch 绕过节流强制拉取权威快照
func (s *Synchronizer) Refetch(ctx context.Context, sessionID string, ident backend.CartIdentity) (*models.CartSnapshot, error) {
	if !ident.Active() {
		return models.EmptyCartSnapshot(sessionID), nil
	}
	cached, err := s.store.LoadSnapshot(sessionID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, sessionID, ident, cached)
}

// refresh 并发拉取明细与数量/金额聚合，成功后落库并推进版本号
func (s *Synchronizer) refresh(ctx context.Context, sessionID string, ident backend.CartIdentity, cached *models.CartSnapshot) (*models.CartSnapshot, error) {
	var (
		wg       sync.WaitGroup
		items    []backend.CartItem
		count    int
		total    models.Money
		itemsErr error
		countErr error
		totalErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		items, itemsErr = s.api.FindCartItems(ctx, ident)
	}()
	go func() {
		defer wg.Done()
		count, countErr = s.api.CartCount(ctx, ident)
	}()
	go func() {
		defer wg.Done()
		total, totalErr = s.api.CartTotal(ctx, ident)
	}()
	wg.Wait()

	if err := firstError(itemsErr, countErr, totalErr); err != nil {
		if cached != nil {
			logger.Warnw("cart_fetch_failed_serving_cached",
				"session_id", sessionID,
				"identity", identityKey(ident),
				"error", err,
			)
			return cached, nil
		}
		return nil, err
	}

	snap := &models.CartSnapshot{
		SessionID: sessionID,
		Items:     toSnapshotItems(items),
		Count:     count,
		Total:     total,
		FetchedAt: s.now(),
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	s.markFetched(ident)
	return snap, nil
}

// AddItem 新增购物车项
// 新增不做本地预演（缺少商品快照），成功后立即强制回读权威状态
func (s *Synchronizer) AddItem(ctx context.Context, sessionID string, ident backend.CartIdentity, productID, sizeID uint, quantity int) (*models.CartSnapshot, error) {
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}
	if !ident.Active() {
		return nil, ErrIdentityRequired
	}
	if err := s.api.AddCartItem(ctx, ident, productID, sizeID, quantity); err != nil {
		return nil, rewriteStockError(err, models.CartSnapshotItem{})
	}
	return s.Refetch(ctx, sessionID, ident)
}

// UpdateItemQuantity 修改购物车项数量
// 先本地预演让界面即时生效，后端拒绝时精确回滚到预演前的快照
func (s *Synchronizer) UpdateItemQuantity(ctx context.Context, sessionID string, ident backend.CartIdentity, itemID uint, quantity int) (*models.CartSnapshot, error) {
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}
	if !ident.Active() {
		return nil, ErrIdentityRequired
	}

	sp, item, err := s.speculate(ctx, sessionID, itemID, func(snap *models.CartSnapshot) {
		for i := range snap.Items {
			if snap.Items[i].ID == itemID {
				snap.Items[i].Quantity = quantity
				break
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if err := s.api.UpdateCartItem(ctx, itemID, quantity); err != nil {
		sp.revert(ctx)
		return nil, rewriteStockError(err, item)
	}
	return s.Refetch(ctx, sessionID, ident)
}

// RemoveItem 删除购物车项
// 本地先行移除，无论后端成败都以权威回读收敛
func (s *Synchronizer) RemoveItem(ctx context.Context, sessionID string, ident backend.CartIdentity, itemID uint) (*models.CartSnapshot, error) {
	if !ident.Active() {
		return nil, ErrIdentityRequired
	}

	sp, _, err := s.speculate(ctx, sessionID, itemID, func(snap *models.CartSnapshot) {
		kept := snap.Items[:0]
		for _, it := range snap.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		snap.Items = kept
	})
	if err != nil {
		return nil, err
	}

	if err := s.api.DeleteCartItem(ctx, itemID); err != nil {
		sp.revert(ctx)
		if _, rerr := s.Refetch(ctx, sessionID, ident); rerr != nil {
			logger.Warnw("cart_remove_reconcile_failed", "session_id", sessionID, "error", rerr)
		}
		return nil, err
	}
	return s.Refetch(ctx, sessionID, ident)
}

// MergeGuestCart 登录后将游客购物车合并入用户购物车
// 合并恰好请求一次；成功后清理游客侧残留并以用户身份回读
func (s *Synchronizer) MergeGuestCart(ctx context.Context, sessionID string, userID uint, guestID string) error {
	if err := s.api.SyncCart(ctx, userID, guestID); err != nil {
		return err
	}
	if err := s.api.ClearGuestCart(ctx, guestID); err != nil {
		logger.Warnw("guest_cart_cleanup_failed", "guest_id", guestID, "error", err)
	}
	if _, err := s.Refetch(ctx, sessionID, backend.CartIdentity{UserID: userID}); err != nil {
		logger.Warnw("cart_merge_refetch_failed", "session_id", sessionID, "error", err)
	}
	return nil
}

// Clear 清空本地快照（登出或下单完成后调用，不触网）
func (s *Synchronizer) Clear(ctx context.Context, sessionID string) error {
	return s.store.SaveSnapshot(ctx, models.EmptyCartSnapshot(sessionID))
}

func (s *Synchronizer) withinThrottle(ident backend.CartIdentity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastFetch[identityKey(ident)]
	return ok && s.now().Sub(last) < s.throttle
}

func (s *Synchronizer) markFetched(ident backend.CartIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch[identityKey(ident)] = s.now()
}

func toSnapshotItems(items []backend.CartItem) models.CartItemList {
	list := make(models.CartItemList, 0, len(items))
	for _, item := range items {
		list = append(list, models.CartSnapshotItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			SizeID:      item.SizeID,
			Quantity:    item.Quantity,
			ProductName: item.ProductName,
			SizeName:    item.SizeName,
			ImageURL:    item.ImageURL,
			UnitPrice:   item.UnitPrice,
		})
	}
	return list
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
