package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CartSnapshotItem 购物车项（含商品/规格冗余快照，便于离线渲染）
type CartSnapshotItem struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"product_id"`
	SizeID      uint   `json:"size_id"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name"`
	SizeName    string `json:"size_name"`
	ImageURL    string `json:"image_url"`
	UnitPrice   Money  `json:"unit_price"`
}

// CartItemList 购物车项列表（JSON 列）
type CartItemList []CartSnapshotItem

// Value 用于数据库写入
func (l CartItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 用于数据库读取
func (l *CartItemList) Scan(value interface{}) error {
	if value == nil {
		*l = CartItemList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported cart item list type: %T", value)
	}
	if len(data) == 0 {
		*l = CartItemList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// CartSnapshot 购物车快照缓存
// 后端计算结果的派生缓存，可随时丢弃重建；items 为空时 count/total 强制归零
type CartSnapshot struct {
	ID        uint         `gorm:"primarykey" json:"id"`
	SessionID string       `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Version   uint64       `gorm:"not null;default:0" json:"version"` // 快照版本号，广播去重用
	Items     CartItemList `gorm:"type:text" json:"items"`
	Count     int          `gorm:"not null;default:0" json:"count"`
	Total     Money        `gorm:"type:decimal(12,2);default:0" json:"total"`
	FetchedAt time.Time    `json:"fetched_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName 指定表名
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}

// Normalize 强制快照不变式：items 为空时 count 与 total 归零
func (s *CartSnapshot) Normalize() {
	if s == nil {
		return
	}
	if len(s.Items) == 0 {
		s.Items = CartItemList{}
		s.Count = 0
		s.Total = Money{}
	}
}

// Clone 深拷贝快照（乐观更新回滚用）
func (s *CartSnapshot) Clone() *CartSnapshot {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Items = make(CartItemList, len(s.Items))
	copy(dup.Items, s.Items)
	return &dup
}

// FindItem 按购物车项 ID 查找
func (s *CartSnapshot) FindItem(itemID uint) (CartSnapshotItem, bool) {
	if s == nil {
		return CartSnapshotItem{}, false
	}
	for _, item := range s.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartSnapshotItem{}, false
}

// RecomputeLocal 按本地项重算 count 与 total（后端权威值到达前的过渡值）
func (s *CartSnapshot) RecomputeLocal() {
	if s == nil {
		return
	}
	count := 0
	total := decimal.Zero
	for _, item := range s.Items {
		count += item.Quantity
		total = total.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	s.Count = count
	s.Total = NewMoneyFromDecimal(total)
	s.Normalize()
}

// EmptyCartSnapshot 构造空快照
func EmptyCartSnapshot(sessionID string) *CartSnapshot {
	return &CartSnapshot{
		SessionID: sessionID,
		Items:     CartItemList{},
	}
}
