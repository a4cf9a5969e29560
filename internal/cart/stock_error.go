package cart

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/models"
)

// 后端库存不足的报错形如 "Insufficient stock. Available: 3"
var stockAvailablePattern = regexp.MustCompile(`(?i)available:\s*(\d+)`)

// InsufficientStockError 库存不足
// 从后端消息中提取剩余可购数量，向用户展示可行动的提示
type InsufficientStockError struct {
	ProductName string
	SizeName    string
	Available   int
}

// Error 实现 error 接口
func (e *InsufficientStockError) Error() string {
	name := strings.TrimSpace(e.ProductName)
	if e.SizeName != "" {
		name = name + "(" + e.SizeName + ")"
	}
	if name == "" {
		return fmt.Sprintf("库存不足，当前仅剩 %d 件", e.Available)
	}
	return fmt.Sprintf("%s 库存不足，当前仅剩 %d 件", name, e.Available)
}

// rewriteStockError 识别库存不足类后端错误并改写为结构化错误
// 无法识别时原样返回
func rewriteStockError(err error, item models.CartSnapshotItem) error {
	if err == nil {
		return nil
	}
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return err
	}
	match := stockAvailablePattern.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return err
	}
	available, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return err
	}
	return &InsufficientStockError{
		ProductName: item.ProductName,
		SizeName:    item.SizeName,
		Available:   available,
	}
}
