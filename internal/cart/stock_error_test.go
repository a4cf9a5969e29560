package cart

import (
	"errors"
	"strings"
	"testing"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/models"
)

func TestRewriteStockErrorExtractsAvailable(t *testing.T) {
	src := &backend.APIError{StatusCode: 409, Message: "Insufficient stock. Available: 3"}
	err := rewriteStockError(src, models.CartSnapshotItem{ProductName: "黑森林", SizeName: "8寸"})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if stockErr.Available != 3 {
		t.Fatalf("expected available 3, got %d", stockErr.Available)
	}
	if !strings.Contains(stockErr.Error(), "黑森林") || !strings.Contains(stockErr.Error(), "3") {
		t.Fatalf("unexpected message: %s", stockErr.Error())
	}
}

func TestRewriteStockErrorIgnoresUnrelatedErrors(t *testing.T) {
	src := &backend.APIError{StatusCode: 400, Message: "invalid payload"}
	if err := rewriteStockError(src, models.CartSnapshotItem{}); !errors.Is(err, src) {
		t.Fatalf("expected passthrough, got %v", err)
	}

	plain := errors.New("boom")
	if err := rewriteStockError(plain, models.CartSnapshotItem{}); !errors.Is(err, plain) {
		t.Fatalf("expected passthrough for plain error, got %v", err)
	}
}

func TestRewriteStockErrorCaseInsensitive(t *testing.T) {
	src := &backend.APIError{StatusCode: 409, Message: "insufficient stock, available: 12"}
	var stockErr *InsufficientStockError
	if err := rewriteStockError(src, models.CartSnapshotItem{}); !errors.As(err, &stockErr) {
		t.Fatalf("expected rewrite, got %v", err)
	}
	if stockErr.Available != 12 {
		t.Fatalf("expected available 12, got %d", stockErr.Available)
	}
}
