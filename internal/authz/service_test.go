package authz

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, name string) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:authz_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func TestAdminRoleCoversAdminRoutes(t *testing.T) {
	svc := newTestService(t, "admin")
	if err := svc.AssignRole(1, "admin"); err != nil {
		t.Fatalf("assign role failed: %v", err)
	}

	allowed, err := svc.EnforceUser(1, "/api/v1/admin/products", "GET")
	if err != nil {
		t.Fatalf("enforce error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected admin access to admin routes")
	}
	allowed, err = svc.EnforceUser(1, "/admin/orders/15", "DELETE")
	if err != nil {
		t.Fatalf("enforce error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected wildcard to cover nested admin paths")
	}
}

func TestCustomerRoleDeniedAdminRoutes(t *testing.T) {
	svc := newTestService(t, "customer")
	if err := svc.AssignRole(2, "customer"); err != nil {
		t.Fatalf("assign role failed: %v", err)
	}

	allowed, err := svc.EnforceUser(2, "/admin/products", "GET")
	if err != nil {
		t.Fatalf("enforce error: %v", err)
	}
	if allowed {
		t.Fatalf("expected customer denied on admin routes")
	}
	allowed, err = svc.EnforceUser(2, "/orders", "POST")
	if err != nil {
		t.Fatalf("enforce error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected customer allowed on own orders")
	}
}

func TestRevokeRolesRemovesAccess(t *testing.T) {
	svc := newTestService(t, "revoke")
	if err := svc.AssignRole(3, "admin"); err != nil {
		t.Fatalf("assign role failed: %v", err)
	}
	if err := svc.RevokeRoles(3); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allowed, err := svc.EnforceUser(3, "/admin/products", "GET")
	if err != nil {
		t.Fatalf("enforce error: %v", err)
	}
	if allowed {
		t.Fatalf("expected access removed after revoke")
	}
}

func TestNormalizeObjectStripsAPIPrefix(t *testing.T) {
	if got := NormalizeObject("/api/v1/admin/users"); got != "/admin/users" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject("admin/users"); got != "/admin/users" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject(""); got != "/" {
		t.Fatalf("unexpected object: %s", got)
	}
}
