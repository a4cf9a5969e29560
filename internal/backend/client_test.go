package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cakery-next/internal/config"
)

func newTestClient(server *httptest.Server) *Client {
	return New(config.BackendConfig{BaseURL: server.URL, TimeoutMS: 2000, ServiceToken: "svc-token"})
}

func TestGuestSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cart/guest-session" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"guestId":"g-abc"}`))
	}))
	defer server.Close()

	guestID, err := newTestClient(server).GuestSession(context.Background())
	if err != nil {
		t.Fatalf("guest session error: %v", err)
	}
	if guestID != "g-abc" {
		t.Fatalf("expected g-abc, got %q", guestID)
	}
}

func TestGuestSessionMissingIDIsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server).GuestSession(context.Background()); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestFindCartItemsSendsIdentityQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "7" {
			t.Errorf("expected userId=7, got %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":1,"productId":2,"sizeId":3,"quantity":4,"productName":"黑森林","unitPrice":"88.00"}]`))
	}))
	defer server.Close()

	items, err := newTestClient(server).FindCartItems(context.Background(), CartIdentity{UserID: 7})
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if len(items) != 1 || items[0].ProductName != "黑森林" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].UnitPrice.String() != "88.00" {
		t.Fatalf("expected price 88.00, got %s", items[0].UnitPrice.String())
	}
}

func TestMutationFailureCarriesBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Insufficient stock. Available: 2"}`))
	}))
	defer server.Close()

	err := newTestClient(server).UpdateCartItem(context.Background(), 1, 5)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.Message != "Insufficient stock. Available: 2" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestUnauthorizedStatusMapsToSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server).Me(context.Background(), "stale-token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server).CartCount(context.Background(), CartIdentity{GuestID: "g-1"})
	if !IsTransient(err) {
		t.Fatalf("expected transient failure, got %v", err)
	}
}

func TestRequestCarriesBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"amy@example.com","name":"Amy","role":"customer"}`))
	}))
	defer server.Close()

	user, err := newTestClient(server).Me(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("me error: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAdminSummaryUsesServiceToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token" {
			t.Errorf("expected service token, got %q", got)
		}
		_, _ = w.Write([]byte(`{"orders":12}`))
	}))
	defer server.Close()

	raw, err := newTestClient(server).AdminSummary(context.Background())
	if err != nil {
		t.Fatalf("summary error: %v", err)
	}
	if string(raw) != `{"orders":12}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestIsAdminResource(t *testing.T) {
	for _, resource := range []string{"products", "orders", "users", " Products "} {
		if !IsAdminResource(resource) {
			t.Fatalf("expected %q to be supported", resource)
		}
	}
	if IsAdminResource("coupons") {
		t.Fatalf("expected coupons to be unsupported")
	}
}
