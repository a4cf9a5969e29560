package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T, name string) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:identity_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.VisitorState{}, &models.CartSnapshot{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return store.New(db)
}

type fakeAuthAPI struct {
	guestCalls int
	guestErr   error
	result     *backend.AuthResult
	loginErr   error
}

func (f *fakeAuthAPI) GuestSession(ctx context.Context) (string, error) {
	f.guestCalls++
	if f.guestErr != nil {
		return "", f.guestErr
	}
	return fmt.Sprintf("guest-%d", f.guestCalls), nil
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (*backend.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

func (f *fakeAuthAPI) Register(ctx context.Context, email, password, name string) (*backend.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

type fakeMerger struct {
	calls int
	err   error

	lastUserID  uint
	lastGuestID string
}

func (f *fakeMerger) MergeGuestCart(ctx context.Context, sessionID string, userID uint, guestID string) error {
	f.calls++
	f.lastUserID = userID
	f.lastGuestID = guestID
	return f.err
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func TestResolveIssuesGuestOnFirstVisit(t *testing.T) {
	api := &fakeAuthAPI{}
	st := newTestStore(t, "firstvisit")
	resolver := NewResolver(api, st)

	state, err := resolver.Resolve(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if state.Kind != constants.IdentityGuestActive || state.GuestID != "guest-1" {
		t.Fatalf("expected guest-1, got %+v", state)
	}

	visitor, err := st.LoadVisitor("sess-1")
	if err != nil {
		t.Fatalf("load visitor error: %v", err)
	}
	if visitor.GuestID != "guest-1" {
		t.Fatalf("expected persisted guest id, got %q", visitor.GuestID)
	}
}

func TestResolveReusesCachedGuest(t *testing.T) {
	api := &fakeAuthAPI{}
	resolver := NewResolver(api, newTestStore(t, "reuse"))

	if _, err := resolver.Resolve(context.Background(), "sess-1"); err != nil {
		t.Fatalf("first resolve error: %v", err)
	}
	state, err := resolver.Resolve(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("second resolve error: %v", err)
	}
	if state.GuestID != "guest-1" {
		t.Fatalf("expected reused guest id, got %q", state.GuestID)
	}
	if api.guestCalls != 1 {
		t.Fatalf("expected a single guest session request, got %d", api.guestCalls)
	}
}

func TestResolveGuestSessionFailure(t *testing.T) {
	api := &fakeAuthAPI{guestErr: fmt.Errorf("dial backend: %w", backend.ErrUnavailable)}
	resolver := NewResolver(api, newTestStore(t, "guestfail"))

	state, err := resolver.Resolve(context.Background(), "sess-1")
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	if state.Kind != constants.IdentityNone {
		t.Fatalf("expected no identity, got %+v", state)
	}
}

func TestLoginWithGuestCartTriggersSingleMerge(t *testing.T) {
	api := &fakeAuthAPI{result: &backend.AuthResult{
		User:  backend.AuthUser{ID: 7, Email: "amy@example.com", Name: "Amy", Role: "customer"},
		Token: signedToken(t, time.Now().Add(time.Hour)),
	}}
	st := newTestStore(t, "merge")
	resolver := NewResolver(api, st)
	merger := &fakeMerger{}
	resolver.SetMerger(merger)

	if _, err := resolver.Resolve(context.Background(), "sess-1"); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	state, err := resolver.Login(context.Background(), "sess-1", "amy@example.com", "pw")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if state.Kind != constants.IdentityUserActive || state.UserID != 7 {
		t.Fatalf("expected user active, got %+v", state)
	}
	if merger.calls != 1 {
		t.Fatalf("expected exactly one merge, got %d", merger.calls)
	}
	if merger.lastUserID != 7 || merger.lastGuestID != "guest-1" {
		t.Fatalf("unexpected merge args: user %d guest %q", merger.lastUserID, merger.lastGuestID)
	}

	visitor, err := st.LoadVisitor("sess-1")
	if err != nil {
		t.Fatalf("load visitor error: %v", err)
	}
	if visitor.GuestID != "" {
		t.Fatalf("expected guest id cleared after merge, got %q", visitor.GuestID)
	}
	if visitor.UserID != 7 || visitor.UserEmail != "amy@example.com" {
		t.Fatalf("unexpected visitor: %+v", visitor)
	}
}

func TestLoginMergeFailureKeepsGuestID(t *testing.T) {
	api := &fakeAuthAPI{result: &backend.AuthResult{
		User:  backend.AuthUser{ID: 7, Email: "amy@example.com", Name: "Amy"},
		Token: signedToken(t, time.Now().Add(time.Hour)),
	}}
	st := newTestStore(t, "mergefail")
	resolver := NewResolver(api, st)
	merger := &fakeMerger{err: fmt.Errorf("sync failed: %w", backend.ErrUnavailable)}
	resolver.SetMerger(merger)

	if _, err := resolver.Resolve(context.Background(), "sess-1"); err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	state, err := resolver.Login(context.Background(), "sess-1", "amy@example.com", "pw")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if state.Kind != constants.IdentityUserActive {
		t.Fatalf("expected login to succeed despite merge failure, got %+v", state)
	}

	visitor, err := st.LoadVisitor("sess-1")
	if err != nil {
		t.Fatalf("load visitor error: %v", err)
	}
	if visitor.GuestID != "guest-1" {
		t.Fatalf("expected guest id retained for retry, got %q", visitor.GuestID)
	}
}

func TestLoginWithoutGuestSkipsMerge(t *testing.T) {
	api := &fakeAuthAPI{result: &backend.AuthResult{
		User:  backend.AuthUser{ID: 7, Email: "amy@example.com", Name: "Amy"},
		Token: signedToken(t, time.Now().Add(time.Hour)),
	}}
	resolver := NewResolver(api, newTestStore(t, "nomerge"))
	merger := &fakeMerger{}
	resolver.SetMerger(merger)

	state, err := resolver.Login(context.Background(), "sess-1", "amy@example.com", "pw")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if state.Kind != constants.IdentityUserActive {
		t.Fatalf("expected user active, got %+v", state)
	}
	if merger.calls != 0 {
		t.Fatalf("expected no merge without guest cart, got %d", merger.calls)
	}
}

func TestLogoutClearsIdentity(t *testing.T) {
	api := &fakeAuthAPI{result: &backend.AuthResult{
		User:  backend.AuthUser{ID: 7, Email: "amy@example.com", Name: "Amy"},
		Token: signedToken(t, time.Now().Add(time.Hour)),
	}}
	st := newTestStore(t, "logout")
	resolver := NewResolver(api, st)

	if _, err := resolver.Login(context.Background(), "sess-1", "amy@example.com", "pw"); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if err := resolver.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("logout error: %v", err)
	}

	visitor, err := st.LoadVisitor("sess-1")
	if err != nil {
		t.Fatalf("load visitor error: %v", err)
	}
	if visitor.HasValidUser() || visitor.HasGuest() {
		t.Fatalf("expected cleared identity, got %+v", visitor)
	}

	snap, err := st.LoadSnapshot("sess-1")
	if err != nil {
		t.Fatalf("load snapshot error: %v", err)
	}
	if snap == nil || len(snap.Items) != 0 || snap.Count != 0 {
		t.Fatalf("expected empty snapshot after logout, got %+v", snap)
	}

	// 登出后的下一次解析签发全新游客身份
	state, err := resolver.Resolve(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("resolve after logout error: %v", err)
	}
	if state.Kind != constants.IdentityGuestActive {
		t.Fatalf("expected fresh guest after logout, got %+v", state)
	}
}

func TestResolveExpiredTokenFallsBackToGuest(t *testing.T) {
	api := &fakeAuthAPI{result: &backend.AuthResult{
		User:  backend.AuthUser{ID: 7, Email: "amy@example.com", Name: "Amy"},
		Token: signedToken(t, time.Now().Add(-time.Hour)),
	}}
	st := newTestStore(t, "expired")
	resolver := NewResolver(api, st)

	if _, err := resolver.Login(context.Background(), "sess-1", "amy@example.com", "pw"); err != nil {
		t.Fatalf("login error: %v", err)
	}
	state, err := resolver.Resolve(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if state.Kind != constants.IdentityGuestActive {
		t.Fatalf("expected guest fallback for expired token, got %+v", state)
	}
	visitor, err := st.LoadVisitor("sess-1")
	if err != nil {
		t.Fatalf("load visitor error: %v", err)
	}
	if visitor.HasValidUser() {
		t.Fatalf("expected expired user identity cleared, got %+v", visitor)
	}
}

func TestTransitionAllowed(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{constants.IdentityNone, constants.IdentityGuestActive, true},
		{constants.IdentityNone, constants.IdentityUserActive, true},
		{constants.IdentityNone, constants.IdentityMergePending, false},
		{constants.IdentityGuestActive, constants.IdentityMergePending, true},
		{constants.IdentityGuestActive, constants.IdentityUserActive, true},
		{constants.IdentityMergePending, constants.IdentityUserActive, true},
		{constants.IdentityMergePending, constants.IdentityGuestActive, false},
		{constants.IdentityUserActive, constants.IdentityNone, true},
		{constants.IdentityUserActive, constants.IdentityGuestActive, false},
		{constants.IdentityUserActive, constants.IdentityUserActive, true},
	}
	for _, tc := range cases {
		if got := TransitionAllowed(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}
