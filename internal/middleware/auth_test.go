package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Тест: SetLoginCookie + WithAuth — user_id и org_id попадают в контекст
func TestWithAuth_ValidCookieSetsIdentity(t *testing.T) {
	const secret = "test-secret"

	// next-хендлер читает идентичность из контекста
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, okUID := GetUserIDFromContext(r.Context())
		org, okOrg := GetOrgIDFromContext(r.Context())
		login, okLogin := GetLoginFromContext(r.Context())
		if !okUID || !okOrg || !okLogin {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if uid != 77 || org != "org-42" || login != "kate" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	h := WithAuth(secret)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rrCookie := httptest.NewRecorder()
	if err := SetLoginCookie(rrCookie, 77, "org-42", "kate", secret); err != nil {
		t.Fatalf("SetLoginCookie: %v", err)
	}
	for _, c := range rrCookie.Result().Cookies() {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid cookie, got %d", rr.Code)
	}
}

// Тест: отсутствие cookie — идентичность не устанавливается
func TestWithAuth_NoCookieLeavesAnonymous(t *testing.T) {
	h := WithAuth("any-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); ok {
			t.Fatalf("user id must not be set without cookie")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// Тест: cookie, подписанный другим секретом, игнорируется
func TestWithAuth_WrongSecretIgnored(t *testing.T) {
	rrCookie := httptest.NewRecorder()
	_ = SetLoginCookie(rrCookie, 1, "org-1", "bob", "secret-a")

	h := WithAuth("secret-b")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); ok {
			t.Fatalf("user id must not be set with wrong secret")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rrCookie.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
