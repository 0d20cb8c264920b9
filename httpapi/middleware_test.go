package httpapi

import (
	"net/http"
	"testing"
)

func TestIsSafeMethod(t *testing.T) {
	cases := map[string]bool{
		http.MethodGet:    true,
		http.MethodHead:   true,
		http.MethodOptions: true,
		http.MethodPost:   false,
		http.MethodDelete: false,
	}
	for method, want := range cases {
		if got := isSafeMethod(method); got != want {
			t.Errorf("isSafeMethod(%q) = %v, want %v", method, got, want)
		}
	}
}

func TestCsrfExemptPath(t *testing.T) {
	if !csrfExemptPath("/api/v1/auth/login") {
		t.Error("login path should be CSRF-exempt")
	}
	if csrfExemptPath("/api/v1/submissions") {
		t.Error("submissions path should require CSRF")
	}
}

func TestSameSiteFromString(t *testing.T) {
	if sameSiteFromString("lax") != http.SameSiteLaxMode {
		t.Error("lax should map to SameSiteLaxMode")
	}
	if sameSiteFromString("none") != http.SameSiteNoneMode {
		t.Error("none should map to SameSiteNoneMode")
	}
	if sameSiteFromString("strict") != http.SameSiteStrictMode {
		t.Error("strict should map to SameSiteStrictMode")
	}
	if sameSiteFromString("") != http.SameSiteStrictMode {
		t.Error("empty value should default to SameSiteStrictMode")
	}
}
