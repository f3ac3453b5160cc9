package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_NoProxy(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "", "internal.example, .localhost")

	cases := map[string]bool{
		"http://api.example.com/x":      true,
		"http://internal.example/x":     false,
		"http://svc.internal.example/x": false,
		"http://localhost:11434/api":    false,
	}
	for raw, wantProxy := range cases {
		req, _ := http.NewRequest(http.MethodGet, raw, nil)
		u, err := fn(req)
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", raw, err)
		}
		if (u != nil) != wantProxy {
			t.Errorf("%s: expected proxied=%v, got %v", raw, wantProxy, u)
		}
	}
}

func TestNewProxyFunc_HTTPS(t *testing.T) {
	fn := NewProxyFunc("http://plain:3128", "http://secure:3129", "")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1", nil)
	u, err := fn(req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u == nil || u.Host != "secure:3129" {
		t.Errorf("Expected https proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, _ = fn(req)
	if u == nil || u.Host != "plain:3128" {
		t.Errorf("Expected http proxy, got %v", u)
	}
}
