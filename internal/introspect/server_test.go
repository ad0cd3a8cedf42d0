package introspect

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/irrecv/irrecv/internal/cache"
	"github.com/irrecv/irrecv/receiver"
	"github.com/irrecv/irrecv/receiver/mock"
	scmock "github.com/irrecv/irrecv/scancode/mock"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "irrecvd-introspect-*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	c, err := cache.Open(tmpFile.Name())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	recv := mock.New(receiver.Capabilities{CanReceiveRaw: true, ResolutionUs: 1})
	return New(
		Config{JWT: JWTConfig{SecretKey: "test-secret"}},
		map[string]receiver.Receiver{"lirc0": recv},
		scmock.New(),
		nil,
		c,
	)
}

func TestHandleListReceiversReturnsRegisteredReceivers(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/receivers", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleDotReturns404BeforeAnyCompile(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dot", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMutatingRouteRequiresAuth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/scancodes/clear", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a bearer token", resp.StatusCode)
	}
}

func TestMutatingRouteSucceedsWithValidToken(t *testing.T) {
	s := testServer(t)
	token, err := GenerateToken("operator-1", JWTConfig{SecretKey: "test-secret"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/scancodes/clear", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a valid token", resp.StatusCode)
	}
}
