package ttlock

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockmaster/lockmaster-server/internal/config"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.TTLockConfig{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "ops@example.com",
		Password:     "hunter2",
		PageSize:     2,
	}
	return NewClient(cfg, zerolog.Nop()), server
}

func TestClientAuthenticates(t *testing.T) {
	var tokenRequests int

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "client-id", r.PostFormValue("clientId"))
		assert.Equal(t, "client-secret", r.PostFormValue("clientSecret"))
		assert.Equal(t, "ops@example.com", r.PostFormValue("username"))

		// Password travels as a lowercase MD5 digest
		sum := md5.Sum([]byte("hunter2"))
		assert.Equal(t, hex.EncodeToString(sum[:]), r.PostFormValue("password"))

		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", ExpiresIn: 7200})
	})
	mux.HandleFunc("/v3/lock/list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("accessToken"))
		json.NewEncoder(w).Encode(pagedLocks{Pages: 1})
	})

	client, _ := testClient(t, mux)

	_, err := client.ListLocks(context.Background())
	require.NoError(t, err)

	// Token is cached across calls
	_, err = client.ListLocks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokenRequests)
}

func TestClientListLocksPaging(t *testing.T) {
	pages := map[string]pagedLocks{
		"1": {List: []VendorLock{
			{LockID: 1, LockName: "S200_a1", LockAlias: "Front Door", LockMAC: "AA:BB:CC:00:00:01", ElectricQuantity: 85},
			{LockID: 2, LockName: "S200_a2", LockMAC: "AA:BB:CC:00:00:02", ElectricQuantity: 15},
		}, Pages: 2, Total: 3},
		"2": {List: []VendorLock{
			{LockID: 3, LockName: "S200_a3", LockMAC: "AA:BB:CC:00:00:03", ElectricQuantity: 60},
		}, Pages: 2, Total: 3},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 7200})
	})
	mux.HandleFunc("/v3/lock/list", func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Query().Get("pageNo")]
		require.True(t, ok)
		json.NewEncoder(w).Encode(page)
	})

	client, _ := testClient(t, mux)

	locks, err := client.ListLocks(context.Background())
	require.NoError(t, err)
	require.Len(t, locks, 3)
	assert.Equal(t, "Front Door", locks[0].DisplayName())
	assert.Equal(t, "S200_a2", locks[1].DisplayName())
	assert.Equal(t, int64(3), locks[2].LockID)
}

func TestClientVendorErrorIsTerminal(t *testing.T) {
	var requests int

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(VendorError{Code: 10003, Msg: "invalid client"})
	})

	client, _ := testClient(t, mux)

	_, err := client.ListLocks(context.Background())
	require.Error(t, err)

	var vendorErr *VendorError
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, 10003, vendorErr.Code)
	assert.Equal(t, 1, requests, "vendor errors must not retry")
}

func TestClientListGateways(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 7200})
	})
	mux.HandleFunc("/v3/gateway/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pagedGateways{List: []VendorGateway{
			{GatewayID: 77, GatewayMAC: "CC:DD:EE:00:00:01", GatewayName: "Lobby GW", IsOnline: 1, LockNum: 4},
		}, Pages: 1, Total: 1})
	})

	client, _ := testClient(t, mux)

	gateways, err := client.ListGateways(context.Background())
	require.NoError(t, err)
	require.Len(t, gateways, 1)
	assert.Equal(t, int64(77), gateways[0].GatewayID)
	assert.Equal(t, 1, gateways[0].IsOnline)
}

func TestClientTokenExpiryTriggersReauth(t *testing.T) {
	var tokenRequests int

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 7200})
	})
	mux.HandleFunc("/v3/lock/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pagedLocks{Pages: 1})
	})

	client, _ := testClient(t, mux)

	_, err := client.ListLocks(context.Background())
	require.NoError(t, err)

	// Force the cached token past its expiry
	client.mu.Lock()
	client.tokenExpiry = time.Now().Add(-time.Minute)
	client.mu.Unlock()

	_, err = client.ListLocks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenRequests)
}
