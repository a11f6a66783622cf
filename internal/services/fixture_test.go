package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/permissions"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/service"
	"pharmacie-admin/pkg/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	mux     *http.ServeMux
	bus     *eventbus.Bus
	storage *storage.MemoryStorage
	stores  *permissions.Stores
	jwt     service.JWTService
	auth    *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	bus := eventbus.New(zap.NewNop())
	st := storage.NewMemoryStorage(bus)
	client, err := dataprovider.New(srv.URL+"/api", srv.Client(), bus, zap.NewNop())
	require.NoError(t, err)

	stores := permissions.NewStores(st, bus, zap.NewNop())
	jwtSvc := service.NewJWTService("test-secret", time.Hour)
	return &fixture{
		mux:     mux,
		bus:     bus,
		storage: st,
		stores:  stores,
		jwt:     jwtSvc,
		auth:    NewAuthService(client, st, stores, jwtSvc, bus, zap.NewNop()),
	}
}

// signIn seeds a session as a completed login would.
func (f *fixture) signIn(t *testing.T, sid string, user map[string]any, caps ...authz.Capability) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.storage.Set(ctx, storage.SessionKey(sid, storage.KeyAccessToken), "access-"+sid))
	require.NoError(t, f.storage.Set(ctx, storage.SessionKey(sid, storage.KeyRefreshToken), "refresh-"+sid))
	if user != nil {
		raw, err := json.Marshal(user)
		require.NoError(t, err)
		require.NoError(t, f.storage.Set(ctx, storage.SessionKey(sid, storage.KeyUser), string(raw)))
	}
	set := authz.Set{}
	for _, c := range caps {
		set[c] = true
	}
	require.NoError(t, f.stores.For(sid).Replace(ctx, set))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fixture) has(t *testing.T, sid, name string) bool {
	t.Helper()
	_, err := f.storage.Get(context.Background(), storage.SessionKey(sid, name))
	return err == nil
}

func listAll() dataprovider.ListParams {
	return dataprovider.ListParams{}
}
