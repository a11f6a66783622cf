package dataprovider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	mu        sync.Mutex
	token     string
	refresh   func() (string, error)
	refreshes int
	teardowns int
	lastCtx   context.Context
}

func (s *fakeSession) ID() string { return "s1" }

func (s *fakeSession) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *fakeSession) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.refreshes++
	s.lastCtx = ctx
	s.mu.Unlock()
	if s.refresh == nil {
		return "", errors.New("no refresh token")
	}
	token, err := s.refresh()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

func (s *fakeSession) Teardown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardowns++
	s.token = ""
	return nil
}

type fixture struct {
	provider   *Provider
	session    *fakeSession
	authErrors *int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	bus := eventbus.New(zap.NewNop())
	var authErrors int32
	bus.Subscribe(eventbus.AuthErrorEvent, func(context.Context, eventbus.Event) error {
		atomic.AddInt32(&authErrors, 1)
		return nil
	})

	client, err := New(srv.URL+"/api", srv.Client(), bus, zap.NewNop())
	require.NoError(t, err)

	session := &fakeSession{token: "old"}
	return fixture{provider: client.For(session), session: session, authErrors: &authErrors}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestList_PaginatedFilteredQuery(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"count": 42, "results": [{"id": 3, "statut": "EN_ATTENTE"}]}`)
	})

	res, err := f.provider.List(context.Background(), "commandes", ListParams{
		Pagination: Pagination{Page: 1, PerPage: 1},
		Filter:     Filter{"statut": "EN_ATTENTE"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/commandes/", gotPath)
	assert.Equal(t, "page=1&page_size=1&statut=EN_ATTENTE&ordering=id", gotQuery)
	assert.Equal(t, "Bearer old", gotAuth)
	assert.Equal(t, 42, res.Total)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "EN_ATTENTE", res.Data[0]["statut"])
	assert.Equal(t, "3", res.Data[0].ID())
}

func TestList_BareArrayUsesTotalHeader(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Count", "7")
		writeJSON(w, http.StatusOK, `[{"id": 1}, {"id": 2}]`)
	})

	res, err := f.provider.List(context.Background(), "magasins", ListParams{})

	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 7, res.Total)
}

func TestListQuery_Ordering(t *testing.T) {
	desc := ListQuery(ListParams{Sort: Sort{Field: "date_demande", Order: "DESC"}})
	asc := ListQuery(ListParams{Sort: Sort{Field: "date_demande", Order: "ASC"}})
	lower := ListQuery(ListParams{Sort: Sort{Field: "nom", Order: "desc"}})

	ordering, _ := desc.Get("ordering")
	assert.Equal(t, "-date_demande", ordering)
	ordering, _ = asc.Get("ordering")
	assert.Equal(t, "date_demande", ordering)
	ordering, _ = lower.Get("ordering")
	assert.Equal(t, "-nom", ordering)
	assert.Equal(t, "page=1&page_size=25&ordering=id", ListQuery(ListParams{}).Encode())
}

func TestListQuery_Filters(t *testing.T) {
	empty := ListQuery(ListParams{Filter: Filter{"q": ""}})
	_, ok := empty.Get("search")
	assert.False(t, ok)
	assert.Equal(t, "page=1&page_size=25&ordering=id", empty.Encode())

	q := ListQuery(ListParams{Filter: Filter{
		"q":        "doli",
		"magasin":  json.Number("4"),
		"statut":   []string{"BROUILLON", "VALIDEE"},
		"actif":    true,
		"service":  nil,
		"priorite": "",
	}})
	assert.Equal(t,
		"page=1&page_size=25&actif=true&magasin=4&search=doli&statut=BROUILLON%2CVALIDEE&ordering=id",
		q.Encode())
}

func TestReferenceQuery(t *testing.T) {
	q := ReferenceQuery(ReferenceParams{Target: "commande", ID: "12", Pagination: Pagination{Page: 2, PerPage: 10}})
	assert.Equal(t, "commande=12&page=2&page_size=10", q.Encode())

	sorted := ReferenceQuery(ReferenceParams{Target: "produit", ID: "5", Sort: Sort{Field: "date_peremption", Order: "ASC"}})
	assert.Equal(t, "produit=5&page=1&page_size=25&ordering=date_peremption", sorted.Encode())
}

func TestDo_UnauthorizedRefreshesAndReplaysOnce(t *testing.T) {
	var calls int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer new" {
			writeJSON(w, http.StatusUnauthorized, `{"detail": "Token is invalid or expired"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id": 9, "nom": "Paracétamol"}`)
	})
	f.session.refresh = func() (string, error) { return "new", nil }

	rec, err := f.provider.GetOne(context.Background(), "produits", "9")

	require.NoError(t, err)
	assert.Equal(t, "Paracétamol", rec["nom"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, f.session.refreshes)
	assert.Zero(t, f.session.teardowns)
	assert.Zero(t, atomic.LoadInt32(f.authErrors))
}

func TestDo_RefreshFailureExpiresSession(t *testing.T) {
	var calls int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"detail": "expired"}`)
	})
	f.session.refresh = func() (string, error) { return "", errors.New("refresh rejected") }

	_, err := f.provider.List(context.Background(), "lots", ListParams{})

	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, f.session.refreshes)
	assert.Equal(t, 1, f.session.teardowns)
	assert.Equal(t, int32(1), atomic.LoadInt32(f.authErrors))
}

func TestDo_CallerCancelledDuringRefreshKeepsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail": "expired"}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.session.refresh = func() (string, error) {
		cancel()
		return "", context.Canceled
	}

	_, err := f.provider.List(ctx, "lots", ListParams{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, 1, f.session.refreshes)
	assert.Zero(t, f.session.teardowns)
	assert.Zero(t, atomic.LoadInt32(f.authErrors))
}

func TestDo_RefreshOutlivesCaller(t *testing.T) {
	var calls int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"detail": "expired"}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var refreshErr error
	f.session.refresh = func() (string, error) {
		cancel()
		refreshErr = f.session.lastCtx.Err()
		return "new", nil
	}

	_, err := f.provider.GetOne(ctx, "lots", "3")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, refreshErr)
	assert.Equal(t, "new", f.session.token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Zero(t, f.session.teardowns)
	assert.Zero(t, atomic.LoadInt32(f.authErrors))
}

func TestDo_SecondUnauthorizedIsFinal(t *testing.T) {
	var calls int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, `{"detail": "expired"}`)
	})
	f.session.refresh = func() (string, error) { return "new", nil }

	_, err := f.provider.Create(context.Background(), "lots", Record{"numero_lot": "L-1"})

	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, f.session.refreshes)
	assert.Equal(t, 1, f.session.teardowns)
	assert.Equal(t, int32(1), atomic.LoadInt32(f.authErrors))
}

func TestDo_ForbiddenKeepsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"detail": "permission denied"}`)
	})

	_, err := f.provider.GetOne(context.Background(), "roles", "1")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Zero(t, f.session.refreshes)
	assert.Zero(t, f.session.teardowns)
	assert.Zero(t, atomic.LoadInt32(f.authErrors))
}

func TestDo_ReadsRetryOnceWritesNever(t *testing.T) {
	var calls int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Method == http.MethodGet && n == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail": "busy"}`)
			return
		}
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusBadGateway, `bad gateway`)
			return
		}
		writeJSON(w, http.StatusOK, `{"count": 0, "results": []}`)
	})

	res, err := f.provider.List(context.Background(), "services", ListParams{})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	_, err = f.provider.Create(context.Background(), "services", Record{"nom": "Urgences"})

	var be *apperrors.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadGateway, be.Status)
	assert.JSONEq(t, `"bad gateway"`, string(be.Body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ValidationPayloadIsKept(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"nom": ["Ce champ est obligatoire."]}`)
	})

	_, err := f.provider.Update(context.Background(), "fournisseurs", "3", Record{"nom": ""})

	var be *apperrors.BackendError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.JSONEq(t, `{"nom": ["Ce champ est obligatoire."]}`, string(be.Body))
}

func TestCreateDeleteAndMany(t *testing.T) {
	var lastMethod, lastPath, lastQuery string
	var lastBody map[string]any
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		lastMethod, lastPath, lastQuery = r.Method, r.URL.Path, r.URL.RawQuery
		lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&lastBody)
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, `{"id": 17, "nom": "server copy"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, `{"count": 2, "results": [{"id": 1}, {"id": 2}]}`)
		}
	})
	ctx := context.Background()

	created, err := f.provider.Create(ctx, "magasins", Record{"nom": "Central"})
	require.NoError(t, err)
	assert.Equal(t, "/api/magasins/", lastPath)
	assert.Equal(t, map[string]any{"nom": "Central"}, lastBody)
	assert.Equal(t, "Central", created["nom"])
	assert.Equal(t, "17", created.ID())

	previous := Record{"id": json.Number("17"), "nom": "Central"}
	deleted, err := f.provider.Delete(ctx, "magasins", "17", previous)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, lastMethod)
	assert.Equal(t, "/api/magasins/17/", lastPath)
	assert.Equal(t, previous, deleted)

	many, err := f.provider.GetMany(ctx, "produits", []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
	assert.Equal(t, "id__in=1%2C2", lastQuery)

	ref, err := f.provider.GetManyReference(ctx, "lots", ReferenceParams{Target: "produit", ID: "8"})
	require.NoError(t, err)
	assert.Equal(t, 2, ref.Total)
	assert.Equal(t, "produit=8&page=1&page_size=25", lastQuery)
}
