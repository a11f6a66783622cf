package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/permissions"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/service"
	"pharmacie-admin/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend auth endpoints, relative to the API base.
const (
	tokenPath        = "token/"
	tokenRefreshPath = "token/refresh/"
	userMePath       = "user/me/"
)

// expiryLeeway refreshes access tokens that are about to expire.
const expiryLeeway = 10 * time.Second

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error)
	Logout(ctx context.Context, sessionID string) error
	CheckAuth(ctx context.Context, sessionID string) error
	Identity(ctx context.Context, sessionID string) (*dto.IdentityDTO, error)
	Permissions(ctx context.Context, sessionID string) authz.Set
	ReloadPermissions(ctx context.Context, sessionID string) (authz.Set, error)
	Provider(sessionID string) *dataprovider.Provider
}

// AuthService owns the client state of every shell session: backend tokens,
// identity and permission map. It is the only writer of the permission map.
type AuthService struct {
	client  *dataprovider.Client
	storage storage.Storage
	stores  *permissions.Stores
	jwt     service.JWTService
	bus     *eventbus.Bus
	logger  *zap.Logger
	newID   func() string
	now     func() time.Time
	checks  singleflight.Group
}

func NewAuthService(
	client *dataprovider.Client,
	st storage.Storage,
	stores *permissions.Stores,
	jwtSvc service.JWTService,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		client:  client,
		storage: st,
		stores:  stores,
		jwt:     jwtSvc,
		bus:     bus,
		logger:  logger.Named("auth"),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Login exchanges credentials for a backend token pair, opens a session and
// hydrates its identity and permissions. A failing user/me call does not
// fail the login; the session then starts without permissions.
func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	logger := s.logger.With(zap.String("username", payload.Username))

	resp, err := s.client.Call(ctx, dataprovider.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Body:   map[string]string{"username": payload.Username, "password": payload.Password},
	}, "")
	if err != nil {
		var be *apperrors.BackendError
		if errors.As(err, &be) && be.Status < http.StatusInternalServerError {
			logger.Info("login rejected by backend", zap.Int("status", be.Status))
			return nil, apperrors.ErrInvalidCredentials
		}
		logger.Error("login request failed", zap.Error(err))
		return nil, err
	}

	var pair dto.TokenPairDTO
	if err := json.Unmarshal(resp.Body, &pair); err != nil || pair.Access == "" {
		logger.Error("malformed token response", zap.Error(err))
		return nil, apperrors.ErrBackendDown
	}

	sessionID := s.newID()
	if err := s.storeTokens(ctx, sessionID, pair); err != nil {
		return nil, err
	}

	if err := s.hydrate(ctx, sessionID, pair.Access); err != nil {
		logger.Warn("failed to fetch user permissions", zap.String("session", sessionID), zap.Error(err))
	}
	s.bus.Publish(ctx, eventbus.PermissionsUpdated{SessionID: sessionID})

	token, err := s.jwt.GenerateSessionToken(sessionID, payload.Username)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	identity, _ := s.Identity(ctx, sessionID)

	logger.Info("session opened", zap.String("session", sessionID))
	return &dto.AuthResponseDTO{
		Token:       token,
		Identity:    identity,
		Permissions: s.Permissions(ctx, sessionID),
	}, nil
}

func (s *AuthService) storeTokens(ctx context.Context, sessionID string, pair dto.TokenPairDTO) error {
	if err := s.storage.Set(ctx, storage.SessionKey(sessionID, storage.KeyAccessToken), pair.Access); err != nil {
		return err
	}
	if pair.Refresh == "" {
		return nil
	}
	return s.storage.Set(ctx, storage.SessionKey(sessionID, storage.KeyRefreshToken), pair.Refresh)
}

// hydrate fetches user/me with accessToken and persists identity and
// permissions.
func (s *AuthService) hydrate(ctx context.Context, sessionID, accessToken string) error {
	resp, err := s.client.Call(ctx, dataprovider.Request{Method: http.MethodGet, Path: userMePath}, accessToken)
	if err != nil {
		return err
	}
	return s.persistUser(ctx, sessionID, resp.Body)
}

func (s *AuthService) persistUser(ctx context.Context, sessionID string, raw []byte) error {
	var user dto.BackendUserDTO
	if err := json.Unmarshal(raw, &user); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if err := s.storage.Set(ctx, storage.SessionKey(sessionID, storage.KeyUser), string(raw)); err != nil {
		return err
	}
	if user.Permissions == nil {
		return nil
	}
	return s.stores.For(sessionID).Replace(ctx, authz.FromMap(user.Permissions))
}

// Logout drops every key of the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	keys := storage.SessionKeysFor(sessionID, storage.SessionKeys...)
	keys = append(keys, storage.SessionKey(sessionID, storage.KeyCart))
	if err := s.storage.Del(ctx, keys...); err != nil {
		return err
	}
	s.logger.Info("session closed", zap.String("session", sessionID))
	return nil
}

// CheckAuth succeeds while the session holds an access token. An access token
// that is expired, or about to be, is refreshed first.
func (s *AuthService) CheckAuth(ctx context.Context, sessionID string) error {
	token, err := s.accessToken(ctx, sessionID)
	if err != nil {
		return err
	}
	if token == "" {
		return apperrors.ErrUnauthorized
	}

	exp, ok := service.BackendTokenExpiry(token)
	if !ok || s.now().Add(expiryLeeway).Before(exp) {
		return nil
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dataprovider.RefreshTimeout)
	defer cancel()
	if _, err := s.refresh(rctx, sessionID); err != nil {
		if dataprovider.Abandoned(ctx, err) {
			return errors.Join(ctx.Err(), err)
		}
		s.logger.Info("access token expired and refresh failed", zap.String("session", sessionID), zap.Error(err))
		if terr := s.teardown(ctx, sessionID); terr != nil {
			s.logger.Error("session teardown failed", zap.String("session", sessionID), zap.Error(terr))
		}
		s.bus.Publish(ctx, eventbus.AuthError{SessionID: sessionID, Reason: err.Error()})
		return fmt.Errorf("%w: %v", apperrors.ErrSessionExpired, err)
	}
	return nil
}

func (s *AuthService) accessToken(ctx context.Context, sessionID string) (string, error) {
	token, err := s.storage.Get(ctx, storage.SessionKey(sessionID, storage.KeyAccessToken))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", nil
	}
	return token, err
}

// refresh trades the stored refresh token for a new access token. A rotated
// refresh token is stored as well.
func (s *AuthService) refresh(ctx context.Context, sessionID string) (string, error) {
	refreshToken, err := s.storage.Get(ctx, storage.SessionKey(sessionID, storage.KeyRefreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", apperrors.ErrTokenNotFound
		}
		return "", err
	}

	resp, err := s.client.Call(ctx, dataprovider.Request{
		Method: http.MethodPost,
		Path:   tokenRefreshPath,
		Body:   dto.RefreshDTO{Refresh: refreshToken},
	}, "")
	if err != nil {
		return "", err
	}

	var pair dto.TokenPairDTO
	if err := json.Unmarshal(resp.Body, &pair); err != nil || pair.Access == "" {
		return "", apperrors.ErrInvalidToken
	}
	if err := s.storeTokens(ctx, sessionID, pair); err != nil {
		return "", err
	}
	s.logger.Debug("access token refreshed", zap.String("session", sessionID))
	return pair.Access, nil
}

// teardown clears identity and permissions but leaves the cart, so a user who
// logs back in finds it again.
func (s *AuthService) teardown(ctx context.Context, sessionID string) error {
	return s.storage.Del(ctx, storage.SessionKeysFor(sessionID, storage.SessionKeys...)...)
}

// Identity reads the stored user/me payload.
func (s *AuthService) Identity(ctx context.Context, sessionID string) (*dto.IdentityDTO, error) {
	raw, err := s.storage.Get(ctx, storage.SessionKey(sessionID, storage.KeyUser))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	var user dto.BackendUserDTO
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("corrupt persisted user", zap.String("session", sessionID), zap.Error(err))
		return nil, apperrors.ErrUnauthorized
	}
	return toIdentity(user), nil
}

func toIdentity(user dto.BackendUserDTO) *dto.IdentityDTO {
	fullName := user.Username
	if user.FirstName != "" && user.LastName != "" {
		fullName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return &dto.IdentityDTO{
		ID:        user.ID,
		FullName:  fullName,
		Username:  user.Username,
		Email:     user.Email,
		Fonction:  user.Fonction,
		Service:   user.Service,
		ServiceID: user.ServiceID,
		Role:      user.Role,
	}
}

func (s *AuthService) Permissions(ctx context.Context, sessionID string) authz.Set {
	return s.stores.For(sessionID).Read(ctx)
}

// ReloadPermissions re-fetches user/me through the session provider and
// replaces the stored map.
func (s *AuthService) ReloadPermissions(ctx context.Context, sessionID string) (authz.Set, error) {
	resp, err := s.Provider(sessionID).Do(ctx, dataprovider.Request{Method: http.MethodGet, Path: userMePath})
	if err != nil {
		return nil, err
	}
	if err := s.persistUser(ctx, sessionID, resp.Body); err != nil {
		return nil, err
	}
	return s.Permissions(ctx, sessionID), nil
}

// Provider returns the data provider acting for sessionID.
func (s *AuthService) Provider(sessionID string) *dataprovider.Provider {
	return s.client.For(&sessionHandle{id: sessionID, auth: s})
}

// sessionHandle adapts a stored session to dataprovider.Session.
type sessionHandle struct {
	id   string
	auth *AuthService
}

func (h *sessionHandle) ID() string { return h.id }

func (h *sessionHandle) AccessToken(ctx context.Context) (string, error) {
	return h.auth.accessToken(ctx, h.id)
}

func (h *sessionHandle) Refresh(ctx context.Context) (string, error) {
	return h.auth.refresh(ctx, h.id)
}

func (h *sessionHandle) Teardown(ctx context.Context) error {
	return h.auth.teardown(ctx, h.id)
}

// AccessChecker answers access questions for sessionID against a fresh
// user/me. Concurrent checks of one session share a single request.
func (s *AuthService) AccessChecker(sessionID string) authz.AccessChecker {
	return &remoteChecker{auth: s, sessionID: sessionID}
}

type remoteChecker struct {
	auth      *AuthService
	sessionID string
}

func (c *remoteChecker) CheckAccess(ctx context.Context, resource string, action authz.Action) (bool, error) {
	v, err, _ := c.auth.checks.Do(c.sessionID, func() (interface{}, error) {
		resp, err := c.auth.Provider(c.sessionID).Do(ctx, dataprovider.Request{Method: http.MethodGet, Path: userMePath})
		if err != nil {
			return nil, err
		}
		var user dto.BackendUserDTO
		if err := json.Unmarshal(resp.Body, &user); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		return authz.FromMap(user.Permissions), nil
	})
	if err != nil {
		return false, err
	}
	return authz.CanDo(v.(authz.Set), resource, action), nil
}
