package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/dto"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/storage"

	"go.uber.org/zap"
)

const quickOrderPath = "commandes-rapides/"

// SessionAccess is what the workflow services need from the auth service.
type SessionAccess interface {
	ProviderSource
	Identity(ctx context.Context, sessionID string) (*dto.IdentityDTO, error)
	Permissions(ctx context.Context, sessionID string) authz.Set
}

type CartServiceInterface interface {
	Get(ctx context.Context, sessionID string) (*dto.CartDTO, error)
	Add(ctx context.Context, sessionID string, payload dto.AddCartLineDTO) (*dto.CartDTO, error)
	SetQuantity(ctx context.Context, sessionID string, produitID int64, quantite int) (*dto.CartDTO, error)
	Remove(ctx context.Context, sessionID string, produitID int64) (*dto.CartDTO, error)
	Submit(ctx context.Context, sessionID string, payload dto.SubmitCartDTO) (*dto.QuickOrderResultDTO, error)
}

// CartService keeps the quick-order cart of a session in storage and turns
// it into an order. Changes to one session's cart are applied one at a time.
type CartService struct {
	storage storage.Storage
	access  SessionAccess
	logger  *zap.Logger
	locks   sync.Map
}

func NewCartService(st storage.Storage, access SessionAccess, logger *zap.Logger) *CartService {
	return &CartService{storage: st, access: access, logger: logger.Named("cart")}
}

func (s *CartService) guard(ctx context.Context, sessionID string) error {
	if !authz.Can(s.access.Permissions(ctx, sessionID), authz.AddCommandes) {
		return apperrors.NewForbiddenError("cannot place orders")
	}
	return nil
}

// lock serializes read-modify-write cycles on the cart of sessionID.
func (s *CartService) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// load reads the cart; a missing or unreadable cart is empty.
func (s *CartService) load(ctx context.Context, sessionID string) (*dto.CartDTO, error) {
	cart := &dto.CartDTO{Lignes: []dto.CartLineDTO{}}
	raw, err := s.storage.Get(ctx, storage.SessionKey(sessionID, storage.KeyCart))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return cart, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), cart); err != nil {
		s.logger.Warn("corrupt persisted cart, starting empty", zap.String("session", sessionID), zap.Error(err))
		return &dto.CartDTO{Lignes: []dto.CartLineDTO{}}, nil
	}
	if cart.Lignes == nil {
		cart.Lignes = []dto.CartLineDTO{}
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, sessionID string, cart *dto.CartDTO) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, storage.SessionKey(sessionID, storage.KeyCart), string(raw))
}

func (s *CartService) Get(ctx context.Context, sessionID string) (*dto.CartDTO, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.load(ctx, sessionID)
}

// Add puts one unit of a product in the cart, or one more unit when it is
// already there.
func (s *CartService) Add(ctx context.Context, sessionID string, payload dto.AddCartLineDTO) (*dto.CartDTO, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	defer s.lock(sessionID)()
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Lignes {
		if cart.Lignes[i].ProduitID == payload.ProduitID {
			cart.Lignes[i].QuantiteDemandee++
			found = true
			break
		}
	}
	if !found {
		cart.Lignes = append(cart.Lignes, dto.CartLineDTO{
			ProduitID:        payload.ProduitID,
			Denomination:     payload.Denomination,
			QuantiteDemandee: 1,
		})
	}
	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetQuantity overwrites the quantity of a line. Zero or less removes it.
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, produitID int64, quantite int) (*dto.CartDTO, error) {
	if quantite <= 0 {
		return s.Remove(ctx, sessionID, produitID)
	}
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	defer s.lock(sessionID)()
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range cart.Lignes {
		if cart.Lignes[i].ProduitID == produitID {
			cart.Lignes[i].QuantiteDemandee = quantite
			if err := s.save(ctx, sessionID, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, apperrors.NewHttpError(http.StatusNotFound, "product not in cart", apperrors.ErrNotFound, nil)
}

func (s *CartService) Remove(ctx context.Context, sessionID string, produitID int64) (*dto.CartDTO, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	defer s.lock(sessionID)()
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	kept := cart.Lignes[:0]
	for _, l := range cart.Lignes {
		if l.ProduitID != produitID {
			kept = append(kept, l)
		}
	}
	cart.Lignes = kept
	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Submit posts the cart as a quick order for the chosen service, the user's
// own service by default, and empties it once the backend accepted it.
func (s *CartService) Submit(ctx context.Context, sessionID string, payload dto.SubmitCartDTO) (*dto.QuickOrderResultDTO, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	defer s.lock(sessionID)()
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lignes) == 0 {
		return nil, apperrors.NewBadRequestError("cart is empty")
	}

	serviceID := payload.ServiceID
	if serviceID == nil {
		if identity, err := s.access.Identity(ctx, sessionID); err == nil {
			serviceID = identity.ServiceID
		}
	}
	if serviceID == nil {
		return nil, apperrors.NewBadRequestError("service_id is required")
	}

	order := dto.QuickOrderRequestDTO{ServiceID: *serviceID, Lignes: make([]dto.QuickOrderLineDTO, 0, len(cart.Lignes))}
	for _, l := range cart.Lignes {
		order.Lignes = append(order.Lignes, dto.QuickOrderLineDTO{ProduitID: l.ProduitID, QuantiteDemandee: l.QuantiteDemandee})
	}

	var result dto.QuickOrderResultDTO
	if err := s.access.Provider(sessionID).DoJSON(ctx, dataprovider.Request{
		Method: http.MethodPost,
		Path:   quickOrderPath,
		Body:   order,
	}, &result); err != nil {
		return nil, err
	}

	if err := s.storage.Del(ctx, storage.SessionKey(sessionID, storage.KeyCart)); err != nil {
		s.logger.Warn("order placed but cart not cleared", zap.String("session", sessionID), zap.Error(err))
	}
	s.logger.Info("quick order placed",
		zap.String("session", sessionID),
		zap.String("numero_commande", result.NumeroCommande),
		zap.Int("lignes", len(order.Lignes)),
	)
	return &result, nil
}
