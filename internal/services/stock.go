package services

import (
	"context"
	"net/http"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/dto"
	apperrors "pharmacie-admin/pkg/errors"

	"go.uber.org/zap"
)

const (
	stockResource            = "stock"
	produitsWithStock        = "produits-with-stock"
	stockReceptionPath       = "stock/reception/"
	stockPageSize            = 20
	produitsWithStockPerPage = 50
)

type StockServiceInterface interface {
	Stock(ctx context.Context, sessionID string, page int, search string) (*dto.ListResponseDTO, error)
	ProduitsWithStock(ctx context.Context, sessionID, search string) (*dto.ListResponseDTO, error)
	Receive(ctx context.Context, sessionID string, payload dto.StockReceptionDTO) (*dto.StockReceptionResultDTO, error)
}

// StockService serves the stock overview, the product picker of the quick
// order screen and stock reception.
type StockService struct {
	access SessionAccess
	logger *zap.Logger
}

func NewStockService(access SessionAccess, logger *zap.Logger) *StockService {
	return &StockService{access: access, logger: logger.Named("stock")}
}

func (s *StockService) list(ctx context.Context, sessionID, resource string, page, perPage int, search string) (*dto.ListResponseDTO, error) {
	if page < 1 {
		page = 1
	}
	res, err := s.access.Provider(sessionID).List(ctx, resource, dataprovider.ListParams{
		Pagination: dataprovider.Pagination{Page: page, PerPage: perPage},
		Filter:     dataprovider.Filter{"q": search},
	})
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Warn("stock read failed, serving empty page", zap.String("resource", resource), zap.Error(err))
		return &dto.ListResponseDTO{Data: []dataprovider.Record{}, Page: page, PerPage: perPage, Degraded: true}, nil
	}
	return &dto.ListResponseDTO{Data: res.Data, Total: res.Total, Page: page, PerPage: perPage}, nil
}

// Stock lists stock levels. Either lot or product visibility is enough.
func (s *StockService) Stock(ctx context.Context, sessionID string, page int, search string) (*dto.ListResponseDTO, error) {
	if !authz.CanAny(s.access.Permissions(ctx, sessionID), authz.ViewLots, authz.ViewProduits) {
		return nil, apperrors.NewForbiddenError("cannot view stock")
	}
	return s.list(ctx, sessionID, stockResource, page, stockPageSize, search)
}

// ProduitsWithStock searches products with their available quantity for the
// quick order picker.
func (s *StockService) ProduitsWithStock(ctx context.Context, sessionID, search string) (*dto.ListResponseDTO, error) {
	if !authz.Can(s.access.Permissions(ctx, sessionID), authz.AddCommandes) {
		return nil, apperrors.NewForbiddenError("cannot place orders")
	}
	return s.list(ctx, sessionID, produitsWithStock, 1, produitsWithStockPerPage, search)
}

// Receive books the lots of one supplier delivery.
func (s *StockService) Receive(ctx context.Context, sessionID string, payload dto.StockReceptionDTO) (*dto.StockReceptionResultDTO, error) {
	if !authz.Can(s.access.Permissions(ctx, sessionID), authz.AddLots) {
		return nil, apperrors.NewForbiddenError("cannot receive stock")
	}

	var result dto.StockReceptionResultDTO
	if err := s.access.Provider(sessionID).DoJSON(ctx, dataprovider.Request{
		Method: http.MethodPost,
		Path:   stockReceptionPath,
		Body:   payload,
	}, &result); err != nil {
		return nil, err
	}
	s.logger.Info("stock received",
		zap.String("session", sessionID),
		zap.Int64("fournisseur_id", payload.FournisseurID),
		zap.Int("lots", result.NombreLots),
	)
	return &result, nil
}
