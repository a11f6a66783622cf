package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/permissions"
	"pharmacie-admin/internal/registry"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"go.uber.org/zap"
)

// ProviderSource hands out the data provider of a session.
type ProviderSource interface {
	Provider(sessionID string) *dataprovider.Provider
}

type ResourceServiceInterface interface {
	Resources(ctx context.Context, sessionID string) []registry.Exposure
	List(ctx context.Context, sessionID, resource string, params utils.QueryParams) (*dto.ListResponseDTO, error)
	GetOne(ctx context.Context, sessionID, resource, id string) (*dto.RecordResponseDTO, error)
	GetMany(ctx context.Context, sessionID, resource string, ids []string) (*dto.ListResponseDTO, error)
	GetManyReference(ctx context.Context, sessionID, resource, target, id string, params utils.QueryParams) (*dto.ListResponseDTO, error)
	Create(ctx context.Context, sessionID, resource string, data dataprovider.Record) (dataprovider.Record, error)
	Update(ctx context.Context, sessionID, resource, id string, data dataprovider.Record) (dataprovider.Record, error)
	Delete(ctx context.Context, sessionID, resource, id string, previous dataprovider.Record) (dataprovider.Record, error)
}

// ResourceService exposes the registered resources a session may see and
// forwards CRUD on them to the backend. Reads that fail for reasons other
// than authentication degrade to an empty answer; writes never do.
type ResourceService struct {
	registry  *registry.Registry
	stores    *permissions.Stores
	providers ProviderSource
	logger    *zap.Logger
}

func NewResourceService(r *registry.Registry, stores *permissions.Stores, providers ProviderSource, logger *zap.Logger) *ResourceService {
	return &ResourceService{
		registry:  r,
		stores:    stores,
		providers: providers,
		logger:    logger.Named("resources"),
	}
}

func (s *ResourceService) Resources(ctx context.Context, sessionID string) []registry.Exposure {
	return s.registry.Expose(s.stores.For(sessionID).Read(ctx))
}

// authorize fails with 404 for resources outside the registry and 403 when
// the session lacks the capability of action.
func (s *ResourceService) authorize(ctx context.Context, sessionID, resource string, action authz.Action) error {
	if _, ok := s.registry.Descriptor(resource); !ok {
		return apperrors.NewHttpError(http.StatusNotFound, "unknown resource", apperrors.ErrUnknownResource, map[string]interface{}{"resource": resource})
	}
	if !authz.CanDo(s.stores.For(sessionID).Read(ctx), resource, action) {
		return apperrors.NewHttpError(http.StatusForbidden, fmt.Sprintf("cannot %s %s", action, resource), apperrors.ErrForbidden, nil)
	}
	return nil
}

// degradable reports whether a failed read may be answered with empty data.
// Authentication and authorization failures must reach the shell, and so do
// 4xx answers carrying a payload.
func degradable(err error) bool {
	switch {
	case errors.Is(err, apperrors.ErrSessionExpired),
		errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, context.Canceled):
		return false
	}
	var be *apperrors.BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return true
}

// ListParams converts the shell's list query to provider parameters.
func ListParams(q utils.QueryParams) dataprovider.ListParams {
	filter := make(dataprovider.Filter, len(q.Filters)+1)
	for k, v := range q.Filters {
		filter[k] = v
	}
	if q.Search != "" {
		filter["q"] = q.Search
	}
	return dataprovider.ListParams{
		Pagination: dataprovider.Pagination{Page: q.Page, PerPage: q.PerPage},
		Sort:       dataprovider.Sort{Field: q.SortBy, Order: q.SortOrder},
		Filter:     filter,
	}
}

func (s *ResourceService) List(ctx context.Context, sessionID, resource string, params utils.QueryParams) (*dto.ListResponseDTO, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionView); err != nil {
		return nil, err
	}
	res, err := s.providers.Provider(sessionID).List(ctx, resource, ListParams(params))
	if err != nil {
		return s.degradedList(resource, params, err)
	}
	return &dto.ListResponseDTO{Data: res.Data, Total: res.Total, Page: params.Page, PerPage: params.PerPage}, nil
}

func (s *ResourceService) degradedList(resource string, params utils.QueryParams, err error) (*dto.ListResponseDTO, error) {
	if !degradable(err) {
		return nil, err
	}
	s.logger.Warn("list failed, serving empty page",
		zap.String("resource", resource), zap.Error(err))
	return &dto.ListResponseDTO{
		Data:     []dataprovider.Record{},
		Page:     params.Page,
		PerPage:  params.PerPage,
		Degraded: true,
	}, nil
}

func (s *ResourceService) GetOne(ctx context.Context, sessionID, resource, id string) (*dto.RecordResponseDTO, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionView); err != nil {
		return nil, err
	}
	rec, err := s.providers.Provider(sessionID).GetOne(ctx, resource, id)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Warn("read failed, serving empty record",
			zap.String("resource", resource), zap.String("id", id), zap.Error(err))
		return &dto.RecordResponseDTO{Degraded: true}, nil
	}
	return &dto.RecordResponseDTO{Data: rec}, nil
}

func (s *ResourceService) GetMany(ctx context.Context, sessionID, resource string, ids []string) (*dto.ListResponseDTO, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionView); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &dto.ListResponseDTO{Data: []dataprovider.Record{}}, nil
	}
	recs, err := s.providers.Provider(sessionID).GetMany(ctx, resource, ids)
	if err != nil {
		return s.degradedList(resource, utils.QueryParams{}, err)
	}
	return &dto.ListResponseDTO{Data: recs, Total: len(recs)}, nil
}

func (s *ResourceService) GetManyReference(ctx context.Context, sessionID, resource, target, id string, params utils.QueryParams) (*dto.ListResponseDTO, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionView); err != nil {
		return nil, err
	}
	if target == "" || id == "" {
		return nil, apperrors.NewBadRequestError("target and id are required")
	}
	lp := ListParams(params)
	res, err := s.providers.Provider(sessionID).GetManyReference(ctx, resource, dataprovider.ReferenceParams{
		Target:     target,
		ID:         id,
		Pagination: lp.Pagination,
		Sort:       lp.Sort,
		Filter:     lp.Filter,
	})
	if err != nil {
		return s.degradedList(resource, params, err)
	}
	return &dto.ListResponseDTO{Data: res.Data, Total: res.Total, Page: params.Page, PerPage: params.PerPage}, nil
}

func (s *ResourceService) Create(ctx context.Context, sessionID, resource string, data dataprovider.Record) (dataprovider.Record, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionAdd); err != nil {
		return nil, err
	}
	rec, err := s.providers.Provider(sessionID).Create(ctx, resource, data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record created", zap.String("resource", resource), zap.String("id", rec.ID()))
	return rec, nil
}

func (s *ResourceService) Update(ctx context.Context, sessionID, resource, id string, data dataprovider.Record) (dataprovider.Record, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionChange); err != nil {
		return nil, err
	}
	rec, err := s.providers.Provider(sessionID).Update(ctx, resource, id, data)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record updated", zap.String("resource", resource), zap.String("id", id))
	return rec, nil
}

// Delete removes the record. previous is the caller's copy and is echoed back;
// when absent a stub holding only the id is returned.
func (s *ResourceService) Delete(ctx context.Context, sessionID, resource, id string, previous dataprovider.Record) (dataprovider.Record, error) {
	if err := s.authorize(ctx, sessionID, resource, authz.ActionDelete); err != nil {
		return nil, err
	}
	if previous == nil {
		previous = dataprovider.Record{"id": id}
	}
	rec, err := s.providers.Provider(sessionID).Delete(ctx, resource, id, previous)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record deleted", zap.String("resource", resource), zap.String("id", id))
	return rec, nil
}
