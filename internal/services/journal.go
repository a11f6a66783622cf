package services

import (
	"context"
	"fmt"
	"net/http"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/dto"
	apperrors "pharmacie-admin/pkg/errors"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	journalsPath       = "journals/"
	journalPageSize    = 20
	journalExportPage  = 500
	journalExportLimit = 50000
	journalSheet       = "Journal"
	allCategories      = "ALL"
)

var journalHeaders = []string{
	"Date", "Catégorie", "Action", "Description", "Utilisateur",
	"Entité", "ID entité", "Détail entité", "Ancien statut", "Nouveau statut",
}

type JournalServiceInterface interface {
	List(ctx context.Context, sessionID string, filter dto.JournalFilterDTO) (*dto.JournalPageDTO, error)
	Export(ctx context.Context, sessionID string, filter dto.JournalFilterDTO) (*excelize.File, error)
}

// JournalService reads the activity journal of the backend.
type JournalService struct {
	access SessionAccess
	logger *zap.Logger
}

func NewJournalService(access SessionAccess, logger *zap.Logger) *JournalService {
	return &JournalService{access: access, logger: logger.Named("journal")}
}

func journalQuery(filter dto.JournalFilterDTO, page, perPage int) dataprovider.Query {
	var q dataprovider.Query
	q.Add("page", fmt.Sprint(page))
	q.Add("page_size", fmt.Sprint(perPage))
	if filter.Categorie != "" && filter.Categorie != allCategories {
		q.Add("categorie", filter.Categorie)
	}
	if filter.Search != "" {
		q.Add("search", filter.Search)
	}
	return q
}

func (s *JournalService) fetch(ctx context.Context, sessionID string, q dataprovider.Query) (*dto.JournalPageDTO, error) {
	page := &dto.JournalPageDTO{}
	if err := s.access.Provider(sessionID).DoJSON(ctx, dataprovider.Request{
		Method: http.MethodGet,
		Path:   journalsPath,
		Query:  q,
	}, page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []dto.JournalDTO{}
	}
	return page, nil
}

func (s *JournalService) guard(ctx context.Context, sessionID string) error {
	if !authz.Can(s.access.Permissions(ctx, sessionID), authz.ViewJournals) {
		return apperrors.NewForbiddenError("cannot view journals")
	}
	return nil
}

// List returns one page of journal entries, newest first as the backend
// orders them.
func (s *JournalService) List(ctx context.Context, sessionID string, filter dto.JournalFilterDTO) (*dto.JournalPageDTO, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	res, err := s.fetch(ctx, sessionID, journalQuery(filter, page, journalPageSize))
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		s.logger.Warn("journal read failed, serving empty page", zap.Error(err))
		return &dto.JournalPageDTO{Results: []dto.JournalDTO{}}, nil
	}
	return res, nil
}

// Export builds a workbook with every entry matching filter. Unlike List it
// fails rather than producing a partial file.
func (s *JournalService) Export(ctx context.Context, sessionID string, filter dto.JournalFilterDTO) (*excelize.File, error) {
	if err := s.guard(ctx, sessionID); err != nil {
		return nil, err
	}

	var entries []dto.JournalDTO
	for page := 1; ; page++ {
		res, err := s.fetch(ctx, sessionID, journalQuery(filter, page, journalExportPage))
		if err != nil {
			return nil, err
		}
		entries = append(entries, res.Results...)
		if len(res.Results) == 0 || len(entries) >= res.Count || len(entries) >= journalExportLimit {
			break
		}
	}

	f, err := journalWorkbook(entries)
	if err != nil {
		return nil, err
	}
	s.logger.Info("journal exported", zap.String("session", sessionID), zap.Int("entries", len(entries)))
	return f, nil
}

func journalWorkbook(entries []dto.JournalDTO) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", journalSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(journalSheet, "A1", &journalHeaders); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(journalSheet, "A1", "J1", style)
	}

	for i, e := range entries {
		row := []interface{}{
			e.DateCreation,
			e.Categorie,
			e.Action,
			e.Description,
			e.Utilisateur.String,
			e.EntityType.String,
			nil,
			e.EntityDescription.String,
			e.AncienStatut.String,
			e.NouveauStatut.String,
		}
		if e.EntityID.Valid {
			row[6] = e.EntityID.Int64
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(journalSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(journalSheet, "A", "A", 22)
	_ = f.SetColWidth(journalSheet, "B", "C", 16)
	_ = f.SetColWidth(journalSheet, "D", "D", 60)
	_ = f.SetColWidth(journalSheet, "E", "F", 20)
	_ = f.SetColWidth(journalSheet, "H", "J", 25)
	return f, nil
}
