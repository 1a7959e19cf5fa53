package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

// ItemRequest is the payload for creating or replacing a bookshelf entry.
type ItemRequest struct {
	Acronym      string   `json:"acronym" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Domains      []string `json:"domains,omitempty"`
	Complete     bool     `json:"complete"`
	Sheets       *int     `json:"sheets,omitempty"`
	Manual       bool     `json:"manual"`
	Booklet      bool     `json:"booklet"`
	SheetPrice   *float64 `json:"sheet_price,omitempty"`
	Computerized bool     `json:"computerized"`
}

// ItemResponse is the public shape of a bookshelf entry.
type ItemResponse struct {
	ID           uuid.UUID `json:"id"`
	Acronym      string    `json:"acronym"`
	Name         string    `json:"name"`
	Domains      []string  `json:"domains"`
	Complete     bool      `json:"complete"`
	Sheets       *int      `json:"sheets,omitempty"`
	Manual       bool      `json:"manual"`
	Booklet      bool      `json:"booklet"`
	SheetPrice   *float64  `json:"sheet_price,omitempty"`
	Computerized bool      `json:"computerized"`
}

// Service manages the per-account test bookshelf.
type Service interface {
	Create(ctx context.Context, accountID uuid.UUID, req ItemRequest) (*ItemResponse, error)
	Update(ctx context.Context, accountID, id uuid.UUID, req ItemRequest) (*ItemResponse, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	Get(ctx context.Context, accountID, id uuid.UUID) (*ItemResponse, error)
	List(ctx context.Context, accountID uuid.UUID) ([]ItemResponse, error)
}

type service struct {
	repo Repository
}

// NewService constructs a bookshelf service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("library repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, accountID uuid.UUID, req ItemRequest) (*ItemResponse, error) {
	item, err := modelFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bookshelf item")
	}
	resp := fromModel(item)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, accountID, id uuid.UUID, req ItemRequest) (*ItemResponse, error) {
	stored, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, wrapLookup(err)
	}

	updated, err := modelFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}
	updated.ID = stored.ID
	updated.CreatedAt = stored.CreatedAt

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bookshelf item")
	}
	resp := fromModel(updated)
	return &resp, nil
}

func (s *service) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bookshelf item")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bookshelf item not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, accountID, id uuid.UUID) (*ItemResponse, error) {
	stored, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, wrapLookup(err)
	}
	resp := fromModel(stored)
	return &resp, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID) ([]ItemResponse, error) {
	items, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookshelf")
	}
	responses := make([]ItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, fromModel(&items[i]))
	}
	return responses, nil
}

func modelFromRequest(accountID uuid.UUID, req ItemRequest) (*models.TestItem, error) {
	acronym := strings.TrimSpace(req.Acronym)
	name := strings.TrimSpace(req.Name)
	if acronym == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "acronym and name are required")
	}
	return &models.TestItem{
		AccountID:    accountID,
		Acronym:      acronym,
		Name:         name,
		Domains:      joinDomains(req.Domains),
		Complete:     req.Complete,
		Sheets:       req.Sheets,
		Manual:       req.Manual,
		Booklet:      req.Booklet,
		SheetPrice:   req.SheetPrice,
		Computerized: req.Computerized,
	}, nil
}

func fromModel(item *models.TestItem) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Acronym:      item.Acronym,
		Name:         item.Name,
		Domains:      splitDomains(item.Domains),
		Complete:     item.Complete,
		Sheets:       item.Sheets,
		Manual:       item.Manual,
		Booklet:      item.Booklet,
		SheetPrice:   item.SheetPrice,
		Computerized: item.Computerized,
	}
}

func joinDomains(domains []string) string {
	cleaned := make([]string, 0, len(domains))
	for _, domain := range domains {
		if trimmed := strings.TrimSpace(domain); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitDomains(stored string) []string {
	if stored == "" {
		return []string{}
	}
	return strings.Split(stored, ",")
}

func wrapLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bookshelf item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup bookshelf item")
}
