package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

// BookmarkRequest is the payload for creating or replacing a saved link.
type BookmarkRequest struct {
	Title string  `json:"title" validate:"required"`
	URL   string  `json:"url" validate:"required,url"`
	Notes *string `json:"notes,omitempty"`
}

// BookmarkResponse is the public shape of a saved link.
type BookmarkResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages the per-account saved links.
type Service interface {
	Create(ctx context.Context, accountID uuid.UUID, req BookmarkRequest) (*BookmarkResponse, error)
	Update(ctx context.Context, accountID, id uuid.UUID, req BookmarkRequest) (*BookmarkResponse, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	List(ctx context.Context, accountID uuid.UUID) ([]BookmarkResponse, error)
}

type service struct {
	repo Repository
}

// NewService constructs a bookmark service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookmarks repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, accountID uuid.UUID, req BookmarkRequest) (*BookmarkResponse, error) {
	bookmark, err := modelFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, bookmark); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bookmark")
	}
	resp := fromModel(bookmark)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, accountID, id uuid.UUID, req BookmarkRequest) (*BookmarkResponse, error) {
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bookmark")
	}
	resp := fromModel(updated)
	return &resp, nil
}

func (s *service) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bookmark")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bookmark not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID) ([]BookmarkResponse, error) {
	bookmarks, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookmarks")
	}
	responses := make([]BookmarkResponse, 0, len(bookmarks))
	for i := range bookmarks {
		responses = append(responses, fromModel(&bookmarks[i]))
	}
	return responses, nil
}

func modelFromRequest(accountID uuid.UUID, req BookmarkRequest) (*models.Bookmark, error) {
	title := strings.TrimSpace(req.Title)
	rawURL := strings.TrimSpace(req.URL)
	if title == "" || rawURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and url are required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "url must be absolute")
	}
	return &models.Bookmark{
		AccountID: accountID,
		Title:     title,
		URL:       rawURL,
		Notes:     req.Notes,
	}, nil
}

func fromModel(bookmark *models.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        bookmark.ID,
		Title:     bookmark.Title,
		URL:       bookmark.URL,
		Notes:     bookmark.Notes,
		CreatedAt: bookmark.CreatedAt,
	}
}

func wrapLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bookmark not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup bookmark")
}
