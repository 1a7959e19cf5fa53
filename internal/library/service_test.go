package library

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

type stubRepo struct {
	items   map[uuid.UUID]*models.TestItem
	deleted []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: map[uuid.UUID]*models.TestItem{}}
}

func (s *stubRepo) Create(ctx context.Context, item *models.TestItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items[item.ID] = item
	return nil
}

func (s *stubRepo) Update(ctx context.Context, item *models.TestItem) error {
	s.items[item.ID] = item
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error) {
	item, ok := s.items[id]
	if !ok || item.AccountID != accountID {
		return false, nil
	}
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return true, nil
}

func (s *stubRepo) FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.TestItem, error) {
	item, ok := s.items[id]
	if !ok || item.AccountID != accountID {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (s *stubRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.TestItem, error) {
	var out []models.TestItem
	for _, item := range s.items {
		if item.AccountID == accountID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func TestCreateRoundTripsDomains(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	accountID := uuid.New()
	resp, err := svc.Create(context.Background(), accountID, ItemRequest{
		Acronym: "WISC-V",
		Name:    "Wechsler Intelligence Scale for Children",
		Domains: []string{" attention ", "memory", ""},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(resp.Domains) != 2 || resp.Domains[0] != "attention" || resp.Domains[1] != "memory" {
		t.Fatalf("domains = %v", resp.Domains)
	}

	got, err := svc.Get(context.Background(), accountID, resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Acronym != "WISC-V" {
		t.Fatalf("acronym = %q", got.Acronym)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)

	owner := uuid.New()
	intruder := uuid.New()
	resp, err := svc.Create(context.Background(), owner, ItemRequest{Acronym: "BDI", Name: "Beck Depression Inventory"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), intruder, resp.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
	if err := svc.Delete(context.Background(), intruder, resp.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found deleting foreign item, got %v", err)
	}

	if err := svc.Delete(context.Background(), owner, resp.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc, _ := NewService(newStubRepo())

	_, err := svc.Create(context.Background(), uuid.New(), ItemRequest{Acronym: "  ", Name: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
