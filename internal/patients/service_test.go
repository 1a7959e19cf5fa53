package patients

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

type stubRepo struct {
	patients map[uuid.UUID]*models.Patient
	entries  map[uuid.UUID]*models.ProtocolEntry
	days     map[uuid.UUID]*models.SessionDay
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		patients: map[uuid.UUID]*models.Patient{},
		entries:  map[uuid.UUID]*models.ProtocolEntry{},
		days:     map[uuid.UUID]*models.SessionDay{},
	}
}

func (s *stubRepo) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	s.patients[patient.ID] = patient
	return nil
}

func (s *stubRepo) Update(ctx context.Context, patient *models.Patient) error {
	s.patients[patient.ID] = patient
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error) {
	patient, ok := s.patients[id]
	if !ok || patient.AccountID != accountID {
		return false, nil
	}
	delete(s.patients, id)
	return true, nil
}

func (s *stubRepo) FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.Patient, error) {
	patient, ok := s.patients[id]
	if !ok || patient.AccountID != accountID {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *patient
	clone.ProtocolEntries = nil
	clone.SessionDays = nil
	for _, entry := range s.entries {
		if entry.PatientID == id {
			clone.ProtocolEntries = append(clone.ProtocolEntries, *entry)
		}
	}
	for _, day := range s.days {
		if day.PatientID == id {
			clone.SessionDays = append(clone.SessionDays, *day)
		}
	}
	return &clone, nil
}

func (s *stubRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Patient, error) {
	var out []models.Patient
	for _, patient := range s.patients {
		if patient.AccountID == accountID {
			out = append(out, *patient)
		}
	}
	return out, nil
}

func (s *stubRepo) AddProtocolEntry(ctx context.Context, entry *models.ProtocolEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubRepo) SetProtocolEntryDone(ctx context.Context, patientID, entryID uuid.UUID, done bool) (bool, error) {
	entry, ok := s.entries[entryID]
	if !ok || entry.PatientID != patientID {
		return false, nil
	}
	entry.Done = done
	return true, nil
}

func (s *stubRepo) RemoveProtocolEntry(ctx context.Context, patientID, entryID uuid.UUID) (bool, error) {
	entry, ok := s.entries[entryID]
	if !ok || entry.PatientID != patientID {
		return false, nil
	}
	delete(s.entries, entryID)
	return true, nil
}

func (s *stubRepo) AddSessionDay(ctx context.Context, day *models.SessionDay) error {
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	s.days[day.ID] = day
	return nil
}

func (s *stubRepo) RemoveSessionDay(ctx context.Context, patientID, dayID uuid.UUID) (bool, error) {
	day, ok := s.days[dayID]
	if !ok || day.PatientID != patientID {
		return false, nil
	}
	delete(s.days, dayID)
	return true, nil
}

func TestInitials(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "Maria da Silva", want: "M.S."},
		{name: "João de Souza dos Santos", want: "J.S.S."},
		{name: "Ana", want: "A."},
		{name: "pedro Henrique e Costa", want: "P.H.C."},
	}
	for _, tc := range cases {
		if got := Initials(tc.name); got != tc.want {
			t.Fatalf("Initials(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCreateDerivesInitials(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	resp, err := svc.Create(context.Background(), uuid.New(), PatientRequest{Name: "Maria da Silva"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Initials != "M.S." {
		t.Fatalf("initials = %q", resp.Initials)
	}
}

func TestProtocolChecklistLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	patient, err := svc.Create(ctx, accountID, PatientRequest{Name: "Ana Lima"})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}

	testItemID := uuid.New()
	withEntry, err := svc.AddProtocolEntry(ctx, accountID, patient.ID, ProtocolEntryRequest{TestItemID: testItemID})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if len(withEntry.ProtocolEntries) != 1 || withEntry.ProtocolEntries[0].Done {
		t.Fatalf("unexpected entries %+v", withEntry.ProtocolEntries)
	}

	entryID := withEntry.ProtocolEntries[0].ID
	if err := svc.SetProtocolEntryDone(ctx, accountID, patient.ID, entryID, ProtocolDoneRequest{Done: true}); err != nil {
		t.Fatalf("set done: %v", err)
	}

	got, err := svc.Get(ctx, accountID, patient.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ProtocolEntries[0].Done {
		t.Fatal("expected entry marked done")
	}

	if err := svc.RemoveProtocolEntry(ctx, accountID, patient.ID, entryID); err != nil {
		t.Fatalf("remove entry: %v", err)
	}
	if err := svc.RemoveProtocolEntry(ctx, accountID, patient.ID, entryID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found removing twice, got %v", err)
	}
}

func TestSessionDayValidatesDate(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	patient, _ := svc.Create(ctx, accountID, PatientRequest{Name: "Ana Lima"})

	_, err := svc.AddSessionDay(ctx, accountID, patient.ID, SessionDayRequest{Date: "12/08/2025", Description: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}

	resp, err := svc.AddSessionDay(ctx, accountID, patient.ID, SessionDayRequest{Date: "2025-08-12", Description: "baseline testing"})
	if err != nil {
		t.Fatalf("add session day: %v", err)
	}
	if len(resp.SessionDays) != 1 {
		t.Fatalf("expected one session day, got %d", len(resp.SessionDays))
	}
}

func TestPatientOwnershipScoping(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo)
	ctx := context.Background()

	owner := uuid.New()
	intruder := uuid.New()
	patient, _ := svc.Create(ctx, owner, PatientRequest{Name: "Ana Lima"})

	if _, err := svc.Get(ctx, intruder, patient.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
	if _, err := svc.AddProtocolEntry(ctx, intruder, patient.ID, ProtocolEntryRequest{TestItemID: uuid.New()}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found adding entry cross-account, got %v", err)
	}
}
