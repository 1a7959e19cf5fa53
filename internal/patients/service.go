package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

// PatientRequest is the payload for creating or updating a roster entry.
type PatientRequest struct {
	Name       string  `json:"name" validate:"required"`
	Age        *int    `json:"age,omitempty"`
	Hypothesis *string `json:"hypothesis,omitempty"`
}

// ProtocolEntryRequest links a bookshelf test into a patient's protocol.
type ProtocolEntryRequest struct {
	TestItemID uuid.UUID `json:"test_item_id" validate:"required"`
}

// ProtocolDoneRequest toggles a checklist row.
type ProtocolDoneRequest struct {
	Done bool `json:"done"`
}

// SessionDayRequest appends one dated entry to the session log.
type SessionDayRequest struct {
	Date        string `json:"date" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ProtocolEntryResponse is one checklist row.
type ProtocolEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	TestItemID uuid.UUID `json:"test_item_id"`
	Done       bool      `json:"done"`
}

// SessionDayResponse is one session log entry.
type SessionDayResponse struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
}

// PatientResponse is the public shape of a roster entry. Full names stay
// server-side on list views; only initials are rendered there.
type PatientResponse struct {
	ID              uuid.UUID               `json:"id"`
	Name            string                  `json:"name"`
	Initials        string                  `json:"initials"`
	Age             *int                    `json:"age,omitempty"`
	Hypothesis      *string                 `json:"hypothesis,omitempty"`
	ProtocolEntries []ProtocolEntryResponse `json:"protocol_entries"`
	SessionDays     []SessionDayResponse    `json:"session_days,omitempty"`
}

// Service manages the patient roster with its protocol checklists and
// session logs.
type Service interface {
	Create(ctx context.Context, accountID uuid.UUID, req PatientRequest) (*PatientResponse, error)
	Update(ctx context.Context, accountID, id uuid.UUID, req PatientRequest) (*PatientResponse, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
	Get(ctx context.Context, accountID, id uuid.UUID) (*PatientResponse, error)
	List(ctx context.Context, accountID uuid.UUID) ([]PatientResponse, error)

	AddProtocolEntry(ctx context.Context, accountID, patientID uuid.UUID, req ProtocolEntryRequest) (*PatientResponse, error)
	SetProtocolEntryDone(ctx context.Context, accountID, patientID, entryID uuid.UUID, req ProtocolDoneRequest) error
	RemoveProtocolEntry(ctx context.Context, accountID, patientID, entryID uuid.UUID) error

	AddSessionDay(ctx context.Context, accountID, patientID uuid.UUID, req SessionDayRequest) (*PatientResponse, error)
	RemoveSessionDay(ctx context.Context, accountID, patientID, dayID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService constructs a roster service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("patient repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, accountID uuid.UUID, req PatientRequest) (*PatientResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient name is required")
	}

	patient := &models.Patient{
		AccountID:  accountID,
		Name:       name,
		Initials:   Initials(name),
		Age:        req.Age,
		Hypothesis: req.Hypothesis,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create patient")
	}
	resp := fromModel(patient)
	return &resp, nil
}

func (s *service) Update(ctx context.Context, accountID, id uuid.UUID, req PatientRequest) (*PatientResponse, error) {
	patient, err := s.loadOwned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient name is required")
	}
	patient.Name = name
	patient.Initials = Initials(name)
	patient.Age = req.Age
	patient.Hypothesis = req.Hypothesis

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update patient")
	}
	resp := fromModel(patient)
	return &resp, nil
}

func (s *service) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete patient")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, accountID, id uuid.UUID) (*PatientResponse, error) {
	patient, err := s.loadOwned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	resp := fromModel(patient)
	return &resp, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID) ([]PatientResponse, error) {
	patients, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list patients")
	}
	responses := make([]PatientResponse, 0, len(patients))
	for i := range patients {
		responses = append(responses, fromModel(&patients[i]))
	}
	return responses, nil
}

func (s *service) AddProtocolEntry(ctx context.Context, accountID, patientID uuid.UUID, req ProtocolEntryRequest) (*PatientResponse, error) {
	if _, err := s.loadOwned(ctx, accountID, patientID); err != nil {
		return nil, err
	}
	if req.TestItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "test_item_id is required")
	}

	entry := &models.ProtocolEntry{
		PatientID:  patientID,
		TestItemID: req.TestItemID,
	}
	if err := s.repo.AddProtocolEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add protocol entry")
	}
	return s.Get(ctx, accountID, patientID)
}

func (s *service) SetProtocolEntryDone(ctx context.Context, accountID, patientID, entryID uuid.UUID, req ProtocolDoneRequest) error {
	if _, err := s.loadOwned(ctx, accountID, patientID); err != nil {
		return err
	}
	updated, err := s.repo.SetProtocolEntryDone(ctx, patientID, entryID, req.Done)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle protocol entry")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "protocol entry not found")
	}
	return nil
}

func (s *service) RemoveProtocolEntry(ctx context.Context, accountID, patientID, entryID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, accountID, patientID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveProtocolEntry(ctx, patientID, entryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove protocol entry")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "protocol entry not found")
	}
	return nil
}

func (s *service) AddSessionDay(ctx context.Context, accountID, patientID uuid.UUID, req SessionDayRequest) (*PatientResponse, error) {
	if _, err := s.loadOwned(ctx, accountID, patientID); err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	day := &models.SessionDay{
		PatientID:   patientID,
		Date:        req.Date,
		Description: description,
	}
	if err := s.repo.AddSessionDay(ctx, day); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add session day")
	}
	return s.Get(ctx, accountID, patientID)
}

func (s *service) RemoveSessionDay(ctx context.Context, accountID, patientID, dayID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, accountID, patientID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveSessionDay(ctx, patientID, dayID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove session day")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "session day not found")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, accountID, id uuid.UUID) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "patient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup patient")
	}
	return patient, nil
}

// Initials derives the abbreviated display form of a full name, e.g.
// "Maria da Silva" becomes "M.S.". Portuguese connectives are skipped.
func Initials(name string) string {
	skip := map[string]bool{"da": true, "de": true, "do": true, "das": true, "dos": true, "e": true}

	var b strings.Builder
	for _, part := range strings.Fields(name) {
		if skip[strings.ToLower(part)] {
			continue
		}
		runes := []rune(part)
		if len(runes) == 0 {
			continue
		}
		b.WriteRune(runes[0])
		b.WriteByte('.')
	}
	return strings.ToUpper(b.String())
}

func fromModel(patient *models.Patient) PatientResponse {
	entries := make([]ProtocolEntryResponse, 0, len(patient.ProtocolEntries))
	for _, entry := range patient.ProtocolEntries {
		entries = append(entries, ProtocolEntryResponse{
			ID:         entry.ID,
			TestItemID: entry.TestItemID,
			Done:       entry.Done,
		})
	}
	days := make([]SessionDayResponse, 0, len(patient.SessionDays))
	for _, day := range patient.SessionDays {
		days = append(days, SessionDayResponse{
			ID:          day.ID,
			Date:        day.Date,
			Description: day.Description,
		})
	}
	return PatientResponse{
		ID:              patient.ID,
		Name:            patient.Name,
		Initials:        patient.Initials,
		Age:             patient.Age,
		Hypothesis:      patient.Hypothesis,
		ProtocolEntries: entries,
		SessionDays:     days,
	}
}
