package patients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// Repository handles roster persistence. Every lookup is scoped to the
// owning account; a patient ID alone never grants access.
type Repository interface {
	Create(ctx context.Context, patient *models.Patient) error
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.Patient, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Patient, error)

	AddProtocolEntry(ctx context.Context, entry *models.ProtocolEntry) error
	SetProtocolEntryDone(ctx context.Context, patientID, entryID uuid.UUID, done bool) (bool, error)
	RemoveProtocolEntry(ctx context.Context, patientID, entryID uuid.UUID) (bool, error)

	AddSessionDay(ctx context.Context, day *models.SessionDay) error
	RemoveSessionDay(ctx context.Context, patientID, dayID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a roster repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).Create(patient).Error
}

func (r *repository) Update(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ? AND account_id = ?", patient.ID, patient.AccountID).
		Updates(map[string]any{
			"name":       patient.Name,
			"initials":   patient.Initials,
			"age":        patient.Age,
			"hypothesis": patient.Hypothesis,
		}).Error
}

func (r *repository) Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.Patient{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := r.db.WithContext(ctx).
		Preload("ProtocolEntries").
		Preload("SessionDays", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		Where("account_id = ?", accountID).
		First(&patient, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Patient, error) {
	var patients []models.Patient
	if err := r.db.WithContext(ctx).
		Preload("ProtocolEntries").
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *repository) AddProtocolEntry(ctx context.Context, entry *models.ProtocolEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) SetProtocolEntryDone(ctx context.Context, patientID, entryID uuid.UUID, done bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProtocolEntry{}).
		Where("id = ? AND patient_id = ?", entryID, patientID).
		Update("done", done)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) RemoveProtocolEntry(ctx context.Context, patientID, entryID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Delete(&models.ProtocolEntry{}, "id = ?", entryID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AddSessionDay(ctx context.Context, day *models.SessionDay) error {
	return r.db.WithContext(ctx).Create(day).Error
}

func (r *repository) RemoveSessionDay(ctx context.Context, patientID, dayID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Delete(&models.SessionDay{}, "id = ?", dayID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
