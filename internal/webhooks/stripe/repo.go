package stripewebhook

import (
	"context"

	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db"
	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// Repository is the durable, append-only ledger of processed event IDs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Record inserts the event ID, reporting whether this call was the first to
// see it. The primary key makes the insert the serialization point: inside a
// transaction, a duplicate rolls back every other write for the event.
func (r *repository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	err := r.db.WithContext(ctx).Create(&models.WebhookEvent{
		EventID: eventID,
		Type:    eventType,
	}).Error
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
