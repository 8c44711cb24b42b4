package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/MoAftaab/slidecast/internal/models"
	"github.com/MoAftaab/slidecast/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PresentationRepository persists the durable unit of work. A record is
// only ever written by its own processing job, so no locking is needed at
// this granularity; terminal immutability is enforced by conditioning every
// mutation on processing_status == "processing".
type PresentationRepository interface {
	Create(ctx context.Context, p *models.Presentation) error
	GetByPresentationID(ctx context.Context, presentationID string) (*models.Presentation, error)
	SetProgress(ctx context.Context, presentationID string, progress int) error
	UpdateFields(ctx context.Context, presentationID string, fields bson.M) error
	MarkCompleted(ctx context.Context, presentationID string, fields bson.M) error
	MarkFailed(ctx context.Context, presentationID string, errMsg, errDetails string) error
}

type presentationRepo struct {
	col *mongo.Collection
}

func NewPresentationRepo(db *mongo.Database) PresentationRepository {
	return &presentationRepo{col: db.Collection("presentations")}
}

func (r *presentationRepo) Create(ctx context.Context, p *models.Presentation) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *presentationRepo) GetByPresentationID(ctx context.Context, presentationID string) (*models.Presentation, error) {
	var p models.Presentation
	err := r.col.FindOne(ctx, bson.M{"presentation_id": presentationID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

// SetProgress advances processing_progress via $max, so progress is
// monotonically non-decreasing even if stage updates race with retries.
func (r *presentationRepo) SetProgress(ctx context.Context, presentationID string, progress int) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"presentation_id": presentationID, "processing_status": models.StatusProcessing},
		bson.M{
			"$max": bson.M{"processing_progress": progress},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func (r *presentationRepo) UpdateFields(ctx context.Context, presentationID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"presentation_id": presentationID, "processing_status": models.StatusProcessing},
		bson.M{"$set": fields},
	)
	return err
}

func (r *presentationRepo) MarkCompleted(ctx context.Context, presentationID string, fields bson.M) error {
	fields["processing_status"] = models.StatusCompleted
	fields["processing_progress"] = 100
	return r.UpdateFields(ctx, presentationID, fields)
}

// MarkFailed leaves processing_progress untouched so it freezes at the last
// value written before the failure.
func (r *presentationRepo) MarkFailed(ctx context.Context, presentationID string, errMsg, errDetails string) error {
	return r.UpdateFields(ctx, presentationID, bson.M{
		"processing_status": models.StatusFailed,
		"error":             errMsg,
		"error_details":     errDetails,
	})
}
