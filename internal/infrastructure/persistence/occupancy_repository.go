package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRequestRepository implements occupancy.RequestRepository
type GormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GormRequestRepository
func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

// FindByID finds a request by its ID
func (r *GormRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*occupancy.Request, error) {
	model, err := findByID[models.OccupancyRequestModel](ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists requests matching the filter
func (r *GormRequestRepository) FindAll(ctx context.Context, filter shared.Filter) ([]occupancy.Request, error) {
	rows, err := findAll[models.OccupancyRequestModel](ctx, r.db, filter, RequestFields)
	if err != nil {
		return nil, err
	}
	out := make([]occupancy.Request, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Count counts requests matching the filter
func (r *GormRequestRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return countAll[models.OccupancyRequestModel](ctx, r.db, filter, RequestFields)
}

// Create inserts a request. The pending-pair unique index surfaces as
// shared.ErrConflict when the connection is opened with TranslateError.
func (r *GormRequestRepository) Create(ctx context.Context, request *occupancy.Request) error {
	model := &models.OccupancyRequestModel{}
	model.FromDomain(request)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// UpdateReview writes the review fields guarded by status = 'pending'
func (r *GormRequestRepository) UpdateReview(ctx context.Context, request *occupancy.Request) error {
	result := r.db.WithContext(ctx).
		Model(&models.OccupancyRequestModel{}).
		Where("id = ? AND status = ?", request.ID, occupancy.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      request.Status,
			"reviewed_at": request.ReviewedAt,
			"reviewed_by": request.ReviewedBy,
			"notes":       request.Notes,
			"updated_at":  request.UpdatedAt,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OccupancyRequestModel{}).Where("id = ?", request.ID).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConflict
}

// GormIntentRepository implements occupancy.IntentRepository
type GormIntentRepository struct {
	db *gorm.DB
}

// NewGormIntentRepository creates a new GormIntentRepository
func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

// Create records a new intent
func (r *GormIntentRepository) Create(ctx context.Context, intent *occupancy.ApprovalIntent) error {
	model := &models.ApprovalIntentModel{}
	model.FromDomain(intent)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Update persists stage and error of an intent
func (r *GormIntentRepository) Update(ctx context.Context, intent *occupancy.ApprovalIntent) error {
	result := r.db.WithContext(ctx).
		Model(&models.ApprovalIntentModel{}).
		Where("id = ?", intent.ID).
		Updates(map[string]interface{}{
			"stage":      intent.Stage,
			"last_error": intent.LastError,
			"updated_at": intent.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindOpenByRequest returns the most recent unfinished intent of a request
func (r *GormIntentRepository) FindOpenByRequest(ctx context.Context, requestID uuid.UUID) (*occupancy.ApprovalIntent, error) {
	var model models.ApprovalIntentModel
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND stage IN ?", requestID, openStages()).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindOpen lists unfinished intents last touched before olderThan, oldest first
func (r *GormIntentRepository) FindOpen(ctx context.Context, olderThan time.Time, limit int) ([]occupancy.ApprovalIntent, error) {
	var rows []models.ApprovalIntentModel
	query := r.db.WithContext(ctx).
		Where("stage IN ? AND updated_at < ?", openStages(), olderThan).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]occupancy.ApprovalIntent, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

func openStages() []occupancy.IntentStage {
	return []occupancy.IntentStage{occupancy.IntentStageStarted, occupancy.IntentStageFlatAssigned}
}

var (
	_ occupancy.RequestRepository = (*GormRequestRepository)(nil)
	_ occupancy.IntentRepository  = (*GormIntentRepository)(nil)
)
