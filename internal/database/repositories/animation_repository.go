package repositories

import (
	"context"
	"encoding/json"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/services/animation"
)

// AnimationRepository handles animation data access. Animations are stored
// as JSON documents; loaded documents are normalized so the keyframe-order
// invariant survives hand-edited databases.
type AnimationRepository struct {
	db *gorm.DB
}

// NewAnimationRepository creates a new AnimationRepository.
func NewAnimationRepository(db *gorm.DB) *AnimationRepository {
	return &AnimationRepository{db: db}
}

// Save upserts an animation by name.
func (r *AnimationRepository) Save(ctx context.Context, anim *animation.Animation) (*models.Animation, error) {
	data, err := json.Marshal(anim)
	if err != nil {
		return nil, err
	}

	var record models.Animation
	result := r.db.WithContext(ctx).First(&record, "name = ?", anim.Name)
	if result.Error == gorm.ErrRecordNotFound {
		record = models.Animation{
			ID:       cuid.New(),
			Name:     anim.Name,
			Document: string(data),
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	} else if result.Error != nil {
		return nil, result.Error
	}

	record.Document = string(data)
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByName returns a decoded animation by name, or nil when not found.
func (r *AnimationRepository) FindByName(ctx context.Context, name string) (*animation.Animation, error) {
	var record models.Animation
	result := r.db.WithContext(ctx).First(&record, "name = ?", name)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return decodeAnimation(&record)
}

// FindAll returns all stored animations, decoded, ordered by name.
func (r *AnimationRepository) FindAll(ctx context.Context) ([]*animation.Animation, error) {
	var records []models.Animation
	result := r.db.WithContext(ctx).Order("name ASC").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	animations := make([]*animation.Animation, 0, len(records))
	for i := range records {
		anim, err := decodeAnimation(&records[i])
		if err != nil {
			return nil, err
		}
		animations = append(animations, anim)
	}
	return animations, nil
}

// Delete removes an animation by name.
func (r *AnimationRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Delete(&models.Animation{}, "name = ?", name).Error
}

func decodeAnimation(record *models.Animation) (*animation.Animation, error) {
	var anim animation.Animation
	if err := json.Unmarshal([]byte(record.Document), &anim); err != nil {
		return nil, err
	}
	anim.Normalize()
	return &anim, nil
}
