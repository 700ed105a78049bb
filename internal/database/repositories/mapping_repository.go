package repositories

import (
	"context"
	"encoding/json"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
)

// MappingRepository handles input-mapping data access. Mappings are stored
// as JSON documents; decoding runs the legacy class-name migration.
type MappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Save upserts a mapping by its ID, assigning one when empty.
func (r *MappingRepository) Save(ctx context.Context, m *mapping.Mapping) error {
	if m.ID == "" {
		m.ID = cuid.New()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	var record models.Mapping
	result := r.db.WithContext(ctx).First(&record, "id = ?", m.ID)
	if result.Error == gorm.ErrRecordNotFound {
		record = models.Mapping{ID: m.ID, Document: string(data)}
		return r.db.WithContext(ctx).Create(&record).Error
	} else if result.Error != nil {
		return result.Error
	}

	record.Document = string(data)
	return r.db.WithContext(ctx).Save(&record).Error
}

// FindByID returns a decoded mapping, or nil when not found.
func (r *MappingRepository) FindByID(ctx context.Context, id string) (*mapping.Mapping, error) {
	var record models.Mapping
	result := r.db.WithContext(ctx).First(&record, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return decodeMapping(&record)
}

// FindAll returns all stored mappings in creation order.
func (r *MappingRepository) FindAll(ctx context.Context) ([]*mapping.Mapping, error) {
	var records []models.Mapping
	result := r.db.WithContext(ctx).Order("created_at ASC").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	mappings := make([]*mapping.Mapping, 0, len(records))
	for i := range records {
		m, err := decodeMapping(&records[i])
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// Delete removes a mapping by ID.
func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Mapping{}, "id = ?", id).Error
}

func decodeMapping(record *models.Mapping) (*mapping.Mapping, error) {
	var m mapping.Mapping
	if err := json.Unmarshal([]byte(record.Document), &m); err != nil {
		return nil, err
	}
	m.ID = record.ID
	return &m, nil
}
