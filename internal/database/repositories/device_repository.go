// Package repositories provides data access for the persisted models.
package repositories

import (
	"context"
	"encoding/json"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/fixture"
)

// DeviceRepository handles device data access.
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create inserts a device, assigning an ID when empty.
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		device.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(device).Error
}

// FindAll returns all devices ordered by universe and start channel.
func (r *DeviceRepository) FindAll(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	result := r.db.WithContext(ctx).
		Order("universe ASC, start_channel ASC").
		Find(&devices)
	return devices, result.Error
}

// FindByID returns a device by ID, or nil when not found.
func (r *DeviceRepository) FindByID(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	result := r.db.WithContext(ctx).First(&device, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &device, nil
}

// FindByName returns a device by name, or nil when not found.
func (r *DeviceRepository) FindByName(ctx context.Context, name string) (*models.Device, error) {
	var device models.Device
	result := r.db.WithContext(ctx).First(&device, "name = ?", name)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &device, nil
}

// FindLinkedTo returns the devices that follow the given device.
func (r *DeviceRepository) FindLinkedTo(ctx context.Context, id string) ([]models.Device, error) {
	var devices []models.Device
	result := r.db.WithContext(ctx).
		Where("linked_to = ?", id).
		Find(&devices)
	return devices, result.Error
}

// Update saves the full device record.
func (r *DeviceRepository) Update(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).Save(device).Error
}

// Delete removes a device and unlinks any followers.
func (r *DeviceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).
			Where("linked_to = ?", id).
			Update("linked_to", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Device{}, "id = ?", id).Error
	})
}

// DefaultValues decodes a device's stored default control values.
func DefaultValues(device *models.Device) (map[string]fixture.Value, error) {
	if device.DefaultValues == nil || *device.DefaultValues == "" {
		return nil, nil
	}
	var values map[string]fixture.Value
	if err := json.Unmarshal([]byte(*device.DefaultValues), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// EncodeDefaultValues serializes control values into the device record.
func EncodeDefaultValues(device *models.Device, values map[string]fixture.Value) error {
	if len(values) == 0 {
		device.DefaultValues = nil
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	s := string(data)
	device.DefaultValues = &s
	return nil
}

// SyncedControls decodes a device's synced-control list.
func SyncedControls(device *models.Device) ([]string, error) {
	if device.SyncedControls == nil || *device.SyncedControls == "" {
		return nil, nil
	}
	var controls []string
	if err := json.Unmarshal([]byte(*device.SyncedControls), &controls); err != nil {
		return nil, err
	}
	return controls, nil
}

// EncodeSyncedControls serializes a synced-control list into the record.
func EncodeSyncedControls(device *models.Device, controls []string) error {
	if len(controls) == 0 {
		device.SyncedControls = nil
		return nil
	}
	data, err := json.Marshal(controls)
	if err != nil {
		return err
	}
	s := string(data)
	device.SyncedControls = &s
	return nil
}
