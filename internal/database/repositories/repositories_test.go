package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
)

// setupTestDB creates an in-memory SQLite database for testing repositories.
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Device{},
		&models.Animation{},
		&models.Mapping{},
		&models.Setting{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup
}

func TestDeviceRepositoryCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeviceRepository(db)
	ctx := context.Background()

	device := &models.Device{
		Name:         "Front Wash",
		TypeID:       "rgb-dimmer",
		Universe:     1,
		StartChannel: 10,
	}
	if err := EncodeDefaultValues(device, map[string]fixture.Value{
		"Dimmer": fixture.Number(255),
		"Color":  fixture.Color(255, 0, 0),
	}); err != nil {
		t.Fatalf("EncodeDefaultValues: %v", err)
	}

	if err := repo.Create(ctx, device); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if device.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	found, err := repo.FindByID(ctx, device.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil || found.Name != "Front Wash" {
		t.Fatalf("FindByID = %+v", found)
	}

	values, err := DefaultValues(found)
	if err != nil {
		t.Fatalf("DefaultValues: %v", err)
	}
	if values["Dimmer"] != fixture.Number(255) {
		t.Errorf("Dimmer default = %+v", values["Dimmer"])
	}
	if values["Color"] != fixture.Color(255, 0, 0) {
		t.Errorf("Color default = %+v", values["Color"])
	}

	// Not-found lookups return nil without error.
	missing, err := repo.FindByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing lookup = %+v, %v", missing, err)
	}

	found.StartChannel = 20
	if err := repo.Update(ctx, found); err != nil {
		t.Fatalf("Update: %v", err)
	}
	byName, err := repo.FindByName(ctx, "Front Wash")
	if err != nil || byName == nil || byName.StartChannel != 20 {
		t.Fatalf("FindByName after update = %+v, %v", byName, err)
	}

	if err := repo.Delete(ctx, device.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.FindByID(ctx, device.ID)
	if err != nil || gone != nil {
		t.Errorf("device should be gone, got %+v, %v", gone, err)
	}
}

func TestDeviceRepositoryUnlinksFollowersOnDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDeviceRepository(db)
	ctx := context.Background()

	leader := &models.Device{Name: "Leader", TypeID: "rgb"}
	if err := repo.Create(ctx, leader); err != nil {
		t.Fatalf("Create leader: %v", err)
	}
	follower := &models.Device{Name: "Follower", TypeID: "rgb", LinkedTo: &leader.ID}
	if err := repo.Create(ctx, follower); err != nil {
		t.Fatalf("Create follower: %v", err)
	}

	linked, err := repo.FindLinkedTo(ctx, leader.ID)
	if err != nil || len(linked) != 1 {
		t.Fatalf("FindLinkedTo = %v, %v", linked, err)
	}

	if err := repo.Delete(ctx, leader.ID); err != nil {
		t.Fatalf("Delete leader: %v", err)
	}
	got, err := repo.FindByID(ctx, follower.ID)
	if err != nil {
		t.Fatalf("FindByID follower: %v", err)
	}
	if got.LinkedTo != nil {
		t.Errorf("follower should be unlinked, LinkedTo = %v", *got.LinkedTo)
	}
}

func TestAnimationRepositorySaveAndLoad(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAnimationRepository(db)
	ctx := context.Background()

	anim := &animation.Animation{Name: "Pulse", TargetControls: []string{"Dimmer"}}
	anim.AddKeyframe(1, map[string]fixture.Value{"Dimmer": fixture.Number(0)})
	anim.AddKeyframe(0, map[string]fixture.Value{"Dimmer": fixture.Number(255)})

	if _, err := repo.Save(ctx, anim); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.FindByName(ctx, "Pulse")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if loaded == nil || len(loaded.Keyframes) != 2 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Keyframes[0].Time != 0 {
		t.Errorf("keyframes should be time ordered, first at %v", loaded.Keyframes[0].Time)
	}

	// Saving the same name updates in place.
	anim.AddKeyframe(0.5, map[string]fixture.Value{"Dimmer": fixture.Number(100)})
	if _, err := repo.Save(ctx, anim); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 1 || len(all[0].Keyframes) != 3 {
		t.Fatalf("FindAll = %d animations, %d keyframes", len(all), len(all[0].Keyframes))
	}

	if err := repo.Delete(ctx, "Pulse"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	missing, err := repo.FindByName(ctx, "Pulse")
	if err != nil || missing != nil {
		t.Errorf("animation should be gone, got %+v, %v", missing, err)
	}
}

func TestMappingRepositoryRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMappingRepository(db)
	ctx := context.Background()

	m := &mapping.Mapping{
		Name:           "Pan Fader",
		Mode:           mapping.ModeDirect,
		InputDeviceID:  "nanokontrol",
		InputControlID: "slider-1",
		PropertyName:   "--pan",
		PropertyType:   mapping.PropertyPercentage,
		Range:          [2]float64{-50, 50},
	}
	if err := repo.Save(ctx, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.ID == "" {
		t.Fatal("Save should assign an ID")
	}

	loaded, err := repo.FindByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if loaded == nil || loaded.PropertyName != "--pan" || loaded.Range != m.Range {
		t.Fatalf("loaded = %+v", loaded)
	}

	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("FindAll = %v, %v", all, err)
	}

	if err := repo.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestSettingRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(db)
	ctx := context.Background()

	if v, err := repo.Get(ctx, "artnet_broadcast", "255.255.255.255"); err != nil || v != "255.255.255.255" {
		t.Fatalf("Get fallback = %q, %v", v, err)
	}

	if _, err := repo.Upsert(ctx, "artnet_broadcast", "10.0.0.255"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := repo.Upsert(ctx, "artnet_broadcast", "10.0.1.255"); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	setting, err := repo.FindByKey(ctx, "artnet_broadcast")
	if err != nil || setting == nil || setting.Value != "10.0.1.255" {
		t.Fatalf("FindByKey = %+v, %v", setting, err)
	}

	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("FindAll = %v, %v", all, err)
	}

	if err := repo.Delete(ctx, "artnet_broadcast"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
