// Package showfile moves a whole setup (devices, animations, mappings)
// in and out of the database as a single JSON document.
package showfile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stylelights/stylelights-go/internal/database/models"
	"github.com/stylelights/stylelights-go/internal/database/repositories"
	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/animation"
	"github.com/stylelights/stylelights-go/internal/services/mapping"
)

// FormatVersion is written into every exported document.
const FormatVersion = "1.0"

// Document is a complete exported setup.
type Document struct {
	Version    string                 `json:"version"`
	Metadata   *Metadata              `json:"metadata,omitempty"`
	Devices    []DeviceEntry          `json:"devices"`
	Animations []*animation.Animation `json:"animations"`
	Mappings   []*mapping.Mapping     `json:"mappings"`
}

// Metadata records when and by what the document was produced.
type Metadata struct {
	ExportedAt       string `json:"exportedAt"`
	GeneratorVersion string `json:"generatorVersion,omitempty"`
}

// DeviceEntry is one device in the document. Links refer to the leader by
// name rather than ID so the document survives re-import into a database
// that assigns fresh IDs.
type DeviceEntry struct {
	Name           string                   `json:"name"`
	Type           string                   `json:"type"`
	Universe       int                      `json:"universe"`
	StartChannel   int                      `json:"startChannel"`
	DefaultValues  map[string]fixture.Value `json:"defaultValues,omitempty"`
	LinkedTo       string                   `json:"linkedTo,omitempty"`
	SyncedControls []string                 `json:"syncedControls,omitempty"`
}

// ImportMode determines how an import treats existing data.
type ImportMode string

const (
	// ImportModeMerge upserts by name, leaving unrelated records alone.
	ImportModeMerge ImportMode = "MERGE"
	// ImportModeReplace wipes the existing setup first.
	ImportModeReplace ImportMode = "REPLACE"
)

// ImportStats summarizes what an import did.
type ImportStats struct {
	DevicesCreated  int      `json:"devicesCreated"`
	DevicesUpdated  int      `json:"devicesUpdated"`
	AnimationsSaved int      `json:"animationsSaved"`
	MappingsSaved   int      `json:"mappingsSaved"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Service performs export and import against the repositories.
type Service struct {
	registry      *fixture.Registry
	deviceRepo    *repositories.DeviceRepository
	animationRepo *repositories.AnimationRepository
	mappingRepo   *repositories.MappingRepository

	generatorVersion string
}

// NewService creates a showfile service. The generator version is stamped
// into exported metadata.
func NewService(
	registry *fixture.Registry,
	deviceRepo *repositories.DeviceRepository,
	animationRepo *repositories.AnimationRepository,
	mappingRepo *repositories.MappingRepository,
	generatorVersion string,
) *Service {
	return &Service{
		registry:         registry,
		deviceRepo:       deviceRepo,
		animationRepo:    animationRepo,
		mappingRepo:      mappingRepo,
		generatorVersion: generatorVersion,
	}
}

// Export reads the whole setup into a document.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	doc := &Document{
		Version: FormatVersion,
		Metadata: &Metadata{
			ExportedAt:       time.Now().UTC().Format(time.RFC3339),
			GeneratorVersion: s.generatorVersion,
		},
	}

	devices, err := s.deviceRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export devices: %w", err)
	}
	nameByID := make(map[string]string, len(devices))
	for _, d := range devices {
		nameByID[d.ID] = d.Name
	}
	for i := range devices {
		d := &devices[i]
		defaults, err := repositories.DefaultValues(d)
		if err != nil {
			return nil, fmt.Errorf("export device %q defaults: %w", d.Name, err)
		}
		synced, err := repositories.SyncedControls(d)
		if err != nil {
			return nil, fmt.Errorf("export device %q synced controls: %w", d.Name, err)
		}
		entry := DeviceEntry{
			Name:           d.Name,
			Type:           d.TypeID,
			Universe:       d.Universe,
			StartChannel:   d.StartChannel,
			DefaultValues:  defaults,
			SyncedControls: synced,
		}
		if d.LinkedTo != nil {
			entry.LinkedTo = nameByID[*d.LinkedTo]
		}
		doc.Devices = append(doc.Devices, entry)
	}

	if doc.Animations, err = s.animationRepo.FindAll(ctx); err != nil {
		return nil, fmt.Errorf("export animations: %w", err)
	}
	if doc.Mappings, err = s.mappingRepo.FindAll(ctx); err != nil {
		return nil, fmt.Errorf("export mappings: %w", err)
	}
	return doc, nil
}

// Import applies a document to the database. Merge mode upserts device and
// animation records by name; replace mode deletes the existing setup
// first. Entries that cannot be applied become warnings, not errors.
func (s *Service) Import(ctx context.Context, doc *Document, mode ImportMode) (*ImportStats, error) {
	if mode == ImportModeReplace {
		if err := s.wipe(ctx); err != nil {
			return nil, err
		}
	}

	stats := &ImportStats{}

	// First pass creates or updates every device; links resolve in a
	// second pass once all names exist.
	idByName := make(map[string]string, len(doc.Devices))
	for _, entry := range doc.Devices {
		if _, ok := s.registry.DeviceType(entry.Type); !ok {
			stats.Warnings = append(stats.Warnings,
				fmt.Sprintf("device %q has unknown type %q, skipped", entry.Name, entry.Type))
			continue
		}

		existing, err := s.deviceRepo.FindByName(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("import device %q: %w", entry.Name, err)
		}

		record := existing
		if record == nil {
			record = &models.Device{Name: entry.Name}
		}
		record.TypeID = entry.Type
		record.Universe = entry.Universe
		record.StartChannel = entry.StartChannel
		record.LinkedTo = nil
		if err := repositories.EncodeDefaultValues(record, entry.DefaultValues); err != nil {
			return nil, fmt.Errorf("import device %q defaults: %w", entry.Name, err)
		}
		if err := repositories.EncodeSyncedControls(record, entry.SyncedControls); err != nil {
			return nil, fmt.Errorf("import device %q synced controls: %w", entry.Name, err)
		}

		if existing == nil {
			if err := s.deviceRepo.Create(ctx, record); err != nil {
				return nil, fmt.Errorf("import device %q: %w", entry.Name, err)
			}
			stats.DevicesCreated++
		} else {
			if err := s.deviceRepo.Update(ctx, record); err != nil {
				return nil, fmt.Errorf("import device %q: %w", entry.Name, err)
			}
			stats.DevicesUpdated++
		}
		idByName[entry.Name] = record.ID
	}

	for _, entry := range doc.Devices {
		if entry.LinkedTo == "" {
			continue
		}
		followerID, ok := idByName[entry.Name]
		if !ok {
			continue
		}
		leaderID, ok := idByName[entry.LinkedTo]
		if !ok {
			// The leader may predate this import in merge mode.
			leader, err := s.deviceRepo.FindByName(ctx, entry.LinkedTo)
			if err != nil {
				return nil, fmt.Errorf("import link for %q: %w", entry.Name, err)
			}
			if leader == nil {
				stats.Warnings = append(stats.Warnings,
					fmt.Sprintf("device %q links to unknown device %q, link dropped", entry.Name, entry.LinkedTo))
				continue
			}
			leaderID = leader.ID
		}
		follower, err := s.deviceRepo.FindByID(ctx, followerID)
		if err != nil || follower == nil {
			continue
		}
		follower.LinkedTo = &leaderID
		if err := s.deviceRepo.Update(ctx, follower); err != nil {
			return nil, fmt.Errorf("import link for %q: %w", entry.Name, err)
		}
	}

	for _, anim := range doc.Animations {
		anim.Normalize()
		if _, err := s.animationRepo.Save(ctx, anim); err != nil {
			return nil, fmt.Errorf("import animation %q: %w", anim.Name, err)
		}
		stats.AnimationsSaved++
	}

	for _, m := range doc.Mappings {
		if !m.HasDerivedNames() {
			m.Derive()
		}
		if mode == ImportModeReplace {
			// Fresh IDs; stale ones would collide across documents.
			m.ID = ""
		}
		if err := s.mappingRepo.Save(ctx, m); err != nil {
			return nil, fmt.Errorf("import mapping %q: %w", m.Name, err)
		}
		stats.MappingsSaved++
	}

	return stats, nil
}

func (s *Service) wipe(ctx context.Context) error {
	devices, err := s.deviceRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("wipe devices: %w", err)
	}
	for _, d := range devices {
		if err := s.deviceRepo.Delete(ctx, d.ID); err != nil {
			return fmt.Errorf("wipe device %q: %w", d.Name, err)
		}
	}

	animations, err := s.animationRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("wipe animations: %w", err)
	}
	for _, anim := range animations {
		if err := s.animationRepo.Delete(ctx, anim.Name); err != nil {
			return fmt.Errorf("wipe animation %q: %w", anim.Name, err)
		}
	}

	mappings, err := s.mappingRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("wipe mappings: %w", err)
	}
	for _, m := range mappings {
		if err := s.mappingRepo.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("wipe mapping %q: %w", m.Name, err)
		}
	}
	return nil
}

// ToJSON renders the document as indented JSON.
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Parse decodes a document and checks the format version.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse showfile: %w", err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("parse showfile: missing version")
	}
	return &doc, nil
}
