package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Export is the JSON document accepted by Import: a dump of samples from the
// platform health service.
type Export struct {
	Authorization *models.HealthAuthorization `json:"authorization,omitempty"`
	Samples       []models.HealthSample       `json:"samples,omitempty"`
	Sleep         []models.SleepSession       `json:"sleep,omitempty"`
	Workouts      []models.Workout            `json:"workouts,omitempty"`
}

// ImportResult counts what Import stored. Items already present from an
// earlier import are replaced and still counted.
type ImportResult struct {
	Samples  int `json:"samples"`
	Sleep    int `json:"sleep"`
	Workouts int `json:"workouts"`
}

// DecodeExport reads an Export from JSON.
func DecodeExport(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("DecodeExport: %w", err)
	}
	return &export, nil
}

// Import stores every item of the export as a record anchored at its start
// time so that RecordSource can serve it. Samples, sleep sessions and workouts
// are keyed by kind and time, so importing the same export twice leaves one
// record per item.
func Import(ctx context.Context, store storage.RecordStore, export *Export) (*ImportResult, error) {
	result := &ImportResult{}

	if export.Authorization != nil {
		record, err := models.NewRecord(storage.TypeHealthAuthorization, "", "health authorization", export.Authorization, time.Time{})
		if err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		if _, err := store.Create(ctx, record); err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
	}

	for _, smp := range export.Samples {
		record, err := models.NewRecord(storage.TypeHealthSample, sampleKey(smp), string(smp.Kind), smp, smp.StartAt)
		if err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		record.Metadata["kind"] = string(smp.Kind)
		if err := upsert(ctx, store, record); err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		result.Samples++
	}

	for _, sl := range export.Sleep {
		record, err := models.NewRecord(storage.TypeSleepSession, sleepKey(sl), "sleep", sl, sl.Start)
		if err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		if err := upsert(ctx, store, record); err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		result.Sleep++
	}

	for _, w := range export.Workouts {
		record, err := models.NewRecord(storage.TypeWorkout, workoutKey(w), string(w.Type), w, w.Start)
		if err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		record.Metadata["workout_type"] = string(w.Type)
		if w.ID != "" {
			record.Metadata["workout_id"] = w.ID
		}
		if err := upsert(ctx, store, record); err != nil {
			return result, fmt.Errorf("Import: %w", err)
		}
		result.Workouts++
	}

	return result, nil
}

// upsert creates record, or replaces the stored record with the same type and
// logical id.
func upsert(ctx context.Context, store storage.RecordStore, record *storage.Record) error {
	existing, err := store.FindByLogicalID(ctx, record.Type, record.LogicalID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = store.Create(ctx, record)
		return err
	case err != nil:
		return err
	}
	existing.Title = record.Title
	existing.Body = record.Body
	existing.Structured = record.Structured
	existing.Metadata = record.Metadata
	return store.Update(ctx, existing)
}

func sampleKey(smp models.HealthSample) string {
	return string(smp.Kind) + ":" + strconv.FormatInt(smp.StartAt.UnixNano(), 10)
}

func sleepKey(sl models.SleepSession) string {
	return "sleep:" + strconv.FormatInt(sl.Start.UnixNano(), 10)
}

func workoutKey(w models.Workout) string {
	return string(w.Type) + ":" + strconv.FormatInt(w.Start.UnixNano(), 10)
}
