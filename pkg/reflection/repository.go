// Package reflection stores conversations, mood check-ins and journal entries
// and aggregates them into the Reflection dimension snapshot.
package reflection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

var (
	// ErrInvalidValence indicates a mood valence outside 1..5.
	ErrInvalidValence = errors.New("mood valence must be between 1 and 5")

	// ErrEmptyJournal indicates a journal entry without text.
	ErrEmptyJournal = errors.New("journal entry text is empty")
)

const metaConversationID = "conversation_id"

// Repository persists reflection entities as records.
type Repository struct {
	store  storage.RecordStore
	logger *logrus.Entry
	now    func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithRepositoryClock overrides the clock used to stamp new entities.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

// WithRepositoryLogger sets the logger.
func WithRepositoryLogger(logger *logrus.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logging.ForDimension(logger, "reflection") }
}

// NewRepository creates a Repository over a record store.
func NewRepository(store storage.RecordStore, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store:  store,
		logger: logging.ForDimension(nil, "reflection"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveConversation inserts or replaces a conversation keyed by its ID. A new
// UUID is assigned when the ID is empty. A replacement without a start time
// keeps the stored one.
func (r *Repository) SaveConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	if conv == nil {
		return nil, fmt.Errorf("SaveConversation: nil conversation")
	}

	saved := *conv
	now := r.now()
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.StartedAt.IsZero() {
		saved.StartedAt = now
	}
	saved.UpdatedAt = now
	if saved.Messages == nil {
		saved.Messages = []models.Message{}
	}

	existing, err := r.store.FindByLogicalID(ctx, storage.TypeConversation, saved.ID)
	switch {
	case err == nil:
		if conv.StartedAt.IsZero() {
			var previous models.Conversation
			if err := existing.DecodeStructured(&previous); err == nil && !previous.StartedAt.IsZero() {
				saved.StartedAt = previous.StartedAt
			}
		}
		if err := existing.SetStructured(saved); err != nil {
			return nil, fmt.Errorf("SaveConversation: %w", err)
		}
		existing.Title = saved.Title
		existing.Body = lastMessage(saved.Messages)
		if existing.Metadata == nil {
			existing.Metadata = map[string]interface{}{}
		}
		existing.Metadata[metaConversationID] = saved.ID
		existing.Metadata["message_count"] = len(saved.Messages)
		if err := r.store.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("SaveConversation: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		record, err := models.NewRecord(storage.TypeConversation, saved.ID, saved.Title, saved, saved.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("SaveConversation: %w", err)
		}
		record.Body = lastMessage(saved.Messages)
		record.Metadata[metaConversationID] = saved.ID
		record.Metadata["message_count"] = len(saved.Messages)
		if _, err := r.store.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("SaveConversation: %w", err)
		}
	default:
		return nil, fmt.Errorf("SaveConversation: %w", err)
	}

	return &saved, nil
}

// GetConversation returns the conversation with the given ID, or an error
// wrapping storage.ErrNotFound.
func (r *Repository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	_, conv, err := r.findConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetConversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns every conversation, oldest first.
func (r *Repository) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	records, err := r.store.FetchAll(ctx, storage.TypeConversation, nil)
	if err != nil {
		return nil, fmt.Errorf("ListConversations: %w", err)
	}
	return models.DecodeAll[models.Conversation](records), nil
}

// DeleteConversation removes a conversation.
func (r *Repository) DeleteConversation(ctx context.Context, id string) error {
	record, _, err := r.findConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteConversation: %w", err)
	}
	if err := r.store.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("DeleteConversation: %w", err)
	}
	return nil
}

// findConversation scans conversation records and matches the decoded ID, so
// that records written without a logical id are still found.
func (r *Repository) findConversation(ctx context.Context, id string) (*storage.Record, *models.Conversation, error) {
	records, err := r.store.FetchAll(ctx, storage.TypeConversation, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		var conv models.Conversation
		if err := record.DecodeStructured(&conv); err != nil {
			r.logger.WithError(err).WithField("record_id", record.ID).Debug("skipping undecodable conversation")
			continue
		}
		if conv.ID == id {
			return record, &conv, nil
		}
	}
	return nil, nil, storage.ErrNotFound
}

// LogMood stores a mood check-in.
func (r *Repository) LogMood(ctx context.Context, mood models.MoodCheckIn) (*models.MoodCheckIn, error) {
	if mood.Valence < 1 || mood.Valence > 5 {
		return nil, fmt.Errorf("LogMood: %w", ErrInvalidValence)
	}
	if mood.ID == "" {
		mood.ID = uuid.NewString()
	}
	if mood.CreatedAt.IsZero() {
		mood.CreatedAt = r.now()
	}

	record, err := models.NewRecord(storage.TypeMoodCheckIn, mood.ID, mood.Label, mood, mood.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("LogMood: %w", err)
	}
	record.Body = mood.Note
	record.Metadata["valence"] = mood.Valence
	if _, err := r.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("LogMood: %w", err)
	}
	return &mood, nil
}

// ListMoods returns mood check-ins created at or after since, oldest first.
func (r *Repository) ListMoods(ctx context.Context, since time.Time) ([]models.MoodCheckIn, error) {
	records, err := r.store.FetchAll(ctx, storage.TypeMoodCheckIn, &storage.FetchOptions{Since: since})
	if err != nil {
		return nil, fmt.Errorf("ListMoods: %w", err)
	}
	return models.DecodeAll[models.MoodCheckIn](records), nil
}

// AddJournalEntry stores a journal entry.
func (r *Repository) AddJournalEntry(ctx context.Context, entry models.JournalEntry) (*models.JournalEntry, error) {
	if strings.TrimSpace(entry.Text) == "" {
		return nil, fmt.Errorf("AddJournalEntry: %w", ErrEmptyJournal)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	record, err := models.NewRecord(storage.TypeJournalEntry, entry.ID, entry.Prompt, entry, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("AddJournalEntry: %w", err)
	}
	record.Body = entry.Text
	if len(entry.Tags) > 0 {
		record.Metadata["tags"] = strings.Join(entry.Tags, ",")
	}
	if _, err := r.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("AddJournalEntry: %w", err)
	}
	return &entry, nil
}

// ListJournal returns journal entries created at or after since, oldest first.
func (r *Repository) ListJournal(ctx context.Context, since time.Time) ([]models.JournalEntry, error) {
	records, err := r.store.FetchAll(ctx, storage.TypeJournalEntry, &storage.FetchOptions{Since: since})
	if err != nil {
		return nil, fmt.Errorf("ListJournal: %w", err)
	}
	return models.DecodeAll[models.JournalEntry](records), nil
}

// DeleteJournalEntry removes a journal entry by its ID.
func (r *Repository) DeleteJournalEntry(ctx context.Context, id string) error {
	record, err := r.store.FindByLogicalID(ctx, storage.TypeJournalEntry, id)
	if err != nil {
		return fmt.Errorf("DeleteJournalEntry: %w", err)
	}
	if err := r.store.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("DeleteJournalEntry: %w", err)
	}
	return nil
}

func lastMessage(messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
