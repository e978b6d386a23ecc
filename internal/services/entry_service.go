package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledgerly/internal/amqp"
	"ledgerly/internal/core"
)

// EntryStore is the persistence surface for ledger entries. Every
// operation is scoped to the owning user.
type EntryStore interface {
	CreateEntry(ctx context.Context, userID int64, d core.Draft) (core.Entry, error)
	GetEntry(ctx context.Context, userID, id int64) (core.Entry, error)
	ListEntries(ctx context.Context, userID int64, f core.Filter) ([]core.Entry, error)
	UpdateEntry(ctx context.Context, userID, id int64, d core.Draft) (core.Entry, error)
	DeleteEntry(ctx context.Context, userID, id int64) error
}

// EventPublisher notifies downstream consumers of entry changes.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, msg *amqp.EntryEventMessage) error
}

// ListResult pairs a filtered listing with the aggregate totals
// computed over exactly those items.
type ListResult struct {
	Items   []core.Entry
	Summary core.Summary
}

// EntryService orchestrates entry operations across SQLite and AMQP.
// Event publication is fire and forget: a dead broker never fails a
// mutation that already committed.
type EntryService struct {
	storage   EntryStore
	publisher EventPublisher
	now       func() time.Time
}

func NewEntryService(storage EntryStore, publisher EventPublisher) *EntryService {
	return &EntryService{
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates the draft and persists a new entry for the user.
func (s *EntryService) Create(ctx context.Context, user core.Identity, d core.Draft) (core.Entry, error) {
	d.Normalize(s.now())
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}

	entry, err := s.storage.CreateEntry(ctx, user.ID, d)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	s.publishEvent(ctx, amqp.ActionCreated, entry.ID, user.ID)
	return entry, nil
}

// Get returns a single entry owned by the user.
func (s *EntryService) Get(ctx context.Context, user core.Identity, id int64) (core.Entry, error) {
	return s.storage.GetEntry(ctx, user.ID, id)
}

// List returns the user's entries matching the filter, newest first,
// with totals recomputed over the returned items.
func (s *EntryService) List(ctx context.Context, user core.Identity, f core.Filter) (ListResult, error) {
	items, err := s.storage.ListEntries(ctx, user.ID, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list entries: %w", err)
	}

	return ListResult{
		Items:   items,
		Summary: core.Summarize(items),
	}, nil
}

// Update validates the draft and replaces the mutable fields of an
// entry owned by the user.
func (s *EntryService) Update(ctx context.Context, user core.Identity, id int64, d core.Draft) (core.Entry, error) {
	d.Normalize(s.now())
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}

	entry, err := s.storage.UpdateEntry(ctx, user.ID, id, d)
	if err != nil {
		return core.Entry{}, err
	}

	s.publishEvent(ctx, amqp.ActionUpdated, entry.ID, user.ID)
	return entry, nil
}

// Delete removes an entry owned by the user.
func (s *EntryService) Delete(ctx context.Context, user core.Identity, id int64) error {
	if err := s.storage.DeleteEntry(ctx, user.ID, id); err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.ActionDeleted, id, user.ID)
	return nil
}

func (s *EntryService) publishEvent(ctx context.Context, action string, entryID, userID int64) {
	if s.publisher == nil {
		return
	}

	msg := amqp.NewEntryEventMessage(action, entryID, userID)
	if err := s.publisher.PublishEntryEvent(ctx, msg); err != nil {
		// The entry is already committed locally.
		slog.ErrorContext(ctx, "failed to publish entry event",
			"action", action,
			"entry_id", entryID,
			"error", err)
	}
}
