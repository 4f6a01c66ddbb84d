package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"family-os/internal/family"
)

const (
	familiesCollection = "families"
	historyCollection  = "meal_history"
)

// FirestoreStore keeps families in the "families" collection with feedback
// in each document's "meal_history" sub-collection.
type FirestoreStore struct {
	client *firestore.Client
}

// FirestoreOptions selects the project and credentials. With no credentials
// the application default credentials are used.
type FirestoreOptions struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

// NewFirestoreStore connects to Firestore.
func NewFirestoreStore(ctx context.Context, opts FirestoreOptions) (*FirestoreStore, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(familiesCollection).Doc(id)
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*family.Family, error) {
	snap, err := s.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load family %s: %w", id, err)
	}
	return fromPlain(id, snap.Data())
}

func (s *FirestoreStore) Set(ctx context.Context, id string, fam *family.Family) error {
	doc := *fam
	doc.ID = id
	plain, err := toPlain(&doc)
	if err != nil {
		return err
	}
	if _, err := s.doc(id).Set(ctx, plain); err != nil {
		return fmt.Errorf("failed to save family %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		plain, err := toPlain(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		updates = append(updates, firestore.Update{Path: k, Value: plain})
	}
	_, err := s.doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update family %s: %w", id, err)
	}
	return nil
}

type historyEntry struct {
	Meal   string    `firestore:"meal"`
	Rating string    `firestore:"rating"`
	User   string    `firestore:"user"`
	Style  string    `firestore:"style"`
	Date   time.Time `firestore:"date"`
}

func (s *FirestoreStore) AppendEvent(ctx context.Context, id string, ev family.FeedbackEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now()
	}
	entry := historyEntry{
		Meal:   ev.Meal,
		Rating: string(ev.Rating),
		User:   ev.Member,
		Style:  ev.Style,
		Date:   ev.RecordedAt.UTC(),
	}
	if _, err := s.doc(id).Collection(historyCollection).Doc(ev.ID).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to append feedback event: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListEvents(ctx context.Context, id string, limit int) ([]family.FeedbackEvent, error) {
	q := s.doc(id).Collection(historyCollection).OrderBy("date", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var events []family.FeedbackEvent
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list feedback events: %w", err)
		}
		var e historyEntry
		if err := snap.DataTo(&e); err != nil {
			return nil, fmt.Errorf("failed to decode feedback event %s: %w", snap.Ref.ID, err)
		}
		events = append(events, family.FeedbackEvent{
			ID:         snap.Ref.ID,
			Meal:       e.Meal,
			Rating:     family.Rating(e.Rating),
			Member:     e.User,
			Style:      e.Style,
			RecordedAt: e.Date,
		})
	}
	return events, nil
}
