package formstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jo-hoe/imagegallery/internal/database"
	"github.com/jo-hoe/imagegallery/internal/gallery"
)

const (
	formsCollection    = "forms"
	previewsCollection = "previews"

	DefaultTTL = 30 * time.Minute
)

var ErrNotFound = errors.New("form not found")

// Preview is the locally chosen file of a form, kept only for immediate feedback.
type Preview struct {
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Repository keeps upload form state between htmx requests.
type Repository struct {
	store    database.DocumentStore
	forms    database.Collection
	previews database.Collection
	ttl      time.Duration
}

func NewRepository(client *database.Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{
		store:    client.Store(),
		forms:    client.Query.Collection(formsCollection),
		previews: client.Query.Collection(previewsCollection),
		ttl:      ttl,
	}
}

// Create starts a new empty form.
func (r *Repository) Create(ctx context.Context) (*gallery.FormState, error) {
	state := gallery.NewFormState(uuid.NewString())
	if err := r.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *Repository) Load(ctx context.Context, id string) (*gallery.FormState, error) {
	doc, err := r.store.Get(ctx, r.forms.Ref(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form %s: %w", id, err)
	}

	var state gallery.FormState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("failed to decode form %s: %w", id, err)
	}
	return &state, nil
}

func (r *Repository) Save(ctx context.Context, state *gallery.FormState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode form %s: %w", state.ID, err)
	}
	if err := r.store.Put(ctx, r.forms.Ref(state.ID), doc, r.ttl); err != nil {
		return fmt.Errorf("failed to save form %s: %w", state.ID, err)
	}
	return nil
}

// Delete discards the form and its preview.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.previews.Ref(id)); err != nil {
		return fmt.Errorf("failed to delete preview of form %s: %w", id, err)
	}
	if err := r.store.Delete(ctx, r.forms.Ref(id)); err != nil {
		return fmt.Errorf("failed to delete form %s: %w", id, err)
	}
	return nil
}

// SavePreview stores the local bytes of a form and returns the URL they are served from.
func (r *Repository) SavePreview(ctx context.Context, formID string, file gallery.FileInfo, data []byte) (string, error) {
	doc, err := json.Marshal(Preview{ContentType: file.ContentType, Data: data})
	if err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := r.store.Put(ctx, r.previews.Ref(formID), doc, r.ttl); err != nil {
		return "", fmt.Errorf("failed to save preview of form %s: %w", formID, err)
	}
	return PreviewPath(formID, time.Now()), nil
}

func (r *Repository) LoadPreview(ctx context.Context, formID string) (*Preview, error) {
	doc, err := r.store.Get(ctx, r.previews.Ref(formID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preview of form %s: %w", formID, err)
	}

	var preview Preview
	if err := json.Unmarshal(doc, &preview); err != nil {
		return nil, fmt.Errorf("failed to decode preview of form %s: %w", formID, err)
	}
	return &preview, nil
}

// PreviewPath is the route serving a form preview; ts busts browser caches between selections.
func PreviewPath(formID string, ts time.Time) string {
	return fmt.Sprintf("/htmx/forms/%s/preview?ts=%d", formID, ts.UnixNano())
}
