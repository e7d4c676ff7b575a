package gallery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// CacheKeyImages tags every cached listing of the image collection.
const CacheKeyImages = "images"

var ErrSubmitInProgress = errors.New("submission already in progress")

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// FormState is the transient state of one upload form instance.
type FormState struct {
	ID        string    `json:"id"`
	File      *FileInfo `json:"file,omitempty"`
	FileError Violation `json:"fileError,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// PreviewURL points to the locally chosen bytes and is only used for feedback.
	PreviewURL string `json:"previewUrl,omitempty"`
	// HostedURL is returned by the upload collaborator and is what gets persisted.
	HostedURL string `json:"hostedUrl,omitempty"`

	Phase Phase `json:"phase"`
}

func NewFormState(id string) *FormState {
	return &FormState{ID: id, Phase: PhaseIdle}
}

// Uploader turns a file into a hosted URL.
type Uploader interface {
	UploadImage(ctx context.Context, file FileInfo, data []byte) (string, error)
}

type ImageCreator interface {
	CreateImage(ctx context.Context, record ImageRecord) error
}

// PreviewSaver keeps the local bytes of a form and returns the URL they are served from.
type PreviewSaver interface {
	SavePreview(ctx context.Context, formID string, file FileInfo, data []byte) (string, error)
}

// InvalidateFunc forces every cached listing tagged with key to be fetched again.
type InvalidateFunc func(ctx context.Context, key string) error

type Dependencies struct {
	Uploader   Uploader
	Images     ImageCreator
	Previews   PreviewSaver
	Invalidate InvalidateFunc
}

type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeMissingURL
	OutcomeSaved
	OutcomeFailed
)

type Result struct {
	Outcome     Outcome
	FieldErrors []FieldError
	// Err is the backend failure for OutcomeFailed.
	Err error
}

// UploadForm drives one form instance: Idle -> Submitting -> Idle.
type UploadForm struct {
	mu         sync.Mutex
	state      *FormState
	deps       Dependencies
	notifier   Notifier
	closeModal func()
}

func NewUploadForm(state *FormState, deps Dependencies, notifier Notifier, closeModal func()) *UploadForm {
	if state.Phase == "" {
		state.Phase = PhaseIdle
	}
	return &UploadForm{
		state:      state,
		deps:       deps,
		notifier:   notifier,
		closeModal: closeModal,
	}
}

// State returns the form state; callers persist it after each interaction.
func (f *UploadForm) State() *FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *UploadForm) SetText(title, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Title = title
	f.state.Description = description
}

// SelectFile records the chosen file and, when it is acceptable, obtains its hosted URL.
func (f *UploadForm) SelectFile(ctx context.Context, file FileInfo, data []byte) Violation {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.File = &file
	f.state.FileError = ViolationNone
	f.state.PreviewURL = ""
	f.state.HostedURL = ""

	if v := ValidateFile(&file); v != ViolationNone {
		f.state.FileError = v
		return v
	}

	if f.deps.Previews != nil {
		previewURL, err := f.deps.Previews.SavePreview(ctx, f.state.ID, file, data)
		if err != nil {
			slog.Warn("SelectFile: failed to store local preview", "form_id", f.state.ID, "error", err)
		} else {
			f.state.PreviewURL = previewURL
		}
	}

	hostedURL, err := f.deps.Uploader.UploadImage(ctx, file, data)
	if err != nil || hostedURL == "" {
		slog.Error("SelectFile: failed to upload file", "form_id", f.state.ID, "filename", file.Name, "error", err)
		f.state.FileError = ViolationUploadFailed
		return ViolationUploadFailed
	}
	f.state.HostedURL = hostedURL
	return ViolationNone
}

// ClearFile forgets the chosen file together with its preview and hosted URL.
func (f *UploadForm) ClearFile() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.File = nil
	f.state.FileError = ViolationNone
	f.state.PreviewURL = ""
	f.state.HostedURL = ""
}

// Submit sends the form to the image collection endpoint. The returned error is only
// ErrSubmitInProgress; every other failure is reported through the Result and the notifier.
func (f *UploadForm) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.state.Phase == PhaseSubmitting {
		f.mu.Unlock()
		return Result{}, ErrSubmitInProgress
	}

	fieldErrors := Validate(f.state)
	if f.state.HostedURL == "" {
		f.notify(missingURLNotification)
		if len(fieldErrors) == 0 {
			f.reset()
			f.mu.Unlock()
			return Result{Outcome: OutcomeMissingURL}, nil
		}
	}
	if len(fieldErrors) > 0 {
		f.mu.Unlock()
		return Result{Outcome: OutcomeInvalid, FieldErrors: fieldErrors}, nil
	}

	record := ImageRecord{
		Title:       f.state.Title,
		Description: f.state.Description,
		URL:         f.state.HostedURL,
	}
	f.state.Phase = PhaseSubmitting
	f.mu.Unlock()

	err := f.deps.Images.CreateImage(ctx, record)

	f.mu.Lock()
	defer f.mu.Unlock()
	// the form is cleared whatever the outcome
	defer f.reset()

	if err != nil {
		slog.Error("Submit: failed to create image", "form_id", f.state.ID, "error", err)
		f.notify(failedNotification)
		return Result{Outcome: OutcomeFailed, Err: err}, nil
	}

	if f.deps.Invalidate != nil {
		if invErr := f.deps.Invalidate(ctx, CacheKeyImages); invErr != nil {
			slog.Warn("Submit: failed to invalidate image list", "form_id", f.state.ID, "error", invErr)
		}
	}
	f.notify(savedNotification)
	if f.closeModal != nil {
		f.closeModal()
	}
	return Result{Outcome: OutcomeSaved}, nil
}

// Reset returns the form to its empty initial state.
func (f *UploadForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *UploadForm) reset() {
	id := f.state.ID
	*f.state = FormState{ID: id, Phase: PhaseIdle}
}

func (f *UploadForm) notify(n Notification) {
	if f.notifier != nil {
		f.notifier.Notify(n)
	}
}
