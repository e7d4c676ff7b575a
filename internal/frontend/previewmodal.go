package frontend

import "io"

const (
	previewModalTemplate = "preview-modal"
	previewCloseURL      = "/htmx/preview?open=false"
)

// PreviewModal displays one image and a link to the original. Open state is owned by the caller.
type PreviewModal struct {
	IsOpen   bool
	ImageURL string
	// CloseURL is requested when the user dismisses the dialog.
	CloseURL string
}

// Render writes nothing when the modal is closed.
func (m PreviewModal) Render(w io.Writer) error {
	if !m.IsOpen {
		return nil
	}
	if m.CloseURL == "" {
		m.CloseURL = previewCloseURL
	}
	return templates.ExecuteTemplate(w, previewModalTemplate, m)
}
