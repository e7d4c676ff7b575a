package gallery

// ImageRecord is the body sent to the image collection endpoint.
type ImageRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// FileInfo describes a locally chosen file as declared by the client.
type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
