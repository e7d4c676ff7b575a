package frontend

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/jo-hoe/imagegallery/internal/core"
	"github.com/jo-hoe/imagegallery/internal/formstate"
	"github.com/jo-hoe/imagegallery/internal/gallery"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"

	uploadModalTemplate = "upload-modal"
	fileFieldTemplate   = "file-field"
	imageListTemplate   = "image-list"

	// htmx listens for this event to refetch the image list.
	imagesEvent = gallery.CacheKeyImages
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

type uploadFormView struct {
	State  *gallery.FormState
	Errors map[string]string
	Toasts []gallery.Notification
}

type submitRequest struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

type previewRequest struct {
	URL  string `query:"url" validate:"omitempty,url"`
	Open bool   `query:"open"`
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
		inflight:    make(map[string]struct{}),
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = &Template{
		templates: templates,
	}

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/probe", service.probeHandler)

	e.GET("/htmx/images", service.htmxListImagesHandler)
	e.GET("/htmx/preview", service.htmxPreviewHandler)

	// Upload form lifecycle
	e.GET("/htmx/upload-modal", service.htmxOpenUploadModalHandler)
	e.DELETE("/htmx/forms/:id", service.htmxCloseUploadModalHandler)
	e.POST("/htmx/forms/:id/file", service.htmxSelectFileHandler)
	e.GET("/htmx/forms/:id/preview", service.htmxLocalPreviewHandler)
	e.POST("/htmx/forms/:id/submit", service.htmxSubmitHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, nil)
}

func (service *FrontendService) probeHandler(ctx echo.Context) error {
	if err := service.coreService.Ping(ctx.Request().Context()); err != nil {
		slog.Error("probeHandler: database ping failed", "status", http.StatusServiceUnavailable, "error", err)
		return ctx.String(http.StatusServiceUnavailable, "Database not reachable")
	}
	return ctx.String(http.StatusOK, "ok")
}

func (service *FrontendService) htmxListImagesHandler(ctx echo.Context) error {
	images, err := service.coreService.GetImages(ctx.Request().Context())
	if err != nil {
		slog.Error("htmxListImagesHandler: failed to list images",
			"status", http.StatusBadGateway, "error", err)
		return ctx.String(http.StatusBadGateway, "Failed to list images")
	}

	// Prevent caching so the latest images are always shown
	service.setNoCache(ctx)

	return ctx.Render(http.StatusOK, imageListTemplate, images)
}

func (service *FrontendService) htmxPreviewHandler(ctx echo.Context) error {
	var req previewRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid preview parameters")
	}
	if err := ctx.Validate(&req); err != nil {
		slog.Warn("htmxPreviewHandler: invalid image url", "url", req.URL, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid image url")
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return PreviewModal{IsOpen: req.Open, ImageURL: req.URL}.Render(ctx.Response())
}

func (service *FrontendService) htmxOpenUploadModalHandler(ctx echo.Context) error {
	state, err := service.coreService.Forms().Create(ctx.Request().Context())
	if err != nil {
		slog.Error("htmxOpenUploadModalHandler: failed to create form",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to open upload form")
	}
	return ctx.Render(http.StatusOK, uploadModalTemplate, uploadFormView{State: state})
}

// htmxCloseUploadModalHandler discards the form; an empty body clears the modal container.
func (service *FrontendService) htmxCloseUploadModalHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := service.coreService.Forms().Delete(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxCloseUploadModalHandler: failed to delete form",
			"status", http.StatusInternalServerError, "form_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to close upload form")
	}
	return ctx.HTML(http.StatusOK, "")
}

func (service *FrontendService) htmxSelectFileHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	state, err := service.loadForm(ctx)
	if state == nil {
		return err
	}
	form := service.coreService.NewUploadForm(state, nil, nil)

	file, err := ctx.FormFile(gallery.FieldImage)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		form.ClearFile()
	case err != nil:
		slog.Error("htmxSelectFileHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "form_id", state.ID, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	default:
		info := gallery.FileInfo{
			Name:        file.Filename,
			Size:        file.Size,
			ContentType: file.Header.Get(echo.HeaderContentType),
		}

		var data []byte
		if gallery.ValidateFile(&info) == gallery.ViolationNone {
			data, err = readFile(file)
			if err != nil {
				slog.Error("htmxSelectFileHandler: failed to read uploaded file",
					"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
				return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
			}
		}
		form.SelectFile(reqCtx, info, data)
	}

	if err := service.coreService.Forms().Save(reqCtx, form.State()); err != nil {
		slog.Error("htmxSelectFileHandler: failed to save form",
			"status", http.StatusInternalServerError, "form_id", state.ID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to save form")
	}

	view := uploadFormView{State: form.State(), Errors: map[string]string{}}
	if state.File != nil && state.FileError != gallery.ViolationNone {
		for _, fe := range gallery.Validate(state) {
			if fe.Field == gallery.FieldImage {
				view.Errors[gallery.FieldImage] = fe.Message
			}
		}
	}
	return ctx.Render(http.StatusOK, fileFieldTemplate, view)
}

func (service *FrontendService) htmxLocalPreviewHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	preview, err := service.coreService.Forms().LoadPreview(ctx.Request().Context(), id)
	if errors.Is(err, formstate.ErrNotFound) {
		return ctx.String(http.StatusNotFound, "Preview not available")
	}
	if err != nil {
		slog.Error("htmxLocalPreviewHandler: failed to load preview",
			"status", http.StatusInternalServerError, "form_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load preview")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, preview.ContentType, preview.Data)
}

func (service *FrontendService) htmxSubmitHandler(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var req submitRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid form data")
	}

	state, err := service.loadForm(ctx)
	if state == nil {
		return err
	}

	if !service.acquire(state.ID) {
		slog.Warn("htmxSubmitHandler: submission already in progress", "form_id", state.ID)
		return ctx.String(http.StatusConflict, "Submission already in progress")
	}
	defer service.release(state.ID)

	var notifications gallery.Notifications
	closed := false
	form := service.coreService.NewUploadForm(state, &notifications, func() { closed = true })
	form.SetText(req.Title, req.Description)

	result, err := form.Submit(reqCtx)
	if errors.Is(err, gallery.ErrSubmitInProgress) {
		return ctx.String(http.StatusConflict, "Submission already in progress")
	}

	if closed {
		if err := service.coreService.Forms().Delete(reqCtx, state.ID); err != nil {
			slog.Warn("htmxSubmitHandler: failed to discard closed form", "form_id", state.ID, "error", err)
		}
		ctx.Response().Header().Set("HX-Trigger", imagesEvent)
		return ctx.Render(http.StatusOK, "toasts", []gallery.Notification(notifications))
	}

	if err := service.coreService.Forms().Save(reqCtx, form.State()); err != nil {
		slog.Error("htmxSubmitHandler: failed to save form",
			"status", http.StatusInternalServerError, "form_id", state.ID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to save form")
	}

	view := uploadFormView{State: form.State(), Toasts: notifications, Errors: map[string]string{}}
	for _, fe := range result.FieldErrors {
		view.Errors[fe.Field] = fe.Message
	}
	return ctx.Render(http.StatusOK, uploadModalTemplate, view)
}

// loadForm returns a nil state after writing the error response itself.
func (service *FrontendService) loadForm(ctx echo.Context) (*gallery.FormState, error) {
	id := ctx.Param("id")
	state, err := service.coreService.Forms().Load(ctx.Request().Context(), id)
	if errors.Is(err, formstate.ErrNotFound) {
		slog.Warn("loadForm: form not found", "status", http.StatusNotFound, "form_id", id)
		return nil, ctx.String(http.StatusNotFound, "Form expired, open it again")
	}
	if err != nil {
		slog.Error("loadForm: failed to load form",
			"status", http.StatusInternalServerError, "form_id", id, "error", err)
		return nil, ctx.String(http.StatusInternalServerError, "Failed to load form")
	}
	return state, nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readFile: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()
	return io.ReadAll(src)
}

func (service *FrontendService) acquire(id string) bool {
	service.inflightMu.Lock()
	defer service.inflightMu.Unlock()
	if _, busy := service.inflight[id]; busy {
		return false
	}
	service.inflight[id] = struct{}{}
	return true
}

func (service *FrontendService) release(id string) {
	service.inflightMu.Lock()
	defer service.inflightMu.Unlock()
	delete(service.inflight, id)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
