package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/imagegallery/internal/database"
	"github.com/jo-hoe/imagegallery/internal/formstate"
	"github.com/jo-hoe/imagegallery/internal/gallery"
	"github.com/jo-hoe/imagegallery/internal/imagecache"
	"github.com/jo-hoe/imagegallery/internal/imagesapi"
)

// ImageAPI is the backend image collection.
type ImageAPI interface {
	gallery.ImageCreator
	imagecache.Lister
}

// CoreService owns the collaborators shared by all upload forms.
type CoreService struct {
	config   *ServiceConfig
	database *database.Client
	forms    *formstate.Repository
	images   *imagecache.Cache
	api      ImageAPI
	uploader gallery.Uploader
}

func NewCoreService(config *ServiceConfig, db *database.Client, api ImageAPI, uploader gallery.Uploader) *CoreService {
	return &CoreService{
		config:   config,
		database: db,
		forms:    formstate.NewRepository(db, config.Form.StateTTL),
		images:   imagecache.New(db, api, config.Cache.TTL),
		api:      api,
		uploader: uploader,
	}
}

// NewImageAPI builds the REST client for the configured backend.
func NewImageAPI(config *ServiceConfig) *imagesapi.Client {
	return imagesapi.NewClient(config.API.BaseURL, nil)
}

func (service *CoreService) Forms() *formstate.Repository {
	return service.forms
}

func (service *CoreService) GetImages(ctx context.Context) ([]gallery.ImageRecord, error) {
	return service.images.Images(ctx)
}

// NewUploadForm binds state to the shared collaborators for one interaction.
func (service *CoreService) NewUploadForm(state *gallery.FormState, notifier gallery.Notifier, closeModal func()) *gallery.UploadForm {
	deps := gallery.Dependencies{
		Uploader:   service.uploader,
		Images:     service.api,
		Previews:   service.forms,
		Invalidate: service.images.Invalidate,
	}
	return gallery.NewUploadForm(state, deps, notifier, closeModal)
}

func (service *CoreService) Ping(ctx context.Context) error {
	if err := service.database.Store().Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

func (service *CoreService) Close() error {
	slog.Info("closing database client")
	return service.database.Close()
}
