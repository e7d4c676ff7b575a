package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jo-hoe/imagegallery/internal/common"
	"github.com/jo-hoe/imagegallery/internal/core"
	"github.com/jo-hoe/imagegallery/internal/database"
	"github.com/jo-hoe/imagegallery/internal/gallery"
	"github.com/jo-hoe/imagegallery/internal/imagesapi"
	"github.com/labstack/echo/v4"
)

const hostedURL = "https://cdn.example.com/images/sunset.jpg"

type fakeBackend struct {
	mu        sync.Mutex
	status    int
	posted    []gallery.ImageRecord
	listCalls int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var record gallery.ImageRecord
		_ = json.NewDecoder(r.Body).Decode(&record)
		b.posted = append(b.posted, record)
		if b.status != 0 {
			w.WriteHeader(b.status)
			return
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		b.listCalls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": b.posted})
	}
}

func (b *fakeBackend) lists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func (b *fakeBackend) setStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

func (b *fakeBackend) posts() []gallery.ImageRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]gallery.ImageRecord(nil), b.posted...)
}

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *fakeUploader) UploadImage(context.Context, gallery.FileInfo, []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return hostedURL, nil
}

type testEnv struct {
	e        *echo.Echo
	service  *FrontendService
	backend  *fakeBackend
	uploader *fakeUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	db, err := database.NewClient(database.ClientConfig{Type: database.TypeRedis, Domain: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	config := &core.ServiceConfig{Port: 8080, API: core.API{BaseURL: server.URL}}
	uploader := &fakeUploader{}
	coreService := core.NewCoreService(config, db, imagesapi.NewClient(server.URL, server.Client()), uploader)
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	service := NewFrontendService(config, coreService)
	service.SetRoutes(e)

	return &testEnv{e: e, service: service, backend: backend, uploader: uploader}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

var formIDPattern = regexp.MustCompile(`hx-delete="/htmx/forms/([^"]+)"`)

func (env *testEnv) openForm(t *testing.T) string {
	t.Helper()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/htmx/upload-modal", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("open modal status = %d", rec.Code)
	}
	m := formIDPattern.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatalf("no form id in modal: %s", rec.Body.String())
	}
	return m[1]
}

func (env *testEnv) selectFile(t *testing.T, id, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart error: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/htmx/forms/"+id+"/file", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return env.do(req)
}

func (env *testEnv) submit(id, title, description string) *httptest.ResponseRecorder {
	form := url.Values{"title": {title}, "description": {description}}
	req := httptest.NewRequest(http.MethodPost, "/htmx/forms/"+id+"/submit", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return env.do(req)
}

func TestSubmit_SuccessRefreshesListAndClosesModal(t *testing.T) {
	env := newTestEnv(t)

	// prime the image list cache
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/htmx/images", nil)); rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	env.do(httptest.NewRequest(http.MethodGet, "/htmx/images", nil))
	if env.backend.lists() != 1 {
		t.Fatalf("expected cached list, backend listed %d times", env.backend.lists())
	}

	id := env.openForm(t)
	rec := env.selectFile(t, id, "sunset.jpg", "image/jpeg", bytes.Repeat([]byte{0xff}, 2*1024*1024))
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/htmx/forms/"+id+"/preview") {
		t.Errorf("expected local preview in file field, got %s", rec.Body.String())
	}

	rec = env.submit(id, "Sunset", "Evening sky")
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}

	want := gallery.ImageRecord{Title: "Sunset", Description: "Evening sky", URL: hostedURL}
	posts := env.backend.posts()
	if len(posts) != 1 || posts[0] != want {
		t.Fatalf("backend received %+v, want [%+v]", posts, want)
	}
	if got := rec.Header().Get("HX-Trigger"); got != "images" {
		t.Errorf("HX-Trigger = %q, want images", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Image saved") {
		t.Errorf("expected success toast, got %s", body)
	}
	if strings.Contains(body, "upload-modal") {
		t.Errorf("modal should be closed, got %s", body)
	}

	// closed forms are discarded
	if rec := env.submit(id, "Sunset", "Evening sky"); rec.Code != http.StatusNotFound {
		t.Errorf("submit after close status = %d, want 404", rec.Code)
	}

	// cache was invalidated so the list is fetched again
	rec = env.do(httptest.NewRequest(http.MethodGet, "/htmx/images", nil))
	if env.backend.lists() != 2 {
		t.Fatalf("expected refetch after submit, backend listed %d times", env.backend.lists())
	}
	if !strings.Contains(rec.Body.String(), hostedURL) {
		t.Errorf("expected new image in list, got %s", rec.Body.String())
	}
}

func TestSelectFile_OversizedPNG(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)

	rec := env.selectFile(t, id, "big.png", "image/png", bytes.Repeat([]byte{0x00}, 12*1024*1024))
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "smaller than 10MB") {
		t.Errorf("expected size error, got %s", rec.Body.String())
	}
	if env.uploader.calls != 0 {
		t.Errorf("uploader called for oversized file")
	}

	rec = env.submit(id, "Big", "Too big")
	if len(env.backend.posts()) != 0 {
		t.Fatal("POST issued for oversized file")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "upload-modal") {
		t.Errorf("modal should stay open, got %s", body)
	}
	if !strings.Contains(body, "smaller than 10MB") {
		t.Errorf("expected field error, got %s", body)
	}
}

func TestSelectFile_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)

	rec := env.selectFile(t, id, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	if !strings.Contains(rec.Body.String(), "Only PNG, JPEG and GIF") {
		t.Errorf("expected type error, got %s", rec.Body.String())
	}
	env.submit(id, "Doc", "Not an image")
	if len(env.backend.posts()) != 0 {
		t.Fatal("POST issued for unsupported type")
	}
}

func TestSubmit_MissingText(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)
	env.selectFile(t, id, "a.gif", "image/gif", []byte("GIF89a"))

	rec := env.submit(id, "", "")
	body := rec.Body.String()
	if !strings.Contains(body, "Title is required") || !strings.Contains(body, "Description is required") {
		t.Errorf("expected text field errors, got %s", body)
	}
	if len(env.backend.posts()) != 0 {
		t.Fatal("POST issued without title and description")
	}
}

func TestSubmit_BackendErrorKeepsModalOpenAndResets(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setStatus(http.StatusInternalServerError)
	id := env.openForm(t)
	env.selectFile(t, id, "sunset.jpg", "image/jpeg", []byte{0xff, 0xd8})

	rec := env.submit(id, "Sunset", "Evening sky")
	body := rec.Body.String()
	if len(env.backend.posts()) != 1 {
		t.Fatalf("expected one POST, got %d", len(env.backend.posts()))
	}
	if !strings.Contains(body, "Something wrong") {
		t.Errorf("expected generic error toast, got %s", body)
	}
	if !strings.Contains(body, "upload-modal") {
		t.Errorf("modal should stay open, got %s", body)
	}
	if !strings.Contains(body, `name="title" placeholder="Image title..." value=""`) {
		t.Errorf("title should be reset, got %s", body)
	}
	if rec.Header().Get("HX-Trigger") != "" {
		t.Errorf("list must not refresh after failure")
	}
}

func TestSubmit_UploadFailureShowsMissingURL(t *testing.T) {
	env := newTestEnv(t)
	env.uploader.err = fmt.Errorf("upload service down")
	id := env.openForm(t)

	rec := env.selectFile(t, id, "sunset.jpg", "image/jpeg", []byte{0xff, 0xd8})
	if !strings.Contains(rec.Body.String(), "Upload failed") {
		t.Errorf("expected upload error, got %s", rec.Body.String())
	}

	rec = env.submit(id, "Sunset", "Evening sky")
	if !strings.Contains(rec.Body.String(), "Image URL does not exist") {
		t.Errorf("expected missing url toast, got %s", rec.Body.String())
	}
	if len(env.backend.posts()) != 0 {
		t.Fatal("POST issued without hosted URL")
	}
}

func TestLocalPreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/htmx/forms/"+id+"/preview", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("preview before selection status = %d, want 404", rec.Code)
	}

	env.selectFile(t, id, "a.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/htmx/forms/"+id+"/preview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Errorf("unexpected preview bytes %v", rec.Body.Bytes())
	}
}

func TestCloseUploadModalDiscardsForm(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/htmx/forms/"+id, nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("close status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec := env.submit(id, "a", "b"); rec.Code != http.StatusNotFound {
		t.Errorf("submit after close status = %d, want 404", rec.Code)
	}
}

func TestPreviewHandler(t *testing.T) {
	env := newTestEnv(t)
	img := url.QueryEscape("https://cdn.example.com/a.jpg")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/htmx/preview?open=false&url="+img, nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("closed preview: status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/htmx/preview?open=true&url="+img, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Open original") {
		t.Fatalf("open preview: status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/htmx/preview?open=true&url=not-a-url", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid url status = %d, want 400", rec.Code)
	}
}

func TestSubmit_InflightGuard(t *testing.T) {
	env := newTestEnv(t)
	id := env.openForm(t)

	if !env.service.acquire(id) {
		t.Fatal("first acquire failed")
	}
	if rec := env.submit(id, "a", "b"); rec.Code != http.StatusConflict {
		t.Errorf("submit while in flight status = %d, want 409", rec.Code)
	}
	env.service.release(id)
	if !env.service.acquire(id) {
		t.Fatal("acquire after release failed")
	}
}

func TestProbeAndIndex(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/probe", nil)); rec.Code != http.StatusOK {
		t.Errorf("probe status = %d", rec.Code)
	}
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMovedPermanently {
		t.Errorf("root status = %d, want 301", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/"+MainPageName, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="image-list"`) {
		t.Errorf("index status = %d", rec.Code)
	}
}
