package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youruser/visualapp/internal/campaign"
	"github.com/youruser/visualapp/internal/events"
	imagepkg "github.com/youruser/visualapp/internal/image"
	"github.com/youruser/visualapp/internal/storage"
	"github.com/youruser/visualapp/internal/visual"
)

type published struct {
	topic, key string
	payload    interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	p.events = append(p.events, published{topic, key, payload})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type testEnv struct {
	router    *gin.Engine
	handler   *Handler
	visuals   *visual.MemoryRepository
	files     storage.FileStorage
	publisher *fakePublisher
	token     string
}

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, imaging.New(w, h, c)))
	return buf.Bytes()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.png")
	require.NoError(t, os.WriteFile(framePath, encodePNG(t, 120, 120, color.NRGBA{R: 200, A: 120}), 0o644))

	catalog := campaign.NewCatalog(dir)
	catalog.Set([]campaign.Campaign{{
		CampaignID: "summer",
		EventID:    "evt-1",
		Title:      "Summer Fest",
		FrameURL:   framePath,
		TextColor:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		FontSize:   24,
		TextBottom: 0.1,
		Active:     true,
		Tags:       []string{"SummerFest"},
	}})

	env := &testEnv{
		visuals:   visual.NewMemoryRepository(),
		files:     storage.NewFileStorage(filepath.Join(dir, "media"), "http://localhost/media"),
		publisher: &fakePublisher{},
	}
	env.handler = NewHandler(Deps{
		Catalog:   catalog,
		Frames:    imagepkg.NewFrameLoader(nil),
		Sessions:  imagepkg.NewSessionStore(time.Hour),
		Visuals:   env.visuals,
		Files:     env.files,
		Publisher: env.publisher,
		MediaDir:  filepath.Join(dir, "media"),
	})
	env.router = gin.New()
	RegisterRoutes(env.router, env.handler)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if e.token != "" {
		req.Header.Set(SessionHeader, e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if tok := w.Header().Get(SessionHeader); tok != "" {
		e.token = tok
	}
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) uploadPhoto(t *testing.T, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/compose/photo", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req)
}

func pngSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(SessionHeader))
}

func TestSessionTokenIsReused(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	first := env.token

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, first, w.Header().Get(SessionHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(SessionHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(SessionHeader))
}

func TestTicketQR(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/tickets/TICKET-42/qr?size=256", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	width, height := pngSize(t, w.Body.Bytes())
	assert.Equal(t, 256, width)
	assert.Equal(t, 256, height)
}

func TestCampaignListing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/campaigns?event_id=evt-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count     int                 `json:"count"`
		Campaigns []campaign.Campaign `json:"campaigns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "summer", resp.Campaigns[0].CampaignID)

	w = env.doJSON(t, http.MethodPost, "/api/campaigns/filter", campaign.FilterOptions{EventIDs: []string{"evt-2"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestComposeFlow(t *testing.T) {
	env := newTestEnv(t)

	// preview before anything is chosen is a placeholder, not an error
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/compose/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	width, height := pngSize(t, w.Body.Bytes())
	assert.Equal(t, imagepkg.PreviewTarget.Width, width)
	assert.Equal(t, imagepkg.PreviewTarget.Height, height)

	w = env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"zoom": 1.2})
	assert.Equal(t, http.StatusBadRequest, w.Code, "campaign required")

	w = env.uploadPhoto(t, encodePNG(t, 800, 600, color.NRGBA{G: 255, A: 255}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"width":800,"height":600,"format":"png"}`, w.Body.String())

	w = env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"campaign_id": "summer", "zoom": 5, "offset_x": 10, "offset_y": -5, "name": "MARIE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := w.Body.Bytes()
	width, height = pngSize(t, preview)
	assert.Equal(t, 300, width)
	assert.Equal(t, 400, height)

	snap := env.handler.sessions.Get(env.token).Snapshot()
	assert.Equal(t, imagepkg.Transform{Zoom: imagepkg.MaxZoom, OffsetX: 10, OffsetY: -5}, snap.Transform)
	require.NotNil(t, snap.Text)
	assert.Equal(t, "MARIE", snap.Text.Value)

	// partial update keeps the rest
	w = env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"zoom": 1.2})
	require.Equal(t, http.StatusOK, w.Code)
	snap = env.handler.sessions.Get(env.token).Snapshot()
	assert.Equal(t, imagepkg.Transform{Zoom: 1.2, OffsetX: 10, OffsetY: -5}, snap.Transform)
	assert.Equal(t, "MARIE", snap.Text.Value)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/compose/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	preview = w.Body.Bytes()

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/compose/export?scale=1&download=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, preview, w.Body.Bytes(), "scale 1 export equals the preview")

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/compose/export?download=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	width, height = pngSize(t, w.Body.Bytes())
	assert.Equal(t, 1200, width)
	assert.Equal(t, 1600, height)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/compose/export?scale=99", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/compose/export", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Visual       visual.Visual `json:"visual"`
		ShareCaption string        `json:"share_caption"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	v := created.Visual
	assert.Equal(t, "summer", v.CampaignID)
	assert.Equal(t, "MARIE", v.ParticipantName)
	assert.Equal(t, 1200, v.Width)
	assert.Equal(t, "http://localhost/media/visuals/summer/"+v.ID+".png", v.ImageURL)
	assert.Contains(t, created.ShareCaption, "#SummerFest")

	stored, err := env.visuals.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, env.token, stored.SessionToken)
	assert.True(t, env.files.Exists(stored.StorageKey))

	require.Len(t, env.publisher.events, 1)
	ev := env.publisher.events[0]
	assert.Equal(t, events.TopicVisualCreated, ev.topic)
	assert.Equal(t, v.ID, ev.key)
	assert.Equal(t, "evt-1", ev.payload.(events.VisualCreated).EventID)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/visuals/"+v.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/visuals/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/campaigns/summer/visuals", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/media/visuals/summer/"+v.ID+".png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadRejectsUnreadablePhoto(t *testing.T) {
	env := newTestEnv(t)

	w := env.uploadPhoto(t, encodePNG(t, 40, 40, color.NRGBA{B: 255, A: 255}))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.uploadPhoto(t, []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "different file")

	src := env.handler.sessions.Get(env.token).Snapshot().Source
	require.NotNil(t, src, "previous photo is kept")
	assert.Equal(t, 40, src.Width)

	req := httptest.NewRequest(http.MethodPost, "/api/compose/photo", nil)
	w = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportNeedsPhotoAndCampaign(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/compose/export", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.publisher.events)
}

func TestComposeUnknownCampaign(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"campaign_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConcurrentPartialUpdatesKeepEveryField(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"campaign_id": "summer"})
	require.Equal(t, http.StatusOK, w.Code)
	token := env.token

	put := func(body string) int {
		req := httptest.NewRequest(http.MethodPut, "/api/compose", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SessionHeader, token)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec.Code
	}

	var wg sync.WaitGroup
	codes := make(chan int, 3)
	for _, body := range []string{`{"zoom":1.5}`, `{"offset_x":12}`, `{"name":"MARIE"}`} {
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			codes <- put(body)
		}(body)
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	snap := env.handler.sessions.Get(token).Snapshot()
	assert.Equal(t, 1.5, snap.Transform.Zoom)
	assert.Equal(t, 12.0, snap.Transform.OffsetX)
	require.NotNil(t, snap.Text)
	assert.Equal(t, "MARIE", snap.Text.Value)
}

func TestFailedReloadKeepsCampaigns(t *testing.T) {
	env := newTestEnv(t)
	// the data dir has no campaigns.csv
	w := env.do(t, httptest.NewRequest(http.MethodPost, "/api/campaigns/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = env.doJSON(t, http.MethodPut, "/api/compose", gin.H{"campaign_id": "summer"})
	assert.Equal(t, http.StatusOK, w.Code)
}
