package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/cache"
	"github.com/nirmalhandloom/storebackend/catalog"
	"github.com/nirmalhandloom/storebackend/catalog/catalogtest"
	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/middleware"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/storage"
	"github.com/nirmalhandloom/storebackend/utils"
)

const (
	testSecret    = "controller-test-secret"
	buyerPassword = "handloom123"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02")

var catalogCfg = config.CatalogConfig{
	DefaultLimit: 12,
	MaxLimit:     100,
	SimilarLimit: 4,
	TopLimit:     3,
	CacheTTL:     time.Minute,
}

func init() {
	gin.SetMode(gin.TestMode)
	dto.RegisterValidators()
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	now    time.Time

	users      *fakeUsers
	categories *fakeCategories
	orders     *fakeOrders
	gateway    *fakeGateway
	mailer     *recordingMailer
	events     *recordingPublisher
	catalog    *catalogtest.Store
	images     *storage.Local

	sarees models.Category
	admin  models.User
	buyer  models.User
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithCache(t, cache.Noop{})
}

func newHarnessWithCache(t *testing.T, c cache.Cache) *harness {
	t.Helper()

	images, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)
	hash, err := utils.HashPassword(buyerPassword)
	require.NoError(t, err)

	h := &harness{
		t:          t,
		now:        time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		users:      &fakeUsers{},
		categories: &fakeCategories{},
		orders:     &fakeOrders{},
		gateway:    &fakeGateway{},
		mailer:     &recordingMailer{},
		events:     &recordingPublisher{},
		catalog:    catalogtest.NewStore(),
		images:     images,
		sarees:     models.Category{Id: bson.NewObjectID(), Name: "Sarees", Slug: "sarees", IsActive: true},
	}
	h.admin = models.User{
		ID: bson.NewObjectID(), Name: "Admin", Email: "admin@nirmalhandloom.in",
		PasswordHash: hash, Role: models.RoleAdmin, IsActive: true,
	}
	h.buyer = models.User{
		ID: bson.NewObjectID(), Name: "Meera", Email: "meera@example.com", Phone: "9876543210",
		PasswordHash: hash, Role: models.RoleUser, IsActive: true,
	}
	h.users.add(h.admin, h.buyer)
	h.categories.categories = append(h.categories.categories, h.sarees)
	h.catalog.AddCategories(h.sarees)

	clock := func() time.Time { return h.now }
	validator := storage.NewImageValidator(1, 3)
	engine := catalog.NewEngine(catalogCfg, catalog.Deps{
		Store:  h.catalog,
		Cache:  c,
		Events: h.events,
		Images: images,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	h.router = gin.New()
	RegisterRoutes(h.router.Group("/api"), Handlers{
		Auth:     middleware.NewAuthenticator(testSecret, h.users.FindByID),
		Products: &Products{Engine: engine, Images: images, Validator: validator},
		Categories: &Categories{
			Store: h.categories, Cache: c, CacheTTL: time.Minute,
			Images: images, Validator: validator, Now: clock,
		},
		Users: &Users{Store: h.users, Secret: testSecret, TokenTTL: time.Hour, Now: clock},
		Orders: &Orders{
			Store: h.orders, Gateway: h.gateway, Mailer: h.mailer,
			Events: h.events, Now: clock,
		},
	})
	return h
}

func (h *harness) token(u models.User) string {
	h.t.Helper()
	tok, err := utils.GenerateAccessToken(u.ID.Hex(), string(u.Role), testSecret, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) send(method, path string, payload any, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(h.t, err)
		body = bytes.NewReader(raw)
	}
	return h.do(method, path, body, "application/json", token)
}

type upload struct {
	field, name string
	content     []byte
}

func (h *harness) form(method, path string, fields map[string]string, files []upload, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(h.t, err)
		_, err = part.Write(f.content)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())
	return h.do(method, path, &buf, mw.FormDataContentType(), token)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[struct {
		Message string `json:"message"`
	}](t, w).Message
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
