package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"craftfolio/internal/database"
	"craftfolio/internal/portfolio"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectKey] = b
	return &minio.UploadInfo{}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	for key := range s.uploaded {
		if strings.HasPrefix(key, prefix) {
			s.deleted = append(s.deleted, key)
			delete(s.uploaded, key)
		}
	}
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUserWithPortfolio(t *testing.T, db *gorm.DB, email string) (*database.User, *database.Portfolio) {
	t.Helper()
	user := database.User{Email: email, Username: email, PasswordHash: "x", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := portfolio.NewPortfolioStore(db).GetOrCreate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get or create portfolio: %v", err)
	}
	return &user, p
}

func seedItem(t *testing.T, db *gorm.DB, userID, portfolioID uint, title string, order int) *database.PortfolioItem {
	t.Helper()
	item, err := portfolio.NewItemStore(db).Create(context.Background(), userID, portfolioID, portfolio.ItemInput{
		Title: &title,
		Order: &order,
	})
	if err != nil {
		t.Fatalf("create item %q: %v", title, err)
	}
	return item
}

// newItemRouter mounts the item routes behind a stub that authenticates every
// request as userID.
func newItemRouter(db *gorm.DB, storage blobStorage, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})

	handler := NewItemHandler(db, storage, "")
	router.GET("/v1/items", handler.List)
	router.POST("/v1/items", handler.Create)
	router.PUT("/v1/items/:id", handler.Update)
	router.DELETE("/v1/items/:id", handler.Delete)
	router.POST("/v1/items/reorder", handler.Reorder)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReorderEndpoint(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	a := seedItem(t, db, user.ID, p.ID, "A", 0)
	b := seedItem(t, db, user.ID, p.ID, "B", 1)
	c := seedItem(t, db, user.ID, p.ID, "C", 2)
	router := newItemRouter(db, newFakeStorage(), user.ID)

	// String and numeric ids mix freely; unparsable entries are skipped.
	payload := fmt.Sprintf(`{"portfolio": %d, "item_ids": [%d, "%d", "junk", %d]}`, p.ID, c.ID, a.ID, b.ID)
	rec := postJSON(t, router, "/v1/items/reorder", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success      bool `json:"success"`
		UpdatedCount int  `json:"updated_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.UpdatedCount != 3 {
		t.Fatalf("expected success with 3 updates, got %+v", resp)
	}

	var reloaded database.PortfolioItem
	db.First(&reloaded, c.ID)
	if reloaded.Order != 0 {
		t.Errorf("C must hold position 0, got %d", reloaded.Order)
	}
	reloaded = database.PortfolioItem{}
	db.First(&reloaded, b.ID)
	if reloaded.Order != 3 {
		t.Errorf("B must hold position 3 (junk consumed position 2), got %d", reloaded.Order)
	}
}

func TestReorderEndpointBadRequests(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	router := newItemRouter(db, newFakeStorage(), user.ID)

	rec := postJSON(t, router, "/v1/items/reorder", `{"item_ids": [1]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing portfolio must 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Не указан portfolio") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = postJSON(t, router, "/v1/items/reorder", fmt.Sprintf(`{"portfolio": %d, "item_ids": "not a list"}`, p.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-list item_ids must 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "item_ids должен быть списком") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestReorderEndpointForeignPortfolio(t *testing.T) {
	db := newTestDB(t)
	_, p := seedUserWithPortfolio(t, db, "owner@example.com")
	other, _ := seedUserWithPortfolio(t, db, "other@example.com")
	router := newItemRouter(db, newFakeStorage(), other.ID)

	rec := postJSON(t, router, "/v1/items/reorder", fmt.Sprintf(`{"portfolio": %d, "item_ids": [1]}`, p.ID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign portfolio must read as missing, got %d: %s", rec.Code, rec.Body.String())
	}
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestCreateItemEndpoint(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	router := newItemRouter(db, newFakeStorage(), user.ID)

	body, contentType := multipartBody(t, map[string]string{
		"portfolio":    fmt.Sprintf("%d", p.ID),
		"title":        "Ссылка на проект",
		"content_type": "link",
		"content_data": `{"url": "https://example.com/project"}`,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/items", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp itemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ContentType != "link" || resp.Title != "Ссылка на проект" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateItemEndpointLinkWithoutURL(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	router := newItemRouter(db, newFakeStorage(), user.ID)

	body, contentType := multipartBody(t, map[string]string{
		"portfolio":    fmt.Sprintf("%d", p.ID),
		"title":        "Ссылка",
		"content_type": "link",
		"content_data": `{}`,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/items", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("link without url must 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Для ссылки требуется URL") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestDeleteItemEndpointRemovesImage(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	storage := newFakeStorage()
	router := newItemRouter(db, storage, user.ID)

	item := seedItem(t, db, user.ID, p.ID, "С картинкой", 0)
	imageKey := "user-media/1/test.png"
	storage.uploaded[imageKey] = []byte("png")
	if err := db.Model(item).Update("image_key", imageKey).Error; err != nil {
		t.Fatalf("set image key: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/items/%d", item.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != imageKey {
		t.Fatalf("image object must be deleted, got %v", storage.deleted)
	}
}
