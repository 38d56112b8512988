package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"craftfolio/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
	p, err := NewPortfolioStore(db).GetOrCreate(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get or create portfolio: %v", err)
	}
	return &user, p
}

func mustCreateItem(t *testing.T, store *ItemStore, userID, portfolioID uint, title string, order int) *database.PortfolioItem {
	t.Helper()
	item, err := store.Create(context.Background(), userID, portfolioID, ItemInput{
		Title: &title,
		Order: &order,
	})
	if err != nil {
		t.Fatalf("create item %q: %v", title, err)
	}
	return item
}

func TestItemCreateDefaults(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	title := "Первая работа"
	item, err := store.Create(context.Background(), user.ID, p.ID, ItemInput{Title: &title})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ContentType != "image" {
		t.Errorf("content type must default to image, got %q", item.ContentType)
	}
	if item.Order != 0 {
		t.Errorf("order must default to 0, got %d", item.Order)
	}
	if string(item.ContentData) != "{}" {
		t.Errorf("content data must default to {}, got %q", item.ContentData)
	}
	if string(item.Tags) != "[]" {
		t.Errorf("tags must default to [], got %q", item.Tags)
	}
}

func TestItemCreateValidation(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	title := "Ссылка"
	linkType := "link"
	_, err := store.Create(context.Background(), user.ID, p.ID, ItemInput{
		Title:          &title,
		ContentType:    &linkType,
		ContentData:    ContentData{},
		HasContentData: true,
	})
	if err == nil {
		t.Fatalf("link without url must fail")
	}
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	var count int64
	db.Model(&database.PortfolioItem{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed create must not persist a row, found %d", count)
	}
}

func TestItemOwnershipMasking(t *testing.T) {
	db := newTestDB(t)
	owner, p := seedUserWithPortfolio(t, db, "owner@example.com")
	other, _ := seedUserWithPortfolio(t, db, "other@example.com")
	store := NewItemStore(db)

	item := mustCreateItem(t, store, owner.ID, p.ID, "Чужое", 0)

	title := "hijack"
	if _, err := store.Update(context.Background(), other.ID, item.ID, ItemInput{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update must report ErrNotFound, got %v", err)
	}
	if _, err := store.Delete(context.Background(), other.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete must report ErrNotFound, got %v", err)
	}
	if _, err := store.List(context.Background(), other.ID, p.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign list must report ErrNotFound, got %v", err)
	}

	// The row is untouched.
	var reloaded database.PortfolioItem
	if err := db.First(&reloaded, item.ID).Error; err != nil {
		t.Fatalf("item must still exist: %v", err)
	}
	if reloaded.Title != "Чужое" {
		t.Fatalf("title must be unchanged, got %q", reloaded.Title)
	}
}

func TestItemListOrdering(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	// Same order value: creation time breaks the tie.
	first := mustCreateItem(t, store, user.ID, p.ID, "Первый", 1)
	db.Model(first).Update("created_at", time.Now().Add(-time.Hour))
	second := mustCreateItem(t, store, user.ID, p.ID, "Второй", 1)
	third := mustCreateItem(t, store, user.ID, p.ID, "Нулевой", 0)

	items, err := store.List(context.Background(), user.ID, p.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]uint, 0, len(items))
	for _, item := range items {
		got = append(got, item.ID)
	}
	want := []uint{third.ID, first.ID, second.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}

func TestItemListContentTypeFilter(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	mustCreateItem(t, store, user.ID, p.ID, "Картинка", 0)
	title := "Текст"
	textType := "text"
	if _, err := store.Create(context.Background(), user.ID, p.ID, ItemInput{
		Title:          &title,
		ContentType:    &textType,
		ContentData:    ContentData{"text": "привет"},
		HasContentData: true,
	}); err != nil {
		t.Fatalf("create text item: %v", err)
	}

	items, err := store.List(context.Background(), user.ID, p.ID, "text")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ContentType != "text" {
		t.Fatalf("expected one text item, got %v", items)
	}
}

func TestItemDeleteIsHard(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	item := mustCreateItem(t, store, user.ID, p.ID, "Удаляемая", 0)
	deleted, err := store.Delete(context.Background(), user.ID, item.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != item.ID {
		t.Fatalf("delete must return the removed row")
	}

	// Gone even for unscoped queries: no tombstone row.
	var count int64
	db.Unscoped().Model(&database.PortfolioItem{}).Where("id = ?", item.ID).Count(&count)
	if count != 0 {
		t.Fatalf("row must be physically removed, found %d", count)
	}

	if _, err := store.Delete(context.Background(), user.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete must report ErrNotFound, got %v", err)
	}
}

func TestItemUpdateRevalidatesContent(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	title := "Видео"
	videoType := "video"
	item, err := store.Create(context.Background(), user.ID, p.ID, ItemInput{
		Title:          &title,
		ContentType:    &videoType,
		ContentData:    ContentData{"url": "https://v.example/1"},
		HasContentData: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Dropping the url while keeping other data must fail on update.
	_, err = store.Update(context.Background(), user.ID, item.ID, ItemInput{
		ContentData:    ContentData{"note": "x"},
		HasContentData: true,
	})
	if err == nil || !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var reloaded database.PortfolioItem
	if err := db.First(&reloaded, item.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ParseContentData(reloaded.ContentData).stringField("url") != "https://v.example/1" {
		t.Fatalf("failed update must not persist, got %q", reloaded.ContentData)
	}
}

func reorderedTitles(t *testing.T, store *ItemStore, userID, portfolioID uint) []string {
	t.Helper()
	items, err := store.List(context.Background(), userID, portfolioID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	return titles
}

func TestReorder(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	a := mustCreateItem(t, store, user.ID, p.ID, "A", 0)
	b := mustCreateItem(t, store, user.ID, p.ID, "B", 1)
	c := mustCreateItem(t, store, user.ID, p.ID, "C", 2)

	updated, err := store.Reorder(context.Background(), user.ID, p.ID, []uint{c.ID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if updated != 3 {
		t.Fatalf("expected 3 updates, got %d", updated)
	}
	got := reorderedTitles(t, store, user.ID, p.ID)
	if got[0] != "C" || got[1] != "A" || got[2] != "B" {
		t.Fatalf("unexpected sequence %v", got)
	}

	// Idempotent: same list, same result.
	if _, err := store.Reorder(context.Background(), user.ID, p.ID, []uint{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("repeat reorder: %v", err)
	}
	got = reorderedTitles(t, store, user.ID, p.ID)
	if got[0] != "C" || got[1] != "A" || got[2] != "B" {
		t.Fatalf("repeat reorder changed the sequence: %v", got)
	}
}

func TestReorderPartialList(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "a@example.com")
	store := NewItemStore(db)

	a := mustCreateItem(t, store, user.ID, p.ID, "A", 0)
	mustCreateItem(t, store, user.ID, p.ID, "B", 1)
	c := mustCreateItem(t, store, user.ID, p.ID, "C", 2)

	// Only C and A listed: C takes 0, A takes 1, B keeps its old order 1.
	updated, err := store.Reorder(context.Background(), user.ID, p.ID, []uint{c.ID, a.ID})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updates, got %d", updated)
	}

	var reloaded database.PortfolioItem
	db.First(&reloaded, c.ID)
	if reloaded.Order != 0 {
		t.Fatalf("C must hold position 0, got %d", reloaded.Order)
	}
	reloaded = database.PortfolioItem{}
	db.First(&reloaded, a.ID)
	if reloaded.Order != 1 {
		t.Fatalf("A must hold position 1, got %d", reloaded.Order)
	}
}

func TestReorderDuplicateAndForeignIDs(t *testing.T) {
	db := newTestDB(t)
	user, p := seedUserWithPortfolio(t, db, "owner@example.com")
	other, otherPortfolio := seedUserWithPortfolio(t, db, "other@example.com")
	store := NewItemStore(db)

	a := mustCreateItem(t, store, user.ID, p.ID, "A", 5)
	foreign := mustCreateItem(t, store, other.ID, otherPortfolio.ID, "F", 7)

	// Duplicate id: the later position wins. Foreign and zero ids are
	// dropped without failing the call.
	updated, err := store.Reorder(context.Background(), user.ID, p.ID, []uint{a.ID, a.ID, foreign.ID, 0, 999})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 update, got %d", updated)
	}

	var reloaded database.PortfolioItem
	db.First(&reloaded, a.ID)
	if reloaded.Order != 1 {
		t.Fatalf("last occurrence must win, order = %d", reloaded.Order)
	}
	reloaded = database.PortfolioItem{}
	db.First(&reloaded, foreign.ID)
	if reloaded.Order != 7 {
		t.Fatalf("foreign item must be untouched, order = %d", reloaded.Order)
	}
}

func TestReorderForeignPortfolio(t *testing.T) {
	db := newTestDB(t)
	_, p := seedUserWithPortfolio(t, db, "owner@example.com")
	other, _ := seedUserWithPortfolio(t, db, "other@example.com")
	store := NewItemStore(db)

	if _, err := store.Reorder(context.Background(), other.ID, p.ID, []uint{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign portfolio must report ErrNotFound, got %v", err)
	}
}
