package site

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sitedomain "crux-monitor-app/backend/internal/domain/site"
	"crux-monitor-app/backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&sitedomain.Site{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewService(repository.NewSiteRepository(db))
}

func TestCreateSite(t *testing.T) {
	svc := newTestService(t)

	record, err := svc.Create(context.Background(), CreateParams{
		URL:  "https://example.com",
		Name: "Example",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.ID == "" {
		t.Fatal("expected generated id")
	}
	if !record.IsActive {
		t.Fatal("new site must default to active")
	}

	found, err := svc.FindByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if found.URL != "https://example.com" || found.Name != "Example" {
		t.Fatalf("unexpected site: %+v", found)
	}
}

func TestCreateSiteValidation(t *testing.T) {
	svc := newTestService(t)

	cases := []CreateParams{
		{URL: "", Name: "x"},
		{URL: "https://example.com", Name: ""},
		{URL: "not a url", Name: "x"},
		{URL: "example.com", Name: "x"},
	}
	for _, params := range cases {
		if _, err := svc.Create(context.Background(), params); err == nil {
			t.Fatalf("params %+v: expected validation error", params)
		}
	}
}

func TestCreateSiteDuplicateURL(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(context.Background(), CreateParams{URL: "https://example.com", Name: "a"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), CreateParams{URL: "https://example.com", Name: "b"})
	if !errors.Is(err, ErrURLConflict) {
		t.Fatalf("expected ErrURLConflict, got %v", err)
	}
}

func TestCreateSiteInactive(t *testing.T) {
	svc := newTestService(t)

	inactive := false
	record, err := svc.Create(context.Background(), CreateParams{
		URL:      "https://example.com",
		Name:     "Example",
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.IsActive {
		t.Fatal("expected inactive site")
	}
}

func TestUpdateSitePartial(t *testing.T) {
	svc := newTestService(t)

	record, err := svc.Create(context.Background(), CreateParams{URL: "https://example.com", Name: "Example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inactive := false
	updated, err := svc.Update(context.Background(), record.ID, UpdateParams{IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsActive {
		t.Fatal("expected site deactivated")
	}
	if updated.Name != "Example" {
		t.Fatalf("name must be unchanged, got %q", updated.Name)
	}

	name := "Renamed"
	updated, err = svc.Update(context.Background(), record.ID, UpdateParams{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("unexpected name: %q", updated.Name)
	}
	if updated.IsActive {
		t.Fatal("is_active must survive rename")
	}
}

func TestUpdateSiteNotFound(t *testing.T) {
	svc := newTestService(t)

	name := "x"
	_, err := svc.Update(context.Background(), "missing-id", UpdateParams{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
