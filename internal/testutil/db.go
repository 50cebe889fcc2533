// Package testutil provides an in-memory registry for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/pkg/database"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every model migrated.
// The logger must be initialised before calling it.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         database.NewGormLogger(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection keeps the shared in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Catalog is a minimal set of reference rows a project can point to.
type Catalog struct {
	Profile         models.Profile
	Flavor          models.Flavor
	OperatingSystem models.OperatingSystem
	Applications    []models.Application
}

// SeedCatalog inserts a profile, a flavor, an operating system and two applications.
func SeedCatalog(t testing.TB, db *gorm.DB) Catalog {
	t.Helper()
	c := Catalog{
		Profile:         models.Profile{Username: "jdoe", Password: "Secr3t&pass", DespOwnerID: "owner-" + uuid.NewString()},
		Flavor:          models.Flavor{Name: "m1.small", Processor: "2 vCPU", Memory: "4GB", Bandwidth: "1Gbps", Storage: "40GB", OpenstackFlavorID: uuid.New()},
		OperatingSystem: models.OperatingSystem{Name: "ubuntu-22.04"},
		Applications: []models.Application{
			{Name: "jupyter", Description: "notebooks"},
			{Name: "vscode", Description: "editor"},
		},
	}
	for _, v := range []any{&c.Profile, &c.Flavor, &c.OperatingSystem, &c.Applications} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return c
}

// SeedProject inserts a project wired to the catalog, optionally with a mirrored server.
func SeedProject(t testing.TB, db *gorm.DB, c Catalog, server *models.Server) models.Project {
	t.Helper()
	p := models.Project{
		Name:              "demo",
		SSHKey:            "ssh-ed25519 AAAA",
		ProfileID:         c.Profile.ID,
		FlavorID:          c.Flavor.ID,
		OperatingSystemID: c.OperatingSystem.ID,
	}
	if err := db.Omit("Profile", "Flavor", "OperatingSystem", "Repository", "Server", "Applications").Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if server != nil {
		server.ProjectID = p.ID
		if err := db.Create(server).Error; err != nil {
			t.Fatalf("seed server: %v", err)
		}
	}
	return p
}
