package main

import (
	"gorm.io/gorm"

	"github.com/desp-aas/project-management/internal/models"
)

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addEventIndexes,
		addProjectForeignKeys,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addEventIndexes serves the events listing, filtered by type and ordered by date.
func addEventIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_project_type_created
		ON events(project_id, type, created_at DESC)
	`).Error
}

// addProjectForeignKeys makes catalog rows referenced by projects undeletable.
func addProjectForeignKeys(db *gorm.DB) error {
	stmts := []string{
		`ALTER TABLE projects DROP CONSTRAINT IF EXISTS fk_projects_flavor`,
		`ALTER TABLE projects ADD CONSTRAINT fk_projects_flavor FOREIGN KEY (flavor_id) REFERENCES flavors(id) ON DELETE RESTRICT`,
		`ALTER TABLE projects DROP CONSTRAINT IF EXISTS fk_projects_operating_system`,
		`ALTER TABLE projects ADD CONSTRAINT fk_projects_operating_system FOREIGN KEY (operating_system_id) REFERENCES operating_systems(id) ON DELETE RESTRICT`,
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// missingTables lists model tables absent from the database.
func missingTables(db *gorm.DB) []string {
	var missing []string
	for _, m := range models.All() {
		if !db.Migrator().HasTable(m) {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(m); err == nil {
				missing = append(missing, stmt.Schema.Table)
			} else {
				missing = append(missing, "?")
			}
		}
	}
	return missing
}
