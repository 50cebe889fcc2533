package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Profile{},
		&Repository{},
		&Flavor{},
		&OperatingSystem{},
		&Application{},
		&ApplicationInstall{},
		&Project{},
		&Server{},
		&IdentityRealm{},
		&Event{},
	}
}
