package app

import (
	"context"
	"fmt"
	"strings"
)

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "migrate")
	if err != nil {
		return err
	}
	defer closeStore()

	applied, err := store.ApplyMigrations(ctx, a.Config.Database.MigrationsPath)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(a.Out, "schema up to date")
		return nil
	}
	fmt.Fprintf(a.Out, "applied %s\n", strings.Join(applied, ", "))
	return nil
}
