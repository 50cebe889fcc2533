package services

import (
	"context"
	"testing"

	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/testutil"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFlavorServiceUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	c := testutil.SeedCatalog(t, db)
	svc := NewCatalogService[models.Flavor, repository.FlavorPatch](repository.NewFlavorRepository(db), "flavor")
	ctx := context.Background()

	gpu := "1x A100"
	out, err := svc.Update(ctx, c.Flavor.ID, &repository.FlavorPatch{GPU: &gpu})
	require.NoError(t, err)
	require.Equal(t, gpu, out.GPU)
	require.Equal(t, c.Flavor.Name, out.Name)

	_, err = svc.Update(ctx, uuid.New(), &repository.FlavorPatch{GPU: &gpu})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestApplicationServiceInstallations(t *testing.T) {
	db := testutil.NewDB(t)
	c := testutil.SeedCatalog(t, db)
	svc := NewApplicationService(repository.NewApplicationRepository(db), repository.NewOperatingSystemRepository(db))
	ctx := context.Background()
	app := c.Applications[0]

	t.Run("upsert replaces the script", func(t *testing.T) {
		_, err := svc.SetInstallation(ctx, app.ID, c.OperatingSystem.ID, "pip install jupyterlab")
		require.NoError(t, err)

		out, err := svc.SetInstallation(ctx, app.ID, c.OperatingSystem.ID, "pip install jupyterlab==4")
		require.NoError(t, err)
		require.Len(t, out.Installs, 1)
		require.Equal(t, "pip install jupyterlab==4", out.Installs[0].Script)
	})

	t.Run("unknown operating system", func(t *testing.T) {
		_, err := svc.SetInstallation(ctx, app.ID, uuid.New(), "true")
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	})

	t.Run("empty script", func(t *testing.T) {
		_, err := svc.SetInstallation(ctx, app.ID, c.OperatingSystem.ID, "")
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})

	t.Run("delete drops installations", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, app.ID))

		_, err := svc.Get(ctx, app.ID)
		require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

		var n int64
		require.NoError(t, db.Model(&models.ApplicationInstall{}).Where("application_id = ?", app.ID).Count(&n).Error)
		require.Zero(t, n)
	})
}
