package content

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
)

func openContentDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ContentRecord{}, &models.Banner{}))
	return conn
}

func TestRepositoryInsertAndFind(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	rec := &models.ContentRecord{
		ID:       uuid.NewString(),
		Title:    "Wallpaper Pack",
		Section:  enums.SectionArtwork,
		Category: "Wallpapers",
		Tags:     pq.StringArray{"pack"},
		ImageURL: "i",
		ZipURL:   "z",
	}
	require.NoError(t, repo.Insert(context.Background(), rec))

	found, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wallpaper Pack", found.Title)
	assert.Equal(t, enums.SectionArtwork, found.Section)
	assert.False(t, found.CreatedAt.IsZero(), "createdat should be stamped")
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	_, err := repo.FindByID(context.Background(), "missing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryUpdateWritesZeroFields(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	rec := &models.ContentRecord{
		ID:          uuid.NewString(),
		Title:       "Before",
		Description: "has description",
		Section:     enums.SectionArtwork,
		Category:    "Illustrations",
		ImageURL:    "i",
	}
	require.NoError(t, repo.Insert(context.Background(), rec))

	loaded, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	loaded.Title = "After"
	loaded.Description = ""
	require.NoError(t, repo.Update(context.Background(), loaded))

	again, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", again.Title)
	assert.Empty(t, again.Description, "update must write cleared fields too")
}

func TestRepositoryUpdateNotFound(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	err := repo.Update(context.Background(), &models.ContentRecord{ID: "missing", Title: "x"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryDelete(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	rec := &models.ContentRecord{ID: uuid.NewString(), Title: "Doomed", Section: enums.SectionLeaks}
	require.NoError(t, repo.Insert(context.Background(), rec))

	require.NoError(t, repo.Delete(context.Background(), rec.ID))
	_, err := repo.FindByID(context.Background(), rec.ID)
	require.Error(t, err, "record should be gone")

	err = repo.Delete(context.Background(), rec.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryListNewestFirst(t *testing.T) {
	t.Parallel()

	repo := NewRepository(openContentDB(t))
	older := &models.ContentRecord{ID: "older", Title: "Older", Section: enums.SectionArtwork, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &models.ContentRecord{ID: "newer", Title: "Newer", Section: enums.SectionArtwork, CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Insert(context.Background(), older))
	require.NoError(t, repo.Insert(context.Background(), newer))

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].ID)
	assert.Equal(t, "older", records[1].ID)
}
