package history

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
	"thumbnail-ai-api/internal/infrastructure/persistence/memory"
	apperrors "thumbnail-ai-api/pkg/errors"
)

// failingRepo 所有操作均返回存储错误
type failingRepo struct{ err error }

func (f failingRepo) Append(context.Context, *entity.HistoryEntry) error { return f.err }
func (f failingRepo) List(context.Context) ([]*entity.HistoryEntry, error) {
	return nil, f.err
}
func (f failingRepo) Get(context.Context, string) (*entity.HistoryEntry, error) { return nil, f.err }
func (f failingRepo) ReplaceImage(context.Context, string, int, entity.GeneratedImage) error {
	return f.err
}
func (f failingRepo) Clear(context.Context) error { return f.err }

func images(n int) []entity.GeneratedImage {
	out := make([]entity.GeneratedImage, n)
	for i := range out {
		out[i] = entity.GeneratedImage{Data: []byte(fmt.Sprintf("img-%d", i)), MediaType: "image/png"}
	}
	return out
}

func TestService_RecordKeepsNewestTwenty(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewHistoryStore(entity.DefaultHistoryCapacity), "memory")

	var ids []string
	for i := 0; i < 25; i++ {
		e, err := svc.Record(ctx, fmt.Sprintf("prompt-%d", i), images(1), entity.AspectRatioLandscape)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 20)
	assert.Equal(t, "prompt-24", list[0].Prompt)
	assert.Equal(t, "prompt-5", list[19].Prompt)

	_, err = svc.Get(ctx, ids[0])
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_ListNeverNil(t *testing.T) {
	svc := NewService(memory.NewHistoryStore(0), "memory")
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_GetValidatesID(t *testing.T) {
	svc := NewService(memory.NewHistoryStore(0), "memory")
	_, err := svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestService_Restore(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewHistoryStore(0), "memory")
	e, err := svc.Record(ctx, "red car", images(3), entity.AspectRatioSquare)
	require.NoError(t, err)

	ws, err := svc.Restore(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, ws.HistoryID)
	assert.Equal(t, "red car", ws.Prompt)
	assert.Equal(t, entity.AspectRatioSquare, ws.AspectRatio)
	assert.Equal(t, 3, ws.Count)
	assert.Len(t, ws.Images, 3)

	_, err = svc.Restore(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_PatchImageLeavesOtherEntries(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewHistoryStore(0), "memory")
	a, err := svc.Record(ctx, "a", images(2), entity.AspectRatioLandscape)
	require.NoError(t, err)
	b, err := svc.Record(ctx, "b", images(2), entity.AspectRatioLandscape)
	require.NoError(t, err)

	fresh := entity.GeneratedImage{Data: []byte("fresh"), MediaType: "image/png"}
	require.NoError(t, svc.PatchImage(ctx, a.ID, 1, fresh))

	gotA, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), gotA.Images[1].Data)

	gotB, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, images(2), gotB.Images)

	assert.ErrorIs(t, svc.PatchImage(ctx, a.ID, 5, fresh), repository.ErrImageIndexOutOfRange)
	assert.ErrorIs(t, svc.PatchImage(ctx, "missing", 0, fresh), repository.ErrHistoryNotFound)
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewHistoryStore(0), "memory")
	_, err := svc.Record(ctx, "a", images(1), entity.AspectRatioLandscape)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingRepo{err: errors.New("disk full")}, "file")

	_, err := svc.Record(ctx, "a", images(1), entity.AspectRatioLandscape)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.AsAppError(err).Code)

	_, err = svc.List(ctx)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.AsAppError(err).Code)

	_, err = svc.Get(ctx, "x")
	assert.Equal(t, apperrors.CodeStorageError, apperrors.AsAppError(err).Code)

	assert.Equal(t, apperrors.CodeStorageError, apperrors.AsAppError(svc.Clear(ctx)).Code)
}
