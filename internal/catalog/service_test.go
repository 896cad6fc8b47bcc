package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBlobs struct {
	*blobstore.MemoryStore
	failPrefix string
}

func (f failingBlobs) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == f.failPrefix {
		return errors.New("permission denied")
	}
	return f.MemoryStore.DeletePrefix(ctx, prefix)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, blobs *blobstore.MemoryStore, store Store, docID string, created int64) *models.Booklet {
	t.Helper()
	ctx := context.Background()
	b := &models.Booklet{
		DocID:         docID,
		DocName:       docID + ".pdf",
		DocTitle:      "Title " + docID,
		OwnerID:       "owner",
		CreatedAt:     created,
		ModifyAt:      created,
		NumberOfPages: 2,
		CoverImgKey:   blobstore.CoverKey(docID),
		TTSReady:      true,
	}
	for n := 1; n <= 2; n++ {
		e := models.Elements{ImgKey: blobstore.ImageKey(docID, n)}
		require.NoError(t, blobs.Put(ctx, e.ImgKey, []byte("png"), blobstore.ContentTypePNG))
		if n == 1 {
			e.Text = strPtr("Hola")
			e.TxtFileKey = blobstore.TextKey(docID, n)
			e.TTSKey = blobstore.NarrationKey(docID, n)
			require.NoError(t, blobs.Put(ctx, e.TxtFileKey, []byte("Hola"), blobstore.ContentTypeText))
			require.NoError(t, blobs.Put(ctx, e.TTSKey, []byte("mp3"), blobstore.ContentTypeMP3))
		}
		b.Pages = append(b.Pages, models.Page{PageNum: n, MasterDoc: docID, PageID: "p", Elements: e})
	}
	require.NoError(t, store.Put(ctx, b))
	return b
}

func newTestService() (*Service, *blobstore.MemoryStore, *MemoryStore, *clock) {
	blobs := blobstore.NewMemoryStore("test", time.Hour)
	store := NewMemoryStore()
	svc := NewService(store, blobs)
	c := &clock{t: time.Unix(1700000000, 0)}
	svc.now = c.now
	return svc, blobs, store, c
}

func TestGetResolvesFreshURLs(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)

	b, err := svc.Get(context.Background(), "aaaa0001")
	require.NoError(t, err)
	assert.Contains(t, b.CoverImg, "memory://test/")
	assert.NotEmpty(t, b.Pages[0].Elements.TTSURL)
	assert.NotEmpty(t, b.Pages[0].Elements.TxtFileURL)
	assert.NotEmpty(t, b.Pages[1].Elements.ImgURL)
	assert.Empty(t, b.Pages[1].Elements.TTSURL)

	stored, _ := store.Get(context.Background(), "aaaa0001")
	assert.Empty(t, stored.CoverImg, "URLs are never written back")
}

func TestGetNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestTogglePublishedTwice(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)
	ctx := context.Background()

	first, err := svc.TogglePublished(ctx, "aaaa0001")
	require.NoError(t, err)
	assert.True(t, first.IsPublished)

	second, err := svc.TogglePublished(ctx, "aaaa0001")
	require.NoError(t, err)
	assert.False(t, second.IsPublished)
	assert.Greater(t, second.ModifyAt, first.ModifyAt)
	assert.Greater(t, first.ModifyAt, int64(10))

	_, err = svc.TogglePublished(ctx, "missing")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestUpdatePatch(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)
	ctx := context.Background()

	long := make([]rune, models.MaxDescriptionLength+20)
	for i := range long {
		long[i] = 'á'
	}
	b, err := svc.Update(ctx, "aaaa0001", models.BookletPatch{
		Title:       strPtr("Nuevo"),
		Description: strPtr(string(long)),
		PageTexts:   map[int]string{2: "Texto nuevo", 1: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", b.DocTitle)
	assert.Len(t, []rune(b.DocDescription), models.MaxDescriptionLength)
	assert.Nil(t, b.Pages[0].Elements.Text)
	assert.Equal(t, "Texto nuevo", *b.Pages[1].Elements.Text)
	assert.True(t, b.Pages[1].Elements.CreateTxtTTS)
	assert.True(t, b.TTSReady, "untouched fields survive")

	_, err = svc.Update(ctx, "aaaa0001", models.BookletPatch{PageTexts: map[int]string{9: "x"}})
	assert.True(t, models.IsKind(err, models.KindInputValidation))

	_, err = svc.Update(ctx, "aaaa0001", models.BookletPatch{})
	assert.True(t, models.IsKind(err, models.KindInputValidation))

	_, err = svc.Update(ctx, "missing", models.BookletPatch{Title: strPtr("x")})
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestListProjection(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)
	seed(t, blobs, store, "aaaa0002", 20)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aaaa0002", list[0].DocID, "newest first")
	for _, b := range list {
		assert.Nil(t, b.Pages)
		assert.NotEmpty(t, b.CoverImg)
	}
}

func TestDeleteThenList(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)
	seed(t, blobs, store, "aaaa0002", 20)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "aaaa0001"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "aaaa0002", list[0].DocID)
	for _, key := range blobs.Keys() {
		assert.NotContains(t, key, "aaaa0001")
	}

	_, err = svc.Get(ctx, "aaaa0001")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestDeletePartialFailure(t *testing.T) {
	mem := blobstore.NewMemoryStore("test", time.Hour)
	store := NewMemoryStore()
	seed(t, mem, store, "aaaa0001", 10)
	svc := NewService(store, failingBlobs{MemoryStore: mem, failPrefix: "txt/aaaa0001/"})
	ctx := context.Background()

	err := svc.Delete(ctx, "aaaa0001")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindStorage))
	assert.Contains(t, err.Error(), "cleanup may be incomplete")

	got, _ := store.Get(ctx, "aaaa0001")
	assert.Nil(t, got, "catalog record is gone even though blobs remain")
	assert.Contains(t, mem.Keys(), blobstore.TextKey("aaaa0001", 1))
	assert.NotContains(t, mem.Keys(), blobstore.ImageKey("aaaa0001", 1), "other prefixes are still attempted")
}

func TestMarkNarrated(t *testing.T) {
	svc, blobs, store, _ := newTestService()
	seed(t, blobs, store, "aaaa0001", 10)
	ctx := context.Background()

	_, err := svc.Update(ctx, "aaaa0001", models.BookletPatch{PageTexts: map[int]string{2: "Nuevo"}})
	require.NoError(t, err)

	key := blobstore.NarrationKey("aaaa0001", 2)
	require.NoError(t, blobs.Put(ctx, key, []byte("mp3"), blobstore.ContentTypeMP3))
	b, err := svc.MarkNarrated(ctx, "aaaa0001", 2, "", key)
	require.NoError(t, err)
	assert.False(t, b.Pages[1].Elements.CreateTxtTTS)
	assert.Equal(t, key, b.Pages[1].Elements.TTSKey)
	assert.NotEmpty(t, b.Pages[1].Elements.TTSURL)

	_, err = svc.MarkNarrated(ctx, "aaaa0001", 3, "", key)
	assert.True(t, models.IsKind(err, models.KindInputValidation))
}
