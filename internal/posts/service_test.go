package posts_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/posts"
	"github.com/quill-api/quill/internal/shared"
	"github.com/quill-api/quill/internal/testing/memstore"
)

func newService(t *testing.T) (*posts.Service, *memstore.Posts, *memstore.Audit) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := memstore.NewPosts()
	audit := &memstore.Audit{}
	return posts.NewService(store, posts.NewCache(client, time.Minute, nil), audit, nil), store, audit
}

func TestCreateValidates(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), 1, posts.CreatePostRequest{Content: "body"})
	var fe *httpx.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "title")
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, store, audit := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, 1, posts.CreatePostRequest{Title: "first", Content: "body", Published: true})
	require.NoError(t, err)

	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Gets())

	title := "second"
	_, err = svc.Update(ctx, created.ID, posts.UpdatePostRequest{Title: &title}, 1)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, "body", got.Content)

	actions := []string{}
	for _, e := range audit.Entries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{shared.AuditActionCreate, shared.AuditActionUpdate}, actions)
}

func TestDeleteRemovesFromCache(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, 1, posts.CreatePostRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, 1))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListOnlyPublished(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, posts.CreatePostRequest{Title: "draft", Content: "c"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, posts.CreatePostRequest{Title: "live", Content: "c", Published: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, posts.CreatePostRequest{Title: "other", Content: "c", Published: true})
	require.NoError(t, err)

	owner := int64(1)
	list, total, err := svc.List(ctx, posts.ListFilter{OwnerID: &owner, Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "live", list[0].Title)

	_, total, err = svc.List(ctx, posts.ListFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
