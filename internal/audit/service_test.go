package audit

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-api/quill/internal/shared"
)

type stubRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) Window(_ context.Context, _ TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastLimit, s.lastOffset = limit, offset
	end := min(offset+limit, len(s.rows))
	if offset >= len(s.rows) {
		return nil, nil
	}
	return s.rows[offset:end], nil
}

func rows(n int) []TimelineRow {
	out := make([]TimelineRow, n)
	for i := range out {
		out[i] = TimelineRow{ID: int64(n - i), Action: "update", Entity: "post", EntityID: "1"}
	}
	return out
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: rows(5)}
	svc := NewService(repo)

	first, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Rows, 2)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, PagingInfo{Page: 1, PageSize: 2, HasNext: true, NextPage: 2}, first.Paging)

	last, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Rows, 1)
	assert.Equal(t, 4, repo.lastOffset)
	assert.Equal(t, PagingInfo{Page: 3, PageSize: 2, PrevPage: 2}, last.Paging)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	_, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.lastLimit)
}

func TestTimelineBoundsHugePage(t *testing.T) {
	repo := &stubRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{Page: math.MaxInt64, PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, shared.MaxPage, result.Paging.Page)
	assert.Equal(t, (shared.MaxPage-1)*50, repo.lastOffset)
	assert.Empty(t, result.Rows)
}

func TestTimelineWithoutRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewService(nil).Export(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	out, err := WriteCSV([]TimelineRow{
		{ID: 1, At: at, ActorID: 7, Action: "update", Entity: "user", EntityID: "7", Meta: map[string]any{"password_changed": true}},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,at,actor_id,action,entity,entity_id,meta", lines[0])
	assert.Equal(t, `1,2024-03-10T10:00:00Z,7,update,user,7,"{""password_changed"":true}"`, lines[1])
}

func TestDecodeMeta(t *testing.T) {
	meta, err := decodeMeta([]byte(`{"title":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "hello"}, meta)

	for _, raw := range [][]byte{nil, []byte("null")} {
		meta, err = decodeMeta(raw)
		require.NoError(t, err)
		assert.Nil(t, meta)
	}

	_, err = decodeMeta([]byte(`[1,2]`))
	assert.ErrorContains(t, err, "decode meta")
}
