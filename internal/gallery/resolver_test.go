package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/media"
)

func TestResolver_CandidatesInOrderStopAtFirstSuccess(t *testing.T) {
	p := newFakeProber("b%201.jpg")
	r := NewResolver(p, 0)

	item := NewItem("a b.jpg", "", media.KindImage, 0)
	item.Fallbacks = []string{"a b.jpg", "b 1.jpg", "c.jpg"}

	res := r.Resolve(context.Background(), item)
	require.NoError(t, res.Err)
	assert.Equal(t, "b%201.jpg", res.URL)
	assert.Equal(t, []string{"image:a%20b.jpg", "image:b%201.jpg"}, p.Calls())
}

func TestResolver_Exhausted(t *testing.T) {
	p := newFakeProber()
	item := NewItem("a b.jpg", "", media.KindImage, 0)

	res := NewResolver(p, 0).Resolve(context.Background(), item)
	assert.ErrorIs(t, res.Err, ErrExhausted)
	assert.Empty(t, res.URL)
	// Нормализованный, затем сырой
	assert.Equal(t, []string{"image:a%20b.jpg", "image:a b.jpg"}, p.Calls())
}

func TestResolver_NoCandidates(t *testing.T) {
	res := NewResolver(newFakeProber(), 0).Resolve(context.Background(), MediaItem{Kind: media.KindImage})
	assert.ErrorIs(t, res.Err, ErrNoCandidates)
}

func TestResolver_VideoHeadThenMetadata(t *testing.T) {
	p := newFakeProber()
	p.headErr["v.mp4"] = true
	p.headErr["w.webm"] = true
	p.meta["w.webm"] = true

	item := NewItem("v.mp4", "", media.KindVideo, 0)
	item.Fallbacks = []string{"x.mp4", "w.webm"}

	res := NewResolver(p, 0).Resolve(context.Background(), item)
	require.NoError(t, res.Err)
	assert.Equal(t, "w.webm", res.URL)
	// x.mp4 ответил 404 на HEAD, метаданные не запрашиваются
	assert.Equal(t, []string{
		"head:v.mp4", "meta:v.mp4",
		"head:x.mp4",
		"head:w.webm", "meta:w.webm",
	}, p.Calls())
}

func TestResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newFakeProber("a.jpg")
	res := NewResolver(p, time.Second).Resolve(ctx, NewItem("a.jpg", "", media.KindImage, 0))
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, p.Calls())
}

type panicProber struct{ *fakeProber }

func (panicProber) ProbeImage(context.Context, string) error { panic("boom") }

func TestResolver_AsyncRecoversPanic(t *testing.T) {
	r := NewResolver(panicProber{newFakeProber()}, 0)
	done := make(chan Result, 1)
	r.ResolveAsync(context.Background(), NewItem("a.jpg", "", media.KindImage, 0), func(res Result) {
		done <- res
	})

	select {
	case res := <-done:
		assert.Error(t, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not called")
	}
}
