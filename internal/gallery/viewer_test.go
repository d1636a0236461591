package gallery

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/media"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	m.Run()
}

// fakeProber отвечает по таблицам и записывает порядок проверок
type fakeProber struct {
	mu      sync.Mutex
	ok      map[string]bool          // изображение декодируется / HEAD 2xx
	headErr map[string]bool          // HEAD не поддерживается
	meta    map[string]bool          // метаданные читаются
	gates   map[string]chan struct{} // проверка ждет закрытия канала
	calls   []string
}

func newFakeProber(ok ...string) *fakeProber {
	p := &fakeProber{
		ok:      map[string]bool{},
		headErr: map[string]bool{},
		meta:    map[string]bool{},
		gates:   map[string]chan struct{}{},
	}
	for _, u := range ok {
		p.ok[u] = true
	}
	return p
}

func (p *fakeProber) enter(kind, url string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, kind+":"+url)
	return p.gates[url]
}

func (p *fakeProber) ProbeImage(_ context.Context, url string) error {
	if gate := p.enter("image", url); gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ok[url] {
		return nil
	}
	return errors.New("decode failed")
}

func (p *fakeProber) ProbeHead(_ context.Context, url string) (bool, error) {
	if gate := p.enter("head", url); gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.headErr[url] {
		return false, ErrHeadUnsupported
	}
	return p.ok[url], nil
}

func (p *fakeProber) ProbeMetadata(_ context.Context, url string) error {
	p.enter("meta", url)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.meta[url] {
		return nil
	}
	return errors.New("no metadata")
}

func (p *fakeProber) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func imageGroup(srcs ...string) MediaGroup {
	g := make(MediaGroup, len(srcs))
	for i, s := range srcs {
		g[i] = NewItem(s, "Proyecto", media.KindImage, i)
	}
	return g
}

func newTestViewer(p Prober) (*Viewer, *MemorySurface) {
	s := NewMemorySurface("card-1")
	return NewViewer(s, NewResolver(p, 0), ""), s
}

func TestViewer_OpenRendersMedia(t *testing.T) {
	v, s := newTestViewer(newFakeProber("a.jpg", "b.jpg"))

	require.NoError(t, v.Open(imageGroup("a.jpg", "b.jpg"), 1))
	v.Wait()

	assert.False(t, s.Hidden())
	assert.True(t, s.ScrollLocked())
	assert.Equal(t, "Proyecto", s.Title())
	assert.Equal(t, ControlClose, s.ActiveElement())

	thumbs := s.Thumbs()
	require.Len(t, thumbs, 2)
	assert.False(t, thumbs[0].Active)
	assert.True(t, thumbs[1].Active)

	m := s.Media()
	require.NotNil(t, m)
	assert.Equal(t, "b.jpg", m.URL)
	assert.Empty(t, m.Error)
}

func TestViewer_NextCyclesBackToStart(t *testing.T) {
	v, _ := newTestViewer(newFakeProber("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, v.Open(imageGroup("a.jpg", "b.jpg", "c.jpg"), 0))

	for i := 0; i < 3; i++ {
		assert.True(t, v.Next())
	}
	v.Wait()
	assert.Equal(t, 0, v.State().CurrentIndex)

	assert.True(t, v.Prev())
	v.Wait()
	assert.Equal(t, 2, v.State().CurrentIndex)
}

func TestViewer_NavigationWhenClosed(t *testing.T) {
	v, _ := newTestViewer(newFakeProber())

	assert.False(t, v.Next())
	assert.False(t, v.Prev())
	assert.ErrorIs(t, v.JumpTo(0), ErrEmptyGroup)
	assert.False(t, v.HandleKey(Key{Name: KeyArrowRight}))
	assert.Equal(t, -1, v.State().CurrentIndex)
}

func TestViewer_OpenRejectsBadInput(t *testing.T) {
	v, s := newTestViewer(newFakeProber("a.jpg"))

	assert.ErrorIs(t, v.Open(nil, 0), ErrEmptyGroup)
	assert.ErrorIs(t, v.Open(imageGroup("a.jpg"), 1), ErrInvalidIndex)
	assert.ErrorIs(t, v.Open(imageGroup("a.jpg"), -1), ErrInvalidIndex)
	assert.False(t, v.State().IsOpen())
	assert.True(t, s.Hidden())
	assert.Equal(t, 0, s.Teardowns())
}

func TestViewer_StaleResolutionIsDiscarded(t *testing.T) {
	p := newFakeProber("a.jpg", "b.jpg")
	gate := make(chan struct{})
	p.gates["a.jpg"] = gate
	v, s := newTestViewer(p)

	require.NoError(t, v.Open(imageGroup("a.jpg"), 0))
	require.NoError(t, v.Open(imageGroup("b.jpg"), 0))

	close(gate)
	v.Wait()

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "b.jpg", history[0].URL)
	assert.Equal(t, "b.jpg", s.Media().URL)
}

func TestViewer_CloseDiscardsPendingResolution(t *testing.T) {
	p := newFakeProber("a.jpg")
	gate := make(chan struct{})
	p.gates["a.jpg"] = gate
	v, s := newTestViewer(p)

	require.NoError(t, v.Open(imageGroup("a.jpg"), 0))
	v.Close()
	close(gate)
	v.Wait()

	assert.Empty(t, s.History())
	assert.Nil(t, s.Media())
}

func TestViewer_AllCandidatesFail(t *testing.T) {
	p := newFakeProber()
	v, s := newTestViewer(p)

	item := NewItem("a.jpg", "A", media.KindImage, 0)
	item.Fallbacks = []string{"a1.jpg"}
	require.NoError(t, v.Open(MediaGroup{item}, 0))
	v.Wait()

	m := s.Media()
	require.NotNil(t, m)
	assert.Equal(t, MsgImageFailed, m.Error)
	assert.Equal(t, 0, v.State().CurrentIndex)
	assert.Equal(t, []string{"image:a.jpg", "image:a1.jpg"}, p.Calls())
}

func TestViewer_ErrorMessagesByKind(t *testing.T) {
	v, s := newTestViewer(newFakeProber())

	require.NoError(t, v.Open(MediaGroup{NewItem("clip.mp4", "", media.KindVideo, 0)}, 0))
	v.Wait()
	assert.Equal(t, MsgVideoFailed, s.Media().Error)

	require.NoError(t, v.Open(MediaGroup{NewItem("song.mp3", "", media.KindAudio, 0)}, 0))
	v.Wait()
	assert.Equal(t, MsgAudioFailed, s.Media().Error)
}

func TestViewer_JumpCloseReopen(t *testing.T) {
	v, s := newTestViewer(newFakeProber("a.jpg", "b.jpg", "c.jpg", "d.jpg"))

	require.NoError(t, v.Open(imageGroup("a.jpg", "b.jpg", "c.jpg"), 0))
	require.NoError(t, v.JumpTo(2))
	assert.Equal(t, 2, v.State().CurrentIndex)
	assert.ErrorIs(t, v.JumpTo(3), ErrInvalidIndex)
	assert.Equal(t, 2, v.State().CurrentIndex)

	v.Close()
	state := v.State()
	assert.Equal(t, -1, state.CurrentIndex)
	assert.Empty(t, state.ActiveGroup)
	assert.True(t, s.Hidden())
	assert.False(t, s.ScrollLocked())
	assert.Equal(t, "card-1", s.ActiveElement())

	require.NoError(t, v.Open(imageGroup("d.jpg"), 0))
	v.Wait()
	state = v.State()
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Len(t, state.ActiveGroup, 1)
	assert.Equal(t, "d.jpg", s.Media().URL)
}

func TestViewer_HandleKey(t *testing.T) {
	v, s := newTestViewer(newFakeProber("a.jpg", "b.jpg"))
	require.NoError(t, v.Open(imageGroup("a.jpg", "b.jpg"), 0))

	assert.True(t, v.HandleKey(Key{Name: KeyArrowRight}))
	assert.Equal(t, 1, v.State().CurrentIndex)
	assert.True(t, v.HandleKey(Key{Name: KeyArrowLeft}))
	assert.Equal(t, 0, v.State().CurrentIndex)

	// close -> prev -> next -> thumb-0 -> thumb-1 -> close
	assert.Equal(t, ControlClose, s.ActiveElement())
	assert.True(t, v.HandleKey(Key{Name: KeyTab, Shift: true}))
	assert.Equal(t, ThumbControl(1), s.ActiveElement())
	assert.True(t, v.HandleKey(Key{Name: KeyTab}))
	assert.Equal(t, ControlClose, s.ActiveElement())
	assert.True(t, v.HandleKey(Key{Name: KeyTab}))
	assert.Equal(t, ControlPrev, s.ActiveElement())

	assert.False(t, v.HandleKey(Key{Name: "Enter"}))

	assert.True(t, v.HandleKey(Key{Name: KeyEscape}))
	assert.False(t, v.State().IsOpen())
	assert.Equal(t, "card-1", s.ActiveElement())
	assert.False(t, v.HandleKey(Key{Name: KeyEscape}))
	v.Wait()
}
