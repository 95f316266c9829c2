package jukebox

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evhagen/spindle/internal/app/playback"
	"github.com/evhagen/spindle/internal/app/player"
	"github.com/evhagen/spindle/internal/domain/command"
	"github.com/evhagen/spindle/internal/domain/playlist"
	"github.com/evhagen/spindle/internal/domain/track"
)

// fakePlayer records loads and hands out a fresh state handle per prepare,
// like the real worker does.
type fakePlayer struct {
	mu         sync.Mutex
	loads      []string
	states     []*playback.StreamState
	failLoad   map[string]error
	prepareErr error
}

func (f *fakePlayer) Load(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLoad[path]; err != nil {
		return err
	}
	f.loads = append(f.loads, path)
	return nil
}

func (f *fakePlayer) Prepare(context.Context) (*playback.StreamState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	s := playback.NewStreamState()
	f.states = append(f.states, s)
	return s, nil
}

func (f *fakePlayer) failOn(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoad[path] = err
}

func (f *fakePlayer) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

// ready reports whether n tracks have completed the full load+prepare round
// trip, so state handles up to index n-1 exist.
func (f *fakePlayer) ready(n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads) >= n && len(f.states) >= n
}

func (f *fakePlayer) loadedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func (f *fakePlayer) stateAt(i int) *playback.StreamState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[i]
}

func (f *fakePlayer) lastState() *playback.StreamState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return nil
	}
	return f.states[len(f.states)-1]
}

type harness struct {
	player   *fakePlayer
	queue    *playlist.Queue
	commands chan command.Command
	events   chan player.Event
	out      *bytes.Buffer
	cancel   context.CancelFunc
	done     chan error
}

func makeTracks(paths ...string) []track.Track {
	ts := make([]track.Track, len(paths))
	for i, p := range paths {
		ts[i] = track.Track{Path: p}
	}
	return ts
}

func startJukebox(t *testing.T, tracks []track.Track, loop bool, cfg Config) *harness {
	t.Helper()
	h := &harness{
		player:   &fakePlayer{failLoad: map[string]error{}},
		queue:    playlist.New(tracks, loop),
		commands: make(chan command.Command),
		events:   make(chan player.Event),
		out:      &bytes.Buffer{},
		done:     make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	jb := New(h.queue, cfg, h.player, h.events, h.commands, h.out)
	go func() { h.done <- jb.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Fatal("control loop did not exit")
		}
	})
	return h
}

func (h *harness) send(t *testing.T, cmd command.Command) {
	t.Helper()
	select {
	case h.commands <- cmd:
	case <-time.After(5 * time.Second):
		t.Fatal("control loop did not accept the command")
	}
}

func (h *harness) emit(t *testing.T, ev player.Event) {
	t.Helper()
	select {
	case h.events <- ev:
	case <-time.After(5 * time.Second):
		t.Fatal("control loop did not accept the event")
	}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("control loop did not exit")
		return nil
	}
}

func (h *harness) quit(t *testing.T) error {
	t.Helper()
	h.send(t, command.Quit)
	return h.wait(t)
}

func waitStatus(t *testing.T, s *playback.StreamState, want playback.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Status() == want
	}, 5*time.Second, time.Millisecond, "state never reached %s", want)
}

func TestJukebox_EmptyQueueRefusesToStart(t *testing.T) {
	fp := &fakePlayer{}
	jb := New(playlist.New(nil, false), Config{}, fp, nil, nil, &bytes.Buffer{})

	err := jb.Run(context.Background())
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.Zero(t, fp.loadCount())
}

func TestJukebox_StartupLoadsCurrentTrack(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	assert.Equal(t, []string{"/a.mp3"}, h.player.loadedPaths())
	waitStatus(t, h.player.lastState(), playback.StatusPlaying)

	require.NoError(t, h.quit(t))

	// The loop stops the live stream on the way out.
	assert.Equal(t, playback.StatusStopped, h.player.lastState().Status())
	assert.Equal(t, 0, h.queue.Index())
}

func TestJukebox_StartupWithoutAutoplayStaysPaused(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3"), false,
		Config{Autoplay: false, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	assert.Equal(t, playback.StatusPaused, h.player.lastState().Status())

	require.NoError(t, h.quit(t))
}

func TestJukebox_PlaysThroughAndParksAtEnd(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3", "/c.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	h.emit(t, player.Event{Type: player.EventDone, State: h.player.stateAt(0)})

	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)
	waitStatus(t, h.player.stateAt(1), playback.StatusPlaying)
	h.emit(t, player.Event{Type: player.EventDone, State: h.player.stateAt(1)})

	require.Eventually(t, func() bool { return h.player.ready(3) }, 5*time.Second, time.Millisecond)
	h.emit(t, player.Event{Type: player.EventDone, State: h.player.stateAt(2)})

	// Past the last track: nothing further is loaded, later navigation and
	// toggles stay harmless.
	h.send(t, command.Next)
	h.send(t, command.TogglePlay)
	require.NoError(t, h.quit(t))

	assert.Equal(t, []string{"/a.mp3", "/b.mp3", "/c.mp3"}, h.player.loadedPaths())
	assert.Equal(t, 3, h.queue.Index())
}

func TestJukebox_TogglePlayRoundTrip(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3"), false,
		Config{Autoplay: false, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	state := h.player.lastState()
	assert.Equal(t, playback.StatusPaused, state.Status())

	h.send(t, command.TogglePlay)
	waitStatus(t, state, playback.StatusPlaying)

	h.send(t, command.TogglePlay)
	waitStatus(t, state, playback.StatusPaused)

	require.NoError(t, h.quit(t))
}

func TestJukebox_RestartKeepsPauseState(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: false, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	// Restart while paused reloads the same track and stays paused.
	h.send(t, command.Restart)
	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)
	assert.Equal(t, playback.StatusStopped, h.player.stateAt(0).Status())
	assert.Equal(t, playback.StatusPaused, h.player.stateAt(1).Status())

	// Restart while playing resumes playing.
	h.send(t, command.TogglePlay)
	waitStatus(t, h.player.stateAt(1), playback.StatusPlaying)
	h.send(t, command.Restart)
	require.Eventually(t, func() bool { return h.player.ready(3) }, 5*time.Second, time.Millisecond)
	waitStatus(t, h.player.stateAt(2), playback.StatusPlaying)

	require.NoError(t, h.quit(t))
	assert.Equal(t, []string{"/a.mp3", "/a.mp3", "/a.mp3"}, h.player.loadedPaths())
	assert.Equal(t, 0, h.queue.Index())
}

func TestJukebox_SkipStartsPlayingRegardlessOfPause(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3", "/c.mp3"), false,
		Config{Autoplay: false, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	h.send(t, command.Next)
	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)
	assert.Equal(t, playback.StatusStopped, h.player.stateAt(0).Status())
	waitStatus(t, h.player.stateAt(1), playback.StatusPlaying)

	h.send(t, command.Previous)
	require.Eventually(t, func() bool { return h.player.ready(3) }, 5*time.Second, time.Millisecond)
	waitStatus(t, h.player.stateAt(2), playback.StatusPlaying)

	require.NoError(t, h.quit(t))
	assert.Equal(t, []string{"/a.mp3", "/b.mp3", "/a.mp3"}, h.player.loadedPaths())
}

func TestJukebox_NavigationAtEdgesKeepsCurrentStream(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	// Previous at the first track is a no-op without looping.
	h.send(t, command.Previous)
	h.send(t, command.Next)
	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)

	// Next past the last track parks the cursor but keeps the stream alive.
	h.send(t, command.Next)
	h.send(t, command.Next)
	require.NoError(t, h.quit(t))

	assert.Equal(t, []string{"/a.mp3", "/b.mp3"}, h.player.loadedPaths())
	assert.Equal(t, 2, h.queue.Index())
}

func TestJukebox_LoopWrapsBothWays(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), true,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	h.send(t, command.Next)
	h.send(t, command.Next) // wraps to the first track
	h.send(t, command.Previous)
	require.NoError(t, h.quit(t))

	assert.Equal(t, []string{"/a.mp3", "/b.mp3", "/a.mp3", "/b.mp3"}, h.player.loadedPaths())
	assert.Equal(t, 1, h.queue.Index())
}

func TestJukebox_StaleEventIsDropped(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	// An event tagged with an unrelated handle must not advance the queue.
	h.emit(t, player.Event{Type: player.EventDone, State: playback.NewStreamState()})
	require.NoError(t, h.quit(t))

	assert.Equal(t, 1, h.player.loadCount())
	assert.Equal(t, 0, h.queue.Index())
}

func TestJukebox_StreamErrorFatal(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	h.emit(t, player.Event{
		Type:  player.EventStreamError,
		Err:   errors.New("bitstream corrupted"),
		State: h.player.lastState(),
	})

	err := h.wait(t)
	assert.ErrorContains(t, err, "bitstream corrupted")
	assert.Equal(t, 1, h.player.loadCount())
}

func TestJukebox_StreamErrorSkip(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicySkip})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	h.emit(t, player.Event{
		Type:  player.EventStreamError,
		Err:   errors.New("bitstream corrupted"),
		State: h.player.lastState(),
	})

	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)
	waitStatus(t, h.player.stateAt(1), playback.StatusPlaying)

	require.NoError(t, h.quit(t))
	assert.Equal(t, []string{"/a.mp3", "/b.mp3"}, h.player.loadedPaths())
}

func TestJukebox_ToggleAutoplayAffectsAdvance(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	h.send(t, command.ToggleAutoplay)
	h.emit(t, player.Event{Type: player.EventDone, State: h.player.stateAt(0)})

	require.Eventually(t, func() bool { return h.player.ready(2) }, 5*time.Second, time.Millisecond)
	assert.Equal(t, playback.StatusPaused, h.player.stateAt(1).Status())

	require.NoError(t, h.quit(t))
}

func TestJukebox_ToggleLoopAffectsNavigation(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	h.send(t, command.ToggleLoop)
	h.send(t, command.Next)
	h.send(t, command.Next) // loop is on now, wraps instead of parking
	require.NoError(t, h.quit(t))

	assert.True(t, h.queue.Looping())
	assert.Equal(t, []string{"/a.mp3", "/b.mp3", "/a.mp3"}, h.player.loadedPaths())
}

func TestJukebox_LoadFailureEndsLoop(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})
	h.player.failOn("/b.mp3", errors.New("no such file"))

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	h.send(t, command.Next)

	err := h.wait(t)
	assert.ErrorContains(t, err, "load /b.mp3")
	assert.ErrorContains(t, err, "no such file")
}

func TestJukebox_PrepareFailureEndsStartup(t *testing.T) {
	fp := &fakePlayer{prepareErr: errors.New("device unavailable")}
	jb := New(playlist.New(makeTracks("/a.mp3"), false),
		Config{OnStreamError: ErrorPolicyFatal}, fp, nil, nil, &bytes.Buffer{})

	err := jb.Run(context.Background())
	assert.ErrorContains(t, err, "prepare /a.mp3")
}

func TestJukebox_InputCloseEndsLoop(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	close(h.commands)

	require.NoError(t, h.wait(t))
	assert.Equal(t, playback.StatusStopped, h.player.lastState().Status())
}

func TestJukebox_ContextCancelEndsLoop(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3"), false,
		Config{Autoplay: true, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)
	h.cancel()

	err := h.wait(t)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJukebox_ShowStateRendersOnLoadAndToggle(t *testing.T) {
	h := startJukebox(t, makeTracks("/a.mp3", "/b.mp3"), false,
		Config{Autoplay: true, ShowState: false, Window: 2, OnStreamError: ErrorPolicyFatal})

	require.Eventually(t, func() bool { return h.player.ready(1) }, 5*time.Second, time.Millisecond)

	// Off by default here: the startup load must not have rendered.
	h.send(t, command.ToggleShowState) // on, renders immediately
	h.send(t, command.Next)            // renders again after the load
	require.NoError(t, h.quit(t))

	out := h.out.String()
	assert.Contains(t, out, ">   1  a")
	assert.Contains(t, out, ">   2  b")
	assert.Equal(t, 2, strings.Count(out, "[track "))
}
