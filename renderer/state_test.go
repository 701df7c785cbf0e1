package renderer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestState(t *testing.T) (*State, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(Options{Volume: 50, Clock: clock.Now}), clock
}

func TestNewDefaults(t *testing.T) {
	s, _ := newTestState(t)
	snap := s.Snapshot()

	assert.Equal(t, NoMediaPresent, snap.Transport)
	assert.Equal(t, 50, snap.Volume[Master])
	assert.False(t, snap.Mute[Master])
	assert.Len(t, snap.Volume, len(DefaultChannels))
	assert.True(t, snap.Current.Empty())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from   TransportState
		action string
		want   TransportState
		ok     bool
	}{
		{NoMediaPresent, ActionSetURI, Stopped, true},
		{NoMediaPresent, ActionPlay, NoMediaPresent, false},
		{NoMediaPresent, ActionPause, NoMediaPresent, false},
		{NoMediaPresent, ActionStop, NoMediaPresent, false},
		{Stopped, ActionPlay, Playing, true},
		{Stopped, ActionPause, Stopped, false},
		{Stopped, ActionStop, Stopped, true},
		{Playing, ActionPause, PausedPlayback, true},
		{Playing, ActionStop, Stopped, true},
		{Playing, ActionSetURI, Stopped, true},
		{Playing, ActionPlay, Playing, true},
		{PausedPlayback, ActionPlay, Playing, true},
		{PausedPlayback, ActionPause, PausedPlayback, false},
		{PausedPlayback, ActionStop, Stopped, true},
		{PausedPlayback, ActionSetURI, Stopped, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.action, func(t *testing.T) {
			got, err := Target(tt.from, tt.action)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrTransitionNotAvailable)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyCommitsOnlyOnSuccess(t *testing.T) {
	s, clock := newTestState(t)

	_, err := s.Apply(ActionSetURI, func(cur Snapshot) (Snapshot, error) {
		return cur.SetURI(Media{URI: "http://example.com/a.mp4"}, clock.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, Stopped, s.Snapshot().Transport)

	_, err = s.Apply(ActionPause, func(cur Snapshot) (Snapshot, error) {
		return cur.Pause(clock.Now())
	})
	assert.ErrorIs(t, err, ErrTransitionNotAvailable)

	snap := s.Snapshot()
	assert.Equal(t, Stopped, snap.Transport)
	assert.Equal(t, "http://example.com/a.mp4", snap.Current.URI)
}

func TestApplyRejectsPendingTransition(t *testing.T) {
	s, _ := newTestState(t)

	_, err := s.Apply("Broken", func(cur Snapshot) (Snapshot, error) {
		cur.Transport = Transitioning
		return cur, nil
	})
	assert.ErrorIs(t, err, ErrPendingTransition)
	assert.Equal(t, NoMediaPresent, s.Snapshot().Transport)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s, _ := newTestState(t)

	snap := s.Snapshot()
	snap.Volume[Master] = 99
	snap.Mute[Master] = true

	fresh := s.Snapshot()
	assert.Equal(t, 50, fresh.Volume[Master])
	assert.False(t, fresh.Mute[Master])
}

func TestVolumeAndMute(t *testing.T) {
	s, _ := newTestState(t)

	_, err := s.Apply("SetVolume", func(cur Snapshot) (Snapshot, error) {
		return cur.SetVolume(Master, 150)
	})
	assert.ErrorIs(t, err, ErrVolumeOutOfRange)
	assert.Equal(t, 50, s.Snapshot().Volume[Master])

	_, err = s.Apply("SetVolume", func(cur Snapshot) (Snapshot, error) {
		return cur.SetVolume("Subwoofer", 10)
	})
	assert.ErrorIs(t, err, ErrUnknownChannel)

	_, err = s.Apply("SetMute", func(cur Snapshot) (Snapshot, error) {
		return cur.SetMute(Master, true)
	})
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Mute[Master])

	_, err = s.Apply("SelectPreset", func(cur Snapshot) (Snapshot, error) {
		next, err := cur.SetVolume("LF", 5)
		if err != nil {
			return cur, err
		}
		return next.ResetRendering(30), nil
	})
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Equal(t, 30, snap.Volume["LF"])
	assert.Equal(t, 30, snap.Volume[Master])
	assert.False(t, snap.Mute[Master])
}

func TestPositionTracking(t *testing.T) {
	s, clock := newTestState(t)
	apply := func(action string, fn func(Snapshot) (Snapshot, error)) {
		t.Helper()
		_, err := s.Apply(action, fn)
		require.NoError(t, err)
	}

	apply(ActionSetURI, func(cur Snapshot) (Snapshot, error) {
		return cur.SetURI(Media{URI: "http://example.com/a.mp4", Duration: time.Minute}, clock.Now())
	})
	apply(ActionPlay, func(cur Snapshot) (Snapshot, error) { return cur.Play("1", clock.Now()) })

	clock.Advance(10 * time.Second)
	assert.Equal(t, 10*time.Second, s.Snapshot().Position(clock.Now()))

	apply(ActionPause, func(cur Snapshot) (Snapshot, error) { return cur.Pause(clock.Now()) })
	clock.Advance(time.Hour)
	assert.Equal(t, 10*time.Second, s.Snapshot().Position(clock.Now()))

	apply(ActionSeek, func(cur Snapshot) (Snapshot, error) { return cur.Seek(30*time.Second, clock.Now()) })
	assert.Equal(t, 30*time.Second, s.Snapshot().Position(clock.Now()))

	_, err := s.Apply(ActionSeek, func(cur Snapshot) (Snapshot, error) { return cur.Seek(2*time.Minute, clock.Now()) })
	assert.ErrorIs(t, err, ErrIllegalSeekTarget)

	apply(ActionPlay, func(cur Snapshot) (Snapshot, error) { return cur.Play("1", clock.Now()) })
	clock.Advance(time.Hour)
	assert.Equal(t, time.Minute, s.Snapshot().Position(clock.Now()), "position is clamped to the duration")

	apply(ActionStop, func(cur Snapshot) (Snapshot, error) { return cur.Stop(clock.Now()) })
	assert.Zero(t, s.Snapshot().Position(clock.Now()))
}

func TestNextAndPrevious(t *testing.T) {
	s, clock := newTestState(t)
	now := clock.Now()

	_, err := s.Apply(ActionSetURI, func(cur Snapshot) (Snapshot, error) {
		return cur.SetURI(Media{URI: "http://example.com/a.mp4"}, now)
	})
	require.NoError(t, err)

	_, err = s.Apply(ActionNext, func(cur Snapshot) (Snapshot, error) { return cur.SkipNext(now) })
	assert.ErrorIs(t, err, ErrNoMedia)

	_, err = s.Apply(ActionSetNextURI, func(cur Snapshot) (Snapshot, error) {
		return cur.SetNextURI(Media{URI: "http://example.com/b.mp4"}, now)
	})
	require.NoError(t, err)

	snap, err := s.Apply(ActionNext, func(cur Snapshot) (Snapshot, error) { return cur.SkipNext(now) })
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/b.mp4", snap.Current.URI)
	assert.Equal(t, "http://example.com/a.mp4", snap.Previous.URI)
	assert.True(t, snap.Next.Empty())

	snap, err = s.Apply(ActionPrevious, func(cur Snapshot) (Snapshot, error) { return cur.SkipPrevious(now) })
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a.mp4", snap.Current.URI)
	assert.Equal(t, "http://example.com/b.mp4", snap.Next.URI)
}

func TestAvailableActions(t *testing.T) {
	a := Media{URI: "http://example.com/a.mp4"}
	b := Media{URI: "http://example.com/b.mp4"}

	assert.Empty(t, Snapshot{Transport: NoMediaPresent}.AvailableActions())
	assert.Equal(t, []string{ActionPlay, ActionStop, ActionSeek},
		Snapshot{Transport: Stopped, Current: a}.AvailableActions())
	assert.Equal(t, []string{ActionPlay, ActionStop, ActionSeek, ActionNext},
		Snapshot{Transport: Stopped, Current: a, Next: b}.AvailableActions())
	assert.Equal(t, []string{ActionPlay, ActionStop, ActionPause, ActionSeek, ActionPrevious},
		Snapshot{Transport: Playing, Current: b, Previous: a}.AvailableActions())
	assert.NotContains(t, Snapshot{Transport: PausedPlayback, Current: a}.AvailableActions(), ActionPause)
}

func TestConcurrentSetVolume(t *testing.T) {
	s, _ := newTestState(t)

	const callers = 64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, err := s.Apply("SetVolume", func(cur Snapshot) (Snapshot, error) {
				next, err := cur.SetVolume(Master, v)
				if err != nil {
					return cur, err
				}
				return next.SetVolume("LF", v)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.GreaterOrEqual(t, snap.Volume[Master], 0)
	assert.Less(t, snap.Volume[Master], callers)
	assert.Equal(t, snap.Volume[Master], snap.Volume["LF"], "both channels come from the same critical section")
}
