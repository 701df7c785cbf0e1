package transcoder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `codec_name=h264
codec_type=video
codec_name=aac
codec_type=audio
codec_name=ac3
codec_type=audio
duration=3725.480000
`

func TestParseProbeOutput(t *testing.T) {
	info := parseProbeOutput([]byte(sampleOutput))
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.InDelta(t, 3725.48, info.Duration, 0.001)

	info = parseProbeOutput([]byte("codec_name=mp3\ncodec_type=audio\nduration=N/A\n"))
	assert.Equal(t, "mp3", info.AudioCodec)
	assert.Empty(t, info.VideoCodec)
	assert.Zero(t, info.Duration)
}

func TestProbeUsesCache(t *testing.T) {
	var calls atomic.Int32
	var gotArgs []string
	p := NewProber(Options{Runner: func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls.Add(1)
		assert.Equal(t, "ffprobe", name)
		gotArgs = args
		return []byte(sampleOutput), nil
	}})

	info, err := p.Probe(context.Background(), "http://example.com/a.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 3725.48, info.Duration, 0.001)
	assert.Equal(t, "http://example.com/a.mp4", gotArgs[len(gotArgs)-1])
	assert.Subset(t, gotArgs, []string{"-protocol_whitelist", "http,https,tcp,tls"})

	_, err = p.Probe(context.Background(), "http://example.com/a.mp4")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	p.Cleanup()
	_, err = p.Probe(context.Background(), "http://example.com/a.mp4")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestProbeCacheExpiry(t *testing.T) {
	var calls atomic.Int32
	p := NewProber(Options{CacheTTL: time.Minute, Runner: func(context.Context, string, ...string) ([]byte, error) {
		calls.Add(1)
		return []byte(sampleOutput), nil
	}})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.Probe(context.Background(), "http://example.com/a.mp4")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = p.Probe(context.Background(), "http://example.com/a.mp4")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestProbeErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	p := NewProber(Options{Runner: func(context.Context, string, ...string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("exit status 1")
	}})

	_, err := p.Probe(context.Background(), "http://example.com/missing.mp4")
	assert.Error(t, err)
	_, err = p.Probe(context.Background(), "http://example.com/missing.mp4")
	assert.Error(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestProbeConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	p := NewProber(Options{MaxConcurrent: 2, Runner: func(context.Context, string, ...string) ([]byte, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return []byte(sampleOutput), nil
	}})

	var wg sync.WaitGroup
	for _, uri := range []string{"a", "b", "c", "d", "e"} {
		wg.Add(1)
		go func(uri string) {
			defer wg.Done()
			_, err := p.Probe(context.Background(), "http://example.com/"+uri)
			assert.NoError(t, err)
		}(uri)
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 2, peak.Load())
}

func TestProbeHonoursContext(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	defer close(block)
	p := NewProber(Options{MaxConcurrent: 1, Runner: func(context.Context, string, ...string) ([]byte, error) {
		close(started)
		<-block
		return nil, nil
	}})

	go func() { _, _ = p.Probe(context.Background(), "http://example.com/slow.mp4") }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Probe(ctx, "http://example.com/other.mp4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
