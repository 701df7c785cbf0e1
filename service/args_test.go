package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"0:00:00", 0, true},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"00:10:05.5", 10*time.Minute + 5*time.Second + 500*time.Millisecond, true},
		{"0:00:01.1/4", time.Second + 250*time.Millisecond, true},
		{"120:00:00", 120 * time.Hour, true},
		{"", 0, false},
		{"10", 0, false},
		{"0:60:00", 0, false},
		{"0:1:00", 0, false},
		{"0:00:61", 0, false},
		{"0:00:01.5e3", 0, false},
		{"0:00:01.4/4", 0, false},
		{"-1:00:00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", formatDuration(0))
	assert.Equal(t, "0:00:00", formatDuration(-time.Second))
	assert.Equal(t, "0:01:15", formatDuration(75*time.Second+400*time.Millisecond))
	assert.Equal(t, "26:03:04", formatDuration(26*time.Hour+3*time.Minute+4*time.Second))
}

func TestBoolean(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes"} {
		b, err := boolean(v)
		require.NoError(t, err)
		assert.True(t, b, v)
	}
	for _, v := range []string{"0", "false", "No"} {
		b, err := boolean(v)
		require.NoError(t, err)
		assert.False(t, b, v)
	}
	_, err := boolean("2")
	assert.Error(t, err)
}

func TestProbeable(t *testing.T) {
	for uri, want := range map[string]bool{
		"http://example.com/a.mp4":      true,
		"HTTPS://example.com/a.mp4":     true,
		"file:///etc/shadow":            false,
		"concat:/etc/passwd|/etc/hosts": false,
		"subfile:,start,0,end,0,:a.mp4": false,
		"http:///no-host":               false,
		"rtmp://live.example.com/app":   false,
	} {
		assert.Equal(t, want, probeable(uri), uri)
	}
}
