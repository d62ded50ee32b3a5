package audio

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "jarvisd"
Sink Input #oops
	Volume: front-left: 1 / 1%
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	assert.Equal(t, []sinkInput{
		{ID: 41, Volume: 100, AppName: "Firefox"},
		{ID: 42, Volume: 80, AppName: "jarvisd"},
	}, got)

	assert.Nil(t, parseSinkInputs(""))
}

type fakePactl struct {
	mu   sync.Mutex
	sets []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if args[0] == "list" {
		return []byte(sinkInputs), nil
	}
	f.sets = append(f.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestDuckerSkipsSelfAndRestores(t *testing.T) {
	p := &fakePactl{}
	d := NewDucker([]string{"jarvisd"}, 10)
	d.pactl = p.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.3, 0))
	assert.Equal(t, []string{"41 30%"}, p.sets)

	// A second duck while active is a no-op.
	require.NoError(t, d.DuckOthers(context.Background(), 0.3, 0))
	assert.Len(t, p.sets, 1)

	require.NoError(t, d.UnduckOthers(context.Background(), 0))
	assert.Equal(t, []string{"41 30%", "41 100%"}, p.sets)
}

func TestDuckerRespectsMinimum(t *testing.T) {
	p := &fakePactl{}
	d := NewDucker(nil, 90)
	d.pactl = p.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.1, 0))
	assert.ElementsMatch(t, []string{"41 90%", "42 90%"}, p.sets)
}
