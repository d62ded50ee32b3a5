package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/command"
	"jarvis/internal/dispatch"
	"jarvis/internal/history"
	"jarvis/internal/speech"
)

type fakeBridge struct {
	err error
}

func (f *fakeBridge) Do(_ context.Context, action command.Action, args map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Successfully did " + string(action), nil
}

// gatedBridge holds each action until its gate is closed.
type gatedBridge struct {
	started chan command.Action
	gates   map[command.Action]chan struct{}
}

func (g *gatedBridge) Do(ctx context.Context, action command.Action, _ map[string]string) (string, error) {
	g.started <- action
	select {
	case <-g.gates[action]:
		return "ok", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fakeVoice struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeVoice) Name() string { return "fake" }

func (f *fakeVoice) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeVoice) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeRecognizer struct {
	mu       sync.Mutex
	emit     func(speech.Event)
	starts   int
	stops    int
	startErr error
}

func (f *fakeRecognizer) Start(_ context.Context, emit func(speech.Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.emit = emit
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.emit = nil
	return nil
}

func (f *fakeRecognizer) send(ev speech.Event) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

func (f *fakeRecognizer) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type fakeNotifier struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeNotifier) Notify(_ context.Context, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func start(t *testing.T, cfg Config) *Controller {
	t.Helper()

	c := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func submitAndWait(t *testing.T, c *Controller, text string) history.Record {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := c.Submit(ctx, text)
	require.NoError(t, err)
	rec, err := c.Wait(ctx, id)
	require.NoError(t, err)
	return rec
}

func TestSubmitWithoutBridge(t *testing.T) {
	c := start(t, Config{})

	rec := submitAndWait(t, c, "open calculator")
	assert.Equal(t, history.Completed, rec.Status)
	assert.Equal(t, "Calculator command received - run the desktop bridge for full functionality", rec.Response)

	rec = submitAndWait(t, c, "Tell me a joke")
	assert.Equal(t, history.Completed, rec.Status)
	assert.Equal(t, `Command "Tell me a joke" processed. Limited system access without the desktop bridge.`, rec.Response)
	assert.Equal(t, "Tell me a joke", rec.Text)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Commands, 2)
	assert.Equal(t, "Tell me a joke", snap.Commands[0].Text, "most recent first")
	assert.Equal(t, "open calculator", snap.Commands[1].Text)
	assert.False(t, snap.Bridge)
	assert.Equal(t, "idle", snap.State)
}

func TestSubmitThroughBridge(t *testing.T) {
	t.Run("success reports the announcement", func(t *testing.T) {
		c := start(t, Config{Dispatcher: dispatch.New(dispatch.Available(&fakeBridge{}), nil)})

		rec := submitAndWait(t, c, "open calculator")
		assert.Equal(t, history.Completed, rec.Status)
		assert.Equal(t, "Opening Calculator", rec.Response)
	})

	t.Run("rejection becomes an error record", func(t *testing.T) {
		bridge := &fakeBridge{err: errors.New("unknown command: poweroff")}
		c := start(t, Config{Dispatcher: dispatch.New(dispatch.Available(bridge), nil)})

		rec := submitAndWait(t, c, "shutdown the computer")
		assert.Equal(t, history.Failed, rec.Status)
		assert.Equal(t, "unknown command: poweroff", rec.Response)
	})
}

func TestSubmitEmpty(t *testing.T) {
	c := start(t, Config{})

	_, err := c.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestSpeakResponses(t *testing.T) {
	v := &fakeVoice{}
	c := start(t, Config{Voice: v, SpeakResponses: true})

	submitAndWait(t, c, "open calculator")
	require.Eventually(t, func() bool { return len(v.spoken()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, v.spoken()[0], "Calculator command received")

	require.NoError(t, c.Say(context.Background(), "Hello"))
	require.Eventually(t, func() bool { return len(v.spoken()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Hello", v.spoken()[1])
}

func TestSilentWhenSpeakResponsesOff(t *testing.T) {
	v := &fakeVoice{}
	c := start(t, Config{Voice: v})

	submitAndWait(t, c, "open calculator")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, v.spoken())
}

func TestListeningCycle(t *testing.T) {
	r := &fakeRecognizer{}
	c := start(t, Config{Recognizer: r})

	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.StartListening(context.Background()))
	require.Eventually(t, func() bool { s, _ := r.counts(); return s == 1 }, time.Second, 5*time.Millisecond)

	r.send(speech.Event{Kind: speech.Interim, Text: "open calc"})
	require.Eventually(t, func() bool {
		snap, err := c.Snapshot(context.Background())
		return err == nil && snap.Interim == "open calc" && snap.State == "listening"
	}, time.Second, 5*time.Millisecond)

	r.send(speech.Event{Kind: speech.Final, Text: "open calculator"})
	require.Eventually(t, func() bool {
		snap, err := c.Snapshot(context.Background())
		return err == nil && len(snap.Commands) == 1 && snap.Commands[0].Status.Terminal()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.StopListening(context.Background()))
	require.Eventually(t, func() bool { _, s := r.counts(); return s == 1 }, time.Second, 5*time.Millisecond)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "idle", snap.State)
	assert.Empty(t, snap.Interim)
	assert.NotEmpty(t, updates)
}

func TestRecognitionError(t *testing.T) {
	r := &fakeRecognizer{}
	n := &fakeNotifier{}
	c := start(t, Config{Recognizer: r, Notifier: n})

	updates, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.StartListening(context.Background()))
	require.Eventually(t, func() bool { s, _ := r.counts(); return s == 1 }, time.Second, 5*time.Millisecond)

	r.send(speech.Event{Kind: speech.Error, Err: errors.New("not-allowed")})

	var notice string
	require.Eventually(t, func() bool {
		for {
			select {
			case u := <-updates:
				if u.Notice != "" {
					notice = u.Notice
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, notice, speech.RecognitionNotice)

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 5*time.Millisecond)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "idle", snap.State)
	assert.Empty(t, snap.Commands, "a recognition error creates no command")
}

func TestListeningWithoutRecognizer(t *testing.T) {
	c := start(t, Config{})

	require.NoError(t, c.StartListening(context.Background()))
	require.Eventually(t, func() bool {
		snap, err := c.Snapshot(context.Background())
		return err == nil && snap.State == "idle"
	}, time.Second, 5*time.Millisecond)
}

func TestRecognizerStartFailure(t *testing.T) {
	r := &fakeRecognizer{startErr: errors.New("no browser connected")}
	c := start(t, Config{Recognizer: r})

	require.NoError(t, c.StartListening(context.Background()))
	require.Eventually(t, func() bool {
		snap, err := c.Snapshot(context.Background())
		_, stops := r.counts()
		return err == nil && snap.State == "idle" && stops == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStoppedController(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))

	_, err := c.Submit(context.Background(), "open calculator")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestHandleControl(t *testing.T) {
	v := &fakeVoice{}
	c := start(t, Config{Voice: v})
	ctx := context.Background()

	resp := c.HandleControl(ctx, ControlRequest{Cmd: "submit", Text: "open calculator"})
	require.True(t, resp.OK, resp.Error)
	require.NotNil(t, resp.Record)
	assert.Equal(t, history.Completed, resp.Record.Status)

	resp = c.HandleControl(ctx, ControlRequest{Cmd: "history"})
	require.True(t, resp.OK)
	assert.Len(t, resp.Commands, 1)

	resp = c.HandleControl(ctx, ControlRequest{Cmd: "status"})
	require.True(t, resp.OK)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "idle", resp.Status.State)
	assert.Nil(t, resp.Status.Commands)

	resp = c.HandleControl(ctx, ControlRequest{Cmd: "speak", Text: "Hello"})
	require.True(t, resp.OK)

	resp = c.HandleControl(ctx, ControlRequest{Cmd: "submit", Text: ""})
	assert.False(t, resp.OK)
	assert.Equal(t, ErrEmptyCommand.Error(), resp.Error)

	resp = c.HandleControl(ctx, ControlRequest{Cmd: "dance"})
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown command: dance", resp.Error)
}

func TestOutOfOrderCompletionKeepsSubmissionOrder(t *testing.T) {
	bridge := &gatedBridge{
		started: make(chan command.Action, 2),
		gates: map[command.Action]chan struct{}{
			command.OpenApplication: make(chan struct{}),
			command.SystemCommand:   make(chan struct{}),
		},
	}
	c := start(t, Config{Dispatcher: dispatch.New(dispatch.Available(bridge), nil)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := c.Submit(ctx, "open calculator")
	require.NoError(t, err)
	second, err := c.Submit(ctx, "lock the computer")
	require.NoError(t, err)

	for range 2 {
		select {
		case <-bridge.started:
		case <-ctx.Done():
			t.Fatal("bridge not called")
		}
	}

	close(bridge.gates[command.SystemCommand])
	rec, err := c.Wait(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "Locking workstation", rec.Response)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Commands, 2)
	assert.Equal(t, second, snap.Commands[0].ID)
	assert.Equal(t, history.Completed, snap.Commands[0].Status)
	assert.Equal(t, first, snap.Commands[1].ID)
	assert.Equal(t, history.Processing, snap.Commands[1].Status)

	close(bridge.gates[command.OpenApplication])
	_, err = c.Wait(ctx, first)
	require.NoError(t, err)

	snap, err = c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, []string{snap.Commands[0].ID, snap.Commands[1].ID})
	assert.Equal(t, history.Completed, snap.Commands[1].Status)
}
