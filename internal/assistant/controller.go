// Package assistant owns the assistant's mutable state: the command log, the
// listening state and the speaking counter. Everything is mutated on a single
// event-loop goroutine; readers get copies.
package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"jarvis/internal/command"
	"jarvis/internal/dispatch"
	"jarvis/internal/history"
	"jarvis/internal/speech"
	"jarvis/internal/voice"
)

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrStopped      = errors.New("assistant stopped")
	ErrNoRecognizer = errors.New("no speech recognizer available")
)

type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Cue plays a short sound when listening starts.
type Cue interface {
	Chime(ctx context.Context) error
}

type Config struct {
	Dispatcher *dispatch.Dispatcher
	// Voice, Recognizer, Notifier and Cue are optional.
	Voice          voice.Provider
	Recognizer     speech.Recognizer
	Notifier       Notifier
	Cue            Cue
	SpeakResponses bool
	Now            func() time.Time
}

type Snapshot struct {
	Commands       []history.Record `json:"commands"`
	State          string           `json:"state"`
	Interim        string           `json:"interim,omitempty"`
	Speaking       bool             `json:"speaking"`
	Bridge         bool             `json:"bridge"`
	SpeakResponses bool             `json:"speak_responses"`
}

// Update is pushed to subscribers after every state change. Notice is set
// for transient operator messages such as recognition errors.
type Update struct {
	Snapshot Snapshot
	Notice   string
}

type Controller struct {
	cfg  Config
	ops  chan func()
	done chan struct{}
	wg   sync.WaitGroup

	// Owned by the loop.
	ctx      context.Context
	log      *history.Log
	machine  speech.Machine
	speaking int
	// recognizer calls are chained so that Start and Stop run in order
	// without blocking the loop
	recDone chan struct{}

	mu   sync.Mutex
	subs map[chan Update]struct{}
}

func New(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = dispatch.New(dispatch.Unavailable(), nil)
	}

	recDone := make(chan struct{})
	close(recDone)

	return &Controller{
		cfg:     cfg,
		ops:     make(chan func()),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		log:     history.NewLog(),
		recDone: recDone,
		subs:    make(map[chan Update]struct{}),
	}
}

// Run processes events until ctx is done, then waits for in-flight
// dispatches and speech to return.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	log.Info("Assistant ready", "bridge", c.cfg.Dispatcher.Privileged(), "speak", c.cfg.SpeakResponses)

	defer func() {
		close(c.done)
		if c.machine.State() == speech.Listening && c.cfg.Recognizer != nil {
			c.cfg.Recognizer.Stop()
		}
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-c.ops:
			op()
		}
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	op := func() {
		fn()
		close(ran)
	}

	select {
	case c.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
	<-ran
	return nil
}

// post queues fn from a worker goroutine; it is dropped once the loop is
// gone.
func (c *Controller) post(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.done:
	}
}

// Submit records text as a new command and starts executing it. It returns
// the record ID without waiting for the result.
func (c *Controller) Submit(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCommand
	}

	var id string
	err := c.call(ctx, func() {
		id = c.startCommand(text)
	})
	return id, err
}

// Wait blocks until the record id reaches a terminal status.
func (c *Controller) Wait(ctx context.Context, id string) (history.Record, error) {
	updates, cancel := c.Subscribe()
	defer cancel()

	var rec history.Record
	var found bool
	if err := c.call(ctx, func() {
		rec, found = c.log.Get(id)
	}); err != nil {
		return history.Record{}, err
	}
	if !found {
		return history.Record{}, errors.New("unknown command id: " + id)
	}

	for !rec.Status.Terminal() {
		select {
		case u, ok := <-updates:
			if !ok {
				return rec, ErrStopped
			}
			for _, r := range u.Snapshot.Commands {
				if r.ID == id {
					rec = r
					break
				}
			}
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-c.done:
			return rec, ErrStopped
		}
	}
	return rec, nil
}

func (c *Controller) StartListening(ctx context.Context) error {
	return c.call(ctx, func() {
		c.handleSpeech(speech.Event{Kind: speech.Start})
	})
}

func (c *Controller) StopListening(ctx context.Context) error {
	return c.call(ctx, func() {
		c.handleSpeech(speech.Event{Kind: speech.Stop})
	})
}

// Recognition feeds a recognizer event into the listening state machine.
// It is the emit callback handed to speech.Recognizer.Start.
func (c *Controller) Recognition(ev speech.Event) {
	c.post(func() {
		c.handleSpeech(ev)
	})
}

// Say voices text regardless of the speak-responses setting.
func (c *Controller) Say(ctx context.Context, text string) error {
	if c.cfg.Voice == nil {
		return errors.New("no voice provider configured")
	}
	return c.call(ctx, func() {
		c.speak(text)
	})
}

func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.call(ctx, func() {
		s = c.snapshot()
	})
	return s, err
}

// Subscribe returns a channel of updates and a function to release it. A
// slow subscriber only ever misses intermediate updates, never the latest.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			close(ch)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) publish(notice string) {
	u := Update{Snapshot: c.snapshot(), Notice: notice}

	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.subs {
		select {
		case ch <- u:
			continue
		default:
		}
		// Full: drop the oldest update and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Commands:       c.log.Snapshot(),
		State:          c.machine.State().String(),
		Interim:        c.machine.Interim(),
		Speaking:       c.speaking > 0,
		Bridge:         c.cfg.Dispatcher.Privileged(),
		SpeakResponses: c.cfg.SpeakResponses,
	}
}

func (c *Controller) startCommand(text string) string {
	rec := history.NewRecord(text, c.cfg.Now())
	c.log.Append(rec)

	req := command.Interpret(text)
	log.Info("Command received", "id", rec.ID, "text", text, "action", req.Action)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.cfg.Dispatcher.Dispatch(c.ctx, req)
		c.post(func() {
			c.finishCommand(rec.ID, res)
		})
	}()

	c.publish("")
	return rec.ID
}

func (c *Controller) finishCommand(id string, res dispatch.Result) {
	status := history.Completed
	if res.Failed {
		status = history.Failed
	}

	if !c.log.Update(id, status, res.Message) {
		log.Warn("Refused update of finished command", "id", id)
		return
	}
	log.Info("Command finished", "id", id, "status", status, "response", res.Message)

	c.publish("")
	if c.cfg.SpeakResponses {
		c.speak(res.Message)
	}
}

func (c *Controller) speak(text string) {
	if c.cfg.Voice == nil || strings.TrimSpace(text) == "" {
		return
	}

	c.speaking++
	c.publish("")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.cfg.Voice.Speak(c.ctx, text); err != nil {
			log.Warn("Voice feedback failed", "err", err)
		}
		c.post(func() {
			c.speaking--
			c.publish("")
		})
	}()
}

func (c *Controller) handleSpeech(ev speech.Event) {
	eff := c.machine.Handle(ev)

	if eff.StartRecognizer {
		c.recognizer(func(ctx context.Context, r speech.Recognizer) {
			if c.cfg.Cue != nil {
				if err := c.cfg.Cue.Chime(ctx); err != nil {
					log.Debug("Failed to chime", "err", err)
				}
			}
			if err := r.Start(ctx, c.Recognition); err != nil {
				c.Recognition(speech.Event{Kind: speech.Error, Err: err})
			}
		})
		log.Info("Listening")
	}
	if eff.StopRecognizer {
		c.recognizer(func(_ context.Context, r speech.Recognizer) {
			if err := r.Stop(); err != nil {
				log.Warn("Failed to stop recognizer", "err", err)
			}
		})
		log.Info("Stopped listening")
	}
	if eff.Command != "" {
		c.startCommand(eff.Command)
	}
	if eff.Notice != "" {
		log.Warn("Recognition failed", "err", ev.Err)
		c.notify(eff.Notice)
	}

	c.publish(eff.Notice)
}

// recognizer runs fn after every previously queued recognizer call.
func (c *Controller) recognizer(fn func(ctx context.Context, r speech.Recognizer)) {
	prev := c.recDone
	next := make(chan struct{})
	c.recDone = next

	r := c.cfg.Recognizer
	ctx := c.ctx

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(next)
		<-prev

		if r == nil {
			c.Recognition(speech.Event{Kind: speech.Error, Err: ErrNoRecognizer})
			return
		}
		fn(ctx, r)
	}()
}

func (c *Controller) notify(body string) {
	if c.cfg.Notifier == nil {
		return
	}

	n := c.cfg.Notifier
	ctx := c.ctx

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := n.Notify(ctx, "Jarvis", body); err != nil {
			log.Debug("Failed to notify", "err", err)
		}
	}()
}
