package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id, from, to int
}

// Ducker fades PulseAudio sink inputs of other applications while the
// assistant is speaking. Streams whose application.name is listed in
// selfNames are left alone.
type Ducker struct {
	mu        sync.Mutex
	active    bool
	selfNames []string
	original  map[int]int
	minVolume int

	// pactl runs a pactl subcommand; replaced in tests.
	pactl func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		selfNames: append([]string(nil), selfNames...),
		original:  make(map[int]int),
		minVolume: clampVolume(minVolume),
		pactl: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

// DuckOthers scales every foreign stream to current*factor, but never
// below the configured minimum.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, in := range inputs {
		to := max(int(math.Round(float64(in.Volume)*factor)), d.minVolume)
		d.original[in.ID] = in.Volume
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: clampVolume(to)})
	}

	if err := d.fade(ctx, fades, duration); err != nil {
		return err
	}
	d.active = true
	return nil
}

// UnduckOthers restores the volumes saved by DuckOthers. Streams that
// appeared in between are not touched.
func (d *Ducker) UnduckOthers(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, in := range inputs {
		if orig, ok := d.original[in.ID]; ok {
			fades = append(fades, fade{id: in.ID, from: in.Volume, to: orig})
		}
	}

	if err := d.fade(ctx, fades, duration); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	var foreign []sinkInput
	for _, in := range parseSinkInputs(string(out)) {
		if !d.isSelf(in.AppName) {
			foreign = append(foreign, in)
		}
	}
	return foreign, nil
}

func (d *Ducker) isSelf(name string) bool {
	for _, n := range d.selfNames {
		if n == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fade(ctx context.Context, fades []fade, duration time.Duration) error {
	if len(fades) == 0 {
		return nil
	}

	steps := max(int(duration/(10*time.Millisecond)), 1)
	if duration <= 0 {
		steps = 0
	}

	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := 1.0
		if steps > 0 {
			frac = float64(i) / float64(steps)
		}
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if _, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(f.id), fmt.Sprintf("%d%%", clampVolume(v))); err != nil {
				return fmt.Errorf("set volume id=%d: %w", f.id, err)
			}
		}

		if i < steps {
			time.Sleep(duration / time.Duration(steps))
		}
	}
	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range parts[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			}

			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && in.AppName == "" {
				in.AppName = strings.Trim(rest, `"`)
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}
	return res
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}
