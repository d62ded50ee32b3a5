// Package voice speaks text through an ordered list of providers, falling
// back to the next one whenever a provider fails.
package voice

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

type Provider interface {
	Name() string
	Speak(ctx context.Context, text string) error
}

type Chain struct {
	providers []Provider
}

// NewChain keeps the order given; nil providers are skipped.
func NewChain(providers ...Provider) *Chain {
	c := &Chain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

// Speak stops at the first provider that succeeds. Failures are logged and
// only returned when every provider failed.
func (c *Chain) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var errs []error
	for _, p := range c.providers {
		err := p.Speak(ctx, text)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Voice provider failed, falling back", "provider", p.Name(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	if len(errs) == 0 {
		return errors.New("no voice provider configured")
	}
	return errors.Join(errs...)
}
