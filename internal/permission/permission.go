// Package permission answers capability requests from configuration, or by
// asking the user once and remembering the answer.
package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Avicted/farmchat/internal/media"
)

type Mode string

const (
	Granted Mode = "granted"
	Denied  Mode = "denied"
	Ask     Mode = "ask"
)

func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ask":
		return Ask, nil
	case "granted", "grant", "allow", "yes", "true":
		return Granted, nil
	case "denied", "deny", "no", "false":
		return Denied, nil
	default:
		return "", fmt.Errorf("invalid permission mode %q (expected: granted, denied, ask)", value)
	}
}

// Prompt asks the user whether to grant a capability.
type Prompt func(ctx context.Context, c media.Capability) (bool, error)

type Provider struct {
	prompt Prompt
	log    zerolog.Logger

	mu    sync.Mutex
	modes map[media.Capability]Mode
}

func New(modes map[media.Capability]Mode, prompt Prompt, log zerolog.Logger) *Provider {
	copied := make(map[media.Capability]Mode, len(modes))
	for c, m := range modes {
		copied[c] = m
	}
	return &Provider{
		prompt: prompt,
		log:    log.With().Str("component", "permission").Logger(),
		modes:  copied,
	}
}

func (p *Provider) Request(ctx context.Context, c media.Capability) (bool, error) {
	p.mu.Lock()
	mode, ok := p.modes[c]
	p.mu.Unlock()
	if !ok {
		mode = Ask
	}

	switch mode {
	case Granted:
		return true, nil
	case Denied:
		return false, nil
	}

	if p.prompt == nil {
		return false, nil
	}
	granted, err := p.prompt(ctx, c)
	if err != nil {
		return false, fmt.Errorf("prompt for %s: %w", c, err)
	}

	answer := Denied
	if granted {
		answer = Granted
	}
	p.mu.Lock()
	p.modes[c] = answer
	p.mu.Unlock()
	p.log.Info().Stringer("capability", c).Str("answer", string(answer)).Msg("permission answered")
	return granted, nil
}

// Mode reports the current mode for a capability.
func (p *Provider) Mode(c media.Capability) Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.modes[c]; ok {
		return m
	}
	return Ask
}
