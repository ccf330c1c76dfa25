package media

import (
	"context"
	"fmt"

	"github.com/Avicted/farmchat/internal/message"
)

// PlayAudio toggles playback of a voice message. Any active playback is torn
// down first. When it belonged to the same message nothing new starts.
func (c *Controller) PlayAudio(ctx context.Context, ref string, id message.ID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.playback
	c.playback = nil
	c.mu.Unlock()

	if prev != nil {
		c.unload(prev)
		if prev.messageID == id {
			return nil
		}
	}

	if c.player == nil {
		c.alert(playbackFailedAlert)
		return fmt.Errorf("play %s: %w: no audio output", id, ErrPlayback)
	}
	sound, err := c.player.Load(ctx, ref)
	if err != nil {
		c.log.Warn().Err(err).Str("id", string(id)).Msg("load audio failed")
		c.alert(playbackFailedAlert)
		return fmt.Errorf("play %s: %w: %w", id, ErrPlayback, err)
	}

	sess := &playbackSession{messageID: id, sound: sound}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sound.Unload()
		return ErrClosed
	}
	other := c.playback
	c.playback = sess
	c.mu.Unlock()
	if other != nil {
		c.unload(other)
	}

	sound.OnComplete(func() { c.finishPlayback(sess) })
	if err := sound.Play(); err != nil {
		c.mu.Lock()
		if c.playback == sess {
			c.playback = nil
		}
		c.mu.Unlock()
		_ = sound.Unload()
		c.log.Warn().Err(err).Str("id", string(id)).Msg("play audio failed")
		c.alert(playbackFailedAlert)
		return fmt.Errorf("play %s: %w: %w", id, ErrPlayback, err)
	}

	c.mu.Lock()
	current := c.playback == sess
	c.mu.Unlock()
	if current {
		c.notifyPlayback(id, true)
	}
	return nil
}

// Playing returns the message whose audio is currently audible.
func (c *Controller) Playing() (message.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playback == nil {
		return "", false
	}
	return c.playback.messageID, true
}

func (c *Controller) finishPlayback(sess *playbackSession) {
	c.mu.Lock()
	if c.playback != sess {
		c.mu.Unlock()
		return
	}
	c.playback = nil
	c.mu.Unlock()
	c.unload(sess)
}

func (c *Controller) unload(sess *playbackSession) {
	if err := sess.sound.Unload(); err != nil {
		c.log.Warn().Err(err).Str("id", string(sess.messageID)).Msg("unload audio failed")
	}
	c.notifyPlayback(sess.messageID, false)
}

func (c *Controller) notifyPlayback(id message.ID, playing bool) {
	c.mu.Lock()
	listeners := append([]func(message.ID, bool){}, c.playbackListeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(id, playing)
	}
}
