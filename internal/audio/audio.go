// Package audio records and plays voice notes on the default sound devices.
// Notes are stored as Ogg Opus files, 48kHz mono.
package audio

const (
	SampleRate = 48000
	Channels   = 1
)
