// Package mpd wraps a Music Player Daemon client for the bar: blocking idle
// waits for the event bridges and status queries for rendering.
package mpd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultAddr is used when no address is configured.
const DefaultAddr = "127.0.0.1:6600"

var (
	// ErrClosed is returned by operations on a closed Conn.
	ErrClosed = errors.New("mpd: connection closed")

	// ErrNotPlaying is returned when a song is requested while the queue
	// has no current song.
	ErrNotPlaying = errors.New("mpd: nothing playing")
)

// Subsystem is an MPD idle subsystem name.
type Subsystem string

const (
	SubsystemDatabase       Subsystem = "database"
	SubsystemUpdate         Subsystem = "update"
	SubsystemStoredPlaylist Subsystem = "stored_playlist"
	SubsystemPlaylist       Subsystem = "playlist"
	SubsystemPlayer         Subsystem = "player"
	SubsystemMixer          Subsystem = "mixer"
	SubsystemOutput         Subsystem = "output"
	SubsystemOptions        Subsystem = "options"
	SubsystemPartition      Subsystem = "partition"
	SubsystemSticker        Subsystem = "sticker"
	SubsystemSubscription   Subsystem = "subscription"
	SubsystemMessage        Subsystem = "message"
)

var knownSubsystems = map[Subsystem]bool{
	SubsystemDatabase: true, SubsystemUpdate: true, SubsystemStoredPlaylist: true,
	SubsystemPlaylist: true, SubsystemPlayer: true, SubsystemMixer: true,
	SubsystemOutput: true, SubsystemOptions: true, SubsystemPartition: true,
	SubsystemSticker: true, SubsystemSubscription: true, SubsystemMessage: true,
}

// ParseSubsystem validates a subsystem name from configuration.
func ParseSubsystem(s string) (Subsystem, error) {
	sub := Subsystem(strings.ToLower(strings.TrimSpace(s)))
	if !knownSubsystems[sub] {
		return "", fmt.Errorf("unknown mpd subsystem %q", s)
	}
	return sub, nil
}

// State is the player state reported by status.
type State string

const (
	StatePlay  State = "play"
	StatePause State = "pause"
	StateStop  State = "stop"
)

// Playback is the part of MPD's status the bar renders. Elapsed and
// Duration are nil unless a song is playing.
type Playback struct {
	State    State
	Elapsed  *time.Duration
	Duration *time.Duration
	Volume   int
}

// Playing reports whether elapsed and duration are both known.
func (p Playback) Playing() bool {
	return p.Elapsed != nil && p.Duration != nil
}

// Song is the current song's tags. Missing tags are empty.
type Song struct {
	Artist string
	Title  string
	Album  string
	File   string
}

// Waiter blocks until one of the given subsystems changes.
type Waiter interface {
	Wait(subsystems ...Subsystem) ([]Subsystem, error)
}

// StatusProvider answers status queries without blocking on events.
type StatusProvider interface {
	PlaybackStatus() (Playback, error)
}

// SongProvider returns the current song.
type SongProvider interface {
	CurrentSong() (Song, error)
}

// parsePlayback converts a status attribute map. MPD before 0.20 only
// reports "time: <elapsed>:<total>" in whole seconds.
func parsePlayback(attrs map[string]string) (Playback, error) {
	pb := Playback{State: State(attrs["state"]), Volume: -1}
	if v, ok := attrs["volume"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			pb.Volume = n
		}
	}
	if pb.State != StatePlay {
		return pb, nil
	}

	elapsed, okE := attrs["elapsed"]
	duration, okD := attrs["duration"]
	if t, ok := attrs["time"]; ok && (!okE || !okD) {
		e, d, found := strings.Cut(t, ":")
		if found {
			if !okE {
				elapsed, okE = e, true
			}
			if !okD {
				duration, okD = d, true
			}
		}
	}
	if okE {
		d, err := parseSeconds(elapsed)
		if err != nil {
			return pb, fmt.Errorf("parse elapsed: %w", err)
		}
		pb.Elapsed = &d
	}
	if okD {
		d, err := parseSeconds(duration)
		if err != nil {
			return pb, fmt.Errorf("parse duration: %w", err)
		}
		pb.Duration = &d
	}
	return pb, nil
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

func parseSong(attrs map[string]string) (Song, error) {
	if len(attrs) == 0 {
		return Song{}, ErrNotPlaying
	}
	return Song{
		Artist: attrs["Artist"],
		Title:  attrs["Title"],
		Album:  attrs["Album"],
		File:   attrs["file"],
	}, nil
}
