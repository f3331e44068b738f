package webrtc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"

	"github.com/aadsdarts/spectators-videochat/internal/utils"
)

// packetWriter is the part of the pion media writers the sink uses.
type packetWriter interface {
	WriteRTP(packet *rtp.Packet) error
	Close() error
}

// TrackStats describes one remote track the sink is consuming.
type TrackStats struct {
	Slot          int
	ParticipantID string
	TrackID       string
	Kind          string
	MimeType      string
	File          string
	Packets       uint64
	Bytes         uint64
	Started       time.Time
	LastPacket    time.Time
	Ended         bool
}

// Bitrate is the average payload rate since the first packet.
func (s TrackStats) Bitrate() float64 {
	elapsed := s.LastPacket.Sub(s.Started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes*8) / elapsed
}

type trackRecorder struct {
	stats  TrackStats
	writer packetWriter
}

// Sink drains remote tracks so their receive buffers never back up,
// keeps per-track counters and, with a directory set, records VP8 to IVF
// and Opus to Ogg.
type Sink struct {
	dir   string
	clock clock.Clock
	log   *slog.Logger

	mu     sync.Mutex
	tracks map[string]*trackRecorder
	closed bool
}

// NewSink creates a sink. An empty dir disables recording.
func NewSink(dir string, clk clock.Clock, logger *slog.Logger) *Sink {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		dir:    dir,
		clock:  clk,
		log:    logger.With("component", "sink"),
		tracks: make(map[string]*trackRecorder),
	}
}

// Attach starts consuming track for the participant shown in slot.
// Attaching the same track again is a no-op.
func (s *Sink) Attach(slot int, participantID string, track *pion.TrackRemote) {
	if track == nil {
		return
	}
	codec := track.Codec()
	read := func() (*rtp.Packet, error) {
		pkt, _, err := track.ReadRTP()
		return pkt, err
	}
	s.consume(slot, participantID, track.ID(), track.Kind().String(), codec.MimeType, read)
}

func trackKey(participantID, trackID string) string {
	return participantID + "/" + trackID
}

func (s *Sink) consume(slot int, participantID, trackID, kind, mimeType string, read func() (*rtp.Packet, error)) {
	key := trackKey(participantID, trackID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.tracks[key]; ok {
		s.mu.Unlock()
		return
	}
	rec := &trackRecorder{stats: TrackStats{
		Slot:          slot,
		ParticipantID: participantID,
		TrackID:       trackID,
		Kind:          kind,
		MimeType:      mimeType,
	}}
	if s.dir != "" {
		w, path, err := s.openWriter(slot, participantID, mimeType)
		switch {
		case err != nil:
			s.log.Warn("recording disabled for track", "participant", participantID, "track", trackID, "error", err)
		case w != nil:
			rec.writer = w
			rec.stats.File = path
		}
	}
	s.tracks[key] = rec
	s.mu.Unlock()

	go s.drain(rec, read)
}

var errUnsupportedCodec = errors.New("codec not recordable")

func (s *Sink) openWriter(slot int, participantID, mimeType string) (packetWriter, string, error) {
	var ext string
	switch {
	case strings.EqualFold(mimeType, pion.MimeTypeVP8):
		ext = "ivf"
	case strings.EqualFold(mimeType, pion.MimeTypeOpus):
		ext = "ogg"
	default:
		return nil, "", fmt.Errorf("%w: %s", errUnsupportedCodec, mimeType)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("slot%d-%s.%s", slot+1, sanitize(participantID), ext)
	path := utils.UniqueFilename(filepath.Join(s.dir, name))

	if ext == "ivf" {
		w, err := ivfwriter.New(path)
		return w, path, err
	}
	w, err := oggwriter.New(path, 48000, 2)
	return w, path, err
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func (s *Sink) drain(rec *trackRecorder, read func() (*rtp.Packet, error)) {
	for {
		pkt, err := read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("track read ended", "track", rec.stats.TrackID, "error", err)
			}
			s.finish(rec)
			return
		}

		now := s.clock.Now()
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if rec.stats.Packets == 0 {
			rec.stats.Started = now
		}
		rec.stats.Packets++
		rec.stats.Bytes += uint64(len(pkt.Payload))
		rec.stats.LastPacket = now
		if rec.writer != nil {
			if err := rec.writer.WriteRTP(pkt); err != nil {
				s.log.Warn("recording stopped", "file", rec.stats.File, "error", err)
				_ = rec.writer.Close()
				rec.writer = nil
			}
		}
		s.mu.Unlock()
	}
}

func (s *Sink) finish(rec *trackRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.stats.Ended = true
	if rec.writer != nil {
		if err := rec.writer.Close(); err != nil {
			s.log.Warn("close recording", "file", rec.stats.File, "error", err)
		}
		rec.writer = nil
	}
}

// Snapshot returns the stats of every track, ordered by slot then track id.
func (s *Sink) Snapshot() []TrackStats {
	s.mu.Lock()
	out := make([]TrackStats, 0, len(s.tracks))
	for _, rec := range s.tracks {
		out = append(out, rec.stats)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].TrackID < out[j].TrackID
	})
	return out
}

// Close stops recording and closes every open file. Readers blocked on a
// track exit once its connection closes.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, rec := range s.tracks {
		if rec.writer != nil {
			errs = append(errs, rec.writer.Close())
			rec.writer = nil
		}
	}
	return errors.Join(errs...)
}
