package discord

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/calliope-bot/calliope/pkg/voice"
)

// Compile-time interface assertion.
var _ voice.Connection = (*Connection)(nil)

const (
	// captureDrainWindow is how long after StopCapture the connection keeps
	// delivering buffered packets before declaring capture complete.
	captureDrainWindow = 1 * time.Second

	// keepaliveInterval is how often a silence frame is sent while connected.
	keepaliveInterval = 20 * time.Millisecond
)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [voice.Connection] interface. It demuxes incoming Opus packets by SSRC,
// decodes each stream to PCM, and appends the decoded chunks to the
// attached capture sink.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc      *discordgo.VoiceConnection
	guildID string

	mu         sync.Mutex
	sink       voice.CaptureSink
	completeCb func()
	completed  bool

	stopCh   chan struct{}
	stopOnce sync.Once

	completeOnce sync.Once

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC tears down the voice connection during Disconnect.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error

	keepalive bool
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the background receive and keepalive goroutines.
func newConnection(vc *discordgo.VoiceConnection, guildID string, keepalive bool) (*Connection, error) {
	c := &Connection{
		vc:           vc,
		guildID:      guildID,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
		keepalive:    keepalive,
	}

	go c.recvLoop()
	if keepalive {
		go c.keepaliveLoop()
	}

	return c, nil
}

// AttachSink wires sink into the audio pipeline. Decoded chunks are delivered
// to it until StopCapture is called.
func (c *Connection) AttachSink(sink voice.CaptureSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// OnCaptureComplete registers cb to fire once all buffered audio has been
// delivered after StopCapture. If capture already completed before the
// callback was registered, it fires immediately.
func (c *Connection) OnCaptureComplete(cb func()) {
	c.mu.Lock()
	c.completeCb = cb
	fire := c.completed
	c.mu.Unlock()
	if fire {
		c.completeOnce.Do(func() { go cb() })
	}
}

// StopCapture stops feeding audio into the sink after a short drain window.
// Safe to call more than once.
func (c *Connection) StopCapture() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// Disconnect tears down the voice connection and stops the background
// goroutines. A pending capture-complete callback still fires. Safe to call
// more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// recvLoop reads Opus packets from the Discord voice connection, demuxes them
// by SSRC, decodes Opus to PCM, and appends the result to the attached sink.
// After StopCapture it keeps draining buffered packets for [captureDrainWindow]
// before firing the capture-complete callback.
func (c *Connection) recvLoop() {
	decoders := make(map[uint32]*opusDecoder)

	stopCh := c.stopCh
	var drainDeadline <-chan time.Time

	for {
		select {
		case <-c.done:
			c.fireComplete()
			return

		case <-stopCh:
			// Entered drain mode: keep consuming buffered packets briefly.
			stopCh = nil // select never fires on a nil channel
			timer := time.NewTimer(captureDrainWindow)
			defer timer.Stop()
			drainDeadline = timer.C

		case <-drainDeadline:
			c.fireComplete()
			return

		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				c.fireComplete()
				return
			}
			if pkt == nil {
				continue
			}
			c.deliver(decoders, pkt)
		}
	}
}

// deliver decodes one packet and appends it to the sink, creating a decoder
// for the packet's SSRC on first sight.
func (c *Connection) deliver(decoders map[uint32]*opusDecoder, pkt *discordgo.Packet) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}

	ssrc := pkt.SSRC
	speakerID := strconv.FormatUint(uint64(ssrc), 10)

	dec, exists := decoders[ssrc]
	if !exists {
		var err error
		dec, err = newOpusDecoder()
		if err != nil {
			slog.Error("discord: failed to create opus decoder", "ssrc", speakerID, "error", err)
			return
		}
		decoders[ssrc] = dec
	}

	pcm, err := dec.decode(pkt.Opus)
	if err != nil {
		slog.Warn("discord: opus decode error", "ssrc", speakerID, "error", err)
		return
	}

	sink.Append(speakerID, pcm)
}

// keepaliveLoop periodically sends an Opus silence frame so Discord keeps the
// UDP voice stream alive while the bot is connected but not speaking.
func (c *Connection) keepaliveLoop() {
	c.setSpeaking(true)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.setSpeaking(false)
			return
		case <-ticker.C:
			select {
			case c.vc.OpusSend <- silenceFrame:
			case <-c.done:
				c.setSpeaking(false)
				return
			default:
				// Send buffer full — skip this tick.
			}
		}
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}

// fireComplete invokes the registered capture-complete callback exactly once.
// If no callback is registered yet, completion is remembered and delivered on
// registration.
func (c *Connection) fireComplete() {
	c.mu.Lock()
	c.completed = true
	cb := c.completeCb
	c.mu.Unlock()
	if cb != nil {
		c.completeOnce.Do(func() { go cb() })
	}
}
