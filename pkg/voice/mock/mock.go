// Package mock provides test doubles for the voice package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/calliope-bot/calliope/pkg/voice"
)

// Compile-time interface assertions.
var (
	_ voice.Platform   = (*Platform)(nil)
	_ voice.Connection = (*Connection)(nil)
)

// ConnectCall records the arguments of one Platform.Connect invocation.
type ConnectCall struct {
	CommunityID string
	ChannelID   string
}

// Platform is a mock voice.Platform. Configure the Result fields before use
// and inspect the Calls fields afterwards.
type Platform struct {
	mu sync.Mutex

	// ConnectResult is returned by Connect when ConnectErr is nil. If left
	// nil a fresh Connection is created per call.
	ConnectResult *Connection
	// ConnectErr, when set, is returned by every Connect call.
	ConnectErr error
	// ConnectDelay, when set, blocks Connect until the channel is closed.
	ConnectDelay chan struct{}
	// LiveConnections backs HasLiveConnection.
	LiveConnections map[string]bool

	ConnectCalls []ConnectCall
	// Connections holds every connection handed out, in order.
	Connections []*Connection
}

func (p *Platform) Connect(ctx context.Context, communityID, channelID string) (voice.Connection, error) {
	p.mu.Lock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{CommunityID: communityID, ChannelID: channelID})
	delay := p.ConnectDelay
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	conn := p.ConnectResult
	if conn == nil {
		conn = &Connection{}
	}
	p.Connections = append(p.Connections, conn)
	return conn, nil
}

func (p *Platform) HasLiveConnection(communityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LiveConnections[communityID]
}

// Connection is a mock voice.Connection.
type Connection struct {
	mu sync.Mutex

	// DisconnectErr is returned by Disconnect.
	DisconnectErr error

	Sink                 voice.CaptureSink
	CallCountStopCapture int
	CallCountDisconnect  int

	completeCb   func()
	completeOnce sync.Once
}

func (c *Connection) AttachSink(sink voice.CaptureSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sink = sink
}

func (c *Connection) OnCaptureComplete(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completeCb = cb
}

func (c *Connection) StopCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountStopCapture++
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	return c.DisconnectErr
}

// EmitCaptureComplete fires the registered capture-complete callback
// synchronously. Subsequent calls are no-ops.
func (c *Connection) EmitCaptureComplete() {
	c.completeOnce.Do(func() {
		c.mu.Lock()
		cb := c.completeCb
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}
