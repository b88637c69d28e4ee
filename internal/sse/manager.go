package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scanlytics/scanlytics-server/internal/id"
)

// ErrClosed is returned by Connect once the manager has shut down.
var ErrClosed = errors.New("sse manager closed")

const (
	defaultQueueSize   = 1000
	defaultClientQueue = 100
	defaultHeartbeat   = 30 * time.Second
)

// Emitter queues events for delivery. Services depend on this rather than
// on the Manager.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// Client is one open stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	// UserID limits delivery to that owner's events plus broadcasts.
	UserID string
}

func (c *Client) close() {
	close(c.Done)
	close(c.EventChan)
}

// Manager fans queued events out to connected clients.
type Manager struct {
	logger    *slog.Logger
	queue     chan Event
	heartbeat time.Duration
	loop      sync.WaitGroup
	dropped   atomic.Int64

	// mu guards clients, started and closed. Emit sends on queue under the
	// read lock and Shutdown closes it under the write lock.
	mu      sync.RWMutex
	clients map[string]*Client
	started bool
	closed  bool
}

var _ Emitter = (*Manager)(nil)

// NewManager returns a manager with a 1000-event queue and a 30s heartbeat.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		logger:    logger,
		queue:     make(chan Event, defaultQueueSize),
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]*Client),
	}
}

// Start launches the fan-out loop in its own goroutine and returns. The loop
// runs until ctx is cancelled or Shutdown closes the queue. Only the first
// call has an effect.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	// Add before unlocking so a concurrent Shutdown always waits for run.
	m.loop.Add(1)
	m.mu.Unlock()

	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.loop.Done()

	m.logger.Info("live feed started")

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("live feed stopping")
			m.disconnectAll()
			return
		case <-ticker.C:
			m.deliver(NewHeartbeatEvent())
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.deliver(event)
		}
	}
}

// Shutdown refuses new events, delivers whatever is still queued (bounded
// by ctx) and then closes every client. Repeated calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range m.queue {
			m.deliver(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("live feed shutdown timed out, queued events lost")
	}

	m.loop.Wait()
	m.disconnectAll()
	m.logger.Info("live feed stopped", slog.Int64("dropped_events", m.dropped.Load()))
	return nil
}

// deliver hands event to each addressed client without blocking; a client
// whose buffer is full misses the event.
func (m *Manager) deliver(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent, skipped := 0, 0
	for _, c := range m.clients {
		if !event.deliverableTo(c.UserID) {
			continue
		}
		select {
		case c.EventChan <- event:
			sent++
		default:
			skipped++
			m.dropped.Add(1)
		}
	}

	if skipped > 0 {
		m.logger.Warn("slow clients missed an event",
			slog.String("event_type", string(event.Type)),
			slog.Int("clients", skipped))
	}
	if event.Type != EventHeartbeat {
		m.logger.Debug("event delivered",
			slog.String("event_type", string(event.Type)),
			slog.Int("clients", sent))
	}
}

// Connect opens a stream for userID.
func (m *Manager) Connect(userID string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		UserID:      userID,
		EventChan:   make(chan Event, defaultClientQueue),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.clients[clientID] = c
	open := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("live feed client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
		slog.Int("clients", open))
	return c, nil
}

// Disconnect closes the client with clientID. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	open := len(m.clients)
	m.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	m.logger.Info("live feed client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("connected_for", time.Since(c.ConnectedAt)),
		slog.Int("clients", open))
}

// Emit queues event. It never blocks: after Shutdown, or with a full queue,
// the event is discarded.
func (m *Manager) Emit(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- event:
	default:
		m.dropped.Add(1)
		m.logger.Error("live feed queue full, event discarded",
			slog.String("event_type", string(event.Type)))
	}
}

// ClientCount reports how many streams are open.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Dropped reports how many events were discarded, either because the queue
// was full or because a client could not keep up.
func (m *Manager) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Manager) disconnectAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
