package hub

import (
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"homepage/pkg/envelope"

	"github.com/fasthttp/websocket"
)

var errWatcherClosed = errors.New("watcher closed")

// Watcher is a live-feed consumer: it dials a board's /ws endpoint and hands
// every envelope to a callback, reconnecting until closed.
type Watcher struct {
	feedURL   string
	retry     time.Duration
	keepAlive time.Duration
	conn      *websocket.Conn
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	onMessage func(envelope.Envelope)
}

// NewWatcher creates a watcher for feedURL, e.g. "ws://localhost:8082/ws".
// A positive keepAlive pings the server at that interval while connected.
func NewWatcher(feedURL string, retry, keepAlive time.Duration) *Watcher {
	if retry <= 0 {
		retry = 3 * time.Second
	}
	return &Watcher{
		feedURL:   feedURL,
		retry:     retry,
		keepAlive: keepAlive,
		done:      make(chan struct{}),
	}
}

func (w *Watcher) OnMessage(fn func(envelope.Envelope)) {
	w.onMessage = fn
}

// Run blocks until Close is called.
func (w *Watcher) Run() {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		conn, err := w.dial()
		if errors.Is(err, errWatcherClosed) {
			return
		}
		if err != nil {
			log.Printf("[WATCH] dial %s: %v, retry in %s", w.feedURL, err, w.retry)
			select {
			case <-w.done:
				return
			case <-time.After(w.retry):
			}
			continue
		}

		log.Printf("[WATCH] connected to %s", w.feedURL)
		stop := make(chan struct{})
		if w.keepAlive > 0 {
			go w.pingLoop(stop)
		}
		w.readLoop(conn)
		close(stop)
		log.Printf("[WATCH] disconnected")
	}
}

func (w *Watcher) dial() (*websocket.Conn, error) {
	u, err := url.Parse(w.feedURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// Close may have run while the handshake was in flight.
	select {
	case <-w.done:
		conn.Close()
		return nil, errWatcherClosed
	default:
	}
	w.conn = conn
	return conn, nil
}

func (w *Watcher) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.Ping(); err != nil {
				log.Printf("[WATCH] ping: %v", err)
				return
			}
		}
	}
}

func (w *Watcher) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := envelope.Unmarshal(raw)
		if err != nil {
			continue
		}
		if w.onMessage != nil {
			w.onMessage(env)
		}
	}
}

// Ping asks the server for a pong on the current connection.
func (w *Watcher) Ping() error {
	data, err := envelope.New("ping", "watcher").Marshal()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.conn != nil {
			w.conn.Close()
		}
		w.mu.Unlock()
	})
}
