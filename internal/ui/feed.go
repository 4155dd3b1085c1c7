package ui

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"crypto_dash/internal/chart"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/event"
)

// Message types pushed to feed clients.
const (
	MsgCoins        = "coins"
	MsgListMessage  = "list_message"
	MsgNotice       = "notice"
	MsgDetails      = "details"
	MsgChartTitle   = "chart_title"
	MsgChart        = "chart"
	MsgChartRemoved = "chart_removed"
	MsgError        = "error"
)

// snapshot slots replayed to newly connected clients, in order.
var replaySlots = []string{"list", MsgDetails, MsgChartTitle, MsgChart}

// Message is the JSON envelope of every feed frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ChartData is the wire form of a drawn chart.
type ChartData struct {
	ChartID   uint64    `json:"chart_id"`
	CoinID    string    `json:"coin_id"`
	CoinName  string    `json:"coin_name"`
	Currency  string    `json:"currency"`
	Timeframe int       `json:"timeframe"`
	Labels    []string  `json:"labels"`
	Values    []float64 `json:"values"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// Feed serves the dashboard over WebSocket. It is both a View and a chart
// Renderer: every update is broadcast as a JSON Message, and clients may send
// commands as {"type":"select","arg":"bitcoin"}.
type Feed struct {
	upgrader websocket.Upgrader
	submit   func(event.Command)

	mu       sync.RWMutex
	clients  map[*feedClient]struct{}
	snapshot map[string][]byte

	chartSeq atomic.Uint64

	ReadTimeout  time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

type feedClient struct {
	conn    *websocket.Conn
	send    chan []byte
	closeMu sync.Once
}

// NewFeed creates a feed that forwards inbound commands to submit.
func NewFeed(submit func(event.Command)) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		submit:       submit,
		clients:      make(map[*feedClient]struct{}),
		snapshot:     make(map[string][]byte),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   32,
	}
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Feed upgrade failed", slog.Any("error", err))
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, f.SendBuffer)}

	f.mu.Lock()
	for _, slot := range replaySlots {
		if msg, ok := f.snapshot[slot]; ok {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	slog.Info("Feed client connected", slog.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go f.writeLoop(c, done)
	f.readLoop(c)
	close(done)

	f.remove(c)
	slog.Info("Feed client disconnected", slog.String("remote", r.RemoteAddr))
}

func (f *Feed) readLoop(c *feedClient) {
	c.conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Feed read error", slog.Any("error", err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))

		cmd, err := event.DecodeCommand(msg)
		if err != nil {
			f.sendTo(c, Message{Type: MsgError, Data: err.Error()})
			continue
		}
		if f.submit != nil {
			f.submit(cmd)
		}
	}
}

func (f *Feed) writeLoop(c *feedClient, done <-chan struct{}) {
	var pingC <-chan time.Time
	if f.PingInterval > 0 {
		ticker := time.NewTicker(f.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("Feed write error", slog.Any("error", err))
				c.close()
				return
			}
		case <-pingC:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
}

func (c *feedClient) close() {
	c.closeMu.Do(func() {
		c.conn.Close()
	})
}

// Close disconnects every client.
func (f *Feed) Close() {
	f.mu.Lock()
	clients := f.clients
	f.clients = make(map[*feedClient]struct{})
	f.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (f *Feed) sendTo(c *feedClient, m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		slog.Error("Feed marshal failed", slog.Any("error", err))
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// broadcast sends m to every client and, when slot is set, keeps it for
// replay to clients that connect later. Slow clients are dropped.
func (f *Feed) broadcast(slot string, m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		slog.Error("Feed marshal failed", slog.String("type", m.Type), slog.Any("error", err))
		return
	}

	var slow []*feedClient
	f.mu.Lock()
	if slot != "" {
		f.snapshot[slot] = b
	}
	for c := range f.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
			delete(f.clients, c)
		}
	}
	f.mu.Unlock()

	for _, c := range slow {
		slog.Warn("Feed client too slow, dropping")
		c.close()
	}
}

func (f *Feed) ShowCoins(rows []engine.CoinRow) {
	if rows == nil {
		rows = []engine.CoinRow{}
	}
	f.broadcast("list", Message{Type: MsgCoins, Data: rows})
}

func (f *Feed) ShowListMessage(msg string) {
	f.broadcast("list", Message{Type: MsgListMessage, Data: msg})
}

func (f *Feed) ShowNotice(msg string) {
	f.broadcast("", Message{Type: MsgNotice, Data: msg})
}

func (f *Feed) ShowDetails(d engine.Details) {
	f.broadcast(MsgDetails, Message{Type: MsgDetails, Data: d})
}

func (f *Feed) SetTitle(title string) {
	f.broadcast(MsgChartTitle, Message{Type: MsgChartTitle, Data: title})
}

// Draw broadcasts the frame as a new chart. Destroying the returned handle
// tells clients to drop it.
func (f *Feed) Draw(fr chart.Frame) (chart.Handle, error) {
	id := f.chartSeq.Add(1)
	f.broadcast(MsgChart, Message{Type: MsgChart, Data: ChartData{
		ChartID:   id,
		CoinID:    fr.CoinID,
		CoinName:  fr.CoinName,
		Currency:  fr.Currency.Upper(),
		Timeframe: int(fr.Timeframe),
		Labels:    fr.Labels,
		Values:    fr.Values,
		Fallback:  fr.Fallback,
	}})
	return &feedChart{feed: f, id: id}, nil
}

type feedChart struct {
	feed *Feed
	id   uint64
	once sync.Once
}

func (h *feedChart) Destroy() {
	h.once.Do(func() {
		h.feed.mu.Lock()
		delete(h.feed.snapshot, MsgChart)
		h.feed.mu.Unlock()
		h.feed.broadcast("", Message{Type: MsgChartRemoved, Data: h.id})
	})
}
