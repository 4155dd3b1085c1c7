package ui

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crypto_dash/internal/chart"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/event"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func dialFeed(t *testing.T, feed *Feed) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(feed)
	conn, _, err := websocket.DefaultDialer.Dial(httpToWS(server.URL), nil)
	if err != nil {
		server.Close()
		t.Fatalf("Dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return f
}

func waitClients(t *testing.T, feed *Feed, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for feed.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, have %d", n, feed.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeed_ReplaysSnapshot(t *testing.T) {
	feed := NewFeed(nil)
	feed.ShowNotice("not replayed")
	feed.ShowListMessage("Loading coins...")
	feed.ShowCoins([]engine.CoinRow{{ID: "bitcoin", Name: "Bitcoin"}})
	feed.SetTitle("Bitcoin Price Chart (1D)")

	conn, cleanup := dialFeed(t, feed)
	defer cleanup()

	f := readFrame(t, conn)
	if f.Type != MsgCoins {
		t.Fatalf("Expected coins first, got %s", f.Type)
	}
	var rows []engine.CoinRow
	if err := json.Unmarshal(f.Data, &rows); err != nil || len(rows) != 1 || rows[0].ID != "bitcoin" {
		t.Errorf("Unexpected rows %s (err=%v)", f.Data, err)
	}

	f = readFrame(t, conn)
	if f.Type != MsgChartTitle || string(f.Data) != `"Bitcoin Price Chart (1D)"` {
		t.Errorf("Unexpected frame %s %s", f.Type, f.Data)
	}
}

func TestFeed_BroadcastsCharts(t *testing.T) {
	feed := NewFeed(nil)
	conn, cleanup := dialFeed(t, feed)
	defer cleanup()
	waitClients(t, feed, 1)

	h, err := feed.Draw(chart.Frame{
		CoinID:    "solana",
		CoinName:  "Solana",
		Currency:  domain.EUR,
		Timeframe: domain.Timeframe7D,
		Labels:    []string{"Jun 1", ""},
		Values:    []float64{150, 151.5},
		Fallback:  true,
	})
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	f := readFrame(t, conn)
	if f.Type != MsgChart {
		t.Fatalf("Expected chart, got %s", f.Type)
	}
	var data ChartData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("Bad chart payload: %v", err)
	}
	if data.ChartID != 1 || data.Currency != "EUR" || data.Timeframe != 7 || !data.Fallback || len(data.Values) != 2 {
		t.Errorf("Unexpected chart %+v", data)
	}

	h.Destroy()
	f = readFrame(t, conn)
	if f.Type != MsgChartRemoved || string(f.Data) != "1" {
		t.Errorf("Expected removal of chart 1, got %s %s", f.Type, f.Data)
	}

	feed.ShowNotice("Added to portfolio")
	if f = readFrame(t, conn); f.Type != MsgNotice {
		t.Errorf("Expected notice, got %s", f.Type)
	}
}

func TestFeed_InboundCommands(t *testing.T) {
	cmds := make(chan event.Command, 4)
	feed := NewFeed(func(c event.Command) { cmds <- c })
	conn, cleanup := dialFeed(t, feed)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "select", "arg": "bitcoin"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	select {
	case cmd := <-cmds:
		if cmd != (event.SelectCommand{CoinID: "bitcoin"}) {
			t.Errorf("Unexpected command %#v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Command not forwarded")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"launch"}`)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if f := readFrame(t, conn); f.Type != MsgError {
		t.Errorf("Expected error frame, got %s", f.Type)
	}
}

func TestFeed_DisconnectRemovesClient(t *testing.T) {
	feed := NewFeed(nil)
	conn, cleanup := dialFeed(t, feed)
	defer cleanup()
	waitClients(t, feed, 1)

	conn.Close()
	waitClients(t, feed, 0)
}

func TestFeed_CloseStopsWriterOnce(t *testing.T) {
	feed := NewFeed(nil)
	feed.PingInterval = 5 * time.Millisecond
	conn, cleanup := dialFeed(t, feed)
	defer cleanup()
	waitClients(t, feed, 1)

	feed.Close()
	waitClients(t, feed, 0)

	// Pings on the closed connection fail and must not close it again.
	time.Sleep(20 * time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected read error after feed close")
	}
}
