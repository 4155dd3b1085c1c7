package engine

import (
	"sync"
	"time"

	"crypto_dash/internal/domain"
)

// ListMode selects which coins the list shows.
type ListMode int

const (
	ListAll ListMode = iota
	ListWatchlist
)

func (m ListMode) String() string {
	if m == ListWatchlist {
		return "watchlist"
	}
	return "all"
}

// Session is the dashboard state shared by the controller, the chart
// pipeline and background refreshes.
type Session struct {
	mu sync.RWMutex

	coins     []domain.Coin
	fetchedAt time.Time

	selectedID   string
	selectedName string
	currency     domain.Currency
	timeframe    domain.Timeframe
	query        string
	mode         ListMode
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	SelectedID   string           `json:"selected_id"`
	SelectedName string           `json:"selected_name"`
	Currency     domain.Currency  `json:"currency"`
	Timeframe    domain.Timeframe `json:"timeframe"`
	Query        string           `json:"query"`
	Mode         string           `json:"mode"`
	CoinCount    int              `json:"coin_count"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

func NewSession(cur domain.Currency, tf domain.Timeframe) *Session {
	return &Session{currency: cur, timeframe: tf}
}

// Coins returns the current coin collection. SetCoins replaces the slice
// wholesale, so the result is a stable snapshot.
func (s *Session) Coins() []domain.Coin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coins
}

// SetCoins replaces the coin collection. Last write wins.
func (s *Session) SetCoins(coins []domain.Coin, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coins = coins
	s.fetchedAt = at
}

func (s *Session) Selection() (id, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID, s.selectedName
}

func (s *Session) Select(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
	s.selectedName = name
}

// SelectFirstIfEmpty selects the first coin when nothing is selected yet.
func (s *Session) SelectFirstIfEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID != "" || len(s.coins) == 0 {
		return false
	}
	s.selectedID = s.coins[0].ID
	s.selectedName = s.coins[0].Name
	return true
}

func (s *Session) Currency() domain.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

func (s *Session) SetCurrency(c domain.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currency = c
}

func (s *Session) Timeframe() domain.Timeframe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeframe
}

func (s *Session) SetTimeframe(tf domain.Timeframe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeframe = tf
}

func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

func (s *Session) Mode() ListMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) SetMode(m ListMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Snapshot returns a copy of the session for reporting.
func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{
		SelectedID:   s.selectedID,
		SelectedName: s.selectedName,
		Currency:     s.currency,
		Timeframe:    s.timeframe,
		Query:        s.query,
		Mode:         s.mode.String(),
		CoinCount:    len(s.coins),
		FetchedAt:    s.fetchedAt,
	}
}
