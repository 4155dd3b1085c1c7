package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crypto_dash/internal/domain"
)

// Type defines the type of command.
type Type uint16

const (
	CmdSelect Type = iota + 1
	CmdCurrency
	CmdTimeframe
	CmdSearch
	CmdWatch
	CmdAddHolding
	CmdShowWatchlist
	CmdShowAll
	CmdPortfolio
	CmdRefresh
)

var typeNames = map[Type]string{
	CmdSelect:        "select",
	CmdCurrency:      "currency",
	CmdTimeframe:     "timeframe",
	CmdSearch:        "search",
	CmdWatch:         "watch",
	CmdAddHolding:    "add",
	CmdShowWatchlist: "watchlist",
	CmdShowAll:       "all",
	CmdPortfolio:     "portfolio",
	CmdRefresh:       "refresh",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// ErrUnknownCommand is returned for input that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a user action consumed by the controller.
type Command interface {
	GetType() Type
}

// SelectCommand makes a coin the current selection.
type SelectCommand struct {
	CoinID string `json:"coin_id"`
}

func (SelectCommand) GetType() Type { return CmdSelect }

// CurrencyCommand switches the display currency.
type CurrencyCommand struct {
	Currency domain.Currency `json:"currency"`
}

func (CurrencyCommand) GetType() Type { return CmdCurrency }

// TimeframeCommand switches the chart range.
type TimeframeCommand struct {
	Timeframe domain.Timeframe `json:"timeframe"`
}

func (TimeframeCommand) GetType() Type { return CmdTimeframe }

// SearchCommand filters the list by name or symbol. An empty query clears it.
type SearchCommand struct {
	Query string `json:"query"`
}

func (SearchCommand) GetType() Type { return CmdSearch }

// WatchCommand toggles a coin in the watchlist. An empty id means the
// current selection.
type WatchCommand struct {
	CoinID string `json:"coin_id"`
}

func (WatchCommand) GetType() Type { return CmdWatch }

// AddHoldingCommand adds a holding of the selected coin. Quantity is the raw
// user input and is validated by the portfolio.
type AddHoldingCommand struct {
	Quantity string `json:"quantity"`
}

func (AddHoldingCommand) GetType() Type { return CmdAddHolding }

type ShowWatchlistCommand struct{}

func (ShowWatchlistCommand) GetType() Type { return CmdShowWatchlist }

type ShowAllCommand struct{}

func (ShowAllCommand) GetType() Type { return CmdShowAll }

type PortfolioCommand struct{}

func (PortfolioCommand) GetType() Type { return CmdPortfolio }

type RefreshCommand struct{}

func (RefreshCommand) GetType() Type { return CmdRefresh }

// ParseCommand parses one line of the form "<name> [argument]".
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "select":
		if arg == "" {
			return nil, errors.New("select: coin id required")
		}
		return SelectCommand{CoinID: strings.ToLower(arg)}, nil
	case "currency":
		cur, err := domain.ParseCurrency(arg)
		if err != nil {
			return nil, err
		}
		return CurrencyCommand{Currency: cur}, nil
	case "timeframe":
		tf, err := domain.ParseTimeframe(arg)
		if err != nil {
			return nil, err
		}
		return TimeframeCommand{Timeframe: tf}, nil
	case "search":
		return SearchCommand{Query: arg}, nil
	case "watch":
		return WatchCommand{CoinID: strings.ToLower(arg)}, nil
	case "add":
		return AddHoldingCommand{Quantity: arg}, nil
	case "watchlist":
		return ShowWatchlistCommand{}, nil
	case "all":
		return ShowAllCommand{}, nil
	case "portfolio":
		return PortfolioCommand{}, nil
	case "refresh":
		return RefreshCommand{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// wireCommand is the JSON form sent by feed clients.
type wireCommand struct {
	Type string `json:"type"`
	Arg  string `json:"arg,omitempty"`
}

// DecodeCommand parses a JSON message such as {"type":"select","arg":"bitcoin"}.
func DecodeCommand(data []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if strings.ContainsAny(w.Type, " \t\n") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, w.Type)
	}
	return ParseCommand(w.Type + " " + w.Arg)
}
