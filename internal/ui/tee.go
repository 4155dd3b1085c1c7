package ui

import (
	"errors"

	"crypto_dash/internal/chart"
	"crypto_dash/internal/engine"
)

// Sink is a combined list view and chart renderer.
type Sink interface {
	engine.View
	chart.Renderer
}

// Tee fans every update out to several sinks.
type Tee []Sink

func (t Tee) ShowCoins(rows []engine.CoinRow) {
	for _, s := range t {
		s.ShowCoins(rows)
	}
}

func (t Tee) ShowListMessage(msg string) {
	for _, s := range t {
		s.ShowListMessage(msg)
	}
}

func (t Tee) ShowNotice(msg string) {
	for _, s := range t {
		s.ShowNotice(msg)
	}
}

func (t Tee) ShowDetails(d engine.Details) {
	for _, s := range t {
		s.ShowDetails(d)
	}
}

func (t Tee) SetTitle(title string) {
	for _, s := range t {
		s.SetTitle(title)
	}
}

// Draw draws on every sink. If any sink fails, charts already drawn are
// destroyed and the joined error is returned.
func (t Tee) Draw(f chart.Frame) (chart.Handle, error) {
	handles := make(teeHandle, 0, len(t))
	var errs []error
	for _, s := range t {
		h, err := s.Draw(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handles = append(handles, h)
	}
	if len(errs) > 0 {
		handles.Destroy()
		return nil, errors.Join(errs...)
	}
	return handles, nil
}

type teeHandle []chart.Handle

func (h teeHandle) Destroy() {
	for _, x := range h {
		x.Destroy()
	}
}
