package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto_dash/internal/domain"
)

func TestExchangeRateClient_FetchRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/secret/latest/USD" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":"success","base_code":"USD","conversion_rates":{"USD":1,"EUR":0.92,"INR":83.1,"GBP":0.79,"JPY":151.2,"CHF":0.9}}`))
	}))
	defer server.Close()

	client := NewExchangeRateClient(server.URL+"/v6", "secret", time.Second)
	rates, err := client.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates failed: %v", err)
	}

	if len(rates) != 4 {
		t.Fatalf("expected 4 display rates, got %d: %v", len(rates), rates)
	}
	if rates[domain.EUR].String() != "0.92" {
		t.Errorf("EUR rate = %s", rates[domain.EUR])
	}
	if _, ok := rates[domain.USD]; ok {
		t.Error("base currency must not be part of the rate table")
	}
}

func TestExchangeRateClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"http error", http.StatusForbidden, `{}`, nil},
		{"api error", http.StatusOK, `{"result":"error","error-type":"invalid-key"}`, nil},
		{"no usable rates", http.StatusOK, `{"result":"success","conversion_rates":{"CHF":0.9}}`, domain.ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewExchangeRateClient(server.URL, "k", time.Second).FetchRates(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			var httpErr *domain.HTTPError
			if tt.status != http.StatusOK && !errors.As(err, &httpErr) {
				t.Errorf("expected HTTPError, got %v", err)
			}
		})
	}
}

func TestExchangeRateClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	_, err := NewExchangeRateClient(server.URL, "k", 20*time.Millisecond).FetchRates(context.Background())
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
