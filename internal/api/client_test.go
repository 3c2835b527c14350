package api

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/folderlink/folderlink/internal/config"
	"github.com/folderlink/folderlink/internal/logging"
	"github.com/folderlink/folderlink/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.New()
	cfg.RetryMax = 0
	cfg.RequestTimeout = 5 * time.Second
	client, err := NewClient(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func serveBody(status int, body string) *httptest.Server {
	return httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

// TestNewClientRejectsEmptyBaseURL verifies NewClient fails with a clear error
// when APIBaseURL is empty.
func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.New()
	cfg.APIBaseURL = ""

	_, err := NewClient(cfg, nil)
	if err == nil {
		t.Fatal("NewClient() should return error for empty APIBaseURL")
	}
	if !strings.Contains(err.Error(), "API base URL is empty") {
		t.Errorf("NewClient() error = %q, want error containing 'API base URL is empty'", err.Error())
	}
}

func TestFetchSuccess(t *testing.T) {
	server := serveBody(200, `{"status":"success","data":[
		{"filename":"Sub","is_folder":true,"links":{"browse":"B1"}},
		{"filename":"a.mp4","is_folder":false,"size_mb":"12.5","links":{"proxy":"P1"}}
	]}`)
	defer server.Close()

	listing, err := newTestClient(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if listing.Status != "success" {
		t.Errorf("Status = %q, want success", listing.Status)
	}
	if len(listing.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(listing.Entries))
	}
	if listing.Entries[0].BrowseLocation() != "B1" {
		t.Errorf("browse = %q, want B1", listing.Entries[0].BrowseLocation())
	}
	if listing.Entries[1].Size() != "12.5" {
		t.Errorf("size = %q, want 12.5", listing.Entries[1].Size())
	}
	if err := listing.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestFetchReturnsNonSuccessListing(t *testing.T) {
	server := serveBody(200, `{"status":"error","data":null}`)
	defer server.Close()

	listing, err := newTestClient(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want decoded listing", err)
	}

	var be *models.BusinessError
	if !errors.As(listing.Err(), &be) {
		t.Fatalf("Err() = %v, want *models.BusinessError", listing.Err())
	}
}

func TestFetchServerErrorBodyStillDecoded(t *testing.T) {
	server := serveBody(500, `{"status":"error"}`)
	defer server.Close()

	listing, err := newTestClient(t).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want listing", err)
	}
	if listing.Status != "error" {
		t.Errorf("Status = %q, want error", listing.Status)
	}
}

func TestFetchDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing status", `{"data":[]}`},
		{"array body", `[1,2,3]`},
		{"null body", `null`},
		{"data not array", `{"status":"success","data":"nope"}`},
		{"status not string", `{"status":1,"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serveBody(200, tt.body)
			defer server.Close()

			_, err := newTestClient(t).Fetch(context.Background(), server.URL)
			if !IsDecodeError(err) {
				t.Errorf("Fetch() error = %v, want decode FetchError", err)
			}
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := serveBody(200, `{}`)
	url := server.URL
	server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), url)
	if !IsTransportError(err) {
		t.Fatalf("Fetch() error = %v, want transport FetchError", err)
	}

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Location != url {
		t.Errorf("FetchError location = %v, want %q", fe, url)
	}
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(t).Fetch(ctx, server.URL)
	if !IsTransportError(err) {
		t.Fatalf("Fetch() error = %v, want transport FetchError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestComposeRootLocation(t *testing.T) {
	const base = "https://api.test/?url="
	const prefix = "https://share.test/s/"

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"share code", "abc123", base + prefix + "abc123", nil},
		{"full link", "https://share.test/s/xyz", base + "https://share.test/s/xyz", nil},
		{"trimmed", "  abc  ", base + prefix + "abc", nil},
		{"invisible chars", "\u200Babc\uFEFF", base + prefix + "abc", nil},
		{"empty", "   ", "", ErrEmptyInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComposeRootLocation(base, prefix, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ComposeRootLocation() = %q, want %q", got, tt.want)
			}
		})
	}
}
