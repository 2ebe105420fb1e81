package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skycast-tui/skycast/internal/fetch"
)

func TestResolveIPLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":"Stockholm","latitude":59.3293,"longitude":18.0686,
			"country_name":"Sweden","country_code":"SE","region":"Stockholm County",
			"timezone":"Europe/Stockholm"}`))
	}))
	defer srv.Close()

	loc, err := New(nil).WithURL(srv.URL).ResolveIPLocation(context.Background())
	if err != nil {
		t.Fatalf("ResolveIPLocation: %v", err)
	}
	if loc.Name != "Stockholm" || loc.CountryISO != "SE" || loc.Admin1 != "Stockholm County" {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestResolveIPLocationRejectsMissingCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude":1.0,"longitude":2.0}`))
	}))
	defer srv.Close()

	_, err := New(nil).WithURL(srv.URL).ResolveIPLocation(context.Background())
	if err == nil {
		t.Fatal("expected error for response without city")
	}
	if kind := fetch.KindOf(err); kind != fetch.KindMalformed {
		t.Fatalf("error kind = %v, want malformed", kind)
	}
}

func TestResolveIPLocationUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(nil).WithURL(srv.URL).ResolveIPLocation(context.Background())
	if kind := fetch.KindOf(err); kind != fetch.KindUpstream {
		t.Fatalf("error kind = %v, want upstream", kind)
	}
}
