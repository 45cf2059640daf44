// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLookupWebsocketPrefersJSON(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != hostMetaJSONPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"links":[{"rel":"urn:xmpp:alt-connections:websocket","href":"wss://example.org/ws"}]}`))
	}))
	defer srv.Close()

	urls, err := LookupWebsocket(context.Background(), srv.Client(), strings.TrimPrefix(srv.URL, "https://"))
	if err != nil {
		t.Fatalf("LookupWebsocket: %v", err)
	}
	if len(urls) != 1 || urls[0] != "wss://example.org/ws" {
		t.Errorf("got %v", urls)
	}
}

func TestLookupWebsocketFallsBackToXML(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case hostMetaJSONPath:
			http.NotFound(w, r)
		case hostMetaXMLPath:
			w.Header().Set("Content-Type", "application/xrd+xml")
			w.Write([]byte(`<?xml version="1.0"?><XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0"><Link rel="urn:xmpp:alt-connections:websocket" href="wss://example.org/ws"/></XRD>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	urls, err := LookupWebsocket(context.Background(), srv.Client(), strings.TrimPrefix(srv.URL, "https://"))
	if err != nil {
		t.Fatalf("LookupWebsocket: %v", err)
	}
	if len(urls) != 1 || urls[0] != "wss://example.org/ws" {
		t.Errorf("got %v", urls)
	}
}

func TestLookupBOSHNoMatchingLink(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"links":[{"rel":"urn:xmpp:alt-connections:websocket","href":"wss://example.org/ws"}]}`))
	}))
	defer srv.Close()

	urls, err := LookupBOSH(context.Background(), srv.Client(), strings.TrimPrefix(srv.URL, "https://"))
	if err != nil {
		t.Fatalf("LookupBOSH: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("got %v, want no bosh links", urls)
	}
}
