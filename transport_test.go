// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"errors"
	"testing"
)

func TestHandshakeTLSDelegatesToTransport(t *testing.T) {
	wantErr := errors.New("tls failed")
	ft := &fakeTransport{}
	adapter := handshakeTLS{t: ft}

	if err := adapter.StartTLS(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if ft.startTLS != 1 {
		t.Fatalf("expected transport.StartTLS to be called once, got %d", ft.startTLS)
	}

	ft2 := &fakeTransport{}
	ft2.Open(context.Background())
	adapter2 := handshakeTLS{t: errTransport{fakeTransport: ft2, err: wantErr}}
	if err := adapter2.StartTLS(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

type errTransport struct {
	*fakeTransport
	err error
}

func (e errTransport) StartTLS(context.Context) error { return e.err }
