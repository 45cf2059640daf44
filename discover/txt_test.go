// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"reflect"
	"testing"
)

func TestParseConnectTXT(t *testing.T) {
	txts := []string{
		"_xmpp-client-websocket=wss://example.org/ws",
		"v=spf1 include:_spf.example.org ~all",
		"_xmpp-client-xbosh=https://example.org/bosh",
	}
	if got, want := parseConnectTXT(txts, txtWebsocketAttr), []string{"wss://example.org/ws"}; !reflect.DeepEqual(got, want) {
		t.Errorf("websocket: got %v, want %v", got, want)
	}
	if got, want := parseConnectTXT(txts, txtBOSHAttr), []string{"https://example.org/bosh"}; !reflect.DeepEqual(got, want) {
		t.Errorf("bosh: got %v, want %v", got, want)
	}
}
