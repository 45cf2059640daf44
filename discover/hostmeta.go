// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
)

const (
	hostMetaJSONPath = "/.well-known/host-meta.json"
	hostMetaXMLPath  = "/.well-known/host-meta"

	relWebsocket = "urn:xmpp:alt-connections:websocket"
	relBOSH      = "urn:xmpp:alt-connections:xbosh"
)

// XRD is an Extensible Resource Descriptor document:
//
//	<?xml version='1.0' encoding='UTF-8'?>
//	<XRD xmlns='http://docs.oasis-open.org/ns/xri/xrd-1.0'>
//	  <Link rel="urn:xmpp:alt-connections:xbosh"
//	        href="https://web.example.com:5280/bosh" />
//	  <Link rel="urn:xmpp:alt-connections:websocket"
//	        href="wss://web.example.com:443/ws" />
//	</XRD>
//
// as defined by RFC 6415 and used by XEP-0156 for host-meta discovery.
type XRD struct {
	XMLName xml.Name `xml:"http://docs.oasis-open.org/ns/xri/xrd-1.0 XRD"`
	Links   []Link   `xml:"Link"`
}

// Link is a single hyperlink in an XRD document or its host-meta.json
// equivalent.
type Link struct {
	Rel  string `xml:"rel,attr" json:"rel"`
	Href string `xml:"href,attr" json:"href"`
}

type hostMetaJSON struct {
	Links []Link `json:"links"`
}

// LookupWebsocket discovers WebSocket endpoints for domain via host-meta
// (JSON first, then XML), matching Link entries whose rel is the WebSocket
// alt-connection namespace.
func LookupWebsocket(ctx context.Context, client *http.Client, domain string) ([]string, error) {
	return lookupHostMetaLinks(ctx, client, domain, relWebsocket)
}

// LookupBOSH discovers BOSH endpoints for domain via host-meta, matching
// Link entries whose rel is the BOSH alt-connection namespace.
func LookupBOSH(ctx context.Context, client *http.Client, domain string) ([]string, error) {
	return lookupHostMetaLinks(ctx, client, domain, relBOSH)
}

func lookupHostMetaLinks(ctx context.Context, client *http.Client, domain, rel string) ([]string, error) {
	links, err := fetchHostMetaJSON(ctx, client, domain)
	if err != nil {
		links, err = fetchHostMetaXML(ctx, client, domain)
		if err != nil {
			return nil, err
		}
	}
	var urls []string
	for _, l := range links {
		if l.Rel == rel {
			urls = append(urls, l.Href)
		}
	}
	return urls, nil
}

func fetchHostMetaJSON(ctx context.Context, client *http.Client, domain string) ([]Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domain+hostMetaJSONPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover: host-meta.json request returned %s", resp.Status)
	}
	var doc hostMetaJSON
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Links, nil
}

func fetchHostMetaXML(ctx context.Context, client *http.Client, domain string) ([]Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domain+hostMetaXMLPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover: host-meta request returned %s", resp.Status)
	}
	var xrd XRD
	if err := xml.NewDecoder(resp.Body).Decode(&xrd); err != nil {
		return nil, err
	}
	return xrd.Links, nil
}
