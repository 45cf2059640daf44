// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"reflect"
	"sync"
)

// Plugin is constructed with a back-reference to the Session that owns it
// (spec §4.4, "Plugin registry"). Implementations call Session.Stanzas() in
// Attach and run their own goroutine over the result to observe inbound
// iq/message/presence traffic, and call Send/SendIQQuery to reply; they
// declare their feature URIs and the namespaces/element-names of the iqs
// they handle so the core can decide whether an unrecognized inbound iq
// gets feature-not-implemented or is forwarded.
type Plugin interface {
	// Dependencies returns the plugin instances that must be applied
	// before this one. PluginManager.Apply applies each of these
	// (recursively, and only once) before attaching the plugin itself.
	Dependencies() []Plugin

	// Features returns the XEP-0030 feature URIs this plugin advertises.
	Features() []string

	// SupportedIQs returns the (namespace, element-name) pairs of iq
	// payloads this plugin answers.
	SupportedIQs() []IQKind

	// Attach is called once, after all dependencies have been applied, with
	// the owning Session.
	Attach(s *Session)
}

// IQKind names an iq payload a Plugin supports by its first child element's
// namespace and local name.
type IQKind struct {
	Namespace string
	Name      string
}

// PluginManager is the Session's plugin registry (spec §4.4). apply is
// idempotent and resolves transitive dependencies by recursively applying
// them first; registrations and lookups are serialized against each other.
type PluginManager struct {
	session *Session

	mu        sync.Mutex
	instances map[reflect.Type]Plugin
	applying  map[reflect.Type]bool
}

func newPluginManager(s *Session) *PluginManager {
	return &PluginManager{
		session:   s,
		instances: make(map[reflect.Type]Plugin),
		applying:  make(map[reflect.Type]bool),
	}
}

// Apply registers p, recursively applying its declared dependencies first.
// Calling Apply twice for the same concrete type is a no-op the second
// time; it returns the already-registered instance.
func (m *PluginManager) Apply(p Plugin) Plugin {
	t := reflect.TypeOf(p)

	m.mu.Lock()
	if existing, ok := m.instances[t]; ok {
		m.mu.Unlock()
		return existing
	}
	if m.applying[t] {
		m.mu.Unlock()
		panic("xmpp: cyclic plugin dependency detected for " + t.String())
	}
	m.applying[t] = true
	m.mu.Unlock()

	for _, dep := range p.Dependencies() {
		m.Apply(dep)
	}

	p.Attach(m.session)

	m.mu.Lock()
	m.instances[t] = p
	delete(m.applying, t)
	m.mu.Unlock()
	return p
}

// Get returns the registered instance for a type, identified by passing a
// nil pointer of that type (e.g. (*Roster)(nil)), or nil if it has not been
// applied.
func (m *PluginManager) Get(ofType any) Plugin {
	t := reflect.TypeOf(ofType)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instances[t]
}

// supportedIQ reports whether any registered plugin declares support for
// the given iq payload namespace/name.
func (m *PluginManager) supportedIQ(namespace, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.instances {
		for _, k := range p.SupportedIQs() {
			if k.Namespace == namespace && k.Name == name {
				return true
			}
		}
	}
	return false
}
