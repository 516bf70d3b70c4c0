package config

import "sync"

// Layers composes the live settings from three sources, lowest precedence first:
// the file/env layer, session edits made through commands, and the editor payload.
// Any change to one layer recomposes the snapshot and replaces it in the store.
type Layers struct {
	mu      sync.Mutex
	store   *Store
	base    *Settings
	edits   []func(*Settings)
	overlay any
}

// NewLayers seeds the file/env layer from the store's current snapshot.
func NewLayers(store *Store) *Layers {
	return &Layers{store: store, base: store.Current().Clone()}
}

// Store returns the store the layers publish into.
func (l *Layers) Store() *Store {
	return l.store
}

// SetBase replaces the file/env layer, keeping session edits and the editor payload.
func (l *Layers) SetBase(base *Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base = base.Clone()
	_, err := l.recompose()
	return err
}

// SetOverlay replaces the editor payload. A payload that fails to decode leaves the store untouched.
func (l *Layers) SetOverlay(raw any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	previous := l.overlay
	l.overlay = raw
	if _, err := l.recompose(); err != nil {
		l.overlay = previous
		return err
	}
	return nil
}

// Edit records a session edit that survives later file and editor changes.
func (l *Layers) Edit(fn func(*Settings)) (*Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edits = append(l.edits, fn)
	return l.recompose()
}

func (l *Layers) recompose() (*Settings, error) {
	underlay := l.base.Clone()
	for _, fn := range l.edits {
		fn(underlay)
	}
	next, err := DecodeSettingsOnto(underlay, l.overlay)
	if err != nil {
		return nil, err
	}
	// Editors send an empty apiKey by default; it never clears a configured key.
	if next.APIKey == "" {
		next.APIKey = underlay.APIKey
	}
	l.store.Replace(next)
	return next, nil
}
