// Package registry implements the named handler table described in
// SPEC_FULL.md §3/§4.1: a server-owned table mapping registered names to
// stable numeric ids and opaque invocation capabilities.
//
// The distilled source backs this with a singly linked list scanned
// linearly for both name and id lookups. This implementation keeps the
// "first exact match wins" and "id is the pre-insert entry count" semantics
// exactly, but backs them with a map-by-name and a dense slice-by-id for
// O(1) lookups (see DESIGN.md).
package registry

import (
	"fmt"

	"github.com/Upnishadd/Remote-Procedure-Call/pkg/rpcwire"
)

// Handler is the opaque capability a registered function exposes: given a
// request Payload, produce a response Payload, or an error if the request
// is malformed or the underlying work failed.
type Handler func(rpcwire.Payload) (rpcwire.Payload, error)

// entry is a single registered function: a name, its assigned id, and its
// current handler.
type entry struct {
	name    string
	id      uint32
	handler Handler
}

// Registry is the server's table of named handlers. It is not safe for
// concurrent use: registration must complete before the owning Server
// begins accepting connections (see SPEC_FULL.md §4.1, §5).
type Registry struct {
	byID   []*entry
	byName map[string]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Register adds name -> handler to the registry, or replaces the handler of
// an existing entry with the same name while preserving its id.
//
// Register fails with rpcwire.ErrInvalidArgument if name is empty, longer
// than 1000 bytes, or contains any byte outside printable ASCII
// (0x20-0x7E).
func (r *Registry) Register(name string, handler Handler) error {
	if !validName(name) {
		return fmt.Errorf("registry: register %q: %w", name, rpcwire.ErrInvalidArgument)
	}
	if handler == nil {
		return fmt.Errorf("registry: register %q: nil handler: %w", name, rpcwire.ErrInvalidArgument)
	}

	if e, ok := r.byName[name]; ok {
		e.handler = handler
		return nil
	}

	e := &entry{name: name, id: uint32(len(r.byID)), handler: handler}
	r.byName[name] = e
	r.byID = append(r.byID, e)
	return nil
}

// FindByName returns the id registered for name, or
// (0, rpcwire.ErrNotFound) if no such name was registered.
func (r *Registry) FindByName(name string) (uint32, error) {
	e, ok := r.byName[name]
	if !ok {
		return 0, rpcwire.ErrNotFound
	}
	return e.id, nil
}

// FindByID returns the handler currently registered under id, or
// (nil, rpcwire.ErrNotFound) if id is out of range.
func (r *Registry) FindByID(id uint32) (Handler, error) {
	if id >= uint32(len(r.byID)) {
		return nil, rpcwire.ErrNotFound
	}
	return r.byID[id].handler, nil
}

// Count returns the number of distinct registered names.
func (r *Registry) Count() int {
	return len(r.byID)
}

// validName reports whether name satisfies SPEC_FULL.md §4.1: 1-1000 bytes,
// all printable ASCII (0x20-0x7E).
func validName(name string) bool {
	if len(name) == 0 || len(name) > 1000 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7E {
			return false
		}
	}
	return true
}
