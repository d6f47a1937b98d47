package module

import (
	"io"

	"github.com/google/uuid"
)

// Load reads a module from r and assigns it a fresh self-identifier handle
// if the file didn't carry one. A real chain stamps a module's self-id at
// publish time; this standalone verifier harness has no publish pipeline,
// so the loader synthesizes one. ModuleID.String, and with it
// Location.String, prints only address and name, not this handle.
func Load(r io.Reader) (*Module, error) {
	m, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if m.SelfID.Handle == uuid.Nil {
		m.SelfID.Handle = uuid.New()
	}
	return m, nil
}
