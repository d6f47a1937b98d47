package module

import "errors"

// ErrIndexOutOfRange is returned by every resolver below when an index is
// out of bounds for its table. A structural verifier earlier in the
// pipeline is supposed to guarantee every index in a well-formed module is
// valid; a caller that gets this error should treat it as an invariant
// violation, never as a user-facing verification failure (spec §7.2).
var ErrIndexOutOfRange = errors.New("module: index out of range")

func (m *Module) AddressIdentifierAt(idx AddressIndex) (Address, error) {
	if int(idx) < 0 || int(idx) >= len(m.Addresses) {
		return Address{}, ErrIndexOutOfRange
	}
	return m.Addresses[idx], nil
}

func (m *Module) IdentifierAt(idx IdentifierIndex) (string, error) {
	if int(idx) < 0 || int(idx) >= len(m.Identifiers) {
		return "", ErrIndexOutOfRange
	}
	return m.Identifiers[idx], nil
}

func (m *Module) ModuleHandleAt(idx ModuleHandleIndex) (*ModuleHandle, error) {
	if int(idx) < 0 || int(idx) >= len(m.ModuleHandles) {
		return nil, ErrIndexOutOfRange
	}
	return &m.ModuleHandles[idx], nil
}

func (m *Module) StructHandleAt(idx StructHandleIndex) (*StructHandle, error) {
	if int(idx) < 0 || int(idx) >= len(m.StructHandles) {
		return nil, ErrIndexOutOfRange
	}
	return &m.StructHandles[idx], nil
}

func (m *Module) StructDefAt(idx StructDefIndex) (*StructDefinition, error) {
	if int(idx) < 0 || int(idx) >= len(m.StructDefs) {
		return nil, ErrIndexOutOfRange
	}
	return &m.StructDefs[idx], nil
}

func (m *Module) StructDefInstantiationAt(idx StructDefInstantiationIndex) (*StructDefInstantiation, error) {
	if int(idx) < 0 || int(idx) >= len(m.StructDefInstantiations) {
		return nil, ErrIndexOutOfRange
	}
	return &m.StructDefInstantiations[idx], nil
}

func (m *Module) FunctionHandleAt(idx FunctionHandleIndex) (*FunctionHandle, error) {
	if int(idx) < 0 || int(idx) >= len(m.FunctionHandles) {
		return nil, ErrIndexOutOfRange
	}
	return &m.FunctionHandles[idx], nil
}

func (m *Module) FunctionInstantiationAt(idx FunctionInstantiationIndex) (*FunctionInstantiation, error) {
	if int(idx) < 0 || int(idx) >= len(m.FunctionInstantiations) {
		return nil, ErrIndexOutOfRange
	}
	return &m.FunctionInstantiations[idx], nil
}

func (m *Module) SignatureAt(idx SignatureIndex) (Signature, error) {
	if int(idx) < 0 || int(idx) >= len(m.Signatures) {
		return Signature{}, ErrIndexOutOfRange
	}
	return m.Signatures[idx], nil
}
