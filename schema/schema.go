// Package schema declares RPC services as a named collection of
// methods mapping method names to request/response shapes (spec §3),
// compiled once at client/server construction time rather than via a
// separate interface-description language.
package schema

import (
	"regexp"

	"github.com/pkg/errors"
)

// MethodKind distinguishes the two supported RPC shapes (spec's
// Non-goals exclude client streaming and bidirectional streaming).
type MethodKind int

const (
	Unary MethodKind = iota
	ServerStream
)

func (k MethodKind) String() string {
	if k == ServerStream {
		return "serverStream"
	}
	return "unary"
}

// methodNamePattern is the method URL rule from spec §6.
var methodNamePattern = regexp.MustCompile(`^[a-z][A-Za-z0-9]*$`)

// Method describes one RPC method. NewRequest/NewResponse allocate a
// zero-value target for the codec to decode into; the framework never
// branches on the concrete request/response type beyond that.
type Method struct {
	Name        string
	Kind        MethodKind
	NewRequest  func() any
	NewResponse func() any
}

// ServiceSchema is a named collection of methods.
type ServiceSchema struct {
	Name    string
	Methods []Method
}

// ErrInvalidMethodName is returned by Validate for a method name that
// does not match ^[a-z][A-Za-z0-9]*$.
var ErrInvalidMethodName = errors.New("schema: method name must match ^[a-z][A-Za-z0-9]*$")

// ErrDuplicateMethod is returned by Validate when two methods share a name.
var ErrDuplicateMethod = errors.New("schema: duplicate method name")

// New builds a ServiceSchema and validates it immediately, the way a
// schema is "compiled ... into client handles and server routers"
// once, at registration time (spec §1), rather than validated lazily
// per call.
func New(name string, methods ...Method) (*ServiceSchema, error) {
	s := &ServiceSchema{Name: name, Methods: methods}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every method name against the URL rule and rejects
// duplicate names.
func (s *ServiceSchema) Validate() error {
	seen := make(map[string]struct{}, len(s.Methods))

	for _, m := range s.Methods {
		if !methodNamePattern.MatchString(m.Name) {
			return errors.Wrapf(ErrInvalidMethodName, "%q", m.Name)
		}
		if _, ok := seen[m.Name]; ok {
			return errors.Wrapf(ErrDuplicateMethod, "%q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	return nil
}

// Lookup returns the method registered under name, if any.
func (s *ServiceSchema) Lookup(name string) (Method, bool) {
	for _, m := range s.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}
