// Package properties reads and writes the Java Properties text format used by
// the reload sentinel and by the admin upload envelope.
package properties

import (
	"bytes"
	"fmt"
	"io"

	"github.com/magiconair/properties"
)

// Set is an insertion-ordered collection of properties. Values are stored
// literally: "${...}" sequences are never expanded.
type Set struct {
	p *properties.Properties
}

// New returns an empty Set.
func New() *Set {
	p := properties.NewProperties()
	p.DisableExpansion = true
	return &Set{p: p}
}

// Set stores value under key, keeping the original position of an existing key.
func (s *Set) Set(key, value string) {
	// expansion is disabled so Set cannot fail on circular references
	_, _, _ = s.p.Set(key, value)
}

// Get returns the value stored under key.
func (s *Set) Get(key string) (string, bool) {
	return s.p.Get(key)
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	return s.p.Keys()
}

// Len returns the number of properties.
func (s *Set) Len() int {
	return s.p.Len()
}

// WriteTo writes the set in Properties text format.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	n, err := s.p.Write(w, properties.UTF8)
	return int64(n), err
}

// Encode returns the Properties text for the set.
func (s *Set) Encode() []byte {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}

// Decode parses Properties text.
func Decode(data []byte) (*Set, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	p.DisableExpansion = true
	return &Set{p: p}, nil
}
