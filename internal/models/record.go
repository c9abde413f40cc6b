// Package models defines core data structures for sheet rows, enriched trips, and API payloads.
package models

import (
	"bytes"
	"encoding/json"
)

// Field is a single named value in a Record. A nil Value is a null.
type Field struct {
	Key   string
	Value interface{}
}

// Record is an ordered collection of named cell values. Keys keep the order in
// which they were first set; setting an existing key replaces its value in place.
// The zero value is ready to use.
type Record struct {
	fields []Field
	pos    map[string]int
}

// NewRecord returns an empty record with room for n fields.
func NewRecord(n int) *Record {
	return &Record{
		fields: make([]Field, 0, n),
		pos:    make(map[string]int, n),
	}
}

// Set stores value under key.
func (r *Record) Set(key string, value interface{}) {
	if r.pos == nil {
		r.pos = make(map[string]int)
	}
	if i, ok := r.pos[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.pos[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Get returns the value for key and whether the key is present.
func (r *Record) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.pos[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Value returns the value for key, or nil when the key is absent.
func (r *Record) Value(key string) interface{} {
	v, _ := r.Get(key)
	return v
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	keys := make([]string, r.Len())
	for i := range keys {
		keys[i] = r.fields[i].Key
	}
	return keys
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	out := make([]Field, r.Len())
	if r != nil {
		copy(out, r.fields)
	}
	return out
}

// Clone returns a shallow copy; cell values are scalars so this is a full copy in practice.
func (r *Record) Clone() *Record {
	c := NewRecord(r.Len() + 9)
	if r == nil {
		return c
	}
	for _, f := range r.fields {
		c.Set(f.Key, f.Value)
	}
	return c
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r != nil {
		for i, f := range r.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(f.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
