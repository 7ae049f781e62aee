package meta

import (
    "bytes"
    "encoding/json"
    "errors"
    "sort"
)

// Metadata is a small string map attached to accounts, entries, and documents.
// It validates size limits and always marshals with sorted keys so stored
// values are byte-stable across writes.
type Metadata map[string]string

const (
	MaxPairs  = 16
	MaxKeyLen = 64
	MaxValLen = 256
	// MaxEncoded bounds the stable JSON form.
	MaxEncoded = 4096
)

// New copies m into a Metadata, mapping nil to an empty map.
func New(m map[string]string) Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Get returns the value for k and whether it was present.
func (m Metadata) Get(k string) (string, bool) { v, ok := m[k]; return v, ok }

// Set stores k=v when it fits within the limits; oversized input is dropped
// and surfaces later through Validate.
func (m Metadata) Set(k, v string) {
	if len(m) >= MaxPairs {
		return
	}
	if len(k) == 0 || len(k) > MaxKeyLen || len(v) > MaxValLen {
		return
	}
	m[k] = v
}

// Validate checks pair count, key/value lengths, and the encoded size.
func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return errors.New("metadata: too many pairs")
	}
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen {
			return errors.New("metadata: key empty or too long")
		}
		if len(v) > MaxValLen {
			return errors.New("metadata: value too long")
		}
	}
	b, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxEncoded {
		return errors.New("metadata: encoded form too large")
	}
	return nil
}

// MarshalJSON emits a deterministic encoding with keys sorted.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts null as an empty map.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
