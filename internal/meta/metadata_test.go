package meta

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSetGetClone(t *testing.T) {
	m := New(nil)
	m.Set("cost_center", "kitchen")
	if v, ok := m.Get("cost_center"); !ok || v != "kitchen" {
		t.Fatalf("get failed: %q %v", v, ok)
	}
	c := m.Clone()
	c.Set("shift", "night")
	if _, ok := m.Get("shift"); ok {
		t.Fatalf("clone is not independent")
	}
}

func TestValidateLimits(t *testing.T) {
	m := New(map[string]string{strings.Repeat("k", MaxKeyLen+1): "v"})
	if err := m.Validate(); err == nil {
		t.Fatalf("expected key length error")
	}
	m = New(map[string]string{"k": strings.Repeat("v", MaxValLen+1)})
	if err := m.Validate(); err == nil {
		t.Fatalf("expected value length error")
	}
	big := map[string]string{}
	for i := 0; i <= MaxPairs; i++ {
		big["k"+strings.Repeat("x", i)] = "v"
	}
	if err := New(big).Validate(); err == nil {
		t.Fatalf("expected pair count error")
	}
}

func TestStableEncoding(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1"})
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected encoding: %s", b)
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, _ := back.Get("a"); v != "1" {
		t.Fatalf("roundtrip lost data: %+v", back)
	}
}
