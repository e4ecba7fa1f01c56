// Package stability classifies the stability flag sent by sensor nodes and
// holds the most recently reported state.
package stability

import (
	"encoding/json"
	"strings"
	"sync/atomic"
)

type State int32

const (
	Unstable State = iota
	Stable
)

func (s State) String() string {
	if s == Stable {
		return "Stable"
	}
	return "Unstable"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Classify maps a raw flag to a State. Only true, 1 and the strings "1" and
// "true" (any case) are Stable; every other value, including nil, is Unstable.
func Classify(v any) State {
	switch t := v.(type) {
	case bool:
		if t {
			return Stable
		}
	case string:
		return classifyString(t)
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 1 {
			return Stable
		}
	case int:
		if t == 1 {
			return Stable
		}
	case int64:
		if t == 1 {
			return Stable
		}
	case float64:
		if t == 1 {
			return Stable
		}
	}
	return Unstable
}

func classifyString(s string) State {
	s = strings.TrimSpace(s)
	if s == "1" || strings.EqualFold(s, "true") {
		return Stable
	}
	return Unstable
}

// Cell is the process-wide latest stability state. Every successful
// ingestion overwrites it; the last writer wins. The zero value reads Unstable.
// It is not persisted and is not shared between server instances.
type Cell struct {
	v atomic.Int32
}

func (c *Cell) Store(s State) {
	c.v.Store(int32(s))
}

func (c *Cell) Load() State {
	return State(c.v.Load())
}
