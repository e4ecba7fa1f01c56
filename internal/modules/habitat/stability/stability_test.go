package stability

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want State
	}{
		{name: "bool true", in: true, want: Stable},
		{name: "bool false", in: false, want: Unstable},
		{name: "string 1", in: "1", want: Stable},
		{name: "string true", in: "true", want: Stable},
		{name: "string True", in: "True", want: Stable},
		{name: "string TRUE", in: "TRUE", want: Stable},
		{name: "string tRuE", in: "tRuE", want: Stable},
		{name: "string with spaces", in: " true ", want: Stable},
		{name: "int 1", in: 1, want: Stable},
		{name: "int64 1", in: int64(1), want: Stable},
		{name: "float 1", in: float64(1), want: Stable},
		{name: "json number 1", in: json.Number("1"), want: Stable},
		{name: "nil", in: nil, want: Unstable},
		{name: "string 0", in: "0", want: Unstable},
		{name: "string false", in: "false", want: Unstable},
		{name: "empty string", in: "", want: Unstable},
		{name: "string yes", in: "yes", want: Unstable},
		{name: "string 1.0", in: "1.0", want: Unstable},
		{name: "int 0", in: 0, want: Unstable},
		{name: "int 2", in: 2, want: Unstable},
		{name: "float 0.5", in: 0.5, want: Unstable},
		{name: "json number 0", in: json.Number("0"), want: Unstable},
		{name: "slice", in: []string{"1"}, want: Unstable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%#v) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if Stable.String() != "Stable" {
		t.Errorf("Stable.String() = %q", Stable.String())
	}
	if Unstable.String() != "Unstable" {
		t.Errorf("Unstable.String() = %q", Unstable.String())
	}
	b, err := json.Marshal(Stable)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"Stable"` {
		t.Errorf("json = %s; want \"Stable\"", b)
	}
}

func TestCell(t *testing.T) {
	var c Cell
	if c.Load() != Unstable {
		t.Fatalf("zero Cell = %v; want Unstable", c.Load())
	}
	c.Store(Stable)
	if c.Load() != Stable {
		t.Fatalf("after Store(Stable) = %v", c.Load())
	}
	c.Store(Unstable)
	if c.Load() != Unstable {
		t.Fatalf("after Store(Unstable) = %v", c.Load())
	}
}

func TestCell_concurrentWriters(t *testing.T) {
	var c Cell
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Store(State(i % 2))
		}(i)
		go func() {
			defer wg.Done()
			if s := c.Load(); s != Stable && s != Unstable {
				t.Errorf("Load() = %d; want a valid state", s)
			}
		}()
	}
	wg.Wait()
}
