package pcfg

import (
	"reflect"
	"testing"
)

func TestManglingEngineBitmaskSubsets(t *testing.T) {
	engine, err := NewManglingEngine(
		func(s string) string { return s + "!" },
		func(s string) string { return s + "?" },
	)
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}

	got := engine.Variants("a")
	want := []string{"a", "a?", "a!", "a!?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestManglingEngineZeroRules(t *testing.T) {
	engine, err := NewManglingEngine()
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}
	got := engine.Variants("hello")
	want := []string{"hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestManglingEngineCount(t *testing.T) {
	rules := make([]Rule, 5)
	for i := range rules {
		rules[i] = func(s string) string { return s + "x" }
	}
	engine, err := NewManglingEngine(rules...)
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}
	got := engine.Variants("w")
	if len(got) != 1<<5 {
		t.Errorf("got %d variants, want %d", len(got), 1<<5)
	}
}

func TestManglingEngineTooManyRules(t *testing.T) {
	rules := make([]Rule, MaxRules+1)
	for i := range rules {
		rules[i] = func(s string) string { return s }
	}
	if _, err := NewManglingEngine(rules...); err == nil {
		t.Fatal("expected error for too many rules")
	}
}

func TestManglingIterator(t *testing.T) {
	engine, err := NewManglingEngine(func(s string) string { return s + "1" })
	if err != nil {
		t.Fatalf("NewManglingEngine: %v", err)
	}
	it := engine.Iterate("z")

	first, ok := it.Next()
	if !ok || first != "z" {
		t.Fatalf("got (%q, %v), want (\"z\", true)", first, ok)
	}
	second, ok := it.Next()
	if !ok || second != "z1" {
		t.Fatalf("got (%q, %v), want (\"z1\", true)", second, ok)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("expected iterator to be exhausted")
	}
}
