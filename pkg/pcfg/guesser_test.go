package pcfg

import "testing"

func TestPreterminalGuesserMixedRadixOrder(t *testing.T) {
	glossary := Glossary{
		2: {"ab", "cd"},
		3: {"xyz"},
	}
	g := NewPreterminalGuesser("|L2|X|L3|", glossary)

	var got []string
	for {
		guess, ok := g.Next()
		if !ok {
			break
		}
		got = append(got, guess)
	}

	want := []string{"abXxyz", "cdXxyz"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPreterminalGuesserZeroSlots(t *testing.T) {
	g := NewPreterminalGuesser("abc123", Glossary{})
	guess, ok := g.Next()
	if !ok || guess != "abc123" {
		t.Fatalf("got (%q, %v), want (\"abc123\", true)", guess, ok)
	}
	if _, ok := g.Next(); ok {
		t.Fatal("expected exactly one guess for a zero-slot preterminal")
	}
}

func TestPreterminalGuesserEmptyBucketYieldsNothing(t *testing.T) {
	g := NewPreterminalGuesser("|L5|", Glossary{})
	if _, ok := g.Next(); ok {
		t.Fatal("expected no guesses when the glossary bucket is empty")
	}
}

func TestPreterminalGuesserCoverage(t *testing.T) {
	glossary := Glossary{
		2: {"ab", "cd", "ef"},
		3: {"xyz", "uvw"},
	}
	g := NewPreterminalGuesser("|L2|-|L3|", glossary)

	seen := make(map[string]bool)
	count := 0
	for {
		guess, ok := g.Next()
		if !ok {
			break
		}
		if seen[guess] {
			t.Fatalf("guess %q produced twice", guess)
		}
		seen[guess] = true
		count++
	}
	if want := len(glossary[2]) * len(glossary[3]); count != want {
		t.Errorf("got %d guesses, want %d", count, want)
	}
}
