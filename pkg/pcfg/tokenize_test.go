package pcfg

import (
	"reflect"
	"testing"
)

func TestTokenizeMixedClasses(t *testing.T) {
	res := Tokenize("Passw0rd!")

	wantBase := "C1|L4|D1|L2|S1"
	if got := res.Base.String(); got != wantBase {
		t.Errorf("base = %q, want %q", got, wantBase)
	}

	wantSubs := []string{"P", "assw", "0", "rd", "!"}
	if !reflect.DeepEqual(res.Substrings, wantSubs) {
		t.Errorf("substrings = %v, want %v", res.Substrings, wantSubs)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	res := Tokenize("")
	if len(res.Base) != 0 {
		t.Errorf("expected empty base structure, got %v", res.Base)
	}
}

func TestTokenizeApostropheIsLetter(t *testing.T) {
	res := Tokenize("it's")
	if got := res.Base.String(); got != "L4" {
		t.Errorf("base = %q, want L4", got)
	}
}

func TestTokenizeSymbolClass(t *testing.T) {
	res := Tokenize("a_b-c")
	if got := res.Base.String(); got != "L1|S1|L1|S1|L1" {
		t.Errorf("base = %q, want L1|S1|L1|S1|L1", got)
	}
}
