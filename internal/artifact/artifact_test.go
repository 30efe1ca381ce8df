package artifact

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fiddeb/cracken-go/pkg/pcfg"
)

func TestBaseStructuresRoundTrip(t *testing.T) {
	dist := pcfg.BaseStructureDistribution{
		{Base: pcfg.BaseStructure{{Class: pcfg.ClassLetter, Run: 3}}, Probability: 2.0 / 3.0},
		{Base: pcfg.BaseStructure{{Class: pcfg.ClassLetter, Run: 2}, {Class: pcfg.ClassDigit, Run: 1}}, Probability: 1.0 / 3.0},
	}

	var buf bytes.Buffer
	if err := WriteBaseStructures(&buf, dist); err != nil {
		t.Fatalf("WriteBaseStructures: %v", err)
	}

	got, err := ReadBaseStructures(&buf)
	if err != nil {
		t.Fatalf("ReadBaseStructures: %v", err)
	}
	if len(got) != len(dist) {
		t.Fatalf("got %d records, want %d", len(got), len(dist))
	}
	for i := range dist {
		if got[i].Base.String() != dist[i].Base.String() {
			t.Errorf("record %d: base = %q, want %q", i, got[i].Base.String(), dist[i].Base.String())
		}
		if got[i].Probability != dist[i].Probability {
			t.Errorf("record %d: prob = %v, want %v", i, got[i].Probability, dist[i].Probability)
		}
	}
}

func TestGrammarRoundTrip(t *testing.T) {
	g := pcfg.Grammar{
		"D1": {{Substring: "1", Probability: 1.0}},
		"S1": {{Substring: "!", Probability: 0.6}, {Substring: "?", Probability: 0.4}},
	}

	var buf bytes.Buffer
	if err := WriteGrammar(&buf, g); err != nil {
		t.Fatalf("WriteGrammar: %v", err)
	}
	got, err := ReadGrammar(&buf)
	if err != nil {
		t.Fatalf("ReadGrammar: %v", err)
	}
	if len(got["S1"]) != 2 || got["S1"][0].Substring != "!" {
		t.Errorf("grammar[S1] = %+v", got["S1"])
	}
}

func TestGlossaryRoundTrip(t *testing.T) {
	g := pcfg.Glossary{2: {"ab"}, 3: {"abc", "xyz"}}

	var buf bytes.Buffer
	if err := WriteGlossary(&buf, g); err != nil {
		t.Fatalf("WriteGlossary: %v", err)
	}
	got, err := ReadGlossary(&buf)
	if err != nil {
		t.Fatalf("ReadGlossary: %v", err)
	}
	if len(got[3]) != 2 || got[3][0] != "abc" || got[3][1] != "xyz" {
		t.Errorf("glossary[3] = %v", got[3])
	}
}

func TestClassifierDeterminism(t *testing.T) {
	corpus := "abc\nabc\nab1\nPassw0rd!\nhello99\nzz_top\n"

	render := func() []byte {
		result, err := pcfg.Classify(strings.NewReader(corpus), nil)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := WriteBaseStructures(&buf, result.Bases); err != nil {
			t.Fatal(err)
		}
		if err := WriteGrammar(&buf, result.Grammar); err != nil {
			t.Fatal(err)
		}
		if err := WriteGlossary(&buf, result.Glossary); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	if !bytes.Equal(render(), render()) {
		t.Error("two classifier runs over the same corpus produced different artifacts")
	}
}
