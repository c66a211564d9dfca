package fuzzy

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var airports = Values([]string{
	"LaGuardia Airport",
	"JFK Airport",
	"Newark Liberty International Airport",
	"Heathrow Airport",
})

func TestScore(t *testing.T) {
	tests := []struct {
		a, b string
		min  int
		max  int
	}{
		{"JFK Airport", "JFK Airport", 100, 100},
		{"jfk-airport", "JFK Airport", 100, 100},
		{"Airport Heathrow", "Heathrow Airport", 95, 95},
		{"Boeing 737-800", "Boeing 737-800 (winglets)", 80, 95},
		{"xyzabc123", "JFK Airport", 0, 40},
		{"", "JFK Airport", 0, 0},
	}
	for _, tt := range tests {
		got := Score(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Fatalf("Score(%q, %q) = %d, want in [%d, %d]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestResolveExact(t *testing.T) {
	got := Resolve("JFK Airport", airports, 5, 90)
	if got != "JFK Airport" {
		t.Fatalf("Resolve = %q, want %q", got, "JFK Airport")
	}
}

func TestResolveNoMatch(t *testing.T) {
	if got := Resolve("xyzabc123", airports, 5, 90); got != "" {
		t.Fatalf("Resolve = %q, want empty", got)
	}
}

func TestResolveJoinsAllAccepted(t *testing.T) {
	cands := Values([]string{"Lufthansa", "Lufthansa", "Condor"})
	if got := Resolve("Lufthansa", cands, 5, 90); got != "Lufthansa, Lufthansa" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestExtractKeepsInputOrderOnTies(t *testing.T) {
	cands := []Candidate{{Key: "b", Value: "Qantas"}, {Key: "a", Value: "Qantas"}, {Key: "c", Value: "Qatar"}}
	got := Extract("Qantas", cands, 2)
	if len(got) != 2 || got[0].Key != "b" || got[1].Key != "a" {
		t.Fatalf("Extract order = %+v", got)
	}
	if got[0].Pos != 0 || got[1].Pos != 1 {
		t.Fatalf("positions = %d %d", got[0].Pos, got[1].Pos)
	}
}

func TestKeywordMatch(t *testing.T) {
	kw := []Candidate{
		{Key: "1", Value: ""},
		{Key: "2", Value: "Berlin Tegel, TXL, EDDT"},
		{Key: "3", Value: "Tempelhof, THF, EDDI"},
	}
	c, ok := KeywordMatch("KEDDI", 4, kw)
	if !ok || c.Key != "3" {
		t.Fatalf("KeywordMatch = %+v %t", c, ok)
	}
	if _, ok := KeywordMatch("KZZZZ", 4, kw); ok {
		t.Fatalf("unexpected keyword match")
	}
	if _, ok := KeywordMatch("", 4, kw); ok {
		t.Fatalf("empty ident matched")
	}
}

func TestTableRender(t *testing.T) {
	tbl := Table{
		Columns: []Column{{Name: "iata", Width: 4}, {Name: "name", Width: 10}},
		Rows:    [][]string{{"JFK", "John F Kennedy Intl"}},
	}
	var buf bytes.Buffer
	tbl.Render(&buf)
	want := " #:  iata  name      \n 1:  JFK   John F Ken\n"
	if buf.String() != want {
		t.Fatalf("Render:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPromptChoose(t *testing.T) {
	tbl := Table{Columns: []Column{{Name: "name", Width: 10}}, Rows: [][]string{{"a"}, {"b"}}}

	tests := []struct {
		name  string
		input string
		want  int
		err   error
	}{
		{"pick second", "2\n", 1, nil},
		{"none lower", "n\n", None, nil},
		{"none upper", "N\n", None, nil},
		{"retry after bad answer", "7\nx\n1\n", 0, nil},
		{"answer without newline", "2", 1, nil},
		{"closed input", "", None, ErrNoInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)
			got, err := p.Choose("query", tbl)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Fatalf("Choose = %d, want %d", got, tt.want)
			}
			if !strings.Contains(out.String(), "Which number or 'N' for none: ") {
				t.Fatalf("prompt not shown: %q", out.String())
			}
		})
	}
}

func TestSelect(t *testing.T) {
	var shown Table
	pickFirst := ChooserFunc(func(q string, tbl Table) (int, error) {
		shown = tbl
		return 0, nil
	})
	cols := []Column{{Name: "name", Width: 30}}
	m, ok, err := Select(pickFirst, "Heathrow", airports, 3, cols, func(m Match) []string { return []string{m.Value} })
	if err != nil || !ok {
		t.Fatalf("Select = %v %t %v", m, ok, err)
	}
	if m.Value != "Heathrow Airport" {
		t.Fatalf("Select picked %q", m.Value)
	}
	if len(shown.Rows) != 3 {
		t.Fatalf("table rows = %d, want 3", len(shown.Rows))
	}

	_, ok, err = Select(NeverChoose, "Heathrow", airports, 3, cols, func(m Match) []string { return []string{m.Value} })
	if err != nil || ok {
		t.Fatalf("NeverChoose selected something")
	}
}
