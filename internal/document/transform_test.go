package document

import "testing"

func TestRepairArtifacts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"ligatures",
			"The ﬁrst ﬂight was diﬃcult.",
			"The first flight was difficult.",
		},
		{
			"hyphen line break",
			"a frag-\nmented word",
			"a fragmented word",
		},
		{
			"hyphen with trailing spaces",
			"under- \n standing",
			"understanding",
		},
		{
			"ghost space in short word",
			"switched o ff t he light",
			"switched off the light",
		},
		{
			"letter spaced word",
			"C H A P T E R",
			"CHAPTER",
		},
		{
			"space after opening quote",
			"“ Hello,” she said.",
			"“Hello,” she said.",
		},
		{
			"space before closing paren",
			"see figure 3 ) below",
			"see figure 3) below",
		},
		{
			"space runs collapsed",
			"too    many   spaces",
			"too many spaces",
		},
		{
			"ordinary text untouched",
			"A plain sentence stays as it is.",
			"A plain sentence stays as it is.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RepairArtifacts(tc.in); got != tc.want {
				t.Errorf("RepairArtifacts(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRepairArtifactsKeepsParagraphBreaks(t *testing.T) {
	in := "First paragraph.\n\nSecond paragraph."
	if got := RepairArtifacts(in); got != in {
		t.Errorf("paragraph structure changed: %q", got)
	}
}

func TestRepairArtifactsDeterministic(t *testing.T) {
	in := "T he ﬁ r s t line of a bro-\nken page"
	first := RepairArtifacts(in)
	second := RepairArtifacts(in)
	if first != second {
		t.Errorf("nondeterministic repair: %q vs %q", first, second)
	}
}

func TestRules(t *testing.T) {
	transform := Rules([]Rule{
		{Original: "Dr.", Replacement: "Doctor"},
		{Original: "AI", Replacement: "A I", WordBoundary: true, MatchCase: true},
	}, []string{"[draft]"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple replacement", "Dr. Smith arrived.", "Doctor Smith arrived."},
		{"case insensitive by default", "dr. Smith", "Doctor Smith"},
		{"word boundary respected", "The AI said MAIN.", "The A I said MAIN."},
		{"case sensitive rule", "rain falls", "rain falls"},
		{"ignore list removal", "Title [draft] here", "Title  here"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := transform(tc.in); got != tc.want {
				t.Errorf("transform(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRulesEmptyOriginalSkipped(t *testing.T) {
	transform := Rules([]Rule{{Original: "", Replacement: "boom"}}, nil)
	if got := transform("unchanged"); got != "unchanged" {
		t.Errorf("empty rule applied: %q", got)
	}
}

func TestChain(t *testing.T) {
	upperFirst := func(s string) string { return "[" + s + "]" }
	transform := Chain(RepairArtifacts, nil, upperFirst)
	if got := transform("t he end"); got != "[the end]" {
		t.Errorf("Chain = %q, want %q", got, "[the end]")
	}
}
