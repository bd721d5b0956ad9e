package tagset

import "testing"

func TestParseString_RoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want MorphTag
	}{
		{"NOUN,masc,sing,nomn", NOUN | Masc | Sing | Nomn},
		{"VERB,impf,indc,pres,3per", VERB | Impf | Indc | Pres | Per3},
		{"ADJF,femn,plur", ADJF | Femn | Plur},
		{"PNCT", PNCT},
	}
	for _, tc := range cases {
		got := Parse(tc.in)
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, ожидали %v", tc.in, got, tc.want)
		}
		// Канонизация через String обязана быть устойчивой.
		if back := Parse(got.String()); back != got {
			t.Errorf("повторный Parse строки %q дал %v", got.String(), back)
		}
	}
}

func TestParse_UnknownGrammemesIgnored(t *testing.T) {
	got := Parse("NOUN,Geox,sing")
	if got != NOUN|Sing {
		t.Errorf("незнакомые пометы должны пропускаться, получили %v", got)
	}
}

func TestString_POSComesFirst(t *testing.T) {
	s := (Sing | NOUN | Nomn).String()
	if s[:4] != "NOUN" {
		t.Errorf("часть речи должна идти первой: %q", s)
	}
}

func TestSubsumes(t *testing.T) {
	full := NOUN | Masc | Plur | Datv
	if !full.Subsumes(NOUN | Plur | Datv) {
		t.Error("полный тег должен покрывать свое подмножество")
	}
	if !full.Subsumes(0) {
		t.Error("пустой тег покрывается любым")
	}
	if full.Subsumes(NOUN | Femn) {
		t.Error("тег с чужим родом не должен покрываться")
	}
}

func TestCategories(t *testing.T) {
	tag := VERB | Impf | Indc | Past | Sing | Masc
	if tag.POS() != VERB {
		t.Errorf("POS: получили %v", tag.POS())
	}
	if tag.Tense() != Past {
		t.Errorf("Tense: получили %v", tag.Tense())
	}
	if tag.Number() != Sing {
		t.Errorf("Number: получили %v", tag.Number())
	}
	if tag.Case() != 0 {
		t.Errorf("у глагола не должно быть падежа, получили %v", tag.Case())
	}
}

func TestLegalSequence(t *testing.T) {
	cases := []struct {
		name   string
		labels []PhemTag
		legal  bool
	}{
		{"корень", []PhemTag{PhemRoot, PhemRoot}, true},
		{"приставка+корень+окончание", []PhemTag{PhemPref, PhemRoot, PhemRoot, PhemEnd}, true},
		{"две приставки", []PhemTag{PhemPref, PhemPref, PhemRoot, PhemSuff, PhemEnd}, true},
		{"без корня", []PhemTag{PhemPref, PhemSuff}, false},
		{"суффикс до корня", []PhemTag{PhemSuff, PhemRoot}, false},
		{"корень после окончания", []PhemTag{PhemRoot, PhemEnd, PhemRoot}, false},
		{"неизвестная метка", []PhemTag{PhemRoot, PhemUnkn}, false},
		{"пусто", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LegalSequence(tc.labels); got != tc.legal {
				t.Errorf("LegalSequence(%v) = %v, ожидали %v", tc.labels, got, tc.legal)
			}
		})
	}
}
