package paradigm

import (
	"errors"
	"testing"

	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// tableParadigm - парадигма существительного "стол" в терминах аффиксов:
// основа "стол", окончания падежей и чисел.
var tableParadigm = []FormSpec{
	{Tag: tagset.NOUN | tagset.Inan | tagset.Masc | tagset.Sing | tagset.Nomn, Ending: ""},
	{Tag: tagset.NOUN | tagset.Inan | tagset.Masc | tagset.Sing | tagset.Gent, Ending: "а"},
	{Tag: tagset.NOUN | tagset.Inan | tagset.Masc | tagset.Sing | tagset.Datv, Ending: "у"},
	{Tag: tagset.NOUN | tagset.Inan | tagset.Masc | tagset.Plur | tagset.Nomn, Ending: "ы"},
	{Tag: tagset.NOUN | tagset.Inan | tagset.Masc | tagset.Plur | tagset.Datv, Ending: "ам"},
}

// prefixedParadigm - вырожденный пример с префиксальной формой
// (сравнительная степень с "по-": "наи-" и подобные).
var prefixedParadigm = []FormSpec{
	{Tag: tagset.ADJF | tagset.Nomn, Ending: "ий"},
	{Tag: tagset.COMP, LeftAdd: "наи", Ending: "ее"},
}

func load(t *testing.T, paradigms ...[]FormSpec) *Store {
	t.Helper()
	w := NewWriter()
	for _, p := range paradigms {
		if _, err := w.AddParadigm(p); err != nil {
			t.Fatalf("AddParadigm: %v", err)
		}
	}
	pb, sb, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	s, err := Load(pb, sb)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestApply(t *testing.T) {
	s := load(t, tableParadigm)
	lemma := unistring.New("стол")

	cases := []struct {
		idx  int
		want string
	}{
		{0, "стол"},
		{1, "стола"},
		{2, "столу"},
		{3, "столы"},
		{4, "столам"},
	}
	for _, tc := range cases {
		got, err := s.Apply(lemma, 0, tc.idx)
		if err != nil {
			t.Fatalf("Apply(%d): %v", tc.idx, err)
		}
		if got.String() != tc.want {
			t.Errorf("Apply(%d) = %q, ожидали %q", tc.idx, got.String(), tc.want)
		}
	}
}

func TestRestoreLemma(t *testing.T) {
	s := load(t, tableParadigm)

	got, ok := s.RestoreLemma(unistring.New("столам"), 0, 4)
	if !ok {
		t.Fatal("лемма не восстановилась")
	}
	if got.String() != "стол" {
		t.Errorf("лемма %q, ожидали 'стол'", got.String())
	}

	// Форма без заявленного окончания восстанавливаться не должна.
	if _, ok := s.RestoreLemma(unistring.New("столик"), 0, 4); ok {
		t.Error("восстановление по чужой форме должно отклоняться")
	}
}

func TestApplyInverse_AllForms(t *testing.T) {
	s := load(t, tableParadigm, prefixedParadigm)
	lemmas := []string{"стол", "хороший"}

	// Для каждой формы каждой парадигмы: применение и восстановление
	// обязаны быть взаимно обратными.
	for pid := uint32(0); int(pid) < s.Count(); pid++ {
		lemma := unistring.New(lemmas[pid])
		for i := 0; i < s.Len(pid); i++ {
			form, err := s.Apply(lemma, pid, i)
			if err != nil {
				t.Fatalf("Apply(%d, %d): %v", pid, i, err)
			}
			back, ok := s.RestoreLemma(form, pid, i)
			if !ok {
				t.Fatalf("RestoreLemma(%q, %d, %d) не удалось", form.String(), pid, i)
			}
			if !back.Equal(lemma) {
				t.Errorf("парадигма %d форма %d: восстановлено %q, ожидали %q",
					pid, i, back.String(), lemma.String())
			}
		}
	}
}

func TestPrefixedForm(t *testing.T) {
	s := load(t, prefixedParadigm)
	got, err := s.Apply(unistring.New("хороший"), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "наихорошее" {
		t.Errorf("получили %q, ожидали 'наихорошее'", got.String())
	}
}

func TestStemLen(t *testing.T) {
	s := load(t, tableParadigm)
	if got := s.StemLen(unistring.New("столам"), 0, 4); got != 4 {
		t.Errorf("StemLen = %d, ожидали 4", got)
	}
}

func TestTagLookup(t *testing.T) {
	s := load(t, tableParadigm)
	tag, err := s.Tag(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !tag.Subsumes(tagset.NOUN | tagset.Plur | tagset.Nomn) {
		t.Errorf("тег формы 3 (%v) должен содержать NOUN,plur,nomn", tag)
	}
}

func TestOutOfRange(t *testing.T) {
	s := load(t, tableParadigm)
	if _, err := s.Record(0, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидали ErrNotFound, получили %v", err)
	}
	if _, err := s.Record(5, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидали ErrNotFound для чужой парадигмы, получили %v", err)
	}
}

func TestCorruptStore(t *testing.T) {
	w := NewWriter()
	w.AddParadigm(tableParadigm)
	pb, sb, err := w.Finish()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("сигнатура парадигм", func(t *testing.T) {
		bad := append([]byte(nil), pb...)
		bad[0] = 'Z'
		if _, err := Load(bad, sb); !errors.Is(err, ErrCorrupt) {
			t.Errorf("ожидали ErrCorrupt, получили %v", err)
		}
	})
	t.Run("сигнатура строк", func(t *testing.T) {
		bad := append([]byte(nil), sb...)
		bad[0] = 'Z'
		if _, err := Load(pb, bad); !errors.Is(err, ErrCorrupt) {
			t.Errorf("ожидали ErrCorrupt, получили %v", err)
		}
	})
	t.Run("обрезанные записи", func(t *testing.T) {
		if _, err := Load(pb[:len(pb)-4], sb); !errors.Is(err, ErrCorrupt) {
			t.Errorf("ожидали ErrCorrupt, получили %v", err)
		}
	})
}
