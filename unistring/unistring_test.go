package unistring

import "testing"

// TestNew_Graphemes проверяет, что комбинируемые знаки склеиваются
// со своей базовой буквой в один кластер.
func TestNew_Graphemes(t *testing.T) {
	// "й" в разложенной форме: и + U+0306 (бреве). После NFC это один кластер "й".
	u := New("йод")
	if u.Len() != 3 {
		t.Fatalf("ожидали 3 кластера, получили %d (%q)", u.Len(), u.String())
	}
	if u.At(0) != Char("й") {
		t.Errorf("ожидали кластер 'й', получили %q", u.At(0))
	}
}

func TestUnistring_RoundTrip(t *testing.T) {
	cases := []string{"", "стол", "Привет, мир!", "ё", "cöte"}
	for _, s := range cases {
		// После нормализации строка может отличаться байтово,
		// но повторная сборка уже нормализованной строки обязана быть точной.
		u := New(s)
		if got := New(u.String()); !got.Equal(u) {
			t.Errorf("строка %q не прошла круговую сборку: %q", s, got.String())
		}
	}
}

func TestUnistring_CaseAndCuts(t *testing.T) {
	u := New("Столы")

	if got := u.Upper().String(); got != "СТОЛЫ" {
		t.Errorf("Upper: ожидали СТОЛЫ, получили %q", got)
	}
	if got := u.Lower().String(); got != "столы" {
		t.Errorf("Lower: ожидали столы, получили %q", got)
	}
	if got := u.CutRight(1).String(); got != "Стол" {
		t.Errorf("CutRight: ожидали Стол, получили %q", got)
	}
	if got := u.CutLeft(2).String(); got != "олы" {
		t.Errorf("CutLeft: ожидали олы, получили %q", got)
	}
	if got := u.Slice(1, 3).String(); got != "то" {
		t.Errorf("Slice: ожидали то, получили %q", got)
	}
}

func TestUnistring_SplitConcat(t *testing.T) {
	u := New("из-за")
	parts := u.Split(Char("-"))
	if len(parts) != 2 || parts[0].String() != "из" || parts[1].String() != "за" {
		t.Fatalf("Split: неожиданный результат %v", parts)
	}
	if got := parts[0].Concat(New("-")).Concat(parts[1]).String(); got != "из-за" {
		t.Errorf("Concat: ожидали из-за, получили %q", got)
	}
}

func TestUnistring_Reverse(t *testing.T) {
	if got := New("стол").Reverse().String(); got != "лотс" {
		t.Errorf("Reverse: ожидали лотс, получили %q", got)
	}
}

func TestChar_Vowels(t *testing.T) {
	vowels := "аеёиоуыэюя"
	for _, r := range vowels {
		if !(Char(string(r))).IsVowel() {
			t.Errorf("символ %q должен считаться гласной", r)
		}
	}
	for _, r := range "кпрст" {
		if (Char(string(r))).IsVowel() {
			t.Errorf("символ %q не должен считаться гласной", r)
		}
	}
	// Регистр не влияет.
	if !Char("А").IsVowel() {
		t.Error("заглавная А должна считаться гласной")
	}
}

func TestUnistring_Hash(t *testing.T) {
	a, b := New("сталь"), New("сталь")
	if a.Hash() != b.Hash() {
		t.Error("хеши одинаковых строк должны совпадать")
	}
	if a.Hash() == New("стали").Hash() {
		t.Error("хеши разных строк не должны совпадать (для этих значений)")
	}
}

func TestUnistring_PrefixSuffix(t *testing.T) {
	u := New("переподготовка")
	if !u.HasPrefix(New("пере")) {
		t.Error("ожидали префикс 'пере'")
	}
	if !u.HasSuffix(New("ка")) {
		t.Error("ожидали суффикс 'ка'")
	}
	if u.HasPrefix(New("под")) {
		t.Error("'под' не является префиксом всей строки")
	}
}

func TestUnistring_OutOfRange(t *testing.T) {
	u := New("да")
	if u.At(-1) != Empty || u.At(5) != Empty {
		t.Error("выход за границы должен давать Empty")
	}
	if u.CutLeft(10) != nil || u.CutRight(10) != nil {
		t.Error("срез больше длины должен давать пустую строку")
	}
}
