package tokenizer

import "testing"

func TestTokenize_Basic(t *testing.T) {
	tokens := Tokenize("Привет, мир!")

	want := []struct {
		text string
		typ  Type
	}{
		{"Привет", Word},
		{",", Punct},
		{" ", Separator},
		{"мир", Word},
		{"!", Punct},
	}
	if len(tokens) != len(want) {
		t.Fatalf("получили %d токенов, ожидали %d: %+v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Text.String() != w.text || tokens[i].Type != w.typ {
			t.Errorf("токен %d: (%q, %v), ожидали (%q, %v)",
				i, tokens[i].Text.String(), tokens[i].Type, w.text, w.typ)
		}
	}
}

// TestReconstruction - свойство восстановления: конкатенация текстов
// токенов побайтно равна входу.
func TestReconstruction(t *testing.T) {
	cases := []string{
		"",
		"Привет, мир!",
		"слово",
		"  ведущие пробелы",
		"числа 123 и 456.78 вперемешку",
		"многострочный\nтекст\n\nс пустыми строками",
		"дефисное из-за и тире — вот",
		"латиница mixed с кириллицей",
		"!!!знаки???",
	}
	for _, s := range cases {
		if got := Reconstruct(Tokenize(s)); got != s {
			t.Errorf("восстановление %q дало %q", s, got)
		}
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tokens := Tokenize("в 2024 году")
	var nums []string
	for _, tok := range tokens {
		if tok.Type == Number {
			nums = append(nums, tok.Text.String())
		}
	}
	if len(nums) != 1 || nums[0] != "2024" {
		t.Errorf("ожидали один числовой токен 2024, получили %v", nums)
	}
}

func TestTokenize_PunctSeparate(t *testing.T) {
	// Каждый знак препинания - отдельный токен, они не сливаются.
	tokens := Tokenize("да?!")
	if len(tokens) != 3 {
		t.Fatalf("ожидали 3 токена, получили %d", len(tokens))
	}
	if tokens[1].Text.String() != "?" || tokens[2].Text.String() != "!" {
		t.Errorf("знаки должны быть раздельными: %+v", tokens)
	}
}

func TestTokenize_Normalization(t *testing.T) {
	tokens := Tokenize("СтОл")
	if tokens[0].Norm.String() != "СТОЛ" {
		t.Errorf("нормализованная форма %q, ожидали СТОЛ", tokens[0].Norm.String())
	}
}

func TestToken_IsLatin(t *testing.T) {
	tokens := Tokenize("word слово")
	if !tokens[0].IsLatin() {
		t.Error("латинский токен не распознан")
	}
	if tokens[2].IsLatin() {
		t.Error("кириллический токен не должен считаться латинским")
	}
}

func TestTokenize_Spans(t *testing.T) {
	tokens := Tokenize("аб вг")
	wantSpans := [][2]int{{0, 2}, {2, 3}, {3, 5}}
	for i, w := range wantSpans {
		if tokens[i].Start != w[0] || tokens[i].End != w[1] {
			t.Errorf("токен %d: [%d,%d), ожидали [%d,%d)",
				i, tokens[i].Start, tokens[i].End, w[0], w[1])
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tokens := Tokenize("Первое. Второе! Третье")
	sentences := SplitSentences(tokens)
	if len(sentences) != 3 {
		t.Fatalf("ожидали 3 предложения, получили %d", len(sentences))
	}

	// Конкатенация групп восстанавливает вход.
	var all []Token
	for _, s := range sentences {
		all = append(all, s...)
	}
	if got := Reconstruct(all); got != "Первое. Второе! Третье" {
		t.Errorf("предложения не восстанавливают вход: %q", got)
	}
}

func TestSplitSentences_Newline(t *testing.T) {
	sentences := SplitSentences(Tokenize("строка один\nстрока два"))
	if len(sentences) != 2 {
		t.Fatalf("перевод строки должен делить предложения, получили %d", len(sentences))
	}
}
