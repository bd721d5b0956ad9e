// Пакет tokenizer режет текст на токены детерминированным конечным
// автоматом. Классификация опирается только на категорию символа,
// поэтому результат не зависит ни от словаря, ни от локали.
//
// Пробельные токены тоже попадают в выдачу: конкатенация текстов всех
// токенов побайтно равна исходной строке, приведенной к NFC. Для входа,
// уже записанного в NFC, это сама исходная строка; вход в другой форме
// восстанавливается в форме NFC, а не в исходных байтах.
package tokenizer

import (
	"unicode"

	"github.com/fakemoon123/XMorphy/unistring"
)

// Type - грубый класс токена.
type Type uint8

const (
	Word      Type = iota // последовательность букв
	Number                // последовательность цифр
	Punct                 // знаки препинания и символы
	Separator             // пробельные символы
	Other                 // все остальное
)

var typeNames = [...]string{"WORD", "NUMB", "PNCT", "SEPR", "OTHER"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "OTHER"
}

// Token - один токен входного текста.
type Token struct {
	Text unistring.Unistring // исходный текст токена
	Norm unistring.Unistring // нормализованная (верхний регистр) форма
	Type Type
	// Полуинтервал [Start, End) в кластерах от начала входа.
	Start, End int
}

// IsLatin сообщает, состоит ли словесный токен целиком из латиницы.
// Такие токены обходят словарный анализ и помечаются тегом LATN.
func (t Token) IsLatin() bool {
	if t.Type != Word {
		return false
	}
	for _, c := range t.Text {
		if !c.IsLatin() {
			return false
		}
	}
	return t.Text.Len() > 0
}

// Состояния автомата.
const (
	stStart = iota
	stWord
	stNum
	stPunct
	stSep
	stOther
)

// category относит кластер к классу, управляющему переходами автомата.
func category(c unistring.Char) int {
	r := c.Rune()
	switch {
	case unicode.IsLetter(r):
		return stWord
	case unicode.IsDigit(r):
		return stNum
	case unicode.IsSpace(r):
		return stSep
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return stPunct
	default:
		return stOther
	}
}

func tokenType(state int) Type {
	switch state {
	case stWord:
		return Word
	case stNum:
		return Number
	case stPunct:
		return Punct
	case stSep:
		return Separator
	default:
		return Other
	}
}

// mergeable сообщает, продолжает ли кластер токен текущего состояния.
// Буквы, цифры и пробелы сливаются в один токен; каждый знак
// препинания - отдельный токен; перевод строки - принудительный разрыв.
func mergeable(state, cat int, c unistring.Char) bool {
	if c.Rune() == '\n' {
		return false
	}
	if state != cat {
		return false
	}
	return state == stWord || state == stNum || state == stSep
}

// Tokenize разбивает текст на токены.
func Tokenize(text string) []Token {
	u := unistring.New(text)
	var tokens []Token

	state := stStart
	start := 0
	flush := func(end int) {
		if state == stStart || start == end {
			return
		}
		chunk := u.Slice(start, end)
		tokens = append(tokens, Token{
			Text:  chunk,
			Norm:  chunk.Upper(),
			Type:  tokenType(state),
			Start: start,
			End:   end,
		})
	}

	for i := 0; i < u.Len(); i++ {
		c := u[i]
		cat := category(c)
		if state == stStart || !mergeable(state, cat, c) {
			flush(i)
			state = cat
			start = i
		}
	}
	flush(u.Len())
	return tokens
}

// Reconstruct собирает исходный текст из токенов (в форме NFC).
func Reconstruct(tokens []Token) string {
	var out unistring.Unistring
	for _, t := range tokens {
		out = out.Concat(t.Text)
	}
	return out.String()
}

// sentenceEnd сообщает, завершает ли токен предложение.
func sentenceEnd(t Token) bool {
	if t.Type == Separator {
		return t.Text.Contains(unistring.Char("\n"))
	}
	if t.Type != Punct {
		return false
	}
	switch t.Text.String() {
	case ".", "!", "?", "…":
		return true
	}
	return false
}

// SplitSentences группирует токены по предложениям. Разделителем служит
// конечная пунктуация или перевод строки; сам разделитель остается
// в своем предложении, так что конкатенация групп восстанавливает вход.
func SplitSentences(tokens []Token) [][]Token {
	var sentences [][]Token
	var cur []Token
	closing := false
	for _, t := range tokens {
		if closing && t.Type != Punct && t.Type != Separator {
			sentences = append(sentences, cur)
			cur = nil
			closing = false
		}
		cur = append(cur, t)
		if sentenceEnd(t) {
			closing = true
		}
	}
	if len(cur) > 0 {
		sentences = append(sentences, cur)
	}
	return sentences
}
