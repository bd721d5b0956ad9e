package features

import (
	"github.com/fakemoon123/XMorphy/tokenizer"
	"github.com/fakemoon123/XMorphy/unistring"
)

// HandDim - размерность ручных признаков токена.
const HandDim = 9

// Индексы ручных признаков.
const (
	fLength = iota
	fAllLower
	fTitle
	fAllUpper
	fMixedCase
	fHasDigit
	fHasHyphen
	fIsPunct
	fIsNumber
)

// HandFeatures строит вектор ручных признаков токена: длина,
// рисунок регистра, цифры, дефис, класс токена.
func HandFeatures(tok tokenizer.Token) []float32 {
	out := make([]float32, HandDim)
	out[fLength] = float32(tok.Text.Len())

	switch capPattern(tok.Text) {
	case capLower:
		out[fAllLower] = 1
	case capTitle:
		out[fTitle] = 1
	case capUpper:
		out[fAllUpper] = 1
	case capMixed:
		out[fMixedCase] = 1
	}

	for _, c := range tok.Text {
		if c.IsDigit() {
			out[fHasDigit] = 1
		}
		if c == unistring.Char("-") {
			out[fHasHyphen] = 1
		}
	}
	if tok.Type == tokenizer.Punct {
		out[fIsPunct] = 1
	}
	if tok.Type == tokenizer.Number {
		out[fIsNumber] = 1
	}
	return out
}

const (
	capNone = iota
	capLower
	capTitle
	capUpper
	capMixed
)

// capPattern определяет рисунок регистра слова.
func capPattern(u unistring.Unistring) int {
	letters := 0
	uppers := 0
	firstUpper := false
	for i, c := range u {
		if !c.IsLetter() {
			continue
		}
		letters++
		if c.IsUpper() {
			uppers++
			if i == 0 {
				firstUpper = true
			}
		}
	}
	switch {
	case letters == 0:
		return capNone
	case uppers == 0:
		return capLower
	case uppers == letters:
		return capUpper
	case uppers == 1 && firstUpper:
		return capTitle
	default:
		return capMixed
	}
}
