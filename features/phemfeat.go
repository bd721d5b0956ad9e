package features

import (
	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// Посимвольные признаки сегментатора морфем. На каждый кластер слова
// строится вектор фиксированной размерности: сам символ, его свойства,
// позиция, словарные счетчики для текущего разреза и контекстное окно.

// Ширина контекстного окна с каждой стороны.
const charWindow = 3

// PhemDim - размерность вектора признаков одного символа.
const PhemDim = 7 + 2*charWindow + 5

// Индексы скалярных признаков.
const (
	pfCharID = iota
	pfVowel
	pfPosition
	pfFrequency
	pfPrefixMember
	pfPrefixCount
	pfSuffixCount
	// Далее 2*charWindow идентификаторов окна и 5 граммем.
)

// alphabet - алфавит для кодирования символов. Ноль зарезервирован
// под отсутствующий символ (за границей слова).
var alphabet = unistring.New("абвгдеёжзийклмнопрстуфхцчшщъыьэюя-")

var alphaIndex = func() map[unistring.Char]int {
	m := make(map[unistring.Char]int, alphabet.Len())
	for i, c := range alphabet {
		m[c] = i + 1
	}
	return m
}()

// letterFreq - эмпирические частоты букв русского языка.
var letterFreq = map[unistring.Char]float32{
	unistring.Char("о"): 0.1097, unistring.Char("е"): 0.0845, unistring.Char("а"): 0.0801,
	unistring.Char("и"): 0.0735, unistring.Char("н"): 0.0670, unistring.Char("т"): 0.0626,
	unistring.Char("с"): 0.0547, unistring.Char("р"): 0.0473, unistring.Char("в"): 0.0454,
	unistring.Char("л"): 0.0440, unistring.Char("к"): 0.0349, unistring.Char("м"): 0.0321,
	unistring.Char("д"): 0.0298, unistring.Char("п"): 0.0281, unistring.Char("у"): 0.0262,
	unistring.Char("я"): 0.0201, unistring.Char("ы"): 0.0190, unistring.Char("ь"): 0.0174,
	unistring.Char("г"): 0.0170, unistring.Char("з"): 0.0165, unistring.Char("б"): 0.0159,
	unistring.Char("ч"): 0.0144, unistring.Char("й"): 0.0121, unistring.Char("х"): 0.0097,
	unistring.Char("ж"): 0.0094, unistring.Char("ш"): 0.0073, unistring.Char("ю"): 0.0064,
	unistring.Char("ц"): 0.0048, unistring.Char("щ"): 0.0036, unistring.Char("э"): 0.0032,
	unistring.Char("ф"): 0.0026, unistring.Char("ъ"): 0.0004, unistring.Char("ё"): 0.0004,
}

func charID(c unistring.Char) float32 {
	if c == unistring.Empty {
		return 0
	}
	if id, ok := alphaIndex[c.Lower()]; ok {
		return float32(id)
	}
	return float32(alphabet.Len() + 1)
}

// CharEncoder строит посимвольные признаки, опираясь на словарь:
// префиксный DAWG дает признак членства и счетчики для левой части
// разреза, суффиксный - счетчики для правой.
type CharEncoder struct {
	Dict *dict.Dictionary
}

// Encode возвращает матрицу len(word) x PhemDim. Победившая
// интерпретация слова подмешивается в каждый вектор: сегментатору
// важно знать часть речи, падеж, род, число и время.
func (e *CharEncoder) Encode(word unistring.Unistring, winner dict.MorphInfo) [][]float32 {
	lower := word.Lower()
	n := lower.Len()
	out := make([][]float32, n)

	gram := [5]float32{
		catIndex(winner.Tag, tagset.MaskPOS),
		catIndex(winner.Tag, tagset.MaskCase),
		catIndex(winner.Tag, tagset.MaskGender),
		catIndex(winner.Tag, tagset.MaskNumber),
		catIndex(winner.Tag, tagset.MaskTense),
	}

	for i := 0; i < n; i++ {
		v := make([]float32, PhemDim)
		c := lower.At(i)
		v[pfCharID] = charID(c)
		if c.IsVowel() {
			v[pfVowel] = 1
		}
		v[pfPosition] = float32(i)
		v[pfFrequency] = letterFreq[c]

		// Разрез после текущего символа: левая часть word[0..i],
		// правая - word[i+1..]. Членство и счетчики из DAWG приставок
		// и суффиксного DAWG.
		left := lower.Slice(0, i+1)
		right := lower.Slice(i+1, n)
		if e.Dict != nil {
			if e.Dict.HasPrefix(left) {
				v[pfPrefixMember] = 1
			}
			v[pfPrefixCount] = float32(e.Dict.CountPrefix(left))
			v[pfSuffixCount] = float32(e.Dict.CountSuffix(right))
		}

		// Контекстное окно: по charWindow символов слева и справа,
		// отсутствующие позиции кодируются нулем (пустой маркер).
		for w := 1; w <= charWindow; w++ {
			v[pfSuffixCount+w] = charID(lower.At(i - w))
			v[pfSuffixCount+charWindow+w] = charID(lower.At(i + w))
		}

		copy(v[PhemDim-5:], gram[:])
		out[i] = v
	}
	return out
}

// catIndex возвращает порядковый номер граммемы внутри категории
// (1-based) либо ноль, если категория не выражена.
func catIndex(tag tagset.MorphTag, mask tagset.MorphTag) float32 {
	bits := tag & mask
	if bits == 0 {
		return 0
	}
	idx := 1
	for b := tagset.MorphTag(1); b != 0; b <<= 1 {
		if mask&b == 0 {
			continue
		}
		if bits&b != 0 {
			return float32(idx)
		}
		idx++
	}
	return 0
}
