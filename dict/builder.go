package dict

import (
	"fmt"
	"sort"

	"github.com/fakemoon123/XMorphy/dawg"
	"github.com/fakemoon123/XMorphy/paradigm"
	"github.com/fakemoon123/XMorphy/unistring"
)

// Максимальная длина суффикса, для которого предсказатель хранит правила.
const maxSuffixRuleLen = 5

// defaultPrefixes - продуктивные приставки русского языка. Попадают в
// префиксный DAWG каждого словаря; построитель может добавить свои.
var defaultPrefixes = []string{
	"без", "бес", "в", "вз", "вне", "во", "воз", "вос", "вы", "до", "за",
	"из", "ис", "меж", "на", "над", "наи", "не", "ни", "низ", "нис", "о",
	"об", "обо", "от", "ото", "пере", "по", "под", "подо", "поза", "после",
	"пра", "пре", "пред", "при", "про", "противо", "раз", "рас", "роз",
	"с", "сверх", "со", "су", "у", "через", "черес", "чрез",
}

// Builder собирает словарь целиком: парадигмы, поверхностные формы,
// правила предсказателя и множество приставок, и сериализует все это
// в контейнер XMDICT.
type Builder struct {
	pw *paradigm.Writer

	// Поверхностная форма (в верхнем регистре) -> записи разбора.
	surfaces map[string][]mainEntry

	// Перевернутый суффикс -> правило -> накопленная частота.
	rules map[string]map[suffixRuleKey]uint32

	prefixes map[string]struct{}
}

type suffixRuleKey struct {
	pid uint32
	idx uint32
}

// NewBuilder создает пустой построитель словаря.
func NewBuilder() *Builder {
	b := &Builder{
		pw:       paradigm.NewWriter(),
		surfaces: make(map[string][]mainEntry),
		rules:    make(map[string]map[suffixRuleKey]uint32),
		prefixes: make(map[string]struct{}),
	}
	for _, p := range defaultPrefixes {
		b.AddPrefix(p)
	}
	return b
}

// AddPrefix вносит приставку в префиксный DAWG.
func (b *Builder) AddPrefix(p string) {
	b.prefixes[unistring.New(p).Upper().String()] = struct{}{}
}

// AddLexeme регистрирует лексему: парадигму и основу. Каждая форма
// парадигмы порождает поверхностный ключ основного DAWG и правила
// предсказателя для суффиксов длины 1..5.
//
// Ключи словаря хранятся в верхнем регистре, поэтому и аффиксы
// парадигмы приводятся к нему же: иначе восстановление леммы по
// поверхностной форме не нашло бы своих аффиксов.
func (b *Builder) AddLexeme(forms []paradigm.FormSpec, stem string, freq uint32) (uint32, error) {
	normForms := make([]paradigm.FormSpec, len(forms))
	for i, f := range forms {
		normForms[i] = paradigm.FormSpec{
			Tag:     f.Tag,
			LeftAdd: unistring.New(f.LeftAdd).Upper().String(),
			Ending:  unistring.New(f.Ending).Upper().String(),
		}
	}
	pid, err := b.pw.AddParadigm(normForms)
	if err != nil {
		return 0, err
	}

	stemU := unistring.New(stem).Upper()
	for idx, f := range normForms {
		surface := unistring.New(f.LeftAdd).
			Concat(stemU).
			Concat(unistring.New(f.Ending))
		key := surface.String()
		b.surfaces[key] = append(b.surfaces[key], mainEntry{
			ParadigmID: pid,
			FormIndex:  uint32(idx),
			Freq:       freq,
		})

		// Правила предсказателя: суффиксы всех длин до пяти кластеров,
		// но не длиннее самой формы.
		reversed := surface.Reverse()
		maxLen := reversed.Len()
		if maxLen > maxSuffixRuleLen {
			maxLen = maxSuffixRuleLen
		}
		for l := 1; l <= maxLen; l++ {
			rk := reversed.Slice(0, l).String()
			if b.rules[rk] == nil {
				b.rules[rk] = make(map[suffixRuleKey]uint32)
			}
			b.rules[rk][suffixRuleKey{pid: pid, idx: uint32(idx)}] += freq
		}
	}
	return pid, nil
}

// Finish сериализует словарь в контейнер XMDICT.
func (b *Builder) Finish() ([]byte, error) {
	paradigmBlob, lemmaBlob, err := b.pw.Finish()
	if err != nil {
		return nil, err
	}

	mainBlob, err := b.buildMain()
	if err != nil {
		return nil, err
	}
	suffixBlob, err := b.buildSuffix()
	if err != nil {
		return nil, err
	}
	prefixBlob, err := b.buildPrefix()
	if err != nil {
		return nil, err
	}

	return WriteContainer(mainBlob, suffixBlob, prefixBlob, paradigmBlob, lemmaBlob), nil
}

func (b *Builder) buildMain() ([]byte, error) {
	keys := make([]string, 0, len(b.surfaces))
	for k := range b.surfaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	db := dawg.NewBuilder()
	for _, k := range keys {
		entries := b.surfaces[k]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ParadigmID != entries[j].ParadigmID {
				return entries[i].ParadigmID < entries[j].ParadigmID
			}
			return entries[i].FormIndex < entries[j].FormIndex
		})
		if err := db.Add(unistring.New(k), encodeMainPayload(entries)); err != nil {
			return nil, fmt.Errorf("dict: основной DAWG: %w", err)
		}
	}
	return db.Finish()
}

func (b *Builder) buildSuffix() ([]byte, error) {
	keys := make([]string, 0, len(b.rules))
	for k := range b.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	db := dawg.NewBuilder()
	for _, k := range keys {
		ruleSet := b.rules[k]
		entries := make([]suffixEntry, 0, len(ruleSet))
		for rk, freq := range ruleSet {
			entries = append(entries, suffixEntry{Freq: freq, ParadigmID: rk.pid, FormIndex: rk.idx})
		}
		// Частые правила первыми: предсказатель читает нагрузку по порядку.
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Freq != entries[j].Freq {
				return entries[i].Freq > entries[j].Freq
			}
			if entries[i].ParadigmID != entries[j].ParadigmID {
				return entries[i].ParadigmID < entries[j].ParadigmID
			}
			return entries[i].FormIndex < entries[j].FormIndex
		})
		if err := db.Add(unistring.New(k), encodeSuffixPayload(entries)); err != nil {
			return nil, fmt.Errorf("dict: суффиксный DAWG: %w", err)
		}
	}
	return db.Finish()
}

func (b *Builder) buildPrefix() ([]byte, error) {
	keys := make([]string, 0, len(b.prefixes))
	for k := range b.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	db := dawg.NewBuilder()
	for _, k := range keys {
		if err := db.Add(unistring.New(k), nil); err != nil {
			return nil, fmt.Errorf("dict: префиксный DAWG: %w", err)
		}
	}
	return db.Finish()
}
