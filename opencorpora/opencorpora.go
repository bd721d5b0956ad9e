// Пакет opencorpora строит бинарный словарь XMDICT из лингвистического
// XML-источника формата OpenCorpora. Это офлайн-инструмент: он не нужен
// во время анализа, его дело - однократно собрать контейнер, который
// затем годами раздается анализатору через mmap.
//
// XML читается потоково, лемма за леммой: полный файл OpenCorpora
// занимает сотни мегабайт и целиком в память не загружается.
package opencorpora

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/paradigm"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// lemmaXML - одна лемма исходного XML.
type lemmaXML struct {
	ID   int       `xml:"id,attr"`
	Base formXML   `xml:"l"`
	Form []formXML `xml:"f"`
}

type formXML struct {
	Text      string `xml:"t,attr"`
	Grammemes []struct {
		V string `xml:"v,attr"`
	} `xml:"g"`
}

func (f formXML) tagString() string {
	parts := make([]string, 0, len(f.Grammemes))
	for _, g := range f.Grammemes {
		parts = append(parts, g.V)
	}
	return strings.Join(parts, ",")
}

// Build читает OpenCorpora XML и пишет контейнер XMDICT.
func Build(r io.Reader, w io.Writer) error {
	b := dict.NewBuilder()

	n, err := feed(r, b)
	if err != nil {
		return err
	}
	log.Printf("opencorpora: обработано %d лемм", n)

	blob, err := b.Finish()
	if err != nil {
		return err
	}
	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("opencorpora: ошибка записи словаря: %w", err)
	}
	return nil
}

// feed прогоняет все леммы источника через построитель словаря.
func feed(r io.Reader, b *dict.Builder) (int, error) {
	decoder := xml.NewDecoder(r)
	count := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("opencorpora: ошибка разбора XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "lemma" {
			continue
		}

		var lemma lemmaXML
		if err := decoder.DecodeElement(&lemma, &start); err != nil {
			return count, fmt.Errorf("opencorpora: ошибка разбора леммы: %w", err)
		}
		if err := addLemma(b, lemma); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// addLemma превращает лемму OpenCorpora в лексему словаря: вычисляет
// общую основу всех форм и кодирует каждую форму ее окончанием.
func addLemma(b *dict.Builder, lemma lemmaXML) error {
	if len(lemma.Form) == 0 {
		return nil
	}

	// Граммемы самой леммы (часть речи, одушевленность, род) действуют
	// на все формы; граммемы формы добавляются к ним.
	baseTag := tagset.Parse(lemma.Base.tagString())

	forms := make([]unistring.Unistring, len(lemma.Form))
	tags := make([]tagset.MorphTag, len(lemma.Form))
	for i, f := range lemma.Form {
		forms[i] = unistring.New(strings.ToLower(f.Text))
		tags[i] = baseTag | tagset.Parse(f.tagString())
		if forms[i].Len() == 0 {
			return nil
		}
	}

	stem := commonPrefix(forms)
	specs := make([]paradigm.FormSpec, len(forms))
	for i, f := range forms {
		specs[i] = paradigm.FormSpec{
			Tag:    tags[i],
			Ending: f.CutLeft(stem.Len()).String(),
		}
	}

	_, err := b.AddLexeme(specs, stem.String(), 1)
	return err
}

// commonPrefix возвращает самый длинный общий префикс всех форм.
func commonPrefix(forms []unistring.Unistring) unistring.Unistring {
	if len(forms) == 0 {
		return nil
	}
	prefix := forms[0]
	for _, f := range forms[1:] {
		n := 0
		for n < prefix.Len() && n < f.Len() && prefix[n] == f[n] {
			n++
		}
		prefix = prefix.Slice(0, n)
		if prefix.Len() == 0 {
			break
		}
	}
	return prefix
}
