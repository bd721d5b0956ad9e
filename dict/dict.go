// Пакет dict реализует словарный движок: бинарный контейнер XMDICT,
// морфологический анализ словарных слов, предсказание несловарных слов
// по суффиксному DAWG и синтез словоформ по парадигмам.
//
// Контейнер загружается через mmap: состояния всех трех DAWG и записи
// хранилища парадигм обходятся прямо по отображенной памяти. В кучу при
// загрузке распаковываются только алфавиты DAWG и таблица строк
// парадигм. После загрузки словарь неизменяем и свободно
// разделяется любым числом горутин.
package dict

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/fakemoon123/XMorphy/dawg"
	"github.com/fakemoon123/XMorphy/paradigm"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// ErrCorrupt возвращается при повреждении контейнера или любой из его
// секций. Ошибка фатальна и возможна только при загрузке.
var ErrCorrupt = errors.New("dict: повреждённый словарь")

const formatVersion = 1

// fileMagic - сигнатура контейнера: "XMDICT\0" с дополнением нулями.
var fileMagic = [12]byte{'X', 'M', 'D', 'I', 'C', 'T', 0}

// fileHeader - карта контейнера XMDICT. Читается одним binary.Read;
// дальше каждая секция отдается своему движку по смещению.
type fileHeader struct {
	Magic   [12]byte
	Version uint32

	DawgOffset       uint32
	DawgSize         uint32
	SuffixDawgOffset uint32
	SuffixDawgSize   uint32
	PrefixDawgOffset uint32
	PrefixDawgSize   uint32
	ParadigmOffset   uint32
	ParadigmSize     uint32
	LemmaTableOffset uint32
	LemmaTableSize   uint32
}

// Dictionary - загруженный словарь.
type Dictionary struct {
	main   *dawg.DAWG // поверхностная форма -> интерпретации
	suffix *dawg.DAWG // перевернутая форма -> правила предсказания
	prefix *dawg.DAWG // множество продуктивных приставок
	store  *paradigm.Store

	// Ссылка на отображение, чтобы память жила, пока жив словарь.
	mapped mmap.MMap
}

// Open отображает файл словаря в память и разбирает контейнер.
func Open(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dict: ошибка открытия файла: %w", err)
	}
	defer f.Close()

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("dict: ошибка mmap.Map: %w", err)
	}

	d, err := FromBytes(mapped)
	if err != nil {
		_ = mapped.Unmap()
		return nil, err
	}
	d.mapped = mapped
	return d, nil
}

// FromBytes разбирает контейнер из готового среза байтов.
// Срез обязан жить, пока жив словарь: секции не копируются.
func FromBytes(blob []byte) (*Dictionary, error) {
	var hdr fileHeader
	hdrSize := binary.Size(hdr)
	if len(blob) < hdrSize {
		return nil, fmt.Errorf("%w: файл короче заголовка", ErrCorrupt)
	}
	if err := binary.Read(bytes.NewReader(blob[:hdrSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: заголовок не читается: %v", ErrCorrupt, err)
	}
	if hdr.Magic != fileMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура файла", ErrCorrupt)
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorrupt, hdr.Version)
	}

	section := func(name string, off, size uint32) ([]byte, error) {
		if uint64(off)+uint64(size) > uint64(len(blob)) {
			return nil, fmt.Errorf("%w: секция %s вне файла", ErrCorrupt, name)
		}
		return blob[off : off+size], nil
	}

	mainBlob, err := section("dawg", hdr.DawgOffset, hdr.DawgSize)
	if err != nil {
		return nil, err
	}
	suffixBlob, err := section("suffix_dawg", hdr.SuffixDawgOffset, hdr.SuffixDawgSize)
	if err != nil {
		return nil, err
	}
	prefixBlob, err := section("prefix_dawg", hdr.PrefixDawgOffset, hdr.PrefixDawgSize)
	if err != nil {
		return nil, err
	}
	paradigmBlob, err := section("paradigm", hdr.ParadigmOffset, hdr.ParadigmSize)
	if err != nil {
		return nil, err
	}
	lemmaBlob, err := section("lemma_table", hdr.LemmaTableOffset, hdr.LemmaTableSize)
	if err != nil {
		return nil, err
	}

	d := &Dictionary{}
	if d.main, err = dawg.Open(mainBlob); err != nil {
		return nil, fmt.Errorf("%w: основной DAWG: %v", ErrCorrupt, err)
	}
	if d.suffix, err = dawg.Open(suffixBlob); err != nil {
		return nil, fmt.Errorf("%w: суффиксный DAWG: %v", ErrCorrupt, err)
	}
	if d.prefix, err = dawg.Open(prefixBlob); err != nil {
		return nil, fmt.Errorf("%w: префиксный DAWG: %v", ErrCorrupt, err)
	}
	if d.store, err = paradigm.Load(paradigmBlob, lemmaBlob); err != nil {
		return nil, fmt.Errorf("%w: хранилище парадигм: %v", ErrCorrupt, err)
	}

	// Сквозная проверка ссылочной целостности: каждая запись основного
	// DAWG обязана указывать на существующую форму существующей парадигмы.
	valid := true
	d.main.WalkPrefix(nil, func(key unistring.Unistring, payload []byte) bool {
		entries, err := decodeMainPayload(payload)
		if err != nil {
			valid = false
			return false
		}
		for _, e := range entries {
			n := d.store.Len(e.ParadigmID)
			if n < 0 || int(e.FormIndex) >= n {
				valid = false
				return false
			}
		}
		return true
	})
	if !valid {
		return nil, fmt.Errorf("%w: запись DAWG ссылается на несуществующую форму парадигмы", ErrCorrupt)
	}

	return d, nil
}

// Close снимает отображение файла. Для словаря из среза - ничего не делает.
func (d *Dictionary) Close() error {
	if d.mapped != nil {
		err := d.mapped.Unmap()
		d.mapped = nil
		return err
	}
	return nil
}

// Store открывает доступ к хранилищу парадигм.
func (d *Dictionary) Store() *paradigm.Store {
	return d.store
}

// PrefixDAWG открывает доступ к множеству приставок:
// им пользуется кодировщик признаков сегментатора.
func (d *Dictionary) PrefixDAWG() *dawg.DAWG {
	return d.prefix
}

// SuffixDAWG открывает доступ к суффиксному DAWG для счетных признаков.
func (d *Dictionary) SuffixDAWG() *dawg.DAWG {
	return d.suffix
}

// MainDAWG открывает доступ к основному DAWG.
func (d *Dictionary) MainDAWG() *dawg.DAWG {
	return d.main
}

// WriteContainer собирает контейнер XMDICT из готовых секций.
func WriteContainer(mainBlob, suffixBlob, prefixBlob, paradigmBlob, lemmaBlob []byte) []byte {
	var hdr fileHeader
	hdr.Magic = fileMagic
	hdr.Version = formatVersion

	off := uint32(binary.Size(hdr))
	place := func(b []byte) (uint32, uint32) {
		o, s := off, uint32(len(b))
		off += s
		return o, s
	}
	hdr.DawgOffset, hdr.DawgSize = place(mainBlob)
	hdr.SuffixDawgOffset, hdr.SuffixDawgSize = place(suffixBlob)
	hdr.PrefixDawgOffset, hdr.PrefixDawgSize = place(prefixBlob)
	hdr.ParadigmOffset, hdr.ParadigmSize = place(paradigmBlob)
	hdr.LemmaTableOffset, hdr.LemmaTableSize = place(lemmaBlob)

	var out bytes.Buffer
	out.Grow(int(off))
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(mainBlob)
	out.Write(suffixBlob)
	out.Write(prefixBlob)
	out.Write(paradigmBlob)
	out.Write(lemmaBlob)
	return out.Bytes()
}

// MorphInfo - одна кандидатная морфологическая интерпретация формы.
type MorphInfo struct {
	Lemma      unistring.Unistring
	Tag        tagset.MorphTag
	ParadigmID uint32
	FormIndex  uint32
	StemLen    int
	Prob       float64
	Freq       uint32 // словарная частота, участвует в разрешении ничьих
	Guessed    bool   // интерпретация получена предсказателем
}
