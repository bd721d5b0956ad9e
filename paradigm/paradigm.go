// Пакет paradigm хранит словоизменительные парадигмы в упакованном виде.
// Парадигма - упорядоченный список записей (тег, трансформация, окончание),
// где запись с индексом 0 описывает начальную форму (лемму). Трансформации
// и аффиксы интернированы в боковых таблицах и адресуются по id, поэтому
// сами записи имеют фиксированный размер и читаются прямо из отображенного
// в память файла без распаковки.
package paradigm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// ErrCorrupt возвращается при структурном повреждении блобов хранилища.
var ErrCorrupt = errors.New("paradigm: повреждённое хранилище")

// ErrNotFound возвращается при обращении к несуществующей парадигме или форме.
var ErrNotFound = errors.New("paradigm: нет такой формы")

const (
	formatVersion = 1
	recordSize    = 12 // tag u64 + transform-id u16 + ending-id u16
	transformSize = 6  // left-cut u16 + right-cut u16 + left-add-id u16
)

var (
	paradigmMagic = [4]byte{'X', 'P', 'A', 'R'}
	stringsMagic  = [4]byte{'X', 'S', 'T', 'R'}
)

// header - карта блоба парадигм.
type header struct {
	Magic            [4]byte
	Version          uint32
	Count            uint32 // число парадигм
	TransformCount   uint32
	IndexOffset      uint32 // массив u32 смещений парадигм
	RecordsOffset    uint32
	TransformsOffset uint32
	TotalSize        uint32
}

// stringsHeader - карта блоба интернированных строк (таблицы лемм-аффиксов).
type stringsHeader struct {
	Magic       [4]byte
	Version     uint32
	Count       uint32
	IndexOffset uint32
	DataOffset  uint32
	TotalSize   uint32
}

// Record - одна распакованная запись парадигмы.
type Record struct {
	Tag      tagset.MorphTag
	LeftCut  int // сколько кластеров леммы отрезать слева
	RightCut int // сколько кластеров леммы отрезать справа
	LeftAdd  unistring.Unistring
	Ending   unistring.Unistring
}

// Store - читающая сторона хранилища. Срезы index, records и transforms
// указывают внутрь исходного блоба; таблица строк распаковывается в кучу
// при загрузке. Хранилище неизменяемо и свободно разделяется горутинами.
type Store struct {
	hdr        header
	index      []byte // u32 на парадигму: смещение в records
	records    []byte
	transforms []byte

	strs     []unistring.Unistring // распакованная таблица строк
	strCache []string
}

// Load разбирает блоб парадигм и блоб строк, проверяя целостность:
// каждая запись обязана ссылаться на существующие трансформацию и строку.
func Load(paradigms, strs []byte) (*Store, error) {
	s := &Store{}
	if err := s.loadStrings(strs); err != nil {
		return nil, err
	}

	hdrSize := binary.Size(s.hdr)
	if len(paradigms) < hdrSize {
		return nil, fmt.Errorf("%w: блоб короче заголовка", ErrCorrupt)
	}
	if err := binary.Read(bytes.NewReader(paradigms[:hdrSize]), binary.LittleEndian, &s.hdr); err != nil {
		return nil, fmt.Errorf("%w: заголовок не читается: %v", ErrCorrupt, err)
	}
	if s.hdr.Magic != paradigmMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorrupt)
	}
	if s.hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorrupt, s.hdr.Version)
	}
	if int(s.hdr.TotalSize) > len(paradigms) ||
		s.hdr.IndexOffset > s.hdr.RecordsOffset ||
		s.hdr.RecordsOffset > s.hdr.TransformsOffset ||
		s.hdr.TransformsOffset > s.hdr.TotalSize {
		return nil, fmt.Errorf("%w: смещения вне файла", ErrCorrupt)
	}
	if uint64(s.hdr.IndexOffset)+uint64(4*s.hdr.Count) > uint64(s.hdr.RecordsOffset) {
		return nil, fmt.Errorf("%w: индекс парадигм не помещается", ErrCorrupt)
	}
	if uint64(s.hdr.TransformsOffset)+uint64(transformSize)*uint64(s.hdr.TransformCount) > uint64(s.hdr.TotalSize) {
		return nil, fmt.Errorf("%w: таблица трансформаций не помещается", ErrCorrupt)
	}

	s.index = paradigms[s.hdr.IndexOffset:s.hdr.RecordsOffset]
	s.records = paradigms[s.hdr.RecordsOffset:s.hdr.TransformsOffset]
	s.transforms = paradigms[s.hdr.TransformsOffset:s.hdr.TotalSize]

	// Однократная проверка всех записей: id внутри таблиц, длины корректны.
	for pid := uint32(0); pid < s.hdr.Count; pid++ {
		n := s.Len(pid)
		if n <= 0 {
			return nil, fmt.Errorf("%w: парадигма %d пуста или обрезана", ErrCorrupt, pid)
		}
		for i := 0; i < n; i++ {
			if _, err := s.Record(pid, i); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) loadStrings(blob []byte) error {
	var hdr stringsHeader
	hdrSize := binary.Size(hdr)
	if len(blob) < hdrSize {
		return fmt.Errorf("%w: блоб строк короче заголовка", ErrCorrupt)
	}
	if err := binary.Read(bytes.NewReader(blob[:hdrSize]), binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: заголовок строк не читается: %v", ErrCorrupt, err)
	}
	if hdr.Magic != stringsMagic {
		return fmt.Errorf("%w: неверная сигнатура таблицы строк", ErrCorrupt)
	}
	if int(hdr.TotalSize) > len(blob) || hdr.IndexOffset > hdr.DataOffset || hdr.DataOffset > hdr.TotalSize {
		return fmt.Errorf("%w: смещения таблицы строк вне файла", ErrCorrupt)
	}
	if uint64(hdr.IndexOffset)+uint64(4*hdr.Count) > uint64(hdr.DataOffset) {
		return fmt.Errorf("%w: индекс строк не помещается", ErrCorrupt)
	}

	index := blob[hdr.IndexOffset:hdr.DataOffset]
	data := blob[hdr.DataOffset:hdr.TotalSize]
	s.strs = make([]unistring.Unistring, hdr.Count)
	s.strCache = make([]string, hdr.Count)
	for i := uint32(0); i < hdr.Count; i++ {
		off := binary.LittleEndian.Uint32(index[4*i:])
		if uint64(off)+2 > uint64(len(data)) {
			return fmt.Errorf("%w: строка %d вне данных", ErrCorrupt, i)
		}
		n := int(binary.LittleEndian.Uint16(data[off:]))
		if int(off)+2+n > len(data) {
			return fmt.Errorf("%w: строка %d обрезана", ErrCorrupt, i)
		}
		raw := string(data[off+2 : int(off)+2+n])
		s.strs[i] = unistring.New(raw)
		s.strCache[i] = raw
	}
	return nil
}

// Count возвращает число парадигм.
func (s *Store) Count() int {
	return int(s.hdr.Count)
}

// Len возвращает число форм в парадигме, либо -1, если ее нет.
func (s *Store) Len(pid uint32) int {
	if pid >= s.hdr.Count {
		return -1
	}
	off := binary.LittleEndian.Uint32(s.index[4*pid:])
	if uint64(off)+2 > uint64(len(s.records)) {
		return -1
	}
	n := int(binary.LittleEndian.Uint16(s.records[off:]))
	if uint64(off)+2+uint64(n)*recordSize > uint64(len(s.records)) {
		return -1
	}
	return n
}

// Record распаковывает запись формы idx парадигмы pid.
func (s *Store) Record(pid uint32, idx int) (Record, error) {
	n := s.Len(pid)
	if n < 0 || idx < 0 || idx >= n {
		return Record{}, fmt.Errorf("%w: парадигма %d, форма %d", ErrNotFound, pid, idx)
	}
	off := binary.LittleEndian.Uint32(s.index[4*pid:])
	rec := s.records[int(off)+2+idx*recordSize:]

	tag := tagset.MorphTag(binary.LittleEndian.Uint64(rec))
	transformID := binary.LittleEndian.Uint16(rec[8:])
	endingID := binary.LittleEndian.Uint16(rec[10:])

	if uint32(transformID) >= s.hdr.TransformCount {
		return Record{}, fmt.Errorf("%w: запись ссылается на трансформацию %d вне таблицы", ErrCorrupt, transformID)
	}
	if int(endingID) >= len(s.strs) {
		return Record{}, fmt.Errorf("%w: запись ссылается на строку %d вне таблицы", ErrCorrupt, endingID)
	}

	tr := s.transforms[int(transformID)*transformSize:]
	leftAddID := binary.LittleEndian.Uint16(tr[4:])
	if int(leftAddID) >= len(s.strs) {
		return Record{}, fmt.Errorf("%w: трансформация ссылается на строку %d вне таблицы", ErrCorrupt, leftAddID)
	}

	return Record{
		Tag:      tag,
		LeftCut:  int(binary.LittleEndian.Uint16(tr)),
		RightCut: int(binary.LittleEndian.Uint16(tr[2:])),
		LeftAdd:  s.strs[leftAddID],
		Ending:   s.strs[endingID],
	}, nil
}

// Tag возвращает тег формы idx парадигмы pid (частый случай Record).
func (s *Store) Tag(pid uint32, idx int) (tagset.MorphTag, error) {
	r, err := s.Record(pid, idx)
	if err != nil {
		return 0, err
	}
	return r.Tag, nil
}

// Apply применяет запись формы idx к лемме: отрезает аффиксы начальной
// формы и приклеивает аффиксы целевой формы.
func (s *Store) Apply(lemma unistring.Unistring, pid uint32, idx int) (unistring.Unistring, error) {
	rec, err := s.Record(pid, idx)
	if err != nil {
		return nil, err
	}
	stem := lemma.CutLeft(rec.LeftCut).CutRight(rec.RightCut)
	return rec.LeftAdd.Concat(stem).Concat(rec.Ending), nil
}

// RestoreLemma восстанавливает лемму по поверхностной форме и ее позиции
// в парадигме: аффиксы формы снимаются, аффиксы начальной формы надеваются.
// Возвращает ok=false, если форма не несет заявленных аффиксов.
func (s *Store) RestoreLemma(surface unistring.Unistring, pid uint32, idx int) (unistring.Unistring, bool) {
	rec, err := s.Record(pid, idx)
	if err != nil {
		return nil, false
	}
	if !surface.HasPrefix(rec.LeftAdd) || !surface.HasSuffix(rec.Ending) {
		return nil, false
	}
	if surface.Len() < rec.LeftAdd.Len()+rec.Ending.Len() {
		return nil, false
	}
	stem := surface.CutLeft(rec.LeftAdd.Len()).CutRight(rec.Ending.Len())

	base, err := s.Record(pid, 0)
	if err != nil {
		return nil, false
	}
	return base.LeftAdd.Concat(stem).Concat(base.Ending), true
}

// StemLen возвращает длину основы поверхностной формы: все, что не
// покрыто аффиксами записи. Нужна анализатору для MorphInfo.
func (s *Store) StemLen(surface unistring.Unistring, pid uint32, idx int) int {
	rec, err := s.Record(pid, idx)
	if err != nil {
		return surface.Len()
	}
	n := surface.Len() - rec.LeftAdd.Len() - rec.Ending.Len()
	if n < 0 {
		return 0
	}
	return n
}
