package dawg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/fakemoon123/XMorphy/unistring"
)

// ErrCorrupt возвращается при любом структурном повреждении блоба:
// неверная сигнатура, переход на несуществующее состояние, нарушение
// топологического порядка. Ошибка фатальна и возникает только при загрузке.
var ErrCorrupt = errors.New("dawg: повреждённый блоб")

const (
	formatVersion = 1
	stateFinal    = 1 << 0
)

var blobMagic = [4]byte{'X', 'D', 'W', 'G'}

// header - карта сериализованного блоба. Читается одним binary.Read,
// после чего весь обход идет по смещениям без копирования данных.
type header struct {
	Magic          [4]byte
	Version        uint32
	StateCount     uint32
	RootState      uint32
	KeyCount       uint32
	AlphabetOffset uint32
	IndexOffset    uint32
	StatesOffset   uint32
	PayloadOffset  uint32
	TotalSize      uint32
}

// DAWG - читающая сторона графа. Индекс, состояния и нагрузки ссылаются
// внутрь исходного блоба; в куче живут только алфавит и его обратная
// карта, построенные при открытии. Структура неизменяема и безопасна для
// одновременного чтения из многих горутин.
type DAWG struct {
	hdr      header
	index    []byte // массив u32 смещений записей состояний
	states   []byte // регион записей состояний
	payloads []byte // арена полезных нагрузок

	alphabet []unistring.Char
	charID   map[unistring.Char]uint32
}

// Open разбирает блоб и проверяет его структурную целостность.
// Блоб может быть как срезом в куче, так и отображением файла в память.
func Open(blob []byte) (*DAWG, error) {
	var hdr header
	hdrSize := binary.Size(hdr)
	if len(blob) < hdrSize {
		return nil, fmt.Errorf("%w: блоб короче заголовка", ErrCorrupt)
	}
	if err := binary.Read(bytes.NewReader(blob[:hdrSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: заголовок не читается: %v", ErrCorrupt, err)
	}
	if hdr.Magic != blobMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorrupt)
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorrupt, hdr.Version)
	}
	if int(hdr.TotalSize) > len(blob) ||
		hdr.AlphabetOffset > hdr.IndexOffset ||
		hdr.IndexOffset > hdr.StatesOffset ||
		hdr.StatesOffset > hdr.PayloadOffset ||
		hdr.PayloadOffset > hdr.TotalSize {
		return nil, fmt.Errorf("%w: смещения вне файла", ErrCorrupt)
	}
	if hdr.StateCount == 0 || hdr.RootState != hdr.StateCount-1 {
		return nil, fmt.Errorf("%w: некорректный корень", ErrCorrupt)
	}
	if uint64(hdr.IndexOffset)+uint64(4*hdr.StateCount) > uint64(hdr.StatesOffset) {
		return nil, fmt.Errorf("%w: индекс состояний не помещается", ErrCorrupt)
	}

	d := &DAWG{
		hdr:      hdr,
		index:    blob[hdr.IndexOffset:hdr.StatesOffset],
		states:   blob[hdr.StatesOffset:hdr.PayloadOffset],
		payloads: blob[hdr.PayloadOffset:hdr.TotalSize],
	}

	if err := d.readAlphabet(blob[hdr.AlphabetOffset:hdr.IndexOffset]); err != nil {
		return nil, err
	}
	if err := d.verify(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DAWG) readAlphabet(region []byte) error {
	if len(region) < 4 {
		return fmt.Errorf("%w: блок алфавита обрезан", ErrCorrupt)
	}
	count := binary.LittleEndian.Uint32(region)
	pos := 4
	d.alphabet = make([]unistring.Char, 0, count)
	d.charID = make(map[unistring.Char]uint32, count)
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(region) {
			return fmt.Errorf("%w: блок алфавита обрезан", ErrCorrupt)
		}
		n := int(binary.LittleEndian.Uint16(region[pos:]))
		pos += 2
		if pos+n > len(region) {
			return fmt.Errorf("%w: блок алфавита обрезан", ErrCorrupt)
		}
		ch := unistring.Char(region[pos : pos+n])
		pos += n
		d.charID[ch] = uint32(len(d.alphabet))
		d.alphabet = append(d.alphabet, ch)
	}
	return nil
}

// verify однократно декодирует каждую запись состояния и проверяет,
// что все переходы ведут на существующие состояния со строго меньшим
// индексом (топологический порядок: дети записаны раньше родителей).
func (d *DAWG) verify() error {
	for s := uint32(0); s < d.hdr.StateCount; s++ {
		st, err := d.state(s)
		if err != nil {
			return err
		}
		for _, tr := range st.edges {
			if tr.target >= d.hdr.StateCount {
				return fmt.Errorf("%w: переход из %d на несуществующее состояние %d", ErrCorrupt, s, tr.target)
			}
			if tr.target >= s {
				return fmt.Errorf("%w: нарушен топологический порядок (%d -> %d)", ErrCorrupt, s, tr.target)
			}
			if tr.charID >= uint32(len(d.alphabet)) {
				return fmt.Errorf("%w: переход по неизвестному символу %d", ErrCorrupt, tr.charID)
			}
		}
		if st.final {
			if _, err := d.payloadAt(st.payloadOff); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodedState - распакованная на стеке запись состояния.
type decodedState struct {
	final      bool
	count      uint32
	edges      []transition
	payloadOff uint64
}

type transition struct {
	charID uint32
	target uint32
}

// state декодирует запись состояния по ее индексу.
func (d *DAWG) state(idx uint32) (decodedState, error) {
	var st decodedState
	if idx >= d.hdr.StateCount {
		return st, fmt.Errorf("%w: состояние %d вне диапазона", ErrCorrupt, idx)
	}
	off := binary.LittleEndian.Uint32(d.index[4*idx:])
	if int(off) >= len(d.states) && !(int(off) == len(d.states) && len(d.states) == 0) {
		return st, fmt.Errorf("%w: смещение состояния %d вне региона", ErrCorrupt, idx)
	}
	buf := d.states[off:]
	if len(buf) == 0 {
		return st, fmt.Errorf("%w: запись состояния %d обрезана", ErrCorrupt, idx)
	}
	st.final = buf[0]&stateFinal != 0
	pos := 1
	count, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return st, fmt.Errorf("%w: запись состояния %d обрезана", ErrCorrupt, idx)
	}
	pos += n
	st.count = uint32(count)
	edgeCount, n := binary.Uvarint(buf[pos:])
	if n <= 0 {
		return st, fmt.Errorf("%w: запись состояния %d обрезана", ErrCorrupt, idx)
	}
	pos += n
	st.edges = make([]transition, edgeCount)
	for i := range st.edges {
		c, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return st, fmt.Errorf("%w: переход состояния %d обрезан", ErrCorrupt, idx)
		}
		pos += n
		t, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return st, fmt.Errorf("%w: переход состояния %d обрезан", ErrCorrupt, idx)
		}
		pos += n
		st.edges[i] = transition{charID: uint32(c), target: uint32(t)}
	}
	if st.final {
		p, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return st, fmt.Errorf("%w: нагрузка состояния %d обрезана", ErrCorrupt, idx)
		}
		st.payloadOff = p
	}
	return st, nil
}

// payloadAt возвращает полезную нагрузку по смещению в арене.
func (d *DAWG) payloadAt(off uint64) ([]byte, error) {
	if off > uint64(len(d.payloads)) {
		return nil, fmt.Errorf("%w: смещение нагрузки вне арены", ErrCorrupt)
	}
	length, n := binary.Uvarint(d.payloads[off:])
	if n <= 0 || off+uint64(n)+length > uint64(len(d.payloads)) {
		return nil, fmt.Errorf("%w: нагрузка обрезана", ErrCorrupt)
	}
	start := off + uint64(n)
	return d.payloads[start : start+length], nil
}

// walk проходит по ключу и возвращает индекс достигнутого состояния.
func (d *DAWG) walk(key unistring.Unistring) (uint32, bool) {
	cur := d.hdr.RootState
	for _, ch := range key {
		id, ok := d.charID[ch]
		if !ok {
			return 0, false
		}
		st, err := d.state(cur)
		if err != nil {
			return 0, false
		}
		next, ok := findEdge(st.edges, id)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// findEdge ищет переход по id символа. Переходы отсортированы по id,
// поэтому достаточно бинарного поиска.
func findEdge(edges []transition, charID uint32) (uint32, bool) {
	i := sort.Search(len(edges), func(i int) bool { return edges[i].charID >= charID })
	if i < len(edges) && edges[i].charID == charID {
		return edges[i].target, true
	}
	return 0, false
}

// Lookup возвращает полезную нагрузку ключа или ok=false, если ключа нет.
func (d *DAWG) Lookup(key unistring.Unistring) ([]byte, bool) {
	node, ok := d.walk(key)
	if !ok {
		return nil, false
	}
	st, err := d.state(node)
	if err != nil || !st.final {
		return nil, false
	}
	p, err := d.payloadAt(st.payloadOff)
	if err != nil {
		return nil, false
	}
	return p, true
}

// Contains сообщает, принимается ли ключ графом.
func (d *DAWG) Contains(key unistring.Unistring) bool {
	node, ok := d.walk(key)
	if !ok {
		return false
	}
	st, err := d.state(node)
	return err == nil && st.final
}

// CountPrefix возвращает число хранимых ключей, начинающихся с key.
func (d *DAWG) CountPrefix(key unistring.Unistring) uint32 {
	node, ok := d.walk(key)
	if !ok {
		return 0
	}
	st, err := d.state(node)
	if err != nil {
		return 0
	}
	return st.count
}

// NumKeys возвращает общее число ключей.
func (d *DAWG) NumKeys() uint32 {
	return d.hdr.KeyCount
}

// WalkFn вызывается для каждого принимаемого ключа при обходе.
// Возврат false останавливает обход. Срез key переиспользуется между
// вызовами: если значение нужно сохранить, его следует скопировать.
type WalkFn func(key unistring.Unistring, payload []byte) bool

// WalkPrefix перечисляет в отсортированном порядке все ключи,
// начинающиеся с prefix. Пустой префикс перечисляет весь словарь.
func (d *DAWG) WalkPrefix(prefix unistring.Unistring, fn WalkFn) {
	node, ok := d.walk(prefix)
	if !ok {
		return
	}
	key := append(unistring.Unistring(nil), prefix...)
	d.enumerate(node, key, fn)
}

func (d *DAWG) enumerate(node uint32, key unistring.Unistring, fn WalkFn) bool {
	st, err := d.state(node)
	if err != nil {
		return false
	}
	if st.final {
		payload, err := d.payloadAt(st.payloadOff)
		if err != nil {
			return false
		}
		if !fn(key, payload) {
			return false
		}
	}
	for _, e := range st.edges {
		if !d.enumerate(e.target, append(key, d.alphabet[e.charID]), fn) {
			return false
		}
	}
	return true
}

// PrefixPayloads возвращает нагрузки всех принимающих состояний,
// встреченных на пути по ключу, вместе с глубиной каждого состояния.
// Этим пользуется предсказатель: идя по перевернутому слову, он собирает
// правила для суффиксов всех длин за один проход.
func (d *DAWG) PrefixPayloads(key unistring.Unistring) []PrefixHit {
	var hits []PrefixHit
	cur := d.hdr.RootState
	for depth := 0; ; depth++ {
		st, err := d.state(cur)
		if err != nil {
			return hits
		}
		if st.final {
			if p, err := d.payloadAt(st.payloadOff); err == nil {
				hits = append(hits, PrefixHit{Depth: depth, Payload: p})
			}
		}
		if depth == key.Len() {
			return hits
		}
		id, ok := d.charID[key[depth]]
		if !ok {
			return hits
		}
		next, ok := findEdge(st.edges, id)
		if !ok {
			return hits
		}
		cur = next
	}
}

// PrefixHit - одно принимающее состояние на пути по ключу.
type PrefixHit struct {
	Depth   int // длина совпавшего префикса в кластерах
	Payload []byte
}
