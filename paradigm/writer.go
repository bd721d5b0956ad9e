package paradigm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// FormSpec описывает одну форму парадигмы на стороне построителя:
// тег и аффиксы формы. Форма - это leftAdd + основа + ending, где основа
// общая для всех форм лексемы.
type FormSpec struct {
	Tag     tagset.MorphTag
	LeftAdd string
	Ending  string
}

// Writer накапливает парадигмы и сериализует их в пару блобов:
// блоб парадигм и блоб интернированных строк.
type Writer struct {
	paradigms [][]FormSpec

	strIDs  map[string]uint16
	strList []string

	trIDs  map[transformKey]uint16
	trList []transformKey
}

type transformKey struct {
	leftCut, rightCut uint16
	leftAddID         uint16
}

// NewWriter создает пустой построитель хранилища.
func NewWriter() *Writer {
	w := &Writer{
		strIDs: make(map[string]uint16),
		trIDs:  make(map[transformKey]uint16),
	}
	// Пустая строка всегда получает id 0: это самый частый аффикс.
	w.internString("")
	return w
}

// AddParadigm регистрирует парадигму и возвращает ее id.
// Первая форма списка считается начальной (леммой).
func (w *Writer) AddParadigm(forms []FormSpec) (uint32, error) {
	if len(forms) == 0 {
		return 0, errors.New("paradigm: пустая парадигма")
	}
	if len(forms) > 0xFFFF {
		return 0, fmt.Errorf("paradigm: слишком длинная парадигма (%d форм)", len(forms))
	}
	pid := uint32(len(w.paradigms))
	w.paradigms = append(w.paradigms, append([]FormSpec(nil), forms...))
	return pid, nil
}

func (w *Writer) internString(s string) uint16 {
	if id, ok := w.strIDs[s]; ok {
		return id
	}
	id := uint16(len(w.strList))
	w.strIDs[s] = id
	w.strList = append(w.strList, s)
	return id
}

func (w *Writer) internTransform(k transformKey) uint16 {
	if id, ok := w.trIDs[k]; ok {
		return id
	}
	id := uint16(len(w.trList))
	w.trIDs[k] = id
	w.trList = append(w.trList, k)
	return id
}

// Finish сериализует накопленные парадигмы.
func (w *Writer) Finish() (paradigms, strs []byte, err error) {
	var records bytes.Buffer
	index := make([]uint32, len(w.paradigms))

	for pid, forms := range w.paradigms {
		index[pid] = uint32(records.Len())
		binary.Write(&records, binary.LittleEndian, uint16(len(forms)))

		// Трансформация каждой формы снимает аффиксы начальной формы.
		base := forms[0]
		leftCut := uint16(unistring.New(base.LeftAdd).Len())
		rightCut := uint16(unistring.New(base.Ending).Len())

		for _, f := range forms {
			tr := transformKey{
				leftCut:   leftCut,
				rightCut:  rightCut,
				leftAddID: w.internString(f.LeftAdd),
			}
			binary.Write(&records, binary.LittleEndian, uint64(f.Tag))
			binary.Write(&records, binary.LittleEndian, w.internTransform(tr))
			binary.Write(&records, binary.LittleEndian, w.internString(f.Ending))
		}
	}

	var transforms bytes.Buffer
	for _, tr := range w.trList {
		binary.Write(&transforms, binary.LittleEndian, tr.leftCut)
		binary.Write(&transforms, binary.LittleEndian, tr.rightCut)
		binary.Write(&transforms, binary.LittleEndian, tr.leftAddID)
	}

	hdr := header{
		Magic:          paradigmMagic,
		Version:        formatVersion,
		Count:          uint32(len(w.paradigms)),
		TransformCount: uint32(len(w.trList)),
	}
	hdrSize := uint32(binary.Size(hdr))
	hdr.IndexOffset = hdrSize
	hdr.RecordsOffset = hdr.IndexOffset + uint32(4*len(index))
	hdr.TransformsOffset = hdr.RecordsOffset + uint32(records.Len())
	hdr.TotalSize = hdr.TransformsOffset + uint32(transforms.Len())

	var out bytes.Buffer
	out.Grow(int(hdr.TotalSize))
	if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
		return nil, nil, fmt.Errorf("paradigm: ошибка записи заголовка: %w", err)
	}
	for _, off := range index {
		binary.Write(&out, binary.LittleEndian, off)
	}
	out.Write(records.Bytes())
	out.Write(transforms.Bytes())

	strBlob, err := w.finishStrings()
	if err != nil {
		return nil, nil, err
	}
	return out.Bytes(), strBlob, nil
}

func (w *Writer) finishStrings() ([]byte, error) {
	var data bytes.Buffer
	index := make([]uint32, len(w.strList))
	for i, s := range w.strList {
		index[i] = uint32(data.Len())
		if len(s) > 0xFFFF {
			return nil, fmt.Errorf("paradigm: слишком длинный аффикс %q", s)
		}
		binary.Write(&data, binary.LittleEndian, uint16(len(s)))
		data.WriteString(s)
	}

	hdr := stringsHeader{
		Magic:   stringsMagic,
		Version: formatVersion,
		Count:   uint32(len(w.strList)),
	}
	hdrSize := uint32(binary.Size(hdr))
	hdr.IndexOffset = hdrSize
	hdr.DataOffset = hdr.IndexOffset + uint32(4*len(index))
	hdr.TotalSize = hdr.DataOffset + uint32(data.Len())

	var out bytes.Buffer
	out.Grow(int(hdr.TotalSize))
	if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("paradigm: ошибка записи заголовка строк: %w", err)
	}
	for _, off := range index {
		binary.Write(&out, binary.LittleEndian, off)
	}
	out.Write(data.Bytes())
	return out.Bytes(), nil
}
