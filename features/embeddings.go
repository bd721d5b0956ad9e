// Пакет features строит числовые признаки для нейронных классификаторов:
// плотные векторы подсловных эмбеддингов, ручные признаки токена и
// посимвольные признаки для сегментатора морфем.
package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	"github.com/fakemoon123/XMorphy/unistring"
)

// ErrCorruptEmbeddings возвращается при повреждении файла эмбеддингов.
var ErrCorruptEmbeddings = errors.New("features: повреждённый файл эмбеддингов")

const embFormatVersion = 1

var embMagic = [4]byte{'X', 'E', 'M', 'B'}

// embHeader - карта файла эмбеддингов. За заголовком лежит матрица
// float32 размером Buckets x Dim, читаемая без копирования.
type embHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Buckets uint32
	MinN    uint32
	MaxN    uint32
}

// Embeddings - таблица подсловных эмбеддингов в духе fasttext:
// вектор слова - среднее векторов самого слова и его символьных
// n-грамм, хешированных в общий пул строк матрицы.
type Embeddings struct {
	dim     int
	buckets uint32
	minN    int
	maxN    int
	vecs    []float32 // матрица Buckets x Dim поверх исходного блоба

	mapped mmap.MMap
}

// OpenEmbeddings отображает файл эмбеддингов в память.
func OpenEmbeddings(path string) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("features: ошибка открытия файла: %w", err)
	}
	defer f.Close()

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("features: ошибка mmap.Map: %w", err)
	}
	e, err := EmbeddingsFromBytes(mapped)
	if err != nil {
		_ = mapped.Unmap()
		return nil, err
	}
	e.mapped = mapped
	return e, nil
}

// EmbeddingsFromBytes разбирает таблицу из готового среза.
func EmbeddingsFromBytes(blob []byte) (*Embeddings, error) {
	var hdr embHeader
	hdrSize := binary.Size(hdr)
	if len(blob) < hdrSize {
		return nil, fmt.Errorf("%w: файл короче заголовка", ErrCorruptEmbeddings)
	}
	if err := binary.Read(bytes.NewReader(blob[:hdrSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: заголовок не читается: %v", ErrCorruptEmbeddings, err)
	}
	if hdr.Magic != embMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorruptEmbeddings)
	}
	if hdr.Version != embFormatVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorruptEmbeddings, hdr.Version)
	}
	if hdr.Dim == 0 || hdr.Buckets == 0 || hdr.MinN == 0 || hdr.MinN > hdr.MaxN {
		return nil, fmt.Errorf("%w: бессмысленные параметры", ErrCorruptEmbeddings)
	}
	want := uint64(hdr.Dim) * uint64(hdr.Buckets) * 4
	if uint64(len(blob)-hdrSize) < want {
		return nil, fmt.Errorf("%w: матрица обрезана", ErrCorruptEmbeddings)
	}

	data := blob[hdrSize : uint64(hdrSize)+want]
	return &Embeddings{
		dim:     int(hdr.Dim),
		buckets: hdr.Buckets,
		minN:    int(hdr.MinN),
		maxN:    int(hdr.MaxN),
		vecs:    floatsView(data),
	}, nil
}

// floatsView создает срез float32 поверх байтов без копирования.
// Байты обязаны жить, пока жив срез.
func floatsView(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// Close снимает отображение файла.
func (e *Embeddings) Close() error {
	if e.mapped != nil {
		err := e.mapped.Unmap()
		e.mapped = nil
		return err
	}
	return nil
}

// Dim возвращает размерность векторов.
func (e *Embeddings) Dim() int {
	return e.dim
}

// Lookup возвращает вектор слова: среднее по строке целого слова и
// строкам всех его n-грамм. Выделяет новый срез, исходная матрица
// не изменяется.
func (e *Embeddings) Lookup(word unistring.Unistring) []float32 {
	out := make([]float32, e.dim)
	norm := word.Lower()

	rows := 0
	addRow := func(key string) {
		row := int(bucketHash(key) % uint64(e.buckets))
		base := row * e.dim
		for i := 0; i < e.dim; i++ {
			out[i] += e.vecs[base+i]
		}
		rows++
	}

	// Слово целиком, в ограждающих маркерах.
	bounded := "<" + norm.String() + ">"
	addRow(bounded)

	// Символьные n-граммы по кластерам, тоже с маркерами границ.
	chars := append(unistring.Unistring{unistring.Char("<")}, norm...)
	chars = append(chars, unistring.Char(">"))
	for n := e.minN; n <= e.maxN; n++ {
		for i := 0; i+n <= chars.Len(); i++ {
			gram := chars.Slice(i, i+n).String()
			if gram == bounded {
				continue
			}
			addRow(gram)
		}
	}

	inv := 1 / float32(rows)
	for i := range out {
		out[i] *= inv
	}
	return out
}

func bucketHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// WriteEmbeddings сериализует таблицу. Матрица vecs обязана иметь
// размер buckets*dim.
func WriteEmbeddings(dim int, minN, maxN int, buckets uint32, vecs []float32) ([]byte, error) {
	if len(vecs) != dim*int(buckets) {
		return nil, fmt.Errorf("features: матрица %d не соответствует %d x %d", len(vecs), buckets, dim)
	}
	hdr := embHeader{
		Magic:   embMagic,
		Version: embFormatVersion,
		Dim:     uint32(dim),
		Buckets: buckets,
		MinN:    uint32(minN),
		MaxN:    uint32(maxN),
	}
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	binary.Write(&out, binary.LittleEndian, vecs)
	return out.Bytes(), nil
}
