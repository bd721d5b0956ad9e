// Пакет dawg реализует минимальный детерминированный ациклический граф слов.
// Ключи - последовательности графемных кластеров, принимающие состояния несут
// полезную нагрузку произвольной длины. Построитель требует подачи ключей в
// отсортированном порядке и сжимает граф инкрементальной минимизацией, как
// это делается в классическом алгоритме Daciuk et al.
//
// Сериализованный граф - это один блоб, который можно отобразить в память
// и обходить без какой-либо материализации структур.
package dawg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/fakemoon123/XMorphy/unistring"
)

// ErrUnsortedKeys возвращается при нарушении порядка вставки.
var ErrUnsortedKeys = errors.New("dawg: ключи должны подаваться в отсортированном порядке")

// ErrFinished возвращается при вставке в уже завершенный построитель.
var ErrFinished = errors.New("dawg: построение уже завершено")

type buildEdge struct {
	ch unistring.Char
	to *buildNode
}

type buildNode struct {
	edges   []buildEdge
	payload []byte
	final   bool

	// Поля замороженного узла. После заморозки узел попадает в реестр
	// минимизированных состояний и больше не меняется.
	frozen bool
	id     uint32
	count  uint32 // число принимаемых ключей в поддереве
}

// Builder строит минимальный DAWG из отсортированного потока ключей.
type Builder struct {
	root     *buildNode
	lastKey  unistring.Unistring
	numKeys  int
	finished bool

	// Стек "незамороженных" узлов вдоль пути последнего вставленного ключа.
	// Элемент i - ребро из узла глубины i в узел глубины i+1.
	unchecked []uncheckedEdge

	// Реестр канонических состояний: сигнатура -> узел.
	registry map[string]*buildNode

	// Замороженные узлы в порядке присвоения id. Дети замораживаются
	// раньше родителей, поэтому порядок id - это обратный топологический.
	frozen []*buildNode
}

type uncheckedEdge struct {
	parent *buildNode
	ch     unistring.Char
	child  *buildNode
}

// NewBuilder создает пустой построитель.
func NewBuilder() *Builder {
	return &Builder{
		root:     &buildNode{},
		registry: make(map[string]*buildNode),
	}
}

// Add вставляет ключ с полезной нагрузкой. Ключи обязаны приходить в строго
// возрастающем порядке, повторная вставка того же ключа недопустима.
func (b *Builder) Add(key unistring.Unistring, payload []byte) error {
	if b.finished {
		return ErrFinished
	}
	if b.numKeys > 0 && !b.lastKey.Less(key) {
		return fmt.Errorf("%w: %q после %q", ErrUnsortedKeys, key.String(), b.lastKey.String())
	}

	// Общий префикс с предыдущим ключом.
	common := 0
	for common < key.Len() && common < b.lastKey.Len() && key[common] == b.lastKey[common] {
		common++
	}

	// Все узлы глубже общего префикса больше не изменятся - минимизируем их.
	b.minimize(common)

	node := b.root
	if len(b.unchecked) > 0 {
		node = b.unchecked[len(b.unchecked)-1].child
	}

	for _, ch := range key[common:] {
		next := &buildNode{}
		node.edges = append(node.edges, buildEdge{ch: ch, to: next})
		b.unchecked = append(b.unchecked, uncheckedEdge{parent: node, ch: ch, child: next})
		node = next
	}

	node.final = true
	node.payload = payload
	b.lastKey = key
	b.numKeys++
	return nil
}

// NumKeys возвращает число вставленных ключей.
func (b *Builder) NumKeys() int {
	return b.numKeys
}

// minimize замораживает узлы стека от вершины вниз до глубины downTo.
func (b *Builder) minimize(downTo int) {
	for i := len(b.unchecked) - 1; i >= downTo; i-- {
		u := b.unchecked[i]
		u.parent.edges[len(u.parent.edges)-1].to = b.freeze(u.child)
	}
	b.unchecked = b.unchecked[:downTo]
}

// freeze канонизирует узел: либо возвращает эквивалентный узел из реестра,
// либо присваивает узлу id и вносит его в реестр. Все дети узла к этому
// моменту уже заморожены.
func (b *Builder) freeze(n *buildNode) *buildNode {
	sig := b.signature(n)
	if canon, ok := b.registry[sig]; ok {
		return canon
	}

	n.frozen = true
	n.id = uint32(len(b.frozen))
	if n.final {
		n.count = 1
	}
	for _, e := range n.edges {
		n.count += e.to.count
	}
	b.frozen = append(b.frozen, n)
	b.registry[sig] = n
	return n
}

// signature строит ключ эквивалентности состояния:
// флаг принятия, полезная нагрузка и список переходов на id детей.
func (b *Builder) signature(n *buildNode) string {
	var sb bytes.Buffer
	if n.final {
		sb.WriteByte('!')
		sb.Write(n.payload)
	}
	for _, e := range n.edges {
		sb.WriteByte('_')
		sb.WriteString(string(e.ch))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(e.to.id), 10))
	}
	return sb.String()
}

// Finish завершает построение и возвращает сериализованный блоб.
func (b *Builder) Finish() ([]byte, error) {
	if b.finished {
		return nil, ErrFinished
	}
	b.finished = true

	b.minimize(0)

	// Корень замораживается последним и получает наибольший id,
	// поэтому каждый переход ведет от большего id к меньшему.
	root := b.freeze(b.root)
	b.registry = nil
	b.unchecked = nil

	return b.serialize(root)
}

// serialize кодирует замороженный граф в блоб формата, описанного в dawg.go.
func (b *Builder) serialize(root *buildNode) ([]byte, error) {
	// Алфавит: все символы переходов в отсортированном порядке.
	alphaSet := make(map[unistring.Char]struct{})
	for _, n := range b.frozen {
		for _, e := range n.edges {
			alphaSet[e.ch] = struct{}{}
		}
	}
	alphabet := make([]unistring.Char, 0, len(alphaSet))
	for ch := range alphaSet {
		alphabet = append(alphabet, ch)
	}
	sort.Slice(alphabet, func(i, j int) bool { return alphabet[i] < alphabet[j] })
	charID := make(map[unistring.Char]uint32, len(alphabet))
	for i, ch := range alphabet {
		charID[ch] = uint32(i)
	}

	// Арена полезных нагрузок с интернированием одинаковых значений.
	var payloadArena bytes.Buffer
	payloadOff := make(map[string]uint64)
	payloadOffset := func(p []byte) uint64 {
		if off, ok := payloadOff[string(p)]; ok {
			return off
		}
		off := uint64(payloadArena.Len())
		payloadOff[string(p)] = off
		var tmp [binary.MaxVarintLen64]byte
		payloadArena.Write(tmp[:binary.PutUvarint(tmp[:], uint64(len(p)))])
		payloadArena.Write(p)
		return off
	}

	// Записи состояний и индекс смещений.
	var states bytes.Buffer
	index := make([]uint32, len(b.frozen))
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint64) {
		states.Write(tmp[:binary.PutUvarint(tmp[:], v)])
	}
	for i, n := range b.frozen {
		index[i] = uint32(states.Len())
		var flags byte
		if n.final {
			flags |= stateFinal
		}
		states.WriteByte(flags)
		put(uint64(n.count))
		put(uint64(len(n.edges)))
		// Переходы в порядке символов: это гарантирует, что перечисление
		// ключей идет в отсортированном порядке.
		edges := append([]buildEdge(nil), n.edges...)
		sort.Slice(edges, func(a, c int) bool { return edges[a].ch < edges[c].ch })
		for _, e := range edges {
			put(uint64(charID[e.ch]))
			put(uint64(e.to.id))
		}
		if n.final {
			put(payloadOffset(n.payload))
		}
	}

	// Блок алфавита.
	var alpha bytes.Buffer
	binary.Write(&alpha, binary.LittleEndian, uint32(len(alphabet)))
	for _, ch := range alphabet {
		s := []byte(string(ch))
		binary.Write(&alpha, binary.LittleEndian, uint16(len(s)))
		alpha.Write(s)
	}

	// Собираем файл: заголовок, алфавит, индекс, состояния, нагрузки.
	hdr := header{
		Magic:      blobMagic,
		Version:    formatVersion,
		StateCount: uint32(len(b.frozen)),
		RootState:  root.id,
		KeyCount:   uint32(b.numKeys),
	}
	hdrSize := uint32(binary.Size(hdr))
	hdr.AlphabetOffset = hdrSize
	hdr.IndexOffset = hdr.AlphabetOffset + uint32(alpha.Len())
	hdr.StatesOffset = hdr.IndexOffset + uint32(4*len(index))
	hdr.PayloadOffset = hdr.StatesOffset + uint32(states.Len())
	hdr.TotalSize = hdr.PayloadOffset + uint32(payloadArena.Len())

	var out bytes.Buffer
	out.Grow(int(hdr.TotalSize))
	if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("dawg: ошибка записи заголовка: %w", err)
	}
	out.Write(alpha.Bytes())
	for _, off := range index {
		binary.Write(&out, binary.LittleEndian, off)
	}
	out.Write(states.Bytes())
	out.Write(payloadArena.Bytes())
	return out.Bytes(), nil
}
