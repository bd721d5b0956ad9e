package dict

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Полезные нагрузки DAWG кодируются varint-ами: записей в словаре десятки
// миллионов, и на типичных малых значениях varint экономит больше половины
// объема по сравнению с фиксированными полями.

// mainEntry - запись основного DAWG: ссылка на форму парадигмы и частота.
type mainEntry struct {
	ParadigmID uint32
	FormIndex  uint32
	Freq       uint32
}

// suffixEntry - правило предсказателя: как часто данный суффикс
// встречался у данной формы данной парадигмы.
type suffixEntry struct {
	Freq       uint32
	ParadigmID uint32
	FormIndex  uint32
}

func encodeMainPayload(entries []mainEntry) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint32) {
		buf.Write(tmp[:binary.PutUvarint(tmp[:], uint64(v))])
	}
	put(uint32(len(entries)))
	for _, e := range entries {
		put(e.ParadigmID)
		put(e.FormIndex)
		put(e.Freq)
	}
	return buf.Bytes()
}

func decodeMainPayload(p []byte) ([]mainEntry, error) {
	count, pos, err := uvarintAt(p, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]mainEntry, count)
	for i := range entries {
		var v uint64
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].ParadigmID = uint32(v)
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].FormIndex = uint32(v)
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].Freq = uint32(v)
	}
	return entries, nil
}

func encodeSuffixPayload(entries []suffixEntry) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint32) {
		buf.Write(tmp[:binary.PutUvarint(tmp[:], uint64(v))])
	}
	put(uint32(len(entries)))
	for _, e := range entries {
		put(e.Freq)
		put(e.ParadigmID)
		put(e.FormIndex)
	}
	return buf.Bytes()
}

func decodeSuffixPayload(p []byte) ([]suffixEntry, error) {
	count, pos, err := uvarintAt(p, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]suffixEntry, count)
	for i := range entries {
		var v uint64
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].Freq = uint32(v)
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].ParadigmID = uint32(v)
		if v, pos, err = uvarintAt(p, pos); err != nil {
			return nil, err
		}
		entries[i].FormIndex = uint32(v)
	}
	return entries, nil
}

func uvarintAt(p []byte, pos int) (uint64, int, error) {
	if pos >= len(p) {
		return 0, 0, fmt.Errorf("%w: нагрузка обрезана", ErrCorrupt)
	}
	v, n := binary.Uvarint(p[pos:])
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: нагрузка не декодируется", ErrCorrupt)
	}
	return v, pos + n, nil
}
