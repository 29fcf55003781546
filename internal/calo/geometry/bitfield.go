package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// bitField describes one field of a packed identifier.
type bitField struct {
	name   string
	offset uint // first bit
	width  uint // number of bits
	signed bool
}

// BitFieldDecoder decodes packed cell identifiers according to a readout
// descriptor string. The descriptor is a comma-separated list of fields:
//
//	system:8,sector:4,layer:6,x:-12,y:-12
//
// Each entry is name:width or name:start:width. A negative width marks the
// field as signed (two's complement). When no start bit is given the field
// begins where the previous one ended.
type BitFieldDecoder struct {
	fields  []bitField
	indices map[string]int
}

// NewBitFieldDecoder parses a readout descriptor. It fails on empty or
// malformed descriptors and on layouts exceeding 64 bits.
func NewBitFieldDecoder(descriptor string) (*BitFieldDecoder, error) {
	if strings.TrimSpace(descriptor) == "" {
		return nil, fmt.Errorf("empty readout descriptor")
	}

	dec := &BitFieldDecoder{indices: make(map[string]int)}
	offset := uint(0)
	for _, entry := range strings.Split(descriptor, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("malformed field %q in readout descriptor", entry)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("field with empty name in readout descriptor %q", descriptor)
		}
		if _, dup := dec.indices[name]; dup {
			return nil, fmt.Errorf("duplicate field %q in readout descriptor", name)
		}

		if len(parts) == 3 {
			start, err := strconv.Atoi(parts[1])
			if err != nil || start < 0 || start > 63 {
				return nil, fmt.Errorf("invalid start bit %q for field %q", parts[1], name)
			}
			offset = uint(start)
		}

		w, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil || w == 0 {
			return nil, fmt.Errorf("invalid width %q for field %q", parts[len(parts)-1], name)
		}
		signed := w < 0
		if signed {
			w = -w
		}
		if offset+uint(w) > 64 {
			return nil, fmt.Errorf("field %q exceeds 64 bits (start %d, width %d)", name, offset, w)
		}

		dec.indices[name] = len(dec.fields)
		dec.fields = append(dec.fields, bitField{
			name:   name,
			offset: offset,
			width:  uint(w),
			signed: signed,
		})
		offset += uint(w)
	}
	return dec, nil
}

// Index returns the positional index of the named field.
func (d *BitFieldDecoder) Index(field string) (int, error) {
	idx, ok := d.indices[field]
	if !ok {
		return 0, &ErrUnknownField{Field: field}
	}
	return idx, nil
}

// Get extracts the value of the field at index idx from id.
func (d *BitFieldDecoder) Get(id CellID, idx int) int64 {
	f := d.fields[idx]
	mask := uint64(1)<<f.width - 1
	v := uint64(id) >> f.offset & mask
	if f.signed && v&(1<<(f.width-1)) != 0 {
		return int64(v) - int64(1)<<f.width
	}
	return int64(v)
}

// Set returns id with the field at index idx replaced by val. Used to
// build identifiers in tools and tests; val is truncated to the field
// width.
func (d *BitFieldDecoder) Set(id CellID, idx int, val int64) CellID {
	f := d.fields[idx]
	mask := uint64(1)<<f.width - 1
	cleared := uint64(id) &^ (mask << f.offset)
	return CellID(cleared | (uint64(val)&mask)<<f.offset)
}

// Mask returns the OR of the bit masks of the named fields. An empty field
// list returns the all-ones mask, meaning the full identifier selects the
// local frame.
func (d *BitFieldDecoder) Mask(fields ...string) (uint64, error) {
	if len(fields) == 0 {
		return ^uint64(0), nil
	}
	var mask uint64
	for _, name := range fields {
		idx, err := d.Index(name)
		if err != nil {
			return 0, err
		}
		f := d.fields[idx]
		mask |= (uint64(1)<<f.width - 1) << f.offset
	}
	return mask, nil
}

var _ Decoder = (*BitFieldDecoder)(nil)
