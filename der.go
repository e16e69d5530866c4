package drawchat

import "bytes"

const (
	tagInteger  = 0x02
	tagSequence = 0x30

	// single byte length form only
	maxShortLength = 0x7f
)

// EncodeSignature converts a fixed-length r||s signature into a DER
// SEQUENCE of two INTEGERs.
func EncodeSignature(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, codecErrorf("raw signature length %d is not a positive even number", len(raw))
	}
	half := len(raw) / 2
	r := derInteger(raw[:half])
	s := derInteger(raw[half:])

	body := make([]byte, 0, len(r)+len(s)+4)
	var err error
	if body, err = appendTLV(body, tagInteger, r); err != nil {
		return nil, err
	}
	if body, err = appendTLV(body, tagInteger, s); err != nil {
		return nil, err
	}
	return appendTLV(make([]byte, 0, len(body)+2), tagSequence, body)
}

// DecodeSignature parses a DER signature and returns r||s, each value
// left-padded to keySizeBits/8 bytes.
func DecodeSignature(der []byte, keySizeBits int) ([]byte, error) {
	if keySizeBits <= 0 || keySizeBits%8 != 0 {
		return nil, codecErrorf("invalid key size %d", keySizeBits)
	}
	size := keySizeBits / 8

	body, rest, err := readTLV(der, tagSequence)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, codecErrorf("%d trailing bytes after sequence", len(rest))
	}
	r, body, err := readTLV(body, tagInteger)
	if err != nil {
		return nil, err
	}
	s, body, err := readTLV(body, tagInteger)
	if err != nil {
		return nil, err
	}
	if len(body) != 0 {
		return nil, codecErrorf("%d unexpected bytes after s", len(body))
	}

	raw := make([]byte, 2*size)
	if err := padInto(raw[:size], r); err != nil {
		return nil, err
	}
	if err := padInto(raw[size:], s); err != nil {
		return nil, err
	}
	return raw, nil
}

// derInteger strips leading zeros and re-adds one when the high bit would
// make the value negative.
func derInteger(v []byte) []byte {
	v = bytes.TrimLeft(v, "\x00")
	if len(v) == 0 {
		return []byte{0}
	}
	if v[0]&0x80 != 0 {
		out := make([]byte, len(v)+1)
		copy(out[1:], v)
		return out
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func appendTLV(dst []byte, tag byte, value []byte) ([]byte, error) {
	if len(value) > maxShortLength {
		return nil, codecErrorf("field length %d exceeds %d", len(value), maxShortLength)
	}
	dst = append(dst, tag, byte(len(value)))
	return append(dst, value...), nil
}

func readTLV(buf []byte, tag byte) (value, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, codecErrorf("truncated header: %d bytes", len(buf))
	}
	if buf[0] != tag {
		return nil, nil, codecErrorf("unexpected tag 0x%02x, want 0x%02x", buf[0], tag)
	}
	n := int(buf[1])
	if n > maxShortLength {
		return nil, nil, codecErrorf("long form length 0x%02x not supported", buf[1])
	}
	if n > len(buf)-2 {
		return nil, nil, codecErrorf("length %d exceeds remaining %d bytes", n, len(buf)-2)
	}
	return buf[2 : 2+n], buf[2+n:], nil
}

func padInto(dst, v []byte) error {
	v = bytes.TrimLeft(v, "\x00")
	if len(v) > len(dst) {
		return codecErrorf("integer of %d bytes does not fit %d", len(v), len(dst))
	}
	copy(dst[len(dst)-len(v):], v)
	return nil
}
