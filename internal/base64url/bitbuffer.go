package base64url

// BitBuffer is an append-only sequence of bits stored most significant bit
// first. Bit i lives in byte i/8 at position 7-i%8.
type BitBuffer struct {
	buf  []byte
	bits int
}

// NewBitBuffer returns a buffer with room for capBits bits.
func NewBitBuffer(capBits int) *BitBuffer {
	if capBits < 0 {
		capBits = 0
	}
	return &BitBuffer{buf: make([]byte, 0, (capBits+7)/8)}
}

// Len returns the number of bits written.
func (b *BitBuffer) Len() int {
	return b.bits
}

// AppendBits appends the low n bits of v, most significant first. n must be
// between 0 and 64.
func (b *BitBuffer) AppendBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if b.bits%8 == 0 {
			b.buf = append(b.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			b.buf[b.bits/8] |= 1 << uint(7-b.bits%8)
		}
		b.bits++
	}
}

// ReadBits returns n bits starting at pos as an unsigned integer. Bits past the
// end of the buffer read as zero.
func (b *BitBuffer) ReadBits(pos, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v <<= 1
		p := pos + i
		if p < b.bits && b.buf[p/8]>>uint(7-p%8)&1 == 1 {
			v |= 1
		}
	}
	return v
}

// Bytes returns the complete 8-bit groups of the buffer. A trailing group
// shorter than 8 bits is left out.
func (b *BitBuffer) Bytes() []byte {
	out := make([]byte, b.bits/8)
	copy(out, b.buf)
	return out
}
