package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// blockSize is the HMAC-SHA256 digest length; the stream is produced in
// blocks of this size.
const blockSize = 32

// Source yields successive bytes of a deterministic stream. ByteStream is
// the production implementation; tests substitute fixed sequences.
type Source interface {
	Next() byte
}

// ByteStream produces the provably-fair byte sequence for a single round.
// Block N is HMAC-SHA256(serverSeed, "clientSeed:nonce:N"); the stream
// concatenates blocks 0,1,2,... and hands them out a byte at a time.
//
// The stream is restartable: byte K of the sequence is identical no matter
// how the reads were chunked or at which cursor a stream was opened. That
// property is what makes a sealed round reproducible from published seeds.
type ByteStream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	block      uint64
	pos        int
	buffer     [blockSize]byte
}

// NewByteStream opens the stream positioned at the given byte cursor.
func NewByteStream(serverSeed, clientSeed string, nonce, cursor uint64) *ByteStream {
	s := &ByteStream{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
		block:      cursor / blockSize,
		pos:        int(cursor % blockSize),
	}

	s.fillBlock()

	return s
}

// Next returns the next byte of the stream.
func (s *ByteStream) Next() byte {
	if s.pos >= blockSize {
		s.block++
		s.pos = 0
		s.fillBlock()
	}

	b := s.buffer[s.pos]
	s.pos++
	return b
}

// NextFloat consumes exactly 4 bytes and returns a uniform fraction in [0, 1).
func (s *ByteStream) NextFloat() float64 {
	return Float(s)
}

// Cursor reports how many bytes of the sequence precede the next read.
func (s *ByteStream) Cursor() uint64 {
	return s.block*blockSize + uint64(s.pos)
}

func (s *ByteStream) fillBlock() {
	h := hmac.New(sha256.New, []byte(s.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", s.clientSeed, s.nonce, s.block)
	h.Write([]byte(message))
	copy(s.buffer[:], h.Sum(nil))
}

// Float maps a fixed 4-byte window of the source to a fraction in [0, 1).
// Each byte contributes 8 bits of precision: b0/256 + b1/256^2 + ...
func Float(src Source) float64 {
	result := 0.0
	for i := 0; i < 4; i++ {
		divider := math.Pow(256, float64(i+1))
		result += float64(src.Next()) / divider
	}
	return result
}

// Floats generates count uniform fractions starting from the given cursor.
func Floats(serverSeed, clientSeed string, nonce, cursor uint64, count int) []float64 {
	s := NewByteStream(serverSeed, clientSeed, nonce, cursor)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = s.NextFloat()
	}

	return floats
}

// SeedHash is the commitment published before any round is played against a
// server seed: the hex SHA-256 of the plaintext.
func SeedHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
