// Package digest derives content identifiers (CIDv1, raw codec, sha2-256) for raster bytes
// and for ordered row sets.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Bytes returns the CIDv1 string of data.
func Bytes(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// unreachable for SHA2_256 with default length
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// Hasher accumulates rows into a single digest. Each row is a sequence of
// length-prefixed values, so ("ab","c") and ("a","bc") hash differently.
type Hasher struct {
	h    hash.Hash
	rows int64
	buf  [8]byte
}

// NewHasher returns an empty row hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// AddRow hashes one row of canonical values.
func (h *Hasher) AddRow(values ...string) {
	binary.BigEndian.PutUint64(h.buf[:], uint64(len(values)))
	h.h.Write(h.buf[:])
	for _, v := range values {
		binary.BigEndian.PutUint64(h.buf[:], uint64(len(v)))
		h.h.Write(h.buf[:])
		h.h.Write([]byte(v))
	}
	h.rows++
}

// Rows returns the number of rows added.
func (h *Hasher) Rows() int64 { return h.rows }

// Sum returns the CIDv1 of everything added so far.
func (h *Hasher) Sum() (cid.Cid, error) {
	mh, err := multihash.Encode(h.h.Sum(nil), multihash.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}
