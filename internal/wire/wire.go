// Package wire frames cache records for the byte-store providers. The
// header carries the consistency markers (version, last-applied sequence and
// request id, update timestamp); the payload is codec-owned.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("poscache: corrupt entry")
	magic4     = [...]byte{'P', 'O', 'S', 'C'}
)

// Record is the stored shape of one cache entry. UpdatedAtNano == 0 marks an
// administratively invalidated (or never-fresh) record.
type Record struct {
	Version       uint64
	LastSeq       uint64
	UpdatedAtNano int64
	RequestID     string
	Payload       []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Layout:
//
//	magic(4) | ver(1) | kind(1=record) | version(u64 be) | lastSeq(u64 be) |
//	updatedAt(i64 be, unixnano; 0 = invalidated) |
//	ridLen(u16 be) | requestID(ridLen) | vlen(u32 be) | payload(vlen)
func EncodeRecord(r Record) []byte {
	if len(r.RequestID) > 0xFFFF {
		panic("poscache: request id too long")
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 8 + 8 + 2 + len(r.RequestID) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], r.Version)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], r.LastSeq)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(r.UpdatedAtNano))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(r.RequestID)))
	buf.Write(u2[:])
	buf.WriteString(r.RequestID)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)

	return buf.Bytes()
}

func DecodeRecord(b []byte) (Record, error) {
	const hdr = 4 + 1 + 1 + 8 + 8 + 8 + 2
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return Record{}, ErrCorrupt
	}

	off := 6
	var r Record

	r.Version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	r.LastSeq = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	r.UpdatedAtNano = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	ridLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if ridLen > len(b)-off {
		return Record{}, ErrCorrupt
	}
	r.RequestID = string(b[off : off+ridLen])
	off += ridLen

	if off+4 > len(b) {
		return Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return Record{}, ErrCorrupt
	}
	r.Payload = b[off : off+vlen]

	return r, nil
}
