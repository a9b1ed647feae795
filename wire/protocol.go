// Package wire implements the request/response framing protocol.
// Byte layout translated from
// original_source/xtrieve-engine/src/protocol.rs, matching spec.md §6
// exactly: little-endian integers, length-prefixed variable fields, and
// a fixed 128-byte position block.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/intellect4all/xtrieved/cursor"
)

// DefaultPort is the server's default listen port.
const DefaultPort = 7419

// Request is one client operation request.
//
// Wire layout: op(u16) position_block[128] data_len(u32)+data key_len(u16)+key
// key_number(i16) path_len(u16)+path lock_bias(u16).
type Request struct {
	Operation     uint16
	PositionBlock cursor.PositionBlock
	Data          []byte
	Key           []byte
	KeyNumber     int16
	FilePath      string
	LockBias      uint16
}

// ReadFrom parses one Request from r.
func ReadFrom(r io.Reader) (*Request, error) {
	req := &Request{}

	var opBuf [2]byte
	if _, err := io.ReadFull(r, opBuf[:]); err != nil {
		return nil, err
	}
	req.Operation = binary.LittleEndian.Uint16(opBuf[:])

	if _, err := io.ReadFull(r, req.PositionBlock[:]); err != nil {
		return nil, fmt.Errorf("wire: reading position block: %w", err)
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(r, dataLenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading data length: %w", err)
	}
	dataLen := binary.LittleEndian.Uint32(dataLenBuf[:])
	req.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, req.Data); err != nil {
		return nil, fmt.Errorf("wire: reading data: %w", err)
	}

	var keyLenBuf [2]byte
	if _, err := io.ReadFull(r, keyLenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading key length: %w", err)
	}
	keyLen := binary.LittleEndian.Uint16(keyLenBuf[:])
	req.Key = make([]byte, keyLen)
	if _, err := io.ReadFull(r, req.Key); err != nil {
		return nil, fmt.Errorf("wire: reading key: %w", err)
	}

	var keyNumBuf [2]byte
	if _, err := io.ReadFull(r, keyNumBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading key number: %w", err)
	}
	req.KeyNumber = int16(binary.LittleEndian.Uint16(keyNumBuf[:]))

	var pathLenBuf [2]byte
	if _, err := io.ReadFull(r, pathLenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading path length: %w", err)
	}
	pathLen := binary.LittleEndian.Uint16(pathLenBuf[:])
	pathBuf := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBuf); err != nil {
		return nil, fmt.Errorf("wire: reading path: %w", err)
	}
	req.FilePath = string(pathBuf)

	var lockBiasBuf [2]byte
	if _, err := io.ReadFull(r, lockBiasBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: reading lock bias: %w", err)
	}
	req.LockBias = binary.LittleEndian.Uint16(lockBiasBuf[:])

	return req, nil
}

// ToBytes serializes the request, matching ReadFrom's layout exactly.
func (r *Request) ToBytes() []byte {
	out := make([]byte, 0, 2+cursor.BlockSize+4+len(r.Data)+2+len(r.Key)+2+2+len(r.FilePath)+2)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], r.Operation)
	out = append(out, u16[:]...)

	out = append(out, r.PositionBlock[:]...)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(r.Data)))
	out = append(out, u32[:]...)
	out = append(out, r.Data...)

	binary.LittleEndian.PutUint16(u16[:], uint16(len(r.Key)))
	out = append(out, u16[:]...)
	out = append(out, r.Key...)

	binary.LittleEndian.PutUint16(u16[:], uint16(r.KeyNumber))
	out = append(out, u16[:]...)

	binary.LittleEndian.PutUint16(u16[:], uint16(len(r.FilePath)))
	out = append(out, u16[:]...)
	out = append(out, []byte(r.FilePath)...)

	binary.LittleEndian.PutUint16(u16[:], r.LockBias)
	out = append(out, u16[:]...)

	return out
}

// Response is the server's reply to one Request.
//
// Wire layout: status(u16) position_block[128] data_len(u32)+data key_len(u16)+key.
type Response struct {
	Status        uint16
	PositionBlock cursor.PositionBlock
	Data          []byte
	Key           []byte
}

// WriteTo serializes resp to w.
func (resp *Response) WriteTo(w io.Writer) error {
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], resp.Status)
	if _, err := w.Write(u16[:]); err != nil {
		return err
	}
	if _, err := w.Write(resp.PositionBlock[:]); err != nil {
		return err
	}

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(resp.Data)))
	if _, err := w.Write(u32[:]); err != nil {
		return err
	}
	if _, err := w.Write(resp.Data); err != nil {
		return err
	}

	binary.LittleEndian.PutUint16(u16[:], uint16(len(resp.Key)))
	if _, err := w.Write(u16[:]); err != nil {
		return err
	}
	if _, err := w.Write(resp.Key); err != nil {
		return err
	}
	return nil
}

// ReadResponseFrom parses one Response from r (used by test harnesses and
// any future client tooling).
func ReadResponseFrom(r io.Reader) (*Response, error) {
	resp := &Response{}

	var statusBuf [2]byte
	if _, err := io.ReadFull(r, statusBuf[:]); err != nil {
		return nil, err
	}
	resp.Status = binary.LittleEndian.Uint16(statusBuf[:])

	if _, err := io.ReadFull(r, resp.PositionBlock[:]); err != nil {
		return nil, err
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(r, dataLenBuf[:]); err != nil {
		return nil, err
	}
	dataLen := binary.LittleEndian.Uint32(dataLenBuf[:])
	resp.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, resp.Data); err != nil {
		return nil, err
	}

	var keyLenBuf [2]byte
	if _, err := io.ReadFull(r, keyLenBuf[:]); err != nil {
		return nil, err
	}
	keyLen := binary.LittleEndian.Uint16(keyLenBuf[:])
	resp.Key = make([]byte, keyLen)
	if _, err := io.ReadFull(r, resp.Key); err != nil {
		return nil, err
	}

	return resp, nil
}
