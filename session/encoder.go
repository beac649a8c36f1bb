package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Binary record layout, version 1. Fixed-offset header so store scripts can
// patch status and successor in place:
//
//	[0]      format version
//	[1]      status
//	[2:18]   successor session id (raw, zero when unset)
//	[18:26]  created_at (unix seconds, big endian)
//	[26:34]  expires_at (unix seconds, big endian)
//	[34:66]  refresh secret hash (sha256)
//	[66]     user id length
//	[67:]    user id bytes
const (
	recordFormatVersion = 1
	recordHeaderLen     = 67

	statusOffset    = 1
	successorOffset = 2
)

// ErrRecordCorrupt is returned when a stored record blob cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

// Encode serializes a record. The SessionID itself is not part of the blob;
// it is the store key.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersion)
	buf.WriteByte(byte(r.Status))

	var successor [sessionIDRawLen]byte
	if r.SuccessorID != "" {
		raw, err := sessionIDBytes(r.SuccessorID)
		if err != nil {
			return nil, err
		}
		successor = raw
	}
	buf.Write(successor[:])

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(r.RefreshHash[:])

	if len(r.UserID) == 0 {
		return nil, errors.New("userID required")
	}
	if len(r.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	return buf.Bytes(), nil
}

// Decode deserializes a record blob. The caller sets SessionID from the
// store key.
func Decode(data []byte) (*Record, error) {
	if len(data) < recordHeaderLen+1 {
		return nil, ErrRecordCorrupt
	}

	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != recordFormatVersion {
		return nil, ErrRecordCorrupt
	}

	r := &Record{}

	status, err := reader.ReadByte()
	if err != nil || status > byte(StatusRevoked) {
		return nil, ErrRecordCorrupt
	}
	r.Status = Status(status)

	successor := make([]byte, sessionIDRawLen)
	if _, err := io.ReadFull(reader, successor); err != nil {
		return nil, ErrRecordCorrupt
	}
	if !isZeroID(successor) {
		r.SuccessorID = sessionIDString(successor)
	}

	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, ErrRecordCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, ErrRecordCorrupt
	}
	if _, err := io.ReadFull(reader, r.RefreshHash[:]); err != nil {
		return nil, ErrRecordCorrupt
	}

	userLen, err := reader.ReadByte()
	if err != nil || userLen == 0 {
		return nil, ErrRecordCorrupt
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, ErrRecordCorrupt
	}
	r.UserID = string(userID)

	if reader.Len() != 0 {
		return nil, ErrRecordCorrupt
	}

	return r, nil
}
