package session

import (
	"encoding/base64"
	"errors"
)

// Status is the lifecycle state of a refresh session record.
type Status uint8

const (
	// StatusActive marks the single usable record of a lineage.
	StatusActive Status = iota
	// StatusRotated marks a record consumed by a successful refresh. It is
	// never again a valid credential; presenting it is a reuse signal.
	StatusRotated
	// StatusRevoked is terminal. It absorbs all transitions.
	StatusRevoked
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRotated:
		return "rotated"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// sessionIDRawLen is the raw byte length of a session id. The string form
// is the unpadded base64url encoding of these bytes.
const sessionIDRawLen = 16

// Record is the durable unit of session state. A rotation lineage is the
// forward chain of records linked by SuccessorID, starting at one login.
//
// Invariant: at most one record per lineage has StatusActive, unless the
// whole lineage is revoked.
type Record struct {
	SessionID string
	UserID    string
	Status    Status
	// SuccessorID is set only when Status is StatusRotated and names the
	// record created by rotating this one.
	SuccessorID string
	// RefreshHash is the SHA-256 of the refresh secret bound to this
	// record. The plaintext secret exists only inside the client's token.
	RefreshHash [32]byte
	CreatedAt   int64
	ExpiresAt   int64
}

func sessionIDBytes(id string) ([sessionIDRawLen]byte, error) {
	var raw [sessionIDRawLen]byte
	decoded, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return raw, err
	}
	if len(decoded) != sessionIDRawLen {
		return raw, errors.New("invalid session id size")
	}
	copy(raw[:], decoded)
	return raw, nil
}

func sessionIDString(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func isZeroID(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}
