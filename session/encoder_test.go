package session

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func rawID(fill byte) string {
	var raw [sessionIDRawLen]byte
	for i := range raw {
		raw[i] = fill
	}
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := &Record{
		SessionID:   rawID(1),
		UserID:      "user-42",
		Status:      StatusRotated,
		SuccessorID: rawID(2),
		RefreshHash: [32]byte{9, 8, 7},
		CreatedAt:   1700000000,
		ExpiresAt:   1700003600,
	}

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got.SessionID = rec.SessionID

	if got.UserID != rec.UserID ||
		got.Status != rec.Status ||
		got.SuccessorID != rec.SuccessorID ||
		got.RefreshHash != rec.RefreshHash ||
		got.CreatedAt != rec.CreatedAt ||
		got.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", rec, got)
	}
}

func TestEncodeDecodeWithoutSuccessor(t *testing.T) {
	rec := &Record{
		SessionID:   rawID(1),
		UserID:      "u",
		Status:      StatusActive,
		RefreshHash: [32]byte{1},
		CreatedAt:   100,
		ExpiresAt:   200,
	}

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SuccessorID != "" {
		t.Fatalf("expected empty successor, got %q", got.SuccessorID)
	}
}

func TestEncodeRejectsBadUserID(t *testing.T) {
	rec := &Record{SessionID: rawID(1), RefreshHash: [32]byte{1}}
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for empty user id")
	}

	rec.UserID = strings.Repeat("x", 256)
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for over-long user id")
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	valid, err := Encode(&Record{
		SessionID:   rawID(1),
		UserID:      "u1",
		RefreshHash: [32]byte{1},
		CreatedAt:   1,
		ExpiresAt:   2,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":         {},
		"short":         valid[:10],
		"truncated":     valid[:len(valid)-1],
		"trailing":      append(append([]byte{}, valid...), 0xFF),
		"wrong version": append([]byte{99}, valid[1:]...),
		"bad status":    append([]byte{valid[0], 7}, valid[2:]...),
	}

	for name, data := range cases {
		if _, err := Decode(data); !errors.Is(err, ErrRecordCorrupt) {
			t.Errorf("%s: expected ErrRecordCorrupt, got %v", name, err)
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusActive.String() != "active" || StatusRotated.String() != "rotated" ||
		StatusRevoked.String() != "revoked" || Status(9).String() != "unknown" {
		t.Fatal("status string mapping broken")
	}
}
