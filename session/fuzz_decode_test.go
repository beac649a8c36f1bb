package session

import (
	"testing"
)

// FuzzRecordDecode exercises the binary record decoder with arbitrary
// inputs. Goal: no panics, graceful error handling.
func FuzzRecordDecode(f *testing.F) {
	rec := &Record{
		SessionID:   rawID(1),
		UserID:      "user1",
		Status:      StatusRotated,
		SuccessorID: rawID(2),
		RefreshHash: [32]byte{0xAA},
		CreatedAt:   1700000000,
		ExpiresAt:   1700003600,
	}
	encoded, err := Encode(rec)
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > 40 {
		f.Add(encoded[:40])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := Decode(data)
		if err != nil {
			return
		}

		// A decoded record must survive re-encoding.
		r.SessionID = rawID(3)
		if _, err := Encode(r); err != nil {
			t.Fatalf("re-encode of decoded record failed: %v", err)
		}
	})
}
