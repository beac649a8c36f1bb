package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the requested session record does not exist.
var ErrNotFound = errors.New("session record not found")

// ErrUnavailable is returned when the backing store cannot be reached. The
// outcome of the attempted operation is unknown.
var ErrUnavailable = errors.New("session store unavailable")

// Rotation sentinels. Rotate classifies the presented record so the caller
// can apply the reuse-detection policy without a second read.
var (
	// ErrRotateNotFound is returned when the rotation target does not exist.
	ErrRotateNotFound = errors.New("refresh session not found")
	// ErrRotateExpired is returned when the rotation target is Active but
	// past its refresh lifetime.
	ErrRotateExpired = errors.New("refresh session expired")
	// ErrRotateReused is returned when the rotation target was already
	// consumed by an earlier rotation.
	ErrRotateReused = errors.New("refresh session already rotated")
	// ErrRotateRevoked is returned when the rotation target was revoked.
	ErrRotateRevoked = errors.New("refresh session revoked")
	// ErrRefreshHashMismatch is returned when the presented secret does not
	// match the Active record's stored hash.
	ErrRefreshHashMismatch = errors.New("refresh hash mismatch")
)

const (
	rotateStatusNotFound    int64 = 0
	rotateStatusExpired     int64 = 1
	rotateStatusReused      int64 = 2
	rotateStatusRevoked     int64 = 3
	rotateStatusMismatch    int64 = 4
	rotateStatusRotated     int64 = 5
	rotateStatusInvalidBlob int64 = 6
)

const (
	revokeStatusNotFound    int64 = 0
	revokeStatusRevoked     int64 = 1
	revokeStatusInvalidBlob int64 = 2
)

// rotateScript is the atomic conditional transition at the core of the
// rotation protocol: Active → Rotated with successor linkage, plus creation
// of the successor record, in one script. Exactly one of any number of
// concurrent rotations of the same record observes status 5; the rest see
// the already-Rotated record.
//
// KEYS: presented record key, successor record key.
// ARGV: presented id, successor id, user-set key prefix, provided hash,
// next hash, successor id raw bytes, now (unix), successor expiry (unix),
// successor TTL (ms).
const rotateScript = `
local function read_be64(s, i)
  local v = 0
  for k = 0, 7 do
    local b = string.byte(s, i + k)
    if not b then
      return nil
    end
    v = v * 256 + b
  end
  return v
end

local function write_be64(v)
  local b = {}
  for k = 8, 1, -1 do
    b[k] = v % 256
    v = math.floor(v / 256)
  end
  return string.char(b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
end

local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end
if #data < 68 or string.byte(data, 1) ~= 1 then
  return {6}
end

local status = string.byte(data, 2)
if status == 2 then
  return {3}
end
if status == 1 then
  return {2}
end

local expires = read_be64(data, 27)
if not expires or expires <= tonumber(ARGV[7]) then
  return {1}
end

if string.sub(data, 35, 66) ~= ARGV[4] then
  return {4}
end

local pttl = redis.call("PTTL", KEYS[1])
if pttl <= 0 then
  return {1}
end

local user_len = string.byte(data, 67)
local user_id = string.sub(data, 68, 67 + user_len)
local user_key = ARGV[3] .. user_id

local rotated = string.sub(data, 1, 1) .. string.char(1) .. ARGV[6] .. string.sub(data, 19)
redis.call("SET", KEYS[1], rotated, "PX", pttl)

local successor = string.sub(data, 1, 1) .. string.char(0) .. string.rep(string.char(0), 16)
  .. write_be64(tonumber(ARGV[7])) .. write_be64(tonumber(ARGV[8]))
  .. ARGV[5] .. string.sub(data, 67)
redis.call("SET", KEYS[2], successor, "PX", tonumber(ARGV[9]))
redis.call("SREM", user_key, ARGV[1])
redis.call("SADD", user_key, ARGV[2])

return {5, successor}
`

var rotateLua = redis.NewScript(rotateScript)

// revokeScript marks a record Revoked in place, preserving its successor
// pointer and remaining TTL so lineage walks and later reuse classification
// keep working. Idempotent: revoking a Revoked record is a no-op.
//
// KEYS: record key. ARGV: session id, user-set key prefix.
const revokeScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end
if #data < 68 or string.byte(data, 1) ~= 1 then
  return {2}
end

local user_len = string.byte(data, 67)
local user_id = string.sub(data, 68, 67 + user_len)
local successor = string.sub(data, 3, 18)

if string.byte(data, 2) ~= 2 then
  local patched = string.sub(data, 1, 1) .. string.char(2) .. string.sub(data, 3)
  local pttl = redis.call("PTTL", KEYS[1])
  if pttl > 0 then
    redis.call("SET", KEYS[1], patched, "PX", pttl)
  else
    redis.call("SET", KEYS[1], patched)
  end
end
redis.call("SREM", ARGV[2] .. user_id, ARGV[1])

return {1, successor}
`

var revokeLua = redis.NewScript(revokeScript)

// Store is a Redis-backed session store handling persistence, expiration,
// atomic rotation, and revocation of refresh session records.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  rdb,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save persists a record with the given TTL and indexes it under its user.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	recordKey := s.key(rec.SessionID)
	userKey := s.userKey(rec.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey, data, ttl)
		pipe.SAdd(ctx, userKey, rec.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get retrieves a record by session id without mutating store state.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Join(redis.Nil, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	rec.SessionID = sessionID

	return rec, nil
}

// Rotate atomically transitions the presented record from Active to
// Rotated, links successorID, and creates the successor record as the
// lineage's new Active head. It returns the successor record.
//
// Classification errors: [ErrRotateNotFound], [ErrRotateExpired],
// [ErrRotateReused], [ErrRotateRevoked], [ErrRefreshHashMismatch]. When two
// rotations race on the same record, the loser observes ErrRotateReused.
func (s *Store) Rotate(
	ctx context.Context,
	sessionID string,
	providedHash, nextHash [32]byte,
	successorID string,
	successorTTL time.Duration,
) (*Record, error) {
	successorRaw, err := sessionIDBytes(successorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.key(successorID)},
		sessionID,
		successorID,
		s.userKeyPrefix(),
		string(providedHash[:]),
		string(nextHash[:]),
		string(successorRaw[:]),
		now.Unix(),
		now.Add(successorTTL).Unix(),
		successorTTL.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrRotateNotFound
	case rotateStatusExpired:
		return nil, ErrRotateExpired
	case rotateStatusReused:
		return nil, ErrRotateReused
	case rotateStatusRevoked:
		return nil, ErrRotateRevoked
	case rotateStatusMismatch:
		return nil, ErrRefreshHashMismatch
	case rotateStatusInvalidBlob:
		return nil, errors.Join(ErrUnavailable, ErrRecordCorrupt)
	case rotateStatusRotated:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing successor payload", ErrUnavailable)
		}
		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid successor payload", ErrUnavailable)
		}
		successor, decErr := Decode(blob)
		if decErr != nil {
			return nil, decErr
		}
		successor.SessionID = successorID
		return successor, nil
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrUnavailable)
	}
}

// Revoke marks the record Revoked regardless of its current status and
// reports the record's successor id so callers can walk the lineage.
// Revoking an absent or already-revoked record is not an error.
func (s *Store) Revoke(ctx context.Context, sessionID string) (string, bool, error) {
	result, err := revokeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
	).Result()
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return "", false, fmt.Errorf("%w: invalid revoke script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return "", false, fmt.Errorf("%w: invalid revoke script status", ErrUnavailable)
	}

	switch code {
	case revokeStatusNotFound:
		return "", false, nil
	case revokeStatusInvalidBlob:
		return "", false, errors.Join(ErrUnavailable, ErrRecordCorrupt)
	case revokeStatusRevoked:
		if len(parts) < 2 {
			return "", false, fmt.Errorf("%w: missing successor payload", ErrUnavailable)
		}
		var raw []byte
		switch v := parts[1].(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			return "", false, fmt.Errorf("%w: invalid successor payload", ErrUnavailable)
		}
		if isZeroID(raw) {
			return "", true, nil
		}
		return sessionIDString(raw), true, nil
	default:
		return "", false, fmt.Errorf("%w: unknown revoke script status", ErrUnavailable)
	}
}

// RevokeLineageFrom walks successor pointers forward from sessionID and
// revokes every visited record, including already-Rotated ones. Used by the
// reuse-detection cascade: once reuse is detected, the entire remaining
// lineage becomes unusable. Returns the number of records revoked.
//
// Lineages are forward chains by construction; maxWalk only guards against
// corrupted successor pointers.
func (s *Store) RevokeLineageFrom(ctx context.Context, sessionID string, maxWalk int) (int, error) {
	seen := make(map[string]struct{})
	revoked := 0

	id := sessionID
	for id != "" && len(seen) < maxWalk {
		if _, dup := seen[id]; dup {
			break
		}
		seen[id] = struct{}{}

		successor, found, err := s.Revoke(ctx, id)
		if err != nil {
			return revoked, err
		}
		if found {
			revoked++
		}
		id = successor
	}

	return revoked, nil
}

// RevokeAllForUser revokes every indexed session of a user across all
// lineages.
//
// ATOMICITY NOTE: the user index read and the per-record revocations are
// separate commands. A session created between the read and the writes is
// not captured by this call; it expires naturally or is caught by the next
// invocation.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	revoked := 0
	for _, id := range sessionIDs {
		_, found, err := s.Revoke(ctx, id)
		if err != nil {
			return revoked, err
		}
		if found {
			revoked++
		}
	}

	return revoked, nil
}

// ActiveSessionIDs returns the indexed session ids for a user. The index
// tracks each lineage's current Active head.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ids, nil
}

// ActiveSessionCount returns the number of indexed sessions for a user.
func (s *Store) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time store availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
