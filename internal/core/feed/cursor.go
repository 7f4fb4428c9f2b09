package feed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	cursorVersion   = "v1"
	cursorDelimiter = "::"
	maxCursorLength = 1024
)

// cursorState is everything needed to resume a traversal.
// Each phase keeps its own watermark because the two phases are paged
// independently; a single offset would drift when collages are inserted
// between requests.
type cursorState struct {
	Snapshot time.Time
	Unseen   *Watermark
	Seen     *Watermark
	Phase    Phase
}

// CursorCodec encodes and decodes HMAC-signed opaque feed cursors
type CursorCodec struct {
	secret []byte
}

// NewCursorCodec creates a codec signing cursors with secret
func NewCursorCodec(secret string) *CursorCodec {
	return &CursorCodec{secret: []byte(secret)}
}

// Encode serializes state as base64(payload::signature)
// Payload: version::phase::snapshot::unseenTime::unseenID::seenTime::seenID
func (c *CursorCodec) Encode(state *cursorState) string {
	unseenTime, unseenID := formatWatermark(state.Unseen)
	seenTime, seenID := formatWatermark(state.Seen)

	payload := strings.Join([]string{
		cursorVersion,
		string(state.Phase),
		strconv.FormatInt(state.Snapshot.UnixNano(), 10),
		unseenTime, unseenID,
		seenTime, seenID,
	}, cursorDelimiter)

	signed := payload + cursorDelimiter + c.sign(payload)
	return base64.URLEncoding.EncodeToString([]byte(signed))
}

// Decode validates and parses a cursor. A nil or empty cursor yields nil state.
func (c *CursorCodec) Decode(cursor *string) (*cursorState, error) {
	if cursor == nil || *cursor == "" {
		return nil, nil
	}
	if len(*cursor) > maxCursorLength {
		return nil, fmt.Errorf("cursor exceeds maximum length of %d", maxCursorLength)
	}

	decoded, err := base64.URLEncoding.DecodeString(*cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 cursor encoding")
	}

	parts := strings.Split(string(decoded), cursorDelimiter)
	if len(parts) != 8 {
		return nil, fmt.Errorf("malformed cursor format")
	}

	// Verify HMAC signature
	signature := parts[len(parts)-1]
	payload := strings.Join(parts[:len(parts)-1], cursorDelimiter)
	if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
		return nil, fmt.Errorf("invalid cursor signature")
	}

	if parts[0] != cursorVersion {
		return nil, fmt.Errorf("unsupported cursor version %q", parts[0])
	}

	state := &cursorState{Phase: Phase(parts[1])}
	if state.Phase != PhaseUnseen && state.Phase != PhaseSeen {
		return nil, fmt.Errorf("invalid cursor phase")
	}

	nanos, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || nanos <= 0 {
		return nil, fmt.Errorf("invalid cursor snapshot")
	}
	state.Snapshot = time.Unix(0, nanos).UTC()

	if state.Unseen, err = parseWatermark(parts[3], parts[4]); err != nil {
		return nil, err
	}
	if state.Seen, err = parseWatermark(parts[5], parts[6]); err != nil {
		return nil, err
	}

	return state, nil
}

func (c *CursorCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatWatermark(w *Watermark) (string, string) {
	if w == nil {
		return "", ""
	}
	return w.CreatedAt.UTC().Format(time.RFC3339Nano), w.ID
}

func parseWatermark(ts, id string) (*Watermark, error) {
	if ts == "" && id == "" {
		return nil, nil
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid cursor collage ID")
	}

	return &Watermark{CreatedAt: createdAt, ID: id}, nil
}
