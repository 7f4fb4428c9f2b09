package feed

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorCodec_RoundTrip(t *testing.T) {
	codec := NewCursorCodec("test-secret")
	snapshot := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

	tests := []struct {
		state *cursorState
		name  string
	}{
		{
			name:  "unseen phase without watermarks",
			state: &cursorState{Phase: PhaseUnseen, Snapshot: snapshot},
		},
		{
			name: "unseen phase with watermark",
			state: &cursorState{
				Phase:    PhaseUnseen,
				Snapshot: snapshot,
				Unseen:   &Watermark{CreatedAt: snapshot.Add(-time.Hour), ID: uuid.NewString()},
			},
		},
		{
			name: "seen phase with both watermarks",
			state: &cursorState{
				Phase:    PhaseSeen,
				Snapshot: snapshot,
				Unseen:   &Watermark{CreatedAt: snapshot.Add(-2 * time.Hour), ID: uuid.NewString()},
				Seen:     &Watermark{CreatedAt: snapshot.Add(-3 * time.Hour), ID: uuid.NewString()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := codec.Encode(tt.state)
			decoded, err := codec.Decode(&encoded)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.state.Phase, decoded.Phase)
			assert.True(t, tt.state.Snapshot.Equal(decoded.Snapshot))
			assertWatermark(t, tt.state.Unseen, decoded.Unseen)
			assertWatermark(t, tt.state.Seen, decoded.Seen)
		})
	}
}

func assertWatermark(t *testing.T, want, got *Watermark) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestCursorCodec_EmptyCursor(t *testing.T) {
	codec := NewCursorCodec("test-secret")

	state, err := codec.Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, state)

	empty := ""
	state, err = codec.Decode(&empty)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestCursorCodec_Rejects(t *testing.T) {
	codec := NewCursorCodec("test-secret")
	valid := codec.Encode(&cursorState{
		Phase:    PhaseSeen,
		Snapshot: time.Now(),
		Seen:     &Watermark{CreatedAt: time.Now(), ID: uuid.NewString()},
	})

	forge := func(payload string) string {
		c := NewCursorCodec("test-secret")
		return base64.URLEncoding.EncodeToString([]byte(payload + cursorDelimiter + c.sign(payload)))
	}

	tests := []struct {
		name    string
		cursor  string
		wantErr string
	}{
		{"not base64", "!!!not-base64!!!", "invalid base64"},
		{"too long", strings.Repeat("a", maxCursorLength+1), "maximum length"},
		{"wrong part count", base64.URLEncoding.EncodeToString([]byte("a::b")), "malformed"},
		{"signed with other secret", NewCursorCodec("other").Encode(&cursorState{Phase: PhaseUnseen, Snapshot: time.Now()}), "signature"},
		{"tampered payload", tamper(valid), ""},
		{"unknown version", forge("v9::unseen::1::::::::"), "version"},
		{"unknown phase", forge("v1::middle::1::::::::"), "phase"},
		{"zero snapshot", forge("v1::unseen::0::::::::"), "snapshot"},
		{"bad watermark time", forge("v1::seen::1::::::yesterday::" + uuid.NewString()), "timestamp"},
		{"bad watermark id", forge("v1::seen::1::::::2025-01-01T00:00:00Z::'; DROP TABLE"), "collage ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor := tt.cursor
			state, err := codec.Decode(&cursor)
			require.Error(t, err)
			assert.Nil(t, state)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// tamper flips the phase inside a signed cursor without re-signing it
func tamper(cursor string) string {
	raw, _ := base64.URLEncoding.DecodeString(cursor)
	modified := strings.Replace(string(raw), "::seen::", "::unseen::", 1)
	return base64.URLEncoding.EncodeToString([]byte(modified))
}
