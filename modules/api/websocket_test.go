package api

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboundFrame struct {
	msgType int
	data    string
}

// scriptedSource replays frames, then fails with err.
type scriptedSource struct {
	frames  []inboundFrame
	readers []*bytes.Reader
	err     error
}

func (s *scriptedSource) NextReader() (int, io.Reader, error) {
	if len(s.frames) == 0 {
		return 0, nil, s.err
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	r := bytes.NewReader([]byte(f.data))
	s.readers = append(s.readers, r)
	return f.msgType, r, nil
}

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		limit   int
		wantErr error
	}{
		{name: "under limit", data: "hello", limit: 8},
		{name: "exactly at limit", data: "12345678", limit: 8},
		{name: "over limit", data: "123456789", limit: 8, wantErr: errFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.data)
			data, err := readFrame(r, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, data)
				assert.Zero(t, r.Len(), "the rest of the frame is drained")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(data))
		})
	}
}

func TestServeFrames_DropsOversizedFrames(t *testing.T) {
	m := NewModule(Config{MaxFrameBytes: 32}, &mockLogger{})
	closed := errors.New("connection closed")
	src := &scriptedSource{
		frames: []inboundFrame{
			{websocket.TextMessage, `{"type":"TYPING","roomKey":"a"}`},
			{websocket.TextMessage, `{"type":"TYPING","roomKey":"` + strings.Repeat("x", 20*1024) + `"}`},
			{websocket.BinaryMessage, `ignored`},
			{websocket.TextMessage, `{"type":"READ","roomKey":"a"}`},
		},
		err: closed,
	}

	var handled []string
	err := m.serveFrames(src, func(data []byte) { handled = append(handled, string(data)) })

	assert.ErrorIs(t, err, closed, "only a transport failure ends the loop")
	assert.Equal(t, []string{
		`{"type":"TYPING","roomKey":"a"}`,
		`{"type":"READ","roomKey":"a"}`,
	}, handled)
	assert.Zero(t, src.readers[1].Len())
}
