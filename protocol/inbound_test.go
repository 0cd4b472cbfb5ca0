package protocol

import (
	"testing"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the variant a frame dispatches to.
type recorder struct {
	got any
}

func (r *recorder) HandleLogin(f Login)             { r.got = f }
func (r *recorder) HandleOpenRoom(f OpenRoom)       { r.got = f }
func (r *recorder) HandleSendMessage(f SendMessage) { r.got = f }
func (r *recorder) HandleTyping(f Typing)           { r.got = f }
func (r *recorder) HandleRead(f Read)               { r.got = f }

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    any
		wantErr error
	}{
		{
			name:  "login",
			input: `{"type":"LOGIN","name":"Alice","avatar":"cat"}`,
			want:  Login{Name: "Alice", Avatar: "cat"},
		},
		{
			name:  "login with blank name decodes",
			input: `{"type":"LOGIN"}`,
			want:  Login{},
		},
		{
			name:  "open room by partner",
			input: `{"type":"OPEN_ROOM","partnerId":"b"}`,
			want:  OpenRoom{PartnerID: "b"},
		},
		{
			name:  "open room by room id",
			input: `{"type":"OPEN_ROOM","roomId":"g_1"}`,
			want:  OpenRoom{RoomID: "g_1"},
		},
		{
			name:  "send message by room key",
			input: `{"type":"SEND_MESSAGE","roomKey":"a:b","text":"hi"}`,
			want:  SendMessage{RoomKey: "a:b", Text: "hi"},
		},
		{
			name:  "send message accepts roomId alias",
			input: `{"type":"SEND_MESSAGE","roomId":"a:b","text":"pic","kind":"image"}`,
			want:  SendMessage{RoomKey: "a:b", Text: "pic", Kind: domain.KindImage},
		},
		{
			name:  "send message by partner",
			input: `{"type":"SEND_MESSAGE","partnerId":"b","text":"hi"}`,
			want:  SendMessage{PartnerID: "b", Text: "hi"},
		},
		{
			name:  "typing",
			input: `{"type":"TYPING","roomKey":"a:b"}`,
			want:  Typing{RoomKey: "a:b"},
		},
		{
			name:  "read",
			input: `{"type":"READ","roomId":"a:b"}`,
			want:  Read{RoomKey: "a:b"},
		},
		{name: "not json", input: `hello`, wantErr: ErrMalformed},
		{name: "not an object", input: `[1,2]`, wantErr: ErrMalformed},
		{name: "missing type", input: `{"name":"Alice"}`, wantErr: ErrMissingField},
		{name: "unknown type", input: `{"type":"DANCE"}`, wantErr: ErrUnknownType},
		{name: "open room without target", input: `{"type":"OPEN_ROOM"}`, wantErr: ErrMissingField},
		{name: "send message without room", input: `{"type":"SEND_MESSAGE","text":"hi"}`, wantErr: ErrMissingField},
		{name: "typing without room", input: `{"type":"TYPING"}`, wantErr: ErrMissingField},
		{name: "read without room", input: `{"type":"READ"}`, wantErr: ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, frame)
				return
			}
			require.NoError(t, err)

			var r recorder
			frame.Dispatch(&r)
			assert.Equal(t, tt.want, r.got)
		})
	}
}

func TestOutboundConstructors(t *testing.T) {
	session := NewSession(domain.Identity{ID: "a"}, nil)
	assert.Equal(t, TypeSession, session.Type)
	assert.NotNil(t, session.Users, "users serialise as an empty array")

	opened := NewRoomOpened(domain.RoomView{Key: "a:b"}, nil)
	assert.Equal(t, TypeRoomOpened, opened.Type)
	assert.NotNil(t, opened.Messages)

	assert.Equal(t, TypeNewMessage, NewNewMessage(domain.Message{}).Type)
	assert.Equal(t, TypeUserJoined, NewUserJoined(domain.Identity{}).Type)
	assert.Equal(t, "b", NewUserLeft("b").UserID)

	typing := NewTyping("a:b", "a")
	assert.Equal(t, TypeTyping, typing.Type)
	assert.Equal(t, "a:b", typing.RoomKey)
	assert.Equal(t, "a", typing.SenderID)
}
