package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	groupKeyPrefix   = "g_"
	groupKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	groupKeyLength   = 12
	roomKeySeparator = ":"
)

// DeriveRoomKey returns the key of the direct room between the given
// identities. The result does not depend on argument order.
func DeriveRoomKey(memberIDs ...string) string {
	ids := distinct(memberIDs)
	sort.Strings(ids)
	return strings.Join(ids, roomKeySeparator)
}

// Room is a conversation between a fixed set of members.
type Room struct {
	key       string
	kind      domain.RoomKind
	name      string
	members   []string
	memberSet map[string]struct{}
	createdAt time.Time

	mu       sync.Mutex
	messages []domain.Message
	unread   map[string]int
}

// Key returns the room key.
func (r *Room) Key() string { return r.key }

// Kind returns whether the room is direct or a group.
func (r *Room) Kind() domain.RoomKind { return r.kind }

// Members returns a copy of the immutable member list.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// HasMember reports whether id belongs to the room.
func (r *Room) HasMember(id string) bool {
	_, ok := r.memberSet[id]
	return ok
}

func newRoom(key string, kind domain.RoomKind, name string, members []string, now time.Time) *Room {
	set := make(map[string]struct{}, len(members))
	unread := make(map[string]int, len(members))
	for _, id := range members {
		set[id] = struct{}{}
		unread[id] = 0
	}
	return &Room{
		key:       key,
		kind:      kind,
		name:      name,
		members:   members,
		memberSet: set,
		createdAt: now,
		messages:  make([]domain.Message, 0),
		unread:    unread,
	}
}

// RoomStore provides thread-safe storage for rooms, history and unread state.
type RoomStore struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	byMember  map[string][]string // memberID -> room keys
	directory IdentityDirectory
	groupKey  func() string
	now       func() time.Time
}

// NewRoomStore creates a room store resolving partners through directory.
func NewRoomStore(directory IdentityDirectory) *RoomStore {
	gen, err := nanoid.CustomASCII(groupKeyAlphabet, groupKeyLength)
	if err != nil {
		panic("chat: invalid group key generator: " + err.Error())
	}
	return &RoomStore{
		rooms:     make(map[string]*Room),
		byMember:  make(map[string][]string),
		directory: directory,
		groupKey:  func() string { return groupKeyPrefix + gen() },
		now:       time.Now,
	}
}

// GetOrCreate returns the direct room between two identities, creating it
// with empty history on first contact.
func (s *RoomStore) GetOrCreate(memberIDs []string) (*Room, bool, error) {
	ids := distinct(memberIDs)
	if len(ids) != 2 {
		return nil, false, ErrRoomMembers
	}
	sort.Strings(ids)
	key := strings.Join(ids, roomKeySeparator)

	s.mu.RLock()
	room, ok := s.rooms[key]
	s.mu.RUnlock()
	if ok {
		return room, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[key]; ok {
		return room, false, nil
	}
	room = newRoom(key, domain.RoomDirect, "", ids, s.now())
	s.insertLocked(room)
	return room, true, nil
}

// CreateGroup creates a named room with an assigned key.
func (s *RoomStore) CreateGroup(name string, memberIDs []string) (*Room, error) {
	name, err := ValidateRoomName(name)
	if err != nil {
		return nil, err
	}
	ids := distinct(memberIDs)
	if len(ids) < 2 {
		return nil, ErrRoomMembers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.groupKey()
	for _, taken := s.rooms[key]; taken; _, taken = s.rooms[key] {
		key = s.groupKey()
	}
	room := newRoom(key, domain.RoomGroup, name, ids, s.now())
	s.insertLocked(room)
	return room, nil
}

func (s *RoomStore) insertLocked(room *Room) {
	s.rooms[room.key] = room
	for _, id := range room.members {
		s.byMember[id] = append(s.byMember[id], room.key)
	}
}

// Get returns a room by key.
func (s *RoomStore) Get(key string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[key]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// AppendMessage validates and appends a message, then increments the unread
// counter of every member except the sender.
func (s *RoomStore) AppendMessage(key, senderID, text string, kind domain.MessageKind) (domain.Message, error) {
	kind, err := ValidateMessage(text, kind)
	if err != nil {
		return domain.Message{}, err
	}
	room, err := s.Get(key)
	if err != nil {
		return domain.Message{}, err
	}
	if !room.HasMember(senderID) {
		return domain.Message{}, ErrNotMember
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	createdAt := s.now()
	if n := len(room.messages); n > 0 && createdAt.Before(room.messages[n-1].CreatedAt) {
		createdAt = room.messages[n-1].CreatedAt
	}
	msg := domain.Message{
		ID:        uuid.New().String(),
		RoomKey:   key,
		SenderID:  senderID,
		Text:      text,
		Kind:      kind,
		CreatedAt: createdAt,
	}
	room.messages = append(room.messages, msg)
	for _, id := range room.members {
		if id != senderID {
			room.unread[id]++
		}
	}
	return msg, nil
}

// ResetUnread zeroes a member's unread counter. Unknown rooms and
// non-members are ignored.
func (s *RoomStore) ResetUnread(key, memberID string) {
	room, err := s.Get(key)
	if err != nil || !room.HasMember(memberID) {
		return
	}
	room.mu.Lock()
	room.unread[memberID] = 0
	room.mu.Unlock()
}

// Unread returns a member's unread counter, zero when unknown.
func (s *RoomStore) Unread(key, memberID string) int {
	room, err := s.Get(key)
	if err != nil {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.unread[memberID]
}

// History returns a copy of the room's messages in append order.
func (s *RoomStore) History(key string) ([]domain.Message, error) {
	room, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	result := make([]domain.Message, len(room.messages))
	copy(result, room.messages)
	return result, nil
}

// Members returns the member ids of a room.
func (s *RoomStore) Members(key string) ([]string, error) {
	room, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return room.Members(), nil
}

// Snapshot projects a room for one of its members.
func (s *RoomStore) Snapshot(key, viewerID string) (domain.RoomView, error) {
	room, err := s.Get(key)
	if err != nil {
		return domain.RoomView{}, err
	}
	if !room.HasMember(viewerID) {
		return domain.RoomView{}, ErrNotMember
	}
	return s.view(room, viewerID), nil
}

// Open resets a member's unread counter and returns the room's snapshot and
// history, all taken under one lock so no append lands in between.
func (s *RoomStore) Open(key, memberID string) (domain.RoomView, []domain.Message, error) {
	room, err := s.Get(key)
	if err != nil {
		return domain.RoomView{}, nil, err
	}
	if !room.HasMember(memberID) {
		return domain.RoomView{}, nil, ErrNotMember
	}
	view := s.baseView(room, memberID)

	room.mu.Lock()
	defer room.mu.Unlock()
	room.unread[memberID] = 0
	room.fillViewLocked(&view, memberID)
	history := make([]domain.Message, len(room.messages))
	copy(history, room.messages)
	return view, history, nil
}

// RoomsFor returns every room the member belongs to, most recent message
// first. Rooms without messages sort last.
func (s *RoomStore) RoomsFor(memberID string) []domain.RoomView {
	s.mu.RLock()
	keys := s.byMember[memberID]
	rooms := make([]*Room, 0, len(keys))
	for _, key := range keys {
		rooms = append(rooms, s.rooms[key])
	}
	s.mu.RUnlock()

	views := make([]domain.RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, s.view(room, memberID))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].UpdatedAt.Equal(views[j].UpdatedAt) {
			return views[i].Key < views[j].Key
		}
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views
}

// Len returns the number of rooms.
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *RoomStore) view(room *Room, viewerID string) domain.RoomView {
	view := s.baseView(room, viewerID)
	room.mu.Lock()
	defer room.mu.Unlock()
	room.fillViewLocked(&view, viewerID)
	return view
}

// baseView projects the immutable part of a room.
func (s *RoomStore) baseView(room *Room, viewerID string) domain.RoomView {
	view := domain.RoomView{
		Key:     room.key,
		Kind:    room.kind,
		Name:    room.name,
		Members: room.Members(),
	}
	if room.kind == domain.RoomDirect {
		for _, id := range room.members {
			if id == viewerID {
				continue
			}
			partner, ok := s.directory.Lookup(id)
			if !ok {
				partner = domain.LeftPlaceholder(id)
			}
			view.Partner = &partner
		}
	}
	return view
}

// fillViewLocked adds the mutable state. The caller holds r.mu.
func (r *Room) fillViewLocked(view *domain.RoomView, viewerID string) {
	view.Unread = r.unread[viewerID]
	if n := len(r.messages); n > 0 {
		last := r.messages[n-1]
		view.LastMessage = &last
		view.UpdatedAt = last.CreatedAt
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
