package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/plugins"
)

type fakeMessaging struct {
	mu sync.Mutex

	rooms       map[int64]*core.Room
	members     map[int64]map[int64]bool
	nextRoomID  int64
	unread      int
	canMessage  map[int64]error
	roomErr     error
	canJoin     bool
	canLeave    bool
	chatWith    string
	calls       []string
	rangeStart  int
	rangeStop   int
	listUID     int64
	renamedTo   *string
	newRoomData *core.NewRoomData
	sent        []*core.Message
	notified    chan *core.Message
	sorted      bool
	pushErr     error
}

func newFakeMessaging() *fakeMessaging {
	return &fakeMessaging{
		rooms:      make(map[int64]*core.Room),
		members:    make(map[int64]map[int64]bool),
		nextRoomID: 100,
		canMessage: make(map[int64]error),
		notified:   make(chan *core.Message, 4),
		chatWith:   "Chat with bob",
	}
}

func (m *fakeMessaging) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

func (m *fakeMessaging) called(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *fakeMessaging) addRoom(id int64, public bool, uids ...int64) {
	m.rooms[id] = &core.Room{RoomID: id, Public: public, RoomName: "room"}
	m.members[id] = make(map[int64]bool)
	for _, uid := range uids {
		m.members[id][uid] = true
	}
}

func (m *fakeMessaging) GetRecentChats(_ context.Context, _, uid int64, start, stop int) (*core.RecentChats, error) {
	m.record("GetRecentChats")
	m.listUID, m.rangeStart, m.rangeStop = uid, start, stop
	return &core.RecentChats{NextStart: stop + 1}, nil
}

func (m *fakeMessaging) NewRoom(_ context.Context, uid int64, data core.NewRoomData) (int64, error) {
	m.record("NewRoom")
	m.nextRoomID++
	m.newRoomData = &data
	m.addRoom(m.nextRoomID, data.Public, append([]int64{uid}, data.UIDs...)...)
	m.rooms[m.nextRoomID].NotificationSetting = data.NotificationSetting
	return m.nextRoomID, nil
}

func (m *fakeMessaging) GetRoomData(_ context.Context, roomID int64) (*core.Room, error) {
	m.record("GetRoomData")
	if m.roomErr != nil {
		return nil, m.roomErr
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (m *fakeMessaging) LoadRoom(_ context.Context, _, _, roomID int64) (*core.RoomView, error) {
	m.record("LoadRoom")
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, core.ErrNoRoom
	}
	return &core.RoomView{Room: *room, ChatWithMessage: m.chatWith}, nil
}

func (m *fakeMessaging) CanMessageUser(_ context.Context, _, toUID int64) error {
	m.record("CanMessageUser")
	return m.canMessage[toUID]
}

func (m *fakeMessaging) CanMessageRoom(_ context.Context, uid, roomID int64) error {
	m.record("CanMessageRoom")
	if !m.members[roomID][uid] {
		return core.ErrNoPrivileges
	}
	return nil
}

func (m *fakeMessaging) SendMessage(_ context.Context, msg *core.Message) (*core.Message, error) {
	m.record("SendMessage")
	out := *msg
	out.MessageID = int64(len(m.sent) + 1)
	m.sent = append(m.sent, &out)
	return &out, nil
}

func (m *fakeMessaging) NotifyUsersInRoom(_ context.Context, _, _ int64, msg *core.Message) error {
	m.record("NotifyUsersInRoom")
	m.notified <- msg
	return nil
}

func (m *fakeMessaging) RenameRoom(_ context.Context, _, roomID int64, name string) error {
	m.record("RenameRoom")
	if room, ok := m.rooms[roomID]; ok {
		room.RoomName = name
	}
	m.renamedTo = &name
	return nil
}

func (m *fakeMessaging) MarkRead(context.Context, int64, int64) error {
	m.record("MarkRead")
	return nil
}

func (m *fakeMessaging) MarkUnread(context.Context, []int64, int64) error {
	m.record("MarkUnread")
	return nil
}

func (m *fakeMessaging) PushUnreadCount(context.Context, int64) error {
	m.record("PushUnreadCount")
	return m.pushErr
}

func (m *fakeMessaging) GetUnreadCount(context.Context, int64) (int, error) {
	return m.unread, nil
}

func (m *fakeMessaging) IsUserInRoom(_ context.Context, uid, roomID int64) (bool, error) {
	return m.members[roomID][uid], nil
}

func (m *fakeMessaging) SetUserNotificationSetting(context.Context, int64, int64, core.NotificationSetting) error {
	m.record("SetUserNotificationSetting")
	return nil
}

func (m *fakeMessaging) CanJoinRoom(context.Context, int64, int64) (bool, error) {
	return m.canJoin, nil
}

func (m *fakeMessaging) CanLeaveRoom(context.Context, int64, int64) (bool, error) {
	return m.canLeave, nil
}

func (m *fakeMessaging) AddUserToRoom(context.Context, int64, int64) error {
	m.record("AddUserToRoom")
	return nil
}

func (m *fakeMessaging) RemoveUserFromRoom(context.Context, int64, int64) error {
	m.record("RemoveUserFromRoom")
	return nil
}

func (m *fakeMessaging) GetRoomMembers(_ context.Context, roomID int64) ([]core.Member, error) {
	var out []core.Member
	for uid := range m.members[roomID] {
		out = append(out, core.Member{UID: uid})
	}
	return out, nil
}

func (m *fakeMessaging) DeleteRoom(_ context.Context, roomID int64) error {
	m.record("DeleteRoom")
	delete(m.rooms, roomID)
	return nil
}

func (m *fakeMessaging) GetPublicRooms(context.Context, int64) ([]core.Room, error) {
	return nil, nil
}

func (m *fakeMessaging) GetMessages(_ context.Context, _, _ int64, limit int, _ *int64) ([]core.Message, error) {
	m.record("GetMessages")
	return make([]core.Message, 0, limit), nil
}

type fakeUserNotifications struct {
	byField []string
	pushed  int
	pushErr error
}

func (n *fakeUserNotifications) GetUnreadByField(context.Context, int64, string, []string) ([]string, error) {
	return n.byField, nil
}

func (n *fakeUserNotifications) PushCount(context.Context, int64) error {
	n.pushed++
	return n.pushErr
}

type fakeUsers struct {
	admins     map[int64]bool
	privileged map[int64]bool
	reputation map[int64]string
	online     chan int64
	notifs     *fakeUserNotifications
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		admins:     make(map[int64]bool),
		privileged: make(map[int64]bool),
		reputation: make(map[int64]string),
		online:     make(chan int64, 4),
		notifs:     &fakeUserNotifications{},
	}
}

func (u *fakeUsers) IsPrivileged(_ context.Context, uid int64) (bool, error) {
	return u.privileged[uid] || u.admins[uid], nil
}

func (u *fakeUsers) IsAdministrator(_ context.Context, uid int64) (bool, error) {
	return u.admins[uid], nil
}

func (u *fakeUsers) GetUserField(_ context.Context, uid int64, _ string) (string, error) {
	return u.reputation[uid], nil
}

func (u *fakeUsers) UpdateOnlineUsers(_ context.Context, uid int64) error {
	u.online <- uid
	return nil
}

func (u *fakeUsers) Notifications() UserNotifications {
	return u.notifs
}

type fakeNotifications struct {
	batches [][]string
}

func (n *fakeNotifications) MarkReadMultiple(_ context.Context, nids []string, _ int64) error {
	n.batches = append(n.batches, nids)
	return nil
}

type fakeDB struct {
	fields map[string]string
	zsets  map[string]map[string]float64
}

func newFakeDB() *fakeDB {
	return &fakeDB{fields: make(map[string]string), zsets: make(map[string]map[string]float64)}
}

func (d *fakeDB) SetObjectField(_ context.Context, key, field, value string) error {
	d.fields[key+"."+field] = value
	return nil
}

func (d *fakeDB) SortedSetAdd(_ context.Context, key string, scores []float64, members []string) error {
	set, ok := d.zsets[key]
	if !ok {
		set = make(map[string]float64)
		d.zsets[key] = set
	}
	for i, m := range members {
		set[m] = scores[i]
	}
	return nil
}

type fakeCache struct {
	deleted []string
}

func (c *fakeCache) Del(key string) { c.deleted = append(c.deleted, key) }

type emitted struct {
	event   string
	channel string
	uids    []int64
	payload any
}

type fakeSockets struct {
	mu     sync.Mutex
	events []emitted
}

func (s *fakeSockets) EmitToUIDs(event string, payload any, uids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, emitted{event: event, uids: uids, payload: payload})
}

func (s *fakeSockets) EmitToRoom(channel, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, emitted{event: event, channel: channel, payload: payload})
}

func (s *fakeSockets) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (s *fakeSockets) last(event string) (emitted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].event == event {
			return s.events[i], true
		}
	}
	return emitted{}, false
}

type testEnv struct {
	gw        *Gateway
	messaging *fakeMessaging
	users     *fakeUsers
	notifs    *fakeNotifications
	db        *fakeDB
	cache     *fakeCache
	sockets   *fakeSockets
	hooks     *plugins.Hooks
	now       time.Time
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		messaging: newFakeMessaging(),
		users:     newFakeUsers(),
		notifs:    &fakeNotifications{},
		db:        newFakeDB(),
		cache:     &fakeCache{},
		sockets:   &fakeSockets{},
		hooks:     plugins.New(),
		now:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	env.gw = New(Deps{
		Messaging:     env.messaging,
		Users:         env.users,
		Notifications: env.notifs,
		DB:            env.db,
		Cache:         env.cache,
		Sockets:       env.sockets,
		Hooks:         env.hooks,
		Sessions:      NewSessions(64, time.Hour),
	}, Settings{
		NewbieReputationThreshold: 3,
		ChatMessageDelay:          2 * time.Second,
		NewbieChatMessageDelay:    2 * time.Minute,
	}, nil)
	env.gw.SetClock(func() time.Time { return env.now })
	t.Cleanup(env.gw.Wait)
	return env
}
