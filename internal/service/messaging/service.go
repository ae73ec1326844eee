// Package messaging owns chat rooms, membership, messages and unread state.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/cache"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// MaxRoomNameLength caps room names in runes.
const MaxRoomNameLength = 50

const (
	defaultHistory  = 50
	chatWithVisible = 3
)

// Privileges answers group questions about users.
type Privileges interface {
	IsAdministrator(ctx context.Context, uid int64) (bool, error)
	IsPrivileged(ctx context.Context, uid int64) (bool, error)
}

// Notifier records chat notifications for offline reading.
type Notifier interface {
	NotifyChat(ctx context.Context, uid, roomID int64, body string) error
}

// Config holds messaging limits.
type Config struct {
	MaximumMessageLength int
}

// Service implements the messaging collaborator of the chat gateway.
type Service struct {
	store    store.Store
	kv       store.KV
	sockets  gateway.Sockets
	users    Privileges
	notifier Notifier
	public   *cache.Cache[[]int64]
	cfg      Config
	log      *zerolog.Logger
}

var _ gateway.Messaging = (*Service)(nil)

// New creates a messaging service. publicRooms caches the public room ordering.
func New(st store.Store, kv store.KV, sockets gateway.Sockets, users Privileges, notifier Notifier,
	publicRooms *cache.Cache[[]int64], cfg Config, logger *zerolog.Logger,
) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.MaximumMessageLength <= 0 {
		cfg.MaximumMessageLength = 1000
	}
	return &Service{
		store:    st,
		kv:       kv,
		sockets:  sockets,
		users:    users,
		notifier: notifier,
		public:   publicRooms,
		cfg:      cfg,
		log:      logger,
	}
}

func settingsKey(roomID int64) string {
	return gateway.RoomKey(roomID) + ":notification:settings"
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// roomFromStore merges the relational room row with its hash attributes.
func (s *Service) roomFromStore(ctx context.Context, r *store.Room) (*core.Room, error) {
	fields, err := s.kv.GetObject(ctx, gateway.RoomKey(r.ID))
	if err != nil {
		return nil, fmt.Errorf("load room %d attributes: %w", r.ID, err)
	}
	members, err := s.store.ListMembers(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	room := &core.Room{
		RoomID:              r.ID,
		OwnerUID:            r.OwnerUID,
		RoomName:            r.Name,
		Public:              r.Public,
		Groups:              []string{},
		NotificationSetting: core.DefaultNotificationSetting(r.Public),
		UserCount:           len(members),
		CreatedAt:           r.CreatedAt,
	}
	if raw := fields["groups"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &room.Groups); err != nil {
			return nil, fmt.Errorf("decode room %d groups: %w", r.ID, err)
		}
	}
	if raw := fields["notificationSetting"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && core.NotificationSetting(n).Valid() {
			room.NotificationSetting = core.NotificationSetting(n)
		}
	}
	return room, nil
}

// GetRoomData returns the room or nil when it does not exist.
func (s *Service) GetRoomData(ctx context.Context, roomID int64) (*core.Room, error) {
	r, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.roomFromStore(ctx, r)
}

func (s *Service) mustRoom(ctx context.Context, roomID int64) (*core.Room, error) {
	room, err := s.GetRoomData(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, core.ErrNoRoom
	}
	return room, nil
}

// canAccessGroups reports whether uid belongs to one of groups.
// Administrators can access every group.
func (s *Service) canAccessGroups(ctx context.Context, uid int64, groups []string) (bool, error) {
	isAdmin, err := s.users.IsAdministrator(ctx, uid)
	if err != nil || isAdmin {
		return isAdmin, err
	}
	mine, err := s.store.ListUserGroups(ctx, uid)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		for _, m := range mine {
			if g == m {
				return true, nil
			}
		}
	}
	return false, nil
}

func toMembers(room *core.Room, rows []*store.RoomMember) []core.Member {
	out := make([]core.Member, 0, len(rows))
	for _, m := range rows {
		out = append(out, core.Member{UID: m.UID, Username: m.Username, IsOwner: m.UID == room.OwnerUID})
	}
	return out
}

func without(members []core.Member, uid int64) []core.Member {
	out := make([]core.Member, 0, len(members))
	for _, m := range members {
		if m.UID != uid {
			out = append(out, m)
		}
	}
	return out
}

// chatWith renders the "Chat with ..." label shown for a room.
func chatWith(others []core.Member) string {
	if len(others) == 0 {
		return "Chat"
	}
	names := make([]string, 0, chatWithVisible)
	for i, m := range others {
		if i == chatWithVisible {
			break
		}
		names = append(names, m.Username)
	}
	switch rest := len(others) - len(names); {
	case rest > 0:
		return fmt.Sprintf("Chat with %s and %d others", strings.Join(names, ", "), rest)
	case len(names) == 1:
		return "Chat with " + names[0]
	default:
		return fmt.Sprintf("Chat with %s and %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}
}

func toMessage(m *store.Message, usernames map[int64]string) core.Message {
	return core.Message{
		MessageID: m.ID,
		RoomID:    m.RoomID,
		FromUID:   m.UID,
		Content:   m.Content,
		ToMID:     m.ToMID,
		Timestamp: m.CreatedAt.UnixMilli(),
		IP:        m.IP,
		FromUser:  &core.UserRef{UID: m.UID, Username: usernames[m.UID]},
	}
}

// usernames resolves authors, reusing known member names.
func (s *Service) usernames(ctx context.Context, known []core.Member, msgs []*store.Message) (map[int64]string, error) {
	names := make(map[int64]string, len(known))
	for _, m := range known {
		names[m.UID] = m.Username
	}
	for _, msg := range msgs {
		if _, ok := names[msg.UID]; ok {
			continue
		}
		u, err := s.store.GetUserByID(ctx, msg.UID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			names[msg.UID] = ""
		case err != nil:
			return nil, err
		default:
			names[msg.UID] = u.Username
		}
	}
	return names, nil
}
