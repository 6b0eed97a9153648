package telegram

import (
	"fmt"
	"strings"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// channelIDShift turns an MTProto channel ID into the Bot API form -100<id>
const channelIDShift int64 = 1_000_000_000_000

func botAPIUserID(id int64) int64    { return id }
func botAPIChatID(id int64) int64    { return -id }
func botAPIChannelID(id int64) int64 { return -(channelIDShift + id) }

type dialogsPage struct {
	dialogs  []*tg.Dialog
	messages []tg.MessageClass
	chats    []tg.ChatClass
	users    []tg.UserClass
}

// unpackDialogs flattens the getDialogs variants. complete is true when the
// server returned the whole list in one response.
func unpackDialogs(resp tg.MessagesDialogsClass) (page dialogsPage, complete bool) {
	var raw []tg.DialogClass

	switch d := resp.(type) {
	case *tg.MessagesDialogs:
		raw, page.messages, page.chats, page.users = d.Dialogs, d.Messages, d.Chats, d.Users
		complete = true
	case *tg.MessagesDialogsSlice:
		raw, page.messages, page.chats, page.users = d.Dialogs, d.Messages, d.Chats, d.Users
	default:
		return page, true
	}

	for _, item := range raw {
		if dlg, ok := item.(*tg.Dialog); ok {
			page.dialogs = append(page.dialogs, dlg)
		}
	}
	return page, complete
}

type entityIndex struct {
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
	dates    map[string]int
}

func newEntityIndex(page dialogsPage) *entityIndex {
	idx := &entityIndex{
		users:    make(map[int64]*tg.User, len(page.users)),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
		dates:    make(map[string]int, len(page.messages)),
	}

	for _, u := range page.users {
		if user, ok := u.(*tg.User); ok {
			idx.users[user.ID] = user
		}
	}
	for _, c := range page.chats {
		switch chat := c.(type) {
		case *tg.Chat:
			idx.chats[chat.ID] = chat
		case *tg.Channel:
			idx.channels[chat.ID] = chat
		}
	}
	for _, m := range page.messages {
		switch msg := m.(type) {
		case *tg.Message:
			idx.dates[messageKey(msg.PeerID, msg.ID)] = msg.Date
		case *tg.MessageService:
			idx.dates[messageKey(msg.PeerID, msg.ID)] = msg.Date
		}
	}

	return idx
}

func peerKey(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return fmt.Sprintf("u%d", p.UserID)
	case *tg.PeerChat:
		return fmt.Sprintf("c%d", p.ChatID)
	case *tg.PeerChannel:
		return fmt.Sprintf("ch%d", p.ChannelID)
	default:
		return ""
	}
}

func messageKey(peer tg.PeerClass, id int) string {
	return fmt.Sprintf("%s/%d", peerKey(peer), id)
}

func (idx *entityIndex) messageDate(peer tg.PeerClass, id int) int {
	return idx.dates[messageKey(peer, id)]
}

func (idx *entityIndex) inputPeer(peer tg.PeerClass) (tg.InputPeerClass, bool) {
	known, ok := idx.resolve(peer)
	if !ok {
		return nil, false
	}
	return known.input, true
}

// resolve maps a dialog peer to the domain chat. Deleted users, deactivated
// groups and channels the account has left are not resolvable.
func (idx *entityIndex) resolve(peer tg.PeerClass) (knownPeer, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		user, ok := idx.users[p.UserID]
		if !ok || user.Deleted {
			return knownPeer{}, false
		}
		return knownPeer{
			input: &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
			chat: domain.Chat{
				ID:       botAPIUserID(user.ID),
				Name:     userName(user),
				Type:     domain.ChatTypeUser,
				Username: user.Username,
			},
		}, true

	case *tg.PeerChat:
		chat, ok := idx.chats[p.ChatID]
		if !ok || chat.Deactivated || chat.Left {
			return knownPeer{}, false
		}
		return knownPeer{
			input: &tg.InputPeerChat{ChatID: chat.ID},
			chat: domain.Chat{
				ID:                botAPIChatID(chat.ID),
				Name:              chat.Title,
				Type:              domain.ChatTypeGroup,
				ParticipantsCount: chat.ParticipantsCount,
			},
		}, true

	case *tg.PeerChannel:
		channel, ok := idx.channels[p.ChannelID]
		if !ok || channel.Left {
			return knownPeer{}, false
		}
		participants, _ := channel.GetParticipantsCount()
		return knownPeer{
			input: &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash},
			chat: domain.Chat{
				ID:                botAPIChannelID(channel.ID),
				Name:              channel.Title,
				Type:              channelType(channel),
				ParticipantsCount: participants,
				Username:          channel.Username,
			},
		}, true
	}

	return knownPeer{}, false
}

func channelType(ch *tg.Channel) domain.ChatType {
	switch {
	case ch.Gigagroup:
		return domain.ChatTypeGigagroup
	case ch.Megagroup:
		return domain.ChatTypeSupergroup
	default:
		return domain.ChatTypeChannel
	}
}

func userName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// translateMTProtoError maps FLOOD_WAIT to *domain.RateLimitError and
// access errors to domain.ErrNoAccess
func translateMTProtoError(op string, err error) error {
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &domain.RateLimitError{RetryAfter: wait, Op: op}
	}
	if tgerr.Is(err, "CHANNEL_PRIVATE", "CHAT_FORBIDDEN", "CHANNEL_INVALID", "USER_BANNED_IN_CHANNEL") {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNoAccess, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
