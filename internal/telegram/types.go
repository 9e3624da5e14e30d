package telegram

import (
	"github.com/gotd/td/tg"
)

// GroupKind classifies a resolved group entity.
type GroupKind string

// Entity kinds a group identifier can resolve to.
const (
	GroupKindChannel    GroupKind = "channel"    // broadcast channel
	GroupKindSupergroup GroupKind = "supergroup" // megagroup
	GroupKindChat       GroupKind = "chat"       // basic group chat
)

// Group is a resolved group handle. Immutable once resolved; valid for one
// command invocation.
type Group struct {
	ID          int64     // remote id
	AccessHash  int64     // access hash for api calls (channels only)
	Username    string    // public username without @ (may be empty)
	Title       string    // display title
	Kind        GroupKind // entity kind
	MemberCount int       // remote-reported participant count (best effort)
}

// isChannelPeer reports whether api calls address this group as a channel.
// Basic chats use a different set of requests.
func (g *Group) isChannelPeer() bool {
	return g.Kind != GroupKindChat
}

// inputChannel builds the channel reference for channel-scoped requests.
func (g *Group) inputChannel() *tg.InputChannel {
	return &tg.InputChannel{
		ChannelID:  g.ID,
		AccessHash: g.AccessHash,
	}
}

// InputPeer builds the peer reference for history requests.
func (g *Group) InputPeer() tg.InputPeerClass {
	if g.isChannelPeer() {
		return &tg.InputPeerChannel{
			ChannelID:  g.ID,
			AccessHash: g.AccessHash,
		}
	}
	return &tg.InputPeerChat{ChatID: g.ID}
}

// MemberBatch is one page of raw participants. RawCount is the size of the
// page as served, including participants whose user entity was missing; the
// pagination cursor must advance by it, not by len(Users).
type MemberBatch struct {
	Users    []*tg.User // participant users, remote order
	Total    int        // remote-reported total participant count
	RawCount int        // participants in the raw page
}

// Users maps user ids to the user entities a history page referenced.
type Users map[int64]*tg.User

// ChatTitles maps channel/chat ids to their display titles.
type ChatTitles map[int64]string

// HistoryBatch is one page of raw message history, newest first, together
// with the user and chat entities referenced by the messages. Messages holds
// only exportable entries; service messages (joins, pins) are dropped but
// still count toward RawCount and OldestID, so a page of nothing but service
// messages does not look like the end of the history.
type HistoryBatch struct {
	Messages   []*tg.Message
	Users      Users
	ChatTitles ChatTitles
	RawCount   int // entries in the raw page, service messages included
	OldestID   int // lowest message id in the raw page; continuation cursor
}
