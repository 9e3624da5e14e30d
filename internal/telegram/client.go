// Package telegram wraps the MTProto client with the high-level operations
// the scraper needs: group resolution and raw participant/history pages.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"

	"github.com/myrsple/telegram-scraper/internal/logger"
)

// Protocol-imposed page ceilings, not tunables.
const (
	MaxMemberBatch  = 200 // channels.getParticipants
	MaxHistoryBatch = 100 // messages.getHistory
)

// Client wraps a gotgproto client and exposes group-level operations.
type Client struct {
	proto *gotgproto.Client
	log   *logger.Logger
}

// NewClient creates a telegram client wrapper around an authorized
// protocol client.
func NewClient(proto *gotgproto.Client) *Client {
	return &Client{
		proto: proto,
		log:   logger.Get(),
	}
}

// Close stops the underlying protocol client.
func (c *Client) Close() {
	if c.proto != nil {
		c.proto.Stop()
	}
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() (*tg.Client, error) {
	if c.proto == nil {
		return nil, ErrAuth
	}
	return c.proto.API(), nil
}

// ResolveGroup resolves a group identifier to a Group handle. Accepted
// forms: @username, bare username, https://t.me/username, invite links
// (https://t.me/+hash or /joinchat/hash) and signed numeric ids.
func (c *Client) ResolveGroup(ctx context.Context, identifier string) (*Group, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrNotFound)
	}

	c.log.Debug().Str("identifier", id).Msg("telegram: resolving group")

	if hash, ok := inviteHash(id); ok {
		return c.resolveInvite(ctx, hash)
	}
	if looksNumeric(id) {
		return c.resolveNumeric(ctx, id)
	}
	return c.resolveUsername(ctx, usernamePart(id))
}

// resolveUsername resolves a public @username or t.me link.
func (c *Client) resolveUsername(ctx context.Context, username string) (*Group, error) {
	api, err := c.API()
	if err != nil {
		return nil, err
	}
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return nil, wrapRPC("resolve username "+username, err)
	}
	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("@%s is not a group: %w", username, ErrNotFound)
	}
	return c.groupFromChat(ctx, resolved.Chats[0])
}

// resolveInvite resolves a private invite link. The account must already be
// a member; checking the invite never joins anything.
func (c *Client) resolveInvite(ctx context.Context, hash string) (*Group, error) {
	api, err := c.API()
	if err != nil {
		return nil, err
	}
	invite, err := api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		return nil, wrapRPC("check invite", err)
	}
	switch v := invite.(type) {
	case *tg.ChatInviteAlready:
		return c.groupFromChat(ctx, v.Chat)
	case *tg.ChatInvitePeek:
		return c.groupFromChat(ctx, v.Chat)
	case *tg.ChatInvite:
		// valid invite but we are not a member
		return nil, fmt.Errorf("invite to %q: %w", v.Title, ErrAccessDenied)
	}
	return nil, fmt.Errorf("unexpected invite response: %w", ErrNotFound)
}

// resolveNumeric resolves a signed numeric id. -100 prefixed ids are
// channels/supergroups, other negative ids are basic chats.
func (c *Client) resolveNumeric(ctx context.Context, id string) (*Group, error) {
	api, err := c.API()
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(id, "-100") && len(id) > 4 {
		channelID, err := strconv.ParseInt(id[4:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", id, ErrNotFound)
		}
		// access hash is unknown here; the server fills it in for channels
		// the account already knows about
		res, rpcErr := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
			&tg.InputChannel{ChannelID: channelID},
		})
		if rpcErr != nil {
			return nil, wrapRPC("get channel by id", rpcErr)
		}
		chats := chatsOf(res)
		if len(chats) == 0 {
			return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
		}
		return c.groupFromChat(ctx, chats[0])
	}

	raw, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", id, ErrNotFound)
	}
	chatID := raw
	if chatID < 0 {
		chatID = -chatID
	}
	res, err := api.MessagesGetChats(ctx, []int64{chatID})
	if err != nil {
		return nil, wrapRPC("get chat by id", err)
	}
	chats := chatsOf(res)
	if len(chats) == 0 {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return c.groupFromChat(ctx, chats[0])
}

// groupFromChat builds a Group from a resolved chat entity and fills in the
// member count.
func (c *Client) groupFromChat(ctx context.Context, chat tg.ChatClass) (*Group, error) {
	switch v := chat.(type) {
	case *tg.Channel:
		hash, _ := v.GetAccessHash()
		kind := GroupKindChannel
		if v.Megagroup {
			kind = GroupKindSupergroup
		}
		group := &Group{
			ID:         v.ID,
			AccessHash: hash,
			Username:   v.Username,
			Title:      v.Title,
			Kind:       kind,
		}
		count, err := c.participantsCount(ctx, group)
		if err != nil {
			return nil, err
		}
		group.MemberCount = count
		return group, nil
	case *tg.Chat:
		return &Group{
			ID:          v.ID,
			Title:       v.Title,
			Kind:        GroupKindChat,
			MemberCount: v.ParticipantsCount,
		}, nil
	case *tg.ChatForbidden:
		return nil, fmt.Errorf("chat %q: %w", v.Title, ErrAccessDenied)
	case *tg.ChannelForbidden:
		return nil, fmt.Errorf("channel %q: %w", v.Title, ErrBanned)
	}
	return nil, fmt.Errorf("unsupported entity type: %w", ErrNotFound)
}

// participantsCount fetches the full channel info for the member count.
func (c *Client) participantsCount(ctx context.Context, group *Group) (int, error) {
	api, err := c.API()
	if err != nil {
		return 0, err
	}
	full, err := api.ChannelsGetFullChannel(ctx, group.inputChannel())
	if err != nil {
		return 0, wrapRPC("get full channel", err)
	}
	chFull, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return 0, nil
	}
	count, _ := chFull.GetParticipantsCount()
	return count, nil
}

// GetParticipants fetches one page of group members. offset is the item
// offset from the start of the participant list; limit is capped at
// MaxMemberBatch. Basic chats have no pagination and return everything in
// the first page.
func (c *Client) GetParticipants(ctx context.Context, group *Group, offset, limit int) (*MemberBatch, error) {
	if limit <= 0 || limit > MaxMemberBatch {
		limit = MaxMemberBatch
	}

	if !group.isChannelPeer() {
		if offset > 0 {
			return &MemberBatch{Total: group.MemberCount}, nil
		}
		return c.chatParticipants(ctx, group)
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Int64("group_id", group.ID).
		Int("offset", offset).
		Int("limit", limit).
		Msg("telegram: calling channels.getParticipants")

	res, err := api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
		Channel: group.inputChannel(),
		Filter:  &tg.ChannelParticipantsRecent{},
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		return nil, wrapRPC("get participants", err)
	}

	page, ok := res.(*tg.ChannelsChannelParticipants)
	if !ok {
		// channelParticipantsNotModified never happens without a hash
		return &MemberBatch{}, nil
	}

	byID := make(map[int64]*tg.User, len(page.Users))
	for _, u := range page.Users {
		if user, ok := u.(*tg.User); ok {
			byID[user.ID] = user
		}
	}

	batch := &MemberBatch{
		Total:    page.Count,
		RawCount: len(page.Participants),
	}
	for _, p := range page.Participants {
		if user, ok := byID[participantUserID(p)]; ok {
			batch.Users = append(batch.Users, user)
		}
	}
	return batch, nil
}

// chatParticipants returns the full member list of a basic chat.
func (c *Client) chatParticipants(ctx context.Context, group *Group) (*MemberBatch, error) {
	api, err := c.API()
	if err != nil {
		return nil, err
	}
	full, err := api.MessagesGetFullChat(ctx, group.ID)
	if err != nil {
		return nil, wrapRPC("get full chat", err)
	}

	chatFull, ok := full.FullChat.(*tg.ChatFull)
	if !ok {
		return &MemberBatch{}, nil
	}

	byID := make(map[int64]*tg.User, len(full.Users))
	for _, u := range full.Users {
		if user, ok := u.(*tg.User); ok {
			byID[user.ID] = user
		}
	}

	batch := &MemberBatch{}
	if participants, ok := chatFull.Participants.(*tg.ChatParticipants); ok {
		batch.RawCount = len(participants.Participants)
		for _, p := range participants.Participants {
			if user, ok := byID[p.GetUserID()]; ok {
				batch.Users = append(batch.Users, user)
			}
		}
	}
	batch.Total = len(batch.Users)
	return batch, nil
}

// GetHistory fetches one page of message history, newest first. offsetID
// continues a walk below a previous page; offsetDate (when set and no
// offsetID is given) starts the walk below that instant instead of at the
// newest message. limit is capped at MaxHistoryBatch.
func (c *Client) GetHistory(ctx context.Context, group *Group, offsetID int, offsetDate time.Time, limit int) (*HistoryBatch, error) {
	if limit <= 0 || limit > MaxHistoryBatch {
		limit = MaxHistoryBatch
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	req := &tg.MessagesGetHistoryRequest{
		Peer:     group.InputPeer(),
		OffsetID: offsetID,
		Limit:    limit,
	}
	if offsetID == 0 && !offsetDate.IsZero() {
		req.OffsetDate = int(offsetDate.Unix())
	}

	c.log.Debug().
		Int64("group_id", group.ID).
		Int("offset_id", offsetID).
		Int("limit", limit).
		Msg("telegram: calling messages.getHistory")

	res, err := api.MessagesGetHistory(ctx, req)
	if err != nil {
		return nil, wrapRPC("get history", err)
	}

	var (
		messages []tg.MessageClass
		users    []tg.UserClass
		chats    []tg.ChatClass
	)
	switch h := res.(type) {
	case *tg.MessagesChannelMessages:
		messages, users, chats = h.Messages, h.Users, h.Chats
	case *tg.MessagesMessagesSlice:
		messages, users, chats = h.Messages, h.Users, h.Chats
	case *tg.MessagesMessages:
		messages, users, chats = h.Messages, h.Users, h.Chats
	}

	batch := &HistoryBatch{
		Users:      make(Users, len(users)),
		ChatTitles: make(ChatTitles, len(chats)),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			batch.Users[user.ID] = user
		}
	}
	for _, ch := range chats {
		switch v := ch.(type) {
		case *tg.Channel:
			batch.ChatTitles[v.ID] = v.Title
		case *tg.Chat:
			batch.ChatTitles[v.ID] = v.Title
		}
	}
	batch.RawCount = len(messages)
	for _, m := range messages {
		if id := rawMessageID(m); id > 0 && (batch.OldestID == 0 || id < batch.OldestID) {
			batch.OldestID = id
		}
		// service messages (joins, pins) carry no exportable content, but
		// they still occupy the page and move the cursor
		if msg, ok := m.(*tg.Message); ok {
			batch.Messages = append(batch.Messages, msg)
		}
	}
	return batch, nil
}

// GetUserBio fetches the profile bio of a user. Callers treat any failure
// as an absent bio.
func (c *Client) GetUserBio(ctx context.Context, user *tg.User) (string, error) {
	api, err := c.API()
	if err != nil {
		return "", err
	}
	hash, _ := user.GetAccessHash()
	full, err := api.UsersGetFullUser(ctx, &tg.InputUser{
		UserID:     user.ID,
		AccessHash: hash,
	})
	if err != nil {
		return "", wrapRPC("get full user", err)
	}
	about, _ := full.FullUser.GetAbout()
	return about, nil
}

// rawMessageID extracts the id from any message variant.
func rawMessageID(m tg.MessageClass) int {
	switch v := m.(type) {
	case *tg.Message:
		return v.ID
	case *tg.MessageService:
		return v.ID
	case *tg.MessageEmpty:
		return v.ID
	}
	return 0
}

// participantUserID extracts the user id from any participant variant.
func participantUserID(p tg.ChannelParticipantClass) int64 {
	switch v := p.(type) {
	case *tg.ChannelParticipant:
		return v.UserID
	case *tg.ChannelParticipantSelf:
		return v.UserID
	case *tg.ChannelParticipantCreator:
		return v.UserID
	case *tg.ChannelParticipantAdmin:
		return v.UserID
	case *tg.ChannelParticipantBanned:
		return peerUserID(v.Peer)
	case *tg.ChannelParticipantLeft:
		return peerUserID(v.Peer)
	}
	return 0
}

func peerUserID(p tg.PeerClass) int64 {
	if u, ok := p.(*tg.PeerUser); ok {
		return u.UserID
	}
	return 0
}

// chatsOf flattens the chat list variants of messages.getChats responses.
func chatsOf(res tg.MessagesChatsClass) []tg.ChatClass {
	switch v := res.(type) {
	case *tg.MessagesChats:
		return v.Chats
	case *tg.MessagesChatsSlice:
		return v.Chats
	}
	return nil
}

// inviteHash extracts the hash from private invite link forms.
func inviteHash(id string) (string, bool) {
	s := stripLinkPrefix(id)
	switch {
	case strings.HasPrefix(s, "+"):
		return strings.TrimPrefix(s, "+"), true
	case strings.HasPrefix(s, "joinchat/"):
		return strings.TrimPrefix(s, "joinchat/"), true
	}
	return "", false
}

// usernamePart normalizes @username and t.me link forms to a bare username.
func usernamePart(id string) string {
	s := stripLinkPrefix(id)
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return s
}

func stripLinkPrefix(id string) string {
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

// looksNumeric reports whether the identifier is a signed numeric id.
func looksNumeric(id string) bool {
	s := strings.TrimPrefix(id, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
