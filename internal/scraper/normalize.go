package scraper

import (
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/myrsple/telegram-scraper/internal/telegram"
)

// Normalization never fails: malformed or withheld optional fields degrade
// to nil. Partial data (deleted accounts, hidden phones) is steady state
// here, not an error.

// NormalizeMember maps a raw user to a MemberRecord. bio is passed in
// separately because it comes from its own API call.
func NormalizeMember(u *tg.User, bio string) MemberRecord {
	rec := MemberRecord{
		UserID:    u.ID,
		FirstName: u.FirstName,
		IsBot:     u.Bot,
		IsPremium: u.Premium,
		LastSeen:  ExtractLastSeen(u),
	}
	if username := memberUsername(u); username != "" {
		rec.Username = &username
	}
	if u.LastName != "" {
		last := u.LastName
		rec.LastName = &last
	}
	// phones are usually withheld by privacy settings; absent, not ""
	if u.Phone != "" {
		phone := u.Phone
		rec.Phone = &phone
	}
	if bio != "" {
		b := bio
		rec.Bio = &b
	}
	return rec
}

// memberUsername prefers the primary username and falls back to the first
// collectible username of accounts that use the multi-username feature.
func memberUsername(u *tg.User) string {
	if u.Username != "" {
		return u.Username
	}
	for _, un := range u.Usernames {
		if un.Username != "" {
			return un.Username
		}
	}
	return ""
}

// ExtractLastSeen maps the remote presence status variant to the closed
// LastSeen tag set.
func ExtractLastSeen(u *tg.User) LastSeen {
	status, ok := u.GetStatus()
	if !ok || status == nil {
		return LastSeen{Kind: LastSeenUnknown}
	}
	switch s := status.(type) {
	case *tg.UserStatusOnline:
		// currently online; the exact instant is "now", which is not a
		// stable fact to export
		return LastSeen{Kind: LastSeenRecently}
	case *tg.UserStatusOffline:
		return LastSeen{Kind: LastSeenExact, At: time.Unix(int64(s.WasOnline), 0).UTC()}
	case *tg.UserStatusRecently:
		return LastSeen{Kind: LastSeenRecently}
	case *tg.UserStatusLastWeek:
		return LastSeen{Kind: LastSeenWithinWeek}
	case *tg.UserStatusLastMonth:
		return LastSeen{Kind: LastSeenWithinMonth}
	case *tg.UserStatusEmpty:
		return LastSeen{Kind: LastSeenLongAgo}
	}
	// unrecognized status classes mean the peer withheld the detail
	return LastSeen{Kind: LastSeenHidden}
}

// NormalizeMessage maps a raw message plus the entity maps of its history
// page to a MessageRecord.
func NormalizeMessage(m *tg.Message, users telegram.Users, chatTitles telegram.ChatTitles) MessageRecord {
	rec := MessageRecord{
		MessageID: m.ID,
		Timestamp: time.Unix(int64(m.Date), 0).UTC(),
		Text:      m.Message,
	}

	fillSender(&rec, m, users, chatTitles)

	if replyTo, ok := m.GetReplyTo(); ok {
		if header, ok := replyTo.(*tg.MessageReplyHeader); ok {
			if id, ok := header.GetReplyToMsgID(); ok {
				rec.ReplyToID = &id
			}
		}
	}

	if fwd, ok := m.GetFwdFrom(); ok {
		if label := forwardLabel(&fwd, users, chatTitles); label != "" {
			rec.ForwardFrom = &label
		}
	}

	if media, ok := m.GetMedia(); ok {
		if tag, has := extractMedia(media); has {
			rec.HasMedia = true
			rec.MediaTypeTag = &tag
		}
	}

	return rec
}

// fillSender resolves the author of a message. User senders carry an id;
// channel-authored posts keep the id absent and carry the channel title as
// the display name.
func fillSender(rec *MessageRecord, m *tg.Message, users telegram.Users, chatTitles telegram.ChatTitles) {
	from, ok := m.GetFromID()
	if !ok || from == nil {
		return
	}
	switch peer := from.(type) {
	case *tg.PeerUser:
		id := peer.UserID
		rec.SenderID = &id
		user, ok := users[id]
		if !ok {
			// sender account inaccessible (deleted or not in the page
			// entities); the id alone still supports the export join
			return
		}
		if username := memberUsername(user); username != "" {
			rec.SenderUsername = &username
		}
		if name := displayName(user); name != "" {
			rec.SenderName = &name
		}
	case *tg.PeerChannel:
		if title, ok := chatTitles[peer.ChannelID]; ok && title != "" {
			rec.SenderName = &title
		}
	}
}

// displayName joins first and last name, skipping missing parts.
func displayName(u *tg.User) string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	return strings.Join(parts, " ")
}

// forwardLabel renders a human-readable provenance label for a forwarded
// message: the hidden-sender name if present, else the resolved origin
// peer, else its bare id, else a generic marker.
func forwardLabel(fwd *tg.MessageFwdHeader, users telegram.Users, chatTitles telegram.ChatTitles) string {
	if name, ok := fwd.GetFromName(); ok && name != "" {
		return name
	}
	from, ok := fwd.GetFromID()
	if !ok || from == nil {
		return "forwarded"
	}
	switch peer := from.(type) {
	case *tg.PeerUser:
		if user, ok := users[peer.UserID]; ok {
			if name := displayName(user); name != "" {
				return name
			}
		}
		return strconv.FormatInt(peer.UserID, 10)
	case *tg.PeerChannel:
		if title, ok := chatTitles[peer.ChannelID]; ok && title != "" {
			return title
		}
		return strconv.FormatInt(peer.ChannelID, 10)
	case *tg.PeerChat:
		if title, ok := chatTitles[peer.ChatID]; ok && title != "" {
			return title
		}
		return strconv.FormatInt(peer.ChatID, 10)
	}
	return "forwarded"
}

// extractMedia maps the media discriminant to a closed tag. Empty media
// means no media at all.
func extractMedia(media tg.MessageMediaClass) (MediaType, bool) {
	switch media.(type) {
	case nil, *tg.MessageMediaEmpty:
		return "", false
	case *tg.MessageMediaPhoto:
		return MediaPhoto, true
	case *tg.MessageMediaDocument:
		return MediaDocument, true
	case *tg.MessageMediaGeo:
		return MediaGeo, true
	case *tg.MessageMediaGeoLive:
		return MediaGeoLive, true
	case *tg.MessageMediaContact:
		return MediaContact, true
	case *tg.MessageMediaWebPage:
		return MediaWebPage, true
	case *tg.MessageMediaVenue:
		return MediaVenue, true
	case *tg.MessageMediaGame:
		return MediaGame, true
	case *tg.MessageMediaInvoice:
		return MediaInvoice, true
	case *tg.MessageMediaPoll:
		return MediaPoll, true
	case *tg.MessageMediaDice:
		return MediaDice, true
	case *tg.MessageMediaStory:
		return MediaStory, true
	case *tg.MessageMediaGiveaway:
		return MediaGiveaway, true
	}
	return MediaOther, true
}
