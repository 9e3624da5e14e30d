// Package scraper implements the fetch-normalize-filter-aggregate pipeline
// over raw Telegram entities. Each stage consumes a slice and returns a new
// one; nothing is mutated in place.
package scraper

import (
	"time"
)

// LastSeenKind is the closed set of presence states a member can report.
// "unknown" (no status at all) and "hidden" (status withheld by privacy)
// are distinct states and stay distinct.
type LastSeenKind string

const (
	LastSeenExact       LastSeenKind = "exact" // precise timestamp available
	LastSeenRecently    LastSeenKind = "recently"
	LastSeenWithinWeek  LastSeenKind = "within_week"
	LastSeenWithinMonth LastSeenKind = "within_month"
	LastSeenLongAgo     LastSeenKind = "long_ago"
	LastSeenHidden      LastSeenKind = "hidden"
	LastSeenUnknown     LastSeenKind = "unknown"
)

// LastSeen is a tagged presence value. At is set only for LastSeenExact.
type LastSeen struct {
	Kind LastSeenKind
	At   time.Time
}

// String renders the value for export: the timestamp for exact presence,
// the tag otherwise.
func (l LastSeen) String() string {
	if l.Kind == LastSeenExact {
		return l.At.UTC().Format(time.RFC3339)
	}
	return string(l.Kind)
}

// MediaType is the closed set of media kinds a message can carry.
type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaDocument MediaType = "document"
	MediaGeo      MediaType = "geo"
	MediaGeoLive  MediaType = "geo_live"
	MediaContact  MediaType = "contact"
	MediaWebPage  MediaType = "webpage"
	MediaVenue    MediaType = "venue"
	MediaGame     MediaType = "game"
	MediaInvoice  MediaType = "invoice"
	MediaPoll     MediaType = "poll"
	MediaDice     MediaType = "dice"
	MediaStory    MediaType = "story"
	MediaGiveaway MediaType = "giveaway"
	MediaOther    MediaType = "other"
)

// MemberRecord is a normalized group member. UserID is never zero; it is
// the join key for the combined view. Optional fields are nil when the
// remote withheld or never had them, never empty strings.
type MemberRecord struct {
	UserID    int64
	Username  *string
	FirstName string
	LastName  *string
	Phone     *string
	IsBot     bool
	IsPremium bool
	Bio       *string
	LastSeen  LastSeen
}

// MessageRecord is a normalized message. MessageID is unique within a
// group. SenderID is nil for channel posts without an attributable author.
// MediaTypeTag is nil whenever HasMedia is false.
type MessageRecord struct {
	MessageID      int
	SenderID       *int64
	SenderUsername *string
	SenderName     *string
	Timestamp      time.Time
	Text           string
	ReplyToID      *int
	ForwardFrom    *string
	HasMedia       bool
	MediaTypeTag   *MediaType
}

// CombinedRecord is one member profiled by message activity. First/last
// timestamps are nil iff MessageCount is zero.
type CombinedRecord struct {
	MemberRecord
	MessageCount   int
	FirstMessageAt *time.Time
	LastMessageAt  *time.Time
	RecentMessages []string // oldest to newest, bounded
}
