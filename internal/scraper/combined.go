package scraper

import (
	"sort"
)

const (
	// recent message snippets kept per member
	recentMessageLimit = 5
	// rune budget per snippet before truncation
	recentSnippetMaxRunes = 120
)

// Combine joins members with their messages into one activity profile per
// member. The join is left-inclusive: members with zero messages still get
// a row. Messages from senders outside the member list are dropped; the
// combined view is member-centric. Rows come out ordered by user id.
func Combine(members []MemberRecord, messages []MessageRecord) []CombinedRecord {
	bySender := make(map[int64][]MessageRecord)
	for _, msg := range messages {
		if msg.SenderID == nil {
			continue
		}
		bySender[*msg.SenderID] = append(bySender[*msg.SenderID], msg)
	}

	out := make([]CombinedRecord, 0, len(members))
	for _, member := range members {
		rec := CombinedRecord{MemberRecord: member}

		if msgs := bySender[member.UserID]; len(msgs) > 0 {
			msgs = sortChronological(msgs)
			rec.MessageCount = len(msgs)
			first := msgs[0].Timestamp
			last := msgs[len(msgs)-1].Timestamp
			rec.FirstMessageAt = &first
			rec.LastMessageAt = &last
			rec.RecentMessages = recentSnippets(msgs)
		}

		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}

// recentSnippets takes the last few messages of a chronologically sorted
// sequence and renders bounded text snippets, oldest to newest.
func recentSnippets(msgs []MessageRecord) []string {
	start := len(msgs) - recentMessageLimit
	if start < 0 {
		start = 0
	}
	snippets := make([]string, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		snippets = append(snippets, truncateRunes(msg.Text, recentSnippetMaxRunes))
	}
	return snippets
}

// truncateRunes bounds a string to max runes, marking the cut with an
// ellipsis.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
