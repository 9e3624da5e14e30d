package scraper

import (
	"strings"
	"time"
)

// Filters are pure and order-preserving, so date and keyword filtering
// compose in either order with identical results.

// FilterByDate keeps messages whose calendar date falls inside the
// inclusive [since, until] range. A zero bound is open on that side.
// Time of day is ignored.
func FilterByDate(messages []MessageRecord, since, until time.Time) []MessageRecord {
	if since.IsZero() && until.IsZero() {
		return messages
	}
	out := make([]MessageRecord, 0, len(messages))
	for _, msg := range messages {
		day := dateOnly(msg.Timestamp)
		if !since.IsZero() && day.Before(dateOnly(since)) {
			continue
		}
		if !until.IsZero() && day.After(dateOnly(until)) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// FilterByKeywords keeps messages whose text contains at least one of the
// keywords, case-insensitively. An empty keyword set keeps everything.
func FilterByKeywords(messages []MessageRecord, keywords []string) []MessageRecord {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			lowered = append(lowered, strings.ToLower(kw))
		}
	}
	if len(lowered) == 0 {
		return messages
	}

	out := make([]MessageRecord, 0, len(messages))
	for _, msg := range messages {
		text := strings.ToLower(msg.Text)
		for _, kw := range lowered {
			if strings.Contains(text, kw) {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// dateOnly truncates an instant to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
