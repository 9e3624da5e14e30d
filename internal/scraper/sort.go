package scraper

import (
	"sort"
)

// SortMode selects the output ordering of a message sequence.
type SortMode string

const (
	// SortChronological orders purely by time, ties broken by message id.
	SortChronological SortMode = "chronological"
	// SortGroupedBySender keeps each sender's messages together. This is
	// the default: reading one sender's full history in one place is the
	// primary analyst workflow.
	SortGroupedBySender SortMode = "grouped"
)

// Order returns a new, reordered message sequence. The input is not
// modified.
func Order(messages []MessageRecord, mode SortMode) []MessageRecord {
	if mode == SortChronological {
		return sortChronological(messages)
	}
	return groupBySender(messages)
}

func sortChronological(messages []MessageRecord) []MessageRecord {
	out := make([]MessageRecord, len(messages))
	copy(out, messages)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

// senderKey distinguishes "no sender" from every real sender id, so
// authorless channel posts form their own group.
type senderKey struct {
	present bool
	id      int64
}

func keyOf(msg MessageRecord) senderKey {
	if msg.SenderID == nil {
		return senderKey{}
	}
	return senderKey{present: true, id: *msg.SenderID}
}

// groupBySender partitions messages by sender, orders each partition
// chronologically, and emits partitions in order of their first appearance
// in the input sequence. Given identical input the output is identical:
// no arbitrary ordering of group identities is imposed.
func groupBySender(messages []MessageRecord) []MessageRecord {
	groups := make(map[senderKey][]MessageRecord)
	var keys []senderKey

	for _, msg := range messages {
		key := keyOf(msg)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], msg)
	}

	out := make([]MessageRecord, 0, len(messages))
	for _, key := range keys {
		out = append(out, sortChronological(groups[key])...)
	}
	return out
}
