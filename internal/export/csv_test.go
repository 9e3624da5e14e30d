package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myrsple/telegram-scraper/internal/scraper"
)

func fixedClock(t *testing.T) {
	t.Helper()
	old := timeNow
	timeNow = func() time.Time {
		return time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)
	}
	t.Cleanup(func() { timeNow = old })
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func strPtr(s string) *string { return &s }

func TestMembers_RoundTrip(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	seen := time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)
	records := []scraper.MemberRecord{
		{
			UserID:    42,
			Username:  strPtr("alice"),
			FirstName: "Alice",
			LastName:  strPtr("Smith"),
			Phone:     strPtr("15550001"),
			IsPremium: true,
			Bio:       strPtr("hello"),
			LastSeen:  scraper.LastSeen{Kind: scraper.LastSeenExact, At: seen},
		},
		{
			UserID:    7,
			FirstName: "Bob",
			IsBot:     true,
			LastSeen:  scraper.LastSeen{Kind: scraper.LastSeenHidden},
		},
	}

	path, err := Members(records, "My Group!", dir)
	require.NoError(t, err)
	assert.Equal(t, "My_Group_members_20240601_150405.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3) // header plus two records
	assert.Equal(t, memberColumns, rows[0])
	assert.Equal(t, []string{
		"42", "alice", "Alice", "Smith", "15550001",
		"false", "2024-05-30T10:00:00Z", "true", "hello",
	}, rows[1])
	// absent optionals come out as empty fields
	assert.Equal(t, []string{"7", "", "Bob", "", "", "true", "hidden", "false", ""}, rows[2])
}

func TestMessages_RoundTrip(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	sender := int64(42)
	replyTo := 9
	photo := scraper.MediaPhoto
	records := []scraper.MessageRecord{
		{
			MessageID:      10,
			SenderID:       &sender,
			SenderUsername: strPtr("alice"),
			SenderName:     strPtr("Alice Smith"),
			Timestamp:      time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
			Text:           "text with, comma and \"quotes\"",
			ReplyToID:      &replyTo,
			ForwardFrom:    strPtr("News Channel"),
			HasMedia:       true,
			MediaTypeTag:   &photo,
		},
		{
			MessageID:  11,
			SenderName: strPtr("Some Channel"),
			Timestamp:  time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
			Text:       "channel post",
		},
	}

	path, err := Messages(records, "grp", dir)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, messageColumns, rows[0])
	assert.Equal(t, []string{
		"42", "alice", "Alice Smith", "10", "2024-06-01T10:30:00Z",
		"text with, comma and \"quotes\"", "9", "News Channel", "true", "photo",
	}, rows[1])
	assert.Equal(t, []string{
		"", "", "Some Channel", "11", "2024-06-01T11:00:00Z",
		"channel post", "", "", "false", "",
	}, rows[2])
}

func TestCombined_RoundTrip(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	first := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []scraper.CombinedRecord{
		{
			MemberRecord: scraper.MemberRecord{
				UserID:    42,
				Username:  strPtr("alice"),
				FirstName: "Alice",
				LastSeen:  scraper.LastSeen{Kind: scraper.LastSeenRecently},
			},
			MessageCount:   2,
			FirstMessageAt: &first,
			LastMessageAt:  &last,
			RecentMessages: []string{"one", "two"},
		},
		{
			MemberRecord: scraper.MemberRecord{
				UserID:    7,
				FirstName: "Bob",
				LastSeen:  scraper.LastSeen{Kind: scraper.LastSeenUnknown},
			},
		},
	}

	path, err := Combined(records, "grp", dir)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, combinedColumns, rows[0])
	assert.Equal(t, []string{
		"42", "alice", "Alice", "", "", "", "recently", "false", "false",
		"2", "2024-06-01T09:00:00Z", "2024-06-01T12:00:00Z", "one | two",
	}, rows[1])
	assert.Equal(t, []string{
		"7", "", "Bob", "", "", "", "unknown", "false", "false",
		"0", "", "", "",
	}, rows[2])
}

func TestWriteCSV_EmptyInputStillWritesHeader(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	path, err := Members(nil, "grp", dir)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, memberColumns, rows[0])
}

func TestWriteCSV_NoTempFileLeftBehind(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	_, err := Members(nil, "grp", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "grp_members_20240601_150405.csv", entries[0].Name())
}

func TestWriteCSV_SameSecondExportsDoNotCollide(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()

	first, err := Members(nil, "grp", dir)
	require.NoError(t, err)
	second, err := Members(nil, "grp", dir)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
	assert.Equal(t, "grp_members_20240601_150405_2.csv", filepath.Base(second))
}

func TestWriteCSV_CreatesOutputDir(t *testing.T) {
	fixedClock(t)
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := Members(nil, "grp", dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Group!", "My_Group"},
		{"  Spaces  ", "Spaces"},
		{"Weird__Name", "Weird_Name"},
		{"чат по-русски", "-"},
		{"plain-name", "plain-name"},
		{"", "group"},
		{"!!!", "group"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeLabel(tt.in))
		})
	}
}
