// Package export serializes record streams to CSV files with fixed column
// schemas. Column order is part of the contract; consumers cross-reference
// the members and messages files on user_id / sender_id.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/myrsple/telegram-scraper/internal/scraper"
)

// column schemas, in contract order
var (
	memberColumns = []string{
		"user_id", "username", "first_name", "last_name", "phone",
		"is_bot", "last_seen", "is_premium", "bio",
	}
	messageColumns = []string{
		"sender_id", "sender_username", "sender_name", "message_id",
		"timestamp", "text", "reply_to_id", "forward_from",
		"has_media", "media_type",
	}
	combinedColumns = []string{
		"user_id", "username", "first_name", "last_name", "phone",
		"bio", "last_seen", "is_premium", "is_bot", "message_count",
		"first_message_at", "last_message_at", "recent_messages",
	}
)

// recentSeparator joins recent message snippets inside one CSV field.
const recentSeparator = " | "

// timeNow is swapped out in tests for deterministic file names.
var timeNow = time.Now

// Members writes member records to a CSV file in outputDir and returns the
// file path.
func Members(records []scraper.MemberRecord, groupLabel, outputDir string) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.UserID, 10),
			optStr(r.Username),
			r.FirstName,
			optStr(r.LastName),
			optStr(r.Phone),
			strconv.FormatBool(r.IsBot),
			r.LastSeen.String(),
			strconv.FormatBool(r.IsPremium),
			optStr(r.Bio),
		})
	}
	return writeCSV(outputDir, groupLabel, "members", memberColumns, rows)
}

// Messages writes message records to a CSV file in outputDir and returns
// the file path.
func Messages(records []scraper.MessageRecord, groupLabel, outputDir string) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		mediaType := ""
		if r.MediaTypeTag != nil {
			mediaType = string(*r.MediaTypeTag)
		}
		rows = append(rows, []string{
			optInt64(r.SenderID),
			optStr(r.SenderUsername),
			optStr(r.SenderName),
			strconv.Itoa(r.MessageID),
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Text,
			optInt(r.ReplyToID),
			optStr(r.ForwardFrom),
			strconv.FormatBool(r.HasMedia),
			mediaType,
		})
	}
	return writeCSV(outputDir, groupLabel, "messages", messageColumns, rows)
}

// Combined writes combined member-activity records to a CSV file in
// outputDir and returns the file path.
func Combined(records []scraper.CombinedRecord, groupLabel, outputDir string) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.UserID, 10),
			optStr(r.Username),
			r.FirstName,
			optStr(r.LastName),
			optStr(r.Phone),
			optStr(r.Bio),
			r.LastSeen.String(),
			strconv.FormatBool(r.IsPremium),
			strconv.FormatBool(r.IsBot),
			strconv.Itoa(r.MessageCount),
			optTime(r.FirstMessageAt),
			optTime(r.LastMessageAt),
			strings.Join(r.RecentMessages, recentSeparator),
		})
	}
	return writeCSV(outputDir, groupLabel, "combined", combinedColumns, rows)
}

// writeCSV writes header and rows to a freshly named file. The data goes
// to a temp file first and is renamed into place on success, so a failed
// write never leaves something that looks like valid output.
func writeCSV(outputDir, label, kind string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", outputDir, err)
	}

	stem := fmt.Sprintf("%s_%s_%s", sanitizeLabel(label), kind, timeNow().Format("20060102_150405"))
	path := filepath.Join(outputDir, stem+".csv")
	// timestamps have second resolution, so two exports of the same kind in
	// the same second would collide; pick the first free suffix instead of
	// overwriting
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(outputDir, fmt.Sprintf("%s_%d.csv", stem, n))
	}

	tmp, err := os.CreateTemp(outputDir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("finalize %s: %w", path, err)
	}
	return path, nil
}

var unsafeLabelChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// sanitizeLabel makes a group title safe for file names: unsafe runs
// collapse to single underscores, leading/trailing underscores go away.
func sanitizeLabel(label string) string {
	s := unsafeLabelChars.ReplaceAllString(label, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "group"
	}
	return s
}

func optStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func optInt64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func optTime(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.RFC3339)
}
