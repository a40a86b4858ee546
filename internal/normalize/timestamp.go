package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// TimeLayout is the canonical minute-resolution timestamp format.
const TimeLayout = "2006-01-02 15:04"

var (
	reMinutesAgo = regexp.MustCompile(`^(\d+)\s*分钟前$`)
	reHoursAgo   = regexp.MustCompile(`^(\d+)\s*小时前$`)
	reToday      = regexp.MustCompile(`^今天\s*(\d{1,2}):(\d{2})$`)
	reYesterday  = regexp.MustCompile(`^昨天\s*(\d{1,2}):(\d{2})$`)
	reMonthDay   = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日\s*(\d{1,2}):(\d{2})$`)
	reShortDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
	reFullDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)

	// Loose date shapes accepted when scanning free text near a post body.
	datePatterns = []*regexp.Regexp{
		reFullDate, reShortDate, reMonthDay, reToday, reYesterday,
		reMinutesAgo, reHoursAgo, regexp.MustCompile(`^刚刚$`),
	}
)

// Timestamp resolves a page time label ("刚刚", "3小时前", "今天 08:15",
// "10-21 09:30", "2025-10-21 09:30") to canonical "YYYY-MM-DD HH:mm" form,
// using the current wall clock for relative labels. Labels that match no
// known pattern are returned unchanged; that is a deliberate best-effort
// fallback, not a failure.
func Timestamp(text string) string {
	return TimestampAt(text, time.Now())
}

// TimestampAt is Timestamp with an explicit reference clock.
func TimestampAt(text string, now time.Time) string {
	s := trimSpaceFull(text)
	if s == "" {
		return text
	}

	if s == "刚刚" {
		return now.Format(TimeLayout)
	}
	if m := reMinutesAgo.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Minute).Format(TimeLayout)
	}
	if m := reHoursAgo.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Hour).Format(TimeLayout)
	}
	if m := reToday.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s %02d:%02d", now.Format("2006-01-02"), atoi(m[1]), atoi(m[2]))
	}
	if m := reYesterday.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s %02d:%02d", now.AddDate(0, 0, -1).Format("2006-01-02"), atoi(m[1]), atoi(m[2]))
	}
	if m := reMonthDay.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%d-%02d-%02d %02d:%02d", now.Year(), atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]))
	}
	if m := reShortDate.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%d-%02d-%02d %02d:%02d", now.Year(), atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]))
	}
	if m := reFullDate.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%d-%02d-%02d %02d:%02d", atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]))
	}

	return text
}

// LooksLikeTimeLabel reports whether the string matches any recognized
// absolute or relative time shape. Used by detail-page scraping to pick a
// plausible timestamp out of short nearby text nodes.
func LooksLikeTimeLabel(text string) bool {
	s := trimSpaceFull(text)
	if s == "" || len([]rune(s)) > 24 {
		return false
	}
	for _, re := range datePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// trimSpaceFull trims ASCII whitespace plus full-width and no-break spaces.
func trimSpaceFull(s string) string {
	runes := []rune(s)
	isSpace := func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ' ' || r == '　'
	}
	start, end := 0, len(runes)
	for start < end && isSpace(runes[start]) {
		start++
	}
	for end > start && isSpace(runes[end-1]) {
		end--
	}
	return string(runes[start:end])
}
