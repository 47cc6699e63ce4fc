// Package parser turns exported chat transcripts into typed message records.
// It tolerates the common export header variants (12-hour and 24-hour clocks,
// optional seconds, month-first and day-first dates), joins continuation lines
// onto the previous message, and reports unmatched lines without aborting.
package parser

import (
	"bufio"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// RawMessage is one structurally parsed transcript entry.
type RawMessage struct {
	// Timestamp is the parsed header time, nil when no known layout matched.
	Timestamp *time.Time
	// RawTimestamp is the header's original date/time text, always kept.
	RawTimestamp string
	// Sender is the message author, "System" for transcript-level notices.
	Sender string
	// Body is the message text. Continuation lines are joined with newlines.
	Body string
	// LineNumber is the 1-based transcript line the header was found on.
	LineNumber int
}

// FailedLine records one transcript line that matched no header pattern and
// could not be attached to a previous message.
type FailedLine struct {
	LineNumber int
	Text       string
}

// SystemSender is the sender assigned to transcript-level service notices.
const SystemSender = "System"

// headerRE matches a transcript message header: date, time, sender, body.
// Accepts "8/15/2024, 10:30 PM - Alice: hi", "2024-08-15, 21:30 - Alice: hi"
// and the bracketed variant "[8/15/24, 10:30:05 PM] Alice: hi".
var (
	headerRE = regexp.MustCompile(
		`^(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{1,2}-\d{1,2}),?\s*` +
			`(\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AaPp][Mm])?)\s*-\s*([^:]+?):\s?(.*)$`)
	bracketHeaderRE = regexp.MustCompile(
		`^\[(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{1,2}-\d{1,2}),?\s*` +
			`(\d{1,2}:\d{2}(?::\d{2})?(?:\s*[AaPp][Mm])?)\]\s*([^:]+?):\s?(.*)$`)
	isoDateRE = regexp.MustCompile(`^\d{4}-`)
)

// timestampLayouts is the fixed priority order for header timestamps. The
// first layout that parses wins; month-first forms are tried before
// day-first ones, so ambiguous dates resolve month-first.
var timestampLayouts = []string{
	"1/2/2006, 3:04 PM",
	"1/2/06, 3:04 PM",
	"1/2/2006, 3:04:05 PM",
	"1/2/06, 3:04:05 PM",
	"2/1/2006, 15:04",
	"2/1/2006, 15:04:05",
	"2006-1-2, 15:04",
	"2006-1-2, 15:04:05",
	"1/2/2006, 15:04",
	"1/2/06, 15:04",
}

// systemSenders are header senders that always denote service notices.
var systemSenders = map[string]struct{}{
	"system":             {},
	"you":                {},
	"group notification": {},
}

// systemPhrases mark service-notice bodies (encryption banners, membership
// changes) regardless of the sender the export attributes them to.
var systemPhrases = []string{
	"secured",
	"end-to-end encrypted",
	"created group",
	"created this group",
	"changed",
	"left group",
	"added",
}

// Parse splits raw transcript text into messages and failed lines, scanning
// line at a time. linesRead counts non-empty input lines so callers can judge
// parse quality. One bad line never aborts parsing of the rest of the input.
func Parse(raw string) (messages []RawMessage, failed []FailedLine, linesRead int) {
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimPrefix(sc.Text(), "‎") // WhatsApp LTR mark
		if strings.TrimSpace(line) == "" {
			continue
		}
		linesRead++

		m := headerRE.FindStringSubmatch(line)
		if m == nil {
			m = bracketHeaderRE.FindStringSubmatch(line)
		}
		if m == nil {
			// Continuation of the previous message, if there is one.
			if len(messages) > 0 {
				messages[len(messages)-1].Body += "\n" + strings.TrimSpace(line)
				continue
			}
			failed = append(failed, FailedLine{LineNumber: lineNo, Text: line})
			continue
		}

		dateStr, timeStr := m[1], m[2]
		sender := cleanSender(m[3])
		body := strings.TrimSpace(m[4])

		if isSystemMessage(sender, body) {
			sender = SystemSender
		}

		rawTS := dateStr + ", " + timeStr
		messages = append(messages, RawMessage{
			Timestamp:    parseTimestamp(dateStr, timeStr),
			RawTimestamp: rawTS,
			Sender:       sender,
			Body:         body,
			LineNumber:   lineNo,
		})
	}

	return messages, failed, linesRead
}

// parseTimestamp tries each known layout in priority order and returns the
// first match, or nil when the header time fits no known convention.
func parseTimestamp(dateStr, timeStr string) *time.Time {
	normDate := dateStr
	// Four-digit-year ISO dates keep their dashes; other separators collapse
	// to slashes so one layout set covers "8-15-24" and "8.15.24" exports.
	if !isoDateRE.MatchString(dateStr) {
		normDate = strings.NewReplacer("-", "/", ".", "/").Replace(dateStr)
	}
	normTime := timeStr
	if strings.ContainsAny(timeStr, "aApP") {
		normTime = strings.ToUpper(strings.TrimSpace(timeStr))
		// Ensure a space before the meridiem for layout matching.
		normTime = strings.Replace(normTime, "AM", " AM", 1)
		normTime = strings.Replace(normTime, "PM", " PM", 1)
		normTime = strings.Join(strings.Fields(normTime), " ")
	}

	candidate := normDate + ", " + normTime
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, candidate); err == nil {
			return &ts
		}
	}
	return nil
}

// cleanSender strips non-printable runes and surrounding whitespace from a
// header sender field.
func cleanSender(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isSystemMessage(sender, body string) bool {
	if _, ok := systemSenders[strings.ToLower(sender)]; ok {
		return true
	}
	lower := strings.ToLower(body)
	for _, phrase := range systemPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
