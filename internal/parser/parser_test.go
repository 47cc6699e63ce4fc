package parser_test

import (
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/parser"
)

func TestParseHeaderFormats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		line         string
		wantSender   string
		wantBody     string
		wantRawTS    string
		wantTime     time.Time
		wantTimeNil  bool
	}{
		{
			name:       "us 12-hour clock",
			line:       "8/15/2024, 10:30 PM - Alice: hey there",
			wantSender: "Alice",
			wantBody:   "hey there",
			wantRawTS:  "8/15/2024, 10:30 PM",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
		{
			name:       "us 12-hour two-digit year",
			line:       "8/15/24, 9:05 AM - Bob: morning",
			wantSender: "Bob",
			wantBody:   "morning",
			wantRawTS:  "8/15/24, 9:05 AM",
			wantTime:   time.Date(2024, 8, 15, 9, 5, 0, 0, time.UTC),
		},
		{
			name:       "24-hour clock day first",
			line:       "15/8/2024, 22:30 - Alice: hey",
			wantSender: "Alice",
			wantBody:   "hey",
			wantRawTS:  "15/8/2024, 22:30",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
		{
			name:       "iso date",
			line:       "2024-08-15, 22:30 - Alice: hi",
			wantSender: "Alice",
			wantBody:   "hi",
			wantRawTS:  "2024-08-15, 22:30",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
		{
			name:       "bracketed header with seconds",
			line:       "[8/15/24, 10:30:05 PM] Alice: bracketed",
			wantSender: "Alice",
			wantBody:   "bracketed",
			wantRawTS:  "8/15/24, 10:30:05 PM",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 5, 0, time.UTC),
		},
		{
			name:       "lowercase meridiem without space",
			line:       "8/15/2024, 10:30pm - Alice: casual",
			wantSender: "Alice",
			wantBody:   "casual",
			wantRawTS:  "8/15/2024, 10:30pm",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
		{
			name:       "dotted date separators",
			line:       "8.15.2024, 10:30 PM - Alice: dots",
			wantSender: "Alice",
			wantBody:   "dots",
			wantRawTS:  "8.15.2024, 10:30 PM",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
		{
			name:        "unknown time convention keeps raw text",
			line:        "99/99/2024, 10:30 PM - Alice: odd date",
			wantSender:  "Alice",
			wantBody:    "odd date",
			wantRawTS:   "99/99/2024, 10:30 PM",
			wantTimeNil: true,
		},
		{
			name:       "body containing colons",
			line:       "8/15/2024, 10:30 PM - Alice: note: remember this",
			wantSender: "Alice",
			wantBody:   "note: remember this",
			wantRawTS:  "8/15/2024, 10:30 PM",
			wantTime:   time.Date(2024, 8, 15, 22, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			messages, failed, linesRead := parser.Parse(tc.line)
			if len(messages) != 1 {
				t.Fatalf("expected 1 message, got %d (failed=%v)", len(messages), failed)
			}
			if linesRead != 1 {
				t.Errorf("expected 1 line read, got %d", linesRead)
			}

			m := messages[0]
			if m.Sender != tc.wantSender {
				t.Errorf("sender = %q, want %q", m.Sender, tc.wantSender)
			}
			if m.Body != tc.wantBody {
				t.Errorf("body = %q, want %q", m.Body, tc.wantBody)
			}
			if m.RawTimestamp != tc.wantRawTS {
				t.Errorf("raw timestamp = %q, want %q", m.RawTimestamp, tc.wantRawTS)
			}
			if tc.wantTimeNil {
				if m.Timestamp != nil {
					t.Errorf("expected nil timestamp, got %v", m.Timestamp)
				}
			} else {
				if m.Timestamp == nil {
					t.Fatal("expected parsed timestamp, got nil")
				}
				if !m.Timestamp.Equal(tc.wantTime) {
					t.Errorf("timestamp = %v, want %v", m.Timestamp, tc.wantTime)
				}
			}
		})
	}
}

func TestParseContinuationLines(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"8/15/2024, 10:30 PM - Alice: first line",
		"second line",
		"third line",
		"8/15/2024, 10:31 PM - Bob: reply",
	}, "\n")

	messages, failed, linesRead := parser.Parse(raw)
	if len(failed) != 0 {
		t.Fatalf("expected no failed lines, got %v", failed)
	}
	if linesRead != 4 {
		t.Errorf("lines read = %d, want 4", linesRead)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}

	want := "first line\nsecond line\nthird line"
	if messages[0].Body != want {
		t.Errorf("joined body = %q, want %q", messages[0].Body, want)
	}
	if messages[1].Body != "reply" {
		t.Errorf("second body = %q, want %q", messages[1].Body, "reply")
	}
}

func TestParseSystemMessages(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		line string
	}{
		{
			name: "encryption banner",
			line: "8/15/2024, 10:30 PM - Alice: Messages and calls are end-to-end encrypted.",
		},
		{
			name: "group creation",
			line: "8/15/2024, 10:30 PM - Alice: Alice created group \"Weekend plans\"",
		},
		{
			name: "system sender",
			line: "8/15/2024, 10:30 PM - System: notice text",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			messages, _, _ := parser.Parse(tc.line)
			if len(messages) != 1 {
				t.Fatalf("expected 1 message, got %d", len(messages))
			}
			if messages[0].Sender != parser.SystemSender {
				t.Errorf("sender = %q, want %q", messages[0].Sender, parser.SystemSender)
			}
		})
	}
}

func TestParseFailedLines(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"complete garbage before any header",
		"more garbage",
		"8/15/2024, 10:30 PM - Alice: real message",
	}, "\n")

	messages, failed, linesRead := parser.Parse(raw)
	if linesRead != 3 {
		t.Errorf("lines read = %d, want 3", linesRead)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed lines, got %d", len(failed))
	}
	if failed[0].LineNumber != 1 || failed[1].LineNumber != 2 {
		t.Errorf("failed line numbers = %d, %d; want 1, 2", failed[0].LineNumber, failed[1].LineNumber)
	}
	if failed[0].Text != "complete garbage before any header" {
		t.Errorf("failed line text = %q", failed[0].Text)
	}
}

func TestParseEmptyAndBlankInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "only blank lines", raw: "\n\n   \n\t\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			messages, failed, linesRead := parser.Parse(tc.raw)
			if len(messages) != 0 || len(failed) != 0 || linesRead != 0 {
				t.Errorf("got messages=%d failed=%d linesRead=%d, want all zero",
					len(messages), len(failed), linesRead)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"8/15/2024, 10:30 PM - Alice: hello",
		"continued",
		"garbage at this point attaches to Alice",
		"8/15/2024, 10:31 PM - Bob: hi back",
	}, "\n")

	first, _, _ := parser.Parse(raw)
	second, _, _ := parser.Parse(raw)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Sender != second[i].Sender || first[i].Body != second[i].Body {
			t.Errorf("message %d differs between runs", i)
		}
	}
}
