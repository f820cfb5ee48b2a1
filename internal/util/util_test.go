package util

import (
	"testing"
	"time"
)

func TestBriefingDateUsesEasternCalendar(t *testing.T) {
	// 2025-01-02 03:30 UTC is still 2025-01-01 in New York.
	utc := time.Date(2025, 1, 2, 3, 30, 0, 0, time.UTC)
	got := BriefingDate(utc)
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected briefing date %v, got %v", want, got)
	}
}

func TestBriefingDateAfternoonIsSameDay(t *testing.T) {
	utc := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC) // 14:00 EDT
	got := BriefingDate(utc)
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected briefing date %v, got %v", want, got)
	}
}

func TestBriefingDateObservesDST(t *testing.T) {
	// 2025-07-15 04:30 UTC is 00:30 EDT on the 15th. A fixed -5h offset would
	// call it 23:30 on the 14th and file the briefing under the wrong slot.
	utc := time.Date(2025, 7, 15, 4, 30, 0, 0, time.UTC)
	got := BriefingDate(utc)
	want := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected briefing date %v, got %v", want, got)
	}

	_, winterOffset := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).In(eastern).Zone()
	_, summerOffset := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC).In(eastern).Zone()
	if winterOffset != -5*60*60 || summerOffset != -4*60*60 {
		t.Fatalf("expected EST/EDT offsets -5h/-4h, got %d/%d", winterOffset, summerOffset)
	}
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not-a-token", "secret"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
