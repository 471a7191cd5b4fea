package domain

import (
	"testing"
	"time"
)

func TestStateOf(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	live := &Record{Phone: "+15551234567", Code: "123456", ExpiresAt: now.Add(5 * time.Minute)}
	stale := &Record{Phone: "+15551234567", Code: "123456", ExpiresAt: now.Add(-time.Minute)}
	used := &Record{Phone: "+15551234567", Code: "123456", Verified: true, ExpiresAt: now.Add(5 * time.Minute)}

	cases := []struct {
		name string
		rec  *Record
		want State
	}{
		{"nil record", nil, StateNone},
		{"verified record", used, StateNone},
		{"live record", live, StateSent},
		{"expired record", stale, StateExpired},
	}
	for _, tc := range cases {
		if got := StateOf(tc.rec, now); got != tc.want {
			t.Errorf("%s: StateOf = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()
	r := &Record{ExpiresAt: now.Add(time.Minute)}
	if r.Expired(now) {
		t.Error("record should not be expired before ExpiresAt")
	}
	if !r.Expired(now.Add(2 * time.Minute)) {
		t.Error("record should be expired after ExpiresAt")
	}
}
