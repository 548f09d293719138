package quiz

import (
	"testing"
	"time"

	"github.com/woolzip/backend/core/family"
)

func mustLoadLocation(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("loading %s: %v", name, err)
	}
	return loc
}

func Test_localDate(t *testing.T) {
	seoul := mustLoadLocation(t, "Asia/Seoul")

	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want string
	}{
		{name: "UTC", t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), loc: time.UTC, want: "2025-03-10"},
		// 16:00 UTC is already past midnight in Seoul (UTC+9)
		{name: "crosses midnight east", t: time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC), loc: seoul, want: "2025-03-11"},
		{name: "same day east", t: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), loc: seoul, want: "2025-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := localDate(tt.t, tt.loc); got != tt.want {
				t.Errorf("localDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func Test_parseMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "00:00", want: 0},
		{in: "08:30", want: 510},
		{in: "23:59", want: 1439},
		{in: "9:05", want: 545},
		{in: "garbage", want: 0},
		{in: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseMinutes(tt.in); got != tt.want {
				t.Errorf("parseMinutes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func Test_minutesOfDay(t *testing.T) {
	seoul := mustLoadLocation(t, "Asia/Seoul")

	// 11:30 UTC = 20:30 in Seoul
	got := minutesOfDay(time.Date(2025, 3, 10, 11, 30, 0, 0, time.UTC), seoul)
	if want := 20*60 + 30; got != want {
		t.Errorf("minutesOfDay() = %d, want %d", got, want)
	}
}

func Test_dayIndex(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "2025-01-01", want: 1},
		{in: "2025-03-10", want: 69},
		{in: "2025-12-31", want: 365},
		{in: "not-a-date", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := dayIndex(tt.in); got != tt.want {
				t.Errorf("dayIndex(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func Test_endOfDay(t *testing.T) {
	seoul := mustLoadLocation(t, "Asia/Seoul")

	got := endOfDay("2025-03-10", seoul)
	want := time.Date(2025, 3, 10, 23, 59, 0, 0, seoul)
	if !got.Equal(want) {
		t.Errorf("endOfDay() = %v, want %v", got, want)
	}

	if !endOfDay("garbage", seoul).IsZero() {
		t.Error("endOfDay() on a bad date should be zero")
	}
}

func Test_shouldClose(t *testing.T) {
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)
	mbr := func(userID string) family.Member { return family.Member{UserID: userID, IsActive: true} }
	resp := func(userID string) Response { return Response{UserID: userID} }

	tests := []struct {
		name      string
		inst      Instance
		members   []family.Member
		responses []Response
		want      bool
	}{
		{
			name:    "no members never closes on answers",
			inst:    Instance{Status: StatusOpen},
			members: nil,
			want:    false,
		},
		{
			name:      "all answered",
			inst:      Instance{Status: StatusOpen},
			members:   []family.Member{mbr("a"), mbr("b")},
			responses: []Response{resp("a"), resp("b")},
			want:      true,
		},
		{
			name:      "partial answers",
			inst:      Instance{Status: StatusOpen},
			members:   []family.Member{mbr("a"), mbr("b")},
			responses: []Response{resp("a")},
			want:      false,
		},
		{
			name:    "expired",
			inst:    Instance{Status: StatusOpen, ExpiresAt: now.Add(-time.Minute)},
			members: []family.Member{mbr("a")},
			want:    true,
		},
		{
			name:    "expiry is inclusive",
			inst:    Instance{Status: StatusOpen, ExpiresAt: now},
			members: []family.Member{mbr("a")},
			want:    true,
		},
		{
			name:    "no expiry, unanswered",
			inst:    Instance{Status: StatusOpen},
			members: []family.Member{mbr("a")},
			want:    false,
		},
		{
			name:      "non-member answers do not count",
			inst:      Instance{Status: StatusOpen},
			members:   []family.Member{mbr("a"), mbr("b")},
			responses: []Response{resp("a"), resp("z")},
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldClose(tt.inst, tt.members, tt.responses, now); got != tt.want {
				t.Errorf("shouldClose() = %v, want %v", got, tt.want)
			}
		})
	}
}
