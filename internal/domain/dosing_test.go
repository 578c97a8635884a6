package domain

import (
	"testing"
	"time"
)

func TestLookup_FullTable(t *testing.T) {
	want := map[int]DayPlan{}
	for d := 1; d <= 3; d++ {
		want[d] = DayPlan{Doses: 6, Interval: 2 * time.Hour}
	}
	for d := 4; d <= 12; d++ {
		want[d] = DayPlan{Doses: 5, Interval: 150 * time.Minute}
	}
	for d := 13; d <= 16; d++ {
		want[d] = DayPlan{Doses: 4, Interval: 3 * time.Hour}
	}
	for d := 17; d <= 20; d++ {
		want[d] = DayPlan{Doses: 3, Interval: 5 * time.Hour}
	}
	for d := 21; d <= 25; d++ {
		want[d] = DayPlan{Doses: 2, Interval: 12 * time.Hour}
	}

	for d := 1; d <= CourseDays; d++ {
		plan, ok := Lookup(d)
		if !ok {
			t.Fatalf("day %d: want ok", d)
		}
		if plan != want[d] {
			t.Fatalf("day %d: want %+v, got %+v", d, want[d], plan)
		}
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	for _, d := range []int{-1, 0, 26, 100} {
		if _, ok := Lookup(d); ok {
			t.Fatalf("day %d: want not-ok", d)
		}
	}
}

func TestIntervalDescription(t *testing.T) {
	cases := map[int]string{
		1:  "every 2 hours",
		4:  "every 2.5 hours",
		13: "every 3 hours",
		17: "every 5 hours",
		21: "every 12 hours",
		26: "",
	}
	for day, want := range cases {
		if got := IntervalDescription(day); got != want {
			t.Fatalf("day %d: want %q, got %q", day, want, got)
		}
	}
}
