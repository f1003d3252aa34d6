package rotation_test

import (
	"testing"
	"time"

	"lvm-backup/src/backend"
	"lvm-backup/src/rotation"
)

func entry(ts time.Time) backend.Entry {
	s := ts.UTC().Format(backend.TimestampLayout)
	return backend.Entry{Host: "shiva", VG: "vg0", LV: "disk", Timestamp: s, Path: "/store/shiva/vg0/disk/" + s}
}

func paths(entries []backend.Entry) map[string]bool {
	m := map[string]bool{}
	for _, e := range entries {
		m[e.Path] = true
	}
	return m
}

func TestParse(t *testing.T) {
	for _, name := range []string{"current", "Day", " month ", "YEAR", "disabled"} {
		if _, err := rotation.Parse(name); err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
	}
	if _, err := rotation.Parse("weekly"); err == nil {
		t.Fatal("expected unknown policy to fail")
	}
}

func TestPlan_Disabled_KeepsEverything(t *testing.T) {
	entries := []backend.Entry{
		entry(time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)),
		entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)),
	}
	if del := rotation.Plan(rotation.Disabled, entries); len(del) != 0 {
		t.Fatalf("expected no deletions, got %d", len(del))
	}
}

func TestPlan_Current_KeepsOnlyNewest(t *testing.T) {
	newest := entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))
	entries := []backend.Entry{
		entry(time.Date(2026, 8, 23, 3, 0, 0, 0, time.UTC)),
		entry(time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)),
		newest,
	}
	del := paths(rotation.Plan(rotation.Current, entries))
	if len(del) != 2 {
		t.Fatalf("expected 2 deletions, got %d", len(del))
	}
	if del[newest.Path] {
		t.Fatal("newest artifact must never be deleted")
	}
}

func TestPlan_Day_KeepsPreviousDayMonthYear(t *testing.T) {
	prevYear := entry(time.Date(2025, 12, 30, 2, 0, 0, 0, time.UTC))
	prevMonth := entry(time.Date(2026, 7, 31, 2, 0, 0, 0, time.UTC))
	prevDayOld := entry(time.Date(2026, 8, 24, 1, 0, 0, 0, time.UTC))
	prevDay := entry(time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC))
	todayOld := entry(time.Date(2026, 8, 25, 1, 0, 0, 0, time.UTC))
	newest := entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))
	entries := []backend.Entry{prevYear, prevMonth, prevDayOld, prevDay, todayOld, newest}

	del := paths(rotation.Plan(rotation.Day, entries))

	for _, keep := range []backend.Entry{newest, prevDay, prevMonth, prevYear} {
		if del[keep.Path] {
			t.Fatalf("expected %s to be kept", keep.Timestamp)
		}
	}
	for _, gone := range []backend.Entry{prevDayOld, todayOld} {
		if !del[gone.Path] {
			t.Fatalf("expected %s to be deleted", gone.Timestamp)
		}
	}
}

func TestPlan_Month_KeepsPreviousMonthAndYear(t *testing.T) {
	prevYear := entry(time.Date(2025, 12, 30, 2, 0, 0, 0, time.UTC))
	prevMonth := entry(time.Date(2026, 7, 31, 2, 0, 0, 0, time.UTC))
	sameMonthOld := entry(time.Date(2026, 8, 10, 2, 0, 0, 0, time.UTC))
	newest := entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))
	entries := []backend.Entry{prevYear, prevMonth, sameMonthOld, newest}

	del := paths(rotation.Plan(rotation.Month, entries))
	if del[newest.Path] || del[prevMonth.Path] || del[prevYear.Path] {
		t.Fatalf("kept set wrong: %v", del)
	}
	if !del[sameMonthOld.Path] {
		t.Fatal("expected older same-month artifact to be deleted")
	}
}

func TestPlan_Year_KeepsPreviousYearOnly(t *testing.T) {
	prevYearOld := entry(time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC))
	prevYear := entry(time.Date(2025, 12, 30, 2, 0, 0, 0, time.UTC))
	sameYearOld := entry(time.Date(2026, 2, 1, 2, 0, 0, 0, time.UTC))
	newest := entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))
	entries := []backend.Entry{prevYearOld, prevYear, sameYearOld, newest}

	del := paths(rotation.Plan(rotation.Year, entries))
	if del[newest.Path] || del[prevYear.Path] {
		t.Fatal("newest and previous-year-latest must be kept")
	}
	if !del[prevYearOld.Path] || !del[sameYearOld.Path] {
		t.Fatalf("expected older artifacts deleted: %v", del)
	}
}

func TestPlan_ForeignDirectoryNameNeverShadowsNewest(t *testing.T) {
	old := entry(time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC))
	newest := entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))
	// sorts lexically after any timestamp name
	foreign := backend.Entry{Host: "shiva", VG: "vg0", LV: "disk", Timestamp: "tmp", Path: "/store/shiva/vg0/disk/tmp"}
	entries := []backend.Entry{old, newest, foreign}

	del := paths(rotation.Plan(rotation.Current, entries))
	if del[newest.Path] {
		t.Fatal("newest artifact must not be deleted because of a foreign directory")
	}
	if del[foreign.Path] {
		t.Fatal("foreign directory must never be deleted")
	}
	if !del[old.Path] {
		t.Fatal("expected older artifact to be deleted")
	}
}

func TestPlan_OnlyForeignDirectories_NothingToDelete(t *testing.T) {
	entries := []backend.Entry{
		{Host: "shiva", VG: "vg0", LV: "disk", Timestamp: "latest", Path: "/store/shiva/vg0/disk/latest"},
	}
	if del := rotation.Plan(rotation.Current, entries); len(del) != 0 {
		t.Fatalf("expected no deletions, got %d", len(del))
	}
}

func TestPlan_SingleArtifact_NeverDeleted(t *testing.T) {
	entries := []backend.Entry{entry(time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC))}
	for _, p := range []rotation.Policy{rotation.Current, rotation.Day, rotation.Month, rotation.Year} {
		if del := rotation.Plan(p, entries); len(del) != 0 {
			t.Fatalf("policy %s deleted the only artifact", p)
		}
	}
}
