package learning

import (
	"testing"
)

func TestRecordAndAdjust(t *testing.T) {
	tab := New()

	const hash = 0x123456789abcdef0
	tab.Record(hash, 40)
	tab.Record(hash, 20)

	// Average of 40 and 20 at 100% rate.
	if got := tab.Adjust(hash); got != 30 {
		t.Errorf("Adjust = %d, want 30", got)
	}
	if got := tab.Adjust(hash + 1); got != 0 {
		t.Errorf("Adjust for unseen hash = %d, want 0", got)
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d, want 1", tab.Len())
	}
}

func TestAdjustClipping(t *testing.T) {
	tab := New()
	tab.MaxAdjust = 25

	const winning = 0x1111
	tab.Record(winning, 500)
	if got := tab.Adjust(winning); got != 25 {
		t.Errorf("positive adjust = %d, want clipped 25", got)
	}

	const losing = 0x2222
	tab.Record(losing, -500)
	if got := tab.Adjust(losing); got != -25 {
		t.Errorf("negative adjust = %d, want clipped -25", got)
	}
}

func TestAdjustRate(t *testing.T) {
	tab := New()
	tab.Rate = 50
	tab.MaxAdjust = 100

	const hash = 0x3333
	tab.Record(hash, 80)
	if got := tab.Adjust(hash); got != 40 {
		t.Errorf("Adjust at 50%% rate = %d, want 40", got)
	}
}

func TestCollisionEvicts(t *testing.T) {
	tab := New()

	// Find two hashes that land in the same bucket.
	a := uint64(1)
	b := uint64(2)
	for ; index(b) != index(a); b++ {
	}

	tab.Record(a, 100)
	tab.Record(b, -100)

	if got := tab.Adjust(a); got != 0 {
		t.Errorf("evicted entry should read 0, got %d", got)
	}
	// The default 50cp clip caps the -100 average.
	if got := tab.Adjust(b); got != -50 {
		t.Errorf("Adjust = %d, want -50", got)
	}
}

func TestClear(t *testing.T) {
	tab := New()
	tab.Record(0x4444, 10)
	tab.Clear()
	if tab.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", tab.Len())
	}
	if tab.Adjust(0x4444) != 0 {
		t.Error("Adjust after Clear should be 0")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping disk round trip in short mode")
	}
	dir := t.TempDir()

	tab := New()
	tab.Record(0xaaaa, 30)
	tab.Record(0xaaaa, 10)
	tab.Record(0xbbbb, -60)
	if err := tab.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New()
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("loaded Len = %d, want 2", loaded.Len())
	}
	if got := loaded.Adjust(0xaaaa); got != 20 {
		t.Errorf("loaded Adjust(0xaaaa) = %d, want 20", got)
	}
	if got := loaded.Adjust(0xbbbb); got != -50 {
		t.Errorf("loaded Adjust(0xbbbb) = %d, want clipped -50", got)
	}
}
