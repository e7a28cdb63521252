package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chartgallery/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "bars", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}

	// Symbols with separators must stay inside the bars directory.
	bp = ps.barPath("../x", 2024)
	want = filepath.Join("/data", "bars", "..-X", "2024.parquet")
	if bp != want {
		t.Errorf("barPath for unsafe symbol:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
	}

	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
	if got[1].VWAP != 185.75 || got[1].TradeCount != 450000 {
		t.Errorf("second bar = %+v, fields not round-tripped", got[1])
	}
}

func TestParquetStoreReadAcrossYears(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "SPY", Timestamp: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Close: 475},
		{Symbol: "SPY", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 472},
		{Symbol: "SPY", Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Close: 527},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "SPY",
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 475 || got[1].Close != 472 {
		t.Errorf("ReadBars = %+v, want closes [475 472]", got)
	}

	none, err := ps.ReadBars(ctx, "QQQ", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars for uncached symbol: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ReadBars for uncached symbol returned %d bars", len(none))
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars1 := []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Open: 400.0, High: 405.0, Low: 399.0, Close: 403.0, Volume: 30000000},
	}
	if err := ps.WriteBars(ctx, bars1); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same day again with a corrected close plus one new day.
	bars2 := []domain.Bar{
		{Symbol: "MSFT", Timestamp: day, Open: 400.0, High: 405.0, Low: 399.0, Close: 404.0, Volume: 30000000},
		{Symbol: "MSFT", Timestamp: day.AddDate(0, 0, 3), Open: 403.0, High: 410.0, Low: 402.0, Close: 408.0, Volume: 35000000},
	}
	if err := ps.WriteBars(ctx, bars2); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", day.AddDate(0, -1, 0), day.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 404.0 {
		t.Errorf("merged bar Close = %v, want incoming 404.0", got[0].Close)
	}
}

func TestMergeBarRecords(t *testing.T) {
	existing := []BarRecord{{Timestamp: 3, Close: 1}, {Timestamp: 1, Close: 1}}
	incoming := []BarRecord{{Timestamp: 2, Close: 2}, {Timestamp: 3, Close: 2}}

	got := mergeBarRecords(existing, incoming)
	if len(got) != 3 {
		t.Fatalf("merge returned %d records, want 3", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].Timestamp != want {
			t.Errorf("record %d timestamp = %d, want %d", i, got[i].Timestamp, want)
		}
	}
	if got[2].Close != 2 {
		t.Errorf("duplicate timestamp kept Close=%v, want incoming 2", got[2].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	empty, err := ps.ListSymbols(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListSymbols on empty dir = %v, %v", empty, err)
	}

	bars := []domain.Bar{
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 140.5},
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 185.5},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestSQLiteStoreOpen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreRuns(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := []domain.Run{
		{ID: "r1", BatchID: "b1", Symbol: "AAPL", Years: 5, Days: 30, Status: domain.RunStatusOK,
			Artifact: "AAPL_5y_30d_until_20240531_20240501120000.html", StartedAt: base, Duration: 1500 * time.Millisecond},
		{ID: "r2", BatchID: "b1", Symbol: "ZZZZ", Years: 5, Days: 30, Status: domain.RunStatusFailed,
			Stage: "fetch", Reason: "no data", StartedAt: base.Add(time.Second), Duration: 20 * time.Millisecond},
		{ID: "r3", BatchID: "b2", Symbol: "MSFT", Years: 0.5, Days: 7, Status: domain.RunStatusOK,
			StartedAt: base.Add(2 * time.Second)},
	}
	for i := range runs {
		if err := store.RecordRun(ctx, &runs[i]); err != nil {
			t.Fatalf("RecordRun(%s): %v", runs[i].ID, err)
		}
	}

	got, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(got))
	}
	if got[0].ID != "r3" || got[1].ID != "r2" {
		t.Errorf("ListRuns order = [%s %s], want [r3 r2]", got[0].ID, got[1].ID)
	}
	if got[0].Years != 0.5 {
		t.Errorf("Years = %v, want 0.5", got[0].Years)
	}
	if got[1].Status != domain.RunStatusFailed || got[1].Stage != "fetch" || got[1].Reason != "no data" {
		t.Errorf("failed run = %+v", got[1])
	}
	if !got[1].StartedAt.Equal(base.Add(time.Second)) {
		t.Errorf("StartedAt = %v, want %v", got[1].StartedAt, base.Add(time.Second))
	}

	all, err := store.ListRuns(ctx, 50)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 || all[2].Duration != 1500*time.Millisecond {
		t.Errorf("ListRuns = %+v", all)
	}

	// Duplicate IDs are rejected.
	if err := store.RecordRun(ctx, &runs[0]); err == nil {
		t.Error("RecordRun with duplicate ID should fail")
	}
}
