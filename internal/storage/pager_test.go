package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestPager(t *testing.T, contents []byte) *Pager {
	t.Helper()
	testFile := filepath.Join(t.TempDir(), "test.db")
	if contents != nil {
		if err := os.WriteFile(testFile, contents, 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
	}
	pager, err := NewPager(testFile, nil)
	if err != nil {
		t.Fatalf("NewPager(%s) failed: %v", testFile, err)
	}
	t.Cleanup(func() { pager.Close() })
	return pager
}

func encodedRows(n int) []byte {
	var buf []byte
	for i := 0; i < n; i++ {
		row, _ := NewRow(uint32(i), "user", "user@example.com")
		buf = append(buf, row.Encode()...)
	}
	return buf
}

// =============================================================================
// NewPager Tests
// =============================================================================

func TestNewPager(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.db")

	pager, err := NewPager(testFile, nil)
	if err != nil {
		t.Fatalf("NewPager(%s) failed: %v", testFile, err)
	}
	defer pager.Close()

	// ファイルが作成されているか確認
	if _, err := os.Stat(testFile); os.IsNotExist(err) {
		t.Errorf("NewPager(%s) did not create the file", testFile)
	}
	if pager.FileLength() != 0 {
		t.Errorf("NewPager(%s).FileLength() = %d, want 0", testFile, pager.FileLength())
	}
	if pager.ResidentPages() != 0 {
		t.Errorf("NewPager(%s).ResidentPages() = %d, want 0", testFile, pager.ResidentPages())
	}
}

func TestNewPagerWithExistingFile(t *testing.T) {
	pager := newTestPager(t, encodedRows(3))
	if pager.FileLength() != 3*RowSize {
		t.Errorf("FileLength() = %d, want %d", pager.FileLength(), 3*RowSize)
	}
}

func TestNewPagerInvalidPath(t *testing.T) {
	pager, err := NewPager("/nonexistent/directory/test.db", nil)
	if err == nil {
		pager.Close()
		t.Fatal("NewPager with invalid path should return an error, but got nil")
	}
	if !IsFatal(err) {
		t.Errorf("NewPager error = %v, want a fatal error", err)
	}
}

// =============================================================================
// GetPage Tests
// =============================================================================

func TestGetPageLoadsPersistedPages(t *testing.T) {
	// 2ページ目は 3 行だけの部分ページ
	contents := encodedRows(RowsPerPage + 3)
	pager := newTestPager(t, contents)

	testCases := []struct {
		name    string
		id      PageID
		wantLen int
	}{
		{name: "フルページ", id: 0, wantLen: pageStride},
		{name: "部分ページ", id: 1, wantLen: 3 * RowSize},
		{name: "未永続化ページ", id: 2, wantLen: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := pager.GetPage(tc.id)
			if err != nil {
				t.Fatalf("GetPage(%d) failed: %v", tc.id, err)
			}
			if len(page) != tc.wantLen {
				t.Errorf("GetPage(%d) length = %d, want %d", tc.id, len(page), tc.wantLen)
			}
			if wantResident := tc.wantLen > 0; pager.IsResident(tc.id) != wantResident {
				t.Errorf("IsResident(%d) = %v, want %v", tc.id, pager.IsResident(tc.id), wantResident)
			}
		})
	}

	page, _ := pager.GetPage(1)
	if got := DecodeRow(page, 2*RowSize); got.ID != RowsPerPage+2 {
		t.Errorf("row 2 of page 1 has ID %d, want %d", got.ID, RowsPerPage+2)
	}
}

func TestGetPageResidentIsCached(t *testing.T) {
	pager := newTestPager(t, encodedRows(2))

	first, err := pager.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) failed: %v", err)
	}
	// メモリ上の内容が優先される
	first[0] = 0xFF

	second, err := pager.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) failed: %v", err)
	}
	if second[0] != 0xFF {
		t.Error("GetPage(0) re-read the page instead of returning the resident copy")
	}
}

func TestGetPageOutOfBounds(t *testing.T) {
	pager := newTestPager(t, nil)

	for _, id := range []PageID{TableMaxPages, TableMaxPages + 1, 1 << 20} {
		_, err := pager.GetPage(id)
		if !IsFatal(err) {
			t.Errorf("GetPage(%d) error = %v, want a fatal error", id, err)
		}
		if !errors.Is(err, ErrPageOutOfBounds) {
			t.Errorf("GetPage(%d) error = %v, want ErrPageOutOfBounds", id, err)
		}
	}

	if _, err := pager.GetPage(TableMaxPages - 1); err != nil {
		t.Errorf("GetPage(%d) failed: %v", TableMaxPages-1, err)
	}
}

// =============================================================================
// AppendToPage / Flush Tests
// =============================================================================

func TestAppendToPageMarksResident(t *testing.T) {
	pager := newTestPager(t, nil)

	if pager.IsResident(0) {
		t.Fatal("page 0 resident before any append")
	}
	if err := pager.AppendToPage(0, encodedRows(1)); err != nil {
		t.Fatalf("AppendToPage failed: %v", err)
	}
	if !pager.IsResident(0) {
		t.Error("page 0 not resident after append")
	}
	page, _ := pager.GetPage(0)
	if len(page) != RowSize {
		t.Errorf("page 0 length = %d, want %d", len(page), RowSize)
	}
}

func TestAppendToPageOverflow(t *testing.T) {
	pager := newTestPager(t, nil)

	if err := pager.AppendToPage(0, make([]byte, PageSize)); err != nil {
		t.Fatalf("AppendToPage of a full page failed: %v", err)
	}
	err := pager.AppendToPage(0, []byte{1})
	if !errors.Is(err, ErrPageOverflow) || !IsFatal(err) {
		t.Errorf("AppendToPage past capacity error = %v, want fatal ErrPageOverflow", err)
	}
}

func TestFlushWritesAndUnloads(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.db")
	pager, err := NewPager(testFile, nil)
	if err != nil {
		t.Fatalf("NewPager failed: %v", err)
	}

	data := encodedRows(RowsPerPage + 1)
	if err := pager.AppendToPage(0, data[:pageStride]); err != nil {
		t.Fatalf("AppendToPage(0) failed: %v", err)
	}
	if err := pager.AppendToPage(1, data[pageStride:]); err != nil {
		t.Fatalf("AppendToPage(1) failed: %v", err)
	}

	for _, id := range []PageID{0, 1} {
		if err := pager.Flush(id); err != nil {
			t.Fatalf("Flush(%d) failed: %v", id, err)
		}
		if pager.IsResident(id) {
			t.Errorf("page %d still resident after Flush", id)
		}
	}
	if err := pager.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := pager.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// ページ間に隙間はない
	if len(got) != len(data) {
		t.Fatalf("file length = %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("file byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestFlushUnloadedPage(t *testing.T) {
	pager := newTestPager(t, nil)

	err := pager.Flush(3)
	if !IsFatal(err) {
		t.Fatalf("Flush of an unloaded page error = %v, want a fatal error", err)
	}
	if !errors.Is(err, ErrFlushUnloaded) {
		t.Errorf("Flush of an unloaded page error = %v, want ErrFlushUnloaded", err)
	}
}
