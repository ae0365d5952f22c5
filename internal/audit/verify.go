package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/crimson-sun/healthguard/internal/model"
)

// VerifyReport summarizes chain verification.
type VerifyReport struct {
	OK        bool     `json:"ok"`
	Total     int64    `json:"total"`
	LastIndex int64    `json:"last_index"`
	LastHash  string   `json:"last_hash"`
	Errors    []string `json:"errors"`
}

func (r *VerifyReport) fail(format string, args ...any) {
	r.OK = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Verify recomputes the chain from the genesis record and reports every
// index, prev_hash and hash mismatch.
func Verify(records []model.AuditRecord) VerifyReport {
	report := VerifyReport{OK: true, Errors: []string{}}
	var expectedPrev string
	var expectedIndex int64
	for _, rec := range records {
		expectedIndex++
		if rec.Index != expectedIndex {
			report.fail("index mismatch at %d: want %d", rec.Index, expectedIndex)
		}
		if rec.PrevHash != expectedPrev {
			report.fail("prev_hash mismatch at %d", rec.Index)
		}
		computed, err := RecordHash(rec)
		if err != nil {
			report.fail("stable json at %d: %v", rec.Index, err)
		} else if computed != rec.Hash {
			report.fail("hash mismatch at %d", rec.Index)
		}
		expectedPrev = rec.Hash
		report.Total++
		report.LastIndex = rec.Index
		report.LastHash = rec.Hash
	}
	return report
}

// ReadFiles decodes NDJSON audit records from paths in order. Rotated
// segments must be passed oldest first.
func ReadFiles(paths ...string) ([]model.AuditRecord, error) {
	var out []model.AuditRecord
	for _, path := range paths {
		recs, err := readFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readFile(path string) ([]model.AuditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var out []model.AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 5*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec model.AuditRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("audit: %s:%d: decode record: %w", path, line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", path, err)
	}
	return out, nil
}

// VerifyFiles reads and verifies the chain stored across paths.
func VerifyFiles(paths ...string) VerifyReport {
	records, err := ReadFiles(paths...)
	if err != nil {
		report := VerifyReport{Errors: []string{}}
		report.fail("%v", err)
		return report
	}
	return Verify(records)
}
