package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/ministry"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store/storetest"
	"go.uber.org/zap"
)

// fakeSource serves canned sittings keyed by YYYY-MM-DD
type fakeSource struct {
	mu       sync.Mutex
	sittings map[string]*model.RawSitting
	errs     map[string]error
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		sittings: make(map[string]*model.RawSitting),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeSource) add(raw *model.RawSitting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sittings[raw.Meta.Date.Format(sourceDateLayout)] = raw
}

func (f *fakeSource) fail(date time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[date.Format(sourceDateLayout)] = err
}

func (f *fakeSource) FetchSittingByDate(ctx context.Context, date time.Time) (*model.RawSitting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format(sourceDateLayout)
	f.calls[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.sittings[key], nil
}

type testEnv struct {
	db       *sql.DB
	pool     *WritePool
	resolver *Resolver
	ingestor *Ingestor
	source   *fakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := storetest.Open(t)
	pool := NewWritePool(4)
	resolver := NewResolver(db, pool)
	source := newFakeSource()
	ingestor := NewIngestor(db, source, resolver, ministry.NewAttributor(ministry.Default(), 0),
		pool, "https://example.test/report?date=%s", zap.NewNop())

	return &testEnv{db: db, pool: pool, resolver: resolver, ingestor: ingestor, source: source}
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

// scenarioSitting has two present members, one absent, a first reading and a
// second reading of the same bill and one question to the health minister
func scenarioSitting(date time.Time) *model.RawSitting {
	return &model.RawSitting{
		Meta: model.SittingMeta{Date: date, SittingNo: 42, Parliament: 15, SessionNo: 1, VolumeNo: 95, Format: "new"},
		Present: []model.RawMember{
			{Name: "Ms Lee", Constituency: "Jurong", Appointment: "Minister for Health"},
			{Name: "Mr Tan", Constituency: "Tampines"},
		},
		Absent: []model.RawMember{
			{Name: "Dr Ng", Constituency: "Bishan"},
		},
		Sections: []model.RawSection{
			{
				Category:     model.CategoryBill,
				SectionType:  model.SectionTypeFirstReading,
				Title:        "Foo Bill",
				ContentPlain: "Bill to provide for foo, presented and read the first time.",
				Order:        1,
			},
			{
				Category:     model.CategoryBill,
				SectionType:  model.SectionTypeSecondReading,
				Title:        "Foo Bill",
				ContentPlain: "Order for Second Reading read.",
				Order:        2,
				Speakers:     []model.RawMember{{Name: "Mr Tan", Constituency: "Tampines"}},
			},
			{
				Category:     model.CategoryQuestion,
				SectionType:  "OA",
				Title:        "Polyclinic Waiting Times",
				ContentPlain: "Mr Tan asked the Minister for Health what is being done about waiting times.",
				Order:        3,
			},
		},
	}
}

func day(n int) time.Time {
	return storetest.Date(2024, 3, n)
}

func longText(prefix string, n int) string {
	text := prefix
	for i := 0; len(text) < n; i++ {
		text += fmt.Sprintf(" sentence %d of the debate.", i)
	}
	return text
}
