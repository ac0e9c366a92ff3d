package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/ministry"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_IsIdempotentAndSeedsMinistries(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx, db, store.DriverSQLite))

	assert.Equal(t, len(ministry.Default().Entries), storetest.Count(t, db, "ministries"))

	id, ok, err := store.NewMinistryStore(db).FindByAcronym(ctx, "MOH")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotZero(t, id)

	_, ok, err = store.NewMinistryStore(db).FindByAcronym(ctx, "XYZ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDB_RejectsUnknownDriver(t *testing.T) {
	_, err := store.NewDB("oracle", "dsn", store.PoolOptions{})
	assert.Error(t, err)
}

func TestSittingStore_UpsertOverwritesMetadataKeepsSummary(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)

	st := &model.Sitting{
		Date:      time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		SittingNo: sql.NullInt64{Int64: 10, Valid: true},
		URL:       "first",
	}
	require.NoError(t, sittings.UpsertSitting(ctx, st))
	firstID := st.ID
	require.NoError(t, sittings.UpdateSummary(ctx, firstID, "kept"))

	again := &model.Sitting{
		Date:      storetest.Date(2024, 3, 5),
		SittingNo: sql.NullInt64{Int64: 11, Valid: true},
		URL:       "second",
	}
	require.NoError(t, sittings.UpsertSitting(ctx, again))

	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, 1, storetest.Count(t, db, "sittings"))

	got, err := sittings.GetByDate(ctx, storetest.Date(2024, 3, 5))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(11), got.SittingNo.Int64)
	assert.Equal(t, "second", got.URL)
	assert.Equal(t, "kept", got.Summary.String)

	missing, err := sittings.GetByDate(ctx, storetest.Date(2024, 3, 6))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSittingStore_ListInRange(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)

	for _, day := range []int{1, 3, 9} {
		require.NoError(t, sittings.UpsertSitting(ctx, &model.Sitting{Date: storetest.Date(2024, 4, day)}))
	}

	got, err := sittings.ListInRange(ctx, storetest.Date(2024, 4, 1), storetest.Date(2024, 4, 3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(storetest.Date(2024, 4, 1)))
	assert.True(t, got[1].Date.Equal(storetest.Date(2024, 4, 3)))
}

func TestAttendance_LastWriteWins(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)
	members := store.NewMemberStore(db)

	st := &model.Sitting{Date: storetest.Date(2024, 1, 8)}
	require.NoError(t, sittings.UpsertSitting(ctx, st))
	memberID, _, err := members.InsertIfAbsent(ctx, "Ms Tan")
	require.NoError(t, err)

	require.NoError(t, sittings.UpsertAttendance(ctx, model.Attendance{
		SittingID: st.ID, MemberID: memberID, Present: true,
		Designation: sql.NullString{String: "Minister for Health", Valid: true},
	}))
	require.NoError(t, sittings.UpsertAttendance(ctx, model.Attendance{
		SittingID: st.ID, MemberID: memberID, Present: false,
	}))

	rows, err := sittings.Attendance(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Present)
	assert.False(t, rows[0].Designation.Valid)
	assert.Equal(t, "Ms Tan", rows[0].MemberName)
}

func TestLinkSpeaker_FirstWriteWins(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)
	sections := store.NewSectionStore(db)

	st := &model.Sitting{Date: storetest.Date(2024, 1, 8)}
	require.NoError(t, sittings.UpsertSitting(ctx, st))
	sec := &model.Section{SittingID: st.ID, Category: "question", SectionType: "OA", Title: "Clinics"}
	require.NoError(t, sections.Insert(ctx, sec))
	memberID, _, err := store.NewMemberStore(db).InsertIfAbsent(ctx, "Mr Lim")
	require.NoError(t, err)

	require.NoError(t, sections.LinkSpeaker(ctx, model.SectionSpeaker{
		SectionID: sec.ID, MemberID: memberID,
		Designation: sql.NullString{String: "first", Valid: true},
	}))
	require.NoError(t, sections.LinkSpeaker(ctx, model.SectionSpeaker{
		SectionID: sec.ID, MemberID: memberID,
		Designation: sql.NullString{String: "second", Valid: true},
	}))

	speakers, err := sections.Speakers(ctx, []int64{sec.ID})
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	assert.Equal(t, "first", speakers[0].Designation.String)
}

func TestMemberStore_InsertIfAbsent(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	members := store.NewMemberStore(db)

	id, created, err := members.InsertIfAbsent(ctx, "Dr Ong")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = members.InsertIfAbsent(ctx, "Dr Ong")
	require.NoError(t, err)
	assert.False(t, created)

	found, ok, err := members.FindByName(ctx, "Dr Ong")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	// names are not normalized
	_, ok, err = members.FindByName(ctx, "dr ong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBillStore_BackfillsOnlyUnsetFields(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	bills := store.NewBillStore(db)
	ministries := store.NewMinistryStore(db)
	sittings := store.NewSittingStore(db)

	moh, _, err := ministries.FindByAcronym(ctx, "MOH")
	require.NoError(t, err)
	mof, _, err := ministries.FindByAcronym(ctx, "MOF")
	require.NoError(t, err)

	first := &model.Sitting{Date: storetest.Date(2024, 2, 1)}
	require.NoError(t, sittings.UpsertSitting(ctx, first))
	later := &model.Sitting{Date: storetest.Date(2024, 2, 20)}
	require.NoError(t, sittings.UpsertSitting(ctx, later))

	b := &model.Bill{Title: "Healthcare Services Bill"}
	created, err := bills.InsertIfAbsent(ctx, b)
	require.NoError(t, err)
	require.True(t, created)

	changed, err := bills.BackfillMinistry(ctx, b.ID, moh)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = bills.BackfillMinistry(ctx, b.ID, mof)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = bills.BackfillFirstReading(ctx, b.ID, first.Date, first.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = bills.BackfillFirstReading(ctx, b.ID, later.Date, later.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := bills.FindByTitle(ctx, "Healthcare Services Bill")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, moh, got.MinistryID.Int64)
	assert.True(t, got.FirstReadingDate.Time.Equal(first.Date))
	assert.Equal(t, first.ID, got.FirstReadingSittingID.Int64)

	dup := &model.Bill{Title: "Healthcare Services Bill"}
	created, err = bills.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, storetest.Count(t, db, "bills"))
}

func TestSectionStore_FindAndUpdate(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)
	sections := store.NewSectionStore(db)

	st := &model.Sitting{Date: storetest.Date(2024, 5, 6)}
	require.NoError(t, sittings.UpsertSitting(ctx, st))

	_, ok, err := sections.FindID(ctx, st.ID, "Bus Fares", "OA")
	require.NoError(t, err)
	assert.False(t, ok)

	sec := &model.Section{SittingID: st.ID, Category: "question", SectionType: "OA", Title: "Bus Fares", ContentPlain: "old", Order: 1}
	require.NoError(t, sections.Insert(ctx, sec))
	require.NoError(t, sections.UpdateSummary(ctx, sec.ID, "summary"))

	id, ok, err := sections.FindID(ctx, st.ID, "Bus Fares", "OA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sec.ID, id)

	sec.ContentPlain = "new"
	sec.Order = 4
	require.NoError(t, sections.Update(ctx, sec))

	got, err := sections.ForSummary(ctx, st.ID, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ContentPlain)
	assert.Equal(t, 4, got[0].Order)
	assert.Equal(t, "summary", got[0].Summary.String)

	blanks, err := sections.ForSummary(ctx, st.ID, true)
	require.NoError(t, err)
	assert.Empty(t, blanks)
}

func TestReconcileStore_DuplicateSections(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	sittings := store.NewSittingStore(db)
	reconcile := store.NewReconcileStore(db)

	st := &model.Sitting{Date: storetest.Date(2024, 6, 3)}
	require.NoError(t, sittings.UpsertSitting(ctx, st))

	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		var id int64
		err := db.QueryRow(`
			INSERT INTO sections (sitting_id, section_type, section_title, created_at)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			st.ID, "OA", "Dup", base.Add(time.Duration(i)*time.Minute)).Scan(&id)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	dups, err := reconcile.DuplicateSections(ctx, st.Date, st.Date, false)
	require.NoError(t, err)
	require.Len(t, dups, 2)
	assert.Equal(t, ids[1], dups[0].ID)
	assert.Equal(t, ids[2], dups[1].ID)

	n, err := reconcile.DeleteDuplicateSections(ctx, st.Date, st.Date, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var survivor int64
	require.NoError(t, db.QueryRow(`SELECT id FROM sections`).Scan(&survivor))
	assert.Equal(t, ids[2], survivor)
}

func TestMinistryStore_ListWithCountsAndSections(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	ministries := store.NewMinistryStore(db)
	sections := store.NewSectionStore(db)

	moh, err := ministries.GetByAcronym(ctx, "MOH")
	require.NoError(t, err)
	require.NotNil(t, moh)
	assert.Equal(t, "Ministry of Health", moh.Name)

	missing, err := ministries.GetByAcronym(ctx, "XYZ")
	require.NoError(t, err)
	assert.Nil(t, missing)

	for i, date := range []time.Time{storetest.Date(2024, 5, 6), storetest.Date(2024, 5, 7)} {
		st := &model.Sitting{Date: date}
		require.NoError(t, store.NewSittingStore(db).UpsertSitting(ctx, st))
		sec := &model.Section{
			SittingID:   st.ID,
			MinistryID:  sql.NullInt64{Int64: moh.ID, Valid: true},
			Category:    "question",
			SectionType: "OA",
			Title:       []string{"Older", "Newer"}[i],
		}
		require.NoError(t, sections.Insert(ctx, sec))
	}

	counts, err := ministries.ListWithCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, len(ministry.Default().Entries))
	for _, m := range counts {
		if m.Acronym == "MOH" {
			assert.Equal(t, 2, m.SectionCount)
		} else {
			assert.Zero(t, m.SectionCount, m.Acronym)
		}
	}

	listed, err := sections.ListForMinistry(ctx, "MOH", 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Newer", listed[0].Title)
	assert.Equal(t, "MOH", listed[0].Ministry.String)
}
