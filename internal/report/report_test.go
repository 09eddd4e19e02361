package report

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"stationsync/internal/models"
	"stationsync/internal/store"
	"stationsync/internal/store/flatfile"
)

func newService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := flatfile.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewService(st), st
}

func seed(t *testing.T, st store.Store, stationID string, recs []models.Record) {
	t.Helper()
	ctx := context.Background()
	err := st.CreateStation(ctx, &models.Station{ID: stationID, Name: stationID, CreatedAt: models.NowISO()})
	if err != nil {
		t.Fatalf("create station: %v", err)
	}
	for i := range recs {
		recs[i].StationID = stationID
		if _, _, err := st.UpsertRecord(ctx, &recs[i]); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
}

func TestAggregateByMonth(t *testing.T) {
	svc, st := newService(t)
	seed(t, st, "ST1", []models.Record{
		{Date: "2024-01-05", GivenOut: 3, Remaining: 7, Earnings: 100},
		{Date: "2024-01-20", GivenOut: 4, Remaining: 6, Earnings: 150},
		{Date: "2024-02-02", GivenOut: 5, Remaining: 5, Earnings: 210},
	})

	buckets, err := svc.Aggregate(context.Background(), PeriodMonth, "", "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected two month buckets, got %+v", buckets)
	}
	jan, feb := buckets[0], buckets[1]
	if jan.Period != "2024-01" || jan.GivenOut != 7 || jan.Count != 2 || jan.Earnings != 250 {
		t.Fatalf("unexpected january bucket: %+v", jan)
	}
	if feb.Period != "2024-02" || feb.GivenOut != 5 || feb.Count != 1 {
		t.Fatalf("unexpected february bucket: %+v", feb)
	}
}

func TestAggregatePeriods(t *testing.T) {
	svc, st := newService(t)
	seed(t, st, "ST1", []models.Record{
		{Date: "2023-12-31", GivenOut: 1},
		{Date: "2024-01-01", GivenOut: 2},
	})
	ctx := context.Background()

	days, err := svc.Aggregate(ctx, PeriodDay, "", "")
	if err != nil {
		t.Fatalf("aggregate day: %v", err)
	}
	if len(days) != 2 || days[0].Period != "2023-12-31" {
		t.Fatalf("unexpected day buckets: %+v", days)
	}

	years, err := svc.Aggregate(ctx, PeriodYear, "", "")
	if err != nil {
		t.Fatalf("aggregate year: %v", err)
	}
	if len(years) != 2 || years[0].Period != "2023" || years[1].Period != "2024" {
		t.Fatalf("unexpected year buckets: %+v", years)
	}
}

func TestAggregateRangeFilter(t *testing.T) {
	svc, st := newService(t)
	seed(t, st, "ST1", []models.Record{
		{Date: "2024-01-05", GivenOut: 3},
		{Date: "2024-02-10", GivenOut: 4},
		{Date: "2024-03-15", GivenOut: 5},
	})

	buckets, err := svc.Aggregate(context.Background(), PeriodMonth, "2024-02-01", "2024-02-28")
	if err != nil {
		t.Fatalf("aggregate ranged: %v", err)
	}
	if len(buckets) != 1 || buckets[0].Period != "2024-02" || buckets[0].GivenOut != 4 {
		t.Fatalf("expected only the february bucket, got %+v", buckets)
	}
}

func TestAggregateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	var verr *store.ValidationError
	if _, err := svc.Aggregate(ctx, "week", "", ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown period, got %v", err)
	}
	if _, err := svc.Aggregate(ctx, PeriodDay, "01/02/2024", ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for bad from date, got %v", err)
	}
}

func TestMaintenanceRollup(t *testing.T) {
	svc, st := newService(t)
	seed(t, st, "ST1", []models.Record{
		{Date: "2024-01-05", NeedRepair: 2, Damaged: 1},
		{Date: "2024-01-20", NeedRepair: 1},
		{Date: "2024-01-25"},
	})
	seed(t, st, "ST2", []models.Record{
		{Date: "2024-01-10"},
	})

	rollup, err := svc.Maintenance(context.Background())
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if len(rollup) != 1 {
		t.Fatalf("expected a single station in the rollup, got %+v", rollup)
	}
	m := rollup[0]
	if m.Station.ID != "ST1" || m.NeedRepair != 3 || m.Damaged != 1 {
		t.Fatalf("unexpected rollup: %+v", m)
	}
	if m.Latest.Date != "2024-01-20" {
		t.Fatalf("expected latest qualifying record 2024-01-20, got %s", m.Latest.Date)
	}
}

func TestMaintenanceSkipsOrphanRecords(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	seed(t, st, "ST1", []models.Record{
		{Date: "2024-01-05", NeedRepair: 1},
	})
	if _, err := st.DeleteStation(ctx, "ST1"); err != nil {
		t.Fatalf("delete station: %v", err)
	}

	rollup, err := svc.Maintenance(ctx)
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if len(rollup) != 0 {
		t.Fatalf("expected empty rollup after cascade, got %+v", rollup)
	}
}
