package metricsquery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crux-monitor-app/backend/internal/domain/metric"
	"crux-monitor-app/backend/internal/infra/cache"
	"crux-monitor-app/backend/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSiteID = "11111111-1111-1111-1111-111111111111"

// testNow 固定查询时钟，时间窗计算不受真实时间影响。
var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&metric.Snapshot{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, queryCache *cache.SnapshotCache) *Service {
	t.Helper()

	if queryCache == nil {
		queryCache = cache.NewSnapshotCache(nil, 0)
	}
	svc := NewService(repository.NewMetricRepository(db), queryCache, zap.NewNop().Sugar())
	svc.now = func() time.Time { return testNow }
	return svc
}

// payloadJSON 构造最小可用的 CrUX 响应体。formFactor 为空时产出聚合记录。
func payloadJSON(formFactor string, metricNames ...string) datatypes.JSON {
	metrics := ""
	for i, name := range metricNames {
		if i > 0 {
			metrics += ","
		}
		metrics += fmt.Sprintf(`%q:{"percentiles":{"p75":2400}}`, name)
	}

	key := "{}"
	if formFactor != "" {
		key = fmt.Sprintf(`{"formFactor":%q}`, formFactor)
	}
	return datatypes.JSON(fmt.Sprintf(`{"record":{"key":%s,"metrics":{%s}}}`, key, metrics))
}

func seedSnapshot(t *testing.T, db *gorm.DB, periodStart time.Time, payload datatypes.JSON) metric.Snapshot {
	t.Helper()

	snapshot := metric.Snapshot{
		SiteID:                testSiteID,
		CreateCollectionDate:  periodStart,
		CollectionPeriodStart: periodStart,
		CollectionPeriodEnd:   periodStart.AddDate(0, 0, 27),
		CruxData:              payload,
	}
	if err := db.Create(&snapshot).Error; err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	return snapshot
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestQueryPeriodBoundary(t *testing.T) {
	db := newTestDB(t)

	boundary := testNow.AddDate(0, -1, 0)
	inside := seedSnapshot(t, db, boundary.AddDate(0, 0, 3), payloadJSON("PHONE", "largest_contentful_paint"))
	atBoundary := seedSnapshot(t, db, boundary, payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, boundary.Add(-time.Second), payloadJSON("PHONE", "largest_contentful_paint"))

	svc := newTestService(t, db, nil)
	got, err := svc.Query(context.Background(), Params{SiteID: testSiteID, Period: PeriodMonth})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots in window, got %d", len(got))
	}
	if got[0].ID != atBoundary.ID || got[1].ID != inside.ID {
		t.Fatalf("unexpected order or contents: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestQueryFiltersByMetricName(t *testing.T) {
	db := newTestDB(t)

	withLCP := seedSnapshot(t, db, day(2024, 6, 1), payloadJSON("PHONE", "largest_contentful_paint", "cumulative_layout_shift"))
	seedSnapshot(t, db, day(2024, 6, 2), payloadJSON("PHONE", "cumulative_layout_shift"))

	svc := newTestService(t, db, nil)
	got, err := svc.Query(context.Background(), Params{
		SiteID: testSiteID,
		Metric: "largest_contentful_paint",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != withLCP.ID {
		t.Fatalf("expected only snapshot carrying the metric, got %d", len(got))
	}
}

func TestQueryFiltersByFormFactor(t *testing.T) {
	db := newTestDB(t)

	phone := seedSnapshot(t, db, day(2024, 6, 1), payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 6, 2), payloadJSON("DESKTOP", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 6, 3), payloadJSON("", "largest_contentful_paint"))

	svc := newTestService(t, db, nil)

	// 设备类型大小写不敏感，聚合记录（无 formFactor）一律排除。
	got, err := svc.Query(context.Background(), Params{SiteID: testSiteID, FormFactor: "phone"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != phone.ID {
		t.Fatalf("expected only phone snapshot, got %d", len(got))
	}

	// 默认 ALL 不按设备类型过滤。
	all, err := svc.Query(context.Background(), Params{SiteID: testSiteID})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 snapshots, got %d", len(all))
	}
}

func TestQueryExcludesMalformedPayload(t *testing.T) {
	db := newTestDB(t)

	valid := seedSnapshot(t, db, day(2024, 6, 1), payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 6, 2), datatypes.JSON(`{"record":`))
	seedSnapshot(t, db, day(2024, 6, 3), datatypes.JSON(`{}`))

	svc := newTestService(t, db, nil)
	got, err := svc.Query(context.Background(), Params{SiteID: testSiteID, FormFactor: "PHONE"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != valid.ID {
		t.Fatalf("expected malformed payloads excluded, got %d", len(got))
	}
}

func TestQueryGroupByWeekKeepsEarliest(t *testing.T) {
	db := newTestDB(t)

	// 2024-06-03 到 06-05 同属一个 ISO 周，06-10 属于下一周。
	first := seedSnapshot(t, db, day(2024, 6, 3), payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 6, 4), payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 6, 5), payloadJSON("PHONE", "largest_contentful_paint"))
	nextWeek := seedSnapshot(t, db, day(2024, 6, 10), payloadJSON("PHONE", "largest_contentful_paint"))

	svc := newTestService(t, db, nil)
	params := Params{SiteID: testSiteID, GroupBy: GroupByWeek}

	got, err := svc.Query(context.Background(), params)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 weekly buckets, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != nextWeek.ID {
		t.Fatalf("expected earliest snapshot per week, got %s, %s", got[0].ID, got[1].ID)
	}

	// 同参数重复查询结果一致。
	again, err := svc.Query(context.Background(), params)
	if err != nil {
		t.Fatalf("repeat query: %v", err)
	}
	if len(again) != len(got) {
		t.Fatalf("repeat query size changed: %d vs %d", len(again), len(got))
	}
	for i := range got {
		if again[i].ID != got[i].ID {
			t.Fatalf("repeat query diverged at %d", i)
		}
	}
}

func TestQueryGroupByMonth(t *testing.T) {
	db := newTestDB(t)

	april := seedSnapshot(t, db, day(2024, 4, 2), payloadJSON("PHONE", "largest_contentful_paint"))
	seedSnapshot(t, db, day(2024, 4, 20), payloadJSON("PHONE", "largest_contentful_paint"))
	may := seedSnapshot(t, db, day(2024, 5, 1), payloadJSON("PHONE", "largest_contentful_paint"))

	svc := newTestService(t, db, nil)
	got, err := svc.Query(context.Background(), Params{
		SiteID:  testSiteID,
		Period:  PeriodQuarter,
		GroupBy: GroupByMonth,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %d", len(got))
	}
	if got[0].ID != april.ID || got[1].ID != may.ID {
		t.Fatalf("expected earliest snapshot per month, got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestQueryRejectsInvalidParams(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, nil)

	cases := []Params{
		{SiteID: ""},
		{SiteID: testSiteID, Period: "2w"},
		{SiteID: testSiteID, GroupBy: "hour"},
		{SiteID: testSiteID, FormFactor: "WATCH"},
	}
	for _, params := range cases {
		if _, err := svc.Query(context.Background(), params); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("params %+v: expected ErrInvalidParams, got %v", params, err)
		}
	}
}

func TestQueryCacheInvalidatedByBump(t *testing.T) {
	db := newTestDB(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	queryCache := cache.NewSnapshotCache(redisClient, time.Minute)

	seedSnapshot(t, db, day(2024, 6, 1), payloadJSON("PHONE", "largest_contentful_paint"))

	svc := newTestService(t, db, queryCache)
	params := Params{SiteID: testSiteID}

	first, err := svc.Query(context.Background(), params)
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(first))
	}

	// 未失效前新写入的快照不可见，命中的是缓存。
	seedSnapshot(t, db, day(2024, 6, 2), payloadJSON("PHONE", "largest_contentful_paint"))
	cached, err := svc.Query(context.Background(), params)
	if err != nil {
		t.Fatalf("cached query: %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("expected cached result of 1 snapshot, got %d", len(cached))
	}

	if err := queryCache.BumpSite(context.Background(), testSiteID); err != nil {
		t.Fatalf("bump site: %v", err)
	}
	fresh, err := svc.Query(context.Background(), params)
	if err != nil {
		t.Fatalf("fresh query: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected fresh result of 2 snapshots, got %d", len(fresh))
	}
}
