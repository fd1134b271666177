package modelcache_test

import (
	"context"
	"testing"

	"github.com/okian/bvsim/internal/adapters/modelcache"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	"github.com/okian/bvsim/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func statsFor(t *testing.T) teamstats.Stats {
	t.Helper()
	s, err := teamstats.New(
		0.1, 0.1,
		0.5, 0.3, 0.15, 0.05,
		0.02,
		0.5, 0.2,
		0.6, 0.1, 0.2, 0.05,
	)
	if err != nil {
		t.Fatalf("build stats: %v", err)
	}
	return s
}

func TestMemoryCache(t *testing.T) {
	Convey("Given an in-memory cache", t, func() {
		c := modelcache.NewMemory(modelcache.WithMaxSize(2))
		ctx := context.Background()

		Convey("When a key is missing", func() {
			_, ok, err := c.Get(ctx, "missing")

			Convey("Then Get reports a miss with no error", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a key is put and then fetched", func() {
			entry := modelcache.Entry{PWinA: 0.6, CILow: 0.55, CIHigh: 0.65, CIMethod: "wilson"}
			err := c.Put(ctx, "k1", entry)
			got, ok, getErr := c.Get(ctx, "k1")

			Convey("Then the fetched entry matches what was stored", func() {
				So(err, ShouldBeNil)
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, entry)
			})
		})

		Convey("When more keys are inserted than the max size", func() {
			_ = c.Put(ctx, "k1", modelcache.Entry{PWinA: 0.1})
			_ = c.Put(ctx, "k2", modelcache.Entry{PWinA: 0.2})
			_ = c.Put(ctx, "k3", modelcache.Entry{PWinA: 0.3})

			Convey("Then the oldest entry is evicted and the newest two remain", func() {
				_, ok1, _ := c.Get(ctx, "k1")
				_, ok2, _ := c.Get(ctx, "k2")
				_, ok3, _ := c.Get(ctx, "k3")
				So(ok1, ShouldBeFalse)
				So(ok2, ShouldBeTrue)
				So(ok3, ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteCache(t *testing.T) {
	Convey("Given a SQLite-backed cache at a temp path", t, func() {
		c, err := modelcache.Open(t.TempDir() + "/cache.db")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer c.Close()
		ctx := context.Background()

		Convey("When a key is put and fetched back", func() {
			entry := modelcache.Entry{PWinA: 0.42, CILow: 0.4, CIHigh: 0.44, CIMethod: "bootstrap"}
			putErr := c.Put(ctx, "rowkey", entry)
			got, ok, getErr := c.Get(ctx, "rowkey")

			Convey("Then it round-trips through the database", func() {
				So(putErr, ShouldBeNil)
				So(getErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got, ShouldResemble, entry)
			})
		})

		Convey("When the same key is put twice with different values", func() {
			_ = c.Put(ctx, "rowkey", modelcache.Entry{PWinA: 0.1})
			_ = c.Put(ctx, "rowkey", modelcache.Entry{PWinA: 0.9})
			got, ok, _ := c.Get(ctx, "rowkey")

			Convey("Then the second Put overwrites the first", func() {
				So(ok, ShouldBeTrue)
				So(got.PWinA, ShouldEqual, 0.9)
			})
		})
	})
}

func TestKeyDeterminism(t *testing.T) {
	Convey("Given two identical requests", t, func() {
		teamA := statsFor(t)
		teamB := statsFor(t)
		model := teamstats.DefaultConditionalModel()

		Convey("Then Key produces the same fingerprint", func() {
			k1 := modelcache.Key(rally.TeamA, teamA, teamB, model, 1000)
			k2 := modelcache.Key(rally.TeamA, teamA, teamB, model, 1000)
			So(k1, ShouldEqual, k2)
		})

		Convey("Then Key changes when any input changes", func() {
			k1 := modelcache.Key(rally.TeamA, teamA, teamB, model, 1000)
			k2 := modelcache.Key(rally.TeamB, teamA, teamB, model, 1000)
			k3 := modelcache.Key(rally.TeamA, teamA, teamB, model, 2000)
			So(k1, ShouldNotEqual, k2)
			So(k1, ShouldNotEqual, k3)
		})
	})
}
