package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/bvsim/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EngineFuel, convey.ShouldEqual, 256)
			convey.So(cfg.Workers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ModelCacheEnabled, convey.ShouldBeTrue)
			convey.So(cfg.AttributionFamily, convey.ShouldEqual, "gbt")
			convey.So(cfg.GBTRounds, convey.ShouldEqual, 200)
			convey.So(cfg.LogisticCVFolds, convey.ShouldEqual, 5)
		})

		convey.Convey("Then it should validate cleanly", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with an invalid field", t, func() {
		cfg := config.New()
		cfg.AttributionFamily = "bogus"

		convey.Convey("Then Validate rejects it", func() {
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
