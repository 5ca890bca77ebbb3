package model_test

import (
	"testing"

	model "github.com/okian/courtmatch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseSkillLevel(t *testing.T) {
	convey.Convey("Given raw skill level values", t, func() {
		convey.Convey("When the value is a decimal string", func() {
			v := model.ParseSkillLevel(" 4.5 ")

			convey.Convey("Then it should parse", func() {
				convey.So(v, convey.ShouldNotBeNil)
				convey.So(*v, convey.ShouldEqual, 4.5)
			})
		})

		convey.Convey("When the value is empty or malformed", func() {
			convey.Convey("Then it should be absent", func() {
				convey.So(model.ParseSkillLevel(""), convey.ShouldBeNil)
				convey.So(model.ParseSkillLevel("four"), convey.ShouldBeNil)
				convey.So(model.ParseSkillLevel("NaN"), convey.ShouldBeNil)
				convey.So(model.ParseSkillLevel("+Inf"), convey.ShouldBeNil)
			})
		})
	})
}

func TestParseAge(t *testing.T) {
	convey.Convey("Given raw age values", t, func() {
		convey.So(*model.ParseAge("30"), convey.ShouldEqual, 30)
		convey.So(*model.ParseAge("0"), convey.ShouldEqual, 0)
		convey.So(model.ParseAge("-3"), convey.ShouldBeNil)
		convey.So(model.ParseAge("30.5"), convey.ShouldBeNil)
		convey.So(model.ParseAge(""), convey.ShouldBeNil)
		convey.So(*model.ParseAge("150"), convey.ShouldEqual, model.MaxAge)
		convey.So(model.ParseAge("151"), convey.ShouldBeNil)
		convey.So(model.ParseAge("9223372036854775807"), convey.ShouldBeNil)
	})
}

func TestParseUserID(t *testing.T) {
	convey.Convey("Given raw user ids", t, func() {
		id, ok := model.ParseUserID("42")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(id, convey.ShouldEqual, model.UserID(42))
		convey.So(id.String(), convey.ShouldEqual, "42")

		_, ok = model.ParseUserID("0")
		convey.So(ok, convey.ShouldBeFalse)
		_, ok = model.ParseUserID("abc")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestIDSet(t *testing.T) {
	convey.Convey("Given an id set", t, func() {
		s := model.NewIDSet(1, 2)
		s.Add(3)

		convey.So(s.Has(1), convey.ShouldBeTrue)
		convey.So(s.Has(3), convey.ShouldBeTrue)
		convey.So(s.Has(4), convey.ShouldBeFalse)

		var empty model.IDSet
		convey.So(empty.Has(1), convey.ShouldBeFalse)
	})
}

func TestProfileClone(t *testing.T) {
	convey.Convey("Given a profile with optional fields and code sets", t, func() {
		p := model.Profile{
			UserID:              7,
			SkillLevel:          model.Float(3.5),
			Age:                 model.Int(28),
			PreferredCourtTypes: []string{"hard"},
		}

		convey.Convey("When the clone is mutated", func() {
			c := p.Clone()
			*c.SkillLevel = 5.0
			*c.Age = 40
			c.PreferredCourtTypes[0] = "grass"

			convey.Convey("Then the original should be unchanged", func() {
				convey.So(*p.SkillLevel, convey.ShouldEqual, 3.5)
				convey.So(*p.Age, convey.ShouldEqual, 28)
				convey.So(p.PreferredCourtTypes, convey.ShouldResemble, []string{"hard"})
				convey.So(c.YearsPlaying, convey.ShouldBeNil)
				convey.So(c.PreferredLanguages, convey.ShouldBeNil)
			})
		})
	})
}
