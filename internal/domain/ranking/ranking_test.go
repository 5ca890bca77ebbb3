package ranking_test

import (
	"context"
	"errors"
	"testing"

	model "github.com/okian/courtmatch/internal/domain/model"
	ranking "github.com/okian/courtmatch/internal/domain/ranking"
	scoring "github.com/okian/courtmatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// courtProfile shares n court types with the requester below.
func courtProfile(n int) *model.Profile {
	all := []string{"hard", "clay", "grass"}
	return &model.Profile{PreferredCourtTypes: all[:n]}
}

func requester() *model.Profile {
	return &model.Profile{PreferredCourtTypes: []string{"hard", "clay", "grass"}}
}

type stubFanout struct {
	calls  int
	err    error
	scores []float64
}

func (f *stubFanout) ScoreAll(_ context.Context, _ *model.Profile, candidates []*model.Profile) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	out := make([]float64, len(candidates))
	s := scoring.NewMatchScorer()
	for i, c := range candidates {
		out[i] = s.Score(requester(), c)
	}
	return out, nil
}

func TestRanker_RankedCandidates(t *testing.T) {
	Convey("Given a ranker and a pool of three candidates", t, func() {
		ctx := context.Background()
		r := ranking.New()
		pool := []model.Candidate{
			{UserID: 1, Profile: courtProfile(1)},
			{UserID: 2, Profile: courtProfile(3)},
			{UserID: 3, Profile: courtProfile(2)},
		}

		Convey("When asking for the top two", func() {
			out := r.RankedCandidates(ctx, requester(), pool, nil, 2)

			Convey("Then it should return the two best in descending order", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].UserID, ShouldEqual, model.UserID(2))
				So(out[0].Score, ShouldEqual, 6.0)
				So(out[1].UserID, ShouldEqual, model.UserID(3))
				So(out[1].Score, ShouldEqual, 4.0)
			})
		})

		Convey("When the best candidate is excluded", func() {
			out := r.RankedCandidates(ctx, requester(), pool, model.NewIDSet(2), 25)

			Convey("Then it should never appear", func() {
				So(len(out), ShouldEqual, 2)
				for _, c := range out {
					So(c.UserID, ShouldNotEqual, model.UserID(2))
				}
			})
		})

		Convey("When a candidate has no profile", func() {
			pool = append(pool, model.Candidate{UserID: 4})
			out := r.RankedCandidates(ctx, requester(), pool, nil, 25)

			Convey("Then it should be skipped silently", func() {
				So(len(out), ShouldEqual, 3)
			})
		})

		Convey("When candidates tie", func() {
			tied := []model.Candidate{
				{UserID: 7, Profile: courtProfile(1)},
				{UserID: 5, Profile: courtProfile(1)},
				{UserID: 9, Profile: courtProfile(2)},
				{UserID: 6, Profile: courtProfile(1)},
			}
			out := r.RankedCandidates(ctx, requester(), tied, nil, 25)

			Convey("Then equal scores should keep pool order", func() {
				ids := []model.UserID{out[0].UserID, out[1].UserID, out[2].UserID, out[3].UserID}
				So(ids, ShouldResemble, []model.UserID{9, 7, 5, 6})
			})
		})

		Convey("When the limit is out of range", func() {
			big := make([]model.Candidate, 0, 30)
			for i := 1; i <= 30; i++ {
				big = append(big, model.Candidate{UserID: model.UserID(i), Profile: courtProfile(1)})
			}

			Convey("Then zero should behave as one", func() {
				So(len(r.RankedCandidates(ctx, requester(), big, nil, 0)), ShouldEqual, 1)
			})

			Convey("Then a hundred should behave as twenty-five", func() {
				So(len(r.RankedCandidates(ctx, requester(), big, nil, 100)), ShouldEqual, 25)
			})

			Convey("Then a missing limit should behave as eight", func() {
				So(len(r.RankedCandidates(ctx, requester(), big, nil, ranking.ParseLimit(""))), ShouldEqual, 8)
			})
		})

		Convey("When nothing is eligible", func() {
			out := r.RankedCandidates(ctx, requester(), pool, model.NewIDSet(1, 2, 3), 8)

			Convey("Then it should return an empty sequence", func() {
				So(out, ShouldNotBeNil)
				So(len(out), ShouldEqual, 0)
			})
		})
	})
}

func TestRanker_BestMatch(t *testing.T) {
	Convey("Given a ranker", t, func() {
		ctx := context.Background()
		r := ranking.New()

		Convey("When the pool has a clear winner", func() {
			pool := []model.Candidate{
				{UserID: 1, Profile: courtProfile(1)},
				{UserID: 2, Profile: courtProfile(3)},
			}
			best, ok := r.BestMatch(ctx, requester(), pool, nil)

			Convey("Then it should be selected", func() {
				So(ok, ShouldBeTrue)
				So(best.UserID, ShouldEqual, model.UserID(2))
				So(best.Score, ShouldEqual, 6.0)
			})
		})

		Convey("When every candidate scores zero", func() {
			pool := []model.Candidate{
				{UserID: 4, Profile: &model.Profile{}},
				{UserID: 3, Profile: &model.Profile{}},
			}
			best, ok := r.BestMatch(ctx, requester(), pool, nil)

			Convey("Then the first seen should still win", func() {
				So(ok, ShouldBeTrue)
				So(best.UserID, ShouldEqual, model.UserID(4))
				So(best.Score, ShouldEqual, 0.0)
			})
		})

		Convey("When the winner is excluded", func() {
			pool := []model.Candidate{
				{UserID: 1, Profile: courtProfile(1)},
				{UserID: 2, Profile: courtProfile(3)},
			}
			best, ok := r.BestMatch(ctx, requester(), pool, model.NewIDSet(2))

			Convey("Then the next best should be returned", func() {
				So(ok, ShouldBeTrue)
				So(best.UserID, ShouldEqual, model.UserID(1))
			})
		})

		Convey("When the pool is empty", func() {
			_, ok := r.BestMatch(ctx, requester(), nil, nil)

			Convey("Then nothing should be returned", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When no candidate has a profile", func() {
			_, ok := r.BestMatch(ctx, requester(), []model.Candidate{{UserID: 1}}, nil)

			Convey("Then nothing should be returned", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestRanker_Fanout(t *testing.T) {
	Convey("Given a ranker with a fan-out threshold of two", t, func() {
		ctx := context.Background()
		pool := []model.Candidate{
			{UserID: 1, Profile: courtProfile(1)},
			{UserID: 2, Profile: courtProfile(3)},
			{UserID: 3, Profile: courtProfile(2)},
		}

		Convey("When the fan-out succeeds", func() {
			f := &stubFanout{}
			r := ranking.New(ranking.WithFanout(f, 2))
			out := r.RankedCandidates(ctx, requester(), pool, nil, 3)

			Convey("Then its scores should be used", func() {
				So(f.calls, ShouldEqual, 1)
				So(out[0].UserID, ShouldEqual, model.UserID(2))
			})
		})

		Convey("When the fan-out fails", func() {
			f := &stubFanout{err: errors.New("pool stopped")}
			r := ranking.New(ranking.WithFanout(f, 2))
			out := r.RankedCandidates(ctx, requester(), pool, nil, 3)

			Convey("Then scoring should fall back inline", func() {
				So(f.calls, ShouldEqual, 1)
				So(len(out), ShouldEqual, 3)
				So(out[0].Score, ShouldEqual, 6.0)
			})
		})

		Convey("When the fan-out returns the wrong number of scores", func() {
			f := &stubFanout{scores: []float64{1}}
			r := ranking.New(ranking.WithFanout(f, 2))
			best, ok := r.BestMatch(ctx, requester(), pool, nil)

			Convey("Then scoring should fall back inline", func() {
				So(ok, ShouldBeTrue)
				So(best.UserID, ShouldEqual, model.UserID(2))
			})
		})

		Convey("When the eligible pool is below the threshold", func() {
			f := &stubFanout{}
			r := ranking.New(ranking.WithFanout(f, 10))
			r.RankedCandidates(ctx, requester(), pool, nil, 3)

			Convey("Then the fan-out should not be used", func() {
				So(f.calls, ShouldEqual, 0)
			})
		})
	})
}

func TestParseLimit(t *testing.T) {
	Convey("Given raw limit values", t, func() {
		So(ranking.ParseLimit(""), ShouldEqual, 8)
		So(ranking.ParseLimit("abc"), ShouldEqual, 8)
		So(ranking.ParseLimit("2.5"), ShouldEqual, 8)
		So(ranking.ParseLimit(" 12 "), ShouldEqual, 12)
		So(ranking.ParseLimit("0"), ShouldEqual, 1)
		So(ranking.ParseLimit("-4"), ShouldEqual, 1)
		So(ranking.ParseLimit("100"), ShouldEqual, 25)

		Convey("When the value overflows int it should still be clamped", func() {
			So(ranking.ParseLimit("99999999999999999999"), ShouldEqual, 25)
			So(ranking.ParseLimit("+99999999999999999999"), ShouldEqual, 25)
			So(ranking.ParseLimit("-99999999999999999999"), ShouldEqual, 1)
		})
	})
}
