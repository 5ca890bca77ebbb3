package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/courtmatch/internal/adapters/repository"
	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func startedService(opts ...service.Option) (*service.Service, context.Context) {
	svc := service.New(opts...)
	ctx := context.Background()
	So(svc.Start(ctx), ShouldBeNil)
	return svc, ctx
}

func register(ctx context.Context, svc *service.Service, name string, edit func(*model.Profile)) model.UserID {
	u, err := svc.RegisterUser(ctx, name)
	So(err, ShouldBeNil)
	if edit != nil {
		_, err = svc.UpdateProfile(ctx, u.ID, edit)
		So(err, ShouldBeNil)
	}
	return u.ID
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats(context.Background())
			So(stats["queueSize"], ShouldEqual, 4096)
			So(stats["fanoutThreshold"], ShouldEqual, 64)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithFanoutThreshold(16),
			service.WithStore(repository.NewMemoryStore()),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats(context.Background())
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["fanoutThreshold"], ShouldEqual, 16)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		defer svc.Stop()

		Convey("When calling it before Start", func() {
			_, err := svc.RegisterUser(context.Background(), "early")

			Convey("Then it should report that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["workers"], ShouldEqual, 2)
				So(stats["registeredUsers"], ShouldEqual, 0)
			})

			Convey("Then workers should survive the start context", func() {
				cancel()
				_, err := svc.RegisterUser(context.Background(), "late")
				So(err, ShouldBeNil)
			})

			Convey("And stopping it", func() {
				svc.Stop()
				svc.Stop()

				Convey("Then it should be marked as stopped", func() {
					So(svc.GetStats(context.Background())["started"], ShouldEqual, false)
				})
			})
		})
	})
}

func TestService_Users(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService()
		defer svc.Stop()

		Convey("When registering a user", func() {
			u, err := svc.RegisterUser(ctx, "  serena ")

			Convey("Then the user should get an empty profile", func() {
				So(err, ShouldBeNil)
				So(u.Username, ShouldEqual, "serena")

				detail, err := svc.UserDetail(ctx, u.ID)
				So(err, ShouldBeNil)
				So(detail.User.Username, ShouldEqual, "serena")
				So(detail.Profile, ShouldNotBeNil)
				So(detail.Profile.SkillLevel, ShouldBeNil)
			})

			Convey("Then a second registration should conflict", func() {
				_, err := svc.RegisterUser(ctx, "serena")
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When registering invalid usernames", func() {
			for _, name := range []string{"", "   ", "has space", "semi;colon"} {
				_, err := svc.RegisterUser(ctx, name)
				So(errors.Is(err, service.ErrInvalidUsername), ShouldBeTrue)
			}

			Convey("Then allowed punctuation should pass", func() {
				_, err := svc.RegisterUser(ctx, "a.b+c-d_e@f")
				So(err, ShouldBeNil)
			})
		})

		Convey("When looking up an unknown user", func() {
			_, err := svc.UserDetail(ctx, 999)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_UpdateProfile(t *testing.T) {
	Convey("Given a registered user", t, func() {
		svc, ctx := startedService()
		defer svc.Stop()
		id := register(ctx, svc, "rafa", nil)

		Convey("When applying successive partial updates", func() {
			_, err := svc.UpdateProfile(ctx, id, func(p *model.Profile) {
				p.SkillLevel = model.Float(4.5)
				p.Location = "Mallorca"
			})
			So(err, ShouldBeNil)
			_, err = svc.UpdateProfile(ctx, id, func(p *model.Profile) {
				p.PreferredCourtTypes = []string{"clay"}
			})
			So(err, ShouldBeNil)

			Convey("Then earlier fields should be kept", func() {
				p, err := svc.Profile(ctx, id)
				So(err, ShouldBeNil)
				So(*p.SkillLevel, ShouldEqual, 4.5)
				So(p.Location, ShouldEqual, "Mallorca")
				So(p.PreferredCourtTypes, ShouldResemble, []string{"clay"})
				So(p.UserID, ShouldEqual, id)
			})
		})

		Convey("When the update tries to change the owner", func() {
			p, err := svc.UpdateProfile(ctx, id, func(p *model.Profile) { p.UserID = 12345 })

			Convey("Then the owner should be preserved", func() {
				So(err, ShouldBeNil)
				So(p.UserID, ShouldEqual, id)
			})
		})

		Convey("When updating an unknown user", func() {
			_, err := svc.UpdateProfile(ctx, 999, nil)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Friends(t *testing.T) {
	Convey("Given three registered users", t, func() {
		svc, ctx := startedService()
		defer svc.Stop()
		a := register(ctx, svc, "a", nil)
		b := register(ctx, svc, "b", nil)
		c := register(ctx, svc, "c", nil)

		Convey("When a befriends c then b", func() {
			f, err := svc.AddFriend(ctx, a, c)
			So(err, ShouldBeNil)
			So(f.User.ID, ShouldEqual, c)
			_, err = svc.AddFriend(ctx, a, b)
			So(err, ShouldBeNil)

			Convey("Then a's friends should be listed by id", func() {
				friends, err := svc.Friends(ctx, a)
				So(err, ShouldBeNil)
				So(len(friends), ShouldEqual, 2)
				So(friends[0].User.ID, ShouldEqual, b)
				So(friends[1].User.ID, ShouldEqual, c)
			})

			Convey("Then the friendship should be one way", func() {
				friends, err := svc.Friends(ctx, c)
				So(err, ShouldBeNil)
				So(len(friends), ShouldEqual, 0)
			})

			Convey("Then removing should be idempotent", func() {
				So(svc.RemoveFriend(ctx, a, b), ShouldBeNil)
				So(svc.RemoveFriend(ctx, a, b), ShouldBeNil)
				friends, err := svc.Friends(ctx, a)
				So(err, ShouldBeNil)
				So(len(friends), ShouldEqual, 1)
			})
		})

		Convey("When befriending yourself", func() {
			_, err := svc.AddFriend(ctx, a, a)

			Convey("Then it should be refused", func() {
				So(errors.Is(err, service.ErrSelfFriend), ShouldBeTrue)
			})
		})

		Convey("When befriending an unknown user", func() {
			_, err := svc.AddFriend(ctx, a, 999)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Matching(t *testing.T) {
	Convey("Given a requester and three candidates", t, func() {
		svc, ctx := startedService()
		defer svc.Stop()

		me := register(ctx, svc, "me", func(p *model.Profile) {
			p.SkillLevel = model.Float(4.0)
			p.Age = model.Int(30)
			p.PreferredCourtTypes = []string{"hard", "clay"}
			p.Location = "SF"
		})
		closest := register(ctx, svc, "close", func(p *model.Profile) {
			p.SkillLevel = model.Float(4.5)
			p.Age = model.Int(32)
			p.PreferredCourtTypes = []string{"hard"}
			p.Location = "San Francisco"
		})
		near := register(ctx, svc, "near", func(p *model.Profile) {
			p.PreferredCourtTypes = []string{"hard", "clay"}
		})
		far := register(ctx, svc, "far", func(p *model.Profile) {
			p.Location = "Tokyo"
		})

		Convey("When asking for a recommendation", func() {
			best, err := svc.Recommend(ctx, me, nil)

			Convey("Then the closest player should win", func() {
				So(err, ShouldBeNil)
				So(best.UserID, ShouldEqual, closest)
				So(best.Score, ShouldAlmostEqual, 7.368, 0.001)
			})
		})

		Convey("When the best player is a friend", func() {
			_, err := svc.AddFriend(ctx, me, closest)
			So(err, ShouldBeNil)
			best, err := svc.Recommend(ctx, me, nil)

			Convey("Then the next best should be recommended", func() {
				So(err, ShouldBeNil)
				So(best.UserID, ShouldEqual, near)
				So(best.Score, ShouldEqual, 4.0)
			})
		})

		Convey("When listing candidates", func() {
			ranked, err := svc.Candidates(ctx, me, nil, 2)

			Convey("Then the top two should come back in order", func() {
				So(err, ShouldBeNil)
				So(len(ranked), ShouldEqual, 2)
				So(ranked[0].UserID, ShouldEqual, closest)
				So(ranked[1].UserID, ShouldEqual, near)
			})
		})

		Convey("When every other player is excluded", func() {
			_, err := svc.Recommend(ctx, me, []model.UserID{closest, near, far})
			So(errors.Is(err, service.ErrNoCandidates), ShouldBeTrue)

			ranked, err := svc.Candidates(ctx, me, []model.UserID{closest, near, far}, 8)

			Convey("Then candidates should be empty without error", func() {
				So(err, ShouldBeNil)
				So(len(ranked), ShouldEqual, 0)
			})
		})

		Convey("When only zero-score players remain", func() {
			best, err := svc.Recommend(ctx, me, []model.UserID{closest, near})

			Convey("Then the first of them should still be returned", func() {
				So(err, ShouldBeNil)
				So(best.UserID, ShouldEqual, far)
				So(best.Score, ShouldEqual, 0)
			})
		})

		Convey("When the caller is unknown", func() {
			_, err := svc.Recommend(ctx, 999, nil)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a requester without a stored profile", t, func() {
		store := repository.NewMemoryStore()
		svc, ctx := startedService(service.WithStore(store))
		defer svc.Stop()

		u, err := store.CreateUser(ctx, "bare")
		So(err, ShouldBeNil)

		Convey("When asking for matches", func() {
			_, recErr := svc.Recommend(ctx, u.ID, nil)
			_, candErr := svc.Candidates(ctx, u.ID, nil, 8)

			Convey("Then both should report the missing profile", func() {
				So(errors.Is(recErr, service.ErrProfileNotFound), ShouldBeTrue)
				So(errors.Is(candErr, service.ErrProfileNotFound), ShouldBeTrue)
			})
		})
	})
}
