package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/courtmatch/internal/adapters/repository"
	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// tickingClock advances one minute per call so creation times are ordered.
func tickingClock() func() time.Time {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func timeOfDay(raw string) *model.TimeOfDay {
	t, err := model.ParseTimeOfDay(raw)
	So(err, ShouldBeNil)
	return &t
}

func TestService_CheckIns(t *testing.T) {
	Convey("Given a registered user", t, func() {
		svc, ctx := startedService()
		defer svc.Stop()
		id := register(ctx, svc, "rafa", nil)
		day := time.Date(2024, 3, 5, 18, 30, 0, 0, time.UTC)

		Convey("When checking in with a duration only", func() {
			c, err := svc.SetCheckIn(ctx, id, day, &model.CheckInPatch{Duration: model.Int(45)})

			Convey("Then the check-in should be stored on that date", func() {
				So(err, ShouldBeNil)
				So(c.Date, ShouldEqual, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
				So(c.DurationMinutes, ShouldEqual, 45)
				So(c.Start, ShouldBeNil)
			})

			Convey("Then setting both times should derive the duration", func() {
				c, err := svc.SetCheckIn(ctx, id, day, &model.CheckInPatch{
					SetStart: true, Start: timeOfDay("18:00"),
					SetEnd: true, End: timeOfDay("19:30"),
					Duration: model.Int(10),
				})
				So(err, ShouldBeNil)
				So(c.DurationMinutes, ShouldEqual, 90)

				Convey("And a patch without times should keep them", func() {
					c, err := svc.SetCheckIn(ctx, id, day, &model.CheckInPatch{})
					So(err, ShouldBeNil)
					So(c.Start.String(), ShouldEqual, "18:00")
					So(c.End.String(), ShouldEqual, "19:30")
					So(c.DurationMinutes, ShouldEqual, 90)
				})
			})

			Convey("Then the month listing should include it", func() {
				first, last, err := model.ParseMonth("2024-03")
				So(err, ShouldBeNil)
				list, err := svc.CheckIns(ctx, id, first, last)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 1)

				list, err = svc.CheckIns(ctx, id, first.AddDate(0, 1, 0), last.AddDate(0, 1, 0))
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})

			Convey("Then clearing should remove it and be idempotent", func() {
				So(svc.ClearCheckIn(ctx, id, day), ShouldBeNil)
				So(svc.ClearCheckIn(ctx, id, day), ShouldBeNil)

				first, last := model.MonthBounds(day)
				list, err := svc.CheckIns(ctx, id, first, last)
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When the duration is negative", func() {
			_, err := svc.SetCheckIn(ctx, id, day, &model.CheckInPatch{Duration: model.Int(-5)})

			Convey("Then it should be refused", func() {
				So(errors.Is(err, service.ErrInvalidCheckIn), ShouldBeTrue)
			})
		})

		Convey("When the user does not exist", func() {
			_, err := svc.SetCheckIn(ctx, id+100, day, nil)
			_, listErr := svc.CheckIns(ctx, id+100, day, day)
			clearErr := svc.ClearCheckIn(ctx, id+100, day)

			Convey("Then every call should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
				So(errors.Is(listErr, repository.ErrUserNotFound), ShouldBeTrue)
				So(errors.Is(clearErr, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Chat(t *testing.T) {
	Convey("Given three registered users", t, func() {
		svc, ctx := startedService(service.WithStore(repository.NewMemoryStore(repository.WithClock(tickingClock()))))
		defer svc.Stop()
		a := register(ctx, svc, "alice", func(p *model.Profile) { p.Location = "Austin" })
		b := register(ctx, svc, "bob", nil)
		c := register(ctx, svc, "carol", nil)

		Convey("When a opens a chat with b twice", func() {
			first, err := svc.OpenChat(ctx, a, b)
			So(err, ShouldBeNil)
			second, err := svc.OpenChat(ctx, b, a)
			So(err, ShouldBeNil)

			Convey("Then both calls should return the same thread", func() {
				So(second.Thread.ID, ShouldEqual, first.Thread.ID)
				So(first.Other.User.Username, ShouldEqual, "bob")
				So(second.Other.User.Username, ShouldEqual, "alice")
				So(second.Other.Profile.Location, ShouldEqual, "Austin")
			})

			Convey("Then the thread list should show the other participant", func() {
				_, err := svc.OpenChat(ctx, a, c)
				So(err, ShouldBeNil)

				threads, err := svc.ChatThreads(ctx, a)
				So(err, ShouldBeNil)
				So(len(threads), ShouldEqual, 2)
				So(threads[0].Other.User.Username, ShouldEqual, "carol")
				So(threads[1].Other.User.Username, ShouldEqual, "bob")

				threads, err = svc.ChatThreads(ctx, c)
				So(err, ShouldBeNil)
				So(len(threads), ShouldEqual, 1)
			})

			Convey("Then participants should exchange trimmed messages", func() {
				m1, err := svc.PostMessage(ctx, a, first.Thread.ID, "  hi bob  ")
				So(err, ShouldBeNil)
				So(m1.Message.Content, ShouldEqual, "hi bob")
				So(m1.Sender.User.Username, ShouldEqual, "alice")

				m2, err := svc.PostMessage(ctx, b, first.Thread.ID, "hey")
				So(err, ShouldBeNil)

				all, err := svc.ChatMessages(ctx, b, first.Thread.ID, time.Time{})
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				So(all[0].Message.ID, ShouldEqual, m1.Message.ID)
				So(all[1].Sender.User.Username, ShouldEqual, "bob")

				newer, err := svc.ChatMessages(ctx, a, first.Thread.ID, m1.Message.CreatedAt)
				So(err, ShouldBeNil)
				So(len(newer), ShouldEqual, 1)
				So(newer[0].Message.ID, ShouldEqual, m2.Message.ID)
			})

			Convey("Then an outsider should be refused", func() {
				_, err := svc.ChatMessages(ctx, c, first.Thread.ID, time.Time{})
				So(errors.Is(err, service.ErrNotParticipant), ShouldBeTrue)

				_, err = svc.PostMessage(ctx, c, first.Thread.ID, "let me in")
				So(errors.Is(err, service.ErrNotParticipant), ShouldBeTrue)
			})

			Convey("Then blank content should be refused", func() {
				_, err := svc.PostMessage(ctx, a, first.Thread.ID, " \n\t ")
				So(errors.Is(err, service.ErrEmptyMessage), ShouldBeTrue)
			})
		})

		Convey("When opening a chat with yourself", func() {
			_, err := svc.OpenChat(ctx, a, a)

			Convey("Then it should be refused", func() {
				So(errors.Is(err, service.ErrSelfChat), ShouldBeTrue)
			})
		})

		Convey("When opening a chat with an unknown user", func() {
			_, err := svc.OpenChat(ctx, a, c+100)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading an unknown thread", func() {
			_, err := svc.ChatMessages(ctx, a, model.ThreadID(999), time.Time{})
			_, postErr := svc.PostMessage(ctx, a, model.ThreadID(999), "hello")

			Convey("Then it should report the thread missing", func() {
				So(errors.Is(err, repository.ErrThreadNotFound), ShouldBeTrue)
				So(errors.Is(postErr, repository.ErrThreadNotFound), ShouldBeTrue)
			})
		})
	})
}
