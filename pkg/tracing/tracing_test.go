package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/courtmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func init() {
	_ = logger.Init()
}

func TestNewProvider(t *testing.T) {
	Convey("Given a tracing config", t, func() {
		Convey("When tracing is disabled", func() {
			p, err := NewProvider(Config{})

			Convey("Then a no-op provider should be returned", func() {
				So(err, ShouldBeNil)
				So(p.IsEnabled(), ShouldBeFalse)
				So(p.Tracer("x"), ShouldNotBeNil)
				So(p.Shutdown(context.Background()), ShouldBeNil)
			})
		})

		Convey("When the service name is missing", func() {
			_, err := NewProvider(Config{Enabled: true, SamplingRate: 1})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the sampling rate is out of range", func() {
			_, err := NewProvider(Config{Enabled: true, ServiceName: "courtmatch", SamplingRate: 1.5})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestSampler(t *testing.T) {
	Convey("Given sampling rates", t, func() {
		So(Sampler(1).Description(), ShouldContainSubstring, "AlwaysOnSampler")
		So(Sampler(0).Description(), ShouldContainSubstring, "AlwaysOffSampler")
		So(Sampler(0.25).Description(), ShouldContainSubstring, "TraceIDRatioBased")
	})
}

func TestStartSpan(t *testing.T) {
	Convey("Given a recording tracer provider", t, func() {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()

		Convey("When a span ends without error", func() {
			ctx, end := StartSpan(context.Background(), "ranking.best_match", attribute.Int("pool", 3))
			SetAttributes(ctx, attribute.Int("eligible", 2))
			AddEvent(ctx, "scored")
			end(nil)

			Convey("Then it should be recorded with its attributes", func() {
				spans := recorder.Ended()
				So(len(spans), ShouldEqual, 1)
				So(spans[0].Name(), ShouldEqual, "ranking.best_match")
				So(spans[0].Attributes(), ShouldContain, attribute.Int("pool", 3))
				So(spans[0].Attributes(), ShouldContain, attribute.Int("eligible", 2))
				So(len(spans[0].Events()), ShouldEqual, 1)
				So(spans[0].Status().Code, ShouldEqual, codes.Unset)
			})
		})

		Convey("When a span ends with an error", func() {
			_, end := StartSpan(context.Background(), "store.candidates")
			end(errors.New("boom"))

			Convey("Then the error status should be set", func() {
				spans := recorder.Ended()
				So(len(spans), ShouldEqual, 1)
				So(spans[0].Status().Code, ShouldEqual, codes.Error)
				So(spans[0].Status().Description, ShouldEqual, "boom")
			})
		})
	})
}
