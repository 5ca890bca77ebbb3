package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register under the courtmatch namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.candidatesScored.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "courtmatch_matching_candidates_scored_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should apply", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "courtmatch")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording match metrics", func() {
			before := testutil.ToFloat64(current().matchRequests.WithLabelValues("recommend", "ok"))
			RecordMatchRequest("recommend", "ok")
			scoredBefore := testutil.ToFloat64(current().candidatesScored)
			RecordCandidatesScored(5)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(current().matchRequests.WithLabelValues("recommend", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(current().candidatesScored), ShouldEqual, scoredBefore+5)
			})
		})

		Convey("When setting gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateRegisteredUsers(42)
			UpdateWorkerCount(4)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(current().queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(current().queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(current().registeredUsers), ShouldEqual, 42)
				So(testutil.ToFloat64(current().workerCount), ShouldEqual, 4)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordRankingLatency("candidates", 1.5)
					RecordCandidatePoolSize(12)
					RecordTopScore("recommend", 7.3)
					RecordUserRegistered()
					RecordHTTPRequest("/match/recommend", "GET", "200")
					RecordHTTPRequestDuration("/match/recommend", "GET", "200", 3)
					RecordStoreLatency("memory", "candidates", 0.2)
					UpdateQueueUtilization(0.7)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordWorkerJob()
					UpdateWorkerJobsPerSecond(12)
					RecordWorkerProcessingLatency(0.1)
					RecordInlineFallback()
					RecordCheckIn("set")
					RecordThreadOpened()
					RecordMessagePosted()
					RecordErrorByComponent("store", "timeout")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it should succeed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global metrics reconfigured with a namespace", t, func() {
		Configure(WithNamespace("club"), WithSubsystem("ranking"))
		Reset(func() { Configure() })

		Convey("When recording a metric", func() {
			RecordCandidatesScored(2)

			Convey("Then the registry should expose it under the new prefix", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "club_ranking_candidates_scored_total")
				So(names, ShouldNotContain, "courtmatch_matching_candidates_scored_total")
				So(testutil.ToFloat64(current().candidatesScored), ShouldEqual, 2)
			})
		})
	})
}
