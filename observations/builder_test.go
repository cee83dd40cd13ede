package observations_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	gomegaTypes "github.com/onsi/gomega/types"

	"github.com/tidepool-org/vitals-bridge/observations"
	"github.com/tidepool-org/vitals-bridge/openmrs"
	"github.com/tidepool-org/vitals-bridge/test"
	"github.com/tidepool-org/vitals-bridge/types"
)

func observation(concept string, value float64) gomegaTypes.GomegaMatcher {
	return MatchFields(IgnoreExtras, Fields{
		"Concept": Equal(concept),
		"Value":   Equal(value),
	})
}

var _ = Describe("Build", func() {
	It("maps the mock record to four observations in concept table order", func() {
		record := observations.MockRecord(time.Now())

		Expect(observations.Build(record)).To(HaveExactElements(
			observation(observations.HeartRateConcept, 72),
			observation(observations.SystolicBPConcept, 118),
			observation(observations.DiastolicBPConcept, 78),
			observation(observations.BreathingRateConcept, 16),
		))
		Expect(record.Unmapped()).To(ConsistOf("hrv_sdnn_ms"))
	})

	It("clamps values outside of the accepted range", func() {
		record := observations.MeasurementRecord{HeartRateBpm: types.Ptr(250.0)}

		result := observations.Build(record)
		Expect(result).To(HaveLen(1))
		Expect(result[0].Concept).To(Equal(observations.HeartRateConcept))
		Expect(result[0].Value).To(Equal(200.0))
		Expect(result[0].Clamped).To(BeTrue())
	})

	It("clamps low values to the minimum", func() {
		record := observations.MeasurementRecord{BreathingRateBpm: types.Ptr(3.0)}
		Expect(observations.Build(record)).To(HaveExactElements(observation(observations.BreathingRateConcept, 8)))
	})

	It("rounds values to the nearest integer", func() {
		record := observations.MeasurementRecord{
			HeartRateBpm:  types.Ptr(71.5),
			SystolicMmHg:  types.Ptr(118.4),
			DiastolicMmHg: types.Ptr(78.6),
		}

		result := observations.Build(record)
		Expect(result).To(HaveExactElements(
			observation(observations.HeartRateConcept, 72),
			observation(observations.SystolicBPConcept, 118),
			observation(observations.DiastolicBPConcept, 79),
		))
		for _, o := range result {
			Expect(o.Clamped).To(BeFalse())
		}
	})

	DescribeTable("skips values which are not usable",
		func(value *float64) {
			record := observations.MeasurementRecord{HeartRateBpm: value}
			result := observations.Build(record)
			Expect(result).ToNot(BeNil())
			Expect(result).To(BeEmpty())
		},
		Entry("missing", nil),
		Entry("zero", types.Ptr(0.0)),
		Entry("negative", types.Ptr(-12.0)),
		Entry("not a number", types.Ptr(math.NaN())),
		Entry("infinite", types.Ptr(math.Inf(1))),
	)

	It("doesn't record the hrv", func() {
		record := observations.MeasurementRecord{HrvSdnnMs: types.Ptr(42.5)}
		Expect(observations.Build(record)).To(BeEmpty())
		Expect(record.Unmapped()).To(ConsistOf("hrv_sdnn_ms"))
	})

	It("finds the mapping of a concept", func() {
		mapping, ok := observations.MappingFor(observations.SystolicBPConcept)
		Expect(ok).To(BeTrue())
		Expect(mapping.Label).To(Equal("Systolic Blood Pressure"))
		Expect(mapping.Unit).To(Equal("mmHg"))

		_, ok = observations.MappingFor("1234AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		Expect(ok).To(BeFalse())
	})

	It("builds observations from a scanner result", func() {
		record, err := test.LoadJSONFixture[observations.MeasurementRecord]("test/fixtures/scanner_result.json")
		Expect(err).ToNot(HaveOccurred())
		Expect(record.CapturedAt).To(Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

		Expect(observations.Build(record)).To(HaveExactElements(
			observation(observations.HeartRateConcept, 72),
			observation(observations.SystolicBPConcept, 121),
			observation(observations.DiastolicBPConcept, 80),
			observation(observations.BreathingRateConcept, 15),
		))
	})

	It("builds observations from a partial scanner result", func() {
		record, err := test.LoadJSONFixture[observations.MeasurementRecord]("test/fixtures/partial_result.json")
		Expect(err).ToNot(HaveOccurred())
		Expect(record.BreathingRateBpm).To(BeNil())
		Expect(record.Unmapped()).To(BeEmpty())

		result := observations.Build(record)
		Expect(result).To(HaveLen(1))
		Expect(result[0]).To(observation(observations.HeartRateConcept, 200))
	})

	It("converts observations to the encounter payload", func() {
		obs := observations.ToObs(observations.Build(observations.MockRecord(time.Now())))
		Expect(obs).To(HaveLen(4))
		Expect(obs[0]).To(Equal(openmrs.Obs{Concept: observations.HeartRateConcept, Value: 72}))
	})
})
