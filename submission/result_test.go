package submission_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/vitals-bridge/observations"
	"github.com/tidepool-org/vitals-bridge/submission"
	"github.com/tidepool-org/vitals-bridge/types"
)

var _ = Describe("Result", func() {
	result := func(record observations.MeasurementRecord) *submission.Result {
		return &submission.Result{
			Record:       record,
			Observations: observations.Build(record),
		}
	}

	It("summarizes the mock measurements", func() {
		summary := result(observations.MockRecord(time.Time{})).Summary()
		Expect(summary).To(HavePrefix("Measurement data sent to OpenMRS successfully!"))
		Expect(summary).To(ContainSubstring("Heart Rate: 72 BPM"))
		Expect(summary).To(ContainSubstring("Blood Pressure: 118/78 mmHg"))
		Expect(summary).To(ContainSubstring("Breathing Rate: 16 BPM"))
		Expect(summary).To(ContainSubstring("HRV SDNN: 42.5 ms (not recorded in OpenMRS)"))
		Expect(summary).ToNot(ContainSubstring("adjusted"))
	})

	It("lists the values as they were recorded", func() {
		summary := result(observations.MeasurementRecord{
			HeartRateBpm:     types.Ptr(-5.0),
			SystolicMmHg:     types.Ptr(300.0),
			BreathingRateBpm: types.Ptr(16.0),
		}).Summary()

		Expect(summary).ToNot(ContainSubstring("Heart Rate"))
		Expect(summary).To(ContainSubstring("Systolic Blood Pressure: 250 mmHg"))
		Expect(summary).To(ContainSubstring("Breathing Rate: 16 BPM"))
		Expect(summary).To(ContainSubstring("Some values were outside of the accepted range and were adjusted."))
	})

	It("lists the rounded values", func() {
		summary := result(observations.MeasurementRecord{
			HeartRateBpm:  types.Ptr(71.6),
			DiastolicMmHg: types.Ptr(79.5),
		}).Summary()

		Expect(summary).To(ContainSubstring("Heart Rate: 72 BPM"))
		Expect(summary).To(ContainSubstring("Diastolic Blood Pressure: 80 mmHg"))
		Expect(summary).ToNot(ContainSubstring("HRV"))
	})
})
