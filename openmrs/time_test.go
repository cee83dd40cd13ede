package openmrs_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/openmrs"
	openmrsTest "github.com/tidepool-org/vitals-bridge/openmrs/test"
)

var _ = Describe("Reference time", func() {
	var server *openmrsTest.Server
	var client *openmrs.Client
	var localClock *clock.Mock

	BeforeEach(func() {
		server = openmrsTest.NewServer()
		localClock = clock.NewMock()
		localClock.Set(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

		var err error
		client, err = openmrs.NewClient(testConfig(), server.Credentials(), zap.NewNop().Sugar(), openmrs.WithClock(localClock))
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("uses the server time when it's available", func() {
		serverTime := time.Date(2024, 3, 1, 9, 58, 30, 250*int(time.Millisecond), time.UTC)
		server.SetServerTime(serverTime)

		Expect(client.ResolveReferenceTime(context.Background()).Equal(serverTime)).To(BeTrue())
	})

	It("falls back to the adjusted local time when the setting is missing", func() {
		reference := client.ResolveReferenceTime(context.Background())
		Expect(reference).To(Equal(localClock.Now().Add(-5 * time.Second)))
	})

	It("falls back to the adjusted local time when the server fails", func() {
		server.SetServerTime(time.Date(2024, 3, 1, 9, 58, 30, 0, time.UTC))
		server.FailNext("GET /systemsetting", http.StatusInternalServerError)

		reference := client.ResolveReferenceTime(context.Background())
		Expect(reference).To(Equal(localClock.Now().Add(-5 * time.Second)))
	})

	It("returns an error when the setting is missing", func() {
		_, err := client.ServerTime(context.Background())
		Expect(errors.Is(err, openmrs.ErrServerTimeUnavailable)).To(BeTrue())
	})

	It("computes the clock skew", func() {
		server.SetServerTime(localClock.Now().Add(90 * time.Second))

		skew, err := client.ClockSkew(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(skew).To(Equal(90 * time.Second))
	})
})

var _ = Describe("ParseDateTime", func() {
	DescribeTable("parses the formats returned by the server",
		func(value string, expected time.Time) {
			parsed, err := openmrs.ParseDateTime(value)
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed.Equal(expected)).To(BeTrue())
		},
		Entry("numeric offset with millis", "2024-03-01T10:15:30.500+0100", time.Date(2024, 3, 1, 9, 15, 30, 500*int(time.Millisecond), time.UTC)),
		Entry("RFC3339", "2024-03-01T10:15:30Z", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)),
		Entry("space separated", "2024-03-01 10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)),
		Entry("date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	)

	It("rejects garbage", func() {
		_, err := openmrs.ParseDateTime("yesterday")
		Expect(err).To(HaveOccurred())
	})

	It("formats date times in UTC with millisecond precision", func() {
		location := time.FixedZone("CET", 3600)
		dt := openmrs.NewDateTime(time.Date(2024, 3, 1, 10, 15, 30, 0, location))
		Expect(dt.String()).To(Equal("2024-03-01T09:15:30.000Z"))

		data, err := dt.MarshalJSON()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(`"2024-03-01T09:15:30.000Z"`))
	})
})
