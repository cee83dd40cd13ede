package openmrs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/openmrs"
	openmrsTest "github.com/tidepool-org/vitals-bridge/openmrs/test"
)

var _ = Describe("Visits", func() {
	const patientUUID = "693b80d8-87a1-4cdc-90fe-09047c6428c3"

	var server *openmrsTest.Server
	var client *openmrs.Client
	var reference time.Time

	BeforeEach(func() {
		server = openmrsTest.NewServer()
		reference = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		var err error
		client, err = openmrs.NewClient(testConfig(), server.Credentials(), zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("CloseActiveVisits", func() {
		It("only lists the visits when the patient has no active visit", func() {
			stop := reference.Add(-time.Hour)
			server.AddVisit(patientUUID, reference.Add(-2*time.Hour), &stop)

			Expect(client.CloseActiveVisits(context.Background(), patientUUID, reference)).To(Succeed())
			Expect(server.CountOps("GET /visit")).To(Equal(1))
			for _, op := range server.Ops() {
				Expect(op).ToNot(HavePrefix("POST"))
			}
		})

		It("ends active visits one second before the reference time", func() {
			active := server.AddVisit(patientUUID, reference.Add(-time.Hour), nil)

			Expect(client.CloseActiveVisits(context.Background(), patientUUID, reference)).To(Succeed())
			Expect(server.CountOps("POST /visit/" + active.UUID)).To(Equal(1))

			visits := server.Visits(patientUUID)
			Expect(visits).To(HaveLen(1))
			Expect(visits[0].StopDatetime).ToNot(BeNil())
			Expect(visits[0].StopDatetime.Equal(reference.Add(-time.Second))).To(BeTrue())
		})

		It("ignores visits of other patients", func() {
			server.AddVisit("db27db0b-2048-4918-a93a-58b10ba432de", reference.Add(-time.Hour), nil)

			Expect(client.CloseActiveVisits(context.Background(), patientUUID, reference)).To(Succeed())
			Expect(server.CountOps("GET /visit")).To(Equal(1))
			Expect(server.Ops()).To(HaveLen(2))
		})

		It("continues when a visit cannot be ended", func() {
			first := server.AddVisit(patientUUID, reference.Add(-2*time.Hour), nil)
			second := server.AddVisit(patientUUID, reference.Add(-time.Hour), nil)
			server.FailNext("POST /visit/"+first.UUID, http.StatusInternalServerError)

			Expect(client.CloseActiveVisits(context.Background(), patientUUID, reference)).To(Succeed())
			Expect(server.CountOps("POST /visit/" + first.UUID)).To(Equal(1))
			Expect(server.CountOps("POST /visit/" + second.UUID)).To(Equal(1))
		})

		It("returns an error when the visits cannot be listed", func() {
			server.FailNext("GET /visit", http.StatusServiceUnavailable)

			err := client.CloseActiveVisits(context.Background(), patientUUID, reference)
			Expect(err).To(HaveOccurred())
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindTransient))
		})
	})

	Describe("CreateVisit", func() {
		It("creates a visit starting at the reference time", func() {
			visit, err := client.CreateVisit(context.Background(), openmrs.NewVisit{
				Patient:       patientUUID,
				VisitType:     "7b0f5697-27e3-40c4-8bae-f4049abfb4ed",
				StartDatetime: openmrs.NewDateTime(reference),
				Location:      "8639ead4-ad6c-419f-9944-7d92ff32dcac",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(visit.UUID).ToNot(BeEmpty())

			requests := server.Requests()
			body := map[string]interface{}{}
			Expect(json.Unmarshal(requests[len(requests)-1].Body, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("startDatetime", "2024-03-01T10:00:00.000Z"))
			Expect(body).To(HaveKeyWithValue("patient", patientUUID))
		})

		It("classifies a rejected overlapping visit", func() {
			server.AddVisit(patientUUID, reference.Add(-time.Hour), nil)

			_, err := client.CreateVisit(context.Background(), openmrs.NewVisit{
				Patient:       patientUUID,
				VisitType:     "7b0f5697-27e3-40c4-8bae-f4049abfb4ed",
				StartDatetime: openmrs.NewDateTime(reference),
			})
			Expect(err).To(HaveOccurred())
			Expect(openmrs.IsVisitOverlap(err)).To(BeTrue())
		})
	})

	Describe("CreateEncounter", func() {
		It("creates an encounter with observations within the visit", func() {
			visit, err := client.CreateVisit(context.Background(), openmrs.NewVisit{
				Patient:       patientUUID,
				VisitType:     "7b0f5697-27e3-40c4-8bae-f4049abfb4ed",
				StartDatetime: openmrs.NewDateTime(reference),
			})
			Expect(err).ToNot(HaveOccurred())

			encounter, err := client.CreateEncounter(context.Background(), openmrs.NewEncounter{
				Patient:           patientUUID,
				EncounterType:     "67a71486-1a54-468f-ac3e-7091a9a79584",
				EncounterDatetime: openmrs.NewDateTime(reference),
				Visit:             visit.UUID,
				Obs: []openmrs.Obs{
					{Concept: "5087AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Value: 72},
				},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(encounter.UUID).ToNot(BeEmpty())
			Expect(encounter.Obs).To(HaveLen(1))
			Expect(server.Encounters()).To(HaveLen(1))
		})
	})
})
