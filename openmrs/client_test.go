package openmrs_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/openmrs"
	openmrsTest "github.com/tidepool-org/vitals-bridge/openmrs/test"
)

func testConfig() openmrs.Config {
	return openmrs.Config{
		RequestTimeout:    5 * time.Second,
		ServerTimeTimeout: time.Second,
		LocalClockSkew:    5 * time.Second,
		VisitEpsilon:      time.Second,
	}
}

var _ = Describe("Client", func() {
	var server *openmrsTest.Server
	var client *openmrs.Client
	var patient openmrs.Patient

	BeforeEach(func() {
		server = openmrsTest.NewServer()
		patient = openmrs.Patient{
			UUID:    "693b80d8-87a1-4cdc-90fe-09047c6428c3",
			Display: "100000Y - Jane Doe",
			Person: openmrs.Person{
				Gender:    "F",
				Birthdate: "1980-01-01T00:00:00.000+0000",
				Names:     []openmrs.PersonName{{GivenName: "Jane", FamilyName: "Doe"}},
			},
		}
		server.AddPatient(patient)

		var err error
		client, err = openmrs.NewClient(testConfig(), server.Credentials(), zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewClient", func() {
		It("requires a base url", func() {
			_, err := openmrs.NewClient(testConfig(), openmrs.Credentials{}, zap.NewNop().Sugar())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Session", func() {
		It("establishes the session once and reuses it", func() {
			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())
			_, err = client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())

			Expect(server.CountOps("GET /session")).To(Equal(1))
			Expect(server.CountOps("GET /patient/" + patient.UUID)).To(Equal(2))
		})

		It("extracts the session id from the session cookie", func() {
			session, err := client.Sessions().Ensure(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(session.Authenticated).To(BeTrue())
			Expect(session.ID).ToNot(BeEmpty())
		})

		It("re-authenticates transparently exactly once when the session expired", func() {
			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())

			server.ExpireSession(1)
			result, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.UUID).To(Equal(patient.UUID))

			Expect(server.CountOps("GET /session")).To(Equal(2))
			Expect(server.CountOps("GET /patient/" + patient.UUID)).To(Equal(3))
		})

		It("doesn't retry more than once when the request is still unauthorized", func() {
			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())

			server.ExpireSession(2)
			_, err = client.GetPatient(context.Background(), patient.UUID)
			Expect(err).To(HaveOccurred())
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindAuthentication))
			Expect(server.CountOps("GET /patient/" + patient.UUID)).To(Equal(3))
		})

		It("shares a single new session between concurrent requests rejected with the same session", func() {
			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())

			server.DropSession()
			server.HoldUntil("GET /patient/"+patient.UUID, 2)

			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := client.GetPatient(context.Background(), patient.UUID)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(server.CountOps("GET /session")).To(Equal(2))
			Expect(server.CountOps("GET /patient/" + patient.UUID)).To(Equal(5))
		})

		It("returns a bad credentials error when the server doesn't authenticate the user", func() {
			credentials := server.Credentials()
			credentials.Password = "wrong"
			client, err := openmrs.NewClient(testConfig(), credentials, zap.NewNop().Sugar())
			Expect(err).ToNot(HaveOccurred())

			_, err = client.GetPatient(context.Background(), patient.UUID)
			Expect(errors.Is(err, openmrs.ErrBadCredentials)).To(BeTrue())
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindAuthentication))
			Expect(server.CountOps("GET /session")).To(Equal(1))
			Expect(server.CountOps("GET /patient/" + patient.UUID)).To(Equal(0))
		})

		It("classifies a failed handshake as transient", func() {
			server.FailNext("GET /session", http.StatusBadGateway)

			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).To(HaveOccurred())
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindTransient))

			By("establishing the session on the next call")
			_, err = client.GetPatient(context.Background(), patient.UUID)
			Expect(err).ToNot(HaveOccurred())
		})

		It("establishes a new session after invalidation", func() {
			_, err := client.Sessions().Ensure(context.Background())
			Expect(err).ToNot(HaveOccurred())

			client.Sessions().Invalidate()
			_, err = client.Sessions().Ensure(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(server.CountOps("GET /session")).To(Equal(2))
		})
	})

	Describe("Errors", func() {
		It("classifies missing resources", func() {
			_, err := client.GetPatient(context.Background(), "aaaaaaaa-87a1-4cdc-90fe-09047c6428c3")
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindNotFound))
		})

		It("classifies server errors as transient", func() {
			server.FailNext("GET /patient/{uuid}", http.StatusInternalServerError)
			_, err := client.GetPatient(context.Background(), patient.UUID)

			var apiErr *openmrs.Error
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Kind).To(Equal(openmrs.KindTransient))
			Expect(apiErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(apiErr.Message).To(ContainSubstring("injected failure"))
		})

		It("classifies network failures as transient", func() {
			server.Close()
			_, err := client.GetPatient(context.Background(), patient.UUID)
			Expect(err).To(HaveOccurred())
			Expect(openmrs.KindOf(err)).To(Equal(openmrs.KindTransient))
		})
	})

	Describe("Registry", func() {
		It("shares a client between equal credentials", func() {
			registry := openmrs.NewRegistry(testConfig(), zap.NewNop().Sugar())
			first, err := registry.ClientFor(server.Credentials())
			Expect(err).ToNot(HaveOccurred())
			second, err := registry.ClientFor(server.Credentials())
			Expect(err).ToNot(HaveOccurred())
			Expect(first).To(BeIdenticalTo(second))

			other := server.Credentials()
			other.Username = "clerk"
			third, err := registry.ClientFor(other)
			Expect(err).ToNot(HaveOccurred())
			Expect(third).ToNot(BeIdenticalTo(first))
		})
	})
})
