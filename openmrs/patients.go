package openmrs

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	threadiness         = 4
	patientFetchTimeout = 10 * time.Second
)

func (c *Client) GetPatient(ctx context.Context, patientUUID string) (*Patient, error) {
	patient := &Patient{}
	if err := c.get(ctx, "/patient/"+url.PathEscape(patientUUID), nil, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// GetPatients fetches the patients concurrently. Patients which cannot be fetched are logged and
// left out of the result.
func (c *Client) GetPatients(ctx context.Context, patientUUIDs []string) ([]Patient, error) {
	fetched := make([]*Patient, len(patientUUIDs))

	sem := semaphore.NewWeighted(threadiness)
	eg, egCtx := errgroup.WithContext(ctx)

	for i, patientUUID := range patientUUIDs {
		if err := sem.Acquire(egCtx, 1); err != nil {
			c.logger.Errorw("failed to acquire semaphore", zap.Error(err))
			break
		}

		eg.Go(func() error {
			defer sem.Release(1)
			pCtx, cancel := context.WithTimeout(egCtx, patientFetchTimeout)
			defer cancel()

			patient, err := c.GetPatient(pCtx, patientUUID)
			if err != nil {
				c.logger.Warnw("error fetching patient", "patientUuid", patientUUID, zap.Error(err))
				return nil
			}
			fetched[i] = patient
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patients := make([]Patient, 0, len(patientUUIDs))
	for _, patient := range fetched {
		if patient != nil {
			patients = append(patients, *patient)
		}
	}
	return patients, nil
}

func (c *Client) GetPatientsByLocation(ctx context.Context, locationUUID string) ([]Patient, error) {
	patients := Results[Patient]{}
	query := url.Values{"location": []string{locationUUID}}
	if err := c.get(ctx, "/patient", query, &patients); err != nil {
		return nil, err
	}
	return patients.Results, nil
}

// GetLocations returns the location configured for the credentials. Locations are not fetched from
// the server.
func (c *Client) GetLocations() []Location {
	return []Location{{
		UUID:        c.credentials.Location(),
		Name:        "Preset Location",
		Description: "Default location for patient access",
	}}
}

// TestConnection verifies the server can be reached with the credentials. Preset servers are tested
// by fetching one of their known patients, custom servers by establishing a session.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.ClockSkew(ctx); err != nil {
		c.logger.Warnw("unable to compare server and local time", zap.Error(err))
	}

	server, ok := LookupServer(c.credentials.BaseURL)
	if !ok {
		c.sessions.Invalidate()
		_, err := c.sessions.Ensure(ctx)
		return err
	}
	if len(server.PatientUUIDs) == 0 {
		return errors.New("no patient uuids are configured for server " + server.BaseURL)
	}

	_, err := c.GetPatient(ctx, server.PatientUUIDs[0])
	return err
}
