package openmrs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

func (c *Client) ListVisits(ctx context.Context, patientUUID string) ([]Visit, error) {
	visits := Results[Visit]{}
	query := url.Values{
		"v":       []string{"default"},
		"patient": []string{patientUUID},
	}
	if err := c.get(ctx, "/visit", query, &visits); err != nil {
		return nil, err
	}
	return visits.Results, nil
}

// CloseActiveVisits ends all visits of the patient which haven't been ended yet. The visits are ended
// slightly before the reference time so a new visit starting at the reference time doesn't overlap
// them. Failures to close individual visits are logged and ignored, only a failure to list the
// visits is returned.
func (c *Client) CloseActiveVisits(ctx context.Context, patientUUID string, referenceTime time.Time) error {
	visits, err := c.ListVisits(ctx, patientUUID)
	if err != nil {
		return fmt.Errorf("unable to list visits of patient %v: %w", patientUUID, err)
	}

	stopDatetime := referenceTime.Add(-c.config.VisitEpsilon)
	var active, closed int
	for _, visit := range visits {
		if !visit.IsActive() {
			continue
		}

		active++
		if _, err := c.CloseVisit(ctx, visit.UUID, stopDatetime); err != nil {
			c.logger.Warnw("failed to end existing visit", "patientUuid", patientUUID, "visitUuid", visit.UUID, zap.Error(err))
			continue
		}
		closed++
	}

	if active > 0 {
		c.logger.Infow("ended active visits", "patientUuid", patientUUID, "active", active, "closed", closed)
	}
	return nil
}

func (c *Client) CreateVisit(ctx context.Context, visit NewVisit) (*Visit, error) {
	created := &Visit{}
	if err := c.post(ctx, "/visit", visit, created); err != nil {
		return nil, err
	}
	if created.UUID == "" {
		return nil, &Error{Kind: KindTransient, Op: "POST /visit", Err: errors.New("response did not contain a visit uuid")}
	}
	return created, nil
}

func (c *Client) CloseVisit(ctx context.Context, visitUUID string, stopDatetime time.Time) (*Visit, error) {
	closed := &Visit{}
	body := VisitStop{StopDatetime: NewDateTime(stopDatetime)}
	if err := c.post(ctx, "/visit/"+url.PathEscape(visitUUID), body, closed); err != nil {
		return nil, err
	}
	return closed, nil
}

func (c *Client) CreateEncounter(ctx context.Context, encounter NewEncounter) (*Encounter, error) {
	created := &Encounter{}
	if err := c.post(ctx, "/encounter", encounter, created); err != nil {
		return nil, err
	}
	return created, nil
}
