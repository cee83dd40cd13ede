package openmrs

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	serverDateTimeSetting = "systemDateTime"

	// Skew above which server and local clocks are considered out of sync
	clockSkewWarningThreshold = 60 * time.Second
)

// ResolveReferenceTime returns the time records are timestamped with. The server clock is preferred.
// When it's not available, the local clock shifted into the past is used. It never fails.
func (c *Client) ResolveReferenceTime(ctx context.Context) time.Time {
	serverTime, err := c.ServerTime(ctx)
	if err == nil {
		c.logger.Debugw("using server time as reference time", "referenceTime", serverTime)
		return serverTime
	}

	adjusted := c.clock.Now().Add(-c.config.LocalClockSkew)
	c.logger.Warnw("could not get server time, using adjusted local time", "referenceTime", adjusted, zap.Error(err))
	return adjusted
}

// ServerTime makes a single bounded attempt to read the current time setting of the server
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	if c.config.ServerTimeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ServerTimeTimeout)
		defer cancel()
	}

	settings := Results[SystemSetting]{}
	query := url.Values{"q": []string{serverDateTimeSetting}}
	if err := c.get(ctx, "/systemsetting", query, &settings); err != nil {
		return time.Time{}, err
	}

	for _, setting := range settings.Results {
		if setting.Value != "" {
			return ParseDateTime(setting.Value)
		}
	}
	return time.Time{}, ErrServerTimeUnavailable
}

// ClockSkew returns the difference between the server and the local clock
func (c *Client) ClockSkew(ctx context.Context) (time.Duration, error) {
	serverTime, err := c.ServerTime(ctx)
	if err != nil {
		return 0, err
	}

	skew := serverTime.Sub(c.clock.Now())
	if skew.Abs() > clockSkewWarningThreshold {
		c.logger.Warnw("large time difference detected, server and local time may be out of sync", "skew", skew)
	}
	return skew, nil
}
