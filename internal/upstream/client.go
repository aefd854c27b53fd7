// Package upstream talks to the sensor back end over HTTP: it fetches
// reading history and the latest readings, and asks whether an alarm is
// active.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sensor_monitor/internal/models"

	"github.com/go-resty/resty/v2"
)

// Upstream endpoints.
const (
	readingsPath = "/api/sensor-data"
	latestPath   = "/api/sensor-data/latest"
	alarmPath    = "/api/evant/checkAlarm"

	DefaultTimeout = 10 * time.Second
)

// ErrUnexpectedStatus is returned for any non-2xx upstream response.
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// Client is a resty-backed upstream client.
type Client struct {
	http *resty.Client
	loc  *time.Location
}

// NewClient targets baseURL. Query dates are interpreted in loc (UTC when nil).
func NewClient(baseURL string, timeout time.Duration, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if loc == nil {
		loc = time.UTC
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, loc: loc}
}

// FetchReadings returns the readings inside the query range.
func (c *Client) FetchReadings(ctx context.Context, q models.QueryDescriptor) ([]models.Reading, error) {
	from, to, err := q.Bounds(c.loc)
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"start": from.UTC().Format(time.RFC3339),
		"end":   to.UTC().Format(time.RFC3339),
	}
	if q.SensorID != nil {
		params["sensor_id"] = strconv.Itoa(*q.SensorID)
	}

	var out []models.Reading
	if err := c.getJSON(ctx, readingsPath, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchLatest returns the newest reading of each sensor.
func (c *Client) FetchLatest(ctx context.Context) ([]models.Reading, error) {
	var out []models.Reading
	if err := c.getJSON(ctx, latestPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAlarm asks the back end whether an alarm is active.
func (c *Client) CheckAlarm(ctx context.Context) (bool, error) {
	var active bool
	if err := c.getJSON(ctx, alarmPath, nil, &active); err != nil {
		return false, err
	}
	return active, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, dst any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
