// Package client talks to a robot's HTTP control server.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"robotcode-go/errcode"
	"robotcode-go/services/drive"
	"robotcode-go/services/httpapi"
)

// Client sends actions to one robot.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// New parses baseURL ("http://robot.local:8000"). A nil hc uses a client
// with a 30 s timeout, long enough for the longest timed action.
func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse robot url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("robot url %q: scheme must be http or https", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: u, hc: hc}, nil
}

// Request returns the endpoint path and query for a.
func Request(a drive.Action) (string, url.Values) {
	q := url.Values{}
	ms := strconv.FormatInt(a.Duration.Milliseconds(), 10)
	switch a.Command {
	case drive.CmdDrive:
		q.Set("direction", a.Direction)
		q.Set("duration", ms)
	case drive.CmdTurn:
		q.Set("direction", a.Direction)
		deg := a.Degrees
		if deg == 0 {
			deg = drive.DefaultDegrees
		}
		q.Set("degree", strconv.Itoa(deg))
	case drive.CmdPause, drive.CmdSpin:
		q.Set("duration", ms)
	}
	return "/" + string(a.Command), q
}

// Send executes a on the robot and returns the reported actions. Server
// errors come back as *errcode.E carrying the server's code.
func (c *Client) Send(ctx context.Context, a drive.Action) ([]httpapi.ActionView, error) {
	path, q := Request(a)
	var out httpapi.ActionsResponse
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

// Distance reads the rangefinder; -1 means no object.
func (c *Client) Distance(ctx context.Context) (int, error) {
	var out httpapi.DistanceResponse
	if err := c.get(ctx, "/distance", nil, &out); err != nil {
		return 0, err
	}
	return out.DistanceMM, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e httpapi.ErrResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
			return &errcode.E{C: errcode.Error, Op: "GET " + path, Msg: resp.Status}
		}
		return &errcode.E{C: errcode.Code(e.Code), Op: "GET " + path, Msg: e.Detail}
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(v), "decode %s", path)
}
