// Package httpprovider implements provider.Client for upstreams serving race
// data as JSON over HTTP, such as the public KRA and KSPO data APIs.
package httpprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/tracing"
	"github.com/paddock/raceline/utils/backoff"
	"github.com/paddock/raceline/utils/httputil"
	"github.com/paddock/raceline/utils/log"

	"github.com/tidwall/gjson"
)

// Client fetches race data from a configured JSON HTTP upstream.
type Client struct {
	name      string
	config    Config
	transport http.RoundTripper
}

// NewClient creates a new Client. Requests go through a traced transport
// wrapping transport, which defaults to http.DefaultTransport.
func NewClient(name string, config Config, transport http.RoundTripper) (*Client, error) {
	config = config.applyDefaults()
	if config.BaseURL == "" {
		return nil, fmt.Errorf("provider %s: base_url required", name)
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("provider %s: parse base_url: %s", name, err)
	}
	return &Client{
		name:      name,
		config:    config,
		transport: tracing.NewHTTPTransport(transport),
	}, nil
}

// FetchSchedules implements provider.Client.
func (c *Client) FetchSchedules(
	ctx context.Context, raceType core.RaceType, date time.Time) ([]provider.RawScheduleItem, error) {

	vars := map[string]string{
		"race_type": raceType.String(),
		"date":      core.FormatDate(date),
	}
	fields, err := c.fetch(ctx, c.config.Endpoints.Schedules, vars, _scheduleFields)
	if err != nil {
		return nil, err
	}
	items := make([]provider.RawScheduleItem, len(fields))
	for i, f := range fields {
		items[i] = provider.NewRawScheduleItem(f)
	}
	return items, nil
}

// FetchEntries implements provider.Client.
func (c *Client) FetchEntries(ctx context.Context, id core.RaceID) ([]provider.RawEntryItem, error) {
	fields, err := c.fetch(ctx, c.config.Endpoints.Entries, raceVars(id), _entryFields)
	if err != nil {
		return nil, err
	}
	items := make([]provider.RawEntryItem, len(fields))
	for i, f := range fields {
		items[i] = provider.NewRawEntryItem(f)
	}
	return items, nil
}

// FetchOdds implements provider.Client.
func (c *Client) FetchOdds(ctx context.Context, id core.RaceID) ([]provider.RawOddsItem, error) {
	fields, err := c.fetch(ctx, c.config.Endpoints.Odds, raceVars(id), _oddsFields)
	if err != nil {
		return nil, err
	}
	items := make([]provider.RawOddsItem, len(fields))
	for i, f := range fields {
		items[i] = provider.NewRawOddsItem(f)
	}
	return items, nil
}

// FetchResults implements provider.Client.
func (c *Client) FetchResults(ctx context.Context, id core.RaceID) ([]provider.RawResultItem, error) {
	fields, err := c.fetch(ctx, c.config.Endpoints.Results, raceVars(id), _resultFields)
	if err != nil {
		return nil, err
	}
	items := make([]provider.RawResultItem, len(fields))
	for i, f := range fields {
		items[i] = provider.NewRawResultItem(f)
	}
	return items, nil
}

func raceVars(id core.RaceID) map[string]string {
	return map[string]string{
		"race_type": id.Type.String(),
		"date":      core.FormatDate(id.Date),
		"track":     id.Track,
		"race_no":   strconv.Itoa(id.Number),
	}
}

func expand(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (c *Client) url(e Endpoint, vars map[string]string) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/" +
		strings.TrimLeft(expand(e.Path, vars), "/"))
	if err != nil {
		return "", fmt.Errorf("parse url: %s", err)
	}
	q := u.Query()
	for k, v := range e.Query {
		q.Set(k, expand(v, vars))
	}
	if c.config.ServiceKey != "" {
		q.Set(c.config.ServiceKeyParam, c.config.ServiceKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetch GETs endpoint e and extracts the requested canonical fields of every
// item. Upstream errors are returned as is, so whether they are retried is up
// to the executor running fetch. Only a missing or malformed endpoint is
// permanent.
func (c *Client) fetch(
	ctx context.Context, e Endpoint, vars map[string]string, names []string) ([]provider.Fields, error) {

	if e.Path == "" {
		return nil, backoff.Permanent(fmt.Errorf("provider %s: endpoint not configured", c.name))
	}
	u, err := c.url(e, vars)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := httputil.Get(
		u,
		httputil.SendContext(ctx),
		httputil.SendTimeout(c.config.Timeout),
		httputil.SendHeaders(map[string]string{"Accept": "application/json"}),
		httputil.SendTransport(c.transport))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %s", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("provider %s: invalid json response", c.name)
	}
	doc := gjson.ParseBytes(body)

	if c.config.ResultCodePath != "" {
		code := doc.Get(c.config.ResultCodePath).String()
		if code != c.config.SuccessCode {
			return nil, fmt.Errorf("provider %s: result code %q", c.name, code)
		}
	}

	var items []gjson.Result
	switch list := doc.Get(c.config.ItemsPath); {
	case list.IsArray():
		items = list.Array()
	case list.IsObject():
		items = []gjson.Result{list}
	case list.Exists() && list.String() != "":
		log.With("provider", c.name, "path", c.config.ItemsPath).Warnf("Unexpected items value: %s", list.Raw)
	}

	fields := make([]provider.Fields, len(items))
	for i, item := range items {
		f := make(provider.Fields, len(names))
		for _, name := range names {
			path := name
			if p, ok := e.Fields[name]; ok {
				path = p
			}
			if v := item.Get(path); v.Exists() {
				f[name] = v.String()
			}
		}
		fields[i] = f
	}
	return fields, nil
}
