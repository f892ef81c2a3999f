// Package caldav publishes the crop calendar to a CalDAV collection, so
// the events show up in the farmer's regular calendar apps.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
	"github.com/kritika1265/AgriDirect-sub000/internal/ics"
)

// Client is a one-way CalDAV publisher. Events are pushed by UID, so each
// push overwrites the previous copy of the same event.
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	client       *caldav.Client
}

// NewClient creates a publisher for the given server.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has a server and credentials.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// SetCalendarPath sets the collection events are published into.
func (c *Client) SetCalendarPath(path string) {
	c.calendarPath = path
}

// connect establishes the CalDAV session on first use.
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns the calendar collections available to the
// configured account, for picking a publish target.
func (c *Client) DiscoverCalendars() ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// Publish pushes the event set to the configured collection, one object
// per event. Individual failures do not stop the push; the number of
// published events and the first failure are returned.
func (c *Client) Publish(events []domain.CalendarEvent) (int, error) {
	client, err := c.connect()
	if err != nil {
		return 0, err
	}

	if c.calendarPath == "" {
		return 0, fmt.Errorf("calendar path not specified")
	}

	published := 0
	var firstErr error
	for _, e := range events {
		cal := ics.Build([]domain.CalendarEvent{e}, "")
		path := c.objectPath(ics.UID(e))

		if _, err := client.PutCalendarObject(context.Background(), path, cal); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("put %s: %w", path, err)
			}
			continue
		}
		published++
	}

	return published, firstErr
}

// objectPath builds the object URL for an event UID inside the collection.
func (c *Client) objectPath(uid string) string {
	path := c.calendarPath
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics"
}
