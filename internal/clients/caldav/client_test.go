package caldav

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewClient("", "", "").IsConfigured())
	assert.False(t, NewClient("https://dav.example.com", "", "").IsConfigured())
	assert.True(t, NewClient("https://dav.example.com", "farmer", "secret").IsConfigured())
}

func TestPublishPutsOneObjectPerEvent(t *testing.T) {
	var mu sync.Mutex
	puts := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "farmer", user)
		assert.Equal(t, "secret", pass)

		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts[r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "farmer", "secret")
	c.SetCalendarPath("/calendars/farmer/crops/")

	ist := time.FixedZone("IST", 5*3600+1800)
	events := []domain.CalendarEvent{
		{
			ID:        "Wheat_Sowing_2025",
			Title:     "Wheat: Sowing",
			Date:      time.Date(2025, 11, 10, 0, 0, 0, 0, ist),
			Type:      domain.EventCropActivity,
			CropName:  "Wheat",
			CreatedAt: time.Date(2025, 6, 30, 10, 0, 0, 0, ist),
		},
		{
			ID:        "note-1",
			Title:     "Buy urea",
			Date:      time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
			Type:      domain.EventCustom,
			CreatedAt: time.Date(2025, 6, 30, 10, 0, 0, 0, ist),
		},
	}

	n, err := c.Publish(events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, puts, 2)

	body, ok := puts["/calendars/farmer/crops/Wheat_Sowing_2025@agridirect.ics"]
	require.True(t, ok, "expected object path keyed by event UID, got %v", keys(puts))
	assert.Contains(t, body, "UID:Wheat_Sowing_2025@agridirect")
	assert.Contains(t, body, "SUMMARY:Wheat: Sowing")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20251110")
}

func TestPublishWithoutCalendarPath(t *testing.T) {
	c := NewClient("https://dav.example.com", "farmer", "secret")

	_, err := c.Publish([]domain.CalendarEvent{{ID: "x", Title: "X"}})
	require.Error(t, err)
}

func TestPublishContinuesPastFailures(t *testing.T) {
	var mu sync.Mutex
	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/crops/bad@agridirect.ics" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "farmer", "secret")
	c.SetCalendarPath("/crops")

	d := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	n, err := c.Publish([]domain.CalendarEvent{
		{ID: "bad", Title: "Fails", Date: d, CreatedAt: d},
		{ID: "good", Title: "Works", Date: d, CreatedAt: d},
	})

	require.Error(t, err)
	assert.Equal(t, 1, n)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, paths, 2)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
