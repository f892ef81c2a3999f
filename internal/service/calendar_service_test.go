package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	events  []domain.CalendarEvent
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) LoadEvents() ([]domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]domain.CalendarEvent(nil), f.events...), nil
}

func (f *fakeStore) SaveEvents(events []domain.CalendarEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.events = append([]domain.CalendarEvent(nil), events...)
	f.saves++
	return nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	scheduled   map[string]*domain.Notification
	cancelled   []string
	scheduleErr error
	cancelErr   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{scheduled: map[string]*domain.Notification{}}
}

func (f *fakeNotifier) Schedule(n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled[n.Key] = n
	return nil
}

func (f *fakeNotifier) Cancel(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, key)
	delete(f.scheduled, key)
	return nil
}

func (f *fakeNotifier) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.scheduled[key]
	return ok
}

func testSchedules() []domain.CropSchedule {
	return []domain.CropSchedule{
		{CropName: "Wheat", Activities: []domain.ActivitySchedule{
			{Activity: "Sowing", Description: "Sow certified seed", Month: 11, Day: 10},
			{Activity: "Harvesting", Month: 4, Day: 5},
		}},
		{CropName: "Rice", Activities: []domain.ActivitySchedule{
			{Activity: "Transplanting", Month: 7, Day: 10},
		}},
	}
}

func newCalendar(t *testing.T, schedules []domain.CropSchedule, now time.Time) (*CalendarService, *fakeStore, *fakeNotifier) {
	t.Helper()
	tz := now.Location()

	sched := NewScheduleService(staticCatalog{schedules: schedules}, tz)
	store := &fakeStore{}
	notifier := newFakeNotifier()
	reminders := NewReminderService(notifier, tz, zap.NewNop())

	cal := NewCalendarService(sched, store, reminders, tz)
	cal.now = func() time.Time { return now }
	return cal, store, notifier
}

func loadedCalendar(t *testing.T, now time.Time) (*CalendarService, *fakeStore, *fakeNotifier) {
	t.Helper()
	cal, store, notifier := newCalendar(t, testSchedules(), now)
	require.NoError(t, cal.Load(context.Background()))
	return cal, store, notifier
}

var testNow = time.Date(2025, 6, 30, 10, 0, 0, 0, ist)

// === Load ===

func TestOperationsFailBeforeLoad(t *testing.T) {
	cal, _, _ := newCalendar(t, testSchedules(), testNow)

	_, err := cal.Add(domain.CalendarEvent{Title: "X", Date: testNow})
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.ErrorIs(t, cal.Remove("any"), ErrNotLoaded)

	_, err = cal.Events()
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = cal.EventsForDay(testNow)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = cal.EventsInRange(testNow, testNow)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = cal.Today()
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.False(t, cal.Loaded())
}

func TestLoadMaterializesCatalog(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	events, err := cal.Events()
	require.NoError(t, err)

	// Wheat harvesting (April 5) is outside the look-back at June 30.
	ids := map[string]bool{}
	for _, e := range events {
		ids[e.ID] = true
	}
	assert.True(t, ids["Wheat_Sowing_2025"])
	assert.True(t, ids["Rice_Transplanting_2025"])
	assert.False(t, ids["Wheat_Harvesting_2025"])
	assert.True(t, cal.Loaded())
}

func TestLoadTwiceDoesNotDuplicate(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	first, err := cal.Events()
	require.NoError(t, err)

	require.NoError(t, cal.Load(context.Background()))
	second, err := cal.Events()
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))
}

func TestLoadKeepsPersistedUserEvents(t *testing.T) {
	cal, store, _ := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title: "Buy drip pipes",
		Date:  time.Date(2025, 7, 2, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)

	// Fresh service over the same store, as after a restart.
	cal2, _, _ := newCalendar(t, testSchedules(), testNow)
	cal2.store = store
	require.NoError(t, cal2.Load(context.Background()))

	events, err := cal2.Events()
	require.NoError(t, err)

	var found bool
	for _, e := range events {
		if e.ID == added.ID {
			found = true
			assert.Equal(t, "Buy drip pipes", e.Title)
		}
	}
	assert.True(t, found)
}

func TestLoadDropsStaleActivityEvents(t *testing.T) {
	cal, store, _ := newCalendar(t, testSchedules(), testNow)
	store.events = []domain.CalendarEvent{{
		ID:        "Wheat_Sowing_2024",
		Title:     "Wheat: Sowing",
		Date:      time.Date(2024, 11, 10, 0, 0, 0, 0, ist),
		Type:      domain.EventCropActivity,
		CropName:  "Wheat",
		CreatedAt: testNow,
	}}

	require.NoError(t, cal.Load(context.Background()))

	events, err := cal.Events()
	require.NoError(t, err)
	for _, e := range events {
		assert.NotEqual(t, "Wheat_Sowing_2024", e.ID)
	}
}

func TestLoadCatalogFailureStaysUnloaded(t *testing.T) {
	cal, _, _ := newCalendar(t, nil, testNow)
	cal.schedule = NewScheduleService(staticCatalog{err: errors.New("corrupt")}, ist)

	err := cal.Load(context.Background())
	assert.ErrorIs(t, err, ErrCatalogLoad)
	assert.False(t, cal.Loaded())

	_, err = cal.Events()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadStoreReadFailureStaysUnloaded(t *testing.T) {
	cal, store, _ := newCalendar(t, testSchedules(), testNow)
	store.loadErr = errors.New("db locked")

	err := cal.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.False(t, cal.Loaded())
}

func TestLoadSnapshotFailureStillLoads(t *testing.T) {
	cal, store, _ := newCalendar(t, testSchedules(), testNow)
	store.saveErr = errors.New("disk full")

	err := cal.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, cal.Loaded())

	events, err := cal.Events()
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestLoadSchedulesRemindersForActivities(t *testing.T) {
	// One activity two weeks back (inside the look-back) and one two
	// weeks ahead. Both reach the notifier; dropping stale fire times is
	// its policy, not the calendar's.
	schedules := []domain.CropSchedule{
		{CropName: "Maize", Activities: []domain.ActivitySchedule{
			{Activity: "Sowing", Month: 6, Day: 16},
			{Activity: "Thinning", Month: 7, Day: 14},
		}},
	}
	cal, _, notifier := newCalendar(t, schedules, testNow)
	require.NoError(t, cal.Load(context.Background()))

	assert.True(t, notifier.has("event_Maize_Thinning_2025"))
	assert.True(t, notifier.has("event_Maize_Sowing_2025"))

	events, err := cal.EventsForDay(time.Date(2025, 6, 16, 0, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// === Add ===

func TestAddAssignsIDAndDefaults(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title: "Buy urea",
		Date:  time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, added.ID)
	assert.Equal(t, domain.EventCustom, added.Type)
	assert.False(t, added.CreatedAt.IsZero())
}

func TestAddKeepsExplicitID(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		ID:    "my-note-1",
		Title: "Call mandi agent",
		Date:  time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)
	assert.Equal(t, "my-note-1", added.ID)
}

func TestAddDuplicateIDRejected(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{
		ID: "dup", Title: "First", Date: testNow,
	})
	require.NoError(t, err)

	_, err = cal.Add(domain.CalendarEvent{
		ID: "dup", Title: "Second", Date: testNow,
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAddCollidingWithActivityEventRejected(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{
		ID: "Wheat_Sowing_2025", Title: "Impostor", Date: testNow,
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAddRejectsInvalidEvents(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{Date: testNow})
	assert.ErrorIs(t, err, ErrInvalidEvent, "missing title")

	_, err = cal.Add(domain.CalendarEvent{Title: "No date"})
	assert.ErrorIs(t, err, ErrInvalidEvent, "missing date")

	_, err = cal.Add(domain.CalendarEvent{Title: "Bad type", Date: testNow, Type: "party"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestAddRejectsCropActivityType(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{
		Title: "Fake activity",
		Date:  testNow,
		Type:  domain.EventCropActivity,
	})
	assert.ErrorIs(t, err, ErrTemplateEvent)
}

func TestAddSchedulesReminder(t *testing.T) {
	cal, _, notifier := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title:      "Spray tomatoes",
		Date:       time.Date(2025, 7, 20, 0, 0, 0, 0, ist),
		Type:       domain.EventReminder,
		IsReminder: true,
	})
	require.NoError(t, err)
	assert.True(t, notifier.has("event_"+added.ID))
}

func TestAddWithoutReminderFlagSchedulesNothing(t *testing.T) {
	cal, _, notifier := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title: "Note only",
		Date:  time.Date(2025, 7, 20, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)
	assert.False(t, notifier.has("event_"+added.ID))
}

func TestAddPersistenceFailureKeepsEvent(t *testing.T) {
	cal, store, _ := loadedCalendar(t, testNow)
	store.saveErr = errors.New("disk full")

	added, err := cal.Add(domain.CalendarEvent{
		Title: "Survives",
		Date:  time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
	})
	assert.ErrorIs(t, err, ErrPersistence)

	events, qerr := cal.EventsForDay(time.Date(2025, 7, 5, 0, 0, 0, 0, ist))
	require.NoError(t, qerr)
	require.Len(t, events, 1)
	assert.Equal(t, added.ID, events[0].ID)
}

func TestAddNotificationFailureKeepsEvent(t *testing.T) {
	cal, _, notifier := loadedCalendar(t, testNow)
	notifier.scheduleErr = errors.New("notifier down")

	added, err := cal.Add(domain.CalendarEvent{
		Title:      "Still added",
		Date:       time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
		IsReminder: true,
	})
	assert.ErrorIs(t, err, ErrNotification)

	events, qerr := cal.EventsForDay(time.Date(2025, 7, 5, 0, 0, 0, 0, ist))
	require.NoError(t, qerr)
	require.Len(t, events, 1)
	assert.Equal(t, added.ID, events[0].ID)
}

// === Remove ===

func TestRemoveCancelsReminderAndDeletes(t *testing.T) {
	cal, _, notifier := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title:      "Temp reminder",
		Date:       time.Date(2025, 7, 20, 0, 0, 0, 0, ist),
		IsReminder: true,
	})
	require.NoError(t, err)
	require.True(t, notifier.has("event_"+added.ID))

	require.NoError(t, cal.Remove(added.ID))

	assert.False(t, notifier.has("event_"+added.ID))
	assert.Contains(t, notifier.cancelled, "event_"+added.ID)

	events, err := cal.EventsForDay(time.Date(2025, 7, 20, 0, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRemoveMissingIDIsNoop(t *testing.T) {
	cal, store, notifier := loadedCalendar(t, testNow)
	savesBefore := store.saves

	require.NoError(t, cal.Remove("never-existed"))

	// No store write, but the cancel still goes out in case a stale
	// notification references the id.
	assert.Equal(t, savesBefore, store.saves)
	assert.Contains(t, notifier.cancelled, "event_never-existed")
}

func TestRemoveActivityEventRejected(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	err := cal.Remove("Wheat_Sowing_2025")
	assert.ErrorIs(t, err, ErrTemplateEvent)

	// Still there.
	events, qerr := cal.EventsForDay(time.Date(2025, 11, 10, 0, 0, 0, 0, ist))
	require.NoError(t, qerr)
	require.Len(t, events, 1)
	assert.Equal(t, "Wheat_Sowing_2025", events[0].ID)
}

func TestRemovePersistenceFailureKeepsDeletion(t *testing.T) {
	cal, store, _ := loadedCalendar(t, testNow)

	added, err := cal.Add(domain.CalendarEvent{
		Title: "To delete",
		Date:  time.Date(2025, 7, 5, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	err = cal.Remove(added.ID)
	assert.ErrorIs(t, err, ErrPersistence)

	events, qerr := cal.EventsForDay(time.Date(2025, 7, 5, 0, 0, 0, 0, ist))
	require.NoError(t, qerr)
	assert.Empty(t, events)
}

// === Queries ===

func TestEventsForDayGroupsByDay(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	day1 := time.Date(2025, 7, 2, 0, 0, 0, 0, ist)
	day2 := time.Date(2025, 7, 3, 0, 0, 0, 0, ist)

	a, err := cal.Add(domain.CalendarEvent{ID: "a", Title: "A", Date: day1})
	require.NoError(t, err)
	b, err := cal.Add(domain.CalendarEvent{ID: "b", Title: "B", Date: day1})
	require.NoError(t, err)
	c, err := cal.Add(domain.CalendarEvent{ID: "c", Title: "C", Date: day2})
	require.NoError(t, err)

	got1, err := cal.EventsForDay(day1)
	require.NoError(t, err)
	require.Len(t, got1, 2)
	assert.Equal(t, a.ID, got1[0].ID)
	assert.Equal(t, b.ID, got1[1].ID)

	got2, err := cal.EventsForDay(day2)
	require.NoError(t, err)
	require.Len(t, got2, 1)
	assert.Equal(t, c.ID, got2[0].ID)

	// Repeat lookups are stable.
	again, err := cal.EventsForDay(day1)
	require.NoError(t, err)
	assert.Equal(t, got1, again)
}

func TestEventsForDayIgnoresTimeOfDay(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{
		ID:    "morning",
		Title: "Morning note",
		Date:  time.Date(2025, 7, 2, 8, 15, 0, 0, ist),
	})
	require.NoError(t, err)

	got, err := cal.EventsForDay(time.Date(2025, 7, 2, 23, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEventsInRangeInclusive(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	for _, d := range []int{1, 2, 3, 4} {
		_, err := cal.Add(domain.CalendarEvent{
			Title: "Day event",
			Date:  time.Date(2025, 8, d, 0, 0, 0, 0, ist),
		})
		require.NoError(t, err)
	}

	got, err := cal.EventsInRange(
		time.Date(2025, 8, 2, 0, 0, 0, 0, ist),
		time.Date(2025, 8, 3, 0, 0, 0, 0, ist),
	)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEventsInRangeSortedByDate(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{ID: "later", Title: "L", Date: time.Date(2025, 8, 3, 0, 0, 0, 0, ist)})
	require.NoError(t, err)
	_, err = cal.Add(domain.CalendarEvent{ID: "sooner", Title: "S", Date: time.Date(2025, 8, 1, 0, 0, 0, 0, ist)})
	require.NoError(t, err)

	got, err := cal.EventsInRange(
		time.Date(2025, 8, 1, 0, 0, 0, 0, ist),
		time.Date(2025, 8, 31, 0, 0, 0, 0, ist),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sooner", got[0].ID)
	assert.Equal(t, "later", got[1].ID)
}

func TestToday(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	_, err := cal.Add(domain.CalendarEvent{
		ID:    "today-note",
		Title: "Today",
		Date:  time.Date(2025, 6, 30, 0, 0, 0, 0, ist),
	})
	require.NoError(t, err)

	got, err := cal.Today()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "today-note", got[0].ID)
}

func TestFormatDigest(t *testing.T) {
	cal, _, _ := loadedCalendar(t, testNow)

	assert.Empty(t, cal.FormatDigest(nil))

	msg := cal.FormatDigest([]domain.CalendarEvent{
		{Title: "Wheat: Sowing", Description: "Sow certified seed"},
		{Title: "Buy urea"},
	})
	assert.Contains(t, msg, "Wheat: Sowing")
	assert.Contains(t, msg, "Sow certified seed")
	assert.Contains(t, msg, "Buy urea")
}
