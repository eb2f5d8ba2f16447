package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memObjects) Put(_ context.Context, key, contentType string, body []byte) error {
	m.objects[key] = body
	m.types[key] = contentType
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?expires=" + ttl.String(), nil
}

func TestRenderCalendar(t *testing.T) {
	event := testEvent("e1", "alice", models.VisibilityPublic)
	event.Description = strPtr("Easy pace")
	event.LocationName = strPtr("Riverside")

	body := string(RenderCalendar(event, monday))

	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "UID:e1")
	assert.Contains(t, body, "DTSTART:20260105T090000")
	assert.Contains(t, body, "DTEND:20260105T210000", "missing end defaults to twelve hours")
	assert.Contains(t, body, "SUMMARY:Morning run e1")
	assert.Contains(t, body, "DESCRIPTION:Easy pace")
	assert.Contains(t, body, "LOCATION:Riverside")
	assert.Contains(t, body, "GEO:40.000000")
}

func TestRenderCalendarUsesStoredEnd(t *testing.T) {
	event := testEvent("e1", "alice", models.VisibilityPublic)
	event.EndTime = timePtr(monday.Add(90 * time.Minute))

	body := string(RenderCalendar(event, monday))

	assert.Contains(t, body, "DTEND:20260105T103000")
}

func TestExportHonorsVisibility(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t, testEvent("private", "alice", models.VisibilityPrivate))
	calendar := NewCalendarService(dir, nil, time.Minute)

	_, err := calendar.Export(ctx, "private", "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	body, err := calendar.Export(ctx, "private", "alice")
	require.NoError(t, err)
	assert.Contains(t, string(body), "UID:private")
}

func TestShareLink(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t, testEvent("e1", "alice", models.VisibilityPublic))
	objects := &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
	calendar := NewCalendarService(dir, objects, 15*time.Minute)

	link, err := calendar.ShareLink(ctx, "e1", "")
	require.NoError(t, err)
	assert.Equal(t, 900, link.ExpiresIn)
	assert.Contains(t, link.URL, "calendars/e1.ics")
	assert.Contains(t, string(objects.objects["calendars/e1.ics"]), "UID:e1")
	assert.Contains(t, objects.types["calendars/e1.ics"], "text/calendar")
}

func TestShareLinkDisabled(t *testing.T) {
	dir, _, _ := newTestDirectory(t, testEvent("e1", "alice", models.VisibilityPublic))
	calendar := NewCalendarService(dir, nil, time.Minute)

	_, err := calendar.ShareLink(context.Background(), "e1", "")
	assert.True(t, errors.Is(err, ErrCalendarSharingDisabled))
}
