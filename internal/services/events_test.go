package services

import (
	"context"
	"testing"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

func newTestDirectory(t *testing.T, events ...*models.Event) (*EventDirectory, *memEvents, *SocialGraph) {
	t.Helper()
	users := newMemUsers(
		&models.User{ID: "alice", Name: "Alice"},
		&models.User{ID: "bob", Name: "Bob"},
		&models.User{ID: "carol", Name: "Carol"},
	)
	store := newMemEvents(events...)
	social := NewSocialGraph(newMemFriendships(), users)
	dir := NewEventDirectory(store, social)
	dir.now = fixedClock(monday.Add(-24 * time.Hour))
	return dir, store, social
}

func testEvent(id, creator string, visibility models.Visibility) *models.Event {
	return &models.Event{
		ID:           id,
		CreatorID:    creator,
		Title:        "Morning run " + id,
		Latitude:     40.0,
		Longitude:    -74.0,
		StartTime:    monday,
		Visibility:   visibility,
		ApprovalMode: models.ApprovalAuto,
	}
}

func TestCanView(t *testing.T) {
	ctx := context.Background()
	dir, _, social := newTestDirectory(t)
	require.NoError(t, social.AddFriend(ctx, "alice", "bob"))

	private := testEvent("private", "alice", models.VisibilityPrivate)
	friends := testEvent("friends", "alice", models.VisibilityFriends)
	public := testEvent("public", "alice", models.VisibilityPublic)

	tests := []struct {
		name   string
		event  *models.Event
		viewer string
		want   bool
	}{
		{"private visible to creator", private, "alice", true},
		{"private hidden from friend", private, "bob", false},
		{"private hidden from anonymous", private, "", false},
		{"friends visible to creator", friends, "alice", true},
		{"friends visible to friend", friends, "bob", true},
		{"friends hidden from stranger", friends, "carol", false},
		{"friends hidden from anonymous", friends, "", false},
		{"public visible to stranger", public, "carol", true},
		{"public visible to anonymous", public, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dir.CanView(ctx, tt.event, tt.viewer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFriendshipIsSymmetric(t *testing.T) {
	ctx := context.Background()
	_, _, social := newTestDirectory(t)
	require.NoError(t, social.AddFriend(ctx, "carol", "alice"))

	ab, err := social.AreFriends(ctx, "alice", "carol")
	require.NoError(t, err)
	ba, err := social.AreFriends(ctx, "carol", "alice")
	require.NoError(t, err)
	self, err := social.AreFriends(ctx, "bob", "bob")
	require.NoError(t, err)

	assert.True(t, ab)
	assert.True(t, ba)
	assert.True(t, self)
}

func TestAddFriendRejectsSelf(t *testing.T) {
	_, _, social := newTestDirectory(t)

	err := social.AddFriend(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetEventNotFoundAndForbidden(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t, testEvent("private", "alice", models.VisibilityPrivate))

	_, err := dir.GetEvent(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = dir.GetEvent(ctx, "private", "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	event, err := dir.GetEvent(ctx, "private", "alice")
	require.NoError(t, err)
	assert.Equal(t, "private", event.ID)
}

func TestOnlyCreatorCanEditOrDelete(t *testing.T) {
	ctx := context.Background()
	dir, store, _ := newTestDirectory(t, testEvent("e1", "alice", models.VisibilityPublic))

	title := "Hijacked"
	_, err := dir.UpdateEvent(ctx, "e1", "bob", EventPatch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	err = dir.DeleteEvent(ctx, "e1", "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	title = "Evening run"
	updated, err := dir.UpdateEvent(ctx, "e1", "alice", EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Evening run", updated.Title)

	require.NoError(t, dir.DeleteEvent(ctx, "e1", "alice"))
	_, err = store.GetByID(ctx, "e1")
	assert.Error(t, err)
}

func TestCreateEventDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t)

	event, err := dir.CreateEvent(ctx, "alice", EventInput{
		Title:     "  Park yoga  ",
		Latitude:  51.5,
		Longitude: -0.12,
		StartTime: monday,
	})
	require.NoError(t, err)
	assert.Equal(t, "Park yoga", event.Title)
	assert.Equal(t, models.VisibilityPublic, event.Visibility)
	assert.Equal(t, models.ApprovalAuto, event.ApprovalMode)
	assert.Equal(t, "alice", event.CreatorID)

	_, err = dir.CreateEvent(ctx, "alice", EventInput{Title: "Bad", Latitude: 91, StartTime: monday})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = dir.CreateEvent(ctx, "alice", EventInput{
		Title:     "Backwards",
		StartTime: monday,
		EndTime:   timePtr(monday.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = dir.CreateEvent(ctx, "alice", EventInput{
		Title:           "Empty",
		StartTime:       monday,
		MaxParticipants: intPtr(0),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchVisibility(t *testing.T) {
	ctx := context.Background()
	dir, _, social := newTestDirectory(t,
		testEvent("alice-private", "alice", models.VisibilityPrivate),
		testEvent("alice-friends", "alice", models.VisibilityFriends),
		testEvent("alice-public", "alice", models.VisibilityPublic),
		testEvent("carol-friends", "carol", models.VisibilityFriends),
	)
	require.NoError(t, social.AddFriend(ctx, "alice", "bob"))

	ids := func(instances []models.EventInstance) []string {
		var out []string
		for _, in := range instances {
			out = append(out, in.ID)
		}
		return out
	}

	anonymous, err := dir.Search(ctx, "", SearchParams{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice-public"}, ids(anonymous))

	bob, err := dir.Search(ctx, "bob", SearchParams{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice-public", "alice-friends"}, ids(bob))

	alice, err := dir.Search(ctx, "alice", SearchParams{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice-public", "alice-friends", "alice-private"}, ids(alice))
}

func TestSearchRadius(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t, testEvent("e1", "alice", models.VisibilityPublic))

	// Roughly 2.5 km west of the event
	near, err := dir.Search(ctx, "", SearchParams{
		Latitude:  floatPtr(40.0),
		Longitude: floatPtr(-74.03),
		RadiusKm:  floatPtr(5),
	})
	require.NoError(t, err)
	assert.Len(t, near, 1)

	tight, err := dir.Search(ctx, "", SearchParams{
		Latitude:  floatPtr(40.0),
		Longitude: floatPtr(-74.03),
		RadiusKm:  floatPtr(0.01),
	})
	require.NoError(t, err)
	assert.Empty(t, tight)
}

func TestSearchRadiusAndAreaCombine(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t, testEvent("e1", "alice", models.VisibilityPublic))

	results, err := dir.Search(ctx, "", SearchParams{
		Latitude:  floatPtr(40.0),
		Longitude: floatPtr(-74.0),
		RadiusKm:  floatPtr(5),
		Area:      &models.BoundingBox{MinLat: 41, MaxLat: 42, MinLng: -75, MaxLng: -73},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRejectsInvalidFilters(t *testing.T) {
	ctx := context.Background()
	dir, _, _ := newTestDirectory(t)

	_, err := dir.Search(ctx, "", SearchParams{RadiusKm: floatPtr(5)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = dir.Search(ctx, "", SearchParams{
		StartDate: timePtr(monday),
		EndDate:   timePtr(monday.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchExpandsWeeklyRecurrence(t *testing.T) {
	ctx := context.Background()
	event := testEvent("weekly", "alice", models.VisibilityPublic)
	event.RecurrenceRule = strPtr("FREQ=WEEKLY;BYDAY=MO")
	event.LocationName = strPtr("Riverside track")
	dir, _, _ := newTestDirectory(t, event)

	results, err := dir.Search(ctx, "", SearchParams{
		StartDate: timePtr(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   timePtr(time.Date(2026, time.January, 21, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, instance := range results {
		assert.True(t, instance.IsVirtual)
		assert.Equal(t, "weekly", instance.SourceEventID)
		assert.True(t, instance.StartTime.Equal(monday.AddDate(0, 0, 7*i)), "instance %d starts %s", i, instance.StartTime)
		assert.Equal(t, event.Title, instance.Title)
		require.NotNil(t, instance.LocationName)
		assert.Equal(t, "Riverside track", *instance.LocationName)
		assert.Equal(t, event.Latitude, instance.Latitude)
		assert.Equal(t, event.Longitude, instance.Longitude)
	}
}

func TestSearchKeepsEventWhenRuleIsInvalid(t *testing.T) {
	ctx := context.Background()
	event := testEvent("broken", "alice", models.VisibilityPublic)
	event.RecurrenceRule = strPtr("FREQ=SOMETIMES")
	dir, _, _ := newTestDirectory(t, event)

	results, err := dir.Search(ctx, "", SearchParams{
		StartDate: timePtr(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   timePtr(time.Date(2026, time.January, 21, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsVirtual)
	assert.True(t, results[0].StartTime.Equal(monday))
}

func TestSearchSkipsExpansionWithoutBothDates(t *testing.T) {
	ctx := context.Background()
	event := testEvent("weekly", "alice", models.VisibilityPublic)
	event.RecurrenceRule = strPtr("FREQ=WEEKLY;BYDAY=MO")
	dir, _, _ := newTestDirectory(t, event)

	results, err := dir.Search(ctx, "", SearchParams{
		StartDate: timePtr(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsVirtual)
}

func TestBoundingBoxAround(t *testing.T) {
	box := BoundingBoxAround(0, 0, 111)
	assert.InDelta(t, -1.0, box.MinLat, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLat, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLng, 1e-9)

	// Longitude span widens away from the equator
	north := BoundingBoxAround(60, 10, 111)
	assert.InDelta(t, 2.0, north.MaxLng-10, 1e-6)
	assert.True(t, boxContains(north, 60, 10))

	pole := BoundingBoxAround(90, 0, 1)
	assert.Equal(t, 180.0, pole.MaxLng)
}
