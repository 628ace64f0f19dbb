package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-booking-service/internal/datekey"
)

func TestSlotsForTemplates(t *testing.T) {
	c := NewDefaultCatalog()

	sat := c.SlotsFor("2026-10-17")
	assert.Len(t, sat, 3)
	assert.Equal(t, DefaultWeekend, sat)

	sun := c.SlotsFor("2026-10-18")
	assert.Equal(t, DefaultWeekend, sun)

	tue := c.SlotsFor("2026-10-20")
	assert.Len(t, tue, 5)
	assert.Equal(t, DefaultWeekday, tue)
}

func TestSlotsForOverrideWinsOverWeekday(t *testing.T) {
	c := NewDefaultCatalog()

	// 2025-08-10 is a Sunday; the override list replaces the weekend template.
	assert.Equal(t, []string{"09:00 - 10:00", "11:00 - 12:00", "15:00 - 16:00"}, c.SlotsFor("2025-08-10"))
	// 2025-08-01 is a Friday with a three slot override.
	assert.Equal(t, []string{"08:00 - 09:00", "10:00 - 11:00", "14:00 - 15:00"}, c.SlotsFor("2025-08-01"))
}

func TestSlotsForPastDatesStillResolve(t *testing.T) {
	c := NewDefaultCatalog()
	assert.NotEmpty(t, c.SlotsFor("2001-01-02"))
}

func TestSlotsForReturnsCopy(t *testing.T) {
	c := NewDefaultCatalog()
	s := c.SlotsFor("2026-10-20")
	s[0] = "mutated"
	assert.Equal(t, DefaultWeekday[0], c.SlotsFor("2026-10-20")[0])
}

func TestSetAndDeleteOverride(t *testing.T) {
	c := NewCatalog(DefaultWeekday, DefaultWeekend, nil)
	day := datekey.Key("2026-10-20")

	c.SetOverride(day, []string{"06:00 - 07:00"})
	assert.Equal(t, []string{"06:00 - 07:00"}, c.SlotsFor(day))
	assert.True(t, c.Contains(day, "06:00 - 07:00"))
	assert.False(t, c.Contains(day, "07:00 - 08:00"))

	got, ok := c.Override(day)
	require.True(t, ok)
	assert.Equal(t, []string{"06:00 - 07:00"}, got)
	assert.Len(t, c.Overrides(), 1)

	assert.True(t, c.DeleteOverride(day))
	assert.False(t, c.DeleteOverride(day))
	assert.Equal(t, DefaultWeekday, c.SlotsFor(day))
}

func TestParseLabel(t *testing.T) {
	start, end, err := ParseLabel("07:00 - 08:30")
	require.NoError(t, err)
	assert.Equal(t, 7, start.Hour())
	assert.Equal(t, 8, end.Hour())
	assert.Equal(t, 30, end.Minute())

	for _, bad := range []string{"", "07:00-08:00", "7:00 - 8:00", "08:00 - 07:00", "08:00 - 08:00", "25:00 - 26:00"} {
		_, _, err := ParseLabel(bad)
		assert.True(t, errors.Is(err, ErrInvalidLabel), bad)
	}
}

func TestValidateLabels(t *testing.T) {
	assert.NoError(t, ValidateLabels(DefaultWeekday))
	assert.ErrorIs(t, ValidateLabels(nil), ErrInvalidLabel)
	assert.ErrorIs(t, ValidateLabels([]string{"09:00 - 10:00", "09:00 - 10:00"}), ErrInvalidLabel)
	assert.ErrorIs(t, ValidateLabels([]string{"09:00 - 10:00", "nope"}), ErrInvalidLabel)
}

func TestBounds(t *testing.T) {
	loc := time.FixedZone("CLT", -3*3600)
	start, end, err := Bounds("2026-10-20", "07:00 - 08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 20, 7, 0, 0, 0, loc), start)
	assert.Equal(t, time.Hour, end.Sub(start))

	_, _, err = Bounds("bad", "07:00 - 08:00", loc)
	assert.Error(t, err)
}
