package attendance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/spinroom/reservation"
)

func TestMerge_ReservationOnlyIsPending(t *testing.T) {
	res := []reservation.Reservation{
		{ID: uuid.New(), UserName: "Ana", BikeID: 3, CreditsRemaining: 4},
	}

	got := Merge("1800", res, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].UserName)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, 3, got[0].BikeNumber)
	assert.Equal(t, 4, got[0].CreditsRemaining)
	assert.Equal(t, res[0].ID.String(), got[0].ID)
}

func TestMerge_AttendanceOverridesStatusAndID(t *testing.T) {
	res := []reservation.Reservation{{ID: uuid.New(), UserName: "Ana", BikeID: 3}}
	att := []Attendance{{ID: "A1", UserName: "Ana", Status: StatusAttended}}

	got := Merge("1800", res, att)

	require.Len(t, got, 1)
	assert.Equal(t, StatusAttended, got[0].Status)
	assert.Equal(t, "A1", got[0].ID)
	assert.Equal(t, 3, got[0].BikeNumber)
}

func TestMerge_AttendanceWithoutReservationAndOrdering(t *testing.T) {
	res := []reservation.Reservation{
		{ID: uuid.New(), UserName: "Carla", BikeID: 12},
		{ID: uuid.New(), UserName: "Ana", BikeID: 3},
	}
	att := []Attendance{
		{ID: "A9", UserName: "Beto", BikeNumber: 7, CreditsRemaining: 2, Status: StatusNoShow},
	}

	got := Merge("1800", res, att)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Ana", "Beto", "Carla"}, names(got))
	assert.Equal(t, StatusNoShow, got[1].Status)

	// Input order does not matter.
	reversed := Merge("1800", []reservation.Reservation{res[1], res[0]}, att)
	assert.Equal(t, got, reversed)
}

func TestToggle(t *testing.T) {
	t.Run("same status returns to pending", func(t *testing.T) {
		r := Record{Status: StatusAttended, CreditsRemaining: 3}
		out := r.Toggle(StatusAttended)
		assert.Equal(t, StatusPending, r.Status)
		assert.Equal(t, Outcome{}, out)
		assert.Equal(t, 3, r.CreditsRemaining)
	})

	t.Run("attend deducts a credit", func(t *testing.T) {
		r := Record{Status: StatusPending, CreditsRemaining: 1}
		out := r.Toggle(StatusAttended)
		assert.Equal(t, StatusAttended, r.Status)
		assert.True(t, out.Deducted)
		assert.Equal(t, 0, r.CreditsRemaining)
	})

	t.Run("attend without credits still marks attended", func(t *testing.T) {
		r := Record{Status: StatusNoShow, CreditsRemaining: 0}
		out := r.Toggle(StatusAttended)
		assert.Equal(t, StatusAttended, r.Status)
		assert.True(t, out.NoCredits)
		assert.Equal(t, 0, r.CreditsRemaining)
	})

	t.Run("no-show does not touch credits", func(t *testing.T) {
		r := Record{Status: StatusAttended, CreditsRemaining: 2}
		out := r.Toggle(StatusNoShow)
		assert.Equal(t, StatusNoShow, r.Status)
		assert.Equal(t, Outcome{}, out)
		assert.Equal(t, 2, r.CreditsRemaining)
	})
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Record{
		{Status: StatusAttended}, {Status: StatusAttended}, {Status: StatusNoShow}, {Status: StatusPending},
	})
	assert.Equal(t, Summary{Attended: 2, NoShow: 1, Pending: 1}, s)
}

func TestParseStatusAndLabel(t *testing.T) {
	for _, s := range []string{"pending", "attended", "noshow"} {
		_, err := ParseStatus(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseStatus("late")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Equal(t, "Asistió", StatusAttended.Label())
	assert.Equal(t, "No-show", StatusNoShow.Label())
	assert.Equal(t, "Pendiente", Status("").Label())
}

func names(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.UserName
	}
	return out
}
