package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

func offering(id, name string, period int, mandatory bool) models.ClassOffering {
	return models.ClassOffering{
		ID: id, Name: name, Period: period,
		MinGrade: 1, MaxGrade: 12,
		MinKoreanLevel: 1, MaxKoreanLevel: 9,
		Mandatory: mandatory, MaxStudents: 20,
	}
}

func testStudent() models.Student {
	return models.Student{ID: "stu-1", Name: "Yejin", Grade: 4, KoreanLevel: 3}
}

func TestSelectorEligibilityFilter(t *testing.T) {
	narrow := offering("c-adv", "Advanced Writing", 1, false)
	narrow.MinGrade = 7
	s := NewSelector(testStudent(), []models.ClassOffering{
		offering("c-1", "Korean Language", 1, true),
		narrow,
		offering("c-2", "Taekwondo", 2, false),
	}, nil)

	period1 := s.Eligible(1)
	require.Len(t, period1, 1)
	assert.Equal(t, "c-1", period1[0].ID)
	assert.Len(t, s.Eligible(2), 1)
	assert.Empty(t, s.Eligible(3))
}

func TestSelectorMandatoryRule(t *testing.T) {
	offerings := []models.ClassOffering{
		offering("a", "Korean Language", 1, true),
		offering("b", "Art", 2, false),
		offering("c", "History", 3, false),
	}
	s := NewSelector(testStudent(), offerings, nil)

	require.NoError(t, s.Select("b"))
	require.NoError(t, s.Select("c"))
	eval := s.Evaluate()
	require.False(t, eval.OK)
	assert.Equal(t, appErrors.ErrIncompleteSelection.Code, eval.Err.Code)

	require.NoError(t, s.Select("a"))
	assert.True(t, s.Evaluate().OK)
}

func TestSelectorMandatoryMissing(t *testing.T) {
	offerings := []models.ClassOffering{
		offering("a", "Cooking", 1, false),
		offering("b", "Art", 2, false),
		offering("c", "History", 3, false),
		offering("m", "Korean Language", 1, true),
	}
	s := NewSelector(testStudent(), offerings, nil)

	require.NoError(t, s.Select("a"))
	require.NoError(t, s.Select("b"))
	require.NoError(t, s.Select("c"))

	eval := s.Evaluate()
	require.False(t, eval.OK)
	assert.Equal(t, appErrors.ErrMandatoryMissing.Code, eval.Err.Code)
}

func TestSelectorLinkedOfferingSelectsAllPeriods(t *testing.T) {
	linked := func(id string, period int) models.ClassOffering {
		o := offering(id, "K", period, true)
		o.MaxGrade = models.LinkedMaxGrade
		o.MinGrade = 0
		return o
	}
	kinder := models.Student{ID: "stu-2", Name: "Minjun", Grade: 0, KoreanLevel: 1}
	s := NewSelector(kinder, []models.ClassOffering{
		linked("k-1", 1),
		linked("k-2", 2),
		linked("k-3", 3),
	}, nil)

	require.NoError(t, s.Select("k-1"))

	draft := s.Draft()
	assert.Equal(t, "k-1", draft.Offering(1))
	assert.Equal(t, "k-2", draft.Offering(2))
	assert.Equal(t, "k-3", draft.Offering(3))
	assert.True(t, draft.Result.OK)
}

func TestSelectorLinkedOfferingMissingSibling(t *testing.T) {
	linked := offering("k-1", "K", 1, true)
	linked.MaxGrade = models.LinkedMaxGrade
	linked.MinGrade = 0
	kinder := models.Student{ID: "stu-2", Grade: 0, KoreanLevel: 1}
	s := NewSelector(kinder, []models.ClassOffering{linked}, nil)

	err := s.Select("k-1")
	require.Error(t, err)
	assert.Empty(t, s.Draft().Offering(1))
}

func TestSelectorFullOfferingBlockedUnlessHeld(t *testing.T) {
	full := offering("f-1", "Calligraphy", 1, false)
	full.MaxStudents = 15
	full.EnrolledCount = 15
	s := NewSelector(testStudent(), []models.ClassOffering{full}, nil)

	assert.False(t, s.Selectable("f-1"))
	err := s.Select("f-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSeatUnavailable.Code, appErrors.FromError(err).Code)

	// A student already counted in the occupancy keeps access to their seat.
	held := NewSelector(testStudent(), []models.ClassOffering{full}, []models.Enrollment{
		{ID: "e-1", StudentID: "stu-1", OfferingID: "f-1", Status: models.EnrollmentStatusEnrolled},
	})
	assert.True(t, held.Selectable("f-1"))
	assert.NoError(t, held.Select("f-1"))
}

func TestSelectorSeedsFromExistingEnrollments(t *testing.T) {
	offerings := []models.ClassOffering{
		offering("a", "Korean Language", 1, true),
		offering("b", "Art", 2, false),
	}
	enrollments := []models.Enrollment{
		{ID: "e-1", StudentID: "stu-1", OfferingID: "a", Status: models.EnrollmentStatusEnrolled},
		{ID: "e-2", StudentID: "stu-1", OfferingID: "gone", Status: models.EnrollmentStatusEnrolled},
		{ID: "e-3", StudentID: "other", OfferingID: "b", Status: models.EnrollmentStatusEnrolled},
	}
	s := NewSelector(testStudent(), offerings, enrollments)

	draft := s.Draft()
	assert.Equal(t, "a", draft.Offering(1))
	assert.Empty(t, draft.Offering(2))
}

func TestSelectorRefreshKeepsInProgressChoice(t *testing.T) {
	offerings := []models.ClassOffering{
		offering("a", "Korean Language", 1, true),
		offering("b", "Art", 2, false),
	}
	s := NewSelector(testStudent(), offerings, nil)
	require.NoError(t, s.Select("b"))

	// A server refresh arrives carrying an enrollment the candidate has since
	// moved away from; it must not clobber the in-progress pick.
	s.Refresh(offerings, []models.Enrollment{
		{ID: "e-1", StudentID: "stu-1", OfferingID: "a", Status: models.EnrollmentStatusEnrolled},
	})

	draft := s.Draft()
	assert.Equal(t, "b", draft.Offering(2))
	assert.Empty(t, draft.Offering(1), "refresh must not re-seed an already mounted selector")
}

func TestSelectorClear(t *testing.T) {
	offerings := []models.ClassOffering{offering("a", "Korean Language", 1, true)}
	s := NewSelector(testStudent(), offerings, nil)
	require.NoError(t, s.Select("a"))

	s.Clear(1)
	assert.Empty(t, s.Draft().Offering(1))
	assert.False(t, s.Draft().Result.OK)
}
