package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

type accessFixture struct {
	groupRepo      *fakeGroupRepo
	sectionRepo    *fakeSectionRepo
	enrollmentRepo *fakeEnrollmentRepo
	paymentRepo    *fakePaymentRepo
	resolve        *ResolveAccessHandler
	matrix         *GetAccessMatrixHandler
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	f := &accessFixture{
		groupRepo:      newFakeGroupRepo(),
		sectionRepo:    newFakeSectionRepo(),
		enrollmentRepo: newFakeEnrollmentRepo(),
		paymentRepo:    newFakePaymentRepo(),
	}
	f.resolve = NewResolveAccessHandler(f.sectionRepo, f.enrollmentRepo, f.paymentRepo)
	f.matrix = NewGetAccessMatrixHandler(f.groupRepo, f.sectionRepo, f.enrollmentRepo, f.paymentRepo)
	return f
}

// seed создаёт группу с бесплатной вводной секцией и платной секцией.
func (f *accessFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.groupRepo.Create(ctx, &catalog.Group{
		ID:       "group-1",
		CourseID: "course-1",
		Name:     "2026-осень",
	}))
	require.NoError(t, f.sectionRepo.Create(ctx, &catalog.Section{
		ID:       "sec-intro",
		CourseID: "course-1",
		GroupID:  "group-1",
		Title:    "Intro",
		IsFree:   true,
		IsActive: true,
		Order:    1,
	}))
	require.NoError(t, f.sectionRepo.Create(ctx, &catalog.Section{
		ID:       "sec-paid",
		CourseID: "course-1",
		GroupID:  "group-1",
		Title:    "Advanced",
		Price:    shared.Money{AmountCents: 40000, Currency: "USD"},
		IsActive: true,
		Order:    2,
	}))

	enr, err := enrollment.NewEnrollment("enr-1", "student-1", "course-1", "group-1")
	require.NoError(t, err)
	require.NoError(t, f.enrollmentRepo.Create(ctx, enr))
}

func (f *accessFixture) addPayment(t *testing.T, id string, student shared.StudentID, submittedAt time.Time) *enrollment.SectionPayment {
	t.Helper()
	payment, err := enrollment.NewSectionPayment(id, student, "sec-paid", "course-1",
		shared.Money{AmountCents: 40000, Currency: "USD"})
	require.NoError(t, err)
	payment.SubmittedAt = submittedAt
	require.NoError(t, f.paymentRepo.Create(context.Background(), payment))
	return payment
}

func TestResolveAccess_FreeSectionAlwaysUnlocked(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)

	// Бесплатная секция открыта даже студенту без записи и оплат.
	dto, err := f.resolve.Handle(context.Background(), ResolveAccessQuery{
		StudentID: "student-unknown",
		SectionID: "sec-intro",
	})
	require.NoError(t, err)
	assert.True(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.AccessUnlocked), dto.State)
	assert.Equal(t, string(enrollment.ReasonFree), dto.Reason)
	assert.Empty(t, dto.LatestPaymentID)
}

func TestResolveAccess_EnrolledSectionUnlocked(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)
	ctx := context.Background()

	enr, err := f.enrollmentRepo.GetByStudentAndCourse(ctx, "student-1", "course-1")
	require.NoError(t, err)
	enr.UnlockSection("sec-paid")
	require.NoError(t, f.enrollmentRepo.Update(ctx, enr))

	dto, err := f.resolve.Handle(ctx, ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-paid",
	})
	require.NoError(t, err)
	assert.True(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.ReasonEnrolled), dto.Reason)
}

func TestResolveAccess_LatestPaymentDecides(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// Отклонённая оплата, затем более поздняя одобренная: считается последняя.
	rejected := f.addPayment(t, "pay-1", "student-1", base)
	require.NoError(t, rejected.Reject())
	require.NoError(t, f.paymentRepo.Update(ctx, rejected))

	approved := f.addPayment(t, "pay-2", "student-1", base.Add(time.Hour))
	require.NoError(t, approved.Approve())
	require.NoError(t, f.paymentRepo.Update(ctx, approved))

	dto, err := f.resolve.Handle(ctx, ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-paid",
	})
	require.NoError(t, err)
	assert.True(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.ReasonPaymentApproved), dto.Reason)
	assert.Equal(t, "pay-2", dto.LatestPaymentID)
	assert.Equal(t, string(enrollment.PaymentApproved), dto.LatestPaymentStatus)
}

func TestResolveAccess_PendingPaymentKeepsSectionLocked(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)

	f.addPayment(t, "pay-1", "student-1", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))

	dto, err := f.resolve.Handle(context.Background(), ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-paid",
	})
	require.NoError(t, err)
	assert.False(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.AccessLocked), dto.State)
	assert.Equal(t, string(enrollment.ReasonPaymentPending), dto.Reason)
	assert.Equal(t, "pay-1", dto.LatestPaymentID)
}

func TestResolveAccess_RejectedPaymentKeepsSectionLocked(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)
	ctx := context.Background()

	payment := f.addPayment(t, "pay-1", "student-1", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, payment.Reject())
	require.NoError(t, f.paymentRepo.Update(ctx, payment))

	dto, err := f.resolve.Handle(ctx, ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-paid",
	})
	require.NoError(t, err)
	assert.False(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.ReasonPaymentRejected), dto.Reason)
}

func TestResolveAccess_NoPaymentMeansPaymentRequired(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)

	dto, err := f.resolve.Handle(context.Background(), ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-paid",
	})
	require.NoError(t, err)
	assert.False(t, dto.IsUnlocked)
	assert.Equal(t, string(enrollment.ReasonPaymentRequired), dto.Reason)
	assert.Empty(t, dto.LatestPaymentID)
}

func TestResolveAccess_UnknownSection(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)

	_, err := f.resolve.Handle(context.Background(), ResolveAccessQuery{
		StudentID: "student-1",
		SectionID: "sec-ghost",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrSectionNotFound)
}

func TestResolveAccess_ValidationRejectsEmptyIDs(t *testing.T) {
	f := newAccessFixture(t)

	_, err := f.resolve.Handle(context.Background(), ResolveAccessQuery{SectionID: "sec-paid"})
	require.Error(t, err)

	_, err = f.resolve.Handle(context.Background(), ResolveAccessQuery{StudentID: "student-1"})
	require.Error(t, err)
}

func TestGetAccessMatrix_CoversEveryPair(t *testing.T) {
	f := newAccessFixture(t)
	f.seed(t)
	ctx := context.Background()

	// Второй студент с одобренной оплатой платной секции.
	enr, err := enrollment.NewEnrollment("enr-2", "student-2", "course-1", "group-1")
	require.NoError(t, err)
	require.NoError(t, f.enrollmentRepo.Create(ctx, enr))

	payment := f.addPayment(t, "pay-1", "student-2", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, payment.Approve())
	require.NoError(t, f.paymentRepo.Update(ctx, payment))

	dto, err := f.matrix.Handle(ctx, GetAccessMatrixQuery{GroupID: "group-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"student-1", "student-2"}, dto.Students)
	assert.Equal(t, []string{"sec-intro", "sec-paid"}, dto.Sections)
	require.Len(t, dto.Decisions, 4)

	// Строки идут по студентам, внутри строки - секции в порядке Order.
	byPair := make(map[[2]string]AccessDecisionDTO, len(dto.Decisions))
	for _, d := range dto.Decisions {
		byPair[[2]string{d.StudentID, d.SectionID}] = d
	}
	assert.Equal(t, "student-1", dto.Decisions[0].StudentID)
	assert.Equal(t, "sec-intro", dto.Decisions[0].SectionID)
	assert.Equal(t, "student-2", dto.Decisions[3].StudentID)
	assert.Equal(t, "sec-paid", dto.Decisions[3].SectionID)

	assert.Equal(t, string(enrollment.ReasonFree), byPair[[2]string{"student-1", "sec-intro"}].Reason)
	assert.Equal(t, string(enrollment.ReasonPaymentRequired), byPair[[2]string{"student-1", "sec-paid"}].Reason)
	assert.Equal(t, string(enrollment.ReasonPaymentApproved), byPair[[2]string{"student-2", "sec-paid"}].Reason)
	assert.True(t, byPair[[2]string{"student-2", "sec-paid"}].IsUnlocked)
}

func TestGetAccessMatrix_UnknownGroup(t *testing.T) {
	f := newAccessFixture(t)

	_, err := f.matrix.Handle(context.Background(), GetAccessMatrixQuery{GroupID: "group-ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrGroupNotFound)
}
