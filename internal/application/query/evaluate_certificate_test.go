package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

type evaluationFixture struct {
	courseRepo       *fakeCourseRepo
	contentRepo      *fakeContentRepo
	enrollmentRepo   *fakeEnrollmentRepo
	contentGradeRepo *fakeContentGradeRepo
	settingsCache    *fakeSettingsCache
	handler          *EvaluateCertificateHandler
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()
	f := &evaluationFixture{
		courseRepo:       newFakeCourseRepo(),
		contentRepo:      newFakeContentRepo(),
		enrollmentRepo:   newFakeEnrollmentRepo(),
		contentGradeRepo: newFakeContentGradeRepo(),
		settingsCache:    &fakeSettingsCache{},
	}
	f.handler = NewEvaluateCertificateHandler(f.enrollmentRepo, f.courseRepo, f.contentRepo,
		f.contentGradeRepo, f.settingsCache)
	return f
}

// seed создаёт автосертификатный курс с одним заданием в группе.
func (f *evaluationFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	course, err := catalog.NewCourse(catalog.NewCourseParams{
		ID:              "course-1",
		OwnerID:         "instructor-1",
		Title:           "Go с нуля",
		Cost:            shared.Money{AmountCents: 100000, Currency: "USD"},
		CertificateMode: catalog.CertificateModeAutomatic,
	})
	require.NoError(t, err)
	require.NoError(t, f.courseRepo.Create(ctx, course))

	enr, err := enrollment.NewEnrollment("enr-1", "student-1", "course-1", "group-1")
	require.NoError(t, err)
	require.NoError(t, f.enrollmentRepo.Create(ctx, enr))

	assignment, err := catalog.NewContent("content-1", "sec-1", "course-1", catalog.ContentKindAssignment, "Введение", 1)
	require.NoError(t, err)
	require.NoError(t, f.contentRepo.Create(ctx, assignment))
}

// complete выставляет заданию балл: группа завершена, итог пересчитан
// из оценок за контент.
func (f *evaluationFixture) complete(t *testing.T, score shared.Percent) {
	t.Helper()
	ctx := context.Background()

	graded, err := grading.NewContentGrade("student-1", "content-1", "sec-1", "course-1", grading.GradeGraded, score)
	require.NoError(t, err)
	require.NoError(t, f.contentGradeRepo.Upsert(ctx, graded))
}

func TestEvaluateCertificate_AutoGrantWhenCompleteAndPassing(t *testing.T) {
	f := newEvaluationFixture(t)
	f.seed(t)
	f.complete(t, 90)

	dto, err := f.handler.Handle(context.Background(), EvaluateCertificateQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(certificate.StatusAutoGrant), dto.Status)
	assert.True(t, dto.Grantable)
	assert.Equal(t, 1, dto.TotalItems)
	assert.Equal(t, 1, dto.CompletedItems)
	assert.InDelta(t, 100, dto.CompletionPercentage, 0.001)
	assert.InDelta(t, 90, dto.OverallGrade, 0.001)
	assert.InDelta(t, float64(settings.DefaultPassingGrade), dto.PassingGrade, 0.001)
}

func TestEvaluateCertificate_IncompleteGroupBlocks(t *testing.T) {
	f := newEvaluationFixture(t)
	f.seed(t)
	// Задание существует, но не сдано.

	dto, err := f.handler.Handle(context.Background(), EvaluateCertificateQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(certificate.StatusGroupNotCompleted), dto.Status)
	assert.False(t, dto.Grantable)
	assert.Zero(t, dto.CompletedItems)
}

func TestEvaluateCertificate_PassingGradeComesFromSettings(t *testing.T) {
	f := newEvaluationFixture(t)
	f.seed(t)
	f.complete(t, 90)

	// Платформа подняла проходной балл выше итоговой оценки студента.
	custom := settings.Default()
	require.NoError(t, custom.SetPassingGrade(95))
	f.settingsCache.settings = custom

	dto, err := f.handler.Handle(context.Background(), EvaluateCertificateQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(certificate.StatusGradeTooLow), dto.Status)
	assert.False(t, dto.Grantable)
	assert.InDelta(t, 95, dto.PassingGrade, 0.001)
}

func TestEvaluateCertificate_NotEnrolled(t *testing.T) {
	f := newEvaluationFixture(t)
	f.seed(t)

	dto, err := f.handler.Handle(context.Background(), EvaluateCertificateQuery{
		StudentID: "student-ghost",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(certificate.StatusNotEnrolled), dto.Status)
	assert.False(t, dto.Grantable)
}

func TestEvaluateCertificate_UnknownCourse(t *testing.T) {
	f := newEvaluationFixture(t)

	_, err := f.handler.Handle(context.Background(), EvaluateCertificateQuery{
		StudentID: "student-1",
		CourseID:  "course-ghost",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}
