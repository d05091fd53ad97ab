package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

type certFixture struct {
	courseRepo       *fakeCourseRepo
	contentRepo      *fakeContentRepo
	enrollmentRepo   *fakeEnrollmentRepo
	contentGradeRepo *fakeContentGradeRepo
	certificateRepo  *fakeCertificateRepo
	bus              *fakeEventBus
	handler          *RequestCertificateHandler
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	f := &certFixture{
		courseRepo:       newFakeCourseRepo(),
		contentRepo:      newFakeContentRepo(),
		enrollmentRepo:   newFakeEnrollmentRepo(),
		contentGradeRepo: newFakeContentGradeRepo(),
		certificateRepo:  newFakeCertificateRepo(),
		bus:              &fakeEventBus{},
	}
	f.handler = NewRequestCertificateHandler(
		f.enrollmentRepo, f.courseRepo, f.contentRepo,
		f.contentGradeRepo, f.certificateRepo,
		&fakeSettingsCache{}, &fakeIDGen{}, f.bus, testLogger(),
	)
	return f
}

// seed enrols student-1 into a course with a single assignment graded at
// 85, which clears the default passing grade of 60.
func (f *certFixture) seed(t *testing.T, mode catalog.CertificateMode, releaseOpen bool) {
	t.Helper()
	ctx := context.Background()

	course, err := catalog.NewCourse(catalog.NewCourseParams{
		ID:              "course-1",
		OwnerID:         "instr-1",
		Title:           "Operating Systems",
		Cost:            shared.Money{AmountCents: 50000, Currency: "USD"},
		CertificateMode: mode,
	})
	require.NoError(t, err)
	course.InstructorCertificateRelease = releaseOpen
	require.NoError(t, f.courseRepo.Create(ctx, course))

	content, err := catalog.NewContent("asg-0", "sec-1", "course-1", catalog.ContentKindAssignment, "Scheduling", 0)
	require.NoError(t, err)
	require.NoError(t, f.contentRepo.Create(ctx, content))

	enr, err := enrollment.NewEnrollment("enr-1", "student-1", "course-1", "group-1")
	require.NoError(t, err)
	require.NoError(t, f.enrollmentRepo.Create(ctx, enr))

	grade, err := grading.NewContentGrade("student-1", "asg-0", "sec-1", "course-1", grading.GradeGraded, 85)
	require.NoError(t, err)
	require.NoError(t, f.contentGradeRepo.Upsert(ctx, grade))
}

func TestRequestCertificate_AutoGrantIssuesImmediately(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeAutomatic, false)

	result, err := f.handler.Handle(context.Background(), RequestCertificateCommand{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Issued)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, certificate.CertIssued, result.Certificate.Status)
	assert.Equal(t, certificate.StatusAutoGrant, result.Evaluation.Status)
	assert.Equal(t, shared.Percent(85), result.Evaluation.Details.OverallGrade)

	assert.Contains(t, f.bus.typesPublished(), shared.EventCertificateGranted)
}

func TestRequestCertificate_OverallGradeRecomputedFromContent(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeAutomatic, false)
	ctx := context.Background()

	// Вторая секция с заданием на 65: итог - среднее баллов секций,
	// свёрнутое заново из оценок за контент.
	content, err := catalog.NewContent("asg-1", "sec-2", "course-1", catalog.ContentKindAssignment, "Paging", 0)
	require.NoError(t, err)
	require.NoError(t, f.contentRepo.Create(ctx, content))

	grade, err := grading.NewContentGrade("student-1", "asg-1", "sec-2", "course-1", grading.GradeGraded, 65)
	require.NoError(t, err)
	require.NoError(t, f.contentGradeRepo.Upsert(ctx, grade))

	result, err := f.handler.Handle(ctx, RequestCertificateCommand{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Issued)
	assert.Equal(t, shared.Percent(75), result.Evaluation.Details.OverallGrade)
}

func TestRequestCertificate_ManualModeCreatesPending(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeManualInstructor, true)

	result, err := f.handler.Handle(context.Background(), RequestCertificateCommand{
		StudentID: "student-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Issued)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, certificate.CertPending, result.Certificate.Status)

	// Pending requests are not granted, so no grant event yet.
	assert.NotContains(t, f.bus.typesPublished(), shared.EventCertificateGranted)
}

func TestRequestCertificate_DuplicatePendingRejected(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeManualInstructor, true)
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, RequestCertificateCommand{
		StudentID: "student-1", CourseID: "course-1",
	})
	require.NoError(t, err)

	_, err = f.handler.Handle(ctx, RequestCertificateCommand{
		StudentID: "student-1", CourseID: "course-1",
	})
	assert.ErrorIs(t, err, shared.ErrCertificatePending)
}

func TestRequestCertificate_IncompleteGroupNotEligible(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeAutomatic, false)
	ctx := context.Background()

	// An ungraded assignment keeps completion below 100%.
	content, err := catalog.NewContent("asg-1", "sec-1", "course-1", catalog.ContentKindAssignment, "Kernel module", 1)
	require.NoError(t, err)
	require.NoError(t, f.contentRepo.Create(ctx, content))

	result, err := f.handler.Handle(ctx, RequestCertificateCommand{
		StudentID: "student-1", CourseID: "course-1",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Nil(t, result)

	_, err = f.certificateRepo.GetByStudentAndCourse(ctx, "student-1", "course-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRequestCertificate_NotEnrolled(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeAutomatic, false)

	_, err := f.handler.Handle(context.Background(), RequestCertificateCommand{
		StudentID: "student-9", CourseID: "course-1",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestIssueCertificate_InstructorApprovesPending(t *testing.T) {
	f := newCertFixture(t)
	f.seed(t, catalog.CertificateModeManualInstructor, true)
	ctx := context.Background()

	requested, err := f.handler.Handle(ctx, RequestCertificateCommand{
		StudentID: "student-1", CourseID: "course-1",
	})
	require.NoError(t, err)

	issueHandler := NewIssueCertificateHandler(f.certificateRepo, f.courseRepo, f.bus, testLogger())
	result, err := issueHandler.Handle(ctx, IssueCertificateCommand{
		CertificateID: requested.Certificate.ID,
		Actor:         shared.Actor{ID: "instr-1", Role: shared.RoleInstructor},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	cert, err := f.certificateRepo.GetByID(ctx, requested.Certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.CertIssued, cert.Status)
	assert.Contains(t, f.bus.typesPublished(), shared.EventCertificateGranted)

	// Re-issuing the same certificate is rejected.
	_, err = issueHandler.Handle(ctx, IssueCertificateCommand{
		CertificateID: requested.Certificate.ID,
		Actor:         shared.Actor{ID: "instr-1", Role: shared.RoleInstructor},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
