package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: logger.LevelError})
}

type gradeFixture struct {
	contentRepo      *fakeContentRepo
	contentGradeRepo *fakeContentGradeRepo
	sectionGradeRepo *fakeSectionGradeRepo
	bus              *fakeEventBus
	handler          *RecordContentGradeHandler
}

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	f := &gradeFixture{
		contentRepo:      newFakeContentRepo(),
		contentGradeRepo: newFakeContentGradeRepo(),
		sectionGradeRepo: newFakeSectionGradeRepo(),
		bus:              &fakeEventBus{},
	}
	f.handler = NewRecordContentGradeHandler(f.contentRepo, f.contentGradeRepo, f.sectionGradeRepo, f.bus, testLogger())
	return f
}

func (f *gradeFixture) addContent(t *testing.T, id string, kind catalog.ContentKind) {
	t.Helper()
	content, err := catalog.NewContent(shared.ContentID(id), "sec-1", "course-1", kind, id, 0)
	require.NoError(t, err)
	require.NoError(t, f.contentRepo.Create(context.Background(), content))
}

func TestRecordContentGrade_RecomputesSectionGradeSynchronously(t *testing.T) {
	f := newGradeFixture(t)
	f.addContent(t, "lec-1", catalog.ContentKindLecture)
	f.addContent(t, "asg-1", catalog.ContentKindAssignment)

	// Просмотр лекции: лекции 100, задания 0 -> 50.
	result, err := f.handler.Handle(context.Background(), RecordContentGradeCommand{
		StudentID: "student-1",
		ContentID: "lec-1",
		Action:    GradeActionWatched,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.SectionGradeRecomputed)
	require.NotNil(t, result.SectionGrade)
	assert.InDelta(t, 50.0, *result.SectionGrade, 0.001)

	// Оценка задания 80: (100 + 80) / 2 = 90.
	result, err = f.handler.Handle(context.Background(), RecordContentGradeCommand{
		StudentID: "student-1",
		ContentID: "asg-1",
		Action:    GradeActionGraded,
		Score:     80,
	})
	require.NoError(t, err)
	require.NotNil(t, result.SectionGrade)
	assert.InDelta(t, 90.0, *result.SectionGrade, 0.001)

	stored, err := f.sectionGradeRepo.Get(context.Background(), "student-1", "sec-1")
	require.NoError(t, err)
	require.True(t, stored.HasGrade())
	assert.InDelta(t, 90.0, stored.Grade.Float64(), 0.001)

	assert.Contains(t, f.bus.typesPublished(), shared.EventSectionGradeComputed)
}

func TestRecordContentGrade_RecomputeFailureDoesNotFailWrite(t *testing.T) {
	f := newGradeFixture(t)
	f.addContent(t, "lec-1", catalog.ContentKindLecture)
	f.contentGradeRepo.failNext = errors.New("storage hiccup")

	result, err := f.handler.Handle(context.Background(), RecordContentGradeCommand{
		StudentID: "student-1",
		ContentID: "lec-1",
		Action:    GradeActionWatched,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.SectionGradeRecomputed)

	// Оценка за контент записана, несмотря на сбой пересчёта.
	grade, err := f.contentGradeRepo.Get(context.Background(), "student-1", "lec-1")
	require.NoError(t, err)
	assert.Equal(t, "watched", string(grade.Status))
}

func TestRecordContentGrade_ClampsOutOfRangeScore(t *testing.T) {
	f := newGradeFixture(t)
	f.addContent(t, "asg-1", catalog.ContentKindAssignment)

	result, err := f.handler.Handle(context.Background(), RecordContentGradeCommand{
		StudentID: "student-1",
		ContentID: "asg-1",
		Action:    GradeActionGraded,
		Score:     150,
	})
	require.NoError(t, err)
	require.NotNil(t, result.SectionGrade)
	assert.InDelta(t, 100.0, *result.SectionGrade, 0.001)

	grade, err := f.contentGradeRepo.Get(context.Background(), "student-1", "asg-1")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, grade.GradePercent.Float64(), 0.001)
}

func TestRecordContentGrade_Validation(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.handler.Handle(context.Background(), RecordContentGradeCommand{
		ContentID: "lec-1",
		Action:    GradeActionWatched,
	})
	assert.Error(t, err)

	_, err = f.handler.Handle(context.Background(), RecordContentGradeCommand{
		StudentID: "student-1",
		ContentID: "lec-1",
		Action:    "peer_reviewed",
	})
	assert.Error(t, err)
}
