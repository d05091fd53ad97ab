package query

import (
	"context"
	"sort"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// In-memory fakes backing the query handler tests. Same shape as the
// command-side fakes: only the state the handlers read, with the real
// repositories' sentinel errors on misses.

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

type fakeCourseRepo struct {
	courses map[shared.CourseID]*catalog.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[shared.CourseID]*catalog.Course)}
}

func (r *fakeCourseRepo) Create(_ context.Context, course *catalog.Course) error {
	r.courses[course.ID] = course
	return nil
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id shared.CourseID) (*catalog.Course, error) {
	course, ok := r.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return course, nil
}

func (r *fakeCourseRepo) Update(_ context.Context, course *catalog.Course) error {
	r.courses[course.ID] = course
	return nil
}

func (r *fakeCourseRepo) Delete(_ context.Context, id shared.CourseID) error {
	delete(r.courses, id)
	return nil
}

type fakeGroupRepo struct {
	groups map[shared.GroupID]*catalog.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[shared.GroupID]*catalog.Group)}
}

func (r *fakeGroupRepo) Create(_ context.Context, group *catalog.Group) error {
	r.groups[group.ID] = group
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id shared.GroupID) (*catalog.Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrGroupNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]*catalog.Group, error) {
	var out []*catalog.Group
	for _, g := range r.groups {
		if g.CourseID == courseID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for id, g := range r.groups {
		if g.CourseID == courseID {
			delete(r.groups, id)
			n++
		}
	}
	return n, nil
}

type fakeSectionRepo struct {
	sections map[shared.SectionID]*catalog.Section
}

func newFakeSectionRepo() *fakeSectionRepo {
	return &fakeSectionRepo{sections: make(map[shared.SectionID]*catalog.Section)}
}

func (r *fakeSectionRepo) Create(_ context.Context, section *catalog.Section) error {
	r.sections[section.ID] = section
	return nil
}

func (r *fakeSectionRepo) GetByID(_ context.Context, id shared.SectionID) (*catalog.Section, error) {
	section, ok := r.sections[id]
	if !ok {
		return nil, shared.ErrSectionNotFound
	}
	return section, nil
}

func (r *fakeSectionRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]*catalog.Section, error) {
	var out []*catalog.Section
	for _, s := range r.sections {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *fakeSectionRepo) GetByGroup(_ context.Context, groupID shared.GroupID) ([]*catalog.Section, error) {
	var out []*catalog.Section
	for _, s := range r.sections {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *fakeSectionRepo) GetActivePaidByCourse(_ context.Context, courseID shared.CourseID) ([]*catalog.Section, error) {
	var out []*catalog.Section
	for _, s := range r.sections {
		if s.CourseID == courseID && s.IsPaid() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *fakeSectionRepo) Update(_ context.Context, section *catalog.Section) error {
	r.sections[section.ID] = section
	return nil
}

func (r *fakeSectionRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for id, s := range r.sections {
		if s.CourseID == courseID {
			delete(r.sections, id)
			n++
		}
	}
	return n, nil
}

type fakeContentRepo struct {
	contents map[shared.ContentID]*catalog.Content
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{contents: make(map[shared.ContentID]*catalog.Content)}
}

func (r *fakeContentRepo) Create(_ context.Context, content *catalog.Content) error {
	r.contents[content.ID] = content
	return nil
}

func (r *fakeContentRepo) GetByID(_ context.Context, id shared.ContentID) (*catalog.Content, error) {
	content, ok := r.contents[id]
	if !ok {
		return nil, shared.ErrContentNotFound
	}
	return content, nil
}

func (r *fakeContentRepo) GetBySection(_ context.Context, sectionID shared.SectionID) ([]*catalog.Content, error) {
	var out []*catalog.Content
	for _, c := range r.contents {
		if c.SectionID == sectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeContentRepo) GetByGroup(_ context.Context, _ shared.GroupID) ([]*catalog.Content, error) {
	var out []*catalog.Content
	for _, c := range r.contents {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeContentRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for id, c := range r.contents {
		if c.CourseID == courseID {
			delete(r.contents, id)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment
// ─────────────────────────────────────────────────────────────────────────────

type enrKey struct {
	student shared.StudentID
	course  shared.CourseID
}

type fakeEnrollmentRepo struct {
	enrollments map[enrKey]*enrollment.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[enrKey]*enrollment.Enrollment)}
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, enr *enrollment.Enrollment) error {
	key := enrKey{enr.StudentID, enr.CourseID}
	if _, ok := r.enrollments[key]; ok {
		return shared.ErrEnrollmentExists
	}
	r.enrollments[key] = enr
	return nil
}

func (r *fakeEnrollmentRepo) GetByID(_ context.Context, id string) (*enrollment.Enrollment, error) {
	for _, enr := range r.enrollments {
		if enr.ID == id {
			return enr, nil
		}
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) (*enrollment.Enrollment, error) {
	enr, ok := r.enrollments[enrKey{studentID, courseID}]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return enr, nil
}

func (r *fakeEnrollmentRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, enr := range r.enrollments {
		if enr.CourseID == courseID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) GetByGroup(_ context.Context, groupID shared.GroupID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, enr := range r.enrollments {
		if enr.GroupID == groupID {
			out = append(out, enr)
		}
	}
	// Детерминированный порядок строк в матрице и в журнале оценок.
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (r *fakeEnrollmentRepo) Update(_ context.Context, enr *enrollment.Enrollment) error {
	r.enrollments[enrKey{enr.StudentID, enr.CourseID}] = enr
	return nil
}

func (r *fakeEnrollmentRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for key := range r.enrollments {
		if key.course == courseID {
			delete(r.enrollments, key)
			n++
		}
	}
	return n, nil
}

type fakePaymentRepo struct {
	payments map[string]*enrollment.SectionPayment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*enrollment.SectionPayment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *enrollment.SectionPayment) error {
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id string) (*enrollment.SectionPayment, error) {
	payment, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *fakePaymentRepo) GetLatest(_ context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*enrollment.SectionPayment, error) {
	var latest *enrollment.SectionPayment
	for _, p := range r.payments {
		if p.StudentID != studentID || p.SectionID != sectionID {
			continue
		}
		if latest == nil || p.SubmittedAt.After(latest.SubmittedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, shared.ErrPaymentNotFound
	}
	return latest, nil
}

func (r *fakePaymentRepo) GetByStudentAndSection(_ context.Context, studentID shared.StudentID, sectionID shared.SectionID) ([]*enrollment.SectionPayment, error) {
	var out []*enrollment.SectionPayment
	for _, p := range r.payments {
		if p.StudentID == studentID && p.SectionID == sectionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]*enrollment.SectionPayment, error) {
	var out []*enrollment.SectionPayment
	for _, p := range r.payments {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *enrollment.SectionPayment) error {
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for id, p := range r.payments {
		if p.CourseID == courseID {
			delete(r.payments, id)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Grading
// ─────────────────────────────────────────────────────────────────────────────

type gradeKey struct {
	student shared.StudentID
	content shared.ContentID
}

type fakeContentGradeRepo struct {
	grades map[gradeKey]*grading.ContentGrade
}

func newFakeContentGradeRepo() *fakeContentGradeRepo {
	return &fakeContentGradeRepo{grades: make(map[gradeKey]*grading.ContentGrade)}
}

func (r *fakeContentGradeRepo) Upsert(_ context.Context, grade *grading.ContentGrade) error {
	r.grades[gradeKey{grade.StudentID, grade.ContentID}] = grade
	return nil
}

func (r *fakeContentGradeRepo) Get(_ context.Context, studentID shared.StudentID, contentID shared.ContentID) (*grading.ContentGrade, error) {
	grade, ok := r.grades[gradeKey{studentID, contentID}]
	if !ok {
		return nil, shared.ErrContentGradeNotFound
	}
	return grade, nil
}

func (r *fakeContentGradeRepo) GetBySection(_ context.Context, studentID shared.StudentID, sectionID shared.SectionID) (map[shared.ContentID]*grading.ContentGrade, error) {
	out := make(map[shared.ContentID]*grading.ContentGrade)
	for key, g := range r.grades {
		if key.student == studentID && g.SectionID == sectionID {
			out[key.content] = g
		}
	}
	return out, nil
}

func (r *fakeContentGradeRepo) GetByGroup(_ context.Context, studentID shared.StudentID, _ shared.GroupID) (map[shared.ContentID]*grading.ContentGrade, error) {
	out := make(map[shared.ContentID]*grading.ContentGrade)
	for key, g := range r.grades {
		if key.student == studentID {
			out[key.content] = g
		}
	}
	return out, nil
}

func (r *fakeContentGradeRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for key, g := range r.grades {
		if g.CourseID == courseID {
			delete(r.grades, key)
			n++
		}
	}
	return n, nil
}

type sectionGradeKey struct {
	student shared.StudentID
	section shared.SectionID
}

type fakeSectionGradeRepo struct {
	grades map[sectionGradeKey]*grading.SectionGrade

	// sectionGroups maps sections to groups for GetByGroup; a nil map
	// means every section belongs to the queried group.
	sectionGroups map[shared.SectionID]shared.GroupID
}

func newFakeSectionGradeRepo() *fakeSectionGradeRepo {
	return &fakeSectionGradeRepo{grades: make(map[sectionGradeKey]*grading.SectionGrade)}
}

func (r *fakeSectionGradeRepo) Upsert(_ context.Context, grade *grading.SectionGrade) error {
	r.grades[sectionGradeKey{grade.StudentID, grade.SectionID}] = grade
	return nil
}

func (r *fakeSectionGradeRepo) Get(_ context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*grading.SectionGrade, error) {
	grade, ok := r.grades[sectionGradeKey{studentID, sectionID}]
	if !ok {
		return nil, shared.ErrSectionGradeNotFound
	}
	return grade, nil
}

func (r *fakeSectionGradeRepo) GetByCourse(_ context.Context, studentID shared.StudentID, courseID shared.CourseID) ([]*grading.SectionGrade, error) {
	var out []*grading.SectionGrade
	for key, g := range r.grades {
		if key.student == studentID && g.CourseID == courseID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out, nil
}

func (r *fakeSectionGradeRepo) GetByGroup(_ context.Context, studentID shared.StudentID, groupID shared.GroupID) ([]*grading.SectionGrade, error) {
	var out []*grading.SectionGrade
	for key, g := range r.grades {
		if key.student != studentID {
			continue
		}
		if r.sectionGroups != nil && r.sectionGroups[g.SectionID] != groupID {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out, nil
}

func (r *fakeSectionGradeRepo) GetAllByCourse(_ context.Context, courseID shared.CourseID) ([]*grading.SectionGrade, error) {
	var out []*grading.SectionGrade
	for _, g := range r.grades {
		if g.CourseID == courseID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeSectionGradeRepo) DeleteByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	n := 0
	for key, g := range r.grades {
		if g.CourseID == courseID {
			delete(r.grades, key)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeSettingsCache struct {
	settings *settings.PlatformSettings
}

func (c *fakeSettingsCache) Get(_ context.Context) (*settings.PlatformSettings, error) {
	if c.settings == nil {
		return settings.Default(), nil
	}
	return c.settings, nil
}

func (c *fakeSettingsCache) Invalidate(_ context.Context) error { return nil }
