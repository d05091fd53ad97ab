// Package enrollment содержит доменную модель записи студента на курс
// и оплат секций. Это ядро бизнес-логики - здесь нет внешних зависимостей.
package enrollment

import (
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет текущий статус записи студента на курс.
type Status string

const (
	// StatusPending - заявка подана, ждёт одобрения.
	StatusPending Status = "pending"
	// StatusApproved - заявка одобрена, студент ещё не приступил.
	StatusApproved Status = "approved"
	// StatusEnrolled - студент учится.
	StatusEnrolled Status = "enrolled"
	// StatusCompleted - студент завершил курс.
	StatusCompleted Status = "completed"
	// StatusRejected - заявка отклонена.
	StatusRejected Status = "rejected"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusEnrolled, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// IsActive возвращает true, если студент имеет доступ к курсу.
func (s Status) IsActive() bool {
	return s == StatusApproved || s == StatusEnrolled || s == StatusCompleted
}

// PaymentStatus определяет статус оплаты секции.
type PaymentStatus string

const (
	// PaymentPending - оплата отправлена, ждёт проверки.
	PaymentPending PaymentStatus = "pending"
	// PaymentApproved - оплата подтверждена.
	PaymentApproved PaymentStatus = "approved"
	// PaymentRejected - оплата отклонена.
	PaymentRejected PaymentStatus = "rejected"
)

// IsValid проверяет, что статус оплаты корректен.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return true
	default:
		return false
	}
}

// IsResolved возвращает true, если оплата уже обработана.
func (s PaymentStatus) IsResolved() bool {
	return s == PaymentApproved || s == PaymentRejected
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment - запись студента на курс. Одна на пару (студент, курс).
type Enrollment struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// StudentID - студент.
	StudentID shared.StudentID

	// CourseID - курс.
	CourseID shared.CourseID

	// GroupID - группа, в которой учится студент.
	GroupID shared.GroupID

	// EnrolledSections - множество разблокированных секций.
	// Растёт только через одобренные оплаты или действие администратора;
	// никогда не уменьшается молча: доступ, однажды выданный,
	// не отзывается автоматически ("grandfathering").
	EnrolledSections map[shared.SectionID]struct{}

	// Status - текущий статус записи.
	Status Status

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewEnrollment создаёт новую запись студента на курс.
func NewEnrollment(id string, studentID shared.StudentID, courseID shared.CourseID, groupID shared.GroupID) (*Enrollment, error) {
	if id == "" {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrEmptyValue, "enrollment id is required")
	}
	if studentID.IsEmpty() {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrEmptyValue, "student id is required")
	}
	if courseID.IsEmpty() {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrEmptyValue, "course id is required")
	}

	now := time.Now().UTC()

	return &Enrollment{
		ID:               id,
		StudentID:        studentID,
		CourseID:         courseID,
		GroupID:          groupID,
		EnrolledSections: make(map[shared.SectionID]struct{}),
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// HasSection проверяет, разблокирована ли секция для студента.
func (e *Enrollment) HasSection(sectionID shared.SectionID) bool {
	if e == nil {
		return false
	}
	_, ok := e.EnrolledSections[sectionID]
	return ok
}

// UnlockSection добавляет секцию в множество разблокированных.
// Идемпотентна: повторное добавление ничего не меняет.
// Обратной операции нет намеренно.
func (e *Enrollment) UnlockSection(sectionID shared.SectionID) bool {
	if e.HasSection(sectionID) {
		return false
	}
	if e.EnrolledSections == nil {
		e.EnrolledSections = make(map[shared.SectionID]struct{})
	}
	e.EnrolledSections[sectionID] = struct{}{}
	e.UpdatedAt = time.Now().UTC()
	return true
}

// SectionIDs возвращает разблокированные секции срезом (для персистенции).
func (e *Enrollment) SectionIDs() []shared.SectionID {
	ids := make([]shared.SectionID, 0, len(e.EnrolledSections))
	for id := range e.EnrolledSections {
		ids = append(ids, id)
	}
	return ids
}

// Approve одобряет заявку.
func (e *Enrollment) Approve() error {
	if e.Status != StatusPending {
		return shared.NewDomainError("enrollment", "Approve", shared.ErrStateTransition, "only pending enrollments can be approved")
	}
	e.Status = StatusApproved
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkEnrolled переводит запись в статус "учится".
func (e *Enrollment) MarkEnrolled() error {
	if !e.Status.IsActive() {
		return shared.NewDomainError("enrollment", "MarkEnrolled", shared.ErrStateTransition, "enrollment is not active")
	}
	e.Status = StatusEnrolled
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted переводит запись в статус "завершил".
func (e *Enrollment) MarkCompleted() error {
	if !e.Status.IsActive() {
		return shared.NewDomainError("enrollment", "MarkCompleted", shared.ErrStateTransition, "enrollment is not active")
	}
	e.Status = StatusCompleted
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление записи для логирования.
func (e *Enrollment) String() string {
	return fmt.Sprintf("Enrollment{Student: %s, Course: %s, Sections: %d, Status: %s}",
		e.StudentID, e.CourseID, len(e.EnrolledSections), e.Status)
}

// Clone создаёт глубокую копию записи.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	clone := *e
	clone.EnrolledSections = make(map[shared.SectionID]struct{}, len(e.EnrolledSections))
	for id := range e.EnrolledSections {
		clone.EnrolledSections[id] = struct{}{}
	}
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTION PAYMENT
// ══════════════════════════════════════════════════════════════════════════════

// SectionPayment - оплата секции студентом. Для одной пары (студент, секция)
// может существовать несколько оплат; "последняя" - с максимальным SubmittedAt.
type SectionPayment struct {
	// ID - уникальный идентификатор оплаты (UUID).
	ID string

	// StudentID - студент.
	StudentID shared.StudentID

	// SectionID - оплачиваемая секция.
	SectionID shared.SectionID

	// CourseID - курс секции.
	CourseID shared.CourseID

	// Amount - сумма оплаты.
	Amount shared.Money

	// Status - статус оплаты.
	Status PaymentStatus

	// SubmittedAt - когда оплата отправлена.
	SubmittedAt time.Time

	// ProcessedAt - когда оплата обработана (нулевое для pending).
	ProcessedAt time.Time
}

// NewSectionPayment создаёт новую оплату в статусе pending.
func NewSectionPayment(id string, studentID shared.StudentID, sectionID shared.SectionID, courseID shared.CourseID, amount shared.Money) (*SectionPayment, error) {
	if id == "" {
		return nil, shared.NewDomainError("enrollment", "NewPayment", shared.ErrEmptyValue, "payment id is required")
	}
	if studentID.IsEmpty() || sectionID.IsEmpty() {
		return nil, shared.NewDomainError("enrollment", "NewPayment", shared.ErrEmptyValue, "student and section are required")
	}
	if amount.AmountCents <= 0 {
		return nil, shared.ErrInvalidPrice
	}

	return &SectionPayment{
		ID:          id,
		StudentID:   studentID,
		SectionID:   sectionID,
		CourseID:    courseID,
		Amount:      amount,
		Status:      PaymentPending,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Approve подтверждает оплату.
// Возвращает ошибку, если оплата уже обработана.
func (p *SectionPayment) Approve() error {
	if p.Status != PaymentPending {
		return shared.ErrPaymentNotPending
	}
	p.Status = PaymentApproved
	p.ProcessedAt = time.Now().UTC()
	return nil
}

// Reject отклоняет оплату.
// Возвращает ошибку, если оплата уже обработана.
func (p *SectionPayment) Reject() error {
	if p.Status != PaymentPending {
		return shared.ErrPaymentNotPending
	}
	p.Status = PaymentRejected
	p.ProcessedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление оплаты для логирования.
func (p *SectionPayment) String() string {
	return fmt.Sprintf("SectionPayment{ID: %s, Student: %s, Section: %s, Amount: %s, Status: %s}",
		p.ID, p.StudentID, p.SectionID, p.Amount, p.Status)
}

// LatestPayment возвращает оплату с максимальным SubmittedAt или nil.
func LatestPayment(payments []*SectionPayment) *SectionPayment {
	var latest *SectionPayment
	for _, p := range payments {
		if p == nil {
			continue
		}
		if latest == nil || p.SubmittedAt.After(latest.SubmittedAt) {
			latest = p
		}
	}
	return latest
}
