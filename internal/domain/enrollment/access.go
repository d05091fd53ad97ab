package enrollment

import (
	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCESS RESOLVER
// Чистая функция: по секции, записи студента и его последней оплате
// решает, разблокирована ли секция. Никаких обращений к хранилищу -
// вызывающий код предзагружает данные и может строить матрицу доступа
// для целого журнала за один проход.
// ══════════════════════════════════════════════════════════════════════════════

// AccessReason объясняет, почему доступ открыт или закрыт.
type AccessReason string

const (
	// ReasonFree - секция бесплатна или имеет нулевую цену.
	ReasonFree AccessReason = "free"
	// ReasonEnrolled - секция входит в разблокированные секции записи.
	ReasonEnrolled AccessReason = "enrolled"
	// ReasonPaymentApproved - последняя оплата подтверждена.
	ReasonPaymentApproved AccessReason = "payment_approved"
	// ReasonPaymentPending - последняя оплата ждёт проверки.
	ReasonPaymentPending AccessReason = "payment_pending"
	// ReasonPaymentRejected - последняя оплата отклонена.
	ReasonPaymentRejected AccessReason = "payment_rejected"
	// ReasonPaymentRequired - оплат не было, секция платная.
	ReasonPaymentRequired AccessReason = "payment_required"
)

// AccessState - итоговое состояние доступа.
type AccessState string

const (
	// AccessUnlocked - секция доступна студенту.
	AccessUnlocked AccessState = "unlocked"
	// AccessLocked - секция закрыта.
	AccessLocked AccessState = "locked"
)

// AccessDecision - результат разрешения доступа к секции.
type AccessDecision struct {
	// IsUnlocked - доступна ли секция.
	IsUnlocked bool

	// State - состояние доступа.
	State AccessState

	// Reason - причина решения.
	Reason AccessReason

	// LatestPayment - последняя оплата, учтённая при решении (может быть nil).
	LatestPayment *SectionPayment
}

// ResolveAccess решает, доступна ли секция студенту.
// Приоритет правил, побеждает первое совпадение:
//  1. секция разблокирована по умолчанию (бесплатная или нулевая цена);
//  2. секция входит в EnrolledSections записи;
//  3. последняя оплата подтверждена;
//  4. последняя оплата ждёт проверки;
//  5. последняя оплата отклонена;
//  6. иначе - требуется оплата.
//
// enrollment и latestPayment могут быть nil.
func ResolveAccess(section *catalog.Section, enr *Enrollment, latestPayment *SectionPayment) AccessDecision {
	if section.IsUnlockedByDefault() {
		return unlocked(ReasonFree, latestPayment)
	}

	if enr.HasSection(section.ID) {
		return unlocked(ReasonEnrolled, latestPayment)
	}

	if latestPayment != nil {
		switch latestPayment.Status {
		case PaymentApproved:
			return unlocked(ReasonPaymentApproved, latestPayment)
		case PaymentPending:
			return locked(ReasonPaymentPending, latestPayment)
		case PaymentRejected:
			return locked(ReasonPaymentRejected, latestPayment)
		}
	}

	return locked(ReasonPaymentRequired, latestPayment)
}

func unlocked(reason AccessReason, payment *SectionPayment) AccessDecision {
	return AccessDecision{
		IsUnlocked:    true,
		State:         AccessUnlocked,
		Reason:        reason,
		LatestPayment: payment,
	}
}

func locked(reason AccessReason, payment *SectionPayment) AccessDecision {
	return AccessDecision{
		IsUnlocked:    false,
		State:         AccessLocked,
		Reason:        reason,
		LatestPayment: payment,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH RESOLUTION
// Для журнала оценок по многим студентам доступ считается из
// предвычисленных отображений, без повторных запросов на каждую пару.
// ══════════════════════════════════════════════════════════════════════════════

// AccessKey - ключ матрицы доступа.
type AccessKey struct {
	StudentID shared.StudentID
	SectionID shared.SectionID
}

// AccessMatrix - решения по всем парам (студент, секция).
type AccessMatrix map[AccessKey]AccessDecision

// PaymentIndex группирует оплаты по (студент, секция) и выбирает последнюю.
func PaymentIndex(payments []*SectionPayment) map[AccessKey]*SectionPayment {
	index := make(map[AccessKey]*SectionPayment)
	for _, p := range payments {
		if p == nil {
			continue
		}
		key := AccessKey{StudentID: p.StudentID, SectionID: p.SectionID}
		if cur, ok := index[key]; !ok || p.SubmittedAt.After(cur.SubmittedAt) {
			index[key] = p
		}
	}
	return index
}

// BuildAccessMatrix строит матрицу доступа для набора студентов и секций.
// enrollments индексируются по студенту, payments - результат PaymentIndex.
func BuildAccessMatrix(
	students []shared.StudentID,
	sections []*catalog.Section,
	enrollments map[shared.StudentID]*Enrollment,
	payments map[AccessKey]*SectionPayment,
) AccessMatrix {
	matrix := make(AccessMatrix, len(students)*len(sections))

	for _, studentID := range students {
		enr := enrollments[studentID]
		for _, section := range sections {
			key := AccessKey{StudentID: studentID, SectionID: section.ID}
			matrix[key] = ResolveAccess(section, enr, payments[key])
		}
	}

	return matrix
}
