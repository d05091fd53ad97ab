// Package pricing содержит доменную модель изменения стоимости курса:
// двухфазный workflow propose/confirm, защищающий уже распределённые
// цены секций, и неизменяемый журнал изменений цен.
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// ChangeStatus определяет статус отложенного изменения стоимости.
type ChangeStatus string

const (
	// ChangePending - изменение ждёт подтверждения.
	ChangePending ChangeStatus = "pending"
	// ChangeApprovedAuto - изменение подтверждено с автоматическим пересчётом.
	ChangeApprovedAuto ChangeStatus = "approved_auto"
	// ChangeApprovedManual - изменение подтверждено с ручными ценами.
	ChangeApprovedManual ChangeStatus = "approved_manual"
	// ChangeCancelled - изменение отменено; цены не тронуты.
	ChangeCancelled ChangeStatus = "cancelled"
)

// IsValid проверяет, что статус корректен.
func (s ChangeStatus) IsValid() bool {
	switch s {
	case ChangePending, ChangeApprovedAuto, ChangeApprovedManual, ChangeCancelled:
		return true
	default:
		return false
	}
}

// IsResolved возвращает true, если изменение уже обработано.
// Разрешённое изменение неизменяемо.
func (s ChangeStatus) IsResolved() bool {
	return s != ChangePending
}

// ══════════════════════════════════════════════════════════════════════════════
// PENDING COST CHANGE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultExpiry - срок жизни отложенного изменения. Истечение -
// рекомендательная метка: движок сам по нему ничего не делает,
// просроченные изменения отменяет фоновая задача.
const DefaultExpiry = 7 * 24 * time.Hour

// AffectedSection - строка таблицы пересчёта: секция и её цены до/после.
type AffectedSection struct {
	// SectionID - секция.
	SectionID shared.SectionID

	// OldPrice - цена до пересчёта.
	OldPrice shared.Money

	// NewPrice - предлагаемая цена после пересчёта.
	NewPrice shared.Money
}

// PendingCostChange - отложенное изменение стоимости курса. Создаётся,
// когда новая стоимость меньше суммы цен платных секций: немедленное
// применение оставило бы каталог с курсом дешевле уже распределённых
// цен. Стоимость курса не меняется до явного подтверждения.
type PendingCostChange struct {
	// ID - уникальный идентификатор изменения (UUID).
	ID string

	// CourseID - курс.
	CourseID shared.CourseID

	// InstructorID - инициатор изменения.
	InstructorID string

	// OldCost - стоимость курса на момент предложения.
	OldCost shared.Money

	// NewCost - предлагаемая стоимость.
	NewCost shared.Money

	// TotalPaidSections - сумма цен активных платных секций.
	TotalPaidSections shared.Money

	// ScaleFactor - отношение NewCost / TotalPaidSections (для аудита;
	// сами цены считаются целочисленно).
	ScaleFactor float64

	// AffectedSections - таблица пересчёта по каждой платной секции.
	AffectedSections []AffectedSection

	// Status - статус изменения.
	Status ChangeStatus

	// CreatedAt - когда изменение предложено.
	CreatedAt time.Time

	// ExpiresAt - рекомендательный срок жизни.
	ExpiresAt time.Time

	// ResolvedAt - когда изменение подтверждено или отменено.
	ResolvedAt time.Time
}

// NewPendingCostChange строит отложенное изменение по платным секциям курса.
// Каждая новая цена - round(oldPrice * newCost / totalPaid) с округлением
// половины вверх, только целые субъединицы валюты. Если суммарное
// округление вывело сумму выше NewCost, избыток снимается по центу
// с самых дорогих секций: сумма цен после подтверждения не должна
// превышать стоимость курса.
func NewPendingCostChange(id string, course *catalog.Course, paidSections []*catalog.Section, newCost shared.Money, instructorID string) (*PendingCostChange, error) {
	if id == "" {
		return nil, shared.NewDomainError("pricing", "Propose", shared.ErrEmptyValue, "pending change id is required")
	}

	totalPaid := TotalPaid(paidSections)
	if totalPaid.AmountCents <= 0 {
		return nil, shared.NewDomainError("pricing", "Propose", shared.ErrInvalidState, "course has no paid sections to rescale")
	}
	if newCost.AmountCents >= totalPaid.AmountCents {
		return nil, shared.NewDomainError("pricing", "Propose", shared.ErrInvalidState, "new cost covers allocated prices, apply immediately")
	}

	affected := make([]AffectedSection, 0, len(paidSections))
	for _, section := range paidSections {
		affected = append(affected, AffectedSection{
			SectionID: section.ID,
			OldPrice:  section.Price,
			NewPrice:  section.Price.ScaleHalfUp(newCost.AmountCents, totalPaid.AmountCents),
		})
	}
	trimRoundingOverflow(affected, newCost.AmountCents)

	now := time.Now().UTC()

	return &PendingCostChange{
		ID:                id,
		CourseID:          course.ID,
		InstructorID:      instructorID,
		OldCost:           course.Cost,
		NewCost:           newCost,
		TotalPaidSections: totalPaid,
		ScaleFactor:       float64(newCost.AmountCents) / float64(totalPaid.AmountCents),
		AffectedSections:  affected,
		Status:            ChangePending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(DefaultExpiry),
	}, nil
}

// trimRoundingOverflow снимает по одной субъединице с самых дорогих
// секций, пока сумма новых цен не помещается в новую стоимость курса.
func trimRoundingOverflow(affected []AffectedSection, newCostCents int64) {
	var sum int64
	for _, a := range affected {
		sum += a.NewPrice.AmountCents
	}

	for sum > newCostCents {
		idx := -1
		var max int64 = 0
		for i, a := range affected {
			if a.NewPrice.AmountCents > max {
				max = a.NewPrice.AmountCents
				idx = i
			}
		}
		if idx < 0 {
			return
		}
		affected[idx].NewPrice.AmountCents--
		sum--
	}
}

// TotalPaid возвращает сумму цен платных секций.
func TotalPaid(sections []*catalog.Section) shared.Money {
	var total shared.Money
	for _, s := range sections {
		if s == nil || !s.IsPaid() {
			continue
		}
		total.Currency = s.Price.Currency
		total.AmountCents += s.Price.AmountCents
	}
	return total
}

// RequiresConfirmation возвращает true, если новая стоимость меньше
// суммы цен платных секций и немедленное применение недопустимо.
func RequiresConfirmation(paidSections []*catalog.Section, newCost shared.Money) bool {
	return TotalPaid(paidSections).AmountCents > newCost.AmountCents
}

// ApproveAuto помечает изменение подтверждённым с автопересчётом.
// Возвращает ошибку, если изменение уже разрешено.
func (p *PendingCostChange) ApproveAuto() error {
	if p.Status.IsResolved() {
		return shared.ErrChangeAlreadyResolved
	}
	p.Status = ChangeApprovedAuto
	p.ResolvedAt = time.Now().UTC()
	return nil
}

// Cancel отменяет изменение; ни одна цена не трогается.
// Возвращает ошибку, если изменение уже разрешено.
func (p *PendingCostChange) Cancel() error {
	if p.Status.IsResolved() {
		return shared.ErrChangeAlreadyResolved
	}
	p.Status = ChangeCancelled
	p.ResolvedAt = time.Now().UTC()
	return nil
}

// IsExpired возвращает true, если рекомендательный срок жизни истёк.
func (p *PendingCostChange) IsExpired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// NewPriceFor возвращает новую цену секции из таблицы пересчёта.
func (p *PendingCostChange) NewPriceFor(sectionID shared.SectionID) (shared.Money, bool) {
	for _, a := range p.AffectedSections {
		if a.SectionID == sectionID {
			return a.NewPrice, true
		}
	}
	return shared.Money{}, false
}

// String возвращает строковое представление для логирования.
func (p *PendingCostChange) String() string {
	return fmt.Sprintf("PendingCostChange{ID: %s, Course: %s, %s -> %s, Scale: %.4f, Status: %s}",
		p.ID, p.CourseID, p.OldCost, p.NewCost, p.ScaleFactor, p.Status)
}

// ══════════════════════════════════════════════════════════════════════════════
// PRICE CHANGE RECORD (immutable audit log)
// ══════════════════════════════════════════════════════════════════════════════

// PriceChangeRecord - неизменяемая запись журнала изменений цен.
// Пишется и при немедленном применении, и при подтверждённом пересчёте.
type PriceChangeRecord struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// CourseID - курс.
	CourseID shared.CourseID

	// ActorID - кто применил изменение.
	ActorID string

	// Reason - причина: "immediate" или "rescale_confirmed".
	Reason string

	// OldCost - стоимость до изменения.
	OldCost shared.Money

	// NewCost - стоимость после изменения.
	NewCost shared.Money

	// ScaleFactor - применённый коэффициент (0 для немедленного применения).
	ScaleFactor float64

	// Sections - полная таблица цен до/после по каждой затронутой секции.
	Sections []AffectedSection

	// CreatedAt - когда изменение применено.
	CreatedAt time.Time
}

// Причины записей журнала изменений цен.
const (
	ReasonImmediate        = "immediate"
	ReasonRescaleConfirmed = "rescale_confirmed"
)

// NewImmediateRecord строит запись о немедленном применении стоимости.
func NewImmediateRecord(id string, courseID shared.CourseID, actorID string, oldCost, newCost shared.Money) *PriceChangeRecord {
	return &PriceChangeRecord{
		ID:        id,
		CourseID:  courseID,
		ActorID:   actorID,
		Reason:    ReasonImmediate,
		OldCost:   oldCost,
		NewCost:   newCost,
		CreatedAt: time.Now().UTC(),
	}
}

// NewRescaleRecord строит запись о подтверждённом пересчёте
// с полной таблицей до/после.
func NewRescaleRecord(id string, change *PendingCostChange, actorID string) *PriceChangeRecord {
	sections := make([]AffectedSection, len(change.AffectedSections))
	copy(sections, change.AffectedSections)
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].SectionID < sections[j].SectionID
	})

	return &PriceChangeRecord{
		ID:          id,
		CourseID:    change.CourseID,
		ActorID:     actorID,
		Reason:      ReasonRescaleConfirmed,
		OldCost:     change.OldCost,
		NewCost:     change.NewCost,
		ScaleFactor: change.ScaleFactor,
		Sections:    sections,
		CreatedAt:   time.Now().UTC(),
	}
}
