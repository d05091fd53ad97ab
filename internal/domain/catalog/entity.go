// Package catalog содержит доменную модель учебного каталога:
// курсы, группы, секции и контент. Это ядро бизнес-логики -
// здесь нет внешних зависимостей.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// CertificateMode определяет способ выдачи сертификатов по курсу.
type CertificateMode string

const (
	// CertificateModeAutomatic - сертификат выдаётся автоматически при выполнении условий.
	CertificateModeAutomatic CertificateMode = "automatic"
	// CertificateModeManualInstructor - сертификат выдаёт преподаватель вручную.
	CertificateModeManualInstructor CertificateMode = "manual_instructor"
	// CertificateModeDisabled - сертификаты по курсу отключены.
	CertificateModeDisabled CertificateMode = "disabled"
)

// IsValid проверяет, что режим сертификации корректен.
func (m CertificateMode) IsValid() bool {
	switch m {
	case CertificateModeAutomatic, CertificateModeManualInstructor, CertificateModeDisabled:
		return true
	default:
		return false
	}
}

// ContentKind - закрытое перечисление видов контента.
// Каждый вид имеет собственное правило оценивания; неизвестный вид
// не может молча давать нулевой вклад - он отклоняется явно.
type ContentKind string

const (
	// ContentKindLecture - лекция (видео или текст); оценивается по факту просмотра.
	ContentKindLecture ContentKind = "lecture"
	// ContentKindAssignment - домашнее задание; оценивается преподавателем.
	ContentKindAssignment ContentKind = "assignment"
	// ContentKindProject - проект; оценивается преподавателем.
	ContentKindProject ContentKind = "project"
	// ContentKindTest - тест; оценивается по факту попытки с выставленной оценкой.
	ContentKindTest ContentKind = "test"
)

// IsValid проверяет, что вид контента известен движку.
func (k ContentKind) IsValid() bool {
	switch k {
	case ContentKindLecture, ContentKindAssignment, ContentKindProject, ContentKindTest:
		return true
	default:
		return false
	}
}

// IsGradable возвращает true, если вид контента участвует в оценке секции.
// Тесты участвуют только в подсчёте завершённости, не в среднем балле секции.
func (k ContentKind) IsGradable() bool {
	return k == ContentKindLecture || k == ContentKindAssignment || k == ContentKindProject
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - курс, верхний уровень каталога. Владеет группами и секциями.
type Course struct {
	// ID - уникальный идентификатор курса (UUID).
	ID shared.CourseID

	// OwnerID - идентификатор преподавателя-владельца.
	OwnerID string

	// Title - название курса.
	Title string

	// Cost - полная стоимость курса. Сумма цен платных секций
	// никогда не превышает Cost, кроме окна между propose и confirm
	// отложенного изменения стоимости.
	Cost shared.Money

	// OffersCertificate - выдаёт ли курс сертификаты.
	OffersCertificate bool

	// CertificateMode - режим выдачи сертификатов.
	CertificateMode CertificateMode

	// InstructorCertificateRelease - разрешил ли преподаватель запрашивать
	// сертификаты (для режима manual_instructor).
	InstructorCertificateRelease bool

	// IsActive - доступен ли курс студентам.
	IsActive bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ErrInvalidCourseTitle - невалидное название курса.
var ErrInvalidCourseTitle = errors.New("invalid course title: must be 1-200 chars")

// NewCourseParams содержит параметры для создания курса.
type NewCourseParams struct {
	ID              shared.CourseID
	OwnerID         string
	Title           string
	Cost            shared.Money
	CertificateMode CertificateMode
}

// NewCourse создаёт новый курс с валидацией всех полей.
func NewCourse(params NewCourseParams) (*Course, error) {
	// Формат не навязывается: генерация идентификаторов - забота
	// инфраструктуры, как и в остальных конструкторах домена.
	if params.ID.IsEmpty() {
		return nil, shared.NewDomainError("catalog", "NewCourse", shared.ErrEmptyValue, "course id is required")
	}
	if params.OwnerID == "" {
		return nil, shared.NewDomainError("catalog", "NewCourse", shared.ErrEmptyValue, "owner id is required")
	}

	title := strings.TrimSpace(params.Title)
	if len(title) == 0 || len(title) > 200 {
		return nil, ErrInvalidCourseTitle
	}

	mode := params.CertificateMode
	if mode == "" {
		mode = CertificateModeDisabled
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("catalog", "NewCourse", shared.ErrInvalidInput, "invalid certificate mode")
	}

	now := time.Now().UTC()

	return &Course{
		ID:                params.ID,
		OwnerID:           params.OwnerID,
		Title:             title,
		Cost:              params.Cost,
		OffersCertificate: mode != CertificateModeDisabled,
		CertificateMode:   mode,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// SetCost устанавливает новую стоимость курса.
// Отрицательная стоимость отклоняется, а не обрезается: деньги
// не изменяются молча.
func (c *Course) SetCost(cost shared.Money) error {
	if cost.AmountCents < 0 {
		return shared.ErrInvalidPrice
	}
	if cost.Currency != c.Cost.Currency {
		return shared.ErrCurrencyMismatch
	}

	c.Cost = cost
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// CertificatesEnabled возвращает true, если по курсу можно получить сертификат.
func (c *Course) CertificatesEnabled() bool {
	return c.OffersCertificate && c.CertificateMode != CertificateModeDisabled
}

// String возвращает строковое представление курса для логирования.
func (c *Course) String() string {
	return fmt.Sprintf("Course{ID: %s, Title: %s, Cost: %s, Mode: %s}",
		c.ID, c.Title, c.Cost, c.CertificateMode)
}

// Clone создаёт глубокую копию курса.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP
// ══════════════════════════════════════════════════════════════════════════════

// Group - поток внутри курса. Один курс может вести несколько
// независимо оцениваемых групп.
type Group struct {
	// ID - уникальный идентификатор группы (UUID).
	ID shared.GroupID

	// CourseID - курс, которому принадлежит группа.
	CourseID shared.CourseID

	// Name - название группы (например, "2026-весна").
	Name string

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTION
// ══════════════════════════════════════════════════════════════════════════════

// Section - платная или бесплатная часть курса, содержащая контент.
type Section struct {
	// ID - уникальный идентификатор секции (UUID).
	ID shared.SectionID

	// CourseID - курс, которому принадлежит секция.
	CourseID shared.CourseID

	// GroupID - группа секции (может быть пустой для общих секций).
	GroupID shared.GroupID

	// Title - название секции.
	Title string

	// IsFree - секция помечена бесплатной независимо от цены.
	IsFree bool

	// Price - цена секции.
	Price shared.Money

	// Order - порядковый номер секции внутри курса.
	Order int

	// IsActive - участвует ли секция в каталоге.
	IsActive bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// IsUnlockedByDefault возвращает true, если секция доступна без оплаты:
// она либо помечена бесплатной, либо имеет нулевую цену.
func (s *Section) IsUnlockedByDefault() bool {
	return s.IsFree || s.Price.IsZero()
}

// IsPaid возвращает true для активной платной секции - такие секции
// участвуют в сумме totalPaidSections при изменении стоимости курса.
func (s *Section) IsPaid() bool {
	return s.IsActive && !s.IsUnlockedByDefault()
}

// SetPrice устанавливает новую цену секции.
// Отрицательная цена отклоняется, а не обрезается.
func (s *Section) SetPrice(price shared.Money) error {
	if price.AmountCents < 0 {
		return shared.ErrInvalidPrice
	}
	if price.Currency != s.Price.Currency {
		return shared.ErrCurrencyMismatch
	}

	s.Price = price
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление секции для логирования.
func (s *Section) String() string {
	return fmt.Sprintf("Section{ID: %s, Title: %s, Price: %s, Free: %t}",
		s.ID, s.Title, s.Price, s.IsFree)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// Content - единица контента внутри секции: лекция, задание, проект или тест.
type Content struct {
	// ID - уникальный идентификатор контента (UUID).
	ID shared.ContentID

	// SectionID - секция, которой принадлежит контент.
	SectionID shared.SectionID

	// CourseID - курс (денормализовано для запросов по курсу).
	CourseID shared.CourseID

	// Kind - вид контента; определяет правило оценивания.
	Kind ContentKind

	// Title - название.
	Title string

	// Order - порядковый номер внутри секции.
	Order int

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// NewContent создаёт единицу контента с валидацией вида.
func NewContent(id shared.ContentID, sectionID shared.SectionID, courseID shared.CourseID, kind ContentKind, title string, order int) (*Content, error) {
	if !kind.IsValid() {
		return nil, shared.ErrUnknownContent
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("catalog", "NewContent", shared.ErrEmptyValue, "content title is required")
	}

	return &Content{
		ID:        id,
		SectionID: sectionID,
		CourseID:  courseID,
		Kind:      kind,
		Title:     title,
		Order:     order,
		CreatedAt: time.Now().UTC(),
	}, nil
}
