// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE ACCESS QUERY
// Отвечает на вопрос "видит ли студент эту секцию": предзагружает
// запись студента и последнюю оплату, затем применяет чистый резолвер.
// ══════════════════════════════════════════════════════════════════════════════

// ResolveAccessQuery содержит параметры проверки доступа к секции.
type ResolveAccessQuery struct {
	// StudentID - студент.
	StudentID string

	// SectionID - проверяемая секция.
	SectionID string
}

// Validate проверяет корректность параметров.
func (q ResolveAccessQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("resolve_access: student_id is required")
	}
	if q.SectionID == "" {
		return errors.New("resolve_access: section_id is required")
	}
	return nil
}

// AccessDecisionDTO - решение о доступе для внешнего слоя.
type AccessDecisionDTO struct {
	// StudentID - студент.
	StudentID string `json:"student_id"`

	// SectionID - секция.
	SectionID string `json:"section_id"`

	// IsUnlocked - доступна ли секция.
	IsUnlocked bool `json:"is_unlocked"`

	// State - "unlocked" или "locked".
	State string `json:"state"`

	// Reason - причина решения.
	Reason string `json:"reason"`

	// LatestPaymentID - учтённая оплата (пустая, если оплат не было).
	LatestPaymentID string `json:"latest_payment_id,omitempty"`

	// LatestPaymentStatus - статус учтённой оплаты.
	LatestPaymentStatus string `json:"latest_payment_status,omitempty"`
}

func toAccessDecisionDTO(studentID, sectionID string, d enrollment.AccessDecision) AccessDecisionDTO {
	dto := AccessDecisionDTO{
		StudentID:  studentID,
		SectionID:  sectionID,
		IsUnlocked: d.IsUnlocked,
		State:      string(d.State),
		Reason:     string(d.Reason),
	}
	if d.LatestPayment != nil {
		dto.LatestPaymentID = d.LatestPayment.ID
		dto.LatestPaymentStatus = string(d.LatestPayment.Status)
	}
	return dto
}

// ResolveAccessHandler обрабатывает ResolveAccessQuery.
type ResolveAccessHandler struct {
	sectionRepo    catalog.SectionRepository
	enrollmentRepo enrollment.Repository
	paymentRepo    enrollment.PaymentRepository
}

// NewResolveAccessHandler создаёт новый ResolveAccessHandler.
func NewResolveAccessHandler(
	sectionRepo catalog.SectionRepository,
	enrollmentRepo enrollment.Repository,
	paymentRepo enrollment.PaymentRepository,
) *ResolveAccessHandler {
	return &ResolveAccessHandler{
		sectionRepo:    sectionRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
	}
}

// Handle выполняет запрос.
func (h *ResolveAccessHandler) Handle(ctx context.Context, q ResolveAccessQuery) (*AccessDecisionDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("resolve_access: validation failed: %w", err)
	}

	section, err := h.sectionRepo.GetByID(ctx, shared.SectionID(q.SectionID))
	if err != nil {
		return nil, fmt.Errorf("resolve_access: failed to get section: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, shared.StudentID(q.StudentID), section.CourseID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("resolve_access: failed to get enrollment: %w", err)
		}
		enr = nil
	}

	payment, err := h.paymentRepo.GetLatest(ctx, shared.StudentID(q.StudentID), section.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("resolve_access: failed to get latest payment: %w", err)
		}
		payment = nil
	}

	decision := enrollment.ResolveAccess(section, enr, payment)
	dto := toAccessDecisionDTO(q.StudentID, q.SectionID, decision)
	return &dto, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET ACCESS MATRIX QUERY (batch)
// Доступ всех студентов группы ко всем её секциям за три запроса
// к хранилищу, сколько бы ни было пар.
// ══════════════════════════════════════════════════════════════════════════════

// GetAccessMatrixQuery содержит параметры матрицы доступа группы.
type GetAccessMatrixQuery struct {
	// GroupID - группа.
	GroupID string
}

// Validate проверяет корректность параметров.
func (q GetAccessMatrixQuery) Validate() error {
	if q.GroupID == "" {
		return errors.New("get_access_matrix: group_id is required")
	}
	return nil
}

// AccessMatrixDTO - матрица доступа для внешнего слоя.
type AccessMatrixDTO struct {
	// GroupID - группа.
	GroupID string `json:"group_id"`

	// Students - студенты группы.
	Students []string `json:"students"`

	// Sections - секции группы в порядке Order.
	Sections []string `json:"sections"`

	// Decisions - решения по всем парам (студент, секция).
	Decisions []AccessDecisionDTO `json:"decisions"`
}

// GetAccessMatrixHandler обрабатывает GetAccessMatrixQuery.
type GetAccessMatrixHandler struct {
	groupRepo      catalog.GroupRepository
	sectionRepo    catalog.SectionRepository
	enrollmentRepo enrollment.Repository
	paymentRepo    enrollment.PaymentRepository
}

// NewGetAccessMatrixHandler создаёт новый GetAccessMatrixHandler.
func NewGetAccessMatrixHandler(
	groupRepo catalog.GroupRepository,
	sectionRepo catalog.SectionRepository,
	enrollmentRepo enrollment.Repository,
	paymentRepo enrollment.PaymentRepository,
) *GetAccessMatrixHandler {
	return &GetAccessMatrixHandler{
		groupRepo:      groupRepo,
		sectionRepo:    sectionRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
	}
}

// Handle выполняет запрос.
func (h *GetAccessMatrixHandler) Handle(ctx context.Context, q GetAccessMatrixQuery) (*AccessMatrixDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_access_matrix: validation failed: %w", err)
	}

	group, err := h.groupRepo.GetByID(ctx, shared.GroupID(q.GroupID))
	if err != nil {
		return nil, fmt.Errorf("get_access_matrix: failed to get group: %w", err)
	}

	sections, err := h.sectionRepo.GetByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("get_access_matrix: failed to list sections: %w", err)
	}

	enrollments, err := h.enrollmentRepo.GetByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("get_access_matrix: failed to list enrollments: %w", err)
	}

	payments, err := h.paymentRepo.GetByCourse(ctx, group.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_access_matrix: failed to list payments: %w", err)
	}

	students := make([]shared.StudentID, 0, len(enrollments))
	enrollmentIndex := make(map[shared.StudentID]*enrollment.Enrollment, len(enrollments))
	for _, enr := range enrollments {
		students = append(students, enr.StudentID)
		enrollmentIndex[enr.StudentID] = enr
	}

	matrix := enrollment.BuildAccessMatrix(students, sections, enrollmentIndex, enrollment.PaymentIndex(payments))

	dto := &AccessMatrixDTO{
		GroupID:   q.GroupID,
		Students:  make([]string, 0, len(students)),
		Sections:  make([]string, 0, len(sections)),
		Decisions: make([]AccessDecisionDTO, 0, len(matrix)),
	}
	for _, s := range students {
		dto.Students = append(dto.Students, s.String())
	}
	for _, section := range sections {
		dto.Sections = append(dto.Sections, section.ID.String())
	}
	// Порядок строк - студенты, внутри - секции в порядке Order.
	for _, studentID := range students {
		for _, section := range sections {
			key := enrollment.AccessKey{StudentID: studentID, SectionID: section.ID}
			dto.Decisions = append(dto.Decisions, toAccessDecisionDTO(studentID.String(), section.ID.String(), matrix[key]))
		}
	}

	return dto, nil
}
