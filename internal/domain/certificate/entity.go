// Package certificate содержит доменную модель сертификатов:
// оценку права на сертификат и выданные сертификаты.
package certificate

import (
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUED CERTIFICATE
// ══════════════════════════════════════════════════════════════════════════════

// CertStatus определяет статус выданного сертификата.
type CertStatus string

const (
	// CertPending - запрос подан, ждёт выдачи преподавателем.
	CertPending CertStatus = "pending"
	// CertIssued - сертификат выдан.
	CertIssued CertStatus = "issued"
)

// IsValid проверяет, что статус корректен.
func (s CertStatus) IsValid() bool {
	return s == CertPending || s == CertIssued
}

// Certificate - выданный или запрошенный сертификат студента по курсу.
type Certificate struct {
	// ID - уникальный идентификатор сертификата (UUID).
	ID string

	// StudentID - студент.
	StudentID shared.StudentID

	// CourseID - курс.
	CourseID shared.CourseID

	// GroupID - группа, по которой считалась завершённость.
	GroupID shared.GroupID

	// Status - статус сертификата.
	Status CertStatus

	// Grade - итоговый балл курса на момент выдачи.
	Grade shared.Percent

	// RequestedAt - когда сертификат запрошен.
	RequestedAt time.Time

	// IssuedAt - когда сертификат выдан (нулевое для pending).
	IssuedAt time.Time
}

// NewCertificate создаёт сертификат в указанном статусе.
func NewCertificate(id string, studentID shared.StudentID, courseID shared.CourseID, groupID shared.GroupID, status CertStatus, grade shared.Percent) (*Certificate, error) {
	if id == "" {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrEmptyValue, "certificate id is required")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrInvalidInput, "invalid certificate status")
	}

	now := time.Now().UTC()
	cert := &Certificate{
		ID:          id,
		StudentID:   studentID,
		CourseID:    courseID,
		GroupID:     groupID,
		Status:      status,
		Grade:       grade.Clamp(),
		RequestedAt: now,
	}
	if status == CertIssued {
		cert.IssuedAt = now
	}
	return cert, nil
}

// Issue переводит запрошенный сертификат в выданный.
func (c *Certificate) Issue() error {
	if c.Status != CertPending {
		return shared.NewDomainError("certificate", "Issue", shared.ErrInvalidState, "certificate is not pending")
	}
	c.Status = CertIssued
	c.IssuedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление для логирования.
func (c *Certificate) String() string {
	return fmt.Sprintf("Certificate{ID: %s, Student: %s, Course: %s, Status: %s}",
		c.ID, c.StudentID, c.CourseID, c.Status)
}
