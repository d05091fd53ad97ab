package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

func usd(cents int64) shared.Money {
	return shared.Money{AmountCents: cents, Currency: "USD"}
}

func paidSection(id string, priceCents int64) *catalog.Section {
	return &catalog.Section{
		ID:       shared.SectionID(id),
		Title:    id,
		Price:    usd(priceCents),
		IsActive: true,
	}
}

func testCourse(costCents int64) *catalog.Course {
	return &catalog.Course{
		ID:   shared.CourseID("course-1"),
		Cost: usd(costCents),
	}
}

func TestRequiresConfirmation(t *testing.T) {
	sections := []*catalog.Section{
		paidSection("s1", 40000),
		paidSection("s2", 30000),
		paidSection("s3", 30000),
	}

	// Новая стоимость покрывает распределённые цены - применяем сразу.
	assert.False(t, RequiresConfirmation(sections, usd(120000)))
	assert.False(t, RequiresConfirmation(sections, usd(100000)))

	// Новая стоимость меньше суммы цен - требуется подтверждение.
	assert.True(t, RequiresConfirmation(sections, usd(60000)))
}

func TestTotalPaid_SkipsFreeAndInactive(t *testing.T) {
	free := paidSection("free", 10000)
	free.IsFree = true
	inactive := paidSection("off", 10000)
	inactive.IsActive = false
	zero := paidSection("zero", 0)

	total := TotalPaid([]*catalog.Section{
		paidSection("s1", 40000),
		free,
		inactive,
		zero,
		paidSection("s2", 30000),
	})

	assert.Equal(t, int64(70000), total.AmountCents)
}

func TestNewPendingCostChange_RescaleTable(t *testing.T) {
	course := testCourse(100000)
	sections := []*catalog.Section{
		paidSection("s1", 40000),
		paidSection("s2", 30000),
		paidSection("s3", 30000),
	}

	change, err := NewPendingCostChange("pc-1", course, sections, usd(60000), "instr-1")
	require.NoError(t, err)

	assert.Equal(t, ChangePending, change.Status)
	assert.Equal(t, int64(100000), change.OldCost.AmountCents)
	assert.Equal(t, int64(60000), change.NewCost.AmountCents)
	assert.Equal(t, int64(100000), change.TotalPaidSections.AmountCents)
	assert.InDelta(t, 0.6, change.ScaleFactor, 1e-9)

	require.Len(t, change.AffectedSections, 3)
	assert.Equal(t, int64(24000), change.AffectedSections[0].NewPrice.AmountCents)
	assert.Equal(t, int64(18000), change.AffectedSections[1].NewPrice.AmountCents)
	assert.Equal(t, int64(18000), change.AffectedSections[2].NewPrice.AmountCents)

	// Старые цены сохранены в таблице.
	assert.Equal(t, int64(40000), change.AffectedSections[0].OldPrice.AmountCents)

	price, ok := change.NewPriceFor("s2")
	require.True(t, ok)
	assert.Equal(t, int64(18000), price.AmountCents)

	_, ok = change.NewPriceFor("missing")
	assert.False(t, ok)
}

func TestNewPendingCostChange_RoundsHalfUp(t *testing.T) {
	course := testCourse(1000)
	sections := []*catalog.Section{
		paidSection("s1", 333),
		paidSection("s2", 667),
	}

	// 333 * 0.5 = 166.5 -> 167, 667 * 0.5 = 333.5 -> 334.
	// Сумма 501 > 500: избыток снимается с самой дорогой секции.
	change, err := NewPendingCostChange("pc-1", course, sections, usd(500), "instr-1")
	require.NoError(t, err)

	var sum int64
	for _, a := range change.AffectedSections {
		sum += a.NewPrice.AmountCents
	}
	assert.Equal(t, int64(167), change.AffectedSections[0].NewPrice.AmountCents)
	assert.Equal(t, int64(333), change.AffectedSections[1].NewPrice.AmountCents)
	assert.LessOrEqual(t, sum, int64(500))
}

func TestNewPendingCostChange_Rejections(t *testing.T) {
	course := testCourse(100000)
	sections := []*catalog.Section{paidSection("s1", 40000)}

	_, err := NewPendingCostChange("", course, sections, usd(20000), "instr-1")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	// Новая стоимость покрывает цены - отложенное изменение не нужно.
	_, err = NewPendingCostChange("pc-1", course, sections, usd(50000), "instr-1")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	// Нет платных секций.
	_, err = NewPendingCostChange("pc-1", course, nil, usd(20000), "instr-1")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPendingCostChange_ResolveOnce(t *testing.T) {
	course := testCourse(100000)
	sections := []*catalog.Section{paidSection("s1", 100000)}

	t.Run("approve then cancel fails", func(t *testing.T) {
		change, err := NewPendingCostChange("pc-1", course, sections, usd(60000), "instr-1")
		require.NoError(t, err)

		require.NoError(t, change.ApproveAuto())
		assert.Equal(t, ChangeApprovedAuto, change.Status)
		assert.False(t, change.ResolvedAt.IsZero())

		err = change.Cancel()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, ChangeApprovedAuto, change.Status)
	})

	t.Run("cancel then approve fails", func(t *testing.T) {
		change, err := NewPendingCostChange("pc-2", course, sections, usd(60000), "instr-1")
		require.NoError(t, err)

		require.NoError(t, change.Cancel())
		assert.Equal(t, ChangeCancelled, change.Status)

		err = change.ApproveAuto()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, ChangeCancelled, change.Status)
	})

	t.Run("double approve fails", func(t *testing.T) {
		change, err := NewPendingCostChange("pc-3", course, sections, usd(60000), "instr-1")
		require.NoError(t, err)

		require.NoError(t, change.ApproveAuto())
		assert.ErrorIs(t, change.ApproveAuto(), shared.ErrInvalidState)
	})
}

func TestPendingCostChange_IsExpired(t *testing.T) {
	course := testCourse(100000)
	sections := []*catalog.Section{paidSection("s1", 100000)}

	change, err := NewPendingCostChange("pc-1", course, sections, usd(60000), "instr-1")
	require.NoError(t, err)

	assert.False(t, change.IsExpired(change.CreatedAt))
	assert.False(t, change.IsExpired(change.CreatedAt.Add(6*24*time.Hour)))
	assert.True(t, change.IsExpired(change.CreatedAt.Add(8*24*time.Hour)))
}

func TestNewRescaleRecord(t *testing.T) {
	course := testCourse(100000)
	sections := []*catalog.Section{
		paidSection("s2", 60000),
		paidSection("s1", 40000),
	}

	change, err := NewPendingCostChange("pc-1", course, sections, usd(60000), "instr-1")
	require.NoError(t, err)
	require.NoError(t, change.ApproveAuto())

	record := NewRescaleRecord("rec-1", change, "instr-1")

	assert.Equal(t, ReasonRescaleConfirmed, record.Reason)
	assert.Equal(t, change.CourseID, record.CourseID)
	assert.InDelta(t, 0.6, record.ScaleFactor, 1e-9)

	// Таблица отсортирована по секции и является копией.
	require.Len(t, record.Sections, 2)
	assert.Equal(t, shared.SectionID("s1"), record.Sections[0].SectionID)
	assert.Equal(t, shared.SectionID("s2"), record.Sections[1].SectionID)

	record.Sections[0].NewPrice.AmountCents = 0
	price, ok := change.NewPriceFor("s1")
	require.True(t, ok)
	assert.NotZero(t, price.AmountCents)
}

func TestNewImmediateRecord(t *testing.T) {
	record := NewImmediateRecord("rec-1", "course-1", "instr-1", usd(100000), usd(120000))

	assert.Equal(t, ReasonImmediate, record.Reason)
	assert.Zero(t, record.ScaleFactor)
	assert.Empty(t, record.Sections)
}
