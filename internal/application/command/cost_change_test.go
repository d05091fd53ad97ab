package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/pricing"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

type costChangeFixture struct {
	courseRepo  *fakeCourseRepo
	sectionRepo *fakeSectionRepo
	pendingRepo *fakePendingChangeRepo
	recordRepo  *fakeRecordRepo
	txRunner    *fakeTxRunner
	bus         *fakeEventBus

	propose *ProposeCostChangeHandler
	confirm *ConfirmCostChangeHandler
	cancel  *CancelCostChangeHandler

	owner shared.Actor
}

func newCostChangeFixture(t *testing.T) *costChangeFixture {
	t.Helper()
	f := &costChangeFixture{
		courseRepo:  newFakeCourseRepo(),
		sectionRepo: newFakeSectionRepo(),
		pendingRepo: newFakePendingChangeRepo(),
		recordRepo:  &fakeRecordRepo{},
		txRunner:    &fakeTxRunner{},
		bus:         &fakeEventBus{},
		owner:       shared.Actor{ID: "instr-1", Role: shared.RoleInstructor},
	}
	idGen := &fakeIDGen{}
	log := testLogger()
	f.propose = NewProposeCostChangeHandler(f.courseRepo, f.sectionRepo, f.pendingRepo, f.recordRepo, idGen, f.bus, log)
	f.confirm = NewConfirmCostChangeHandler(f.courseRepo, f.sectionRepo, f.pendingRepo, f.recordRepo, f.txRunner, idGen, f.bus, log)
	f.cancel = NewCancelCostChangeHandler(f.courseRepo, f.pendingRepo, f.bus, log)
	return f
}

// seed создаёт курс за 1000.00 USD с платными секциями на 400.00 и 300.00
// и одной бесплатной секцией.
func (f *costChangeFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	course, err := catalog.NewCourse(catalog.NewCourseParams{
		ID:      "course-1",
		OwnerID: "instr-1",
		Title:   "Distributed Systems",
		Cost:    shared.Money{AmountCents: 100000, Currency: "USD"},
	})
	require.NoError(t, err)
	require.NoError(t, f.courseRepo.Create(ctx, course))

	sections := []*catalog.Section{
		{ID: "sec-1", CourseID: "course-1", GroupID: "group-1", Title: "Consensus", Order: 1,
			Price: shared.Money{AmountCents: 40000, Currency: "USD"}, IsActive: true},
		{ID: "sec-2", CourseID: "course-1", GroupID: "group-1", Title: "Replication", Order: 2,
			Price: shared.Money{AmountCents: 30000, Currency: "USD"}, IsActive: true},
		{ID: "sec-3", CourseID: "course-1", GroupID: "group-1", Title: "Intro", Order: 3,
			Price: shared.Money{Currency: "USD"}, IsActive: true},
	}
	for _, s := range sections {
		require.NoError(t, f.sectionRepo.Create(ctx, s))
	}
}

func (f *costChangeFixture) sectionPrice(t *testing.T, id shared.SectionID) int64 {
	t.Helper()
	section, err := f.sectionRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return section.Price.AmountCents
}

func TestProposeCostChange_AboveTotalPaidAppliesImmediately(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	// 1200.00 > 700.00 оплаченных секций: подтверждение не требуется.
	result, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID:     "course-1",
		Actor:        f.owner,
		NewCostCents: 120000,
		Currency:     "USD",
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Nil(t, result.PendingChange)

	course, err := f.courseRepo.GetByID(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, int64(120000), course.Cost.AmountCents)

	// Цены секций не тронуты.
	assert.Equal(t, int64(40000), f.sectionPrice(t, "sec-1"))
	assert.Equal(t, int64(30000), f.sectionPrice(t, "sec-2"))

	require.Len(t, f.recordRepo.records, 1)
	assert.Equal(t, pricing.ReasonImmediate, f.recordRepo.records[0].Reason)
}

func TestProposeCostChange_BelowTotalPaidCreatesPending(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	// 600.00 < 700.00: нужно подтверждение, цены пока не меняются.
	result, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID:     "course-1",
		Actor:        f.owner,
		NewCostCents: 60000,
		Currency:     "USD",
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	require.NotNil(t, result.PendingChange)

	change := result.PendingChange
	assert.Equal(t, pricing.ChangePending, change.Status)
	assert.InDelta(t, 6.0/7.0, change.ScaleFactor, 1e-9)

	// 400.00 * 6/7 = 342.86, 300.00 * 6/7 = 257.14 (округление к ближайшему).
	require.Len(t, change.AffectedSections, 2)
	newPrice, ok := change.NewPriceFor("sec-1")
	require.True(t, ok)
	assert.Equal(t, int64(34286), newPrice.AmountCents)
	newPrice, ok = change.NewPriceFor("sec-2")
	require.True(t, ok)
	assert.Equal(t, int64(25714), newPrice.AmountCents)

	// До подтверждения ни курс, ни секции не изменились.
	course, err := f.courseRepo.GetByID(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), course.Cost.AmountCents)
	assert.Equal(t, int64(40000), f.sectionPrice(t, "sec-1"))
	assert.Empty(t, f.recordRepo.records)
}

func TestProposeCostChange_SecondPendingRejected(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	_, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 60000, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 50000, Currency: "USD",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestProposeCostChange_NegativeCostRejected(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)

	_, err := f.propose.Handle(context.Background(), ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: -1, Currency: "USD",
	})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestProposeCostChange_NonOwnerRejected(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)

	other := shared.Actor{ID: "instr-2", Role: shared.RoleInstructor}
	_, err := f.propose.Handle(context.Background(), ProposeCostChangeCommand{
		CourseID: "course-1", Actor: other, NewCostCents: 120000, Currency: "USD",
	})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestConfirmCostChange_AppliesRescaleAtomically(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	proposed, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 60000, Currency: "USD",
	})
	require.NoError(t, err)

	result, err := f.confirm.Handle(ctx, ConfirmCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID,
		Actor:           f.owner,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SectionsRescaled)
	assert.Equal(t, 1, f.txRunner.calls)

	course, err := f.courseRepo.GetByID(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), course.Cost.AmountCents)
	assert.Equal(t, int64(34286), f.sectionPrice(t, "sec-1"))
	assert.Equal(t, int64(25714), f.sectionPrice(t, "sec-2"))

	// Сумма платных секций не превышает новую стоимость курса.
	assert.LessOrEqual(t, f.sectionPrice(t, "sec-1")+f.sectionPrice(t, "sec-2"), int64(60000))

	change, err := f.pendingRepo.GetByID(ctx, proposed.PendingChange.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.ChangeApprovedAuto, change.Status)

	require.Len(t, f.recordRepo.records, 1)
	assert.Equal(t, pricing.ReasonRescaleConfirmed, f.recordRepo.records[0].Reason)

	assert.Contains(t, f.bus.typesPublished(), shared.EventCostChangeConfirmed)
}

func TestConfirmCostChange_ResolvedChangeRejected(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	proposed, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 60000, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID, Actor: f.owner,
	})
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID, Actor: f.owner,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelCostChange_LeavesPricesUntouched(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	proposed, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 60000, Currency: "USD",
	})
	require.NoError(t, err)

	result, err := f.cancel.Handle(ctx, CancelCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID,
		Actor:           f.owner,
		Reason:          CancelReasonManual,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	course, err := f.courseRepo.GetByID(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), course.Cost.AmountCents)
	assert.Equal(t, int64(40000), f.sectionPrice(t, "sec-1"))

	change, err := f.pendingRepo.GetByID(ctx, proposed.PendingChange.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.ChangeCancelled, change.Status)

	// Отменённое изменение нельзя подтвердить.
	_, err = f.confirm.Handle(ctx, ConfirmCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID, Actor: f.owner,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelCostChange_ExpiredReasonNeedsNoActor(t *testing.T) {
	f := newCostChangeFixture(t)
	f.seed(t)
	ctx := context.Background()

	proposed, err := f.propose.Handle(ctx, ProposeCostChangeCommand{
		CourseID: "course-1", Actor: f.owner, NewCostCents: 60000, Currency: "USD",
	})
	require.NoError(t, err)

	result, err := f.cancel.Handle(ctx, CancelCostChangeCommand{
		PendingChangeID: proposed.PendingChange.ID,
		Reason:          CancelReasonExpired,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	change, err := f.pendingRepo.GetByID(ctx, proposed.PendingChange.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.ChangeCancelled, change.Status)
}
