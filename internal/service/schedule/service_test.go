package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/schedule/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type fakeRepo struct {
	policy *domain.SchedulePolicy

	replacedResource map[int64]domain.WeeklyHours
	deletedResource  []int64
	replacedBusiness *domain.WeeklyHours
	replacedBreaks   []domain.BreakInterval
	addedDates       []string
	removedDates     []string
}

func newFakeRepo(policy *domain.SchedulePolicy) *fakeRepo {
	return &fakeRepo{
		policy:           policy,
		replacedResource: make(map[int64]domain.WeeklyHours),
	}
}

func (f *fakeRepo) LoadPolicy(_ context.Context) (*domain.SchedulePolicy, error) {
	return f.policy, nil
}

func (f *fakeRepo) ReplaceBusinessHours(_ context.Context, hours domain.WeeklyHours) error {
	f.replacedBusiness = &hours
	return nil
}

func (f *fakeRepo) ReplaceResourceHours(_ context.Context, resourceID int64, hours domain.WeeklyHours) error {
	f.replacedResource[resourceID] = hours
	return nil
}

func (f *fakeRepo) DeleteResourceHours(_ context.Context, resourceID int64) error {
	f.deletedResource = append(f.deletedResource, resourceID)
	return nil
}

func (f *fakeRepo) AddBlockedDate(_ context.Context, date time.Time, _ *int64) error {
	f.addedDates = append(f.addedDates, date.Format(domain.DateFormat))
	return nil
}

func (f *fakeRepo) RemoveBlockedDate(_ context.Context, date time.Time, _ *int64) error {
	f.removedDates = append(f.removedDates, date.Format(domain.DateFormat))
	return nil
}

func (f *fakeRepo) ReplaceBreaks(_ context.Context, breaks []domain.BreakInterval) error {
	f.replacedBreaks = breaks
	return nil
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func mustTS(t *testing.T, s string) types.TimeString {
	t.Helper()
	v, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return v
}

func testPolicy(t *testing.T) *domain.SchedulePolicy {
	t.Helper()

	var business domain.WeeklyHours
	for d := time.Monday; d <= time.Friday; d++ {
		business[d] = domain.DaySchedule{Open: mustTS(t, "09:00"), Close: mustTS(t, "17:00")}
	}
	business[time.Saturday] = domain.DaySchedule{Closed: true}
	business[time.Sunday] = domain.DaySchedule{Closed: true}

	var override domain.WeeklyHours
	for d := time.Monday; d <= time.Saturday; d++ {
		override[d] = domain.DaySchedule{Open: mustTS(t, "10:00"), Close: mustTS(t, "19:00")}
	}
	override[time.Sunday] = domain.DaySchedule{Closed: true}

	return &domain.SchedulePolicy{
		BusinessHours: business,
		ResourceHours: map[int64]domain.WeeklyHours{5: override},
		BlockedDates:  map[string]struct{}{"2025-11-04": {}},
		ResourceBlockedDates: map[int64]map[string]struct{}{
			5: {"2025-11-10": {}},
		},
		Breaks: []domain.BreakInterval{{Start: mustTS(t, "12:00"), End: mustTS(t, "13:00")}},
	}
}

func TestGetResourceSchedule_WithOverride(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	resp, err := svc.GetResourceSchedule(context.Background(), 5)
	require.NoError(t, err)

	assert.True(t, resp.HasOverride)
	assert.Equal(t, "10:00", resp.Hours.Monday.Open)
	assert.Equal(t, "19:00", resp.Hours.Saturday.Close)
	// Даты бизнеса и ресурса объединяются
	assert.Equal(t, []string{"2025-11-04", "2025-11-10"}, resp.BlockedDates)
	require.Len(t, resp.Breaks, 1)
	assert.Equal(t, "12:00", resp.Breaks[0].Start)
}

func TestGetResourceSchedule_FallsBackToBusinessHours(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	resp, err := svc.GetResourceSchedule(context.Background(), 9)
	require.NoError(t, err)

	assert.False(t, resp.HasOverride)
	assert.Equal(t, "09:00", resp.Hours.Monday.Open)
	assert.True(t, resp.Hours.Saturday.Closed)
	assert.Equal(t, []string{"2025-11-04"}, resp.BlockedDates)
}

func TestUpdateResourceSchedule_ReplaceOverride(t *testing.T) {
	repo := newFakeRepo(testPolicy(t))
	svc := NewService(repo, fakeTx{}, nopLogger{})

	req := &models.UpdateResourceScheduleRequest{
		Hours: &models.WeekPayload{
			Monday:    models.DayPayload{Open: "08:00", Close: "16:00"},
			Tuesday:   models.DayPayload{Open: "08:00", Close: "16:00"},
			Wednesday: models.DayPayload{Open: "08:00", Close: "16:00"},
			Thursday:  models.DayPayload{Open: "08:00", Close: "16:00"},
			Friday:    models.DayPayload{Open: "08:00", Close: "16:00"},
			Saturday:  models.DayPayload{Closed: true},
			Sunday:    models.DayPayload{Closed: true},
		},
		AddBlockedDates: []string{"2025-12-31"},
	}

	err := svc.UpdateResourceSchedule(context.Background(), 5, req)
	require.NoError(t, err)

	hours, ok := repo.replacedResource[5]
	require.True(t, ok)
	assert.Equal(t, "08:00", hours.ForWeekday(time.Monday).Open.String())

	// Закрытый день валиден и уходит в хранилище без времени открытия/закрытия
	saturday := hours.ForWeekday(time.Saturday)
	assert.True(t, saturday.Closed)
	assert.Empty(t, saturday.Open.String())
	assert.Empty(t, saturday.Close.String())
	assert.Equal(t, []string{"2025-12-31"}, repo.addedDates)
}

func TestUpdateResourceSchedule_BackToBusinessDefault(t *testing.T) {
	repo := newFakeRepo(testPolicy(t))
	svc := NewService(repo, fakeTx{}, nopLogger{})

	err := svc.UpdateResourceSchedule(context.Background(), 5, &models.UpdateResourceScheduleRequest{
		UseBusinessDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, repo.deletedResource)
}

func TestUpdateResourceSchedule_MutuallyExclusive(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	err := svc.UpdateResourceSchedule(context.Background(), 5, &models.UpdateResourceScheduleRequest{
		Hours:              &models.WeekPayload{},
		UseBusinessDefault: true,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateResourceSchedule_OpenAfterClose(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	err := svc.UpdateResourceSchedule(context.Background(), 5, &models.UpdateResourceScheduleRequest{
		Hours: &models.WeekPayload{
			Monday: models.DayPayload{Open: "18:00", Close: "09:00"},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateResourceSchedule_InvalidDate(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	err := svc.UpdateResourceSchedule(context.Background(), 5, &models.UpdateResourceScheduleRequest{
		AddBlockedDates: []string{"31-12-2025"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateBusinessSchedule_ReplacesHoursAndBreaks(t *testing.T) {
	repo := newFakeRepo(testPolicy(t))
	svc := NewService(repo, fakeTx{}, nopLogger{})

	req := &models.UpdateBusinessScheduleRequest{
		Hours: &models.WeekPayload{
			Monday:    models.DayPayload{Open: "09:00", Close: "18:00"},
			Tuesday:   models.DayPayload{Open: "09:00", Close: "18:00"},
			Wednesday: models.DayPayload{Open: "09:00", Close: "18:00"},
			Thursday:  models.DayPayload{Open: "09:00", Close: "18:00"},
			Friday:    models.DayPayload{Open: "09:00", Close: "18:00"},
			Saturday:  models.DayPayload{Open: "10:00", Close: "15:00"},
			Sunday:    models.DayPayload{Closed: true},
		},
		Breaks:             &[]models.BreakPayload{{Start: "13:00", End: "14:00"}},
		RemoveBlockedDates: []string{"2025-11-04"},
	}

	err := svc.UpdateBusinessSchedule(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, repo.replacedBusiness)
	assert.Equal(t, "18:00", repo.replacedBusiness.ForWeekday(time.Monday).Close.String())
	require.Len(t, repo.replacedBreaks, 1)
	assert.Equal(t, "13:00", repo.replacedBreaks[0].Start.String())
	assert.Equal(t, []string{"2025-11-04"}, repo.removedDates)
}

func TestUpdateBusinessSchedule_ClearBreaks(t *testing.T) {
	repo := newFakeRepo(testPolicy(t))
	svc := NewService(repo, fakeTx{}, nopLogger{})

	empty := []models.BreakPayload{}
	err := svc.UpdateBusinessSchedule(context.Background(), &models.UpdateBusinessScheduleRequest{
		Breaks: &empty,
	})
	require.NoError(t, err)
	assert.NotNil(t, repo.replacedBreaks)
	assert.Empty(t, repo.replacedBreaks)
}

func TestUpdateBusinessSchedule_InvalidBreak(t *testing.T) {
	svc := NewService(newFakeRepo(testPolicy(t)), fakeTx{}, nopLogger{})

	err := svc.UpdateBusinessSchedule(context.Background(), &models.UpdateBusinessScheduleRequest{
		Breaks: &[]models.BreakPayload{{Start: "14:00", End: "13:00"}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
