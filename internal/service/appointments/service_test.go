package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type fakeRepo struct {
	byID    map[int64]*domain.Appointment
	byToken map[string]*domain.Appointment

	confirmCalls int
	cancelCalls  int
	updateCalls  int

	confirmErr error
	cancelErr  error
	updateErr  error

	lastStatus domain.AppointmentStatus
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	appt, ok := f.byID[id]
	if !ok {
		return nil, apptRepo.ErrAppointmentNotFound
	}
	return appt, nil
}

func (f *fakeRepo) GetByToken(_ context.Context, token string) (*domain.Appointment, error) {
	appt, ok := f.byToken[token]
	if !ok {
		return nil, apptRepo.ErrTokenNotFound
	}
	return appt, nil
}

// Confirm повторяет контракт SQL-репозитория: версионированное обновление
// статуса, токен в строке сохраняется и запись остаётся находимой по нему
func (f *fakeRepo) Confirm(_ context.Context, id int64, version int64) error {
	f.confirmCalls++
	if f.confirmErr != nil {
		return f.confirmErr
	}

	for token, appt := range f.byToken {
		if appt.ID != id {
			continue
		}
		if appt.Version != version || appt.Status != domain.StatusScheduled {
			return apptRepo.ErrStaleVersion
		}

		updated := *appt
		updated.Status = domain.StatusConfirmed
		updated.Version++
		f.byToken[token] = &updated
		if f.byID != nil {
			f.byID[id] = &updated
		}
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ int64, _ int64, status domain.AppointmentStatus) error {
	f.updateCalls++
	f.lastStatus = status
	return f.updateErr
}

func (f *fakeRepo) Cancel(_ context.Context, _ int64, _ int64, _ string) error {
	f.cancelCalls++
	return f.cancelErr
}

type fakeOutbox struct {
	events []*outbox.Event
}

func (f *fakeOutbox) Append(_ context.Context, event *outbox.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newService(repo *fakeRepo, ob *fakeOutbox, now time.Time) *Service {
	svc := NewService(repo, ob, fakeTx{}, nopLogger{})
	svc.timeProvider = &fixedClock{now: now}
	return svc
}

func scheduledAppointment(createdAt time.Time) *domain.Appointment {
	token := "tok-123"
	expires := createdAt.Add(domain.ConfirmationTokenTTL)
	return &domain.Appointment{
		ID:                42,
		ResourceID:        3,
		ServiceID:         7,
		StartAt:           createdAt.Add(72 * time.Hour),
		DurationMinutes:   30,
		Status:            domain.StatusScheduled,
		ConfirmationToken: &token,
		TokenExpiresAt:    &expires,
		CustomerName:      "Иван Петров",
		CustomerPhone:     "+79001234567",
		Version:           1,
	}
}

func TestConfirm_Success(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}
	ob := &fakeOutbox{}

	// 47 часов после создания - токен ещё действителен
	svc := newService(repo, ob, createdAt.Add(47*time.Hour))

	resp, err := svc.Confirm(context.Background(), "tok-123")
	require.NoError(t, err)

	assert.False(t, resp.AlreadyConfirmed)
	assert.Equal(t, string(domain.StatusConfirmed), resp.Appointment.Status)
	assert.Nil(t, resp.Appointment.TokenExpiresAt)
	assert.Equal(t, int64(2), resp.Appointment.Version)
	assert.Equal(t, 1, repo.confirmCalls)

	require.Len(t, ob.events, 1)
	assert.Equal(t, outbox.EventAppointmentConfirmed, ob.events[0].EventType)
	assert.Equal(t, int64(42), ob.events[0].AggregateID)
}

func TestConfirm_RepeatedCallReturnsAlreadyConfirmed(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}
	ob := &fakeOutbox{}

	svc := newService(repo, ob, createdAt.Add(time.Hour))

	first, err := svc.Confirm(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.False(t, first.AlreadyConfirmed)

	// Повторный переход по той же ссылке находит уже подтверждённую запись
	second, err := svc.Confirm(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.True(t, second.AlreadyConfirmed)
	assert.Equal(t, string(domain.StatusConfirmed), second.Appointment.Status)
	assert.Nil(t, second.Appointment.TokenExpiresAt)

	// Второй вызов не выполняет ни записей, ни событий
	assert.Equal(t, 1, repo.confirmCalls)
	assert.Len(t, ob.events, 1)
}

func TestConfirm_TokenExpired(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}

	// 49 часов после создания - TTL 48 часов истёк
	svc := newService(repo, &fakeOutbox{}, createdAt.Add(49*time.Hour))

	_, err := svc.Confirm(context.Background(), "tok-123")
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Zero(t, repo.confirmCalls)
}

func TestConfirm_ExactExpiryBoundaryIsExpired(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}

	svc := newService(repo, &fakeOutbox{}, createdAt.Add(domain.ConfirmationTokenTTL))

	_, err := svc.Confirm(context.Background(), "tok-123")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestConfirm_AlreadyConfirmedIsSoftSuccess(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	appt.Status = domain.StatusConfirmed
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}
	ob := &fakeOutbox{}

	svc := newService(repo, ob, createdAt.Add(time.Hour))

	resp, err := svc.Confirm(context.Background(), "tok-123")
	require.NoError(t, err)

	assert.True(t, resp.AlreadyConfirmed)
	// Повтор не выполняет ни записей, ни событий
	assert.Zero(t, repo.confirmCalls)
	assert.Empty(t, ob.events)
}

func TestConfirm_UnknownToken(t *testing.T) {
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{}}
	svc := newService(repo, &fakeOutbox{}, time.Now())

	_, err := svc.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConfirm_CancelledAppointment(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	appt.Status = domain.StatusCancelled
	repo := &fakeRepo{byToken: map[string]*domain.Appointment{"tok-123": appt}}

	svc := newService(repo, &fakeOutbox{}, createdAt.Add(time.Hour))

	_, err := svc.Confirm(context.Background(), "tok-123")
	assert.ErrorIs(t, err, ErrCannotConfirm)
}

func TestConfirm_VersionRace(t *testing.T) {
	createdAt := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := scheduledAppointment(createdAt)
	repo := &fakeRepo{
		byToken:    map[string]*domain.Appointment{"tok-123": appt},
		confirmErr: apptRepo.ErrStaleVersion,
	}

	svc := newService(repo, &fakeOutbox{}, createdAt.Add(time.Hour))

	_, err := svc.Confirm(context.Background(), "tok-123")
	assert.ErrorIs(t, err, ErrStaleState)
}

func cancelFixture(t *testing.T, untilStart time.Duration) (*Service, *fakeRepo, *fakeOutbox) {
	t.Helper()

	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{
		ID:              42,
		ResourceID:      3,
		StartAt:         now.Add(untilStart),
		DurationMinutes: 30,
		Status:          domain.StatusConfirmed,
		Version:         2,
	}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	ob := &fakeOutbox{}
	return newService(repo, ob, now), repo, ob
}

func TestCancel_CustomerInsideWindow(t *testing.T) {
	// До начала 6 часов 1 минута - отмена ещё допустима
	svc, repo, ob := cancelFixture(t, 6*time.Hour+time.Minute)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{
		Actor:              "customer",
		CancellationReason: "не смогу прийти",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.cancelCalls)
	require.Len(t, ob.events, 1)
	assert.Equal(t, outbox.EventAppointmentCancelled, ob.events[0].EventType)
}

func TestCancel_CustomerWindowClosed(t *testing.T) {
	// До начала 5 часов 59 минут - окно отмены закрыто
	svc, repo, _ := cancelFixture(t, 5*time.Hour+59*time.Minute)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{Actor: "customer"})
	assert.ErrorIs(t, err, ErrCancellationWindowClosed)
	assert.Zero(t, repo.cancelCalls)
}

func TestCancel_CustomerExactBoundaryRefused(t *testing.T) {
	// Ровно 6 часов до начала - граница включительно, отмена запрещена
	svc, repo, _ := cancelFixture(t, domain.CancellationCutoff)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{Actor: "customer"})
	assert.ErrorIs(t, err, ErrCancellationWindowClosed)
	assert.Zero(t, repo.cancelCalls)
}

func TestCancel_BusinessBypassesWindow(t *testing.T) {
	// Бизнес отменяет даже за час до начала
	svc, repo, ob := cancelFixture(t, time.Hour)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{
		Actor:              "business",
		CancellationReason: "мастер заболел",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.cancelCalls)
	assert.Len(t, ob.events, 1)
}

func TestCancel_TerminalStatus(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{
		ID:      42,
		StartAt: now.Add(24 * time.Hour),
		Status:  domain.StatusCompleted,
		Version: 3,
	}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{Actor: "business"})
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestCancel_InvalidActor(t *testing.T) {
	svc, _, _ := cancelFixture(t, 24*time.Hour)

	err := svc.Cancel(context.Background(), 42, &models.CancelRequest{Actor: "admin"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_CompleteFromConfirmed(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{ID: 42, Status: domain.StatusConfirmed, Version: 2}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.UpdateStatus(context.Background(), 42, &models.UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, repo.lastStatus)
}

func TestUpdateStatus_NoShowFromConfirmed(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{ID: 42, Status: domain.StatusConfirmed, Version: 2}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.UpdateStatus(context.Background(), 42, &models.UpdateStatusRequest{Status: "no_show"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoShow, repo.lastStatus)
}

func TestUpdateStatus_RejectedFromScheduled(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{ID: 42, Status: domain.StatusScheduled, Version: 1}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.UpdateStatus(context.Background(), 42, &models.UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, repo.updateCalls)
}

func TestUpdateStatus_CancelNotAllowedHere(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{ID: 42, Status: domain.StatusConfirmed, Version: 2}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.UpdateStatus(context.Background(), 42, &models.UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_VersionRace(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{ID: 42, Status: domain.StatusConfirmed, Version: 2}
	repo := &fakeRepo{
		byID:      map[int64]*domain.Appointment{42: appt},
		updateErr: apptRepo.ErrStaleVersion,
	}
	svc := newService(repo, &fakeOutbox{}, now)

	err := svc.UpdateStatus(context.Background(), 42, &models.UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{}}
	svc := newService(repo, &fakeOutbox{}, time.Now())

	_, err := svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestGetByID_Success(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	appt := &domain.Appointment{
		ID:     42,
		Status: domain.StatusConfirmed,
		Notes:  ptr.Ptr("позвонить за час"),
	}
	repo := &fakeRepo{byID: map[int64]*domain.Appointment{42: appt}}
	svc := newService(repo, &fakeOutbox{}, now)

	resp, err := svc.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "confirmed", resp.Status)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "позвонить за час", *resp.Notes)
}
