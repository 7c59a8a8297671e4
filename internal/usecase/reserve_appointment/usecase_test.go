package reserve_appointment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/idempotency"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type fakeAppointmentRepo struct {
	created     []*domain.Appointment
	existing    map[int64]*domain.Appointment
	overlapping bool
	createErr   error
	nextID      int64
}

func (f *fakeAppointmentRepo) Create(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	copied := *appt
	copied.ID = f.nextID
	copied.Version = 1
	f.created = append(f.created, &copied)
	return &copied, nil
}

func (f *fakeAppointmentRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	return f.existing[id], nil
}

func (f *fakeAppointmentRepo) HasOverlapping(_ context.Context, _ int64, _ domain.TimeRange) (bool, error) {
	return f.overlapping, nil
}

type fakeScheduleRepo struct {
	policy *domain.SchedulePolicy
}

func (f *fakeScheduleRepo) LoadPolicy(_ context.Context) (*domain.SchedulePolicy, error) {
	return f.policy, nil
}

type fakeIdempotencyRepo struct {
	records   map[string]idempotency.Record
	finalized map[string]int64
}

func (f *fakeIdempotencyRepo) Claim(_ context.Context, key, requestHash string) (idempotency.Record, bool, error) {
	if rec, ok := f.records[key]; ok {
		return rec, rec.AppointmentID != 0, nil
	}
	rec := idempotency.Record{Key: key, RequestHash: requestHash}
	f.records[key] = rec
	return rec, false, nil
}

func (f *fakeIdempotencyRepo) Finalize(_ context.Context, key string, appointmentID int64) error {
	rec := f.records[key]
	rec.AppointmentID = appointmentID
	f.records[key] = rec
	f.finalized[key] = appointmentID
	return nil
}

type fakeOutboxRepo struct {
	events []*outbox.Event
}

func (f *fakeOutboxRepo) Append(_ context.Context, event *outbox.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeCatalogClient struct {
	service *catalogservice.Service
	err     error
}

func (f *fakeCatalogClient) GetService(_ context.Context, _ int64) (*catalogservice.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.service, nil
}

// fakeTxManager выполняет функцию без реальной транзакции
// Если err задан, имитирует исход исчерпанных повторов в txmanager
type fakeTxManager struct {
	err error
}

func (f *fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func ts(t *testing.T, s string) types.TimeString {
	t.Helper()
	v, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return v
}

func workdayPolicy(t *testing.T) *domain.SchedulePolicy {
	t.Helper()
	var hours domain.WeeklyHours
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours[d] = domain.DaySchedule{Open: ts(t, "09:00"), Close: ts(t, "17:00")}
	}
	return &domain.SchedulePolicy{
		BusinessHours: hours,
		Breaks:        []domain.BreakInterval{{Start: ts(t, "12:00"), End: ts(t, "13:00")}},
	}
}

type fixture struct {
	uc          *UseCase
	apptRepo    *fakeAppointmentRepo
	idempotency *fakeIdempotencyRepo
	outbox      *fakeOutboxRepo
	txManager   *fakeTxManager
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	apptRepo := &fakeAppointmentRepo{existing: make(map[int64]*domain.Appointment)}
	idemRepo := &fakeIdempotencyRepo{
		records:   make(map[string]idempotency.Record),
		finalized: make(map[string]int64),
	}
	outboxRepo := &fakeOutboxRepo{}
	txManager := &fakeTxManager{}

	uc := NewUseCase(
		apptRepo,
		&fakeScheduleRepo{policy: workdayPolicy(t)},
		idemRepo,
		outboxRepo,
		&fakeCatalogClient{service: &catalogservice.Service{ID: 7, Name: "Стрижка", DurationMinutes: 30}},
		txManager,
		nopLogger{},
	)
	uc.timeProvider = &fixedTimeProvider{now: now}

	return &fixture{uc: uc, apptRepo: apptRepo, idempotency: idemRepo, outbox: outboxRepo, txManager: txManager}
}

func validRequest(t *testing.T) *Request {
	t.Helper()
	return &Request{
		ResourceID:     3,
		ServiceID:      7,
		Date:           time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC),
		StartTime:      ts(t, "10:00"),
		CustomerName:   "Иван Петров",
		CustomerPhone:  "+79001234567",
		IdempotencyKey: "key-1",
	}
}

func TestExecute_CreatesAppointmentWithToken(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	resp, err := f.uc.Execute(context.Background(), validRequest(t))
	require.NoError(t, err)

	assert.False(t, resp.Replayed)
	assert.Equal(t, string(domain.StatusScheduled), resp.Status)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, "Стрижка", resp.ServiceName)

	require.Len(t, f.apptRepo.created, 1)
	created := f.apptRepo.created[0]
	require.NotNil(t, created.ConfirmationToken)
	assert.NotEmpty(t, *created.ConfirmationToken)
	require.NotNil(t, created.TokenExpiresAt)
	assert.Equal(t, now.Add(domain.ConfirmationTokenTTL), *created.TokenExpiresAt)

	// Событие создания пишется в той же транзакции
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, outbox.EventAppointmentCreated, f.outbox.events[0].EventType)
	assert.Equal(t, created.ID, f.outbox.events[0].AggregateID)

	// Ключ идемпотентности привязан к созданной записи
	assert.Equal(t, created.ID, f.idempotency.finalized["key-1"])
}

func TestExecute_IdempotentReplayReturnsSameAppointment(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	req := validRequest(t)

	first, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	f.apptRepo.existing[first.ID] = f.apptRepo.created[0]

	second, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.ID, second.ID)
	// Повтор не создаёт ни новой записи, ни нового события
	assert.Len(t, f.apptRepo.created, 1)
	assert.Len(t, f.outbox.events, 1)
}

func TestExecute_IdempotencyKeyReusedWithDifferentPayload(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	first, err := f.uc.Execute(context.Background(), validRequest(t))
	require.NoError(t, err)
	f.apptRepo.existing[first.ID] = f.apptRepo.created[0]

	other := validRequest(t)
	other.StartTime = ts(t, "11:00")

	_, err = f.uc.Execute(context.Background(), other)
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)
}

func TestExecute_OverlappingSlotReturnsConflict(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.apptRepo.overlapping = true

	_, err := f.uc.Execute(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Empty(t, f.outbox.events)
}

func TestExecute_ExclusionConstraintMapsToSlotConflict(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	// Проверка пересечений прошла, но вставку отклонил EXCLUDE-constraint
	f.apptRepo.createErr = apptRepo.ErrSlotConflict

	_, err := f.uc.Execute(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Empty(t, f.outbox.events)
}

func TestExecute_SerializationFailureSurfacesAsSlotConflict(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.txManager.err = fmt.Errorf("%w: transaction failed after retry", txmanager.ErrSerializationFailure)

	_, err := f.uc.Execute(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestExecute_LockTimeoutSurfacesAsLockTimeout(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.txManager.err = fmt.Errorf("%w: transaction failed after retry", txmanager.ErrLockTimeout)

	_, err := f.uc.Execute(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestExecute_SlotOutsideWorkingHours(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	req := validRequest(t)
	req.StartTime = ts(t, "16:45") // 16:45+30 > 17:00

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_SlotInsideBreak(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	req := validRequest(t)
	req.StartTime = ts(t, "12:30")

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_SlotInThePast(t *testing.T) {
	// Запись на сегодня на время раньше текущего
	now := time.Date(2025, 10, 16, 11, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	req := validRequest(t)
	req.StartTime = ts(t, "10:00")

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_ValidationErrors(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(req *Request)
	}{
		{"missing idempotency key", func(req *Request) { req.IdempotencyKey = "" }},
		{"missing customer name", func(req *Request) { req.CustomerName = "  " }},
		{"missing customer phone", func(req *Request) { req.CustomerPhone = "" }},
		{"non-positive resource", func(req *Request) { req.ResourceID = 0 }},
		{"zero date", func(req *Request) { req.Date = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, now)
			req := validRequest(t)
			tt.mutate(req)

			_, err := f.uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
