package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"svstudio/internal/availability"
	"svstudio/internal/models"
	"svstudio/internal/notify"
	"svstudio/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) Append(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) HasConflict(ctx context.Context, member string, start, end time.Time, buffer time.Duration) (bool, error) {
	args := m.Called(ctx, member, start, end, buffer)
	return args.Bool(0), args.Error(1)
}

func (m *mockCalendar) CreateEvent(ctx context.Context, b *models.Booking, start, end time.Time) (string, error) {
	args := m.Called(ctx, b, start, end)
	return args.String(0), args.Error(1)
}

type mockAvailability struct {
	mock.Mock
}

func (m *mockAvailability) IsAvailable(ctx context.Context, member, date string, start, duration int) bool {
	return m.Called(ctx, member, date, start, duration).Bool(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, b *models.Booking) notify.Report {
	return m.Called(ctx, b).Get(0).(notify.Report)
}

func testRules() Rules {
	return Rules{
		MinHours:     2,
		MaxHours:     8,
		HourlyRate:   75,
		BookingFee:   25,
		Currency:     "USD",
		PaymentToken: "mock_payment_success",
		Buffer:       time.Hour,
		Location:     time.UTC,
	}
}

func validRequest() *models.BookingRequest {
	start := 10
	return &models.BookingRequest{
		Member:       "Rey",
		Date:         "2024-03-15",
		Start:        &start,
		Duration:     2,
		Customer:     "Ann Lee",
		Email:        "ann@example.com",
		Phone:        "+15550001111",
		Studio:       "Podcast Room",
		PaymentToken: "mock_payment_success",
	}
}

type fixture struct {
	store    *mockStore
	calendar *mockCalendar
	avail    *mockAvailability
	notifier *mockNotifier
	svc      *BookingService
}

func newFixture() *fixture {
	f := &fixture{
		store:    new(mockStore),
		calendar: new(mockCalendar),
		avail:    new(mockAvailability),
		notifier: new(mockNotifier),
	}
	logger := zerolog.New(io.Discard)
	f.svc = NewBookingService(f.store, f.calendar, f.avail, f.notifier, testRules(), &logger)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) assertNoSideEffects(t *testing.T) {
	t.Helper()
	f.calendar.AssertNotCalled(t, "HasConflict", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.calendar.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

var (
	slotStart = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	slotEnd   = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

func TestSubmit_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Hour).Return(false, nil).Once()
	f.calendar.On("CreateEvent", ctx, mock.Anything, slotStart, slotEnd).Return("evt-1", nil).Once()
	f.store.On("Append", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Member == "Rey" && b.Total == 175 && b.PaymentStatus == models.PaymentPaid && !b.Created.IsZero()
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(notify.Report{}).Once()

	conf, err := f.svc.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, &Confirmation{Success: true, EventID: "evt-1", Total: 175}, conf)

	f.calendar.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.BookingRequest)
		kind   error
		msg    string
	}{
		{"MissingMember", func(r *models.BookingRequest) { r.Member = "" }, ErrValidation, "Missing fields"},
		{"MissingStart", func(r *models.BookingRequest) { r.Start = nil }, ErrValidation, "Missing fields"},
		{"MissingStudio", func(r *models.BookingRequest) { r.Studio = " " }, ErrValidation, "Missing fields"},
		{"MissingPhone", func(r *models.BookingRequest) { r.Phone = "" }, ErrValidation, "Missing fields"},
		{"BadDate", func(r *models.BookingRequest) { r.Date = "15/03/2024" }, ErrValidation, "Invalid date, expected YYYY-MM-DD"},
		{"StartOutOfDay", func(r *models.BookingRequest) { s := 24; r.Start = &s }, ErrValidation, "Start hour must be between 0 and 23"},
		{"BelowMinimum", func(r *models.BookingRequest) { r.Duration = 1 }, ErrRange, "Minimum booking is 2 hours"},
		{"AboveMaximum", func(r *models.BookingRequest) { r.Duration = 9 }, ErrRange, "Maximum booking is 8 hours"},
		{"BelowMinimumWithoutPayment", func(r *models.BookingRequest) { r.Duration = 1; r.PaymentToken = "" }, ErrRange, "Minimum booking is 2 hours"},
		{"NoPaymentToken", func(r *models.BookingRequest) { r.PaymentToken = "" }, ErrPayment, "Payment required"},
		{"WrongPaymentToken", func(r *models.BookingRequest) { r.PaymentToken = "tok_visa" }, ErrPayment, "Payment validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.mutate(req)

			conf, err := f.svc.Submit(context.Background(), req)
			assert.Nil(t, conf)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var svcErr *Error
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, tt.msg, svcErr.Message)

			f.assertNoSideEffects(t)
			f.avail.AssertNotCalled(t, "IsAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_SlotTaken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(false).Once()

	_, err := f.svc.Submit(ctx, validRequest())
	assert.ErrorIs(t, err, ErrConflict)
	f.assertNoSideEffects(t)
}

func TestSubmit_CalendarConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Hour).Return(true, nil).Once()

	_, err := f.svc.Submit(ctx, validRequest())
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Time range conflicts with existing calendar events (including buffer)")

	f.calendar.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestSubmit_CalendarUnreachableIsFatal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("dial tcp: i/o timeout")
	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Hour).Return(false, boom).Once()

	_, err := f.svc.Submit(ctx, validRequest())
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, boom)
	f.calendar.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSubmit_StoreFailureAfterEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Hour).Return(false, nil).Once()
	f.calendar.On("CreateEvent", ctx, mock.Anything, slotStart, slotEnd).Return("evt-2", nil).Once()
	f.store.On("Append", mock.Anything, mock.Anything).Return(errors.New("sheets and cache down")).Once()

	_, err := f.svc.Submit(ctx, validRequest())
	assert.ErrorIs(t, err, ErrExternalService)

	// No compensation: the event is not deleted and nobody is notified.
	f.calendar.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestSubmit_NotificationFailuresDoNotFailBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	failed := notify.Report{Results: []notify.Result{
		{Channel: notify.CustomerEmail, Status: notify.StatusFailed, Err: errors.New("smtp")},
		{Channel: notify.CustomerSMS, Status: notify.StatusFailed, Err: errors.New("twilio")},
		{Channel: notify.MemberEmail, Status: notify.StatusFailed, Err: errors.New("smtp")},
		{Channel: notify.MemberSMS, Status: notify.StatusFailed, Err: errors.New("twilio")},
	}}
	f.avail.On("IsAvailable", ctx, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Hour).Return(false, nil).Once()
	f.calendar.On("CreateEvent", ctx, mock.Anything, slotStart, slotEnd).Return("evt-3", nil).Once()
	f.store.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(failed).Once()

	conf, err := f.svc.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "evt-3", conf.EventID)
	assert.True(t, conf.Success)
}

func TestSubmit_ZeroBufferAndNoOptionalCollaborators(t *testing.T) {
	store := new(mockStore)
	cal := new(mockCalendar)
	rules := testRules()
	rules.Buffer = 0
	logger := zerolog.New(io.Discard)
	svc := NewBookingService(store, cal, nil, nil, rules, &logger)
	ctx := context.Background()

	cal.On("HasConflict", ctx, "Rey", slotStart, slotEnd, time.Duration(0)).Return(false, nil).Once()
	cal.On("CreateEvent", ctx, mock.Anything, slotStart, slotEnd).Return("evt-4", nil).Once()
	store.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	conf, err := svc.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 175.0, conf.Total)
	cal.AssertExpectations(t)
}

func TestMembersAndPricing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.On("List", ctx, models.BookingFilter{}).Return([]models.Booking{
		{Member: "Rey"}, {Member: "Joe"}, {Member: "Rey"}, {Member: ""}, {Member: "Jane Smith"},
	}, nil).Once()

	members, err := f.svc.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rey", "Joe", "Jane Smith"}, members)

	assert.Equal(t, Pricing{HourlyRate: 75, BookingFee: 25, Currency: "USD"}, f.svc.Pricing())
	assert.Equal(t, 625.0, testRules().Price(8))
}

func TestMembers_StoreError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.On("List", ctx, models.BookingFilter{}).Return(nil, errors.New("down")).Once()

	_, err := f.svc.Members(ctx)
	assert.Error(t, err)
}

func TestSubmit_PersistsWhenClientDisconnectsAfterEvent(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.avail.On("IsAvailable", mock.Anything, "Rey", "2024-03-15", 10, 2).Return(true).Once()
	f.calendar.On("HasConflict", mock.Anything, "Rey", slotStart, slotEnd, time.Hour).Return(false, nil).Once()
	f.calendar.On("CreateEvent", mock.Anything, mock.Anything, slotStart, slotEnd).
		Run(func(mock.Arguments) { cancel() }).
		Return("evt-5", nil).Once()
	f.store.On("Append", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).
		Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(notify.Report{}).Once()

	conf, err := f.svc.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "evt-5", conf.EventID)
	f.store.AssertExpectations(t)
}

func TestSubmit_NotificationWaitIsBounded(t *testing.T) {
	store := new(mockStore)
	cal := new(mockCalendar)
	notifier := new(mockNotifier)
	rules := testRules()
	rules.NotifyTimeout = 20 * time.Millisecond
	logger := zerolog.New(io.Discard)
	svc := NewBookingService(store, cal, nil, notifier, rules, &logger)

	cal.On("HasConflict", mock.Anything, "Rey", slotStart, slotEnd, time.Hour).Return(false, nil).Once()
	cal.On("CreateEvent", mock.Anything, mock.Anything, slotStart, slotEnd).Return("evt-6", nil).Once()
	store.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	notifier.On("Notify", mock.MatchedBy(func(c context.Context) bool {
		_, ok := c.Deadline()
		return ok
	}), mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(notify.Report{Results: []notify.Result{
			{Channel: notify.CustomerSMS, Status: notify.StatusFailed, Err: context.DeadlineExceeded},
		}}).Once()

	done := make(chan struct{})
	var (
		conf *Confirmation
		err  error
	)
	go func() {
		defer close(done)
		conf, err = svc.Submit(context.Background(), validRequest())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("checkout kept waiting on notifications")
	}
	require.NoError(t, err)
	assert.Equal(t, "evt-6", conf.EventID)
	notifier.AssertExpectations(t)
}

// barrierCalendar holds every HasConflict call until all expected callers
// have arrived, so concurrent submissions are past the slot check together.
type barrierCalendar struct {
	arrived sync.WaitGroup
	events  atomic.Int32
}

func (c *barrierCalendar) HasConflict(context.Context, string, time.Time, time.Time, time.Duration) (bool, error) {
	c.arrived.Done()
	released := make(chan struct{})
	go func() {
		c.arrived.Wait()
		close(released)
	}()
	select {
	case <-released:
		return false, nil
	case <-time.After(5 * time.Second):
		return false, errors.New("second submission never arrived")
	}
}

func (c *barrierCalendar) CreateEvent(context.Context, *models.Booking, time.Time, time.Time) (string, error) {
	return fmt.Sprintf("evt-%d", c.events.Add(1)), nil
}

// Checking the slot and writing the booking are not atomic: two submissions
// for the same range that both pass the check are both stored.
func TestSubmit_ConcurrentSubmissionsCanDoubleBook(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryCache()
	checker := availability.NewChecker(store, &logger)
	cal := &barrierCalendar{}
	cal.arrived.Add(2)
	svc := NewBookingService(store, cal, checker, nil, testRules(), &logger)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(2), cal.events.Load())

	stored, err := store.List(context.Background(), models.BookingFilter{Member: "Rey", Date: "2024-03-15"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Overlaps(stored[1].Start, stored[1].Duration))
}
