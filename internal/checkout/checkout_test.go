package checkout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotello/internal/apperr"
	"github.com/iliyamo/hotello/internal/model"
	"github.com/iliyamo/hotello/internal/repository"
)

// ----- in-memory fakes -----

type fakeStore struct {
	byID map[string]model.CheckoutSession
}

func (f *fakeStore) Create(ctx context.Context, s *model.CheckoutSession) error {
	f.byID[s.ID] = *s
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (model.CheckoutSession, error) {
	s, ok := f.byID[id]
	if !ok {
		return model.CheckoutSession{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) UpdateStep(ctx context.Context, id string, step model.CheckoutStep) error {
	s := f.byID[id]
	s.Step = step
	f.byID[id] = s
	return nil
}

func (f *fakeStore) RefreshSnapshot(ctx context.Context, id string, roomIDs []uint64, snapshot string) error {
	s := f.byID[id]
	s.RoomIDs = roomIDs
	s.RoomsSnapshot = snapshot
	f.byID[id] = s
	return nil
}

func (f *fakeStore) SavePersonalDetails(ctx context.Context, id string, d *model.PersonalDetails, next model.CheckoutStep) error {
	s := f.byID[id]
	s.PersonalDetails = d
	s.Step = next
	f.byID[id] = s
	return nil
}

func (f *fakeStore) SaveBillingDetails(ctx context.Context, id string, d *model.BillingDetails, next model.CheckoutStep) error {
	s := f.byID[id]
	s.BillingDetails = d
	s.Step = next
	f.byID[id] = s
	return nil
}

func (f *fakeStore) SaveBookingDetails(ctx context.Context, id string, d *model.BookingDetails, next model.CheckoutStep) error {
	s := f.byID[id]
	s.BookingDetails = d
	s.Step = next
	f.byID[id] = s
	return nil
}

func (f *fakeStore) AdvanceStep(ctx context.Context, id string, next model.CheckoutStep) error {
	s := f.byID[id]
	s.Step = next
	f.byID[id] = s
	return nil
}

type fakeRooms struct {
	rooms map[uint64]model.Room
}

func (f *fakeRooms) ListByIDs(ctx context.Context, ids []uint64) ([]model.Room, error) {
	out := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{byID: map[string]model.CheckoutSession{}}
	rooms := &fakeRooms{rooms: map[uint64]model.Room{
		1: {ID: 1, Name: "Standard", PriceCents: 10000, MaxGuests: 2, IsAvailable: true},
		2: {ID: 2, Name: "Deluxe", PriceCents: 20000, MaxGuests: 4, IsAvailable: true},
	}}
	return NewService(store, rooms), store
}

func personalJSON() json.RawMessage {
	return json.RawMessage(`{"firstName":"Pat","lastName":"Guest","email":"pat@example.com","phoneNum":"+3112345678","age":30}`)
}

func billingJSON() json.RawMessage {
	return json.RawMessage(`{"country":"NL","state":"NH","city":"Amsterdam","street":"Damrak 1","postalCode":"1012"}`)
}

func bookingJSON(checkIn, checkOut time.Time) json.RawMessage {
	d := model.BookingDetails{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		GuestInformation: []model.RoomGuests{
			{RoomID: 1, Guests: []string{"Pat Guest"}},
		},
		AllRoomsAvailable: true,
	}
	raw, _ := json.Marshal(d)
	return raw
}

// ----- tests -----

func TestGetOrCreateNewSession(t *testing.T) {
	svc, _ := newTestService()

	sess, err := svc.GetOrCreate(context.Background(), "", []uint64{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, model.StepPersonalDetails, sess.Step)
	assert.Equal(t, []uint64{1, 2}, sess.RoomIDs)
	assert.Contains(t, sess.RoomsSnapshot, "Deluxe")
}

func TestGetOrCreateEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetOrCreate(context.Background(), "", nil)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	got, err := svc.GetOrCreate(ctx, created.ID, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetOrCreateStaleBindingDegradesToNew(t *testing.T) {
	svc, _ := newTestService()

	sess, err := svc.GetOrCreate(context.Background(), "no-such-session", []uint64{1})
	require.NoError(t, err)
	assert.NotEqual(t, "no-such-session", sess.ID)
	assert.Equal(t, model.StepPersonalDetails, sess.Step)
}

func TestGetOrCreateRefreshesSnapshotOnCartSizeChange(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	got, err := svc.GetOrCreate(ctx, created.ID, []uint64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []uint64{1, 2}, got.RoomIDs)
	assert.Contains(t, got.RoomsSnapshot, "Deluxe")
}

func TestAdvanceWalksTheFullFlow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	sess, err = svc.Advance(ctx, sess.ID, personalJSON())
	require.NoError(t, err)
	assert.Equal(t, model.StepBillingDetails, sess.Step)
	require.NotNil(t, sess.PersonalDetails)
	assert.Equal(t, "Pat", sess.PersonalDetails.FirstName)

	sess, err = svc.Advance(ctx, sess.ID, billingJSON())
	require.NoError(t, err)
	assert.Equal(t, model.StepBookingDetails, sess.Step)

	in := time.Now().UTC().AddDate(0, 0, 7)
	sess, err = svc.Advance(ctx, sess.ID, bookingJSON(in, in.AddDate(0, 0, 3)))
	require.NoError(t, err)
	assert.Equal(t, model.StepReviewInformation, sess.Step)

	sess, err = svc.Advance(ctx, sess.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StepFinalPayment, sess.Step)

	// All captured data is still present at the terminal step.
	steps := sess.CapturedSteps()
	assert.Contains(t, steps, model.StepPersonalDetails)
	assert.Contains(t, steps, model.StepBillingDetails)
	assert.Contains(t, steps, model.StepBookingDetails)
}

func TestAdvancePastTerminalIsConflict(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStep(ctx, sess.ID, model.StepFinalPayment))

	_, err = svc.Advance(ctx, sess.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestAdvanceValidationFailureHoldsStep(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, sess.ID, json.RawMessage(`{"firstName":"Pat"}`))
	require.True(t, apperr.IsKind(err, apperr.Validation))
	fields := apperr.From(err).Fields
	assert.Contains(t, fields, "lastName")
	assert.Contains(t, fields, "email")

	persisted, _ := store.GetByID(ctx, sess.ID)
	assert.Equal(t, model.StepPersonalDetails, persisted.Step, "a failed submit must not move the step")
	assert.Nil(t, persisted.PersonalDetails)
}

func TestAdvanceReportsFieldsByJSONName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, sess.ID, json.RawMessage(
		`{"firstName":"Kid","lastName":"Guest","email":"kid@example.com","phoneNum":"+31","age":12}`))
	require.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Equal(t, "must be at least 18", apperr.From(err).Fields["age"])
}

func TestAdvanceRejectsInvertedDates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, personalJSON())
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, billingJSON())
	require.NoError(t, err)

	in := time.Now().UTC().AddDate(0, 0, 7)
	_, err = svc.Advance(ctx, sess.ID, bookingJSON(in, in.AddDate(0, 0, -2)))
	require.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Contains(t, apperr.From(err).Fields, "checkOut")
}

func TestAdvanceRequiresAvailabilityConfirmation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, personalJSON())
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, billingJSON())
	require.NoError(t, err)

	in := time.Now().UTC().AddDate(0, 0, 7)
	d := model.BookingDetails{
		CheckIn:           in,
		CheckOut:          in.AddDate(0, 0, 2),
		GuestInformation:  []model.RoomGuests{{RoomID: 1, Guests: []string{"Pat"}}},
		AllRoomsAvailable: false,
	}
	raw, _ := json.Marshal(d)
	_, err = svc.Advance(ctx, sess.ID, raw)
	require.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Equal(t, "must be confirmed", apperr.From(err).Fields["allRoomsAvailable"])
}

func TestAdvanceMalformedJSON(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, sess.ID, json.RawMessage(`{not json`))
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestGoToJumpsBackKeepingData(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, personalJSON())
	require.NoError(t, err)
	sess, err = svc.Advance(ctx, sess.ID, billingJSON())
	require.NoError(t, err)

	sess, err = svc.GoTo(ctx, sess.ID, model.StepPersonalDetails)
	require.NoError(t, err)
	assert.Equal(t, model.StepPersonalDetails, sess.Step)

	persisted, _ := store.GetByID(ctx, sess.ID)
	assert.NotNil(t, persisted.PersonalDetails, "jumping back must not clear captured data")
	assert.NotNil(t, persisted.BillingDetails)
}

func TestGoToUnknownStep(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.GetOrCreate(ctx, "", []uint64{1})
	require.NoError(t, err)

	_, err = svc.GoTo(ctx, sess.ID, model.CheckoutStep("TELEPORT"))
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestAdvanceUnknownSession(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Advance(context.Background(), "missing", personalJSON())
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
