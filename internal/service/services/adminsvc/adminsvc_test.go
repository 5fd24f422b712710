package adminsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwest/orderbot/internal/service/models/order"
	"github.com/wildwest/orderbot/internal/service/models/product"
	"github.com/wildwest/orderbot/internal/service/models/session"
	"github.com/wildwest/orderbot/internal/service/models/status"
	"github.com/wildwest/orderbot/internal/transport/channel"
)

const (
	adminID    int64 = 99
	customerID int64 = 7
)

type fakeStore struct {
	orders map[string]*order.Order

	statusCalls   []string
	trackingCalls []string

	getErr      error
	listErr     error
	statusErr   error
	trackingErr error
}

func newFakeStore(orders ...*order.Order) *fakeStore {
	st := &fakeStore{orders: map[string]*order.Order{}}
	for _, o := range orders {
		st.orders[o.ID] = o
	}

	return st
}

func (f *fakeStore) Get(_ context.Context, id string) (*order.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return o, nil
}

func (f *fakeStore) List(_ context.Context, filter status.Status) ([]order.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]order.Order, 0, len(f.orders))
	for _, o := range f.orders {
		if filter != "" && o.Status != filter {
			continue
		}
		out = append(out, *o)
	}

	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, st status.Status) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, id+"="+st.String())
	f.orders[id].Status = st

	return nil
}

func (f *fakeStore) SetTracking(_ context.Context, id, link string) error {
	if f.trackingErr != nil {
		return f.trackingErr
	}
	f.trackingCalls = append(f.trackingCalls, id+"="+link)
	f.orders[id].TrackingLink = link

	return nil
}

type sent struct {
	recipient int64
	text      string
	choices   []channel.Choice
}

type fakeChannel struct {
	sent    []sent
	failFor int64
}

func (f *fakeChannel) SendText(_ context.Context, recipient int64, text string) error {
	if f.failFor != 0 && recipient == f.failFor {
		return errors.New("channel down")
	}
	f.sent = append(f.sent, sent{recipient: recipient, text: text})

	return nil
}

func (f *fakeChannel) SendChoice(_ context.Context, recipient int64, prompt string, choices []channel.Choice) error {
	if f.failFor != 0 && recipient == f.failFor {
		return errors.New("channel down")
	}
	f.sent = append(f.sent, sent{recipient: recipient, text: prompt, choices: choices})

	return nil
}

func (f *fakeChannel) last() sent {
	return f.sent[len(f.sent)-1]
}

func (f *fakeChannel) sentTo(recipient int64) []sent {
	var out []sent
	for _, m := range f.sent {
		if m.recipient == recipient {
			out = append(out, m)
		}
	}

	return out
}

func testOrder(id string, st status.Status) *order.Order {
	return &order.Order{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: "Juan",
		Address:      "123 Main St, Quezon City",
		Contact:      "+639171234567",
		Items: []order.LineItem{{
			Category:  product.CategoryEdibles,
			SubOption: "premium",
			Quantity:  3,
			Unit:      "pc",
			UnitPrice: decimal.NewFromInt(15),
			LineTotal: decimal.NewFromInt(45),
		}},
		Total:     decimal.NewFromInt(45),
		Status:    st,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestService(st *fakeStore, ch *fakeChannel) *Service {
	return MustNewService(
		WithStore(st),
		WithChannel(ch),
		WithAdminID(adminID),
		WithPageSize(3),
	)
}

func adminSession(t *testing.T, svc *Service, ch *fakeChannel) *session.Session {
	t.Helper()

	sess := session.New(adminID, time.Now())
	require.NoError(t, svc.Begin(context.Background(), sess))
	require.Equal(t, session.FlowAdmin, sess.Flow)
	require.Equal(t, session.StateAdminBrowsing, sess.State)
	require.NotEmpty(t, ch.last().choices)

	return sess
}

func choose(t *testing.T, svc *Service, sess *session.Session, data string) {
	t.Helper()
	require.NoError(t, svc.Handle(context.Background(), sess, channel.Event{
		Type: channel.EventChoice, Sender: sess.UserID, Choice: data,
	}))
}

func say(t *testing.T, svc *Service, sess *session.Session, text string) {
	t.Helper()
	require.NoError(t, svc.Handle(context.Background(), sess, channel.Event{
		Type: channel.EventText, Sender: sess.UserID, Text: text,
	}))
}

func TestBegin_RejectsNonAdmin(t *testing.T) {
	ch := &fakeChannel{}
	svc := newTestService(newFakeStore(), ch)

	sess := session.New(42, time.Now())
	require.NoError(t, svc.Begin(context.Background(), sess))

	assert.Equal(t, session.FlowNone, sess.Flow)
	assert.Empty(t, ch.last().choices)
	assert.Contains(t, ch.last().text, "not authorized")
}

func TestListing_FiltersAndPaginates(t *testing.T) {
	store := newFakeStore(
		testOrder("WW-0001-ABC", status.StatusPendingReview),
		testOrder("WW-0002-ABC", status.StatusPendingReview),
		testOrder("WW-0003-ABC", status.StatusPendingReview),
		testOrder("WW-0004-ABC", status.StatusPendingReview),
		testOrder("WW-0005-ABC", status.StatusDelivered),
	)
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "list|"+FilterAll)
	// 3 orders on page 1 plus next-page and menu choices.
	assert.Len(t, ch.last().choices, 5)
	assert.Contains(t, ch.last().text, "5 total")

	choose(t, svc, sess, "page|2")
	// 2 remaining orders plus menu, no next page.
	assert.Len(t, ch.last().choices, 3)
	assert.Equal(t, 2, sess.Admin.Page)

	choose(t, svc, sess, "list|"+status.StatusDelivered.String())
	assert.Len(t, ch.last().choices, 2)
	assert.Contains(t, ch.last().choices[0].Data, "WW-0005-ABC")
}

func TestDetail_ShowsOrderAndActions(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusPendingReview))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")

	assert.Equal(t, "WW-1234-KQZ", sess.Admin.OrderID)
	detail := ch.last()
	assert.Contains(t, detail.text, "WW-1234-KQZ")
	assert.Contains(t, detail.text, "Juan")
	assert.Contains(t, detail.text, "₱45.00")
	assert.Len(t, detail.choices, 4)
}

func TestStatusChange_NotifiesCustomer(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusPendingReview))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|status")
	choose(t, svc, sess, "st|"+status.StatusPaymentConfirmed.String())

	assert.Equal(t, []string{"WW-1234-KQZ=" + status.StatusPaymentConfirmed.String()}, store.statusCalls)

	toCustomer := ch.sentTo(customerID)
	require.Len(t, toCustomer, 1)
	assert.Contains(t, toCustomer[0].text, "WW-1234-KQZ")
	assert.Contains(t, toCustomer[0].text, status.StatusPaymentConfirmed.String())

	// Selection is cleared once the action completes.
	assert.Empty(t, sess.Admin.OrderID)
	assert.Equal(t, session.StateAdminBrowsing, sess.State)
	assert.Contains(t, ch.last().text, "is now")
}

func TestBooked_WithTrackingLink(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusBooking))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|status")
	choose(t, svc, sess, "st|"+status.StatusBooked.String())

	// Booked interposes the tracking-link question before committing.
	assert.Empty(t, store.statusCalls)
	assert.Equal(t, status.StatusBooked, sess.Admin.PendingStatus)

	choose(t, svc, sess, "trk|yes")
	require.Equal(t, session.StateAdminAwaitingTracking, sess.State)

	say(t, svc, sess, "https://track.example/123")

	assert.Equal(t, []string{"WW-1234-KQZ=Booked"}, store.statusCalls)
	assert.Equal(t, []string{"WW-1234-KQZ=https://track.example/123"}, store.trackingCalls)

	toCustomer := ch.sentTo(customerID)
	require.Len(t, toCustomer, 1)
	assert.Contains(t, toCustomer[0].text, "https://track.example/123")
	assert.Equal(t, session.StateAdminBrowsing, sess.State)
}

func TestBooked_WithoutTrackingLink(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusBooking))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|status")
	choose(t, svc, sess, "st|"+status.StatusBooked.String())
	choose(t, svc, sess, "trk|no")

	assert.Equal(t, []string{"WW-1234-KQZ=Booked"}, store.statusCalls)
	assert.Empty(t, store.trackingCalls)

	toCustomer := ch.sentTo(customerID)
	require.Len(t, toCustomer, 1)
	assert.NotContains(t, toCustomer[0].text, "http")
}

func TestStandaloneTracking_NoCustomerNotification(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusBooked))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|track")
	require.Equal(t, session.StateAdminAwaitingTracking, sess.State)

	say(t, svc, sess, "https://track.example/456")

	assert.Empty(t, store.statusCalls)
	assert.Equal(t, []string{"WW-1234-KQZ=https://track.example/456"}, store.trackingCalls)
	assert.Empty(t, ch.sentTo(customerID))
	assert.Contains(t, ch.last().text, "Tracking link saved")
}

func TestNotificationFailure_DoesNotFailTheUpdate(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusPendingReview))
	ch := &fakeChannel{failFor: customerID}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|status")
	choose(t, svc, sess, "st|"+status.StatusRejected.String())

	// The store update is the durable fact even when the customer
	// cannot be reached.
	assert.Equal(t, []string{"WW-1234-KQZ=" + status.StatusRejected.String()}, store.statusCalls)
	assert.Contains(t, ch.last().text, "is now")
}

func TestStatusUpdateFailure_KeepsSelection(t *testing.T) {
	store := newFakeStore(testOrder("WW-1234-KQZ", status.StatusPendingReview))
	store.statusErr = errors.New("store unavailable")
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-1234-KQZ")
	choose(t, svc, sess, "act|status")
	choose(t, svc, sess, "st|"+status.StatusDelivered.String())

	assert.Contains(t, ch.last().text, "try again")
	assert.Equal(t, "WW-1234-KQZ", sess.Admin.OrderID)
	assert.Empty(t, ch.sentTo(customerID))
}

func TestProofView(t *testing.T) {
	withProof := testOrder("WW-0001-ABC", status.StatusPendingReview)
	withProof.ProofURL = "https://blobs.example/Order_20260801T120000Z_proof.jpg"
	store := newFakeStore(withProof, testOrder("WW-0002-ABC", status.StatusPendingReview))
	ch := &fakeChannel{}
	svc := newTestService(store, ch)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "ord|WW-0001-ABC")
	choose(t, svc, sess, "act|proof")
	assert.Contains(t, ch.last().text, withProof.ProofURL)

	choose(t, svc, sess, "ord|WW-0002-ABC")
	choose(t, svc, sess, "act|proof")
	assert.Contains(t, ch.last().text, "No payment proof")
}

func TestPageSize_FromOptions(t *testing.T) {
	orders := make([]*order.Order, 0, 10)
	for i := 0; i < 10; i++ {
		orders = append(orders, testOrder(fmt.Sprintf("WW-%04d-ABC", i), status.StatusPendingReview))
	}
	store := newFakeStore(orders...)
	ch := &fakeChannel{}
	svc := MustNewService(
		WithStore(store),
		WithChannel(ch),
		WithAdminID(adminID),
		WithPageSize(4),
	)
	sess := adminSession(t, svc, ch)

	choose(t, svc, sess, "list|"+FilterAll)
	// 4 orders plus next-page and menu.
	assert.Len(t, ch.last().choices, 6)
}
