package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galabid/galabid/internal/notifications"
	"github.com/galabid/galabid/pkg/events"
)

// fakeSender records sent messages and can be told to fail
type fakeSender struct {
	sent    []Message
	sendErr error
	times   []time.Time
}

func (s *fakeSender) Send(ctx context.Context, msg Message) error {
	s.times = append(s.times, time.Now())
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestDispatcher(sender Sender, minInterval time.Duration) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(nil, sender, DispatcherConfig{
		Exchange:    "auction.notifications",
		Queue:       "auction.notifications.mail",
		BaseURL:     "https://auction.example.org",
		MinInterval: minInterval,
		SendTimeout: time.Second,
	}, logger)
}

func confirmedPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(notifications.BidConfirmed{
		Recipient:  "alice@example.org",
		BidderName: "Alice",
		LotID:      "8f14e45f-ea0f-4c3f-8d5a-30c3bd7f1111",
		LotName:    "Signed Jersey",
		Amount:     "55.00",
		Subject:    "Auction Status: Signed Jersey",
	})
	require.NoError(t, err)
	return payload
}

func TestDispatcher_Handle_SendsRenderedMail(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 0)

	err := d.Handle(context.Background(), events.EventTypeBidConfirmed, confirmedPayload(t))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "alice@example.org", msg.To)
	assert.Equal(t, "Auction Status: Signed Jersey", msg.Subject)
	assert.Contains(t, msg.HTML, "$55.00")
	assert.Contains(t, msg.HTML, "https://auction.example.org/lots/8f14e45f-ea0f-4c3f-8d5a-30c3bd7f1111")
}

func TestDispatcher_Handle_SwallowsSendFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("smtp 421 try again later")}
	d := newTestDispatcher(sender, 0)

	err := d.Handle(context.Background(), events.EventTypeBidConfirmed, confirmedPayload(t))

	assert.NoError(t, err, "a failed send is logged and dropped, never retried")
}

func TestDispatcher_Handle_RejectsUndecodablePayload(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 0)

	err := d.Handle(context.Background(), events.EventTypeBidConfirmed, []byte("{not json"))

	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDispatcher_Handle_UnknownEventType(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender, 0)

	err := d.Handle(context.Background(), "notification.telegram", []byte("{}"))

	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDispatcher_Handle_SpacesConsecutiveSends(t *testing.T) {
	sender := &fakeSender{}
	interval := 50 * time.Millisecond
	d := newTestDispatcher(sender, interval)

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, events.EventTypeBidConfirmed, confirmedPayload(t)))
	require.NoError(t, d.Handle(ctx, events.EventTypeBidConfirmed, confirmedPayload(t)))

	require.Len(t, sender.times, 2)
	gap := sender.times[1].Sub(sender.times[0])
	assert.GreaterOrEqual(t, gap, interval, "second send must wait out the spacing interval")
}

func TestRender_Outbid(t *testing.T) {
	payload, err := json.Marshal(notifications.Outbid{
		Recipient:  "bob@example.org",
		BidderName: "Bob",
		LotID:      "abc",
		LotName:    "Signed <Jersey>",
		Amount:     "60.00",
		Subject:    "Auction Status: Signed <Jersey>",
	})
	require.NoError(t, err)

	msg, err := render(events.EventTypeOutbid, payload, "https://auction.example.org")

	require.NoError(t, err)
	assert.Equal(t, "bob@example.org", msg.To)
	assert.Equal(t, "Auction Status: Signed <Jersey>", msg.Subject,
		"subject matches the confirmation mail so clients thread them")
	assert.Contains(t, msg.HTML, "outbid")
	assert.Contains(t, msg.HTML, "Signed &lt;Jersey&gt;", "lot names are escaped in HTML")
}

func TestRender_AuctionWon(t *testing.T) {
	payload, err := json.Marshal(notifications.AuctionWon{
		Recipient:  "alice@example.org",
		WinnerName: "Alice",
		Lots: []notifications.WonLot{
			{LotName: "Signed Jersey", Amount: "80.00", GroupID: 2},
			{LotName: "Gift Basket", Amount: "30.00"},
		},
		Total: "110.00",
	})
	require.NoError(t, err)

	msg, err := render(events.EventTypeAuctionWon, payload, "https://auction.example.org")

	require.NoError(t, err)
	assert.Equal(t, "Auction Results: You Won!", msg.Subject)
	assert.Contains(t, msg.HTML, "Signed Jersey")
	assert.Contains(t, msg.HTML, "Gift Basket")
	assert.Contains(t, msg.HTML, "$110.00")
	assert.Nil(t, msg.Attachment)
}

func TestRender_SettlementReport(t *testing.T) {
	payload, err := json.Marshal(notifications.SettlementReport{
		Recipient:   "treasurer@example.org",
		LotCount:    12,
		CSV:         []byte("Winner Name,Winner Email\n"),
		GeneratedAt: time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msg, err := render(events.EventTypeSettlementReport, payload, "")

	require.NoError(t, err)
	assert.Equal(t, "treasurer@example.org", msg.To)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "winners.csv", msg.Attachment.Filename)
	assert.Contains(t, string(msg.Attachment.Data), "Winner Name")
	assert.Contains(t, msg.HTML, "12 winning lots")
}
