package mailer

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/galabid/galabid/internal/notifications"
	"github.com/galabid/galabid/pkg/events"
)

// render maps a notification event to the email it should produce. The
// bid-status mails for one lot share a subject so mail clients thread them.
func render(eventType string, payload []byte, baseURL string) (Message, error) {
	switch eventType {
	case events.EventTypeBidConfirmed:
		var n notifications.BidConfirmed
		if err := json.Unmarshal(payload, &n); err != nil {
			return Message{}, fmt.Errorf("failed to decode confirmation payload: %w", err)
		}
		return renderBidConfirmed(n, baseURL), nil

	case events.EventTypeOutbid:
		var n notifications.Outbid
		if err := json.Unmarshal(payload, &n); err != nil {
			return Message{}, fmt.Errorf("failed to decode outbid payload: %w", err)
		}
		return renderOutbid(n, baseURL), nil

	case events.EventTypeAuctionWon:
		var n notifications.AuctionWon
		if err := json.Unmarshal(payload, &n); err != nil {
			return Message{}, fmt.Errorf("failed to decode winner payload: %w", err)
		}
		return renderAuctionWon(n), nil

	case events.EventTypeSettlementReport:
		var n notifications.SettlementReport
		if err := json.Unmarshal(payload, &n); err != nil {
			return Message{}, fmt.Errorf("failed to decode report payload: %w", err)
		}
		return renderSettlementReport(n), nil
	}

	return Message{}, fmt.Errorf("unknown notification event type %q", eventType)
}

func lotLink(baseURL, lotID string) string {
	return fmt.Sprintf("%s/lots/%s", baseURL, lotID)
}

func renderBidConfirmed(n notifications.BidConfirmed, baseURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Bid Confirmed!</h3>")
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(n.BidderName))
	fmt.Fprintf(&b, "<p>You have successfully placed a bid of <strong>$%s</strong> on %q.</p>",
		n.Amount, html.EscapeString(n.LotName))
	fmt.Fprintf(&b, "<p>We will notify you in this thread if you get outbid.</p>")
	fmt.Fprintf(&b, `<p><a href="%s">View Lot</a></p>`, lotLink(baseURL, n.LotID))

	return Message{To: n.Recipient, Subject: n.Subject, HTML: b.String()}
}

func renderOutbid(n notifications.Outbid, baseURL string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, `<h3 style="color:red;">You've been outbid!</h3>`)
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(n.BidderName))
	fmt.Fprintf(&b, "<p>Someone just bid <strong>$%s</strong> on %q.</p>",
		n.Amount, html.EscapeString(n.LotName))
	fmt.Fprintf(&b, "<p>Don't lose this piece! Click below to bid again.</p>")
	fmt.Fprintf(&b, `<p><a href="%s">Bid Higher Now</a></p>`, lotLink(baseURL, n.LotID))

	return Message{To: n.Recipient, Subject: n.Subject, HTML: b.String()}
}

func renderAuctionWon(n notifications.AuctionWon) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Congratulations, you won!</h3>")
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(n.WinnerName))
	fmt.Fprintf(&b, "<p>The auction has closed and you placed the winning bid on:</p><ul>")
	for _, lot := range n.Lots {
		fmt.Fprintf(&b, "<li>%s &mdash; $%s</li>", html.EscapeString(lot.LotName), lot.Amount)
	}
	fmt.Fprintf(&b, "</ul><p>Total owed: <strong>$%s</strong>.</p>", n.Total)
	fmt.Fprintf(&b, "<p>Please see the checkout desk to arrange payment and collection.</p>")

	return Message{To: n.Recipient, Subject: "Auction Results: You Won!", HTML: b.String()}
}

func renderSettlementReport(n notifications.SettlementReport) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Settlement Report</h3>")
	fmt.Fprintf(&b, "<p>The auction closed at %s with %d winning lots.</p>",
		n.GeneratedAt.Format("2006-01-02 15:04"), n.LotCount)
	fmt.Fprintf(&b, "<p>The full winners sheet is attached as CSV.</p>")

	return Message{
		To:      n.Recipient,
		Subject: "Auction Settlement Report",
		HTML:    b.String(),
		Attachment: &Attachment{
			Filename: "winners.csv",
			Data:     n.CSV,
		},
	}
}
