// Package mailbox proves phone ownership by scanning an inbox that receives
// carrier-relayed SMS-over-email messages. Everything here is best-effort:
// any transport fault degrades to "not verified", never an error, because a
// transient mail-server outage must look like a retryable miss to the user.
package mailbox

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"petmily/internal/platform/config"
	"petmily/internal/platform/metrics"
)

// Bridge opens short-lived read-only IMAP sessions on demand. No connection
// is held between calls and no write operation is ever issued against the
// mailbox.
type Bridge struct {
	cfg     config.Mailbox
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewBridge(cfg config.Mailbox, logger *slog.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{cfg: cfg, logger: logger, metrics: m}
}

// Address returns the inbox address that receives the relayed messages so
// callers can include it in out-of-band delivery context.
func (b *Bridge) Address() string { return b.cfg.Address }

// VerifyCodeSentToPhone scans the inbox newest-first and reports whether a
// message from the given phone number carrying exactly the expected code
// arrived at or after since. Messages whose digits do not match keep the
// scan going; only the expected code ends it.
func (b *Bridge) VerifyCodeSentToPhone(ctx context.Context, code, phone string, since time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.MailboxScanSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	c, err := client.DialTLS(b.cfg.IMAPAddr, nil)
	if err != nil {
		b.logger.Warn("mailbox dial failed", "error", err)
		return false
	}
	// Logout releases the session and folder on every exit path.
	defer c.Logout()

	if err := c.Login(b.cfg.Username, b.cfg.Password); err != nil {
		b.logger.Warn("mailbox login failed", "error", err)
		return false
	}

	// Read-only select; this bridge never mutates the mailbox.
	if _, err := c.Select("INBOX", true); err != nil {
		b.logger.Warn("mailbox select failed", "error", err)
		return false
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		b.logger.Warn("mailbox search failed", "error", err)
		return false
	}
	if len(ids) == 0 {
		return false
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var fetched []*imap.Message
	for msg := range messages {
		fetched = append(fetched, msg)
	}
	if err := <-done; err != nil {
		b.logger.Warn("mailbox fetch failed", "error", err)
		return false
	}

	// Newest first; undated messages sort last.
	sort.SliceStable(fetched, func(i, j int) bool {
		di, dj := fetched[i].InternalDate, fetched[j].InternalDate
		if dj.IsZero() {
			return !di.IsZero()
		}
		if di.IsZero() {
			return false
		}
		return di.After(dj)
	})

	for _, msg := range fetched {
		// IMAP SINCE has date granularity; re-check the exact instant.
		if !msg.InternalDate.IsZero() && msg.InternalDate.Before(since) {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		if scanMessage(body, phone, code) {
			return true
		}
	}
	return false
}
