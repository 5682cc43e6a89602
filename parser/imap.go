package parser

import (
	"fmt"
	"log"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/kteam-analyzer/backend/models"
)

// MailClient fetches list mail over IMAP. The monthly archive file lags
// behind the list, so a subscribed inbox is the only way to see the current
// month's not-yet-archived messages.
type MailClient struct {
	host     string
	port     string
	username string
	password string
}

// NewMailClient creates an IMAP mail client.
func NewMailClient(host, port, username, password string) *MailClient {
	return &MailClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

// FetchMessages returns messages received since the given time. Envelope
// data carries no References header, so messages from this source thread on
// In-Reply-To alone.
func (mc *MailClient) FetchMessages(since time.Time) ([]*models.Message, error) {
	addr := fmt.Sprintf("%s:%s", mc.host, mc.port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		log.Printf("Error connecting to IMAP server: %v", err)
		return nil, err
	}
	defer c.Logout()

	if err := c.Login(mc.username, mc.password); err != nil {
		log.Printf("Error logging in: %v", err)
		return nil, err
	}

	mbox, err := c.Select("INBOX", false)
	if err != nil {
		log.Printf("Error selecting inbox: %v", err)
		return nil, err
	}

	if mbox.Messages == 0 {
		log.Println("No messages in mailbox")
		return nil, nil
	}

	criteria := &imap.SearchCriteria{
		Since: since,
	}

	ids, err := c.Search(criteria)
	if err != nil {
		log.Printf("Error searching messages: %v", err)
		return nil, err
	}

	if len(ids) == 0 {
		log.Println("No messages found matching criteria")
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchBody}
		done <- c.Fetch(seqset, items, messages)
	}()

	var parsed []*models.Message
	for msg := range messages {
		if m := fromEnvelope(msg); m != nil {
			parsed = append(parsed, m)
		}
	}

	if err := <-done; err != nil {
		log.Printf("Error fetching messages: %v", err)
		return nil, err
	}

	return parsed, nil
}

// fromEnvelope builds a Message from an IMAP envelope. The same required
// fields apply as for mbox parsing: no id, subject, or date means no message.
func fromEnvelope(msg *imap.Message) *models.Message {
	if msg == nil || msg.Envelope == nil {
		return nil
	}

	env := msg.Envelope
	if env.MessageId == "" || env.Subject == "" || env.Date.IsZero() {
		return nil
	}

	var sender string
	if len(env.From) > 0 {
		from := env.From[0]
		if from.PersonalName != "" {
			sender = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
		} else {
			sender = from.Address()
		}
	}

	return &models.Message{
		MessageID: env.MessageId,
		InReplyTo: env.InReplyTo,
		Subject:   NormalizeSubject(env.Subject),
		Sender:    sender,
		Timestamp: env.Date,
		Category:  models.NotPatch,
	}
}
