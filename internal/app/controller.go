package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FallbackReply is the single synthetic assistant message shown when an
// exchange fails. It is appended after any partial content, never in place
// of it.
const FallbackReply = "Sorry, something went wrong."

// errExchangeStale marks an exchange abandoned because the user navigated to
// another session while its stream was still being read.
var errExchangeStale = errors.New("exchange no longer current")

// Controller orchestrates send-message cycles: session auto-creation,
// streaming, message-list mutation, and the detached title/summary jobs.
//
// All visible state lives behind one mutex. SendMessage blocks for the whole
// exchange, so the TUI runs it on a goroutine and re-reads snapshots when
// the notify hook fires. Each exchange is tagged with the session id and a
// sequence number; once the user navigates away, late events for the old
// exchange fail the tag check and are dropped instead of mutating the new
// view.
type Controller struct {
	mu       sync.Mutex
	backend  Backend
	sessions *SessionStore
	projects *ProjectStore
	jobs     *JobRunner
	log      *Logger

	messages []Message
	status   string
	loading  bool
	seq      uint64

	notify func()
}

func NewController(backend Backend, sessions *SessionStore, projects *ProjectStore, jobs *JobRunner, log *Logger) *Controller {
	return &Controller{
		backend:  backend,
		sessions: sessions,
		projects: projects,
		jobs:     jobs,
		log:      log,
	}
}

// SetNotify registers a hook fired after every visible-state change. The
// hook must be cheap and must not call back into the controller.
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()
}

// Messages returns a snapshot of the visible conversation.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Status returns the transient thinking status, empty when tokens have
// started flowing or no exchange is active.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// SelectSession makes the session active and fully replaces the visible
// message list with the backend's history. Any in-flight exchange is
// invalidated: its remaining events will be discarded.
func (c *Controller) SelectSession(ctx context.Context, id string) error {
	if err := c.sessions.Select(id); err != nil {
		return err
	}
	msgs, err := c.backend.GetMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	c.mu.Lock()
	c.seq++
	c.messages = msgs
	c.status = ""
	c.mu.Unlock()
	c.changed()
	return nil
}

// NewSession clears the active session; the next SendMessage auto-creates.
func (c *Controller) NewSession() {
	c.mu.Lock()
	c.seq++
	c.messages = nil
	c.status = ""
	c.mu.Unlock()
	c.sessions.ClearActive()
	c.changed()
}

// SendMessage runs one full exchange. Empty input and send-while-loading are
// silent no-ops. The call blocks until the exchange settles or fails; the
// loading flag is cleared on every path.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	c.changed()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.status = ""
		c.mu.Unlock()
		c.changed()
	}()

	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	wasFirst := len(c.Messages()) == 0

	c.mu.Lock()
	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Role:      RoleUser,
		Content:   text,
	})
	c.mu.Unlock()
	c.changed()

	if err := c.streamExchange(ctx, seq, sess.ID, text); err != nil {
		if errors.Is(err, errExchangeStale) {
			// The user switched away mid-stream; nothing more to show and
			// no detached jobs for an abandoned exchange.
			return nil
		}
		if c.log != nil {
			c.log.Error("exchange failed", map[string]interface{}{
				"session": sess.ID,
				"err":     err.Error(),
			})
		}
		c.appendFallback(seq, sess, err)
		return nil
	}

	if wasFirst {
		c.spawnTitleJob(sess.ID, text)
	}
	if pid := c.projects.ActiveID(); pid != "" {
		c.spawnSummaryJob(pid)
	}
	return nil
}

// ensureSession returns the active session, creating and selecting one when
// the user sends into the void.
func (c *Controller) ensureSession(ctx context.Context) (*ChatSession, error) {
	if sess := c.sessions.Active(); sess != nil {
		return sess, nil
	}
	sess, err := c.sessions.Create(ctx, "New Chat", c.projects.ActiveID())
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Select(sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// streamExchange drives decoder→assembler for one exchange, applying each
// event under the lock only while the exchange is still current.
func (c *Controller) streamExchange(ctx context.Context, seq uint64, sessionID, text string) error {
	body, err := c.backend.SendChat(ctx, sessionID, text)
	if err != nil {
		return err
	}
	defer body.Close()

	c.mu.Lock()
	asm := NewResponseAssembler(&c.messages, uuid.NewString(), sessionID)
	c.mu.Unlock()

	dec := NewStreamDecoder(body)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		c.mu.Lock()
		if !c.exchangeCurrent(seq, sessionID) {
			c.mu.Unlock()
			// The user navigated away; stop consuming, the transport can
			// finish on its own.
			return errExchangeStale
		}
		asm.Apply(ev)
		c.status = asm.Status()
		c.mu.Unlock()
		c.changed()

		if asm.State() == ExchangeSettled {
			return nil
		}
	}

	c.mu.Lock()
	if c.exchangeCurrent(seq, sessionID) {
		asm.Settle()
		c.status = ""
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

// exchangeCurrent reports whether events tagged (seq, sessionID) may still
// mutate the visible list; callers hold c.mu.
func (c *Controller) exchangeCurrent(seq uint64, sessionID string) bool {
	return c.seq == seq && c.sessions.ActiveID() == sessionID
}

// appendFallback adds the single failure message for this exchange, keeping
// whatever partial content already streamed.
func (c *Controller) appendFallback(seq uint64, sess *ChatSession, cause error) {
	sessionID := ""
	if sess != nil {
		sessionID = sess.ID
	}
	c.mu.Lock()
	if sessionID != "" && !c.exchangeCurrent(seq, sessionID) {
		c.mu.Unlock()
		return
	}
	c.status = ""
	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   FallbackReply,
	})
	c.mu.Unlock()
	c.changed()
	if c.log != nil && cause != nil {
		c.log.Error("sendMessage failed", map[string]interface{}{"err": cause.Error()})
	}
}

// spawnTitleJob generates a title from the first user message, falling back
// to a truncation of the message itself when the backend call fails.
func (c *Controller) spawnTitleJob(sessionID, firstMessage string) {
	c.jobs.Run(JobGenerateTitle, func(ctx context.Context) error {
		title, err := c.backend.GenerateTitle(ctx, sessionID, firstMessage)
		if err != nil {
			title = TitleFromMessage(firstMessage)
			if renameErr := c.backend.RenameSession(ctx, sessionID, title); renameErr != nil {
				return fmt.Errorf("generate title: %w", err)
			}
		}
		c.sessions.SetTitleLocal(sessionID, title)
		c.changed()
		return nil
	})
}

func (c *Controller) spawnSummaryJob(projectID string) {
	c.jobs.Run(JobRefreshSummary, func(ctx context.Context) error {
		return c.projects.RefreshSummary(ctx, projectID)
	})
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
