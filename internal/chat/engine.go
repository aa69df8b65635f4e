package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// Backend is the subset of the system-of-record contract the engine uses.
// *api.Client satisfies it; tests substitute an in-process fake.
type Backend interface {
	FetchStatus(ctx context.Context, farmerID, seasonID int) (*api.StatusSnapshot, error)
	Register(ctx context.Context, reg api.Registration) (int, error)
	UploadDocument(ctx context.Context, farmerID, stageNumber int, fileType, fileName string) (string, error)
	IngestReadings(ctx context.Context, farmerID int, readings map[string]float64) (*api.IngestResult, error)
	RenewSeason(ctx context.Context, farmerID int) (string, error)
}

// Document uploads are mocked as a fixed file type.
const uploadFileType = "pdf"

const welcomeText = "Welcome! Type **REGISTER** to sign up, **STATUS** with an ID, or **RENEW** to start a new loan cycle. Type **HELP** for commands."

const helpText = "Commands:\n" +
	"**REGISTER**: New user.\n" +
	"**STATUS**: Check loan progress.\n" +
	"**UPLOAD**: Submit a document.\n" +
	"**IOT**: Submit sensor data.\n" +
	"**RENEW**: Start a new loan cycle.\n" +
	"**RESET**: Clear session."

// Engine is the session controller. It owns the Session exclusively and
// processes one input line at a time: exactly one handler runs per turn and
// issues at most one external call before the next line is accepted.
type Engine struct {
	backend    Backend
	transcript *Transcript
	sess       Session
	now        func() time.Time
}

// New returns an engine wired to the given backend, with the welcome
// message already in the transcript.
func New(backend Backend) *Engine {
	e := &Engine{backend: backend, transcript: &Transcript{}, now: time.Now}
	e.say(welcomeText)
	return e
}

// Transcript exposes the append-only message log for rendering.
func (e *Engine) Transcript() *Transcript { return e.transcript }

// Session returns a copy of the current session state.
func (e *Engine) Session() Session { return e.sess }

func (e *Engine) say(text string) Message {
	return e.transcript.Append(SenderSystem, text, e.now().Format("15:04:05"))
}

// Handle processes one input line end to end: it appends the user message,
// dispatches to exactly one handler, replaces the session wholesale, and
// appends the system replies. It returns the system messages of this turn.
func (e *Engine) Handle(ctx context.Context, line string) []Message {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}
	e.transcript.Append(SenderUser, text, e.now().Format("15:04:05"))

	next, replies := e.dispatch(ctx, e.sess, text)
	e.sess = next

	out := make([]Message, 0, len(replies))
	for _, r := range replies {
		out = append(out, e.say(r))
	}
	return out
}

// dispatch routes one line by priority: pending transient mode first (the
// line is a payload regardless of content), then the registration wizard,
// then identifier prompts, then the command vocabulary. RESET is the one
// exception: it is recognized before any pending expectation, so it is
// never consumed as a wizard field, identifier, or transient payload.
func (e *Engine) dispatch(ctx context.Context, sess Session, text string) (Session, []string) {
	if strings.EqualFold(text, "RESET") {
		return e.handleCommand(ctx, sess, "RESET")
	}
	switch {
	case sess.Transient == TransientUpload:
		sess.Transient = TransientNone
		return e.handleUpload(ctx, sess, text)

	case sess.Transient == TransientSensor:
		sess.Transient = TransientNone
		return e.handleSensor(ctx, sess, text)

	case sess.State == StateRegistering:
		return e.handleRegistrationStep(ctx, sess, text)

	case sess.State == StateAwaitingFarmerID:
		id, err := parseFarmerID(text)
		if err != nil {
			// Re-prompt in place; the expectation stays active.
			return sess, []string{"Invalid Farmer ID."}
		}
		sess.FarmerID = id
		sess.State = StateAwaitingAction
		return e.fetchStatus(ctx, sess)

	case sess.State == StateAwaitingRenewID:
		id, err := parseFarmerID(text)
		if err != nil {
			return sess, []string{"Invalid Farmer ID."}
		}
		sess.FarmerID = id
		return e.renew(ctx, sess)
	}
	return e.handleCommand(ctx, sess, strings.ToUpper(text))
}

// handleCommand matches the fixed command vocabulary. Commands that need a
// backend call only arm the corresponding expectation here; the call itself
// happens on a later turn (except STATUS with a known identifier).
func (e *Engine) handleCommand(ctx context.Context, sess Session, command string) (Session, []string) {
	switch command {
	case "RESET":
		// Identifier, draft, and snapshot all cleared.
		return Session{}, []string{"Chat reset. Type **REGISTER** or **STATUS**."}

	case "STATUS":
		if !sess.HasFarmer() {
			sess.State = StateAwaitingFarmerID
			return sess, []string{"Please enter your **Farmer ID**."}
		}
		return e.fetchStatus(ctx, sess)

	case "REGISTER":
		sess.Draft = api.Registration{}
		sess.State = StateRegistering
		sess.RegStep = RegName
		return sess, []string{"To register, enter your **Full Name**."}

	case "RENEW":
		sess.State = StateAwaitingRenewID
		return sess, []string{"Enter the **Farmer ID** for the loan to renew."}

	case "HELP":
		return sess, []string{helpText}

	case "UPLOAD":
		if !sess.HasFarmer() {
			return sess, []string{"Use **STATUS** first."}
		}
		sess.Transient = TransientUpload
		return sess, []string{"Type the filename to mock-upload or **CANCEL**."}

	case "IOT":
		if !sess.HasFarmer() {
			return sess, []string{"Use **STATUS** first."}
		}
		sess.Transient = TransientSensor
		return sess, []string{"Type sensor readings (e.g. moisture:12) or **CANCEL**."}
	}
	return sess, []string{"Unknown command. Type **HELP**."}
}

// fetchStatus performs the status call, caches the snapshot, and
// regenerates the summary message. Failure resets to AwaitingCommand.
func (e *Engine) fetchStatus(ctx context.Context, sess Session) (Session, []string) {
	snap, err := e.backend.FetchStatus(ctx, sess.FarmerID, 0)
	if err != nil {
		sess.State = StateAwaitingCommand
		sess.Snapshot = nil
		return sess, []string{fmt.Sprintf("Error fetching status for ID %d: %s", sess.FarmerID, err)}
	}
	sess.Snapshot = snap
	sess.State = StateAwaitingAction
	return sess, []string{Summarize(snap, sess.FarmerID)}
}

// handleUpload consumes the transient upload payload. CANCEL or a missing
// unlocked stage aborts locally without calling out.
func (e *Engine) handleUpload(ctx context.Context, sess Session, payload string) (Session, []string) {
	if isCancel(payload) {
		return sess, []string{"Upload cancelled."}
	}
	if sess.Snapshot == nil || sess.Snapshot.FirstUnlockedStage() == nil {
		return sess, []string{"No unlocked stage found; upload aborted."}
	}
	stage := sess.Snapshot.FirstUnlockedStage()
	if _, err := e.backend.UploadDocument(ctx, sess.FarmerID, stage.StageNumber, uploadFileType, payload); err != nil {
		return sess, []string{fmt.Sprintf("Upload failed: %s", err)}
	}
	replies := []string{"Upload successful. Awaiting Field Officer approval."}
	sess, more := e.fetchStatus(ctx, sess)
	return sess, append(replies, more...)
}

// handleSensor consumes the transient sensor payload: comma-separated
// key:value pairs, malformed pairs dropped. CANCEL aborts locally.
func (e *Engine) handleSensor(ctx context.Context, sess Session, payload string) (Session, []string) {
	if isCancel(payload) {
		return sess, []string{"IoT upload cancelled."}
	}
	res, err := e.backend.IngestReadings(ctx, sess.FarmerID, parseReadings(payload))
	if err != nil {
		return sess, []string{fmt.Sprintf("IoT upload failed: %s", err)}
	}
	var replies []string
	if res.DroughtFlag {
		replies = append(replies, "Drought risk detected. Insurance claim filed.")
	} else {
		replies = append(replies, "Moisture levels appear normal.")
	}
	sess, more := e.fetchStatus(ctx, sess)
	return sess, append(replies, more...)
}

// renew performs the renewal call. The session returns to AwaitingCommand
// either way, after an interim status refresh on success.
func (e *Engine) renew(ctx context.Context, sess Session) (Session, []string) {
	msg, err := e.backend.RenewSeason(ctx, sess.FarmerID)
	if err != nil {
		sess.State = StateAwaitingCommand
		return sess, []string{fmt.Sprintf("Renewal failed: %s", err)}
	}
	replies := []string{msg}
	sess, more := e.fetchStatus(ctx, sess)
	sess.State = StateAwaitingCommand
	return sess, append(replies, more...)
}
