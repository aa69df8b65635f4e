package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// handleRegistrationStep collects one draft field per turn, in fixed order.
// Steps never go back and never skip; the final step submits the draft as a
// single registration call.
func (e *Engine) handleRegistrationStep(ctx context.Context, sess Session, text string) (Session, []string) {
	switch sess.RegStep {
	case RegName:
		sess.Draft.Name = text
		sess.RegStep = RegPhone
		return sess, []string{"Enter your **Phone Number** (e.g., +255 700 000 000)."}

	case RegPhone:
		sess.Draft.Phone = text
		sess.RegStep = RegAge
		return sess, []string{"Enter your **Age** (e.g., 35)."}

	case RegAge:
		age, err := strconv.Atoi(text)
		if err != nil {
			return sess, []string{"Please enter your age as a whole number (e.g., 35)."}
		}
		sess.Draft.Age = age
		sess.RegStep = RegGender
		return sess, []string{"What is your **Gender**?"}

	case RegGender:
		sess.Draft.Gender = text
		sess.RegStep = RegIDDocument
		return sess, []string{"Enter your **ID Document** number."}

	case RegIDDocument:
		sess.Draft.IDDocument = text
		sess.RegStep = RegCrop
		return sess, []string{"Which **Crop** will you grow? (e.g., Maize)."}

	case RegCrop:
		sess.Draft.Crop = text
		sess.RegStep = RegLandSize
		return sess, []string{"What's your **Land Size** in hectares (e.g., 2.5)?"}

	case RegLandSize:
		size, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return sess, []string{"Please enter the land size as a number of hectares (e.g., 2.5)."}
		}
		sess.Draft.LandSize = size
		return e.submitRegistration(ctx, sess)
	}
	return sess, nil
}

// submitRegistration sends the accumulated draft as one call. Success makes
// the returned identifier the session identifier and triggers an immediate
// status fetch; failure discards the draft and resets to AwaitingCommand.
func (e *Engine) submitRegistration(ctx context.Context, sess Session) (Session, []string) {
	draft := sess.Draft
	sess.Draft = api.Registration{}

	id, err := e.backend.Register(ctx, draft)
	if err != nil {
		sess.State = StateAwaitingCommand
		return sess, []string{fmt.Sprintf("Registration failed: %s", err)}
	}

	sess.FarmerID = id
	sess.State = StateAwaitingAction
	replies := []string{fmt.Sprintf("Registration complete! Your Farmer ID is **%d**. Type **STATUS** to check your loan progress.", id)}
	sess, more := e.fetchStatus(ctx, sess)
	return sess, append(replies, more...)
}
