package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Rejection causes. Dispatch translates these into action_rejected
// frames sent only to the acting player.
var (
	ErrUnknownRoom     = errors.New("unknown room")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrWrongPhase      = errors.New("action not valid in current phase")
	ErrNotEligible     = errors.New("not eligible for this action")
	ErrAlreadyActed    = errors.New("already acted in this window")
	ErrAlreadyBuzzed   = errors.New("already attempted this question")
	ErrRoomFull        = errors.New("room is full")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidPayload  = errors.New("invalid action payload")
	ErrInvalidSettings = errors.New("invalid settings")
)

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownRoom):
		return quiz.ReasonUnknownRoom
	case errors.Is(err, ErrUnknownPlayer):
		return quiz.ReasonUnknownPlayer
	case errors.Is(err, ErrWrongPhase):
		return quiz.ReasonWrongPhase
	case errors.Is(err, ErrNotEligible):
		return quiz.ReasonNotEligible
	case errors.Is(err, ErrAlreadyActed):
		return quiz.ReasonAlreadyActed
	case errors.Is(err, ErrAlreadyBuzzed):
		return quiz.ReasonAlreadyBuzzed
	case errors.Is(err, ErrRoomFull):
		return quiz.ReasonRoomFull
	case errors.Is(err, ErrInvalidSettings):
		return quiz.ReasonInvalidSettings
	default:
		return quiz.ReasonInvalidPayload
	}
}

// Inbound action payloads.
type categoryActionData struct {
	CategoryId string `json:"category_id"`
}

type rpsActionData struct {
	Choice quiz.RpsChoice `json:"choice"`
}

type answerActionData struct {
	OptionIndex int `json:"option_index"`
}

type estimationActionData struct {
	Value float64 `json:"value"`
}

type textActionData struct {
	Answer string `json:"answer"`
}

// DispatchRaw decodes one wire frame from the player and applies it.
func (m *Manager) DispatchRaw(code, playerID string, raw []byte) error {
	var env quiz.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		m.rejectAction(code, playerID, "", quiz.ReasonInvalidPayload)
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return m.Dispatch(code, playerID, env.Type, env.Data)
}

// Dispatch validates and applies one action. On rejection the acting
// player receives an action_rejected event and the error is returned.
func (m *Manager) Dispatch(code, playerID, action string, data json.RawMessage) error {
	err := m.apply(code, playerID, action, data)
	if err != nil {
		m.rejectAction(code, playerID, action, reasonFor(err))
		m.log.Debug().Str("room", code).Str("player", playerID).
			Str("action", action).Err(err).Msg("action rejected")
	}
	return err
}

func (m *Manager) apply(code, playerID, action string, data json.RawMessage) error {
	switch action {
	case quiz.ActionStartGame:
		return m.handleStart(code, playerID)
	case quiz.ActionUpdateSettings:
		var patch quiz.SettingsPatch
		if err := decode(data, &patch); err != nil {
			return err
		}
		return m.handleUpdateSettings(code, playerID, patch)
	case quiz.ActionLeave:
		return m.handleLeave(code, playerID)
	case quiz.ActionVoteCategory:
		var p categoryActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleVote(code, playerID, p.CategoryId)
	case quiz.ActionDiceRoll:
		return m.handleDiceRoll(code, playerID)
	case quiz.ActionRpsChoice:
		var p rpsActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleRpsChoice(code, playerID, p.Choice)
	case quiz.ActionPickCategory:
		var p categoryActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handlePick(code, playerID, p.CategoryId)
	case quiz.ActionSubmitAnswer:
		var p answerActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleAnswer(code, playerID, p.OptionIndex)
	case quiz.ActionSubmitEstimation:
		var p estimationActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleEstimation(code, playerID, p.Value)
	case quiz.ActionBuzz:
		return m.handleBuzz(code, playerID)
	case quiz.ActionSubmitBuzzerAnswer:
		var p textActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleBuzzerAnswer(code, playerID, p.Answer)
	case quiz.ActionListSubmit:
		var p textActionData
		if err := decode(data, &p); err != nil {
			return err
		}
		return m.handleListSubmit(code, playerID, p.Answer)
	case quiz.ActionListSkip:
		return m.handleListSkip(code, playerID)
	default:
		return ErrUnknownAction
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func (m *Manager) rejectAction(code, playerID, action, reason string) {
	_ = m.withRoom(code, func(r *Room) {
		r.publishTo(playerID, quiz.EventActionRejected, quiz.ActionRejectedData{
			Action: action,
			Reason: reason,
		})
	})
}

// playerAction wraps the withRoom plumbing shared by all handlers that
// require a known acting player.
func (m *Manager) playerAction(code, playerID string, fn func(r *Room, p *quiz.Player) error) error {
	var aerr error
	err := m.withRoom(code, func(r *Room) {
		p := r.player(playerID)
		if p == nil {
			aerr = ErrUnknownPlayer
			return
		}
		aerr = fn(r, p)
	})
	if err != nil {
		return err
	}
	return aerr
}

// ===== Lobby actions =====

func (m *Manager) handleStart(code, playerID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		if r.phase != quiz.PhaseLobby && r.phase != quiz.PhaseFinal {
			return ErrWrongPhase
		}
		if !p.IsHost {
			return ErrNotEligible
		}
		if r.count() < quiz.MinPlayersToStart {
			return ErrNotEligible
		}
		if r.phase == quiz.PhaseFinal {
			r.resetForRematch()
		}
		r.started = true
		m.log.Info().Str("room", r.Code).Int("players", r.count()).Msg("game started")
		m.startRound(r, 1)
		return nil
	})
}

func (m *Manager) handleUpdateSettings(code, playerID string, patch quiz.SettingsPatch) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		if r.phase != quiz.PhaseLobby {
			return ErrWrongPhase
		}
		if !p.IsHost {
			return ErrNotEligible
		}
		next, err := r.settings.Apply(patch)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		r.settings = next
		r.publish(quiz.EventSettingsUpdated, quiz.SettingsUpdatedData{Settings: next})
		return nil
	})
}

func (m *Manager) handleLeave(code, playerID string) error {
	var (
		aerr  error
		empty bool
	)
	err := m.withRoom(code, func(r *Room) {
		if r.player(playerID) == nil {
			aerr = ErrUnknownPlayer
			return
		}
		m.dropPlayer(r, playerID, "left")
		empty = r.count() == 0
	})
	if err != nil {
		return err
	}
	if aerr != nil {
		return aerr
	}
	if empty {
		m.scheduleTeardown(code)
	}
	return nil
}

// dropPlayer removes the player and lets the active window react: a
// sub-engine loses a participant, an answer window may now be complete.
func (m *Manager) dropPlayer(r *Room, playerID, reason string) {
	p := r.player(playerID)
	if p == nil {
		return
	}
	name := p.Name
	newHost := r.removePlayer(playerID)
	r.publish(quiz.EventPlayerLeft, quiz.PlayerLeftData{
		PlayerId:    playerID,
		Name:        name,
		PlayerCount: r.count(),
		NewHostId:   newHost,
	})
	m.log.Debug().Str("room", r.Code).Str("player", playerID).Str("reason", reason).Msg("player left")

	if !r.started || r.count() == 0 {
		return
	}
	if r.started && r.count() < quiz.MinPlayersToStart {
		m.toFinal(r)
		return
	}

	switch st := r.sub.(type) {
	case *voteState:
		m.dropFromVote(r, st, playerID)
	case *pickState:
		m.dropFromPick(r, st, playerID)
	case *diceState:
		m.dropFromDice(r, st, playerID)
	case *rpsState:
		m.dropFromRps(r, st, playerID)
	case *hotButtonState:
		m.dropFromHotButton(r, st, playerID)
	case *listState:
		m.dropFromList(r, st, playerID)
	}

	if (r.phase == quiz.PhaseQuestion || r.phase == quiz.PhaseEstimation) && r.everyoneActed() {
		m.finishQuestion(r)
	}
}
