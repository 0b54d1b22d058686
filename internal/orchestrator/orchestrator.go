// Package orchestrator implements the Orchestrator contract (spec.md
// §4.4, §6.1): the dispatch loop that drives a session's problem
// through the ten-persona roster, interpreting each turn's parsed
// PersonaAction and deciding the next persona, the next status, or
// the session's terminal outcome.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"innerworld-backend/internal/config"
	"innerworld-backend/internal/events"
	"innerworld-backend/internal/graph"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/parser"
	"innerworld-backend/internal/persona"
	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"

	"github.com/google/uuid"
)

func now() time.Time { return time.Now() }

// Orchestrator wires the repositories, PersonaEngine, MemoryStore, and
// EventBroadcaster into the dispatch loop described by spec.md §4.4.
type Orchestrator struct {
	repos       *storage.Repositories
	memory      *memory.Store
	loader      *persona.Loader
	engine      *persona.Engine
	broadcaster events.Broadcaster
	registry    *Registry
	cfg         config.OrchestratorConfig
}

// New builds an Orchestrator. registry may be nil, in which case a
// fresh one is created; callers that need to reach HandleUserClarification,
// Resume, or Cancel background goroutines from elsewhere should share
// one Registry across every Orchestrator instance touching a session.
func New(repos *storage.Repositories, memoryStore *memory.Store, loader *persona.Loader, engine *persona.Engine, broadcaster events.Broadcaster, registry *Registry, cfg config.OrchestratorConfig) *Orchestrator {
	if registry == nil {
		registry = NewRegistry()
	}
	if broadcaster == nil {
		broadcaster = events.NoopBroadcaster{}
	}
	return &Orchestrator{
		repos:       repos,
		memory:      memoryStore,
		loader:      loader,
		engine:      engine,
		broadcaster: broadcaster,
		registry:    registry,
		cfg:         cfg,
	}
}

// GetSession returns the current state of a session, for read-only
// API/CLI callers that sit outside the Orchestrator contract proper
// (spec.md §6.1 names the five write operations; a plain read needs
// no dispatch-loop involvement).
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return o.repos.Sessions.Get(ctx, sessionID)
}

// ListMessages returns a session's full conversation log in arrival
// order, the same history buildHistory windows during dispatch.
func (o *Orchestrator) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	return o.repos.Messages.ListBySession(ctx, sessionID)
}

// Initialize creates a new session from a free-form problem statement
// and starts the dispatch loop as a tracked background task (spec.md
// §6.1, §9's fire-and-forget design note), returning the session as
// soon as it has been persisted — the caller does not wait on the
// first turn.
func (o *Orchestrator) Initialize(ctx context.Context, problem string) (*types.Session, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, types.NewError(types.ErrInvalidInput, "problem statement must not be empty", nil)
	}

	sessionID := uuid.New().String()
	unlock := o.registry.Lock(sessionID)

	session := &types.Session{
		ID:             sessionID,
		Title:          deriveTitle(problem),
		Problem:        problem,
		Status:         types.SessionActive,
		CurrentPersona: types.PersonaCoordinator,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}
	if err := o.repos.Sessions.Create(ctx, session); err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to create session", err)
	}

	problemMessage := &types.Message{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		FromPersona: types.PersonaUser,
		ToPersona:   types.PersonaCoordinator,
		Content:     problem,
		Kind:        types.KindProblemStatement,
		Timestamp:   now(),
	}
	if err := o.repos.Messages.Append(ctx, problemMessage); err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to record problem statement", err)
	}

	o.broadcastMessage(ctx, session, problemMessage)
	o.broadcastStatus(ctx, session)

	// Released before Launch, not deferred: Process acquires this same
	// per-session lock as its first step, and Registry.Launch runs
	// synchronously in test mode — holding the lock across Launch would
	// deadlock against that inline call.
	unlock()

	o.registry.Launch(session.ID, func() {
		if err := o.Process(context.Background(), session.ID); err != nil {
			log.Printf("orchestrator: session %s dispatch loop ended with error: %v", session.ID, err)
		}
	})

	return session, nil
}

// Process runs the dispatch loop for one session until it reaches a
// terminal status, WaitingForClarification, Stuck, or observes a
// cancellation signal (spec.md §4.4). It is safe to call concurrently
// for different sessions but serializes per session via the Registry.
func (o *Orchestrator) Process(ctx context.Context, sessionID string) error {
	unlock := o.registry.Lock(sessionID)
	defer unlock()

	depth := 0
	stuckStreak := 0
	var pendingSynthetic string

	for {
		if o.registry.Cancelled(sessionID) {
			return nil
		}

		session, err := o.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			// No Session object is available here to record a Stuck
			// message or an Error status against, so this one failure
			// mode cannot be routed through the usual TransientBackend/
			// Internal handling below (see DESIGN.md) — log and stop.
			log.Printf("orchestrator: session %s failed to load session, aborting loop: %v", sessionID, err)
			return nil
		}
		if session.Status.Terminal() || session.Status == types.SessionWaitingForClarification || session.Status == types.SessionStuck {
			return nil
		}

		depth++
		if depth > o.cfg.MaxDepth {
			o.transitionStuck(ctx, session, "maximum delegation depth reached")
			return nil
		}

		messages, err := o.repos.Messages.ListBySession(ctx, sessionID)
		if err != nil {
			if o.failTurnTransiently(ctx, session, &stuckStreak, "failed to load conversation: "+err.Error()) {
				return nil
			}
			continue
		}

		incomingContent := pendingSynthetic
		pendingSynthetic = ""
		var parentID string
		if incomingContent == "" {
			incoming := determineIncoming(messages, session.CurrentPersona)
			parentID = incoming.ID
			if incoming.Kind == types.KindDelegation {
				incomingContent = incoming.DelegationContext
			} else {
				incomingContent = incoming.Content
			}
		}

		cfg, err := o.loader.Load(ctx, session.CurrentPersona)
		if err != nil {
			if o.failTurnTransiently(ctx, session, &stuckStreak, "failed to load persona configuration: "+err.Error()) {
				return nil
			}
			continue
		}
		resolver, err := o.loader.BuildResolver(ctx)
		if err != nil {
			if o.failTurnTransiently(ctx, session, &stuckStreak, "failed to build persona resolver: "+err.Error()) {
				return nil
			}
			continue
		}

		recentMemories, err := o.memory.GetRecent(ctx, sessionID, session.CurrentPersona, o.cfg.RecentMemoriesWindow)
		if err != nil {
			if o.failTurnTransiently(ctx, session, &stuckStreak, "failed to load recent memories: "+err.Error()) {
				return nil
			}
			continue
		}

		history := buildHistory(messages, o.cfg.ConversationWindow)

		action, err := o.engine.Process(ctx, *cfg, sessionID, session.Title, session.Problem, history, recentMemories,
			persona.Incoming{Content: incomingContent}, resolver)
		if err != nil {
			log.Printf("orchestrator: session %s persona engine failed: %v", sessionID, err)
			o.transitionError(ctx, session, err)
			return nil
		}

		dg := replayDelegationGraph(messages)
		fromPersona := session.CurrentPersona

		// toPersona and cycleDetected are decided before the message is
		// built, so a Solution/Stuck/Decline/Answer that routes back to
		// the Coordinator carries a ToPersona a later determineIncoming
		// call can find, the same way a Delegate or Clarify already does.
		var toPersona types.Persona
		var cycleDetected bool
		switch action.Kind {
		case parser.ActionDelegate:
			target := types.Persona(action.DelegateTarget)
			toPersona = target
			cycleDetected = isDelegationCycle(dg, fromPersona, target, action.DelegationContext, o.cfg.CycleWindowTurns, o.cfg.CycleSimilarityRatio)
		case parser.ActionClarify:
			toPersona = types.PersonaUser
		default:
			if fromPersona != types.PersonaCoordinator {
				toPersona = types.PersonaCoordinator
			}
		}

		turnMessage := buildTurnMessage(action, fromPersona, toPersona, parentID)
		if err := o.repos.Messages.Append(ctx, turnMessage); err != nil {
			if o.failTurnTransiently(ctx, session, &stuckStreak, "failed to append turn message: "+err.Error()) {
				return nil
			}
			continue
		}
		o.broadcastMessage(ctx, session, turnMessage)

		switch action.Kind {
		case parser.ActionSolution:
			if fromPersona == types.PersonaCoordinator {
				session.FinalSolution = action.Content
				session.Status = types.SessionCompleted
				session.CurrentPersona = ""
				session.UpdatedAt = now()
				if err := o.repos.Sessions.Update(ctx, session); err != nil {
					if o.abandonTurnTransiently(ctx, session, &stuckStreak, "failed to persist completion: "+err.Error()) {
						return nil
					}
					continue
				}
				o.broadcastSolution(ctx, session)
				return nil
			}
			session.CurrentPersona = types.PersonaCoordinator
			stuckStreak = 0

		case parser.ActionDelegate:
			if cycleDetected {
				session.CurrentPersona = types.PersonaCoordinator
				stuckStreak++
			} else {
				session.CurrentPersona = toPersona
				stuckStreak = 0
			}

		case parser.ActionClarify:
			session.Status = types.SessionWaitingForClarification
			session.UpdatedAt = now()
			if err := o.repos.Sessions.Update(ctx, session); err != nil {
				if o.abandonTurnTransiently(ctx, session, &stuckStreak, "failed to persist clarification wait: "+err.Error()) {
					return nil
				}
				continue
			}
			o.broadcastClarification(ctx, session, turnMessage)
			return nil

		case parser.ActionStuck:
			stuckStreak++
			if fromPersona == types.PersonaCoordinator {
				o.transitionStuck(ctx, session, "Coordinator reported being stuck")
				return nil
			}
			session.CurrentPersona = types.PersonaCoordinator

		case parser.ActionDecline:
			session.CurrentPersona = types.PersonaCoordinator

		case parser.ActionAnswer:
			if fromPersona == types.PersonaCoordinator && len(action.Content) <= o.cfg.AnswerRouteCharLimit {
				pendingSynthetic = "Your last response was too brief to act on. Respond with either " +
					"[SOLUTION] followed by the final answer, or [DELEGATE:<PersonaName>] followed by the next " +
					"piece of work."
			} else {
				session.CurrentPersona = types.PersonaCoordinator
			}
		}

		if stuckStreak >= o.cfg.StuckStreakLimit {
			o.transitionStuck(ctx, session, "repeated stuck/cycle responses exceeded the limit")
			return nil
		}

		session.UpdatedAt = now()
		if err := o.repos.Sessions.Update(ctx, session); err != nil {
			if o.abandonTurnTransiently(ctx, session, &stuckStreak, "failed to persist turn outcome: "+err.Error()) {
				return nil
			}
			continue
		}
	}
}

// recordStuckMessage appends a best-effort Stuck-kind Message noting a
// TransientBackend failure and broadcasts it, so the conversation log
// and any connected client show why a turn was skipped. Append/broadcast
// failures here are themselves logged and swallowed, never escalated.
func (o *Orchestrator) recordStuckMessage(ctx context.Context, session *types.Session, detail string) {
	msg := &types.Message{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		FromPersona: session.CurrentPersona,
		ToPersona:   types.PersonaCoordinator,
		Content:     detail,
		Kind:        types.KindStuck,
		Stuck:       true,
		Timestamp:   now(),
	}
	if err := o.repos.Messages.Append(ctx, msg); err != nil {
		log.Printf("orchestrator: session %s failed to record transient-failure message: %v", session.ID, err)
		return
	}
	o.broadcastMessage(ctx, session, msg)
}

// failTurnTransiently handles a TransientBackend failure encountered
// before the turn's outcome has mutated session state: it records a
// Stuck message, hands the turn to Coordinator to try an alternative,
// and persists that handoff. Once stuckStreak reaches the limit it
// transitions the session to terminal Stuck instead and reports exit.
func (o *Orchestrator) failTurnTransiently(ctx context.Context, session *types.Session, stuckStreak *int, detail string) bool {
	log.Printf("orchestrator: session %s transient failure: %s", session.ID, detail)
	o.recordStuckMessage(ctx, session, detail)
	*stuckStreak++
	if *stuckStreak >= o.cfg.StuckStreakLimit {
		o.transitionStuck(ctx, session, detail)
		return true
	}
	session.CurrentPersona = types.PersonaCoordinator
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		log.Printf("orchestrator: session %s failed to persist Coordinator handoff after transient failure: %v", session.ID, err)
	}
	return false
}

// abandonTurnTransiently handles a TransientBackend failure persisting
// a turn outcome whose in-memory Session fields may already reflect a
// transition (Completed, WaitingForClarification, ...) the failed
// write never committed. It never re-persists that dirty state: on the
// continue path the next loop iteration re-reads the last good,
// unmutated session from the repository; on the exit path transitionStuck
// overwrites Status unconditionally and clears FinalSolution and
// CurrentPersona, so the uncommitted mutation is harmless.
func (o *Orchestrator) abandonTurnTransiently(ctx context.Context, session *types.Session, stuckStreak *int, detail string) bool {
	log.Printf("orchestrator: session %s transient failure: %s", session.ID, detail)
	o.recordStuckMessage(ctx, session, detail)
	*stuckStreak++
	if *stuckStreak >= o.cfg.StuckStreakLimit {
		o.transitionStuck(ctx, session, detail)
		return true
	}
	return false
}

// transitionError persists status=Error and broadcasts
// SessionStatusChanged, the Internal-failure handling spec.md §7
// requires: unlike TransientBackend, the loop always exits.
func (o *Orchestrator) transitionError(ctx context.Context, session *types.Session, cause error) {
	session.Status = types.SessionError
	session.CurrentPersona = ""
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		log.Printf("orchestrator: session %s failed to persist Error transition (cause: %v): %v", session.ID, cause, err)
		return
	}
	o.broadcastStatus(ctx, session)
}

// HandleUserClarification records the user's answer to an outstanding
// [CLARIFY] and resumes the dispatch loop from the persona that asked.
func (o *Orchestrator) HandleUserClarification(ctx context.Context, sessionID, response string) (*types.Message, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, types.NewError(types.ErrInvalidInput, "clarification response must not be empty", nil)
	}

	unlock := o.registry.Lock(sessionID)

	session, err := o.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, types.NewError(types.ErrNotFound, "session not found", err)
	}
	if session.Status != types.SessionWaitingForClarification {
		unlock()
		return nil, types.NewError(types.ErrInvalidState, "session is not waiting for clarification", nil)
	}

	messages, err := o.repos.Messages.ListBySession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to load conversation", err)
	}
	asker := lastClarificationAsker(messages)

	msg := &types.Message{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		FromPersona: types.PersonaUser,
		ToPersona:   asker,
		Content:     response,
		Kind:        types.KindUserResponse,
		Timestamp:   now(),
	}
	if err := o.repos.Messages.Append(ctx, msg); err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to record clarification response", err)
	}

	session.Status = types.SessionActive
	session.CurrentPersona = asker
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to resume session", err)
	}

	o.broadcastMessage(ctx, session, msg)
	o.broadcastStatus(ctx, session)

	// Released before Launch for the same reason as Initialize: Process
	// takes this lock itself, and Launch may run it inline in test mode.
	unlock()

	o.registry.Launch(sessionID, func() {
		if err := o.Process(context.Background(), sessionID); err != nil {
			log.Printf("orchestrator: session %s dispatch loop ended with error: %v", sessionID, err)
		}
	})

	return msg, nil
}

// Resume restarts a Stuck, Interrupted, or Error session from the
// Coordinator.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*types.Session, error) {
	unlock := o.registry.Lock(sessionID)

	session, err := o.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, types.NewError(types.ErrNotFound, "session not found", err)
	}
	switch session.Status {
	case types.SessionStuck, types.SessionInterrupted, types.SessionError:
	default:
		unlock()
		return nil, types.NewError(types.ErrInvalidState, "session cannot be resumed from its current status", nil)
	}

	session.Status = types.SessionActive
	session.CurrentPersona = types.PersonaCoordinator
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		unlock()
		return nil, types.NewError(types.ErrTransientBackend, "failed to resume session", err)
	}
	o.broadcastStatus(ctx, session)

	// Released before Launch for the same reason as Initialize: Process
	// takes this lock itself, and Launch may run it inline in test mode.
	unlock()

	o.registry.Launch(sessionID, func() {
		if err := o.Process(context.Background(), sessionID); err != nil {
			log.Printf("orchestrator: session %s dispatch loop ended with error: %v", sessionID, err)
		}
	})

	return session, nil
}

// Cancel transitions a session to Cancelled and signals any running
// Process loop to stop at its next turn boundary. Idempotent: cancelling
// an already-Cancelled session is a no-op (spec.md §8 R1).
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	session, err := o.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		return types.NewError(types.ErrNotFound, "session not found", err)
	}
	if session.Status == types.SessionCancelled {
		return nil
	}

	session.Status = types.SessionCancelled
	session.CurrentPersona = ""
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		return types.NewError(types.ErrTransientBackend, "failed to persist cancellation", err)
	}
	o.registry.SignalCancel(sessionID)
	o.broadcastStatus(ctx, session)
	return nil
}

// transitionStuck persists the Stuck status and broadcasts
// SessionStuck carrying whatever partial results the session has
// accumulated so far.
func (o *Orchestrator) transitionStuck(ctx context.Context, session *types.Session, reason string) {
	session.Status = types.SessionStuck
	session.CurrentPersona = ""
	session.FinalSolution = ""
	session.UpdatedAt = now()
	if err := o.repos.Sessions.Update(ctx, session); err != nil {
		log.Printf("orchestrator: session %s failed to persist Stuck transition (%s): %v", session.ID, reason, err)
		return
	}

	messages, err := o.repos.Messages.ListBySession(ctx, session.ID)
	if err != nil {
		log.Printf("orchestrator: session %s failed to load messages for partial results: %v", session.ID, err)
		messages = nil
	}

	o.broadcaster.Broadcast(ctx, types.EventEnvelope{
		Kind:           types.EventSessionStuck,
		SessionID:      session.ID,
		Timestamp:      now(),
		Session:        types.NewSessionSummary(session),
		PartialResults: partialResults(messages),
	})
}

func (o *Orchestrator) broadcastMessage(ctx context.Context, session *types.Session, msg *types.Message) {
	view := types.NewMessageView(msg)
	o.broadcaster.Broadcast(ctx, types.EventEnvelope{
		Kind:      types.EventMessageReceived,
		SessionID: session.ID,
		Timestamp: now(),
		Session:   types.NewSessionSummary(session),
		Message:   &view,
	})
}

func (o *Orchestrator) broadcastStatus(ctx context.Context, session *types.Session) {
	o.broadcaster.Broadcast(ctx, types.EventEnvelope{
		Kind:      types.EventSessionStatusChanged,
		SessionID: session.ID,
		Timestamp: now(),
		Session:   types.NewSessionSummary(session),
	})
}

func (o *Orchestrator) broadcastClarification(ctx context.Context, session *types.Session, msg *types.Message) {
	view := types.NewMessageView(msg)
	o.broadcaster.Broadcast(ctx, types.EventEnvelope{
		Kind:      types.EventClarificationRequested,
		SessionID: session.ID,
		Timestamp: now(),
		Session:   types.NewSessionSummary(session),
		Message:   &view,
	})
}

func (o *Orchestrator) broadcastSolution(ctx context.Context, session *types.Session) {
	o.broadcaster.Broadcast(ctx, types.EventEnvelope{
		Kind:      types.EventSolutionReady,
		SessionID: session.ID,
		Timestamp: now(),
		Session:   types.NewSessionSummary(session),
	})
}

// deriveTitle collapses whitespace and truncates to 80 characters,
// giving every session a short, stable label for SessionSummary.
func deriveTitle(problem string) string {
	collapsed := strings.Join(strings.Fields(problem), " ")
	if len(collapsed) <= 80 {
		return collapsed
	}
	return collapsed[:80]
}

// determineIncoming finds the message the current persona should
// respond to: the most recent message addressed to it, else the most
// recent user message, else the original problem statement (spec.md
// §4.4 step 2).
func determineIncoming(messages []types.Message, currentPersona types.Persona) types.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.FromPersona != currentPersona && m.ToPersona == currentPersona {
			return m
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].FromPersona == types.PersonaUser {
			return messages[i]
		}
	}
	if len(messages) > 0 {
		return messages[0]
	}
	return types.Message{}
}

// buildHistory returns the last windowSize messages as ConversationTurns.
func buildHistory(messages []types.Message, windowSize int) []persona.ConversationTurn {
	if windowSize <= 0 {
		windowSize = 20
	}
	start := 0
	if len(messages) > windowSize {
		start = len(messages) - windowSize
	}
	out := make([]persona.ConversationTurn, 0, len(messages)-start)
	for _, m := range messages[start:] {
		content := m.Content
		if m.Kind == types.KindDelegation {
			content = m.DelegationContext
		}
		out = append(out, persona.ConversationTurn{From: m.FromPersona, Content: content})
	}
	return out
}

// buildTurnMessage maps a parsed PersonaAction to the Message appended
// to the session log. toPersona is decided by the caller (it may
// depend on cycle detection for a Delegate) so it is threaded through
// rather than re-derived here.
func buildTurnMessage(action parser.PersonaAction, from, toPersona types.Persona, parentID string) *types.Message {
	msg := &types.Message{
		ID:                uuid.New().String(),
		FromPersona:       from,
		ToPersona:         toPersona,
		InternalReasoning: action.Reasoning,
		RawResponse:       action.Raw,
		ParentMessageID:   parentID,
		Timestamp:         now(),
	}

	switch action.Kind {
	case parser.ActionDelegate:
		msg.Kind = types.KindDelegation
		msg.DelegateTarget = toPersona
		msg.DelegationContext = action.DelegationContext
		msg.Content = action.DelegationContext
	case parser.ActionClarify:
		msg.Kind = types.KindClarification
		msg.Content = action.Content
	case parser.ActionSolution:
		msg.Kind = types.KindSolution
		msg.Content = action.Content
	case parser.ActionStuck:
		msg.Kind = types.KindStuck
		msg.Stuck = true
		msg.Content = action.Content
	case parser.ActionDecline:
		msg.Kind = types.KindDecline
		msg.Content = action.Content
	default:
		msg.Kind = types.KindAnswer
		msg.Content = action.Content
	}
	return msg
}

// lastClarificationAsker returns the persona who most recently issued
// a [CLARIFY], for routing HandleUserClarification's response back.
func lastClarificationAsker(messages []types.Message) types.Persona {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Kind == types.KindClarification {
			return messages[i].FromPersona
		}
	}
	return types.PersonaCoordinator
}

// replayDelegationGraph rebuilds a session's DelegationGraph from its
// persisted message log, so cycle detection survives Process being
// invoked fresh on each Initialize/Resume/HandleUserClarification
// call rather than needing its own persisted state.
func replayDelegationGraph(messages []types.Message) *graph.DelegationGraph {
	dg := graph.NewDelegationGraph()
	turn := 0
	for _, m := range messages {
		if m.Kind != types.KindDelegation {
			continue
		}
		dg.CreateNode(m.FromPersona, turn)
		dg.CreateEdge(m.FromPersona, m.ToPersona, m.DelegationContext, turn, m.Timestamp)
		turn++
	}
	return dg
}

// partialResults summarizes whatever a session has produced so far,
// for the SessionStuck event's best-effort recovery payload: every
// Solution-kind message if any exist, else the trailing 10 messages.
func partialResults(messages []types.Message) string {
	var solutions []string
	for _, m := range messages {
		if m.Kind == types.KindSolution {
			solutions = append(solutions, m.Content)
		}
	}
	if len(solutions) > 0 {
		return strings.Join(solutions, "\n\n")
	}

	start := 0
	if len(messages) > 10 {
		start = len(messages) - 10
	}
	var parts []string
	for _, m := range messages[start:] {
		parts = append(parts, fmt.Sprintf("[%s] %s", m.FromPersona, m.Content))
	}
	return strings.Join(parts, "\n\n")
}
