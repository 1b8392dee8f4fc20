package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/roomops/pms-console/pkg/logger"
)

// Manager hands out one orchestrator per conversation. A conversation is
// keyed by tenant and staff member: one member talking to the console is
// one gate, one slot session, one topic.
type Manager struct {
	mu            sync.Mutex
	conversations map[string]*Orchestrator

	oracle     Oracle
	dispatcher *Dispatcher
	classifier Classifier
	store      StateStore
	logger     logger.Logger
}

// NewManager creates a conversation manager. The store may be nil; without
// one, conversation state lives only in memory.
func NewManager(oracle Oracle, dispatcher *Dispatcher, classifier Classifier, store StateStore, log logger.Logger) *Manager {
	return &Manager{
		conversations: make(map[string]*Orchestrator),
		oracle:        oracle,
		dispatcher:    dispatcher,
		classifier:    classifier,
		store:         store,
		logger:        log,
	}
}

// Conversation returns the orchestrator for the given staff member,
// creating it on first use. A freshly created orchestrator is hydrated
// from the state store, so a pending confirmation survives a restart.
func (m *Manager) Conversation(ctx context.Context, tenantID, userID string) *Orchestrator {
	key := conversationKey(tenantID, userID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if orch, ok := m.conversations[key]; ok {
		return orch
	}

	orch := NewOrchestrator(key, m.oracle, m.dispatcher, m.classifier, m.store, m.logger)
	if m.store != nil {
		state, err := m.store.Load(ctx, key)
		switch {
		case err != nil:
			m.logger.Warn("failed to load conversation state, starting fresh",
				"conversation", key,
				"error", err)
		case state != nil:
			orch.restore(*state)
			m.logger.Info("restored conversation state",
				"conversation", key,
				"phase", state.Phase.String())
		}
	}

	m.conversations[key] = orch
	return orch
}

func conversationKey(tenantID, userID string) string {
	return fmt.Sprintf("%s:%s", tenantID, userID)
}
