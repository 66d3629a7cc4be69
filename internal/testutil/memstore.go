// Package testutil provides an in-memory store implementation for
// package tests.
package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"ocpinode/internal"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/utility"
)

// MemStore implements internal.Store, internal.TokenStore,
// internal.RegistrationStore and internal.Database on plain maps. Knobs
// are exported fields; set them before handing the store to the code
// under test.
type MemStore struct {
	mu sync.Mutex

	Locations map[string]json.RawMessage
	Sessions  map[string]json.RawMessage

	// CommandAck is returned by SendCommand; nil models a network layer
	// that did not take the command.
	CommandAck *models.CommandResponse
	ProfileAck *models.ChargingProfileResponse

	SentCommands []*models.CommandRequest
	SentProfiles []*models.ProfileRequest

	ClientTokens map[string]string

	// CommandResultAfter delays visibility of a stored command result
	// until that many polls have happened.
	CommandResultAfter int
	ProfileResultAfter int

	commandPolls   int
	profilePolls   int
	commandResults map[string]json.RawMessage
	profileResults map[string]json.RawMessage

	TokensA     map[string]bool
	UsedTokensA map[string]bool

	Integrations map[string]*models.Integration

	// DeleteIntegrationErr, when set, is returned by DeleteIntegration
	// instead of touching the map.
	DeleteIntegrationErr error

	LogMessages []internal.Data
}

func NewMemStore() *MemStore {
	return &MemStore{
		Locations:      make(map[string]json.RawMessage),
		Sessions:       make(map[string]json.RawMessage),
		ClientTokens:   make(map[string]string),
		commandResults: make(map[string]json.RawMessage),
		profileResults: make(map[string]json.RawMessage),
		TokensA:        make(map[string]bool),
		UsedTokensA:    make(map[string]bool),
		Integrations:   make(map[string]*models.Integration),
	}
}

func (m *MemStore) Location(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Locations[id], nil
}

func (m *MemStore) Session(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sessions[id], nil
}

func (m *MemStore) SendCommand(_ context.Context, request *models.CommandRequest) (*models.CommandResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentCommands = append(m.SentCommands, request)
	return m.CommandAck, nil
}

func (m *MemStore) SendProfileAction(_ context.Context, request *models.ProfileRequest) (*models.ChargingProfileResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentProfiles = append(m.SentProfiles, request)
	return m.ProfileAck, nil
}

func (m *MemStore) ClientToken(_ context.Context, tokenC string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.ClientTokens[tokenC]
	if !ok {
		return "", utility.Err("no client token")
	}
	return token, nil
}

func (m *MemStore) CommandResult(_ context.Context, correlationKey string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandPolls++
	if m.commandPolls <= m.CommandResultAfter {
		return nil, nil
	}
	if result, ok := m.commandResults[correlationKey]; ok {
		return result, nil
	}
	return m.commandResults["*"], nil
}

func (m *MemStore) ProfileResult(_ context.Context, correlationKey string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profilePolls++
	if m.profilePolls <= m.ProfileResultAfter {
		return nil, nil
	}
	if result, ok := m.profileResults[correlationKey]; ok {
		return result, nil
	}
	return m.profileResults["*"], nil
}

func (m *MemStore) PutCommandResult(_ context.Context, correlationKey string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandResults[correlationKey] = result
	return nil
}

func (m *MemStore) PutProfileResult(_ context.Context, correlationKey string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileResults[correlationKey] = result
	return nil
}

// SetCommandResult stores a result for every correlation key, so tests
// can stage the result before the key is generated.
func (m *MemStore) SetCommandResult(result json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandResults["*"] = result
}

func (m *MemStore) SetProfileResult(result json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileResults["*"] = result
}

func (m *MemStore) CommandPolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commandPolls
}

func (m *MemStore) TokenAExists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TokensA[token], nil
}

func (m *MemStore) TokenAUsed(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UsedTokensA[token], nil
}

func (m *MemStore) TokenCExists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Integrations[token]
	return ok, nil
}

func (m *MemStore) Integration(_ context.Context, tokenC string) (*models.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Integrations[tokenC], nil
}

func (m *MemStore) SaveIntegration(_ context.Context, tokenA string, integration *models.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.TokensA, tokenA)
	m.UsedTokensA[tokenA] = true
	m.Integrations[integration.TokenC] = integration
	return nil
}

func (m *MemStore) ReplaceIntegration(_ context.Context, oldTokenC string, integration *models.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Integrations[oldTokenC]; !ok {
		return ocpi.ErrNotFound
	}
	delete(m.Integrations, oldTokenC)
	m.Integrations[integration.TokenC] = integration
	return nil
}

func (m *MemStore) DeleteIntegration(_ context.Context, tokenC string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteIntegrationErr != nil {
		return m.DeleteIntegrationErr
	}
	if _, ok := m.Integrations[tokenC]; !ok {
		return ocpi.ErrNotFound
	}
	delete(m.Integrations, tokenC)
	return nil
}

func (m *MemStore) WriteLogMessage(data internal.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogMessages = append(m.LogMessages, data)
	return nil
}

func (m *MemStore) ReadLog() (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LogMessages, nil
}
