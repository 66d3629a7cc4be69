package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandTypesPerVersion(t *testing.T) {
	assert.NotContains(t, CommandTypes(V211), CancelReservation)
	assert.Contains(t, CommandTypes(V221), CancelReservation)
	assert.Len(t, CommandTypes(V211), 4)
	assert.Len(t, CommandTypes(V221), 5)
}

func TestVersionNumberIsValid(t *testing.T) {
	assert.True(t, V211.IsValid())
	assert.True(t, V221.IsValid())
	assert.False(t, VersionNumber("2.0").IsValid())
}

func TestEndpointUrl(t *testing.T) {
	integration := Integration{
		Version: V221,
		Endpoints: []Endpoint{
			{Identifier: ModuleCommands, Role: RoleSender, Url: "https://peer.example.com/commands/sender"},
			{Identifier: ModuleCommands, Role: RoleReceiver, Url: "https://peer.example.com/commands/receiver"},
			{Identifier: ModuleCredentials, Url: "https://peer.example.com/credentials"},
		},
	}

	assert.Equal(t, "https://peer.example.com/commands/receiver", integration.EndpointUrl(ModuleCommands, RoleReceiver))
	assert.Equal(t, "https://peer.example.com/commands/sender", integration.EndpointUrl(ModuleCommands, RoleSender))
	// role-less catalogue entry matches any requested role
	assert.Equal(t, "https://peer.example.com/credentials", integration.EndpointUrl(ModuleCredentials, RoleReceiver))
	assert.Equal(t, "", integration.EndpointUrl(ModuleSessions, RoleReceiver))
}
