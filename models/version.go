package models

type VersionNumber string

const (
	V211 VersionNumber = "2.1.1"
	V221 VersionNumber = "2.2.1"
)

func (v VersionNumber) IsValid() bool {
	return v == V211 || v == V221
}

type InterfaceRole string

const (
	RoleSender   InterfaceRole = "SENDER"
	RoleReceiver InterfaceRole = "RECEIVER"
)

type ModuleID string

const (
	ModuleCredentials      ModuleID = "credentials"
	ModuleCommands         ModuleID = "commands"
	ModuleChargingProfiles ModuleID = "chargingprofiles"
	ModuleLocations        ModuleID = "locations"
	ModuleSessions         ModuleID = "sessions"
)

type Version struct {
	Version VersionNumber `json:"version" bson:"version"`
	Url     string        `json:"url" bson:"url"`
}

type Endpoint struct {
	Identifier ModuleID      `json:"identifier" bson:"identifier"`
	Role       InterfaceRole `json:"role,omitempty" bson:"role,omitempty"`
	Url        string        `json:"url" bson:"url"`
}

type VersionDetails struct {
	Version   VersionNumber `json:"version" bson:"version"`
	Endpoints []Endpoint    `json:"endpoints" bson:"endpoints"`
}
