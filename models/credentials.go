package models

type Image struct {
	Url       string `json:"url" bson:"url"`
	Thumbnail string `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Category  string `json:"category,omitempty" bson:"category,omitempty"`
	Type      string `json:"type,omitempty" bson:"type,omitempty"`
	Width     int    `json:"width,omitempty" bson:"width,omitempty"`
	Height    int    `json:"height,omitempty" bson:"height,omitempty"`
}

type BusinessDetails struct {
	Name    string `json:"name" bson:"name"`
	Website string `json:"website,omitempty" bson:"website,omitempty"`
	Logo    *Image `json:"logo,omitempty" bson:"logo,omitempty"`
}

// CredentialsRole is the 2.2.x role entry; 2.1.1 carries the same
// fields flat on the Credentials object instead.
type CredentialsRole struct {
	Role            string          `json:"role" bson:"role"`
	BusinessDetails BusinessDetails `json:"business_details" bson:"business_details"`
	PartyId         string          `json:"party_id" bson:"party_id"`
	CountryCode     string          `json:"country_code" bson:"country_code"`
}

type Credentials struct {
	Token string `json:"token" bson:"token"`
	Url   string `json:"url" bson:"url"`
	// 2.1.1 flat form
	BusinessDetails *BusinessDetails `json:"business_details,omitempty" bson:"business_details,omitempty"`
	PartyId         string           `json:"party_id,omitempty" bson:"party_id,omitempty"`
	CountryCode     string           `json:"country_code,omitempty" bson:"country_code,omitempty"`
	// 2.2.x role-list form
	Roles []CredentialsRole `json:"roles,omitempty" bson:"roles,omitempty"`
}

// Integration is the persisted registration record for one counterpart:
// the credentials it submitted, the endpoint catalogue fetched from its
// version details, and the token C this node issued for it.
type Integration struct {
	TokenC      string        `json:"token_c" bson:"token_c"`
	Version     VersionNumber `json:"version" bson:"version"`
	Credentials Credentials   `json:"credentials" bson:"credentials"`
	Endpoints   []Endpoint    `json:"endpoints" bson:"endpoints"`
}

// EndpointUrl resolves the counterpart's url for a module. For 2.2.x
// the interface role must match as well; 2.1.1 catalogues carry no role.
func (i *Integration) EndpointUrl(module ModuleID, role InterfaceRole) string {
	for _, endpoint := range i.Endpoints {
		if endpoint.Identifier != module {
			continue
		}
		if endpoint.Role == "" || endpoint.Role == role {
			return endpoint.Url
		}
	}
	return ""
}
