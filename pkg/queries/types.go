package queries

// Settings holds the app-interface wide settings the integration depends on.
type Settings struct {
	Vault bool          `json:"vault"`
	SMTP  *SMTPSettings `json:"smtp,omitempty"`
}

// SMTPSettings carries the mail domain used to qualify bare org usernames.
type SMTPSettings struct {
	MailAddress string `json:"mailAddress"`
}

// MailAddress returns the configured mail domain or "" when settings carry none.
func (s Settings) MailAddress() string {
	if s.SMTP == nil {
		return ""
	}
	return s.SMTP.MailAddress
}

// EmailRecord is a single declared email. Name is the unique key.
type EmailRecord struct {
	Name    string       `json:"name"`
	Subject string       `json:"subject"`
	Body    string       `json:"body"`
	To      AudienceSpec `json:"to"`
}

// Alias names accepted in AudienceSpec.Aliases.
const (
	AliasAllUsers         = "all-users"
	AliasAllServiceOwners = "all-service-owners"
)

// AudienceSpec describes who an email goes to. Every field is optional.
//
// Clusters and Namespaces are decoded so declarations using them stay valid,
// but they are not audience sources yet and contribute no recipients.
type AudienceSpec struct {
	Aliases     []string       `json:"aliases,omitempty"`
	Services    []ServiceRef   `json:"services,omitempty"`
	Clusters    []ClusterRef   `json:"clusters,omitempty"`
	Namespaces  []NamespaceRef `json:"namespaces,omitempty"`
	AWSAccounts []AccountRef   `json:"aws_accounts,omitempty"`
	Roles       []RoleRef      `json:"roles,omitempty"`
	Users       []UserRef      `json:"users,omitempty"`
}

// Owner is a service or account owner, addressed by email.
type Owner struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// ServiceRef is an application (apps_v1) with optional owners.
type ServiceRef struct {
	Name          string  `json:"name,omitempty"`
	ServiceOwners []Owner `json:"serviceOwners,omitempty"`
}

// AccountRef is an AWS account (awsaccounts_v1) with optional owners.
type AccountRef struct {
	Name                   string  `json:"name"`
	UID                    string  `json:"uid,omitempty"`
	ResourcesDefaultRegion string  `json:"resourcesDefaultRegion,omitempty"`
	AccountOwners          []Owner `json:"accountOwners,omitempty"`
}

// RoleRef is a role whose members are addressed by org username.
type RoleRef struct {
	Name  string    `json:"name,omitempty"`
	Users []UserRef `json:"users,omitempty"`
}

// UserRef is a user record. Depending on the feed it carries an org username,
// an email, or both.
type UserRef struct {
	Name        string `json:"name,omitempty"`
	OrgUsername string `json:"org_username,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ClusterRef names a cluster in an audience. Not an audience source yet.
type ClusterRef struct {
	Name string `json:"name"`
}

// NamespaceRef names a namespace in an audience. Not an audience source yet.
type NamespaceRef struct {
	Name string `json:"name"`
}
