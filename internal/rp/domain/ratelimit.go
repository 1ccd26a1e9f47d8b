package domain

// IdentifierKind scopes a rate-limit window.
type IdentifierKind string

const (
	IdentifierIP    IdentifierKind = "ip"
	IdentifierEmail IdentifierKind = "email"
)

// Protocol endpoints as rate-limit scopes.
const (
	EndpointRegisterStart  = "register_start"
	EndpointRegisterFinish = "register_finish"
	EndpointLoginStart     = "login_start"
	EndpointLoginFinish    = "login_finish"
)
