package tdapi

import (
	"context"
	"fmt"
	"strconv"
)

// Object is anything the engine can send back: an update, a response payload or an error.
type Object interface {
	Type() string
}

// Function is a request sent to the engine.
type Function interface {
	Object
	function()
}

// ResponseHandler receives the single response to a Function. A non-nil error is fatal
// for the dispatch loop that delivered the response.
type ResponseHandler func(ctx context.Context, obj Object) error

// === Authorization states ===

// AuthorizationState is the engine's current step in the login handshake.
// The set of variants is closed: only types in this package implement it.
type AuthorizationState interface {
	Object
	Accept(v StateVisitor) error
	authorizationState()
}

// StateVisitor has one method per AuthorizationState variant.
type StateVisitor interface {
	VisitWaitTdlibParameters(*AuthorizationStateWaitTdlibParameters) error
	VisitWaitEncryptionKey(*AuthorizationStateWaitEncryptionKey) error
	VisitWaitPhoneNumber(*AuthorizationStateWaitPhoneNumber) error
	VisitWaitOtherDeviceConfirmation(*AuthorizationStateWaitOtherDeviceConfirmation) error
	VisitWaitRegistration(*AuthorizationStateWaitRegistration) error
	VisitWaitCode(*AuthorizationStateWaitCode) error
	VisitWaitPassword(*AuthorizationStateWaitPassword) error
	VisitReady(*AuthorizationStateReady) error
	VisitLoggingOut(*AuthorizationStateLoggingOut) error
	VisitClosing(*AuthorizationStateClosing) error
	VisitClosed(*AuthorizationStateClosed) error
}

const (
	TypeAuthorizationStateWaitTdlibParameters         = "authorizationStateWaitTdlibParameters"
	TypeAuthorizationStateWaitEncryptionKey           = "authorizationStateWaitEncryptionKey"
	TypeAuthorizationStateWaitPhoneNumber             = "authorizationStateWaitPhoneNumber"
	TypeAuthorizationStateWaitOtherDeviceConfirmation = "authorizationStateWaitOtherDeviceConfirmation"
	TypeAuthorizationStateWaitRegistration            = "authorizationStateWaitRegistration"
	TypeAuthorizationStateWaitCode                    = "authorizationStateWaitCode"
	TypeAuthorizationStateWaitPassword                = "authorizationStateWaitPassword"
	TypeAuthorizationStateReady                       = "authorizationStateReady"
	TypeAuthorizationStateLoggingOut                  = "authorizationStateLoggingOut"
	TypeAuthorizationStateClosing                     = "authorizationStateClosing"
	TypeAuthorizationStateClosed                      = "authorizationStateClosed"

	TypeUpdateAuthorizationState = "updateAuthorizationState"
	TypeError                    = "error"
	TypeOk                       = "ok"
)

type AuthorizationStateWaitTdlibParameters struct{}

type AuthorizationStateWaitEncryptionKey struct {
	IsEncrypted bool `json:"is_encrypted"`
}

type AuthorizationStateWaitPhoneNumber struct{}

type AuthorizationStateWaitOtherDeviceConfirmation struct {
	Link string `json:"link"`
}

type AuthorizationStateWaitRegistration struct{}

type AuthorizationStateWaitCode struct{}

type AuthorizationStateWaitPassword struct {
	PasswordHint string `json:"password_hint,omitempty"`
}

type AuthorizationStateReady struct{}

type AuthorizationStateLoggingOut struct{}

type AuthorizationStateClosing struct{}

type AuthorizationStateClosed struct{}

func (*AuthorizationStateWaitTdlibParameters) Type() string {
	return TypeAuthorizationStateWaitTdlibParameters
}
func (*AuthorizationStateWaitEncryptionKey) Type() string {
	return TypeAuthorizationStateWaitEncryptionKey
}
func (*AuthorizationStateWaitPhoneNumber) Type() string { return TypeAuthorizationStateWaitPhoneNumber }
func (*AuthorizationStateWaitOtherDeviceConfirmation) Type() string {
	return TypeAuthorizationStateWaitOtherDeviceConfirmation
}
func (*AuthorizationStateWaitRegistration) Type() string {
	return TypeAuthorizationStateWaitRegistration
}
func (*AuthorizationStateWaitCode) Type() string { return TypeAuthorizationStateWaitCode }
func (*AuthorizationStateWaitPassword) Type() string { return TypeAuthorizationStateWaitPassword }
func (*AuthorizationStateReady) Type() string { return TypeAuthorizationStateReady }
func (*AuthorizationStateLoggingOut) Type() string { return TypeAuthorizationStateLoggingOut }
func (*AuthorizationStateClosing) Type() string { return TypeAuthorizationStateClosing }
func (*AuthorizationStateClosed) Type() string { return TypeAuthorizationStateClosed }

func (s *AuthorizationStateWaitTdlibParameters) Accept(v StateVisitor) error {
	return v.VisitWaitTdlibParameters(s)
}
func (s *AuthorizationStateWaitEncryptionKey) Accept(v StateVisitor) error {
	return v.VisitWaitEncryptionKey(s)
}
func (s *AuthorizationStateWaitPhoneNumber) Accept(v StateVisitor) error {
	return v.VisitWaitPhoneNumber(s)
}
func (s *AuthorizationStateWaitOtherDeviceConfirmation) Accept(v StateVisitor) error {
	return v.VisitWaitOtherDeviceConfirmation(s)
}
func (s *AuthorizationStateWaitRegistration) Accept(v StateVisitor) error {
	return v.VisitWaitRegistration(s)
}
func (s *AuthorizationStateWaitCode) Accept(v StateVisitor) error { return v.VisitWaitCode(s) }
func (s *AuthorizationStateWaitPassword) Accept(v StateVisitor) error { return v.VisitWaitPassword(s) }
func (s *AuthorizationStateReady) Accept(v StateVisitor) error { return v.VisitReady(s) }
func (s *AuthorizationStateLoggingOut) Accept(v StateVisitor) error { return v.VisitLoggingOut(s) }
func (s *AuthorizationStateClosing) Accept(v StateVisitor) error { return v.VisitClosing(s) }
func (s *AuthorizationStateClosed) Accept(v StateVisitor) error { return v.VisitClosed(s) }

func (*AuthorizationStateWaitTdlibParameters) authorizationState() {}
func (*AuthorizationStateWaitEncryptionKey) authorizationState() {}
func (*AuthorizationStateWaitPhoneNumber) authorizationState() {}
func (*AuthorizationStateWaitOtherDeviceConfirmation) authorizationState() {}
func (*AuthorizationStateWaitRegistration) authorizationState() {}
func (*AuthorizationStateWaitCode) authorizationState() {}
func (*AuthorizationStateWaitPassword) authorizationState() {}
func (*AuthorizationStateReady) authorizationState() {}
func (*AuthorizationStateLoggingOut) authorizationState() {}
func (*AuthorizationStateClosing) authorizationState() {}
func (*AuthorizationStateClosed) authorizationState() {}

// UpdateAuthorizationState carries a new authorization state.
type UpdateAuthorizationState struct {
	AuthorizationState AuthorizationState `json:"authorization_state"`
}

func (*UpdateAuthorizationState) Type() string { return TypeUpdateAuthorizationState }

// === Responses ===

// Error is the engine's failure payload.
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func (*Error) Type() string { return TypeError }

func (e *Error) Error() string {
	return fmt.Sprintf("tdapi: %d %s", e.Code, e.Message)
}

// String renders the error the way the engine prints objects.
func (e *Error) String() string {
	return "error {\n  code = " + strconv.Itoa(int(e.Code)) + "\n  message = " + strconv.Quote(e.Message) + "\n}\n"
}

// Ok is the empty success payload.
type Ok struct{}

func (*Ok) Type() string { return TypeOk }

// Unknown holds any other object the engine returned.
type Unknown struct {
	TypeName string
	Raw      []byte
}

func (u *Unknown) Type() string { return u.TypeName }

// === Requests ===

// TdlibParameters are the engine's startup parameters.
type TdlibParameters struct {
	UseTestDc              bool   `json:"use_test_dc"`
	DatabaseDirectory      string `json:"database_directory"`
	FilesDirectory         string `json:"files_directory"`
	UseFileDatabase        bool   `json:"use_file_database"`
	UseChatInfoDatabase    bool   `json:"use_chat_info_database"`
	UseMessageDatabase     bool   `json:"use_message_database"`
	UseSecretChats         bool   `json:"use_secret_chats"`
	ApiID                  int32  `json:"api_id"`
	ApiHash                string `json:"api_hash"`
	SystemLanguageCode     string `json:"system_language_code"`
	DeviceModel            string `json:"device_model"`
	SystemVersion          string `json:"system_version"`
	ApplicationVersion     string `json:"application_version"`
	EnableStorageOptimizer bool   `json:"enable_storage_optimizer"`
	IgnoreFileNames        bool   `json:"ignore_file_names"`
}

type SetTdlibParameters struct {
	Parameters *TdlibParameters `json:"parameters"`
}

type CheckDatabaseEncryptionKey struct {
	EncryptionKey string `json:"encryption_key"`
}

// PhoneNumberAuthenticationSettings is always sent as null by this module.
type PhoneNumberAuthenticationSettings struct {
	AllowFlashCall       bool `json:"allow_flash_call"`
	IsCurrentPhoneNumber bool `json:"is_current_phone_number"`
}

type SetAuthenticationPhoneNumber struct {
	PhoneNumber string                             `json:"phone_number"`
	Settings    *PhoneNumberAuthenticationSettings `json:"settings"`
}

type CheckAuthenticationCode struct {
	Code string `json:"code"`
}

type CheckAuthenticationPassword struct {
	Password string `json:"password"`
}

type RegisterUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (*SetTdlibParameters) Type() string { return "setTdlibParameters" }
func (*CheckDatabaseEncryptionKey) Type() string { return "checkDatabaseEncryptionKey" }
func (*SetAuthenticationPhoneNumber) Type() string { return "setAuthenticationPhoneNumber" }
func (*CheckAuthenticationCode) Type() string { return "checkAuthenticationCode" }
func (*CheckAuthenticationPassword) Type() string { return "checkAuthenticationPassword" }
func (*RegisterUser) Type() string { return "registerUser" }

func (*SetTdlibParameters) function() {}
func (*CheckDatabaseEncryptionKey) function() {}
func (*SetAuthenticationPhoneNumber) function() {}
func (*CheckAuthenticationCode) function() {}
func (*CheckAuthenticationPassword) function() {}
func (*RegisterUser) function() {}
