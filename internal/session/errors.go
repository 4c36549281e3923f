// AngelaMos | 2026
// errors.go

package session

import (
	"errors"
	"net/http"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUpdateFailed       = errors.New("profile update failed")
	ErrLedgerUpdateFailed = errors.New("ledger update failed")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrStorageCorrupt is logged on restore and never returned.
	ErrStorageCorrupt = errors.New("stored session corrupt")
)

type kindInfo struct {
	err    error
	kind   string
	status int
}

var kinds = []kindInfo{
	{ErrUserNotFound, "UserNotFound", http.StatusUnauthorized},
	{ErrInvalidCredential, "InvalidCredential", http.StatusUnauthorized},
	{ErrEmailTaken, "EmailTaken", http.StatusConflict},
	{ErrPhoneTaken, "PhoneTaken", http.StatusConflict},
	{ErrNotAuthenticated, "NotAuthenticated", http.StatusUnauthorized},
	{ErrInvalidAmount, "InvalidAmount", http.StatusBadRequest},
	{ErrInsufficientFunds, "InsufficientFunds", http.StatusUnprocessableEntity},
	{ErrUpdateFailed, "UpdateFailed", http.StatusBadGateway},
	{ErrLedgerUpdateFailed, "LedgerUpdateFailed", http.StatusBadGateway},
	{ErrInvalidInput, "InvalidInput", http.StatusBadRequest},
	{ErrStorageCorrupt, "StorageCorrupt", http.StatusInternalServerError},
}

// ErrorKind returns the stable name of err's kind, or "" when err is not
// one of this package's errors.
func ErrorKind(err error) string {
	k, ok := lookupKind(err)
	if !ok {
		return ""
	}
	return k.kind
}

func lookupKind(err error) (kindInfo, bool) {
	if err == nil {
		return kindInfo{}, false
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return kindInfo{}, false
}
