package marketsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeInvalidCredentials  = "invalid_credentials"
	ErrorCodeAccountInactive     = "account_inactive"
	ErrorCodeAccountSuspended    = "account_suspended"
	ErrorCodePendingApproval     = "pending_approval"
	ErrorCodeWeakPassword        = "weak_password"
	ErrorCodeEmailTaken          = "email_taken"
	ErrorCodeChamberRequired     = "chamber_required"
	ErrorCodeChamberNotFound     = "chamber_not_found"
	ErrorCodeChamberExists       = "chamber_exists"
	ErrorCodeResetNotFound       = "reset_not_found"
	ErrorCodeResetUsed           = "reset_used"
	ErrorCodeResetBadExpiry      = "reset_bad_expiry"
	ErrorCodeResetExpired        = "reset_expired"
	ErrorCodeResetInvalid        = "reset_invalid"
	ErrorCodeRateLimited         = "rate_limited"
	ErrorCodeRateLimitExceeded   = "rate_limit_exceeded"
	ErrorCodeNoEmail             = "no_email"
	ErrorCodeDeliveryUnavailable = "delivery_unavailable"
	ErrorCodeDeliveryFailed      = "delivery_failed"
	ErrorCodeNotFound            = "not_found"
	ErrorCodeForbidden           = "forbidden"
	ErrorCodeInvalidToken        = "invalid_token"
	ErrorCodeServerError         = "server_error"
)

// APIError is a non-2xx response decoded by the client.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another *APIError by code, so errors.Is(err, &APIError{Code: ...})
// works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("unexpected status %d", resp.StatusCode),
	}
}
