package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Response is the envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type userURI struct {
	UserID string `uri:"userId" binding:"required,alphanum,max=64"`
}

// bindUserID validates the :userId path parameter and writes a 400 when it is malformed
func bindUserID(c *gin.Context) (string, bool) {
	var uri userURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondBadRequest(c, "Valid user ID required", map[string]string{"user_id": err.Error()})
		return "", false
	}
	return uri.UserID, true
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]string) {
	c.JSON(status, Response{Error: &ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: getRequestID(c),
	}})
}

// respondBadRequest sends a bad request error
func respondBadRequest(c *gin.Context, message string, details map[string]string) {
	respondError(c, http.StatusBadRequest, apperrors.CodeValidation, message, details)
}

// respondAppError maps a service error to its HTTP status.
// Malformed upstream data surfaces as 422, anything unclassified as 500.
func respondAppError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	code := apperrors.GetCode(err)
	switch code {
	case apperrors.CodeAnalysisFailed, apperrors.CodeScoreCalculationFailed:
		status = http.StatusUnprocessableEntity
	}

	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) || status >= http.StatusInternalServerError {
		respondError(c, status, code, "Internal server error", nil)
		return
	}
	message := appErr.Message
	if appErr.Err != nil {
		message = fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
	}
	respondError(c, status, code, message, appErr.Details)
}

var platformAliases = map[string]entities.Platform{
	"binr": entities.PlatformStable,
	"bgt":  entities.PlatformGold,
	"bst":  entities.PlatformSilver,
	"bpt":  entities.PlatformPlatinum,
}

// DefaultAddresses resolves every platform to "<platform>_<userId>"
func DefaultAddresses(userID string) entities.AddressSet {
	set := make(entities.AddressSet, len(entities.AllPlatforms))
	for _, p := range entities.AllPlatforms {
		set[p] = string(p) + "_" + userID
	}
	return set
}

// parseAddresses decodes the ?addresses= JSON object; token symbols are accepted as platform keys
func parseAddresses(raw, userID string) (entities.AddressSet, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultAddresses(userID), nil
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, apperrors.WrapValidation(err, "addresses must be a JSON object of platform to address")
	}
	set := make(entities.AddressSet, len(decoded))
	for key, addr := range decoded {
		key = strings.ToLower(strings.TrimSpace(key))
		if p, ok := platformAliases[key]; ok {
			set[p] = addr
			continue
		}
		set[entities.Platform(key)] = addr
	}
	return set, nil
}

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// formatINR renders a rupee amount with Indian digit grouping
func formatINR(amount decimal.Decimal) string {
	return inrPrinter.Sprintf("₹%d", amount.Round(0).IntPart())
}
