// Package errors provides structured error handling with stable machine codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthInvalidCredentials   Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthTokenInvalid         Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired         Code = "AUTH_TOKEN_EXPIRED"
	CodeAuthEmailTaken           Code = "AUTH_EMAIL_TAKEN"
	CodeAuthVerificationRequired Code = "AUTH_VERIFICATION_REQUIRED"
	CodeAuthCodeInvalid          Code = "AUTH_VERIFICATION_CODE_INVALID"
	CodeAuthCodeExpired          Code = "AUTH_VERIFICATION_CODE_EXPIRED"

	// User errors
	CodeUserNotFound   Code = "USER_NOT_FOUND"
	CodeUserEmptyEmail Code = "USER_EMPTY_EMAIL"

	// Pet errors
	CodePetNotFound      Code = "PET_NOT_FOUND"
	CodePetEmptyName     Code = "PET_EMPTY_NAME"
	CodePetInvalidStatus Code = "PET_INVALID_STATUS"
	CodePetNotOwner      Code = "PET_NOT_OWNER"

	// Photo errors
	CodePhotoNotFound      Code = "PHOTO_NOT_FOUND"
	CodePhotoInvalidImage  Code = "PHOTO_INVALID_IMAGE"
	CodePhotoUploadFailed  Code = "PHOTO_UPLOAD_FAILED"
	CodePhotoTooLarge      Code = "PHOTO_TOO_LARGE"
	CodePhotoEmptyContents Code = "PHOTO_EMPTY_CONTENTS"

	// Match errors
	CodeMatchNotFound     Code = "MATCH_NOT_FOUND"
	CodeMatchScorerFailed Code = "MATCH_SCORER_FAILED"

	// Conversation errors
	CodeConversationNotFound       Code = "CONVERSATION_NOT_FOUND"
	CodeConversationNotParticipant Code = "CONVERSATION_NOT_PARTICIPANT"
	CodeConversationSelfChat       Code = "CONVERSATION_SELF_CHAT"

	// Message errors
	CodeMessageNotFound  Code = "MESSAGE_NOT_FOUND"
	CodeMessageEmptyBody Code = "MESSAGE_EMPTY_BODY"

	// Notification errors
	CodeNotificationNotFound Code = "NOTIFICATION_NOT_FOUND"

	// Validation / transport errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps the code to the HTTP status used by the JSON API surface.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthInvalidCredentials, CodeAuthTokenInvalid, CodeAuthTokenExpired:
		return http.StatusUnauthorized
	case CodeAuthVerificationRequired, CodePetNotOwner, CodeConversationNotParticipant:
		return http.StatusForbidden
	case CodeUserNotFound, CodePetNotFound, CodePhotoNotFound, CodeMatchNotFound,
		CodeConversationNotFound, CodeMessageNotFound, CodeNotificationNotFound:
		return http.StatusNotFound
	case CodeAuthEmailTaken:
		return http.StatusConflict
	case CodePhotoTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeAuthCodeInvalid, CodeAuthCodeExpired, CodeUserEmptyEmail,
		CodePetEmptyName, CodePetInvalidStatus, CodePhotoInvalidImage,
		CodePhotoEmptyContents, CodeConversationSelfChat, CodeMessageEmptyBody,
		CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
