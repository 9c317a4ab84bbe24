package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PaymentErrorValidation = "PAYMENT_VALIDATION_FAILED"
	PaymentErrorAuth       = "PAYMENT_AUTH_FAILED"
	PaymentErrorProvider   = "PAYMENT_PROVIDER_FAILED"
	PaymentErrorSignature  = "PAYMENT_SIGNATURE_INVALID"
	PaymentErrorNotFound   = "PAYMENT_NOT_FOUND"
	PaymentErrorInternal   = "PAYMENT_INTERNAL_ERROR"
)

type ErrorMapper func(err error) *goerrors.Error

// ValidationError marks a missing or malformed creation field.
func ValidationError(message string, metadata map[string]any) error {
	return paymentError(message, goerrors.CategoryValidation, http.StatusBadRequest, PaymentErrorValidation, metadata)
}

// AuthError marks a failed credential exchange or rejected token.
func AuthError(message string, source error, metadata map[string]any) error {
	return paymentWrapError(source, goerrors.CategoryAuth, message, http.StatusUnauthorized, PaymentErrorAuth, metadata)
}

// ProviderError marks a non-2xx provider response and carries the raw
// provider body in the error metadata.
func ProviderError(message string, statusCode int, body []byte, metadata map[string]any) error {
	merged := CloneMetadata(metadata)
	merged["provider_status"] = statusCode
	if len(body) > 0 {
		merged["provider_body"] = string(body)
	}
	return paymentError(message, goerrors.CategoryExternal, http.StatusBadGateway, PaymentErrorProvider, merged)
}

// SignatureError marks a webhook HMAC mismatch; the delivery must be
// rejected before any provider call.
func SignatureError(message string, metadata map[string]any) error {
	return paymentError(message, goerrors.CategoryAuth, http.StatusUnauthorized, PaymentErrorSignature, metadata)
}

func InternalError(message string, metadata map[string]any) error {
	return paymentError(message, goerrors.CategoryInternal, http.StatusInternalServerError, PaymentErrorInternal, metadata)
}

func WrapProviderCall(source error, message string, metadata map[string]any) error {
	return paymentWrapError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, PaymentErrorProvider, metadata)
}

func paymentError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func paymentWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return paymentError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func paymentErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePaymentErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return ensurePaymentErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryAuth).WithTextCode(PaymentErrorSignature),
		)
	case strings.Contains(msg, "token"), strings.Contains(msg, "credential"):
		return ensurePaymentErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryAuth).WithTextCode(PaymentErrorAuth),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensurePaymentErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryValidation).WithTextCode(PaymentErrorValidation),
		)
	case strings.Contains(msg, "not found"):
		return ensurePaymentErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryNotFound).WithTextCode(PaymentErrorNotFound),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensurePaymentErrorEnvelope(mapped)
}

func ensurePaymentErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = paymentHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPaymentTextCode(err.Category)
	}
	return err
}

func defaultPaymentTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return PaymentErrorValidation
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return PaymentErrorAuth
	case goerrors.CategoryExternal:
		return PaymentErrorProvider
	case goerrors.CategoryNotFound:
		return PaymentErrorNotFound
	default:
		return PaymentErrorInternal
	}
}

func paymentHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
