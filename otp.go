package authcore

import (
	"context"
	"fmt"
)

// The only contact field the core knows how to attach to a user today.
// OTP providers declaring any other target are rejected at verify time.
const otpTargetPhone = "phone"

// OTPVerifier delegates code delivery and verification to the functions a
// provider config supplies. It holds no state and does not inspect code
// formats; the provider implementation is trusted for that.
type OTPVerifier struct {
	Provider *OTPProviderConfig
}

// Send asks the provider to deliver a code to the contact in input.
func (v *OTPVerifier) Send(ctx context.Context, input map[string]string) (bool, error) {
	return v.Provider.Send(ctx, input)
}

// Verify checks code against the contact in input. A false result from the
// provider surfaces as an invalid-code failure.
func (v *OTPVerifier) Verify(ctx context.Context, input map[string]string, code string) error {
	ok, err := v.Provider.Verify(ctx, input, code)
	if err != nil {
		return WrapAuthError(KindValidation, ErrCodeInvalidCode,
			fmt.Sprintf("%s: code verification failed", v.Provider.ID), err)
	}
	if !ok {
		return NewAuthError(KindValidation, ErrCodeInvalidCode,
			fmt.Sprintf("%s: code rejected", v.Provider.ID))
	}
	return nil
}

// Contact validates the provider's declared target field and extracts the
// contact value from input.
func (v *OTPVerifier) Contact(input map[string]string) (string, error) {
	if v.Provider.TargetField != otpTargetPhone {
		return "", NewAuthError(KindValidation, ErrCodeUnsupportedTarget,
			fmt.Sprintf("%s: unsupported verification target %q", v.Provider.ID, v.Provider.TargetField))
	}
	contact := input[v.Provider.TargetField]
	if contact == "" {
		return "", NewAuthError(KindValidation, ErrCodeMissingContact,
			fmt.Sprintf("%s: input has no %q value", v.Provider.ID, v.Provider.TargetField))
	}
	return contact, nil
}
