package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// VerifyIssuer is the issuer name embedded in verification secrets.
	VerifyIssuer = "Quill"

	// VerifyCodePeriod is how long a verification code stays valid.
	VerifyCodePeriod = 10 * time.Minute

	// VerifyCodeDigits is the number of digits in a verification code.
	VerifyCodeDigits = otp.DigitsSix
)

// ErrInvalidVerifyCode is returned when a verification code does not match.
var ErrInvalidVerifyCode = errors.New("invalid verification code")

// Verifier issues and checks time-boxed email verification codes. Each user
// gets a private TOTP secret; codes are six digits over a ten-minute period,
// suitable for delivery by email.
type Verifier struct {
	db    *sql.DB
	users *UserStore
}

// NewVerifier creates a new Verifier.
func NewVerifier(db *sql.DB, users *UserStore) *Verifier {
	return &Verifier{db: db, users: users}
}

func verifyOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(VerifyCodePeriod.Seconds()),
		Skew:      1,
		Digits:    VerifyCodeDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// secretFor returns the user's verification secret, generating and storing
// one on first use.
func (v *Verifier) secretFor(user *User) (string, error) {
	var secret string
	err := v.db.QueryRow(`SELECT verify_secret FROM users WHERE id = ?`, user.ID).Scan(&secret)
	if err == sql.ErrNoRows {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading verify secret: %w", err)
	}
	if secret != "" {
		return secret, nil
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      VerifyIssuer,
		AccountName: user.Email,
		SecretSize:  32,
		Digits:      VerifyCodeDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generating verify secret: %w", err)
	}
	secret = key.Secret()

	if _, err := v.db.Exec(`UPDATE users SET verify_secret = ? WHERE id = ?`, secret, user.ID); err != nil {
		return "", fmt.Errorf("storing verify secret: %w", err)
	}
	return secret, nil
}

// IssueCode returns a fresh verification code for the user. Delivery (email)
// is the caller's concern.
func (v *Verifier) IssueCode(user *User) (string, error) {
	secret, err := v.secretFor(user)
	if err != nil {
		return "", err
	}

	code, err := totp.GenerateCodeCustom(secret, time.Now(), verifyOpts())
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return code, nil
}

// ConfirmCode checks a submitted code and, when it matches, marks the
// user's email as verified.
func (v *Verifier) ConfirmCode(user *User, code string) error {
	secret, err := v.secretFor(user)
	if err != nil {
		return err
	}

	ok, err := totp.ValidateCustom(code, secret, time.Now(), verifyOpts())
	if err != nil {
		return fmt.Errorf("validating verification code: %w", err)
	}
	if !ok {
		return ErrInvalidVerifyCode
	}

	return v.users.MarkEmailVerified(user.ID)
}
