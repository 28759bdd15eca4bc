package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	tokenSalt = []byte("maoni.core.user.TokenGenerator")
	b32       = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// TokenGenerator makes & checks password reset tokens.
// A token is only valid once: setting a new password or logging in invalidates it.
type TokenGenerator struct {
	secret  []byte
	timeout time.Duration
	nowFunc func() time.Time
}

func NewTokenGenerator(secret string, timeout time.Duration) *TokenGenerator {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), secret...))
	return &TokenGenerator{
		secret:  key[:],
		timeout: timeout,
		nowFunc: time.Now,
	}
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for usr.
func (gen *TokenGenerator) MakeToken(usr User) (string, error) {
	return gen.MakeTokenAt(usr, gen.nowFunc())
}

// MakeTokenAt generates a password reset token for usr as if it was made at t.
func (gen *TokenGenerator) MakeTokenAt(usr User, t time.Time) (string, error) {
	return gen.makeTokenWithTimestamp(usr, numDaysSince2001(t))
}

// CheckToken checks that token is a valid password reset token for usr.
func (gen *TokenGenerator) CheckToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	expected, err := gen.makeTokenWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 0 {
		return errInvalidToken
	}

	if (numDaysSince2001(gen.nowFunc()) - ts) > int(gen.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (gen *TokenGenerator) makeTokenWithTimestamp(usr User, ts int) (string, error) {
	h := hmac.New(sha256.New, gen.secret)
	if _, err := h.Write(hashValue(usr, ts)); err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return b32.EncodeToString([]byte(strconv.Itoa(ts))) + "-" + sig, nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(strconv.FormatInt(usr.LastLogin.UTC().Unix(), 10))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
