package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_CheckToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	gen := NewTokenGenerator("secret", timeout)

	now := time.Now()
	usr := User{
		ID:        "0b5c5fd4-5c7a-4c9e-bd6c-9a2e2a3b1c11",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken, err := gen.MakeToken(usr)
	require.NoError(t, err)

	// generate an expired token
	expiredToken, err := gen.MakeTokenAt(usr, now.Add(-(timeout + 24*time.Hour)))
	require.NoError(t, err)

	// a token made with another secret
	forgedToken, err := NewTokenGenerator("lol", timeout).MakeToken(usr)
	require.NoError(t, err)

	// a new login invalidates the token
	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	// a new password invalidates the token
	newPwd := usr
	require.NoError(t, newPwd.SetPassword("new-pwd"))

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: forgedToken, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "new login", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "new password", usr: newPwd, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gen.CheckToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeUID(t *testing.T) {
	usr := User{ID: "0b5c5fd4-5c7a-4c9e-bd6c-9a2e2a3b1c11"}

	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("!!!")
	assert.Error(t, err)
}
