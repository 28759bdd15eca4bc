package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	usr := user.User{ID: "42", Username: "amani"}
	logger.Error("boom", errors.New("db down"), usr, map[string]interface{}{"path": "/users"})

	assert.Equal(t, "[ERROR] boom\ndb down\nuser: 42 (amani)\nmap[path:/users]\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), core.NewTestConfig())
	err := errors.New("oops")

	got := logger.prepare("msg", []interface{}{err, user.User{ID: "1"}, &user.User{ID: "2"}})
	assert.Equal(t, []interface{}{"msg", err}, got)
}
