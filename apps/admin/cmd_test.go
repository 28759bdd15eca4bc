package main

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
	emailsvc "github.com/trezcool/maoni/services/email"
	logsvc "github.com/trezcool/maoni/services/logger"
	inmemdb "github.com/trezcool/maoni/storage/database/inmem"
	"github.com/trezcool/maoni/tests"
)

var (
	conf    = core.NewTestConfig()
	mailSvc = emailsvc.NewConsoleServiceMock(conf)
	out     bytes.Buffer
)

func setup(t *testing.T) *commandLine {
	db := testutil.OpenDB(t)
	out.Reset()
	mailSvc.Reset()

	return &commandLine{
		conf:     conf,
		db:       new(sqlx.DB),
		usrRepo:  inmemdb.NewUserRepository(db),
		subjRepo: inmemdb.NewSubjectRepository(db),
		fbRepo:   inmemdb.NewFeedbackRepository(db),
		mailSvc:  mailSvc,
		out:      &out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if pwd, ok := tt.extra.(string); ok {
				return []byte(pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
	}, nil)
	assert.Contains(t, out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_course", "sql"}},
	}
	runCLITests(t, cli, tests, nil)

	t.Run("no SQL database", func(t *testing.T) {
		cli.db = nil
		assert.Equal(t, errNoSQLDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	existing := testutil.CreateUser(t, cli.usrRepo, "Old Timer", "old", "old@test.ac", "", []string{user.RoleFaculty}, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss", "-email", "boss@test.ac"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-username", " Boss ", "-email", "BOSS@test.ac", "-admin"}, extra: "Sup3r$ecret"},
		{name: "update existing by email", args: []string{"adduser", "-username", "oldie", "-email", "old@test.ac", "-name", "Ignored"}, extra: "N3w$ecret"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		ctx := context.Background()
		switch tt.name {
		case "create admin":
			usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
			require.NoError(t, err)
			assert.Equal(t, "boss", usr.Name)
			assert.Equal(t, "boss@test.ac", usr.Email)
			assert.True(t, usr.IsActive)
			assert.Equal(t, []string{user.RoleAdmin}, usr.Roles)
			assert.NoError(t, usr.CheckPassword("Sup3r$ecret"))
		case "update existing by email":
			usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
			require.NoError(t, err)
			assert.Equal(t, "Old Timer", usr.Name)
			assert.Equal(t, "oldie", usr.Username)
			assert.True(t, usr.IsActive)
			assert.Equal(t, []string{user.RoleFaculty}, usr.Roles)
			assert.NoError(t, usr.CheckPassword("N3w$ecret"))
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: "lmao"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.NoError(t, refreshedUsr.CheckPassword(tt.extra.(string)))
	})
}

func Test_commandLine_checkLogin(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, cli.usrRepo, "Active", "active", "active@test.ac", "pwd", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, cli.usrRepo, "Inactive", "inactive", "inactive@test.ac", "pwd", nil, false)
	testutil.CreateUser(t, cli.usrRepo, "No Password", "nopwd", "nopwd@test.ac", "", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"checklogin"}, wantErr: errHelp},
		{name: "not found", args: []string{"checklogin", "-username", "lol"}, extra: "pwd", wantErr: user.ErrNotFound},
		{name: "no password set", args: []string{"checklogin", "-username", "nopwd"}, extra: "pwd", wantErrStr: `"nopwd" has no password set`},
		{name: "wrong password", args: []string{"checklogin", "-username", "active"}, extra: "lol", wantErr: errWrongPassword},
		{name: "deactivated", args: []string{"checklogin", "-username", "inactive@test.ac"}, extra: "pwd", wantErr: user.ErrAccountDeactivated},
		{name: "ok", args: []string{"checklogin", "-username", "ACTIVE"}, extra: "pwd"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		assert.Contains(t, out.String(), `ok: "active" can log in (roles: student:)`)
	})
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ { // idempotent
		require.NoError(t, cli.run([]string{"admin", "seed", "-password", "Seed$123"}))
	}
	assert.Contains(t, out.String(), "seeded 9 users, 4 subjects & 8 feedback (term 2025-fall)")
	assert.Contains(t, out.String(), "seeded 0 users, 0 subjects & 0 feedback (term 2025-fall)")

	users, err := cli.usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, len(seedUsers))
	assert.NoError(t, users[0].CheckPassword("Seed$123"))

	subjects, err := cli.subjRepo.QuerySubjects(ctx, &subject.QueryFilter{Department: "CSE"}, nil)
	require.NoError(t, err)
	assert.Len(t, subjects, 2)

	fbs, err := cli.fbRepo.QueryFeedback(ctx, &feedback.QueryFilter{Department: "EEE", Term: "2025-fall"}, nil)
	require.NoError(t, err)
	assert.Len(t, fbs, 4)
	for _, fb := range fbs {
		assert.NotEmpty(t, fb.FacultyID)
		assert.Equal(t, "EEE", fb.Department)
	}
}

func Test_commandLine_testEmail(t *testing.T) {
	cli := setup(t)
	core.ParseEmailTemplates(conf, logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf))

	tests := []cliTest{
		{name: "no args", args: []string{"testemail"}, wantErr: errHelp},
		{name: "sent", args: []string{"testemail", "-to", "Ops <ops@test.ac>"}},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		sent := mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "ops@test.ac", sent[0].To[0].Address)
		assert.Equal(t, "test", sent[0].TemplateName)
		assert.Contains(t, sent[0].TextContent, "the email configuration works")
		assert.Contains(t, out.String(), "test email sent to ops@test.ac")
	})

	t.Run("invalid email", func(t *testing.T) {
		err := cli.run([]string{"admin", "testemail", "-to", "lol"})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), `invalid email "lol"`)
		}
	})
}
