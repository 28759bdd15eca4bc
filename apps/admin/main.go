package main

import (
	"log"
	"os"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/user"
	emailsvc "github.com/trezcool/maoni/services/email"
	logsvc "github.com/trezcool/maoni/services/logger"
	"github.com/trezcool/maoni/storage/database"
	inmemdb "github.com/trezcool/maoni/storage/database/inmem"
	pgrepos "github.com/trezcool/maoni/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Close()

	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	cli := commandLine{conf: conf, out: os.Stdout}
	if conf.Debug {
		cli.mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		cli.mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// set up DB
	switch conf.Database.Engine {
	case core.EnginePostgres:
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		defer func() { _ = db.Close() }()

		cli.db = db
		cli.usrRepo = pgrepos.NewUserRepository(db)
		cli.subjRepo = pgrepos.NewSubjectRepository(db)
		cli.fbRepo = pgrepos.NewFeedbackRepository(db)
	default:
		logger.Warn("using the in-memory database: changes will be lost on exit")
		db, err := inmemdb.Open()
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		cli.usrRepo = inmemdb.NewUserRepository(db)
		cli.subjRepo = inmemdb.NewSubjectRepository(db)
		cli.fbRepo = inmemdb.NewFeedbackRepository(db)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
