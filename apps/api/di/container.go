package di

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/maoni/apps/api/echo"
	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
	emailsvc "github.com/trezcool/maoni/services/email"
	logsvc "github.com/trezcool/maoni/services/logger"
	"github.com/trezcool/maoni/storage/database"
	inmemdb "github.com/trezcool/maoni/storage/database/inmem"
	pgrepos "github.com/trezcool/maoni/storage/database/postgres"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured database engine.
type Storage struct {
	dig.Out
	Users    user.Repository
	Subjects subject.Repository
	Feedback feedback.Repository
	Reports  report.Repository
	Closer   DBCloser
}

// DBCloser releases the database connections.
type DBCloser func() error

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		loggerParam.Logger.Warn("using the in-memory database: data will be lost on shutdown")
		db, err := inmemdb.Open()
		if err != nil {
			return Storage{}, errors.Wrap(err, "opening in-memory database")
		}
		return Storage{
			Users:    inmemdb.NewUserRepository(db),
			Subjects: inmemdb.NewSubjectRepository(db),
			Feedback: inmemdb.NewFeedbackRepository(db),
			Reports:  inmemdb.NewReportRepository(db),
			Closer:   func() error { return nil },
		}, nil

	case core.EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Storage{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return Storage{}, err
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return Storage{}, err
		}
		return Storage{
			Users:    pgrepos.NewUserRepository(db),
			Subjects: pgrepos.NewSubjectRepository(db),
			Feedback: pgrepos.NewFeedbackRepository(db),
			Reports:  pgrepos.NewReportRepository(db),
			Closer:   db.Close,
		}, nil
	}
	return Storage{}, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	usrSvc user.Service,
	subjSvc subject.Service,
	fbSvc feedback.Service,
	repSvc report.Service,
) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address:     conf.Server.Host,
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     usrSvc,
		SubjectSvc:  subjSvc,
		FeedbackSvc: fbSvc,
		ReportSvc:   repSvc,
		Registry:    prometheus.DefaultRegisterer,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(feedback.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
