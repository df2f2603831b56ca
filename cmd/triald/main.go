package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	kcs "github.com/eutrials/triald/pkg/configs/server"
	tdb "github.com/eutrials/triald/pkg/db"
	tpg "github.com/eutrials/triald/pkg/db/postgres"
	tlite "github.com/eutrials/triald/pkg/db/sqlite"
	"github.com/eutrials/triald/pkg/metrics"
	"github.com/eutrials/triald/pkg/utils/echoutil"
	"github.com/eutrials/triald/pkg/utils/filewatch"

	"github.com/eutrials/triald/cmd/triald/handlers"
)

func main() {

	configPath := flag.String("config-path", "", "server config path. when omitted, config is read from TRIALD_PORT and TRIALD_DB_URI")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read config
	conf := kcs.FromEnv()
	if *configPath != "" {
		c, err := kcs.LoadServerConfig(*configPath)
		if err != nil {
			log.Fatalf("can not read configration: %s", err)
		}
		conf = c

		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *configPath)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer cancel()
		context.AfterFunc(ctx, func() {
			log.Println("config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by config update: %s", err)
			}
		})
	}
	if conf.DBURI == "" {
		log.Fatal("no database uri. set dbURI in the config file or TRIALD_DB_URI")
	}

	ctx := context.Background()
	db, err := getDBAccesor(ctx, conf.DBURI)
	if err != nil {
		log.Fatalf("can not open database: %s", err)
	}
	defer db.Close()

	rec := metrics.NewRecorder()
	e.Use(rec.Middleware)
	e.GET("/metrics/", rec.Handler())

	// handlers
	{
		trialId := "trialId"
		e.GET("/api/trials/", handlers.FindTrialsHandler(db.Trials()))
		e.POST("/api/trials/", handlers.CreateTrialHandler(db.Trials()))

		e.GET("/api/trials/:trialId/", handlers.GetTrialHandler(db.Trials(), trialId))
		e.PUT("/api/trials/:trialId/", handlers.ReplaceTrialHandler(db.Trials(), trialId))
		e.DELETE("/api/trials/:trialId/", handlers.DeleteTrialHandler(db.Trials(), trialId))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(":" + conf.Port))
}

// opens the store named by dburi.
//
// "sqlite:PATH" selects the embedded store; anything else is passed to
// the postgres driver as is.
func getDBAccesor(ctx context.Context, dburi string) (tdb.TrialDatabase, error) {
	if path, ok := strings.CutPrefix(dburi, "sqlite:"); ok {
		return tlite.New(ctx, path)
	}
	return tpg.New(ctx, dburi)
}
