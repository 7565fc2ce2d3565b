// cmd/adept-boot/main.go
//
// Adept bootstrap – operator CLI.
//
// Commands
// --------
//
//  1. get KEY          print one setting (dot path, case-insensitive).
//
//  2. keys             list every key with the layer that supplied it.
//
//  3. demo             emit one record per level through the default sinks.
//
//  4. notify           push a Bark notification using the [bark] section.
//
//  5. remember TEXT    store TEXT once in the content store.
//
// Every command runs the full bootstrap first, so an invalid configuration
// exits non-zero before anything else happens.  With --metrics-addr the
// Prometheus endpoint stays up after the command finishes, until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/AdeptTravel/adept-bootstrap/internal/bootstrap"
	"github.com/AdeptTravel/adept-bootstrap/internal/database"
	"github.com/AdeptTravel/adept-bootstrap/internal/notify"
	"github.com/AdeptTravel/adept-bootstrap/internal/server"
	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
	"github.com/AdeptTravel/adept-bootstrap/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	app := kingpin.New("adept-boot", "Inspect layered settings and exercise the log sinks.")
	root := app.Flag("root", "Directory holding the settings files.").Default(".").String()
	files := app.Flag("settings", "Settings file, repeatable, lowest precedence first.").Default(settings.DefaultSettingsFile).Strings()
	env := app.Flag("env", "Settings environment section.").Envar(settings.EnvSwitcher).String()
	prefix := app.Flag("env-prefix", "Import PREFIX_* environment variables (empty disables).").String()
	logDir := app.Flag("log-dir", "Override LOG_DIR.").String()
	metricsAddr := app.Flag("metrics-addr", "Serve /metrics on this address.").String()

	getCmd := app.Command("get", "Print one setting.")
	getKey := getCmd.Arg("key", "Dot-path key.").Required().String()
	getFrom := getCmd.Flag("from", "Resolve against another environment section.").String()

	keysCmd := app.Command("keys", "List keys and their origin layer.")
	demoCmd := app.Command("demo", "Emit one record per level.")

	notifyCmd := app.Command("notify", "Send a Bark notification.")
	nGroup := notifyCmd.Flag("group", "Bark group.").Default("adept").String()
	nTitle := notifyCmd.Flag("title", "Title.").Required().String()
	nBody := notifyCmd.Flag("body", "Body.").Required().String()
	nURL := notifyCmd.Flag("url", "URL opened on tap.").String()

	rememberCmd := app.Command("remember", "Store text once in the content store.")
	rememberText := rememberCmd.Arg("text", "Content.").Required().String()

	cmd := kingpin.MustParse(app.Parse(args))

	ctx := context.Background()
	boot, err := bootstrap.Init(ctx, bootstrap.Options{
		Settings: settings.Options{
			Root:         *root,
			Files:        *files,
			Environments: true,
			Environment:  *env,
			EnvPrefix:    *prefix,
			LoadDotenv:   true,
		},
		LogDir: *logDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "adept-boot: %v\n", err)
		return 1
	}
	defer boot.Close()
	log := boot.Log

	if *metricsAddr != "" {
		srv := server.New(*metricsAddr, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", "addr", *metricsAddr, "err", err)
			}
		}()
		defer srv.Close()
	}

	code := 0
	switch cmd {
	case getCmd.FullCommand():
		reg := boot.Settings
		if *getFrom != "" {
			reg = reg.FromEnvironment(*getFrom)
		}
		v, ok := reg.Value(*getKey)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: not set\n", *getKey)
			code = 1
			break
		}
		out, _ := json.Marshal(v.Raw())
		fmt.Println(string(out))

	case keysCmd.FullCommand():
		for _, k := range boot.Settings.Keys() {
			fmt.Printf("%-40s %s\n", k, boot.Settings.Origin(k))
		}

	case demoCmd.FullCommand():
		log.Debug("configuration loaded", "environment", boot.Settings.Environment())
		log.Info("application initialised")
		log.Warning("system resources running low", "free_mb", 128)
		log.Error("failed to connect to database", "host", "db.internal")
		log.Critical("system shutdown initiated")

	case notifyCmd.FullCommand():
		b, err := notify.New(boot.Settings, *nGroup, log)
		if err != nil {
			log.Error("bark unavailable", "err", err)
			code = 1
			break
		}
		if !b.Send(ctx, notify.Message{Title: *nTitle, Body: *nBody, URL: *nURL, Archive: true}) {
			code = 1
		}

	case rememberCmd.FullCommand():
		code = remember(ctx, boot, *rememberText)
	}

	if *metricsAddr != "" {
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		log.Info("serving metrics until interrupted", "addr", *metricsAddr)
		<-sigCtx.Done()
		stop()
	}
	return code
}

func remember(ctx context.Context, boot *bootstrap.App, text string) int {
	db, err := database.FromSettings(boot.Settings)
	if err != nil {
		boot.Log.Error("content store unavailable", "err", err)
		return 1
	}
	s, err := store.New(ctx, db, boot.Log)
	if err != nil {
		_ = db.Close()
		boot.Log.Error("content store init failed", "err", err)
		return 1
	}
	defer s.Close()

	added, err := s.Insert(ctx, text)
	if err != nil {
		boot.Log.Error("remember failed", "err", err)
		return 1
	}
	boot.Log.Info("remember", "added", added)
	return 0
}
