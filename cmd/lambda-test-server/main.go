// lambda-test-server hosts the in-memory runtime API emulator on a real
// port, so an out-of-process bootstrap (any language) can poll it while a
// driver triggers invocations over POST /invoke.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/lambtest/lambda-test-server/internal/aws/lambda"
	"github.com/lambtest/lambda-test-server/internal/emulator"
	"github.com/lambtest/lambda-test-server/internal/httpapi"
	"github.com/lambtest/lambda-test-server/internal/notify"
)

type options struct {
	Port           string `long:"port" env:"LAMBDA_TEST_SERVER_PORT" default:"9001" description:"TCP port to serve the runtime API on"`
	LogLevel       string `long:"log-level" env:"LAMBDA_TEST_SERVER_LOG_LEVEL" default:"info" description:"log level (trace..panic)"`
	StatusEndpoint string `long:"status-endpoint" env:"LAMBDA_TEST_SERVER_STATUS_ENDPOINT" description:"optional upstream receiving ready/error status callbacks"`
	RuntimeID      string `long:"runtime-id" env:"LAMBDA_TEST_SERVER_RUNTIME_ID" description:"identifier used in status callbacks; generated when empty"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatalln("Invalid value for --log-level:", opts.LogLevel)
	}
	log.SetLevel(level)

	fnCfg := lambda.ConfigFromEnv()
	srv := emulator.New(emulator.Config{
		FunctionName:    fnCfg.FunctionName,
		FunctionVersion: fnCfg.FunctionVersion,
		FunctionArn:     fnCfg.Arn(),
		FunctionTimeout: fnCfg.Timeout,
		MemorySizeMB:    fnCfg.MemorySizeMB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var statusClient *notify.Client
	if opts.StatusEndpoint != "" {
		runtimeID := opts.RuntimeID
		if runtimeID == "" {
			runtimeID = uuid.NewString()
		}
		statusClient = notify.NewClient(opts.StatusEndpoint, runtimeID)
	}

	// Init resolves once the external bootstrap performs its first poll.
	go func() {
		res, err := srv.Start(ctx)
		switch {
		case err != nil:
			log.WithError(err).Error("Runtime failed to start.")
			sendStatus(statusClient, notify.StatusError, nil)
		case res.Status == emulator.InitCompleted:
			log.Info("Runtime initialized.")
			sendStatus(statusClient, notify.StatusReady, nil)
		default:
			log.WithField("status", string(res.Status)).Warn("Runtime did not reach running state.")
			sendStatus(statusClient, notify.StatusError, res.Error)
		}
	}()

	log.WithField("port", opts.Port).Info("Serving runtime API.")
	serveErr := httpapi.Serve(ctx, ":"+opts.Port, httpapi.NewRouter(srv))

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Close(closeCtx); err != nil {
		log.WithError(err).Warn("Failed to close emulator.")
	}
	if serveErr != nil {
		log.Fatalln("Serve failed:", serveErr)
	}
}

func sendStatus(client *notify.Client, status notify.Status, errResp *emulator.ErrorResponse) {
	if client == nil {
		return
	}
	var payload []byte
	if errResp != nil {
		// Best effort; the callback body is informational.
		if body, err := json.Marshal(errResp); err == nil {
			payload = body
		}
	}
	if err := client.SendStatus(status, payload); err != nil {
		log.WithError(err).Warn("Failed to send status callback.")
	}
}
