// Command yggauth logs in to, or re-validates a session against, a Yggdrasil
// authentication server and prints the result as JSON.
//
//	yggauth login  --username alice --password secret
//	yggauth reauth --token <accessToken>
//	yggauth probe  --username alice --password secret --count 50 --rate 5
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	yggAuth "github.com/nsiso/yggAuth"
	"github.com/nsiso/yggAuth/yggdrasil"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: yggauth <command> [flags]

commands:
  login   exchange username/password for a session
  reauth  validate an access token, refreshing it when rejected
  probe   run paced logins and report the outcome distribution

run "yggauth <command> --help" for command flags`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, os.Args[2:], os.Stdout)
	case "reauth":
		err = runReauth(ctx, os.Args[2:], os.Stdout)
	case "probe":
		err = runProbe(ctx, os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "yggauth: %v\n", err)
		os.Exit(1)
	}
}

// app is what every subcommand needs: a built engine and its logger.
type app struct {
	cfg    cliConfig
	logger *zap.Logger
	client *yggdrasil.Client
	engine *yggAuth.Engine
}

func newApp(fs *pflag.FlagSet) (*app, error) {
	cfg, err := loadConfig(fs)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return nil, errors.Wrap(err, "init logger")
	}

	client, err := yggdrasil.New(
		yggdrasil.WithBaseURL(cfg.Server),
		yggdrasil.WithClientToken(cfg.ClientToken),
		yggdrasil.WithUserAgent("yggauth-cli"),
		yggdrasil.WithLogger(logger),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	engine, err := yggAuth.New().
		WithConfig(cfg.Auth).
		WithRemoteClient(client).
		WithLogger(logger).
		WithAuditSink(yggAuth.NewJSONWriterSink(os.Stderr)).
		Build()
	if err != nil {
		_ = logger.Sync()
		return nil, errors.Wrap(err, "build engine")
	}

	return &app{cfg: cfg, logger: logger, client: client, engine: engine}, nil
}

func (r *app) Close() {
	r.engine.Close()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func runLogin(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	commonFlags(fs)
	username := fs.StringP("username", "u", "", "account username or email")
	password := fs.StringP("password", "p", "", "account password (or YGGAUTH_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds, err := credentials(*username, *password)
	if err != nil {
		return err
	}

	rt, err := newApp(fs)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx = yggAuth.WithAttemptID(ctx, uuid.NewString())
	res := rt.engine.NewCredentialAuthenticator(creds).Authenticate(ctx)
	return printResult(out, rt.client.ClientToken(), res)
}

func runReauth(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("reauth", pflag.ContinueOnError)
	commonFlags(fs)
	token := fs.StringP("token", "t", "", "access token to keep alive (or YGGAUTH_TOKEN)")
	profileID := fs.String("profile-id", "", "selected profile id, dashed or undashed")
	profileName := fs.String("profile-name", "", "selected profile name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := session(*token, *profileID, *profileName)
	if err != nil {
		return err
	}

	rt, err := newApp(fs)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.ClientToken == "" {
		rt.logger.Warn("no --client-token given; servers reject tokens issued to another client token")
	}

	res := rt.engine.NewTokenAuthenticator(sess).Authenticate(ctx)
	return printResult(out, rt.client.ClientToken(), res)
}

func credentials(username, password string) (yggAuth.Credentials, error) {
	if password == "" {
		password = os.Getenv(envPrefix + "_PASSWORD")
	}
	if username == "" || password == "" {
		return yggAuth.Credentials{}, errors.New("--username and --password are required")
	}
	return yggAuth.Credentials{Username: username, Password: password}, nil
}

func session(token, profileID, profileName string) (yggAuth.Session, error) {
	if token == "" {
		token = os.Getenv(envPrefix + "_TOKEN")
	}
	if token == "" {
		return yggAuth.Session{}, errors.New("--token is required")
	}

	sess := yggAuth.Session{AccessToken: token}
	if profileID != "" {
		id, err := uuid.Parse(profileID)
		if err != nil {
			return yggAuth.Session{}, errors.Wrapf(err, "invalid --profile-id %q", profileID)
		}
		sess.SelectedProfile = &yggAuth.Profile{ID: id, Name: profileName}
	}
	return sess, nil
}

type resultOutput struct {
	yggAuth.AuthenticateResult
	ClientToken string `json:"clientToken"`
}

func printResult(out io.Writer, clientToken string, res yggAuth.AuthenticateResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resultOutput{AuthenticateResult: res, ClientToken: clientToken})
}
