package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"estimator/internal/cache"
	"estimator/internal/cli"
	"estimator/internal/config"
	"estimator/internal/gateway"
	"estimator/internal/gateway/rest"
	"estimator/internal/log"
	"estimator/internal/services"
)

// errSignedOut is returned when the API rejects the saved credential.
var errSignedOut = errors.New("not signed in or session expired, run `estimator login`")

// app holds what every command shares. It is filled in before any command
// runs.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	client *rest.Client
	auth   *services.AuthService
	ws     *cache.Workspace
	money  cli.Money
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:          "estimator",
		Short:        "Project estimation CLI",
		Long:         "Browse projects, estimations and their totals from the estimator API.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at LOG_LEVEL instead of warnings only")

	root.AddCommand(
		newProjectsCmd(a),
		newEstimationsCmd(a),
		newDashboardCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newForgotPasswordCmd(a),
		newLogoutCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context, verbose bool) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	if !verbose {
		cfg.LogLevel = "warn"
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, log.ComponentCLI)

	session := gateway.NewSession()
	client, err := rest.New(cfg.APIBaseURL, session, rest.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}
	a.client = client
	a.auth = services.NewAuthService(client, session, services.FileCredentialStore{Path: cfg.CredentialsFile})
	if a.auth.Restore(ctx) {
		a.logger.DebugContext(ctx, "Restored saved credential", log.FieldUserID, session.User().ID)
	}
	a.ws = cache.NewWorkspace(client, cache.WithLogger(a.logger.WithComponent(log.ComponentCache)))
	a.money = cli.Money{Locale: cfg.Locale, Currency: cfg.Currency}
	return nil
}

// fail turns a gateway error into the message shown to the user. A rejected
// credential signs the user out.
func (a *app) fail(ctx context.Context, err error, fallback string) error {
	if a.auth.HandleUnauthorized(ctx, err) {
		return errSignedOut
	}
	return errors.New(gateway.Message(err, fallback))
}
