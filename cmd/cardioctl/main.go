package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/apperr"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/assessment"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/auth"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/config"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/history"
	httpClient "github.com/andrapiyadisha/cardio-risk-ml-system/pkg/http"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/logging"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/models"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/views"
)

type app struct {
	store    *session.PersistentStore
	auth     *auth.Service
	pipeline *assessment.Pipeline
	history  *history.Aggregator
}

func main() {
	cmd := flag.String("cmd", "whoami", "Command: login|register|logout|whoami|predict|history|dashboard|metrics")
	serverFlag := flag.String("server", "", "Override API base URL (e.g. http://localhost:5000/api)")
	email := flag.String("email", "", "Account email (login/register)")
	password := flag.String("password", "", "Account password (login/register)")
	confirm := flag.String("confirm", "", "Password confirmation (register)")
	name := flag.String("name", "", "Full name (register)")

	fields := make(map[string]*string, len(assessment.FormFields))
	for _, f := range assessment.FormFields {
		fields[f] = flag.String(f, "", "Assessment field "+f+" (predict)")
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.APIBaseURL = strings.TrimRight(*serverFlag, "/")
	}
	logging.Setup(cfg.LogLevel, true)

	kv, err := session.OpenKV(cfg)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer session.CloseKV(kv)

	store := session.NewStore(kv)
	store.Hydrate()
	client := httpClient.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	a := &app{
		store:    store,
		auth:     auth.NewService(client, store),
		pipeline: assessment.NewPipeline(client, store),
		history:  history.NewAggregator(client, store),
	}

	ctx := context.Background()
	switch *cmd {
	case "login":
		err = a.login(ctx, *email, *password)
	case "register":
		err = a.register(ctx, models.RegisterRequest{
			FullName:        *name,
			Email:           *email,
			Password:        *password,
			ConfirmPassword: *confirm,
		})
	case "logout":
		err = a.auth.Logout()
		if err == nil {
			fmt.Println("Logged out")
		}
	case "whoami":
		a.whoami()
	case "predict":
		values := url.Values{}
		for f, v := range fields {
			if *v != "" {
				values.Set(f, *v)
			}
		}
		err = a.predict(ctx, values)
	case "history":
		err = a.showHistory(ctx)
	case "dashboard":
		err = a.dashboard(ctx)
	case "metrics":
		err = a.metrics(ctx)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Println("Error:", describe(err))
		os.Exit(1)
	}
}

func (a *app) login(ctx context.Context, email, password string) error {
	user, err := a.auth.Login(ctx, email, password)
	return reportAuth(user, err)
}

func (a *app) register(ctx context.Context, req models.RegisterRequest) error {
	user, err := a.auth.Register(ctx, req)
	return reportAuth(user, err)
}

func reportAuth(user *models.User, err error) error {
	var perr *apperr.PersistenceError
	if errors.As(err, &perr) && user != nil {
		fmt.Println("Warning: session could not be saved; it ends with this command.")
		err = nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) whoami() {
	user := a.store.CurrentUser()
	if user == nil {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("%s <%s> (id %d)\n", user.Name, user.Email, user.ID)
}

func (a *app) predict(ctx context.Context, values url.Values) error {
	in, err := assessment.FromForm(values)
	if err != nil {
		return err
	}
	result, err := a.pipeline.Submit(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(views.NewResultPage(result))
}

func (a *app) showHistory(ctx context.Context) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}
	return printJSON(views.NewHistoryPage(a.history.History(ctx, user.ID)))
}

func (a *app) dashboard(ctx context.Context) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}
	return printJSON(views.NewDashboard(user, a.history.Stats(ctx, user.ID)))
}

func (a *app) metrics(ctx context.Context) error {
	m, err := a.history.ModelMetrics(ctx)
	if err != nil {
		return err
	}
	return printJSON(m)
}

func (a *app) requireUser() (*models.User, error) {
	user := a.store.CurrentUser()
	if user == nil {
		return nil, errors.New("not logged in; run -cmd login first")
	}
	return user, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func describe(err error) string {
	var verr *apperr.ValidationError
	var remoteErr *apperr.RemoteServiceError
	var transportErr *apperr.TransportError
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, fmt.Sprintf("-%s %s", f.Field, f.Message))
		}
		return "invalid input: " + strings.Join(parts, ", ")
	case errors.As(err, &remoteErr):
		return remoteErr.UserMessage()
	case errors.As(err, &transportErr):
		log.Debug().Err(err).Msg("Transport failure")
		return "the prediction service is unreachable"
	}
	return err.Error()
}
