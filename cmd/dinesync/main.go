// Command dinesync is a terminal client for the hostel meal service.
// It runs one-shot commands against the API configured under the `api`
// section: browse and search meals, like and request them, manage the
// menu and the serve queue as an admin, and buy a membership.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/simp-lee/dinesync/internal/config"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/rest"
)

const usageText = `usage: dinesync [flags] <command> [args]

account:
  register          create an account (-name, -email, -password)
  login             sign in (-email, -password) and store the token
  logout            forget the stored token
  whoami            show the signed-in identity

meals:
  meals             list meals (-search, -sort, -order, -page,
                    -category, -min-price, -max-price)
  meal <id>         show one meal
  like <id>         like a meal (members)
  request <id>      request a meal for serving (members)
  add-meal          add a meal (admin; -title, -category, -price,
                    -distributor, -description, -ingredients, -image)
  delete-meal <id>  delete a meal (admin, confirms)

upcoming:
  upcoming          list announced meals
  announce          announce an upcoming meal (admin; same flags as add-meal)
  publish <id>      move an announcement onto the menu (admin)
  withdraw <id>     withdraw an announcement (admin, confirms)
  like-upcoming <id> like an announcement (members)

reviews:
  reviews           list reviews (-meal limits to one meal)
  review <mealID> <rating> <text>  write a review

serve queue:
  requests          list meal requests (-status pending|delivered)
  serve <id>        mark a request delivered (admin)
  cancel <id>       cancel a request (owner or admin, confirms)

admin:
  users             list accounts (-search)
  make-admin <id>   promote an account (confirms)

membership:
  packages          list membership packages
  checkout <package>  buy a membership (Silver, Gold or Platinum)
`

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	tokenFile := flag.String("token-file", defaultTokenFile(), "file holding the login token")

	listFlags := registerListFlags()
	formFlags := registerFormFlags(listFlags)
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	name := flag.String("name", "", "display name for register")
	assumeYes := flag.Bool("yes", false, "answer yes to confirmation prompts")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		fmt.Fprintln(os.Stderr, "\nflags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logg, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		log.Fatal("failed to set up logger: ", err)
	}
	defer logg.Close()

	opts := []rest.Option{
		rest.WithTimeout(cfg.APITimeout()),
		rest.WithClientLogger(logg.Logger),
	}
	if cfg.API.AdminEmailHeader != "" {
		opts = append(opts, rest.WithAdminHeader(cfg.API.AdminEmailHeader))
	}
	api, err := rest.New(cfg.API.BaseURL, opts...)
	if err != nil {
		log.Fatal("failed to create API client: ", err)
	}

	session := loadSession(*tokenFile)
	if session != nil {
		api.SetToken(session.Token)
	}

	app := &cli{
		api:       api,
		session:   session,
		cfg:       cfg,
		log:       logg.Logger,
		tokenFile: *tokenFile,
		stdin:     bufio.NewReader(os.Stdin),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		assumeYes: *assumeYes,
		list:      listFlags,
		form:      formFlags,
		email:     *email,
		password:  *password,
		name:      *name,
	}
	// One mutator for every command, so each call site gets the same
	// confirm/guard/rollback behavior.
	app.mutator = listsync.NewMutator(
		listsync.ConfirmerFunc(app.confirm),
		listsync.NotifierFunc(func(msg string) { fmt.Fprintln(os.Stderr, msg) }),
		listsync.WithMutatorLogger(logg.Logger),
	)

	if err := app.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		logg.Close()
		fmt.Fprintln(os.Stderr, "dinesync:", err)
		os.Exit(1)
	}
}

// defaultTokenFile places the stored token under the user's home
// directory; a missing home falls back to the working directory.
func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dinesync-token"
	}
	return filepath.Join(home, ".dinesync", "token")
}

// loadSession restores the session from the stored token. A missing or
// stale token means signed out; commands that need identity say so.
func loadSession(path string) *identity.Session {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	session, err := identity.FromToken(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil
	}
	return session
}
