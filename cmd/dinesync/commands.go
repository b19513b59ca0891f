package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/dinesync/internal/config"
	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/listsync"
	"github.com/simp-lee/dinesync/internal/module/account"
	"github.com/simp-lee/dinesync/internal/module/meal"
	"github.com/simp-lee/dinesync/internal/module/payment"
	"github.com/simp-lee/dinesync/internal/module/review"
	"github.com/simp-lee/dinesync/internal/module/serve"
	"github.com/simp-lee/dinesync/internal/module/upcoming"
	"github.com/simp-lee/dinesync/internal/module/users"
	"github.com/simp-lee/dinesync/internal/rest"
)

// cliDebounce replaces the interactive search debounce window. The CLI
// issues exactly one query per invocation, so there is no typing to wait
// out.
const cliDebounce = 10 * time.Millisecond

// listWait bounds how long a list command waits for its page.
const listWait = 30 * time.Second

type listFlags struct {
	search   string
	sort     string
	order    string
	page     int
	category string
	minPrice string
	maxPrice string
	status   string
	mealID   uint
}

func registerListFlags() *listFlags {
	f := &listFlags{}
	flag.StringVar(&f.search, "search", "", "search term")
	flag.StringVar(&f.sort, "sort", "", "sort key")
	flag.StringVar(&f.order, "order", listsync.OrderDescending, "sort order: asc or desc")
	flag.IntVar(&f.page, "page", 1, "page number")
	flag.StringVar(&f.category, "category", "", "meal category (filters lists; form field for add-meal/announce)")
	flag.StringVar(&f.minPrice, "min-price", "", "minimum price filter")
	flag.StringVar(&f.maxPrice, "max-price", "", "maximum price filter")
	flag.StringVar(&f.status, "status", "", "request status filter: pending or delivered")
	flag.UintVar(&f.mealID, "meal", 0, "restrict reviews to one meal id")
	return f
}

type formFlags struct {
	title       string
	category    *string
	price       float64
	distributor string
	description string
	ingredients string
	image       string
}

// registerFormFlags registers the add-meal/announce form fields. The
// category flag is shared with the list filter, so the form aliases it
// rather than registering -category twice.
func registerFormFlags(list *listFlags) *formFlags {
	f := &formFlags{category: &list.category}
	flag.StringVar(&f.title, "title", "", "meal title")
	flag.Float64Var(&f.price, "price", 0, "meal price")
	flag.StringVar(&f.distributor, "distributor", "", "meal distributor")
	flag.StringVar(&f.description, "description", "", "meal description")
	flag.StringVar(&f.ingredients, "ingredients", "", "meal ingredients")
	flag.StringVar(&f.image, "image", "", "meal image URL")
	return f
}

// cli holds everything a command needs: the API client, the restored
// session, config, logger, the shared mutator and the parsed flags.
type cli struct {
	api       *rest.Client
	session   *identity.Session
	cfg       *config.Config
	log       *slog.Logger
	mutator   *listsync.Mutator
	tokenFile string
	stdin     *bufio.Reader
	stdout    io.Writer
	stderr    io.Writer
	assumeYes bool
	list      *listFlags
	form      *formFlags
	email     string
	password  string
	name      string
}

func (c *cli) run(cmd string, args []string) error {
	ctx := context.Background()

	switch cmd {
	case "register":
		return c.register(ctx)
	case "login":
		return c.login(ctx)
	case "logout":
		return c.logout()
	case "whoami":
		return c.whoami()

	case "meals":
		return c.meals(ctx)
	case "meal":
		return c.showMeal(ctx, args)
	case "like":
		return c.likeMeal(ctx, args)
	case "request":
		return c.requestMeal(ctx, args)
	case "add-meal":
		return c.addMeal(ctx)
	case "delete-meal":
		return c.deleteMeal(ctx, args)

	case "upcoming":
		return c.upcoming(ctx)
	case "announce":
		return c.announce(ctx)
	case "publish":
		return c.publish(ctx, args)
	case "withdraw":
		return c.withdraw(ctx, args)
	case "like-upcoming":
		return c.likeUpcoming(ctx, args)

	case "reviews":
		return c.reviews(ctx)
	case "review":
		return c.writeReview(ctx, args)

	case "requests":
		return c.requests(ctx)
	case "serve":
		return c.serveRequest(ctx, args)
	case "cancel":
		return c.cancelRequest(ctx, args)

	case "users":
		return c.users(ctx)
	case "make-admin":
		return c.makeAdmin(ctx, args)

	case "packages":
		return c.packages(ctx)
	case "checkout":
		return c.checkout(ctx, args)

	default:
		return fmt.Errorf("unknown command %q (run with no arguments for usage)", cmd)
	}
}

// ---- account ----

func (c *cli) register(ctx context.Context) error {
	svc := account.NewService(c.api, c.log)
	session, err := svc.Register(ctx, account.RegisterRequest{
		Name:     c.name,
		Email:    c.email,
		Password: c.password,
	})
	if err != nil {
		return err
	}
	if err := c.saveToken(session.Token); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "registered and signed in as %s (%s)\n", session.Email, session.Badge())
	return nil
}

func (c *cli) login(ctx context.Context) error {
	svc := account.NewService(c.api, c.log)
	session, err := svc.Login(ctx, account.LoginRequest{
		Email:    c.email,
		Password: c.password,
	})
	if err != nil {
		return err
	}
	if err := c.saveToken(session.Token); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s (%s, %s)\n", session.Email, session.Role, session.Badge())
	return nil
}

func (c *cli) logout() error {
	account.NewService(c.api, c.log).Logout()
	if err := os.Remove(c.tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

func (c *cli) whoami() error {
	if c.session == nil {
		fmt.Fprintln(c.stdout, "signed out")
		return nil
	}
	fmt.Fprintf(c.stdout, "%s <%s>\trole=%s\tbadge=%s\n",
		c.session.Name, c.session.Email, c.session.Role, c.session.Badge())
	return nil
}

func (c *cli) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(c.tokenFile, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// ---- meals ----

func (c *cli) meals(ctx context.Context) error {
	svc := meal.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.Meal](c.log)...)
	snap, err := fetchPage(ctrl, func() error {
		if c.list.category != "" {
			if err := ctrl.Filter("category", c.list.category); err != nil {
				return err
			}
		}
		if c.list.minPrice != "" {
			if err := ctrl.Filter("minPrice", c.list.minPrice); err != nil {
				return err
			}
		}
		if c.list.maxPrice != "" {
			if err := ctrl.Filter("maxPrice", c.list.maxPrice); err != nil {
				return err
			}
		}
		return applyCommonQuery(ctrl, c.list)
	})
	if err != nil {
		return err
	}
	printMeals(c.stdout, snap)
	return nil
}

func (c *cli) showMeal(ctx context.Context, args []string) error {
	id, err := idArg(args, "meal")
	if err != nil {
		return err
	}
	svc := meal.NewService(c.api, c.session, c.log)
	m, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	printMealDetail(c.stdout, m)
	return nil
}

func (c *cli) likeMeal(ctx context.Context, args []string) error {
	id, err := idArg(args, "meal")
	if err != nil {
		return err
	}
	svc := meal.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.Meal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "meal", id, func(it domain.Meal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.LikeMutation(ctrl, m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "liked")
	return nil
}

func (c *cli) requestMeal(ctx context.Context, args []string) error {
	id, err := idArg(args, "meal")
	if err != nil {
		return err
	}
	svc := meal.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.Meal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "meal", id, func(it domain.Meal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.RequestMutation(m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "requested")
	return nil
}

func (c *cli) addMeal(ctx context.Context) error {
	svc := meal.NewService(c.api, c.session, c.log)
	err := svc.Add(ctx, meal.AddMealRequest{
		Title:       c.form.title,
		Category:    *c.form.category,
		Price:       c.form.price,
		Distributor: c.form.distributor,
		Description: c.form.description,
		Ingredients: c.form.ingredients,
		Image:       c.form.image,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "meal added")
	return nil
}

func (c *cli) deleteMeal(ctx context.Context, args []string) error {
	id, err := idArg(args, "meal")
	if err != nil {
		return err
	}
	svc := meal.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.Meal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "meal", id, func(it domain.Meal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.DeleteMutation(ctrl, m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "meal deleted")
	return nil
}

// ---- upcoming ----

func (c *cli) upcoming(ctx context.Context) error {
	svc := upcoming.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.UpcomingMeal](c.log)...)
	snap, err := fetchPage(ctrl, func() error {
		return applyCommonQuery(ctrl, c.list)
	})
	if err != nil {
		return err
	}
	printUpcoming(c.stdout, snap)
	return nil
}

func (c *cli) announce(ctx context.Context) error {
	svc := upcoming.NewService(c.api, c.session, c.log)
	err := svc.Announce(ctx, upcoming.AnnounceRequest{
		Title:       c.form.title,
		Category:    *c.form.category,
		Price:       c.form.price,
		Distributor: c.form.distributor,
		Description: c.form.description,
		Ingredients: c.form.ingredients,
		Image:       c.form.image,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "announced")
	return nil
}

func (c *cli) publish(ctx context.Context, args []string) error {
	id, err := idArg(args, "announcement")
	if err != nil {
		return err
	}
	svc := upcoming.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.UpcomingMeal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "announcement", id, func(it domain.UpcomingMeal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.PublishMutation(ctrl, m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "published")
	return nil
}

func (c *cli) withdraw(ctx context.Context, args []string) error {
	id, err := idArg(args, "announcement")
	if err != nil {
		return err
	}
	svc := upcoming.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.UpcomingMeal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "announcement", id, func(it domain.UpcomingMeal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.RemoveMutation(ctrl, m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "withdrawn")
	return nil
}

func (c *cli) likeUpcoming(ctx context.Context, args []string) error {
	id, err := idArg(args, "announcement")
	if err != nil {
		return err
	}
	svc := upcoming.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.UpcomingMeal](c.log)...)
	defer ctrl.Close()

	m, err := findRow(ctrl, "announcement", id, func(it domain.UpcomingMeal) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.LikeMutation(ctrl, m)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "liked")
	return nil
}

// ---- reviews ----

func (c *cli) reviews(ctx context.Context) error {
	svc := review.NewService(c.api, c.session, c.log)
	opts := ctrlOpts[domain.Review](c.log)
	var ctrl *listsync.Controller[domain.Review]
	if c.list.mealID != 0 {
		ctrl = svc.NewMealController(c.list.mealID, opts...)
	} else {
		ctrl = svc.NewController(opts...)
	}
	snap, err := fetchPage(ctrl, func() error {
		return applyCommonQuery(ctrl, c.list)
	})
	if err != nil {
		return err
	}
	printReviews(c.stdout, snap)
	return nil
}

func (c *cli) writeReview(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: review <mealID> <rating 1-5> <text>")
	}
	mealID, err := idArg(args, "meal")
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}

	svc := review.NewService(c.api, c.session, c.log)
	err = svc.Write(ctx, review.ReviewForm{
		MealID: mealID,
		Rating: rating,
		Text:   strings.Join(args[2:], " "),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "review posted")
	return nil
}

// ---- serve queue ----

func (c *cli) requests(ctx context.Context) error {
	svc := serve.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.MealRequest](c.log)...)
	snap, err := fetchPage(ctrl, func() error {
		if c.list.status != "" {
			if err := ctrl.Filter("status", c.list.status); err != nil {
				return err
			}
		}
		return applyCommonQuery(ctrl, c.list)
	})
	if err != nil {
		return err
	}
	printRequests(c.stdout, snap)
	return nil
}

func (c *cli) serveRequest(ctx context.Context, args []string) error {
	id, err := idArg(args, "request")
	if err != nil {
		return err
	}
	svc := serve.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.MealRequest](c.log)...)
	defer ctrl.Close()

	r, err := findRow(ctrl, "request", id, func(it domain.MealRequest) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.ServeMutation(ctrl, r)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "served")
	return nil
}

func (c *cli) cancelRequest(ctx context.Context, args []string) error {
	id, err := idArg(args, "request")
	if err != nil {
		return err
	}
	svc := serve.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.MealRequest](c.log)...)
	defer ctrl.Close()

	// The queue endpoint scopes the list to the caller for non-admins,
	// so the located row carries the real owner for the ownership check.
	r, err := findRow(ctrl, "request", id, func(it domain.MealRequest) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.CancelMutation(ctrl, r)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "cancelled")
	return nil
}

// ---- admin ----

func (c *cli) users(ctx context.Context) error {
	svc := users.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.HostelUser](c.log)...)
	snap, err := fetchPage(ctrl, func() error {
		return applyCommonQuery(ctrl, c.list)
	})
	if err != nil {
		return err
	}
	printUsers(c.stdout, snap)
	return nil
}

func (c *cli) makeAdmin(ctx context.Context, args []string) error {
	id, err := idArg(args, "user")
	if err != nil {
		return err
	}
	svc := users.NewService(c.api, c.session, c.log)
	ctrl := svc.NewController(ctrlOpts[domain.HostelUser](c.log)...)
	defer ctrl.Close()

	u, err := findRow(ctrl, "user", id, func(it domain.HostelUser) bool { return it.ID == id })
	if err != nil {
		return err
	}
	if err := c.mutator.Run(ctx, svc.MakeAdminMutation(ctrl, u)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "promoted")
	return nil
}

// ---- membership ----

func (c *cli) packages(ctx context.Context) error {
	svc := payment.NewService(c.api, c.session, nil, c.log)
	packs, err := svc.Packages(ctx)
	if err != nil {
		return err
	}
	printPackages(c.stdout, packs)
	return nil
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: checkout <Silver|Gold|Platinum>")
	}
	packageName := args[0]

	confirmer := payment.CardConfirmerFunc(func(ctx context.Context, clientSecret string) (string, error) {
		if !c.confirm(fmt.Sprintf("Complete the card payment for the %s package?", packageName)) {
			return "", errors.New("payment cancelled")
		}
		b := make([]byte, 8)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		return "tx_cli_" + hex.EncodeToString(b), nil
	})

	svc := payment.NewService(c.api, c.session, confirmer, c.log)
	if err := svc.Checkout(ctx, packageName); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "membership activated; sign in again to refresh your badge")
	return nil
}

// ---- helpers ----

// applyCommonQuery pushes the shared search/sort/page flags into the
// controller. The page lands last because every other query change
// resets it to 1.
func applyCommonQuery[T any](ctrl *listsync.Controller[T], f *listFlags) error {
	if f.sort != "" {
		if err := ctrl.Sort(f.sort, f.order); err != nil {
			return err
		}
	}
	if f.search != "" {
		ctrl.Search(f.search)
	}
	if f.page > 1 {
		ctrl.GoToPage(f.page)
	}
	return nil
}

// ctrlOpts is the controller configuration every CLI command uses.
func ctrlOpts[T any](log *slog.Logger) []listsync.ControllerOption[T] {
	return []listsync.ControllerOption[T]{
		listsync.WithLogger[T](log),
		listsync.WithDebounceWindow[T](cliDebounce),
	}
}

// fetchPage applies the query changes, starts the controller, and waits
// for the page. Every change uses the same final query, so whichever
// request settles the controller carries the right result.
func fetchPage[T any](ctrl *listsync.Controller[T], apply func() error) (listsync.Snapshot[T], error) {
	defer ctrl.Close()

	if apply != nil {
		if err := apply(); err != nil {
			return listsync.Snapshot[T]{}, err
		}
	}
	ctrl.Start()
	return waitLoaded(ctrl)
}

// waitLoaded polls the controller until the in-flight fetch settles.
func waitLoaded[T any](ctrl *listsync.Controller[T]) (listsync.Snapshot[T], error) {
	deadline := time.Now().Add(listWait)
	for time.Now().Before(deadline) {
		snap := ctrl.Snapshot()
		switch snap.Phase {
		case listsync.PhaseLoaded:
			return snap, nil
		case listsync.PhaseFailed:
			return snap, errors.New(snap.ErrMessage)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return listsync.Snapshot[T]{}, errors.New("timed out waiting for the list")
}

// findRow pages through the list until the wanted row shows up, so
// mutations operate on the genuine server row and the controller holds
// the page the row lives on.
func findRow[T any](ctrl *listsync.Controller[T], what string, id uint, match func(T) bool) (T, error) {
	var zero T
	ctrl.Start()
	for {
		snap, err := waitLoaded(ctrl)
		if err != nil {
			return zero, err
		}
		for _, item := range snap.Items {
			if match(item) {
				return item, nil
			}
		}
		if !snap.Pagination.CanGoNext {
			return zero, domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("%s %d not found", what, id), nil)
		}
		ctrl.GoToPage(snap.Pagination.ClampedPage + 1)
	}
}

// confirm prompts on stderr and reads the answer from stdin. The -yes
// flag short-circuits it for scripting.
func (c *cli) confirm(prompt string) bool {
	if c.assumeYes {
		return true
	}
	fmt.Fprintf(c.stderr, "%s [y/N]: ", prompt)
	line, err := c.stdin.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func idArg(args []string, what string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s id is required", what)
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, args[0])
	}
	return uint(id), nil
}
