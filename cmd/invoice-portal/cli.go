package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"invoiceweb/portal/internal/admindata"
	"invoiceweb/portal/internal/apiclient"
	"invoiceweb/portal/internal/models"
	"invoiceweb/portal/internal/services"
	"invoiceweb/portal/internal/session"
)

const refreshSkew = 30 * time.Second

const usage = `usage: invoice-portal [-mock] <command> [flags]

commands:
  login -email E -password P
  register -name N -email E -password P
  logout
  whoami
  invoice search <code>
  invoices [-page N] [-limit N] [-status S] [-search Q]
  companies [-page N] [-size N] [-status S] [-search Q]
  dashboard [-recent N]
`

var errNotSignedIn = errors.New("not signed in; run: invoice-portal login")

type CLI struct {
	api      *services.API
	sessions *session.Store
	mode     *apiclient.Mode
	logger   *zap.Logger
	out      io.Writer
	errOut   io.Writer
}

func NewCLI(api *services.API, sessions *session.Store, mode *apiclient.Mode, logger *zap.Logger) *CLI {
	return &CLI{
		api:      api,
		sessions: sessions,
		mode:     mode,
		logger:   logger,
		out:      os.Stdout,
		errOut:   os.Stderr,
	}
}

// Run executes one command and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("invoice-portal", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	mock := fs.Bool("mock", false, "answer from the in-process mock API")
	fs.Usage = func() { fmt.Fprint(c.errOut, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *mock {
		c.mode.SetMock(true)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	c.sessions.Initialize(ctx)
	if c.sessions.IsAuthenticated() && c.sessions.NeedsRefresh(refreshSkew) {
		if err := c.sessions.RefreshAccessToken(ctx); err != nil {
			c.logger.Warn("proactive refresh failed", zap.Error(err))
		}
	}

	var err error
	rest := fs.Args()[1:]
	switch fs.Arg(0) {
	case "login":
		err = c.login(ctx, rest)
	case "register":
		err = c.register(ctx, rest)
	case "logout":
		err = c.logout(ctx)
	case "whoami":
		err = c.whoami(ctx)
	case "invoice":
		err = c.invoice(ctx, rest)
	case "invoices":
		err = c.invoices(ctx, rest)
	case "companies":
		err = c.companies(ctx, rest)
	case "dashboard":
		err = c.dashboard(ctx, rest)
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}
	c.sessions.WaitBackground()
	if err != nil {
		fmt.Fprintln(c.errOut, "error:", err)
		return 1
	}
	return 0
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := c.sessions.Login(ctx, models.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", sess.User.Email, sess.User.Role)
	return nil
}

func (c *CLI) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := c.sessions.Register(ctx, models.RegisterRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered %s\n", sess.User.Email)
	return nil
}

func (c *CLI) logout(ctx context.Context) error {
	if err := c.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *CLI) whoami(ctx context.Context) error {
	if !c.sessions.IsAuthenticated() {
		return errNotSignedIn
	}
	info, err := c.sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", info.ID)
	fmt.Fprintf(tw, "name\t%s\n", info.Name)
	fmt.Fprintf(tw, "email\t%s\n", info.Email)
	fmt.Fprintf(tw, "role\t%s\n", info.Role)
	fmt.Fprintf(tw, "organization\t%s\n", info.OrganizationName)
	menus := make([]string, 0, len(info.Menus))
	for _, m := range info.Menus {
		menus = append(menus, m.Name)
	}
	fmt.Fprintf(tw, "menus\t%s\n", strings.Join(menus, ", "))
	return tw.Flush()
}

func (c *CLI) invoice(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "search" {
		return fmt.Errorf("usage: invoice search <code>")
	}
	code := ""
	if len(args) > 1 {
		code = args[1]
	}
	env := c.api.Invoices.SearchByCode(ctx, code)
	if err := env.Err(); err != nil {
		return err
	}
	if env.Data == nil {
		fmt.Fprintln(c.out, "No invoice found")
		return nil
	}
	return printInvoices(c.out, []models.Invoice{*env.Data})
}

func (c *CLI) invoices(ctx context.Context, args []string) error {
	if !c.sessions.IsAuthenticated() {
		return errNotSignedIn
	}
	fs := flag.NewFlagSet("invoices", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", admindata.DefaultPageSize, "page size")
	status := fs.String("status", "", "paid, pending, overdue or cancelled")
	search := fs.String("search", "", "code or customer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := admindata.New(admindata.Funcs[models.Invoice]{
		Fetch: admindata.FromPaginated[models.Invoice](func(ctx context.Context, page, size int, f apiclient.Filters) apiclient.Envelope[apiclient.PaginatedResult[models.Invoice]] {
			return c.api.Invoices.GetInvoicesPaginated(ctx, page, size, services.InvoiceFilter{Search: f["search"], Status: f["status"]})
		}),
	}, admindata.Options{PageSize: *limit, Logger: c.logger})
	if err := applyListFlags(ctx, list, *page, *status, *search); err != nil {
		return err
	}
	st := list.State()
	if err := printInvoices(c.out, st.Data); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d of %d (%d invoices)\n", st.Page, apiclient.TotalPages(st.Total, st.PageSize), st.Total)
	return nil
}

func (c *CLI) companies(ctx context.Context, args []string) error {
	if !c.sessions.IsAuthenticated() {
		return errNotSignedIn
	}
	fs := flag.NewFlagSet("companies", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", admindata.DefaultPageSize, "page size")
	status := fs.String("status", "", "active or inactive")
	search := fs.String("search", "", "name, email or tax id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := admindata.New(admindata.ForResource[models.Company](c.api.Companies), admindata.Options{PageSize: *size, Logger: c.logger})
	if err := applyListFlags(ctx, list, *page, *status, *search); err != nil {
		return err
	}
	st := list.State()
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS")
	for _, company := range st.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", company.ID, company.Name, company.Email, company.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d of %d (%d companies)\n", st.Page, apiclient.TotalPages(st.Total, st.PageSize), st.Total)
	return nil
}

// applyListFlags sets filters before paging, since filter changes go back to
// the first page.
func applyListFlags[T any](ctx context.Context, list *admindata.Controller[T], page int, status, search string) error {
	if status != "" {
		if err := list.SetFilter(ctx, "status", status); err != nil {
			return err
		}
	}
	if search != "" {
		if err := list.SetSearch(ctx, search); err != nil {
			return err
		}
	}
	if page > 1 {
		return list.SetPage(ctx, page)
	}
	if status == "" && search == "" {
		return list.Load(ctx)
	}
	return nil
}

func (c *CLI) dashboard(ctx context.Context, args []string) error {
	if !c.sessions.IsAuthenticated() {
		return errNotSignedIn
	}
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	recent := fs.Int("recent", 5, "number of recent invoices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	env := c.api.Dashboard.Overview(ctx, *recent)
	if err := env.Err(); err != nil {
		return err
	}
	stats := env.Data.Stats
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "invoices\t%d\n", stats.TotalInvoices)
	fmt.Fprintf(tw, "paid\t%d\t%.2f\n", stats.PaidInvoices, stats.PaidAmount)
	fmt.Fprintf(tw, "pending\t%d\n", stats.PendingInvoices)
	fmt.Fprintf(tw, "overdue\t%d\n", stats.OverdueInvoices)
	fmt.Fprintf(tw, "companies\t%d\n", stats.TotalCompanies)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(c.out)
	return printInvoices(c.out, env.Data.RecentInvoices)
}

func printInvoices(w io.Writer, invoices []models.Invoice) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCUSTOMER\tAMOUNT\tSTATUS\tDUE")
	for _, inv := range invoices {
		due := "-"
		if !inv.DueAt.IsZero() {
			due = inv.DueAt.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%s\t%s\n", inv.Code, inv.CustomerName, inv.Amount, inv.Currency, inv.Status, due)
	}
	return tw.Flush()
}
