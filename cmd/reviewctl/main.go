package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"contest-review/pkg/client"
	"contest-review/pkg/config"
	"contest-review/pkg/errutil"
	"contest-review/services/dashboard"
	"contest-review/services/review"
)

const usage = `usage: reviewctl [flags] <command> [args]

commands:
  pending                     list tasks waiting for review
  reviewed                    list approved and rejected tasks
  show <task-id>              print one task with its suggested points
  approve <task-id> <points>  approve a task
  reject <task-id>            reject a task
  ranking                     print the leaderboard
  log                         print the points log
`

type options struct {
	backend  string
	timeout  time.Duration
	operator string
	name     string
	week     int
	status   string
	page     int
	pageSize int
	message  string
	userID   string
	modify   bool
	verbose  bool
}

func main() {
	var o options
	fs := pflag.NewFlagSet("reviewctl", pflag.ContinueOnError)
	fs.StringVar(&o.backend, "backend", envOr("REVIEW_BACKEND_URL", "http://localhost:8080"), "review backend base URL")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "per request timeout")
	fs.StringVar(&o.operator, "operator", os.Getenv("REVIEW_OPERATOR_ID"), "operator id sent with reviews")
	fs.StringVar(&o.name, "operator-name", os.Getenv("REVIEW_OPERATOR_NAME"), "operator display name")
	fs.IntVarP(&o.week, "week", "w", 0, "week filter, 0 for all weeks")
	fs.StringVarP(&o.status, "status", "s", "", "reviewed filter: approved or rejected")
	fs.IntVarP(&o.page, "page", "p", 1, "page number")
	fs.IntVar(&o.pageSize, "page-size", 10, "page size")
	fs.StringVarP(&o.message, "message", "m", "", "review message")
	fs.StringVar(&o.userID, "user", "", "user filter for the points log")
	fs.BoolVar(&o.modify, "modify", false, "amend an already reviewed task")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log requests")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nflags:\n", fs.FlagUsages())
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	log := zap.NewNop()
	if o.verbose {
		log = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errutil.Message(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, args []string) error {
	cfg := &config.Config{}
	cfg.Backend.URL = o.backend
	cfg.Backend.Timeout = o.timeout
	cfg.Backend.OperatorID = o.operator
	cfg.Backend.OperatorName = o.name

	var (
		rc  *client.ReviewClient
		ctl *dashboard.Controller
	)
	app := fx.New(
		fx.Supply(cfg),
		client.Module,
		dashboard.Module,
		fx.Populate(&rc, &ctl),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	q, err := o.query()
	if err != nil {
		return err
	}

	out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer out.Flush()

	switch cmd := args[0]; cmd {
	case "pending":
		return printPage(out, ctl.ListPending(ctx, q))
	case "reviewed":
		return printPage(out, ctl.ListReviewed(ctx, q))
	case "show":
		if len(args) != 2 {
			return errutil.BadRequest("show needs a task id", nil)
		}
		t, err := rc.GetTaskDetail(ctx, args[1])
		if err != nil {
			return err
		}
		printTask(out, t, ctl.SuggestPoints(t))
		return nil
	case "approve", "reject":
		return submit(ctx, ctl, o, args)
	case "ranking":
		board, err := rc.GetRanking(ctx, o.weekPtr())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "RANK\tUSER\tNAME\tPOINTS")
		for _, e := range board.Records {
			fmt.Fprintf(out, "%d\t%s\t%s\t%d\n", e.Rank, e.UserID, e.UserName, e.TotalPoints)
		}
		return nil
	case "log":
		res, err := rc.ListPointsLog(ctx, client.PointsLogFilter{
			WeekCount:  o.weekPtr(),
			UserID:     o.userID,
			Pagination: q.Pagination(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "TIME\tTASK\tUSER\tWEEK\tSTATUS\tPOINTS\tDELTA")
		for _, e := range res.Records {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%d\t%+d\n",
				e.CreateTime.Format(time.RFC3339), e.TaskID, e.UserID, e.WeekCount,
				review.ReviewStatus(e.ReviewStatus), e.Points, e.Delta)
		}
		fmt.Fprintf(out, "\n%d entries\n", res.Total)
		return nil
	default:
		return errutil.BadRequest(fmt.Sprintf("unknown command %q", cmd), nil)
	}
}

func submit(ctx context.Context, ctl *dashboard.Controller, o options, args []string) error {
	d := review.Decision{Status: review.StatusRejected}
	if o.message != "" {
		d.Message = &o.message
	}

	switch args[0] {
	case "approve":
		if len(args) != 3 {
			return errutil.BadRequest("approve needs a task id and points", nil)
		}
		points, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return errutil.BadRequest("points must be an integer", nil)
		}
		d.Status = review.StatusApproved
		d.Points = &points
	default:
		if len(args) != 2 {
			return errutil.BadRequest("reject needs a task id", nil)
		}
	}

	intent := review.IntentReview
	if o.modify {
		intent = review.IntentModify
	}
	if err := ctl.SubmitReview(ctx, args[1], d, intent); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", args[1], d.Status)
	return nil
}

func (o options) query() (dashboard.ListQuery, error) {
	q := dashboard.NewListQuery().WithPage(o.page).WithPageSize(o.pageSize)
	if o.week > 0 {
		q = q.WithWeek(o.week)
	}
	switch o.status {
	case "":
	case "approved":
		q = q.WithStatus(review.StatusApproved)
	case "rejected":
		q = q.WithStatus(review.StatusRejected)
	default:
		return q, errutil.BadRequest("status must be approved or rejected", nil)
	}
	return q, nil
}

func (o options) weekPtr() *int {
	if o.week <= 0 {
		return nil
	}
	w := o.week
	return &w
}

func printPage(out *tabwriter.Writer, p dashboard.Page) error {
	if p.Err != nil {
		return p.Err
	}
	fmt.Fprintln(out, "ID\tUSER\tTYPE\tWEEK\tSTATUS\tPOINTS\tSUGGESTED")
	for _, t := range p.Records {
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%d\t%d\n",
			t.ID, t.UserName, t.TaskType, t.WeekCount, t.ReviewStatus, t.Points,
			review.ComputeSuggestedPoints(t))
	}
	fmt.Fprintf(out, "\npage %d, %d of %d records\n", p.Query.Pagination().Page, len(p.Records), p.Total)
	return nil
}

func printTask(out *tabwriter.Writer, t *review.TaskRecord, suggested int64) {
	fmt.Fprintf(out, "id\t%s\n", t.ID)
	fmt.Fprintf(out, "user\t%s <%s>\n", t.UserName, t.UserEmail)
	fmt.Fprintf(out, "type\t%s\n", t.TaskType)
	fmt.Fprintf(out, "week\t%d\n", t.WeekCount)
	if t.ContentLink != nil {
		fmt.Fprintf(out, "link\t%s\n", *t.ContentLink)
	}
	for _, s := range t.Screenshots() {
		fmt.Fprintf(out, "screenshot\t%s\n", s)
	}
	if t.BrowseNum != nil {
		fmt.Fprintf(out, "views\t%d\n", *t.BrowseNum)
	}
	fmt.Fprintf(out, "status\t%s\n", t.ReviewStatus)
	fmt.Fprintf(out, "points\t%d\n", t.Points)
	fmt.Fprintf(out, "suggested\t%d\n", suggested)
	if t.ReviewMessage != nil {
		fmt.Fprintf(out, "message\t%s\n", *t.ReviewMessage)
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
