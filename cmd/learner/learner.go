// Command learner drives the device-side features of the app from a
// terminal: the offline cart, quiz attempts and checkout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-learning/client"
	"github.com/irsalhamdi/e-learning/core/payment"
	"github.com/irsalhamdi/e-learning/local"
	"github.com/sirupsen/logrus"
)

type config struct {
	conf.Version
	Args conf.Args
	DB   struct {
		Path string `conf:"default:learner.db"`
	}
	API struct {
		URL   string `conf:"default:http://localhost:8000"`
		Token string `conf:"mask"`
	}
}

var errUsage = errors.New(`usage: learner <command>
  cart list | cart add <courseId> | cart remove <courseId> | cart clear
  quiz submit <courseId> <contentId> <question:option,...>
  quiz show <contentId> | quiz history <contentId>
  checkout`)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if err := run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger) error {
	cfg := config{Version: conf.Version{Desc: "e-learning learner client"}}

	help, err := conf.Parse("LEARNER", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	ctx := context.Background()

	store, err := local.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	api := client.New(cfg.API.URL, cfg.API.Token)

	me, err := api.Me(ctx)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	args := cfg.Args
	switch args.Num(0) {
	case "cart":
		return cart(ctx, store, api, me.ID, args)
	case "quiz":
		return quiz(ctx, store, api, me.ID, args)
	case "checkout":
		co := client.Checkout{Store: store, API: api, Payment: outOfBand{}, Log: log.WithField("user_id", me.ID)}
		rcpt, err := co.Run(ctx, me.ID)
		if err != nil {
			return err
		}
		fmt.Printf("charged %s USD, %d new courses, %d already owned\n",
			payment.Dollars(rcpt.Cents), len(rcpt.Orders), len(rcpt.AlreadyOwned))
		return nil
	}
	return errUsage
}

func cart(ctx context.Context, store *local.Store, api *client.Client, userID string, args conf.Args) error {
	switch args.Num(1) {
	case "list":
		items, err := store.Cart(ctx, userID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRICE")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", it.ID, it.Name, it.Price)
		}
		fmt.Fprintf(w, "\t\t%.2f\n", local.Total(items))
		return w.Flush()

	case "add":
		c, err := api.Course(ctx, args.Num(2))
		if err != nil {
			return err
		}
		return store.AddToCart(ctx, local.Course{
			ID:             c.ID,
			Name:           c.Name,
			Description:    c.Description,
			Categories:     c.Categories,
			Price:          c.Price,
			EstimatedPrice: c.EstimatedPrice,
			ThumbnailURL:   c.Thumbnail,
			Tags:           c.Tags,
			Level:          c.Level,
			DemoURL:        c.DemoURL,
			Ratings:        c.Ratings,
			Purchased:      c.Purchased,
		}, userID)

	case "remove":
		return store.RemoveFromCart(ctx, args.Num(2), userID)

	case "clear":
		return store.ClearCart(ctx, userID)
	}
	return errUsage
}

func quiz(ctx context.Context, store *local.Store, api *client.Client, userID string, args conf.Args) error {
	switch args.Num(1) {
	case "submit":
		answers, err := parseAnswers(args.Num(4))
		if err != nil {
			return err
		}
		res, err := client.SubmitQuiz(ctx, api, store, userID, args.Num(2), args.Num(3), answers)
		if err != nil {
			return err
		}
		fmt.Printf("score %d/%d\n", res.Score, res.Total)
		return nil

	case "show":
		res, err := store.QuizResult(ctx, userID, args.Num(2))
		if err != nil {
			return err
		}
		fmt.Printf("score %d/%d on %s\n", res.Score, res.Total, res.CreatedAt.Local().Format("2006-01-02 15:04"))
		return nil

	case "history":
		results, err := store.QuizHistory(ctx, userID, args.Num(2))
		if err != nil {
			return err
		}
		for _, res := range results {
			fmt.Printf("%s  %d/%d\n", res.CreatedAt.Local().Format("2006-01-02 15:04"), res.Score, res.Total)
		}
		return nil
	}
	return errUsage
}

// parseAnswers reads "0:1,1:0" as question 0 answered with option 1 and
// question 1 with option 0.
func parseAnswers(s string) (map[int]int, error) {
	answers := make(map[int]int)
	if s == "" {
		return answers, nil
	}

	for _, pair := range strings.Split(s, ",") {
		q, o, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("malformed answer %q", pair)
		}
		qi, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return nil, fmt.Errorf("malformed question index %q", q)
		}
		oi, err := strconv.Atoi(strings.TrimSpace(o))
		if err != nil {
			return nil, fmt.Errorf("malformed option index %q", o)
		}
		answers[qi] = oi
	}
	return answers, nil
}

// outOfBand treats the intent as paid through the provider's own page; the
// terminal has no payment sheet.
type outOfBand struct{}

func (outOfBand) Confirm(ctx context.Context, clientSecret string) (json.RawMessage, error) {
	info := map[string]string{"client_secret": clientSecret, "method": "out_of_band"}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return b, nil
}
