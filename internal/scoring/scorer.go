package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"fedimod/internal/config"
	"fedimod/internal/core"
	"fedimod/internal/dispatch"
	"fedimod/internal/qrscan"
)

const (
	newAccountThreshold   = 24 * time.Hour
	accountTrustAge       = 7 * 24 * time.Hour
	manyMentionsThreshold = 5

	actThreshold    = 5
	logContentLimit = 300
)

var (
	postsExamined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedimod_posts_examined_total",
		Help: "The total number of posts run through the spam checks",
	})

	postsKilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fedimod_posts_killed_total",
		Help: "The total number of posts that crossed the spam threshold",
	})

	checksTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fedimod_checks_triggered_total",
		Help: "The total number of spam check hits, by check",
	}, []string{"check"})
)

// Verdict is the outcome of one scoring pass.
type Verdict struct {
	Score     int
	Triggered []core.CheckResult
	ShouldAct bool
}

// Scorer evaluates the fixed battery of spam checks against a post and
// dispatches moderation actions when the threshold is crossed.
type Scorer struct {
	Logger     *slog.Logger
	Config     *config.Config
	Scanner    *qrscan.Scanner
	Dispatcher *dispatch.Dispatcher

	examined atomic.Int64
}

func (s *Scorer) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "scoring.Scorer")
	return nil
}

// Examined returns how many posts went through Examine so far.
func (s *Scorer) Examined() int64 {
	return s.examined.Load()
}

// Examine scores one post and, when it crosses the threshold, asks the
// dispatcher to delete it and suspend its author.
func (s *Scorer) Examine(ctx context.Context, post *core.Post) {
	s.examined.Add(1)
	postsExamined.Inc()

	verdict := s.Evaluate(ctx, post)

	reasons := lo.Map(verdict.Triggered, func(c core.CheckResult, _ int) string {
		return fmt.Sprintf("%s score: %d", c.Name, c.Weight)
	})
	s.Logger.Debug("post scored", "post", post.ID, "score", verdict.Score, "reasons", reasons)

	if !verdict.ShouldAct {
		return
	}

	postsKilled.Inc()
	s.Logger.Info("spam killed",
		"post", post.ID,
		"user", post.User.Acct(),
		"score", verdict.Score,
		"reasons", reasons,
		"content", truncate(post.Text),
	)

	s.Dispatcher.EnqueueDelete(post.ID)
	s.Dispatcher.Suspend(ctx, post.User)
}

// Evaluate runs every check and sums the triggered weights. In production
// mode a trusted user short-circuits the whole pass; otherwise trust only
// contributes its negative weight to the sum.
func (s *Scorer) Evaluate(ctx context.Context, post *core.Post) Verdict {
	if s.Config.Production && s.trusted(post.User) {
		return Verdict{}
	}

	var triggered []core.CheckResult

	record := func(name string, weight int, hit bool) {
		if !hit {
			return
		}
		triggered = append(triggered, core.CheckResult{Name: name, Weight: weight})
		checksTriggered.WithLabelValues(name).Inc()
	}

	record("userTrusted", -5, s.trusted(post.User))
	record("isMention", 1, post.Mentions >= 1)
	record("nameAndAvatarEmpty", 1, nameAndAvatarEmpty(post.User))
	record("newUser", 1, s.newUser(post.User))
	record("hasHashTag", 1, strings.Contains(post.Text, "#"))
	record("manyMentions", 2, post.Mentions >= manyMentionsThreshold)
	record("badQrCode", 3, len(post.Files) > 0 && s.Scanner.ScanImages(ctx, post.Files))

	// Every matching banned pattern compounds.
	for _, re := range s.Config.BadTextPatterns {
		if re.MatchString(post.Text) {
			s.Logger.Info("bad text", "post", post.ID, "text", truncate(post.Text))
			record("badText", 3, true)
		}
	}

	score := lo.SumBy(triggered, func(c core.CheckResult) int { return c.Weight })

	return Verdict{Score: score, Triggered: triggered, ShouldAct: score >= actThreshold}
}

// trusted: the account is old enough and does not look like a throwaway.
func (s *Scorer) trusted(u *core.User) bool {
	old := !u.FirstSeenAt.After(time.Now().Add(-accountTrustAge))
	return old && !nameAndAvatarEmpty(u)
}

func (s *Scorer) newUser(u *core.User) bool {
	return u.FirstSeenAt.After(time.Now().Add(-newAccountThreshold))
}

func nameAndAvatarEmpty(u *core.User) bool {
	return !u.AvatarExists && (u.Nickname == "" || u.Nickname == u.Handle)
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) > logContentLimit {
		text = string(runes[:logContentLimit])
	}
	return strings.ReplaceAll(text, "\n", "\\n")
}
