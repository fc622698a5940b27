package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"lotterybot/internal/config"
	"lotterybot/internal/models"
	"lotterybot/internal/notify"

	"github.com/google/logger"
)

// configKey is the key of the single LotteryConfig row in the config
// namespace.
const configKey = "emoji-lottery-config"

// Jackpot emojis are drawn from the half-open codepoint range
// [U+1F3F4, U+1F600).
const (
	jackpotRangeLo = 0x1F3F4
	jackpotRangeHi = 0x1F600
)

// Store is the persistence surface the lottery needs: typed CRUD on two
// namespaces plus namespace rotation. Implemented by kvstore.Client.
type Store interface {
	Read(ctx context.Context, namespaceID, key string, v any) (bool, error)
	Write(ctx context.Context, namespaceID, key string, v any) error
	CreateNamespace(ctx context.Context, title string) (string, error)
	DeleteNamespace(ctx context.Context, namespaceID string) error
}

// SubmissionOutcome is the decision for one incoming guess.
type SubmissionOutcome int

const (
	// OutcomeRejected means no lottery is active.
	OutcomeRejected SubmissionOutcome = iota
	// OutcomeJackpot means the guess matches the season's secret emoji.
	OutcomeJackpot
	// OutcomeThrottled means the submitter is still in cooldown.
	OutcomeThrottled
	// OutcomeAccepted means the guess is recorded as the submitter's last try.
	OutcomeAccepted
)

// Commence starts a new season: activates the lottery, draws a fresh jackpot,
// bumps the season counter and points the config at the rotated data
// namespace.
func Commence(current models.LotteryConfig, retryInHrs int64, dataNamespaceID string) models.LotteryConfig {
	return models.LotteryConfig{
		Active:          true,
		HasWinner:       false,
		Jackpot:         RandomEmoji(),
		Season:          current.Season + 1,
		RetryInHrs:      retryInHrs,
		DataNamespaceID: dataNamespaceID,
	}
}

// End deactivates the lottery. Jackpot, winner flag and season are left
// untouched; the season counter only advances on the next Commence.
func End(current models.LotteryConfig) models.LotteryConfig {
	current.Active = false
	return current
}

// RandomEmoji draws the season's jackpot uniformly from the emoji range.
func RandomEmoji() string {
	return string(rune(jackpotRangeLo + rand.Intn(jackpotRangeHi-jackpotRangeLo)))
}

// EvaluateSubmission applies the game rules to one incoming guess. The checks
// are ordered: an inactive lottery rejects everything, a jackpot match wins
// regardless of cooldown, and the cooldown boundary is exclusive so a guess
// exactly retryInHrs after the last one is accepted. For OutcomeThrottled the
// returned time is the moment the submitter may retry.
func EvaluateSubmission(cfg models.LotteryConfig, lastGuess *models.Guess, incoming models.Guess) (SubmissionOutcome, time.Time) {
	if !cfg.Active {
		return OutcomeRejected, time.Time{}
	}
	if incoming.Value == cfg.Jackpot {
		return OutcomeJackpot, time.Time{}
	}
	if lastGuess != nil {
		retryAt := lastGuess.CreatedAt + cfg.RetryInHrs*3600
		if incoming.CreatedAt < retryAt {
			return OutcomeThrottled, time.Unix(retryAt, 0).UTC()
		}
	}
	return OutcomeAccepted, time.Time{}
}

// LotteryService wires the game rules to the store and the chat backend. One
// inbound event is handled start to finish: read state, decide, write state,
// announce. There is no cross-request locking, so two racing submissions can
// both read the same last guess; the store offers no conditional write and
// the last writer wins.
type LotteryService struct {
	store    Store
	notifier notify.Notifier
	cfg      *config.Config
}

// NewLotteryService creates and initializes a new LotteryService.
func NewLotteryService(store Store, notifier notify.Notifier, cfg *config.Config) *LotteryService {
	return &LotteryService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

// StartSeason rotates the guess namespace, commences a new season config and
// announces it. The announcement names the calendar and the new season.
func (s *LotteryService) StartSeason(ctx context.Context, calendarName string) (string, error) {
	current, err := s.loadConfig(ctx)
	if err != nil {
		return "", err
	}

	if err := s.store.DeleteNamespace(ctx, s.dataNamespace(current)); err != nil {
		return "", fmt.Errorf("delete guess namespace: %w", err)
	}
	title := fmt.Sprintf("lottery-bot-data-season-%d", current.Season+1)
	namespaceID, err := s.store.CreateNamespace(ctx, title)
	if err != nil {
		// The old guess bucket is already gone at this point; a human has to
		// finish the rotation.
		return "", s.escalate(fmt.Errorf("create guess namespace: %w", err))
	}

	next := Commence(current, s.cfg.RetryInHrs, namespaceID)
	if err := s.store.Write(ctx, s.cfg.ConfigNamespaceID, configKey, next); err != nil {
		return "", s.escalate(fmt.Errorf("write lottery config: %w", err))
	}
	logger.Infof("Season %d commenced, guesses go to namespace %s", next.Season, namespaceID)

	msg := fmt.Sprintf("%s season %d commence", calendarName, next.Season)
	if err := s.notifier.Post(ctx, msg); err != nil {
		return "", s.escalate(fmt.Errorf("season %d started but the announcement failed: %w", next.Season, err))
	}
	return msg, nil
}

// EndSeason deactivates the running season and announces the end. The season
// counter stays, it advances on the next StartSeason.
func (s *LotteryService) EndSeason(ctx context.Context, calendarName string) (string, error) {
	current, err := s.loadConfig(ctx)
	if err != nil {
		return "", err
	}

	next := End(current)
	if err := s.store.Write(ctx, s.cfg.ConfigNamespaceID, configKey, next); err != nil {
		return "", s.escalate(fmt.Errorf("write lottery config: %w", err))
	}
	logger.Infof("Season %d ended", next.Season)

	msg := fmt.Sprintf("%s season %d ends", calendarName, next.Season)
	if err := s.notifier.Post(ctx, msg); err != nil {
		return "", s.escalate(fmt.Errorf("season %d ended but the announcement failed: %w", next.Season, err))
	}
	return msg, nil
}

// Submit evaluates one guess against the running season and returns the text
// for the submitter. Only an accepted guess is persisted; a winning guess is
// announced to the submitter without a write.
func (s *LotteryService) Submit(ctx context.Context, submitter string, submission models.Submission) (string, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return "", err
	}

	var last models.Guess
	found, err := s.store.Read(ctx, s.dataNamespace(cfg), submitter, &last)
	if err != nil {
		return "", fmt.Errorf("read last guess of %s: %w", submitter, err)
	}
	var lastGuess *models.Guess
	if found {
		lastGuess = &last
	}

	incoming := models.Guess{Value: submission.Submission, CreatedAt: submission.TS}
	outcome, retryAt := EvaluateSubmission(cfg, lastGuess, incoming)
	switch outcome {
	case OutcomeRejected:
		return "No active lottery yet, wait for the next announcement!", nil
	case OutcomeJackpot:
		logger.Infof("Submitter %s hit the season %d jackpot", submitter, cfg.Season)
		return "Bingo!", nil
	case OutcomeThrottled:
		return fmt.Sprintf("please submit after %s", retryAt.Format(time.RFC1123)), nil
	}

	if err := s.store.Write(ctx, s.dataNamespace(cfg), submitter, incoming); err != nil {
		return "", s.escalate(fmt.Errorf("record guess of %s: %w", submitter, err))
	}
	return fmt.Sprintf("Not quite what I had in mind, try again in %d hrs", cfg.RetryInHrs), nil
}

// LastSubmission reports a submitter's most recent guess, or a friendly hint
// when they have none yet.
func (s *LotteryService) LastSubmission(ctx context.Context, submitter string) (string, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return "", err
	}

	var last models.Guess
	found, err := s.store.Read(ctx, s.dataNamespace(cfg), submitter, &last)
	if err != nil {
		return "", fmt.Errorf("read last guess of %s: %w", submitter, err)
	}
	if !found {
		return "You haven't submitted anything yet!", nil
	}
	submittedAt := time.Unix(last.CreatedAt, 0).UTC().Format(time.RFC1123)
	return fmt.Sprintf("You submitted %q at %s", last.Value, submittedAt), nil
}

// loadConfig re-reads the lottery config; it is never cached across requests.
// An absent row decodes to the zero config (inactive, season 0), which is the
// state before the first season.
func (s *LotteryService) loadConfig(ctx context.Context) (models.LotteryConfig, error) {
	var cfg models.LotteryConfig
	if _, err := s.store.Read(ctx, s.cfg.ConfigNamespaceID, configKey, &cfg); err != nil {
		return models.LotteryConfig{}, fmt.Errorf("read lottery config: %w", err)
	}
	return cfg, nil
}

// dataNamespace resolves the current guess bucket, preferring the rotated id
// recorded by the last Commence over the deployment default.
func (s *LotteryService) dataNamespace(cfg models.LotteryConfig) string {
	if cfg.DataNamespaceID != "" {
		return cfg.DataNamespaceID
	}
	return s.cfg.DataNamespaceID
}

// escalate tags a failure that left state half-applied with the maintainer
// handle so a human notices it.
func (s *LotteryService) escalate(err error) error {
	if m := s.cfg.Maintainer(); m != "" {
		return fmt.Errorf("%w (cc %s)", err, m)
	}
	return err
}
