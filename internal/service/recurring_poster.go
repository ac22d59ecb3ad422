package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/util"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AutoDescriptionPrefix marks transactions created by the recurring poster
const AutoDescriptionPrefix = "[Auto] "

// Outcomes of processing one due item
const (
	OutcomePosted  = "posted"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Defaults for RecurringPoster
const (
	DefaultRecurringWorkers  = 4
	DefaultRecurringBatch    = 500
	DefaultLoanReminderDays  = 3
	defaultRecurringFallback = "Recurring transaction"
)

// RecurringPosterConfig holds configuration for the recurring poster
type RecurringPosterConfig struct {
	Workers          int // Items processed concurrently
	BatchSize        int // Due items picked up per run
	LoanReminderDays int // Days before a loan's end date to remind
}

// DefaultRecurringPosterConfig returns sensible defaults
func DefaultRecurringPosterConfig() RecurringPosterConfig {
	return RecurringPosterConfig{
		Workers:          DefaultRecurringWorkers,
		BatchSize:        DefaultRecurringBatch,
		LoanReminderDays: DefaultLoanReminderDays,
	}
}

// PostResult summarizes one run of PostDue
type PostResult struct {
	RunID         string        `json:"runId"`
	Due           int           `json:"due"`
	Posted        int           `json:"posted"`
	Skipped       int           `json:"skipped"`
	Stale         int           `json:"stale"`
	Failed        int           `json:"failed"`
	LoansReminded int           `json:"loansReminded"`
	Elapsed       time.Duration `json:"elapsed"`
}

func (r *PostResult) add(outcome string) {
	switch outcome {
	case OutcomePosted:
		r.Posted++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeStale:
		r.Stale++
	default:
		r.Failed++
	}
}

// RecurringPosted is the payload of recurring.posted and recurring.skipped events
type RecurringPosted struct {
	RecurringID int32               `json:"recurringId"`
	NextDate    time.Time           `json:"nextDate"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

// RecurringPoster posts due recurring transactions. Each item is handled in
// its own unit: it is re-read under lock and skipped if no longer due, so a
// re-run after a crash never posts an already advanced item twice.
type RecurringPoster struct {
	store          domain.Store
	engine         *TransactionService
	clock          domain.Clock
	logger         zerolog.Logger
	metrics        LedgerMetrics
	eventPublisher websocket.EventPublisher
	config         RecurringPosterConfig
}

// NewRecurringPoster creates a new RecurringPoster
func NewRecurringPoster(store domain.Store, engine *TransactionService, clock domain.Clock, logger zerolog.Logger, config RecurringPosterConfig) *RecurringPoster {
	if config.Workers <= 0 {
		config.Workers = DefaultRecurringWorkers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRecurringBatch
	}
	if config.LoanReminderDays < 0 {
		config.LoanReminderDays = DefaultLoanReminderDays
	}
	return &RecurringPoster{
		store:   store,
		engine:  engine,
		clock:   clock,
		logger:  logger.With().Str("component", "recurring_poster").Logger(),
		metrics: nopMetrics{},
		config:  config,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (p *RecurringPoster) SetEventPublisher(publisher websocket.EventPublisher) {
	p.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (p *RecurringPoster) SetMetrics(metrics LedgerMetrics) {
	p.metrics = metrics
}

func (p *RecurringPoster) publishEvent(userID int32, event websocket.Event) {
	if p.eventPublisher != nil {
		p.eventPublisher.Publish(userID, event)
	}
}

// PostDue processes every item due at the current instant. Failures are
// isolated per item; only listing the due items can fail the run.
func (p *RecurringPoster) PostDue(ctx context.Context) (*PostResult, error) {
	start := time.Now()
	now := p.clock.Now()
	result := &PostResult{RunID: uuid.NewString()}
	logger := p.logger.With().Str("run_id", result.RunID).Logger()

	ids, err := p.store.Recurring().ListDue(ctx, now, p.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due recurring transactions: %w", err)
	}
	result.Due = len(ids)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.config.Workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("Run interrupted, remaining items left for next run")
			break
		}
		g.Go(func() error {
			outcome := p.postOne(ctx, logger, id, now)
			p.metrics.RecurringItem(outcome)
			mu.Lock()
			result.add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.LoansReminded = p.remindLoans(ctx, logger, now)
	result.Elapsed = time.Since(start)
	p.metrics.RecurringRun(result.Elapsed)

	logger.Info().
		Int("due", result.Due).
		Int("posted", result.Posted).
		Int("skipped", result.Skipped).
		Int("stale", result.Stale).
		Int("failed", result.Failed).
		Int("loans_reminded", result.LoansReminded).
		Dur("elapsed", result.Elapsed).
		Msg("Completed recurring run")
	return result, nil
}

// itemEvents collects what to publish once the item's unit has committed
type itemEvents struct {
	userID int32
	events []websocket.Event
}

func (e *itemEvents) add(event websocket.Event) {
	e.events = append(e.events, event)
}

func (p *RecurringPoster) postOne(ctx context.Context, logger zerolog.Logger, id int32, now time.Time) string {
	outcome := OutcomeStale
	pending := &itemEvents{}

	err := p.store.WithinTx(ctx, func(tx domain.Tx) error {
		pending.events = nil
		item, err := tx.Recurring().LockDue(ctx, id, now)
		if err != nil {
			return err
		}
		if item == nil {
			outcome = OutcomeStale
			return nil
		}

		accounts, err := tx.Accounts().LockByIDs(ctx, item.AccountID)
		if err != nil {
			return err
		}
		account, ok := accounts[item.AccountID]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, item.AccountID)
		}
		pending.userID = account.UserID

		catType, err := categoryTypeOf(ctx, tx, item.CategoryID, p.logger, p.metrics)
		if err != nil {
			return err
		}
		next := item.Frequency.Next(item.NextDate)
		label := recurringLabel(item)

		if _, err := p.engine.mutator.Project(account, catType.Delta(item.Amount), item.Amount, domain.ErrInsufficientFunds); err != nil {
			var balanceErr *domain.BalanceError
			if !errors.As(err, &balanceErr) {
				return err
			}
			n, err := tx.Notifications().Create(ctx, &domain.Notification{
				UserID:   account.UserID,
				Title:    domain.TitleRecurringFailed,
				Message:  fmt.Sprintf("Recurring transaction %q of %s could not be processed: insufficient balance in %s (%s).", label, formatMoney(item.Amount, account.Currency), account.Name, formatMoney(account.Balance, account.Currency)),
				NotifyAt: now,
			})
			if err != nil {
				return err
			}
			if err := tx.Recurring().SetNextDate(ctx, item.ID, next); err != nil {
				return err
			}
			pending.add(websocket.NotificationCreated(n))
			pending.add(websocket.RecurringSkipped(RecurringPosted{RecurringID: item.ID, NextDate: next}))
			outcome = OutcomeSkipped
			return nil
		}

		posted, err := p.engine.create(ctx, tx, account.UserID, CreateTransactionInput{
			AccountID:     item.AccountID,
			CategoryID:    item.CategoryID,
			Amount:        item.Amount,
			Description:   autoDescription(label),
			ExecutionDate: &now,
		})
		if err != nil {
			return err
		}
		if err := tx.Recurring().SetNextDate(ctx, item.ID, next); err != nil {
			return err
		}
		n, err := tx.Notifications().Create(ctx, &domain.Notification{
			UserID:   account.UserID,
			Title:    domain.TitleRecurringPosted,
			Message:  fmt.Sprintf("Automatically processed %q for %s.", label, formatMoney(item.Amount, account.Currency)),
			NotifyAt: now,
		})
		if err != nil {
			return err
		}

		pending.add(websocket.TransactionCreated(posted.transaction))
		for _, bn := range posted.notifications {
			pending.add(websocket.NotificationCreated(bn))
		}
		pending.add(websocket.NotificationCreated(n))
		pending.add(websocket.RecurringPosted(RecurringPosted{RecurringID: item.ID, NextDate: next, Transaction: posted.transaction}))
		outcome = OutcomePosted
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int32("recurring_id", id).Msg("Failed to process recurring transaction")
		return OutcomeFailed
	}

	for _, event := range pending.events {
		p.publishEvent(pending.userID, event)
	}
	if outcome != OutcomeStale {
		logger.Debug().Int32("recurring_id", id).Str("outcome", outcome).Msg("Processed recurring transaction")
	}
	return outcome
}

// remindLoans records one "loan due soon" notification per active loan whose
// end date is within the reminder window. Each loan has its own unit.
func (p *RecurringPoster) remindLoans(ctx context.Context, logger zerolog.Logger, now time.Time) int {
	if p.config.LoanReminderDays == 0 {
		return 0
	}
	before := now.AddDate(0, 0, p.config.LoanReminderDays)
	loans, err := p.store.Loans().ListDueForReminder(ctx, before)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list loans due for reminder")
		return 0
	}

	reminded := 0
	for _, loan := range loans {
		if ctx.Err() != nil {
			break
		}
		var created *domain.Notification
		err := p.store.WithinTx(ctx, func(tx domain.Tx) error {
			created = nil
			claimed, err := tx.Loans().MarkReminded(ctx, loan.ID, now)
			if err != nil || !claimed {
				return err
			}
			n, err := tx.Notifications().Create(ctx, &domain.Notification{
				UserID:   loan.UserID,
				Title:    domain.TitleLoanDueSoon,
				Message:  loanReminderMessage(loan, now),
				NotifyAt: now,
			})
			if err != nil {
				return err
			}
			created = n
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Int32("loan_id", loan.ID).Msg("Failed to record loan reminder")
			continue
		}
		if created == nil {
			logger.Debug().Int32("loan_id", loan.ID).Msg("Loan reminder already sent")
			continue
		}
		reminded++
		p.publishEvent(loan.UserID, websocket.NotificationCreated(created))
	}
	return reminded
}

func loanReminderMessage(loan *domain.Loan, now time.Time) string {
	lender := "your lender"
	if loan.Lender != nil && strings.TrimSpace(*loan.Lender) != "" {
		lender = *loan.Lender
	}
	days := util.DaysUntil(now, *loan.EndDate)
	switch {
	case days < 0:
		return fmt.Sprintf("Your loan of %s from %s was due on %s.",
			formatMoney(loan.Principal, domain.DefaultCurrency), lender, loan.EndDate.Format("2006-01-02"))
	case days == 0:
		return fmt.Sprintf("Your loan of %s from %s is due today (%s).",
			formatMoney(loan.Principal, domain.DefaultCurrency), lender, loan.EndDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("Your loan of %s from %s is due on %s, in %d day(s).",
		formatMoney(loan.Principal, domain.DefaultCurrency), lender, loan.EndDate.Format("2006-01-02"), days)
}

func recurringLabel(item *domain.RecurringTransaction) string {
	if item.Description != "" {
		return item.Description
	}
	if item.Category != nil && item.Category.Name != "" {
		return item.Category.Name
	}
	return defaultRecurringFallback
}

// autoDescription prefixes the marker, trimming runes so the result fits
func autoDescription(label string) string {
	d := AutoDescriptionPrefix + label
	for len(d) > domain.MaxDescriptionLength {
		_, size := utf8.DecodeLastRuneInString(d)
		d = d[:len(d)-size]
	}
	return d
}

