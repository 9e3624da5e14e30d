package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/gotd/td/tg"

	"github.com/myrsple/telegram-scraper/internal/logger"
	"github.com/myrsple/telegram-scraper/internal/telegram"
)

const (
	// consecutive FLOOD_WAIT signals tolerated for one logical request
	// before the walk aborts
	maxConsecutiveFloods = 3
	// attempts per batch for transient network failures
	networkAttempts = 3
)

// GroupAPI is the slice of the telegram client the fetcher consumes.
type GroupAPI interface {
	GetParticipants(ctx context.Context, group *telegram.Group, offset, limit int) (*telegram.MemberBatch, error)
	GetHistory(ctx context.Context, group *telegram.Group, offsetID int, offsetDate time.Time, limit int) (*telegram.HistoryBatch, error)
	GetUserBio(ctx context.Context, user *tg.User) (string, error)
}

// Fetcher walks paginated remote collections under a rate budget and yields
// normalized records. A fetch is forward-only; rerunning it walks from the
// start again.
type Fetcher struct {
	api     GroupAPI
	limiter *telegram.RateLimiter
	log     *logger.Logger
}

// NewFetcher creates a fetcher. Each concurrent fetch should own its own
// rate limiter since the remote throttles per request stream.
func NewFetcher(api GroupAPI, limiter *telegram.RateLimiter, log *logger.Logger) *Fetcher {
	return &Fetcher{
		api:     api,
		limiter: limiter,
		log:     log,
	}
}

// FetchMembers walks the participant list of a group and returns normalized
// member records, at most limit of them (0 = no limit).
func (f *Fetcher) FetchMembers(ctx context.Context, group *telegram.Group, limit int) ([]MemberRecord, error) {
	var records []MemberRecord
	offset := 0
	floods := 0
	first := true

	for {
		if err := f.pause(ctx, first); err != nil {
			return nil, err
		}

		batchLimit := telegram.MaxMemberBatch
		if limit > 0 && limit-len(records) < batchLimit {
			batchLimit = limit - len(records)
		}

		var batch *telegram.MemberBatch
		err := f.withRetry(ctx, "get participants", func() error {
			var err error
			batch, err = f.api.GetParticipants(ctx, group, offset, batchLimit)
			return err
		})
		if err != nil {
			var flood *telegram.FloodWaitError
			if errors.As(err, &flood) {
				floods++
				if floods >= maxConsecutiveFloods {
					return nil, fmt.Errorf("%d consecutive flood signals fetching members: %w", floods, telegram.ErrRateExhausted)
				}
				f.log.Warn().Int("wait_seconds", flood.Seconds).Int("signal", floods).Msg("scraper: FLOOD_WAIT, honoring server pause")
				f.limiter.SetFloodWait(flood.Seconds)
				first = false
				continue // retry the same page after the pause
			}
			return nil, err
		}
		floods = 0
		first = false

		if batch.RawCount == 0 {
			break
		}

		for _, user := range batch.Users {
			records = append(records, NormalizeMember(user, f.userBio(ctx, user)))
			if len(records)%50 == 0 {
				f.log.Info().Int("count", len(records)).Msg("scraper: members fetched")
			}
			if limit > 0 && len(records) >= limit {
				return records, ctx.Err()
			}
		}
		// advance past the whole served page; participants without a
		// resolvable user entity still occupy offset positions
		offset += batch.RawCount

		if batch.Total > 0 && offset >= batch.Total {
			break
		}
	}

	f.log.Info().Int("count", len(records)).Msg("scraper: member fetch complete")
	return records, nil
}

// userBio fetches a member bio through the rate budget. Any failure
// degrades to an absent bio; a flood signal additionally arms the pause
// window for subsequent calls.
func (f *Fetcher) userBio(ctx context.Context, user *tg.User) string {
	if err := f.limiter.Wait(ctx); err != nil {
		return ""
	}
	bio, err := f.api.GetUserBio(ctx, user)
	if err != nil {
		var flood *telegram.FloodWaitError
		if errors.As(err, &flood) {
			f.limiter.SetFloodWait(flood.Seconds)
		}
		f.log.Debug().Err(err).Int64("user_id", user.ID).Msg("scraper: bio unavailable")
		return ""
	}
	return bio
}

// FetchMessages walks the message history of a group, newest first, and
// returns normalized message records, at most limit of them (0 = no
// limit). A non-zero until date (midnight UTC) seeds the walk below that
// day's end so the newer segment of the history is never read; a since
// bound deliberately has no early-stop counterpart and is applied by the
// filter stage over the full walk.
func (f *Fetcher) FetchMessages(ctx context.Context, group *telegram.Group, limit int, until time.Time) ([]MessageRecord, error) {
	var records []MessageRecord
	offsetID := 0
	floods := 0
	first := true

	var offsetDate time.Time
	if !until.IsZero() {
		// getHistory returns messages strictly older than the offset
		// date, so start at the next midnight to keep until inclusive
		offsetDate = until.AddDate(0, 0, 1)
	}

	for {
		if err := f.pause(ctx, first); err != nil {
			return nil, err
		}

		batchLimit := telegram.MaxHistoryBatch
		if limit > 0 && limit-len(records) < batchLimit {
			batchLimit = limit - len(records)
		}

		var batch *telegram.HistoryBatch
		err := f.withRetry(ctx, "get history", func() error {
			var err error
			batch, err = f.api.GetHistory(ctx, group, offsetID, offsetDate, batchLimit)
			return err
		})
		if err != nil {
			var flood *telegram.FloodWaitError
			if errors.As(err, &flood) {
				floods++
				if floods >= maxConsecutiveFloods {
					return nil, fmt.Errorf("%d consecutive flood signals fetching messages: %w", floods, telegram.ErrRateExhausted)
				}
				f.log.Warn().Int("wait_seconds", flood.Seconds).Int("signal", floods).Msg("scraper: FLOOD_WAIT, honoring server pause")
				f.limiter.SetFloodWait(flood.Seconds)
				first = false
				continue
			}
			return nil, err
		}
		floods = 0
		first = false

		if batch.RawCount == 0 {
			break
		}

		for _, msg := range batch.Messages {
			rec := NormalizeMessage(msg, batch.Users, batch.ChatTitles)
			if !until.IsZero() && dateOnly(rec.Timestamp).After(until) {
				// newer than the bound; can appear at the offset boundary
				continue
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				return records, ctx.Err()
			}
		}
		// continue below the raw page, not below the last exportable
		// message: a page of nothing but service messages still has older
		// history under it
		if batch.OldestID == 0 || (offsetID != 0 && batch.OldestID >= offsetID) {
			break // cursor made no progress
		}
		offsetID = batch.OldestID

		f.log.Info().Int("count", len(records)).Msg("scraper: messages fetched")
	}

	f.log.Info().Int("count", len(records)).Msg("scraper: message fetch complete")
	return records, nil
}

// pause consults the rate budget: a plain wait before the first batch, the
// jittered inter-batch delay afterwards.
func (f *Fetcher) pause(ctx context.Context, first bool) error {
	if first {
		return f.limiter.Wait(ctx)
	}
	return f.limiter.Throttle(ctx)
}

// withRetry runs one batch call, retrying transient failures with
// exponential backoff. Flood signals and classified fatal errors pass
// through untouched; anything still failing after the attempts is a
// network error.
func (f *Fetcher) withRetry(ctx context.Context, op string, call func() error) error {
	err := retry.Do(
		func() error {
			err := call()
			if err == nil {
				return nil
			}
			if !retryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(networkAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.log.Warn().Uint("attempt", n+1).Err(err).Str("op", op).Msg("scraper: transient failure, retrying")
		}),
	)
	if err == nil {
		return nil
	}
	if !retryable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s failed after %d attempts: %w: %v", op, networkAttempts, telegram.ErrNetwork, err)
}

// retryable reports whether an error is worth another attempt. Server
// flood signals and classified protocol errors are not: they have their
// own handling paths.
func retryable(err error) bool {
	var flood *telegram.FloodWaitError
	if errors.As(err, &flood) {
		return false
	}
	for _, sentinel := range []error{
		telegram.ErrAccessDenied,
		telegram.ErrBanned,
		telegram.ErrNotFound,
		telegram.ErrAuth,
	} {
		if errors.Is(err, sentinel) {
			return false
		}
	}
	return true
}
