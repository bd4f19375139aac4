// Package retry は指数バックオフ付きの有限回リトライを提供する。
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy はリトライ方針。Attempts回まで試行し、待ち時間はInitialから2倍ずつ増えMaxで頭打ちになる。
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// Backoff はn回目の失敗（0始まり）の後に待つ時間を返す。
func (p Policy) Backoff(n int) time.Duration {
	delay := p.Initial
	for i := 0; i < n; i++ {
		delay *= 2
		if p.Max > 0 && delay > p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent はリトライしても成功しないエラーを包む。Doは即座に諦める。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do は成功するか、Permanentなエラーが返るか、ctxがキャンセルされるか、
// Attempts回に達するまでfnを繰り返す。最後のエラーを返す。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Backoff(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
