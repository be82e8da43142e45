// Package breach scores password strength and checks passwords against a
// remote breached-password corpus.
package breach

import (
	"context"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/logging"
)

// Status is the breach verdict of a password.
type Status string

const (
	StatusBreached Status = "Breached"
	StatusNone     Status = "None"
)

// Checker looks a password up in a breach corpus.
type Checker interface {
	Breached(ctx context.Context, password string) (bool, error)
}

// Report is the security metadata derived from one password.
type Report struct {
	Strength    string
	HealthScore int
	Breach      Status
	// Degraded is set when the breach lookup failed and Breach is a default.
	Degraded bool
}

type Analyzer struct {
	checker Checker
	log     logging.Logger
}

func NewAnalyzer(checker Checker, log logging.Logger) *Analyzer {
	return &Analyzer{checker: checker, log: log.With("module", "breach")}
}

// Analyze scores password and checks it for breaches. It never fails: a
// lookup error yields StatusNone with Degraded set.
func (a *Analyzer) Analyze(ctx context.Context, password string) Report {
	score := Score(password)
	r := Report{
		Strength:    Label(score),
		HealthScore: Health(score),
		Breach:      StatusNone,
	}

	breached, err := a.lookup(ctx, password)
	if err != nil {
		a.log.Warn(ctx, "breach lookup unavailable", "error", err)
		r.Degraded = true
		return r
	}
	if breached {
		r.Breach = StatusBreached
	}
	return r
}

func (a *Analyzer) lookup(ctx context.Context, password string) (bool, error) {
	if a.checker == nil {
		return false, common.Degraded(nil)
	}
	breached, err := a.checker.Breached(ctx, password)
	if err != nil {
		return false, common.Degraded(err)
	}
	return breached, nil
}
