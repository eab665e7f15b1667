package actions

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/magnet-sim/magnet/internal/console"
	"github.com/magnet-sim/magnet/internal/domain"
	"github.com/magnet-sim/magnet/internal/telemetry"
)

const (
	loginBurstName = "login_burst"
	loginBurstTTP  = "T1110.001"
)

// DefaultPasswords is the candidate list for the guessing loop. None of
// them can match the per-run random decoy secret.
var DefaultPasswords = []string{
	"123456",
	"password",
	"letmein",
	"qwerty",
	"Winter2025!",
	"P@ssw0rd",
	"admin",
	"changeme",
}

// AttemptRecord is one credential-guessing attempt.
type AttemptRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Account        string    `json:"account"`
	PasswordTested string    `json:"password_tested"`
	Success        bool      `json:"success"`
}

// LoginBurstSummary is the per-run summary record.
type LoginBurstSummary struct {
	TestID     string    `json:"test_id"`
	Timestamp  time.Time `json:"timestamp"`
	TTP        string    `json:"mitre"`
	Module     string    `json:"module"`
	Accounts   []string  `json:"accounts"`
	Attempts   int       `json:"attempts"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

// LoginBurst simulates a password-guessing loop: every candidate password
// is checked against a bcrypt hash of a random per-run decoy secret, so the
// attempt pattern is real but no account is ever touched.
type LoginBurst struct {
	passwords []string
}

// NewLoginBurst builds the credential-guessing module.
func NewLoginBurst(passwords []string) *LoginBurst {
	return &LoginBurst{passwords: passwords}
}

func (l *LoginBurst) Name() string { return loginBurstName }

// targetAccounts lists the decoy account labels attempts are logged
// against.
func targetAccounts() []string {
	accounts := []string{"administrator"}
	key := "USER"
	if runtime.GOOS == "windows" {
		key = "USERNAME"
	}
	if u := os.Getenv(key); u != "" && u != "administrator" {
		accounts = append(accounts, u)
	}
	return accounts
}

func (l *LoginBurst) Run(cfg *domain.RunConfig) error {
	start := time.Now()
	console.ActionRunning("simulating password guessing against decoy secret")

	if cfg.DryRun {
		console.Info("dry-run: would attempt candidate passwords against decoy accounts")
		rec := domain.NewActionRecord(cfg, tagged(loginBurstTTP, loginBurstName), domain.StatusDryRun, "password guessing skipped")
		writeRecord(cfg, rec)
		console.ActionOK()
		return nil
	}

	// Random per-run secret; MinCost keeps the loop fast without changing
	// the observable attempt pattern.
	secret, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		rec := domain.NewActionRecord(cfg, tagged(loginBurstTTP, loginBurstName), domain.StatusFailed,
			fmt.Sprintf("decoy secret setup: %v", err))
		writeRecord(cfg, rec)
		return fmt.Errorf("decoy secret setup: %w", err)
	}

	accounts := targetAccounts()
	var attempts []AttemptRecord
	successful := 0

	for _, account := range accounts {
		for _, candidate := range l.passwords {
			ok := bcrypt.CompareHashAndPassword(secret, []byte(candidate)) == nil
			if ok {
				successful++
			}
			attempts = append(attempts, AttemptRecord{
				Timestamp:      time.Now().UTC(),
				Account:        account,
				PasswordTested: candidate,
				Success:        ok,
			})
			console.Infof("%s → '%s' success=%t", account, candidate, ok)
		}
	}

	elapsed := time.Since(start)
	summary := LoginBurstSummary{
		TestID:     cfg.TestID,
		Timestamp:  time.Now().UTC(),
		TTP:        loginBurstTTP,
		Module:     loginBurstName,
		Accounts:   accounts,
		Attempts:   len(attempts),
		Successful: successful,
		Failed:     len(attempts) - successful,
		ElapsedMs:  elapsed.Milliseconds(),
	}

	if err := l.writeDetailedTelemetry(cfg, summary, attempts); err != nil {
		console.Warnf("telemetry write failed: %v", err)
	}

	rec := domain.NewActionRecord(cfg, tagged(loginBurstTTP, loginBurstName), domain.StatusCompleted,
		fmt.Sprintf("%d attempts against %d accounts, %d succeeded", len(attempts), len(accounts), successful))
	writeRecord(cfg, rec)

	console.ActionOK()
	return nil
}

func (l *LoginBurst) writeDetailedTelemetry(cfg *domain.RunConfig, summary LoginBurstSummary, attempts []AttemptRecord) error {
	streams := telemetry.NewStreams(cfg, loginBurstName)

	for _, a := range attempts {
		if err := streams.AppendItem(a); err != nil {
			return err
		}
	}
	if err := streams.AppendSummary(summary); err != nil {
		return err
	}

	return streams.AppendLog(func(w io.Writer) error {
		err := telemetry.LogHeader(w, [][2]string{
			{"TEST ID", summary.TestID},
			{"TIMESTAMP", summary.Timestamp.Format(time.RFC3339)},
			{"MODULE", summary.Module},
			{"MITRE TTP", summary.TTP},
			{"ACCOUNTS", fmt.Sprintf("%v", summary.Accounts)},
			{"ATTEMPTS", fmt.Sprintf("%d", summary.Attempts)},
			{"ELAPSED_MS", fmt.Sprintf("%d", summary.ElapsedMs)},
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "---------------- ATTEMPTS ----------------"); err != nil {
			return err
		}
		for _, a := range attempts {
			if _, err := fmt.Fprintf(w, "[%s] %s -> '%s' success=%t\n", a.Timestamp.Format(time.RFC3339), a.Account, a.PasswordTested, a.Success); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(w)
		return err
	})
}
