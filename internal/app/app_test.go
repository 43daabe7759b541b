package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/lendcore/internal/application/dto"
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
	"github.com/bibbank/lendcore/internal/infrastructure/config"
)

func memoryConfig() config.Config {
	return config.Config{
		StorageDriver: config.DriverMemory,
		ServiceName:   "lending-service",
		Lending: config.LendingConfig{
			AutoApprovalThreshold: 300,
			SweepInterval:         time.Hour,
			SweepBatchSize:        10,
		},
	}
}

func TestNew_MemoryDriverServesLoanFlow(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pinger(), "in-memory storage has nothing to ping")

	borrower, err := model.NewBorrower(uuid.New(), valueobject.KYCStatusApproved, 5_000_000, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, a.Repos().Borrowers.Create(ctx, borrower))

	applied, err := a.Apply.Execute(ctx, dto.ApplyForLoanRequest{
		IdempotencyKey: "apply-1",
		UserID:         borrower.ID(),
		AmountCents:    1_000_000,
		TermDays:       30,
	})
	require.NoError(t, err)
	require.True(t, applied.Decision.Approved, applied.Decision.Reason)

	disbursed, err := a.Lifecycle.Disburse(ctx, dto.DisburseLoanRequest{
		IdempotencyKey: "disburse-1",
		LoanID:         applied.Loan.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "disbursed", disbursed.Loan.State)
	assert.Contains(t, disbursed.Payment.GatewayRef, "stub-")

	detail, err := a.GetLoan.Execute(ctx, dto.GetLoanRequest{LoanID: applied.Loan.ID})
	require.NoError(t, err)
	assert.Equal(t, "disbursed", detail.Loan.State)
	assert.Len(t, detail.Payments, 1)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{
			name:   "unknown driver",
			mutate: func(c *config.Config) { c.StorageDriver = "sqlite" },
			errMsg: `unknown storage driver "sqlite"`,
		},
		{
			name:   "missing policy file",
			mutate: func(c *config.Config) { c.Lending.ScoringPolicyFile = "testdata/does-not-exist.yaml" },
			errMsg: "load scoring policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)

			a, err := New(context.Background(), cfg, nil, nil)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunSweeps_StopsWhenContextEnds(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunSweeps(ctx, 5*time.Millisecond, 10)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeps did not return after cancellation")
	}
}

func TestRunSweeps_LogsEachSweepOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	a, err := New(context.Background(), memoryConfig(), logger, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunSweeps(ctx, 5*time.Millisecond, 10)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	finished := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		if line["msg"] != "delinquency sweep finished" {
			continue
		}
		finished++
		// Only the use case logs completion, and it always tags the run.
		assert.Contains(t, line, "correlation_id")
	}
	assert.Positive(t, finished)
}
